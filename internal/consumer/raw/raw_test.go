package raw

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xintuition/ethmultivault-indexer/internal/abievents"
	"github.com/0xintuition/ethmultivault-indexer/internal/pipeline"
	"github.com/0xintuition/ethmultivault-indexer/internal/queue"
	"github.com/0xintuition/ethmultivault-indexer/internal/rawsource"
)

const rawQueue = "raw-queue"
const decodedQueue = "decoded-queue"
const testContract = "0x00000000000000000000000000000000000abc"

func newConsumer(broker queue.Broker) *Consumer {
	return &Consumer{
		Broker:          broker,
		Adapter:         rawsource.CDCAdapter{},
		ContractAddress: testContract,
		RawQueueURL:     rawQueue,
		DecodedQueueURL: decodedQueue,
		Log:             logrus.NewEntry(logrus.New()),
	}
}

func cdcPayload(t *testing.T, address string, topics []common.Hash, data []byte) string {
	t.Helper()
	topicStrs := make([]string, len(topics))
	for i, h := range topics {
		topicStrs[i] = h.Hex()
	}
	body := map[string]any{
		"block_number":      int64(10),
		"block_hash":        "0xblock",
		"block_timestamp":   int64(1700000000),
		"transaction_hash":  "0xtx1",
		"transaction_index": int64(0),
		"log_index":         int64(1),
		"address":           address,
		"data":              "0x" + fmt.Sprintf("%x", data),
		"topics":            topicStrs,
	}
	env := map[string]any{"op": "c", "body": body}
	raw, err := json.Marshal(env)
	require.NoError(t, err)
	return string(raw)
}

func atomCreatedPayload(t *testing.T, address string) string {
	t.Helper()
	typeBytes, err := abi.NewType("bytes", "", nil)
	require.NoError(t, err)
	data, err := abi.Arguments{{Type: typeBytes}}.Pack([]byte("ipfs://QmXYZ"))
	require.NoError(t, err)

	topics := []common.Hash{
		crypto.Keccak256Hash([]byte("AtomCreated(address,address,uint256,bytes)")),
		common.BytesToHash(common.HexToAddress("0x00000000000000000000000000000000000aa1").Bytes()),
		common.BytesToHash(common.HexToAddress("0x00000000000000000000000000000000000aa2").Bytes()),
		common.BigToHash(big.NewInt(7)),
	}
	return cdcPayload(t, address, topics, data)
}

func TestConsumerDecodesAndForwardsAtomCreated(t *testing.T) {
	broker := queue.NewLocalBroker()
	c := newConsumer(broker)
	ctx := context.Background()

	require.NoError(t, broker.Send(ctx, rawQueue, atomCreatedPayload(t, testContract)))
	msgs, err := broker.Receive(ctx, rawQueue)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	require.NoError(t, c.handle(ctx, msgs[0]))

	assert.Equal(t, 1, broker.Len(decodedQueue))
	out, err := broker.Receive(ctx, decodedQueue)
	require.NoError(t, err)
	require.Len(t, out, 1)

	var decoded pipeline.DecodedMessage
	require.NoError(t, json.Unmarshal([]byte(out[0].Body), &decoded))
	assert.Equal(t, abievents.KindAtomCreated, decoded.Body.Kind())
	assert.Equal(t, "0xtx1-1", decoded.EventID())
}

func TestConsumerDropsLogsFromOtherContracts(t *testing.T) {
	broker := queue.NewLocalBroker()
	c := newConsumer(broker)
	ctx := context.Background()

	require.NoError(t, broker.Send(ctx, rawQueue, atomCreatedPayload(t, "0x000000000000000000000000000000000000ff")))
	msgs, err := broker.Receive(ctx, rawQueue)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	require.NoError(t, c.handle(ctx, msgs[0]))
	assert.Equal(t, 0, broker.Len(decodedQueue))
}

func TestConsumerDropsMalformedPayloadWithoutError(t *testing.T) {
	broker := queue.NewLocalBroker()
	c := newConsumer(broker)
	ctx := context.Background()

	require.NoError(t, broker.Send(ctx, rawQueue, "not json"))
	msgs, err := broker.Receive(ctx, rawQueue)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	require.NoError(t, c.handle(ctx, msgs[0]))
	assert.Equal(t, 0, broker.Len(decodedQueue))
}

func TestConsumerSkipsUpdateAndDeleteOps(t *testing.T) {
	broker := queue.NewLocalBroker()
	c := newConsumer(broker)
	ctx := context.Background()

	for _, op := range []string{"u", "d"} {
		env := map[string]any{"op": op, "body": map[string]any{"address": testContract}}
		raw, err := json.Marshal(env)
		require.NoError(t, err)

		require.NoError(t, broker.Send(ctx, rawQueue, string(raw)))
		msgs, err := broker.Receive(ctx, rawQueue)
		require.NoError(t, err)
		require.Len(t, msgs, 1)

		require.NoError(t, c.handle(ctx, msgs[0]))
		assert.Equal(t, 0, broker.Len(decodedQueue))
	}
}
