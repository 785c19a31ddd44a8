package pipeline

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xintuition/ethmultivault-indexer/internal/abievents"
	"github.com/0xintuition/ethmultivault-indexer/internal/models"
)

func TestDecodedMessageRoundTripsThroughJSON(t *testing.T) {
	term, err := models.TermIDFromBig(big.NewInt(42))
	require.NoError(t, err)

	original := DecodedMessage{
		Body: abievents.AtomCreated{
			Creator:    common.HexToAddress("0x1111111111111111111111111111111111111111"),
			AtomWallet: common.HexToAddress("0x2222222222222222222222222222222222222222"),
			TermID:     term,
			AtomData:   []byte("ipfs://bafy"),
		},
		BlockHash:       "0xblock",
		BlockNumber:     100,
		BlockTimestamp:  1700000000,
		TransactionHash: "0xtx",
		LogIndex:        3,
	}

	raw, err := original.MarshalJSON()
	require.NoError(t, err)

	var decoded DecodedMessage
	require.NoError(t, decoded.UnmarshalJSON(raw))

	assert.Equal(t, original.EventID(), decoded.EventID())
	assert.Equal(t, abievents.KindAtomCreated, decoded.Body.Kind())

	got, ok := decoded.Body.(abievents.AtomCreated)
	require.True(t, ok)
	assert.Equal(t, "ipfs://bafy", string(got.AtomData))
	assert.True(t, got.TermID.Equal(term))
	assert.Equal(t, original.Body.(abievents.AtomCreated).Creator, got.Creator)
}

func TestDecodedMessageUnmarshalRejectsUnknownKind(t *testing.T) {
	var decoded DecodedMessage
	err := decoded.UnmarshalJSON([]byte(`{"kind":"NotARealEvent","body":{}}`))
	assert.Error(t, err)
}
