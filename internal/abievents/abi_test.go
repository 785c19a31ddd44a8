package abievents

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

func uintTopic(n int64) common.Hash {
	return common.BigToHash(big.NewInt(n))
}

func TestDecodeAtomCreated(t *testing.T) {
	creator := common.HexToAddress("0x000000000000000000000000000000000000aa")
	wallet := common.HexToAddress("0x000000000000000000000000000000000000bb")

	data, err := nonIndexed(typeBytes).Pack([]byte("ipfs://QmXYZ"))
	require.NoError(t, err)

	topicsIn := []common.Hash{
		crypto.Keccak256Hash([]byte(sigAtomCreated)),
		addressTopic(creator),
		addressTopic(wallet),
		uintTopic(7),
	}

	ev, err := Decode(topicsIn, data)
	require.NoError(t, err)

	ac, ok := ev.(AtomCreated)
	require.True(t, ok)
	assert.Equal(t, creator, ac.Creator)
	assert.Equal(t, wallet, ac.AtomWallet)
	assert.Equal(t, "7", ac.TermID.String())
	assert.Equal(t, "ipfs://QmXYZ", string(ac.AtomData))
}

func TestDecodeDepositedRoundTrip(t *testing.T) {
	sender := common.HexToAddress("0x00000000000000000000000000000000000001")
	receiver := common.HexToAddress("0x00000000000000000000000000000000000002")

	data, err := nonIndexed(typeUint256, typeUint256, typeUint256, typeUint256, typeUint256).
		Pack(big.NewInt(100), big.NewInt(100), big.NewInt(2), big.NewInt(1), big.NewInt(1_000_000))
	require.NoError(t, err)

	topicsIn := []common.Hash{
		crypto.Keccak256Hash([]byte(sigDeposited)),
		addressTopic(sender),
		addressTopic(receiver),
		uintTopic(42),
	}

	ev, err := Decode(topicsIn, data)
	require.NoError(t, err)

	dep, ok := ev.(Deposited)
	require.True(t, ok)
	assert.Equal(t, "42", dep.TermID.String())
	assert.Equal(t, int64(1), dep.CurveID)
	assert.Equal(t, big.NewInt(100), dep.SharesForReceiver)
}

func TestDecodeRejectsUnknownSignature(t *testing.T) {
	_, err := Decode([]common.Hash{common.HexToHash("0xdeadbeef")}, nil)
	require.Error(t, err)
	var decErr *LogDecodingError
	require.ErrorAs(t, err, &decErr)
}

func TestDecodeRejectsWrongTopicCount(t *testing.T) {
	_, err := Decode([]common.Hash{crypto.Keccak256Hash([]byte(sigAtomCreated))}, nil)
	require.Error(t, err)
}
