package ensresolve

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCaller struct {
	resolverAddr common.Address
	name         string
}

func (f fakeCaller) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	switch {
	case len(call.Data) >= 4 && string(call.Data[:4]) == string(resolverSelector):
		return abi.Arguments{{Type: typeAddress}}.Pack(f.resolverAddr)
	case len(call.Data) >= 4 && string(call.Data[:4]) == string(nameSelector):
		return abi.Arguments{{Type: typeString}}.Pack(f.name)
	default:
		return nil, nil
	}
}

func TestResolveCallsRegistryThenResolver(t *testing.T) {
	caller := fakeCaller{resolverAddr: common.HexToAddress("0x2"), name: "alice.eth"}
	node := common.HexToHash("0x1234")

	name, err := Resolve(context.Background(), caller, common.HexToAddress("0xregistry"), node)
	require.NoError(t, err)
	assert.Equal(t, "alice.eth", name)
}

func TestResolveErrorsWhenNoResolverSet(t *testing.T) {
	caller := fakeCaller{}
	_, err := Resolve(context.Background(), caller, common.HexToAddress("0xregistry"), common.HexToHash("0xabc"))
	assert.Error(t, err)
}

func TestParseNodeRejectsNonENSURI(t *testing.T) {
	_, err := ParseNode("ipfs://bafy123")
	assert.Error(t, err)
}

func TestParseNodeAcceptsHexNode(t *testing.T) {
	node, err := ParseNode("ens:0x1234567890123456789012345678901234567890123456789012345678901234")
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash("0x1234567890123456789012345678901234567890123456789012345678901234"), node)
}
