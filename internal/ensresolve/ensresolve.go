// Package ensresolve resolves an ENS node hash to a human-readable name
// (§4.4 "ens:<node>: call the on-chain ENS registry to find the resolver
// address, then name(node) to obtain the label"), by hand-packing the two
// eth_call payloads the same way internal/abievents hand-packs logs
// instead of pulling in generated contract bindings for a two-method surface.
package ensresolve

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Caller is the subset of ethclient.Client resolution needs; satisfied by
// *ethclient.Client and by a fake in tests. It matches go-ethereum's
// ethereum.ContractCaller signature exactly so *ethclient.Client needs no
// adapter.
type Caller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

var (
	typeBytes32, _ = abi.NewType("bytes32", "", nil)
	typeAddress, _ = abi.NewType("address", "", nil)
	typeString, _  = abi.NewType("string", "", nil)

	resolverSelector = methodSelector("resolver(bytes32)")
	nameSelector     = methodSelector("name(bytes32)")
)

func methodSelector(sig string) []byte {
	return crypto.Keccak256([]byte(sig))[:4]
}

// ParseNode parses the "ens:<node>" job URI into the raw 32-byte node hash
// (§4.4, §6 "Resolver job").
func ParseNode(uri string) (common.Hash, error) {
	const prefix = "ens:"
	if !strings.HasPrefix(uri, prefix) {
		return common.Hash{}, fmt.Errorf("not an ens uri: %q", uri)
	}
	node := strings.TrimPrefix(uri, prefix)
	if !common.IsHexAddress(node) && len(strings.TrimPrefix(node, "0x")) != 64 {
		return common.Hash{}, fmt.Errorf("malformed ens node %q", node)
	}
	return common.HexToHash(node), nil
}

// Resolve finds node's resolver via the registry, then asks that resolver
// for the node's name (§4.4). It performs two sequential eth_calls.
func Resolve(ctx context.Context, caller Caller, registry common.Address, node common.Hash) (string, error) {
	resolverAddr, err := findResolver(ctx, caller, registry, node)
	if err != nil {
		return "", fmt.Errorf("find resolver: %w", err)
	}
	if resolverAddr == (common.Address{}) {
		return "", fmt.Errorf("no resolver set for node %s", node.Hex())
	}
	name, err := resolverName(ctx, caller, resolverAddr, node)
	if err != nil {
		return "", fmt.Errorf("resolve name: %w", err)
	}
	return name, nil
}

func findResolver(ctx context.Context, caller Caller, registry common.Address, node common.Hash) (common.Address, error) {
	packed, err := abi.Arguments{{Type: typeBytes32}}.Pack(node)
	if err != nil {
		return common.Address{}, err
	}
	callData := append(append([]byte{}, resolverSelector...), packed...)

	out, err := caller.CallContract(ctx, ethereum.CallMsg{To: &registry, Data: callData}, (*big.Int)(nil))
	if err != nil {
		return common.Address{}, err
	}
	vals, err := abi.Arguments{{Type: typeAddress}}.Unpack(out)
	if err != nil {
		return common.Address{}, err
	}
	addr, _ := vals[0].(common.Address)
	return addr, nil
}

func resolverName(ctx context.Context, caller Caller, resolver common.Address, node common.Hash) (string, error) {
	packed, err := abi.Arguments{{Type: typeBytes32}}.Pack(node)
	if err != nil {
		return "", err
	}
	callData := append(append([]byte{}, nameSelector...), packed...)

	out, err := caller.CallContract(ctx, ethereum.CallMsg{To: &resolver, Data: callData}, nil)
	if err != nil {
		return "", err
	}
	vals, err := abi.Arguments{{Type: typeString}}.Unpack(out)
	if err != nil {
		return "", err
	}
	name, _ := vals[0].(string)
	return name, nil
}
