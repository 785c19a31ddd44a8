package abievents

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/0xintuition/ethmultivault-indexer/internal/models"
)

// Event signatures for the EthMultiVault contract (§4.2 step 5
// "EthMultiVaultEvents"). Topic layout keeps each event at or under the
// EVM's four-topic limit (signature + up to three indexed arguments);
// everything else travels ABI-encoded in the log data.
const (
	sigAtomCreated            = "AtomCreated(address,address,uint256,bytes)"
	sigTripleCreated          = "TripleCreated(address,uint256,uint256,uint256,uint256)"
	sigDeposited              = "Deposited(address,address,uint256,uint256,uint256,uint256,uint256,uint256)"
	sigDepositedCurve         = "DepositedCurve(address,address,uint256,uint256,uint256,uint256,uint256,uint256,uint256)"
	sigRedeemed               = "Redeemed(address,address,uint256,uint256,uint256,uint256,uint256,uint256)"
	sigRedeemedCurve          = "RedeemedCurve(address,address,uint256,uint256,uint256,uint256,uint256,uint256,uint256)"
	sigFeesTransferred        = "FeesTransferred(address,address,uint256)"
	sigSharePriceChanged      = "SharePriceChanged(uint256,uint256,uint256,uint256)"
	sigSharePriceChangedCurve = "SharePriceChangedCurve(uint256,uint256,uint256,uint256,uint256)"
)

var (
	typeUint256, _ = abi.NewType("uint256", "", nil)
	typeBytes, _   = abi.NewType("bytes", "", nil)

	topics = map[common.Hash]Kind{
		crypto.Keccak256Hash([]byte(sigAtomCreated)):            KindAtomCreated,
		crypto.Keccak256Hash([]byte(sigTripleCreated)):          KindTripleCreated,
		crypto.Keccak256Hash([]byte(sigDeposited)):              KindDeposited,
		crypto.Keccak256Hash([]byte(sigDepositedCurve)):         KindDepositedCurve,
		crypto.Keccak256Hash([]byte(sigRedeemed)):               KindRedeemed,
		crypto.Keccak256Hash([]byte(sigRedeemedCurve)):          KindRedeemedCurve,
		crypto.Keccak256Hash([]byte(sigFeesTransferred)):        KindFeesTransferred,
		crypto.Keccak256Hash([]byte(sigSharePriceChanged)):      KindSharePriceChanged,
		crypto.Keccak256Hash([]byte(sigSharePriceChangedCurve)): KindSharePriceChangedCurve,
	}
)

func nonIndexed(types ...abi.Type) abi.Arguments {
	args := make(abi.Arguments, len(types))
	for i, t := range types {
		args[i] = abi.Argument{Type: t}
	}
	return args
}

// LogDecodingError wraps any failure to match or unpack a log against the
// known event set (§4.2 step 5, §7 "Decode / validation").
type LogDecodingError struct {
	Reason string
}

func (e *LogDecodingError) Error() string { return "log decoding error: " + e.Reason }

// KindForTopic0 identifies which event a log's first topic belongs to, or
// reports ok=false for an unrecognized signature.
func KindForTopic0(topic0 common.Hash) (Kind, bool) {
	k, ok := topics[topic0]
	return k, ok
}

// Decode dispatches on topics[0] and unpacks the remaining topics/data into
// the corresponding tagged Event (§4.2 step 5).
func Decode(topicHashes []common.Hash, data []byte) (Event, error) {
	if len(topicHashes) == 0 {
		return nil, &LogDecodingError{Reason: "no topics"}
	}
	kind, ok := KindForTopic0(topicHashes[0])
	if !ok {
		return nil, &LogDecodingError{Reason: fmt.Sprintf("unknown event signature %s", topicHashes[0])}
	}

	switch kind {
	case KindAtomCreated:
		return decodeAtomCreated(topicHashes, data)
	case KindTripleCreated:
		return decodeTripleCreated(topicHashes, data)
	case KindDeposited:
		return decodeDeposited(topicHashes, data)
	case KindDepositedCurve:
		return decodeDepositedCurve(topicHashes, data)
	case KindRedeemed:
		return decodeRedeemed(topicHashes, data)
	case KindRedeemedCurve:
		return decodeRedeemedCurve(topicHashes, data)
	case KindFeesTransferred:
		return decodeFeesTransferred(topicHashes, data)
	case KindSharePriceChanged:
		return decodeSharePriceChanged(topicHashes, data)
	case KindSharePriceChangedCurve:
		return decodeSharePriceChangedCurve(topicHashes, data)
	default:
		return nil, &LogDecodingError{Reason: "unhandled kind " + string(kind)}
	}
}

func requireTopics(topicHashes []common.Hash, n int) error {
	if len(topicHashes) != n {
		return &LogDecodingError{Reason: fmt.Sprintf("expected %d topics, got %d", n, len(topicHashes))}
	}
	return nil
}

func termIDFromTopic(h common.Hash) (models.TermID, error) {
	return models.TermIDFromBig(new(big.Int).SetBytes(h.Bytes()))
}

func decodeAtomCreated(topicHashes []common.Hash, data []byte) (Event, error) {
	if err := requireTopics(topicHashes, 4); err != nil {
		return nil, err
	}
	termID, err := termIDFromTopic(topicHashes[3])
	if err != nil {
		return nil, &LogDecodingError{Reason: err.Error()}
	}
	vals, err := nonIndexed(typeBytes).Unpack(data)
	if err != nil {
		return nil, &LogDecodingError{Reason: err.Error()}
	}
	atomData, _ := vals[0].([]byte)
	return AtomCreated{
		Creator:    common.BytesToAddress(topicHashes[1].Bytes()),
		AtomWallet: common.BytesToAddress(topicHashes[2].Bytes()),
		TermID:     termID,
		AtomData:   atomData,
	}, nil
}

func decodeTripleCreated(topicHashes []common.Hash, data []byte) (Event, error) {
	if err := requireTopics(topicHashes, 3); err != nil {
		return nil, err
	}
	termID, err := termIDFromTopic(topicHashes[2])
	if err != nil {
		return nil, &LogDecodingError{Reason: err.Error()}
	}
	vals, err := nonIndexed(typeUint256, typeUint256, typeUint256).Unpack(data)
	if err != nil {
		return nil, &LogDecodingError{Reason: err.Error()}
	}
	subject, err := models.TermIDFromBig(vals[0].(*big.Int))
	if err != nil {
		return nil, &LogDecodingError{Reason: err.Error()}
	}
	predicate, err := models.TermIDFromBig(vals[1].(*big.Int))
	if err != nil {
		return nil, &LogDecodingError{Reason: err.Error()}
	}
	object, err := models.TermIDFromBig(vals[2].(*big.Int))
	if err != nil {
		return nil, &LogDecodingError{Reason: err.Error()}
	}
	return TripleCreated{
		Creator:   common.BytesToAddress(topicHashes[1].Bytes()),
		TermID:    termID,
		Subject:   subject,
		Predicate: predicate,
		Object:    object,
	}, nil
}

func decodeDeposited(topicHashes []common.Hash, data []byte) (Event, error) {
	if err := requireTopics(topicHashes, 4); err != nil {
		return nil, err
	}
	termID, err := termIDFromTopic(topicHashes[3])
	if err != nil {
		return nil, &LogDecodingError{Reason: err.Error()}
	}
	vals, err := nonIndexed(typeUint256, typeUint256, typeUint256, typeUint256, typeUint256).Unpack(data)
	if err != nil {
		return nil, &LogDecodingError{Reason: err.Error()}
	}
	return Deposited{
		Sender:            common.BytesToAddress(topicHashes[1].Bytes()),
		Receiver:          common.BytesToAddress(topicHashes[2].Bytes()),
		TermID:            termID,
		CurveID:           models.DefaultCurveID,
		AssetsAfterFees:   vals[0].(*big.Int),
		SharesForReceiver: vals[1].(*big.Int),
		EntryFee:          vals[2].(*big.Int),
		ProtocolFee:       vals[3].(*big.Int),
		NewSharePrice:     vals[4].(*big.Int),
	}, nil
}

func decodeDepositedCurve(topicHashes []common.Hash, data []byte) (Event, error) {
	if err := requireTopics(topicHashes, 4); err != nil {
		return nil, err
	}
	termID, err := termIDFromTopic(topicHashes[3])
	if err != nil {
		return nil, &LogDecodingError{Reason: err.Error()}
	}
	vals, err := nonIndexed(typeUint256, typeUint256, typeUint256, typeUint256, typeUint256, typeUint256).Unpack(data)
	if err != nil {
		return nil, &LogDecodingError{Reason: err.Error()}
	}
	return DepositedCurve{
		Sender:            common.BytesToAddress(topicHashes[1].Bytes()),
		Receiver:          common.BytesToAddress(topicHashes[2].Bytes()),
		TermID:            termID,
		CurveID:           vals[0].(*big.Int).Int64(),
		AssetsAfterFees:   vals[1].(*big.Int),
		SharesForReceiver: vals[2].(*big.Int),
		EntryFee:          vals[3].(*big.Int),
		ProtocolFee:       vals[4].(*big.Int),
		NewSharePrice:     vals[5].(*big.Int),
	}, nil
}

func decodeRedeemed(topicHashes []common.Hash, data []byte) (Event, error) {
	if err := requireTopics(topicHashes, 4); err != nil {
		return nil, err
	}
	termID, err := termIDFromTopic(topicHashes[3])
	if err != nil {
		return nil, &LogDecodingError{Reason: err.Error()}
	}
	vals, err := nonIndexed(typeUint256, typeUint256, typeUint256, typeUint256, typeUint256).Unpack(data)
	if err != nil {
		return nil, &LogDecodingError{Reason: err.Error()}
	}
	return Redeemed{
		Sender:            common.BytesToAddress(topicHashes[1].Bytes()),
		Receiver:          common.BytesToAddress(topicHashes[2].Bytes()),
		TermID:            termID,
		CurveID:           models.DefaultCurveID,
		AssetsForReceiver: vals[0].(*big.Int),
		SharesRedeemed:    vals[1].(*big.Int),
		ExitFee:           vals[2].(*big.Int),
		ProtocolFee:       vals[3].(*big.Int),
		NewSharePrice:     vals[4].(*big.Int),
	}, nil
}

func decodeRedeemedCurve(topicHashes []common.Hash, data []byte) (Event, error) {
	if err := requireTopics(topicHashes, 4); err != nil {
		return nil, err
	}
	termID, err := termIDFromTopic(topicHashes[3])
	if err != nil {
		return nil, &LogDecodingError{Reason: err.Error()}
	}
	vals, err := nonIndexed(typeUint256, typeUint256, typeUint256, typeUint256, typeUint256, typeUint256).Unpack(data)
	if err != nil {
		return nil, &LogDecodingError{Reason: err.Error()}
	}
	return RedeemedCurve{
		Sender:            common.BytesToAddress(topicHashes[1].Bytes()),
		Receiver:          common.BytesToAddress(topicHashes[2].Bytes()),
		TermID:            termID,
		CurveID:           vals[0].(*big.Int).Int64(),
		AssetsForReceiver: vals[1].(*big.Int),
		SharesRedeemed:    vals[2].(*big.Int),
		ExitFee:           vals[3].(*big.Int),
		ProtocolFee:       vals[4].(*big.Int),
		NewSharePrice:     vals[5].(*big.Int),
	}, nil
}

func decodeFeesTransferred(topicHashes []common.Hash, data []byte) (Event, error) {
	if err := requireTopics(topicHashes, 3); err != nil {
		return nil, err
	}
	vals, err := nonIndexed(typeUint256).Unpack(data)
	if err != nil {
		return nil, &LogDecodingError{Reason: err.Error()}
	}
	return FeesTransferred{
		Sender:   common.BytesToAddress(topicHashes[1].Bytes()),
		Receiver: common.BytesToAddress(topicHashes[2].Bytes()),
		Amount:   vals[0].(*big.Int),
	}, nil
}

func decodeSharePriceChanged(topicHashes []common.Hash, data []byte) (Event, error) {
	if err := requireTopics(topicHashes, 2); err != nil {
		return nil, err
	}
	termID, err := termIDFromTopic(topicHashes[1])
	if err != nil {
		return nil, &LogDecodingError{Reason: err.Error()}
	}
	vals, err := nonIndexed(typeUint256, typeUint256, typeUint256).Unpack(data)
	if err != nil {
		return nil, &LogDecodingError{Reason: err.Error()}
	}
	return SharePriceChanged{
		TermID:        termID,
		CurveID:       models.DefaultCurveID,
		NewSharePrice: vals[0].(*big.Int),
		TotalAssets:   vals[1].(*big.Int),
		TotalShares:   vals[2].(*big.Int),
	}, nil
}

func decodeSharePriceChangedCurve(topicHashes []common.Hash, data []byte) (Event, error) {
	if err := requireTopics(topicHashes, 3); err != nil {
		return nil, err
	}
	termID, err := termIDFromTopic(topicHashes[1])
	if err != nil {
		return nil, &LogDecodingError{Reason: err.Error()}
	}
	curveID := new(big.Int).SetBytes(topicHashes[2].Bytes()).Int64()
	vals, err := nonIndexed(typeUint256, typeUint256, typeUint256).Unpack(data)
	if err != nil {
		return nil, &LogDecodingError{Reason: err.Error()}
	}
	return SharePriceChangedCurve{
		TermID:        termID,
		CurveID:       curveID,
		NewSharePrice: vals[0].(*big.Int),
		TotalAssets:   vals[1].(*big.Int),
		TotalShares:   vals[2].(*big.Int),
	}, nil
}
