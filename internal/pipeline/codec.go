package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/0xintuition/ethmultivault-indexer/internal/abievents"
)

// wireEnvelope is the on-the-wire shape of a DecodedMessage (§6 "Decoded
// envelope"): the log coordinates plus a kind-tagged, still-encoded event
// body. abievents.Event is an interface, so it cannot round-trip through
// encoding/json on its own — MarshalJSON/UnmarshalJSON below do the
// kind-dispatch a Rust enum's #[derive(Serialize)] gets for free.
type wireEnvelope struct {
	Kind            abievents.Kind  `json:"kind"`
	Body            json.RawMessage `json:"body"`
	BlockHash       string          `json:"block_hash"`
	BlockNumber     int64           `json:"block_number"`
	BlockTimestamp  int64           `json:"block_timestamp"`
	TransactionHash string          `json:"transaction_hash"`
	LogIndex        int64           `json:"log_index"`
}

// MarshalJSON tags the concrete event type alongside its own JSON encoding
// so UnmarshalJSON can dispatch back to the right struct.
func (m DecodedMessage) MarshalJSON() ([]byte, error) {
	body, err := json.Marshal(m.Body)
	if err != nil {
		return nil, fmt.Errorf("marshal decoded message body: %w", err)
	}
	return json.Marshal(wireEnvelope{
		Kind:            m.Body.Kind(),
		Body:            body,
		BlockHash:       m.BlockHash,
		BlockNumber:     m.BlockNumber,
		BlockTimestamp:  m.BlockTimestamp,
		TransactionHash: m.TransactionHash,
		LogIndex:        m.LogIndex,
	})
}

// UnmarshalJSON reverses MarshalJSON, reconstructing the concrete
// abievents.Event behind the Kind tag.
func (m *DecodedMessage) UnmarshalJSON(data []byte) error {
	var env wireEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("unmarshal decoded message envelope: %w", err)
	}

	body, err := decodeBodyForKind(env.Kind, env.Body)
	if err != nil {
		return err
	}

	m.Body = body
	m.BlockHash = env.BlockHash
	m.BlockNumber = env.BlockNumber
	m.BlockTimestamp = env.BlockTimestamp
	m.TransactionHash = env.TransactionHash
	m.LogIndex = env.LogIndex
	return nil
}

func decodeBodyForKind(kind abievents.Kind, raw json.RawMessage) (abievents.Event, error) {
	switch kind {
	case abievents.KindAtomCreated:
		var e abievents.AtomCreated
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, err
		}
		return e, nil
	case abievents.KindTripleCreated:
		var e abievents.TripleCreated
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, err
		}
		return e, nil
	case abievents.KindDeposited:
		var e abievents.Deposited
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, err
		}
		return e, nil
	case abievents.KindDepositedCurve:
		var e abievents.DepositedCurve
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, err
		}
		return e, nil
	case abievents.KindRedeemed:
		var e abievents.Redeemed
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, err
		}
		return e, nil
	case abievents.KindRedeemedCurve:
		var e abievents.RedeemedCurve
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, err
		}
		return e, nil
	case abievents.KindFeesTransferred:
		var e abievents.FeesTransferred
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, err
		}
		return e, nil
	case abievents.KindSharePriceChanged:
		var e abievents.SharePriceChanged
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, err
		}
		return e, nil
	case abievents.KindSharePriceChangedCurve:
		var e abievents.SharePriceChangedCurve
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown decoded event kind %q", kind)
	}
}
