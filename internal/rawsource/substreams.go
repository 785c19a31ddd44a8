package rawsource

import "encoding/json"

// substreamsEnvelope is the wire shape documented in §6: it carries no `op`
// field; the adapter synthesizes OpCreate for every message (§4.1).
type substreamsEnvelope struct {
	BlockNumber      int64    `json:"block_number"`
	TransactionHash  string   `json:"transaction_hash"`
	TransactionIndex int64    `json:"transaction_index"`
	LogIndex         int64    `json:"log_index"`
	Address          string   `json:"address"`
	Data             string   `json:"data"`
	Topics           []string `json:"topics"`
	BlockTimestamp   int64    `json:"block_timestamp"`
}

// SubstreamsAdapter normalizes a Substreams sink payload (§4.1 "Substreams
// source"): topics are normalized to "0x…", and since there is no block
// hash on the wire it is left empty (the protocol never keys on it).
type SubstreamsAdapter struct{}

func (SubstreamsAdapter) IntoRawMessage(payload []byte) (RawMessage, error) {
	var env substreamsEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return RawMessage{}, &DecodeError{Source: "substreams", Reason: err.Error()}
	}

	topics := make([]string, len(env.Topics))
	for i, t := range env.Topics {
		topics[i] = NormalizeTopic(t)
	}

	return RawMessage{
		Op: OpCreate,
		Body: RawLog{
			BlockNumber:      env.BlockNumber,
			BlockTimestamp:   env.BlockTimestamp,
			TransactionHash:  env.TransactionHash,
			TransactionIndex: env.TransactionIndex,
			LogIndex:         env.LogIndex,
			Address:          env.Address,
			Data:             env.Data,
			Topics:           topics,
		},
	}, nil
}

// Cursor holds the last coordinates seen from a Substreams session, for a
// caller that resumes a restarted sink (SPEC_FULL.md §C.3). It lives in
// memory only; this package does not store it. It supplements §4.1
// without altering the stateless adapter contract above — the cursor is
// bookkeeping the caller does around IntoRawMessage, not part of it.
type Cursor struct {
	BlockNumber     int64
	TransactionHash string
	LogIndex        int64
}

// Advance overwrites the cursor if candidate is strictly newer, ordered by
// (block number, log index).
func (c *Cursor) Advance(candidate Cursor) {
	if candidate.BlockNumber > c.BlockNumber ||
		(candidate.BlockNumber == c.BlockNumber && candidate.LogIndex > c.LogIndex) {
		*c = candidate
	}
}
