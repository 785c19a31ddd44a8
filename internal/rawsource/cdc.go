package rawsource

import (
	"encoding/json"
	"strings"
)

// cdcEnvelope is the wire shape documented in §6: {"op": "c"|"d"|"u", "body": RawLog}.
type cdcEnvelope struct {
	Op   string          `json:"op"`
	Body json.RawMessage `json:"body"`
}

type cdcBody struct {
	BlockNumber      int64    `json:"block_number"`
	BlockHash        string   `json:"block_hash"`
	BlockTimestamp   int64    `json:"block_timestamp"`
	TransactionHash  string   `json:"transaction_hash"`
	TransactionIndex int64    `json:"transaction_index"`
	LogIndex         int64    `json:"log_index"`
	Address          string   `json:"address"`
	Data             string   `json:"data"`
	Topics           []string `json:"topics"`
}

// CDCAdapter normalizes GoldSky's change-data-capture envelope (§4.1 "CDC
// source"). D and U are accepted and passed through as idempotent no-ops
// per §4.1/§9 Open Question 2 — only the downstream consumer decides that;
// this adapter's job is purely to parse the envelope.
type CDCAdapter struct{}

func (CDCAdapter) IntoRawMessage(payload []byte) (RawMessage, error) {
	var env cdcEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return RawMessage{}, &DecodeError{Source: "cdc", Reason: err.Error()}
	}

	op := Op(strings.ToLower(env.Op))
	switch op {
	case OpCreate, OpDelete, OpUpdate:
	default:
		return RawMessage{}, &DecodeError{Source: "cdc", Reason: "unrecognized op " + env.Op}
	}

	var body cdcBody
	if err := json.Unmarshal(env.Body, &body); err != nil {
		return RawMessage{}, &DecodeError{Source: "cdc", Reason: err.Error()}
	}

	return RawMessage{
		Op: op,
		Body: RawLog{
			BlockNumber:      body.BlockNumber,
			BlockHash:        body.BlockHash,
			BlockTimestamp:   body.BlockTimestamp,
			TransactionHash:  body.TransactionHash,
			TransactionIndex: body.TransactionIndex,
			LogIndex:         body.LogIndex,
			Address:          body.Address,
			Data:             body.Data,
			Topics:           body.Topics,
		},
	}, nil
}
