// Package pipeline defines the cross-stage message envelope and the typed
// error taxonomy consumers use to decide retry vs dead-letter vs log-and-
// continue (§3 "DecodedMessage", §7 "Propagation policy").
package pipeline

import (
	"github.com/0xintuition/ethmultivault-indexer/internal/abievents"
	"github.com/0xintuition/ethmultivault-indexer/internal/rawsource"
)

// DecodedMessage is produced by the raw consumer and consumed by the
// decoded consumer (§3, §6 "Decoded envelope").
type DecodedMessage struct {
	Body            abievents.Event
	BlockHash       string
	BlockNumber     int64
	BlockTimestamp  int64
	TransactionHash string
	LogIndex        int64
}

// EventID is the idempotence key described in §3 and relied on throughout
// §4.3/§8: "{transaction_hash}-{log_index}".
func (m DecodedMessage) EventID() string {
	return rawsource.RawLog{TransactionHash: m.TransactionHash, LogIndex: m.LogIndex}.EventID()
}

// FromRawLog builds a DecodedMessage from the log coordinates plus an
// already-decoded event body (§4.2 step 6: "Construct DecodedMessage
// preserving block/tx/log coordinates").
func FromRawLog(raw rawsource.RawLog, body abievents.Event) DecodedMessage {
	return DecodedMessage{
		Body:            body,
		BlockHash:       raw.BlockHash,
		BlockNumber:     raw.BlockNumber,
		BlockTimestamp:  raw.BlockTimestamp,
		TransactionHash: raw.TransactionHash,
		LogIndex:        raw.LogIndex,
	}
}
