// Package rawsource normalizes producer-specific payloads into the
// canonical RawLog/RawMessage shape (§4.1). Each concrete source
// (CDC/GoldSky, Substreams) implements the single adapter contract; the
// raw consumer (internal/consumer/raw) depends only on that contract.
package rawsource

import (
	"strconv"
	"strings"
)

// Op is the CDC operation tag (§4.1, §GLOSSARY "CDC").
type Op string

const (
	OpCreate Op = "c"
	OpDelete Op = "d"
	OpUpdate Op = "u"
)

// RawLog is the canonical, source-independent representation of one EVM
// log (§3). It is uniquely keyed by (TransactionHash, LogIndex).
type RawLog struct {
	BlockNumber      int64
	BlockHash        string
	BlockTimestamp   int64
	TransactionHash  string
	TransactionIndex int64
	LogIndex         int64
	Address          string
	Data             string // hex, "0x"-prefixed
	Topics           []string
}

// EventID is the idempotence key used throughout §4.3/§8: "{tx_hash}-{log_index}".
func (r RawLog) EventID() string {
	return r.TransactionHash + "-" + strconv.FormatInt(r.LogIndex, 10)
}

// RawMessage is what every adapter produces (§4.1): an operation tag plus
// the normalized log body.
type RawMessage struct {
	Op   Op
	Body RawLog
}

// NormalizeTopic ensures a topic string carries the canonical "0x" prefix
// (§4.1 Substreams source, §8 round-trip law: "abcd…" and "0xabcd…"
// produce the same canonical form). Mirrors the original adapter's
// trim-then-prefix rule so a topic that already carries "0x" is untouched.
func NormalizeTopic(t string) string {
	return "0x" + strings.TrimPrefix(t, "0x")
}
