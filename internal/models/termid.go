package models

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// TermID is the unified id space shared by atoms and triples (§3, §GLOSSARY
// "Term"). It wraps uint256.Int so arithmetic (notably the counter-triple
// derivation) stays exact at 256 bits instead of drifting through
// math/big's arbitrary precision or a native int.
type TermID struct {
	v uint256.Int
}

// TermIDFromBig builds a TermID from a decimal big.Int, as produced when
// unpacking a uint256 ABI argument.
func TermIDFromBig(b *big.Int) (TermID, error) {
	var u uint256.Int
	overflow := u.SetFromBig(b)
	if overflow {
		return TermID{}, fmt.Errorf("term id %s overflows uint256", b.String())
	}
	return TermID{v: u}, nil
}

// TermIDFromString parses a decimal string as emitted on the resolver job
// envelope (§6 "term_id": "<decimal U256>").
func TermIDFromString(s string) (TermID, error) {
	var u uint256.Int
	if err := u.SetFromDecimal(s); err != nil {
		return TermID{}, fmt.Errorf("parse term id %q: %w", s, err)
	}
	return TermID{v: u}, nil
}

// String renders the term id as a base-10 string, the canonical form used
// in queue envelopes and as the Postgres NUMERIC column representation.
func (t TermID) String() string {
	return t.v.Dec()
}

// Big returns the term id as a math/big.Int for callers (e.g. pgx) that
// only understand the standard library's arbitrary precision type.
func (t TermID) Big() *big.Int {
	return t.v.ToBig()
}

// Equal reports whether two term ids refer to the same term.
func (t TermID) Equal(o TermID) bool {
	return t.v.Eq(&o.v)
}

// Counter derives the counter-term id for a triple (§3 "implicitly creates
// a counter-triple term", §4.3, Open Question 1 in SPEC_FULL.md §D).
//
// counter(T) = (2^256 - 1) - T, i.e. the bitwise complement of T over 256
// bits. This is a total, self-inverse, collision-free involution: every
// term id has exactly one counter and counter(counter(T)) == T holds
// exactly, which is the invariant §8 requires.
func (t TermID) Counter() TermID {
	var out uint256.Int
	out.Not(&t.v)
	return TermID{v: out}
}

// MarshalJSON renders the term id as a quoted decimal string. uint256.Int
// wraps unexported state, so the default struct encoding would silently
// produce "{}" without this override.
func (t TermID) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.v.Dec())
}

// UnmarshalJSON parses the quoted decimal string produced by MarshalJSON.
func (t *TermID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := TermIDFromString(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
