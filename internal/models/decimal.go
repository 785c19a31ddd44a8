package models

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

// DecimalShares wraps uint256.Int for share counts, asset amounts and share
// prices (§3). The protocol's on-chain integers are uint256; keeping the
// same width end to end avoids precision loss across the decode -> ledger
// boundary.
type DecimalShares struct {
	v uint256.Int
}

// Zero returns a fresh zero-valued DecimalShares.
func Zero() *DecimalShares {
	return &DecimalShares{}
}

// DecimalFromBig builds a DecimalShares from a decoded ABI uint256 argument.
func DecimalFromBig(b *big.Int) (*DecimalShares, error) {
	var u uint256.Int
	if u.SetFromBig(b) {
		return nil, fmt.Errorf("value %s overflows uint256", b.String())
	}
	return &DecimalShares{v: u}, nil
}

// DecimalFromString parses a decimal string, as read back from the schema's
// NUMERIC columns.
func DecimalFromString(s string) (*DecimalShares, error) {
	var u uint256.Int
	if err := u.SetFromDecimal(s); err != nil {
		return nil, fmt.Errorf("parse decimal %q: %w", s, err)
	}
	return &DecimalShares{v: u}, nil
}

// String renders the value as a base-10 string for storage/serialization.
func (d *DecimalShares) String() string {
	if d == nil {
		return "0"
	}
	return d.v.Dec()
}

// Big returns the value as a math/big.Int.
func (d *DecimalShares) Big() *big.Int {
	if d == nil {
		return new(big.Int)
	}
	return d.v.ToBig()
}

// IsZero reports whether the value is exactly zero.
func (d *DecimalShares) IsZero() bool {
	return d == nil || d.v.IsZero()
}

// Add returns a new DecimalShares equal to d + o.
func (d *DecimalShares) Add(o *DecimalShares) *DecimalShares {
	var out uint256.Int
	out.Add(&d.v, &o.v)
	return &DecimalShares{v: out}
}

// Sub returns a new DecimalShares equal to d - o. Callers must ensure
// d >= o, since the result otherwise wraps modulo 2^256; the protocol never
// emits a redemption larger than the position's balance, and the
// SharePriceChanged reconciliation compares its operands before subtracting
// (§4.3 SharePriceChanged, §7).
func (d *DecimalShares) Sub(o *DecimalShares) *DecimalShares {
	var out uint256.Int
	out.Sub(&d.v, &o.v)
	return &DecimalShares{v: out}
}

// Cmp compares d to o the way big.Int.Cmp does.
func (d *DecimalShares) Cmp(o *DecimalShares) int {
	return d.v.Cmp(&o.v)
}

// MarshalJSON renders the value as a quoted decimal string, for the same
// reason TermID overrides it: uint256.Int's state is unexported.
func (d *DecimalShares) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON parses the quoted decimal string produced by MarshalJSON.
func (d *DecimalShares) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := DecimalFromString(s)
	if err != nil {
		return err
	}
	*d = *parsed
	return nil
}

// SignedDecimal is a magnitude carried by DecimalShares plus an explicit
// sign (§3 "delta = assets signed by direction"). DecimalShares wraps
// uint256.Int, unsigned modular arithmetic, so a signed quantity like
// Signal.Delta needs its sign tracked separately rather than produced by
// subtracting on the unsigned wrapper, which would wrap instead of going
// negative.
type SignedDecimal struct {
	Negative  bool
	Magnitude *DecimalShares
}

// PositiveDecimal wraps d as a non-negative SignedDecimal.
func PositiveDecimal(d *DecimalShares) *SignedDecimal {
	return &SignedDecimal{Magnitude: d}
}

// NegativeDecimal wraps d as a negative SignedDecimal. A zero magnitude
// stays non-negative so "-0" is never rendered.
func NegativeDecimal(d *DecimalShares) *SignedDecimal {
	return &SignedDecimal{Negative: !d.IsZero(), Magnitude: d}
}

// String renders the signed value, "-" prefixed when negative.
func (s *SignedDecimal) String() string {
	if s == nil || s.Magnitude == nil {
		return "0"
	}
	if s.Negative {
		return "-" + s.Magnitude.String()
	}
	return s.Magnitude.String()
}

// SignedDecimalFromString parses an optionally "-"-prefixed decimal
// string, as read back from the schema's signed NUMERIC delta column.
func SignedDecimalFromString(s string) (*SignedDecimal, error) {
	negative := strings.HasPrefix(s, "-")
	mag, err := DecimalFromString(strings.TrimPrefix(s, "-"))
	if err != nil {
		return nil, fmt.Errorf("parse signed decimal %q: %w", s, err)
	}
	return &SignedDecimal{Negative: negative && !mag.IsZero(), Magnitude: mag}, nil
}

// MarshalJSON renders the value as a quoted signed decimal string.
func (s *SignedDecimal) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON parses the quoted string produced by MarshalJSON.
func (s *SignedDecimal) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	parsed, err := SignedDecimalFromString(str)
	if err != nil {
		return err
	}
	*s = *parsed
	return nil
}
