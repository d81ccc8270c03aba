package enrich

import (
	"math/big"
	"strconv"
)

// Kind tags the closed set of argument value variants.
type Kind int

const (
	KindInt Kind = iota
	KindDecimal
	KindAddress
	KindHash
	KindText
)

// Value is one enriched event argument. Address and hash variants
// carry ready-to-send markup links in Text.
type Value struct {
	Kind Kind
	Int  *big.Int
	Dec  float64
	Text string
}

// IntValue wraps a raw integer argument.
func IntValue(v *big.Int) Value { return Value{Kind: KindInt, Int: v} }

// DecimalValue wraps a fixed-point argument already scaled by 10^18.
func DecimalValue(v float64) Value { return Value{Kind: KindDecimal, Dec: v} }

// AddressValue wraps a linked address representation.
func AddressValue(markup string) Value { return Value{Kind: KindAddress, Text: markup} }

// HashValue wraps a linked hash representation.
func HashValue(markup string) Value { return Value{Kind: KindHash, Text: markup} }

// TextValue wraps a plain text argument.
func TextValue(s string) Value { return Value{Kind: KindText, Text: s} }

// String renders the value for template substitution.
func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		if v.Int == nil {
			return "0"
		}
		return v.Int.String()
	case KindDecimal:
		return strconv.FormatFloat(v.Dec, 'f', -1, 64)
	default:
		return v.Text
	}
}

// Args is the enriched argument mapping passed to the templating
// collaborator as named substitution values.
type Args map[string]Value

// Strings flattens the mapping for template rendering.
func (a Args) Strings() map[string]string {
	out := make(map[string]string, len(a))
	for k, v := range a {
		out[k] = v.String()
	}
	return out
}
