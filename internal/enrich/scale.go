package enrich

import (
	"math/big"
	"strings"
)

var wei = new(big.Float).SetFloat64(1e18)

// ToDecimal converts a 10^18 fixed-point integer to its decimal value.
func ToDecimal(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	out, _ := new(big.Float).Quo(new(big.Float).SetInt(v), wei).Float64()
	return out
}

func isAmountKey(key string) bool {
	k := strings.ToLower(key)
	return strings.Contains(k, "amount") || strings.Contains(k, "value")
}

// shortHex shortens a 0x-prefixed string for display.
func shortHex(s string) string {
	if len(s) <= 10 {
		return s
	}
	return s[:6] + "..." + s[len(s)-4:]
}
