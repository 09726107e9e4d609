package utils

import (
	"fmt"
	"math/big"
	"strings"
)

// RawToDecimal converts a raw integer amount string (no decimal point) to
// its decimal-adjusted value using the given precision.
// Example: raw="1500000000000000000", decimals=18 => 1.5
func RawToDecimal(raw string, decimals uint8) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("empty raw amount")
	}

	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		// Some providers ship raw values in hex.
		if trimmed, found := strings.CutPrefix(strings.ToLower(raw), "0x"); found {
			amount, ok = new(big.Int).SetString(trimmed, 16)
		}
		if !ok {
			return 0, fmt.Errorf("unparseable raw amount %q", raw)
		}
	}
	if amount.Sign() < 0 {
		return 0, fmt.Errorf("negative raw amount %q", raw)
	}

	amountFloat := new(big.Float).SetInt(amount)
	divisor := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	value, _ := new(big.Float).Quo(amountFloat, divisor).Float64()
	return value, nil
}

// ParseDecimalString parses a decimal-formatted amount string like "1.5".
// Raw integer strings without a decimal point are rejected so they do not
// masquerade as already-divided quantities.
func ParseDecimalString(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || !strings.Contains(s, ".") {
		return 0, false
	}
	f, ok := new(big.Float).SetString(s)
	if !ok {
		return 0, false
	}
	value, _ := f.Float64()
	if value < 0 {
		return 0, false
	}
	return value, true
}
