package codec

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FormatAmount renders a smallest-unit integer as a human amount with the
// given number of decimals. Trailing zeros are trimmed: 10^18 at 18
// decimals formats as "1".
func FormatAmount(raw string, decimals int32) (string, error) {
	v, err := ParseBigInt(raw)
	if err != nil {
		return "", err
	}
	if decimals < 0 {
		return "", fmt.Errorf("negative decimals %d", decimals)
	}
	return decimal.NewFromBigInt(v, -decimals).String(), nil
}

// ParseAmount is the inverse of FormatAmount. Amounts with more fractional
// digits than decimals are rejected rather than rounded.
func ParseAmount(amount string, decimals int32) (string, error) {
	if decimals < 0 {
		return "", fmt.Errorf("negative decimals %d", decimals)
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return "", fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	if d.IsNegative() {
		return "", fmt.Errorf("negative amount %q", amount)
	}
	shifted := d.Shift(decimals)
	if !shifted.IsInteger() {
		return "", fmt.Errorf("amount %q exceeds %d decimals", amount, decimals)
	}
	return shifted.BigInt().String(), nil
}
