package codec

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Has0x reports whether s carries a 0x or 0X prefix.
func Has0x(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

// Strip0x removes a leading 0x prefix if present.
func Strip0x(s string) string {
	if Has0x(s) {
		return s[2:]
	}
	return s
}

// BytesToHex returns the 0x-prefixed lowercase hex form of b.
func BytesToHex(b []byte) string {
	return hexutil.Encode(b)
}

// HexToBytes decodes hex with or without prefix. Odd-length input is left
// padded with a zero nibble.
func HexToBytes(s string) ([]byte, error) {
	body := Strip0x(strings.TrimSpace(s))
	if len(body)%2 == 1 {
		body = "0" + body
	}
	b, err := hex.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("invalid hex %q: %w", s, err)
	}
	return b, nil
}

// ParseBigInt accepts a decimal string or a 0x-hex quantity.
func ParseBigInt(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty integer")
	}
	v := new(big.Int)
	var ok bool
	if Has0x(s) {
		body := s[2:]
		if body == "" {
			return new(big.Int), nil
		}
		_, ok = v.SetString(body, 16)
	} else {
		_, ok = v.SetString(s, 10)
	}
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	return v, nil
}

// ParseOptionalBigInt is ParseBigInt with nil and empty strings mapping to nil.
func ParseOptionalBigInt(s *string) (*big.Int, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	return ParseBigInt(*s)
}

// BigToHex renders v as a minimal 0x quantity ("0x0" for zero).
func BigToHex(v *big.Int) string {
	if v == nil {
		return "0x0"
	}
	return hexutil.EncodeBig(v)
}

// DecimalToHex converts a decimal string to a 0x quantity.
func DecimalToHex(s string) (string, error) {
	v, err := ParseBigInt(s)
	if err != nil {
		return "", err
	}
	return BigToHex(v), nil
}

// HexToDecimal converts a 0x quantity (or decimal) to a decimal string.
func HexToDecimal(s string) (string, error) {
	v, err := ParseBigInt(s)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

// HexAdd returns a+b as a 0x quantity.
func HexAdd(a, b string) (string, error) {
	x, err := ParseBigInt(a)
	if err != nil {
		return "", err
	}
	y, err := ParseBigInt(b)
	if err != nil {
		return "", err
	}
	return BigToHex(new(big.Int).Add(x, y)), nil
}

// HexMul returns a*b as a 0x quantity.
func HexMul(a, b string) (string, error) {
	x, err := ParseBigInt(a)
	if err != nil {
		return "", err
	}
	y, err := ParseBigInt(b)
	if err != nil {
		return "", err
	}
	return BigToHex(new(big.Int).Mul(x, y)), nil
}

// U64LE exports v as 8 little-endian bytes. Values outside [0, 2^64) fail.
func U64LE(v *big.Int) ([]byte, error) {
	if v == nil || v.Sign() < 0 || v.BitLen() > 64 {
		return nil, fmt.Errorf("value %v does not fit in u64", v)
	}
	be := v.FillBytes(make([]byte, 8))
	out := make([]byte, 8)
	for i := 0; i < 8; i++ {
		out[i] = be[7-i]
	}
	return out, nil
}
