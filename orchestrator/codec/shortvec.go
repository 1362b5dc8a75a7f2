package codec

import (
	"fmt"

	bin "github.com/gagliardetto/binary"
)

// EncodeShortVec encodes n as Solana's compact-u16: seven bits per byte,
// least significant group first, 0x80 continuation.
func EncodeShortVec(n int) ([]byte, error) {
	if n < 0 || n > 0xffff {
		return nil, fmt.Errorf("shortvec length %d out of range", n)
	}
	var buf []byte
	if err := bin.EncodeCompactU16Length(&buf, n); err != nil {
		return nil, err
	}
	return buf, nil
}

// DecodeShortVec returns the value and the number of bytes consumed.
func DecodeShortVec(b []byte) (int, int, error) {
	return bin.DecodeCompactU16(b)
}
