package codec

import (
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
)

// RLPEncodeBytes encodes b as an RLP string. A single byte below 0x80 is its
// own encoding.
func RLPEncodeBytes(b []byte) []byte {
	out, _ := rlp.EncodeToBytes(b)
	return out
}

// RLPEncodeString encodes s as an RLP string.
func RLPEncodeString(s string) []byte {
	return RLPEncodeBytes([]byte(s))
}

// RLPEncodeUint encodes v as a minimal big-endian RLP scalar; zero is 0x80.
func RLPEncodeUint(v uint64) []byte {
	out, _ := rlp.EncodeToBytes(v)
	return out
}

// RLPEncodeBig encodes a non-negative big integer as an RLP scalar. A nil
// value encodes as zero.
func RLPEncodeBig(v *big.Int) ([]byte, error) {
	if v == nil {
		v = new(big.Int)
	}
	return rlp.EncodeToBytes(v)
}

// RLPEncodeList wraps already-encoded items in a list header.
func RLPEncodeList(items ...[]byte) []byte {
	raw := make([]rlp.RawValue, len(items))
	for i, item := range items {
		raw[i] = item
	}
	out, _ := rlp.EncodeToBytes(raw)
	return out
}
