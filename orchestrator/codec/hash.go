package codec

import (
	"crypto/sha256"

	"github.com/ethereum/go-ethereum/crypto"
)

// Keccak256 hashes the concatenation of data with legacy Keccak-256.
func Keccak256(data ...[]byte) []byte {
	return crypto.Keccak256(data...)
}

// DoubleSHA256 is sha256(sha256(b)).
func DoubleSHA256(b []byte) []byte {
	first := sha256.Sum256(b)
	second := sha256.Sum256(first[:])
	return second[:]
}
