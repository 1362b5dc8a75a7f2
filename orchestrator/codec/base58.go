package codec

import (
	"bytes"
	"fmt"

	"github.com/mr-tron/base58"
)

// XRPLAlphabet is the Ripple base58 dictionary.
var XRPLAlphabet = base58.NewAlphabet("rpshnaf39wBUDNEGHJKLM4PQRST7VWXYZ2bcdeCg65jkm8oFqi1tuvAxyz")

const checksumLen = 4

// Base58Encode encodes with the Bitcoin alphabet.
func Base58Encode(b []byte) string {
	return base58.Encode(b)
}

// Base58Decode decodes with the Bitcoin alphabet.
func Base58Decode(s string) ([]byte, error) {
	if s == "" {
		return nil, fmt.Errorf("empty base58 string")
	}
	return base58.Decode(s)
}

// XRPLBase58Encode encodes with the Ripple alphabet.
func XRPLBase58Encode(b []byte) string {
	return base58.EncodeAlphabet(b, XRPLAlphabet)
}

// XRPLBase58Decode decodes with the Ripple alphabet.
func XRPLBase58Decode(s string) ([]byte, error) {
	if s == "" {
		return nil, fmt.Errorf("empty base58 string")
	}
	return base58.DecodeAlphabet(s, XRPLAlphabet)
}

// Base58CheckEncode prefixes payload with version and appends the first four
// bytes of its double SHA-256.
func Base58CheckEncode(version byte, payload []byte, alphabet *base58.Alphabet) string {
	buf := make([]byte, 0, 1+len(payload)+checksumLen)
	buf = append(buf, version)
	buf = append(buf, payload...)
	buf = append(buf, DoubleSHA256(buf)[:checksumLen]...)
	return base58.EncodeAlphabet(buf, alphabet)
}

// Base58CheckDecode verifies the checksum and splits version from payload.
func Base58CheckDecode(s string, alphabet *base58.Alphabet) (byte, []byte, error) {
	raw, err := base58.DecodeAlphabet(s, alphabet)
	if err != nil {
		return 0, nil, err
	}
	if len(raw) < 1+checksumLen {
		return 0, nil, fmt.Errorf("base58check payload too short")
	}
	body, sum := raw[:len(raw)-checksumLen], raw[len(raw)-checksumLen:]
	if !bytes.Equal(DoubleSHA256(body)[:checksumLen], sum) {
		return 0, nil, fmt.Errorf("base58check checksum mismatch")
	}
	return body[0], body[1:], nil
}
