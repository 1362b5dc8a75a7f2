package codec

import (
	"fmt"
	"strings"
)

const evmAddressHexLen = 40

func isHexBody(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}

// ToChecksumAddress returns the EIP-55 mixed-case form of a 20-byte address.
func ToChecksumAddress(addr string) (string, error) {
	if !Has0x(addr) || len(addr) != evmAddressHexLen+2 || !isHexBody(addr[2:]) {
		return "", fmt.Errorf("invalid evm address %q", addr)
	}
	lower := strings.ToLower(addr[2:])
	hash := Keccak256([]byte(lower))

	out := make([]byte, evmAddressHexLen)
	for i := 0; i < evmAddressHexLen; i++ {
		c := lower[i]
		nibble := hash[i/2]
		if i%2 == 0 {
			nibble >>= 4
		} else {
			nibble &= 0x0f
		}
		if c >= 'a' && c <= 'f' && nibble >= 8 {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return "0x" + string(out), nil
}

// IsChecksumAddress reports whether addr matches its EIP-55 form exactly.
func IsChecksumAddress(addr string) bool {
	sum, err := ToChecksumAddress(addr)
	return err == nil && sum == addr
}

// ValidateEVMAddress accepts all-lower and all-upper bodies unless strict is
// set; mixed case must always match the checksum.
func ValidateEVMAddress(addr string, strict bool) bool {
	if !Has0x(addr) || len(addr) != evmAddressHexLen+2 || !isHexBody(addr[2:]) {
		return false
	}
	body := addr[2:]
	if !strict && (body == strings.ToLower(body) || body == strings.ToUpper(body)) {
		return true
	}
	return IsChecksumAddress(addr)
}

// NormalizeEVMAddress returns the canonical lowercase storage form.
func NormalizeEVMAddress(addr string) (string, error) {
	if !ValidateEVMAddress(addr, false) {
		return "", fmt.Errorf("invalid evm address %q", addr)
	}
	return "0x" + strings.ToLower(addr[2:]), nil
}
