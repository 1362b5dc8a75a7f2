package ton

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

const (
	friendlyLen      = 48
	friendlyRawLen   = 36
	flagBounceable   = 0x11
	flagNonBounce    = 0x51
	flagTestOnly     = 0x80
	accountIDHexSize = 64
)

// ParseRaw splits "workchain:hex" into its parts.
func ParseRaw(address string) (int8, []byte, error) {
	wc, body, ok := strings.Cut(address, ":")
	if !ok {
		return 0, nil, fmt.Errorf("raw address %q has no workchain", address)
	}
	n, err := strconv.ParseInt(wc, 10, 8)
	if err != nil {
		return 0, nil, fmt.Errorf("invalid workchain %q", wc)
	}
	if len(body) != accountIDHexSize {
		return 0, nil, fmt.Errorf("account id must be %d hex digits", accountIDHexSize)
	}
	id, err := hex.DecodeString(body)
	if err != nil {
		return 0, nil, fmt.Errorf("account id is not hex")
	}
	return int8(n), id, nil
}

// ParseFriendly decodes the 48 character base64 (url or standard) form and
// verifies its CRC16 checksum.
func ParseFriendly(address string) (int8, []byte, error) {
	if len(address) != friendlyLen {
		return 0, nil, fmt.Errorf("user-friendly address must be %d characters", friendlyLen)
	}
	raw, err := base64.URLEncoding.DecodeString(address)
	if err != nil {
		if raw, err = base64.StdEncoding.DecodeString(address); err != nil {
			return 0, nil, fmt.Errorf("address is not base64")
		}
	}
	if len(raw) != friendlyRawLen {
		return 0, nil, fmt.Errorf("decoded address must be %d bytes", friendlyRawLen)
	}
	flags := raw[0] &^ flagTestOnly
	if flags != flagBounceable && flags != flagNonBounce {
		return 0, nil, fmt.Errorf("unknown address flags 0x%02x", raw[0])
	}
	if crc16(raw[:34]) != binary.BigEndian.Uint16(raw[34:]) {
		return 0, nil, fmt.Errorf("address checksum mismatch")
	}
	return int8(raw[1]), raw[2:34], nil
}

// UserFriendly renders workchain and account id as a url-safe address.
func UserFriendly(workchain int8, accountID []byte, bounceable, testOnly bool) string {
	buf := make([]byte, friendlyRawLen)
	buf[0] = flagNonBounce
	if bounceable {
		buf[0] = flagBounceable
	}
	if testOnly {
		buf[0] |= flagTestOnly
	}
	buf[1] = byte(workchain)
	copy(buf[2:34], accountID)
	binary.BigEndian.PutUint16(buf[34:], crc16(buf[:34]))
	return base64.URLEncoding.EncodeToString(buf)
}

// crc16 is CRC-16/XMODEM.
func crc16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

func rawForm(workchain int8, accountID []byte) string {
	return fmt.Sprintf("%d:%s", workchain, hex.EncodeToString(accountID))
}
