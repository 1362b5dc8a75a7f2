package codec

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// EncodeSegwitAddress builds a BIP-173 (v0) or BIP-350 (v1+) address from a
// witness version and program.
func EncodeSegwitAddress(hrp string, version byte, program []byte) (string, error) {
	if version > 16 {
		return "", fmt.Errorf("invalid witness version %d", version)
	}
	if len(program) < 2 || len(program) > 40 {
		return "", fmt.Errorf("invalid witness program length %d", len(program))
	}
	conv, err := bech32.ConvertBits(program, 8, 5, true)
	if err != nil {
		return "", err
	}
	data := append([]byte{version}, conv...)
	if version == 0 {
		return bech32.Encode(hrp, data)
	}
	return bech32.EncodeM(hrp, data)
}

// DecodeSegwitAddress validates hrp, checksum variant and program length and
// returns the witness version and program.
func DecodeSegwitAddress(hrp, addr string) (byte, []byte, error) {
	gotHRP, data, variant, err := bech32.DecodeGeneric(addr)
	if err != nil {
		return 0, nil, err
	}
	if !strings.EqualFold(gotHRP, hrp) {
		return 0, nil, fmt.Errorf("unexpected hrp %q", gotHRP)
	}
	if len(data) < 1 {
		return 0, nil, fmt.Errorf("empty witness data")
	}
	version := data[0]
	if version > 16 {
		return 0, nil, fmt.Errorf("invalid witness version %d", version)
	}
	if version == 0 && variant != bech32.Version0 || version != 0 && variant != bech32.VersionM {
		return 0, nil, fmt.Errorf("checksum variant does not match witness version %d", version)
	}
	program, err := bech32.ConvertBits(data[1:], 5, 8, false)
	if err != nil {
		return 0, nil, err
	}
	if len(program) < 2 || len(program) > 40 {
		return 0, nil, fmt.Errorf("invalid witness program length %d", len(program))
	}
	if version == 0 && len(program) != 20 && len(program) != 32 {
		return 0, nil, fmt.Errorf("invalid v0 program length %d", len(program))
	}
	return version, program, nil
}
