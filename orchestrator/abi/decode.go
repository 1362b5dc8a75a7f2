package abi

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	"github.com/pushchain/chain-orchestrator/orchestrator/codec"
)

// Decode unpacks data according to types. Integers decode to *big.Int,
// addresses to EIP-55 strings, fixed and dynamic bytes to []byte, and
// arrays and tuples to []any.
func Decode(types []*Type, data []byte) ([]any, error) {
	return decodeTuple(types, data)
}

// DecodeValues parses type strings and decodes data in one step.
func DecodeValues(typeNames []string, data []byte) ([]any, error) {
	types, err := ParseTypes(typeNames...)
	if err != nil {
		return nil, err
	}
	return Decode(types, data)
}

// decodeTuple reads a head section starting at buf[0]. Offsets found in the
// head are relative to buf[0].
func decodeTuple(types []*Type, buf []byte) ([]any, error) {
	out := make([]any, len(types))
	pos := 0
	for i, t := range types {
		if t.IsDynamic() {
			off, err := readOffset(buf, pos)
			if err != nil {
				return nil, err
			}
			v, err := decodeValue(t, buf[off:])
			if err != nil {
				return nil, fmt.Errorf("abi: argument %d (%s): %w", i, t, err)
			}
			out[i] = v
			pos += wordSize
			continue
		}
		if pos+t.headSize() > len(buf) {
			return nil, fmt.Errorf("abi: argument %d (%s) exceeds data length", i, t)
		}
		v, err := decodeValue(t, buf[pos:])
		if err != nil {
			return nil, fmt.Errorf("abi: argument %d (%s): %w", i, t, err)
		}
		out[i] = v
		pos += t.headSize()
	}
	return out, nil
}

func decodeValue(t *Type, b []byte) (any, error) {
	switch t.Kind {
	case UintKind:
		w, err := word(b, 0)
		if err != nil {
			return nil, err
		}
		n := new(big.Int).SetBytes(w)
		if n.BitLen() > t.Size {
			return nil, fmt.Errorf("value overflows uint%d", t.Size)
		}
		return n, nil

	case IntKind:
		w, err := word(b, 0)
		if err != nil {
			return nil, err
		}
		n := signedWord(w)
		limit := new(big.Int).Lsh(big.NewInt(1), uint(t.Size-1))
		if n.Cmp(limit) >= 0 || n.Cmp(new(big.Int).Neg(limit)) < 0 {
			return nil, fmt.Errorf("value overflows int%d", t.Size)
		}
		return n, nil

	case AddressKind:
		w, err := word(b, 0)
		if err != nil {
			return nil, err
		}
		for _, c := range w[:12] {
			if c != 0 {
				return nil, fmt.Errorf("dirty address padding")
			}
		}
		return codec.ToChecksumAddress(codec.BytesToHex(w[12:]))

	case BoolKind:
		w, err := word(b, 0)
		if err != nil {
			return nil, err
		}
		n := new(uint256.Int).SetBytes(w)
		switch {
		case n.IsZero():
			return false, nil
		case n.Eq(uint256.NewInt(1)):
			return true, nil
		}
		return nil, fmt.Errorf("invalid bool word")

	case FixedBytesKind:
		w, err := word(b, 0)
		if err != nil {
			return nil, err
		}
		out := make([]byte, t.Size)
		copy(out, w[:t.Size])
		return out, nil

	case BytesKind, StringKind:
		n, err := readLength(b, 0)
		if err != nil {
			return nil, err
		}
		if wordSize+n > len(b) {
			return nil, fmt.Errorf("byte payload exceeds data length")
		}
		raw := make([]byte, n)
		copy(raw, b[wordSize:wordSize+n])
		if t.Kind == StringKind {
			return string(raw), nil
		}
		return raw, nil

	case SliceKind:
		n, err := readLength(b, 0)
		if err != nil {
			return nil, err
		}
		if n*wordSize > len(b)-wordSize {
			return nil, fmt.Errorf("slice length %d exceeds data length", n)
		}
		return decodeTuple(repeat(t.Elem, n), b[wordSize:])

	case ArrayKind:
		return decodeTuple(repeat(t.Elem, t.Size), b)

	case TupleKind:
		return decodeTuple(t.Components, b)
	}
	return nil, fmt.Errorf("unsupported kind %d", t.Kind)
}

func word(b []byte, pos int) ([]byte, error) {
	if pos < 0 || pos+wordSize > len(b) {
		return nil, fmt.Errorf("read past end of data at %d", pos)
	}
	return b[pos : pos+wordSize], nil
}

func readLength(b []byte, pos int) (int, error) {
	w, err := word(b, pos)
	if err != nil {
		return 0, err
	}
	n := new(uint256.Int).SetBytes(w)
	if !n.IsUint64() || n.Uint64() > uint64(len(b)) {
		return 0, fmt.Errorf("length %s exceeds data length", n.Dec())
	}
	return int(n.Uint64()), nil
}

// signedWord reads w as a two's complement int256.
func signedWord(w []byte) *big.Int {
	n := new(uint256.Int).SetBytes(w)
	if n.Sign() >= 0 {
		return n.ToBig()
	}
	return new(big.Int).Neg(new(uint256.Int).Neg(n).ToBig())
}

func readOffset(b []byte, pos int) (int, error) {
	off, err := readLength(b, pos)
	if err != nil {
		return 0, err
	}
	if off+wordSize > len(b) {
		return 0, fmt.Errorf("offset %d exceeds data length", off)
	}
	return off, nil
}
