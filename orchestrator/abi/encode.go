package abi

import (
	"fmt"
	"math/big"
	"reflect"
	"strings"

	"github.com/holiman/uint256"

	"github.com/pushchain/chain-orchestrator/orchestrator/codec"
)

const wordSize = 32

// Encode packs values according to types using the standard head/tail
// layout.
func Encode(types []*Type, values []any) ([]byte, error) {
	if len(types) != len(values) {
		return nil, fmt.Errorf("abi: expected %d values, got %d", len(types), len(values))
	}
	return encodeTuple(types, values)
}

// EncodeValues parses type strings and encodes values in one step.
func EncodeValues(typeNames []string, values ...any) ([]byte, error) {
	types, err := ParseTypes(typeNames...)
	if err != nil {
		return nil, err
	}
	return Encode(types, values)
}

func encodeTuple(types []*Type, values []any) ([]byte, error) {
	headLen := 0
	for _, t := range types {
		headLen += t.headSize()
	}

	head := make([]byte, 0, headLen)
	var tail []byte
	for i, t := range types {
		enc, err := encodeValue(t, values[i])
		if err != nil {
			return nil, fmt.Errorf("abi: argument %d (%s): %w", i, t, err)
		}
		if t.IsDynamic() {
			head = append(head, uintWord(big.NewInt(int64(headLen+len(tail))))...)
			tail = append(tail, enc...)
			continue
		}
		head = append(head, enc...)
	}
	return append(head, tail...), nil
}

func encodeValue(t *Type, v any) ([]byte, error) {
	switch t.Kind {
	case UintKind:
		n, err := toBig(v)
		if err != nil {
			return nil, err
		}
		if n.Sign() < 0 || n.BitLen() > t.Size {
			return nil, fmt.Errorf("value %s out of range for uint%d", n, t.Size)
		}
		return uintWord(n), nil

	case IntKind:
		n, err := toBig(v)
		if err != nil {
			return nil, err
		}
		limit := new(big.Int).Lsh(big.NewInt(1), uint(t.Size-1))
		if n.Cmp(limit) >= 0 || n.Cmp(new(big.Int).Neg(limit)) < 0 {
			return nil, fmt.Errorf("value %s out of range for int%d", n, t.Size)
		}
		return uintWord(n), nil

	case AddressKind:
		b, err := toAddressBytes(v)
		if err != nil {
			return nil, err
		}
		return leftPad(b), nil

	case BoolKind:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("expected bool, got %T", v)
		}
		if b {
			return word256(uint256.NewInt(1)), nil
		}
		return word256(new(uint256.Int)), nil

	case FixedBytesKind:
		b, err := toBytes(v)
		if err != nil {
			return nil, err
		}
		if len(b) > t.Size {
			return nil, fmt.Errorf("%d bytes do not fit bytes%d", len(b), t.Size)
		}
		return rightPad(b), nil

	case BytesKind:
		b, err := toBytes(v)
		if err != nil {
			return nil, err
		}
		return encodeDynamicBytes(b), nil

	case StringKind:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		return encodeDynamicBytes([]byte(s)), nil

	case SliceKind:
		items, err := toSlice(v)
		if err != nil {
			return nil, err
		}
		body, err := encodeTuple(repeat(t.Elem, len(items)), items)
		if err != nil {
			return nil, err
		}
		return append(uintWord(big.NewInt(int64(len(items)))), body...), nil

	case ArrayKind:
		items, err := toSlice(v)
		if err != nil {
			return nil, err
		}
		if len(items) != t.Size {
			return nil, fmt.Errorf("expected %d elements, got %d", t.Size, len(items))
		}
		return encodeTuple(repeat(t.Elem, t.Size), items)

	case TupleKind:
		items, err := toSlice(v)
		if err != nil {
			return nil, err
		}
		if len(items) != len(t.Components) {
			return nil, fmt.Errorf("expected %d tuple fields, got %d", len(t.Components), len(items))
		}
		return encodeTuple(t.Components, items)
	}
	return nil, fmt.Errorf("unsupported kind %d", t.Kind)
}

func encodeDynamicBytes(b []byte) []byte {
	out := uintWord(big.NewInt(int64(len(b))))
	if len(b) == 0 {
		return out
	}
	padded := make([]byte, (len(b)+wordSize-1)/wordSize*wordSize)
	copy(padded, b)
	return append(out, padded...)
}

func repeat(t *Type, n int) []*Type {
	out := make([]*Type, n)
	for i := range out {
		out[i] = t
	}
	return out
}

// uintWord packs n into a word. Negative values within 256 bits come out
// as two's complement.
func uintWord(n *big.Int) []byte {
	w, _ := uint256.FromBig(n)
	return word256(w)
}

func word256(w *uint256.Int) []byte {
	b := w.Bytes32()
	return b[:]
}

func leftPad(b []byte) []byte {
	out := make([]byte, wordSize)
	copy(out[wordSize-len(b):], b)
	return out
}

func rightPad(b []byte) []byte {
	out := make([]byte, wordSize)
	copy(out, b)
	return out
}

func toBig(v any) (*big.Int, error) {
	switch n := v.(type) {
	case *big.Int:
		if n == nil {
			return nil, fmt.Errorf("nil integer")
		}
		return n, nil
	case int:
		return big.NewInt(int64(n)), nil
	case int8:
		return big.NewInt(int64(n)), nil
	case int16:
		return big.NewInt(int64(n)), nil
	case int32:
		return big.NewInt(int64(n)), nil
	case int64:
		return big.NewInt(n), nil
	case uint:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint64:
		return new(big.Int).SetUint64(n), nil
	case string:
		s := strings.TrimSpace(n)
		neg := strings.HasPrefix(s, "-")
		if neg {
			s = s[1:]
		}
		parsed, err := codec.ParseBigInt(s)
		if err != nil {
			return nil, err
		}
		if neg {
			parsed.Neg(parsed)
		}
		return parsed, nil
	}
	return nil, fmt.Errorf("expected integer, got %T", v)
}

func toBytes(v any) ([]byte, error) {
	switch b := v.(type) {
	case []byte:
		return b, nil
	case string:
		if !codec.Has0x(b) {
			return nil, fmt.Errorf("byte strings must be 0x-prefixed hex")
		}
		return codec.HexToBytes(b)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Array && rv.Type().Elem().Kind() == reflect.Uint8 {
		out := make([]byte, rv.Len())
		reflect.Copy(reflect.ValueOf(out), rv)
		return out, nil
	}
	return nil, fmt.Errorf("expected bytes, got %T", v)
}

func toAddressBytes(v any) ([]byte, error) {
	if s, ok := v.(string); ok {
		if !codec.ValidateEVMAddress(s, false) {
			return nil, fmt.Errorf("invalid address %q", s)
		}
		return codec.HexToBytes(s)
	}
	b, err := toBytes(v)
	if err != nil {
		return nil, err
	}
	if len(b) != 20 {
		return nil, fmt.Errorf("address must be 20 bytes, got %d", len(b))
	}
	return b, nil
}

func toSlice(v any) ([]any, error) {
	if items, ok := v.([]any); ok {
		return items, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("expected slice, got %T", v)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}
