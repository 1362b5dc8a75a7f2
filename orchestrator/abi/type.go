// Package abi implements the Solidity contract ABI: type parsing, head/tail
// parameter encoding and decoding, function selectors and a small JSON ABI
// loader.
package abi

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind enumerates the supported ABI type families.
type Kind int

const (
	UintKind Kind = iota
	IntKind
	AddressKind
	BoolKind
	FixedBytesKind
	BytesKind
	StringKind
	SliceKind
	ArrayKind
	TupleKind
)

// Type is a parsed ABI type. Size holds the bit width for integers, the byte
// width for bytesN and the length for fixed arrays.
type Type struct {
	Kind       Kind
	Size       int
	Elem       *Type
	Components []*Type
}

// ParseType parses a canonical or tuple(...) type string.
func ParseType(s string) (*Type, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty abi type")
	}

	if strings.HasSuffix(s, "]") {
		open := strings.LastIndex(s, "[")
		if open <= 0 {
			return nil, fmt.Errorf("malformed array type %q", s)
		}
		elem, err := ParseType(s[:open])
		if err != nil {
			return nil, err
		}
		dim := s[open+1 : len(s)-1]
		if dim == "" {
			return &Type{Kind: SliceKind, Elem: elem}, nil
		}
		n, err := strconv.Atoi(dim)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid array length in %q", s)
		}
		return &Type{Kind: ArrayKind, Size: n, Elem: elem}, nil
	}

	if strings.HasPrefix(s, "tuple(") {
		s = s[len("tuple"):]
	}
	if strings.HasPrefix(s, "(") {
		if !strings.HasSuffix(s, ")") {
			return nil, fmt.Errorf("malformed tuple type %q", s)
		}
		parts, err := splitTopLevel(s[1 : len(s)-1])
		if err != nil {
			return nil, err
		}
		comps := make([]*Type, 0, len(parts))
		for _, p := range parts {
			c, err := ParseType(p)
			if err != nil {
				return nil, err
			}
			comps = append(comps, c)
		}
		return &Type{Kind: TupleKind, Components: comps}, nil
	}

	switch {
	case s == "address":
		return &Type{Kind: AddressKind, Size: 20}, nil
	case s == "bool":
		return &Type{Kind: BoolKind}, nil
	case s == "string":
		return &Type{Kind: StringKind}, nil
	case s == "bytes":
		return &Type{Kind: BytesKind}, nil
	case strings.HasPrefix(s, "bytes"):
		n, err := strconv.Atoi(s[len("bytes"):])
		if err != nil || n < 1 || n > 32 {
			return nil, fmt.Errorf("invalid fixed bytes type %q", s)
		}
		return &Type{Kind: FixedBytesKind, Size: n}, nil
	case strings.HasPrefix(s, "uint"):
		bits, err := parseBits(s[len("uint"):])
		if err != nil {
			return nil, fmt.Errorf("invalid type %q: %w", s, err)
		}
		return &Type{Kind: UintKind, Size: bits}, nil
	case strings.HasPrefix(s, "int"):
		bits, err := parseBits(s[len("int"):])
		if err != nil {
			return nil, fmt.Errorf("invalid type %q: %w", s, err)
		}
		return &Type{Kind: IntKind, Size: bits}, nil
	}
	return nil, fmt.Errorf("unsupported abi type %q", s)
}

// MustParseType panics on malformed input. Use only with constant types.
func MustParseType(s string) *Type {
	t, err := ParseType(s)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseTypes parses a list of type strings.
func ParseTypes(types ...string) ([]*Type, error) {
	out := make([]*Type, 0, len(types))
	for _, s := range types {
		t, err := ParseType(s)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func parseBits(s string) (int, error) {
	if s == "" {
		return 256, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 8 || n > 256 || n%8 != 0 {
		return 0, fmt.Errorf("bit size must be a multiple of 8 in [8,256]")
	}
	return n, nil
}

// splitTopLevel splits on commas that are not nested inside parentheses.
func splitTopLevel(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var parts []string
	depth, start := 0, 0
	for i, c := range s {
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced parentheses in %q", s)
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced parentheses in %q", s)
	}
	return append(parts, s[start:]), nil
}

// String returns the canonical form used in function signatures; tuples
// render as (t1,t2).
func (t *Type) String() string {
	switch t.Kind {
	case UintKind:
		return fmt.Sprintf("uint%d", t.Size)
	case IntKind:
		return fmt.Sprintf("int%d", t.Size)
	case AddressKind:
		return "address"
	case BoolKind:
		return "bool"
	case FixedBytesKind:
		return fmt.Sprintf("bytes%d", t.Size)
	case BytesKind:
		return "bytes"
	case StringKind:
		return "string"
	case SliceKind:
		return t.Elem.String() + "[]"
	case ArrayKind:
		return fmt.Sprintf("%s[%d]", t.Elem.String(), t.Size)
	case TupleKind:
		parts := make([]string, len(t.Components))
		for i, c := range t.Components {
			parts[i] = c.String()
		}
		return "(" + strings.Join(parts, ",") + ")"
	}
	return "?"
}

// IsDynamic reports whether the type is encoded through an offset.
func (t *Type) IsDynamic() bool {
	switch t.Kind {
	case BytesKind, StringKind, SliceKind:
		return true
	case ArrayKind:
		return t.Elem.IsDynamic()
	case TupleKind:
		for _, c := range t.Components {
			if c.IsDynamic() {
				return true
			}
		}
	}
	return false
}

// headSize is the number of bytes the type occupies in its enclosing head.
func (t *Type) headSize() int {
	if t.IsDynamic() {
		return wordSize
	}
	switch t.Kind {
	case ArrayKind:
		return t.Size * t.Elem.headSize()
	case TupleKind:
		n := 0
		for _, c := range t.Components {
			n += c.headSize()
		}
		return n
	}
	return wordSize
}
