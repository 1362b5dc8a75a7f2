package abi

import (
	"fmt"
	"strings"

	"github.com/pushchain/chain-orchestrator/orchestrator/codec"
)

// Selector returns the first four bytes of keccak256(signature).
func Selector(signature string) []byte {
	return codec.Keccak256([]byte(signature))[:4]
}

// FunctionSignature renders name(t1,t2,...) in canonical form.
func FunctionSignature(name string, types []*Type) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = t.String()
	}
	return name + "(" + strings.Join(parts, ",") + ")"
}

// ParseSignature splits "transfer(address,uint256)" into a name and types.
func ParseSignature(signature string) (string, []*Type, error) {
	signature = strings.TrimSpace(signature)
	open := strings.Index(signature, "(")
	if open <= 0 || !strings.HasSuffix(signature, ")") {
		return "", nil, fmt.Errorf("malformed function signature %q", signature)
	}
	name := signature[:open]
	parts, err := splitTopLevel(signature[open+1 : len(signature)-1])
	if err != nil {
		return "", nil, err
	}
	types := make([]*Type, 0, len(parts))
	for _, p := range parts {
		t, err := ParseType(p)
		if err != nil {
			return "", nil, err
		}
		types = append(types, t)
	}
	return name, types, nil
}

// EncodeCall builds calldata: selector of the canonical signature followed
// by the encoded arguments.
func EncodeCall(signature string, args ...any) ([]byte, error) {
	name, types, err := ParseSignature(signature)
	if err != nil {
		return nil, err
	}
	body, err := Encode(types, args)
	if err != nil {
		return nil, err
	}
	return append(Selector(FunctionSignature(name, types)), body...), nil
}
