package abi

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Argument is one input or output entry of a JSON ABI.
type Argument struct {
	Name         string     `json:"name"`
	Type         string     `json:"type"`
	InternalType string     `json:"internalType,omitempty"`
	Components   []Argument `json:"components,omitempty"`
	Indexed      bool       `json:"indexed,omitempty"`
}

// Method is a contract function.
type Method struct {
	Name            string
	StateMutability string
	Inputs          []*Type
	Outputs         []*Type
}

// Signature returns the canonical function signature.
func (m Method) Signature() string {
	return FunctionSignature(m.Name, m.Inputs)
}

// ID returns the four byte selector.
func (m Method) ID() []byte {
	return Selector(m.Signature())
}

// Contract is the callable surface of a JSON ABI. Overloaded functions are
// keyed by their full signature in addition to the first declaration's name.
type Contract struct {
	Methods map[string]Method
}

type entry struct {
	Type            string     `json:"type"`
	Name            string     `json:"name"`
	Inputs          []Argument `json:"inputs"`
	Outputs         []Argument `json:"outputs"`
	StateMutability string     `json:"stateMutability"`
}

// ParseJSON loads the function entries of a JSON ABI document.
func ParseJSON(data []byte) (*Contract, error) {
	var entries []entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("abi: invalid json: %w", err)
	}
	c := &Contract{Methods: make(map[string]Method)}
	for _, e := range entries {
		if e.Type != "" && e.Type != "function" {
			continue
		}
		inputs, err := argumentTypes(e.Inputs)
		if err != nil {
			return nil, fmt.Errorf("abi: %s inputs: %w", e.Name, err)
		}
		outputs, err := argumentTypes(e.Outputs)
		if err != nil {
			return nil, fmt.Errorf("abi: %s outputs: %w", e.Name, err)
		}
		m := Method{Name: e.Name, StateMutability: e.StateMutability, Inputs: inputs, Outputs: outputs}
		if _, exists := c.Methods[e.Name]; !exists {
			c.Methods[e.Name] = m
		}
		c.Methods[m.Signature()] = m
	}
	return c, nil
}

func argumentTypes(args []Argument) ([]*Type, error) {
	out := make([]*Type, 0, len(args))
	for _, a := range args {
		s, err := a.typeString()
		if err != nil {
			return nil, err
		}
		t, err := ParseType(s)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// typeString expands "tuple" / "tuple[]" entries using their components.
func (a Argument) typeString() (string, error) {
	if !strings.HasPrefix(a.Type, "tuple") {
		return a.Type, nil
	}
	parts := make([]string, 0, len(a.Components))
	for _, c := range a.Components {
		s, err := c.typeString()
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return "(" + strings.Join(parts, ",") + ")" + strings.TrimPrefix(a.Type, "tuple"), nil
}

// Method looks a function up by name or full signature.
func (c *Contract) Method(name string) (Method, error) {
	m, ok := c.Methods[name]
	if !ok {
		return Method{}, fmt.Errorf("abi: method %q not found", name)
	}
	return m, nil
}

// Pack encodes a call to the named method.
func (c *Contract) Pack(name string, args ...any) ([]byte, error) {
	m, err := c.Method(name)
	if err != nil {
		return nil, err
	}
	body, err := Encode(m.Inputs, args)
	if err != nil {
		return nil, err
	}
	return append(m.ID(), body...), nil
}

// Unpack decodes the return data of the named method.
func (c *Contract) Unpack(name string, output []byte) ([]any, error) {
	m, err := c.Method(name)
	if err != nil {
		return nil, err
	}
	return Decode(m.Outputs, output)
}
