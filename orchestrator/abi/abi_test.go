package abi

import (
	"encoding/hex"
	"math/big"
	"strings"
	"testing"

	gethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func words(ws ...string) string {
	var b strings.Builder
	for _, w := range ws {
		b.WriteString(strings.Repeat("0", 64-len(w)))
		b.WriteString(w)
	}
	return b.String()
}

func rightWord(w string) string {
	return w + strings.Repeat("0", 64-len(w))
}

// normalize turns big integers into strings so decoded values compare by
// value rather than by internal representation.
func normalize(v any) any {
	switch x := v.(type) {
	case *big.Int:
		return x.String()
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalize(e)
		}
		return out
	}
	return v
}

func TestParseType(t *testing.T) {
	tests := []struct {
		in        string
		canonical string
		dynamic   bool
	}{
		{"uint", "uint256", false},
		{"int8", "int8", false},
		{"address", "address", false},
		{"bytes32", "bytes32", false},
		{"bytes", "bytes", true},
		{"string", "string", true},
		{"uint256[]", "uint256[]", true},
		{"uint256[3]", "uint256[3]", false},
		{"string[2]", "string[2]", true},
		{"tuple(uint256,address)", "(uint256,address)", false},
		{"(uint256,(bool,string))[]", "(uint256,(bool,string))[]", true},
		{"(uint8,bytes4)[2][]", "(uint8,bytes4)[2][]", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			typ, err := ParseType(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.canonical, typ.String())
			assert.Equal(t, tt.dynamic, typ.IsDynamic())
		})
	}

	for _, bad := range []string{"", "uint7", "uint264", "bytes33", "bytes0", "foo", "uint256[x]", "(uint256", "uint256[0]"} {
		_, err := ParseType(bad)
		assert.Error(t, err, bad)
	}
}

func TestSelector(t *testing.T) {
	assert.Equal(t, "a9059cbb", hex.EncodeToString(Selector("transfer(address,uint256)")))
	assert.Equal(t, "095ea7b3", hex.EncodeToString(Selector("approve(address,uint256)")))
	assert.Equal(t, "70a08231", hex.EncodeToString(Selector("balanceOf(address)")))

	types, err := ParseTypes("(uint256,string)[]", "bool")
	require.NoError(t, err)
	assert.Equal(t, "submit((uint256,string)[],bool)", FunctionSignature("submit", types))
}

func TestEncodeCallStaticAndDynamic(t *testing.T) {
	data, err := EncodeCall("f(uint256,uint32[],bytes10,bytes)",
		big.NewInt(0x123),
		[]any{big.NewInt(0x456), big.NewInt(0x789)},
		[]byte("1234567890"),
		[]byte("Hello, world!"),
	)
	require.NoError(t, err)

	want := "8be65246" +
		words("123", "80") +
		rightWord(hex.EncodeToString([]byte("1234567890"))) +
		words("e0", "2", "456", "789", "d") +
		rightWord(hex.EncodeToString([]byte("Hello, world!")))
	assert.Equal(t, want, hex.EncodeToString(data))
}

func TestNestedDynamicOffsetsAreRelative(t *testing.T) {
	data, err := EncodeCall("g(uint256[][],string[])",
		[]any{
			[]any{big.NewInt(1), big.NewInt(2)},
			[]any{big.NewInt(3)},
		},
		[]any{"one", "two", "three"},
	)
	require.NoError(t, err)

	want := "2289b18c" +
		words("40", "140", "2", "40", "a0", "2", "1", "2", "1", "3",
			"3", "60", "a0", "e0", "3") +
		rightWord(hex.EncodeToString([]byte("one"))) +
		words("3") +
		rightWord(hex.EncodeToString([]byte("two"))) +
		words("5") +
		rightWord(hex.EncodeToString([]byte("three")))
	assert.Equal(t, want, hex.EncodeToString(data))

	_, types, err := ParseSignature("g(uint256[][],string[])")
	require.NoError(t, err)
	out, err := Decode(types, data[4:])
	require.NoError(t, err)
	assert.Equal(t, []any{
		[]any{[]any{"1", "2"}, []any{"3"}},
		[]any{"one", "two", "three"},
	}, normalize(out))
}

func TestRoundTrip(t *testing.T) {
	addr := "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	tests := []struct {
		name   string
		types  []string
		values []any
	}{
		{
			name:   "static scalars",
			types:  []string{"uint8", "int256", "address", "bool", "bytes4"},
			values: []any{big.NewInt(255), big.NewInt(-42), addr, true, []byte{1, 2, 3, 4}},
		},
		{
			name:   "dynamic scalars",
			types:  []string{"string", "bytes", "string"},
			values: []any{"", []byte{0xde, 0xad, 0xbe, 0xef}, strings.Repeat("x", 70)},
		},
		{
			name:   "static tuple inline",
			types:  []string{"(uint256,address)", "uint64"},
			values: []any{[]any{big.NewInt(7), addr}, big.NewInt(9)},
		},
		{
			name:  "nested dynamic tuples and arrays",
			types: []string{"(uint256,string,(bool,bytes)[])[]", "int16[2]"},
			values: []any{
				[]any{
					[]any{big.NewInt(1), "first", []any{
						[]any{true, []byte{0x01}},
						[]any{false, []byte{0x02, 0x03}},
					}},
					[]any{big.NewInt(2), "second", []any{}},
				},
				[]any{big.NewInt(-1), big.NewInt(300)},
			},
		},
		{
			name:   "fixed array of dynamic",
			types:  []string{"string[2]", "uint256"},
			values: []any{[]any{"a", "bc"}, big.NewInt(5)},
		},
		{
			name:  "int256 bounds",
			types: []string{"int256", "int256"},
			values: []any{
				new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 255)),
				new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(1)),
			},
		},
		{
			name:   "max uint256",
			types:  []string{"uint256"},
			values: []any{new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			types, err := ParseTypes(tt.types...)
			require.NoError(t, err)
			enc, err := Encode(types, tt.values)
			require.NoError(t, err)
			require.Zero(t, len(enc)%32)

			dec, err := Decode(types, enc)
			require.NoError(t, err)
			assert.Equal(t, normalize(tt.values), normalize(dec))
		})
	}
}

func TestEncodeMatchesGethOracle(t *testing.T) {
	mustType := func(s string) gethabi.Type {
		typ, err := gethabi.NewType(s, "", nil)
		require.NoError(t, err)
		return typ
	}
	args := gethabi.Arguments{
		{Type: mustType("uint256")},
		{Type: mustType("address")},
		{Type: mustType("string")},
		{Type: mustType("bytes")},
		{Type: mustType("uint256[]")},
		{Type: mustType("int32")},
	}
	to := common.HexToAddress("0x000000000000000000000000000000000000dEaD")
	want, err := args.Pack(big.NewInt(1000), to, "hello", []byte{9, 8, 7},
		[]*big.Int{big.NewInt(1), big.NewInt(2)}, int32(-5))
	require.NoError(t, err)

	got, err := EncodeValues([]string{"uint256", "address", "string", "bytes", "uint256[]", "int32"},
		"1000", to.Hex(), "hello", "0x090807", []any{1, 2}, -5)
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(want), hex.EncodeToString(got))
}

func TestEncodeErrors(t *testing.T) {
	_, err := EncodeValues([]string{"uint8"}, 256)
	assert.Error(t, err)
	_, err = EncodeValues([]string{"int8"}, -129)
	assert.Error(t, err)
	_, err = EncodeValues([]string{"address"}, "0x1234")
	assert.Error(t, err)
	_, err = EncodeValues([]string{"bytes2"}, []byte{1, 2, 3})
	assert.Error(t, err)
	_, err = EncodeValues([]string{"uint256[2]"}, []any{1})
	assert.Error(t, err)
	_, err = EncodeValues([]string{"bool"}, "true")
	assert.Error(t, err)
	_, err = Encode([]*Type{MustParseType("uint256")}, nil)
	assert.Error(t, err)
}

func TestDecodeRejectsMalformedData(t *testing.T) {
	types, err := ParseTypes("string")
	require.NoError(t, err)

	_, err = Decode(types, nil)
	assert.Error(t, err)

	_, err = Decode(types, mustHex(t, words("ffff")))
	assert.Error(t, err)

	_, err = Decode(types, mustHex(t, words("20", "ffff")))
	assert.Error(t, err)

	boolType, _ := ParseTypes("bool")
	_, err = Decode(boolType, mustHex(t, words("2")))
	assert.Error(t, err)
}

func TestJSONContract(t *testing.T) {
	const erc20JSON = `[
		{"type":"function","name":"transfer","stateMutability":"nonpayable",
		 "inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],
		 "outputs":[{"name":"","type":"bool"}]},
		{"type":"function","name":"submit","stateMutability":"nonpayable",
		 "inputs":[{"name":"orders","type":"tuple[]","components":[
			{"name":"id","type":"uint256"},{"name":"memo","type":"string"}]}],
		 "outputs":[]},
		{"type":"event","name":"Transfer","inputs":[]}
	]`
	c, err := ParseJSON([]byte(erc20JSON))
	require.NoError(t, err)

	m, err := c.Method("submit")
	require.NoError(t, err)
	assert.Equal(t, "submit((uint256,string)[])", m.Signature())

	data, err := c.Pack("transfer", "0x000000000000000000000000000000000000dEaD", big.NewInt(5))
	require.NoError(t, err)
	direct, err := ERC20Transfer("0x000000000000000000000000000000000000dEaD", big.NewInt(5))
	require.NoError(t, err)
	assert.Equal(t, direct, data)

	out, err := c.Unpack("transfer", mustHex(t, words("1")))
	require.NoError(t, err)
	assert.Equal(t, []any{true}, out)

	_, err = c.Method("Transfer")
	assert.Error(t, err)
}

func TestDecodeUint256(t *testing.T) {
	n, err := DecodeUint256(mustHex(t, words("3e8")))
	require.NoError(t, err)
	assert.Equal(t, "1000", n.String())

	n, err = DecodeUint256(nil)
	require.NoError(t, err)
	assert.Equal(t, "0", n.String())
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestNegativeIntWords(t *testing.T) {
	types, err := ParseTypes("int8", "int256")
	require.NoError(t, err)
	enc, err := Encode(types, []any{big.NewInt(-1), big.NewInt(-2)})
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("f", 64)+strings.Repeat("f", 63)+"e", hex.EncodeToString(enc))

	_, err = Decode(types[:1], enc[32:])
	assert.NoError(t, err, "-2 fits int8")
	_, err = Decode(types[:1], leftPadded(0x80))
	assert.Error(t, err, "128 does not fit int8")
}

func leftPadded(b byte) []byte {
	out := make([]byte, 32)
	out[31] = b
	return out
}
