package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--home", t.TempDir()))
	err := root.Execute()
	return strings.TrimSpace(out.String()), err
}

func TestAbiEncode(t *testing.T) {
	out, err := run(t, "abi", "encode", "transfer(address,uint256)",
		"0x000000000000000000000000000000000000dEaD", "1000")
	require.NoError(t, err)
	assert.Equal(t, "0xa9059cbb"+
		"000000000000000000000000000000000000000000000000000000000000dead"+
		"00000000000000000000000000000000000000000000000000000000000003e8", out)

	out, err = run(t, "abi", "encode", "setFlag(bool)", "true")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out, "0000000000000000000000000000000000000000000000000000000000000001"))

	_, err = run(t, "abi", "encode", "transfer(address,uint256)", "0xdead")
	assert.Error(t, err)
}

func TestAddressCommands(t *testing.T) {
	out, err := run(t, "address", "checksum", "0x2c7536e3605d9c16a7a3d7b1898e529396a65c23")
	require.NoError(t, err)
	assert.Equal(t, "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23", out)

	out, err = run(t, "address", "validate", "evm", "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23")
	require.NoError(t, err)
	assert.Equal(t, "0x2c7536e3605d9c16a7a3d7b1898e529396a65c23", out)

	_, err = run(t, "address", "validate", "evm", "0x1234")
	assert.Error(t, err)

	_, err = run(t, "address", "validate", "dogecoin", "D8abc")
	assert.Error(t, err)
}

func TestInitWritesConfig(t *testing.T) {
	home := t.TempDir()
	root := NewRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"init", "--home", home})
	require.NoError(t, root.Execute())

	_, err := os.Stat(filepath.Join(home, "config", "orchestrator_config.json"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(home, "data"))
	require.NoError(t, err)

	root = NewRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"init", "--home", home})
	assert.Error(t, root.Execute())
}

func TestParseID(t *testing.T) {
	id, err := parseID("12")
	require.NoError(t, err)
	assert.Equal(t, uint(12), id)

	for _, bad := range []string{"0", "-1", "abc", ""} {
		_, err := parseID(bad)
		assert.Error(t, err, bad)
	}
}
