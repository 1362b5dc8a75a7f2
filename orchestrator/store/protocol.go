package store

import (
	"fmt"
	"strings"
)

// Protocol is the closed set of chain families the orchestrator drives.
type Protocol string

const (
	ProtocolEVM     Protocol = "evm"
	ProtocolSolana  Protocol = "solana"
	ProtocolBitcoin Protocol = "bitcoin"
	ProtocolSui     Protocol = "sui"
	ProtocolXRPL    Protocol = "xrpl"
	ProtocolCardano Protocol = "cardano"
	ProtocolHedera  Protocol = "hedera"
	ProtocolTON     Protocol = "ton"
)

// AllProtocols lists every protocol in registration order.
var AllProtocols = []Protocol{
	ProtocolEVM,
	ProtocolSolana,
	ProtocolBitcoin,
	ProtocolSui,
	ProtocolXRPL,
	ProtocolCardano,
	ProtocolHedera,
	ProtocolTON,
}

// Valid reports whether p is a known protocol.
func (p Protocol) Valid() bool {
	for _, known := range AllProtocols {
		if p == known {
			return true
		}
	}
	return false
}

func (p Protocol) String() string { return string(p) }

// ParseProtocol is case-insensitive and accepts "svm" for Solana.
func ParseProtocol(s string) (Protocol, error) {
	p := Protocol(strings.ToLower(strings.TrimSpace(s)))
	if p == "svm" {
		p = ProtocolSolana
	}
	if !p.Valid() {
		return "", fmt.Errorf("unknown protocol %q", s)
	}
	return p, nil
}

// WalletType governs whether a wallet may hold key material.
type WalletType string

const (
	WalletCustodial WalletType = "custodial"
	WalletShared    WalletType = "shared"
	WalletExternal  WalletType = "external"
)

// ParseWalletType validates a wallet type string. Empty means custodial.
func ParseWalletType(s string) (WalletType, error) {
	switch WalletType(strings.ToLower(s)) {
	case "", WalletCustodial:
		return WalletCustodial, nil
	case WalletShared:
		return WalletShared, nil
	case WalletExternal:
		return WalletExternal, nil
	}
	return "", fmt.Errorf("unknown wallet type %q", s)
}

// TokenType is the token standard analog on each chain.
type TokenType string

const (
	TokenERC20   TokenType = "erc20"
	TokenERC721  TokenType = "erc721"
	TokenERC1155 TokenType = "erc1155"
)
