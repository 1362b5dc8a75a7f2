// Package keys generates and derives per-protocol keypairs, maps public keys
// to addresses and encrypts private keys at rest.
package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gagliardetto/solana-go"
	"golang.org/x/crypto/blake2b"

	"github.com/pushchain/chain-orchestrator/orchestrator/codec"
	oerrors "github.com/pushchain/chain-orchestrator/orchestrator/errors"
	"github.com/pushchain/chain-orchestrator/orchestrator/store"
)

// Scheme names a signature curve.
type Scheme string

const (
	SchemeSecp256k1 Scheme = "secp256k1"
	SchemeEd25519   Scheme = "ed25519"
)

// Default BIP-44 style paths for secp256k1 protocols.
const (
	DefaultEVMPath     = "m/44'/60'/0'/0/0"
	DefaultBitcoinPath = "m/84'/0'/0'/0/0"
	DefaultXRPLPath    = "m/44'/144'/0'/0/0"
)

const (
	suiEd25519Flag  byte = 0x00
	xrplEd25519Flag byte = 0xED
	xrplAccountType byte = 0x00
)

// KeyPair holds raw key material. Ed25519 private keys are the 64 byte
// seed||public form; secp256k1 private keys are 32 byte scalars. Public keys
// are uncompressed for EVM and compressed for other secp256k1 protocols.
type KeyPair struct {
	Scheme     Scheme
	PrivateKey []byte
	PublicKey  []byte
}

// PublicKeyHex returns the hex public key without prefix.
func (k *KeyPair) PublicKeyHex() string {
	return hex.EncodeToString(k.PublicKey)
}

// Wipe zeroes the private key in place.
func (k *KeyPair) Wipe() {
	Zero(k.PrivateKey)
}

// Zero overwrites b with zeros.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// Engine generates keys and addresses. The Bitcoin network selects the
// bech32 human readable part.
type Engine struct {
	bitcoinParams *chaincfg.Params
}

// NewEngine returns an engine for the named Bitcoin network: mainnet,
// testnet, signet or regtest.
func NewEngine(bitcoinNetwork string) (*Engine, error) {
	params, err := BitcoinParams(bitcoinNetwork)
	if err != nil {
		return nil, err
	}
	return &Engine{bitcoinParams: params}, nil
}

// BitcoinParams maps a network name to chain parameters.
func BitcoinParams(network string) (*chaincfg.Params, error) {
	switch strings.ToLower(network) {
	case "", "mainnet", "main":
		return &chaincfg.MainNetParams, nil
	case "testnet", "testnet3", "test":
		return &chaincfg.TestNet3Params, nil
	case "signet":
		return &chaincfg.SigNetParams, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	}
	return nil, oerrors.NewConfigError("bitcoin", fmt.Sprintf("unknown bitcoin network %q", network))
}

// BitcoinNetwork returns the engine's Bitcoin parameters.
func (e *Engine) BitcoinNetwork() *chaincfg.Params {
	return e.bitcoinParams
}

// DefaultScheme returns the scheme used when a caller does not pick one.
func DefaultScheme(p store.Protocol) Scheme {
	switch p {
	case store.ProtocolEVM, store.ProtocolBitcoin, store.ProtocolXRPL:
		return SchemeSecp256k1
	}
	return SchemeEd25519
}

// SupportsScheme reports whether the protocol can sign with s. XRPL is the
// only protocol accepting both curves.
func SupportsScheme(p store.Protocol, s Scheme) bool {
	if p == store.ProtocolXRPL {
		return s == SchemeSecp256k1 || s == SchemeEd25519
	}
	return p.Valid() && DefaultScheme(p) == s
}

// Generate creates a fresh keypair with the protocol's default scheme.
func (e *Engine) Generate(p store.Protocol) (*KeyPair, error) {
	return e.GenerateWithScheme(p, DefaultScheme(p))
}

// GenerateWithScheme creates a fresh keypair with an explicit scheme.
func (e *Engine) GenerateWithScheme(p store.Protocol, s Scheme) (*KeyPair, error) {
	if !SupportsScheme(p, s) {
		return nil, oerrors.NewCryptoUnavailableError(p.String(), string(s))
	}
	switch s {
	case SchemeSecp256k1:
		if p == store.ProtocolEVM {
			priv, err := crypto.GenerateKey()
			if err != nil {
				return nil, oerrors.NewInternalError(p.String(), "secp256k1 key generation failed", err)
			}
			return &KeyPair{
				Scheme:     s,
				PrivateKey: crypto.FromECDSA(priv),
				PublicKey:  crypto.FromECDSAPub(&priv.PublicKey),
			}, nil
		}
		priv, err := btcec.NewPrivateKey()
		if err != nil {
			return nil, oerrors.NewInternalError(p.String(), "secp256k1 key generation failed", err)
		}
		return &KeyPair{
			Scheme:     s,
			PrivateKey: priv.Serialize(),
			PublicKey:  priv.PubKey().SerializeCompressed(),
		}, nil

	case SchemeEd25519:
		if p == store.ProtocolSolana {
			priv, err := solana.NewRandomPrivateKey()
			if err != nil {
				return nil, oerrors.NewInternalError(p.String(), "ed25519 key generation failed", err)
			}
			pub := priv.PublicKey()
			return &KeyPair{Scheme: s, PrivateKey: []byte(priv), PublicKey: pub[:]}, nil
		}
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, oerrors.NewInternalError(p.String(), "ed25519 key generation failed", err)
		}
		return &KeyPair{Scheme: s, PrivateKey: priv, PublicKey: pub}, nil
	}
	return nil, oerrors.NewCryptoUnavailableError(p.String(), string(s))
}

// FromPrivateKey rebuilds a keypair from stored private key bytes.
func (e *Engine) FromPrivateKey(p store.Protocol, s Scheme, priv []byte) (*KeyPair, error) {
	if !SupportsScheme(p, s) {
		return nil, oerrors.NewCryptoUnavailableError(p.String(), string(s))
	}
	switch s {
	case SchemeSecp256k1:
		if len(priv) != 32 {
			return nil, oerrors.NewValidationErrorf(p.String(), "secp256k1 private key must be 32 bytes, got %d", len(priv))
		}
		if p == store.ProtocolEVM {
			key, err := crypto.ToECDSA(priv)
			if err != nil {
				return nil, oerrors.NewValidationError(p.String(), err.Error())
			}
			return &KeyPair{Scheme: s, PrivateKey: priv, PublicKey: crypto.FromECDSAPub(&key.PublicKey)}, nil
		}
		_, pub := btcec.PrivKeyFromBytes(priv)
		return &KeyPair{Scheme: s, PrivateKey: priv, PublicKey: pub.SerializeCompressed()}, nil
	case SchemeEd25519:
		if len(priv) != ed25519.PrivateKeySize {
			return nil, oerrors.NewValidationErrorf(p.String(), "ed25519 private key must be 64 bytes, got %d", len(priv))
		}
		pub := ed25519.PrivateKey(priv).Public().(ed25519.PublicKey)
		return &KeyPair{Scheme: s, PrivateKey: priv, PublicKey: pub}, nil
	}
	return nil, oerrors.NewCryptoUnavailableError(p.String(), string(s))
}

// Address maps a public key to the protocol's address format.
func (e *Engine) Address(p store.Protocol, s Scheme, pub []byte) (string, error) {
	switch p {
	case store.ProtocolEVM:
		uncompressed, err := uncompressedSecp(pub)
		if err != nil {
			return "", oerrors.NewValidationError(p.String(), err.Error())
		}
		return codec.BytesToHex(codec.Keccak256(uncompressed[1:])[12:]), nil

	case store.ProtocolSolana:
		if len(pub) != ed25519.PublicKeySize {
			return "", oerrors.NewValidationErrorf(p.String(), "ed25519 public key must be 32 bytes")
		}
		return solana.PublicKeyFromBytes(pub).String(), nil

	case store.ProtocolBitcoin:
		compressed, err := compressedSecp(pub)
		if err != nil {
			return "", oerrors.NewValidationError(p.String(), err.Error())
		}
		return codec.EncodeSegwitAddress(e.bitcoinParams.Bech32HRPSegwit, 0, btcutil.Hash160(compressed))

	case store.ProtocolSui:
		if len(pub) != ed25519.PublicKeySize {
			return "", oerrors.NewValidationErrorf(p.String(), "ed25519 public key must be 32 bytes")
		}
		sum := blake2b.Sum256(append([]byte{suiEd25519Flag}, pub...))
		return codec.BytesToHex(sum[:]), nil

	case store.ProtocolXRPL:
		var material []byte
		switch s {
		case SchemeEd25519:
			if len(pub) != ed25519.PublicKeySize {
				return "", oerrors.NewValidationErrorf(p.String(), "ed25519 public key must be 32 bytes")
			}
			material = append([]byte{xrplEd25519Flag}, pub...)
		default:
			compressed, err := compressedSecp(pub)
			if err != nil {
				return "", oerrors.NewValidationError(p.String(), err.Error())
			}
			material = compressed
		}
		return codec.Base58CheckEncode(xrplAccountType, btcutil.Hash160(material), codec.XRPLAlphabet), nil

	case store.ProtocolCardano:
		// Placeholder: real Cardano addresses are bech32 Shelley payloads.
		return codec.Base58Encode(pub), nil

	case store.ProtocolHedera:
		// Account ids (shard.realm.num) are assigned by the network; the
		// public key alias stands in until the account is materialized.
		return hex.EncodeToString(pub), nil

	case store.ProtocolTON:
		// Placeholder raw form: workchain 0 with the key hash as account id.
		sum := sha256.Sum256(pub)
		return "0:" + hex.EncodeToString(sum[:]), nil
	}
	return "", oerrors.NewUnsupportedError(p.String(), "address derivation")
}

// DeriveFromSeed derives a secp256k1 keypair along a BIP-32 path. Ed25519
// protocols need SLIP-10 and are not implemented.
func (e *Engine) DeriveFromSeed(p store.Protocol, seed []byte, path string) (*KeyPair, error) {
	if DefaultScheme(p) != SchemeSecp256k1 {
		return nil, oerrors.NewNotImplementedError(p.String(), "hd derivation")
	}
	if path == "" {
		path = DefaultPath(p)
	}
	indexes, err := ParsePath(path)
	if err != nil {
		return nil, oerrors.NewValidationError(p.String(), err.Error())
	}

	key, err := hdkeychain.NewMaster(seed, e.bitcoinParams)
	if err != nil {
		return nil, oerrors.NewValidationError(p.String(), err.Error())
	}
	for _, idx := range indexes {
		key, err = key.Derive(idx)
		if err != nil {
			return nil, oerrors.NewInternalError(p.String(), "child derivation failed", err)
		}
	}
	priv, err := key.ECPrivKey()
	if err != nil {
		return nil, oerrors.NewInternalError(p.String(), "extract private key", err)
	}

	pub := priv.PubKey().SerializeCompressed()
	if p == store.ProtocolEVM {
		pub = priv.PubKey().SerializeUncompressed()
	}
	return &KeyPair{Scheme: SchemeSecp256k1, PrivateKey: priv.Serialize(), PublicKey: pub}, nil
}

// DefaultPath returns the derivation path used when none is given.
func DefaultPath(p store.Protocol) string {
	switch p {
	case store.ProtocolEVM:
		return DefaultEVMPath
	case store.ProtocolBitcoin:
		return DefaultBitcoinPath
	case store.ProtocolXRPL:
		return DefaultXRPLPath
	}
	return ""
}

// ParsePath parses m/44'/60'/0'/0/0 into child indexes.
func ParsePath(path string) ([]uint32, error) {
	parts := strings.Split(strings.TrimSpace(path), "/")
	if len(parts) == 0 || parts[0] != "m" {
		return nil, fmt.Errorf("derivation path must start with m: %q", path)
	}
	out := make([]uint32, 0, len(parts)-1)
	for _, part := range parts[1:] {
		hardened := strings.HasSuffix(part, "'") || strings.HasSuffix(part, "h")
		part = strings.TrimRight(part, "'h")
		n, err := strconv.ParseUint(part, 10, 32)
		if err != nil || n >= hdkeychain.HardenedKeyStart {
			return nil, fmt.Errorf("invalid path component %q", part)
		}
		idx := uint32(n)
		if hardened {
			idx += hdkeychain.HardenedKeyStart
		}
		out = append(out, idx)
	}
	return out, nil
}

func uncompressedSecp(pub []byte) ([]byte, error) {
	switch len(pub) {
	case 65:
		return pub, nil
	case 33:
		key, err := crypto.DecompressPubkey(pub)
		if err != nil {
			return nil, err
		}
		return crypto.FromECDSAPub(key), nil
	}
	return nil, fmt.Errorf("secp256k1 public key must be 33 or 65 bytes, got %d", len(pub))
}

func compressedSecp(pub []byte) ([]byte, error) {
	switch len(pub) {
	case 33:
		return pub, nil
	case 65:
		key, err := btcec.ParsePubKey(pub)
		if err != nil {
			return nil, err
		}
		return key.SerializeCompressed(), nil
	}
	return nil, fmt.Errorf("secp256k1 public key must be 33 or 65 bytes, got %d", len(pub))
}
