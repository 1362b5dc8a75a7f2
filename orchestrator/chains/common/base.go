package common

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/pushchain/chain-orchestrator/orchestrator/config"
	"github.com/pushchain/chain-orchestrator/orchestrator/db"
	oerrors "github.com/pushchain/chain-orchestrator/orchestrator/errors"
	"github.com/pushchain/chain-orchestrator/orchestrator/keys"
	"github.com/pushchain/chain-orchestrator/orchestrator/rpcpool"
	"github.com/pushchain/chain-orchestrator/orchestrator/store"
)

// Deps are the collaborators every adapter shares.
type Deps struct {
	Repo   *db.Repository
	Vault  *keys.Vault
	Keys   *keys.Engine
	RPC    rpcpool.Resolver
	Config *config.Config
	Logger zerolog.Logger
}

// AddressNormalizer turns user input into the stored address form.
type AddressNormalizer func(address string) (string, error)

// Base carries wallet creation, key access and the default
// not-implemented answers. Adapters embed it and override what they support.
type Base struct {
	protocol  store.Protocol
	deps      Deps
	normalize AddressNormalizer
	runner    IntentRunner
	logger    zerolog.Logger
}

// NewBase creates the shared adapter core.
func NewBase(protocol store.Protocol, deps Deps, normalize AddressNormalizer, component string) *Base {
	return &Base{
		protocol:  protocol,
		deps:      deps,
		normalize: normalize,
		logger:    deps.Logger.With().Str("component", component).Logger(),
	}
}

// Protocol returns the protocol this adapter serves
func (b *Base) Protocol() store.Protocol {
	return b.protocol
}

// Logger returns the adapter's component logger.
func (b *Base) Logger() *zerolog.Logger {
	return &b.logger
}

// Deps exposes the shared collaborators.
func (b *Base) Deps() Deps {
	return b.deps
}

// ProtocolConfig returns this protocol's config section.
func (b *Base) ProtocolConfig() *config.ProtocolConfig {
	if b.deps.Config == nil {
		return &config.ProtocolConfig{}
	}
	return b.deps.Config.GetProtocolConfig(string(b.protocol))
}

// SetIntentRunner wires the pipeline used by intent operations.
func (b *Base) SetIntentRunner(r IntentRunner) {
	b.runner = r
}

// RunIntent persists tx and drives it through prepare and submit.
func (b *Base) RunIntent(ctx context.Context, tx *store.Transaction) (string, error) {
	if b.runner == nil {
		return "", oerrors.NewConfigError(b.protocol.String(), "no intent runner configured")
	}
	return b.runner.RunNow(ctx, tx)
}

// CreateWallet produces key material, encrypts it and stores the wallet.
func (b *Base) CreateWallet(ctx context.Context, attrs WalletAttrs, owner *uint, chain *store.Blockchain) (*store.Wallet, error) {
	walletType, err := store.ParseWalletType(string(attrs.WalletType))
	if err != nil {
		return nil, oerrors.NewValidationError(b.protocol.String(), err.Error())
	}

	wallet := &store.Wallet{
		Protocol:   b.protocol,
		WalletType: walletType,
		IsActive:   true,
		UserID:     owner,
	}
	if chain != nil && chain.ID != 0 {
		id := chain.ID
		wallet.BlockchainID = &id
	}

	if walletType == store.WalletExternal {
		address, err := b.normalize(attrs.Address)
		if err != nil {
			return nil, err
		}
		wallet.Address = address
	} else {
		if err := b.fillKey(wallet, attrs); err != nil {
			return nil, err
		}
	}

	if err := b.deps.Repo.CreateWallet(ctx, wallet); err != nil {
		return nil, oerrors.NewDatabaseError(b.protocol.String(), "create wallet", err)
	}

	b.logger.Info().
		Uint("wallet_id", wallet.ID).
		Str("address", wallet.Address).
		Str("wallet_type", string(wallet.WalletType)).
		Msg("wallet created")
	return wallet, nil
}

func (b *Base) fillKey(wallet *store.Wallet, attrs WalletAttrs) error {
	var (
		kp  *keys.KeyPair
		err error
	)
	switch {
	case len(attrs.Seed) > 0:
		path := attrs.DerivationPath
		if path == "" {
			path = keys.DefaultPath(b.protocol)
		}
		kp, err = b.deps.Keys.DeriveFromSeed(b.protocol, attrs.Seed, path)
		wallet.DerivationPath = path
	case attrs.KeyScheme != "":
		kp, err = b.deps.Keys.GenerateWithScheme(b.protocol, attrs.KeyScheme)
	default:
		kp, err = b.deps.Keys.Generate(b.protocol)
	}
	if err != nil {
		return err
	}
	defer kp.Wipe()

	address, err := b.deps.Keys.Address(b.protocol, kp.Scheme, kp.PublicKey)
	if err != nil {
		return err
	}
	envelope, err := b.deps.Vault.EncryptKey(kp.PrivateKey)
	if err != nil {
		return oerrors.NewInternalError(b.protocol.String(), "encrypt key", err)
	}

	wallet.Address = address
	wallet.Key = envelope
	wallet.PublicKey = kp.PublicKeyHex()
	wallet.KeyScheme = string(kp.Scheme)
	return nil
}

// KeyPair decrypts the wallet key. Callers must Wipe the result.
func (b *Base) KeyPair(wallet *store.Wallet) (*keys.KeyPair, error) {
	if wallet.WalletType == store.WalletExternal || !wallet.HasKey() {
		return nil, oerrors.NewValidationErrorf(b.protocol.String(), "wallet %d has no signing key", wallet.ID)
	}
	priv, err := b.deps.Vault.DecryptKey(wallet.Key)
	if err != nil {
		return nil, oerrors.NewInternalError(b.protocol.String(), "decrypt wallet key", err)
	}

	scheme := keys.Scheme(wallet.KeyScheme)
	if scheme == "" {
		scheme = keys.DefaultScheme(b.protocol)
	}
	kp, err := b.deps.Keys.FromPrivateKey(b.protocol, scheme, priv)
	if err != nil {
		keys.Zero(priv)
		return nil, err
	}
	return kp, nil
}

// TouchWallet records a signing use; failures are logged only.
func (b *Base) TouchWallet(ctx context.Context, wallet *store.Wallet) {
	now := time.Now()
	if err := b.deps.Repo.TouchWallet(ctx, wallet.ID, now); err != nil {
		b.logger.Warn().Err(err).Uint("wallet_id", wallet.ID).Msg("failed to record wallet use")
		return
	}
	wallet.LastUsedAt = &now
}

// Chain returns the network a wallet is bound to, the protocol default, or
// nil when neither exists.
func (b *Base) Chain(ctx context.Context, wallet *store.Wallet) (*store.Blockchain, error) {
	if wallet != nil && wallet.BlockchainID != nil {
		chain, err := b.deps.Repo.GetBlockchain(ctx, *wallet.BlockchainID)
		if err != nil {
			return nil, oerrors.NewDatabaseError(b.protocol.String(), "load blockchain", err)
		}
		return chain, nil
	}
	chain, err := b.deps.Repo.DefaultBlockchain(ctx, b.protocol)
	if err != nil {
		if oerrors.Is(err, db.ErrNotFound) {
			return nil, nil
		}
		return nil, oerrors.NewDatabaseError(b.protocol.String(), "load default blockchain", err)
	}
	return chain, nil
}

// Caller resolves the RPC caller for a wallet's network.
func (b *Base) Caller(ctx context.Context, wallet *store.Wallet) (rpcpool.Caller, error) {
	chain, err := b.Chain(ctx, wallet)
	if err != nil {
		return nil, err
	}
	return b.deps.RPC.Resolve(ctx, b.protocol, chain)
}

// TxCaller resolves the RPC caller for the network tx is pinned to. An
// unpinned tx falls back to its wallet's network, then the default.
func (b *Base) TxCaller(ctx context.Context, tx *store.Transaction, wallet *store.Wallet) (rpcpool.Caller, error) {
	if tx != nil && tx.BlockchainID != nil {
		wallet = &store.Wallet{BlockchainID: tx.BlockchainID}
	}
	return b.Caller(ctx, wallet)
}

// NormalizeAddress delegates to the adapter's normalizer.
func (b *Base) NormalizeAddress(address string) (string, error) {
	return b.normalize(address)
}

// ValidateAddress reports whether NormalizeAddress accepts address.
func (b *Base) ValidateAddress(address string) bool {
	_, err := b.normalize(address)
	return err == nil
}

func (b *Base) GetNativeBalance(context.Context, *store.Wallet) (string, error) {
	return "", oerrors.NewNotImplementedError(b.protocol.String(), "getNativeBalance")
}

func (b *Base) TransferNative(context.Context, *store.Wallet, string, string) (string, error) {
	return "", oerrors.NewNotImplementedError(b.protocol.String(), "transferNative")
}

func (b *Base) GetTokenBalance(context.Context, *store.Token, *store.Wallet) (string, error) {
	return "", oerrors.NewNotImplementedError(b.protocol.String(), "getTokenBalance")
}

func (b *Base) Allowance(context.Context, *store.Token, *store.Wallet, string) (string, error) {
	return "", oerrors.NewUnsupportedError(b.protocol.String(), "allowance")
}

func (b *Base) TransferToken(context.Context, *store.Token, *store.Wallet, string, string) (string, error) {
	return "", oerrors.NewNotImplementedError(b.protocol.String(), "transferToken")
}

func (b *Base) ApproveToken(context.Context, *store.Token, *store.Wallet, string, string) (string, error) {
	return "", oerrors.NewUnsupportedError(b.protocol.String(), "approveToken")
}

func (b *Base) RevokeToken(context.Context, *store.Token, *store.Wallet, string) (string, error) {
	return "", oerrors.NewUnsupportedError(b.protocol.String(), "revokeToken")
}
