// Package keyrelease discloses a wallet's private key to its owner. Every
// release is audited and rate limited, and a released custodial wallet is
// downgraded to shared since the key now exists outside the vault.
package keyrelease

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/rs/zerolog"

	"github.com/pushchain/chain-orchestrator/orchestrator/config"
	"github.com/pushchain/chain-orchestrator/orchestrator/db"
	oerrors "github.com/pushchain/chain-orchestrator/orchestrator/errors"
	"github.com/pushchain/chain-orchestrator/orchestrator/keys"
	"github.com/pushchain/chain-orchestrator/orchestrator/store"
)

const (
	defaultMaxReleases = 3
	defaultWindow      = 5 * time.Minute
)

// Request identifies the wallet, the requesting user and the audit context.
type Request struct {
	WalletID        uint
	UserID          uint
	IP              string
	UserAgent       string
	SecurityContext string
}

// Result carries the plaintext key. Callers must not log it.
type Result struct {
	WalletID   uint             `json:"wallet_id"`
	Address    string           `json:"address"`
	Protocol   store.Protocol   `json:"protocol"`
	WalletType store.WalletType `json:"wallet_type"`
	PrivateKey string           `json:"private_key"` // hex
}

// Service performs audited key releases.
type Service struct {
	repo        *db.Repository
	vault       *keys.Vault
	maxReleases int
	window      time.Duration
	now         func() time.Time
	logger      zerolog.Logger
}

// NewService creates the release service. Zero config values select 3
// releases per 5 minutes.
func NewService(repo *db.Repository, vault *keys.Vault, cfg config.KeyReleaseConfig, logger zerolog.Logger) *Service {
	s := &Service{
		repo:        repo,
		vault:       vault,
		maxReleases: cfg.MaxReleases,
		window:      cfg.Window(),
		now:         time.Now,
		logger:      logger.With().Str("component", "key_release").Logger(),
	}
	if s.maxReleases <= 0 {
		s.maxReleases = defaultMaxReleases
	}
	if s.window <= 0 {
		s.window = defaultWindow
	}
	return s
}

// Release verifies ownership and limits, records the audit row and returns
// the decrypted key.
func (s *Service) Release(ctx context.Context, req Request) (*Result, error) {
	wallet, err := s.repo.GetWallet(ctx, req.WalletID)
	if err != nil {
		if oerrors.Is(err, db.ErrNotFound) {
			return nil, oerrors.NewValidationErrorf("", "wallet %d not found", req.WalletID)
		}
		return nil, oerrors.NewDatabaseError("", "load wallet", err)
	}
	chain := wallet.Protocol.String()

	if wallet.UserID == nil || *wallet.UserID != req.UserID {
		s.logger.Warn().Uint("wallet_id", wallet.ID).Uint("user_id", req.UserID).Str("ip", req.IP).Msg("key release denied: not owner")
		return nil, oerrors.NewForbiddenError("wallet is not owned by the requesting user").WithContext("wallet_id", wallet.ID)
	}
	if !wallet.IsActive {
		return nil, oerrors.NewValidationError(chain, "wallet is inactive")
	}
	if wallet.WalletType == store.WalletExternal || !wallet.HasKey() {
		return nil, oerrors.NewValidationError(chain, "wallet holds no private key")
	}

	priv, err := s.vault.DecryptKey(wallet.Key)
	if err != nil {
		return nil, oerrors.NewInternalError(chain, "decrypt wallet key", err)
	}
	defer keys.Zero(priv)

	audit := &store.KeyRelease{
		WalletID:        wallet.ID,
		UserID:          req.UserID,
		IP:              req.IP,
		UserAgent:       req.UserAgent,
		SecurityContext: req.SecurityContext,
		CreatedAt:       s.now(),
	}
	err = s.repo.ReserveKeyRelease(ctx, audit, s.now().Add(-s.window), int64(s.maxReleases))
	if oerrors.Is(err, db.ErrKeyReleaseLimit) {
		return nil, oerrors.NewRateLimitedError("too many key releases").
			WithContext("wallet_id", wallet.ID).
			WithContext("window", s.window.String())
	}
	if err != nil {
		return nil, oerrors.NewDatabaseError(chain, "record key release", err)
	}

	if wallet.WalletType == store.WalletCustodial {
		wallet.WalletType = store.WalletShared
		if err := s.repo.UpdateWallet(ctx, wallet); err != nil {
			return nil, oerrors.NewDatabaseError(chain, "downgrade wallet", err)
		}
	}

	s.logger.Info().
		Uint("wallet_id", wallet.ID).
		Uint("user_id", req.UserID).
		Str("ip", req.IP).
		Str("wallet_type", string(wallet.WalletType)).
		Msg("private key released")

	return &Result{
		WalletID:   wallet.ID,
		Address:    wallet.Address,
		Protocol:   wallet.Protocol,
		WalletType: wallet.WalletType,
		PrivateKey: hex.EncodeToString(priv),
	}, nil
}
