package db

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/pushchain/chain-orchestrator/orchestrator/store"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")

	// ErrStaleStatus is returned when a compare-and-set status update finds
	// the row in a different state than expected.
	ErrStaleStatus = errors.New("transaction status changed concurrently")

	// ErrIllegalTransition is returned for transitions the state machine forbids.
	ErrIllegalTransition = errors.New("illegal status transition")

	// ErrWalletInUse is returned when deleting a wallet that transactions reference.
	ErrWalletInUse = errors.New("wallet is referenced by transactions")

	// ErrKeyReleaseLimit is returned when a wallet's release quota for a user is used up.
	ErrKeyReleaseLimit = errors.New("key release limit reached")
)

// Repository is the persistence boundary used by adapters and the pipeline.
type Repository struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewRepository creates a repository on an open database.
func NewRepository(db *gorm.DB, logger zerolog.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger.With().Str("component", "repository").Logger(),
	}
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.Wrapf(ErrNotFound, format, args...)
	}
	return errors.Wrapf(err, format, args...)
}

// --- wallets

// CreateWallet inserts a wallet. External wallets carrying a key are rejected.
func (r *Repository) CreateWallet(ctx context.Context, w *store.Wallet) error {
	if err := r.db.WithContext(ctx).Create(w).Error; err != nil {
		return errors.Wrap(err, "failed to create wallet")
	}
	return nil
}

// GetWallet loads a wallet by id.
func (r *Repository) GetWallet(ctx context.Context, id uint) (*store.Wallet, error) {
	var w store.Wallet
	if err := r.db.WithContext(ctx).First(&w, id).Error; err != nil {
		return nil, notFound(err, "wallet %d", id)
	}
	return &w, nil
}

// FindWalletByAddress looks a wallet up by its normalized address.
func (r *Repository) FindWalletByAddress(ctx context.Context, protocol store.Protocol, address string) (*store.Wallet, error) {
	var w store.Wallet
	err := r.db.WithContext(ctx).
		Where("protocol = ? AND address = ?", protocol, address).
		First(&w).Error
	if err != nil {
		return nil, notFound(err, "wallet %s/%s", protocol, address)
	}
	return &w, nil
}

// UpdateWallet saves every column of w.
func (r *Repository) UpdateWallet(ctx context.Context, w *store.Wallet) error {
	if err := r.db.WithContext(ctx).Save(w).Error; err != nil {
		return errors.Wrapf(err, "failed to update wallet %d", w.ID)
	}
	return nil
}

// TouchWallet records a signing use.
func (r *Repository) TouchWallet(ctx context.Context, id uint, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&store.Wallet{}).
		Where("id = ?", id).
		Update("last_used_at", at)
	if result.Error != nil {
		return errors.Wrapf(result.Error, "failed to touch wallet %d", id)
	}
	return nil
}

// DeleteWallet soft-deletes a wallet that no transaction references.
func (r *Repository) DeleteWallet(ctx context.Context, id uint) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&store.Transaction{}).
		Where("wallet_id = ?", id).Count(&count).Error; err != nil {
		return errors.Wrap(err, "failed to count wallet transactions")
	}
	if count > 0 {
		return errors.Wrapf(ErrWalletInUse, "wallet %d has %d transactions", id, count)
	}
	if err := r.db.WithContext(ctx).Delete(&store.Wallet{}, id).Error; err != nil {
		return errors.Wrapf(err, "failed to delete wallet %d", id)
	}
	return nil
}

// --- transactions

// CreateTransaction inserts a transaction in pending state.
func (r *Repository) CreateTransaction(ctx context.Context, tx *store.Transaction) error {
	tx.Status = store.StatusPending
	if err := r.db.WithContext(ctx).Create(tx).Error; err != nil {
		return errors.Wrap(err, "failed to create transaction")
	}
	return nil
}

// GetTransaction loads a transaction by id.
func (r *Repository) GetTransaction(ctx context.Context, id uint) (*store.Transaction, error) {
	var tx store.Transaction
	if err := r.db.WithContext(ctx).First(&tx, id).Error; err != nil {
		return nil, notFound(err, "transaction %d", id)
	}
	return &tx, nil
}

// SaveTransaction writes staging fields without touching status.
func (r *Repository) SaveTransaction(ctx context.Context, tx *store.Transaction) error {
	result := r.db.WithContext(ctx).Model(&store.Transaction{}).
		Where("id = ? AND status = ?", tx.ID, tx.Status).
		Select("*").Omit("id", "created_at", "deleted_at").
		Updates(tx)
	if result.Error != nil {
		return errors.Wrapf(result.Error, "failed to save transaction %d", tx.ID)
	}
	if result.RowsAffected == 0 {
		return errors.Wrapf(ErrStaleStatus, "transaction %d", tx.ID)
	}
	return nil
}

// TransitionStatus moves tx to the next status and persists every field of
// tx in the same statement, guarded by the status it was read in.
func (r *Repository) TransitionStatus(ctx context.Context, tx *store.Transaction, to store.TxStatus) error {
	from := tx.Status
	if !store.CanTransition(from, to) {
		return errors.Wrapf(ErrIllegalTransition, "%s -> %s", from, to)
	}

	tx.Status = to
	result := r.db.WithContext(ctx).Model(&store.Transaction{}).
		Where("id = ? AND status = ?", tx.ID, from).
		Select("*").Omit("id", "created_at", "deleted_at").
		Updates(tx)
	if result.Error != nil {
		tx.Status = from
		return errors.Wrapf(result.Error, "failed to transition transaction %d", tx.ID)
	}
	if result.RowsAffected == 0 {
		tx.Status = from
		return errors.Wrapf(ErrStaleStatus, "transaction %d expected %s", tx.ID, from)
	}

	r.logger.Debug().
		Uint("tx_id", tx.ID).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("transaction status changed")
	return nil
}

// ListTransactionsByStatus returns transactions in the given status, oldest first.
func (r *Repository) ListTransactionsByStatus(ctx context.Context, status store.TxStatus, limit int) ([]store.Transaction, error) {
	var txs []store.Transaction
	query := r.db.WithContext(ctx).Where("status = ?", status).Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&txs).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to query transactions with status %s", status)
	}
	return txs, nil
}

// --- networks, contracts, tokens

// CreateBlockchain inserts a network descriptor.
func (r *Repository) CreateBlockchain(ctx context.Context, b *store.Blockchain) error {
	if err := r.db.WithContext(ctx).Create(b).Error; err != nil {
		return errors.Wrap(err, "failed to create blockchain")
	}
	return nil
}

// GetBlockchain loads a network descriptor by id.
func (r *Repository) GetBlockchain(ctx context.Context, id uint) (*store.Blockchain, error) {
	var b store.Blockchain
	if err := r.db.WithContext(ctx).First(&b, id).Error; err != nil {
		return nil, notFound(err, "blockchain %d", id)
	}
	return &b, nil
}

// DefaultBlockchain returns the protocol's default network.
func (r *Repository) DefaultBlockchain(ctx context.Context, protocol store.Protocol) (*store.Blockchain, error) {
	var b store.Blockchain
	err := r.db.WithContext(ctx).
		Where("protocol = ? AND is_default = ?", protocol, true).
		Order("id ASC").
		First(&b).Error
	if err != nil {
		return nil, notFound(err, "default blockchain for %s", protocol)
	}
	return &b, nil
}

// CreateContract inserts a contract reference.
func (r *Repository) CreateContract(ctx context.Context, c *store.Contract) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return errors.Wrap(err, "failed to create contract")
	}
	return nil
}

// GetContract loads a contract by id.
func (r *Repository) GetContract(ctx context.Context, id uint) (*store.Contract, error) {
	var c store.Contract
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, notFound(err, "contract %d", id)
	}
	return &c, nil
}

// CreateToken inserts a token bound to an existing contract.
func (r *Repository) CreateToken(ctx context.Context, t *store.Token) error {
	if err := r.db.WithContext(ctx).Omit("Contract").Create(t).Error; err != nil {
		return errors.Wrap(err, "failed to create token")
	}
	return nil
}

// GetToken loads a token with its contract.
func (r *Repository) GetToken(ctx context.Context, id uint) (*store.Token, error) {
	var t store.Token
	if err := r.db.WithContext(ctx).Preload("Contract").First(&t, id).Error; err != nil {
		return nil, notFound(err, "token %d", id)
	}
	return &t, nil
}

// --- key releases

// ReserveKeyRelease appends the audit row kr unless limit releases of the
// same wallet to the same user happened after since. The count and the
// insert run in one database transaction.
func (r *Repository) ReserveKeyRelease(ctx context.Context, kr *store.KeyRelease, since time.Time, limit int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		count, err := countKeyReleases(tx, kr.WalletID, kr.UserID, since)
		if err != nil {
			return err
		}
		if count >= limit {
			return errors.Wrapf(ErrKeyReleaseLimit, "wallet %d: %d releases", kr.WalletID, count)
		}
		if err := tx.Create(kr).Error; err != nil {
			return errors.Wrap(err, "failed to record key release")
		}
		return nil
	})
}

// CountKeyReleasesSince counts releases of a wallet to a user after since.
func (r *Repository) CountKeyReleasesSince(ctx context.Context, walletID, userID uint, since time.Time) (int64, error) {
	return countKeyReleases(r.db.WithContext(ctx), walletID, userID, since)
}

func countKeyReleases(tx *gorm.DB, walletID, userID uint, since time.Time) (int64, error) {
	var count int64
	err := tx.Model(&store.KeyRelease{}).
		Where("wallet_id = ? AND user_id = ? AND created_at > ?", walletID, userID, since).
		Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "failed to count key releases")
	}
	return count, nil
}

// --- balance snapshots

// GetBalanceSnapshot loads the last observed value for a key.
func (r *Repository) GetBalanceSnapshot(ctx context.Context, walletID, tokenID uint, spender string) (*store.BalanceSnapshot, error) {
	var s store.BalanceSnapshot
	err := r.db.WithContext(ctx).
		Where("wallet_id = ? AND token_id = ? AND spender = ?", walletID, tokenID, spender).
		First(&s).Error
	if err != nil {
		return nil, notFound(err, "balance snapshot %d/%d/%s", walletID, tokenID, spender)
	}
	return &s, nil
}

// SaveBalanceSnapshot inserts or updates the value for a key.
func (r *Repository) SaveBalanceSnapshot(ctx context.Context, walletID, tokenID uint, spender, value string) error {
	existing, err := r.GetBalanceSnapshot(ctx, walletID, tokenID, spender)
	switch {
	case err == nil:
		result := r.db.WithContext(ctx).Model(existing).Update("value", value)
		if result.Error != nil {
			return errors.Wrap(result.Error, "failed to update balance snapshot")
		}
		return nil
	case errors.Is(err, ErrNotFound):
		snap := &store.BalanceSnapshot{WalletID: walletID, TokenID: tokenID, Spender: spender, Value: value}
		if err := r.db.WithContext(ctx).Create(snap).Error; err != nil {
			return errors.Wrap(err, "failed to create balance snapshot")
		}
		return nil
	default:
		return err
	}
}
