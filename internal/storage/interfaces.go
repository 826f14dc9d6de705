package storage

import (
	"context"

	"smart-wallet-tracker/internal/domain"
)

// AlertStore provides access to the dispatched-alert history. It backs the
// status endpoint and survives restarts when the Postgres implementation is
// configured; the dedup ledger stays authoritative for suppression.
type AlertStore interface {
	// Insert records a dispatched alert. Returns ErrDuplicateKey if
	// (signature, wallet, mint) already exists.
	Insert(ctx context.Context, a *domain.BuyAlert) error

	// GetBySignature retrieves all alerts raised for a transaction signature.
	GetBySignature(ctx context.Context, signature string) ([]*domain.BuyAlert, error)

	// GetByWallet retrieves up to limit alerts for a wallet, newest first.
	// limit <= 0 means no limit.
	GetByWallet(ctx context.Context, wallet string, limit int) ([]*domain.BuyAlert, error)

	// CountSince counts alerts dispatched at or after the given unix
	// millisecond timestamp.
	CountSince(ctx context.Context, sinceMillis int64) (int64, error)
}
