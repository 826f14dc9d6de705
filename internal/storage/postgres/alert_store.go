package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"smart-wallet-tracker/internal/domain"
	"smart-wallet-tracker/internal/storage"
)

// AlertStore implements storage.AlertStore using PostgreSQL.
type AlertStore struct {
	pool *Pool
}

// NewAlertStore creates a new AlertStore.
func NewAlertStore(pool *Pool) *AlertStore {
	return &AlertStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AlertStore = (*AlertStore)(nil)

// Insert records a dispatched alert. Returns ErrDuplicateKey if
// (signature, wallet, mint) already exists.
func (s *AlertStore) Insert(ctx context.Context, a *domain.BuyAlert) error {
	if a == nil || a.Signature == "" || a.Wallet == "" || a.Mint == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO buy_alerts (
			signature, wallet, label, mint, spent_lamports, dex_source, block_time, alerted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err := s.pool.QueryRow(ctx, query,
		a.Signature,
		a.Wallet,
		a.Label,
		a.Mint,
		a.SpentLamports,
		a.DexSource,
		a.BlockTime,
		a.AlertedAt,
	).Scan(&a.ID)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// GetBySignature retrieves all alerts raised for a transaction signature.
func (s *AlertStore) GetBySignature(ctx context.Context, signature string) ([]*domain.BuyAlert, error) {
	query := `
		SELECT id, signature, wallet, label, mint, spent_lamports, dex_source, block_time, alerted_at
		FROM buy_alerts
		WHERE signature = $1
		ORDER BY id ASC
	`

	rows, err := s.pool.Query(ctx, query, signature)
	if err != nil {
		return nil, fmt.Errorf("get alerts by signature: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

// GetByWallet retrieves up to limit alerts for a wallet, newest first.
func (s *AlertStore) GetByWallet(ctx context.Context, wallet string, limit int) ([]*domain.BuyAlert, error) {
	query := `
		SELECT id, signature, wallet, label, mint, spent_lamports, dex_source, block_time, alerted_at
		FROM buy_alerts
		WHERE wallet = $1
		ORDER BY alerted_at DESC, id DESC
	`
	args := []interface{}{wallet}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get alerts by wallet: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

// CountSince counts alerts dispatched at or after the given unix millisecond
// timestamp.
func (s *AlertStore) CountSince(ctx context.Context, sinceMillis int64) (int64, error) {
	query := `SELECT COUNT(*) FROM buy_alerts WHERE alerted_at >= $1`

	var count int64
	if err := s.pool.QueryRow(ctx, query, sinceMillis).Scan(&count); err != nil {
		return 0, fmt.Errorf("count alerts: %w", err)
	}
	return count, nil
}

// scanAlerts scans multiple rows into a slice of BuyAlert.
func scanAlerts(rows pgx.Rows) ([]*domain.BuyAlert, error) {
	var alerts []*domain.BuyAlert

	for rows.Next() {
		var a domain.BuyAlert

		err := rows.Scan(
			&a.ID,
			&a.Signature,
			&a.Wallet,
			&a.Label,
			&a.Mint,
			&a.SpentLamports,
			&a.DexSource,
			&a.BlockTime,
			&a.AlertedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan alert row: %w", err)
		}

		alerts = append(alerts, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alert rows: %w", err)
	}

	return alerts, nil
}
