// Package memory provides in-memory store implementations, used when no
// database is configured and as fixtures in tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"smart-wallet-tracker/internal/domain"
	"smart-wallet-tracker/internal/storage"
)

// AlertStore is an in-memory implementation of storage.AlertStore.
type AlertStore struct {
	mu     sync.RWMutex
	data   map[string]*domain.BuyAlert // keyed by signature|wallet|mint
	nextID int64
}

// NewAlertStore creates a new in-memory alert store.
func NewAlertStore() *AlertStore {
	return &AlertStore{
		data:   make(map[string]*domain.BuyAlert),
		nextID: 1,
	}
}

func alertKey(signature, wallet, mint string) string {
	return signature + "|" + wallet + "|" + mint
}

// Insert records a dispatched alert. Returns ErrDuplicateKey if
// (signature, wallet, mint) already exists.
func (s *AlertStore) Insert(_ context.Context, a *domain.BuyAlert) error {
	if a == nil || a.Signature == "" || a.Wallet == "" || a.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := alertKey(a.Signature, a.Wallet, a.Mint)
	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	alertCopy := *a
	alertCopy.ID = s.nextID
	s.nextID++
	s.data[key] = &alertCopy

	a.ID = alertCopy.ID
	return nil
}

// GetBySignature retrieves all alerts raised for a transaction signature.
func (s *AlertStore) GetBySignature(_ context.Context, signature string) ([]*domain.BuyAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.BuyAlert
	for _, a := range s.data {
		if a.Signature == signature {
			alertCopy := *a
			result = append(result, &alertCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// GetByWallet retrieves up to limit alerts for a wallet, newest first.
func (s *AlertStore) GetByWallet(_ context.Context, wallet string, limit int) ([]*domain.BuyAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.BuyAlert
	for _, a := range s.data {
		if a.Wallet == wallet {
			alertCopy := *a
			result = append(result, &alertCopy)
		}
	}

	// Newest first; ID breaks ties for alerts dispatched in the same millisecond.
	sort.Slice(result, func(i, j int) bool {
		if result[i].AlertedAt != result[j].AlertedAt {
			return result[i].AlertedAt > result[j].AlertedAt
		}
		return result[i].ID > result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// CountSince counts alerts dispatched at or after the given unix millisecond
// timestamp.
func (s *AlertStore) CountSince(_ context.Context, sinceMillis int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, a := range s.data {
		if a.AlertedAt >= sinceMillis {
			count++
		}
	}
	return count, nil
}

// Verify interface compliance at compile time.
var _ storage.AlertStore = (*AlertStore)(nil)
