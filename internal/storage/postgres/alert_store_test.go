package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"smart-wallet-tracker/internal/domain"
	"smart-wallet-tracker/internal/storage"
)

func testAlert(signature, wallet, mint string, alertedAt int64) *domain.BuyAlert {
	return &domain.BuyAlert{
		Signature:     signature,
		Wallet:        wallet,
		Mint:          mint,
		Label:         "Alpha",
		SpentLamports: 1_500_000_000,
		DexSource:     "RAYDIUM",
		BlockTime:     1700000000,
		AlertedAt:     alertedAt,
	}
}

func TestAlertStore_InsertAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAlertStore(pool)
	ctx := context.Background()

	a := testAlert("sig1", "wallet1", "mint1", 1704067200000)
	require.NoError(t, store.Insert(ctx, a))
	require.NotZero(t, a.ID, "Insert must backfill the generated ID")

	got, err := store.GetBySignature(ctx, "sig1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "wallet1", got[0].Wallet)
	require.Equal(t, "mint1", got[0].Mint)
	require.Equal(t, "Alpha", got[0].Label)
	require.Equal(t, int64(1_500_000_000), got[0].SpentLamports)
	require.Equal(t, "RAYDIUM", got[0].DexSource)
}

func TestAlertStore_DuplicateKey(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAlertStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testAlert("sig1", "wallet1", "mint1", 1)))

	err := store.Insert(ctx, testAlert("sig1", "wallet1", "mint1", 2))
	require.ErrorIs(t, err, storage.ErrDuplicateKey)

	// A different mint under the same signature is a distinct alert.
	require.NoError(t, store.Insert(ctx, testAlert("sig1", "wallet1", "mint2", 3)))
}

func TestAlertStore_InvalidInput(t *testing.T) {
	pool := &Pool{} // Insert validates before touching the pool
	store := NewAlertStore(pool)
	ctx := context.Background()

	require.ErrorIs(t, store.Insert(ctx, nil), storage.ErrInvalidInput)
	require.ErrorIs(t, store.Insert(ctx, testAlert("", "w", "m", 1)), storage.ErrInvalidInput)
	require.ErrorIs(t, store.Insert(ctx, testAlert("s", "", "m", 1)), storage.ErrInvalidInput)
	require.ErrorIs(t, store.Insert(ctx, testAlert("s", "w", "", 1)), storage.ErrInvalidInput)
}

func TestAlertStore_GetByWallet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAlertStore(pool)
	ctx := context.Background()

	for i, sig := range []string{"sig1", "sig2", "sig3"} {
		a := testAlert(sig, "wallet1", "mint-"+sig, int64(100*(i+1)))
		require.NoError(t, store.Insert(ctx, a))
	}
	require.NoError(t, store.Insert(ctx, testAlert("sigX", "other", "mint1", 999)))

	got, err := store.GetByWallet(ctx, "wallet1", 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "sig3", got[0].Signature, "newest first")
	require.Equal(t, "sig1", got[2].Signature)

	limited, err := store.GetByWallet(ctx, "wallet1", 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	require.Equal(t, "sig3", limited[0].Signature)
}

func TestAlertStore_CountSince(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAlertStore(pool)
	ctx := context.Background()

	for i, sig := range []string{"sig1", "sig2", "sig3"} {
		require.NoError(t, store.Insert(ctx, testAlert(sig, "wallet1", "mint-"+sig, int64(100*(i+1)))))
	}

	count, err := store.CountSince(ctx, 200)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)
}
