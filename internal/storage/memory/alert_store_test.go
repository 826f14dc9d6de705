package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

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
		AlertedAt:     alertedAt,
	}
}

func TestAlertStore_InsertAndGet(t *testing.T) {
	store := NewAlertStore()
	ctx := context.Background()

	a := testAlert("sig1", "wallet1", "mint1", 1704067200000)
	if err := store.Insert(ctx, a); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if a.ID == 0 {
		t.Error("Insert must assign an ID")
	}

	got, err := store.GetBySignature(ctx, "sig1")
	if err != nil {
		t.Fatalf("GetBySignature failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d alerts, want 1", len(got))
	}
	if got[0].Wallet != "wallet1" || got[0].Mint != "mint1" {
		t.Errorf("unexpected alert: %+v", got[0])
	}
}

func TestAlertStore_DuplicateKey(t *testing.T) {
	store := NewAlertStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testAlert("sig1", "wallet1", "mint1", 1)); err != nil {
		t.Fatalf("first Insert failed: %v", err)
	}

	err := store.Insert(ctx, testAlert("sig1", "wallet1", "mint1", 2))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}

	// Same signature under a different wallet or mint is a distinct alert.
	if err := store.Insert(ctx, testAlert("sig1", "wallet2", "mint1", 3)); err != nil {
		t.Errorf("different wallet must not collide: %v", err)
	}
	if err := store.Insert(ctx, testAlert("sig1", "wallet1", "mint2", 4)); err != nil {
		t.Errorf("different mint must not collide: %v", err)
	}
}

func TestAlertStore_InvalidInput(t *testing.T) {
	store := NewAlertStore()
	ctx := context.Background()

	tests := []*domain.BuyAlert{
		nil,
		testAlert("", "wallet1", "mint1", 1),
		testAlert("sig1", "", "mint1", 1),
		testAlert("sig1", "wallet1", "", 1),
	}
	for _, a := range tests {
		if err := store.Insert(ctx, a); !errors.Is(err, storage.ErrInvalidInput) {
			t.Errorf("Insert(%+v) = %v, want ErrInvalidInput", a, err)
		}
	}
}

func TestAlertStore_GetByWallet_NewestFirst(t *testing.T) {
	store := NewAlertStore()
	ctx := context.Background()

	for i, sig := range []string{"sig1", "sig2", "sig3"} {
		a := testAlert(sig, "wallet1", "mint1", int64(100+i))
		a.Mint = "mint" + sig
		if err := store.Insert(ctx, a); err != nil {
			t.Fatalf("Insert %s failed: %v", sig, err)
		}
	}
	if err := store.Insert(ctx, testAlert("sigX", "other", "mint1", 999)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByWallet(ctx, "wallet1", 0)
	if err != nil {
		t.Fatalf("GetByWallet failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d alerts, want 3", len(got))
	}
	if got[0].Signature != "sig3" || got[2].Signature != "sig1" {
		t.Errorf("alerts not sorted newest first: %v, %v, %v",
			got[0].Signature, got[1].Signature, got[2].Signature)
	}

	limited, err := store.GetByWallet(ctx, "wallet1", 2)
	if err != nil {
		t.Fatalf("GetByWallet with limit failed: %v", err)
	}
	if len(limited) != 2 || limited[0].Signature != "sig3" {
		t.Errorf("limit not applied: %+v", limited)
	}
}

func TestAlertStore_CountSince(t *testing.T) {
	store := NewAlertStore()
	ctx := context.Background()

	for i, sig := range []string{"sig1", "sig2", "sig3"} {
		if err := store.Insert(ctx, testAlert(sig, "wallet1", "mint"+sig, int64(100*(i+1)))); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	count, err := store.CountSince(ctx, 200)
	if err != nil {
		t.Fatalf("CountSince failed: %v", err)
	}
	if count != 2 {
		t.Errorf("CountSince(200) = %d, want 2", count)
	}
}

func TestAlertStore_CopySemantics(t *testing.T) {
	store := NewAlertStore()
	ctx := context.Background()

	a := testAlert("sig1", "wallet1", "mint1", 1)
	if err := store.Insert(ctx, a); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	a.Label = "mutated"

	got, err := store.GetBySignature(ctx, "sig1")
	if err != nil {
		t.Fatalf("GetBySignature failed: %v", err)
	}
	if got[0].Label != "Alpha" {
		t.Error("store must hold a copy, caller mutation leaked in")
	}

	got[0].Label = "mutated again"
	got2, _ := store.GetBySignature(ctx, "sig1")
	if got2[0].Label != "Alpha" {
		t.Error("store must return copies, reader mutation leaked in")
	}
}

func TestAlertStore_ConcurrentInsert(t *testing.T) {
	store := NewAlertStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			sig := string(rune('a' + n))
			_ = store.Insert(ctx, testAlert(sig, "wallet1", "mint1", int64(n)))
		}(i)
	}
	wg.Wait()

	count, err := store.CountSince(ctx, 0)
	if err != nil {
		t.Fatalf("CountSince failed: %v", err)
	}
	if count != 10 {
		t.Errorf("count = %d, want 10", count)
	}
}
