// Package wallets loads and validates the watched-wallet registry.
package wallets

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	"smart-wallet-tracker/internal/domain"
)

// Registry is the read-only set of watched wallets, loaded once at startup.
// Lookup is case-sensitive exact match: upstream transaction data preserves
// address case and the registry must not normalize one side only.
type Registry struct {
	byAddress map[string]domain.WatchedWallet
	ordered   []domain.WatchedWallet
}

// Load reads a registry file: a JSON object mapping address to label.
// Every address must be a valid 32-byte base58 key; a malformed entry is a
// startup error, not a warning, because a typo here silently drops a wallet
// from tracking.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read wallets file: %w", err)
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse wallets file %s: %w", path, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("wallets file %s contains no entries", path)
	}

	wallets := make(map[string]domain.WatchedWallet, len(raw))
	for address, label := range raw {
		if err := ValidateAddress(address); err != nil {
			return nil, fmt.Errorf("wallet %q (%s): %w", label, address, err)
		}
		wallets[address] = domain.WatchedWallet{Address: address, Label: label}
	}

	return NewRegistry(wallets), nil
}

// NewRegistry builds a registry from an already-validated wallet map.
func NewRegistry(wallets map[string]domain.WatchedWallet) *Registry {
	ordered := make([]domain.WatchedWallet, 0, len(wallets))
	for _, w := range wallets {
		ordered = append(ordered, w)
	}
	// Deterministic polling order
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Address < ordered[j].Address
	})

	return &Registry{byAddress: wallets, ordered: ordered}
}

// Lookup returns the watched wallet for an address, exact match.
func (r *Registry) Lookup(address string) (domain.WatchedWallet, bool) {
	w, ok := r.byAddress[address]
	return w, ok
}

// Wallets returns all watched wallets in deterministic (address) order.
func (r *Registry) Wallets() []domain.WatchedWallet {
	return r.ordered
}

// Len returns the number of watched wallets.
func (r *Registry) Len() int {
	return len(r.ordered)
}

// Addresses returns all watched addresses in deterministic order.
func (r *Registry) Addresses() []string {
	addrs := make([]string, len(r.ordered))
	for i, w := range r.ordered {
		addrs[i] = w.Address
	}
	return addrs
}

// ValidateAddress checks that an address decodes to a 32-byte base58 key.
func ValidateAddress(address string) error {
	raw, err := base58.Decode(address)
	if err != nil {
		return fmt.Errorf("invalid base58: %w", err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("decoded key is %d bytes, want 32", len(raw))
	}
	return nil
}

// IsOnCurve reports whether the address is a valid ed25519 point.
// Program-derived addresses are off-curve; a PDA in the registry usually
// means a pool or vault was pasted instead of a user wallet.
func IsOnCurve(address string) bool {
	raw, err := base58.Decode(address)
	if err != nil || len(raw) != 32 {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(raw)
	return err == nil
}
