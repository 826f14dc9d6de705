package classify

import "strings"

// Well-known base asset mints on mainnet.
const (
	WrappedSOL = "So11111111111111111111111111111111111111112"
	USDC       = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	USDT       = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
)

// DefaultBaseAssets returns the standard exclusion set: the wrapped native
// asset plus the major stablecoins. A swap acquiring one of these is not a
// "buy" in the alerting sense.
func DefaultBaseAssets() []string {
	return []string{WrappedSOL, USDC, USDT}
}

// Filter is the base/stable asset exclusion set. Both the stored mints and
// incoming identifiers are lowercased inside the filter, so callers never
// need to normalize on their side.
type Filter struct {
	mints map[string]struct{}
}

// NewFilter builds a filter from the given mints.
func NewFilter(mints ...string) *Filter {
	f := &Filter{mints: make(map[string]struct{}, len(mints))}
	for _, m := range mints {
		f.Add(m)
	}
	return f
}

// NewDefaultFilter builds a filter with the standard exclusion set.
func NewDefaultFilter() *Filter {
	return NewFilter(DefaultBaseAssets()...)
}

// Add inserts a mint into the exclusion set.
func (f *Filter) Add(mint string) {
	f.mints[strings.ToLower(mint)] = struct{}{}
}

// IsBaseAsset reports whether the mint is in the exclusion set.
// Empty mints are not base assets.
func (f *Filter) IsBaseAsset(mint string) bool {
	if mint == "" {
		return false
	}
	_, ok := f.mints[strings.ToLower(mint)]
	return ok
}

// Len returns the number of mints in the set.
func (f *Filter) Len() int {
	return len(f.mints)
}
