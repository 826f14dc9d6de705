package domain

// WatchedWallet is an address the tracker monitors, with a display label.
// The registry is loaded once at startup and is read-only afterwards.
// Address comparison is case-sensitive: Solana addresses are base58 and
// upstream data preserves case, so no normalization is applied.
type WatchedWallet struct {
	Address string // base58 account address, exact-match lookup key
	Label   string // human-readable tag shown in alerts
}
