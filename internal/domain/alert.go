package domain

// BuyAlert is a dispatched alert record.
// Corresponds to the buy_alerts table in PostgreSQL; (signature, wallet, mint)
// is the uniqueness key.
type BuyAlert struct {
	ID            int64  // BIGSERIAL primary key (0 for in-memory records)
	Signature     string // transaction signature
	Wallet        string // watched wallet address
	Label         string // wallet label at alert time
	Mint          string // acquired token mint
	SpentLamports int64  // SOL spent, smallest unit
	DexSource     string // DEX label if the producer supplied one
	BlockTime     int64  // event unix timestamp (seconds), 0 if absent
	AlertedAt     int64  // dispatch timestamp, unix milliseconds
}
