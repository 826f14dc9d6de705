package domain

// TransactionEvent is an enhanced transaction record as delivered by the
// Helius history API and webhooks. The schema is not fully reliable: optional
// and alternate fields may be present, absent, or mutually inconsistent, so
// consumers must degrade gracefully field by field.
type TransactionEvent struct {
	Signature   string `json:"signature"`
	Type        string `json:"type,omitempty"`   // e.g. "SWAP", "TRANSFER"; may be absent
	Source      string `json:"source,omitempty"` // DEX label, e.g. "RAYDIUM"
	Description string `json:"description,omitempty"`
	FeePayer    string `json:"feePayer,omitempty"`

	// Timestamp and BlockTime are the same value under different producer
	// schemas (unix seconds). Use EventTime to read whichever is set.
	Timestamp int64 `json:"timestamp,omitempty"`
	BlockTime int64 `json:"blockTime,omitempty"`

	TokenTransfers  []TokenTransfer  `json:"tokenTransfers,omitempty"`
	NativeTransfers []NativeTransfer `json:"nativeTransfers,omitempty"`

	// Pre-summarized convenience fields some producers supply instead of
	// transfer lists.
	Account           string `json:"account,omitempty"`
	NativeInputAmount int64  `json:"nativeInputAmount,omitempty"` // lamports
	TokenInputMint    string `json:"tokenInputMint,omitempty"`
	TokenOutputMint   string `json:"tokenOutputMint,omitempty"`
}

// EventTime returns the event's unix timestamp in seconds, or 0 if the
// producer supplied neither field.
func (e *TransactionEvent) EventTime() int64 {
	if e.Timestamp != 0 {
		return e.Timestamp
	}
	return e.BlockTime
}

// TokenTransfer is a single SPL token movement within a transaction.
type TokenTransfer struct {
	FromUserAccount  string  `json:"fromUserAccount"`
	ToUserAccount    string  `json:"toUserAccount"`
	FromTokenAccount string  `json:"fromTokenAccount,omitempty"`
	ToTokenAccount   string  `json:"toTokenAccount,omitempty"`
	Mint             string  `json:"mint"`
	TokenAmount      float64 `json:"tokenAmount"` // UI units, decimals applied upstream
}

// NativeTransfer is a single SOL movement within a transaction.
// Amount is always non-negative; direction is derived from which side
// equals the watched address.
type NativeTransfer struct {
	FromUserAccount string `json:"fromUserAccount"`
	ToUserAccount   string `json:"toUserAccount"`
	Amount          int64  `json:"amount"` // lamports
}
