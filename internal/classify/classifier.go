// Package classify decides whether a transaction event is a qualifying
// buy swap for a watched wallet. The classifier is a pure function over the
// event and the wallet; all I/O (fetching, dedup, alerting) lives elsewhere.
package classify

import "smart-wallet-tracker/internal/domain"

// TypeSwap is the event type tag emitted by the enhanced transaction API
// for swaps.
const TypeSwap = "SWAP"

// UnknownAccount is the sentinel returned when no extraction strategy can
// name the event's subject account. The registry normally has no entry for
// it, so such events drop out of the pipeline.
const UnknownAccount = "unknown"

// Result is the classifier output: either a non-match (Buy == false, all
// other fields zero) or a qualifying buy.
type Result struct {
	Buy           bool
	Wallet        domain.WatchedWallet
	AcquiredMint  string
	SpentLamports int64  // SOL spent by the wallet, smallest unit
	Signature     string
	DexSource     string // upstream DEX label, may be empty
	BlockTime     int64  // unix seconds, 0 if the producer omitted it
	Symbol        string // never set by Classify; filled by optional metadata enrichment
}

// Classifier evaluates transaction events against a base-asset filter.
type Classifier struct {
	filter *Filter
}

// New creates a classifier. A nil filter gets the default exclusion set.
func New(filter *Filter) *Classifier {
	if filter == nil {
		filter = NewDefaultFilter()
	}
	return &Classifier{filter: filter}
}

// Filter exposes the base-asset filter for callers that share it.
func (c *Classifier) Filter() *Filter {
	return c.filter
}

// Classify decides whether the event is a buy by the watched wallet.
//
// Signals are checked in priority order, stopping at the first decisive one:
//
//  1. Type gate: an explicit non-swap type tag rejects the event. A missing
//     tag does not; older producers omit it on swap-shaped payloads.
//  2. Sell shield: any token transfer delivering a base asset TO the wallet
//     means the wallet is selling into a base asset, never a buy.
//  3. Summary path: producers that pre-summarize the swap expose an output
//     mint and native input amount directly.
//  4. Transfer-pair path: an outgoing base-asset or native transfer from the
//     wallet paired with an incoming non-base token transfer to it.
//
// Spent amount is the sum of native transfers outgoing from the wallet only.
// Summing all native transfers over-counts pool and relay hops that share
// the transaction.
func (c *Classifier) Classify(event *domain.TransactionEvent, wallet domain.WatchedWallet) Result {
	if event == nil {
		return Result{}
	}

	// 1. Type gate.
	if event.Type != "" && event.Type != TypeSwap {
		return Result{}
	}

	// 2. Sell shield.
	for _, tt := range event.TokenTransfers {
		if c.filter.IsBaseAsset(tt.Mint) && tt.ToUserAccount == wallet.Address {
			return Result{}
		}
	}

	// 3. Summary path.
	if r, ok := c.classifySummary(event, wallet); ok {
		return r
	}

	// 4. Transfer-pair path.
	if r, ok := c.classifyTransferPair(event, wallet); ok {
		return r
	}

	return Result{}
}

// classifySummary handles events carrying pre-summarized input/output fields.
func (c *Classifier) classifySummary(event *domain.TransactionEvent, wallet domain.WatchedWallet) (Result, bool) {
	if event.TokenOutputMint == "" || event.NativeInputAmount <= 0 {
		return Result{}, false
	}
	if c.filter.IsBaseAsset(event.TokenOutputMint) {
		return Result{}, false
	}
	// A named input mint must itself be a base asset; an absent input mint
	// means native SOL, which always qualifies.
	if event.TokenInputMint != "" && !c.filter.IsBaseAsset(event.TokenInputMint) {
		return Result{}, false
	}

	return Result{
		Buy:           true,
		Wallet:        wallet,
		AcquiredMint:  event.TokenOutputMint,
		SpentLamports: event.NativeInputAmount,
		Signature:     event.Signature,
		DexSource:     event.Source,
		BlockTime:     event.EventTime(),
	}, true
}

// classifyTransferPair scans the transfer lists for a spend leg and a
// receive leg.
func (c *Classifier) classifyTransferPair(event *domain.TransactionEvent, wallet domain.WatchedWallet) (Result, bool) {
	// Receive leg: incoming token transfer to the wallet, non-base mint.
	acquired := ""
	for _, tt := range event.TokenTransfers {
		if tt.ToUserAccount == wallet.Address &&
			tt.FromUserAccount != wallet.Address &&
			tt.Mint != "" &&
			!c.filter.IsBaseAsset(tt.Mint) {
			acquired = tt.Mint
			break
		}
	}
	if acquired == "" {
		return Result{}, false
	}

	// Spend leg: outgoing base-asset token transfer, or (the looser fallback,
	// tolerating wrap-then-swap flows) any outgoing native transfer.
	spendLeg := false
	for _, tt := range event.TokenTransfers {
		if tt.FromUserAccount == wallet.Address && c.filter.IsBaseAsset(tt.Mint) {
			spendLeg = true
			break
		}
	}

	var spent int64
	for _, nt := range event.NativeTransfers {
		if nt.FromUserAccount == wallet.Address && nt.ToUserAccount != wallet.Address {
			spendLeg = true
			spent += nt.Amount
		}
	}

	if !spendLeg {
		return Result{}, false
	}

	return Result{
		Buy:           true,
		Wallet:        wallet,
		AcquiredMint:  acquired,
		SpentLamports: spent,
		Signature:     event.Signature,
		DexSource:     event.Source,
		BlockTime:     event.EventTime(),
	}, true
}

// accountExtractor is one strategy for naming the event's subject account.
// The first strategy returning a non-empty value wins; the precedence is an
// explicit table rather than an a||b||c expression chain so it can be
// reviewed and tested.
type accountExtractor struct {
	name    string
	extract func(*domain.TransactionEvent) string
}

var accountExtractors = []accountExtractor{
	{"account field", func(e *domain.TransactionEvent) string {
		return e.Account
	}},
	{"first token transfer sender", func(e *domain.TransactionEvent) string {
		if len(e.TokenTransfers) > 0 {
			return e.TokenTransfers[0].FromUserAccount
		}
		return ""
	}},
	{"first token transfer receiver", func(e *domain.TransactionEvent) string {
		if len(e.TokenTransfers) > 0 {
			return e.TokenTransfers[0].ToUserAccount
		}
		return ""
	}},
}

// SubjectAccount resolves which account a pushed event is most likely about.
// Polling always knows the address it asked for; webhook payloads may name
// it in several places or not at all.
func SubjectAccount(event *domain.TransactionEvent) string {
	for _, ex := range accountExtractors {
		if v := ex.extract(event); v != "" {
			return v
		}
	}
	return UnknownAccount
}

// SubjectCandidates lists every account a pushed event could be about, in
// precedence order, deduplicated: the extractor strategies first, then all
// remaining transfer participants. Callers match candidates against their
// registry; the watched wallet of a buy is usually a transfer receiver, not
// the first account named.
func SubjectCandidates(event *domain.TransactionEvent) []string {
	if event == nil {
		return nil
	}

	seen := make(map[string]bool)
	var out []string
	add := func(account string) {
		if account != "" && !seen[account] {
			seen[account] = true
			out = append(out, account)
		}
	}

	add(event.Account)
	add(event.FeePayer)
	for _, tt := range event.TokenTransfers {
		add(tt.FromUserAccount)
		add(tt.ToUserAccount)
	}
	for _, nt := range event.NativeTransfers {
		add(nt.FromUserAccount)
		add(nt.ToUserAccount)
	}
	return out
}
