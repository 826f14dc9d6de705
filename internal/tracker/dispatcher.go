// Package tracker coordinates the alert pipeline: ingest paths feed
// transaction events through staleness and dedup checks, the classifier, and
// on a buy, the formatter and notifier.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"smart-wallet-tracker/internal/alert"
	"smart-wallet-tracker/internal/classify"
	"smart-wallet-tracker/internal/dedup"
	"smart-wallet-tracker/internal/domain"
	"smart-wallet-tracker/internal/helius"
	"smart-wallet-tracker/internal/observability"
	"smart-wallet-tracker/internal/storage"
	"smart-wallet-tracker/internal/wallets"
)

// Ingest path labels, used in metrics and stats.
const (
	PathPoll    = "poll"
	PathWebhook = "webhook"
	PathStream  = "stream"
)

// Default configuration values.
const (
	DefaultPollInterval = 60 * time.Second
	DefaultWalletPacing = 1 * time.Second
	DefaultMaxEventAge  = 5 * time.Minute
)

// Fetcher pulls recent transaction history for one address.
type Fetcher interface {
	RecentTransactions(ctx context.Context, address string) ([]domain.TransactionEvent, error)
}

// Notifier delivers a rendered alert message.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// MetadataResolver resolves mint metadata for symbol enrichment and the
// token age gate. Lookup failures are non-fatal: the alert goes out with the
// bare mint, and the age gate fails open.
type MetadataResolver interface {
	Metadata(ctx context.Context, mint string) (helius.TokenMetadata, error)
}

// Options configures a Dispatcher. Registry, Classifier, Ledger, Formatter
// and Notifier are required; Fetcher is required only when Run polls.
type Options struct {
	Registry   *wallets.Registry
	Classifier *classify.Classifier
	Ledger     *dedup.Ledger
	Formatter  *alert.Formatter
	Fetcher    Fetcher
	Notifier   Notifier

	// Alerts, when non-nil, persists every dispatched alert.
	Alerts storage.AlertStore

	// Metadata, when non-nil, enriches alerts with token symbols and feeds
	// the token age gate.
	Metadata MetadataResolver

	Logger *log.Logger

	// PollInterval is the delay between poll cycles.
	PollInterval time.Duration

	// WalletPacing is the delay between consecutive wallet fetches within a
	// cycle, keeping the upstream API under its rate limit.
	WalletPacing time.Duration

	// MaxEventAge drops events older than this at processing time. Zero or
	// negative disables the cutoff. Events without a timestamp always pass.
	MaxEventAge time.Duration

	// MaxTokenAge skips buys of mints created longer ago than this. Zero or
	// negative disables the gate; mints with unknown creation time always
	// pass. Requires Metadata.
	MaxTokenAge time.Duration

	// Policy selects dedup granularity. Defaults to per-signature.
	Policy dedup.Policy

	// AlertAll alerts on every qualifying buy found in a wallet's polled
	// batch. Default is first buy per wallet per cycle; pushed events are
	// always processed individually.
	AlertAll bool
}

// Stats is a point-in-time snapshot of dispatcher counters.
type Stats struct {
	EventsProcessed int64     `json:"events_processed"`
	BuysAlerted     int64     `json:"buys_alerted"`
	Suppressed      int64     `json:"suppressed"`
	StaleSkipped    int64     `json:"stale_skipped"`
	OldTokenSkipped int64     `json:"old_token_skipped"`
	FetchErrors     int64     `json:"fetch_errors"`
	NotifyErrors    int64     `json:"notify_errors"`
	CyclesCompleted int64     `json:"cycles_completed"`
	LastCycleAt     time.Time `json:"last_cycle_at"`
	WalletsWatched  int       `json:"wallets_watched"`
	DedupEntries    int       `json:"dedup_entries"`
}

// counters backs Stats. The pipeline updates them while holding d.mu, but
// Stats reads them from status probes that must not wait out a poll cycle,
// so they are atomics instead of fields under the pipeline mutex.
type counters struct {
	eventsProcessed atomic.Int64
	buysAlerted     atomic.Int64
	suppressed      atomic.Int64
	staleSkipped    atomic.Int64
	oldTokenSkipped atomic.Int64
	fetchErrors     atomic.Int64
	notifyErrors    atomic.Int64
	cyclesCompleted atomic.Int64
	lastCycleNanos  atomic.Int64
}

// Dispatcher runs the alert pipeline. All ingest paths (poll cycle, webhook
// deliveries, stream notifications) are serialized on one mutex so the
// check-then-mark against the dedup ledger stays atomic across paths.
type Dispatcher struct {
	registry   *wallets.Registry
	classifier *classify.Classifier
	ledger     *dedup.Ledger
	formatter  *alert.Formatter
	fetcher    Fetcher
	notifier   Notifier
	alerts     storage.AlertStore
	metadata   MetadataResolver
	logger     *log.Logger

	pollInterval time.Duration
	walletPacing time.Duration
	maxEventAge  time.Duration
	maxTokenAge  time.Duration
	policy       dedup.Policy
	alertAll     bool

	now func() time.Time

	mu       sync.Mutex
	counters counters
}

// New creates a dispatcher.
func New(opts Options) (*Dispatcher, error) {
	if opts.Registry == nil || opts.Registry.Len() == 0 {
		return nil, fmt.Errorf("registry is empty")
	}
	if opts.Classifier == nil {
		return nil, fmt.Errorf("classifier is required")
	}
	if opts.Ledger == nil {
		return nil, fmt.Errorf("dedup ledger is required")
	}
	if opts.Formatter == nil {
		return nil, fmt.Errorf("formatter is required")
	}
	if opts.Notifier == nil {
		return nil, fmt.Errorf("notifier is required")
	}

	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.WalletPacing < 0 {
		opts.WalletPacing = DefaultWalletPacing
	}
	if opts.Policy == "" {
		opts.Policy = dedup.PerSignature
	}
	if !opts.Policy.Valid() {
		return nil, fmt.Errorf("unknown dedup policy %q", opts.Policy)
	}
	if opts.MaxTokenAge > 0 && opts.Metadata == nil {
		return nil, fmt.Errorf("token age gate requires a metadata resolver")
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	observability.UpdateWalletsWatched(opts.Registry.Len())

	return &Dispatcher{
		registry:     opts.Registry,
		classifier:   opts.Classifier,
		ledger:       opts.Ledger,
		formatter:    opts.Formatter,
		fetcher:      opts.Fetcher,
		notifier:     opts.Notifier,
		alerts:       opts.Alerts,
		metadata:     opts.Metadata,
		logger:       opts.Logger,
		pollInterval: opts.PollInterval,
		walletPacing: opts.WalletPacing,
		maxEventAge:  opts.MaxEventAge,
		maxTokenAge:  opts.MaxTokenAge,
		policy:       opts.Policy,
		alertAll:     opts.AlertAll,
		now:          time.Now,
	}, nil
}

// Run polls all wallets on the configured interval until ctx is cancelled.
// The first cycle starts immediately.
func (d *Dispatcher) Run(ctx context.Context) error {
	if d.fetcher == nil {
		return fmt.Errorf("no fetcher configured for polling")
	}

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		if err := d.PollOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// PollOnce runs a single poll cycle over all watched wallets. Per-wallet
// fetch failures are logged and skipped; the cycle proceeds to the remaining
// wallets. Only context cancellation aborts the cycle.
func (d *Dispatcher) PollOnce(ctx context.Context) error {
	if d.fetcher == nil {
		return fmt.Errorf("no fetcher configured for polling")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	start := d.now()

	for i, wallet := range d.registry.Wallets() {
		if i > 0 && d.walletPacing > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.walletPacing):
			}
		}

		fetchStart := d.now()
		events, err := d.fetcher.RecentTransactions(ctx, wallet.Address)
		observability.RecordFetchLatency(d.now().Sub(fetchStart).Seconds())
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			d.counters.fetchErrors.Add(1)
			observability.RecordFetchError(fetchErrorType(err))
			d.logger.Printf("fetch failed for %s (%s): %v", wallet.Label, wallet.Address, err)
			continue
		}

		for j := range events {
			alerted := d.processEvent(ctx, PathPoll, &events[j], wallet)
			if alerted && !d.alertAll {
				break
			}
		}
	}

	d.ledger.Purge()
	d.counters.cyclesCompleted.Add(1)
	d.counters.lastCycleNanos.Store(d.now().UnixNano())
	observability.RecordCycleDuration(d.now().Sub(start).Seconds())
	observability.UpdateDedupEntries(d.ledger.Len())

	return nil
}

// ProcessDelivery handles a batch of pushed events (webhook or stream). The
// subject wallet is resolved from the event itself; events about accounts
// outside the registry are dropped. Returns the number of alerts raised.
func (d *Dispatcher) ProcessDelivery(ctx context.Context, path string, events []domain.TransactionEvent) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	alerted := 0
	for i := range events {
		wallet, ok := d.matchWallet(&events[i])
		if !ok {
			continue
		}
		if d.processEvent(ctx, path, &events[i], wallet) {
			alerted++
		}
	}
	return alerted
}

// matchWallet finds the first watched wallet among the event's candidate
// subject accounts.
func (d *Dispatcher) matchWallet(event *domain.TransactionEvent) (domain.WatchedWallet, bool) {
	for _, account := range classify.SubjectCandidates(event) {
		if w, ok := d.registry.Lookup(account); ok {
			return w, true
		}
	}
	return domain.WatchedWallet{}, false
}

// ConsumeStream drains a stream source's event channel until it closes or
// ctx is cancelled.
func (d *Dispatcher) ConsumeStream(ctx context.Context, events <-chan domain.TransactionEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			d.ProcessDelivery(ctx, PathStream, []domain.TransactionEvent{event})
		}
	}
}

// Stats returns a snapshot of pipeline counters. It does not take the
// pipeline mutex, so status probes return promptly even mid-cycle.
func (d *Dispatcher) Stats() Stats {
	s := Stats{
		EventsProcessed: d.counters.eventsProcessed.Load(),
		BuysAlerted:     d.counters.buysAlerted.Load(),
		Suppressed:      d.counters.suppressed.Load(),
		StaleSkipped:    d.counters.staleSkipped.Load(),
		OldTokenSkipped: d.counters.oldTokenSkipped.Load(),
		FetchErrors:     d.counters.fetchErrors.Load(),
		NotifyErrors:    d.counters.notifyErrors.Load(),
		CyclesCompleted: d.counters.cyclesCompleted.Load(),
		WalletsWatched:  d.registry.Len(),
		DedupEntries:    d.ledger.Len(),
	}
	if nanos := d.counters.lastCycleNanos.Load(); nanos > 0 {
		s.LastCycleAt = time.Unix(0, nanos)
	}
	return s
}

// processEvent runs one event through the pipeline. Returns true when an
// alert was raised, including when delivery subsequently failed: marking
// before sending biases toward at-most-once. Buys rejected by the token age
// gate are marked too but report false, since no alert was attempted.
// Callers must hold d.mu.
func (d *Dispatcher) processEvent(ctx context.Context, path string, event *domain.TransactionEvent, wallet domain.WatchedWallet) bool {
	d.counters.eventsProcessed.Add(1)
	observability.RecordEventProcessed(path)

	if d.isStale(event) {
		d.counters.staleSkipped.Add(1)
		observability.RecordStaleSkipped()
		return false
	}

	// Per-signature dedup needs no classification result, so the repeat case
	// skips the classifier entirely.
	if d.policy == dedup.PerSignature {
		key := dedup.Key(d.policy, event.Signature, wallet.Address, "")
		if d.ledger.Seen(key) {
			d.suppressed()
			return false
		}
	}

	res := d.classifier.Classify(event, wallet)
	if !res.Buy {
		return false
	}
	observability.RecordBuyClassified()

	key := dedup.Key(d.policy, res.Signature, wallet.Address, res.AcquiredMint)
	if d.policy == dedup.PerMint && d.ledger.Seen(key) {
		d.suppressed()
		return false
	}
	d.ledger.MarkSeen(key)

	if d.metadata != nil {
		meta, err := d.metadata.Metadata(ctx, res.AcquiredMint)
		if err != nil {
			d.logger.Printf("metadata lookup failed for %s: %v", res.AcquiredMint, err)
		} else {
			res.Symbol = meta.Symbol
			if d.tokenTooOld(meta) {
				d.counters.oldTokenSkipped.Add(1)
				observability.RecordOldTokenSkipped()
				d.logger.Printf("skipping old token %s (created %s)",
					res.AcquiredMint, time.Unix(meta.CreatedAt, 0).UTC().Format(time.RFC3339))
				return false
			}
		}
	}

	message := d.formatter.Format(res)
	if err := d.notifier.Send(ctx, message); err != nil {
		d.counters.notifyErrors.Add(1)
		observability.RecordNotifyError()
		d.logger.Printf("alert delivery failed for %s (sig %s): %v", wallet.Label, res.Signature, err)
		return true
	}

	d.counters.buysAlerted.Add(1)
	observability.RecordAlertSent()
	d.logger.Printf("buy alert: wallet=%s mint=%s spent=%s SOL sig=%s",
		wallet.Address, res.AcquiredMint, alert.FormatSOL(res.SpentLamports), res.Signature)

	d.persist(ctx, res)
	return true
}

func (d *Dispatcher) suppressed() {
	d.counters.suppressed.Add(1)
	observability.RecordDedupSuppressed(string(d.policy))
}

// tokenTooOld applies the token age gate to resolved metadata. Mints with
// unknown creation time pass, like events without timestamps pass the
// staleness cutoff.
func (d *Dispatcher) tokenTooOld(meta helius.TokenMetadata) bool {
	if d.maxTokenAge <= 0 || meta.CreatedAt <= 0 {
		return false
	}
	return d.now().Sub(time.Unix(meta.CreatedAt, 0)) > d.maxTokenAge
}

// isStale applies the event age cutoff. Events without any timestamp pass
// through; the dedup ledger still bounds how often they can alert.
func (d *Dispatcher) isStale(event *domain.TransactionEvent) bool {
	if d.maxEventAge <= 0 {
		return false
	}
	ts := event.EventTime()
	if ts <= 0 {
		return false
	}
	return d.now().Sub(time.Unix(ts, 0)) > d.maxEventAge
}

// persist writes the alert to the history store, when one is configured.
// Failures are logged, never fatal: history is an audit trail, the ledger
// owns suppression.
func (d *Dispatcher) persist(ctx context.Context, res classify.Result) {
	if d.alerts == nil {
		return
	}

	record := &domain.BuyAlert{
		Signature:     res.Signature,
		Wallet:        res.Wallet.Address,
		Label:         res.Wallet.Label,
		Mint:          res.AcquiredMint,
		SpentLamports: res.SpentLamports,
		DexSource:     res.DexSource,
		BlockTime:     res.BlockTime,
		AlertedAt:     d.now().UnixMilli(),
	}

	err := d.alerts.Insert(ctx, record)
	switch {
	case err == nil:
		observability.RecordAlertStored()
	case errors.Is(err, storage.ErrDuplicateKey):
		// Already recorded in a previous run; nothing to do.
	default:
		d.logger.Printf("persist alert failed (sig %s): %v", res.Signature, err)
	}
}

// fetchErrorType buckets fetch errors for metrics labels.
func fetchErrorType(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, helius.ErrMalformedResponse):
		return "malformed"
	default:
		return "upstream"
	}
}
