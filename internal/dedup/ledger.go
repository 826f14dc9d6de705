// Package dedup suppresses repeat alerts for events already alerted on.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// Policy selects the dedup granularity. The two policies are mutually
// exclusive and fixed per deployment.
type Policy string

const (
	// PerSignature alerts at most once per (signature, wallet). The same
	// wallet buying the same token again in a later transaction alerts again.
	PerSignature Policy = "per-signature"

	// PerMint alerts at most once per (wallet, mint) within the retention
	// window, regardless of signature. Useful when repeat buys of the same
	// token are noise.
	PerMint Policy = "per-mint"
)

// Valid reports whether p is a known policy.
func (p Policy) Valid() bool {
	return p == PerSignature || p == PerMint
}

// Key derives the ledger key for an alert candidate under policy p.
// Keys are SHA256 hex so heterogeneous identifiers cannot collide by
// concatenation.
func Key(p Policy, signature, wallet, mint string) string {
	var data string
	switch p {
	case PerMint:
		data = fmt.Sprintf("mint|%s|%s", wallet, mint)
	default:
		data = fmt.Sprintf("sig|%s|%s", signature, wallet)
	}
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}

// Ledger is the bounded memory of already-alerted keys.
//
// Retention: each key expires TTL after it was marked (per-key expiry), with
// lazy purge on access. A full periodic Clear remains available for the
// legacy retention mode, but per-key expiry is preferred: a full clear
// re-permits alerts for events that are merely old, not new.
type Ledger struct {
	mu      sync.Mutex
	entries map[string]time.Time // key -> expiry deadline; zero time = never
	ttl     time.Duration
	now     func() time.Time
}

// NewLedger creates a ledger with per-key TTL. ttl <= 0 disables per-key
// expiry; entries then live until Clear.
func NewLedger(ttl time.Duration) *Ledger {
	return &Ledger{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Seen reports whether key was marked and has not expired.
func (l *Ledger) Seen(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	deadline, ok := l.entries[key]
	if !ok {
		return false
	}
	if !deadline.IsZero() && l.now().After(deadline) {
		delete(l.entries, key)
		return false
	}
	return true
}

// MarkSeen records key. Re-marking refreshes the expiry deadline.
func (l *Ledger) MarkSeen(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var deadline time.Time
	if l.ttl > 0 {
		deadline = l.now().Add(l.ttl)
	}
	l.entries[key] = deadline
}

// Clear drops all entries.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make(map[string]time.Time)
}

// Purge removes expired entries eagerly and returns how many were dropped.
// Seen already purges lazily; Purge bounds memory for keys never asked
// about again.
func (l *Ledger) Purge() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	dropped := 0
	for key, deadline := range l.entries {
		if !deadline.IsZero() && now.After(deadline) {
			delete(l.entries, key)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of live entries, including not-yet-purged expired
// ones.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
