// Package alert renders classifier output into notification text.
package alert

import (
	"fmt"
	"strings"

	"smart-wallet-tracker/internal/classify"
)

// Telegram parse modes. Empty means plain text.
const (
	ParseModeMarkdown   = "Markdown"
	ParseModeMarkdownV2 = "MarkdownV2"
)

// DefaultExplorerURL is the block explorer prefix for transaction links.
const DefaultExplorerURL = "https://solscan.io/tx/"

const lamportsPerSOL = 1_000_000_000

// Formatter builds the outbound alert message. Pure; no side effects.
type Formatter struct {
	// ParseMode selects the markup dialect. Interpolated values are escaped
	// for MarkdownV2; Markdown has no sane escaping story, values are passed
	// through as the original tracker did.
	ParseMode string

	// ExplorerURL, when non-empty, appends a transaction link.
	ExplorerURL string
}

// NewFormatter returns a formatter with the explorer link enabled.
func NewFormatter(parseMode string) *Formatter {
	return &Formatter{ParseMode: parseMode, ExplorerURL: DefaultExplorerURL}
}

// Format renders a buy result into the alert template:
//
//	🚨 NEW CALL 🚨
//
//	🔹 Wallet: <label>
//	🔹 CA: <mint>
//	🔹 SOL Invested: <amount> SOL
//	🔹 DEX: <source>            (only when known)
//	🔗 View on Solscan          (link, only when enabled)
func (f *Formatter) Format(res classify.Result) string {
	label := res.Wallet.Label
	if label == "" {
		label = ShortAddress(res.Wallet.Address)
	}

	mint := res.AcquiredMint
	if res.Symbol != "" {
		mint = fmt.Sprintf("%s (%s)", res.AcquiredMint, res.Symbol)
	}

	var b strings.Builder
	b.WriteString("🚨 NEW CALL 🚨\n\n")
	fmt.Fprintf(&b, "🔹 Wallet: %s\n", f.escape(label))
	fmt.Fprintf(&b, "🔹 CA: %s\n", f.code(mint))
	fmt.Fprintf(&b, "🔹 SOL Invested: %s SOL", f.escape(FormatSOL(res.SpentLamports)))
	if res.DexSource != "" {
		fmt.Fprintf(&b, "\n🔹 DEX: %s", f.escape(res.DexSource))
	}
	if f.ExplorerURL != "" && res.Signature != "" {
		b.WriteString("\n")
		b.WriteString(f.link("View on Solscan", f.ExplorerURL+res.Signature))
	}
	return b.String()
}

// FormatStartup renders the boot notification.
func (f *Formatter) FormatStartup(walletCount int) string {
	return f.escape(fmt.Sprintf("🤖 Wallet tracker started - monitoring %d wallets", walletCount))
}

// FormatSOL converts lamports to SOL display units with two-decimal rounding.
func FormatSOL(lamports int64) string {
	return fmt.Sprintf("%.2f", float64(lamports)/lamportsPerSOL)
}

// ShortAddress truncates an address for display: first and last four runes.
func ShortAddress(address string) string {
	if len(address) <= 11 {
		return address
	}
	return address[:4] + "..." + address[len(address)-4:]
}

func (f *Formatter) escape(s string) string {
	if f.ParseMode == ParseModeMarkdownV2 {
		return EscapeMarkdownV2(s)
	}
	return s
}

// code renders an inline code span in markdown modes so mints are
// tap-to-copy in Telegram clients.
func (f *Formatter) code(s string) string {
	switch f.ParseMode {
	case ParseModeMarkdownV2:
		return "`" + EscapeMarkdownV2(s) + "`"
	case ParseModeMarkdown:
		return "`" + s + "`"
	default:
		return s
	}
}

func (f *Formatter) link(text, url string) string {
	switch f.ParseMode {
	case ParseModeMarkdownV2:
		return fmt.Sprintf("🔗 [%s](%s)", EscapeMarkdownV2(text), url)
	case ParseModeMarkdown:
		return fmt.Sprintf("🔗 [%s](%s)", text, url)
	default:
		return "🔗 " + url
	}
}

// markdownV2Specials are the characters Telegram's MarkdownV2 dialect treats
// as control characters outside code spans.
const markdownV2Specials = `_*[]()~` + "`" + `>#+-=|{}.!`

// EscapeMarkdownV2 backslash-escapes every MarkdownV2 control character.
func EscapeMarkdownV2(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(markdownV2Specials, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
