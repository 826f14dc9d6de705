package alert

import (
	"strings"
	"testing"

	"smart-wallet-tracker/internal/classify"
	"smart-wallet-tracker/internal/domain"
)

func buyResult() classify.Result {
	return classify.Result{
		Buy:           true,
		Wallet:        domain.WatchedWallet{Address: "WalletAlpha1234567890", Label: "Alpha"},
		AcquiredMint:  "TOKEN1",
		SpentLamports: 2_000_000_000,
		Signature:     "Sig1",
	}
}

func TestFormatSOL(t *testing.T) {
	tests := []struct {
		lamports int64
		want     string
	}{
		{1_500_000_000, "1.50"},
		{2_000_000_000, "2.00"},
		{0, "0.00"},
		{123_456_789, "0.12"},
		{10_000_000, "0.01"},
	}

	for _, tt := range tests {
		if got := FormatSOL(tt.lamports); got != tt.want {
			t.Errorf("FormatSOL(%d) = %q, want %q", tt.lamports, got, tt.want)
		}
	}
}

func TestFormat_ContainsCoreFields(t *testing.T) {
	f := NewFormatter("")
	msg := f.Format(buyResult())

	for _, want := range []string{"Alpha", "TOKEN1", "2.00"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
	if !strings.Contains(msg, DefaultExplorerURL+"Sig1") {
		t.Errorf("message missing explorer link:\n%s", msg)
	}
}

func TestFormat_LabelFallbackToShortAddress(t *testing.T) {
	f := NewFormatter("")
	res := buyResult()
	res.Wallet.Label = ""

	msg := f.Format(res)
	if !strings.Contains(msg, "Wall...7890") {
		t.Errorf("expected truncated address fallback:\n%s", msg)
	}
}

func TestFormat_DexSourceLine(t *testing.T) {
	f := NewFormatter("")

	res := buyResult()
	if strings.Contains(f.Format(res), "DEX:") {
		t.Error("DEX line must be absent when source is unknown")
	}

	res.DexSource = "RAYDIUM"
	if !strings.Contains(f.Format(res), "DEX: RAYDIUM") {
		t.Error("DEX line must be present when source is known")
	}
}

func TestFormat_SymbolEnrichment(t *testing.T) {
	f := NewFormatter("")
	res := buyResult()
	res.Symbol = "TKN"

	if !strings.Contains(f.Format(res), "TOKEN1 (TKN)") {
		t.Error("symbol must be appended to the mint when known")
	}
}

func TestFormat_MarkdownV2Escaping(t *testing.T) {
	f := NewFormatter(ParseModeMarkdownV2)
	res := buyResult()
	res.Wallet.Label = "Alpha_One!"

	msg := f.Format(res)
	if !strings.Contains(msg, `Alpha\_One\!`) {
		t.Errorf("label must be escaped for MarkdownV2:\n%s", msg)
	}
	// The amount's decimal point is a MarkdownV2 control character too.
	if !strings.Contains(msg, `2\.00`) {
		t.Errorf("amount must be escaped for MarkdownV2:\n%s", msg)
	}
}

func TestEscapeMarkdownV2(t *testing.T) {
	got := EscapeMarkdownV2("a.b-c(d)e")
	want := `a\.b\-c\(d\)e`
	if got != want {
		t.Errorf("EscapeMarkdownV2 = %q, want %q", got, want)
	}

	if EscapeMarkdownV2("plain") != "plain" {
		t.Error("plain text must pass through unchanged")
	}
}

func TestShortAddress(t *testing.T) {
	if got := ShortAddress("abcdefghijklmnop"); got != "abcd...mnop" {
		t.Errorf("ShortAddress = %q", got)
	}
	if got := ShortAddress("short"); got != "short" {
		t.Errorf("short input must pass through, got %q", got)
	}
}
