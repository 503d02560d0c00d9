package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hprow/bnc-anc/internal/domain"
)

func TestDecide_Listing(t *testing.T) {
	tests := []struct {
		name  string
		title string
		bases []string
	}{
		{
			name:  "parenthesized ticker",
			title: "Binance Will List Foo (FOO)",
			bases: []string{"FOO"},
		},
		{
			name:  "usdt pair spelling",
			title: "Binance Futures Will Launch USDⓈ-M FOOUSDT Perpetual Contract",
			bases: []string{"FOO"},
		},
		{
			name:  "multiple tickers",
			title: "Binance Will List Foo (FOO) and Bar (BAR)",
			bases: []string{"BAR", "FOO"},
		},
		{
			name:  "will add trigger",
			title: "Binance Will Add Quux (QUUX) on Earn",
			bases: []string{"QUUX"},
		},
		{
			name:  "will be available trigger",
			title: "Trading for Zed (ZED) will be available shortly",
			bases: []string{"ZED"},
		},
		{
			name:  "paren and pair overlap dedupes",
			title: "Binance Will List Foo (FOO) and open FOOUSDT trading",
			bases: []string{"FOO"},
		},
		{
			name:  "date in parentheses is not a ticker",
			title: "Binance Will List Foo (FOO) (2025-01-01)",
			bases: []string{"FOO"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.title)
			require.Equal(t, domain.KindListing, d.Kind)
			assert.Equal(t, tt.bases, d.Bases)
		})
	}
}

func TestDecide_Delisting(t *testing.T) {
	tests := []struct {
		name  string
		title string
		bases []string
	}{
		{
			name:  "single base with date",
			title: "Binance will delist BAR on 2025-01-01",
			bases: []string{"BAR"},
		},
		{
			name:  "comma separated list",
			title: "Binance Will Delist FOO, BAR and BAZ on 2025-03-01",
			bases: []string{"BAR", "BAZ", "FOO"},
		},
		{
			name:  "quote currencies excluded",
			title: "Binance will delist FOO, USDT on 2025-01-01",
			bases: []string{"FOO"},
		},
		{
			name:  "lowercase tokens are normalized",
			title: "Binance will delist foo on 2025-01-01",
			bases: []string{"FOO"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.title)
			require.Equal(t, domain.KindDelisting, d.Kind)
			assert.Equal(t, tt.bases, d.Bases)
		})
	}
}

func TestDecide_None(t *testing.T) {
	titles := []string{
		"",
		"Some other news",
		"Binance Completes Wallet Maintenance",
		"Notice on system upgrade",
		// trigger phrase but nothing extractable
		"Binance Will List a new asset soon",
	}
	for _, title := range titles {
		d := Decide(title)
		assert.Equal(t, domain.KindNone, d.Kind, "title %q", title)
		assert.Empty(t, d.Bases, "title %q", title)
	}
}

func TestDecide_DelistTakesPrecedence(t *testing.T) {
	// A title carrying both signals is a delisting.
	d := Decide("Binance will delist FOO and will list BAR (BAR)")
	require.Equal(t, domain.KindDelisting, d.Kind)
}

func TestDecide_Idempotent(t *testing.T) {
	title := "Binance Will List Foo (FOO) and Bar (BAR)"
	first := Decide(title)
	second := Decide(title)
	assert.Equal(t, first, second)
}

func TestKindSide(t *testing.T) {
	assert.Equal(t, domain.SideBuy, domain.KindListing.Side())
	assert.Equal(t, domain.SideSell, domain.KindDelisting.Side())
	assert.Equal(t, domain.SideBuy, domain.SideSell.Opposite())
	assert.Equal(t, domain.SideSell, domain.SideBuy.Opposite())
}
