package domain

import "context"

// Venue is the capability interface every downstream exchange adapter
// implements. Adapters own their credentials and connections.
type Venue interface {
	// Name identifies the venue in config routing and notifications.
	Name() string

	// SymbolFromBase maps a base ticker to the venue-native symbol.
	// Pure string mapping, no I/O.
	SymbolFromBase(base string) string

	// Trade opens a market position protected by take-profit and
	// stop-loss triggers and returns the accepted trigger prices.
	Trade(ctx context.Context, req TradeRequest) (TradeResult, error)

	// Close releases network resources. Safe to call once at shutdown.
	Close() error
}
