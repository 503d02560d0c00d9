// Package execution assembles venue adapters from configuration.
package execution

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hprow/bnc-anc/internal/domain"
	"github.com/hprow/bnc-anc/pkg/ticks"
)

// NoopVenue logs what it would trade without calling any exchange.
// In test mode every routed venue is replaced by one of these, so the
// whole pipeline (feed, decision, routing, fan-out, notification)
// runs end to end with zero live orders.
type NoopVenue struct {
	name string
}

// NewNoop wraps a venue name in a dry-run adapter.
func NewNoop(name string) *NoopVenue {
	return &NoopVenue{name: name}
}

func (n *NoopVenue) Name() string { return n.name }

// SymbolFromBase mimics the USDT-quoted symbol form.
func (n *NoopVenue) SymbolFromBase(base string) string {
	return strings.ToUpper(base) + "USDT"
}

// Trade computes the levels a real adapter would submit and logs them.
func (n *NoopVenue) Trade(ctx context.Context, req domain.TradeRequest) (domain.TradeResult, error) {
	ref := decimal.NewFromInt(100) // synthetic reference price
	long := req.Side == domain.SideBuy
	tp, sl := ticks.RawLevels(ref, long, req.Position.TakeProfitPct, req.Position.StopLossPct)

	slog.Info("DRY RUN: would trade",
		"venue", n.name, "symbol", req.Symbol, "side", req.Side,
		"notional", req.Position.Notional.String(),
		"tp", tp.String(), "sl", sl.String())

	return domain.TradeResult{TakeProfit: tp, StopLoss: sl}, nil
}

func (n *NoopVenue) Close() error { return nil }
