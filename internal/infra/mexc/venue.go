// Package mexc implements the MEXC spot venue adapter. Spot has no
// bracket order, so a trade is three requests: a market entry, then a
// take-profit limit and a stop-loss limit on the opposite side. The
// two protective orders are linked in the pair registry and a private
// order stream cancels the survivor when either leg terminates.
package mexc

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hprow/bnc-anc/internal/domain"
	"github.com/hprow/bnc-anc/internal/infra"
	"github.com/hprow/bnc-anc/pkg/ticks"
)

// Fill poll defaults: entry orders are market orders, so the fill is
// usually visible on the first query. The bound keeps a venue outage
// from pinning a trade goroutine forever.
const (
	defaultPollAttempts = 10
	defaultPollDelay    = 300 * time.Millisecond
)

// Venue is the split-order MEXC spot adapter.
type Venue struct {
	client      *Client
	pairs       *PairRegistry
	watcher     *FillWatcher
	minTicksGap int64

	// Overridable in tests; zero values fall back to the defaults.
	pollAttempts int
	pollDelay    time.Duration

	runCtx  context.Context
	runStop context.CancelFunc
}

// New builds the adapter from config. notify receives watcher failure
// reports and may be nil.
func New(cfg *infra.Config, notify func(string)) *Venue {
	mx := cfg.Venues.Mexc
	client := NewClient(mx.RestURL, NewSigner(mx.AccessKey, mx.SecretKey))
	pairs := NewPairRegistry()

	// The watcher outlives any single trade, so it runs on its own
	// context, torn down in Close.
	runCtx, runStop := context.WithCancel(context.Background())

	return &Venue{
		client:       client,
		pairs:        pairs,
		watcher:      NewFillWatcher(client, mx.WSURL, pairs, notify),
		minTicksGap:  cfg.Trading.MinTicksGap,
		pollAttempts: defaultPollAttempts,
		pollDelay:    defaultPollDelay,
		runCtx:       runCtx,
		runStop:      runStop,
	}
}

func (v *Venue) Name() string { return infra.VenueMexc }

// SymbolFromBase maps a base ticker to the USDT spot pair.
func (v *Venue) SymbolFromBase(base string) string {
	return strings.ToUpper(base) + "USDT"
}

// Close stops the watcher, releases network resources and wipes
// credentials.
func (v *Venue) Close() error {
	v.runStop()
	v.watcher.Stop()
	return v.client.Close()
}

// Trade opens a protected spot position:
//
//  1. fetch the symbol's precision data and derive its tick grid;
//  2. place a market entry sized by quote notional;
//  3. poll the order until fill price and quantity are known;
//  4. place a take-profit limit and a stop-loss limit on the opposite
//     side, link them in the pair registry.
//
// Any failure after the entry filled is a PartialExecutionError: the
// position exists but is not (fully) protected.
func (v *Venue) Trade(ctx context.Context, req domain.TradeRequest) (domain.TradeResult, error) {
	v.watcher.Ensure(v.runCtx)

	spec, err := v.getSpec(ctx, req.Symbol)
	if err != nil {
		return domain.TradeResult{}, fmt.Errorf("symbol spec: %w", err)
	}

	entryID, err := v.placeEntry(ctx, req)
	if err != nil {
		return domain.TradeResult{}, fmt.Errorf("entry order: %w", err)
	}

	entryPx, qty, err := v.awaitFill(ctx, req.Symbol, entryID)
	if err != nil {
		return domain.TradeResult{}, &domain.PartialExecutionError{
			Venue: v.Name(), Symbol: req.Symbol, Cause: err,
		}
	}

	long := req.Side == domain.SideBuy
	tp, sl := ticks.ProtectiveLevels(entryPx, spec.tick, long, req.Position.TakeProfitPct, req.Position.StopLossPct, v.minTicksGap)
	qty = qty.Truncate(spec.basePrecision)
	exit := req.Side.Opposite()

	tpID, err := v.placeProtective(ctx, req.Symbol, exit, "TAKE_PROFIT_LIMIT", tp, qty)
	if err != nil {
		return domain.TradeResult{}, &domain.PartialExecutionError{
			Venue: v.Name(), Symbol: req.Symbol,
			Cause: fmt.Errorf("take-profit order: %w", err),
		}
	}

	slID, err := v.placeProtective(ctx, req.Symbol, exit, "STOP_LOSS_LIMIT", sl, qty)
	if err != nil {
		// The TP leg stands alone; cancelling it would leave the
		// position fully naked, so it stays in place.
		return domain.TradeResult{}, &domain.PartialExecutionError{
			Venue: v.Name(), Symbol: req.Symbol,
			Cause: fmt.Errorf("stop-loss order (take-profit %s active): %w", tpID, err),
		}
	}

	v.pairs.Add(tpID, slID)
	slog.Info("Protective pair placed",
		"symbol", req.Symbol, "tp", tp.String(), "sl", sl.String(),
		"tpOrder", tpID, "slOrder", slID)

	return domain.TradeResult{TakeProfit: tp, StopLoss: sl}, nil
}

// symbolSpec is the per-symbol precision data. Spot reports decimal
// precisions rather than explicit steps; the tick is 10^-quote.
type symbolSpec struct {
	tick          decimal.Decimal
	basePrecision int32
}

func (v *Venue) getSpec(ctx context.Context, symbol string) (symbolSpec, error) {
	q := url.Values{"symbol": {symbol}}
	raw, err := v.client.Do(ctx, "GET", exchangeInfoPath, q, false)
	if err != nil {
		return symbolSpec{}, err
	}

	var info exchangeInfoResponse
	if err := jsonUnmarshal(raw, &info); err != nil {
		return symbolSpec{}, err
	}
	for _, s := range info.Symbols {
		if s.Symbol == symbol {
			return symbolSpec{
				tick:          decimal.New(1, -s.QuotePrecision),
				basePrecision: s.BaseAssetPrecision,
			}, nil
		}
	}
	return symbolSpec{}, fmt.Errorf("symbol %s not found in exchange info", symbol)
}

func (v *Venue) placeEntry(ctx context.Context, req domain.TradeRequest) (string, error) {
	params := url.Values{
		"symbol":           {req.Symbol},
		"side":             {strings.ToUpper(string(req.Side))},
		"type":             {"MARKET"},
		"quoteOrderQty":    {req.Position.Notional.String()},
		"newClientOrderId": {uuid.NewString()},
	}
	raw, err := v.client.Do(ctx, "POST", orderPath, params, true)
	if err != nil {
		return "", err
	}

	var resp orderResponse
	if err := jsonUnmarshal(raw, &resp); err != nil {
		return "", err
	}
	if resp.OrderID.String() == "" {
		return "", fmt.Errorf("no order id in reply")
	}
	return resp.OrderID.String(), nil
}

// awaitFill polls the entry order until both the average fill price
// and executed quantity are known. The poll is bounded; exhaustion
// surfaces as the missing-field sentinel, not a generic timeout, so
// the caller can tell what stayed unknown.
func (v *Venue) awaitFill(ctx context.Context, symbol, orderID string) (px, qty decimal.Decimal, err error) {
	attempts := v.pollAttempts
	if attempts <= 0 {
		attempts = defaultPollAttempts
	}
	delay := v.pollDelay
	if delay <= 0 {
		delay = defaultPollDelay
	}

	sawPrice := false
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return decimal.Zero, decimal.Zero, ctx.Err()
			case <-time.After(delay):
			}
		}

		params := url.Values{"symbol": {symbol}, "orderId": {orderID}}
		raw, err := v.client.Do(ctx, "GET", orderPath, params, true)
		if err != nil {
			slog.Warn("Entry fill query failed", "symbol", symbol, "order", orderID, "err", err)
			continue
		}
		var resp orderResponse
		if err := jsonUnmarshal(raw, &resp); err != nil {
			continue
		}

		entryPx, okPx := resp.entryPrice()
		if okPx {
			sawPrice = true
		}
		executed, okQty := resp.ExecutedQty.Decimal()
		if okPx && okQty && executed.Sign() > 0 {
			return entryPx, executed, nil
		}
	}

	// Report the field that never materialized.
	if sawPrice {
		return decimal.Zero, decimal.Zero, domain.ErrPositionSizeNotFound
	}
	return decimal.Zero, decimal.Zero, domain.ErrEntryPriceNotFound
}

func (v *Venue) placeProtective(ctx context.Context, symbol string, side domain.Side, orderType string, trigger, qty decimal.Decimal) (string, error) {
	if qty.Sign() <= 0 {
		return "", domain.ErrPositionSizeNotFound
	}

	params := url.Values{
		"symbol":           {symbol},
		"side":             {strings.ToUpper(string(side))},
		"type":             {orderType},
		"quantity":         {qty.String()},
		"price":            {trigger.String()},
		"stopPrice":        {trigger.String()},
		"timeInForce":      {"GTC"},
		"newClientOrderId": {uuid.NewString()},
	}
	raw, err := v.client.Do(ctx, "POST", orderPath, params, true)
	if err != nil {
		return "", err
	}

	var resp orderResponse
	if err := jsonUnmarshal(raw, &resp); err != nil {
		return "", err
	}
	if resp.OrderID.String() == "" {
		return "", fmt.Errorf("no order id in reply")
	}
	return resp.OrderID.String(), nil
}
