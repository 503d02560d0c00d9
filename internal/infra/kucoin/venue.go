// Package kucoin implements the KuCoin futures venue adapter. KuCoin
// supports a native bracket order: a single st-orders call carries the
// market entry and both protective triggers, so no fill watcher is
// needed on this venue.
package kucoin

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hprow/bnc-anc/internal/decision"
	"github.com/hprow/bnc-anc/internal/domain"
	"github.com/hprow/bnc-anc/internal/infra"
	"github.com/hprow/bnc-anc/pkg/ticks"
)

// Venue is the bracket-order KuCoin futures adapter.
type Venue struct {
	client        *Client
	stopPriceType string
	marginMode    string
	minTicksGap   int64
}

// New builds the adapter from config.
func New(cfg *infra.Config) *Venue {
	kc := cfg.Venues.KuCoin
	signer := NewSigner(kc.AccessKey, kc.SecretKey, kc.Passphrase, kc.KeyVersion)
	return &Venue{
		client:        NewClient(kc.RestURL, signer),
		stopPriceType: cfg.Trading.StopPriceType,
		marginMode:    cfg.Trading.MarginMode,
		minTicksGap:   cfg.Trading.MinTicksGap,
	}
}

func (v *Venue) Name() string { return infra.VenueKuCoin }

// SymbolFromBase maps a base ticker to the USDT-margined perpetual
// symbol. BTC trades as XBT on this venue.
func (v *Venue) SymbolFromBase(base string) string {
	base = strings.ToUpper(base)
	if alias, ok := decision.BTCAlias[base]; ok {
		base = alias
	}
	return base + "USDTM"
}

// Close releases network resources and wipes credentials.
func (v *Venue) Close() error {
	return v.client.Close()
}

// Trade opens a protected market position:
//
//  1. fetch the contract spec (tick, lot, multiplier) fresh;
//  2. fetch the configured reference price;
//  3. compute and tick-round the protective levels;
//  4. submit one bracket order sized by notional;
//  5. on a sizing rejection, recompute as integer lots and resubmit
//     once; any other rejection propagates unchanged.
func (v *Venue) Trade(ctx context.Context, req domain.TradeRequest) (domain.TradeResult, error) {
	spec, err := v.getContract(ctx, req.Symbol)
	if err != nil {
		return domain.TradeResult{}, fmt.Errorf("contract spec: %w", err)
	}

	ref, err := v.referencePrice(ctx, req.Symbol)
	if err != nil {
		return domain.TradeResult{}, fmt.Errorf("reference price: %w", err)
	}

	long := req.Side == domain.SideBuy
	tp, sl := ticks.ProtectiveLevels(ref, spec.TickSize, long, req.Position.TakeProfitPct, req.Position.StopLossPct, v.minTicksGap)

	order := stOrderRequest{
		ClientOid:     uuid.NewString(),
		Side:          string(req.Side),
		Symbol:        req.Symbol,
		Type:          "market",
		MarginMode:    v.marginMode,
		Leverage:      req.Position.Leverage,
		ValueQty:      req.Position.Notional.String(),
		StopPriceType: v.stopPriceType,
	}
	if long {
		order.TriggerStopUpPrice = tp.String()
		order.TriggerStopDownPrice = sl.String()
	} else {
		order.TriggerStopUpPrice = sl.String()
		order.TriggerStopDownPrice = tp.String()
	}

	_, err = v.client.Do(ctx, "POST", stOrdersPath, nil, order)
	if err == nil {
		return domain.TradeResult{TakeProfit: tp, StopLoss: sl}, nil
	}
	if !isSizingRejection(err) {
		return domain.TradeResult{}, err
	}

	// Notional sizing rejected: fall back to integer lots.
	lots := ticks.FloorLots(req.Position.Notional, ref, spec.Multiplier)
	if lots < spec.LotSize {
		return domain.TradeResult{}, &domain.SizingError{Symbol: req.Symbol, Lots: lots, MinLots: spec.LotSize}
	}
	slog.Warn("KuCoin rejected notional sizing, retrying with lots",
		"symbol", req.Symbol, "lots", lots, "err", err)

	order.ClientOid = uuid.NewString()
	order.ValueQty = ""
	order.Size = lots
	if _, err := v.client.Do(ctx, "POST", stOrdersPath, nil, order); err != nil {
		return domain.TradeResult{}, err
	}

	return domain.TradeResult{TakeProfit: tp, StopLoss: sl}, nil
}

func (v *Venue) getContract(ctx context.Context, symbol string) (domain.ContractSpec, error) {
	raw, err := v.client.Do(ctx, "GET", contractDetailPath+symbol, nil, nil)
	if err != nil {
		return domain.ContractSpec{}, err
	}
	var d contractDetail
	if err := unmarshal(raw, &d); err != nil {
		return domain.ContractSpec{}, err
	}

	tick, err := decimal.NewFromString(d.TickSize.String())
	if err != nil {
		return domain.ContractSpec{}, fmt.Errorf("bad tickSize %q", d.TickSize)
	}
	mult, err := decimal.NewFromString(d.Multiplier.String())
	if err != nil {
		return domain.ContractSpec{}, fmt.Errorf("bad multiplier %q", d.Multiplier)
	}
	lot, err := d.LotSize.Int64()
	if err != nil {
		return domain.ContractSpec{}, fmt.Errorf("bad lotSize %q", d.LotSize)
	}

	return domain.ContractSpec{TickSize: tick, LotSize: lot, Multiplier: mult}, nil
}

// referencePrice fetches the configured price basis: mark price (MP),
// last trade price (TP) or index price (IP).
func (v *Venue) referencePrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	switch v.stopPriceType {
	case infra.RefTrade:
		q := url.Values{"symbol": {symbol}}
		raw, err := v.client.Do(ctx, "GET", tickerPath, q, nil)
		if err != nil {
			return decimal.Zero, err
		}
		var t tickerData
		if err := unmarshal(raw, &t); err != nil {
			return decimal.Zero, err
		}
		for _, n := range []string{t.Price.String(), t.LastTradedPrice.String(), t.IndexPrice.String()} {
			if px, err := decimal.NewFromString(n); err == nil && px.Sign() > 0 {
				return px, nil
			}
		}
		return decimal.Zero, fmt.Errorf("no usable last price for %s", symbol)

	default: // RefMark, RefIndex
		raw, err := v.client.Do(ctx, "GET", fmt.Sprintf(markPricePath, symbol), nil, nil)
		if err != nil {
			return decimal.Zero, err
		}
		var m markPriceData
		if err := unmarshal(raw, &m); err != nil {
			return decimal.Zero, err
		}
		n := m.Value
		if v.stopPriceType == infra.RefIndex {
			n = m.IndexPrice
		}
		px, err := decimal.NewFromString(n.String())
		if err != nil || px.Sign() <= 0 {
			return decimal.Zero, fmt.Errorf("no usable %s price for %s", v.stopPriceType, symbol)
		}
		return px, nil
	}
}
