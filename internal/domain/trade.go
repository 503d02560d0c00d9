package domain

import "github.com/shopspring/decimal"

// PositionConfig is the per-(venue, direction) sizing profile.
// Loaded once at startup, never mutated afterwards.
type PositionConfig struct {
	Notional      decimal.Decimal // quote-currency size of the entry
	Leverage      int             // 0 means venue default
	TakeProfitPct decimal.Decimal // percent distance from reference
	StopLossPct   decimal.Decimal // percent distance from reference
}

// TradeRequest is one unit of work for a venue adapter. It is owned
// exclusively by the goroutine executing it.
type TradeRequest struct {
	Symbol   string
	Side     Side
	Position PositionConfig
}

// TradeResult confirms the protective levels a venue accepted.
type TradeResult struct {
	TakeProfit decimal.Decimal
	StopLoss   decimal.Decimal
}

// ContractSpec is venue reference data for one instrument. It is
// fetched fresh before every trade; tick and lot values can change,
// so there is no cross-request cache.
type ContractSpec struct {
	TickSize   decimal.Decimal
	LotSize    int64           // minimum tradable lot count
	Multiplier decimal.Decimal // contract value multiplier, 1 for spot
}
