// Package ticks implements exchange price-grid arithmetic: rounding
// prices onto an instrument's tick grid and deriving protective
// trigger levels from a reference price.
//
// All math is decimal. Float64 is never used for prices; binary
// rounding on small tick sizes produces off-grid prices that venues
// reject.
package ticks

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// RoundUpToTick rounds px up to the next multiple of tick.
// A non-positive tick returns px unchanged.
func RoundUpToTick(px, tick decimal.Decimal) decimal.Decimal {
	if tick.Sign() <= 0 {
		return px
	}
	return px.Div(tick).Ceil().Mul(tick)
}

// RoundDownToTick rounds px down to the previous multiple of tick.
func RoundDownToTick(px, tick decimal.Decimal) decimal.Decimal {
	if tick.Sign() <= 0 {
		return px
	}
	return px.Div(tick).Floor().Mul(tick)
}

// RawLevels computes the unrounded take-profit and stop-loss prices for
// a position entered at ref. For a long, TP sits above and SL below;
// for a short the two are mirrored.
func RawLevels(ref decimal.Decimal, long bool, tpPct, slPct decimal.Decimal) (tp, sl decimal.Decimal) {
	tpFrac := tpPct.Div(hundred)
	slFrac := slPct.Div(hundred)
	if long {
		tp = ref.Mul(decimal.NewFromInt(1).Add(tpFrac))
		sl = ref.Mul(decimal.NewFromInt(1).Sub(slFrac))
		return tp, sl
	}
	tp = ref.Mul(decimal.NewFromInt(1).Sub(tpFrac))
	sl = ref.Mul(decimal.NewFromInt(1).Add(slFrac))
	return tp, sl
}

// ProtectiveLevels computes the final tick-rounded TP/SL pair.
//
// Rounding is always away from the reference: the level above ref
// rounds up, the level below rounds down. If a rounded level lands
// closer than minGap ticks to ref, it is pushed to exactly minGap
// ticks past ref on its own side, re-rounded away. The result holds
//
//	long:  tp >= ref + minGap*tick, sl <= ref - minGap*tick
//	short: tp <= ref - minGap*tick, sl >= ref + minGap*tick
func ProtectiveLevels(ref, tick decimal.Decimal, long bool, tpPct, slPct decimal.Decimal, minGap int64) (tp, sl decimal.Decimal) {
	rawTP, rawSL := RawLevels(ref, long, tpPct, slPct)
	gap := tick.Mul(decimal.NewFromInt(minGap))

	if long {
		tp = clampAbove(RoundUpToTick(rawTP, tick), ref, tick, gap)
		sl = clampBelow(RoundDownToTick(rawSL, tick), ref, tick, gap)
		return tp, sl
	}
	tp = clampBelow(RoundDownToTick(rawTP, tick), ref, tick, gap)
	sl = clampAbove(RoundUpToTick(rawSL, tick), ref, tick, gap)
	return tp, sl
}

func clampAbove(level, ref, tick, gap decimal.Decimal) decimal.Decimal {
	floor := ref.Add(gap)
	if level.Cmp(floor) < 0 {
		return RoundUpToTick(floor, tick)
	}
	return level
}

func clampBelow(level, ref, tick, gap decimal.Decimal) decimal.Decimal {
	ceil := ref.Sub(gap)
	if level.Cmp(ceil) > 0 {
		return RoundDownToTick(ceil, tick)
	}
	return level
}

// FloorLots converts a notional into a whole contract count at the
// given reference price and contract multiplier. Used when a venue
// rejects notional sizing and wants integer lots instead.
func FloorLots(notional, ref, multiplier decimal.Decimal) int64 {
	if ref.Sign() <= 0 || multiplier.Sign() <= 0 {
		return 0
	}
	return notional.Div(ref.Mul(multiplier)).Floor().IntPart()
}
