package ticks

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestRoundToTick(t *testing.T) {
	tests := []struct {
		px, tick string
		up, down string
	}{
		{"100.123", "0.01", "100.13", "100.12"},
		{"100.12", "0.01", "100.12", "100.12"}, // already on grid
		{"0.070707", "0.0001", "0.0708", "0.0707"},
		{"12345", "5", "12345", "12345"},
		{"12346", "5", "12350", "12345"},
		{"1.5", "0", "1.5", "1.5"}, // degenerate tick passes through
	}

	for _, tt := range tests {
		up := RoundUpToTick(dec(tt.px), dec(tt.tick))
		down := RoundDownToTick(dec(tt.px), dec(tt.tick))
		assert.True(t, up.Equal(dec(tt.up)), "up(%s, %s) = %s", tt.px, tt.tick, up)
		assert.True(t, down.Equal(dec(tt.down)), "down(%s, %s) = %s", tt.px, tt.tick, down)
	}
}

func TestRawLevels(t *testing.T) {
	ref := dec("100")

	tp, sl := RawLevels(ref, true, dec("1.0"), dec("0.6"))
	assert.True(t, tp.Equal(dec("101")), "long tp = %s", tp)
	assert.True(t, sl.Equal(dec("99.4")), "long sl = %s", sl)

	tp, sl = RawLevels(ref, false, dec("1.0"), dec("0.6"))
	assert.True(t, tp.Equal(dec("99")), "short tp = %s", tp)
	assert.True(t, sl.Equal(dec("100.6")), "short sl = %s", sl)
}

// TestProtectiveLevels_RoundingLaw verifies the invariant the whole
// bracket construction rests on: protective levels always sit at least
// minGap ticks beyond the reference on the correct side.
func TestProtectiveLevels_RoundingLaw(t *testing.T) {
	refs := []string{"100", "0.07077", "23451.5", "0.000123"}
	tickSizes := []string{"0.01", "0.0001", "0.5", "0.000001"}
	pcts := []string{"1.0", "0.6", "0.01"}

	for _, r := range refs {
		for _, ts := range tickSizes {
			for _, p := range pcts {
				ref, tick, pct := dec(r), dec(ts), dec(p)
				gap := tick // minGap = 1

				tp, sl := ProtectiveLevels(ref, tick, true, pct, pct, 1)
				assert.True(t, tp.Sub(ref).Cmp(gap) >= 0,
					"long tp %s not %s above ref %s (tick %s pct %s)", tp, gap, ref, tick, pct)
				assert.True(t, ref.Sub(sl).Cmp(gap) >= 0,
					"long sl %s not %s below ref %s (tick %s pct %s)", sl, gap, ref, tick, pct)

				tp, sl = ProtectiveLevels(ref, tick, false, pct, pct, 1)
				assert.True(t, ref.Sub(tp).Cmp(gap) >= 0,
					"short tp %s not %s below ref %s", tp, gap, ref)
				assert.True(t, sl.Sub(ref).Cmp(gap) >= 0,
					"short sl %s not %s above ref %s", sl, gap, ref)
			}
		}
	}
}

func TestProtectiveLevels_GapClamp(t *testing.T) {
	// A tiny percentage with a coarse tick collapses onto the
	// reference after rounding; the clamp must push it out again.
	ref := dec("100")
	tick := dec("0.5")

	tp, sl := ProtectiveLevels(ref, tick, true, dec("0.01"), dec("0.01"), 3)
	require.True(t, tp.Equal(dec("101.5")), "tp = %s", tp)
	require.True(t, sl.Equal(dec("98.5")), "sl = %s", sl)
}

func TestProtectiveLevels_OnGrid(t *testing.T) {
	ref := dec("23451.7")
	tick := dec("0.1")
	tp, sl := ProtectiveLevels(ref, tick, true, dec("1.0"), dec("0.6"), 1)

	assert.True(t, tp.Mod(tick).IsZero(), "tp %s off grid", tp)
	assert.True(t, sl.Mod(tick).IsZero(), "sl %s off grid", sl)
}

func TestFloorLots(t *testing.T) {
	tests := []struct {
		notional, ref, mult string
		want                int64
	}{
		{"100", "2.5", "1", 40},
		{"100", "3", "1", 33},
		{"100", "0.07", "10", 142},
		{"1", "50000", "1", 0},
		{"100", "0", "1", 0}, // degenerate reference
	}
	for _, tt := range tests {
		got := FloorLots(dec(tt.notional), dec(tt.ref), dec(tt.mult))
		assert.Equal(t, tt.want, got, "FloorLots(%s, %s, %s)", tt.notional, tt.ref, tt.mult)
	}
}
