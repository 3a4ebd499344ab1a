// Package structural provides the default implementation of the
// structural-context source: zig-zag pivots with an ATR-scaled reversal
// threshold, ABC fibonacci projections and two-level support/resistance
// distances. Any other implementation honoring the bounded-scalar output
// contract can be swapped in.
package structural

import (
	"sort"

	"github.com/markcheno/go-talib"

	"TradeForge/internal/domain/models"
	"TradeForge/internal/domain/repository"
)

const (
	atrPeriod      = 14
	reversalATRs   = 3.0
	distanceClip   = 50.0
	adxPeriod      = 14
	lowVolRegime   = 0.010
	midVolRegime   = 0.025
	trendFloorADX  = 20.0
	trendRangeADX  = 20.0
)

type pivotKind byte

const (
	pivotHigh pivotKind = 'H'
	pivotLow  pivotKind = 'L'
)

type pivot struct {
	kind  pivotKind
	price float64
}

// ZigZagSource derives structural context from bar history alone.
type ZigZagSource struct{}

var _ repository.StructuralSource = (*ZigZagSource)(nil)

func NewZigZagSource() *ZigZagSource { return &ZigZagSource{} }

// Context computes the structural features for history[index]. Distances
// are in ATR units, clipped to +/-50; regime scalars are in [0,1].
func (s *ZigZagSource) Context(bars []models.Bar, index int) models.StructuralContext {
	var sc models.StructuralContext
	if index < 0 || index >= len(bars) || index < atrPeriod {
		return sc
	}

	n := index + 1
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	for i := 0; i < n; i++ {
		closes[i] = bars[i].Close
		highs[i] = bars[i].High
		lows[i] = bars[i].Low
	}

	atrs := talib.Atr(highs, lows, closes, atrPeriod)
	atr := atrs[index]
	if atr <= 0 {
		return sc
	}
	close := closes[index]

	pivots := walkPivots(closes, atrs)

	// Support/resistance: nearest pivot levels below and above price.
	levels := make([]float64, 0, len(pivots))
	for _, p := range pivots {
		levels = append(levels, p.price)
	}
	sort.Float64s(levels)
	var supports, resistances []float64
	for _, lv := range levels {
		if lv < close {
			supports = append(supports, lv)
		} else if lv > close {
			resistances = append(resistances, lv)
		}
	}
	if len(supports) >= 1 {
		sc.Support1Dist = clip((close - supports[len(supports)-1]) / atr)
	}
	if len(supports) >= 2 {
		sc.Support2Dist = clip((close - supports[len(supports)-2]) / atr)
	}
	if len(resistances) >= 1 {
		sc.Resistance1Dist = clip((resistances[0] - close) / atr)
	}
	if len(resistances) >= 2 {
		sc.Resistance2Dist = clip((resistances[1] - close) / atr)
	}

	// Fibonacci projections require a completed ABC swing.
	if len(pivots) >= 3 {
		a, b, c := pivots[len(pivots)-3], pivots[len(pivots)-2], pivots[len(pivots)-1]
		r := b.price - a.price
		if r < 0 {
			r = -r
		}
		if r > 0 {
			switch {
			case a.kind == pivotLow && b.kind == pivotHigh && c.kind == pivotLow:
				sc.FibExt127 = clip((c.price + r*1.272 - close) / atr)
				sc.FibExt161 = clip((c.price + r*1.618 - close) / atr)
				sc.FibExt200 = clip((c.price + r*2.0 - close) / atr)
				sc.FibRet382 = clip((close - (b.price - r*0.382)) / atr)
				sc.FibRet500 = clip((close - (b.price - r*0.5)) / atr)
				sc.FibRet618 = clip((close - (b.price - r*0.618)) / atr)
			case a.kind == pivotHigh && b.kind == pivotLow && c.kind == pivotHigh:
				sc.FibExt127 = clip((c.price - r*1.272 - close) / atr)
				sc.FibExt161 = clip((c.price - r*1.618 - close) / atr)
				sc.FibExt200 = clip((c.price - r*2.0 - close) / atr)
				sc.FibRet382 = clip((close - (b.price + r*0.382)) / atr)
				sc.FibRet500 = clip((close - (b.price + r*0.5)) / atr)
				sc.FibRet618 = clip((close - (b.price + r*0.618)) / atr)
			}
		}
	}

	// Volatility regime buckets and trend-regime scalar.
	atrNorm := atr / close
	switch {
	case atrNorm < lowVolRegime:
		sc.VolRegime = 0
	case atrNorm < midVolRegime:
		sc.VolRegime = 1
	default:
		sc.VolRegime = 2
	}
	if index >= 2*adxPeriod-1 {
		adx := talib.Adx(highs, lows, closes, adxPeriod)[index]
		sc.RegimeTrending = clamp01((adx - trendFloorADX) / trendRangeADX)
	}

	return sc
}

// walkPivots replays the zig-zag over the whole prefix. A reversal is
// confirmed once price moves reversalATRs*ATR away from the running
// extreme.
func walkPivots(closes, atrs []float64) []pivot {
	pivots := make([]pivot, 0, 8)
	direction := 0
	last := closes[0]

	for i := range closes {
		c := closes[i]
		atr := atrs[i]
		if atr <= 0 && i > 0 {
			atr = atrs[i-1]
		}
		if atr <= 0 {
			atr = 1e-6
		}
		rev := reversalATRs * atr

		switch {
		case direction == 0:
			if c > last+rev {
				direction = 1
				last = c
			} else if c < last-rev {
				direction = -1
				last = c
			}
		case direction > 0:
			if c > last {
				last = c
			} else if last-c > rev {
				pivots = appendPivot(pivots, pivot{kind: pivotHigh, price: last})
				direction = -1
				last = c
			}
		default:
			if c < last {
				last = c
			} else if c-last > rev {
				pivots = appendPivot(pivots, pivot{kind: pivotLow, price: last})
				direction = 1
				last = c
			}
		}
	}
	return pivots
}

// appendPivot collapses consecutive pivots of the same kind, keeping the
// most recent extreme.
func appendPivot(pivots []pivot, p pivot) []pivot {
	if len(pivots) > 0 && pivots[len(pivots)-1].kind == p.kind {
		pivots[len(pivots)-1] = p
		return pivots
	}
	return append(pivots, p)
}

func clip(x float64) float64 {
	if x > distanceClip {
		return distanceClip
	}
	if x < -distanceClip {
		return -distanceClip
	}
	return x
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
