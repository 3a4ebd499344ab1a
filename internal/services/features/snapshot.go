package features

import (
	"math"

	"github.com/markcheno/go-talib"

	"TradeForge/internal/domain/models"
)

const phaseSlopeEpsilon = 1e-3

// Snapshot builds the indicator snapshot backing one decision at index.
// Like Extract it is pure and degrades to zero values when the history
// is too short for an indicator.
func Snapshot(history []models.Bar, index int) models.IndicatorSnapshot {
	var snap models.IndicatorSnapshot
	if index < 0 || index >= len(history) {
		return snap
	}

	n := index + 1
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	volumes := make([]float64, n)
	for i := 0; i < n; i++ {
		closes[i] = history[i].Close
		highs[i] = history[i].High
		lows[i] = history[i].Low
		volumes[i] = history[i].Volume
	}

	if index >= emaTrendPeriod-1 {
		snap.EMA50 = talib.Ema(closes, emaTrendPeriod)[index]
	}
	if index >= macdSlowPeriod+macdSignalPeriod-2 {
		macd, signal, hist := talib.Macd(closes, macdFastPeriod, macdSlowPeriod, macdSignalPeriod)
		snap.MACD = macd[index]
		snap.MACDSignal = signal[index]
		snap.MACDHist = hist[index]
	}
	if index >= atrPeriod {
		snap.ATR = talib.Atr(highs, lows, closes, atrPeriod)[index]
	}
	if index >= 1 {
		snap.OBV = talib.Obv(closes, volumes)[index]
	}
	if index >= bollPeriod-1 {
		upper, middle, lower := talib.BBands(closes, bollPeriod, 2.0, 2.0, talib.SMA)
		snap.BollUpper = upper[index]
		snap.BollMiddle = middle[index]
		snap.BollLower = lower[index]
		if width := upper[index] - lower[index]; width > 0 {
			snap.BollPos = (closes[index]-lower[index])/width*2 - 1
		}
	}

	// Market-phase flags from MA50 and its one-bar slope.
	if index >= emaTrendPeriod {
		ma := talib.Sma(closes, emaTrendPeriod)
		slope := ma[index] - ma[index-1]
		above := closes[index] > ma[index]
		switch {
		case !above && math.Abs(slope) < phaseSlopeEpsilon:
			snap.Accumulation = true
		case above && slope > 0:
			snap.Advancing = true
		case above && slope < 0:
			snap.Distribution = true
		case !above && slope < 0:
			snap.Declining = true
		}
	}

	snap.TrendSignal = trendSignal(closes, highs, lows, index)
	return snap
}

// trendSignal combines EMA position, MACD sign and ADX strength into a
// single score in [-1, 1].
func trendSignal(closes, highs, lows []float64, index int) float64 {
	if index < macdSlowPeriod-1 {
		return 0
	}
	var score float64

	macd := talib.Ema(closes, macdFastPeriod)[index] - talib.Ema(closes, macdSlowPeriod)[index]
	if closes[index] != 0 {
		score += clamp(macd/closes[index]*50, -0.4, 0.4)
	}

	if index >= emaTrendPeriod-1 {
		ema := talib.Ema(closes, emaTrendPeriod)[index]
		score += clamp(relativeTo(closes[index], ema)*5, -0.3, 0.3)
	}

	if index >= 2*adxPeriod-1 {
		adx := talib.Adx(highs, lows, closes, adxPeriod)[index] / 100
		// ADX has no direction; it scales whichever sign we already have.
		score *= 0.7 + 0.6*adx
	}

	return clamp(score, -1, 1)
}

// Condition classifies the market regime at index from the snapshot's
// phase flags, falling back to the trend signal for short histories.
func Condition(snap models.IndicatorSnapshot) models.MarketCondition {
	switch {
	case snap.Advancing:
		return models.MarketBullish
	case snap.Declining:
		return models.MarketBearish
	case snap.Accumulation || snap.Distribution:
		return models.MarketSideways
	}
	switch {
	case snap.TrendSignal > 0.25:
		return models.MarketBullish
	case snap.TrendSignal < -0.25:
		return models.MarketBearish
	default:
		return models.MarketSideways
	}
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
