package features

import (
	"math"

	"github.com/markcheno/go-talib"

	"TradeForge/internal/domain/models"
)

// Lookbacks for the individual feature components. Every component
// returns a neutral default (0, 1, or 0.5 for RSI) when the history up
// to the requested index is shorter than its lookback.
const (
	volNormLookback    = 20
	momentumShort      = 5
	momentumLong       = 20
	smaShortPeriod     = 10
	smaLongPeriod      = 20
	rsiPeriod          = 14
	macdFastPeriod     = 12
	macdSlowPeriod     = 26
	macdSignalPeriod   = 9
	volatilityLookback = 20
	atrPeriod          = 14
	obvLookback        = 20
	bollPeriod         = 20
	emaTrendPeriod     = 50
	adxPeriod          = 14
)

// Extract converts the history window ending at index into the
// fixed-length feature vector consumed by the policy model. It is a pure
// function of (history, index); indicators are recomputed from the
// prefix on every call.
func Extract(history []models.Bar, index int) models.FeatureVector {
	var fv models.FeatureVector
	if index < 0 || index >= len(history) {
		return fv
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
	bar := history[index]

	// 1. One-bar price change.
	if index >= 1 && closes[index-1] != 0 {
		fv[0] = (closes[index] - closes[index-1]) / closes[index-1]
	}

	// 2. Volume normalized by its trailing mean, neutral 1.
	fv[1] = 1
	if index >= volNormLookback {
		mean := meanOf(volumes[index-volNormLookback+1 : index+1])
		if mean > 0 {
			fv[1] = volumes[index] / mean
		}
	}

	// 3/4. Momentum over 5 and 20 bars.
	fv[2] = momentum(closes, index, momentumShort)
	fv[3] = momentum(closes, index, momentumLong)

	// 5/6. Position relative to SMA(10) and SMA(20).
	if index >= smaShortPeriod-1 {
		fv[4] = relativeTo(closes[index], talib.Sma(closes, smaShortPeriod)[index])
	}
	if index >= smaLongPeriod-1 {
		fv[5] = relativeTo(closes[index], talib.Sma(closes, smaLongPeriod)[index])
	}

	// 7. RSI(14) scaled to [0,1], neutral 0.5.
	fv[6] = 0.5
	if index >= rsiPeriod {
		fv[6] = talib.Rsi(closes, rsiPeriod)[index] / 100
	}

	// 8. MACD line (EMA12-EMA26) normalized by price.
	if index >= macdSlowPeriod-1 && closes[index] != 0 {
		macd := talib.Ema(closes, macdFastPeriod)[index] - talib.Ema(closes, macdSlowPeriod)[index]
		fv[7] = macd / closes[index]
	}

	// 9. Std dev of the trailing 20 one-bar returns.
	if index >= volatilityLookback {
		fv[8] = returnVolatility(closes, index, volatilityLookback)
	}

	// 10. ATR(14) normalized by price.
	if index >= atrPeriod && closes[index] != 0 {
		fv[9] = talib.Atr(highs, lows, closes, atrPeriod)[index] / closes[index]
	}

	// 11. Cumulative OBV normalized by the trailing 20-bar volume sum.
	if index >= obvLookback-1 {
		volSum := sumOf(volumes[index-obvLookback+1 : index+1])
		if volSum > 0 {
			fv[10] = talib.Obv(closes, volumes)[index] / volSum
		}
	}

	// 12. Position inside the Bollinger(20, 2) bands, mapped to [-1,1].
	if index >= bollPeriod-1 {
		upper, _, lower := talib.BBands(closes, bollPeriod, 2.0, 2.0, talib.SMA)
		if width := upper[index] - lower[index]; width > 0 {
			fv[11] = (closes[index]-lower[index])/width*2 - 1
		}
	}

	// 13. Bar range relative to price.
	if bar.Close != 0 {
		fv[12] = (bar.High - bar.Low) / bar.Close
	}

	// 14. Position relative to EMA(50).
	if index >= emaTrendPeriod-1 {
		fv[13] = relativeTo(closes[index], talib.Ema(closes, emaTrendPeriod)[index])
	}

	// 15. ADX(14) trend strength scaled to [0,1]. ADX needs two full
	// periods of directional movement before its first value.
	if index >= 2*adxPeriod-1 {
		fv[14] = talib.Adx(highs, lows, closes, adxPeriod)[index] / 100
	}

	return fv
}

// momentum returns the n-bar rate of change, 0 when insufficient.
func momentum(closes []float64, index, n int) float64 {
	if index < n || closes[index-n] == 0 {
		return 0
	}
	return (closes[index] - closes[index-n]) / closes[index-n]
}

// relativeTo returns (price-ref)/ref, 0 for a degenerate reference.
func relativeTo(price, ref float64) float64 {
	if ref == 0 {
		return 0
	}
	return (price - ref) / ref
}

// returnVolatility is the sample std dev of the last n one-bar returns
// ending at index.
func returnVolatility(closes []float64, index, n int) float64 {
	rets := make([]float64, 0, n)
	for i := index - n + 1; i <= index; i++ {
		if closes[i-1] == 0 {
			rets = append(rets, 0)
			continue
		}
		rets = append(rets, (closes[i]-closes[i-1])/closes[i-1])
	}
	mean := meanOf(rets)
	var sum2 float64
	for _, r := range rets {
		d := r - mean
		sum2 += d * d
	}
	if len(rets) < 2 {
		return 0
	}
	return math.Sqrt(sum2 / float64(len(rets)-1))
}

func meanOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return sumOf(xs) / float64(len(xs))
}

func sumOf(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s
}
