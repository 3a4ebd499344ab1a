package features

import (
	"math"
	"testing"
	"time"

	"TradeForge/internal/domain/models"
)

func barsFromCloses(closes []float64) []models.Bar {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, len(closes))
	for i, c := range closes {
		bars[i] = models.Bar{
			Timestamp: start.AddDate(0, 0, i),
			Open:      c * 0.995,
			High:      c * 1.01,
			Low:       c * 0.99,
			Close:     c,
			Volume:    1000 + 10*float64(i),
		}
	}
	return bars
}

func trendingCloses(n int, step float64) []float64 {
	closes := make([]float64, n)
	closes[0] = 100
	for i := 1; i < n; i++ {
		closes[i] = closes[i-1] * (1 + step)
	}
	return closes
}

func TestShortHistoryNeutralDefaults(t *testing.T) {
	bars := barsFromCloses([]float64{100, 101, 102})
	fv := Extract(bars, 2)

	if fv[1] != 1 {
		t.Fatalf("volume norm neutral default must be 1, got %f", fv[1])
	}
	if fv[6] != 0.5 {
		t.Fatalf("RSI neutral default must be 0.5, got %f", fv[6])
	}
	for _, i := range []int{3, 5, 7, 8, 9, 10, 11, 13, 14} {
		if fv[i] != 0 {
			t.Fatalf("component %d must default to 0 on short history, got %f", i, fv[i])
		}
	}
}

func TestOutOfRangeIndexIsZeroVector(t *testing.T) {
	bars := barsFromCloses(trendingCloses(30, 0.01))
	var zero models.FeatureVector
	if Extract(bars, -1) != zero || Extract(bars, 30) != zero {
		t.Fatalf("out-of-range index must yield the zero vector")
	}
}

func TestNormalizedIndicatorRanges(t *testing.T) {
	closes := trendingCloses(120, 0.004)
	// Add a wobble so RSI is not pinned at 100.
	for i := range closes {
		closes[i] *= 1 + 0.01*math.Sin(float64(i)/3)
	}
	bars := barsFromCloses(closes)

	for idx := 0; idx < len(bars); idx++ {
		fv := Extract(bars, idx)
		if fv[6] < 0 || fv[6] > 1 {
			t.Fatalf("idx %d: RSI out of [0,1]: %f", idx, fv[6])
		}
		if fv[14] < 0 || fv[14] > 1 {
			t.Fatalf("idx %d: ADX out of [0,1]: %f", idx, fv[14])
		}
		if fv[11] < -1 || fv[11] > 1 {
			t.Fatalf("idx %d: bollinger position out of [-1,1]: %f", idx, fv[11])
		}
	}
}

func TestUptrendSignals(t *testing.T) {
	// 25 bars of +1% per bar on top of a flat warmup: MACD positive and
	// price above SMA20 at the final bar.
	closes := make([]float64, 0, 65)
	for i := 0; i < 40; i++ {
		closes = append(closes, 100)
	}
	last := 100.0
	for i := 0; i < 25; i++ {
		last *= 1.01
		closes = append(closes, last)
	}
	bars := barsFromCloses(closes)
	fv := Extract(bars, len(bars)-1)

	if fv[7] <= 0 {
		t.Fatalf("MACD must be positive in a sustained uptrend, got %f", fv[7])
	}
	if fv[5] <= 0 {
		t.Fatalf("SMA20 position must be positive in a sustained uptrend, got %f", fv[5])
	}
	if fv[2] <= 0 || fv[3] <= 0 {
		t.Fatalf("momentum must be positive in a sustained uptrend: %f %f", fv[2], fv[3])
	}
}

func TestExtractIsPure(t *testing.T) {
	bars := barsFromCloses(trendingCloses(80, 0.005))
	a := Extract(bars, 60)
	b := Extract(bars, 60)
	if a != b {
		t.Fatalf("repeated extraction diverged: %v vs %v", a, b)
	}
}

func TestSnapshotPhaseFlagsExclusive(t *testing.T) {
	bars := barsFromCloses(trendingCloses(100, 0.01))
	snap := Snapshot(bars, len(bars)-1)

	set := 0
	for _, f := range []bool{snap.Accumulation, snap.Advancing, snap.Distribution, snap.Declining} {
		if f {
			set++
		}
	}
	if set > 1 {
		t.Fatalf("phase flags must be mutually exclusive: %+v", snap)
	}
	if !snap.Advancing {
		t.Fatalf("sustained uptrend should mark the advancing phase: %+v", snap)
	}
	if snap.TrendSignal <= 0 {
		t.Fatalf("trend signal should be positive in an uptrend: %f", snap.TrendSignal)
	}
	if Condition(snap) != models.MarketBullish {
		t.Fatalf("uptrend should classify bullish, got %s", Condition(snap))
	}
}

func TestSnapshotDowntrendCondition(t *testing.T) {
	bars := barsFromCloses(trendingCloses(100, -0.01))
	snap := Snapshot(bars, len(bars)-1)
	if Condition(snap) != models.MarketBearish {
		t.Fatalf("downtrend should classify bearish, got %s", Condition(snap))
	}
}
