package structural

import (
	"math"
	"testing"
	"time"

	"TradeForge/internal/domain/models"
)

func swingBars(n int, period float64, amplitude float64) []models.Bar {
	start := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, n)
	for i := range bars {
		c := 100 + amplitude*math.Sin(float64(i)/period)
		bars[i] = models.Bar{
			Timestamp: start.AddDate(0, 0, i),
			Open:      c,
			High:      c + 1.5,
			Low:       c - 1.5,
			Close:     c,
			Volume:    1000,
		}
	}
	return bars
}

func TestContextBoundedOutputs(t *testing.T) {
	src := NewZigZagSource()
	bars := swingBars(200, 6, 25)

	for idx := 0; idx < len(bars); idx++ {
		sc := src.Context(bars, idx)
		for name, d := range map[string]float64{
			"fib_ext_127": sc.FibExt127, "fib_ext_161": sc.FibExt161, "fib_ext_200": sc.FibExt200,
			"fib_ret_382": sc.FibRet382, "fib_ret_500": sc.FibRet500, "fib_ret_618": sc.FibRet618,
			"support_1": sc.Support1Dist, "support_2": sc.Support2Dist,
			"resistance_1": sc.Resistance1Dist, "resistance_2": sc.Resistance2Dist,
		} {
			if d < -50 || d > 50 {
				t.Fatalf("idx %d: %s out of [-50,50]: %f", idx, name, d)
			}
		}
		if sc.RegimeTrending < 0 || sc.RegimeTrending > 1 {
			t.Fatalf("idx %d: regime out of [0,1]: %f", idx, sc.RegimeTrending)
		}
		if sc.VolRegime < 0 || sc.VolRegime > 2 {
			t.Fatalf("idx %d: vol regime out of {0,1,2}: %d", idx, sc.VolRegime)
		}
	}
}

func TestShortHistoryIsZeroContext(t *testing.T) {
	src := NewZigZagSource()
	bars := swingBars(10, 6, 25)
	if sc := src.Context(bars, 9); sc != (models.StructuralContext{}) {
		t.Fatalf("history shorter than the ATR warmup must yield a zero context: %+v", sc)
	}
}

func TestSwingMarketProducesLevels(t *testing.T) {
	src := NewZigZagSource()
	bars := swingBars(240, 8, 30)
	sc := src.Context(bars, len(bars)-1)

	if sc.Support1Dist == 0 && sc.Resistance1Dist == 0 {
		t.Fatalf("a large oscillation must leave pivot levels behind: %+v", sc)
	}
	if sc.Support1Dist < 0 || sc.Resistance1Dist < 0 {
		t.Fatalf("first-level distances must be non-negative: %+v", sc)
	}
	if sc.Support2Dist != 0 && sc.Support2Dist < sc.Support1Dist {
		t.Fatalf("second support must be at least as far as the first: %+v", sc)
	}
	if sc.Resistance2Dist != 0 && sc.Resistance2Dist < sc.Resistance1Dist {
		t.Fatalf("second resistance must be at least as far as the first: %+v", sc)
	}
}

func TestContextDeterministic(t *testing.T) {
	src := NewZigZagSource()
	bars := swingBars(150, 7, 20)
	if a, b := src.Context(bars, 149), src.Context(bars, 149); a != b {
		t.Fatalf("repeated context computation diverged")
	}
}

func TestVolRegimeBuckets(t *testing.T) {
	src := NewZigZagSource()

	quiet := swingBars(60, 20, 0.5)
	for i := range quiet {
		quiet[i].High = quiet[i].Close + 0.2
		quiet[i].Low = quiet[i].Close - 0.2
	}
	if sc := src.Context(quiet, 59); sc.VolRegime != 0 {
		t.Fatalf("narrow ranges must bucket as low volatility, got %d", sc.VolRegime)
	}

	wild := swingBars(60, 4, 30)
	for i := range wild {
		wild[i].High = wild[i].Close + 6
		wild[i].Low = wild[i].Close - 6
	}
	if sc := src.Context(wild, 59); sc.VolRegime != 2 {
		t.Fatalf("wide ranges must bucket as high volatility, got %d", sc.VolRegime)
	}
}
