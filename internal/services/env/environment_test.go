package env

import (
	"math"
	"testing"
	"time"

	"TradeForge/internal/domain/models"
)

func mkBars(closes []float64) []models.Bar {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, len(closes))
	for i, c := range closes {
		bars[i] = models.Bar{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      c,
			High:      c * 1.01,
			Low:       c * 0.99,
			Close:     c,
			Volume:    1000,
		}
	}
	return bars
}

func TestTakeProfitHitOnNextBarHigh(t *testing.T) {
	bars := mkBars([]float64{100, 100, 100, 100})
	bars[1].High = 112

	e := New(Config{InitialBalance: 10_000, MinTradeInterval: 1}, bars, nil)
	e.Step(models.Buy, Order{Quantity: 1, StopLoss: 95, TakeProfit: 110, Confidence: 80})
	if e.PositionState() != Long {
		t.Fatalf("expected LONG after buy, got %v", e.PositionState())
	}

	res := e.Step(models.Hold, Order{})
	if !res.Exited || res.ExitReason != ExitTakeProfit {
		t.Fatalf("expected take-profit exit, got %+v", res)
	}
	if math.Abs(res.TradePnL-10) > 1e-9 {
		t.Fatalf("expected PnL 10, got %f", res.TradePnL)
	}
	if e.PositionState() != Flat {
		t.Fatalf("expected FLAT after exit")
	}
}

func TestFirstBarAfterEntryIsEvaluated(t *testing.T) {
	bars := mkBars([]float64{100, 100, 100, 100, 100})
	bars[1].High = 120

	e := New(Config{InitialBalance: 10_000, MinTradeInterval: 1}, bars, nil)
	e.Step(models.Buy, Order{Quantity: 1, TakeProfit: 110})
	for !e.Done() {
		e.Step(models.Hold, Order{})
	}

	m := e.GetMetrics()
	if m.TotalTrades != 1 {
		t.Fatalf("target printed on the bar right after entry must close the trade, got %d trades", m.TotalTrades)
	}
	if math.Abs(m.NetPnL-10) > 1e-9 {
		t.Fatalf("expected net PnL 10, got %f", m.NetPnL)
	}
}

func TestEachHeldBarCheckedExactlyOnce(t *testing.T) {
	// The level prints only on bar 3; bars 1 and 2 must mark to market
	// without exiting, then bar 3 closes the trade.
	bars := mkBars([]float64{100, 100, 100, 100, 100, 100})
	bars[3].Low = 90

	e := New(Config{InitialBalance: 10_000, MinTradeInterval: 1}, bars, nil)
	e.Step(models.Buy, Order{Quantity: 1, StopLoss: 95})

	for _, wantExit := range []bool{false, false, true} {
		res := e.Step(models.Hold, Order{})
		if res.Exited != wantExit {
			t.Fatalf("bar %d: exited=%v, want %v", e.Index(), res.Exited, wantExit)
		}
	}
	if m := e.GetMetrics(); m.TotalTrades != 1 {
		t.Fatalf("expected exactly one closed trade, got %d", m.TotalTrades)
	}
}

func TestStopLossCheckedBeforeTarget(t *testing.T) {
	bars := mkBars([]float64{100, 100, 100, 100})
	// The first held bar spans both levels; the stop wins.
	bars[1].High = 115
	bars[1].Low = 90

	e := New(Config{InitialBalance: 10_000, MinTradeInterval: 1}, bars, nil)
	e.Step(models.Buy, Order{Quantity: 1, StopLoss: 95, TakeProfit: 110})
	res := e.Step(models.Hold, Order{})
	if res.ExitReason != ExitStopLoss {
		t.Fatalf("expected stop-loss exit, got %q", res.ExitReason)
	}
	if res.TradePnL >= 0 {
		t.Fatalf("stop exit must realize a loss, got %f", res.TradePnL)
	}
}

func TestMinTradeIntervalTerminates(t *testing.T) {
	bars := mkBars([]float64{100, 100, 100, 100, 100, 100})
	bars[1].High = 200 // immediate take-profit

	e := New(Config{InitialBalance: 10_000, MinTradeInterval: 5}, bars, nil)
	e.Step(models.Buy, Order{Quantity: 1, TakeProfit: 150})
	e.Step(models.Hold, Order{}) // exits at bar 1
	res := e.Step(models.Buy, Order{Quantity: 1})
	if !res.Done || res.ExitReason != ExitGuard {
		t.Fatalf("reopening inside the interval must terminate, got %+v", res)
	}
	if !e.Done() {
		t.Fatalf("environment should be done")
	}
}

func TestDailyLossGuard(t *testing.T) {
	bars := mkBars([]float64{100, 100, 100, 100})
	bars[1].Low = 30 // catastrophic drop through the stop

	cfg := Config{InitialBalance: 1000, MaxDailyLoss: 0.05, MinTradeInterval: 1}
	e := New(cfg, bars, nil)
	e.Step(models.Buy, Order{Quantity: 1, StopLoss: 40})
	res := e.Step(models.Hold, Order{})
	if !res.Done || res.ExitReason != ExitGuard {
		t.Fatalf("60-unit loss on a 1000 balance must trip the daily guard, got %+v", res)
	}
}

func TestRewardClippedAndAsymmetric(t *testing.T) {
	bars := mkBars([]float64{100, 100, 100, 100, 100, 100, 100, 100, 100, 100})
	winBars := mkBars([]float64{100, 100, 100, 100, 100, 100, 100, 100, 100, 100})
	bars[1].Low = 97      // 3-unit loss
	winBars[1].High = 103 // 3-unit win

	atrs := make([]float64, len(bars))
	for i := range atrs {
		atrs[i] = 2.0
	}
	cfg := Config{InitialBalance: 100_000, MinTradeInterval: 1}

	lossEnv := New(cfg, bars, atrs)
	lossEnv.Step(models.Buy, Order{Quantity: 1, StopLoss: 97})
	lossRes := lossEnv.Step(models.Hold, Order{})

	winEnv := New(cfg, winBars, atrs)
	winEnv.Step(models.Buy, Order{Quantity: 1, TakeProfit: 103})
	winRes := winEnv.Step(models.Hold, Order{})

	if lossRes.Reward < -3 || winRes.Reward > 3 {
		t.Fatalf("rewards must stay within [-3,3], got %f and %f", lossRes.Reward, winRes.Reward)
	}
	if math.Abs(lossRes.Reward) <= math.Abs(winRes.Reward) {
		t.Fatalf("equal-size loss must be penalized harder than the win: loss=%f win=%f",
			lossRes.Reward, winRes.Reward)
	}
}

func TestDeterministicReplay(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + 5*math.Sin(float64(i)/4)
	}
	bars := mkBars(closes)

	run := func() Metrics {
		e := New(DefaultConfig(), bars, nil)
		for !e.Done() {
			action := models.Hold
			if e.PositionState() == Flat && e.Index()%7 == 0 {
				action = models.Buy
			}
			price := bars[e.Index()].Close
			e.Step(action, Order{Quantity: 1, StopLoss: price * 0.97, TakeProfit: price * 1.03})
		}
		return e.GetMetrics()
	}

	a, b := run(), run()
	if a != b {
		t.Fatalf("replay diverged: %+v vs %+v", a, b)
	}
	if a.TotalTrades == 0 {
		t.Fatalf("replay should close at least one trade")
	}
}

func TestMetricsEmptyEpisode(t *testing.T) {
	e := New(DefaultConfig(), mkBars([]float64{100, 100, 100}), nil)
	m := e.GetMetrics()
	if m.TotalTrades != 0 || m.WinRate != 0 || m.Sharpe != 0 {
		t.Fatalf("fresh episode must report zero metrics, got %+v", m)
	}
}
