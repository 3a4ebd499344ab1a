// Package env implements the simulated market/position state machine the
// policy model is trained and evaluated against. The environment is
// fully deterministic: identical bars and action sequences produce
// bit-identical metrics.
package env

import (
	"math"

	"TradeForge/internal/domain/models"
)

// Position is the environment's position state.
type Position int

const (
	Flat Position = iota
	Long
	Short
)

// Exit reasons recorded on StepResult.Info.
const (
	ExitStopLoss   = "stop_loss"
	ExitTakeProfit = "take_profit"
	ExitGuard      = "risk_guard"
	ExitEndOfData  = "end_of_data"
)

// Config bounds one simulated episode. Loss and drawdown limits are
// fractions of the initial balance.
type Config struct {
	InitialBalance   float64
	MaxDailyLoss     float64
	MaxDrawdown      float64
	MinTradeInterval int
}

// DefaultConfig mirrors the production risk guards.
func DefaultConfig() Config {
	return Config{
		InitialBalance:   10_000,
		MaxDailyLoss:     0.05,
		MaxDrawdown:      0.20,
		MinTradeInterval: 3,
	}
}

// Order carries the caller-supplied sizing and protective levels for a
// position open.
type Order struct {
	Quantity   float64
	StopLoss   float64
	TakeProfit float64
	Confidence float64 // 0..100, used only for reward shaping
}

// StepResult is the outcome of applying one action to one bar.
type StepResult struct {
	Reward     float64
	Done       bool
	Exited     bool
	ExitReason string
	TradePnL   float64 // realized PnL of a trade closed this step
}

// Metrics aggregates the trade statistics of one episode.
type Metrics struct {
	TotalTrades int
	WinRate     float64
	Sharpe      float64
	MaxDrawdown float64
	NetPnL      float64
}

// Environment steps through a fixed bar history one action per bar.
type Environment struct {
	cfg  Config
	bars []models.Bar
	atrs []float64 // per-bar ATR supplied by the caller for reward scaling

	idx      int
	position Position
	entry    float64
	quantity float64
	stop     float64
	target   float64
	conf     float64

	realized    float64
	peak        float64
	maxDD       float64
	dayKey      string
	dayPnL      float64
	lastOpenIdx int
	done        bool

	tradeReturns []float64
	wins         int
}

// New builds an environment over bars. atrs may be nil; rewards then
// fall back to fractional PnL scaling.
func New(cfg Config, bars []models.Bar, atrs []float64) *Environment {
	e := &Environment{cfg: cfg, bars: bars, atrs: atrs}
	e.Reset()
	return e
}

// Reset returns the environment to FLAT at the first bar with zero P&L.
func (e *Environment) Reset() {
	e.idx = 0
	e.position = Flat
	e.entry, e.quantity, e.stop, e.target, e.conf = 0, 0, 0, 0, 0
	e.realized = 0
	e.peak = 0
	e.maxDD = 0
	e.dayKey = ""
	e.dayPnL = 0
	e.lastOpenIdx = -1 << 30
	e.done = false
	e.tradeReturns = e.tradeReturns[:0]
	e.wins = 0
}

// Index returns the current bar index.
func (e *Environment) Index() int { return e.idx }

// Done reports whether the episode has terminated.
func (e *Environment) Done() bool { return e.done }

// PositionState returns the current position.
func (e *Environment) PositionState() Position { return e.position }

// Step applies one action to the current bar and advances. Opening a
// position while positioned is ignored; opening sooner than
// MinTradeInterval bars after the previous open breaches a risk guard
// and terminates the episode.
func (e *Environment) Step(action models.ActionType, order Order) StepResult {
	if e.done || e.idx >= len(e.bars)-1 {
		e.done = true
		return StepResult{Done: true, ExitReason: ExitEndOfData}
	}

	bar := e.bars[e.idx]
	e.rollDay(bar)

	var res StepResult

	if e.position == Flat && (action == models.Buy || action == models.Sell) {
		if e.idx-e.lastOpenIdx < e.cfg.MinTradeInterval {
			e.done = true
			res.Done = true
			res.ExitReason = ExitGuard
			return res
		}
		if action == models.Buy {
			e.position = Long
		} else {
			e.position = Short
		}
		e.entry = bar.Close
		e.quantity = order.Quantity
		e.stop = order.StopLoss
		e.target = order.TakeProfit
		e.conf = order.Confidence
		e.lastOpenIdx = e.idx
	} else if e.position != Flat {
		// Every bar after the entry bar is evaluated exactly once: its
		// extremes against the protective levels first, then its close
		// marks the open position.
		if exit, price, reason := e.levelHit(bar); exit {
			res = e.closePosition(price, reason)
		} else {
			res.Reward = e.markReward(bar.Close)
		}
	}

	e.idx++
	if e.idx >= len(e.bars)-1 {
		e.done = true
		res.Done = true
		if res.ExitReason == "" {
			res.ExitReason = ExitEndOfData
		}
	}
	if e.guardBreached() {
		e.done = true
		res.Done = true
		res.ExitReason = ExitGuard
	}
	return res
}

// levelHit checks stop and target against a bar's high/low. The stop is
// evaluated first: within one bar the conservative assumption is that
// the adverse extreme printed before the favorable one.
func (e *Environment) levelHit(bar models.Bar) (bool, float64, string) {
	if e.position == Long {
		if e.stop > 0 && bar.Low <= e.stop {
			return true, e.stop, ExitStopLoss
		}
		if e.target > 0 && bar.High >= e.target {
			return true, e.target, ExitTakeProfit
		}
	} else if e.position == Short {
		if e.stop > 0 && bar.High >= e.stop {
			return true, e.stop, ExitStopLoss
		}
		if e.target > 0 && bar.Low <= e.target {
			return true, e.target, ExitTakeProfit
		}
	}
	return false, 0, ""
}

func (e *Environment) closePosition(price float64, reason string) StepResult {
	side := 1.0
	if e.position == Short {
		side = -1
	}
	pnl := (price - e.entry) * side * e.quantity

	e.realized += pnl
	e.dayPnL += pnl
	if e.realized > e.peak {
		e.peak = e.realized
	}
	if dd := (e.peak - e.realized) / e.cfg.InitialBalance; dd > e.maxDD {
		e.maxDD = dd
	}

	ret := 0.0
	if e.entry != 0 && e.quantity != 0 {
		ret = pnl / (e.entry * math.Abs(e.quantity))
	}
	e.tradeReturns = append(e.tradeReturns, ret)
	if pnl > 0 {
		e.wins++
	}

	reward := e.tradeReward(pnl, price)
	e.position = Flat
	e.entry, e.quantity, e.stop, e.target, e.conf = 0, 0, 0, 0, 0

	return StepResult{Reward: reward, Exited: true, ExitReason: reason, TradePnL: pnl}
}

// tradeReward shapes the terminal reward of a closed trade: PnL
// normalized by ATR, an asymmetric 1.5x penalty on losses, a
// conviction-correctness term and a risk-efficiency term, clipped to a
// stable range.
func (e *Environment) tradeReward(pnl, exitPrice float64) float64 {
	atr := e.currentATR()
	scale := atr
	if scale <= 0 {
		scale = math.Max(e.entry*0.01, 1e-9)
	}

	perUnit := pnl
	if e.quantity != 0 {
		perUnit = pnl / math.Abs(e.quantity)
	}
	r := perUnit / scale
	if r < 0 {
		r *= 1.5
	}

	sign := 0.0
	if pnl > 0 {
		sign = 1
	} else if pnl < 0 {
		sign = -1
	}
	r += 0.5 * (e.conf / 100) * sign

	if e.stop > 0 && e.target > 0 {
		tpDist := math.Abs(e.target - e.entry)
		slDist := math.Abs(e.entry - e.stop)
		if slDist > 0 {
			r += 0.2 * (tpDist / slDist) * sign
		}
	}

	return clampReward(r)
}

// markReward is the small mark-to-market reward while a position stays
// open.
func (e *Environment) markReward(close float64) float64 {
	side := 1.0
	if e.position == Short {
		side = -1
	}
	atr := e.currentATR()
	if atr <= 0 {
		if e.entry == 0 {
			return 0
		}
		return clampReward((close - e.entry) * side / e.entry)
	}
	return clampReward((close - e.entry) * side / atr * 0.1)
}

func (e *Environment) currentATR() float64 {
	if e.atrs == nil || e.idx >= len(e.atrs) {
		return 0
	}
	return e.atrs[e.idx]
}

func (e *Environment) rollDay(bar models.Bar) {
	key := bar.Timestamp.UTC().Format("2006-01-02")
	if key != e.dayKey {
		e.dayKey = key
		e.dayPnL = 0
	}
}

func (e *Environment) guardBreached() bool {
	if e.cfg.MaxDailyLoss > 0 && e.dayPnL < -e.cfg.MaxDailyLoss*e.cfg.InitialBalance {
		return true
	}
	if e.cfg.MaxDrawdown > 0 && e.maxDD > e.cfg.MaxDrawdown {
		return true
	}
	return false
}

// GetMetrics returns the aggregate statistics of the episode so far.
func (e *Environment) GetMetrics() Metrics {
	m := Metrics{
		TotalTrades: len(e.tradeReturns),
		MaxDrawdown: e.maxDD,
		NetPnL:      e.realized,
	}
	if m.TotalTrades == 0 {
		return m
	}
	m.WinRate = float64(e.wins) / float64(m.TotalTrades)

	mean := 0.0
	for _, r := range e.tradeReturns {
		mean += r
	}
	mean /= float64(m.TotalTrades)
	var sum2 float64
	for _, r := range e.tradeReturns {
		d := r - mean
		sum2 += d * d
	}
	if m.TotalTrades > 1 {
		std := math.Sqrt(sum2 / float64(m.TotalTrades-1))
		if std > 0 {
			m.Sharpe = mean / std
		}
	}
	return m
}

func clampReward(r float64) float64 {
	if r > 3 {
		return 3
	}
	if r < -3 {
		return -3
	}
	return r
}
