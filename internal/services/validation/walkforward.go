// Package validation implements rolling walk-forward validation: train
// on a sliding in-sample segment, evaluate deterministically on the
// adjacent out-of-sample segment, then aggregate windows into an
// approval decision.
package validation

import (
	"fmt"

	"github.com/markcheno/go-talib"

	"TradeForge/internal/domain/models"
	"TradeForge/internal/domain/repository"
	"TradeForge/internal/services/env"
	"TradeForge/internal/services/features"
	"TradeForge/internal/services/policy"
	"TradeForge/internal/services/risk"
	"TradeForge/pkg/logger"
)

// Config holds the walk-forward thresholds.
type Config struct {
	TrainMonths  int
	TestMonths   int
	BarsPerMonth int

	MinTradeCount int
	MinWinRate    float64
	MinSharpe     float64
	MaxDrawdown   float64

	// Acceptance-gate constants.
	MinPassRate      float64
	MaxWinRateStdDev float64
	CatastrophicDD   float64
	OverfittingGap   float64

	// In-sample training episodes per window.
	TrainEpisodes int
	Profile       risk.Profile
}

// DefaultConfig returns the production thresholds for daily bars.
func DefaultConfig() Config {
	return Config{
		TrainMonths:      3,
		TestMonths:       1,
		BarsPerMonth:     repository.BarsPerMonth(repository.TF1d),
		MinTradeCount:    15,
		MinWinRate:       0.43,
		MinSharpe:        0.3,
		MaxDrawdown:      0.25,
		MinPassRate:      0.70,
		MaxWinRateStdDev: 0.15,
		CatastrophicDD:   0.40,
		OverfittingGap:   0.20,
		TrainEpisodes:    10,
		Profile:          risk.ProfileMedium,
	}
}

// Validator runs windows against a policy model.
type Validator struct {
	cfg Config
	log *logger.Logger
}

func New(cfg Config, log *logger.Logger) *Validator {
	if cfg.BarsPerMonth <= 0 {
		cfg.BarsPerMonth = repository.BarsPerMonth(repository.TF1d)
	}
	if cfg.Profile == "" {
		cfg.Profile = risk.ProfileMedium
	}
	return &Validator{cfg: cfg, log: log}
}

// CreateWindows rolls a TrainMonths+TestMonths window forward by the
// test length. Total history shorter than one full window is a hard
// precondition failure.
func (v *Validator) CreateWindows(bars []models.Bar) ([]models.ValidationWindow, error) {
	trainBars := v.cfg.TrainMonths * v.cfg.BarsPerMonth
	testBars := v.cfg.TestMonths * v.cfg.BarsPerMonth
	if len(bars) < trainBars+testBars {
		return nil, fmt.Errorf("%w: have %d bars, need %d for one window",
			repository.ErrInsufficientData, len(bars), trainBars+testBars)
	}

	var windows []models.ValidationWindow
	for start := 0; start+trainBars+testBars <= len(bars); start += testBars {
		trainEnd := start + trainBars - 1
		windows = append(windows, models.ValidationWindow{
			Label:      fmt.Sprintf("W%02d", len(windows)+1),
			TrainStart: start,
			TrainEnd:   trainEnd,
			TestStart:  trainEnd + 1,
			TestEnd:    trainEnd + testBars,
		})
	}
	return windows, nil
}

// ValidateWindow trains the model on the window's in-sample segment
// with a short stochastic episode loop, then runs one deterministic
// pass over the out-of-sample segment with no weight updates.
func (v *Validator) ValidateWindow(model *policy.Model, window models.ValidationWindow, bars []models.Bar) models.WindowResult {
	res := models.WindowResult{Window: window}

	feats := make([]models.FeatureVector, len(bars))
	for i := range bars {
		feats[i] = features.Extract(bars, i)
	}
	atrs := barATRs(bars)

	// In-sample: stochastic episodes with head updates.
	trainBars := bars[window.TrainStart : window.TrainEnd+1]
	trainFeats := feats[window.TrainStart : window.TrainEnd+1]
	trainATRs := atrs[window.TrainStart : window.TrainEnd+1]
	trainEnv := env.New(env.DefaultConfig(), trainBars, trainATRs)

	trainer := policy.NewTrainer(model, policy.TrainConfig{
		Episodes:       v.cfg.TrainEpisodes,
		LearningRate:   0.01,
		Gamma:          0.95,
		SequenceLength: policy.DefaultSequenceLength,
		Seed:           int64(window.TrainStart + 1),
	}, v.log)
	trainer.Run(trainEnv, trainFeats, v.orderFunc(trainBars, trainATRs))

	trainMetrics := v.deterministicPass(model, trainBars, trainFeats, trainATRs)
	res.TrainTrades = trainMetrics.TotalTrades
	res.TrainWinRate = trainMetrics.WinRate

	// Out-of-sample: one deterministic pass, no weight updates.
	testBars := bars[window.TestStart : window.TestEnd+1]
	testFeats := feats[window.TestStart : window.TestEnd+1]
	testATRs := atrs[window.TestStart : window.TestEnd+1]
	testMetrics := v.deterministicPass(model, testBars, testFeats, testATRs)

	res.TestTrades = testMetrics.TotalTrades
	res.TestWinRate = testMetrics.WinRate
	res.TestSharpe = testMetrics.Sharpe
	res.TestMaxDrawdown = testMetrics.MaxDrawdown
	res.TestNetPnL = testMetrics.NetPnL

	if res.TestTrades < v.cfg.MinTradeCount {
		res.FailureReasons = append(res.FailureReasons, models.FailInsufficientTrades)
	}
	if res.TestWinRate < v.cfg.MinWinRate {
		res.FailureReasons = append(res.FailureReasons, models.FailLowWinRate)
	}
	if res.TestSharpe < v.cfg.MinSharpe {
		res.FailureReasons = append(res.FailureReasons, models.FailLowSharpe)
	}
	if res.TestMaxDrawdown > v.cfg.MaxDrawdown {
		res.FailureReasons = append(res.FailureReasons, models.FailExcessiveDrawdown)
	}
	if res.TrainWinRate-res.TestWinRate > v.cfg.OverfittingGap {
		res.FailureReasons = append(res.FailureReasons, models.FailOverfittingGap)
	}
	res.Passed = len(res.FailureReasons) == 0

	v.log.Debug("window validated",
		logger.String("window", window.Label),
		logger.Int("test_trades", res.TestTrades),
		logger.Float64("test_win_rate", res.TestWinRate),
		logger.Bool("passed", res.Passed),
		logger.Strings("failures", res.FailureReasons),
	)
	return res
}

// deterministicPass replays a segment with Evaluate only.
func (v *Validator) deterministicPass(model *policy.Model, bars []models.Bar, feats []models.FeatureVector, atrs []float64) env.Metrics {
	e := env.New(env.DefaultConfig(), bars, atrs)
	orderFor := v.orderFunc(bars, atrs)
	for !e.Done() {
		idx := e.Index()
		seq := sequence(feats, idx)
		action, confidence := model.Evaluate(seq)
		order := orderFor(idx, action)
		order.Confidence = confidence
		if res := e.Step(action, order); res.Done {
			break
		}
	}
	return e.GetMetrics()
}

// orderFunc builds protective levels from profile multipliers and the
// default adaptive parameters; validation never mutates adaptive state.
func (v *Validator) orderFunc(bars []models.Bar, atrs []float64) func(int, models.ActionType) env.Order {
	adaptive := models.DefaultAdaptiveParameters()
	return func(idx int, action models.ActionType) env.Order {
		if action == models.Hold {
			return env.Order{}
		}
		state := &models.TradingState{
			Price:      bars[idx].Close,
			Indicators: models.IndicatorSnapshot{ATR: atrs[idx]},
		}
		rp := risk.Parameters(state, action, v.cfg.Profile, adaptive)
		return env.Order{Quantity: 1, StopLoss: rp.StopLoss, TakeProfit: rp.TakeProfit}
	}
}

func sequence(feats []models.FeatureVector, idx int) []models.FeatureVector {
	start := idx + 1 - policy.DefaultSequenceLength
	if start < 0 {
		start = 0
	}
	if idx >= len(feats) {
		idx = len(feats) - 1
	}
	return feats[start : idx+1]
}

func barATRs(bars []models.Bar) []float64 {
	if len(bars) < 15 {
		return make([]float64, len(bars))
	}
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	closes := make([]float64, len(bars))
	for i, b := range bars {
		highs[i] = b.High
		lows[i] = b.Low
		closes[i] = b.Close
	}
	return talib.Atr(highs, lows, closes, 14)
}
