// Package usecase wires the decision services into the per-symbol
// pipelines: adaptive backtests and queued training/validation runs.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jpillora/backoff"

	"TradeForge/internal/domain/models"
	domrepo "TradeForge/internal/domain/repository"
	"TradeForge/internal/services/features"
	"TradeForge/internal/services/policy"
	"TradeForge/internal/services/risk"
	"TradeForge/pkg/logger"
)

const (
	minUsableBars = 20
	warmupBars    = 50
	tradeHorizon  = 30
	recentWindow  = 10
)

// BacktestConfig bounds one batch run.
type BacktestConfig struct {
	UserID      string
	Interval    domrepo.Timeframe
	HistoryDays int

	InitialBalance   float64
	MaxDailyLoss     float64
	MaxDrawdown      float64
	MinTradeInterval int

	SampleEvery int
	Profile     risk.Profile
}

// SymbolResult is the outcome of one symbol's backtest.
type SymbolResult struct {
	Symbol       string
	Skipped      bool
	SkipReason   string
	UsedFallback bool

	FinalBalance float64
	Trades       int
	Wins         int
	WinRate      float64

	Adaptive models.AdaptiveParameters
}

// BatchResult carries per-symbol outcomes plus the explicit learning
// map. Adaptive state lives only here; the orchestrator keeps no state
// between runs.
type BatchResult struct {
	Results  []SymbolResult
	Learning map[string]models.AdaptiveParameters
}

// Orchestrator runs the per-symbol backtest pipeline.
type Orchestrator struct {
	cfg        BacktestConfig
	bars       domrepo.BarProvider
	weights    domrepo.WeightStore
	structural domrepo.StructuralSource
	metrics    domrepo.Metrics
	l          *logger.Logger
}

func NewOrchestrator(
	cfg BacktestConfig,
	bars domrepo.BarProvider,
	weights domrepo.WeightStore,
	structural domrepo.StructuralSource,
	metrics domrepo.Metrics,
	l *logger.Logger,
) *Orchestrator {
	if cfg.SampleEvery <= 0 {
		cfg.SampleEvery = 1
	}
	if cfg.Profile == "" {
		cfg.Profile = risk.ProfileMedium
	}
	return &Orchestrator{
		cfg: cfg, bars: bars, weights: weights,
		structural: structural, metrics: metrics, l: l,
	}
}

// RunBatch processes each symbol independently. A symbol failure
// degrades that symbol to skipped; it never aborts the batch.
func (o *Orchestrator) RunBatch(ctx context.Context, symbols []string) (*BatchResult, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no symbols to process")
	}

	batch := &BatchResult{
		Learning: make(map[string]models.AdaptiveParameters, len(symbols)),
	}
	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return batch, err
		}
		res := o.runSymbol(ctx, symbol)
		batch.Results = append(batch.Results, res)
		batch.Learning[symbol] = res.Adaptive
	}
	return batch, nil
}

func (o *Orchestrator) runSymbol(ctx context.Context, symbol string) SymbolResult {
	start := time.Now()
	res := SymbolResult{
		Symbol:   symbol,
		Adaptive: models.DefaultAdaptiveParameters(),
	}
	defer func() {
		o.metrics.RecordLatency("backtest_symbol", time.Since(start).Seconds())
	}()

	bars, err := o.fetchHistory(ctx, symbol)
	if err != nil {
		o.l.Warn("symbol skipped: history fetch failed",
			logger.String("symbol", symbol), logger.Error(err))
		res.Skipped = true
		res.SkipReason = "fetch_failed"
		return res
	}
	if len(bars) < minUsableBars {
		res.Skipped = true
		res.SkipReason = "insufficient_data"
		return res
	}

	model := o.loadModel(ctx, symbol)
	res.UsedFallback = model == nil

	feats := make([]models.FeatureVector, len(bars))
	for i := range bars {
		feats[i] = features.Extract(bars, i)
	}

	balance := o.cfg.InitialBalance
	var recent []bool

	for idx := warmupBars; idx < len(bars)-1; idx += o.cfg.SampleEvery {
		state := o.buildState(symbol, bars, feats, idx, res.Adaptive.SuccessRate)
		state.ConfluenceScore = risk.Confluence(state, o.cfg.Profile)

		gate := risk.Settings(o.cfg.Profile).MinConfluence
		if res.Adaptive.ConfluenceThreshold > gate {
			gate = res.Adaptive.ConfluenceThreshold
		}
		if state.ConfluenceScore < gate {
			continue
		}

		action := o.decide(model, feats, idx, state)
		if action.Type == models.Hold || action.Confidence < res.Adaptive.ConfidenceThreshold {
			continue
		}

		rp := risk.Parameters(state, action.Type, o.cfg.Profile, res.Adaptive)
		size := risk.SizeMultiplier(action.Type, action.Confidence, state.MarketCondition)
		pnl, won := simulateTrade(bars, idx, action.Type, rp, size)

		balance += pnl
		res.Trades++
		if won {
			res.Wins++
		}
		o.metrics.RecordTrade(symbol, won)
		o.metrics.RecordEquity(symbol, balance)

		recent = appendRecent(recent, won)
		adaptThresholds(&res.Adaptive, won, pnl, recent)
	}

	res.FinalBalance = balance
	if res.Trades > 0 {
		res.WinRate = float64(res.Wins) / float64(res.Trades)
	}

	o.l.Info("symbol backtest finished",
		logger.String("symbol", symbol),
		logger.Int("trades", res.Trades),
		logger.Float64("win_rate", res.WinRate),
		logger.Float64("final_balance", res.FinalBalance),
		logger.Bool("fallback", res.UsedFallback),
	)
	return res
}

// fetchHistory retries one transient failure with backoff before
// degrading the symbol.
func (o *Orchestrator) fetchHistory(ctx context.Context, symbol string) ([]models.Bar, error) {
	b := &backoff.Backoff{Min: 500 * time.Millisecond, Max: 5 * time.Second, Factor: 2}
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -o.cfg.HistoryDays)

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(b.Duration()):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		bars, err := o.bars.GetBars(ctx, symbol, o.cfg.Interval, from, to)
		if err == nil {
			return bars, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// loadModel returns nil when weights are missing or unreadable; the
// caller falls back to the rule-based path.
func (o *Orchestrator) loadModel(ctx context.Context, symbol string) *policy.Model {
	data, err := o.weights.Load(ctx, o.cfg.UserID, symbol)
	if err != nil {
		if errors.Is(err, domrepo.ErrModelUnavailable) {
			o.l.Info("no model weights, using rule-based fallback",
				logger.String("symbol", symbol))
		} else {
			o.l.Warn("weight store error, using rule-based fallback",
				logger.String("symbol", symbol), logger.Error(err))
		}
		return nil
	}
	model, err := policy.Deserialize(data)
	if err != nil {
		o.l.Warn("stored weights unreadable, using rule-based fallback",
			logger.String("symbol", symbol), logger.Error(err))
		return nil
	}
	return model
}

func (o *Orchestrator) buildState(symbol string, bars []models.Bar, feats []models.FeatureVector, idx int, successRate float64) *models.TradingState {
	snap := features.Snapshot(bars, idx)
	return &models.TradingState{
		Symbol:                symbol,
		BarIndex:              idx,
		Price:                 bars[idx].Close,
		Volume:                bars[idx].Volume,
		Indicators:            snap,
		Structural:            o.structural.Context(bars, idx),
		Features:              feats[idx],
		MarketCondition:       features.Condition(snap),
		Volatility:            feats[idx][8],
		HistoricalPerformance: successRate,
	}
}

func (o *Orchestrator) decide(model *policy.Model, feats []models.FeatureVector, idx int, state *models.TradingState) models.Action {
	if model != nil {
		seq := featureWindow(feats, idx)
		actionType, confidence := model.Evaluate(seq)
		return models.Action{
			Type:       actionType,
			Confidence: confidence,
			Reasoning:  "policy model",
		}
	}
	return ruleBasedAction(state)
}

// ruleBasedAction is the fallback decision path when no trained model
// exists: trend direction gated by RSI extremes.
func ruleBasedAction(state *models.TradingState) models.Action {
	trend := state.Indicators.TrendSignal
	rsi := state.Features[6]

	switch {
	case trend > 0.3 && rsi < 0.70:
		return models.Action{
			Type:       models.Buy,
			Confidence: 55 + 30*trend,
			Reasoning:  fmt.Sprintf("rule: uptrend %.2f, rsi %.2f", trend, rsi),
		}
	case trend < -0.3 && rsi > 0.30:
		return models.Action{
			Type:       models.Sell,
			Confidence: 55 - 30*trend,
			Reasoning:  fmt.Sprintf("rule: downtrend %.2f, rsi %.2f", trend, rsi),
		}
	default:
		return models.Action{Type: models.Hold, Reasoning: "rule: no clear trend"}
	}
}

// simulateTrade scans forward from the entry bar until a protective
// level is hit or the horizon expires, stop checked first within a bar.
func simulateTrade(bars []models.Bar, entryIdx int, action models.ActionType, rp models.RiskParameters, size float64) (float64, bool) {
	entry := bars[entryIdx].Close
	end := entryIdx + tradeHorizon
	if end >= len(bars) {
		end = len(bars) - 1
	}

	exit := bars[end].Close
	for i := entryIdx + 1; i <= end; i++ {
		bar := bars[i]
		if action == models.Buy {
			if bar.Low <= rp.StopLoss {
				exit = rp.StopLoss
				break
			}
			if bar.High >= rp.TakeProfit {
				exit = rp.TakeProfit
				break
			}
		} else {
			if bar.High >= rp.StopLoss {
				exit = rp.StopLoss
				break
			}
			if bar.Low <= rp.TakeProfit {
				exit = rp.TakeProfit
				break
			}
		}
	}

	side := 1.0
	if action == models.Sell {
		side = -1
	}
	pnl := (exit - entry) * side * size
	return pnl, pnl > 0
}

// adaptThresholds applies the symbol-local learning rules: losses raise
// the entry bar and tighten stops, a hot streak relaxes confidence and
// loosens targets.
func adaptThresholds(a *models.AdaptiveParameters, won bool, pnl float64, recent []bool) {
	a.TotalTrades++
	if won {
		a.WinningTrades++
	}
	a.SuccessRate = float64(a.WinningTrades) / float64(a.TotalTrades)
	a.AverageProfit += (pnl - a.AverageProfit) / float64(a.TotalTrades)

	if !won {
		a.ConfidenceThreshold = minF(a.ConfidenceThreshold+2, 80)
		a.ConfluenceThreshold = minF(a.ConfluenceThreshold+0.02, 0.80)
		a.StopLossMultiplier = maxF(a.StopLossMultiplier*0.95, 0.60)
		return
	}

	if recentRate(recent) > 0.70 {
		a.ConfidenceThreshold = maxF(a.ConfidenceThreshold-1, 45)
		a.TakeProfitMultiplier = minF(a.TakeProfitMultiplier*1.05, 2.5)
	}
}

func appendRecent(recent []bool, won bool) []bool {
	recent = append(recent, won)
	if len(recent) > recentWindow {
		recent = recent[1:]
	}
	return recent
}

func recentRate(recent []bool) float64 {
	if len(recent) == 0 {
		return 0
	}
	wins := 0
	for _, w := range recent {
		if w {
			wins++
		}
	}
	return float64(wins) / float64(len(recent))
}

func featureWindow(feats []models.FeatureVector, idx int) []models.FeatureVector {
	start := idx + 1 - policy.DefaultSequenceLength
	if start < 0 {
		start = 0
	}
	return feats[start : idx+1]
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
