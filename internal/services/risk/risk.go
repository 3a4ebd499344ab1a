package risk

import "TradeForge/internal/domain/models"

// Effective multiplier bounds, applied after adaptive scaling.
const (
	minTakeProfitMult = 0.8
	maxTakeProfitMult = 3.0
	minStopLossMult   = 0.5
	maxStopLossMult   = 1.6
)

// Position-sizing tiers and regime multipliers.
const (
	highConfidenceTier = 85.0
	lowConfidenceTier  = 70.0

	highConfidenceSize = 1.5
	lowConfidenceSize  = 0.5

	trendAlignedSize = 1.2
	counterTrendSize = 0.7
	sidewaysSize     = 0.8
)

// Parameters derives absolute stop-loss and take-profit levels for a
// prospective trade: ATR distance scaled by the profile's base
// multipliers, further scaled by the symbol's adaptive multipliers and
// clamped to the effective bounds. Hold actions get zero levels.
func Parameters(state *models.TradingState, action models.ActionType, p Profile, adaptive models.AdaptiveParameters) models.RiskParameters {
	if action == models.Hold {
		return models.RiskParameters{}
	}
	s := Settings(p)
	atr := state.Indicators.ATR
	if atr <= 0 {
		atr = state.Price * 0.01
	}

	slMult := clampMult(s.StopLossATR*adaptive.StopLossMultiplier, minStopLossMult, maxStopLossMult)
	tpMult := clampMult(s.TakeProfitATR*adaptive.TakeProfitMultiplier, minTakeProfitMult, maxTakeProfitMult)

	if action == models.Buy {
		return models.RiskParameters{
			StopLoss:   state.Price - atr*slMult,
			TakeProfit: state.Price + atr*tpMult,
		}
	}
	return models.RiskParameters{
		StopLoss:   state.Price + atr*slMult,
		TakeProfit: state.Price - atr*tpMult,
	}
}

// SizeMultiplier returns the combined position-size multiplier: a
// confidence tier times a market-regime factor. Trend-aligned trades
// are boosted, counter-trend and sideways trades damped.
func SizeMultiplier(action models.ActionType, confidence float64, condition models.MarketCondition) float64 {
	tier := 1.0
	switch {
	case confidence >= highConfidenceTier:
		tier = highConfidenceSize
	case confidence < lowConfidenceTier:
		tier = lowConfidenceSize
	}

	regime := sidewaysSize
	switch condition {
	case models.MarketBullish:
		if action == models.Buy {
			regime = trendAlignedSize
		} else {
			regime = counterTrendSize
		}
	case models.MarketBearish:
		if action == models.Sell {
			regime = trendAlignedSize
		} else {
			regime = counterTrendSize
		}
	}

	return tier * regime
}

func clampMult(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
