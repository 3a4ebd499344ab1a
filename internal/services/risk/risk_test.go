package risk

import (
	"math"
	"testing"

	"TradeForge/internal/domain/models"
)

func strongState() *models.TradingState {
	st := &models.TradingState{
		Price: 100,
		Indicators: models.IndicatorSnapshot{
			TrendSignal: 0.9,
			ATR:         2,
		},
		Structural: models.StructuralContext{
			FibRet382:       0.4,
			Support1Dist:    0.6,
			Resistance1Dist: 8,
			RegimeTrending:  1,
		},
	}
	st.Features[1] = 1.8 // well above average volume
	return st
}

func weakState() *models.TradingState {
	st := &models.TradingState{
		Price: 100,
		Indicators: models.IndicatorSnapshot{
			TrendSignal: 0.05,
			ATR:         2,
		},
		Structural: models.StructuralContext{
			FibRet382:       30,
			Support1Dist:    40,
			Resistance1Dist: 40,
		},
	}
	st.Features[1] = 0.5
	return st
}

func TestConfluenceBoundsAndOrdering(t *testing.T) {
	for _, p := range []Profile{ProfileLow, ProfileMedium, ProfileHigh} {
		strong := Confluence(strongState(), p)
		weak := Confluence(weakState(), p)
		if strong < 0 || strong > 1 || weak < 0 || weak > 1 {
			t.Fatalf("%s: scores out of [0,1]: strong=%f weak=%f", p, strong, weak)
		}
		if strong <= weak {
			t.Fatalf("%s: aligned signals must outscore conflicting ones: %f <= %f", p, strong, weak)
		}
	}
}

func TestProfileGatesAreOrdered(t *testing.T) {
	low, med, high := Settings(ProfileLow), Settings(ProfileMedium), Settings(ProfileHigh)
	if !(low.MinConfluence > med.MinConfluence && med.MinConfluence > high.MinConfluence) {
		t.Fatalf("conservative profiles must demand more confluence: %f %f %f",
			low.MinConfluence, med.MinConfluence, high.MinConfluence)
	}
	if Settings(Profile("bogus")) != med {
		t.Fatalf("unknown profile must fall back to medium")
	}
}

func TestParametersSidesAndClamps(t *testing.T) {
	st := strongState()
	adaptive := models.DefaultAdaptiveParameters()

	long := Parameters(st, models.Buy, ProfileMedium, adaptive)
	if long.StopLoss >= st.Price || long.TakeProfit <= st.Price {
		t.Fatalf("long levels on wrong side: %+v", long)
	}
	short := Parameters(st, models.Sell, ProfileMedium, adaptive)
	if short.StopLoss <= st.Price || short.TakeProfit >= st.Price {
		t.Fatalf("short levels on wrong side: %+v", short)
	}
	if got := Parameters(st, models.Hold, ProfileMedium, adaptive); got != (models.RiskParameters{}) {
		t.Fatalf("hold must produce zero levels, got %+v", got)
	}

	// Extreme adaptive multipliers are clamped to the effective bounds.
	adaptive.StopLossMultiplier = 10
	adaptive.TakeProfitMultiplier = 10
	wide := Parameters(st, models.Buy, ProfileMedium, adaptive)
	atr := st.Indicators.ATR
	if d := st.Price - wide.StopLoss; math.Abs(d-atr*maxStopLossMult) > 1e-9 {
		t.Fatalf("stop distance not clamped: %f", d)
	}
	if d := wide.TakeProfit - st.Price; math.Abs(d-atr*maxTakeProfitMult) > 1e-9 {
		t.Fatalf("target distance not clamped: %f", d)
	}

	adaptive.StopLossMultiplier = 0.01
	adaptive.TakeProfitMultiplier = 0.01
	tight := Parameters(st, models.Buy, ProfileMedium, adaptive)
	if d := st.Price - tight.StopLoss; math.Abs(d-atr*minStopLossMult) > 1e-9 {
		t.Fatalf("stop distance not floor-clamped: %f", d)
	}
	if d := tight.TakeProfit - st.Price; math.Abs(d-atr*minTakeProfitMult) > 1e-9 {
		t.Fatalf("target distance not floor-clamped: %f", d)
	}
}

func TestSizeMultiplierTiers(t *testing.T) {
	cases := []struct {
		name       string
		action     models.ActionType
		confidence float64
		condition  models.MarketCondition
		want       float64
	}{
		{"high conf aligned", models.Buy, 90, models.MarketBullish, 1.5 * 1.2},
		{"low conf aligned", models.Buy, 60, models.MarketBullish, 0.5 * 1.2},
		{"mid conf counter", models.Sell, 75, models.MarketBullish, 1.0 * 0.7},
		{"mid conf sideways", models.Buy, 75, models.MarketSideways, 1.0 * 0.8},
		{"short aligned bearish", models.Sell, 90, models.MarketBearish, 1.5 * 1.2},
	}
	for _, tc := range cases {
		if got := SizeMultiplier(tc.action, tc.confidence, tc.condition); math.Abs(got-tc.want) > 1e-12 {
			t.Fatalf("%s: got %f want %f", tc.name, got, tc.want)
		}
	}
}
