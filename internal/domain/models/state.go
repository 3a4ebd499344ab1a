package models

// MarketCondition labels the broad regime a bar was evaluated in.
type MarketCondition string

const (
	MarketBullish  MarketCondition = "bullish"
	MarketBearish  MarketCondition = "bearish"
	MarketSideways MarketCondition = "sideways"
)

// IndicatorSnapshot holds the indicator values backing one decision.
// Fields are fixed at construction; no open maps.
type IndicatorSnapshot struct {
	TrendSignal float64 // weighted trend score, -1..1
	EMA50       float64
	MACD        float64 // macd line
	MACDSignal  float64
	MACDHist    float64
	ATR         float64
	OBV         float64
	BollUpper   float64
	BollMiddle  float64
	BollLower   float64
	BollPos     float64 // -1..1 position inside the bands

	// Market-phase flags derived from MA50 and its slope.
	Accumulation bool
	Advancing    bool
	Distribution bool
	Declining    bool
}

// TradingState is built fresh per evaluated bar. ConfluenceScore stays 0
// until the risk calculator assigns it.
type TradingState struct {
	Symbol     string
	BarIndex   int
	Price      float64
	Volume     float64
	Indicators IndicatorSnapshot
	Structural StructuralContext
	Features   FeatureVector

	MarketCondition MarketCondition
	Volatility      float64
	ConfluenceScore float64

	// HistoricalPerformance is the recent per-symbol success rate, 0..1.
	HistoricalPerformance float64
}

// ActionType enumerates the discrete decisions the engine can emit.
type ActionType int

const (
	Hold ActionType = iota
	Buy
	Sell
)

func (a ActionType) String() string {
	switch a {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "HOLD"
	}
}

// Action is the graded decision for one evaluated bar.
type Action struct {
	Type       ActionType
	Confidence float64 // 0..100
	Reasoning  string
}

// RiskParameters are absolute price levels for one prospective trade.
type RiskParameters struct {
	StopLoss   float64
	TakeProfit float64
}

// AdaptiveParameters is the per-symbol mutable learning state. It is
// owned exclusively by the orchestrator loop for one symbol at a time
// and never shared across symbols or goroutines.
type AdaptiveParameters struct {
	ConfidenceThreshold  float64
	ConfluenceThreshold  float64
	StopLossMultiplier   float64
	TakeProfitMultiplier float64

	SuccessRate   float64
	TotalTrades   int
	WinningTrades int
	AverageProfit float64
}

// DefaultAdaptiveParameters returns the starting thresholds for a symbol
// with no trade history.
func DefaultAdaptiveParameters() AdaptiveParameters {
	return AdaptiveParameters{
		ConfidenceThreshold:  55,
		ConfluenceThreshold:  0.45,
		StopLossMultiplier:   1.0,
		TakeProfitMultiplier: 1.2,
	}
}
