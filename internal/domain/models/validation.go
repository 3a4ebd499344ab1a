package models

import "time"

// Failure reason codes attached to a WindowResult. Reasons are not
// mutually exclusive.
const (
	FailInsufficientTrades = "insufficient_trades"
	FailLowWinRate         = "low_win_rate"
	FailLowSharpe          = "low_sharpe"
	FailExcessiveDrawdown  = "excessive_drawdown"
	FailOverfittingGap     = "overfitting_gap"
)

// ValidationWindow is one rolling train/test split, expressed as
// inclusive bar-index ranges. TrainEnd+1 == TestStart always holds and
// test segments never overlap across windows.
type ValidationWindow struct {
	Label      string
	TrainStart int
	TrainEnd   int
	TestStart  int
	TestEnd    int
}

// WindowResult is the out-of-sample outcome of a single window.
type WindowResult struct {
	Window ValidationWindow

	TrainTrades  int
	TrainWinRate float64

	TestTrades      int
	TestWinRate     float64
	TestSharpe      float64
	TestMaxDrawdown float64
	TestNetPnL      float64

	Passed         bool
	FailureReasons []string
}

// ValidationReport aggregates all window results for one asset.
type ValidationReport struct {
	Symbol      string
	GeneratedAt time.Time

	TotalWindows  int
	PassedWindows int
	PassRate      float64

	AvgTestWinRate  float64
	WinRateStdDev   float64
	AvgTestSharpe   float64
	SharpeStdDev    float64
	AvgTestDrawdown float64
	TotalTestPnL    float64

	Approved       bool
	Recommendation string

	Windows []WindowResult
}

// ConsistencyCheck flags decay-over-time patterns across windows,
// separate from the acceptance gate.
type ConsistencyCheck struct {
	Consistent    bool
	Degrading     bool
	WinRateDrops  []string
	FirstHalfAvg  float64
	SecondHalfAvg float64
}
