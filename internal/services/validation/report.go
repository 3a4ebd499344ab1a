package validation

import (
	"fmt"
	"math"
	"time"

	"TradeForge/internal/domain/models"
)

// GenerateReport aggregates window results into the acceptance
// decision. Approval requires every gate to hold; a single window with
// a catastrophic drawdown vetoes the report regardless of pass rate.
func (v *Validator) GenerateReport(symbol string, results []models.WindowResult) *models.ValidationReport {
	report := &models.ValidationReport{
		Symbol:      symbol,
		GeneratedAt: time.Now().UTC(),
		Windows:     results,
	}
	if len(results) == 0 {
		report.Recommendation = "no validation windows; extend the bar history"
		return report
	}

	winRates := make([]float64, 0, len(results))
	sharpes := make([]float64, 0, len(results))
	var ddSum float64
	catastrophic := false
	for _, r := range results {
		report.TotalWindows++
		if r.Passed {
			report.PassedWindows++
		}
		winRates = append(winRates, r.TestWinRate)
		sharpes = append(sharpes, r.TestSharpe)
		ddSum += r.TestMaxDrawdown
		report.TotalTestPnL += r.TestNetPnL
		if r.TestMaxDrawdown > v.cfg.CatastrophicDD {
			catastrophic = true
		}
	}

	report.PassRate = float64(report.PassedWindows) / float64(report.TotalWindows)
	report.AvgTestWinRate, report.WinRateStdDev = meanStdDev(winRates)
	report.AvgTestSharpe, report.SharpeStdDev = meanStdDev(sharpes)
	report.AvgTestDrawdown = ddSum / float64(report.TotalWindows)

	report.Approved = report.PassRate >= v.cfg.MinPassRate &&
		report.AvgTestWinRate >= v.cfg.MinWinRate &&
		report.AvgTestSharpe >= v.cfg.MinSharpe &&
		report.AvgTestDrawdown <= v.cfg.MaxDrawdown &&
		report.WinRateStdDev <= v.cfg.MaxWinRateStdDev &&
		!catastrophic

	report.Recommendation = v.recommend(report, catastrophic)
	return report
}

func (v *Validator) recommend(r *models.ValidationReport, catastrophic bool) string {
	switch {
	case catastrophic:
		return fmt.Sprintf("rejected: at least one window exceeded %.0f%% drawdown", v.cfg.CatastrophicDD*100)
	case r.Approved:
		return fmt.Sprintf("approved: %d/%d windows passed, avg win rate %.1f%%",
			r.PassedWindows, r.TotalWindows, r.AvgTestWinRate*100)
	case r.PassRate < v.cfg.MinPassRate:
		return fmt.Sprintf("rejected: pass rate %.0f%% below %.0f%%", r.PassRate*100, v.cfg.MinPassRate*100)
	case r.WinRateStdDev > v.cfg.MaxWinRateStdDev:
		return fmt.Sprintf("rejected: win rate unstable across windows (stddev %.2f)", r.WinRateStdDev)
	default:
		return "rejected: average out-of-sample performance below thresholds"
	}
}

// CheckConsistency flags decay-over-time patterns: a sharp
// window-to-window win-rate drop, or a first-half average that the
// second half fails to hold. It is advisory and separate from the
// acceptance gate.
func (v *Validator) CheckConsistency(results []models.WindowResult) models.ConsistencyCheck {
	check := models.ConsistencyCheck{Consistent: true}
	if len(results) < 2 {
		return check
	}

	for i := 1; i < len(results); i++ {
		drop := results[i-1].TestWinRate - results[i].TestWinRate
		if drop > 0.25 {
			check.Consistent = false
			check.WinRateDrops = append(check.WinRateDrops,
				fmt.Sprintf("%s->%s: win rate fell %.2f", results[i-1].Window.Label, results[i].Window.Label, drop))
		}
	}

	half := len(results) / 2
	check.FirstHalfAvg = meanWinRate(results[:half])
	check.SecondHalfAvg = meanWinRate(results[half:])
	if check.FirstHalfAvg-check.SecondHalfAvg > 0.15 {
		check.Degrading = true
		check.Consistent = false
	}
	return check
}

func meanWinRate(results []models.WindowResult) float64 {
	if len(results) == 0 {
		return 0
	}
	var sum float64
	for _, r := range results {
		sum += r.TestWinRate
	}
	return sum / float64(len(results))
}

// meanStdDev returns the mean and population standard deviation.
func meanStdDev(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	var sum2 float64
	for _, x := range xs {
		d := x - mean
		sum2 += d * d
	}
	return mean, math.Sqrt(sum2 / float64(len(xs)))
}
