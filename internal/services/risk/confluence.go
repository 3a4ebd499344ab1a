// Package risk scores signal confluence and derives protective levels
// and position sizing for a prospective trade.
package risk

import (
	"math"

	"TradeForge/internal/domain/models"
)

// Profile selects the weighting and multiplier set for a run.
type Profile string

const (
	ProfileLow    Profile = "low"
	ProfileMedium Profile = "medium"
	ProfileHigh   Profile = "high"
)

// ProfileSettings holds one profile's confluence weights, its minimum
// gate and its base ATR multipliers.
type ProfileSettings struct {
	FibWeight    float64
	SRWeight     float64
	TrendWeight  float64
	VolumeWeight float64

	MinConfluence float64
	StopLossATR   float64
	TakeProfitATR float64
}

var profiles = map[Profile]ProfileSettings{
	ProfileLow: {
		FibWeight: 0.20, SRWeight: 0.30, TrendWeight: 0.30, VolumeWeight: 0.20,
		MinConfluence: 0.60, StopLossATR: 0.8, TakeProfitATR: 1.2,
	},
	ProfileMedium: {
		FibWeight: 0.25, SRWeight: 0.25, TrendWeight: 0.30, VolumeWeight: 0.20,
		MinConfluence: 0.45, StopLossATR: 1.0, TakeProfitATR: 1.6,
	},
	ProfileHigh: {
		FibWeight: 0.30, SRWeight: 0.20, TrendWeight: 0.35, VolumeWeight: 0.15,
		MinConfluence: 0.30, StopLossATR: 1.3, TakeProfitATR: 2.2,
	},
}

// Settings returns the profile's settings, falling back to medium for
// unknown names.
func Settings(p Profile) ProfileSettings {
	if s, ok := profiles[p]; ok {
		return s
	}
	return profiles[ProfileMedium]
}

// Confluence computes the weighted agreement score in [0,1] across the
// four independent signal groups.
func Confluence(state *models.TradingState, p Profile) float64 {
	s := Settings(p)
	score := s.FibWeight*fibAlignment(state.Structural) +
		s.SRWeight*srProximity(state.Structural) +
		s.TrendWeight*trendStrength(state) +
		s.VolumeWeight*volumeConfirmation(state)
	return clamp01(score)
}

// fibAlignment rewards price sitting near a fibonacci retracement
// level; distances are in ATR units.
func fibAlignment(sc models.StructuralContext) float64 {
	d := math.Min(math.Abs(sc.FibRet382), math.Min(math.Abs(sc.FibRet500), math.Abs(sc.FibRet618)))
	if d == 0 {
		return 0
	}
	return clamp01(1 - math.Tanh(d/4))
}

// srProximity rewards price near the closest support or resistance
// level.
func srProximity(sc models.StructuralContext) float64 {
	nearest := math.Inf(1)
	for _, d := range []float64{sc.Support1Dist, sc.Resistance1Dist} {
		if d > 0 && d < nearest {
			nearest = d
		}
	}
	if math.IsInf(nearest, 1) {
		return 0
	}
	return clamp01(1 - math.Tanh(nearest/6))
}

// trendStrength combines the snapshot trend score with the structural
// trending-regime scalar.
func trendStrength(state *models.TradingState) float64 {
	base := math.Abs(state.Indicators.TrendSignal)
	return clamp01(base * (0.6 + 0.4*state.Structural.RegimeTrending))
}

// volumeConfirmation maps the normalized-volume feature (neutral 1)
// into [0,1]; above-average volume confirms the signal.
func volumeConfirmation(state *models.TradingState) float64 {
	volNorm := state.Features[1]
	return clamp01((volNorm - 0.5) / 1.5)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
