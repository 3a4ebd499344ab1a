package models

import "time"

// Bar represents a single OHLCV record. Bars are immutable and ordered
// by timestamp; a contiguous history slice is assumed gap-free.
type Bar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// FeatureSize is the number of components in a feature vector.
const FeatureSize = 15

// FeatureVector is the fixed-length normalized input consumed by the
// policy model, one per bar.
type FeatureVector [FeatureSize]float64

// StructuralContext carries precomputed structural features for one bar:
// fibonacci projection distances, support/resistance distances and the
// volatility regime. All distances are in ATR units, clipped to [-50, 50].
type StructuralContext struct {
	FibExt127 float64
	FibExt161 float64
	FibExt200 float64
	FibRet382 float64
	FibRet500 float64
	FibRet618 float64

	Support1Dist    float64
	Support2Dist    float64
	Resistance1Dist float64
	Resistance2Dist float64

	// RegimeTrending is 1 when the structural source considers the market
	// trending, 0 in a range. VolRegime buckets ATR/close into {0,1,2}.
	RegimeTrending float64
	VolRegime      int
}
