package repository

// Timeframe represents candle resolution buckets.
type Timeframe string

const (
	TF15m Timeframe = "15m"
	TF1h  Timeframe = "1h"
	TF4h  Timeframe = "4h"
	TF1d  Timeframe = "1d"
)

// IsValidTimeframe returns true if tf is a supported timeframe.
func IsValidTimeframe(tf Timeframe) bool {
	switch tf {
	case TF15m, TF1h, TF4h, TF1d:
		return true
	default:
		return false
	}
}

// DefaultTimeframe returns the default timeframe.
func DefaultTimeframe() Timeframe { return TF1h }

// NormalizeTimeframe converts raw string to a valid timeframe (or default).
func NormalizeTimeframe(s string) Timeframe {
	if s == "" {
		return DefaultTimeframe()
	}
	tf := Timeframe(s)
	if IsValidTimeframe(tf) {
		return tf
	}
	return DefaultTimeframe()
}

// BarsPerMonth estimates how many bars of this timeframe fit in one
// month. The walk-forward validator uses it to convert month-based
// window config into bar counts.
func BarsPerMonth(tf Timeframe) int {
	switch tf {
	case TF15m:
		return 30 * 24 * 4
	case TF1h:
		return 30 * 24
	case TF4h:
		return 30 * 6
	case TF1d:
		return 30
	default:
		return 30 * 24
	}
}
