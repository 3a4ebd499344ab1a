package repository

import (
	"context"
	"errors"
	"time"

	"TradeForge/internal/domain/models"
)

// ErrModelUnavailable is returned by a WeightStore when no weights exist
// for the requested (user, symbol). Absence is a valid state, not a
// fault; callers fall back to the rule-based decision path.
var ErrModelUnavailable = errors.New("model weights unavailable")

// ErrInsufficientData marks histories too short for the requested
// operation. Components below the validator boundary never return it;
// they degrade to documented neutral defaults instead.
var ErrInsufficientData = errors.New("insufficient bar history")

// BarProvider returns an ordered, gap-filtered bar history for a symbol.
// Fewer than 20 bars means "insufficient data", not a crash.
type BarProvider interface {
	GetBars(ctx context.Context, symbol string, interval Timeframe, from, to time.Time) ([]models.Bar, error)
	GetLatestBars(ctx context.Context, symbol string, interval Timeframe, limit int) ([]models.Bar, error)
}

// WeightStore keeps opaque serialized policy parameters per (user, symbol).
type WeightStore interface {
	Load(ctx context.Context, userID, symbol string) ([]byte, error)
	Save(ctx context.Context, userID, symbol string, weights []byte, meta map[string]any) error
}

// ReportStore persists validation reports for later audit/UI consumption.
type ReportStore interface {
	Init(ctx context.Context) error
	StoreReport(ctx context.Context, report *models.ValidationReport) error
	Close() error
}

// JobStore persists the training-job queue rows.
type JobStore interface {
	Put(ctx context.Context, job *models.TrainingJob) error
	Get(ctx context.Context, id string) (*models.TrainingJob, error)
	ListRetryable(ctx context.Context, maxAttempts int) ([]*models.TrainingJob, error)
}

// StructuralSource supplies the precomputed structural context for each
// bar of a history. The output contract is bounded scalars: ATR-unit
// distances clipped to +/-50, a trending flag in {0,1} and a volatility
// regime bucket in {0,1,2}. The algorithm behind them is pluggable.
type StructuralSource interface {
	Context(bars []models.Bar, index int) models.StructuralContext
}

// EventPublisher emits lifecycle events (validation reports, trade
// outcomes) for out-of-scope consumers such as the dashboard.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
	Close() error
}

// Metrics is the operational instrumentation hook.
type Metrics interface {
	RecordJob(symbol string, status string)
	RecordTrade(symbol string, won bool)
	RecordValidation(symbol string, approved bool)
	RecordLatency(op string, seconds float64)
	RecordEquity(symbol string, equity float64)
}
