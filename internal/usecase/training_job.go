package usecase

import (
	"context"
	"fmt"
	"time"

	"TradeForge/internal/domain/models"
	domrepo "TradeForge/internal/domain/repository"
	"TradeForge/internal/services/env"
	"TradeForge/internal/services/features"
	"TradeForge/internal/services/policy"
	"TradeForge/internal/services/risk"
	"TradeForge/internal/services/validation"
	"TradeForge/pkg/logger"
	"TradeForge/pkg/queue"
)

// TrainingMessageType is the queue message type the handler consumes.
const TrainingMessageType = "training.job"

// EventValidationReport is published after every completed validation.
const EventValidationReport = "validation.report"

// TrainingConfig bounds one queued training run.
type TrainingConfig struct {
	UserID      string
	Interval    domrepo.Timeframe
	HistoryDays int
	MaxAttempts int

	Env      env.Config
	Train    policy.TrainConfig
	Validate validation.Config
}

// TrainingHandler consumes training jobs: fetch history, train the
// policy, walk-forward validate, persist the report, and upload weights
// only for approved models.
type TrainingHandler struct {
	cfg     TrainingConfig
	bars    domrepo.BarProvider
	weights domrepo.WeightStore
	reports domrepo.ReportStore
	jobs    domrepo.JobStore
	events  domrepo.EventPublisher
	metrics domrepo.Metrics
	l       *logger.Logger
}

var _ queue.Job = (*TrainingHandler)(nil)

func NewTrainingHandler(
	cfg TrainingConfig,
	bars domrepo.BarProvider,
	weights domrepo.WeightStore,
	reports domrepo.ReportStore,
	jobs domrepo.JobStore,
	events domrepo.EventPublisher,
	metrics domrepo.Metrics,
	l *logger.Logger,
) *TrainingHandler {
	return &TrainingHandler{
		cfg: cfg, bars: bars, weights: weights, reports: reports,
		jobs: jobs, events: events, metrics: metrics, l: l,
	}
}

func (h *TrainingHandler) Name() string { return "symbol-training" }
func (h *TrainingHandler) Type() string { return TrainingMessageType }

// Handle processes one job. Returning an error hands the message back
// to the queue's bounded retry; the job row tracks attempts so
// exhausted jobs drop out of retry sweeps.
func (h *TrainingHandler) Handle(ctx context.Context, payload interface{}) error {
	job, err := queue.ParsePayload[models.TrainingJob](payload)
	if err != nil {
		return fmt.Errorf("parse training job: %w", err)
	}

	job.Status = models.JobTraining
	job.AttemptCount++
	job.UpdatedAt = time.Now().UTC()
	if err := h.jobs.Put(ctx, job); err != nil {
		return err
	}

	if err := h.run(ctx, job); err != nil {
		job.Status = models.JobFailed
		job.ErrorMessage = err.Error()
		job.UpdatedAt = time.Now().UTC()
		if putErr := h.jobs.Put(ctx, job); putErr != nil {
			h.l.Error("failed to persist job failure",
				logger.String("id", job.ID), logger.Error(putErr))
		}
		h.metrics.RecordJob(job.Symbol, string(models.JobFailed))

		if !job.Retryable(h.cfg.MaxAttempts) {
			h.l.Error("job permanently failed",
				logger.String("id", job.ID),
				logger.String("symbol", job.Symbol),
				logger.Int("attempts", job.AttemptCount),
				logger.Error(err),
			)
			// Swallow the error so the queue stops retrying.
			return nil
		}
		return err
	}

	h.metrics.RecordJob(job.Symbol, string(job.Status))
	return nil
}

func (h *TrainingHandler) run(ctx context.Context, job *models.TrainingJob) error {
	start := time.Now()
	defer func() {
		h.metrics.RecordLatency("training_job", time.Since(start).Seconds())
	}()

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -h.cfg.HistoryDays)
	bars, err := h.bars.GetBars(ctx, job.Symbol, h.cfg.Interval, from, to)
	if err != nil {
		return fmt.Errorf("fetch history: %w", err)
	}
	if len(bars) < minUsableBars {
		job.Status = models.JobSkipped
		job.ErrorMessage = "insufficient bar history"
		job.UpdatedAt = time.Now().UTC()
		return h.jobs.Put(ctx, job)
	}
	job.TrainingDataPoints = len(bars)

	model, summary := h.train(bars, job)
	validator := validation.New(h.cfg.Validate, h.l)

	windows, err := validator.CreateWindows(bars)
	if err != nil {
		return fmt.Errorf("create windows: %w", err)
	}
	results := make([]models.WindowResult, 0, len(windows))
	for _, w := range windows {
		results = append(results, validator.ValidateWindow(model, w, bars))
	}
	report := validator.GenerateReport(job.Symbol, results)
	consistency := validator.CheckConsistency(results)
	h.metrics.RecordValidation(job.Symbol, report.Approved)

	if err := h.reports.StoreReport(ctx, report); err != nil {
		return fmt.Errorf("store report: %w", err)
	}
	if err := h.events.Publish(ctx, EventValidationReport, report); err != nil {
		h.l.Warn("validation event publish failed",
			logger.String("symbol", job.Symbol), logger.Error(err))
	}

	if report.Approved {
		data, err := model.Serialize()
		if err != nil {
			return fmt.Errorf("serialize model: %w", err)
		}
		meta := map[string]any{
			"hidden_size":     policy.HiddenSize,
			"sequence_length": h.cfg.Train.SequenceLength,
			"bars":            len(bars),
			"pass_rate":       report.PassRate,
		}
		if err := h.weights.Save(ctx, h.cfg.UserID, job.Symbol, data, meta); err != nil {
			return fmt.Errorf("save weights: %w", err)
		}
	}

	job.Status = models.JobCompleted
	job.CurriculumStage++
	job.ErrorMessage = ""
	job.PerformanceMetrics = map[string]float64{
		"mean_reward":       summary.MeanReward,
		"pass_rate":         report.PassRate,
		"avg_test_win_rate": report.AvgTestWinRate,
		"avg_test_sharpe":   report.AvgTestSharpe,
		"total_test_pnl":    report.TotalTestPnL,
	}
	job.UpdatedAt = time.Now().UTC()
	if err := h.jobs.Put(ctx, job); err != nil {
		return err
	}

	h.l.Info("training job completed",
		logger.String("id", job.ID),
		logger.String("symbol", job.Symbol),
		logger.Bool("approved", report.Approved),
		logger.Bool("consistent", consistency.Consistent),
		logger.Float64("pass_rate", report.PassRate),
	)
	return nil
}

// train runs the episode loop over the full history with a fresh model.
func (h *TrainingHandler) train(bars []models.Bar, job *models.TrainingJob) (*policy.Model, policy.TrainSummary) {
	feats := make([]models.FeatureVector, len(bars))
	for i := range bars {
		feats[i] = features.Extract(bars, i)
	}
	atrs := make([]float64, len(bars))
	for i := range bars {
		atrs[i] = feats[i][9] * bars[i].Close
	}

	model := policy.New(h.cfg.Train.Seed)
	e := env.New(h.cfg.Env, bars, atrs)
	trainer := policy.NewTrainer(model, h.cfg.Train, h.l)

	adaptive := models.DefaultAdaptiveParameters()
	profile := h.cfg.Validate.Profile
	summary := trainer.Run(e, feats, func(idx int, action models.ActionType) env.Order {
		if action == models.Hold {
			return env.Order{}
		}
		state := &models.TradingState{
			Price:      bars[idx].Close,
			Indicators: models.IndicatorSnapshot{ATR: atrs[idx]},
		}
		rp := risk.Parameters(state, action, profile, adaptive)
		return env.Order{Quantity: 1, StopLoss: rp.StopLoss, TakeProfit: rp.TakeProfit}
	})

	h.l.Debug("in-sample training finished",
		logger.String("symbol", job.Symbol),
		logger.Int("episodes", summary.Episodes),
		logger.Float64("mean_reward", summary.MeanReward),
	)
	return model, summary
}
