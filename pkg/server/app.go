// Package server owns the application lifecycle: mode dispatch, the
// metrics endpoint, and graceful shutdown.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"TradeForge/internal/domain/models"
	"TradeForge/internal/domain/repository"
	"TradeForge/internal/usecase"
	pkgch "TradeForge/pkg/clickhouse"
	"TradeForge/pkg/config"
	applogger "TradeForge/pkg/logger"
	"TradeForge/pkg/queue"
)

// Run modes.
const (
	ModeBacktest = "backtest"
	ModeWorker   = "worker"
)

// App encapsulates the application lifecycle.
type App struct {
	cfg          *config.Config
	l            *applogger.Logger
	orchestrator *usecase.Orchestrator
	chClient     *pkgch.Client
	events       repository.EventPublisher

	redisClient *redis.Client
	queue       *queue.RedisQueue
	handler     *usecase.TrainingHandler

	metricsSrv *http.Server
}

// New creates the app with the always-present dependencies. Worker
// dependencies are attached via SetWorker when Redis is enabled.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	orchestrator *usecase.Orchestrator,
	chClient *pkgch.Client,
	events repository.EventPublisher,
) *App {
	return &App{
		cfg:          cfg,
		l:            l,
		orchestrator: orchestrator,
		chClient:     chClient,
		events:       events,
	}
}

// SetWorker attaches the queue-consumer dependencies.
func (a *App) SetWorker(client *redis.Client, q *queue.RedisQueue, handler *usecase.TrainingHandler) {
	a.redisClient = client
	a.queue = q
	a.handler = handler
}

// Run executes the requested mode and blocks until it finishes or a
// shutdown signal arrives.
func (a *App) Run(mode string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.startMetrics()
	defer a.shutdown()

	switch mode {
	case ModeBacktest:
		return a.runBacktest(ctx)
	case ModeWorker:
		return a.runWorker(ctx)
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}

// runBacktest executes one batch over the configured symbols and exits.
func (a *App) runBacktest(ctx context.Context) error {
	batch, err := a.orchestrator.RunBatch(ctx, a.cfg.Binance.Symbols)
	if err != nil {
		return fmt.Errorf("batch run: %w", err)
	}

	for _, r := range batch.Results {
		if r.Skipped {
			a.l.Warn("symbol skipped",
				applogger.String("symbol", r.Symbol),
				applogger.String("reason", r.SkipReason))
			continue
		}
		a.l.Info("symbol result",
			applogger.String("symbol", r.Symbol),
			applogger.Int("trades", r.Trades),
			applogger.Float64("win_rate", r.WinRate),
			applogger.Float64("final_balance", r.FinalBalance),
			applogger.Bool("fallback", r.UsedFallback),
			applogger.Float64("confidence_threshold", r.Adaptive.ConfidenceThreshold),
		)
	}
	return nil
}

// runWorker enqueues one training job per configured symbol, then
// consumes the queue until interrupted.
func (a *App) runWorker(ctx context.Context) error {
	if a.queue == nil {
		return fmt.Errorf("worker mode requires redis to be enabled")
	}

	a.queue.RegisterJob(a.handler)
	if err := a.queue.Start(); err != nil {
		return fmt.Errorf("queue start: %w", err)
	}

	for _, symbol := range a.cfg.Binance.Symbols {
		job := models.TrainingJob{
			ID:        uuid.NewString(),
			Symbol:    symbol,
			Status:    models.JobQueued,
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		}
		if err := a.queue.Enqueue(ctx, usecase.TrainingMessageType, job); err != nil {
			a.l.Error("enqueue failed",
				applogger.String("symbol", symbol), applogger.Error(err))
			continue
		}
		a.l.Info("training job enqueued",
			applogger.String("id", job.ID), applogger.String("symbol", symbol))
	}

	<-ctx.Done()
	a.l.Info("shutdown signal received")

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return a.queue.Stop(stopCtx)
}

// startMetrics exposes the Prometheus endpoint when enabled.
func (a *App) startMetrics() {
	if !a.cfg.Metrics.Enabled {
		return
	}

	mux := http.NewServeMux()
	mux.Handle(a.cfg.Metrics.Path, promhttp.Handler())
	a.metricsSrv = &http.Server{Addr: a.cfg.Metrics.Addr, Handler: mux}

	go func() {
		a.l.Info("metrics endpoint listening",
			applogger.String("addr", a.cfg.Metrics.Addr),
			applogger.String("path", a.cfg.Metrics.Path))
		if err := a.metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.l.Error("metrics server error", applogger.Error(err))
		}
	}()
}

// shutdown closes the infrastructure clients.
func (a *App) shutdown() {
	if a.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.metricsSrv.Shutdown(ctx); err != nil {
			a.l.Warn("metrics shutdown error", applogger.Error(err))
		}
	}

	if a.events != nil {
		if err := a.events.Close(); err != nil {
			a.l.Warn("event publisher close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.l.Warn("redis close error", applogger.Error(err))
		}
	}
	a.l.Info("shutdown complete")
}
