// Package di assembles the application from its providers. Wiring is
// explicit; every constructor is a plain function so failures surface
// at startup with a concrete error.
package di

import (
	internalrepo "TradeForge/internal/repository"
	"TradeForge/pkg/config"
	"TradeForge/pkg/server"
)

// InitializeApp builds the full dependency graph and returns the
// application.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	l, err := ProvideLogger(cfg)
	if err != nil {
		return nil, err
	}

	m := ProvideMetrics(cfg)

	chClient, err := ProvideClickHouseClient(cfg)
	if err != nil {
		return nil, err
	}
	reports, err := ProvideReportStore(chClient, l)
	if err != nil {
		return nil, err
	}

	producer, err := ProvideKafkaProducer(cfg)
	if err != nil {
		return nil, err
	}
	events := ProvideEventPublisher(producer, cfg)

	redisClient := ProvideRedisClient(cfg)

	bars := ProvideBarProvider(cfg, ProvideCache(redisClient), l)
	weights := ProvideWeightStore(cfg, l)
	orchestrator := ProvideOrchestrator(cfg, bars, weights, m, l)

	app := server.New(cfg, l, orchestrator, chClient, events)

	if redisClient != nil {
		jobs := internalrepo.NewRedisJobStore(redisClient, l)
		handler := ProvideTrainingHandler(cfg, bars, weights, reports, jobs, events, m, l)
		q := ProvideQueue(cfg, redisClient, l)
		app.SetWorker(redisClient, q, handler)
	}

	return app, nil
}
