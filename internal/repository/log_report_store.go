package repository

import (
	"context"

	"TradeForge/internal/domain/models"
	domrepo "TradeForge/internal/domain/repository"
	applogger "TradeForge/pkg/logger"
)

// LogReportStore writes report summaries to the log instead of a
// database. Used when ClickHouse is disabled.
type LogReportStore struct {
	l *applogger.Logger
}

var _ domrepo.ReportStore = (*LogReportStore)(nil)

func NewLogReportStore(l *applogger.Logger) *LogReportStore {
	return &LogReportStore{l: l}
}

func (s *LogReportStore) Init(context.Context) error { return nil }
func (s *LogReportStore) Close() error               { return nil }

func (s *LogReportStore) StoreReport(_ context.Context, report *models.ValidationReport) error {
	s.l.Info("validation report (not persisted)",
		applogger.String("symbol", report.Symbol),
		applogger.Int("windows", report.TotalWindows),
		applogger.Float64("pass_rate", report.PassRate),
		applogger.Bool("approved", report.Approved),
		applogger.String("recommendation", report.Recommendation),
	)
	return nil
}
