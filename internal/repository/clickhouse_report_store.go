package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"TradeForge/internal/domain/models"
	domrepo "TradeForge/internal/domain/repository"
	pkgch "TradeForge/pkg/clickhouse"
	applogger "TradeForge/pkg/logger"
)

// CHReportStore persists walk-forward validation reports in ClickHouse.
// Inserts only; reports are audit records and never updated.
type CHReportStore struct {
	ch *pkgch.Client
	db *sql.DB
	l  *applogger.Logger
}

var _ domrepo.ReportStore = (*CHReportStore)(nil)

func NewCHReportStore(ch *pkgch.Client, l *applogger.Logger) *CHReportStore {
	return &CHReportStore{ch: ch, db: ch.DB(), l: l}
}

var reportSchema = []string{
	`CREATE TABLE IF NOT EXISTS validation_reports (
        symbol            String,
        generated_at      DateTime64(3),
        total_windows     UInt32,
        passed_windows    UInt32,
        pass_rate         Float64,
        avg_test_win_rate Float64,
        win_rate_stddev   Float64,
        avg_test_sharpe   Float64,
        sharpe_stddev     Float64,
        avg_test_drawdown Float64,
        total_test_pnl    Float64,
        approved          UInt8,
        recommendation    String
    ) ENGINE = MergeTree()
    ORDER BY (symbol, generated_at)`,
	`CREATE TABLE IF NOT EXISTS validation_windows (
        symbol            String,
        generated_at      DateTime64(3),
        label             String,
        train_start       Int64,
        train_end         Int64,
        test_start        Int64,
        test_end          Int64,
        train_win_rate    Float64,
        test_trades       UInt32,
        test_win_rate     Float64,
        test_sharpe       Float64,
        test_max_drawdown Float64,
        test_net_pnl      Float64,
        passed            UInt8,
        failure_reasons   String
    ) ENGINE = MergeTree()
    ORDER BY (symbol, generated_at, label)`,
}

// Init ensures the report tables exist (idempotent).
func (s *CHReportStore) Init(ctx context.Context) error {
	return s.ch.InitSchema(ctx, reportSchema)
}

// StoreReport inserts one report row plus one row per window.
func (s *CHReportStore) StoreReport(ctx context.Context, report *models.ValidationReport) error {
	start := time.Now()

	const reportQ = `
        INSERT INTO validation_reports (
            symbol, generated_at, total_windows, passed_windows, pass_rate,
            avg_test_win_rate, win_rate_stddev, avg_test_sharpe, sharpe_stddev,
            avg_test_drawdown, total_test_pnl, approved, recommendation
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	if _, err := s.db.ExecContext(ctx, reportQ,
		report.Symbol, report.GeneratedAt,
		uint32(report.TotalWindows), uint32(report.PassedWindows), report.PassRate,
		report.AvgTestWinRate, report.WinRateStdDev, report.AvgTestSharpe, report.SharpeStdDev,
		report.AvgTestDrawdown, report.TotalTestPnL, boolToUInt8(report.Approved), report.Recommendation,
	); err != nil {
		s.l.Error("clickhouse store_report insert error",
			applogger.String("symbol", report.Symbol),
			applogger.Error(err),
		)
		return fmt.Errorf("insert report: %w", err)
	}

	const windowQ = `
        INSERT INTO validation_windows (
            symbol, generated_at, label, train_start, train_end, test_start, test_end,
            train_win_rate, test_trades, test_win_rate, test_sharpe,
            test_max_drawdown, test_net_pnl, passed, failure_reasons
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	for _, w := range report.Windows {
		if _, err := s.db.ExecContext(ctx, windowQ,
			report.Symbol, report.GeneratedAt, w.Window.Label,
			int64(w.Window.TrainStart), int64(w.Window.TrainEnd),
			int64(w.Window.TestStart), int64(w.Window.TestEnd),
			w.TrainWinRate, uint32(w.TestTrades), w.TestWinRate, w.TestSharpe,
			w.TestMaxDrawdown, w.TestNetPnL, boolToUInt8(w.Passed),
			strings.Join(w.FailureReasons, ","),
		); err != nil {
			s.l.Error("clickhouse store_report window insert error",
				applogger.String("symbol", report.Symbol),
				applogger.String("window", w.Window.Label),
				applogger.Error(err),
			)
			return fmt.Errorf("insert window %s: %w", w.Window.Label, err)
		}
	}

	s.l.Info("validation report stored",
		applogger.String("symbol", report.Symbol),
		applogger.Int("windows", len(report.Windows)),
		applogger.Bool("approved", report.Approved),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

// Close is a no-op; the shared ClickHouse client owns the pool.
func (s *CHReportStore) Close() error { return nil }

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
