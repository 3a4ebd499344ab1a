package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"TradeForge/internal/domain/models"
	domrepo "TradeForge/internal/domain/repository"
	"TradeForge/pkg/cache"
	applogger "TradeForge/pkg/logger"
)

const barCacheTTL = time.Hour

// CachedBarProvider memoizes full history fetches so repeated batch and
// training runs over the same day hit the exchange once per symbol.
// GetLatestBars always goes to the source.
type CachedBarProvider struct {
	source domrepo.BarProvider
	cache  cache.Service
	l      *applogger.Logger
}

var _ domrepo.BarProvider = (*CachedBarProvider)(nil)

func NewCachedBarProvider(source domrepo.BarProvider, c cache.Service, l *applogger.Logger) *CachedBarProvider {
	return &CachedBarProvider{source: source, cache: c, l: l}
}

func (p *CachedBarProvider) GetBars(ctx context.Context, symbol string, interval domrepo.Timeframe, from, to time.Time) ([]models.Bar, error) {
	key := barCacheKey(symbol, interval, from, to)

	var bars []models.Bar
	err := p.cache.Get(ctx, key, &bars)
	if err == nil {
		p.l.Debug("bar history cache hit",
			applogger.String("symbol", symbol), applogger.Int("bars", len(bars)))
		return bars, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		p.l.Warn("bar cache read error",
			applogger.String("symbol", symbol), applogger.Error(err))
	}

	bars, err = p.source.GetBars(ctx, symbol, interval, from, to)
	if err != nil {
		return nil, err
	}
	if err := p.cache.Set(ctx, key, bars, barCacheTTL); err != nil {
		p.l.Warn("bar cache write error",
			applogger.String("symbol", symbol), applogger.Error(err))
	}
	return bars, nil
}

func (p *CachedBarProvider) GetLatestBars(ctx context.Context, symbol string, interval domrepo.Timeframe, limit int) ([]models.Bar, error) {
	return p.source.GetLatestBars(ctx, symbol, interval, limit)
}

// barCacheKey truncates the range to day granularity so runs within the
// same day share one entry per symbol.
func barCacheKey(symbol string, interval domrepo.Timeframe, from, to time.Time) string {
	return fmt.Sprintf("bars:%s:%s:%s:%s",
		symbol, interval,
		from.UTC().Format("2006-01-02"),
		to.UTC().Format("2006-01-02"))
}
