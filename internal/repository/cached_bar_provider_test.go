package repository

import (
	"context"
	"testing"
	"time"

	"TradeForge/internal/domain/models"
	domrepo "TradeForge/internal/domain/repository"
	"TradeForge/pkg/cache"
	"TradeForge/pkg/logger"
)

type countingProvider struct {
	bars      []models.Bar
	fullCalls int
	lastCalls int
}

func (p *countingProvider) GetBars(context.Context, string, domrepo.Timeframe, time.Time, time.Time) ([]models.Bar, error) {
	p.fullCalls++
	return p.bars, nil
}

func (p *countingProvider) GetLatestBars(context.Context, string, domrepo.Timeframe, int) ([]models.Bar, error) {
	p.lastCalls++
	return p.bars, nil
}

func historyBars(n int) []models.Bar {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, n)
	for i := range bars {
		price := 100 + float64(i)
		bars[i] = models.Bar{
			Timestamp: start.AddDate(0, 0, i),
			Open:      price, High: price + 1, Low: price - 1, Close: price,
			Volume: 1000,
		}
	}
	return bars
}

func TestCachedBarProviderFetchesOncePerRange(t *testing.T) {
	ctx := context.Background()
	source := &countingProvider{bars: historyBars(30)}
	p := NewCachedBarProvider(source, cache.NewMemoryCache(10), logger.Nop())

	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 4, 1, 10, 30, 0, 0, time.UTC)

	first, err := p.GetBars(ctx, "BTCUSDT", domrepo.TF1d, from, to)
	if err != nil {
		t.Fatalf("GetBars: %v", err)
	}
	// Same day, different intra-day timestamp: must hit the cache.
	second, err := p.GetBars(ctx, "BTCUSDT", domrepo.TF1d, from, to.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("GetBars cached: %v", err)
	}

	if source.fullCalls != 1 {
		t.Fatalf("expected one source fetch, got %d", source.fullCalls)
	}
	if len(first) != len(second) {
		t.Fatalf("cached history diverged: %d vs %d bars", len(first), len(second))
	}
	for i := range first {
		if !first[i].Timestamp.Equal(second[i].Timestamp) || first[i].Close != second[i].Close {
			t.Fatalf("bar %d mismatch after cache round trip", i)
		}
	}
}

func TestCachedBarProviderKeysBySymbolAndRange(t *testing.T) {
	ctx := context.Background()
	source := &countingProvider{bars: historyBars(30)}
	p := NewCachedBarProvider(source, cache.NewMemoryCache(10), logger.Nop())

	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	if _, err := p.GetBars(ctx, "BTCUSDT", domrepo.TF1d, from, to); err != nil {
		t.Fatalf("GetBars: %v", err)
	}
	if _, err := p.GetBars(ctx, "ETHUSDT", domrepo.TF1d, from, to); err != nil {
		t.Fatalf("GetBars other symbol: %v", err)
	}
	if _, err := p.GetBars(ctx, "BTCUSDT", domrepo.TF1d, from, to.AddDate(0, 0, 1)); err != nil {
		t.Fatalf("GetBars other range: %v", err)
	}

	if source.fullCalls != 3 {
		t.Fatalf("distinct symbol/range pairs must each fetch, got %d calls", source.fullCalls)
	}
}

func TestCachedBarProviderLatestBypassesCache(t *testing.T) {
	ctx := context.Background()
	source := &countingProvider{bars: historyBars(5)}
	p := NewCachedBarProvider(source, cache.NewMemoryCache(10), logger.Nop())

	for i := 0; i < 3; i++ {
		if _, err := p.GetLatestBars(ctx, "BTCUSDT", domrepo.TF1d, 5); err != nil {
			t.Fatalf("GetLatestBars: %v", err)
		}
	}
	if source.lastCalls != 3 {
		t.Fatalf("latest bars must always hit the source, got %d calls", source.lastCalls)
	}
}
