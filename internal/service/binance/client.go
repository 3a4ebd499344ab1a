// Package binance adapts the Binance klines API to the BarProvider
// contract: ordered, gap-filtered OHLCV history.
package binance

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"

	"TradeForge/internal/domain/models"
	domrepo "TradeForge/internal/domain/repository"
	applogger "TradeForge/pkg/logger"
)

const maxKlinesPerRequest = 1000

// Client wraps the exchange REST client.
type Client struct {
	api *binance.Client
	l   *applogger.Logger
}

var _ domrepo.BarProvider = (*Client)(nil)

func NewClient(apiKey, secretKey string, l *applogger.Logger) *Client {
	return &Client{api: binance.NewClient(apiKey, secretKey), l: l}
}

// GetBars fetches the full [from, to] range, paginating past the
// per-request kline limit.
func (c *Client) GetBars(ctx context.Context, symbol string, interval domrepo.Timeframe, from, to time.Time) ([]models.Bar, error) {
	start := time.Now()
	var bars []models.Bar

	cursor := from.UnixMilli()
	end := to.UnixMilli()
	for cursor < end {
		klines, err := c.api.NewKlinesService().
			Symbol(symbol).
			Interval(string(interval)).
			StartTime(cursor).
			EndTime(end).
			Limit(maxKlinesPerRequest).
			Do(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch klines %s: %w", symbol, err)
		}
		if len(klines) == 0 {
			break
		}

		for _, k := range klines {
			bar, ok := parseKline(k)
			if !ok {
				continue
			}
			if len(bars) > 0 && !bar.Timestamp.After(bars[len(bars)-1].Timestamp) {
				continue
			}
			bars = append(bars, bar)
		}

		last := klines[len(klines)-1].OpenTime
		if last <= cursor {
			break
		}
		cursor = last + 1
		if len(klines) < maxKlinesPerRequest {
			break
		}
	}

	c.l.Debug("bar history fetched",
		applogger.String("symbol", symbol),
		applogger.String("interval", string(interval)),
		applogger.Int("bars", len(bars)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return bars, nil
}

// GetLatestBars fetches the most recent limit bars.
func (c *Client) GetLatestBars(ctx context.Context, symbol string, interval domrepo.Timeframe, limit int) ([]models.Bar, error) {
	if limit <= 0 || limit > maxKlinesPerRequest {
		limit = maxKlinesPerRequest
	}
	klines, err := c.api.NewKlinesService().
		Symbol(symbol).
		Interval(string(interval)).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch latest klines %s: %w", symbol, err)
	}

	bars := make([]models.Bar, 0, len(klines))
	for _, k := range klines {
		if bar, ok := parseKline(k); ok {
			bars = append(bars, bar)
		}
	}
	return bars, nil
}

// parseKline converts one kline, dropping malformed or degenerate rows
// so gaps never reach the feature pipeline.
func parseKline(k *binance.Kline) (models.Bar, bool) {
	open, err1 := strconv.ParseFloat(k.Open, 64)
	high, err2 := strconv.ParseFloat(k.High, 64)
	low, err3 := strconv.ParseFloat(k.Low, 64)
	closePrice, err4 := strconv.ParseFloat(k.Close, 64)
	volume, err5 := strconv.ParseFloat(k.Volume, 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
		return models.Bar{}, false
	}
	if closePrice <= 0 || high < low {
		return models.Bar{}, false
	}
	return models.Bar{
		Timestamp: time.UnixMilli(k.OpenTime).UTC(),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
	}, true
}
