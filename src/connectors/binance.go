// REST CLIENT FOR BINANCE SPOT KLINES
// RESTY ONLY + INTERNAL RETRY
package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"github.com/davidgonveg/trading-advisor-sub002/src/model"
)

// -----------------------------
// CONFIG
// -----------------------------
const (
	// Default retry configuration
	defaultRetryAttempts   = 5
	defaultRetryBaseDelay  = 500 * time.Millisecond
	defaultRetryMaxBackoff = 8 * time.Second

	maxKlinesPerRequest = 1000
)

type BinanceClient struct {
	baseURL string
	http    *resty.Client
}

func isRetryableResp(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}

	if r == nil {
		return false
	}

	code := r.StatusCode()

	if code >= 500 && code <= 599 {
		return true
	}
	if code == 429 {
		return true
	}
	if code == 408 {
		return true
	}
	return false
}

func NewBinanceClient(baseURL string) *BinanceClient {
	retryCount := defaultRetryAttempts - 1

	if baseURL == "" {
		baseURL = "https://api.binance.com"
		logger.Warnf("No base URL provided, using default: %s", baseURL)
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second).
		SetRetryCount(retryCount).
		SetRetryWaitTime(defaultRetryBaseDelay).
		SetRetryMaxWaitTime(defaultRetryMaxBackoff).
		AddRetryCondition(isRetryableResp)

	return &BinanceClient{
		baseURL: baseURL,
		http:    httpClient,
	}
}

// FetchKlines downloads 1m klines for [start, end) and returns them as OHLCV
// rows ready for upsert. Binance caps one request at 1000 rows, so the range
// is walked in pages.
func (c *BinanceClient) FetchKlines(ctx context.Context, symbol string, start, end time.Time) ([]model.OHLCV1m, error) {
	var out []model.OHLCV1m

	cursor := start
	for cursor.Before(end) {
		page, err := c.fetchKlinesPage(ctx, symbol, cursor, end)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		out = append(out, page...)
		cursor = page[len(page)-1].Datetime.Add(time.Minute)
	}

	logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"rows":   len(out),
	}).Info("klines downloaded")

	return out, nil
}

func (c *BinanceClient) fetchKlinesPage(ctx context.Context, symbol string, start, end time.Time) ([]model.OHLCV1m, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol":    symbol,
			"interval":  "1m",
			"startTime": strconv.FormatInt(start.UnixMilli(), 10),
			"endTime":   strconv.FormatInt(end.UnixMilli(), 10),
			"limit":     strconv.Itoa(maxKlinesPerRequest),
		}).
		Get("/api/v3/klines")
	if err != nil {
		return nil, fmt.Errorf("binance klines request: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("binance klines: status %d: %s", resp.StatusCode(), resp.String())
	}

	// Each kline is a positional array:
	// [openTime, open, high, low, close, volume, closeTime, ...]
	var raw [][]json.RawMessage
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		return nil, fmt.Errorf("binance klines: parse body: %w", err)
	}

	rows := make([]model.OHLCV1m, 0, len(raw))
	for _, k := range raw {
		if len(k) < 6 {
			return nil, fmt.Errorf("binance klines: short row with %d fields", len(k))
		}

		var openMs int64
		if err := json.Unmarshal(k[0], &openMs); err != nil {
			return nil, fmt.Errorf("binance klines: open time: %w", err)
		}

		prices := make([]decimal.Decimal, 5)
		for i := 1; i <= 5; i++ {
			var s string
			if err := json.Unmarshal(k[i], &s); err != nil {
				return nil, fmt.Errorf("binance klines: field %d: %w", i, err)
			}
			d, err := decimal.NewFromString(s)
			if err != nil {
				return nil, fmt.Errorf("binance klines: field %d: %w", i, err)
			}
			prices[i-1] = d
		}

		rows = append(rows, model.OHLCV1m{
			Symbol:   symbol,
			Datetime: time.UnixMilli(openMs).UTC(),
			Open:     prices[0],
			High:     prices[1],
			Low:      prices[2],
			Close:    prices[3],
			Volume:   prices[4],
		})
	}

	return rows, nil
}
