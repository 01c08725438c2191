// Package yahoo fetches daily price history from Yahoo Finance. The
// history backs return estimation for portfolio assets that track a
// listed instrument.
package yahoo

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/wnjoon/go-yfinance/pkg/models"
	"github.com/wnjoon/go-yfinance/pkg/ticker"
)

// DailyClose is a single adjusted closing price.
type DailyClose struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// Client wraps the go-yfinance library.
type Client struct {
	log zerolog.Logger
}

func NewClient(log zerolog.Logger) *Client {
	return &Client{
		log: log.With().Str("client", "yahoo").Logger(),
	}
}

// GetDailyCloses fetches adjusted daily closes for a symbol.
//
// Supports periods: 1d, 5d, 1mo, 3mo, 6mo, 1y, 2y, 5y, 10y, ytd, max
func (c *Client) GetDailyCloses(symbol string, period string) ([]DailyClose, error) {
	t, err := ticker.New(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticker: %w", err)
	}
	defer t.Close()

	params := models.HistoryParams{
		Period:     period,
		Interval:   "1d",
		AutoAdjust: true,
	}

	bars, err := t.History(params)
	if err != nil {
		return nil, fmt.Errorf("failed to get historical prices: %w", err)
	}

	closes := make([]DailyClose, 0, len(bars))
	for _, bar := range bars {
		closes = append(closes, DailyClose{
			Date:  bar.Date,
			Close: bar.Close,
		})
	}

	c.log.Debug().
		Str("symbol", symbol).
		Str("period", period).
		Int("count", len(closes)).
		Msg("Fetched daily closes")

	return closes, nil
}

// GetCurrentPrice fetches the latest quote with exponential backoff.
func (c *Client) GetCurrentPrice(symbol string, maxRetries int) (*float64, error) {
	if maxRetries == 0 {
		maxRetries = 3
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			waitTime := time.Duration(1<<uint(attempt-1)) * time.Second
			c.log.Warn().Err(lastErr).Str("symbol", symbol).Int("attempt", attempt+1).Dur("wait", waitTime).Msg("Retrying")
			time.Sleep(waitTime)
		}

		price, err := c.fetchQuote(symbol)
		if err != nil {
			lastErr = err
			continue
		}
		return price, nil
	}

	return nil, fmt.Errorf("failed to get valid price after %d attempts: %w", maxRetries, lastErr)
}

// fetchQuote performs a single quote attempt, closing the ticker
// handle before returning.
func (c *Client) fetchQuote(symbol string) (*float64, error) {
	t, err := ticker.New(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticker: %w", err)
	}
	defer t.Close()

	// Quote is faster than Info
	quote, err := t.Quote()
	if err == nil && quote != nil && quote.RegularMarketPrice > 0 {
		price := quote.RegularMarketPrice
		return &price, nil
	}

	info, err := t.Info()
	if err == nil && info != nil && info.CurrentPrice > 0 {
		price := info.CurrentPrice
		return &price, nil
	}

	return nil, fmt.Errorf("no valid price for %s", symbol)
}
