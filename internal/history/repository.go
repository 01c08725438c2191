// Package history persists daily price series and derives the aligned
// return series the covariance estimator consumes. Gaps in a series are
// forward-filled then back-filled before returns are computed.
package history

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/oddsforge/parlay-engine/internal/database"
)

// Schema is the daily prices table owned by this repository.
const Schema = `
CREATE TABLE IF NOT EXISTS daily_prices (
	symbol TEXT NOT NULL,
	date   TEXT NOT NULL,
	close  REAL NOT NULL,
	PRIMARY KEY (symbol, date)
);
CREATE INDEX IF NOT EXISTS idx_daily_prices_date ON daily_prices(date);
`

// TimeSeries holds aligned per-symbol price series over a shared date
// axis. Missing observations are NaN until filled.
type TimeSeries struct {
	Dates []string
	Data  map[string][]float64
}

// Repository reads and writes daily price history.
type Repository struct {
	db  *database.DB
	log zerolog.Logger
}

func NewRepository(db *database.DB, log zerolog.Logger) (*Repository, error) {
	if err := db.Migrate(Schema); err != nil {
		return nil, err
	}
	return &Repository{
		db:  db,
		log: log.With().Str("component", "history").Logger(),
	}, nil
}

// UpsertPrice stores one closing price.
func (r *Repository) UpsertPrice(symbol, date string, close float64) error {
	_, err := r.db.Exec(`
		INSERT INTO daily_prices (symbol, date, close)
		VALUES (?, ?, ?)
		ON CONFLICT(symbol, date) DO UPDATE SET close = excluded.close
	`, symbol, date, close)
	if err != nil {
		return fmt.Errorf("failed to upsert price for %s@%s: %w", symbol, date, err)
	}
	return nil
}

// FetchPrices loads the aligned price series for the symbols over the
// trailing window.
func (r *Repository) FetchPrices(symbols []string, days int) (TimeSeries, error) {
	startDate := time.Now().AddDate(0, 0, -days).Format("2006-01-02")

	r.log.Debug().
		Str("start_date", startDate).
		Int("num_symbols", len(symbols)).
		Msg("Fetching price history from database")

	query := `
		SELECT symbol, date, close
		FROM daily_prices
		WHERE symbol IN (` + placeholders(len(symbols)) + `)
			AND date >= ?
		ORDER BY date ASC
	`

	args := make([]interface{}, 0, len(symbols)+1)
	for _, symbol := range symbols {
		args = append(args, symbol)
	}
	args = append(args, startDate)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return TimeSeries{}, fmt.Errorf("failed to query price history: %w", err)
	}
	defer rows.Close()

	pricesBySymbol := make(map[string]map[string]float64)
	dateSet := make(map[string]bool)

	for rows.Next() {
		var symbol, date string
		var price float64
		if err := rows.Scan(&symbol, &date, &price); err != nil {
			return TimeSeries{}, fmt.Errorf("failed to scan row: %w", err)
		}
		if pricesBySymbol[symbol] == nil {
			pricesBySymbol[symbol] = make(map[string]float64)
		}
		pricesBySymbol[symbol][date] = price
		dateSet[date] = true
	}
	if err := rows.Err(); err != nil {
		return TimeSeries{}, fmt.Errorf("error iterating rows: %w", err)
	}

	dates := make([]string, 0, len(dateSet))
	for date := range dateSet {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	series := TimeSeries{
		Dates: dates,
		Data:  make(map[string][]float64, len(symbols)),
	}
	for _, symbol := range symbols {
		prices := make([]float64, len(dates))
		for i, date := range dates {
			if p, ok := pricesBySymbol[symbol][date]; ok {
				prices[i] = p
			} else {
				prices[i] = math.NaN()
			}
		}
		series.Data[symbol] = prices
	}

	return series, nil
}

// FillGaps fills missing observations, forward-fill first, then
// back-fill for leading gaps.
func (r *Repository) FillGaps(series TimeSeries) TimeSeries {
	filled := TimeSeries{
		Dates: series.Dates,
		Data:  make(map[string][]float64, len(series.Data)),
	}

	missingCount := 0
	filledCount := 0

	for symbol, prices := range series.Data {
		out := make([]float64, len(prices))
		copy(out, prices)

		var lastValid float64
		hasLastValid := false
		for i := 0; i < len(out); i++ {
			if math.IsNaN(out[i]) {
				missingCount++
				if hasLastValid {
					out[i] = lastValid
					filledCount++
				}
			} else {
				lastValid = out[i]
				hasLastValid = true
			}
		}

		var nextValid float64
		hasNextValid := false
		for i := len(out) - 1; i >= 0; i-- {
			if math.IsNaN(out[i]) {
				if hasNextValid {
					out[i] = nextValid
					filledCount++
				}
			} else {
				nextValid = out[i]
				hasNextValid = true
			}
		}

		filled.Data[symbol] = out
	}

	if missingCount > 0 {
		r.log.Warn().
			Int("missing_data_points", missingCount).
			Int("filled_data_points", filledCount).
			Int("still_missing", missingCount-filledCount).
			Msg("Filled missing price data")
	}

	return filled
}

// DailyReturns converts filled price series into simple daily returns.
func (r *Repository) DailyReturns(series TimeSeries) map[string][]float64 {
	returns := make(map[string][]float64, len(series.Data))

	for symbol, prices := range series.Data {
		if len(prices) < 2 {
			returns[symbol] = []float64{}
			continue
		}

		daily := make([]float64, len(prices)-1)
		for i := 1; i < len(prices); i++ {
			if prices[i-1] > 0 && !math.IsNaN(prices[i]) && !math.IsNaN(prices[i-1]) {
				daily[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
			} else {
				daily[i-1] = 0.0
			}
		}
		returns[symbol] = daily
	}

	return returns
}

// ReturnsFor fetches, fills and differentiates in one step.
func (r *Repository) ReturnsFor(symbols []string, days int) (map[string][]float64, error) {
	series, err := r.FetchPrices(symbols, days)
	if err != nil {
		return nil, err
	}
	return r.DailyReturns(r.FillGaps(series)), nil
}

func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
