package scheduler

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/oddsforge/parlay-engine/internal/clients/yahoo"
	"github.com/oddsforge/parlay-engine/internal/history"
)

// PriceSource provides market data for the refresh job. *yahoo.Client
// satisfies it.
type PriceSource interface {
	GetDailyCloses(symbol, period string) ([]yahoo.DailyClose, error)
	GetCurrentPrice(symbol string, maxRetries int) (*float64, error)
}

// PriceRefreshJob pulls daily closes for tracked symbols into the
// history database.
type PriceRefreshJob struct {
	source  PriceSource
	repo    *history.Repository
	symbols []string
	period  string
	log     zerolog.Logger
}

func NewPriceRefreshJob(source PriceSource, repo *history.Repository, symbols []string, period string, log zerolog.Logger) *PriceRefreshJob {
	if period == "" {
		period = "3mo"
	}
	return &PriceRefreshJob{
		source:  source,
		repo:    repo,
		symbols: symbols,
		period:  period,
		log:     log.With().Str("job", "price_refresh").Logger(),
	}
}

func (j *PriceRefreshJob) Name() string {
	return "price_refresh"
}

// Run fetches and upserts closes for every tracked symbol, then tops
// the series off with the current quote under today's date. A symbol
// that fails is logged and skipped so one bad ticker does not starve
// the rest.
func (j *PriceRefreshJob) Run() error {
	if len(j.symbols) == 0 {
		j.log.Debug().Msg("No symbols tracked, nothing to refresh")
		return nil
	}

	var lastErr error
	updated := 0
	for _, symbol := range j.symbols {
		closes, err := j.source.GetDailyCloses(symbol, j.period)
		if err != nil {
			j.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to fetch closes")
			lastErr = err
			continue
		}

		for _, c := range closes {
			if c.Close <= 0 {
				continue
			}
			date := c.Date.Format(time.DateOnly)
			if err := j.repo.UpsertPrice(symbol, date, c.Close); err != nil {
				j.log.Warn().Err(err).Str("symbol", symbol).Str("date", date).Msg("Failed to upsert price")
				lastErr = err
				continue
			}
			updated++
		}

		price, err := j.source.GetCurrentPrice(symbol, 1)
		if err != nil {
			j.log.Debug().Err(err).Str("symbol", symbol).Msg("No current quote, keeping last close")
			continue
		}
		today := time.Now().Format(time.DateOnly)
		if err := j.repo.UpsertPrice(symbol, today, *price); err != nil {
			j.log.Warn().Err(err).Str("symbol", symbol).Str("date", today).Msg("Failed to upsert price")
			lastErr = err
			continue
		}
		updated++
	}

	j.log.Info().Int("symbols", len(j.symbols)).Int("rows", updated).Msg("Price refresh complete")
	return lastErr
}
