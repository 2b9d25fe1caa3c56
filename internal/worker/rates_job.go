package worker

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// RatesFetcher retrieves the current market table.
type RatesFetcher interface {
	Fetch(ctx context.Context) (core.MarketRates, error)
}

// MarketRateStore persists the market table.
type MarketRateStore interface {
	MarketRates(ctx context.Context) (core.MarketRates, error)
	ReplaceMarketRates(ctx context.Context, m core.MarketRates) error
}

// RatesJob refreshes the stored market rates. A failed fetch leaves the
// previous table in place.
type RatesJob struct {
	fetcher RatesFetcher
	store   MarketRateStore
	maxAge    time.Duration
	now       func() time.Time
	onRefresh func()
	logger    *log.Logger
}

var _ Job = (*RatesJob)(nil)

func NewRatesJob(fetcher RatesFetcher, store MarketRateStore, maxAge time.Duration, logger *log.Logger) *RatesJob {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &RatesJob{
		fetcher: fetcher,
		store:   store,
		maxAge:  maxAge,
		now:     time.Now,
		logger:  logger.WithComponent(log.ComponentRates),
	}
}

// OnRefresh registers fn to run after each stored refresh, typically to drop
// dashboards computed with the previous table.
func (j *RatesJob) OnRefresh(fn func()) *RatesJob {
	j.onRefresh = fn
	return j
}

func (j *RatesJob) Name() string { return "market_rates_refresh" }

func (j *RatesJob) Run(ctx context.Context) error {
	m, err := j.fetcher.Fetch(ctx)
	if err != nil {
		j.logger.WarnContext(ctx, "Market rates fetch failed, keeping stored table", log.FieldError, err)
		return fmt.Errorf("fetch market rates: %w", err)
	}
	if err := j.store.ReplaceMarketRates(ctx, m); err != nil {
		return fmt.Errorf("store market rates: %w", err)
	}
	if j.onRefresh != nil {
		j.onRefresh()
	}
	j.logger.InfoContext(ctx, "Market rates refreshed", "base", m.Base, "count", len(m.Rates))
	return nil
}

// Stale reports whether the stored table is empty or older than maxAge.
func (j *RatesJob) Stale(ctx context.Context) (bool, error) {
	m, err := j.store.MarketRates(ctx)
	if err != nil {
		return false, fmt.Errorf("load market rates: %w", err)
	}
	if len(m.Rates) == 0 || m.UpdatedAt.IsZero() {
		return true, nil
	}
	return j.now().Sub(m.UpdatedAt) > j.maxAge, nil
}
