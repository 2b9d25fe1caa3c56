package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
)

// DashboardReader is the read side of the ledger the dashboard needs.
type DashboardReader interface {
	ledger.TransactionReader
	ListAccounts(ctx context.Context, userID string) ([]core.Account, error)
	ListGoals(ctx context.Context, userID string) ([]core.Goal, error)
	ListBudgets(ctx context.Context, userID string, month *core.Date) ([]core.Budget, error)
	ListExchangeRates(ctx context.Context, userID string) ([]core.ExchangeRate, error)
	MarketRates(ctx context.Context) (core.MarketRates, error)
}

type DashboardOptions struct {
	BaseCurrency    string
	TrendMonths     int
	EmergencyMonths int
}

// Dashboard is every derived metric for one user and month, in one currency.
type Dashboard struct {
	UserID        string                       `json:"user_id"`
	Month         core.Date                    `json:"month"`
	Currency      string                       `json:"currency"`
	GeneratedAt   time.Time                    `json:"generated_at"`
	NetWorth      decimal.Decimal              `json:"net_worth"`
	Accounts      []core.Account               `json:"accounts"`
	Income        decimal.Decimal              `json:"income"`
	Expenses      decimal.Decimal              `json:"expenses"`
	Net           decimal.Decimal              `json:"net"`
	Categories    []core.CategoryAmount        `json:"categories"`
	Trend         []metrics.TrendPoint         `json:"trend"`
	Balance       []metrics.BalancePoint       `json:"balance"`
	SavingsRate   metrics.SavingsRateResult    `json:"savings_rate"`
	Spending      []metrics.CategoryComparison `json:"spending_comparison"`
	EmergencyFund metrics.EmergencyFundResult  `json:"emergency_fund"`
	Health        metrics.HealthScore          `json:"health_score"`
	Budgets       metrics.BudgetSummary        `json:"budgets"`
	Goals         []metrics.GoalStatus         `json:"goals"`
}

// Snapshot condenses the dashboard into the persisted monthly digest.
func (d *Dashboard) Snapshot() core.MonthSnapshot {
	return core.MonthSnapshot{
		UserID:      d.UserID,
		Month:       d.Month,
		Income:      d.Income,
		Expenses:    d.Expenses,
		Net:         d.Net,
		SavingsRate: d.SavingsRate.Rate,
		HealthScore: d.Health.Total,
		NetWorth:    d.NetWorth,
		Currency:    d.Currency,
	}
}

// Conversion is the answer to a one-off currency conversion.
type Conversion struct {
	Amount    decimal.Decimal    `json:"amount"`
	From      string             `json:"from"`
	To        string             `json:"to"`
	Converted decimal.Decimal    `json:"converted"`
	Rate      decimal.Decimal    `json:"rate"`
	Source    metrics.RateSource `json:"source"`
}

// ledgerView is a user's ledger loaded and normalized into one currency.
type ledgerView struct {
	txs      []core.Transaction
	accounts []core.Account
	goals    []core.Goal
	budgets  []core.Budget
	resolver *metrics.Resolver
}

// DashboardService computes derived metrics on demand and caches them per user and month.
type DashboardService struct {
	store  DashboardReader
	cache  cache.Cache[*Dashboard]
	opts   DashboardOptions
	logger *log.StructuredLogger
	now    func() time.Time
}

var _ Invalidator = (*DashboardService)(nil)

func NewDashboardService(store DashboardReader, c cache.Cache[*Dashboard], opts DashboardOptions, logger *log.Logger) *DashboardService {
	if opts.BaseCurrency == "" {
		opts.BaseCurrency = metrics.BaseCurrency
	}
	if opts.TrendMonths < 1 {
		opts.TrendMonths = 6
	}
	if opts.EmergencyMonths < 1 {
		opts.EmergencyMonths = metrics.DefaultEmergencyMonths
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DashboardService{
		store:  store,
		cache:  c,
		opts:   opts,
		logger: log.NewStructuredLogger(logger.WithComponent(log.ComponentDashboard)),
		now:    timeNow,
	}
}

func cacheKey(userID string, month core.Date) string {
	return userID + ":" + month.MonthKey()
}

// Overview returns the dashboard for userID and the month containing month.
func (s *DashboardService) Overview(ctx context.Context, userID string, month core.Date) (*Dashboard, error) {
	if userID == "" {
		return nil, invalid(core.ErrEmptyUser)
	}
	month = month.FirstOfMonth()
	start := time.Now()

	key := cacheKey(userID, month)
	if s.cache != nil {
		if d, ok := s.cache.Get(key); ok {
			s.logger.LogDashboardComputed(ctx, userID, month.MonthKey(), true, time.Since(start).Milliseconds())
			return d, nil
		}
	}

	view, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	d := s.compute(userID, month, view)

	if s.cache != nil {
		s.cache.Set(key, d)
	}
	s.logger.LogDashboardComputed(ctx, userID, month.MonthKey(), false, time.Since(start).Milliseconds())
	return d, nil
}

// Trend returns the income/expense trend and running balance over a custom window.
// The default window is served from the cached dashboard.
func (s *DashboardService) Trend(ctx context.Context, userID string, month core.Date, months int) ([]metrics.TrendPoint, []metrics.BalancePoint, error) {
	if months < 1 || months > 60 {
		return nil, nil, invalid(fmt.Errorf("months must be between 1 and 60, got %d", months))
	}
	if months == s.opts.TrendMonths {
		d, err := s.Overview(ctx, userID, month)
		if err != nil {
			return nil, nil, err
		}
		return d.Trend, d.Balance, nil
	}
	if userID == "" {
		return nil, nil, invalid(core.ErrEmptyUser)
	}

	view, err := s.load(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return metrics.MonthlySeries(view.txs, months, month), metrics.CumulativeBalance(view.txs, months, month), nil
}

// Convert expresses amount in to using the user's rates, then market, then fallback.
func (s *DashboardService) Convert(ctx context.Context, userID string, amount decimal.Decimal, from, to string) (Conversion, error) {
	if !core.ValidCurrency(from) || !core.ValidCurrency(to) {
		return Conversion{}, invalid(core.ErrInvalidCurrency)
	}
	resolver, err := s.resolver(ctx, userID)
	if err != nil {
		return Conversion{}, err
	}
	rate, src := resolver.Rate(from, to)
	return Conversion{
		Amount:    amount,
		From:      from,
		To:        to,
		Converted: resolver.Convert(amount, from, to),
		Rate:      rate.Round(6),
		Source:    src,
	}, nil
}

// Invalidate drops every cached month of userID.
func (s *DashboardService) Invalidate(userID string) {
	if s.cache != nil {
		s.cache.DeletePrefix(userID + ":")
	}
}

// InvalidateAll drops every cached dashboard, e.g. after market rates change.
func (s *DashboardService) InvalidateAll() {
	if s.cache != nil {
		s.cache.DeletePrefix("")
	}
}

func (s *DashboardService) resolver(ctx context.Context, userID string) (*metrics.Resolver, error) {
	var (
		userRates []core.ExchangeRate
		market    core.MarketRates
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		userRates, err = s.store.ListExchangeRates(gctx, userID)
		if err != nil {
			return fmt.Errorf("list exchange rates: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		market, err = s.store.MarketRates(gctx)
		if err != nil {
			return fmt.Errorf("load market rates: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return metrics.NewResolver(userRates, market), nil
}

func (s *DashboardService) load(ctx context.Context, userID string) (ledgerView, error) {
	var (
		view     ledgerView
		accounts []core.Account
		txs      []core.Transaction
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		txs, err = s.store.ListTransactions(gctx, userID, nil, nil)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		accounts, err = s.store.ListAccounts(gctx, userID)
		if err != nil {
			return fmt.Errorf("list accounts: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		view.goals, err = s.store.ListGoals(gctx, userID)
		if err != nil {
			return fmt.Errorf("list goals: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		view.budgets, err = s.store.ListBudgets(gctx, userID, nil)
		if err != nil {
			return fmt.Errorf("list budgets: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		view.resolver, err = s.resolver(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return ledgerView{}, err
	}

	view.txs = metrics.ConvertTransactions(txs, view.resolver, s.opts.BaseCurrency)
	view.accounts = metrics.ConvertAccounts(accounts, view.resolver, s.opts.BaseCurrency)
	return view, nil
}

func (s *DashboardService) compute(userID string, month core.Date, v ledgerView) *Dashboard {
	totals := metrics.Aggregate(v.txs, metrics.MonthRange(month))
	netWorth := metrics.ActiveBalance(v.accounts)
	today := core.DateOf(s.now())

	return &Dashboard{
		UserID:        userID,
		Month:         month,
		Currency:      s.opts.BaseCurrency,
		GeneratedAt:   s.now().UTC(),
		NetWorth:      netWorth,
		Accounts:      v.accounts,
		Income:        totals.Income,
		Expenses:      totals.Expenses,
		Net:           totals.Net,
		Categories:    totals.Categories(),
		Trend:         metrics.MonthlySeries(v.txs, s.opts.TrendMonths, month),
		Balance:       metrics.CumulativeBalance(v.txs, s.opts.TrendMonths, month),
		SavingsRate:   metrics.SavingsRate(v.txs, month),
		Spending:      metrics.SpendingComparison(v.txs, month),
		EmergencyFund: metrics.EmergencyFund(v.txs, v.accounts, month, s.opts.EmergencyMonths),
		Health: metrics.ComputeHealthScore(metrics.HealthInput{
			Transactions:  v.txs,
			Budgets:       v.budgets,
			Goals:         v.goals,
			AccountsTotal: netWorth,
			Month:         month,
		}),
		Budgets: metrics.SummarizeBudgets(v.budgets, v.txs, month),
		Goals:   metrics.GoalsProgress(v.goals, today),
	}
}
