package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/ledger"

	_ "modernc.org/sqlite"
)

// ErrNotFound is the ledger sentinel, re-exported for callers that only see storage.
var ErrNotFound = ledger.ErrNotFound

const (
	minDate = "0001-01-01"
	maxDate = "9999-12-31"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var _ ledger.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string, from, to *core.Date) ([]core.Transaction, error) {
	params := ListTransactionsParams{UserID: userID, From: minDate, To: maxDate}
	if from != nil {
		params.From = from.String()
	}
	if to != nil {
		params.To = to.String()
	}

	rows, err := r.queries.ListTransactions(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := transactionFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("decode transaction %s: %w", row.ID, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// Record inserts every posting and applies its balance delta in one SQL transaction.
func (r *SQLiteRepository) Record(ctx context.Context, postings ...ledger.Posting) error {
	for _, p := range postings {
		if err := p.Transaction.Validate(); err != nil {
			return err
		}
	}

	err := r.inTx(ctx, func(q *Queries) error {
		for _, p := range postings {
			t := p.Transaction
			if t.ID == "" {
				t.ID = uuid.NewString()
			}
			if t.AccountID == "" {
				if err := q.CreateTransaction(ctx, transactionToRow(t)); err != nil {
					return fmt.Errorf("create transaction: %w", err)
				}
				continue
			}

			acc, err := q.GetAccount(ctx, t.UserID, t.AccountID)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("account %s: %w", t.AccountID, ErrNotFound)
			}
			if err != nil {
				return fmt.Errorf("get account: %w", err)
			}
			if err := q.CreateTransaction(ctx, transactionToRow(t)); err != nil {
				return fmt.Errorf("create transaction: %w", err)
			}
			if p.BalanceDelta.IsZero() {
				continue
			}
			balance, err := decimal.NewFromString(acc.Balance)
			if err != nil {
				return fmt.Errorf("decode balance of %s: %w", acc.ID, err)
			}
			balance = core.RoundMoney(balance.Add(p.BalanceDelta))
			if _, err := q.SetAccountBalance(ctx, t.UserID, t.AccountID, balance.StringFixed(core.MoneyPlaces)); err != nil {
				return fmt.Errorf("update balance: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, p := range postings {
		slog.InfoContext(ctx, "Transaction saved to SQLite",
			"user_id", p.Transaction.UserID,
			"amount", p.Transaction.Amount.String(),
			"currency", p.Transaction.Currency,
			"category", p.Transaction.Category,
			"transfer_id", p.Transaction.TransferID)
	}
	return nil
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context, userID string) ([]core.Account, error) {
	rows, err := r.queries.ListAccounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	out := make([]core.Account, 0, len(rows))
	for _, row := range rows {
		a, err := accountFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("decode account %s: %w", row.ID, err)
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, userID, id string) (core.Account, error) {
	row, err := r.queries.GetAccount(ctx, userID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	return accountFromRow(row)
}

func (r *SQLiteRepository) SaveAccount(ctx context.Context, a core.Account) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if err := r.queries.UpsertAccount(ctx, Account{
		ID:         a.ID,
		UserID:     a.UserID,
		Name:       a.Name,
		Type:       string(a.Type),
		Currency:   a.Currency,
		Balance:    core.RoundMoney(a.Balance).StringFixed(core.MoneyPlaces),
		IsArchived: a.IsArchived,
	}); err != nil {
		return fmt.Errorf("upsert account: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListGoals(ctx context.Context, userID string) ([]core.Goal, error) {
	rows, err := r.queries.ListGoals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	out := make([]core.Goal, 0, len(rows))
	for _, row := range rows {
		g, err := goalFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("decode goal %s: %w", row.ID, err)
		}
		out = append(out, g)
	}
	return out, nil
}

func (r *SQLiteRepository) GetGoal(ctx context.Context, userID, id string) (core.Goal, error) {
	row, err := r.queries.GetGoal(ctx, userID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Goal{}, fmt.Errorf("goal %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Goal{}, fmt.Errorf("get goal: %w", err)
	}
	return goalFromRow(row)
}

func (r *SQLiteRepository) SaveGoal(ctx context.Context, g core.Goal) error {
	if err := g.Validate(); err != nil {
		return err
	}
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if err := r.queries.UpsertGoal(ctx, goalToRow(g)); err != nil {
		return fmt.Errorf("upsert goal: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) AddGoalFunds(ctx context.Context, userID, id string, amount decimal.Decimal) (core.Goal, error) {
	if !amount.IsPositive() {
		return core.Goal{}, core.ErrInvalidAmount
	}

	var updated core.Goal
	err := r.inTx(ctx, func(q *Queries) error {
		row, err := q.GetGoal(ctx, userID, id)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("goal %s: %w", id, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get goal: %w", err)
		}
		g, err := goalFromRow(row)
		if err != nil {
			return err
		}
		updated = ledger.CompleteGoal(g, amount)
		if err := q.UpsertGoal(ctx, goalToRow(updated)); err != nil {
			return fmt.Errorf("update goal: %w", err)
		}
		return nil
	})
	return updated, err
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, userID string, month *core.Date) ([]core.Budget, error) {
	key := ""
	if month != nil {
		key = month.FirstOfMonth().String()
	}
	rows, err := r.queries.ListBudgets(ctx, userID, key)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	out := make([]core.Budget, 0, len(rows))
	for _, row := range rows {
		b, err := budgetFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("decode budget %s: %w", row.ID, err)
		}
		out = append(out, b)
	}
	return out, nil
}

func (r *SQLiteRepository) SaveBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	row, err := r.queries.UpsertBudget(ctx, Budget{
		ID:       b.ID,
		UserID:   b.UserID,
		Category: string(b.Category),
		Amount:   core.RoundMoney(b.Amount).StringFixed(core.MoneyPlaces),
		Month:    b.Month.String(),
	})
	if err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget: %w", err)
	}
	return budgetFromRow(row)
}

func (r *SQLiteRepository) ListExchangeRates(ctx context.Context, userID string) ([]core.ExchangeRate, error) {
	rows, err := r.queries.ListExchangeRates(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list exchange rates: %w", err)
	}
	out := make([]core.ExchangeRate, 0, len(rows))
	for _, row := range rows {
		rate, err := decimal.NewFromString(row.Rate)
		if err != nil {
			return nil, fmt.Errorf("decode rate %s/%s: %w", row.FromCurrency, row.ToCurrency, err)
		}
		out = append(out, core.ExchangeRate{FromCurrency: row.FromCurrency, ToCurrency: row.ToCurrency, Rate: rate})
	}
	return out, nil
}

func (r *SQLiteRepository) SaveExchangeRate(ctx context.Context, userID string, rate core.ExchangeRate) error {
	if strings.TrimSpace(userID) == "" {
		return core.ErrEmptyUser
	}
	if err := rate.Validate(); err != nil {
		return err
	}
	if err := r.queries.UpsertExchangeRate(ctx, userID, ExchangeRate{
		FromCurrency: rate.FromCurrency,
		ToCurrency:   rate.ToCurrency,
		Rate:         rate.Rate.String(),
	}); err != nil {
		return fmt.Errorf("upsert exchange rate: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarketRates(ctx context.Context) (core.MarketRates, error) {
	rows, err := r.queries.ListMarketRates(ctx)
	if err != nil {
		return core.MarketRates{}, fmt.Errorf("list market rates: %w", err)
	}
	out := core.MarketRates{Rates: make(map[string]decimal.Decimal, len(rows))}
	for _, row := range rows {
		rate, err := decimal.NewFromString(row.Rate)
		if err != nil {
			return core.MarketRates{}, fmt.Errorf("decode market rate %s: %w", row.Currency, err)
		}
		out.Base = row.Base
		out.Rates[row.Currency] = rate
		if row.UpdatedAt.After(out.UpdatedAt) {
			out.UpdatedAt = row.UpdatedAt
		}
	}
	return out, nil
}

// ReplaceMarketRates swaps the whole table so readers never see a mix of refreshes.
func (r *SQLiteRepository) ReplaceMarketRates(ctx context.Context, m core.MarketRates) error {
	if !core.ValidCurrency(m.Base) {
		return core.ErrInvalidCurrency
	}
	updated := m.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	err := r.inTx(ctx, func(q *Queries) error {
		if err := q.DeleteMarketRates(ctx); err != nil {
			return fmt.Errorf("clear market rates: %w", err)
		}
		for code, rate := range m.Rates {
			if err := q.InsertMarketRate(ctx, MarketRate{
				Currency:  code,
				Base:      m.Base,
				Rate:      rate.String(),
				UpdatedAt: updated.UTC(),
			}); err != nil {
				return fmt.Errorf("insert market rate %s: %w", code, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Market rates replaced", "base", m.Base, "count", len(m.Rates))
	return nil
}

func (r *SQLiteRepository) SaveSnapshot(ctx context.Context, s core.MonthSnapshot) error {
	if strings.TrimSpace(s.UserID) == "" {
		return core.ErrEmptyUser
	}
	if err := r.queries.UpsertSnapshot(ctx, MetricSnapshot{
		UserID:      s.UserID,
		Month:       s.Month.FirstOfMonth().String(),
		Income:      s.Income.StringFixed(core.MoneyPlaces),
		Expenses:    s.Expenses.StringFixed(core.MoneyPlaces),
		Net:         s.Net.StringFixed(core.MoneyPlaces),
		SavingsRate: int64(s.SavingsRate),
		HealthScore: int64(s.HealthScore),
		NetWorth:    s.NetWorth.StringFixed(core.MoneyPlaces),
		Currency:    s.Currency,
	}); err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListSnapshots(ctx context.Context, userID string) ([]core.MonthSnapshot, error) {
	rows, err := r.queries.ListSnapshots(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	out := make([]core.MonthSnapshot, 0, len(rows))
	for _, row := range rows {
		s, err := snapshotFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("decode snapshot %s: %w", row.Month, err)
		}
		out = append(out, s)
	}
	return out, nil
}
