// Package ledger declares the persistence ports the services depend on.
// internal/storage implements them on SQLite and ledger/memory in process.
package ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// ErrNotFound is returned when a user-scoped lookup matches nothing.
var ErrNotFound = errors.New("not found")

// Posting is one ledger row plus the change it makes to its account balance,
// expressed in the account's currency. A zero delta or empty AccountID leaves
// balances untouched.
type Posting struct {
	Transaction  core.Transaction
	BalanceDelta decimal.Decimal
}

// Ports for outbound adapters.
type (
	TransactionReader interface {
		// ListTransactions returns the user's rows ordered by date then ID.
		// Nil bounds are open; both are inclusive.
		ListTransactions(ctx context.Context, userID string, from, to *core.Date) ([]core.Transaction, error)
	}

	TransactionWriter interface {
		// Record stores every posting atomically.
		Record(ctx context.Context, postings ...Posting) error
	}

	AccountStore interface {
		ListAccounts(ctx context.Context, userID string) ([]core.Account, error)
		GetAccount(ctx context.Context, userID, id string) (core.Account, error)
		SaveAccount(ctx context.Context, a core.Account) error
	}

	GoalStore interface {
		ListGoals(ctx context.Context, userID string) ([]core.Goal, error)
		GetGoal(ctx context.Context, userID, id string) (core.Goal, error)
		SaveGoal(ctx context.Context, g core.Goal) error
		// AddGoalFunds increases CurrentAmount and marks the goal completed
		// once it reaches TargetAmount.
		AddGoalFunds(ctx context.Context, userID, id string, amount decimal.Decimal) (core.Goal, error)
	}

	BudgetStore interface {
		// ListBudgets returns every budget of the user, or only those of month when set.
		ListBudgets(ctx context.Context, userID string, month *core.Date) ([]core.Budget, error)
		// SaveBudget upserts on (user, category, month) and returns the stored row.
		SaveBudget(ctx context.Context, b core.Budget) (core.Budget, error)
	}

	RateStore interface {
		ListExchangeRates(ctx context.Context, userID string) ([]core.ExchangeRate, error)
		SaveExchangeRate(ctx context.Context, userID string, r core.ExchangeRate) error
		// MarketRates returns the latest table, empty when none was stored yet.
		MarketRates(ctx context.Context) (core.MarketRates, error)
		ReplaceMarketRates(ctx context.Context, m core.MarketRates) error
	}

	SnapshotStore interface {
		// SaveSnapshot upserts on (user, month).
		SaveSnapshot(ctx context.Context, s core.MonthSnapshot) error
		ListSnapshots(ctx context.Context, userID string) ([]core.MonthSnapshot, error)
	}

	// Store is the full persistence surface of a backend.
	Store interface {
		TransactionReader
		TransactionWriter
		AccountStore
		GoalStore
		BudgetStore
		RateStore
		SnapshotStore
	}
)

// InRange reports whether d falls within the optional inclusive bounds.
func InRange(d core.Date, from, to *core.Date) bool {
	if from != nil && d.Before(*from) {
		return false
	}
	if to != nil && d.After(*to) {
		return false
	}
	return true
}

// CompleteGoal applies a contribution to g the way every store does.
func CompleteGoal(g core.Goal, amount decimal.Decimal) core.Goal {
	g.CurrentAmount = core.RoundMoney(g.CurrentAmount.Add(amount))
	if g.CurrentAmount.GreaterThanOrEqual(g.TargetAmount) {
		g.IsCompleted = true
	}
	return g
}
