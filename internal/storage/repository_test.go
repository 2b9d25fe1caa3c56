package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestRepo(t *testing.T) (*SQLiteRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fintrack.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo, path
}

func TestMigrationsApplied(t *testing.T) {
	_, path := newTestRepo(t)
	version, dirty, err := SchemaVersion(path)
	if err != nil || dirty || version != 1 {
		t.Fatalf("unexpected schema version %d dirty=%v err=%v", version, dirty, err)
	}
	if err := RunMigrations(path); err != nil {
		t.Fatalf("re-running migrations should be a no-op: %v", err)
	}
}

func TestRecordTransferPair(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	for _, a := range []core.Account{
		{ID: "chk", UserID: "u1", Name: "Checking", Type: core.Checking, Currency: "PHP", Balance: dec("1000")},
		{ID: "sav", UserID: "u1", Name: "Savings", Type: core.Savings, Currency: "PHP", Balance: dec("0")},
	} {
		if err := repo.SaveAccount(ctx, a); err != nil {
			t.Fatalf("save account: %v", err)
		}
	}

	date := core.NewDate(2024, 11, 15)
	out := ledger.Posting{
		Transaction:  core.Transaction{UserID: "u1", Amount: dec("-250"), Category: core.CategoryTransfer, Date: date, Currency: "PHP", AccountID: "chk", TransferID: "tr1"},
		BalanceDelta: dec("-250"),
	}
	in := ledger.Posting{
		Transaction:  core.Transaction{UserID: "u1", Amount: dec("250"), Category: core.CategoryTransfer, Date: date, Currency: "PHP", AccountID: "sav", TransferID: "tr1"},
		BalanceDelta: dec("250"),
	}
	if err := repo.Record(ctx, out, in); err != nil {
		t.Fatalf("record transfer: %v", err)
	}

	chk, _ := repo.GetAccount(ctx, "u1", "chk")
	sav, _ := repo.GetAccount(ctx, "u1", "sav")
	if !chk.Balance.Equal(dec("750")) || !sav.Balance.Equal(dec("250")) {
		t.Fatalf("unexpected balances chk=%s sav=%s", chk.Balance, sav.Balance)
	}

	txs, err := repo.ListTransactions(ctx, "u1", nil, nil)
	if err != nil || len(txs) != 2 {
		t.Fatalf("expected 2 rows, got %d (%v)", len(txs), err)
	}
	for _, tx := range txs {
		if tx.TransferID != "tr1" || !tx.IsTransfer() {
			t.Fatalf("unexpected leg: %+v", tx)
		}
	}
}

func TestRecordRollsBackOnMissingAccount(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)
	if err := repo.SaveAccount(ctx, core.Account{ID: "chk", UserID: "u1", Name: "Checking", Type: core.Checking, Currency: "PHP", Balance: dec("100")}); err != nil {
		t.Fatalf("save account: %v", err)
	}

	date := core.NewDate(2024, 11, 1)
	err := repo.Record(ctx,
		ledger.Posting{Transaction: core.Transaction{UserID: "u1", Amount: dec("-10"), Category: core.CategoryTransfer, Date: date, Currency: "PHP", AccountID: "chk"}, BalanceDelta: dec("-10")},
		ledger.Posting{Transaction: core.Transaction{UserID: "u1", Amount: dec("10"), Category: core.CategoryTransfer, Date: date, Currency: "PHP", AccountID: "ghost"}, BalanceDelta: dec("10")},
	)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	chk, _ := repo.GetAccount(ctx, "u1", "chk")
	txs, _ := repo.ListTransactions(ctx, "u1", nil, nil)
	if !chk.Balance.Equal(dec("100")) || len(txs) != 0 {
		t.Fatalf("partial write survived: balance=%s rows=%d", chk.Balance, len(txs))
	}
}

func TestListTransactionsBounds(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)
	for _, d := range []core.Date{core.NewDate(2024, 10, 31), core.NewDate(2024, 11, 1), core.NewDate(2024, 11, 30), core.NewDate(2024, 12, 1)} {
		p := ledger.Posting{Transaction: core.Transaction{UserID: "u1", Amount: dec("-1.005"), Category: core.CategoryFood, Date: d, Currency: "PHP"}}
		if err := repo.Record(ctx, p); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	from, to := core.NewDate(2024, 11, 1), core.NewDate(2024, 11, 30)
	txs, err := repo.ListTransactions(ctx, "u1", &from, &to)
	if err != nil || len(txs) != 2 {
		t.Fatalf("expected 2 rows in November, got %d (%v)", len(txs), err)
	}
	if !txs[0].Amount.Equal(dec("-1.01")) {
		t.Fatalf("amount should be stored rounded, got %s", txs[0].Amount)
	}
}

func TestGoalsBudgetsRatesSnapshots(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	deadline := core.NewDate(2025, 6, 30)
	if err := repo.SaveGoal(ctx, core.Goal{ID: "g1", UserID: "u1", Name: "Emergency Fund", TargetAmount: dec("90000"), CurrentAmount: dec("89000"), Deadline: &deadline}); err != nil {
		t.Fatalf("save goal: %v", err)
	}
	g, err := repo.AddGoalFunds(ctx, "u1", "g1", dec("1000"))
	if err != nil || !g.IsCompleted {
		t.Fatalf("expected completed goal, got %+v (%v)", g, err)
	}
	stored, _ := repo.GetGoal(ctx, "u1", "g1")
	if !stored.CurrentAmount.Equal(dec("90000")) || stored.Deadline == nil || stored.Deadline.String() != "2025-06-30" {
		t.Fatalf("unexpected stored goal: %+v", stored)
	}
	if _, err := repo.AddGoalFunds(ctx, "u2", "g1", dec("1")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("goal must be user scoped, got %v", err)
	}

	month := core.NewDate(2024, 11, 1)
	first, err := repo.SaveBudget(ctx, core.Budget{UserID: "u1", Category: core.CategoryFood, Amount: dec("5000"), Month: month})
	if err != nil {
		t.Fatalf("save budget: %v", err)
	}
	second, err := repo.SaveBudget(ctx, core.Budget{UserID: "u1", Category: core.CategoryFood, Amount: dec("7000"), Month: month})
	if err != nil || second.ID != first.ID || !second.Amount.Equal(dec("7000")) {
		t.Fatalf("budget upsert: first=%+v second=%+v err=%v", first, second, err)
	}
	budgets, _ := repo.ListBudgets(ctx, "u1", &month)
	if len(budgets) != 1 {
		t.Fatalf("expected 1 budget, got %d", len(budgets))
	}

	if err := repo.SaveExchangeRate(ctx, "u1", core.ExchangeRate{FromCurrency: "USD", ToCurrency: "PHP", Rate: dec("57.25")}); err != nil {
		t.Fatalf("save rate: %v", err)
	}
	rates, _ := repo.ListExchangeRates(ctx, "u1")
	if len(rates) != 1 || !rates[0].Rate.Equal(dec("57.25")) {
		t.Fatalf("unexpected rates: %+v", rates)
	}

	updated := time.Date(2024, 11, 20, 8, 0, 0, 0, time.UTC)
	if err := repo.ReplaceMarketRates(ctx, core.MarketRates{Base: "PHP", UpdatedAt: updated, Rates: map[string]decimal.Decimal{"USD": dec("56.5"), "EUR": dec("61")}}); err != nil {
		t.Fatalf("replace market rates: %v", err)
	}
	if err := repo.ReplaceMarketRates(ctx, core.MarketRates{Base: "PHP", UpdatedAt: updated, Rates: map[string]decimal.Decimal{"USD": dec("57")}}); err != nil {
		t.Fatalf("replace market rates: %v", err)
	}
	market, _ := repo.MarketRates(ctx)
	if len(market.Rates) != 1 || !market.Rates["USD"].Equal(dec("57")) || !market.UpdatedAt.Equal(updated) {
		t.Fatalf("unexpected market table: %+v", market)
	}

	snap := core.MonthSnapshot{UserID: "u1", Month: core.NewDate(2024, 11, 18), Income: dec("30000"), Expenses: dec("12000"), Net: dec("18000"), SavingsRate: 60, HealthScore: 75, NetWorth: dec("150000"), Currency: "PHP"}
	if err := repo.SaveSnapshot(ctx, snap); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}
	snap.HealthScore = 80
	if err := repo.SaveSnapshot(ctx, snap); err != nil {
		t.Fatalf("save snapshot again: %v", err)
	}
	snaps, _ := repo.ListSnapshots(ctx, "u1")
	if len(snaps) != 1 || snaps[0].HealthScore != 80 || snaps[0].Month.String() != "2024-11-01" {
		t.Fatalf("unexpected snapshots: %+v", snaps)
	}
}
