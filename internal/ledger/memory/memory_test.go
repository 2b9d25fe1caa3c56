package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestStoreRecordAdjustsBalancesAtomically(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.SaveAccount(ctx, core.Account{ID: "acc1", UserID: "u1", Name: "Wallet", Type: core.Cash, Currency: "PHP", Balance: dec("100")}); err != nil {
		t.Fatalf("save account: %v", err)
	}

	good := ledger.Posting{
		Transaction:  core.Transaction{UserID: "u1", Amount: dec("-40"), Category: core.CategoryFood, Date: core.NewDate(2024, 11, 3), Currency: "PHP", AccountID: "acc1"},
		BalanceDelta: dec("-40"),
	}
	bad := ledger.Posting{
		Transaction: core.Transaction{UserID: "u1", Amount: dec("10"), Category: core.CategorySalary, Date: core.NewDate(2024, 11, 4), Currency: "PHP", AccountID: "missing"},
	}

	err := s.Record(ctx, good, bad)
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	txs, _ := s.ListTransactions(ctx, "u1", nil, nil)
	if len(txs) != 0 {
		t.Fatalf("nothing should be stored after a failed batch, got %d rows", len(txs))
	}

	if err := s.Record(ctx, good); err != nil {
		t.Fatalf("record: %v", err)
	}
	acc, err := s.GetAccount(ctx, "u1", "acc1")
	if err != nil || !acc.Balance.Equal(dec("60")) {
		t.Fatalf("unexpected balance: %v %v", acc.Balance, err)
	}
	txs, _ = s.ListTransactions(ctx, "u1", nil, nil)
	if len(txs) != 1 || txs[0].ID == "" {
		t.Fatalf("expected one row with generated id, got %+v", txs)
	}
}

func TestStoreListTransactionsBoundsAndOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, day := range []int{20, 1, 10} {
		p := ledger.Posting{Transaction: core.Transaction{UserID: "u1", Amount: dec("1"), Category: core.CategoryGift, Date: core.NewDate(2024, 11, day), Currency: "PHP"}}
		if err := s.Record(ctx, p); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	from, to := core.NewDate(2024, 11, 1), core.NewDate(2024, 11, 10)
	txs, _ := s.ListTransactions(ctx, "u1", &from, &to)
	if len(txs) != 2 || txs[0].Date.Day() != 1 || txs[1].Date.Day() != 10 {
		t.Fatalf("unexpected rows: %+v", txs)
	}
	other, _ := s.ListTransactions(ctx, "u2", nil, nil)
	if len(other) != 0 {
		t.Fatalf("rows leaked across users: %+v", other)
	}
}

func TestStoreBudgetUpsertAndGoalFunds(t *testing.T) {
	ctx := context.Background()
	s := New()
	month := core.NewDate(2024, 11, 1)

	first, err := s.SaveBudget(ctx, core.Budget{UserID: "u1", Category: core.CategoryFood, Amount: dec("5000"), Month: month})
	if err != nil {
		t.Fatalf("save budget: %v", err)
	}
	second, err := s.SaveBudget(ctx, core.Budget{UserID: "u1", Category: core.CategoryFood, Amount: dec("6000"), Month: month})
	if err != nil || second.ID != first.ID {
		t.Fatalf("expected upsert to keep id %s, got %s (%v)", first.ID, second.ID, err)
	}
	budgets, _ := s.ListBudgets(ctx, "u1", &month)
	if len(budgets) != 1 || !budgets[0].Amount.Equal(dec("6000")) {
		t.Fatalf("unexpected budgets: %+v", budgets)
	}

	if err := s.SaveGoal(ctx, core.Goal{ID: "g1", UserID: "u1", Name: "Trip", TargetAmount: dec("1000"), CurrentAmount: dec("900")}); err != nil {
		t.Fatalf("save goal: %v", err)
	}
	g, err := s.AddGoalFunds(ctx, "u1", "g1", dec("150"))
	if err != nil || !g.IsCompleted || !g.CurrentAmount.Equal(dec("1050")) {
		t.Fatalf("unexpected goal: %+v %v", g, err)
	}
	if _, err := s.AddGoalFunds(ctx, "u1", "g1", dec("-1")); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if _, err := s.GetGoal(ctx, "u2", "g1"); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected not found across users, got %v", err)
	}
}

func TestStoreMarketRatesCopy(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.ReplaceMarketRates(ctx, core.MarketRates{Base: "PHP", Rates: map[string]decimal.Decimal{"USD": dec("56.5")}}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	m, _ := s.MarketRates(ctx)
	m.Rates["USD"] = dec("1")
	again, _ := s.MarketRates(ctx)
	if !again.Rates["USD"].Equal(dec("56.5")) {
		t.Fatalf("stored rates were mutated through the returned map")
	}
}

func TestNewFromFilesSeeds(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFromFiles(dir)
	if err != nil {
		t.Fatalf("missing files should not fail: %v", err)
	}
	if accs, _ := s.ListAccounts(context.Background(), "u1"); len(accs) != 0 {
		t.Fatalf("expected empty store")
	}

	mustWrite := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	mustWrite("accounts.csv", "id,user_id,name,type,currency,balance,is_archived\n# comment\nacc1,u1,Wallet,cash,php,1500.50,false\n")
	mustWrite("transactions.csv", "user_id,date,amount,currency,category,account_id,description\nu1,2024-11-05,-250,PHP,Groceries,acc1,market\nu1,2024-11-01,30000,PHP,salary,acc1,\n")

	s, err = NewFromFiles(dir)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	accs, _ := s.ListAccounts(context.Background(), "u1")
	if len(accs) != 1 || accs[0].Currency != "PHP" || !accs[0].Balance.Equal(dec("1500.5")) {
		t.Fatalf("unexpected accounts: %+v", accs)
	}
	txs, _ := s.ListTransactions(context.Background(), "u1", nil, nil)
	if len(txs) != 2 || txs[0].Category != core.CategorySalary || txs[1].Category != core.CategoryFood {
		t.Fatalf("unexpected transactions: %+v", txs)
	}

	mustWrite("transactions.csv", "user_id,date,amount,currency,category\nu1,not-a-date,1,PHP,food\n")
	if _, err := NewFromFiles(dir); err == nil {
		t.Fatal("expected error for malformed row")
	}
}
