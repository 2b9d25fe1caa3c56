package memory

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

// Store keeps every entity in process. It is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	txs       map[string][]core.Transaction
	accounts  map[string][]core.Account
	goals     map[string][]core.Goal
	budgets   map[string][]core.Budget
	rates     map[string][]core.ExchangeRate
	market    core.MarketRates
	snapshots map[string][]core.MonthSnapshot
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		txs:       map[string][]core.Transaction{},
		accounts:  map[string][]core.Account{},
		goals:     map[string][]core.Goal{},
		budgets:   map[string][]core.Budget{},
		rates:     map[string][]core.ExchangeRate{},
		snapshots: map[string][]core.MonthSnapshot{},
	}
}

// NewFromFiles seeds a store from accounts.csv and transactions.csv under base.
// Missing files are skipped; malformed rows are an error.
func NewFromFiles(base string) (*Store, error) {
	s := New()

	accounts, err := readCSV(filepath.Join(base, "accounts.csv"))
	if err != nil {
		return nil, err
	}
	for i, rec := range accounts {
		a, err := parseAccount(rec)
		if err != nil {
			return nil, fmt.Errorf("accounts.csv row %d: %w", i+2, err)
		}
		s.accounts[a.UserID] = append(s.accounts[a.UserID], a)
	}

	txs, err := readCSV(filepath.Join(base, "transactions.csv"))
	if err != nil {
		return nil, err
	}
	for i, rec := range txs {
		t, err := parseTransaction(rec)
		if err != nil {
			return nil, fmt.Errorf("transactions.csv row %d: %w", i+2, err)
		}
		s.txs[t.UserID] = append(s.txs[t.UserID], t)
	}
	for user := range s.txs {
		sortTransactions(s.txs[user])
	}
	return s, nil
}

func (s *Store) ListTransactions(_ context.Context, userID string, from, to *core.Date) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Transaction, 0, len(s.txs[userID]))
	for _, t := range s.txs[userID] {
		if ledger.InRange(t.Date, from, to) {
			out = append(out, t)
		}
	}
	return out, nil
}

// Record validates every posting before applying any of them.
func (s *Store) Record(_ context.Context, postings ...ledger.Posting) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range postings {
		if err := p.Transaction.Validate(); err != nil {
			return err
		}
		if p.Transaction.AccountID != "" {
			if _, err := s.accountIndex(p.Transaction.UserID, p.Transaction.AccountID); err != nil {
				return err
			}
		}
	}

	touched := map[string]struct{}{}
	for _, p := range postings {
		t := p.Transaction
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		s.txs[t.UserID] = append(s.txs[t.UserID], t)
		touched[t.UserID] = struct{}{}

		if t.AccountID != "" && !p.BalanceDelta.IsZero() {
			i, _ := s.accountIndex(t.UserID, t.AccountID)
			a := &s.accounts[t.UserID][i]
			a.Balance = core.RoundMoney(a.Balance.Add(p.BalanceDelta))
		}
	}
	for user := range touched {
		sortTransactions(s.txs[user])
	}
	return nil
}

func (s *Store) ListAccounts(_ context.Context, userID string) ([]core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Account(nil), s.accounts[userID]...), nil
}

func (s *Store) GetAccount(_ context.Context, userID, id string) (core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, err := s.accountIndex(userID, id)
	if err != nil {
		return core.Account{}, err
	}
	return s.accounts[userID][i], nil
}

func (s *Store) SaveAccount(_ context.Context, a core.Account) error {
	if err := a.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if i, err := s.accountIndex(a.UserID, a.ID); err == nil {
		s.accounts[a.UserID][i] = a
		return nil
	}
	s.accounts[a.UserID] = append(s.accounts[a.UserID], a)
	return nil
}

func (s *Store) accountIndex(userID, id string) (int, error) {
	for i, a := range s.accounts[userID] {
		if a.ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("account %s: %w", id, ledger.ErrNotFound)
}

func (s *Store) ListGoals(_ context.Context, userID string) ([]core.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Goal(nil), s.goals[userID]...), nil
}

func (s *Store) GetGoal(_ context.Context, userID, id string) (core.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, err := s.goalIndex(userID, id)
	if err != nil {
		return core.Goal{}, err
	}
	return s.goals[userID][i], nil
}

func (s *Store) SaveGoal(_ context.Context, g core.Goal) error {
	if err := g.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if i, err := s.goalIndex(g.UserID, g.ID); err == nil {
		s.goals[g.UserID][i] = g
		return nil
	}
	s.goals[g.UserID] = append(s.goals[g.UserID], g)
	return nil
}

func (s *Store) AddGoalFunds(_ context.Context, userID, id string, amount decimal.Decimal) (core.Goal, error) {
	if !amount.IsPositive() {
		return core.Goal{}, core.ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.goalIndex(userID, id)
	if err != nil {
		return core.Goal{}, err
	}
	g := ledger.CompleteGoal(s.goals[userID][i], amount)
	s.goals[userID][i] = g
	return g, nil
}

func (s *Store) goalIndex(userID, id string) (int, error) {
	for i, g := range s.goals[userID] {
		if g.ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("goal %s: %w", id, ledger.ErrNotFound)
}

func (s *Store) ListBudgets(_ context.Context, userID string, month *core.Date) ([]core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.Budget
	for _, b := range s.budgets[userID] {
		if month == nil || b.Month.SameMonth(*month) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *Store) SaveBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.budgets[b.UserID] {
		if existing.Category == b.Category && existing.Month.SameMonth(b.Month) {
			b.ID = existing.ID
			s.budgets[b.UserID][i] = b
			return b, nil
		}
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	s.budgets[b.UserID] = append(s.budgets[b.UserID], b)
	return b, nil
}

func (s *Store) ListExchangeRates(_ context.Context, userID string) ([]core.ExchangeRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.ExchangeRate(nil), s.rates[userID]...), nil
}

func (s *Store) SaveExchangeRate(_ context.Context, userID string, r core.ExchangeRate) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.rates[userID] {
		if existing.FromCurrency == r.FromCurrency && existing.ToCurrency == r.ToCurrency {
			s.rates[userID][i] = r
			return nil
		}
	}
	s.rates[userID] = append(s.rates[userID], r)
	return nil
}

func (s *Store) MarketRates(_ context.Context) (core.MarketRates, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.market
	out.Rates = make(map[string]decimal.Decimal, len(s.market.Rates))
	for k, v := range s.market.Rates {
		out.Rates[k] = v
	}
	return out, nil
}

func (s *Store) ReplaceMarketRates(_ context.Context, m core.MarketRates) error {
	if !core.ValidCurrency(m.Base) {
		return core.ErrInvalidCurrency
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.market = core.MarketRates{Base: m.Base, UpdatedAt: m.UpdatedAt, Rates: map[string]decimal.Decimal{}}
	for k, v := range m.Rates {
		s.market.Rates[k] = v
	}
	return nil
}

func (s *Store) SaveSnapshot(_ context.Context, snap core.MonthSnapshot) error {
	if strings.TrimSpace(snap.UserID) == "" {
		return core.ErrEmptyUser
	}
	snap.Month = snap.Month.FirstOfMonth()
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.snapshots[snap.UserID] {
		if existing.Month.SameMonth(snap.Month) {
			s.snapshots[snap.UserID][i] = snap
			return nil
		}
	}
	s.snapshots[snap.UserID] = append(s.snapshots[snap.UserID], snap)
	sort.Slice(s.snapshots[snap.UserID], func(i, j int) bool {
		return s.snapshots[snap.UserID][i].Month.Before(s.snapshots[snap.UserID][j].Month)
	})
	return nil
}

func (s *Store) ListSnapshots(_ context.Context, userID string) ([]core.MonthSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.MonthSnapshot(nil), s.snapshots[userID]...), nil
}

func sortTransactions(txs []core.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date.Time) {
			return txs[i].Date.Before(txs[j].Date)
		}
		return txs[i].ID < txs[j].ID
	})
}

// readCSV returns the data rows of a headed CSV file, keyed by lower-case header.
func readCSV(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open seed %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comment = '#'
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed header %s: %w", path, err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}

	var rows []map[string]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read seed %s: %w", path, err)
		}
		row := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(rec) {
				row[h] = strings.TrimSpace(rec[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseAccount(rec map[string]string) (core.Account, error) {
	a := core.Account{
		ID:       rec["id"],
		UserID:   rec["user_id"],
		Name:     rec["name"],
		Type:     core.AccountType(strings.ToLower(rec["type"])),
		Currency: strings.ToUpper(rec["currency"]),
		Balance:  decimal.Zero,
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if v := rec["balance"]; v != "" {
		bal, err := decimal.NewFromString(v)
		if err != nil {
			return core.Account{}, fmt.Errorf("parse balance %q: %w", v, err)
		}
		a.Balance = core.RoundMoney(bal)
	}
	if v := rec["is_archived"]; v != "" {
		archived, err := strconv.ParseBool(v)
		if err != nil {
			return core.Account{}, fmt.Errorf("parse is_archived %q: %w", v, err)
		}
		a.IsArchived = archived
	}
	return a, a.Validate()
}

func parseTransaction(rec map[string]string) (core.Transaction, error) {
	date, err := core.ParseDate(rec["date"])
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse date %q: %w", rec["date"], err)
	}
	amount, err := core.ParseAmount(rec["amount"])
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse amount %q: %w", rec["amount"], err)
	}
	t := core.Transaction{
		ID:          rec["id"],
		UserID:      rec["user_id"],
		Amount:      amount,
		Category:    core.NormalizeCategory(rec["category"]),
		Date:        date,
		Currency:    strings.ToUpper(rec["currency"]),
		AccountID:   rec["account_id"],
		TransferID:  rec["transfer_id"],
		Description: rec["description"],
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return t, t.Validate()
}
