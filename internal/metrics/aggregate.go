package metrics

import (
	"sort"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// DefaultExclusions are skipped by every income/expense aggregate so that the
// two legs of a transfer are never counted as spending or earning.
var DefaultExclusions = []core.Category{core.CategoryTransfer}

// AggregateOptions narrows the rows an aggregate considers. Bounds are
// inclusive. A nil Exclude means DefaultExclusions; an empty non-nil slice
// excludes nothing.
type AggregateOptions struct {
	From    *core.Date
	To      *core.Date
	Exclude []core.Category
}

// Totals is the result of Aggregate.
type Totals struct {
	Income     decimal.Decimal                   `json:"income"`
	Expenses   decimal.Decimal                   `json:"expenses"` // magnitude, never negative
	Net        decimal.Decimal                   `json:"net"`
	ByCategory map[core.Category]decimal.Decimal `json:"by_category"` // expense magnitude
}

// MonthRange returns options covering the calendar month containing month.
func MonthRange(month core.Date) AggregateOptions {
	from := month.FirstOfMonth()
	to := month.LastOfMonth()
	return AggregateOptions{From: &from, To: &to}
}

// Aggregate partitions txs by sign into income and expenses and breaks the
// expenses down by category.
func Aggregate(txs []core.Transaction, opts AggregateOptions) Totals {
	excluded := exclusionSet(opts.Exclude)

	income := decimal.Zero
	expenses := decimal.Zero
	byCategory := make(map[core.Category]decimal.Decimal)

	for _, tx := range txs {
		if _, skip := excluded[tx.Category]; skip {
			continue
		}
		if !opts.contains(tx.Date) {
			continue
		}
		switch {
		case tx.Amount.IsPositive():
			income = income.Add(tx.Amount)
		case tx.Amount.IsNegative():
			magnitude := tx.Amount.Abs()
			expenses = expenses.Add(magnitude)
			byCategory[tx.Category] = byCategory[tx.Category].Add(magnitude)
		}
	}

	for c, v := range byCategory {
		byCategory[c] = core.RoundMoney(v)
	}
	income = core.RoundMoney(income)
	expenses = core.RoundMoney(expenses)

	return Totals{
		Income:     income,
		Expenses:   expenses,
		Net:        income.Sub(expenses),
		ByCategory: byCategory,
	}
}

// Categories returns the expense breakdown sorted by amount descending, ties
// broken by category name, with each category's share of total expenses.
func (t Totals) Categories() []core.CategoryAmount {
	out := make([]core.CategoryAmount, 0, len(t.ByCategory))
	for _, c := range sortedKeys(t.ByCategory) {
		amount := t.ByCategory[c]
		out = append(out, core.CategoryAmount{
			Category:   c,
			Amount:     amount,
			Percentage: core.Percent(amount, t.Expenses, 1),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.GreaterThan(out[j].Amount)
	})
	return out
}

func (o AggregateOptions) contains(d core.Date) bool {
	if o.From != nil && d.Before(*o.From) {
		return false
	}
	if o.To != nil && d.After(*o.To) {
		return false
	}
	return true
}

func exclusionSet(exclude []core.Category) map[core.Category]struct{} {
	if exclude == nil {
		exclude = DefaultExclusions
	}
	set := make(map[core.Category]struct{}, len(exclude))
	for _, c := range exclude {
		set[c] = struct{}{}
	}
	return set
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
