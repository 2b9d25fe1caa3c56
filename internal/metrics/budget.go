package metrics

import (
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// BudgetStatus is one budget joined with the month's spending in its category.
type BudgetStatus struct {
	Budget     core.Budget     `json:"budget"`
	Spent      decimal.Decimal `json:"spent"`
	Remaining  decimal.Decimal `json:"remaining"`  // negative when over budget
	Percentage decimal.Decimal `json:"percentage"` // uncapped, two places
	OverBudget bool            `json:"over_budget"`
}

// BudgetSummary is the month's budget view.
type BudgetSummary struct {
	Month           core.Date                         `json:"month"`
	Budgets         []BudgetStatus                    `json:"budgets"`
	SpentByCategory map[core.Category]decimal.Decimal `json:"spent_by_category"`
	TotalBudget     decimal.Decimal                   `json:"total_budget"`
	TotalSpent      decimal.Decimal                   `json:"total_spent"`
}

// SummarizeBudgets joins month's budgets against month's categorized
// expenses. Budgets for other months are ignored. Transfers are not spending
// and are left out, the same as Aggregate.
func SummarizeBudgets(budgets []core.Budget, txs []core.Transaction, month core.Date) BudgetSummary {
	spent := Aggregate(txs, MonthRange(month)).ByCategory

	totalSpent := decimal.Zero
	for _, c := range sortedKeys(spent) {
		totalSpent = totalSpent.Add(spent[c])
	}

	summary := BudgetSummary{
		Month:           month.FirstOfMonth(),
		Budgets:         make([]BudgetStatus, 0, len(budgets)),
		SpentByCategory: spent,
		TotalBudget:     decimal.Zero,
		TotalSpent:      core.RoundMoney(totalSpent),
	}
	for _, b := range budgets {
		if !b.Month.SameMonth(month) {
			continue
		}
		summary.TotalBudget = summary.TotalBudget.Add(b.Amount)
		summary.Budgets = append(summary.Budgets, StatusOf(b, spent[b.Category]))
	}
	summary.TotalBudget = core.RoundMoney(summary.TotalBudget)
	return summary
}

// StatusOf derives remaining and percentage for a budget given its spend.
func StatusOf(b core.Budget, spent decimal.Decimal) BudgetStatus {
	return BudgetStatus{
		Budget:     b,
		Spent:      spent,
		Remaining:  core.RoundMoney(b.Amount.Sub(spent)),
		Percentage: core.Percent(spent, b.Amount, 2),
		OverBudget: spent.GreaterThan(b.Amount),
	}
}

// WithinBudget counts the budgets whose spend does not exceed the limit.
func (s BudgetSummary) WithinBudget() int {
	n := 0
	for _, b := range s.Budgets {
		if !b.OverBudget {
			n++
		}
	}
	return n
}
