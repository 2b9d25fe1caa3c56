package metrics

import (
	"sort"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// DefaultEmergencyMonths is the usual emergency fund target in months of expenses.
const DefaultEmergencyMonths = 3

// SavingsRateResult describes one month's savings rate and its trend.
type SavingsRateResult struct {
	Month        core.Date       `json:"month"`
	Income       decimal.Decimal `json:"income"`
	Expenses     decimal.Decimal `json:"expenses"`
	Rate         int             `json:"rate"`          // integer percent
	PreviousRate int             `json:"previous_rate"` // integer percent
	HasPrevious  bool            `json:"has_previous"`  // false when the prior month had no income
	Change       int             `json:"change"`        // Rate - PreviousRate, zero without a previous
}

// CategoryComparison compares one category across two consecutive months.
type CategoryComparison struct {
	Category      core.Category   `json:"category"`
	Current       decimal.Decimal `json:"current"`
	Previous      decimal.Decimal `json:"previous"`
	ChangePercent int             `json:"change_percent"`
}

// EmergencyFundResult is the emergency fund coverage for a month.
type EmergencyFundResult struct {
	MonthlyExpenses decimal.Decimal `json:"monthly_expenses"`
	CurrentAmount   decimal.Decimal `json:"current_amount"`
	TargetAmount    decimal.Decimal `json:"target_amount"`
	TargetMonths    int             `json:"target_months"`
	MonthsCovered   decimal.Decimal `json:"months_covered"` // one decimal place
	ProgressPercent int             `json:"progress_percent"`
}

// SavingsRatePercent is (income - expenses) / income * 100 rounded to an
// integer, or 0 when there is no income.
func SavingsRatePercent(income, expenses decimal.Decimal) int {
	if !income.IsPositive() {
		return 0
	}
	return roundInt(income.Sub(expenses).Mul(hundred).Div(income))
}

// SavingsRate computes month's savings rate and compares it to the month before.
func SavingsRate(txs []core.Transaction, month core.Date) SavingsRateResult {
	cur := Aggregate(txs, MonthRange(month))
	prev := Aggregate(txs, MonthRange(month.AddMonths(-1)))

	res := SavingsRateResult{
		Month:    month.FirstOfMonth(),
		Income:   cur.Income,
		Expenses: cur.Expenses,
		Rate:     SavingsRatePercent(cur.Income, cur.Expenses),
	}
	if prev.Income.IsPositive() {
		res.HasPrevious = true
		res.PreviousRate = SavingsRatePercent(prev.Income, prev.Expenses)
		res.Change = res.Rate - res.PreviousRate
	}
	return res
}

// ChangePercent is the month-over-month change of a spend amount. Spending
// that appears from nothing counts as +100%.
func ChangePercent(current, previous decimal.Decimal) int {
	if previous.IsPositive() {
		return roundInt(current.Sub(previous).Mul(hundred).Div(previous))
	}
	if current.IsPositive() {
		return 100
	}
	return 0
}

// SpendingComparison compares category spend in month with the previous
// month for every category that has spending in either. Results are sorted
// by current spend descending, then previous spend, then category.
func SpendingComparison(txs []core.Transaction, month core.Date) []CategoryComparison {
	cur := Aggregate(txs, MonthRange(month)).ByCategory
	prev := Aggregate(txs, MonthRange(month.AddMonths(-1))).ByCategory

	union := make(map[core.Category]struct{}, len(cur)+len(prev))
	for c := range cur {
		union[c] = struct{}{}
	}
	for c := range prev {
		union[c] = struct{}{}
	}

	out := make([]CategoryComparison, 0, len(union))
	for _, c := range sortedKeys(union) {
		out = append(out, CategoryComparison{
			Category:      c,
			Current:       cur[c],
			Previous:      prev[c],
			ChangePercent: ChangePercent(cur[c], prev[c]),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Current.Equal(out[j].Current) {
			return out[i].Current.GreaterThan(out[j].Current)
		}
		return out[i].Previous.GreaterThan(out[j].Previous)
	})
	return out
}

// EmergencyFund measures how many months of month's expenses the
// non-archived account balances cover. Balances must already be expressed
// in the same currency as txs.
func EmergencyFund(txs []core.Transaction, accounts []core.Account, month core.Date, targetMonths int) EmergencyFundResult {
	monthly := Aggregate(txs, MonthRange(month)).Expenses
	return EmergencyCoverage(monthly, ActiveBalance(accounts), targetMonths)
}

// EmergencyCoverage is the arithmetic behind EmergencyFund.
func EmergencyCoverage(monthlyExpenses, currentAmount decimal.Decimal, targetMonths int) EmergencyFundResult {
	target := core.RoundMoney(monthlyExpenses.Mul(decimal.NewFromInt(int64(targetMonths))))

	res := EmergencyFundResult{
		MonthlyExpenses: monthlyExpenses,
		CurrentAmount:   currentAmount,
		TargetAmount:    target,
		TargetMonths:    targetMonths,
		MonthsCovered:   decimal.Zero,
	}
	if monthlyExpenses.IsPositive() {
		res.MonthsCovered = currentAmount.Div(monthlyExpenses).Round(1)
	}
	if target.IsPositive() {
		// Capped when overfunded; a negative cushion reports negative progress.
		res.ProgressPercent = min(100, roundInt(currentAmount.Mul(hundred).Div(target)))
	}
	return res
}

var hundred = decimal.NewFromInt(100)

func roundInt(d decimal.Decimal) int {
	return int(d.Round(0).IntPart())
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampDecimal(d, lo, hi decimal.Decimal) decimal.Decimal {
	return decimal.Max(lo, decimal.Min(hi, d))
}
