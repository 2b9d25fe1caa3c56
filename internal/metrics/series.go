package metrics

import (
	"fmt"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// TrendPoint is one month of the income/expense trend.
type TrendPoint struct {
	Month    core.Date       `json:"month"`
	Label    string          `json:"label"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
}

// BalancePoint is the running ledger balance at the end of a month.
type BalancePoint struct {
	Month   core.Date       `json:"month"`
	Label   string          `json:"label"`
	Balance decimal.Decimal `json:"balance"`
}

// Window returns the first day of each of the windowMonths consecutive
// months ending with the month containing anchor, oldest first.
func Window(windowMonths int, anchor core.Date) []core.Date {
	if windowMonths < 1 {
		return nil
	}
	end := anchor.FirstOfMonth()
	months := make([]core.Date, windowMonths)
	for i := range months {
		months[i] = end.AddMonths(i - windowMonths + 1)
	}
	return months
}

// PeriodLabel is the short month name, suffixed with a two digit year when
// month falls in a different year than anchor (e.g. "Nov '24").
func PeriodLabel(month, anchor core.Date) string {
	label := month.Time.Month().String()[:3]
	if month.Year() != anchor.Year() {
		label = fmt.Sprintf("%s '%02d", label, month.Year()%100)
	}
	return label
}

// MonthlySeries buckets txs into the window and accumulates income and
// expenses per month. Months without rows are present with zero values.
// Transfers are excluded, matching Aggregate.
func MonthlySeries(txs []core.Transaction, windowMonths int, anchor core.Date) []TrendPoint {
	months := Window(windowMonths, anchor)
	index := bucketIndex(months)

	income := make([]decimal.Decimal, len(months))
	expenses := make([]decimal.Decimal, len(months))
	excluded := exclusionSet(nil)

	for _, tx := range txs {
		if _, skip := excluded[tx.Category]; skip {
			continue
		}
		i, ok := index[tx.Date.MonthKey()]
		if !ok {
			continue
		}
		if tx.Amount.IsPositive() {
			income[i] = income[i].Add(tx.Amount)
		} else if tx.Amount.IsNegative() {
			expenses[i] = expenses[i].Add(tx.Amount.Abs())
		}
	}

	points := make([]TrendPoint, len(months))
	for i, m := range months {
		points[i] = TrendPoint{
			Month:    m,
			Label:    PeriodLabel(m, anchor),
			Income:   core.RoundMoney(income[i]),
			Expenses: core.RoundMoney(expenses[i]),
		}
	}
	return points
}

// CumulativeBalance produces the net-worth-over-time curve. The series is
// seeded with the total of every row dated before the window, then each
// month's net contribution is carried forward. Transfers stay in: matched
// legs cancel out and the balance has to reflect every ledger delta.
func CumulativeBalance(txs []core.Transaction, windowMonths int, anchor core.Date) []BalancePoint {
	months := Window(windowMonths, anchor)
	if len(months) == 0 {
		return nil
	}
	index := bucketIndex(months)
	start := months[0]

	running := decimal.Zero
	deltas := make([]decimal.Decimal, len(months))
	for _, tx := range txs {
		if tx.Date.Before(start) {
			running = running.Add(tx.Amount)
			continue
		}
		if i, ok := index[tx.Date.MonthKey()]; ok {
			deltas[i] = deltas[i].Add(tx.Amount)
		}
	}

	points := make([]BalancePoint, len(months))
	for i, m := range months {
		running = running.Add(deltas[i])
		points[i] = BalancePoint{
			Month:   m,
			Label:   PeriodLabel(m, anchor),
			Balance: core.RoundMoney(running),
		}
	}
	return points
}

func bucketIndex(months []core.Date) map[string]int {
	index := make(map[string]int, len(months))
	for i, m := range months {
		index[m.MonthKey()] = i
	}
	return index
}
