package metrics

import (
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func tx(date string, amount string, category core.Category) core.Transaction {
	dt, err := core.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return core.Transaction{
		Amount:   d(amount),
		Category: category,
		Date:     dt,
		Currency: "PHP",
	}
}

func month(s string) core.Date {
	m, err := core.ParseMonth(s)
	if err != nil {
		panic(err)
	}
	return m
}

// netContribution is the signed sum of all rows in month, transfers included.
func netContribution(txs []core.Transaction, month core.Date) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		if tx.Date.SameMonth(month) {
			total = total.Add(tx.Amount)
		}
	}
	return core.RoundMoney(total)
}
