package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

func TestWindow(t *testing.T) {
	got := Window(6, core.NewDate(2025, 2, 17))
	require.Len(t, got, 6)
	want := []string{"2024-09-01", "2024-10-01", "2024-11-01", "2024-12-01", "2025-01-01", "2025-02-01"}
	for i, w := range want {
		assert.Equal(t, w, got[i].String())
	}
	assert.Nil(t, Window(0, core.NewDate(2025, 2, 17)))
}

func TestPeriodLabel(t *testing.T) {
	anchor := core.NewDate(2025, 2, 1)
	assert.Equal(t, "Feb", PeriodLabel(anchor, anchor))
	assert.Equal(t, "Nov '24", PeriodLabel(core.NewDate(2024, 11, 1), anchor))
	assert.Equal(t, "Jan '09", PeriodLabel(core.NewDate(2009, 1, 1), anchor))
}

func TestMonthlySeriesFixedLength(t *testing.T) {
	anchor := core.NewDate(2025, 6, 30)
	for _, txs := range [][]core.Transaction{
		nil,
		{tx("2025-06-01", "100", core.CategorySalary)},
		{tx("2019-01-01", "100", core.CategorySalary), tx("2030-01-01", "-5", core.CategoryFood)},
	} {
		got := MonthlySeries(txs, 6, anchor)
		require.Len(t, got, 6)
		for i := 1; i < len(got); i++ {
			assert.True(t, got[i-1].Month.Before(got[i].Month))
		}
		assert.True(t, got[5].Month.SameMonth(anchor))
	}
}

func TestMonthlySeriesBuckets(t *testing.T) {
	txs := []core.Transaction{
		tx("2025-05-02", "1000", core.CategorySalary),
		tx("2025-05-20", "-200.50", core.CategoryFood),
		tx("2025-06-01", "-50", core.CategoryFood),
		tx("2025-06-03", "-700", core.CategoryTransfer),
		tx("2025-03-15", "-1", core.CategoryOther),
	}
	got := MonthlySeries(txs, 3, core.NewDate(2025, 6, 15))
	require.Len(t, got, 3)

	assert.Equal(t, "Apr", got[0].Label)
	assert.True(t, got[0].Income.IsZero())
	assert.True(t, got[0].Expenses.IsZero())

	assert.True(t, got[1].Income.Equal(d("1000")))
	assert.True(t, got[1].Expenses.Equal(d("200.50")))

	// the transfer leg is not an expense
	assert.True(t, got[2].Expenses.Equal(d("50")), "got %s", got[2].Expenses)
}

func TestCumulativeBalanceSeededAndContinuous(t *testing.T) {
	txs := []core.Transaction{
		tx("2024-01-10", "5000", core.CategorySalary),  // before window
		tx("2024-12-31", "-1000", core.CategoryFood),   // before window
		tx("2025-01-05", "2000", core.CategorySalary),  // Jan
		tx("2025-01-09", "-500", core.CategoryTransfer), // Jan, unmatched leg
		tx("2025-03-01", "-250.25", core.CategoryFood), // Mar
		tx("2025-05-01", "999", core.CategorySalary),   // after anchor
	}
	anchor := core.NewDate(2025, 3, 20)
	got := CumulativeBalance(txs, 3, anchor)
	require.Len(t, got, 3)

	assert.True(t, got[0].Balance.Equal(d("5500")), "jan %s", got[0].Balance)
	assert.True(t, got[1].Balance.Equal(d("5500")), "feb carried forward %s", got[1].Balance)
	assert.True(t, got[2].Balance.Equal(d("5249.75")), "mar %s", got[2].Balance)

	for i := 1; i < len(got); i++ {
		delta := got[i].Balance.Sub(got[i-1].Balance)
		assert.True(t, delta.Equal(netContribution(txs, got[i].Month)), "period %d", i)
	}
}

func TestCumulativeBalanceEmpty(t *testing.T) {
	got := CumulativeBalance(nil, 12, core.NewDate(2025, 1, 1))
	require.Len(t, got, 12)
	for _, p := range got {
		assert.True(t, p.Balance.IsZero())
	}
	assert.Nil(t, CumulativeBalance(nil, 0, core.NewDate(2025, 1, 1)))
}
