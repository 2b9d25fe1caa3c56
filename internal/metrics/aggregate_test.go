package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

func TestAggregateEmpty(t *testing.T) {
	got := Aggregate(nil, AggregateOptions{})
	assert.True(t, got.Income.IsZero())
	assert.True(t, got.Expenses.IsZero())
	assert.True(t, got.Net.IsZero())
	assert.NotNil(t, got.ByCategory)
	assert.Empty(t, got.ByCategory)
	assert.Empty(t, got.Categories())
}

func TestAggregateSignPartitionAndTransfers(t *testing.T) {
	txs := []core.Transaction{
		tx("2025-03-01", "10000", core.CategorySalary),
		tx("2025-03-02", "-1200.10", core.CategoryFood),
		tx("2025-03-05", "-300.20", core.CategoryFood),
		tx("2025-03-09", "-0.30", core.CategoryTransportation),
		tx("2025-03-10", "-5000", core.CategoryTransfer),
		tx("2025-03-10", "5000", core.CategoryTransfer),
	}
	got := Aggregate(txs, AggregateOptions{})

	assert.True(t, got.Income.Equal(d("10000")), "income %s", got.Income)
	assert.True(t, got.Expenses.Equal(d("1500.60")), "expenses %s", got.Expenses)
	assert.True(t, got.Net.Equal(got.Income.Sub(got.Expenses)))
	assert.True(t, got.Net.Equal(d("8499.40")))
	require.Len(t, got.ByCategory, 2)
	assert.True(t, got.ByCategory[core.CategoryFood].Equal(d("1500.30")))
	_, hasTransfer := got.ByCategory[core.CategoryTransfer]
	assert.False(t, hasTransfer)
}

func TestAggregateDateBoundsInclusive(t *testing.T) {
	txs := []core.Transaction{
		tx("2025-01-31", "-1", core.CategoryFood),
		tx("2025-02-01", "-2", core.CategoryFood),
		tx("2025-02-28", "-3", core.CategoryFood),
		tx("2025-03-01", "-4", core.CategoryFood),
	}
	got := Aggregate(txs, MonthRange(month("2025-02")))
	assert.True(t, got.Expenses.Equal(d("5")), "got %s", got.Expenses)

	from := core.NewDate(2025, 2, 28)
	got = Aggregate(txs, AggregateOptions{From: &from})
	assert.True(t, got.Expenses.Equal(d("7")), "got %s", got.Expenses)
}

func TestAggregateCustomExclusions(t *testing.T) {
	txs := []core.Transaction{
		tx("2025-01-02", "-10", core.CategoryTransfer),
		tx("2025-01-02", "-20", core.CategoryDebt),
	}
	all := Aggregate(txs, AggregateOptions{Exclude: []core.Category{}})
	assert.True(t, all.Expenses.Equal(d("30")))

	noDebt := Aggregate(txs, AggregateOptions{Exclude: []core.Category{core.CategoryDebt}})
	assert.True(t, noDebt.Expenses.Equal(d("10")))
}

func TestAggregateOrderIndependent(t *testing.T) {
	txs := []core.Transaction{
		tx("2025-01-02", "0.10", core.CategoryIncome),
		tx("2025-01-03", "0.20", core.CategoryIncome),
		tx("2025-01-04", "-0.30", core.CategoryFood),
		tx("2025-01-05", "-0.70", core.CategoryShopping),
	}
	reversed := make([]core.Transaction, len(txs))
	for i := range txs {
		reversed[len(txs)-1-i] = txs[i]
	}
	a := Aggregate(txs, AggregateOptions{})
	b := Aggregate(reversed, AggregateOptions{})
	assert.Equal(t, a.Income.String(), b.Income.String())
	assert.Equal(t, a.Expenses.String(), b.Expenses.String())
	ca, cb := a.Categories(), b.Categories()
	require.Len(t, cb, len(ca))
	for i := range ca {
		assert.Equal(t, ca[i].Category, cb[i].Category)
		assert.Equal(t, ca[i].Amount.String(), cb[i].Amount.String())
	}
}

func TestCategoriesSorted(t *testing.T) {
	txs := []core.Transaction{
		tx("2025-04-01", "-100", core.CategoryShopping),
		tx("2025-04-02", "-300", core.CategoryFood),
		tx("2025-04-03", "-100", core.CategoryEducation),
		tx("2025-05-01", "-999", core.CategoryTravel),
	}
	got := Aggregate(txs, MonthRange(month("2025-04"))).Categories()
	require.Len(t, got, 3)
	assert.Equal(t, core.CategoryFood, got[0].Category)
	assert.True(t, got[0].Percentage.Equal(d("60")))
	// equal amounts are ordered by name
	assert.Equal(t, core.CategoryEducation, got[1].Category)
	assert.Equal(t, core.CategoryShopping, got[2].Category)
}
