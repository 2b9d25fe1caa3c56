package metrics

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

func TestHealthScoreEmpty(t *testing.T) {
	got := ComputeHealthScore(HealthInput{Month: month("2025-03"), AccountsTotal: decimal.Zero})
	assert.Equal(t, 0, got.Total)
	require.Len(t, got.SubScores, 4)

	weights := 0
	for _, s := range got.SubScores {
		weights += s.Weight
		assert.Equal(t, 0, s.Score, s.Label)
		assert.NotEmpty(t, s.Detail, s.Label)
	}
	assert.Equal(t, 100, weights)
}

func TestHealthScoreComposite(t *testing.T) {
	txs := []core.Transaction{
		tx("2025-03-01", "10000", core.CategorySalary),
		tx("2025-03-05", "-4000", core.CategoryHousing),
		tx("2025-03-06", "-3500", core.CategoryFood),
		tx("2025-03-07", "-500", core.CategoryShopping),
	}
	budgets := []core.Budget{
		budget(core.CategoryFood, "3000", "2025-03"),     // over
		budget(core.CategoryHousing, "4000", "2025-03"),  // exactly at limit, on track
		budget(core.CategoryShopping, "1000", "2025-03"), // under
		budget(core.CategoryTravel, "1000", "2025-03"),   // nothing spent
	}
	goals := []core.Goal{
		{Name: "Car", TargetAmount: d("100000"), CurrentAmount: d("25000")},
		{Name: "Laptop", TargetAmount: d("50000"), CurrentAmount: d("75000")}, // capped at 1
		{Name: "Trip", TargetAmount: d("10"), CurrentAmount: d("10"), IsCompleted: true},
	}

	got := ComputeHealthScore(HealthInput{
		Transactions:  txs,
		Budgets:       budgets,
		Goals:         goals,
		AccountsTotal: d("12000"),
		Month:         month("2025-03"),
	})
	require.Len(t, got.SubScores, 4)

	// savings rate 20% -> 100
	assert.Equal(t, 100, got.SubScores[0].Score)
	assert.Equal(t, "20% of income saved", got.SubScores[0].Detail)
	// 3 of 4 budgets on track
	assert.Equal(t, 75, got.SubScores[1].Score)
	// mean(0.25, 1) = 62.5 -> 63
	assert.Equal(t, 63, got.SubScores[2].Score)
	// 12000 / (8000 * 3) = 50%
	assert.Equal(t, 50, got.SubScores[3].Score)

	// (100*30 + 75*25 + 63*25 + 50*20) / 100 = 74.5 -> 75
	assert.Equal(t, 75, got.Total)
}

func TestHealthScoreEmergencyGoalPreferred(t *testing.T) {
	txs := []core.Transaction{tx("2025-03-05", "-1000", core.CategoryFood)}
	goals := []core.Goal{
		{Name: "Rainy day", Category: "Emergency", TargetAmount: d("9000"), CurrentAmount: d("1500")},
	}
	got := ComputeHealthScore(HealthInput{
		Transactions:  txs,
		Goals:         goals,
		AccountsTotal: d("1000000"),
		Month:         month("2025-03"),
	})
	// cushion comes from the goal, not the accounts: 1500 / 3000
	assert.Equal(t, 50, got.SubScores[3].Score)
	assert.Contains(t, got.SubScores[3].Detail, "Rainy day")
}

func TestHealthScoreSavingsUsesUnroundedRate(t *testing.T) {
	got := ComputeHealthScore(HealthInput{
		Transactions: []core.Transaction{
			tx("2025-03-01", "1000", core.CategorySalary),
			tx("2025-03-02", "-826", core.CategoryFood),
		},
		AccountsTotal: decimal.Zero,
		Month:         month("2025-03"),
	})
	require.Equal(t, "Savings Rate", got.SubScores[0].Label)
	assert.Equal(t, 87, got.SubScores[0].Score, "17.4% saved against a 20% target")
	assert.Equal(t, "17% of income saved", got.SubScores[0].Detail)
}

func TestHealthScoreBounds(t *testing.T) {
	inputs := []HealthInput{
		{ // heavy overspending and negative balances
			Transactions:  []core.Transaction{tx("2025-03-01", "100", core.CategorySalary), tx("2025-03-02", "-100000", core.CategoryFood)},
			AccountsTotal: d("-50000"),
			Month:         month("2025-03"),
		},
		{ // enormous cushion, no expenses
			Transactions:  []core.Transaction{tx("2025-03-01", "100", core.CategorySalary)},
			AccountsTotal: d("99999999"),
			Month:         month("2025-03"),
		},
	}
	for _, in := range inputs {
		got := ComputeHealthScore(in)
		assert.GreaterOrEqual(t, got.Total, 0)
		assert.LessOrEqual(t, got.Total, 100)
		for _, s := range got.SubScores {
			assert.GreaterOrEqual(t, s.Score, 0, s.Label)
			assert.LessOrEqual(t, s.Score, 100, s.Label)
		}
	}
}

func TestEmergencyGoal(t *testing.T) {
	_, ok := EmergencyGoal(nil)
	assert.False(t, ok)
	g, ok := EmergencyGoal([]core.Goal{{Name: "House"}, {Name: "EMERGENCY buffer"}, {Name: "emergency 2"}})
	assert.True(t, ok)
	assert.Equal(t, "EMERGENCY buffer", g.Name)
}
