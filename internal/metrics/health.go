package metrics

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Sub-score weights; they sum to 100.
const (
	WeightSavingsRate     = 30
	WeightBudgetAdherence = 25
	WeightGoalProgress    = 25
	WeightEmergencyFund   = 20
)

// targetSavingsRate is the savings rate that earns a full savings sub-score.
var targetSavingsRate = decimal.NewFromInt(20)

// HealthInput is everything the composer reads. AccountsTotal is the sum of
// non-archived balances in the same currency as Transactions.
type HealthInput struct {
	Transactions  []core.Transaction
	Budgets       []core.Budget
	Goals         []core.Goal
	AccountsTotal decimal.Decimal
	Month         core.Date
}

// SubScore is one weighted component of the health score, in [0, 100].
type SubScore struct {
	Label  string `json:"label"`
	Score  int    `json:"score"`
	Weight int    `json:"weight"`
	Detail string `json:"detail"`
}

// HealthScore is the composite financial health score in [0, 100].
type HealthScore struct {
	Total     int        `json:"total"`
	SubScores []SubScore `json:"sub_scores"`
}

// ComputeHealthScore scores savings rate, budget adherence, goal progress and
// emergency fund independently and combines them by weight. The total is
// derived from the rounded sub-scores so the breakdown always reproduces it.
func ComputeHealthScore(in HealthInput) HealthScore {
	subs := []SubScore{
		savingsSubScore(in),
		budgetSubScore(in),
		goalSubScore(in),
		emergencySubScore(in),
	}
	weighted := 0
	for _, s := range subs {
		weighted += s.Score * s.Weight
	}
	return HealthScore{
		Total:     clampInt(roundInt(decimal.NewFromInt(int64(weighted)).Div(hundred)), 0, 100),
		SubScores: subs,
	}
}

func savingsSubScore(in HealthInput) SubScore {
	totals := Aggregate(in.Transactions, MonthRange(in.Month))
	rate := SavingsRatePercent(totals.Income, totals.Expenses)
	// Scored on the unrounded rate; the whole percent is only for display.
	score := decimal.Zero
	if totals.Income.IsPositive() {
		raw := totals.Income.Sub(totals.Expenses).Mul(hundred).Div(totals.Income)
		score = raw.Mul(hundred).Div(targetSavingsRate)
	}

	detail := fmt.Sprintf("%d%% of income saved", rate)
	if !totals.Income.IsPositive() {
		detail = "No income recorded this month"
	}
	return SubScore{
		Label:  "Savings Rate",
		Score:  scoreOf(score),
		Weight: WeightSavingsRate,
		Detail: detail,
	}
}

func budgetSubScore(in HealthInput) SubScore {
	summary := SummarizeBudgets(in.Budgets, in.Transactions, in.Month)
	sub := SubScore{Label: "Budget Adherence", Weight: WeightBudgetAdherence, Detail: "No budgets set"}
	total := len(summary.Budgets)
	if total == 0 {
		return sub
	}
	within := summary.WithinBudget()
	sub.Score = scoreOf(decimal.NewFromInt(int64(within)).Mul(hundred).Div(decimal.NewFromInt(int64(total))))
	sub.Detail = fmt.Sprintf("%d of %d budgets on track", within, total)
	return sub
}

func goalSubScore(in HealthInput) SubScore {
	sub := SubScore{Label: "Goal Progress", Weight: WeightGoalProgress, Detail: "No active goals"}
	ratio, active := activeGoalRatio(in.Goals)
	if active == 0 {
		return sub
	}
	sub.Score = scoreOf(ratio.Mul(hundred))
	sub.Detail = fmt.Sprintf("%d active goals, %d%% average progress", active, sub.Score)
	return sub
}

func emergencySubScore(in HealthInput) SubScore {
	monthly := Aggregate(in.Transactions, MonthRange(in.Month)).Expenses
	monthly = decimal.Max(monthly, decimal.NewFromInt(1))

	cushion := in.AccountsTotal
	source := "account balances"
	if g, ok := EmergencyGoal(in.Goals); ok {
		cushion = g.CurrentAmount
		source = g.Name
	}

	target := monthly.Mul(decimal.NewFromInt(DefaultEmergencyMonths))
	months := cushion.Div(monthly).Round(1)
	return SubScore{
		Label:  "Emergency Fund",
		Score:  scoreOf(cushion.Mul(hundred).Div(target)),
		Weight: WeightEmergencyFund,
		Detail: fmt.Sprintf("%s months of expenses covered by %s", months.StringFixed(1), source),
	}
}

// EmergencyGoal returns the first goal whose name or category mentions
// "emergency", case-insensitively.
func EmergencyGoal(goals []core.Goal) (core.Goal, bool) {
	for _, g := range goals {
		if strings.Contains(strings.ToLower(g.Name), "emergency") ||
			strings.Contains(strings.ToLower(g.Category), "emergency") {
			return g, true
		}
	}
	return core.Goal{}, false
}

// scoreOf clamps a raw score into [0, 100] and rounds it to an integer.
func scoreOf(raw decimal.Decimal) int {
	return clampInt(roundInt(raw), 0, 100)
}
