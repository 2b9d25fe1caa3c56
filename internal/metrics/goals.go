package metrics

import (
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// GoalStatus is the progress view of a single savings goal.
type GoalStatus struct {
	Goal            core.Goal       `json:"goal"`
	Percentage      decimal.Decimal `json:"percentage"` // uncapped, one place
	Remaining       decimal.Decimal `json:"remaining"`
	MonthsLeft      int             `json:"months_left"`
	MonthlyRequired decimal.Decimal `json:"monthly_required"`
	IsOverdue       bool            `json:"is_overdue"`
}

// GoalProgress reports how far goal is from its target as of today. Without
// a deadline the whole remaining amount is due now.
func GoalProgress(goal core.Goal, today core.Date) GoalStatus {
	remaining := decimal.Max(decimal.Zero, core.RoundMoney(goal.TargetAmount.Sub(goal.CurrentAmount)))
	st := GoalStatus{
		Goal:            goal,
		Percentage:      core.Percent(goal.CurrentAmount, goal.TargetAmount, 1),
		Remaining:       remaining,
		MonthlyRequired: remaining,
	}
	if goal.Deadline == nil {
		return st
	}

	dl := *goal.Deadline
	st.MonthsLeft = max(0, (dl.Year()-today.Year())*12+dl.Month()-today.Month())
	if st.MonthsLeft > 0 {
		st.MonthlyRequired = core.RoundMoney(remaining.Div(decimal.NewFromInt(int64(st.MonthsLeft))))
	}
	st.IsOverdue = !goal.IsCompleted && remaining.IsPositive() && dl.Before(today)
	return st
}

// GoalsProgress maps GoalProgress over goals, keeping input order.
func GoalsProgress(goals []core.Goal, today core.Date) []GoalStatus {
	out := make([]GoalStatus, len(goals))
	for i, g := range goals {
		out[i] = GoalProgress(g, today)
	}
	return out
}

// activeGoalRatio is the mean of min(1, current/target) over goals that are
// not completed, and the number of such goals.
func activeGoalRatio(goals []core.Goal) (decimal.Decimal, int) {
	sum := decimal.Zero
	n := 0
	one := decimal.NewFromInt(1)
	for _, g := range goals {
		if g.IsCompleted {
			continue
		}
		n++
		if !g.TargetAmount.IsPositive() {
			continue
		}
		sum = sum.Add(clampDecimal(g.CurrentAmount.Div(g.TargetAmount), decimal.Zero, one))
	}
	if n == 0 {
		return decimal.Zero, 0
	}
	return sum.Div(decimal.NewFromInt(int64(n))), n
}
