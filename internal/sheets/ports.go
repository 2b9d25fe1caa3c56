// Package sheets mirrors monthly metric snapshots into a spreadsheet.
package sheets

import (
	"context"
	"strconv"

	"fintrack/internal/core"
)

// Ports for outbound adapters.
type (
	SnapshotWriter interface {
		// AppendSnapshot writes the row for the snapshot's user and month,
		// replacing an earlier row for the same pair.
		AppendSnapshot(ctx context.Context, s core.MonthSnapshot) error
	}

	SnapshotLister interface {
		ListSnapshotRows(ctx context.Context, year int) ([][]string, error)
	}
)

// Header is the first row of every snapshot sheet.
var Header = []string{"Month", "User", "Currency", "Income", "Expenses", "Net", "Savings Rate", "Health Score", "Net Worth"}

// Row renders a snapshot in Header column order.
func Row(s core.MonthSnapshot) []string {
	return []string{
		s.Month.MonthKey(),
		s.UserID,
		s.Currency,
		core.RoundMoney(s.Income).StringFixed(2),
		core.RoundMoney(s.Expenses).StringFixed(2),
		core.RoundMoney(s.Net).StringFixed(2),
		strconv.Itoa(s.SavingsRate),
		strconv.Itoa(s.HealthScore),
		core.RoundMoney(s.NetWorth).StringFixed(2),
	}
}
