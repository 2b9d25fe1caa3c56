package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

func TestSheetAppendReplacesSameUserMonth(t *testing.T) {
	ctx := context.Background()
	s := New()

	snap := core.MonthSnapshot{
		UserID:      "u1",
		Month:       core.NewDate(2024, 11, 1),
		Currency:    "PHP",
		Income:      decimal.NewFromInt(40000),
		Expenses:    decimal.NewFromInt(16000),
		Net:         decimal.NewFromInt(24000),
		SavingsRate: 60,
		HealthScore: 70,
		NetWorth:    decimal.NewFromInt(100000),
	}
	if err := s.AppendSnapshot(ctx, snap); err != nil {
		t.Fatal(err)
	}
	snap.HealthScore = 75
	if err := s.AppendSnapshot(ctx, snap); err != nil {
		t.Fatal(err)
	}
	other := snap
	other.UserID = "u2"
	if err := s.AppendSnapshot(ctx, other); err != nil {
		t.Fatal(err)
	}

	rows, err := s.ListSnapshotRows(ctx, 2024)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0][7] != "75" {
		t.Errorf("expected replaced health score 75, got %s", rows[0][7])
	}
	if rows[0][3] != "40000.00" {
		t.Errorf("expected income 40000.00, got %s", rows[0][3])
	}

	if rows, _ := s.ListSnapshotRows(ctx, 2023); rows != nil {
		t.Errorf("expected no rows for 2023, got %v", rows)
	}
}
