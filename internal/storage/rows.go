package storage

import (
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func transactionToRow(t core.Transaction) Transaction {
	return Transaction{
		ID:          t.ID,
		UserID:      t.UserID,
		Amount:      core.RoundMoney(t.Amount).StringFixed(core.MoneyPlaces),
		Category:    string(t.Category),
		Date:        t.Date.String(),
		Currency:    t.Currency,
		AccountID:   nullString(t.AccountID),
		TransferID:  nullString(t.TransferID),
		Description: t.Description,
	}
}

func transactionFromRow(row Transaction) (core.Transaction, error) {
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse amount: %w", err)
	}
	date, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse date: %w", err)
	}
	return core.Transaction{
		ID:          row.ID,
		UserID:      row.UserID,
		Amount:      amount,
		Category:    core.NormalizeCategory(row.Category),
		Date:        date,
		Currency:    row.Currency,
		AccountID:   row.AccountID.String,
		TransferID:  row.TransferID.String,
		Description: row.Description,
	}, nil
}

func accountFromRow(row Account) (core.Account, error) {
	balance, err := decimal.NewFromString(row.Balance)
	if err != nil {
		return core.Account{}, fmt.Errorf("parse balance: %w", err)
	}
	return core.Account{
		ID:         row.ID,
		UserID:     row.UserID,
		Name:       row.Name,
		Type:       core.AccountType(row.Type),
		Currency:   row.Currency,
		Balance:    balance,
		IsArchived: row.IsArchived,
	}, nil
}

func goalToRow(g core.Goal) Goal {
	row := Goal{
		ID:            g.ID,
		UserID:        g.UserID,
		Name:          g.Name,
		TargetAmount:  core.RoundMoney(g.TargetAmount).StringFixed(core.MoneyPlaces),
		CurrentAmount: core.RoundMoney(g.CurrentAmount).StringFixed(core.MoneyPlaces),
		Category:      g.Category,
		IsCompleted:   g.IsCompleted,
	}
	if g.Deadline != nil {
		row.Deadline = nullString(g.Deadline.String())
	}
	return row
}

func goalFromRow(row Goal) (core.Goal, error) {
	target, err := decimal.NewFromString(row.TargetAmount)
	if err != nil {
		return core.Goal{}, fmt.Errorf("parse target: %w", err)
	}
	current, err := decimal.NewFromString(row.CurrentAmount)
	if err != nil {
		return core.Goal{}, fmt.Errorf("parse current: %w", err)
	}
	g := core.Goal{
		ID:            row.ID,
		UserID:        row.UserID,
		Name:          row.Name,
		TargetAmount:  target,
		CurrentAmount: current,
		Category:      row.Category,
		IsCompleted:   row.IsCompleted,
	}
	if row.Deadline.Valid && row.Deadline.String != "" {
		d, err := core.ParseDate(row.Deadline.String)
		if err != nil {
			return core.Goal{}, fmt.Errorf("parse deadline: %w", err)
		}
		g.Deadline = &d
	}
	return g, nil
}

func budgetFromRow(row Budget) (core.Budget, error) {
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return core.Budget{}, fmt.Errorf("parse amount: %w", err)
	}
	month, err := core.ParseDate(row.Month)
	if err != nil {
		return core.Budget{}, fmt.Errorf("parse month: %w", err)
	}
	return core.Budget{
		ID:       row.ID,
		UserID:   row.UserID,
		Category: core.Category(row.Category),
		Amount:   amount,
		Month:    month,
	}, nil
}

func snapshotFromRow(row MetricSnapshot) (core.MonthSnapshot, error) {
	var amounts [4]decimal.Decimal
	for i, v := range []string{row.Income, row.Expenses, row.Net, row.NetWorth} {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return core.MonthSnapshot{}, fmt.Errorf("parse amount %q: %w", v, err)
		}
		amounts[i] = d
	}
	month, err := core.ParseDate(row.Month)
	if err != nil {
		return core.MonthSnapshot{}, fmt.Errorf("parse month: %w", err)
	}
	return core.MonthSnapshot{
		UserID:      row.UserID,
		Month:       month,
		Income:      amounts[0],
		Expenses:    amounts[1],
		Net:         amounts[2],
		SavingsRate: int(row.SavingsRate),
		HealthScore: int(row.HealthScore),
		NetWorth:    amounts[3],
		Currency:    row.Currency,
	}, nil
}
