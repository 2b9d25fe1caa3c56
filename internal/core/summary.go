package core

import "github.com/shopspring/decimal"

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	Category   Category        `json:"category"`
	Amount     decimal.Decimal `json:"amount"`
	Percentage decimal.Decimal `json:"percentage"` // share of the total, 0-100
}

// MonthSnapshot is the persisted per user+month digest of the dashboard metrics.
type MonthSnapshot struct {
	UserID      string          `json:"user_id"`
	Month       Date            `json:"month"`
	Income      decimal.Decimal `json:"income"`
	Expenses    decimal.Decimal `json:"expenses"`
	Net         decimal.Decimal `json:"net"`
	SavingsRate int             `json:"savings_rate"`
	HealthScore int             `json:"health_score"`
	NetWorth    decimal.Decimal `json:"net_worth"`
	Currency    string          `json:"currency"`
}
