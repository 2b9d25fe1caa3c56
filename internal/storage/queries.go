package storage

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Transaction struct {
	ID          string
	UserID      string
	Amount      string
	Category    string
	Date        string
	Currency    string
	AccountID   sql.NullString
	TransferID  sql.NullString
	Description string
}

type Account struct {
	ID         string
	UserID     string
	Name       string
	Type       string
	Currency   string
	Balance    string
	IsArchived bool
}

type Goal struct {
	ID            string
	UserID        string
	Name          string
	TargetAmount  string
	CurrentAmount string
	Deadline      sql.NullString
	Category      string
	IsCompleted   bool
}

type Budget struct {
	ID       string
	UserID   string
	Category string
	Amount   string
	Month    string
}

type ExchangeRate struct {
	FromCurrency string
	ToCurrency   string
	Rate         string
}

type MarketRate struct {
	Currency  string
	Base      string
	Rate      string
	UpdatedAt time.Time
}

type MetricSnapshot struct {
	UserID      string
	Month       string
	Income      string
	Expenses    string
	Net         string
	SavingsRate int64
	HealthScore int64
	NetWorth    string
	Currency    string
}

const createTransaction = `
INSERT INTO transactions (id, user_id, amount, category, date, currency, account_id, transfer_id, description)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateTransaction(ctx context.Context, arg Transaction) error {
	_, err := q.db.ExecContext(ctx, createTransaction,
		arg.ID, arg.UserID, arg.Amount, arg.Category, arg.Date, arg.Currency,
		arg.AccountID, arg.TransferID, arg.Description)
	return err
}

const listTransactions = `
SELECT id, user_id, amount, category, date, currency, account_id, transfer_id, description
FROM transactions
WHERE user_id = ? AND date >= ? AND date <= ?
ORDER BY date, id`

type ListTransactionsParams struct {
	UserID string
	From   string
	To     string
}

func (q *Queries) ListTransactions(ctx context.Context, arg ListTransactionsParams) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions, arg.UserID, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		var i Transaction
		if err := rows.Scan(&i.ID, &i.UserID, &i.Amount, &i.Category, &i.Date, &i.Currency,
			&i.AccountID, &i.TransferID, &i.Description); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const upsertAccount = `
INSERT INTO accounts (id, user_id, name, type, currency, balance, is_archived)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    name = excluded.name,
    type = excluded.type,
    currency = excluded.currency,
    balance = excluded.balance,
    is_archived = excluded.is_archived,
    updated_at = CURRENT_TIMESTAMP
WHERE accounts.user_id = excluded.user_id`

func (q *Queries) UpsertAccount(ctx context.Context, arg Account) error {
	_, err := q.db.ExecContext(ctx, upsertAccount,
		arg.ID, arg.UserID, arg.Name, arg.Type, arg.Currency, arg.Balance, arg.IsArchived)
	return err
}

const accountColumns = `id, user_id, name, type, currency, balance, is_archived`

const getAccount = `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = ? AND id = ?`

func (q *Queries) GetAccount(ctx context.Context, userID, id string) (Account, error) {
	var i Account
	err := q.db.QueryRowContext(ctx, getAccount, userID, id).Scan(
		&i.ID, &i.UserID, &i.Name, &i.Type, &i.Currency, &i.Balance, &i.IsArchived)
	return i, err
}

const listAccounts = `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = ? ORDER BY name, id`

func (q *Queries) ListAccounts(ctx context.Context, userID string) ([]Account, error) {
	rows, err := q.db.QueryContext(ctx, listAccounts, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Account
	for rows.Next() {
		var i Account
		if err := rows.Scan(&i.ID, &i.UserID, &i.Name, &i.Type, &i.Currency, &i.Balance, &i.IsArchived); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const setAccountBalance = `
UPDATE accounts SET balance = ?, updated_at = CURRENT_TIMESTAMP
WHERE user_id = ? AND id = ?`

func (q *Queries) SetAccountBalance(ctx context.Context, userID, id, balance string) (int64, error) {
	res, err := q.db.ExecContext(ctx, setAccountBalance, balance, userID, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const goalColumns = `id, user_id, name, target_amount, current_amount, deadline, category, is_completed`

const upsertGoal = `
INSERT INTO goals (` + goalColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    name = excluded.name,
    target_amount = excluded.target_amount,
    current_amount = excluded.current_amount,
    deadline = excluded.deadline,
    category = excluded.category,
    is_completed = excluded.is_completed,
    updated_at = CURRENT_TIMESTAMP
WHERE goals.user_id = excluded.user_id`

func (q *Queries) UpsertGoal(ctx context.Context, arg Goal) error {
	_, err := q.db.ExecContext(ctx, upsertGoal,
		arg.ID, arg.UserID, arg.Name, arg.TargetAmount, arg.CurrentAmount,
		arg.Deadline, arg.Category, arg.IsCompleted)
	return err
}

const getGoal = `SELECT ` + goalColumns + ` FROM goals WHERE user_id = ? AND id = ?`

func (q *Queries) GetGoal(ctx context.Context, userID, id string) (Goal, error) {
	var i Goal
	err := q.db.QueryRowContext(ctx, getGoal, userID, id).Scan(
		&i.ID, &i.UserID, &i.Name, &i.TargetAmount, &i.CurrentAmount,
		&i.Deadline, &i.Category, &i.IsCompleted)
	return i, err
}

const listGoals = `SELECT ` + goalColumns + ` FROM goals WHERE user_id = ? ORDER BY created_at, id`

func (q *Queries) ListGoals(ctx context.Context, userID string) ([]Goal, error) {
	rows, err := q.db.QueryContext(ctx, listGoals, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Goal
	for rows.Next() {
		var i Goal
		if err := rows.Scan(&i.ID, &i.UserID, &i.Name, &i.TargetAmount, &i.CurrentAmount,
			&i.Deadline, &i.Category, &i.IsCompleted); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const upsertBudget = `
INSERT INTO budgets (id, user_id, category, amount, month)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(user_id, category, month) DO UPDATE SET amount = excluded.amount
RETURNING id, user_id, category, amount, month`

func (q *Queries) UpsertBudget(ctx context.Context, arg Budget) (Budget, error) {
	var i Budget
	err := q.db.QueryRowContext(ctx, upsertBudget,
		arg.ID, arg.UserID, arg.Category, arg.Amount, arg.Month).Scan(
		&i.ID, &i.UserID, &i.Category, &i.Amount, &i.Month)
	return i, err
}

const listBudgets = `
SELECT id, user_id, category, amount, month FROM budgets
WHERE user_id = ? AND (? = '' OR month = ?)
ORDER BY month, category`

func (q *Queries) ListBudgets(ctx context.Context, userID, month string) ([]Budget, error) {
	rows, err := q.db.QueryContext(ctx, listBudgets, userID, month, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Budget
	for rows.Next() {
		var i Budget
		if err := rows.Scan(&i.ID, &i.UserID, &i.Category, &i.Amount, &i.Month); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const upsertExchangeRate = `
INSERT INTO exchange_rates (user_id, from_currency, to_currency, rate)
VALUES (?, ?, ?, ?)
ON CONFLICT(user_id, from_currency, to_currency) DO UPDATE SET
    rate = excluded.rate,
    updated_at = CURRENT_TIMESTAMP`

func (q *Queries) UpsertExchangeRate(ctx context.Context, userID string, arg ExchangeRate) error {
	_, err := q.db.ExecContext(ctx, upsertExchangeRate, userID, arg.FromCurrency, arg.ToCurrency, arg.Rate)
	return err
}

const listExchangeRates = `
SELECT from_currency, to_currency, rate FROM exchange_rates
WHERE user_id = ? ORDER BY updated_at, from_currency, to_currency`

func (q *Queries) ListExchangeRates(ctx context.Context, userID string) ([]ExchangeRate, error) {
	rows, err := q.db.QueryContext(ctx, listExchangeRates, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ExchangeRate
	for rows.Next() {
		var i ExchangeRate
		if err := rows.Scan(&i.FromCurrency, &i.ToCurrency, &i.Rate); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const deleteMarketRates = `DELETE FROM market_rates`

func (q *Queries) DeleteMarketRates(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteMarketRates)
	return err
}

const insertMarketRate = `
INSERT INTO market_rates (currency, base, rate, updated_at) VALUES (?, ?, ?, ?)`

func (q *Queries) InsertMarketRate(ctx context.Context, arg MarketRate) error {
	_, err := q.db.ExecContext(ctx, insertMarketRate, arg.Currency, arg.Base, arg.Rate, arg.UpdatedAt)
	return err
}

const listMarketRates = `SELECT currency, base, rate, updated_at FROM market_rates ORDER BY currency`

func (q *Queries) ListMarketRates(ctx context.Context) ([]MarketRate, error) {
	rows, err := q.db.QueryContext(ctx, listMarketRates)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MarketRate
	for rows.Next() {
		var i MarketRate
		if err := rows.Scan(&i.Currency, &i.Base, &i.Rate, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const upsertSnapshot = `
INSERT INTO metric_snapshots (user_id, month, income, expenses, net, savings_rate, health_score, net_worth, currency)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id, month) DO UPDATE SET
    income = excluded.income,
    expenses = excluded.expenses,
    net = excluded.net,
    savings_rate = excluded.savings_rate,
    health_score = excluded.health_score,
    net_worth = excluded.net_worth,
    currency = excluded.currency,
    created_at = CURRENT_TIMESTAMP`

func (q *Queries) UpsertSnapshot(ctx context.Context, arg MetricSnapshot) error {
	_, err := q.db.ExecContext(ctx, upsertSnapshot,
		arg.UserID, arg.Month, arg.Income, arg.Expenses, arg.Net,
		arg.SavingsRate, arg.HealthScore, arg.NetWorth, arg.Currency)
	return err
}

const listSnapshots = `
SELECT user_id, month, income, expenses, net, savings_rate, health_score, net_worth, currency
FROM metric_snapshots WHERE user_id = ? ORDER BY month`

func (q *Queries) ListSnapshots(ctx context.Context, userID string) ([]MetricSnapshot, error) {
	rows, err := q.db.QueryContext(ctx, listSnapshots, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MetricSnapshot
	for rows.Next() {
		var i MetricSnapshot
		if err := rows.Scan(&i.UserID, &i.Month, &i.Income, &i.Expenses, &i.Net,
			&i.SavingsRate, &i.HealthScore, &i.NetWorth, &i.Currency); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}
