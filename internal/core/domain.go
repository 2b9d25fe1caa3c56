package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Checking   AccountType = "checking"
	Savings    AccountType = "savings"
	Cash       AccountType = "cash"
	CreditCard AccountType = "credit_card"
	Investment AccountType = "investment"
	EWallet    AccountType = "e_wallet"
)

const dateLayout = "2006-01-02"

type (
	AccountType string

	Date struct {
		time.Time
	}

	Transaction struct {
		ID          string          `json:"id"`
		UserID      string          `json:"user_id"`
		Amount      decimal.Decimal `json:"amount"` // positive = inflow, negative = outflow
		Category    Category        `json:"category"`
		Date        Date            `json:"date"`
		Currency    string          `json:"currency"`
		AccountID   string          `json:"account_id,omitempty"`
		TransferID  string          `json:"transfer_id,omitempty"`
		Description string          `json:"description,omitempty"`
	}

	Account struct {
		ID         string          `json:"id"`
		UserID     string          `json:"user_id"`
		Name       string          `json:"name"`
		Type       AccountType     `json:"type"`
		Currency   string          `json:"currency"`
		Balance    decimal.Decimal `json:"balance"`
		IsArchived bool            `json:"is_archived"`
	}

	Goal struct {
		ID            string          `json:"id"`
		UserID        string          `json:"user_id"`
		Name          string          `json:"name"`
		TargetAmount  decimal.Decimal `json:"target_amount"`
		CurrentAmount decimal.Decimal `json:"current_amount"`
		Deadline      *Date           `json:"deadline,omitempty"`
		Category      string          `json:"category"`
		IsCompleted   bool            `json:"is_completed"`
	}

	Budget struct {
		ID       string          `json:"id"`
		UserID   string          `json:"user_id"`
		Category Category        `json:"category"`
		Amount   decimal.Decimal `json:"amount"`
		Month    Date            `json:"month"` // first of month
	}

	// ExchangeRate is a user-defined directional rate: 1 FromCurrency = Rate ToCurrency.
	ExchangeRate struct {
		FromCurrency string          `json:"from_currency"`
		ToCurrency   string          `json:"to_currency"`
		Rate         decimal.Decimal `json:"rate"`
	}

	// MarketRates maps currency codes to their value in Base currency.
	MarketRates struct {
		Base      string                     `json:"base"`
		Rates     map[string]decimal.Decimal `json:"rates"`
		UpdatedAt time.Time                  `json:"updated_at"`
	}
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidCurrency = errors.New("invalid currency code")
	ErrEmptyName       = errors.New("empty name")
	ErrEmptyUser       = errors.New("empty user id")
	ErrEmptyAccount    = errors.New("empty account id")
	ErrSameAccount     = errors.New("transfer source and destination are the same account")
	ErrInvalidRate     = errors.New("exchange rate must be positive")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// ParseMonth parses YYYY-MM (or a full date) and returns the first of that month.
func ParseMonth(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01", s); err == nil {
		return Date{Time: t}, nil
	}
	d, err := ParseDate(s)
	if err != nil {
		return Date{}, err
	}
	return d.FirstOfMonth(), nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// FirstOfMonth returns the first day of d's month.
func (d Date) FirstOfMonth() Date {
	return NewDate(d.Year(), d.Month(), 1)
}

// LastOfMonth returns the last day of d's month.
func (d Date) LastOfMonth() Date {
	return NewDate(d.Year(), d.Month()+1, 0)
}

// AddMonths shifts d's month by n and pins the result to the first of the month.
func (d Date) AddMonths(n int) Date {
	return NewDate(d.Year(), d.Month()+n, 1)
}

// SameMonth reports whether d and o fall in the same calendar month.
func (d Date) SameMonth(o Date) bool {
	return d.Year() == o.Year() && d.Month() == o.Month()
}

// Before and After compare calendar dates.
func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool  { return d.Time.After(o.Time) }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// MonthKey formats the date as YYYY-MM.
func (d Date) MonthKey() string {
	return d.Format("2006-01")
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// MarshalJSON overrides the embedded time.Time encoding.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		s = ""
	}
	return d.UnmarshalText([]byte(s))
}

func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// IsTransfer reports whether the transaction is one leg of an inter-account movement.
func (t Transaction) IsTransfer() bool {
	return t.Category == CategoryTransfer
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.UserID) == "" {
		return ErrEmptyUser
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if t.Amount.IsZero() {
		return ErrInvalidAmount
	}
	if !ValidCurrency(t.Currency) {
		return ErrInvalidCurrency
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.UserID) == "" {
		return ErrEmptyUser
	}
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if !ValidCurrency(a.Currency) {
		return ErrInvalidCurrency
	}
	return nil
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.UserID) == "" {
		return ErrEmptyUser
	}
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if !g.TargetAmount.IsPositive() {
		return ErrInvalidAmount
	}
	if g.CurrentAmount.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.UserID) == "" {
		return ErrEmptyUser
	}
	if err := b.Month.Validate(); err != nil {
		return err
	}
	if b.Month.Day() != 1 {
		return errors.New("budget month must be the first day of a month")
	}
	if !b.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if b.Category == CategoryTransfer {
		return errors.New("transfers cannot be budgeted")
	}
	return nil
}

func (r ExchangeRate) Validate() error {
	if !ValidCurrency(r.FromCurrency) || !ValidCurrency(r.ToCurrency) {
		return ErrInvalidCurrency
	}
	if !r.Rate.IsPositive() {
		return ErrInvalidRate
	}
	return nil
}

// ValidCurrency checks for a three-letter upper-case ISO style code.
func ValidCurrency(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
