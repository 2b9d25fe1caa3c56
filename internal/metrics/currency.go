// Package metrics turns raw ledger rows into the dashboard analytics: totals,
// monthly series, ratios, budget summaries and the financial health score.
//
// Every function here is pure. Inputs are read-only snapshots supplied by the
// caller and every degenerate input (no rows, zero income, no budgets) maps to
// a zero-valued result instead of an error.
package metrics

import (
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// BaseCurrency is the reference currency market and fallback rates are quoted in.
const BaseCurrency = "PHP"

// RateSource records which tier of the resolution chain produced a rate.
type RateSource string

const (
	SourceIdentity    RateSource = "identity"
	SourceUser        RateSource = "user"
	SourceUserInverse RateSource = "user_inverse"
	SourceMarket      RateSource = "market"
	SourceFallback    RateSource = "fallback"
)

// fallbackRates is the value of one unit of each supported currency in PHP.
var fallbackRates = map[string]decimal.Decimal{
	"PHP": decimal.NewFromInt(1),
	"USD": decimal.RequireFromString("56.50"),
	"EUR": decimal.RequireFromString("61.00"),
	"GBP": decimal.RequireFromString("71.50"),
	"JPY": decimal.RequireFromString("0.37"),
	"AUD": decimal.RequireFromString("37.00"),
	"CAD": decimal.RequireFromString("41.00"),
	"SGD": decimal.RequireFromString("42.00"),
	"HKD": decimal.RequireFromString("7.20"),
	"CNY": decimal.RequireFromString("7.80"),
	"KRW": decimal.RequireFromString("0.041"),
	"INR": decimal.RequireFromString("0.67"),
	"CHF": decimal.RequireFromString("64.00"),
	"NZD": decimal.RequireFromString("33.50"),
	"AED": decimal.RequireFromString("15.40"),
	"SAR": decimal.RequireFromString("15.10"),
	"THB": decimal.RequireFromString("1.58"),
	"MYR": decimal.RequireFromString("12.10"),
	"IDR": decimal.RequireFromString("0.0035"),
	"VND": decimal.RequireFromString("0.0022"),
}

type currencyPair struct {
	from, to string
}

// Resolver converts amounts between currencies. It is immutable once built
// and safe for concurrent use.
type Resolver struct {
	user   map[currencyPair]decimal.Decimal
	market map[string]decimal.Decimal
	base   string
}

// NewResolver builds a resolver from the user's own rates and the latest
// market table. The first user rate for a given pair wins; non-positive
// rates are ignored.
func NewResolver(userRates []core.ExchangeRate, market core.MarketRates) *Resolver {
	r := &Resolver{
		user:   make(map[currencyPair]decimal.Decimal, len(userRates)),
		market: make(map[string]decimal.Decimal, len(market.Rates)),
		base:   market.Base,
	}
	if r.base == "" {
		r.base = BaseCurrency
	}
	for _, ur := range userRates {
		if !ur.Rate.IsPositive() {
			continue
		}
		key := currencyPair{ur.FromCurrency, ur.ToCurrency}
		if _, dup := r.user[key]; !dup {
			r.user[key] = ur.Rate
		}
	}
	for code, rate := range market.Rates {
		if rate.IsPositive() {
			r.market[code] = rate
		}
	}
	return r
}

// Convert returns amount expressed in currency to, rounded to two places.
func (r *Resolver) Convert(amount decimal.Decimal, from, to string) decimal.Decimal {
	if from == to {
		return amount
	}
	mul, div, _ := r.resolve(from, to)
	return core.RoundMoney(amount.Mul(mul).Div(div))
}

// Rate returns the multiplier for one unit of from in to, and where it came from.
func (r *Resolver) Rate(from, to string) (decimal.Decimal, RateSource) {
	mul, div, src := r.resolve(from, to)
	return mul.Div(div), src
}

// resolve walks the chain and returns the conversion as mul/div to keep inverse
// and cross rates exact until the final rounding.
func (r *Resolver) resolve(from, to string) (mul, div decimal.Decimal, src RateSource) {
	one := decimal.NewFromInt(1)
	if from == to {
		return one, one, SourceIdentity
	}
	if rate, ok := r.user[currencyPair{from, to}]; ok {
		return rate, one, SourceUser
	}
	if rate, ok := r.user[currencyPair{to, from}]; ok {
		return one, rate, SourceUserInverse
	}
	fromRate, okFrom := r.marketRate(from)
	toRate, okTo := r.marketRate(to)
	if okFrom && okTo {
		return fromRate, toRate, SourceMarket
	}
	return fallbackRate(from), fallbackRate(to), SourceFallback
}

func (r *Resolver) marketRate(code string) (decimal.Decimal, bool) {
	if rate, ok := r.market[code]; ok {
		return rate, true
	}
	// The base currency is implicit in a non-empty market table.
	if code == r.base && len(r.market) > 0 {
		return decimal.NewFromInt(1), true
	}
	return decimal.Zero, false
}

func fallbackRate(code string) decimal.Decimal {
	if rate, ok := fallbackRates[code]; ok {
		return rate
	}
	return decimal.NewFromInt(1)
}

// ConvertTransactions returns a copy of txs with every amount expressed in to.
func ConvertTransactions(txs []core.Transaction, r *Resolver, to string) []core.Transaction {
	out := make([]core.Transaction, len(txs))
	for i, tx := range txs {
		if tx.Currency != "" && tx.Currency != to {
			tx.Amount = r.Convert(tx.Amount, tx.Currency, to)
		}
		tx.Currency = to
		out[i] = tx
	}
	return out
}

// ConvertAccounts returns a copy of accounts with balances expressed in to.
func ConvertAccounts(accounts []core.Account, r *Resolver, to string) []core.Account {
	out := make([]core.Account, len(accounts))
	for i, a := range accounts {
		if a.Currency != "" && a.Currency != to {
			a.Balance = r.Convert(a.Balance, a.Currency, to)
		}
		a.Currency = to
		out[i] = a
	}
	return out
}

// ActiveBalance sums the balances of non-archived accounts.
func ActiveBalance(accounts []core.Account) decimal.Decimal {
	total := decimal.Zero
	for _, a := range accounts {
		if a.IsArchived {
			continue
		}
		total = total.Add(a.Balance)
	}
	return core.RoundMoney(total)
}
