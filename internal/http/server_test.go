package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/ledger/memory"
	"fintrack/internal/services"
)

type apiFixture struct {
	server *Server
	store  *memory.Store
}

func newAPIFixture(t *testing.T, opts Options) *apiFixture {
	t.Helper()
	timeNow = func() time.Time { return time.Date(2024, 11, 20, 10, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { timeNow = time.Now })

	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.SaveAccount(ctx, core.Account{ID: "chk", UserID: "u1", Name: "Checking", Type: core.Checking, Currency: "PHP", Balance: decimal.NewFromInt(50000)}))
	require.NoError(t, store.SaveAccount(ctx, core.Account{ID: "usd", UserID: "u1", Name: "Dollar savings", Type: core.Savings, Currency: "USD", Balance: decimal.NewFromInt(1000)}))
	require.NoError(t, store.ReplaceMarketRates(ctx, core.MarketRates{Base: "PHP", Rates: map[string]decimal.Decimal{"USD": decimal.NewFromInt(56)}}))

	dash := services.NewDashboardService(store, cache.NewLRUCache[*services.Dashboard](10, time.Hour),
		services.DashboardOptions{BaseCurrency: "PHP", TrendMonths: 3, EmergencyMonths: 3}, nil)
	led := services.NewLedgerService(store, nil, dash, "PHP", nil)

	if opts.BaseCurrency == "" {
		opts.BaseCurrency = "PHP"
	}
	s := NewServer(":0", dash, led, opts)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return &apiFixture{server: s, store: store}
}

func (f *apiFixture) do(t *testing.T, method, target, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if user != "" {
		req.Header.Set(UserHeader, user)
	}
	rec := httptest.NewRecorder()
	f.server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthAndReady(t *testing.T) {
	f := newAPIFixture(t, Options{Ready: func(context.Context) error { return errors.New("db locked") }})

	rec := f.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = f.do(t, http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAPIRequiresUser(t *testing.T) {
	f := newAPIFixture(t, Options{})

	rec := f.do(t, http.MethodGet, "/api/dashboard", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], UserHeader)
}

func TestRecordAndReadDashboard(t *testing.T) {
	f := newAPIFixture(t, Options{})

	for _, body := range []string{
		`{"amount": 40000, "category": "Salary", "date": "2024-11-01", "account_id": "chk"}`,
		`{"amount": "-10000", "category": "rent", "date": "2024-11-02"}`,
		`{"amount": -6000, "category": "food", "date": "2024-11-03"}`,
	} {
		rec := f.do(t, http.MethodPost, "/api/transactions", "u1", body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := f.do(t, http.MethodGet, "/api/dashboard?month=2024-11", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	d := decodeBody(t, rec)
	assert.Equal(t, "40000", d["income"])
	assert.Equal(t, "16000", d["expenses"])
	assert.Equal(t, "PHP", d["currency"])

	rec = f.do(t, http.MethodGet, "/api/savings-rate?month=2024-11", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 60, decodeBody(t, rec)["rate"])

	rec = f.do(t, http.MethodGet, "/api/categories?month=2024-11", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cats := decodeBody(t, rec)["categories"].([]any)
	require.Len(t, cats, 2)
	assert.Equal(t, "housing", cats[0].(map[string]any)["category"])

	rec = f.do(t, http.MethodGet, "/api/net-worth?month=2024-11", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "146000", decodeBody(t, rec)["net_worth"], "90000 PHP checking plus 1000 USD at 56")

	rec = f.do(t, http.MethodGet, "/api/transactions?month=2024-11", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var txs []core.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &txs))
	assert.Len(t, txs, 3)

	for _, path := range []string{"/api/health-score", "/api/emergency-fund", "/api/spending-comparison", "/api/budgets/summary", "/api/goals"} {
		rec = f.do(t, http.MethodGet, path+"?month=2024-11", "u1", "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestTransactionValidation(t *testing.T) {
	f := newAPIFixture(t, Options{})

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"amount": `, http.StatusBadRequest},
		{"unknown field", `{"amount": 5, "date": "2024-11-01", "colour": "red"}`, http.StatusBadRequest},
		{"zero amount", `{"amount": 0, "date": "2024-11-01"}`, http.StatusBadRequest},
		{"bad date", `{"amount": 5, "date": "yesterday"}`, http.StatusBadRequest},
		{"unknown account", `{"amount": 5, "date": "2024-11-01", "account_id": "ghost"}`, http.StatusNotFound},
		{"empty body", ``, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/transactions", "u1", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestTransfers(t *testing.T) {
	f := newAPIFixture(t, Options{})

	rec := f.do(t, http.MethodPost, "/api/transfers", "u1", `{"from_account_id": "chk", "to_account_id": "usd", "amount": 5600, "date": "2024-11-10"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tr := decodeBody(t, rec)
	assert.Equal(t, "100", tr["in"].(map[string]any)["amount"])

	rec = f.do(t, http.MethodPost, "/api/transfers", "u1", `{"from_account_id": "chk", "to_account_id": "chk", "amount": 1, "date": "2024-11-10"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/transfers", "u1", `{"from_account_id": "chk", "to_account_id": "nope", "amount": 1, "date": "2024-11-10"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTrendWindow(t *testing.T) {
	f := newAPIFixture(t, Options{})

	rec := f.do(t, http.MethodGet, "/api/trend?month=2024-11", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["trend"], 3)

	rec = f.do(t, http.MethodGet, "/api/trend?month=2024-11&months=12", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Len(t, body["trend"], 12)
	assert.Len(t, body["balance"], 12)

	rec = f.do(t, http.MethodGet, "/api/trend?months=99", "u1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/trend?month=November", "u1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConvertAndExchangeRates(t *testing.T) {
	f := newAPIFixture(t, Options{})

	rec := f.do(t, http.MethodGet, "/api/convert?amount=100&from=usd", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	conv := decodeBody(t, rec)
	assert.Equal(t, "5600", conv["converted"])
	assert.Equal(t, "PHP", conv["to"])

	rec = f.do(t, http.MethodPut, "/api/exchange-rates", "u1", `{"from_currency": "usd", "to_currency": "php", "rate": 50.5}`)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/convert?amount=2&from=USD&to=PHP", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "101", decodeBody(t, rec)["converted"])

	rec = f.do(t, http.MethodGet, "/api/convert?amount=abc&from=USD", "u1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = f.do(t, http.MethodGet, "/api/convert?amount=1&from=DOLLARS", "u1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGoalsBudgetsAndAccounts(t *testing.T) {
	f := newAPIFixture(t, Options{})

	rec := f.do(t, http.MethodPost, "/api/goals", "u1", `{"name": "Laptop", "target_amount": 60000, "deadline": "2025-06-30"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	goalID := decodeBody(t, rec)["id"].(string)

	rec = f.do(t, http.MethodPost, "/api/goals/"+goalID+"/funds", "u1", `{"amount": 60000}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, decodeBody(t, rec)["is_completed"])

	rec = f.do(t, http.MethodPost, "/api/goals/missing/funds", "u1", `{"amount": 1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPut, "/api/budgets", "u1", `{"category": "food", "amount": 8000}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "2024-11-01", decodeBody(t, rec)["month"], "month defaults to the current one")

	rec = f.do(t, http.MethodPost, "/api/accounts", "u1", `{"name": "Wallet", "type": "cash", "balance": 0}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "PHP", decodeBody(t, rec)["currency"])

	rec = f.do(t, http.MethodGet, "/api/accounts", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var accounts []core.Account
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accounts))
	assert.Len(t, accounts, 3)

	rec = f.do(t, http.MethodGet, "/api/accounts", "u2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestSnapshotsListing(t *testing.T) {
	f := newAPIFixture(t, Options{})
	require.NoError(t, f.store.SaveSnapshot(context.Background(), core.MonthSnapshot{
		UserID: "u1", Month: core.NewDate(2024, 10, 1), Currency: "PHP", HealthScore: 64,
	}))

	rec := f.do(t, http.MethodGet, "/api/snapshots", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var snaps []core.MonthSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snaps))
	require.Len(t, snaps, 1)
	assert.Equal(t, 64, snaps[0].HealthScore)
}

func TestRateLimitPerUser(t *testing.T) {
	f := newAPIFixture(t, Options{RateLimitPerMinute: 2})

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/accounts", "u1", "").Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/accounts", "u1", "").Code)

	rec := f.do(t, http.MethodGet, "/api/accounts", "u1", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/accounts", "u2", "").Code)
}

func TestUnknownRoute(t *testing.T) {
	f := newAPIFixture(t, Options{})
	rec := f.do(t, http.MethodGet, "/api/nothing", "u1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = f.do(t, http.MethodDelete, "/api/accounts", "u1", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
