package http

import (
	"net/http"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

// overview resolves the caller's dashboard for the requested month, writing
// the error response itself when it fails.
func (s *Server) overview(w http.ResponseWriter, r *http.Request) (*services.Dashboard, bool) {
	month, err := parseMonth(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return nil, false
	}
	d, err := s.dashboard.Overview(r.Context(), userID(r), month)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return d, true
}

// dashboardView serves one projection of the cached dashboard.
func (s *Server) dashboardView(project func(d *services.Dashboard) any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, ok := s.overview(w, r)
		if !ok {
			return
		}
		NewJSONResponse().Data(project(d)).Write(w)
	}
}

func dashboardAll(d *services.Dashboard) any { return d }

func netWorthView(d *services.Dashboard) any {
	return map[string]any{
		"net_worth": d.NetWorth,
		"currency":  d.Currency,
		"accounts":  d.Accounts,
	}
}

func categoriesView(d *services.Dashboard) any {
	return map[string]any{
		"month":      d.Month,
		"currency":   d.Currency,
		"expenses":   d.Expenses,
		"categories": d.Categories,
	}
}

func trendView(d *services.Dashboard) any {
	return map[string]any{"trend": d.Trend, "balance": d.Balance}
}

func spendingView(d *services.Dashboard) any      { return d.Spending }
func savingsRateView(d *services.Dashboard) any   { return d.SavingsRate }
func emergencyFundView(d *services.Dashboard) any { return d.EmergencyFund }
func healthView(d *services.Dashboard) any        { return d.Health }
func budgetsView(d *services.Dashboard) any       { return d.Budgets }
func goalsView(d *services.Dashboard) any         { return d.Goals }

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	months, err := parseMonths(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if months == 0 {
		s.dashboardView(trendView)(w, r)
		return
	}

	month, err := parseMonth(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	trend, balance, err := s.dashboard.Trend(r.Context(), userID(r), month, months)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(map[string]any{"trend": trend, "balance": balance}).Write(w)
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	amount, err := core.ParseAmount(q.Get("amount"))
	if err != nil {
		BadRequestError("invalid amount").Write(w)
		return
	}
	from := strings.ToUpper(strings.TrimSpace(q.Get("from")))
	to := strings.ToUpper(strings.TrimSpace(q.Get("to")))
	if to == "" {
		to = s.baseCurrency
	}

	conv, err := s.dashboard.Convert(r.Context(), userID(r), amount, from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(conv).Write(w)
}
