package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

type transactionRequest struct {
	Amount      json.Number `json:"amount"`
	Category    string      `json:"category"`
	Date        string      `json:"date"`
	Currency    string      `json:"currency"`
	AccountID   string      `json:"account_id"`
	Description string      `json:"description"`
}

type transferRequest struct {
	FromAccountID string      `json:"from_account_id"`
	ToAccountID   string      `json:"to_account_id"`
	Amount        json.Number `json:"amount"`
	Date          string      `json:"date"`
	Description   string      `json:"description"`
}

type accountRequest struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Type       string      `json:"type"`
	Currency   string      `json:"currency"`
	Balance    json.Number `json:"balance"`
	IsArchived bool        `json:"is_archived"`
}

type goalRequest struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	TargetAmount  json.Number `json:"target_amount"`
	CurrentAmount json.Number `json:"current_amount"`
	Deadline      string      `json:"deadline"`
	Category      string      `json:"category"`
}

type fundsRequest struct {
	Amount json.Number `json:"amount"`
}

type budgetRequest struct {
	Category string      `json:"category"`
	Amount   json.Number `json:"amount"`
	Month    string      `json:"month"`
}

type exchangeRateRequest struct {
	FromCurrency string      `json:"from_currency"`
	ToCurrency   string      `json:"to_currency"`
	Rate         json.Number `json:"rate"`
}

// optionalMoney parses n as a money value where absent or zero is allowed.
func optionalMoney(n json.Number) (decimal.Decimal, bool) {
	if n == "" {
		return decimal.Zero, true
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero, false
	}
	return core.RoundMoney(d), true
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	tx, err := s.ledger.RecordTransaction(r.Context(), services.TransactionInput{
		UserID:      userID(r),
		Amount:      req.Amount.String(),
		Category:    sanitizeInput(req.Category),
		Date:        strings.TrimSpace(req.Date),
		Currency:    req.Currency,
		AccountID:   sanitizeInput(req.AccountID),
		Description: sanitizeInput(req.Description),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Data(tx).Write(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonth(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	txs, err := s.ledger.ListTransactions(r.Context(), userID(r), month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	NewJSONResponse().Data(txs).Write(w)
}

func (s *Server) handleCreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	t, err := s.ledger.RecordTransfer(r.Context(), services.TransferInput{
		UserID:        userID(r),
		FromAccountID: sanitizeInput(req.FromAccountID),
		ToAccountID:   sanitizeInput(req.ToAccountID),
		Amount:        req.Amount.String(),
		Date:          strings.TrimSpace(req.Date),
		Description:   sanitizeInput(req.Description),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Data(t).Write(w)
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.ledger.ListAccounts(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if accounts == nil {
		accounts = []core.Account{}
	}
	NewJSONResponse().Data(accounts).Write(w)
}

func (s *Server) handleSaveAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	balance, ok := optionalMoney(req.Balance)
	if !ok {
		BadRequestError("invalid balance").Write(w)
		return
	}

	a, err := s.ledger.SaveAccount(r.Context(), core.Account{
		ID:         sanitizeInput(req.ID),
		UserID:     userID(r),
		Name:       sanitizeInput(req.Name),
		Type:       core.AccountType(strings.ToLower(sanitizeInput(req.Type))),
		Currency:   req.Currency,
		Balance:    balance,
		IsArchived: req.IsArchived,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Data(a).Write(w)
}

func (s *Server) handleSaveGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	target, err := core.ParseAmount(req.TargetAmount.String())
	if err != nil {
		BadRequestError("invalid target_amount").Write(w)
		return
	}
	current, ok := optionalMoney(req.CurrentAmount)
	if !ok {
		BadRequestError("invalid current_amount").Write(w)
		return
	}

	g := core.Goal{
		ID:            sanitizeInput(req.ID),
		UserID:        userID(r),
		Name:          sanitizeInput(req.Name),
		TargetAmount:  target,
		CurrentAmount: current,
		Category:      sanitizeInput(req.Category),
	}
	if d := strings.TrimSpace(req.Deadline); d != "" {
		deadline, err := core.ParseDate(d)
		if err != nil {
			BadRequestError("invalid deadline: want YYYY-MM-DD").Write(w)
			return
		}
		g.Deadline = &deadline
	}

	saved, err := s.ledger.SaveGoal(r.Context(), g)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Data(saved).Write(w)
}

func (s *Server) handleAddGoalFunds(w http.ResponseWriter, r *http.Request) {
	var req fundsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	g, err := s.ledger.AddGoalFunds(r.Context(), userID(r), chi.URLParam(r, "id"), req.Amount.String())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(g).Write(w)
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	month := strings.TrimSpace(req.Month)
	if month == "" {
		month = core.DateOf(timeNow()).MonthKey()
	}
	b, err := s.ledger.SetBudget(r.Context(), userID(r), sanitizeInput(req.Category), req.Amount.String(), month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(b).Write(w)
}

func (s *Server) handleSetExchangeRate(w http.ResponseWriter, r *http.Request) {
	var req exchangeRateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	rate, err := decimal.NewFromString(req.Rate.String())
	if err != nil {
		BadRequestError("invalid rate").Write(w)
		return
	}
	er := core.ExchangeRate{FromCurrency: req.FromCurrency, ToCurrency: req.ToCurrency, Rate: rate}
	if err := s.ledger.SetExchangeRate(r.Context(), userID(r), er); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	snaps, err := s.ledger.ListSnapshots(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if snaps == nil {
		snaps = []core.MonthSnapshot{}
	}
	NewJSONResponse().Data(snaps).Write(w)
}
