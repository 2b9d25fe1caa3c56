package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
)

// TransactionInput is a single income or expense entry as submitted by a client.
type TransactionInput struct {
	UserID      string
	Amount      string
	Category    string
	Date        string
	Currency    string
	AccountID   string
	Description string
}

// TransferInput moves Amount (in the source account's currency) between two accounts.
type TransferInput struct {
	UserID        string
	FromAccountID string
	ToAccountID   string
	Amount        string
	Date          string
	Description   string
}

// Transfer is the pair of rows written for one TransferInput.
type Transfer struct {
	ID  string           `json:"id"`
	Out core.Transaction `json:"out"`
	In  core.Transaction `json:"in"`
}

// LedgerService validates and records ledger writes, then invalidates cached
// metrics and announces the change.
type LedgerService struct {
	store        ledger.Store
	publisher    EventPublisher
	invalidator  Invalidator
	baseCurrency string
	logger       *log.StructuredLogger
}

func NewLedgerService(store ledger.Store, publisher EventPublisher, invalidator Invalidator, baseCurrency string, logger *log.Logger) *LedgerService {
	if baseCurrency == "" {
		baseCurrency = metrics.BaseCurrency
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &LedgerService{
		store:        store,
		publisher:    publisher,
		invalidator:  invalidator,
		baseCurrency: baseCurrency,
		logger:       log.NewStructuredLogger(logger.WithComponent(log.ComponentLedger)),
	}
}

// RecordTransaction stores an income or expense row and moves its account balance.
// Transfers must go through RecordTransfer so both legs are written together.
func (s *LedgerService) RecordTransaction(ctx context.Context, in TransactionInput) (core.Transaction, error) {
	tx, err := s.parseTransaction(in)
	if err != nil {
		return core.Transaction{}, invalid(err)
	}
	if tx.IsTransfer() {
		return core.Transaction{}, invalid(errors.New("use the transfer endpoint to move money between accounts"))
	}

	posting := ledger.Posting{Transaction: tx}
	if tx.AccountID != "" {
		acc, err := s.store.GetAccount(ctx, tx.UserID, tx.AccountID)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("load account: %w", err)
		}
		posting.BalanceDelta, err = s.inAccountCurrency(ctx, tx.UserID, tx.Amount, tx.Currency, acc)
		if err != nil {
			return core.Transaction{}, err
		}
	}

	if err := s.store.Record(ctx, posting); err != nil {
		return core.Transaction{}, fmt.Errorf("record transaction: %w", err)
	}

	s.logger.LogTransactionRecorded(ctx, tx.UserID, tx.ID, tx.Amount.String(), tx.Currency, string(tx.Category))
	s.changed(ctx, tx.UserID, tx.Date, amqp.ChangeTransaction)
	return tx, nil
}

// RecordTransfer writes the outgoing and incoming legs under one transfer ID.
// The incoming leg is converted into the destination account's currency.
func (s *LedgerService) RecordTransfer(ctx context.Context, in TransferInput) (Transfer, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return Transfer{}, invalid(core.ErrEmptyUser)
	}
	if in.FromAccountID == "" || in.ToAccountID == "" {
		return Transfer{}, invalid(core.ErrEmptyAccount)
	}
	if in.FromAccountID == in.ToAccountID {
		return Transfer{}, invalid(core.ErrSameAccount)
	}
	amount, err := core.ParseAmount(in.Amount)
	if err != nil || !amount.IsPositive() {
		return Transfer{}, invalid(core.ErrInvalidAmount)
	}
	date, err := core.ParseDate(in.Date)
	if err != nil {
		return Transfer{}, invalid(err)
	}

	from, err := s.store.GetAccount(ctx, in.UserID, in.FromAccountID)
	if err != nil {
		return Transfer{}, fmt.Errorf("load source account: %w", err)
	}
	to, err := s.store.GetAccount(ctx, in.UserID, in.ToAccountID)
	if err != nil {
		return Transfer{}, fmt.Errorf("load destination account: %w", err)
	}
	received, err := s.inAccountCurrency(ctx, in.UserID, amount, from.Currency, to)
	if err != nil {
		return Transfer{}, err
	}

	id := uuid.NewString()
	description := strings.TrimSpace(in.Description)
	out := core.Transaction{
		ID: uuid.NewString(), UserID: in.UserID, Amount: amount.Neg(), Category: core.CategoryTransfer,
		Date: date, Currency: from.Currency, AccountID: from.ID, TransferID: id, Description: description,
	}
	inLeg := core.Transaction{
		ID: uuid.NewString(), UserID: in.UserID, Amount: received, Category: core.CategoryTransfer,
		Date: date, Currency: to.Currency, AccountID: to.ID, TransferID: id, Description: description,
	}

	err = s.store.Record(ctx,
		ledger.Posting{Transaction: out, BalanceDelta: out.Amount},
		ledger.Posting{Transaction: inLeg, BalanceDelta: inLeg.Amount},
	)
	if err != nil {
		return Transfer{}, fmt.Errorf("record transfer: %w", err)
	}

	slog.InfoContext(ctx, "Transfer recorded",
		log.FieldUserID, in.UserID,
		log.FieldTransferID, id,
		log.FieldAmount, amount.String(),
		"from_account", from.ID,
		"to_account", to.ID)
	s.changed(ctx, in.UserID, date, amqp.ChangeTransfer)
	return Transfer{ID: id, Out: out, In: inLeg}, nil
}

func (s *LedgerService) SaveAccount(ctx context.Context, a core.Account) (core.Account, error) {
	a.Currency = strings.ToUpper(strings.TrimSpace(a.Currency))
	if a.Currency == "" {
		a.Currency = s.baseCurrency
	}
	if a.Type == "" {
		a.Type = core.Checking
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.Balance = core.RoundMoney(a.Balance)
	if err := a.Validate(); err != nil {
		return core.Account{}, invalid(err)
	}
	if err := s.store.SaveAccount(ctx, a); err != nil {
		return core.Account{}, fmt.Errorf("save account: %w", err)
	}
	s.invalidate(a.UserID)
	return a, nil
}

func (s *LedgerService) SaveGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	g.TargetAmount = core.RoundMoney(g.TargetAmount)
	g.CurrentAmount = core.RoundMoney(g.CurrentAmount)
	if g.CurrentAmount.GreaterThanOrEqual(g.TargetAmount) {
		g.IsCompleted = true
	}
	if err := g.Validate(); err != nil {
		return core.Goal{}, invalid(err)
	}
	if err := s.store.SaveGoal(ctx, g); err != nil {
		return core.Goal{}, fmt.Errorf("save goal: %w", err)
	}
	s.changed(ctx, g.UserID, core.DateOf(timeNow()), amqp.ChangeGoal)
	return g, nil
}

// AddGoalFunds contributes amount to a goal, completing it once the target is reached.
func (s *LedgerService) AddGoalFunds(ctx context.Context, userID, goalID, amount string) (core.Goal, error) {
	value, err := core.ParseAmount(amount)
	if err != nil || !value.IsPositive() {
		return core.Goal{}, invalid(core.ErrInvalidAmount)
	}
	g, err := s.store.AddGoalFunds(ctx, userID, goalID, value)
	if err != nil {
		return core.Goal{}, fmt.Errorf("add goal funds: %w", err)
	}
	s.changed(ctx, userID, core.DateOf(timeNow()), amqp.ChangeGoal)
	return g, nil
}

// SetBudget upserts the budget for a category and month.
func (s *LedgerService) SetBudget(ctx context.Context, userID, category, amount, month string) (core.Budget, error) {
	value, err := core.ParseAmount(amount)
	if err != nil {
		return core.Budget{}, invalid(err)
	}
	m, err := core.ParseMonth(month)
	if err != nil {
		return core.Budget{}, invalid(err)
	}
	b := core.Budget{
		UserID:   userID,
		Category: core.NormalizeCategory(category),
		Amount:   value,
		Month:    m,
	}
	if err := b.Validate(); err != nil {
		return core.Budget{}, invalid(err)
	}
	saved, err := s.store.SaveBudget(ctx, b)
	if err != nil {
		return core.Budget{}, fmt.Errorf("save budget: %w", err)
	}
	s.changed(ctx, userID, m, amqp.ChangeBudget)
	return saved, nil
}

// SetExchangeRate stores the user's own rate for a currency pair.
func (s *LedgerService) SetExchangeRate(ctx context.Context, userID string, r core.ExchangeRate) error {
	if strings.TrimSpace(userID) == "" {
		return invalid(core.ErrEmptyUser)
	}
	r.FromCurrency = strings.ToUpper(r.FromCurrency)
	r.ToCurrency = strings.ToUpper(r.ToCurrency)
	if err := r.Validate(); err != nil {
		return invalid(err)
	}
	if err := s.store.SaveExchangeRate(ctx, userID, r); err != nil {
		return fmt.Errorf("save exchange rate: %w", err)
	}
	s.invalidate(userID)
	return nil
}

func (s *LedgerService) ListAccounts(ctx context.Context, userID string) ([]core.Account, error) {
	return s.store.ListAccounts(ctx, userID)
}

func (s *LedgerService) ListTransactions(ctx context.Context, userID string, month core.Date) ([]core.Transaction, error) {
	from, to := month.FirstOfMonth(), month.LastOfMonth()
	return s.store.ListTransactions(ctx, userID, &from, &to)
}

// ListSnapshots returns the stored monthly metric snapshots for a user.
func (s *LedgerService) ListSnapshots(ctx context.Context, userID string) ([]core.MonthSnapshot, error) {
	return s.store.ListSnapshots(ctx, userID)
}

func (s *LedgerService) parseTransaction(in TransactionInput) (core.Transaction, error) {
	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.Transaction{}, err
	}
	date, err := core.ParseDate(in.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = s.baseCurrency
	}
	tx := core.Transaction{
		ID:          uuid.NewString(),
		UserID:      strings.TrimSpace(in.UserID),
		Amount:      amount,
		Category:    core.NormalizeCategory(in.Category),
		Date:        date,
		Currency:    currency,
		AccountID:   strings.TrimSpace(in.AccountID),
		Description: strings.TrimSpace(in.Description),
	}
	return tx, tx.Validate()
}

// inAccountCurrency converts amount into acc's currency with the user's resolver.
func (s *LedgerService) inAccountCurrency(ctx context.Context, userID string, amount decimal.Decimal, currency string, acc core.Account) (decimal.Decimal, error) {
	if currency == acc.Currency {
		return amount, nil
	}
	userRates, err := s.store.ListExchangeRates(ctx, userID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("list exchange rates: %w", err)
	}
	market, err := s.store.MarketRates(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("load market rates: %w", err)
	}
	return metrics.NewResolver(userRates, market).Convert(amount, currency, acc.Currency), nil
}

func (s *LedgerService) invalidate(userID string) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(userID)
	}
}

// changed invalidates cached metrics and publishes the event. Publishing is
// best effort: the write already succeeded.
func (s *LedgerService) changed(ctx context.Context, userID string, month core.Date, kind string) {
	s.invalidate(userID)

	if s.publisher == nil {
		slog.DebugContext(ctx, "Event publisher not configured, skipping ledger changed message")
		return
	}
	if err := s.publisher.PublishLedgerChanged(ctx, userID, month.MonthKey(), kind); err != nil {
		s.logger.LogError(ctx, "Failed to publish ledger changed message", err, log.ComponentAMQP, log.OpPublish,
			log.NewFields().WithScope(userID, month.MonthKey()))
	}
}
