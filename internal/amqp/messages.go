package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// Change kinds carried by LedgerChangedMessage.
const (
	ChangeTransaction = "transaction"
	ChangeTransfer    = "transfer"
	ChangeGoal        = "goal"
	ChangeBudget      = "budget"
)

// LedgerChangedMessage announces that a user's ledger changed in a given month.
// Consumers reload what they need; the message carries no amounts.
type LedgerChangedMessage struct {
	UserID    string    `json:"user_id"`
	Month     string    `json:"month"` // YYYY-MM
	Kind      string    `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerChangedMessage(userID, month, kind string) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		UserID:    userID,
		Month:     month,
		Kind:      kind,
		Timestamp: time.Now(),
	}
}

func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangedMessageFromJSON decodes a message and rejects ones without a user or month.
func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID == "" || msg.Month == "" {
		return nil, errors.New("ledger changed message missing user_id or month")
	}
	return &msg, nil
}
