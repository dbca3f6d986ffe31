package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// TransactionEventMessage announces a committed transaction mutation. The
// reconcile worker only needs the owning user; it re-derives the summary from
// the transaction set rather than trusting the message payload.
type TransactionEventMessage struct {
	TransactionID int64     `json:"transaction_id"`
	UserID        string    `json:"user_id"`
	Action        string    `json:"action"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionEventMessage(transactionID int64, userID uuid.UUID, action string) *TransactionEventMessage {
	return &TransactionEventMessage{
		TransactionID: transactionID,
		UserID:        userID.String(),
		Action:        action,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionEventMessageFromJSON creates a message from JSON bytes
func TransactionEventMessageFromJSON(data []byte) (*TransactionEventMessage, error) {
	var msg TransactionEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
