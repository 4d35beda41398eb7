package amqp

import (
	"encoding/json"
	"time"

	"registro/internal/core"
)

// TransactionRecordedType is the AMQP message type of TransactionRecordedMessage.
const TransactionRecordedType = "transaction.recorded"

// TransactionRecordedMessage announces a newly appended transaction.
// Consumers needing the joined row re-read it from the store by ID.
type TransactionRecordedMessage struct {
	ID          int64     `json:"id"`
	Timestamp   string    `json:"timestamp"`
	ClientID    int64     `json:"client_id"`
	ServiceID   int64     `json:"service_id"`
	TotalValue  float64   `json:"total_value"`
	PublishedAt time.Time `json:"published_at"`
}

// NewTransactionRecordedMessage builds the message for a stored record.
func NewTransactionRecordedMessage(id int64, t core.Transaction) *TransactionRecordedMessage {
	return &TransactionRecordedMessage{
		ID:          id,
		Timestamp:   t.Timestamp,
		ClientID:    t.ClientID,
		ServiceID:   t.ServiceID,
		TotalValue:  t.Total(),
		PublishedAt: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}
