package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"moneytracker/internal/core"
)

// SpendingSavedType is the AMQP message type of SpendingSavedMessage.
const SpendingSavedType = "spending.saved"

// SpendingSavedMessage announces that the record of a date was written.
// Consumers read the full record back from the store.
type SpendingSavedMessage struct {
	Date      string    `json:"date"`
	Total     float64   `json:"total"`
	Timestamp time.Time `json:"timestamp"`
}

// NewSpendingSavedMessage creates a message stamped with the current time.
func NewSpendingSavedMessage(date core.Date, total float64) *SpendingSavedMessage {
	return &SpendingSavedMessage{
		Date:      date.String(),
		Total:     total,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *SpendingSavedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SpendingDate parses the message date.
func (m *SpendingSavedMessage) SpendingDate() (core.Date, error) {
	return core.ParseDate(m.Date)
}

// SpendingSavedMessageFromJSON decodes and validates a message.
func SpendingSavedMessageFromJSON(data []byte) (*SpendingSavedMessage, error) {
	var msg SpendingSavedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if _, err := msg.SpendingDate(); err != nil {
		return nil, fmt.Errorf("spending saved message: %w", err)
	}
	return &msg, nil
}
