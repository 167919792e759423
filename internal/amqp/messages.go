package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Settlement event kinds carried on the queue.
const (
	EventSettlementProposed  = "settlement.proposed"
	EventSettlementConfirmed = "settlement.confirmed"
	EventSettlementRejected  = "settlement.rejected"
)

// SettlementEventMessage is a lightweight notification message. It carries
// only identifiers; the worker fetches the full settlement from storage so
// the queue never holds stale amounts.
type SettlementEventMessage struct {
	Event        string    `json:"event"`
	SettlementID uuid.UUID `json:"settlement_id"`
	GroupID      uuid.UUID `json:"group_id"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewSettlementEventMessage creates an event message for a settlement.
func NewSettlementEventMessage(event string, settlementID, groupID uuid.UUID) *SettlementEventMessage {
	return &SettlementEventMessage{
		Event:        event,
		SettlementID: settlementID,
		GroupID:      groupID,
		Timestamp:    time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *SettlementEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SettlementEventMessageFromJSON creates a message from JSON bytes
func SettlementEventMessageFromJSON(data []byte) (*SettlementEventMessage, error) {
	var msg SettlementEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
