package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

// LedgerEventMessage is the wire form of a core.Event. Amounts travel as
// decimal strings so no precision is lost.
type LedgerEventMessage struct {
	Type      string    `json:"type"`
	Month     string    `json:"month"`
	EntityID  string    `json:"entityId,omitempty"`
	Amount    string    `json:"amount"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerEventMessage converts an engine event for publishing.
func NewLedgerEventMessage(e core.Event) *LedgerEventMessage {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return &LedgerEventMessage{
		Type:      string(e.Type),
		Month:     e.Month.String(),
		EntityID:  e.EntityID,
		Amount:    e.Amount.String(),
		Message:   e.Message,
		Timestamp: ts.UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON decodes a message and checks it names an event.
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("ledger event without type")
	}
	return &msg, nil
}

// Event converts the message back to a core.Event.
func (m *LedgerEventMessage) Event() (core.Event, error) {
	month, err := core.ParseMonth(m.Month)
	if err != nil {
		return core.Event{}, fmt.Errorf("event month %q: %w", m.Month, err)
	}
	amount, err := decimal.NewFromString(m.Amount)
	if err != nil {
		return core.Event{}, fmt.Errorf("event amount %q: %w", m.Amount, core.ErrInvalidAmount)
	}
	return core.Event{
		Type:      core.EventType(m.Type),
		Month:     month,
		EntityID:  m.EntityID,
		Amount:    core.NewMoney(amount),
		Message:   m.Message,
		Timestamp: m.Timestamp,
	}, nil
}
