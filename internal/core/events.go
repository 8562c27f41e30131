package core

import "time"

type EventType string

const (
	EventCoverageApplied        EventType = "coverage.applied"
	EventCoverageFailed         EventType = "coverage.failed"
	EventCardPaymentGenerated   EventType = "card.payment_generated"
	EventInvestmentYieldApplied EventType = "investment.yield_applied"
)

// Event is a notification about something the engine did on its own.
type Event struct {
	Type      EventType
	Month     Month
	EntityID  string
	Amount    Money
	Message   string
	Timestamp time.Time
}
