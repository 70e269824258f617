package infrastructure

import (
	"fmt"

	"bookie/settlement-engine/domain/events"
)

// EventSubjectMapper handles mapping between domain events and NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts a domain event to its corresponding NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	return m.SubjectForEventType(event.Type())
}

// SubjectForEventType converts an event type to its NATS subject
func (m *EventSubjectMapper) SubjectForEventType(eventType events.EventType) string {
	switch eventType {
	case events.EventTypeBalanceChange:
		return "ledger.balance_changed"
	case events.EventTypeWagerSettled:
		return "settlements.wager_settled"
	case events.EventTypeFraudAlert:
		return "alerts.fraud"
	case events.EventTypeReconciliationAlert:
		return "alerts.reconciliation"
	default:
		return fmt.Sprintf("unknown.%s", eventType)
	}
}

// MapSubjectToEventType converts a NATS subject back to an event type
func (m *EventSubjectMapper) MapSubjectToEventType(subject string) events.EventType {
	switch subject {
	case "ledger.balance_changed":
		return events.EventTypeBalanceChange
	case "settlements.wager_settled":
		return events.EventTypeWagerSettled
	case "alerts.fraud":
		return events.EventTypeFraudAlert
	case "alerts.reconciliation":
		return events.EventTypeReconciliationAlert
	default:
		return events.EventType(subject)
	}
}

// GetAllSubjects returns all subjects that this service publishes to
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{
		"ledger.balance_changed",
		"settlements.wager_settled",
		"alerts.fraud",
		"alerts.reconciliation",
	}
}
