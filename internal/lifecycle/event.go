package lifecycle

import (
	"fmt"

	"rental-marketplace/internal/models"
)

// EventType identifies a lifecycle event a run may apply to an entity
type EventType string

const (
	EventExpire      EventType = "expire"
	EventWarn        EventType = "warn"
	EventMarkOverdue EventType = "mark_overdue"
	EventAutoDecide  EventType = "auto_decide"
)

// Event is one candidate state change produced by the evaluator for a single
// entity. Threshold is set for warn events, Policy for auto-decide events.
type Event struct {
	Type      EventType
	Threshold int
	Policy    models.AutoProcessingPolicy
}

// Reason returns the threshold-or-reason part of the event's dedupe key.
func (e Event) Reason() string {
	switch e.Type {
	case EventWarn:
		return fmt.Sprintf("%d", e.Threshold)
	case EventAutoDecide:
		return string(e.Policy)
	default:
		return string(e.Type)
	}
}
