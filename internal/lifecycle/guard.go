package lifecycle

import (
	"rental-marketplace/internal/models"
)

// The guard filters candidate events against the idempotency state persisted
// on the entity. It must run over the same snapshot that the executor's
// conditional write is keyed on, so two overlapping runs cannot both pass
// the guard and commit.

// GuardLeaseEvents drops lease events whose side effect already happened.
func GuardLeaseEvents(lease *models.LeaseContract, events []Event) []Event {
	var out []Event
	for _, ev := range events {
		switch ev.Type {
		case EventExpire:
			if lease.Status.IsTerminal() {
				continue
			}
		case EventWarn:
			if lease.SentWarningThresholds.Contains(ev.Threshold) {
				continue
			}
		default:
			continue
		}
		out = append(out, ev)
	}
	return out
}

// GuardApplicationEvents drops application events whose side effect already
// happened.
func GuardApplicationEvents(app *models.RentalApplication, events []Event) []Event {
	var out []Event
	for _, ev := range events {
		switch ev.Type {
		case EventMarkOverdue:
			if app.Overdue || app.Status != models.ApplicationStatusPending {
				continue
			}
		case EventAutoDecide:
			if app.AutoProcessed || app.Status != models.ApplicationStatusPending {
				continue
			}
		default:
			continue
		}
		out = append(out, ev)
	}
	return out
}
