package lifecycle

import (
	"time"

	"rental-marketplace/internal/models"
)

// EvaluateLease computes the lifecycle events due for one lease. Pure: it
// never mutates the lease and ignores what has already been sent (that is
// the guard's job).
//
// A lease past its end date yields exactly one expire event; warnings are
// moot once the lease has run out. Otherwise every schedule threshold the
// lease has crossed (daysRemaining <= t) is reported, largest first, so a
// scan that skipped a day still fires the thresholds it missed.
func EvaluateLease(lease *models.LeaseContract, schedule []int, now time.Time) []Event {
	if lease.Status.IsTerminal() {
		return nil
	}

	daysRemaining := lease.DaysRemaining(now)
	if daysRemaining <= 0 {
		return []Event{{Type: EventExpire}}
	}

	var events []Event
	for _, t := range schedule {
		if daysRemaining <= t {
			events = append(events, Event{Type: EventWarn, Threshold: t})
		}
	}
	return events
}

// EvaluateApplication computes the lifecycle events due for one pending
// application given its effective SLA deadline, grace duration and auto
// processing policy. Pure.
func EvaluateApplication(app *models.RentalApplication, sla, grace time.Duration, policy models.AutoProcessingPolicy, now time.Time) []Event {
	if app.Status != models.ApplicationStatusPending {
		return nil
	}

	age := app.Age(now)
	if age <= sla {
		return nil
	}

	var events []Event
	if !app.Overdue {
		events = append(events, Event{Type: EventMarkOverdue})
	}
	if age > sla+grace && policy != models.AutoPolicyDisabled && policy.Valid() {
		events = append(events, Event{Type: EventAutoDecide, Policy: policy})
	}
	return events
}
