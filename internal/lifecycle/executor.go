package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log"

	"rental-marketplace/internal/database"
	"rental-marketplace/internal/models"

	"github.com/google/uuid"
)

// Executor commits guard-approved events against the entity store. Every
// write is conditional on the concurrency token of the snapshot the events
// were evaluated from; a stale token means another run already applied the
// change and the executor stops touching that entity without error.
type Executor struct {
	store *database.GormDB
}

// NewExecutor creates a new transition executor
func NewExecutor(store *database.GormDB) *Executor {
	return &Executor{store: store}
}

// LeaseOutcome reports what one lease's events produced.
type LeaseOutcome struct {
	Expired            bool
	WarningsApplied    []int
	ReleasedPropertyID string
	Notifications      []models.NotificationRecord
}

// ApplyLeaseEvents applies the surviving events for one lease in order.
// Returns the outcome and the first unexpected store error, if any. A lost
// concurrency race is not an error.
func (e *Executor) ApplyLeaseEvents(ctx context.Context, lease *models.LeaseContract, events []Event) (LeaseOutcome, error) {
	var out LeaseOutcome

	for _, ev := range events {
		switch ev.Type {
		case EventExpire:
			if !lease.Status.CanTransitionTo(models.LeaseStatusExpired) {
				return out, fmt.Errorf("illegal lease transition %s -> %s for lease %s", lease.Status, models.LeaseStatusExpired, lease.ID)
			}

			prev := lease.Status
			err := e.store.UpdateLeaseIfVersion(ctx, lease.ID, lease.Version, map[string]interface{}{
				"status": models.LeaseStatusExpired,
			})
			if errors.Is(err, database.ErrPreconditionFailed) {
				log.Printf("Lifecycle: lease %s expire lost the race, skipping (another run applied it)", lease.ID)
				return out, nil
			}
			if err != nil {
				return out, err
			}
			lease.Status = models.LeaseStatusExpired
			lease.Version++
			out.Expired = true
			e.logTransition(ctx, models.EntityTypeLease, lease.ID, ev, string(prev), string(models.LeaseStatusExpired))

			// Cascade: the property goes back on the market. Already-available
			// is a guarded no-op, never an error.
			released, err := e.store.ReleaseProperty(ctx, lease.PropertyID)
			if err != nil {
				return out, err
			}
			if released {
				out.ReleasedPropertyID = lease.PropertyID
				e.logTransition(ctx, models.EntityTypeProperty, lease.PropertyID, ev, "", string(models.PropertyStatusAvailable))
			}

			out.Notifications = append(out.Notifications, models.NotificationRecord{
				ID:        uuid.NewString(),
				Recipient: lease.LandlordID,
				Category:  models.NotificationLeaseExpired,
				Title:     "Lease expired",
				Body:      fmt.Sprintf("The lease for property %s has expired and the property is available again.", lease.PropertyID),
				EntityID:  lease.ID,
				DedupeKey: models.DedupeKey(lease.ID, string(EventExpire), "expired"),
			})

		case EventWarn:
			updates := map[string]interface{}{
				"sent_warning_thresholds": lease.SentWarningThresholds.WithThreshold(ev.Threshold),
			}
			prev := lease.Status
			if lease.Status == models.LeaseStatusActive {
				updates["status"] = models.LeaseStatusExpiring
			}

			err := e.store.UpdateLeaseIfVersion(ctx, lease.ID, lease.Version, updates)
			if errors.Is(err, database.ErrPreconditionFailed) {
				log.Printf("Lifecycle: lease %s warning %d lost the race, skipping", lease.ID, ev.Threshold)
				return out, nil
			}
			if err != nil {
				return out, err
			}
			lease.SentWarningThresholds = lease.SentWarningThresholds.WithThreshold(ev.Threshold)
			if lease.Status == models.LeaseStatusActive {
				lease.Status = models.LeaseStatusExpiring
			}
			lease.Version++
			out.WarningsApplied = append(out.WarningsApplied, ev.Threshold)
			e.logTransition(ctx, models.EntityTypeLease, lease.ID, ev, string(prev), string(lease.Status))

			out.Notifications = append(out.Notifications, models.NotificationRecord{
				ID:        uuid.NewString(),
				Recipient: lease.TenantID,
				Category:  models.NotificationLeaseWarning,
				Title:     fmt.Sprintf("Lease ends in %d days", ev.Threshold),
				Body:      fmt.Sprintf("Your lease for property %s ends on %s.", lease.PropertyID, lease.EndDate.Format("2006-01-02")),
				EntityID:  lease.ID,
				DedupeKey: models.DedupeKey(lease.ID, string(EventWarn), ev.Reason()),
			})

		default:
			return out, fmt.Errorf("unexpected lease event %q", ev.Type)
		}
	}

	return out, nil
}

// ApplicationOutcome reports what one application's events produced.
type ApplicationOutcome struct {
	MarkedOverdue bool
	AutoProcessed bool
	Notifications []models.NotificationRecord
}

// ApplyApplicationEvents applies the surviving events for one application in
// order, same contract as ApplyLeaseEvents.
func (e *Executor) ApplyApplicationEvents(ctx context.Context, app *models.RentalApplication, events []Event) (ApplicationOutcome, error) {
	var out ApplicationOutcome

	for _, ev := range events {
		switch ev.Type {
		case EventMarkOverdue:
			err := e.store.UpdateApplicationIfVersion(ctx, app.ID, app.Version, map[string]interface{}{
				"overdue": true,
			})
			if errors.Is(err, database.ErrPreconditionFailed) {
				log.Printf("Lifecycle: application %s overdue mark lost the race, skipping", app.ID)
				return out, nil
			}
			if err != nil {
				return out, err
			}
			app.Overdue = true
			app.Version++
			out.MarkedOverdue = true
			e.logTransition(ctx, models.EntityTypeApplication, app.ID, ev, string(app.Status), string(app.Status))

			out.Notifications = append(out.Notifications, models.NotificationRecord{
				ID:        uuid.NewString(),
				Recipient: app.ApplicantID,
				Category:  models.NotificationApplicationOverdue,
				Title:     "Application review is overdue",
				Body:      fmt.Sprintf("Your application for property %s has passed its review deadline.", app.PropertyID),
				EntityID:  app.ID,
				DedupeKey: models.DedupeKey(app.ID, string(EventMarkOverdue), "overdue"),
			})

		case EventAutoDecide:
			decided := ev.Policy.DecidedStatus()
			if !app.Status.CanTransitionTo(decided) {
				return out, fmt.Errorf("illegal application transition %s -> %s for application %s", app.Status, decided, app.ID)
			}

			prev := app.Status
			err := e.store.UpdateApplicationIfVersion(ctx, app.ID, app.Version, map[string]interface{}{
				"status":         decided,
				"auto_processed": true,
				"decision_actor": models.DecisionActorSystem,
			})
			if errors.Is(err, database.ErrPreconditionFailed) {
				log.Printf("Lifecycle: application %s auto decision lost the race, skipping", app.ID)
				return out, nil
			}
			if err != nil {
				return out, err
			}
			app.Status = decided
			app.AutoProcessed = true
			app.DecisionActor = models.DecisionActorSystem
			app.Version++
			out.AutoProcessed = true
			e.logTransition(ctx, models.EntityTypeApplication, app.ID, ev, string(prev), string(decided))

			verdict := "approved"
			if decided == models.ApplicationStatusRejected {
				verdict = "rejected"
			}
			out.Notifications = append(out.Notifications, models.NotificationRecord{
				ID:        uuid.NewString(),
				Recipient: app.ApplicantID,
				Category:  models.NotificationApplicationDecision,
				Title:     fmt.Sprintf("Application %s", verdict),
				Body:      fmt.Sprintf("Your application for property %s was automatically %s after the review deadline passed.", app.PropertyID, verdict),
				EntityID:  app.ID,
				DedupeKey: models.DedupeKey(app.ID, string(EventAutoDecide), ev.Reason()),
			})

		default:
			return out, fmt.Errorf("unexpected application event %q", ev.Type)
		}
	}

	return out, nil
}

// logTransition appends an audit row. Failures are logged and swallowed; the
// audit trail never blocks the transition itself.
func (e *Executor) logTransition(ctx context.Context, entityType, entityID string, ev Event, from, to string) {
	entry := &models.TransitionLog{
		EntityType: entityType,
		EntityID:   entityID,
		Event:      string(ev.Type),
		FromStatus: from,
		ToStatus:   to,
		Threshold:  ev.Threshold,
		Reason:     ev.Reason(),
	}
	if err := e.store.AppendTransitionLog(ctx, entry); err != nil {
		log.Printf("Lifecycle: failed to append transition log for %s %s: %v", entityType, entityID, err)
	}
}
