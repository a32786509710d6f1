package lifecycle

import (
	"context"
	"fmt"
	"log"
	"time"

	"rental-marketplace/internal/config"
	"rental-marketplace/internal/database"
	"rental-marketplace/internal/models"
	"rental-marketplace/internal/search"
)

// RunSummary is the aggregate outcome of one lifecycle scan. The JSON shape
// is the trigger endpoint's response body and is consumed by external
// monitoring.
type RunSummary struct {
	Success       bool      `json:"success"`
	Timestamp     time.Time `json:"timestamp"`
	Scanned       int       `json:"scanned"`
	Expired       int       `json:"expired"`
	WarningsSent  int       `json:"warningsSent"`
	OverdueMarked int       `json:"overdueMarked"`
	AutoProcessed int       `json:"autoProcessed"`
	Errors        int       `json:"errors"`
	Cause         string    `json:"cause,omitempty"`
}

// Engine is the batch orchestrator: it loads the lifecycle candidates,
// evaluates and applies due transitions per entity, dispatches the resulting
// notifications and aggregates a run summary. Each run is stateless; all
// counters are run-scoped. Overlapping runs are safe because every write is
// keyed on a per-entity concurrency token.
type Engine struct {
	store      *database.GormDB
	cfg        *config.LifecycleConfig
	executor   *Executor
	dispatcher *Dispatcher
	search     *search.SearchClient
}

// NewEngine creates a lifecycle engine. searchClient may be nil; released
// properties are then simply not re-indexed.
func NewEngine(store *database.GormDB, cfg *config.LifecycleConfig, deliverer Deliverer, searchClient *search.SearchClient) *Engine {
	return &Engine{
		store:      store,
		cfg:        cfg,
		executor:   NewExecutor(store),
		dispatcher: NewDispatcher(deliverer, store, cfg.GetDispatchTimeout(), cfg.DispatchRetries),
		search:     searchClient,
	}
}

// Run performs one full scan. Only a failure to load candidates is fatal;
// per-entity failures are counted and the scan continues. The returned
// summary is always non-nil.
func (e *Engine) Run(ctx context.Context) (*RunSummary, error) {
	summary := &RunSummary{Timestamp: time.Now()}

	leases, err := e.store.ListActiveLeases(ctx)
	if err != nil {
		summary.Cause = err.Error()
		return summary, fmt.Errorf("lifecycle run aborted: %w", err)
	}
	apps, err := e.store.ListPendingApplications(ctx)
	if err != nil {
		summary.Cause = err.Error()
		return summary, fmt.Errorf("lifecycle run aborted: %w", err)
	}

	log.Printf("Lifecycle: scanning %d leases and %d pending applications", len(leases), len(apps))

	var released []string
	now := time.Now()

	for i := range leases {
		summary.Scanned++
		releasedID := e.processLease(ctx, &leases[i], now, summary)
		if releasedID != "" {
			released = append(released, releasedID)
		}
	}

	for i := range apps {
		summary.Scanned++
		e.processApplication(ctx, &apps[i], now, summary)
	}

	e.reindexReleased(ctx, released)

	summary.Success = true
	log.Printf("Lifecycle: run completed. Scanned: %d, Expired: %d, Warnings: %d, Overdue: %d, AutoProcessed: %d, Errors: %d",
		summary.Scanned, summary.Expired, summary.WarningsSent, summary.OverdueMarked, summary.AutoProcessed, summary.Errors)

	return summary, nil
}

// processLease handles one lease end-to-end and returns the released
// property ID when the lease expired and its property flipped.
func (e *Engine) processLease(ctx context.Context, lease *models.LeaseContract, now time.Time, summary *RunSummary) string {
	entityCtx, cancel := context.WithTimeout(ctx, e.cfg.GetEntityTimeout())
	defer cancel()

	events := GuardLeaseEvents(lease, EvaluateLease(lease, e.cfg.WarningDays, now))
	if len(events) == 0 {
		return ""
	}

	outcome, err := e.executor.ApplyLeaseEvents(entityCtx, lease, events)
	if err != nil {
		log.Printf("Lifecycle: lease %s failed: %v", lease.ID, err)
		summary.Errors++
	}
	if outcome.Expired {
		summary.Expired++
	}
	summary.WarningsSent += len(outcome.WarningsApplied)

	_, failed := e.dispatcher.Dispatch(ctx, outcome.Notifications)
	summary.Errors += failed

	return outcome.ReleasedPropertyID
}

func (e *Engine) processApplication(ctx context.Context, app *models.RentalApplication, now time.Time, summary *RunSummary) {
	entityCtx, cancel := context.WithTimeout(ctx, e.cfg.GetEntityTimeout())
	defer cancel()

	sla, grace, policy := e.cfg.ResolveSLA(app)
	events := GuardApplicationEvents(app, EvaluateApplication(app, sla, grace, policy, now))
	if len(events) == 0 {
		return
	}

	outcome, err := e.executor.ApplyApplicationEvents(entityCtx, app, events)
	if err != nil {
		log.Printf("Lifecycle: application %s failed: %v", app.ID, err)
		summary.Errors++
	}
	if outcome.MarkedOverdue {
		summary.OverdueMarked++
	}
	if outcome.AutoProcessed {
		summary.AutoProcessed++
	}

	_, failed := e.dispatcher.Dispatch(ctx, outcome.Notifications)
	summary.Errors += failed
}

// reindexReleased pushes properties released during this run back into the
// search index so they show up as available listings. Best effort.
func (e *Engine) reindexReleased(ctx context.Context, propertyIDs []string) {
	if e.search == nil || len(propertyIDs) == 0 {
		return
	}

	var props []models.Property
	for _, id := range propertyIDs {
		prop, err := e.store.GetProperty(ctx, id)
		if err != nil {
			log.Printf("Lifecycle: failed to load released property %s for reindex: %v", id, err)
			continue
		}
		props = append(props, *prop)
	}

	if err := e.search.IndexProperties(props); err != nil {
		log.Printf("Lifecycle: failed to reindex %d released properties: %v", len(props), err)
	}
}
