package scheduler

import (
	"context"
	"fmt"
	"log"

	"rental-marketplace/internal/config"
	"rental-marketplace/internal/lifecycle"

	"github.com/robfig/cron/v3"
)

// Scheduler triggers periodic lifecycle scans
type Scheduler struct {
	cron      *cron.Cron
	engine    *lifecycle.Engine
	config    *config.Config
	isRunning bool
}

// NewScheduler creates a new scheduler
func NewScheduler(engine *lifecycle.Engine, cfg *config.Config) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		engine: engine,
		config: cfg,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	lc := &s.config.Lifecycle
	if !lc.RunEnabled {
		log.Println("Scheduler: Lifecycle runs are disabled in configuration")
		return nil
	}

	interval := fmt.Sprintf("@every %dm", lc.RunIntervalMinutes)
	if _, err := s.cron.AddFunc(interval, s.runOnce); err != nil {
		return err
	}

	// Optional anchored daily run in addition to the interval, so a fixed
	// report time can be configured alongside the rolling cadence.
	if lc.DailyRunTime != "" {
		cronSpec := parseDailyRunTime(lc.DailyRunTime)
		if _, err := s.cron.AddFunc(cronSpec, s.runOnce); err != nil {
			return err
		}
		log.Printf("Scheduler: Added daily run at %s (cron: %s)", lc.DailyRunTime, cronSpec)
	}

	s.cron.Start()
	s.isRunning = true
	log.Printf("Scheduler: Started with lifecycle scan every %d minutes", lc.RunIntervalMinutes)

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	if s.isRunning {
		s.cron.Stop()
		s.isRunning = false
		log.Println("Scheduler: Stopped")
	}
}

func (s *Scheduler) runOnce() {
	log.Println("Scheduler: Starting lifecycle scan...")
	summary, err := s.engine.Run(context.Background())
	if err != nil {
		log.Printf("Scheduler: Lifecycle scan failed: %v", err)
		return
	}
	log.Printf("Scheduler: Lifecycle scan completed (scanned=%d errors=%d)", summary.Scanned, summary.Errors)
}

// RunNow immediately executes one lifecycle scan (for manual trigger)
func (s *Scheduler) RunNow(ctx context.Context) (*lifecycle.RunSummary, error) {
	log.Println("Scheduler: Manual trigger - starting lifecycle scan...")
	return s.engine.Run(ctx)
}

// parseDailyRunTime converts HH:MM format to cron specification
// Example: "02:00" -> "0 2 * * *" (run at 2:00 AM every day)
func parseDailyRunTime(timeStr string) string {
	var hour, minute int
	n, _ := fmt.Sscanf(timeStr, "%d:%d", &hour, &minute)
	if n == 2 {
		return fmt.Sprintf("%d %d * * *", minute, hour)
	}

	// Default to 2:00 AM if parsing fails
	log.Printf("Scheduler: Failed to parse time '%s', using default 02:00", timeStr)
	return "0 2 * * *"
}
