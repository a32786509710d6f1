package handlers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"rental-marketplace/internal/cleanup"
	"rental-marketplace/internal/models"
	"rental-marketplace/internal/notify"
	"rental-marketplace/internal/scheduler"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AdminHandler handles admin-related requests
type AdminHandler struct {
	db             *gorm.DB
	scheduler      *scheduler.Scheduler
	outboxWorker   *scheduler.OutboxWorker
	cleanupService *cleanup.Service
	inbox          *notify.InboxService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(db *gorm.DB, sched *scheduler.Scheduler, worker *scheduler.OutboxWorker) *AdminHandler {
	return &AdminHandler{
		db:             db,
		scheduler:      sched,
		outboxWorker:   worker,
		cleanupService: cleanup.NewService(db),
		inbox:          notify.NewInboxService(db),
	}
}

// TriggerLifecycleRun runs one full lifecycle scan and returns the summary.
// The run is idempotent, so hitting this twice in quick succession cannot
// double-apply any effect.
func (h *AdminHandler) TriggerLifecycleRun(c *gin.Context) {
	log.Println("Admin: Manual lifecycle run requested")

	summary, err := h.scheduler.RunNow(c.Request.Context())
	if err != nil {
		// Load failure: the summary still carries the cause and zero counts.
		c.JSON(http.StatusServiceUnavailable, summary)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetStats returns system statistics
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats := make(map[string]interface{})

	var activeLeases, expiringLeases, expiredLeases, terminatedLeases int64
	h.db.Model(&models.LeaseContract{}).Where("status = ?", models.LeaseStatusActive).Count(&activeLeases)
	h.db.Model(&models.LeaseContract{}).Where("status = ?", models.LeaseStatusExpiring).Count(&expiringLeases)
	h.db.Model(&models.LeaseContract{}).Where("status = ?", models.LeaseStatusExpired).Count(&expiredLeases)
	h.db.Model(&models.LeaseContract{}).Where("status = ?", models.LeaseStatusTerminated).Count(&terminatedLeases)

	stats["leases"] = map[string]interface{}{
		"active":     activeLeases,
		"expiring":   expiringLeases,
		"expired":    expiredLeases,
		"terminated": terminatedLeases,
		"total":      activeLeases + expiringLeases + expiredLeases + terminatedLeases,
	}

	var pendingApps, overdueApps, autoProcessedApps int64
	h.db.Model(&models.RentalApplication{}).Where("status = ?", models.ApplicationStatusPending).Count(&pendingApps)
	h.db.Model(&models.RentalApplication{}).Where("overdue = ?", true).Count(&overdueApps)
	h.db.Model(&models.RentalApplication{}).Where("auto_processed = ?", true).Count(&autoProcessedApps)

	stats["applications"] = map[string]interface{}{
		"pending":        pendingApps,
		"overdue":        overdueApps,
		"auto_processed": autoProcessedApps,
	}

	var availableProps, rentedProps int64
	h.db.Model(&models.Property{}).Where("status = ?", models.PropertyStatusAvailable).Count(&availableProps)
	h.db.Model(&models.Property{}).Where("status = ?", models.PropertyStatusRented).Count(&rentedProps)

	stats["properties"] = map[string]interface{}{
		"available": availableProps,
		"rented":    rentedProps,
	}

	// Recent automation activity (last 24 hours)
	last24h := time.Now().AddDate(0, 0, -1)
	var recentTransitions int64
	h.db.Model(&models.TransitionLog{}).Where("applied_at >= ?", last24h).Count(&recentTransitions)
	stats["recent_activity"] = map[string]interface{}{
		"transitions_last_24h": recentTransitions,
	}

	if h.outboxWorker != nil {
		stats["outbox"] = h.outboxWorker.GetQueueStats()
	}

	c.JSON(http.StatusOK, stats)
}

// GetTransitionLogs returns recent lifecycle transitions
func (h *AdminHandler) GetTransitionLogs(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "100")
	limit, _ := strconv.Atoi(limitStr)

	query := h.db.Order("applied_at DESC").Limit(limit)
	if entityID := c.Query("entity_id"); entityID != "" {
		query = query.Where("entity_id = ?", entityID)
	}
	if entityType := c.Query("entity_type"); entityType != "" {
		query = query.Where("entity_type = ?", entityType)
	}

	var logs []models.TransitionLog
	if err := query.Find(&logs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"logs":  logs,
		"count": len(logs),
	})
}

// GetOutbox returns outbox entries, optionally filtered by status
func (h *AdminHandler) GetOutbox(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "100")
	limit, _ := strconv.Atoi(limitStr)

	query := h.db.Order("created_at DESC").Limit(limit)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var entries []models.NotificationOutbox
	if err := query.Find(&entries).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"count":   len(entries),
	})
}

// GetInbox returns a recipient's notification inbox
func (h *AdminHandler) GetInbox(c *gin.Context) {
	recipient := c.Param("recipient")
	limitStr := c.DefaultQuery("limit", "50")
	limit, _ := strconv.Atoi(limitStr)

	records, err := h.inbox.ListForRecipient(c.Request.Context(), recipient, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"recipient":     recipient,
		"notifications": records,
		"count":         len(records),
	})
}

// RunCleanup purges old automation records
func (h *AdminHandler) RunCleanup(c *gin.Context) {
	var req struct {
		RetentionDays    int  `json:"retention_days"`     // Days to keep (default: 90)
		MaxDeletionCount int  `json:"max_deletion_count"` // Safety limit (default: 10000)
		DryRun           bool `json:"dry_run"`            // Dry run mode
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	config := cleanup.DefaultCleanupConfig()
	if req.RetentionDays > 0 {
		config.RetentionDays = req.RetentionDays
	}
	if req.MaxDeletionCount > 0 {
		config.MaxDeletionCount = req.MaxDeletionCount
	}
	config.DryRun = req.DryRun

	log.Printf("Admin: Running cleanup (retention: %d days, max: %d, dry-run: %v)",
		config.RetentionDays, config.MaxDeletionCount, config.DryRun)

	result, err := h.cleanupService.Purge(config)
	if err != nil {
		log.Printf("Admin: Cleanup failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetLifecycleHealth is a health-style view of lifecycle drift: rising
// permanent failures or leases stuck past their end date mean the
// automation needs attention.
func (h *AdminHandler) GetLifecycleHealth(c *gin.Context) {
	health := gin.H{"status": "ok"}

	var permanentFails int64
	h.db.Model(&models.NotificationOutbox{}).Where("status = ?", models.OutboxStatusPermanentFail).Count(&permanentFails)
	if permanentFails > 0 {
		health["status"] = "degraded"
	}
	health["outbox_permanent_fails"] = permanentFails

	var staleLeases int64
	h.db.Model(&models.LeaseContract{}).
		Where("status IN ? AND end_date < ?", []models.LeaseStatus{models.LeaseStatusActive, models.LeaseStatusExpiring}, time.Now().AddDate(0, 0, -1)).
		Count(&staleLeases)
	if staleLeases > 0 {
		health["status"] = "degraded"
	}
	health["leases_past_end_date"] = staleLeases

	c.JSON(http.StatusOK, health)
}
