package config

import (
	"fmt"
	"os"
	"sort"
	"time"

	"rental-marketplace/internal/models"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Search    SearchConfig    `yaml:"search"`
	Lifecycle LifecycleConfig `yaml:"lifecycle"`
	Outbox    OutboxConfig    `yaml:"outbox"`
	Cleanup   CleanupConfig   `yaml:"cleanup"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Timezone  string          `yaml:"timezone"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Type     string         `yaml:"type"`
	MySQL    MySQLConfig    `yaml:"mysql"`
	Postgres PostgresConfig `yaml:"postgres"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
}

// MySQLConfig contains MySQL connection settings
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// PostgresConfig contains PostgreSQL connection settings
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// SQLiteConfig contains SQLite settings (local development)
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// SearchConfig contains search engine settings
type SearchConfig struct {
	Meilisearch MeilisearchConfig `yaml:"meilisearch"`
}

// MeilisearchConfig contains Meilisearch connection settings
type MeilisearchConfig struct {
	Host   string `yaml:"host"`
	APIKey string `yaml:"api_key"`
}

// LifecycleConfig contains the lifecycle automation settings
type LifecycleConfig struct {
	// WarningDays is the lease warning schedule, in days before the end
	// date, largest first (e.g. [60, 30, 15, 7, 1]).
	WarningDays []int `yaml:"warning_days"`

	// Defaults for rental application SLA handling. Per-category overrides
	// win over these; per-application snapshots win over both.
	DefaultSLADays   int                         `yaml:"default_sla_days"`
	DefaultGraceDays int                         `yaml:"default_grace_days"`
	DefaultPolicy    models.AutoProcessingPolicy `yaml:"default_policy"`
	Categories       map[string]CategoryConfig   `yaml:"categories"`

	RunEnabled         bool   `yaml:"run_enabled"`
	RunIntervalMinutes int    `yaml:"run_interval_minutes"`
	DailyRunTime       string `yaml:"daily_run_time"` // optional "HH:MM" extra run

	EntityTimeoutSeconds   int `yaml:"entity_timeout_seconds"`
	DispatchTimeoutSeconds int `yaml:"dispatch_timeout_seconds"`
	DispatchRetries        int `yaml:"dispatch_retries"`
}

// CategoryConfig overrides SLA handling for one application category
type CategoryConfig struct {
	SLADays   int                         `yaml:"sla_days"`
	GraceDays int                         `yaml:"grace_days"`
	Policy    models.AutoProcessingPolicy `yaml:"policy"`
}

// OutboxConfig contains outbox worker settings
type OutboxConfig struct {
	Enabled             bool `yaml:"enabled"`
	PollIntervalSeconds int  `yaml:"poll_interval_seconds"`
}

// CleanupConfig contains retention cleanup settings
type CleanupConfig struct {
	RetentionDays    int `yaml:"retention_days"`
	MaxDeletionCount int `yaml:"max_deletion_count"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int      `yaml:"port"`
	AllowOrigins []string `yaml:"allow_origins"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level       string `yaml:"level"`
	LogRequests bool   `yaml:"log_requests"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Type:   "sqlite",
			SQLite: SQLiteConfig{Path: "rental-marketplace.db"},
		},
		Lifecycle: LifecycleConfig{
			WarningDays:            []int{60, 30, 15, 7, 1},
			DefaultSLADays:         7,
			DefaultGraceDays:       3,
			DefaultPolicy:          models.AutoPolicyDisabled,
			RunEnabled:             true,
			RunIntervalMinutes:     60,
			EntityTimeoutSeconds:   10,
			DispatchTimeoutSeconds: 5,
			DispatchRetries:        1,
		},
		Outbox: OutboxConfig{
			Enabled:             true,
			PollIntervalSeconds: 30,
		},
		Cleanup: CleanupConfig{
			RetentionDays:    90,
			MaxDeletionCount: 10000,
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Logging: LoggingConfig{
			Level:       "info",
			LogRequests: true,
		},
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(filepath string) (*Config, error) {
	// Start with default config
	config := DefaultConfig()

	// If file doesn't exist, return default config
	if _, err := os.Stat(filepath); os.IsNotExist(err) {
		return config, nil
	}

	// Read file
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Validate checks the lifecycle configuration. A bad schedule or SLA is
// fatal at startup, before any entity is touched.
func (c *Config) Validate() error {
	lc := &c.Lifecycle

	if len(lc.WarningDays) == 0 {
		return fmt.Errorf("config: lifecycle.warning_days must not be empty")
	}
	seen := make(map[int]bool, len(lc.WarningDays))
	for _, d := range lc.WarningDays {
		if d <= 0 {
			return fmt.Errorf("config: lifecycle.warning_days contains non-positive day %d", d)
		}
		if seen[d] {
			return fmt.Errorf("config: lifecycle.warning_days contains duplicate day %d", d)
		}
		seen[d] = true
	}
	if !sort.SliceIsSorted(lc.WarningDays, func(i, j int) bool {
		return lc.WarningDays[i] > lc.WarningDays[j]
	}) {
		return fmt.Errorf("config: lifecycle.warning_days must be in descending order")
	}

	if lc.DefaultSLADays <= 0 {
		return fmt.Errorf("config: lifecycle.default_sla_days must be positive, got %d", lc.DefaultSLADays)
	}
	if lc.DefaultGraceDays < 0 {
		return fmt.Errorf("config: lifecycle.default_grace_days must not be negative, got %d", lc.DefaultGraceDays)
	}
	if !lc.DefaultPolicy.Valid() {
		return fmt.Errorf("config: lifecycle.default_policy %q is not a known policy", lc.DefaultPolicy)
	}

	for name, cat := range lc.Categories {
		if cat.SLADays < 0 {
			return fmt.Errorf("config: lifecycle.categories.%s.sla_days must not be negative", name)
		}
		if cat.GraceDays < 0 {
			return fmt.Errorf("config: lifecycle.categories.%s.grace_days must not be negative", name)
		}
		if cat.Policy != "" && !cat.Policy.Valid() {
			return fmt.Errorf("config: lifecycle.categories.%s.policy %q is not a known policy", name, cat.Policy)
		}
	}

	if lc.RunIntervalMinutes <= 0 {
		return fmt.Errorf("config: lifecycle.run_interval_minutes must be positive, got %d", lc.RunIntervalMinutes)
	}
	return nil
}

// ResolveSLA returns the effective SLA deadline, grace duration and auto
// policy for an application: per-application snapshot first, then the
// category override, then the global default.
func (lc *LifecycleConfig) ResolveSLA(app *models.RentalApplication) (sla, grace time.Duration, policy models.AutoProcessingPolicy) {
	slaDays := lc.DefaultSLADays
	graceDays := lc.DefaultGraceDays
	policy = lc.DefaultPolicy

	if cat, ok := lc.Categories[app.Category]; ok {
		if cat.SLADays > 0 {
			slaDays = cat.SLADays
		}
		if cat.GraceDays > 0 {
			graceDays = cat.GraceDays
		}
		if cat.Policy != "" {
			policy = cat.Policy
		}
	}

	if app.SLADays > 0 {
		slaDays = app.SLADays
	}
	if app.GraceDays > 0 {
		graceDays = app.GraceDays
	}
	if app.AutoPolicy != "" {
		policy = app.AutoPolicy
	}

	return time.Duration(slaDays) * 24 * time.Hour, time.Duration(graceDays) * 24 * time.Hour, policy
}

// GetRunInterval returns the scan interval as a duration
func (lc *LifecycleConfig) GetRunInterval() time.Duration {
	return time.Duration(lc.RunIntervalMinutes) * time.Minute
}

// GetEntityTimeout returns the per-entity store timeout as a duration
func (lc *LifecycleConfig) GetEntityTimeout() time.Duration {
	if lc.EntityTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(lc.EntityTimeoutSeconds) * time.Second
}

// GetDispatchTimeout returns the per-delivery timeout as a duration
func (lc *LifecycleConfig) GetDispatchTimeout() time.Duration {
	if lc.DispatchTimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(lc.DispatchTimeoutSeconds) * time.Second
}

// GetPollInterval returns the outbox poll interval as a duration
func (o *OutboxConfig) GetPollInterval() time.Duration {
	if o.PollIntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(o.PollIntervalSeconds) * time.Second
}
