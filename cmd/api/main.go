package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"rental-marketplace/internal/config"
	"rental-marketplace/internal/database"
	"rental-marketplace/internal/handlers"
	"rental-marketplace/internal/lifecycle"
	"rental-marketplace/internal/notify"
	"rental-marketplace/internal/scheduler"
	"rental-marketplace/internal/search"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

var (
	db           *database.GormDB
	searchClient *search.SearchClient
	appConfig    *config.Config
	appScheduler *scheduler.Scheduler
	outboxWorker *scheduler.OutboxWorker
)

func main() {
	// .env is optional; real deployments set the environment directly
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	// Load configuration
	configPath := getEnv("CONFIG_PATH", "/app/config/marketplace.yaml")
	var err error
	appConfig, err = config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config from %s: %v", configPath, err)
	}
	log.Printf("Loaded configuration from %s", configPath)

	// A broken lifecycle configuration must stop the process before any
	// entity is touched.
	if err := appConfig.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize database based on configuration
	dbType := appConfig.Database.Type
	if dbType == "" {
		dbType = getEnv("DB_TYPE", "sqlite")
	}

	switch dbType {
	case "mysql":
		log.Println("Using MySQL")
		mysqlCfg := appConfig.Database.MySQL
		portStr := ""
		if mysqlCfg.Port > 0 {
			portStr = fmt.Sprintf("%d", mysqlCfg.Port)
		}
		db, err = database.NewMySQLDB(
			getEnvOrConfig(mysqlCfg.Host, "DB_HOST", "mysql"),
			getEnvOrConfig(portStr, "DB_PORT", "3306"),
			getEnvOrConfig(mysqlCfg.User, "DB_USER", "marketplace_user"),
			getEnvOrConfig(mysqlCfg.Password, "DB_PASSWORD", "marketplace_pass"),
			getEnvOrConfig(mysqlCfg.Database, "DB_NAME", "marketplace_db"),
		)
	case "postgres":
		log.Println("Using PostgreSQL")
		pgCfg := appConfig.Database.Postgres
		portStr := ""
		if pgCfg.Port > 0 {
			portStr = fmt.Sprintf("%d", pgCfg.Port)
		}
		db, err = database.NewPostgresDB(
			getEnvOrConfig(pgCfg.Host, "DB_HOST", "db"),
			getEnvOrConfig(portStr, "DB_PORT", "5432"),
			getEnvOrConfig(pgCfg.User, "DB_USER", "marketplace_user"),
			getEnvOrConfig(pgCfg.Password, "DB_PASSWORD", "marketplace_pass"),
			getEnvOrConfig(pgCfg.Database, "DB_NAME", "marketplace_db"),
			pgCfg.SSLMode,
		)
	default:
		log.Println("Using SQLite")
		db, err = database.NewSQLiteDB(getEnvOrConfig(appConfig.Database.SQLite.Path, "DB_PATH", "rental-marketplace.db"))
	}
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.InitSchema(); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}
	log.Println("Database schema initialized")

	// Meilisearch is optional: without it, released properties are simply
	// not re-indexed.
	meiliHost := getEnvOrConfig(appConfig.Search.Meilisearch.Host, "MEILISEARCH_HOST", "")
	if meiliHost != "" {
		meiliKey := getEnvOrConfig(appConfig.Search.Meilisearch.APIKey, "MEILISEARCH_KEY", "")
		searchClient = search.NewSearchClient(meiliHost, meiliKey)
		if err := searchClient.InitIndex(); err != nil {
			log.Printf("Warning: Failed to initialize search index: %v", err)
			searchClient = nil
		} else {
			log.Println("Search index initialized")
		}
	}

	// Lifecycle engine and its collaborators
	inbox := notify.NewInboxService(db.DB())
	engine := lifecycle.NewEngine(db, &appConfig.Lifecycle, inbox, searchClient)

	appScheduler = scheduler.NewScheduler(engine, appConfig)
	if err := appScheduler.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer appScheduler.Stop()

	if appConfig.Outbox.Enabled {
		outboxWorker = scheduler.NewOutboxWorker(db.DB(), inbox, appConfig.Outbox.GetPollInterval())
		outboxWorker.Start()
		defer outboxWorker.Stop()
		log.Println("Outbox worker started")
	}

	// Setup Gin router
	r := gin.Default()

	// CORS configuration
	allowOrigins := appConfig.Server.AllowOrigins
	if len(allowOrigins) == 0 {
		allowOrigins = []string{"http://localhost:5173"}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: true,
	}))

	// Routes
	r.GET("/health", healthCheck)
	r.GET("/api/search", searchListings)

	adminHandler := handlers.NewAdminHandler(db.DB(), appScheduler, outboxWorker)

	admin := r.Group("/api/admin")
	{
		// Statistics
		admin.GET("/stats", adminHandler.GetStats)
		admin.GET("/health", adminHandler.GetLifecycleHealth)

		// Lifecycle control
		admin.POST("/lifecycle/run", adminHandler.TriggerLifecycleRun)
		admin.GET("/lifecycle/transitions", adminHandler.GetTransitionLogs)

		// Notifications
		admin.GET("/outbox", adminHandler.GetOutbox)
		admin.GET("/inbox/:recipient", adminHandler.GetInbox)

		// Cleanup operations
		admin.POST("/cleanup/run", adminHandler.RunCleanup)
	}
	log.Println("Admin API routes registered at /api/admin/*")

	port := getEnv("PORT", fmt.Sprintf("%d", appConfig.Server.Port))
	log.Printf("Server starting on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

func searchListings(c *gin.Context) {
	if searchClient == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search is not configured"})
		return
	}

	query := c.Query("q")
	properties, err := searchClient.Search(query, 20)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"hits":  properties,
		"count": len(properties),
	})
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrConfig returns config value if set, otherwise falls back to environment variable, then default
func getEnvOrConfig(configValue, envKey, defaultValue string) string {
	if configValue != "" {
		return configValue
	}
	return getEnv(envKey, defaultValue)
}
