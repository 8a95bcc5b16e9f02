package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"animal-rescue-service/config"
	"animal-rescue-service/database"
	"animal-rescue-service/handlers"
	"animal-rescue-service/lifecycle"
	"animal-rescue-service/middleware"
	"animal-rescue-service/rabbitmq"
	ws "animal-rescue-service/websocket"

	"github.com/apex/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	if cfg.LogLevel == "debug" {
		log.SetLevel(log.DebugLevel)
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	log.Info("Starting the animal rescue service...")

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize database schema
	if err := database.InitSchema(db); err != nil {
		log.Fatalf("Failed to initialize database schema: %v", err)
	}

	// Initialize services
	reportService := database.NewReportService(db)
	orgService := database.NewOrganizationService(db)

	// Case event fan-out: WebSocket always, RabbitMQ when enabled
	hub := ws.NewHub()
	go hub.Run()

	bridges := []lifecycle.NotificationBridge{hub}
	if cfg.RabbitMQEnabled {
		publisher, err := rabbitmq.NewPublisher(cfg.GetRabbitMQURL(), cfg.RabbitMQExchange, cfg.RabbitMQRoutingKey)
		if err != nil {
			// The service stays up without the broker; events still
			// reach WebSocket listeners.
			log.Errorf("Failed to connect to RabbitMQ, continuing without it: %v", err)
		} else {
			defer publisher.Close()
			bridges = append(bridges, publisher)
		}
	}

	engine := lifecycle.NewEngine(reportService, orgService, lifecycle.NewMultiBridge(bridges...))

	// Initialize handlers
	h := handlers.NewHandlers(engine, orgService, hub)

	router := setupRouter(cfg, h)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Infof("HTTP server listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}

func setupRouter(cfg *config.Config, h *handlers.Handlers) *gin.Engine {
	router := gin.Default()

	router.Use(gzip.Gzip(gzip.DefaultCompression))
	router.Use(cors.New(cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowOrigins:     []string{"*"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", h.HealthCheck)
	router.GET("/version", h.Version)

	adminAuth := middleware.AdminAuth([]byte(cfg.JWTSecret))

	apiV3 := router.Group("/api/v3")
	{
		reports := apiV3.Group("/reports")
		{
			reports.POST("", h.CreateReport)
			reports.GET("/track/:trackingId", h.TrackReport)
			reports.GET("/available", h.AvailableReports)
			reports.GET("/by-org", h.ReportsByOrg)
			reports.GET("/by-worker", h.ReportsByWorker)
			reports.GET("/by-reporter", h.ReportsByReporter)
			reports.GET("/nearby", h.NearbyReports)
			reports.GET("/map", h.ReportMap)
			reports.POST("/:trackingId/accept", h.AcceptReport)
			reports.POST("/:trackingId/assign-worker", h.AssignWorker)
			reports.PUT("/:trackingId/status", h.UpdateStatus)
		}

		orgs := apiV3.Group("/orgs")
		{
			orgs.POST("", h.RegisterOrg)
			orgs.GET("", h.ListOrgs)
			orgs.GET("/nearby", h.NearbyOrgs)
			orgs.GET("/pending", adminAuth, h.PendingOrgs)
			orgs.GET("/:id", h.GetOrg)
			orgs.PUT("/:id/approve", adminAuth, h.ApproveOrg)
			orgs.PUT("/:id/reject", adminAuth, h.RejectOrg)
			orgs.PUT("/:id/deactivate", adminAuth, h.DeactivateOrg)
			orgs.POST("/:id/workers", h.AddWorker)
			orgs.GET("/:id/workers", h.ListWorkers)
		}

		cases := apiV3.Group("/cases")
		{
			cases.GET("/listen", h.ListenCases)
			cases.POST("/:trackingId/location", h.PostLocation)
		}
	}

	return router
}
