package routes

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/warden-sec/warden/internal/api/handlers"
	"github.com/warden-sec/warden/internal/api/middleware"
	"github.com/warden-sec/warden/internal/config"
	"github.com/warden-sec/warden/internal/metrics"
	"github.com/warden-sec/warden/internal/models"
	"github.com/warden-sec/warden/internal/scanner"
	"github.com/warden-sec/warden/internal/services"
)

// Services bundles the wired service layer so main can hand it to background
// sweeps after route registration.
type Services struct {
	Scan         *services.ScanService
	Threats      *services.ThreatService
	Quarantine   *services.QuarantineService
	Reports      *services.ReportService
	Notification *services.NotificationService
}

// Register migrates the schema and wires up API routes with explicitly
// constructed services.
func Register(router *gin.Engine, db *gorm.DB, cfg config.Config) (*Services, error) {
	if err := db.AutoMigrate(
		&models.ScanJob{},
		&models.Threat{},
		&models.QuarantineRecord{},
		&models.Notification{},
		&models.NotificationProvider{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	router.Use(middleware.RequestID(), middleware.RequestLogger(), middleware.Recovery(cfg.Debug))

	registry := prometheus.NewRegistry()
	metrics.Register(registry)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	notificationService := services.NewNotificationService(db)

	engine := scanner.NewEngine(scanner.DefaultRules())
	discovery := scanner.NewDiscovery(cfg.ScanRoot)

	scanService := services.NewScanService(db, engine, discovery, notificationService)
	scanService.Deadline = cfg.ScanDeadline
	scanService.FilePause = cfg.FilePause

	quarantineService := services.NewQuarantineService(db, cfg.VaultDir)
	threatService := services.NewThreatService(db, quarantineService, cfg.ScanRoot)
	reportService := services.NewReportService(db)

	router.GET("/api/v1/health", handlers.HealthHandler)

	api := router.Group("/api/v1")

	scanHandler := handlers.NewScanHandler(scanService)
	api.POST("/scans", scanHandler.Start)
	api.GET("/scans/:id", scanHandler.Results)
	api.GET("/scans/:id/progress", scanHandler.Progress)
	api.POST("/scans/:id/cancel", scanHandler.Cancel)

	reportHandler := handlers.NewReportHandler(reportService)
	api.GET("/scans", reportHandler.Scans)
	api.GET("/reports/summary", reportHandler.Summary)

	threatHandler := handlers.NewThreatHandler(threatService)
	api.GET("/threats", threatHandler.List)
	api.POST("/threats/:id/quarantine", threatHandler.Quarantine)
	api.POST("/threats/:id/ignore", threatHandler.Ignore)

	quarantineHandler := handlers.NewQuarantineHandler(quarantineService)
	api.GET("/quarantine", quarantineHandler.List)
	api.POST("/quarantine", quarantineHandler.Create)
	api.POST("/quarantine/bulk", quarantineHandler.Bulk)
	api.POST("/quarantine/:id/restore", quarantineHandler.Restore)
	api.DELETE("/quarantine/:id", quarantineHandler.Delete)
	api.GET("/quarantine/:id/download", quarantineHandler.Download)

	notificationHandler := handlers.NewNotificationHandler(notificationService)
	api.GET("/notifications", notificationHandler.List)
	api.POST("/notifications/:id/read", notificationHandler.MarkAsRead)
	api.POST("/notifications/read-all", notificationHandler.MarkAllAsRead)
	api.GET("/notifications/providers", notificationHandler.ListProviders)
	api.POST("/notifications/providers", notificationHandler.CreateProvider)
	api.PUT("/notifications/providers/:id", notificationHandler.UpdateProvider)
	api.DELETE("/notifications/providers/:id", notificationHandler.DeleteProvider)
	api.POST("/notifications/providers/test", notificationHandler.TestProvider)

	return &Services{
		Scan:         scanService,
		Threats:      threatService,
		Quarantine:   quarantineService,
		Reports:      reportService,
		Notification: notificationService,
	}, nil
}
