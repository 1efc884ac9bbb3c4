package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/warden-sec/warden/internal/config"
	"github.com/warden-sec/warden/internal/database"
	"github.com/warden-sec/warden/internal/logger"
	"github.com/warden-sec/warden/internal/server"
	"github.com/warden-sec/warden/internal/version"
)

func main() {
	// Setup logging with rotation
	logDir := "data/logs"
	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.Fatalf("ensure log directory: %v", err)
	}

	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "warden.log"),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Log to both stdout and file
	logger.Init(cfg.Debug, io.MultiWriter(os.Stdout, rotator))
	logger.WithFields(map[string]interface{}{"version": version.Full()}).Infof("starting %s", version.Name)

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}

	srv, err := server.New(db, cfg)
	if err != nil {
		log.Fatalf("build server: %v", err)
	}

	// Background sweeps: retention purge and stalled-scan supervisor.
	sweeps := cron.New()
	if _, err := sweeps.AddFunc("@daily", func() {
		purged, err := srv.Services.Scan.PurgeOldScans(time.Duration(cfg.RetentionDays) * 24 * time.Hour)
		if err != nil {
			logger.WithError(err).Error("retention sweep")
			return
		}
		if purged > 0 {
			logger.WithFields(map[string]interface{}{"purged": purged}).Info("retention sweep removed old scans")
		}
	}); err != nil {
		log.Fatalf("schedule retention sweep: %v", err)
	}
	if _, err := sweeps.AddFunc("@every 5m", func() {
		if _, err := srv.Services.Scan.FailStalledScans(2 * cfg.ScanDeadline); err != nil {
			logger.WithError(err).Error("stalled scan sweep")
		}
	}); err != nil {
		log.Fatalf("schedule stalled scan sweep: %v", err)
	}
	sweeps.Start()
	defer sweeps.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.WithFields(map[string]interface{}{"port": cfg.HTTPPort}).Info("listening")
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
