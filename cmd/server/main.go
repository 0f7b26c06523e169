// Package main is the entry point for the Riskdesk risk management server.
// The application tracks portfolio risk utilization against a fixed target,
// runs scenario stress tests, maintains an alert log, and enforces position
// tier transitions through guarded lifecycle rules.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/quantview/riskdesk/internal/clientdata"
	"github.com/quantview/riskdesk/internal/config"
	"github.com/quantview/riskdesk/internal/database"
	"github.com/quantview/riskdesk/internal/jobs"
	"github.com/quantview/riskdesk/internal/modules/alerts"
	alerthandlers "github.com/quantview/riskdesk/internal/modules/alerts/handlers"
	"github.com/quantview/riskdesk/internal/modules/allocation"
	allocationhandlers "github.com/quantview/riskdesk/internal/modules/allocation/handlers"
	"github.com/quantview/riskdesk/internal/modules/lifecycle"
	lifecyclehandlers "github.com/quantview/riskdesk/internal/modules/lifecycle/handlers"
	"github.com/quantview/riskdesk/internal/modules/portfolio"
	stresshandlers "github.com/quantview/riskdesk/internal/modules/stress/handlers"
	"github.com/quantview/riskdesk/internal/reliability"
	"github.com/quantview/riskdesk/internal/riskdata"
	"github.com/quantview/riskdesk/internal/scheduler"
	"github.com/quantview/riskdesk/internal/server"
	"github.com/quantview/riskdesk/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Str("data_dir", cfg.DataDir).Int("port", cfg.Port).Msg("Starting Riskdesk")

	// Databases
	portfolioDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "portfolio.db"),
		Profile: database.ProfileStandard,
		Name:    "portfolio",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open portfolio database")
	}
	defer portfolioDB.Close()

	historyDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "history.db"),
		Profile: database.ProfileStandard,
		Name:    "history",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open history database")
	}
	defer historyDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	for _, db := range []*database.DB{portfolioDB, historyDB, cacheDB} {
		if err := db.Migrate(); err != nil {
			log.Fatal().Err(err).Str("database", db.Name()).Msg("Failed to migrate database")
		}
	}

	// Repositories and domain services
	positionRepo := portfolio.NewPositionRepository(portfolioDB.Conn(), log)
	snapshotRepo := clientdata.NewSnapshotRepository(cacheDB.Conn(), log)
	riskSource := riskdata.NewSource(historyDB.Conn(), positionRepo, log)
	calc := allocation.NewCalculator(cfg.RiskTarget)

	alertEngine := alerts.NewEngine(alerts.Config{
		Thresholds: alerts.Thresholds{
			WarningLevel:   cfg.WarningLevel,
			CriticalLevel:  cfg.CriticalLevel,
			ExcessiveLevel: cfg.ExcessiveLevel,
		},
		MaxAlerts: cfg.MaxAlerts,
		Enabled:   cfg.AlertsEnabled,
	}, log)

	lifecycleService := lifecycle.NewService(positionRepo, log)

	// HTTP server
	srv := server.New(server.Config{
		Log:         log,
		Cfg:         cfg,
		PortfolioDB: portfolioDB,
		HistoryDB:   historyDB,
		CacheDB:     cacheDB,

		AllocationHandlers: allocationhandlers.NewHandler(riskSource, calc, snapshotRepo, log),
		StressHandlers:     stresshandlers.NewHandler(positionRepo, riskSource, calc, log),
		AlertHandlers:      alerthandlers.NewHandler(alertEngine, log),
		LifecycleHandlers:  lifecyclehandlers.NewHandler(positionRepo, lifecycleService, log),
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Background jobs
	sched := scheduler.New(log)

	monitorJob := jobs.NewRiskMonitorJob(riskSource, calc, alertEngine, snapshotRepo, cfg.SnapshotRetain, log)
	if err := sched.AddJob(cfg.MonitorSchedule, monitorJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register risk monitor job")
	}

	if cfg.Backup != nil && cfg.Backup.Enabled {
		uploader, err := reliability.NewS3Uploader(context.Background(), *cfg.Backup)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize backup uploader")
		}

		backupService := reliability.NewBackupService(
			[]*database.DB{portfolioDB, historyDB, cacheDB},
			uploader, cfg.DataDir, cfg.Backup.Prefix, log)

		if err := sched.AddJob(cfg.Backup.Schedule, jobs.NewBackupJob(backupService)); err != nil {
			log.Fatal().Err(err).Msg("Failed to register backup job")
		}
	}

	sched.Start()

	// Prime the dashboard with an initial tick instead of waiting for the
	// first scheduled run.
	if err := sched.RunNow(monitorJob); err != nil {
		log.Warn().Err(err).Msg("Initial monitoring tick failed")
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
