package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fincalc/internal/clientdata"
	"github.com/aristath/fincalc/internal/clients/moex"
	"github.com/aristath/fincalc/internal/config"
	"github.com/aristath/fincalc/internal/database"
	"github.com/aristath/fincalc/internal/domain"
	"github.com/aristath/fincalc/internal/modules/calculator"
	calchandlers "github.com/aristath/fincalc/internal/modules/calculator/handlers"
	"github.com/aristath/fincalc/internal/modules/history"
	"github.com/aristath/fincalc/internal/reliability"
	"github.com/aristath/fincalc/internal/scheduler"
	"github.com/aristath/fincalc/internal/server"
	"github.com/aristath/fincalc/internal/version"
	"github.com/aristath/fincalc/pkg/logger"
)

// runServe wires the full application and blocks until a shutdown signal.
func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: true})
	log.Info().Str("version", version.Version).Msg("Starting fincalc")

	historyDB, cacheDB, err := openDatabases(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open databases")
	}
	defer historyDB.Close()
	defer cacheDB.Close()

	// Repositories and services over the two databases.
	priceRepo := history.NewRepository(historyDB.Conn(), log)
	rateRepo := history.NewRateRepository(historyDB.Conn(), log)
	if err := rateRepo.SeedDefaults(); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed deposit rates")
	}

	moexClient := moex.NewClient(cfg.MoexBaseURL, log)
	instruments := moexClient.Instruments()

	syncService := history.NewSyncService(moexClient, priceRepo, log)

	cacheRepo := clientdata.NewRepository(cacheDB.Conn())
	calcCache := clientdata.NewCalculationCache(cacheRepo, cfg.CacheTTL)

	calcService := calculator.NewService(priceRepo, rateRepo, syncService, calcCache, instruments, log)
	investmentHandlers := calchandlers.NewHandler(calcService, priceRepo, priceRepo, instruments, log)

	// Background jobs.
	sched := scheduler.New(log)

	priceSyncJob := scheduler.NewPriceSyncJob(syncService, tickersOf(instruments), cfg.SyncWindow, log)
	if err := sched.AddJob(cfg.SyncSchedule, priceSyncJob); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.SyncSchedule).Msg("Failed to schedule price sync")
	}

	cleanupJob := scheduler.NewCacheCleanupJob(cacheRepo, log)
	if err := sched.AddJob("0 4 * * *", cleanupJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule cache cleanup")
	}

	backupJob := setupBackup(cfg, historyDB, cacheDB, sched, log)

	srv := server.New(server.Config{
		Log:                log,
		Port:               cfg.Port,
		DevMode:            cfg.DevMode,
		DataDir:            cfg.DataDir,
		HistoryDB:          historyDB,
		CacheDB:            cacheDB,
		InvestmentHandlers: investmentHandlers,
		PriceSyncJob:       priceSyncJob,
		BackupJob:          backupJob,
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()
	log.Info().Int("port", cfg.Port).Msg("Server started")

	sched.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")
	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Stopped")
	return nil
}

// openDatabases opens and migrates the history and cache databases.
func openDatabases(cfg *config.Config) (*database.DB, *database.DB, error) {
	historyDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "history.db"),
		Profile: database.ProfileStandard,
		Name:    "history",
	})
	if err != nil {
		return nil, nil, err
	}
	if err := historyDB.Migrate(); err != nil {
		_ = historyDB.Close()
		return nil, nil, err
	}

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		_ = historyDB.Close()
		return nil, nil, err
	}
	if err := cacheDB.Migrate(); err != nil {
		_ = historyDB.Close()
		_ = cacheDB.Close()
		return nil, nil, err
	}

	return historyDB, cacheDB, nil
}

// setupBackup wires the nightly backup when it is configured, returning the
// job for manual triggering (nil when disabled).
func setupBackup(
	cfg *config.Config,
	historyDB, cacheDB *database.DB,
	sched *scheduler.Scheduler,
	log zerolog.Logger,
) scheduler.Job {
	if cfg.Backup == nil || !cfg.Backup.Enabled {
		log.Info().Msg("Remote backups disabled")
		return nil
	}

	storage, err := reliability.NewStorageClient(context.Background(), reliability.StorageConfig{
		Endpoint:    cfg.Backup.Endpoint,
		Region:      cfg.Backup.Region,
		Bucket:      cfg.Backup.Bucket,
		AccessKeyID: cfg.Backup.AccessKeyID,
		SecretKey:   cfg.Backup.SecretKey,
	}, log)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create backup storage client, backups disabled")
		return nil
	}

	backupService := reliability.NewBackupService(storage, map[string]*database.DB{
		"history": historyDB,
		"cache":   cacheDB,
	}, cfg.DataDir, cfg.Backup.RetentionDays, log)

	job := scheduler.NewBackupJob(backupService, log)
	if err := sched.AddJob(cfg.Backup.Schedule, job); err != nil {
		log.Error().Err(err).Str("schedule", cfg.Backup.Schedule).Msg("Failed to schedule backup")
		return nil
	}

	log.Info().Str("bucket", cfg.Backup.Bucket).Msg("Nightly backups enabled")
	return job
}

func tickersOf(instruments []domain.Instrument) []string {
	tickers := make([]string, len(instruments))
	for i, inst := range instruments {
		tickers[i] = inst.Ticker
	}
	return tickers
}
