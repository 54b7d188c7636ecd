package main

import (
	"fmt"
	"path/filepath"

	"github.com/aristath/fincalc/internal/config"
	"github.com/aristath/fincalc/internal/database"
	"github.com/aristath/fincalc/internal/modules/history"
	"github.com/aristath/fincalc/pkg/logger"
)

// runSeedRates fills the deposit rate table with the built-in yearly
// averages, leaving any manually entered rates untouched.
func runSeedRates() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: true})

	historyDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "history.db"),
		Profile: database.ProfileStandard,
		Name:    "history",
	})
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer historyDB.Close()

	if err := historyDB.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate history database: %w", err)
	}

	rateRepo := history.NewRateRepository(historyDB.Conn(), log)
	if err := rateRepo.SeedDefaults(); err != nil {
		return fmt.Errorf("failed to seed deposit rates: %w", err)
	}

	fmt.Println("Deposit rates seeded")
	return nil
}
