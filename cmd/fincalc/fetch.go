package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aristath/fincalc/internal/clients/moex"
	"github.com/aristath/fincalc/internal/config"
	"github.com/aristath/fincalc/internal/database"
	"github.com/aristath/fincalc/internal/modules/history"
	"github.com/aristath/fincalc/pkg/logger"
)

// runFetch pulls the history for one ticker into the local database. It is
// a one-shot operation, useful for seeding a fresh install before the
// nightly sync takes over.
func runFetch(ticker, fromStr, toStr string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: true})

	end := time.Now()
	if toStr != "" {
		end, err = time.Parse("2006-01-02", toStr)
		if err != nil {
			return fmt.Errorf("invalid --to date %q: %w", toStr, err)
		}
	}

	start := end.AddDate(-1, 0, 0)
	if fromStr != "" {
		start, err = time.Parse("2006-01-02", fromStr)
		if err != nil {
			return fmt.Errorf("invalid --from date %q: %w", fromStr, err)
		}
	}
	if start.After(end) {
		return fmt.Errorf("start date %s is after end date %s", start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

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

	moexClient := moex.NewClient(cfg.MoexBaseURL, log)
	priceRepo := history.NewRepository(historyDB.Conn(), log)
	syncService := history.NewSyncService(moexClient, priceRepo, log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	written, err := syncService.Refresh(ctx, strings.ToUpper(ticker), start, end)
	if err != nil {
		return err
	}

	fmt.Printf("Stored %d price points for %s (%s to %s)\n",
		written, strings.ToUpper(ticker), start.Format("2006-01-02"), end.Format("2006-01-02"))
	return nil
}
