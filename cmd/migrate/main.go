// Command migrate applies or inspects the embedded goose migrations against
// the configured database.
//
// Usage: migrate up|down|status
//
// Exit codes: 0 = success, 1 = error, 2 = usage.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/heartmarshall/campaign-notes/internal/adapter/postgres"
	"github.com/heartmarshall/campaign-notes/internal/app"
	"github.com/heartmarshall/campaign-notes/internal/config"
	"github.com/heartmarshall/campaign-notes/migrations"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: migrate up|down|status")
		os.Exit(2)
	}
	command := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		logger.Error("create migration provider", slog.String("error", err.Error()))
		os.Exit(1)
	}

	switch command {
	case "up":
		results, err := provider.Up(ctx)
		if err != nil {
			logger.Error("migrate up failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("migrate up completed", slog.Int("applied", len(results)))
	case "down":
		result, err := provider.Down(ctx)
		if err != nil {
			logger.Error("migrate down failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("migrate down completed", slog.Int64("version", result.Source.Version))
	case "status":
		statuses, err := provider.Status(ctx)
		if err != nil {
			logger.Error("migrate status failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		for _, s := range statuses {
			fmt.Printf("%-8s %05d %s\n", s.State, s.Source.Version, s.Source.Path)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", command)
		os.Exit(2)
	}
}
