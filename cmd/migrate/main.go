package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"captioner/internal"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	status := flag.Bool("status", false, "Show migration status only")

	cfg, err := internal.ReadConfig()
	if err != nil {
		slog.Error("Failed to read config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if cfg.Postgres.ConnectionUrl == "" {
		slog.Error("postgres.connection_url is not set")
		os.Exit(1)
	}

	ctx := context.Background()

	dbpool, err := pgxpool.New(ctx, cfg.Postgres.ConnectionUrl)
	if err != nil {
		slog.Error("Failed to create postgres", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer dbpool.Close()

	migrator := internal.NewMigrator(dbpool, internal.Migrations, "migrations")

	if *status {
		statuses, err := migrator.Status(ctx)
		if err != nil {
			slog.Error("Failed to read migration status", slog.String("error", err.Error()))
			os.Exit(1)
		}
		for _, s := range statuses {
			state := "pending"
			if s.Applied {
				state = "applied"
			}
			fmt.Printf("%s - %s [%s]\n", s.Version, s.Name, state)
		}
		return
	}

	count, err := migrator.Run(ctx)
	if err != nil {
		slog.Error("Migration failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("Migrations complete", slog.Int("applied", count))
}
