package main

import (
	"embed"
	"flag"
	"fmt"
	"os"

	"github.com/lgulliver/simpledrive/pkg/config"
	"github.com/lgulliver/simpledrive/pkg/migrate"
	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func main() {
	var (
		up     = flag.Bool("up", false, "Run pending migrations")
		down   = flag.Bool("down", false, "Roll back the last migration")
		status = flag.Bool("status", false, "List pending migrations")
	)
	flag.Parse()

	if !*up && !*down && !*status {
		fmt.Printf("Usage: %s [-up | -down | -status]\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	cfg.Logging.SetupLogging()

	if cfg.Database.Driver != "" && cfg.Database.Driver != "postgres" && cfg.Database.Driver != "postgresql" {
		log.Fatal().Str("driver", cfg.Database.Driver).Msg("SQL migrations target PostgreSQL; SQLite schemas are created on startup")
	}

	migrator, err := migrate.Open(&cfg.Database, migrationsFS, "migrations")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create migrator")
	}
	defer migrator.Close()

	switch {
	case *status:
		pending, err := migrator.Pending()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to list migrations")
		}
		for _, m := range pending {
			fmt.Printf("pending  %03d  %s\n", m.Version, m.Name)
		}
		if len(pending) == 0 {
			fmt.Println("database is up to date")
		}
	case *up:
		if err := migrator.Up(); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}
		log.Info().Msg("Migrations completed successfully")
	case *down:
		if err := migrator.Down(); err != nil {
			log.Fatal().Err(err).Msg("Failed to roll back migration")
		}
		log.Info().Msg("Rollback completed successfully")
	}
}
