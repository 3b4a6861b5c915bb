// Command migrate applies the database schema and runs maintenance jobs
// that are normally owned by infrastructure cron.
//
// Usage:
//
//	migrate up              apply pending migrations (default)
//	migrate status          print applied vs pending versions
//	migrate sweep-expired   deactivate exceptions whose end date has passed
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/worksafe/worksafe-backend/internal/whs/postgres"
	"github.com/worksafe/worksafe-backend/internal/whs/repository"
	"github.com/worksafe/worksafe-backend/pkg/config"
	"github.com/worksafe/worksafe-backend/pkg/database"
	"github.com/worksafe/worksafe-backend/pkg/logger"
	"github.com/worksafe/worksafe-backend/pkg/migrate"
)

func main() {
	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	cfg, err := config.Load("whs-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("migrate", cfg.Server.Environment)

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx := context.Background()

	switch command {
	case "up":
		applied, err := migrate.Run(ctx, db, postgres.Migrations(), log)
		if err != nil {
			log.Fatal().Err(err).Msg("migration failed")
		}
		log.Info().Int("applied", applied).Msg("migrations up to date")

	case "status":
		var versions []int
		err := db.SelectContext(ctx, &versions,
			`SELECT version FROM schema_migrations ORDER BY version`)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to read schema_migrations")
		}
		applied := make(map[int]bool, len(versions))
		for _, v := range versions {
			applied[v] = true
		}
		for _, m := range postgres.Migrations() {
			state := "pending"
			if applied[m.Version] {
				state = "applied"
			}
			fmt.Printf("%04d %-40s %s\n", m.Version, m.Name, state)
		}

	case "sweep-expired":
		exceptions := repository.NewExceptionRepository(db)
		closed, err := exceptions.DeactivateExpired(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("expiry sweep failed")
		}
		log.Info().Int("deactivated", closed).Msg("expired exceptions deactivated")

	default:
		fmt.Fprintf(os.Stderr, "unknown command %q (want up, status or sweep-expired)\n", command)
		os.Exit(1)
	}
}
