// Package migrate applies ordered, versioned SQL migrations.
//
// Migrations are embedded in the binary and tracked in a schema_migrations
// table. Each migration runs in its own transaction; already-applied
// versions are skipped, so running the full set is always safe.
package migrate

import (
	"context"
	"fmt"
	"sort"

	"github.com/worksafe/worksafe-backend/pkg/database"
	"github.com/worksafe/worksafe-backend/pkg/logger"
)

// Migration is a single versioned schema change.
type Migration struct {
	Version int
	Name    string
	Up      string
}

const versionTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version    INTEGER PRIMARY KEY,
	name       TEXT NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Validate checks that the migration set is well-formed: versions are
// positive, unique, contiguous from 1, and every migration has SQL.
func Validate(migrations []Migration) error {
	seen := make(map[int]string, len(migrations))
	for _, m := range migrations {
		if m.Version <= 0 {
			return fmt.Errorf("migration %q has non-positive version %d", m.Name, m.Version)
		}
		if m.Up == "" {
			return fmt.Errorf("migration %d %q has no SQL", m.Version, m.Name)
		}
		if prev, ok := seen[m.Version]; ok {
			return fmt.Errorf("duplicate migration version %d (%q and %q)", m.Version, prev, m.Name)
		}
		seen[m.Version] = m.Name
	}
	for v := 1; v <= len(migrations); v++ {
		if _, ok := seen[v]; !ok {
			return fmt.Errorf("migration set has a gap: version %d missing", v)
		}
	}
	return nil
}

// Run applies all pending migrations in version order.
// Returns the number of migrations applied.
func Run(ctx context.Context, db *database.DB, migrations []Migration, log *logger.Logger) (int, error) {
	if err := Validate(migrations); err != nil {
		return 0, err
	}

	if _, err := db.ExecContext(ctx, versionTable); err != nil {
		return 0, fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	applied := make(map[int]bool)
	var versions []int
	if err := db.SelectContext(ctx, &versions, `SELECT version FROM schema_migrations`); err != nil {
		return 0, fmt.Errorf("failed to read schema_migrations: %w", err)
	}
	for _, v := range versions {
		applied[v] = true
	}

	ordered := make([]Migration, len(migrations))
	copy(ordered, migrations)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Version < ordered[j].Version })

	count := 0
	for _, m := range ordered {
		if applied[m.Version] {
			continue
		}

		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			return count, fmt.Errorf("migration %d: failed to begin transaction: %w", m.Version, err)
		}

		if _, err := tx.ExecContext(ctx, m.Up); err != nil {
			tx.Rollback()
			return count, fmt.Errorf("migration %d %q failed: %w", m.Version, m.Name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.Version, m.Name); err != nil {
			tx.Rollback()
			return count, fmt.Errorf("migration %d: failed to record version: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return count, fmt.Errorf("migration %d: failed to commit: %w", m.Version, err)
		}

		log.Info().Int("version", m.Version).Str("name", m.Name).Msg("migration applied")
		count++
	}

	return count, nil
}
