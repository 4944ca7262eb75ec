package persistence

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations
var migrationsFS embed.FS

// RunMigrations applies the embedded migrations for the given dialect
// (goose.DialectPostgres or goose.DialectSQLite3).
func RunMigrations(ctx context.Context, db *sql.DB, dialect goose.Dialect, logger *zap.Logger) error {
	dir, err := migrationDir(dialect)
	if err != nil {
		return err
	}
	fsys, err := fs.Sub(migrationsFS, dir)
	if err != nil {
		return fmt.Errorf("open migrations %s: %w", dir, err)
	}

	// goose pins a connection for the whole run; a single-connection SQLite
	// handle needs room for it.
	if prev := db.Stats().MaxOpenConnections; dialect == goose.DialectSQLite3 && prev == 1 {
		db.SetMaxOpenConns(2)
		defer db.SetMaxOpenConns(prev)
	}

	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	for _, res := range results {
		logger.Info("applied migration",
			zap.String("file", res.Source.Path),
			zap.Duration("duration", res.Duration))
	}

	logger.Info("migrations applied", zap.Int("count", len(results)))
	return nil
}

func migrationDir(dialect goose.Dialect) (string, error) {
	switch dialect {
	case goose.DialectPostgres:
		return "migrations/postgres", nil
	case goose.DialectSQLite3:
		return "migrations/sqlite", nil
	default:
		return "", fmt.Errorf("no migrations for dialect %q", dialect)
	}
}
