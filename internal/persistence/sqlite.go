package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/spec-kit/angocine/internal/config"
)

// MemoryPath selects a private in-memory database instead of a file.
const MemoryPath = ":memory:"

// SQLite wraps a database/sql handle on the embedded modernc driver.
type SQLite struct {
	DB *sql.DB
}

// NewSQLite opens (creating if needed) the database file. The handle is
// limited to one connection so transactions never interleave.
func NewSQLite(ctx context.Context, cfg config.SQLiteConfig, logger *zap.Logger) (*SQLite, error) {
	dsn, err := sqliteDSN(cfg.Path)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxIdleTime(0)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("connected to sqlite", zap.String("path", cfg.Path))
	return &SQLite{DB: db}, nil
}

func sqliteDSN(path string) (string, error) {
	params := url.Values{}
	params.Add("_pragma", "foreign_keys(1)")
	params.Add("_pragma", "busy_timeout(5000)")
	params.Set("_txlock", "immediate")
	params.Set("_time_format", "sqlite")

	if path == MemoryPath {
		params.Set("mode", "memory")
		params.Set("cache", "shared")
		return fmt.Sprintf("file:%s?%s", uuid.NewString(), params.Encode()), nil
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create sqlite directory: %w", err)
		}
	}
	params.Add("_pragma", "journal_mode(WAL)")
	return fmt.Sprintf("file:%s?%s", path, params.Encode()), nil
}

// Close closes the database handle.
func (s *SQLite) Close() {
	if s != nil && s.DB != nil {
		_ = s.DB.Close()
	}
}

// Ping verifies the database handle.
func (s *SQLite) Ping(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("sqlite database not configured")
	}
	return s.DB.PingContext(ctx)
}
