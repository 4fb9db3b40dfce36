package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"lanta-sber-sender/internal/config"
)

// NewPostgresDB opens a lib/pq connection pool and pings it.
// A non-nil dialer replaces the driver's TCP dialer, e.g. an SSH tunnel.
func NewPostgresDB(ctx context.Context, cfg *config.DatabaseConfig, dialer pq.Dialer) (*sql.DB, error) {
	connector, err := pq.NewConnector(cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database dsn: %w", err)
	}
	if dialer != nil {
		connector.Dialer(dialer)
	}

	db := sql.OpenDB(connector)
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}
	if cfg.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.MaxIdle)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Close closes db if it was opened
func Close(db *sql.DB) error {
	if db != nil {
		return db.Close()
	}
	return nil
}
