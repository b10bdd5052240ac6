// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"collision-site/internal/common/config"

	_ "github.com/lib/pq"
)

const applicationName = "collision-site"

// PostgresClient owns the pool behind the careers repository.
type PostgresClient struct {
	DB *sql.DB
}

// NewPostgres opens the pool. lib/pq dials lazily, so a reachable server is
// only confirmed by Ping.
func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	dsn := fmt.Sprintf("%s application_name=%s connect_timeout=5", cfg.GetDSN(), applicationName)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	maxOpen, maxIdle := cfg.MaxConnections, cfg.MaxIdle
	if maxOpen <= 0 {
		maxOpen = 10
	}
	if maxIdle <= 0 || maxIdle > maxOpen {
		maxIdle = maxOpen / 2
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	if err := c.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres ping failed: %w", err)
	}
	return nil
}

// Migrate applies the site schema.
func (c *PostgresClient) Migrate(ctx context.Context) error {
	return EnsureSchema(ctx, c.DB)
}

func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
