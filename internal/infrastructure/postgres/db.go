package postgres

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps the connection pool
type DB struct {
	Pool *pgxpool.Pool
}

// Connect creates a new database connection pool
func Connect(databaseURL string) (*DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database URL: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	log.Println("Database connected successfully")
	return &DB{Pool: pool}, nil
}

// Close closes the database connection pool
func (db *DB) Close() {
	db.Pool.Close()
}

// Migrate creates the schema if it does not exist yet.
func (db *DB) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS receipts (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL,
			store_name TEXT NOT NULL DEFAULT '',
			purchase_date TEXT NOT NULL DEFAULT '',
			total_amount NUMERIC(10,2) NOT NULL DEFAULT 0,
			image_key TEXT NOT NULL DEFAULT '',
			raw_text TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_receipts_user ON receipts (user_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS receipt_items (
			id BIGSERIAL PRIMARY KEY,
			receipt_id UUID NOT NULL REFERENCES receipts(id) ON DELETE CASCADE,
			position INT NOT NULL,
			receipt_text TEXT,
			item_name TEXT NOT NULL,
			brand TEXT,
			generic_name TEXT,
			variant TEXT,
			size TEXT,
			unit TEXT,
			quantity NUMERIC(10,3) NOT NULL DEFAULT 1,
			unit_price NUMERIC(10,2) NOT NULL DEFAULT 0,
			total_price NUMERIC(10,2) NOT NULL DEFAULT 0,
			was_on_sale BOOLEAN NOT NULL DEFAULT FALSE,
			category TEXT NOT NULL DEFAULT 'other',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_receipt_items_receipt ON receipt_items (receipt_id)`,
		`CREATE TABLE IF NOT EXISTS api_logs (
			id UUID PRIMARY KEY,
			receipt_id UUID,
			user_id UUID NOT NULL,
			model TEXT NOT NULL,
			prompt_tokens INT NOT NULL DEFAULT 0,
			completion_tokens INT NOT NULL DEFAULT 0,
			total_tokens INT NOT NULL DEFAULT 0,
			estimated_cost NUMERIC(10,6) NOT NULL DEFAULT 0,
			finish_reason TEXT NOT NULL DEFAULT '',
			was_truncated BOOLEAN NOT NULL DEFAULT FALSE,
			item_count INT NOT NULL DEFAULT 0,
			enhanced_count INT NOT NULL DEFAULT 0,
			parsing_successful BOOLEAN NOT NULL DEFAULT FALSE,
			error_message TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}
