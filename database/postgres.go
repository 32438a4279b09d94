package database

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"
)

var DB *sql.DB

// InitDatabase initializes the database connection
func InitDatabase() error {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}

	var err error
	DB, err = sql.Open("postgres", dbURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %v", err)
	}

	if err := DB.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %v", err)
	}

	log.Println("Successfully connected to database")
	return nil
}

// CreateTables creates the necessary tables if they don't exist
func CreateTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS imported_products (
			id SERIAL PRIMARY KEY,
			source_id TEXT NOT NULL UNIQUE,
			source_url TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT DEFAULT '',
			price DECIMAL(10,2) NOT NULL,
			original_price DECIMAL(10,2),
			currency VARCHAR(3) DEFAULT 'USD',
			images JSONB DEFAULT '[]',
			variants JSONB DEFAULT '[]',
			shipping JSONB DEFAULT '{}',
			seller JSONB DEFAULT '{}',
			rating JSONB DEFAULT '{}',
			confidence VARCHAR(16) NOT NULL DEFAULT 'stub',
			needs_review BOOLEAN DEFAULT FALSE,
			last_refreshed TIMESTAMP,
			last_failed_at TIMESTAMP,
			refresh_fail_count INTEGER DEFAULT 0,
			next_retry_at TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			is_active BOOLEAN DEFAULT TRUE
		)`,
		`CREATE TABLE IF NOT EXISTS import_history (
			id SERIAL PRIMARY KEY,
			product_id INTEGER REFERENCES imported_products(id) ON DELETE CASCADE,
			price DECIMAL(10,2) NOT NULL,
			original_price DECIMAL(10,2),
			currency VARCHAR(3) DEFAULT 'USD',
			confidence VARCHAR(16) NOT NULL,
			imported_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_imported_products_needs_review
			ON imported_products(needs_review) WHERE is_active = TRUE`,
		`CREATE INDEX IF NOT EXISTS idx_import_history_product_id
			ON import_history(product_id)`,
	}

	for _, query := range queries {
		if _, err := DB.Exec(query); err != nil {
			return fmt.Errorf("failed to create table: %v", err)
		}
	}

	log.Println("Database tables created successfully")
	return nil
}

// CloseDatabase closes the database connection
func CloseDatabase() {
	if DB != nil {
		DB.Close()
	}
}
