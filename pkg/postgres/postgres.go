package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ds124wfegd/tablebooker/config"
	"github.com/sirupsen/logrus"

	_ "github.com/lib/pq"
)

func NewPostgresDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.WithFields(logrus.Fields{"host": cfg.Host, "db": cfg.DBName}).Info("Successfully connected to PostgreSQL")
	return db, nil
}

// migrations are idempotent and run in order on every start
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS shops (
		id BIGSERIAL PRIMARY KEY,
		merchant_id BIGINT NOT NULL DEFAULT 0,
		name VARCHAR(255) NOT NULL,
		address VARCHAR(255) NOT NULL DEFAULT '',
		city VARCHAR(100) NOT NULL DEFAULT '',
		capacity INTEGER NOT NULL CHECK (capacity > 0),
		opens_at VARCHAR(5) NOT NULL,
		closes_at VARCHAR(5) NOT NULL,
		average_stay_minutes INTEGER NOT NULL CHECK (average_stay_minutes > 0),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS available_slots (
		id BIGSERIAL PRIMARY KEY,
		shop_id BIGINT NOT NULL REFERENCES shops(id) ON DELETE CASCADE,
		start_time VARCHAR(5) NOT NULL,
		end_time VARCHAR(5) NOT NULL,
		capacity INTEGER NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS table_types (
		id BIGSERIAL PRIMARY KEY,
		shop_id BIGINT NOT NULL REFERENCES shops(id) ON DELETE CASCADE,
		name VARCHAR(100) NOT NULL DEFAULT '',
		capacity INTEGER NOT NULL CHECK (capacity > 0 AND capacity <= 1000),
		quantity INTEGER NOT NULL CHECK (quantity > 0 AND quantity <= 10000),
		location_type VARCHAR(20) NOT NULL DEFAULT 'indoor',
		floor INTEGER NOT NULL DEFAULT 0,
		roof_type VARCHAR(20) NOT NULL DEFAULT 'covered',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,

	// slot_id has no foreign key: slots are regenerated when hours change
	`CREATE TABLE IF NOT EXISTS bookings (
		id BIGSERIAL PRIMARY KEY,
		shop_id BIGINT NOT NULL REFERENCES shops(id),
		slot_id BIGINT NOT NULL,
		booking_date DATE NOT NULL,
		guests INTEGER NOT NULL CHECK (guests > 0),
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		booking_code VARCHAR(16) NOT NULL,
		customer_name VARCHAR(255) NOT NULL DEFAULT '',
		customer_email VARCHAR(255) NOT NULL DEFAULT '',
		customer_phone VARCHAR(50) NOT NULL DEFAULT '',
		note TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS booked_tables (
		id BIGSERIAL PRIMARY KEY,
		booking_id BIGINT NOT NULL REFERENCES bookings(id) ON DELETE CASCADE,
		table_type_id BIGINT NOT NULL REFERENCES table_types(id),
		tables_booked INTEGER NOT NULL CHECK (tables_booked > 0),
		guests INTEGER NOT NULL CHECK (guests > 0)
	)`,

	// Indexes
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_bookings_pending_code ON bookings(booking_code) WHERE status = 'pending'`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_slot ON bookings(shop_id, booking_date, slot_id)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_status_created ON bookings(status, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_booked_tables_booking_id ON booked_tables(booking_id)`,
	`CREATE INDEX IF NOT EXISTS idx_table_types_shop_id ON table_types(shop_id)`,
	`CREATE INDEX IF NOT EXISTS idx_available_slots_shop_id ON available_slots(shop_id)`,
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	for i, migration := range migrations {
		if _, err := db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("failed to execute migration %d: %w", i, err)
		}
	}

	logrus.WithField("count", len(migrations)).Info("Database migrations completed successfully")
	return nil
}
