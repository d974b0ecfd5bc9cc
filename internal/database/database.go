package database

import (
	"database/sql"
	"fmt"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// DB owns the single long-lived sqlite handle. It is constructed once at
// startup and handed to the repositories; there is no connection pool and all
// writes funnel through this one handle.
type DB struct {
	path string
	conn *sql.DB
}

func New(path string) *DB {
	return &DB{path: path}
}

// Connect opens the sqlite file and creates the schema. Calling it while
// already connected is a no-op.
func (d *DB) Connect() error {
	if d.conn != nil {
		return nil
	}

	conn, err := sql.Open("sqlite", d.path)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	createAlarmsTable := `
	CREATE TABLE IF NOT EXISTS alarms (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		pair TEXT NOT NULL,
		alarm_type TEXT NOT NULL,
		condition TEXT NOT NULL,
		value REAL NOT NULL,
		base_price REAL,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);`
	if _, err := conn.Exec(createAlarmsTable); err != nil {
		conn.Close()
		return fmt.Errorf("failed to create alarms table: %w", err)
	}

	createHistoryTable := `
	CREATE TABLE IF NOT EXISTS alarm_history (
		id TEXT PRIMARY KEY,
		alarm_id TEXT NOT NULL,
		current_price REAL NOT NULL,
		previous_price REAL,
		message TEXT NOT NULL,
		triggered_at TIMESTAMP NOT NULL
	);`
	if _, err := conn.Exec(createHistoryTable); err != nil {
		conn.Close()
		return fmt.Errorf("failed to create alarm_history table: %w", err)
	}

	createSettingsTable := `
	CREATE TABLE IF NOT EXISTS settings (
		id TEXT PRIMARY KEY,
		telegram_bot_token TEXT,
		telegram_chat_id TEXT,
		check_interval INTEGER NOT NULL DEFAULT 60,
		notifications_enabled INTEGER NOT NULL DEFAULT 1
	);`
	if _, err := conn.Exec(createSettingsTable); err != nil {
		conn.Close()
		return fmt.Errorf("failed to create settings table: %w", err)
	}

	createMetricsTable := `
	CREATE TABLE IF NOT EXISTS metrics (
		metric_name TEXT NOT NULL PRIMARY KEY,
		metric_value REAL NOT NULL
	);`
	if _, err := conn.Exec(createMetricsTable); err != nil {
		conn.Close()
		return fmt.Errorf("failed to create metrics table: %w", err)
	}

	d.conn = conn
	log.Debugf("database opened at %s", d.path)
	return nil
}

// Disconnect releases the handle. Safe to call when never connected and safe
// to call more than once.
func (d *DB) Disconnect() error {
	if d.conn == nil {
		return nil
	}
	conn := d.conn
	d.conn = nil
	return conn.Close()
}

// Handle returns the underlying sql handle, or nil before Connect.
func (d *DB) Handle() *sql.DB {
	return d.conn
}
