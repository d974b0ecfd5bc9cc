package database

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

type initState int

const (
	stateUninitialized initState = iota
	stateInitializing
	stateReady
	stateFailed
)

// Initializer orchestrates startup: open the connection, verify it answers
// queries, seed the default settings row. Initialize is idempotent; once
// READY, further calls return immediately.
type Initializer struct {
	db       *DB
	settings *SettingsRepository
	state    initState
}

// ConnectionStatus is what the repeatable health check reports. Failures end
// up in Connected=false, never in an error.
type ConnectionStatus struct {
	Connected bool `json:"connected"`
	Alarms    int  `json:"alarms"`
	History   int  `json:"history"`
	Settings  int  `json:"settings"`
}

func NewInitializer(db *DB, settings *SettingsRepository) *Initializer {
	return &Initializer{db: db, settings: settings}
}

func (i *Initializer) Initialize() error {
	if i.state == stateReady {
		return nil
	}
	i.state = stateInitializing

	log.Info("initializing database...")

	if err := i.db.Connect(); err != nil {
		i.state = stateFailed
		return fmt.Errorf("database connect failed: %w", err)
	}

	var one int
	if err := i.db.Handle().QueryRow(`SELECT 1`).Scan(&one); err != nil {
		i.state = stateFailed
		return fmt.Errorf("database connection verification failed: %w", err)
	}

	if _, err := i.settings.SeedDefaults(); err != nil {
		i.state = stateFailed
		return fmt.Errorf("failed to seed default settings: %w", err)
	}

	i.state = stateReady
	log.Info("database initialized successfully")
	return nil
}

// TestConnection counts rows in each table. It is safe to call repeatedly and
// reports problems instead of failing.
func (i *Initializer) TestConnection() ConnectionStatus {
	status := ConnectionStatus{}

	if err := i.db.Connect(); err != nil {
		log.Errorf("connection test failed: %v", err)
		return status
	}

	for table, dst := range map[string]*int{
		"alarms":        &status.Alarms,
		"alarm_history": &status.History,
		"settings":      &status.Settings,
	} {
		query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)
		if err := i.db.Handle().QueryRow(query).Scan(dst); err != nil {
			log.Errorf("connection test failed on %s: %v", table, err)
			return status
		}
	}

	status.Connected = true
	log.Debugf("connection test: alarms=%d history=%d settings=%d",
		status.Alarms, status.History, status.Settings)
	return status
}

// Disconnect is the explicit teardown, run once at shutdown. Safe to call
// multiple times.
func (i *Initializer) Disconnect() {
	if err := i.db.Disconnect(); err != nil {
		log.Errorf("error disconnecting from database: %v", err)
		return
	}
	i.state = stateUninitialized
	log.Info("database disconnected")
}
