package database

import (
	"fmt"
	"os"
	"path/filepath"
)

const dbFileName = "cetus-alarm-bot.db"

// DatabaseLocation resolves the path of the sqlite file inside the per-user
// data directory, creating the directory tree if needed. An empty override
// falls back to the OS user config dir. Creating an already existing
// directory is not an error.
func DatabaseLocation(override string) (string, error) {
	base := override
	if base == "" {
		userDir, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve user config dir: %w", err)
		}
		base = filepath.Join(userDir, "cetus-alarm-bot")
	}

	dbDir := filepath.Join(base, "database")
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create database dir %s: %w", dbDir, err)
	}

	return filepath.Join(dbDir, dbFileName), nil
}
