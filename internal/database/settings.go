package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"cetus-alarm-bot/internal/types"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	// DefaultCheckInterval is the seeded polling cadence in minutes.
	DefaultCheckInterval = 60
)

// SettingsRepository manages the single configuration row. Upsert always
// targets the first row found, so a second row is never created.
type SettingsRepository struct {
	db *DB
}

func NewSettingsRepository(db *DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the settings row, or nil when none exists yet.
func (r *SettingsRepository) Get() (*types.Settings, error) {
	query := `
	SELECT id, telegram_bot_token, telegram_chat_id, check_interval, notifications_enabled
	FROM settings
	LIMIT 1;`

	var settings types.Settings
	var token, chatID sql.NullString
	err := r.db.Handle().QueryRow(query).Scan(
		&settings.ID, &token, &chatID, &settings.CheckInterval, &settings.NotificationsEnabled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}

	if token.Valid {
		settings.TelegramBotToken = &token.String
	}
	if chatID.Valid {
		settings.TelegramChatID = &chatID.String
	}
	return &settings, nil
}

// Upsert merges the supplied fields onto the existing row, creating it first
// when absent.
func (r *SettingsRepository) Upsert(update types.SettingsUpdate) (*types.Settings, error) {
	if update.CheckInterval != nil && *update.CheckInterval <= 0 {
		return nil, fmt.Errorf("check interval must be positive, got %d", *update.CheckInterval)
	}

	existing, err := r.Get()
	if err != nil {
		return nil, err
	}

	if existing == nil {
		existing, err = r.createDefaults()
		if err != nil {
			return nil, err
		}
	}

	setParts := []string{}
	args := []interface{}{}

	if update.TelegramBotToken != nil {
		setParts = append(setParts, "telegram_bot_token = ?")
		args = append(args, *update.TelegramBotToken)
	}
	if update.TelegramChatID != nil {
		setParts = append(setParts, "telegram_chat_id = ?")
		args = append(args, *update.TelegramChatID)
	}
	if update.CheckInterval != nil {
		setParts = append(setParts, "check_interval = ?")
		args = append(args, *update.CheckInterval)
	}
	if update.NotificationsEnabled != nil {
		setParts = append(setParts, "notifications_enabled = ?")
		args = append(args, *update.NotificationsEnabled)
	}

	if len(setParts) > 0 {
		args = append(args, existing.ID)
		query := fmt.Sprintf(`UPDATE settings SET %s WHERE id = ?;`, strings.Join(setParts, ", "))
		if _, err := r.db.Handle().Exec(query, args...); err != nil {
			return nil, fmt.Errorf("failed to update settings: %w", err)
		}
	}

	return r.Get()
}

// SeedDefaults creates the settings row with defaults when missing and
// returns the existing one otherwise. Calling it again changes nothing.
func (r *SettingsRepository) SeedDefaults() (*types.Settings, error) {
	existing, err := r.Get()
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	return r.createDefaults()
}

func (r *SettingsRepository) createDefaults() (*types.Settings, error) {
	settings := &types.Settings{
		ID:                   uuid.NewString(),
		CheckInterval:        DefaultCheckInterval,
		NotificationsEnabled: true,
	}

	query := `
	INSERT INTO settings (id, check_interval, notifications_enabled)
	VALUES (?, ?, ?);`

	_, err := r.db.Handle().Exec(query, settings.ID, settings.CheckInterval, settings.NotificationsEnabled)
	if err != nil {
		return nil, fmt.Errorf("failed to create settings row: %w", err)
	}

	log.Debugf("default settings seeded: id=%s", settings.ID)
	return settings, nil
}
