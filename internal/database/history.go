package database

import (
	"database/sql"
	"fmt"
	"time"

	"cetus-alarm-bot/internal/types"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// DefaultHistoryLimit caps history queries when the caller passes no limit.
const DefaultHistoryLimit = 100

// HistoryRepository persists trigger records. Entries are append-only: there
// is no update or delete, and they are not removed when their alarm is.
type HistoryRepository struct {
	db *DB
}

func NewHistoryRepository(db *DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Append inserts a trigger record. The alarm id is stored as given; whether
// it references a live alarm is not checked here.
func (r *HistoryRepository) Append(alarmID string, currentPrice float64, previousPrice *float64, message string) (*types.AlarmHistoryEntry, error) {
	entry := &types.AlarmHistoryEntry{
		ID:            uuid.NewString(),
		AlarmID:       alarmID,
		CurrentPrice:  currentPrice,
		PreviousPrice: previousPrice,
		Message:       message,
		TriggeredAt:   time.Now().UTC(),
	}

	query := `
	INSERT INTO alarm_history (id, alarm_id, current_price, previous_price, message, triggered_at)
	VALUES (?, ?, ?, ?, ?, ?);`

	_, err := r.db.Handle().Exec(query,
		entry.ID, entry.AlarmID, entry.CurrentPrice, entry.PreviousPrice, entry.Message, entry.TriggeredAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert history entry: %w", err)
	}

	log.Debugf("history entry appended: alarm=%s price=%g", alarmID, currentPrice)
	return entry, nil
}

// ForAlarm returns the trigger records of one alarm, newest first.
func (r *HistoryRepository) ForAlarm(alarmID string, limit int) ([]types.AlarmHistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	query := `
	SELECT id, alarm_id, current_price, previous_price, message, triggered_at
	FROM alarm_history
	WHERE alarm_id = ?
	ORDER BY triggered_at DESC
	LIMIT ?;`

	rows, err := r.db.Handle().Query(query, alarmID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history for alarm %s: %w", alarmID, err)
	}
	defer rows.Close()

	var entries []types.AlarmHistoryEntry
	for rows.Next() {
		var entry types.AlarmHistoryEntry
		var previousPrice sql.NullFloat64
		err := rows.Scan(&entry.ID, &entry.AlarmID, &entry.CurrentPrice, &previousPrice,
			&entry.Message, &entry.TriggeredAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		if previousPrice.Valid {
			entry.PreviousPrice = &previousPrice.Float64
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}

	return entries, nil
}

// All returns trigger records across alarms, newest first, each enriched with
// its alarm's name and pair for display. The join is LEFT so entries whose
// alarm was deleted still list.
func (r *HistoryRepository) All(limit int) ([]types.AlarmHistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	query := `
	SELECT h.id, h.alarm_id, h.current_price, h.previous_price, h.message, h.triggered_at,
	       COALESCE(a.name, ''), COALESCE(a.pair, '')
	FROM alarm_history h
	LEFT JOIN alarms a ON a.id = h.alarm_id
	ORDER BY h.triggered_at DESC
	LIMIT ?;`

	rows, err := r.db.Handle().Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []types.AlarmHistoryEntry
	for rows.Next() {
		var entry types.AlarmHistoryEntry
		var previousPrice sql.NullFloat64
		err := rows.Scan(&entry.ID, &entry.AlarmID, &entry.CurrentPrice, &previousPrice,
			&entry.Message, &entry.TriggeredAt, &entry.AlarmName, &entry.AlarmPair)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		if previousPrice.Valid {
			entry.PreviousPrice = &previousPrice.Float64
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}

	return entries, nil
}
