package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"cetus-alarm-bot/internal/types"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// ErrAlarmNotFound is returned when an alarm id does not reference an
// existing row.
var ErrAlarmNotFound = errors.New("alarm not found")

const alarmColumns = `id, name, pair, alarm_type, condition, value, base_price, is_active, created_at, updated_at`

// AlarmRepository persists watch rules.
type AlarmRepository struct {
	db *DB
}

func NewAlarmRepository(db *DB) *AlarmRepository {
	return &AlarmRepository{db: db}
}

func validateAlarm(name string, alarmType types.AlarmType, value float64) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("alarm name must not be empty")
	}
	if value <= 0 {
		return fmt.Errorf("alarm value must be positive, got %g", value)
	}
	if alarmType == types.AlarmTypePercentage && value > 100 {
		return fmt.Errorf("percentage alarm value must be at most 100, got %g", value)
	}
	return nil
}

// Create inserts a new alarm. The id and timestamps are assigned here; a new
// alarm starts active and basePrice stays unset unless provided.
func (r *AlarmRepository) Create(name, pair string, alarmType types.AlarmType, condition types.Condition, value float64, basePrice *float64) (*types.Alarm, error) {
	if err := validateAlarm(name, alarmType, value); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	alarm := &types.Alarm{
		ID:        uuid.NewString(),
		Name:      name,
		Pair:      pair,
		AlarmType: alarmType,
		Condition: condition,
		Value:     value,
		BasePrice: basePrice,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	query := `
	INSERT INTO alarms (` + alarmColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`

	_, err := r.db.Handle().Exec(query,
		alarm.ID, alarm.Name, alarm.Pair, string(alarm.AlarmType), string(alarm.Condition),
		alarm.Value, alarm.BasePrice, alarm.IsActive, alarm.CreatedAt, alarm.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert alarm: %w", err)
	}

	log.Debugf("alarm created: id=%s name=%q pair=%s", alarm.ID, alarm.Name, alarm.Pair)
	return alarm, nil
}

// All returns every alarm, newest first.
func (r *AlarmRepository) All() ([]types.Alarm, error) {
	query := `SELECT ` + alarmColumns + ` FROM alarms ORDER BY created_at DESC;`
	return r.queryAlarms(query)
}

// Active returns active alarms, newest first.
func (r *AlarmRepository) Active() ([]types.Alarm, error) {
	query := `SELECT ` + alarmColumns + ` FROM alarms WHERE is_active = 1 ORDER BY created_at DESC;`
	return r.queryAlarms(query)
}

// Get returns a single alarm by id.
func (r *AlarmRepository) Get(id string) (*types.Alarm, error) {
	query := `SELECT ` + alarmColumns + ` FROM alarms WHERE id = ?;`
	row := r.db.Handle().QueryRow(query, id)

	alarm, err := scanAlarm(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAlarmNotFound
		}
		return nil, fmt.Errorf("failed to get alarm: %w", err)
	}
	return alarm, nil
}

// Update merges only the supplied fields onto the row and bumps updated_at.
// The merged state must satisfy the same rules as a new alarm, so an update
// cannot push a percentage alarm past 100 or clear the name.
func (r *AlarmRepository) Update(id string, update types.AlarmUpdate) (*types.Alarm, error) {
	existing, err := r.Get(id)
	if err != nil {
		return nil, err
	}

	merged := *existing
	if update.Name != nil {
		merged.Name = *update.Name
	}
	if update.AlarmType != nil {
		merged.AlarmType = *update.AlarmType
	}
	if update.Value != nil {
		merged.Value = *update.Value
	}
	if err := validateAlarm(merged.Name, merged.AlarmType, merged.Value); err != nil {
		return nil, err
	}

	setParts := []string{}
	args := []interface{}{}

	if update.Name != nil {
		setParts = append(setParts, "name = ?")
		args = append(args, *update.Name)
	}
	if update.Pair != nil {
		setParts = append(setParts, "pair = ?")
		args = append(args, *update.Pair)
	}
	if update.AlarmType != nil {
		setParts = append(setParts, "alarm_type = ?")
		args = append(args, string(*update.AlarmType))
	}
	if update.Condition != nil {
		setParts = append(setParts, "condition = ?")
		args = append(args, string(*update.Condition))
	}
	if update.Value != nil {
		setParts = append(setParts, "value = ?")
		args = append(args, *update.Value)
	}
	if update.BasePrice != nil {
		setParts = append(setParts, "base_price = ?")
		args = append(args, *update.BasePrice)
	}
	if update.IsActive != nil {
		setParts = append(setParts, "is_active = ?")
		args = append(args, *update.IsActive)
	}

	if len(setParts) > 0 {
		setParts = append(setParts, "updated_at = ?")
		args = append(args, time.Now().UTC())
		args = append(args, id)

		query := fmt.Sprintf(`UPDATE alarms SET %s WHERE id = ?;`, strings.Join(setParts, ", "))
		result, err := r.db.Handle().Exec(query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to update alarm: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return nil, ErrAlarmNotFound
		}
	}

	return r.Get(id)
}

// Delete removes an alarm. History rows referencing it are kept.
func (r *AlarmRepository) Delete(id string) error {
	result, err := r.db.Handle().Exec(`DELETE FROM alarms WHERE id = ?;`, id)
	if err != nil {
		return fmt.Errorf("failed to delete alarm: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrAlarmNotFound
	}
	return nil
}

// Toggle flips is_active in a single server-side update so a concurrent field
// update cannot be lost between a read and a write.
func (r *AlarmRepository) Toggle(id string) (*types.Alarm, error) {
	query := `UPDATE alarms SET is_active = NOT is_active, updated_at = ? WHERE id = ?;`
	result, err := r.db.Handle().Exec(query, time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to toggle alarm: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrAlarmNotFound
	}
	return r.Get(id)
}

func (r *AlarmRepository) queryAlarms(query string, args ...interface{}) ([]types.Alarm, error) {
	rows, err := r.db.Handle().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alarms: %w", err)
	}
	defer rows.Close()

	var alarms []types.Alarm
	for rows.Next() {
		alarm, err := scanAlarm(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alarm row: %w", err)
		}
		alarms = append(alarms, *alarm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alarms: %w", err)
	}

	return alarms, nil
}

func scanAlarm(scan func(...interface{}) error) (*types.Alarm, error) {
	var alarm types.Alarm
	var alarmType, condition string
	var basePrice sql.NullFloat64

	err := scan(&alarm.ID, &alarm.Name, &alarm.Pair, &alarmType, &condition,
		&alarm.Value, &basePrice, &alarm.IsActive, &alarm.CreatedAt, &alarm.UpdatedAt)
	if err != nil {
		return nil, err
	}

	alarm.AlarmType = types.AlarmType(alarmType)
	alarm.Condition = types.Condition(condition)
	if basePrice.Valid {
		alarm.BasePrice = &basePrice.Float64
	}
	return &alarm, nil
}
