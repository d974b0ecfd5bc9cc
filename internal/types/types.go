package types

import "time"

// AlarmType selects how an alarm's threshold value is interpreted.
type AlarmType string

// Condition selects the direction of the comparison.
type Condition string

const (
	AlarmTypePercentage AlarmType = "PERCENTAGE"
	AlarmTypeAbsolute   AlarmType = "ABSOLUTE"

	ConditionAbove Condition = "ABOVE"
	ConditionBelow Condition = "BELOW"
)

// Alarm is a user-defined watch rule on a trading pair.
type Alarm struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Pair      string    `json:"pair"`
	AlarmType AlarmType `json:"alarmType"`
	Condition Condition `json:"condition"`
	Value     float64   `json:"value"`
	BasePrice *float64  `json:"basePrice"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AlarmUpdate carries a partial update; nil fields are left untouched.
type AlarmUpdate struct {
	Name      *string    `json:"name"`
	Pair      *string    `json:"pair"`
	AlarmType *AlarmType `json:"alarmType"`
	Condition *Condition `json:"condition"`
	Value     *float64   `json:"value"`
	BasePrice *float64   `json:"basePrice"`
	IsActive  *bool      `json:"isActive"`
}

// AlarmHistoryEntry records a past trigger. Entries are append-only; AlarmName
// and AlarmPair are filled on read when listing across alarms.
type AlarmHistoryEntry struct {
	ID            string    `json:"id"`
	AlarmID       string    `json:"alarmId"`
	CurrentPrice  float64   `json:"currentPrice"`
	PreviousPrice *float64  `json:"previousPrice"`
	Message       string    `json:"message"`
	TriggeredAt   time.Time `json:"triggeredAt"`

	AlarmName string `json:"alarmName,omitempty"`
	AlarmPair string `json:"alarmPair,omitempty"`
}

// Settings is the single global configuration row.
type Settings struct {
	ID                   string  `json:"id"`
	TelegramBotToken     *string `json:"telegramBotToken"`
	TelegramChatID       *string `json:"telegramChatId"`
	CheckInterval        int     `json:"checkInterval"`
	NotificationsEnabled bool    `json:"notificationsEnabled"`
}

// SettingsUpdate carries a partial settings update; nil fields are left untouched.
type SettingsUpdate struct {
	TelegramBotToken     *string `json:"telegramBotToken"`
	TelegramChatID       *string `json:"telegramChatId"`
	CheckInterval        *int    `json:"checkInterval"`
	NotificationsEnabled *bool   `json:"notificationsEnabled"`
}
