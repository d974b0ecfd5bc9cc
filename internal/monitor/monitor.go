package monitor

import (
	"sync"
	"time"

	"cetus-alarm-bot/internal/database"
	"cetus-alarm-bot/internal/metrics"
	"cetus-alarm-bot/internal/price"
	"cetus-alarm-bot/internal/telegram"
	"cetus-alarm-bot/internal/types"

	log "github.com/sirupsen/logrus"
)

// PairPricer resolves a trading-pair symbol to its current price and to the
// cached pool snapshot behind it.
type PairPricer interface {
	PairPrice(pair string) (float64, bool)
	Snapshot(pair string) (price.PoolPrice, bool)
}

// Monitor runs the periodic poll-and-compare loop: every check interval it
// reads the active alarms, compares them against the cached pair prices,
// appends a history entry per trigger and sends a notification. A triggered
// alarm is deactivated, not deleted, so its row and history stay around.
type Monitor struct {
	alarms   *database.AlarmRepository
	history  *database.HistoryRepository
	settings *database.SettingsRepository
	watcher  PairPricer
	metrics  *metrics.Metrics

	mu sync.Mutex
}

func New(alarms *database.AlarmRepository, history *database.HistoryRepository, settings *database.SettingsRepository, watcher PairPricer, m *metrics.Metrics) *Monitor {
	return &Monitor{
		alarms:   alarms,
		history:  history,
		settings: settings,
		watcher:  watcher,
		metrics:  m,
	}
}

// Start launches the background check loop. The interval is re-read from
// settings on every round so changes apply on the next tick.
func (m *Monitor) Start() {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("panic recovered in alarm checker: %v, restarting in 10 seconds", r)
				time.Sleep(10 * time.Second)
				m.Start()
			}
		}()

		for {
			m.CheckAlarms()
			time.Sleep(m.checkInterval())
		}
	}()
	log.Info("alarm monitor started")
}

func (m *Monitor) checkInterval() time.Duration {
	settings, err := m.settings.Get()
	if err != nil || settings == nil {
		return database.DefaultCheckInterval * time.Minute
	}
	return time.Duration(settings.CheckInterval) * time.Minute
}

// CheckAlarms runs one evaluation round over all active alarms. Rounds never
// overlap, and the lock is released even when a round panics so the restarted
// loop can make progress.
func (m *Monitor) CheckAlarms() {
	m.mu.Lock()
	defer m.mu.Unlock()

	log.Debug("checking alarms...")

	alarms, err := m.alarms.Active()
	if err != nil {
		log.Errorf("failed to fetch active alarms: %v", err)
		return
	}

	for i := range alarms {
		alarm := &alarms[i]

		currentPrice, exists := m.watcher.PairPrice(alarm.Pair)
		if !exists {
			m.metrics.PriceFetchErrors.Inc()
			log.Warnf("no price data for pair %s (alarm %s)", alarm.Pair, alarm.ID)
			continue
		}

		// A fresh percentage alarm has no reference point yet; record the
		// first observed price as its base and evaluate from the next round.
		if alarm.AlarmType == types.AlarmTypePercentage && alarm.BasePrice == nil {
			if _, err := m.alarms.Update(alarm.ID, types.AlarmUpdate{BasePrice: &currentPrice}); err != nil {
				log.Errorf("failed to set base price for alarm %s: %v", alarm.ID, err)
			}
			continue
		}

		snapshot, _ := m.watcher.Snapshot(alarm.Pair)
		triggered, message := Evaluate(alarm, currentPrice, snapshot.Volume24hUSD)
		if !triggered {
			continue
		}

		log.Infof("alarm triggered: id=%s name=%q pair=%s price=%g", alarm.ID, alarm.Name, alarm.Pair, currentPrice)
		m.metrics.AlarmsTriggered.Inc()

		if _, err := m.history.Append(alarm.ID, currentPrice, alarm.BasePrice, message); err != nil {
			log.Errorf("failed to append history for alarm %s: %v", alarm.ID, err)
		}

		inactive := false
		if _, err := m.alarms.Update(alarm.ID, types.AlarmUpdate{IsActive: &inactive}); err != nil {
			log.Errorf("failed to deactivate alarm %s: %v", alarm.ID, err)
		}

		m.notify(message)
	}

	log.Debug("alarm check completed")
}

func (m *Monitor) notify(message string) {
	settings, err := m.settings.Get()
	if err != nil {
		log.Errorf("failed to load settings for notification: %v", err)
		return
	}
	if settings == nil || !settings.NotificationsEnabled {
		return
	}
	if settings.TelegramBotToken == nil || settings.TelegramChatID == nil {
		log.Debug("telegram not configured, skipping notification")
		return
	}

	notifier, err := telegram.NewNotifierFromSettings(*settings.TelegramBotToken, *settings.TelegramChatID)
	if err != nil {
		log.Errorf("failed to create notifier: %v", err)
		return
	}

	if err := notifier.Send(message); err != nil {
		log.Errorf("failed to send notification: %v", err)
		return
	}
	m.metrics.NotificationsSent.Inc()
}
