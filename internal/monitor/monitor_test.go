package monitor

import (
	"path/filepath"
	"testing"
	"time"

	"cetus-alarm-bot/internal/database"
	"cetus-alarm-bot/internal/metrics"
	"cetus-alarm-bot/internal/price"
	"cetus-alarm-bot/internal/types"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPricer map[string]float64

func (s stubPricer) PairPrice(pair string) (float64, bool) {
	p, ok := s[pair]
	return p, ok
}

func (s stubPricer) Snapshot(pair string) (price.PoolPrice, bool) {
	p, ok := s[pair]
	return price.PoolPrice{BaseTokenUSD: p, QuoteTokenUSD: 1}, ok
}

func setupMonitor(t *testing.T, prices PairPricer) (*Monitor, *database.AlarmRepository, *database.HistoryRepository) {
	t.Helper()

	db := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, db.Connect())
	t.Cleanup(func() { db.Disconnect() })

	alarms := database.NewAlarmRepository(db)
	history := database.NewHistoryRepository(db)
	settings := database.NewSettingsRepository(db)
	_, err := settings.SeedDefaults()
	require.NoError(t, err)

	m := metrics.NewWith(prometheus.NewRegistry())
	return New(alarms, history, settings, prices, m), alarms, history
}

func TestCheckAlarms_TriggersAndDeactivates(t *testing.T) {
	mon, alarms, history := setupMonitor(t, stubPricer{"SUI/USDC": 3.0})

	alarm, err := alarms.Create("abs", "SUI/USDC", types.AlarmTypeAbsolute, types.ConditionAbove, 2.5, nil)
	require.NoError(t, err)

	mon.CheckAlarms()

	stored, err := alarms.Get(alarm.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive, "triggered alarm is deactivated, not deleted")

	entries, err := history.ForAlarm(alarm.ID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 3.0, entries[0].CurrentPrice)
	assert.NotEmpty(t, entries[0].Message)
}

func TestCheckAlarms_SetsBasePriceFirst(t *testing.T) {
	mon, alarms, history := setupMonitor(t, stubPricer{"SUI/USDC": 2.0})

	alarm, err := alarms.Create("pct", "SUI/USDC", types.AlarmTypePercentage, types.ConditionAbove, 1, nil)
	require.NoError(t, err)

	// First round only records the reference price, even though any change
	// threshold would be met against a zero base.
	mon.CheckAlarms()

	stored, err := alarms.Get(alarm.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.BasePrice)
	assert.Equal(t, 2.0, *stored.BasePrice)
	assert.True(t, stored.IsActive)

	entries, err := history.ForAlarm(alarm.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCheckAlarms_BelowThresholdStaysActive(t *testing.T) {
	mon, alarms, history := setupMonitor(t, stubPricer{"SUI/USDC": 2.0})

	alarm, err := alarms.Create("abs", "SUI/USDC", types.AlarmTypeAbsolute, types.ConditionAbove, 2.5, nil)
	require.NoError(t, err)

	mon.CheckAlarms()

	stored, err := alarms.Get(alarm.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsActive)

	entries, err := history.ForAlarm(alarm.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCheckAlarms_SkipsUnknownPair(t *testing.T) {
	mon, alarms, history := setupMonitor(t, stubPricer{})

	alarm, err := alarms.Create("abs", "NOPE/USDC", types.AlarmTypeAbsolute, types.ConditionAbove, 1, nil)
	require.NoError(t, err)

	mon.CheckAlarms()

	stored, err := alarms.Get(alarm.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsActive)

	entries, err := history.ForAlarm(alarm.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// flakyPricer panics on its first call and answers normally afterwards.
type flakyPricer struct {
	inner stubPricer
	calls int
}

func (p *flakyPricer) PairPrice(pair string) (float64, bool) {
	p.calls++
	if p.calls == 1 {
		panic("price feed blew up")
	}
	return p.inner.PairPrice(pair)
}

func (p *flakyPricer) Snapshot(pair string) (price.PoolPrice, bool) {
	return p.inner.Snapshot(pair)
}

func TestCheckAlarms_PanicReleasesLock(t *testing.T) {
	pricer := &flakyPricer{inner: stubPricer{"SUI/USDC": 3.0}}
	mon, alarms, history := setupMonitor(t, pricer)

	alarm, err := alarms.Create("abs", "SUI/USDC", types.AlarmTypeAbsolute, types.ConditionAbove, 2.5, nil)
	require.NoError(t, err)

	require.Panics(t, func() { mon.CheckAlarms() })

	// The round after a panic must not block on the mutex the panicking
	// round held.
	done := make(chan struct{})
	go func() {
		mon.CheckAlarms()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("round after a panic never ran")
	}

	stored, err := alarms.Get(alarm.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	entries, err := history.ForAlarm(alarm.ID, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCheckAlarms_IgnoresInactiveAlarms(t *testing.T) {
	mon, alarms, history := setupMonitor(t, stubPricer{"SUI/USDC": 10.0})

	alarm, err := alarms.Create("abs", "SUI/USDC", types.AlarmTypeAbsolute, types.ConditionAbove, 1, nil)
	require.NoError(t, err)
	_, err = alarms.Toggle(alarm.ID)
	require.NoError(t, err)

	mon.CheckAlarms()

	entries, err := history.ForAlarm(alarm.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
