package database

import (
	"path/filepath"
	"testing"

	"cetus-alarm-bot/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInitializer(t *testing.T) (*DB, *Initializer) {
	t.Helper()

	db := New(filepath.Join(t.TempDir(), "test.db"))
	init := NewInitializer(db, NewSettingsRepository(db))
	t.Cleanup(init.Disconnect)

	return db, init
}

func TestInitialize_SeedsDefaults(t *testing.T) {
	db, init := newTestInitializer(t)

	require.NoError(t, init.Initialize())

	settings, err := NewSettingsRepository(db).Get()
	require.NoError(t, err)
	require.NotNil(t, settings)
	assert.Equal(t, DefaultCheckInterval, settings.CheckInterval)
	assert.True(t, settings.NotificationsEnabled)
}

func TestInitialize_Idempotent(t *testing.T) {
	db, init := newTestInitializer(t)

	require.NoError(t, init.Initialize())
	require.NoError(t, init.Initialize())

	var count int
	require.NoError(t, db.Handle().QueryRow(`SELECT COUNT(*) FROM settings`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestTestConnection_ReportsCounts(t *testing.T) {
	db, init := newTestInitializer(t)
	require.NoError(t, init.Initialize())

	alarms := NewAlarmRepository(db)
	_, err := alarms.Create("one", "SUI/USDC", types.AlarmTypeAbsolute, types.ConditionAbove, 1, nil)
	require.NoError(t, err)
	_, err = alarms.Create("two", "SUI/USDC", types.AlarmTypeAbsolute, types.ConditionBelow, 2, nil)
	require.NoError(t, err)

	status := init.TestConnection()
	assert.True(t, status.Connected)
	assert.Equal(t, 2, status.Alarms)
	assert.Equal(t, 0, status.History)
	assert.Equal(t, 1, status.Settings)
}

func TestTestConnection_OpensConnectionItself(t *testing.T) {
	_, init := newTestInitializer(t)

	// No Initialize call first; the health check connects on its own.
	status := init.TestConnection()
	assert.True(t, status.Connected)
	assert.Equal(t, 0, status.Alarms)
}

func TestDisconnect_SafeWhenNeverConnected(t *testing.T) {
	_, init := newTestInitializer(t)

	init.Disconnect()
	init.Disconnect()
}

func TestConnect_IdempotentAndDisconnectTwice(t *testing.T) {
	db := New(filepath.Join(t.TempDir(), "test.db"))

	require.NoError(t, db.Connect())
	handle := db.Handle()
	require.NoError(t, db.Connect())
	assert.Same(t, handle, db.Handle())

	require.NoError(t, db.Disconnect())
	require.NoError(t, db.Disconnect())
	assert.Nil(t, db.Handle())
}
