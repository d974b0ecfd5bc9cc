package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"cetus-alarm-bot/config"
	"cetus-alarm-bot/internal/api"
	"cetus-alarm-bot/internal/database"
	"cetus-alarm-bot/internal/metrics"
	"cetus-alarm-bot/internal/monitor"
	"cetus-alarm-bot/internal/price"

	"github.com/leonelquinteros/gotext"
	log "github.com/sirupsen/logrus"
)

func init() {
	config.InitConfig()
	setupLogging()
}

func setupLogging() {
	log.SetLevel(log.InfoLevel)
	if config.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}
	log.Debug("starting cetus-alarm-bot...")
}

func main() {
	gotext.Configure("locales", strings.ToLower(config.GetString("lang")), "default")

	dbPath, err := database.DatabaseLocation(config.GetString("data_dir"))
	if err != nil {
		log.Fatalf("failed to resolve database location: %v", err)
	}
	log.Infof("database path: %s", dbPath)

	db := database.New(dbPath)
	settingsRepo := database.NewSettingsRepository(db)
	alarmRepo := database.NewAlarmRepository(db)
	historyRepo := database.NewHistoryRepository(db)

	initializer := database.NewInitializer(db, settingsRepo)
	if err := initializer.Initialize(); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	m := metrics.New()
	m.LoadFromDB(db)

	ctx, cancel := context.WithCancel(context.Background())

	watcher := price.NewWatcher(price.NewClient(config.GetString("price_network")))
	watcher.Start(ctx)

	checker := monitor.New(alarmRepo, historyRepo, settingsRepo, watcher, m)
	checker.Start()

	// Teardown happens here and nowhere else: ListenAndServe below never
	// returns on a clean shutdown.
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		cancel()
		m.SaveToDB(db)
		initializer.Disconnect()
		log.Info("metrics saved, shutting down...")
		os.Exit(0)
	}()

	server := api.NewServer(alarmRepo, historyRepo, settingsRepo, initializer, m)
	if err := server.ListenAndServe(config.GetInt("api_port")); err != nil {
		log.Fatalf("failed to start API server: %v", err)
	}
}
