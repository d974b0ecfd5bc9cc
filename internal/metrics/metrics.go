package metrics

import (
	"cetus-alarm-bot/internal/database"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	log "github.com/sirupsen/logrus"
)

// Metrics holds the service counters. Trigger and notification counts are
// persisted to the database so they survive restarts.
type Metrics struct {
	AlarmsTriggered   prometheus.Counter
	NotificationsSent prometheus.Counter
	PriceFetchErrors  prometheus.Counter
	RequestsHandled   *prometheus.CounterVec
}

func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the counters on the given registry; tests pass their own.
func NewWith(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AlarmsTriggered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cetus",
			Subsystem: "alarm_bot",
			Name:      "alarms_triggered",
			Help:      "The total number of triggered alarms",
		}),
		NotificationsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cetus",
			Subsystem: "alarm_bot",
			Name:      "notifications_sent",
			Help:      "The total number of delivered notifications",
		}),
		PriceFetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cetus",
			Subsystem: "alarm_bot",
			Name:      "price_fetch_errors",
			Help:      "The total number of failed price feed requests",
		}),
		RequestsHandled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cetus",
				Subsystem: "alarm_bot",
				Name:      "requests_handled",
				Help:      "The total number of handled API requests per operation",
			},
			[]string{"operation"},
		),
	}

	reg.MustRegister(m.AlarmsTriggered)
	reg.MustRegister(m.NotificationsSent)
	reg.MustRegister(m.PriceFetchErrors)
	reg.MustRegister(m.RequestsHandled)

	return m
}

// LoadFromDB restores the persisted counters.
func (m *Metrics) LoadFromDB(db *database.DB) {
	m.AlarmsTriggered.Add(loadMetric(db, "alarms_triggered"))
	m.NotificationsSent.Add(loadMetric(db, "notifications_sent"))
	log.Debug("metrics loaded from database")
}

// SaveToDB persists the counters.
func (m *Metrics) SaveToDB(db *database.DB) {
	saveMetric(db, "alarms_triggered", CounterValue(m.AlarmsTriggered))
	saveMetric(db, "notifications_sent", CounterValue(m.NotificationsSent))
	log.Debug("metrics saved to database")
}

func loadMetric(db *database.DB, name string) float64 {
	var value float64
	query := `SELECT metric_value FROM metrics WHERE metric_name = ?;`
	if err := db.Handle().QueryRow(query, name).Scan(&value); err != nil {
		log.Debugf("metric %s not found, defaulting to 0", name)
		return 0
	}
	return value
}

func saveMetric(db *database.DB, name string, value float64) {
	query := `INSERT OR REPLACE INTO metrics (metric_name, metric_value) VALUES (?, ?);`
	if _, err := db.Handle().Exec(query, name, value); err != nil {
		log.Errorf("failed to save metric %s: %v", name, err)
	}
}

// CounterValue reads the current value of a counter.
func CounterValue(metric prometheus.Collector) float64 {
	metricChan := make(chan prometheus.Metric, 1)
	metric.Collect(metricChan)
	close(metricChan)

	metricProto := &dto.Metric{}
	if err := (<-metricChan).Write(metricProto); err != nil {
		log.Errorf("failed to read metric value: %v", err)
		return 0
	}

	if metricProto.Counter != nil {
		return metricProto.Counter.GetValue()
	}
	if metricProto.Gauge != nil {
		return metricProto.Gauge.GetValue()
	}
	return 0
}
