package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"cetus-alarm-bot/internal/database"
	"cetus-alarm-bot/internal/metrics"
	"cetus-alarm-bot/internal/types"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// Envelope is the uniform response wrapper of every boundary operation. A
// failure is always reported through Success=false and Error; no error ever
// crosses this layer in another form.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Server exposes the repositories to the presentation layer as
// request/response pairs over loopback HTTP.
type Server struct {
	alarms      *database.AlarmRepository
	history     *database.HistoryRepository
	settings    *database.SettingsRepository
	initializer *database.Initializer
	metrics     *metrics.Metrics
}

func NewServer(alarms *database.AlarmRepository, history *database.HistoryRepository, settings *database.SettingsRepository, initializer *database.Initializer, m *metrics.Metrics) *Server {
	return &Server{
		alarms:      alarms,
		history:     history,
		settings:    settings,
		initializer: initializer,
		metrics:     m,
	}
}

// Handler builds the route table, including the health and metrics endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/test-connection", s.operation("test-connection", s.handleTestConnection))
	mux.HandleFunc("GET /api/settings", s.operation("get-settings", s.handleGetSettings))
	mux.HandleFunc("POST /api/settings", s.operation("update-settings", s.handleUpdateSettings))
	mux.HandleFunc("GET /api/alarms", s.operation("get-alarms", s.handleGetAlarms))
	mux.HandleFunc("POST /api/alarms", s.operation("create-alarm", s.handleCreateAlarm))
	mux.HandleFunc("POST /api/alarms/update", s.operation("update-alarm", s.handleUpdateAlarm))
	mux.HandleFunc("POST /api/alarms/delete", s.operation("delete-alarm", s.handleDeleteAlarm))
	mux.HandleFunc("POST /api/alarms/toggle", s.operation("toggle-alarm", s.handleToggleAlarm))
	mux.HandleFunc("GET /api/history", s.operation("get-alarm-history", s.handleGetHistory))

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return mux
}

// ListenAndServe runs the API server on the given port.
func (s *Server) ListenAndServe(port int) error {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Infof("launching API server on %s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// operation wraps a handler with the request counter and a catch-all so a
// panicking repository call still answers with an error envelope.
func (s *Server) operation(name string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Errorf("recovered from panic in %s: %v", name, rec)
				writeEnvelope(w, Envelope{Success: false, Error: fmt.Sprintf("internal error: %v", rec)})
			}
		}()

		s.metrics.RequestsHandled.WithLabelValues(name).Inc()
		h(w, r)
	}
}

func writeEnvelope(w http.ResponseWriter, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(env); err != nil {
		log.Errorf("failed to encode response: %v", err)
	}
}

func (s *Server) ok(w http.ResponseWriter, data interface{}) {
	writeEnvelope(w, Envelope{Success: true, Data: data})
}

func (s *Server) fail(w http.ResponseWriter, operation string, err error) {
	log.Errorf("%s failed: %v", operation, err)
	writeEnvelope(w, Envelope{Success: false, Error: err.Error()})
}

func (s *Server) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	s.ok(w, s.initializer.TestConnection())
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.settings.Get()
	if err != nil {
		s.fail(w, "get-settings", err)
		return
	}
	s.ok(w, settings)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var update types.SettingsUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		s.fail(w, "update-settings", fmt.Errorf("invalid request body: %w", err))
		return
	}

	settings, err := s.settings.Upsert(update)
	if err != nil {
		s.fail(w, "update-settings", err)
		return
	}
	s.ok(w, settings)
}

func (s *Server) handleGetAlarms(w http.ResponseWriter, r *http.Request) {
	alarms, err := s.alarms.All()
	if err != nil {
		s.fail(w, "get-alarms", err)
		return
	}
	if alarms == nil {
		alarms = []types.Alarm{}
	}
	s.ok(w, alarms)
}

type createAlarmRequest struct {
	Name      string          `json:"name"`
	Pair      string          `json:"pair"`
	AlarmType types.AlarmType `json:"alarmType"`
	Condition types.Condition `json:"condition"`
	Value     float64         `json:"value"`
	BasePrice *float64        `json:"basePrice"`
}

func (s *Server) handleCreateAlarm(w http.ResponseWriter, r *http.Request) {
	var req createAlarmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, "create-alarm", fmt.Errorf("invalid request body: %w", err))
		return
	}

	alarm, err := s.alarms.Create(req.Name, req.Pair, req.AlarmType, req.Condition, req.Value, req.BasePrice)
	if err != nil {
		s.fail(w, "create-alarm", err)
		return
	}
	s.ok(w, alarm)
}

type updateAlarmRequest struct {
	ID string `json:"id"`
	types.AlarmUpdate
}

func (s *Server) handleUpdateAlarm(w http.ResponseWriter, r *http.Request) {
	var req updateAlarmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, "update-alarm", fmt.Errorf("invalid request body: %w", err))
		return
	}

	alarm, err := s.alarms.Update(req.ID, req.AlarmUpdate)
	if err != nil {
		s.fail(w, "update-alarm", err)
		return
	}
	s.ok(w, alarm)
}

type alarmIDRequest struct {
	ID string `json:"id"`
}

func (s *Server) handleDeleteAlarm(w http.ResponseWriter, r *http.Request) {
	var req alarmIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, "delete-alarm", fmt.Errorf("invalid request body: %w", err))
		return
	}

	if err := s.alarms.Delete(req.ID); err != nil {
		s.fail(w, "delete-alarm", err)
		return
	}
	s.ok(w, nil)
}

func (s *Server) handleToggleAlarm(w http.ResponseWriter, r *http.Request) {
	var req alarmIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, "toggle-alarm", fmt.Errorf("invalid request body: %w", err))
		return
	}

	alarm, err := s.alarms.Toggle(req.ID)
	if err != nil {
		s.fail(w, "toggle-alarm", err)
		return
	}
	s.ok(w, alarm)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			s.fail(w, "get-alarm-history", fmt.Errorf("invalid limit %q: %w", raw, err))
			return
		}
		limit = parsed
	}

	var entries []types.AlarmHistoryEntry
	var err error
	if alarmID := r.URL.Query().Get("alarmId"); alarmID != "" {
		entries, err = s.history.ForAlarm(alarmID, limit)
	} else {
		entries, err = s.history.All(limit)
	}
	if err != nil {
		s.fail(w, "get-alarm-history", err)
		return
	}
	if entries == nil {
		entries = []types.AlarmHistoryEntry{}
	}
	s.ok(w, entries)
}
