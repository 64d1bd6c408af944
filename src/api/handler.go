package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/pgpulse/pgpulse/src/models"
	"github.com/pgpulse/pgpulse/src/monitor"
)

// Handler exposes the engine over HTTP.
type Handler struct {
	engine *monitor.Engine
	log    *logrus.Logger
}

// NewHandler creates a new API handler.
func NewHandler(engine *monitor.Engine, log *logrus.Logger) *Handler {
	return &Handler{
		engine: engine,
		log:    log,
	}
}

// RegisterRoutes registers all API routes.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.Health).Methods("GET")

	r.HandleFunc("/api/v1/metrics", h.GetMetrics).Methods("GET")
	r.HandleFunc("/api/v1/issues", h.GetIssues).Methods("GET")
	r.HandleFunc("/api/v1/history", h.GetHistory).Methods("GET")
	r.HandleFunc("/api/v1/report", h.GetReport).Methods("GET")
	r.HandleFunc("/api/v1/dashboard", h.GetDashboard).Methods("GET")
	r.HandleFunc("/api/v1/thresholds", h.GetThresholds).Methods("GET")
	r.HandleFunc("/api/v1/thresholds", h.PutThresholds).Methods("PUT")
}

// Health returns the engine's verdict: 200 when healthy, 503 otherwise.
// "Monitoring unavailable" reasons indicate the engine cannot observe the
// database, which is distinct from the database being unhealthy.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	healthy, reasons := h.engine.Health()

	statusCode := http.StatusOK
	if !healthy {
		statusCode = http.StatusServiceUnavailable
	}

	h.respondJSON(w, statusCode, map[string]interface{}{
		"healthy": healthy,
		"reasons": reasons,
	})
}

// GetMetrics returns the latest snapshot.
func (h *Handler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := h.engine.Latest()
	if !ok {
		h.respondError(w, http.StatusServiceUnavailable, "no snapshot collected yet")
		return
	}

	h.respondJSON(w, http.StatusOK, snapshot)
}

// GetIssues returns the issues of the latest snapshot.
func (h *Handler) GetIssues(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := h.engine.Latest()
	if !ok {
		h.respondError(w, http.StatusServiceUnavailable, "no snapshot collected yet")
		return
	}

	h.respondJSON(w, http.StatusOK, snapshot.Issues)
}

// GetHistory returns the snapshots within the requested window
// (default 1h), oldest first.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	window := time.Hour
	if param := r.URL.Query().Get("window"); param != "" {
		d, err := time.ParseDuration(param)
		if err != nil || d <= 0 {
			h.respondError(w, http.StatusBadRequest, "invalid window duration")
			return
		}
		window = d
	}

	h.respondJSON(w, http.StatusOK, h.engine.Window(window))
}

// GetReport returns the current report, as markdown by default or as JSON
// with ?format=json.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("format") == "json" {
		report, err := h.engine.Report()
		if err != nil {
			h.respondReportError(w, err)
			return
		}
		h.respondJSON(w, http.StatusOK, report)
		return
	}

	markdown, err := h.engine.ReportMarkdown()
	if err != nil {
		h.respondReportError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(markdown)); err != nil {
		h.log.Errorf("Failed to write report response: %v", err)
	}
}

func (h *Handler) respondReportError(w http.ResponseWriter, err error) {
	if errors.Is(err, monitor.ErrNoSnapshot) {
		h.respondError(w, http.StatusServiceUnavailable, "no snapshot collected yet")
		return
	}
	h.respondError(w, http.StatusInternalServerError, err.Error())
}

// GetDashboard returns the data contract the UI layer consumes. While
// monitoring is unavailable the score is pinned to 0 even when a stale
// snapshot is still retained; a snapshot the engine can no longer refresh
// must not present as a healthy score.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := h.engine.Latest()
	status := h.engine.Status()

	if !ok || status.Unavailable {
		h.respondJSON(w, http.StatusOK, Dashboard{
			Healthy:         false,
			Score:           0,
			Alerts:          status.Reasons,
			Breakdown:       map[string]int{},
			Recommendations: []string{},
		})
		return
	}

	h.respondJSON(w, http.StatusOK, buildDashboard(snapshot, status.Healthy, status.Reasons))
}

// GetThresholds returns the active alert thresholds.
func (h *Handler) GetThresholds(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.engine.Thresholds())
}

// PutThresholds replaces the alert thresholds wholesale. Partial documents
// are rejected by validation rather than merged.
func (h *Handler) PutThresholds(w http.ResponseWriter, r *http.Request) {
	var thresholds models.AlertThresholds
	if err := json.NewDecoder(r.Body).Decode(&thresholds); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.engine.SetThresholds(thresholds); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, thresholds)
}

// respondJSON sends a JSON response.
func (h *Handler) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError sends an error response.
func (h *Handler) respondError(w http.ResponseWriter, statusCode int, message string) {
	h.respondJSON(w, statusCode, map[string]string{"error": message})
}
