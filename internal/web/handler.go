package web

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"killfocus/internal/config"
	"killfocus/internal/killer"
	"killfocus/internal/models"
	"killfocus/internal/reporter"
	"killfocus/pkg/utils"
)

// TriggerHeader must accompany kill requests that do not come from the
// dashboard, so a plain cross-site form post cannot trigger a kill.
const TriggerHeader = "X-Killfocus-Trigger"

// Killer runs and previews kill invocations
type Killer interface {
	Run(ctx context.Context) killer.Outcome
	Decide(ctx context.Context) (killer.KillDecision, error)
}

// LatestEventSource returns the most recent focus event, or nil
type LatestEventSource interface {
	GetLatest() (*models.FocusEvent, error)
}

type Handler struct {
	config   *config.Config
	killer   Killer
	latest   LatestEventSource
	reporter *reporter.Reporter
	metrics  http.Handler
	logger   *zap.Logger

	killMu  sync.Mutex
	limiter *rate.Limiter
}

func NewHandler(cfg *config.Config, k Killer, latest LatestEventSource, rep *reporter.Reporter, metrics http.Handler, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		config:   cfg,
		killer:   k,
		latest:   latest,
		reporter: rep,
		metrics:  metrics,
		logger:   logger.Named("web"),
		limiter:  rate.NewLimiter(rate.Every(cfg.Web.KillDebounce), 1),
	}
}

func (h *Handler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/kill", h.handleKill)
	mux.HandleFunc("/api/usage", h.handleUsage)
	mux.HandleFunc("/api/status", h.handleStatus)

	mux.HandleFunc("/health", h.handleHealth)
	if h.metrics != nil {
		mux.Handle("/metrics", h.metrics)
	}

	mux.HandleFunc("/", h.handleIndex)
}

// handleKill runs one invocation. Overlapping triggers get 409 and
// triggers inside the debounce interval get 429. With dry_run=true only
// the decision is returned.
func (h *Handler) handleKill(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if r.Header.Get(TriggerHeader) == "" && r.Header.Get("HX-Request") != "true" {
		http.Error(w, "Missing "+TriggerHeader+" header", http.StatusForbidden)
		return
	}

	if dry, _ := strconv.ParseBool(r.URL.Query().Get("dry_run")); dry {
		decision, err := h.killer.Decide(r.Context())
		if err != nil {
			respondError(w, http.StatusBadGateway, fmt.Sprintf("Failed to resolve target: %v", err))
			return
		}
		respondJSON(w, http.StatusOK, decision)
		return
	}

	if !h.killMu.TryLock() {
		respondError(w, http.StatusConflict, "A kill is already in progress")
		return
	}
	defer h.killMu.Unlock()

	if !h.limiter.Allow() {
		respondError(w, http.StatusTooManyRequests, "Kill triggered too soon after the previous one")
		return
	}

	outcome := h.killer.Run(r.Context())

	if r.Header.Get("HX-Request") == "true" {
		h.respondOutcomeHTML(w, outcome)
		return
	}

	respondJSON(w, outcomeStatus(outcome), map[string]interface{}{
		"outcome": outcome,
		"error":   outcome.ErrorMessage(),
	})
}

func outcomeStatus(o killer.Outcome) int {
	switch o.Reason {
	case killer.ReasonPermissionDenied:
		return http.StatusForbidden
	case killer.ReasonLockTaskActive:
		return http.StatusLocked
	case killer.ReasonRemoteFailure:
		return http.StatusBadGateway
	default:
		return http.StatusOK
	}
}

func (h *Handler) respondOutcomeHTML(w http.ResponseWriter, o killer.Outcome) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	msg := fmt.Sprintf("Nothing killed (%s)", o.Reason)
	if o.Killed {
		msg = fmt.Sprintf("Killed %s", o.DisplayName)
	}
	fmt.Fprintf(w, `<div class="outcome">%s</div>`, html.EscapeString(msg))
}

func (h *Handler) handleUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	view, err := h.reporter.GenerateUsage(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to generate usage: %v", err))
		return
	}

	if r.Header.Get("HX-Request") == "true" {
		h.respondUsageHTML(w, view)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

func (h *Handler) respondUsageHTML(w http.ResponseWriter, view *reporter.UsageView) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if len(view.Rows) == 0 {
		w.Write([]byte(`<div class="loading">No data available</div>`))
		return
	}

	out := `<div class="listing">`
	for _, row := range view.Rows {
		class := "app-item"
		if row.Protected {
			class += " protected"
		}
		if row.Selected {
			class += " selected"
		}
		ago := utils.FormatAgo(view.End, row.LastUsed)
		out += fmt.Sprintf(`
		<div class="%s">
			<span class="app-name">%s</span>
			<div>
				<span class="app-event">%s</span>
				<span class="app-time">%s ago</span>
			</div>
		</div>`, class, html.EscapeString(row.PackageID), row.EventType, ago)
	}
	out += `</div>`

	w.Write([]byte(out))
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := map[string]interface{}{
		"running":        true,
		"poll_interval":  h.config.Tracker.PollInterval.String(),
		"database_path":  h.config.Database.Path,
		"kill_enabled":   h.config.Killer.Enabled,
		"usage_window":   h.config.Killer.UsageWindow.String(),
		"system_ui":      h.config.Killer.SystemUIPackage,
		"fallback_home":  h.config.Killer.FallbackHomePackage,
		"kiosk_mode":     h.config.Killer.KioskMode,
		"kill_debounce":  h.config.Web.KillDebounce.String(),
		"active_user_id": h.config.Killer.UserID,
	}

	if h.latest != nil {
		latestEvent, err := h.latest.GetLatest()
		if err != nil {
			h.logger.Warn("Failed to fetch latest event", zap.Error(err))
		}
		if latestEvent != nil {
			status["latest_event"] = map[string]interface{}{
				"app_name":       latestEvent.AppName,
				"event_type":     latestEvent.EventType,
				"window_title":   latestEvent.WindowTitle,
				"timestamp":      latestEvent.Timestamp,
				"display_server": latestEvent.DisplayServer,
			}
		}
	}

	respondJSON(w, http.StatusOK, status)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexHTML))
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
	w.Write([]byte("\n"))
}
