package rest

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ewilliams-labs/moodmix/backend/internal/core/domain"
	"github.com/ewilliams-labs/moodmix/backend/internal/core/services"
)

// UserHeader carries the caller identity.
const UserHeader = "X-User-ID"

const (
	errCodeInvalidRequest = "INVALID_REQUEST"
	errCodeLeaseHeld      = "LEASE_HELD"
	errCodeCooldown       = "BUILD_COOLDOWN"
	errCodeQuotaUnmet     = "QUOTA_UNMET"
	errCodeUpstream       = "UPSTREAM_ERROR"
	errCodePlanner        = "PLANNER_FAILED"
	errCodeNotFound       = "NOT_FOUND"
	errCodeInternal       = "INTERNAL"
)

// Handler manages the HTTP interface for our application.
type Handler struct {
	svc    *services.Orchestrator // Dependency on the Core Service
	router *http.ServeMux         // Standard library router
	logger *log.Logger
}

// NewHandler initializes the HTTP adapter and sets up routes.
func NewHandler(svc *services.Orchestrator, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	h := &Handler{
		svc:    svc,
		router: http.NewServeMux(),
		logger: logger.With("component", "rest"),
	}

	// Register Routes
	h.routes()

	return h
}

// ServeHTTP satisfies the http.Handler interface.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// routes defines the mapping between URLs and methods.
func (h *Handler) routes() {
	// Health Check
	h.router.HandleFunc("GET /health", h.HealthCheck)
	// Planning
	h.router.HandleFunc("POST /plan", h.Plan)
	// Playlist Management
	h.router.HandleFunc("POST /playlists/preview", h.PreviewPlaylist)
	h.router.HandleFunc("POST /playlists", h.CreatePlaylist)
	h.router.HandleFunc("GET /playlists", h.ListPlaylists)
	h.router.HandleFunc("GET /playlists/{id}", h.GetPlaylist)
}

// HealthCheck is a simple endpoint to verify the API is running.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "MoodMix is live 🎶"})
}

type errorResponse struct {
	Error             string        `json:"error"`
	Code              string        `json:"code,omitempty"`
	RetryAfterSeconds int           `json:"retry_after_seconds,omitempty"`
	RetryAt           *time.Time    `json:"retry_at,omitempty"`
	LastCreatedAt     *time.Time    `json:"last_created_at,omitempty"`
	Debug             *domain.Debug `json:"debug,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeErrorWithCode(w, status, msg, "")
}

func writeErrorWithCode(w http.ResponseWriter, status int, msg, code string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

func isJSONContentType(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

// userID reads the caller identity, writing a 401 when it is missing.
func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.Header.Get(UserHeader))
	if id == "" {
		writeError(w, http.StatusUnauthorized, UserHeader+" header is required")
		return "", false
	}
	return id, true
}

// decodeJSON checks the content type and decodes the body, writing the
// error response itself on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if !isJSONContentType(r) {
		writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeErrorWithCode(w, http.StatusBadRequest, "Invalid request body", errCodeInvalidRequest)
		return false
	}
	return true
}

// writeServiceError maps core errors onto HTTP statuses.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var (
		held     *domain.LeaseHeldError
		cooldown *domain.CooldownError
		quota    *domain.QuotaError
		upstream *domain.UpstreamError
	)
	switch {
	case errors.As(err, &held):
		secs := retryAfterSeconds(held.RetryAfter)
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		writeJSON(w, http.StatusTooManyRequests, errorResponse{
			Error:             err.Error(),
			Code:              errCodeLeaseHeld,
			RetryAfterSeconds: secs,
		})
	case errors.As(err, &cooldown):
		secs := retryAfterSeconds(cooldown.RetryAfter)
		retryAt, last := cooldown.RetryAt, cooldown.LastCreatedAt
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		writeJSON(w, http.StatusTooManyRequests, errorResponse{
			Error:             err.Error(),
			Code:              errCodeCooldown,
			RetryAfterSeconds: secs,
			RetryAt:           &retryAt,
			LastCreatedAt:     &last,
		})
	case errors.As(err, &quota):
		debug := quota.Debug
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error: domain.ErrQuotaUnmet.Error(),
			Code:  errCodeQuotaUnmet,
			Debug: &debug,
		})
	case errors.As(err, &upstream):
		status := upstream.Status
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		if upstream.RetryAfter != "" {
			w.Header().Set("Retry-After", upstream.RetryAfter)
		}
		h.logger.Warn("upstream failure", "service", upstream.Service, "status", upstream.Status, "error", err)
		writeErrorWithCode(w, status, err.Error(), errCodeUpstream)
	case errors.Is(err, domain.ErrInvalidRequest):
		writeErrorWithCode(w, http.StatusBadRequest, err.Error(), errCodeInvalidRequest)
	case errors.Is(err, domain.ErrPlannerUnavailable), errors.Is(err, domain.ErrInvalidPlan):
		h.logger.Warn("planner failure", "error", err)
		writeErrorWithCode(w, http.StatusBadGateway, err.Error(), errCodePlanner)
	case errors.Is(err, domain.ErrNotFound):
		writeErrorWithCode(w, http.StatusNotFound, "playlist not found", errCodeNotFound)
	default:
		h.logger.Error("request failed", "error", err)
		writeErrorWithCode(w, http.StatusInternalServerError, err.Error(), errCodeInternal)
	}
}

func retryAfterSeconds(d time.Duration) int {
	return max(1, int(d.Seconds()))
}
