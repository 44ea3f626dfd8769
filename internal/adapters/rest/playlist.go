package rest

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ewilliams-labs/moodmix/backend/internal/core/domain"
	"github.com/ewilliams-labs/moodmix/backend/internal/core/services"
)

type previewRequest struct {
	Plan   *domain.MoodPlan `json:"plan"`
	Length int              `json:"length"`
}

type createPlaylistRequest struct {
	Mood          string           `json:"mood"`
	Plan          *domain.MoodPlan `json:"plan"`
	Length        int              `json:"length"`
	Name          string           `json:"name"`
	Public        bool             `json:"public"`
	Collaborative bool             `json:"collaborative"`
}

type createPlaylistResponse struct {
	Playlist playlistView        `json:"playlist"`
	Preview  domain.BuildPreview `json:"preview"`
}

const defaultListLimit = 50

type listPlaylistsResponse struct {
	Count      int            `json:"count"`
	Limit      int            `json:"limit"`
	Offset     int            `json:"offset"`
	NextOffset *int           `json:"next_offset"`
	Results    []playlistView `json:"results"`
}

// PreviewPlaylist handles POST /playlists/preview
func (h *Handler) PreviewPlaylist(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}

	// 1. Decode Request
	var req previewRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	// 2. Validate Input
	if req.Plan == nil {
		writeErrorWithCode(w, http.StatusBadRequest, "plan is required", errCodeInvalidRequest)
		return
	}
	if err := req.Plan.Validate(); err != nil {
		writeErrorWithCode(w, http.StatusBadRequest, err.Error(), errCodeInvalidRequest)
		return
	}

	// 3. Call Service
	preview, err := h.svc.Preview(r.Context(), user, *req.Plan, req.Length)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	// 4. Respond
	writeJSON(w, http.StatusOK, preview)
}

// CreatePlaylist handles POST /playlists
func (h *Handler) CreatePlaylist(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}

	// 1. Decode Request
	var req createPlaylistRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	// 2. Call Service
	res, err := h.svc.Build(r.Context(), user, services.BuildRequest{
		Mood:          strings.TrimSpace(req.Mood),
		Plan:          req.Plan,
		Length:        req.Length,
		Name:          req.Name,
		Public:        req.Public,
		Collaborative: req.Collaborative,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	// 3. Respond
	w.Header().Set("Location", "/playlists/"+res.Playlist.ID)
	writeJSON(w, http.StatusCreated, createPlaylistResponse{
		Playlist: newPlaylistView(res.Playlist),
		Preview:  res.Preview,
	})
}

// ListPlaylists handles GET /playlists
func (h *Handler) ListPlaylists(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	limit := queryInt(q.Get("limit"), defaultListLimit)
	offset := queryInt(q.Get("offset"), 0)

	page, err := h.svc.ListPlaylists(r.Context(), user, limit, offset)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	views := make([]playlistView, 0, len(page.Playlists))
	for _, p := range page.Playlists {
		views = append(views, newPlaylistView(p))
	}
	if page.RetryAfter != "" {
		w.Header().Set("Retry-After", page.RetryAfter)
	}
	writeJSON(w, http.StatusOK, listPlaylistsResponse{
		Count:      page.Count,
		Limit:      page.Limit,
		Offset:     page.Offset,
		NextOffset: page.NextOffset,
		Results:    views,
	})
}

// GetPlaylist handles GET /playlists/{id}
func (h *Handler) GetPlaylist(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	playlistID := r.PathValue("id")
	if playlistID == "" {
		writeError(w, http.StatusBadRequest, "playlist id is required")
		return
	}

	playlist, err := h.svc.GetPlaylist(r.Context(), user, playlistID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newPlaylistView(playlist))
}

// queryInt parses a query parameter, falling back to def when it is absent
// or not a number.
func queryInt(raw string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return n
}
