package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ewilliams-labs/moodmix/backend/internal/core/domain"
	"github.com/ewilliams-labs/moodmix/backend/internal/core/services"
)

// --- Mocks ---

// The Handler depends on the concrete *Orchestrator, so these tests build a
// real one over mock ports.

func testPlan() domain.MoodPlan {
	return domain.MoodPlan{
		NormalizedMood: "calm focus",
		Intent:         "focus",
		SemanticTags:   []string{"chill"},
		Constraints:    domain.Constraints{ExplicitAllowed: domain.ExplicitYes},
		Plan: domain.PlanShape{
			Themes:           []string{"study"},
			CandidateBuckets: []string{"beats"},
			NoveltyRatio:     0.3,
			Ordering:         []domain.OrderingStage{domain.StagePeak},
		},
		Length: 4,
	}
}

type mockPlanner struct {
	err error
}

func (m *mockPlanner) Plan(ctx context.Context, mood string) (domain.MoodPlan, error) {
	if m.err != nil {
		return domain.MoodPlan{}, m.err
	}
	return testPlan(), nil
}

type mockPreviewer struct {
	unfilled bool
}

func (m *mockPreviewer) Preview(ctx context.Context, plan domain.MoodPlan, length int, excl domain.Exclusions) (domain.BuildPreview, error) {
	if m.unfilled {
		return domain.BuildPreview{
			URIs:   []string{},
			Tracks: []domain.TrackRecord{},
			Debug:  domain.Debug{Requested: length, Selected: 1, Reason: domain.ReasonInsufficientTracks},
		}, nil
	}
	p := domain.BuildPreview{Debug: domain.Debug{Requested: length, Selected: length, Mode: "selection"}}
	for i := 0; i < length; i++ {
		id := fmt.Sprintf("t%d", i)
		p.URIs = append(p.URIs, "spotify:track:"+id)
		p.Tracks = append(p.Tracks, domain.TrackRecord{
			ID: id, URI: "spotify:track:" + id, Name: "Song " + id,
			Artists: []domain.ArtistRef{{ID: "a" + id, Name: "Artist " + id}},
		})
	}
	return p, nil
}

type mockRemote struct {
	createErr error
}

func (m *mockRemote) CreatePlaylist(ctx context.Context, p domain.NewRemotePlaylist) (domain.RemotePlaylist, error) {
	if m.createErr != nil {
		return domain.RemotePlaylist{}, m.createErr
	}
	return domain.RemotePlaylist{ID: "r1", Name: p.Name, URL: "https://open.spotify.com/playlist/r1"}, nil
}

func (m *mockRemote) AddItems(ctx context.Context, playlistID string, uris []string) (string, error) {
	return "snap", nil
}

func (m *mockRemote) GetPlaylist(ctx context.Context, playlistID string) (domain.RemotePlaylist, error) {
	return domain.RemotePlaylist{ID: playlistID}, nil
}

type mockRepo struct {
	shouldFailSave bool
	playlists      []domain.Playlist
}

func (m *mockRepo) GetByID(ctx context.Context, id string) (domain.Playlist, error) {
	for _, p := range m.playlists {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Playlist{}, domain.ErrNotFound
}

func (m *mockRepo) Save(ctx context.Context, p domain.Playlist) error {
	if m.shouldFailSave {
		return errors.New("db error")
	}
	m.playlists = append(m.playlists, p)
	return nil
}

func (m *mockRepo) ListByOwner(ctx context.Context, ownerID string, since time.Time) ([]domain.Playlist, error) {
	var out []domain.Playlist
	for _, p := range m.playlists {
		if p.OwnerID == ownerID && !p.CreatedAt.Before(since) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockRepo) ListPage(ctx context.Context, ownerID string, limit, offset int) ([]domain.Playlist, int, error) {
	all, _ := m.ListByOwner(ctx, ownerID, time.Time{})
	if offset >= len(all) {
		return nil, len(all), nil
	}
	return all[offset:min(len(all), offset+limit)], len(all), nil
}

func (m *mockRepo) MarkSynced(ctx context.Context, id string, info domain.SyncInfo) error {
	return nil
}

func (m *mockRepo) Delete(ctx context.Context, id string) error {
	return nil
}

type mockLeases struct {
	held bool
}

func (m *mockLeases) Acquire(ctx context.Context, userID string, ttl time.Duration) (domain.Lease, error) {
	if m.held {
		return domain.Lease{}, &domain.LeaseHeldError{UserID: userID, RetryAfter: 90 * time.Second}
	}
	return domain.Lease{UserID: userID}, nil
}

func (m *mockLeases) Release(ctx context.Context, userID, token string) error {
	return nil
}

type mockRefresher struct {
	report domain.RefreshReport
}

func (m *mockRefresher) RefreshStale(ctx context.Context, ownerID string, ttl time.Duration) (domain.RefreshReport, error) {
	return m.report, nil
}

type fixture struct {
	planner   *mockPlanner
	builder   *mockPreviewer
	remote    *mockRemote
	repo      *mockRepo
	leases    *mockLeases
	refresher *mockRefresher
	cfg       services.OrchestratorConfig
}

func newFixture() *fixture {
	return &fixture{
		planner:   &mockPlanner{},
		builder:   &mockPreviewer{},
		remote:    &mockRemote{},
		repo:      &mockRepo{},
		leases:    &mockLeases{},
		refresher: &mockRefresher{},
	}
}

func (f *fixture) handler() *Handler {
	logger := log.New(io.Discard)
	svc := services.NewOrchestrator(services.OrchestratorDeps{
		Planner:   f.planner,
		Builder:   f.builder,
		Remote:    f.remote,
		Repo:      f.repo,
		Leases:    f.leases,
		Refresher: f.refresher,
	}, f.cfg, logger)
	return NewHandler(svc, logger)
}

func doRequest(h http.Handler, method, target, user string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(UserHeader, user)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// --- Tests ---

func TestHandler_HealthCheck(t *testing.T) {
	rec := doRequest(newFixture().handler(), http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected health response: %d %s", rec.Code, rec.Body.String())
	}
}

func TestHandler_Plan(t *testing.T) {
	tests := []struct {
		name           string
		user           string
		body           any
		mutate         func(f *fixture)
		contentType    string
		expectedStatus int
		expectedBody   string
		expectedHeader string
	}{
		{
			name:           "Success: returns the plan",
			user:           "u1",
			body:           map[string]string{"mood": "calm focus"},
			expectedStatus: http.StatusOK,
			expectedBody:   `"normalized_mood":"calm focus"`,
		},
		{
			name:           "Unauthorized: missing user header",
			body:           map[string]string{"mood": "calm"},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   "X-User-ID header is required",
		},
		{
			name:           "Bad Request: empty mood",
			user:           "u1",
			body:           map[string]string{"mood": "  "},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "mood is required",
		},
		{
			name:           "Bad Request: malformed json",
			user:           "u1",
			body:           `{invalid-json`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "Invalid request body",
		},
		{
			name:           "Unsupported media type",
			user:           "u1",
			body:           map[string]string{"mood": "calm"},
			contentType:    "text/plain",
			expectedStatus: http.StatusUnsupportedMediaType,
		},
		{
			name:           "Too Many Requests: lease held",
			user:           "u1",
			body:           map[string]string{"mood": "calm"},
			mutate:         func(f *fixture) { f.leases.held = true },
			expectedStatus: http.StatusTooManyRequests,
			expectedBody:   `"retry_after_seconds":90`,
			expectedHeader: "90",
		},
		{
			name:           "Bad Gateway: planner failure",
			user:           "u1",
			body:           map[string]string{"mood": "calm"},
			mutate:         func(f *fixture) { f.planner.err = fmt.Errorf("%w: timeout", domain.ErrPlannerUnavailable) },
			expectedStatus: http.StatusBadGateway,
			expectedBody:   "PLANNER_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			if tt.mutate != nil {
				tt.mutate(f)
			}
			h := f.handler()

			var rec *httptest.ResponseRecorder
			if tt.contentType != "" {
				jsonBody, _ := json.Marshal(tt.body)
				req := httptest.NewRequest(http.MethodPost, "/plan", bytes.NewBuffer(jsonBody))
				req.Header.Set("Content-Type", tt.contentType)
				req.Header.Set(UserHeader, tt.user)
				rec = httptest.NewRecorder()
				h.ServeHTTP(rec, req)
			} else {
				rec = doRequest(h, http.MethodPost, "/plan", tt.user, tt.body)
			}

			if rec.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d, body: %s", tt.expectedStatus, rec.Code, strings.TrimSpace(rec.Body.String()))
			}
			if tt.expectedBody != "" && !strings.Contains(rec.Body.String(), tt.expectedBody) {
				t.Errorf("expected body to contain %q, got %q", tt.expectedBody, rec.Body.String())
			}
			if tt.expectedHeader != "" && rec.Header().Get("Retry-After") != tt.expectedHeader {
				t.Errorf("Retry-After = %q, want %q", rec.Header().Get("Retry-After"), tt.expectedHeader)
			}
		})
	}
}

func TestHandler_PreviewPlaylist(t *testing.T) {
	valid := testPlan()
	invalid := testPlan()
	invalid.Plan.Themes = nil

	tests := []struct {
		name           string
		body           any
		unfilled       bool
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "Success: returns uris and debug",
			body:           map[string]any{"plan": valid, "length": 5},
			expectedStatus: http.StatusOK,
			expectedBody:   `"requested":5`,
		},
		{
			name:           "Bad Request: plan missing",
			body:           map[string]any{"length": 5},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "plan is required",
		},
		{
			name:           "Bad Request: plan invalid",
			body:           map[string]any{"plan": invalid},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "plan.themes",
		},
		{
			name:           "Unprocessable: quota unmet carries debug",
			body:           map[string]any{"plan": valid, "length": 8},
			unfilled:       true,
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `"reason":"insufficient_tracks_after_fallback"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.builder.unfilled = tt.unfilled
			rec := doRequest(f.handler(), http.MethodPost, "/playlists/preview", "u1", tt.body)

			if rec.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d, body: %s", tt.expectedStatus, rec.Code, strings.TrimSpace(rec.Body.String()))
			}
			if tt.expectedBody != "" && !strings.Contains(rec.Body.String(), tt.expectedBody) {
				t.Errorf("expected body to contain %q, got %q", tt.expectedBody, rec.Body.String())
			}
		})
	}
}

func TestHandler_CreatePlaylist(t *testing.T) {
	tests := []struct {
		name           string
		body           any
		mutate         func(f *fixture)
		expectedStatus int
		expectedBody   string
		expectedHeader map[string]string
	}{
		{
			name:           "Success: creates playlist from mood",
			body:           map[string]any{"mood": "calm focus, 4 songs"},
			expectedStatus: http.StatusCreated,
			expectedBody:   `"spotify_id":"r1"`,
			expectedHeader: map[string]string{"Location": "/playlists/"},
		},
		{
			name:           "Bad Request: public and collaborative",
			body:           map[string]any{"mood": "calm", "public": true, "collaborative": true},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "INVALID_REQUEST",
		},
		{
			name:           "Bad Request: neither plan nor mood",
			body:           map[string]any{},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "plan or mood is required",
		},
		{
			name: "Upstream: status and Retry-After relayed",
			body: map[string]any{"mood": "calm"},
			mutate: func(f *fixture) {
				f.remote.createErr = &domain.UpstreamError{Service: "spotify", Status: 429, RetryAfter: "7", Body: "slow down"}
			},
			expectedStatus: http.StatusTooManyRequests,
			expectedBody:   "UPSTREAM_ERROR",
			expectedHeader: map[string]string{"Retry-After": "7"},
		},
		{
			name:           "Unprocessable: quota unmet",
			body:           map[string]any{"mood": "calm"},
			mutate:         func(f *fixture) { f.builder.unfilled = true },
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   "QUOTA_UNMET",
		},
		{
			name:           "Server Error: repo save fails",
			body:           map[string]any{"mood": "calm"},
			mutate:         func(f *fixture) { f.repo.shouldFailSave = true },
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   "service: failed to save playlist",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			if tc.mutate != nil {
				tc.mutate(f)
			}
			rec := doRequest(f.handler(), http.MethodPost, "/playlists", "u1", tc.body)

			if rec.Code != tc.expectedStatus {
				t.Errorf("expected status %d, got %d, body: %s", tc.expectedStatus, rec.Code, strings.TrimSpace(rec.Body.String()))
			}
			if tc.expectedBody != "" && !strings.Contains(rec.Body.String(), tc.expectedBody) {
				t.Errorf("expected body to contain %q, got %q", tc.expectedBody, rec.Body.String())
			}
			for k, v := range tc.expectedHeader {
				if !strings.HasPrefix(rec.Header().Get(k), v) {
					t.Errorf("header %s = %q, want prefix %q", k, rec.Header().Get(k), v)
				}
			}
		})
	}
}

func TestHandler_GetAndListPlaylists(t *testing.T) {
	f := newFixture()
	f.repo.playlists = []domain.Playlist{
		{ID: "p1", OwnerID: "u1", Name: "Mine", Tracks: []domain.Track{{ID: "t1", Title: "Song", URI: "spotify:track:t1"}}},
		{ID: "p2", OwnerID: "u2", Name: "Theirs"},
	}
	h := f.handler()

	tests := []struct {
		name           string
		target         string
		user           string
		expectedStatus int
		expectedBody   string
	}{
		{name: "get own playlist", target: "/playlists/p1", user: "u1", expectedStatus: http.StatusOK, expectedBody: `"name":"Mine"`},
		{name: "get other owner's playlist", target: "/playlists/p2", user: "u1", expectedStatus: http.StatusNotFound, expectedBody: "NOT_FOUND"},
		{name: "get missing playlist", target: "/playlists/nope", user: "u1", expectedStatus: http.StatusNotFound},
		{name: "list", target: "/playlists", user: "u1", expectedStatus: http.StatusOK, expectedBody: `"tracks":[{"id":"t1"`},
		{name: "list reports paging", target: "/playlists", user: "u1", expectedStatus: http.StatusOK, expectedBody: `"count":1,"limit":50,"offset":0,"next_offset":null`},
		{name: "list without user", target: "/playlists", expectedStatus: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(h, http.MethodGet, tt.target, tt.user, nil)
			if rec.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d, body: %s", tt.expectedStatus, rec.Code, strings.TrimSpace(rec.Body.String()))
			}
			if tt.expectedBody != "" && !strings.Contains(rec.Body.String(), tt.expectedBody) {
				t.Errorf("expected body to contain %q, got %q", tt.expectedBody, rec.Body.String())
			}
		})
	}
}

func TestHandler_ListPlaylistsPaging(t *testing.T) {
	f := newFixture()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		id := "p" + strconv.Itoa(i)
		f.repo.playlists = append(f.repo.playlists, domain.Playlist{ID: id, OwnerID: "u1", Name: id, CreatedAt: base.Add(time.Duration(i) * time.Minute)})
	}
	f.refresher.report = domain.RefreshReport{RateLimited: true, RetryAfter: "12"}
	h := f.handler()

	tests := []struct {
		name         string
		target       string
		expectedBody string
	}{
		{name: "explicit page", target: "/playlists?limit=2&offset=0", expectedBody: `"count":3,"limit":2,"offset":0,"next_offset":2`},
		{name: "last page", target: "/playlists?limit=2&offset=2", expectedBody: `"next_offset":null`},
		{name: "bad limit uses default", target: "/playlists?limit=abc", expectedBody: `"limit":50`},
		{name: "limit is capped", target: "/playlists?limit=1000", expectedBody: `"limit":200`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(h, http.MethodGet, tt.target, "u1", nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), tt.expectedBody) {
				t.Errorf("expected body to contain %q, got %q", tt.expectedBody, rec.Body.String())
			}
			if got := rec.Header().Get("Retry-After"); got != "12" {
				t.Errorf("Retry-After = %q, want 12", got)
			}
		})
	}
}

func TestHandler_BuildCooldown(t *testing.T) {
	f := newFixture()
	f.cfg.BuildCooldown = 24 * time.Hour
	f.repo.playlists = []domain.Playlist{{ID: "p1", OwnerID: "u1", Name: "Recent", CreatedAt: time.Now().Add(-time.Hour)}}
	h := f.handler()

	for _, target := range []string{"/plan", "/playlists"} {
		t.Run(target, func(t *testing.T) {
			rec := doRequest(h, http.MethodPost, target, "u1", map[string]string{"mood": "calm"})
			if rec.Code != http.StatusTooManyRequests {
				t.Fatalf("expected 429, got %d: %s", rec.Code, rec.Body.String())
			}
			body := rec.Body.String()
			for _, want := range []string{"BUILD_COOLDOWN", `"retry_after_seconds":`, `"retry_at":`, `"last_created_at":`} {
				if !strings.Contains(body, want) {
					t.Errorf("expected body to contain %q, got %q", want, body)
				}
			}
			if secs, err := strconv.Atoi(rec.Header().Get("Retry-After")); err != nil || secs < 22*3600 {
				t.Errorf("Retry-After = %q, want about 23h", rec.Header().Get("Retry-After"))
			}
		})
	}

	rec := doRequest(h, http.MethodPost, "/plan", "u2", map[string]string{"mood": "calm"})
	if rec.Code != http.StatusOK {
		t.Fatalf("other users are not throttled, got %d", rec.Code)
	}
}
