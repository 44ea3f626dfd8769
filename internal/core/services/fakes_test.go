package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ewilliams-labs/moodmix/backend/internal/core/domain"
)

// --- Mocks ---

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

// mkTrack builds a playable track credited to a single artist.
func mkTrack(id string, pop int, artistID string, explicit bool) domain.Track {
	return domain.Track{
		ID:         id,
		Title:      "Song " + id,
		Artists:    []domain.ArtistRef{{ID: artistID, Name: "Artist " + artistID}},
		Explicit:   explicit,
		Popularity: pop,
		DurationMs: 200000,
		URI:        "spotify:track:" + id,
	}
}

type fakeLibrary struct {
	recent    []domain.Track
	topShort  []domain.Track
	topMedium []domain.Track
	saved     []domain.Track
	err       error
}

func (f *fakeLibrary) RecentTracks(ctx context.Context, maxItems int) ([]domain.Track, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.recent, nil
}

func (f *fakeLibrary) TopTracks(ctx context.Context, window domain.TimeWindow, limit int) ([]domain.Track, error) {
	if window == domain.WindowShort {
		return f.topShort, nil
	}
	return f.topMedium, nil
}

func (f *fakeLibrary) SavedTracks(ctx context.Context, maxItems int) ([]domain.Track, error) {
	return f.saved, nil
}

type fakeSearch struct {
	byQuery  map[string][]domain.Track
	fallback []domain.Track
	err      error

	calls []string
}

func (f *fakeSearch) SearchTracks(ctx context.Context, query string, limit int, market string) ([]domain.Track, error) {
	f.calls = append(f.calls, query)
	if f.err != nil {
		return nil, f.err
	}
	src, ok := f.byQuery[query]
	if !ok {
		src = f.fallback
	}
	// callers sort results in place; hand out a copy
	out := make([]domain.Track, len(src))
	copy(out, src)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeArtists struct {
	artists map[string]domain.Artist
	err     error

	calls     int
	requested []string
}

func (f *fakeArtists) GetArtists(ctx context.Context, ids []string) (map[string]domain.Artist, error) {
	f.calls++
	f.requested = append(f.requested, ids...)
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]domain.Artist, len(ids))
	for _, id := range ids {
		if a, ok := f.artists[id]; ok {
			out[id] = a
		}
	}
	return out, nil
}

type fakeProfile struct {
	profile domain.UserProfile
	err     error
}

func (f *fakeProfile) GetProfile(ctx context.Context) (domain.UserProfile, error) {
	if f.err != nil {
		return domain.UserProfile{}, f.err
	}
	return f.profile, nil
}

type fakeSelector struct {
	picks []domain.SelectorPick
	err   error

	calls int
	input domain.SelectorInput
}

func (f *fakeSelector) SelectTracks(ctx context.Context, in domain.SelectorInput) (domain.Selection, error) {
	f.calls++
	f.input = in
	attempts := []domain.SelectorAttempt{{InputPreview: "in", OutputPreview: "out"}}
	if f.err != nil {
		return domain.Selection{}, &domain.SelectionError{Attempts: attempts, Err: f.err}
	}
	return domain.Selection{Result: domain.SelectorResult{Picks: f.picks}, Attempts: attempts}, nil
}

// fakeChat replays canned replies in order and records every conversation.
type fakeChat struct {
	replies []string
	err     error

	calls [][]domain.ChatMessage
}

func (f *fakeChat) Chat(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	f.calls = append(f.calls, messages)
	if f.err != nil {
		return "", f.err
	}
	if len(f.calls) > len(f.replies) {
		return "", errors.New("fakeChat: no more replies")
	}
	return f.replies[len(f.calls)-1], nil
}

type fakePlanner struct {
	plan domain.MoodPlan
	err  error

	calls int
}

func (f *fakePlanner) Plan(ctx context.Context, mood string) (domain.MoodPlan, error) {
	f.calls++
	if f.err != nil {
		return domain.MoodPlan{}, f.err
	}
	return f.plan, nil
}

type fakePreviewer struct {
	preview domain.BuildPreview
	err     error

	calls  int
	length int
	excl   domain.Exclusions
}

func (f *fakePreviewer) Preview(ctx context.Context, plan domain.MoodPlan, length int, excl domain.Exclusions) (domain.BuildPreview, error) {
	f.calls++
	f.length = length
	f.excl = excl
	return f.preview, f.err
}

type fakeRemote struct {
	createErr error
	addErr    error

	created []domain.NewRemotePlaylist
	added   []string
}

func (f *fakeRemote) CreatePlaylist(ctx context.Context, p domain.NewRemotePlaylist) (domain.RemotePlaylist, error) {
	if f.createErr != nil {
		return domain.RemotePlaylist{}, f.createErr
	}
	f.created = append(f.created, p)
	id := fmt.Sprintf("remote-%d", len(f.created))
	return domain.RemotePlaylist{ID: id, Name: p.Name, URL: "https://open.spotify.com/playlist/" + id}, nil
}

func (f *fakeRemote) AddItems(ctx context.Context, playlistID string, uris []string) (string, error) {
	if f.addErr != nil {
		return "", f.addErr
	}
	f.added = append(f.added, uris...)
	return "snap-1", nil
}

func (f *fakeRemote) GetPlaylist(ctx context.Context, playlistID string) (domain.RemotePlaylist, error) {
	return domain.RemotePlaylist{ID: playlistID}, nil
}

type fakeRepo struct {
	playlists []domain.Playlist
	saveErr   error

	saved *domain.Playlist
}

func (f *fakeRepo) GetByID(ctx context.Context, id string) (domain.Playlist, error) {
	for _, p := range f.playlists {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Playlist{}, domain.ErrNotFound
}

func (f *fakeRepo) Save(ctx context.Context, p domain.Playlist) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = &p
	f.playlists = append(f.playlists, p)
	return nil
}

func (f *fakeRepo) ListByOwner(ctx context.Context, ownerID string, since time.Time) ([]domain.Playlist, error) {
	var out []domain.Playlist
	for _, p := range f.playlists {
		if p.OwnerID == ownerID && !p.CreatedAt.Before(since) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeRepo) ListPage(ctx context.Context, ownerID string, limit, offset int) ([]domain.Playlist, int, error) {
	all, _ := f.ListByOwner(ctx, ownerID, time.Time{})
	if offset >= len(all) {
		return nil, len(all), nil
	}
	end := min(len(all), offset+limit)
	return all[offset:end], len(all), nil
}

func (f *fakeRepo) MarkSynced(ctx context.Context, id string, info domain.SyncInfo) error {
	return nil
}

func (f *fakeRepo) Delete(ctx context.Context, id string) error {
	for i, p := range f.playlists {
		if p.ID == id {
			f.playlists = append(f.playlists[:i], f.playlists[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

// fakeLeases maps users to the token of their held lease.
type fakeLeases struct {
	mu       sync.Mutex
	held     map[string]string
	issued   int
	released []string
}

func (f *fakeLeases) Acquire(ctx context.Context, userID string, ttl time.Duration) (domain.Lease, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held == nil {
		f.held = make(map[string]string)
	}
	if f.held[userID] != "" {
		return domain.Lease{}, &domain.LeaseHeldError{UserID: userID, RetryAfter: ttl}
	}
	f.issued++
	token := fmt.Sprintf("tok-%d", f.issued)
	f.held[userID] = token
	return domain.Lease{UserID: userID, Token: token}, nil
}

func (f *fakeLeases) Release(ctx context.Context, userID, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if token == "" || f.held[userID] == token {
		delete(f.held, userID)
	}
	f.released = append(f.released, userID+"/"+token)
	return nil
}

type fakeSync struct {
	jobs []string
}

func (f *fakeSync) Enqueue(playlistID, remoteID string) bool {
	f.jobs = append(f.jobs, playlistID+"/"+remoteID)
	return true
}

type fakeRefresher struct {
	report domain.RefreshReport
	err    error
	calls  []time.Duration
}

func (f *fakeRefresher) RefreshStale(ctx context.Context, ownerID string, ttl time.Duration) (domain.RefreshReport, error) {
	f.calls = append(f.calls, ttl)
	return f.report, f.err
}
