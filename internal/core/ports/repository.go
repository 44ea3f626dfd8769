package ports

import (
	"context"
	"time"

	"github.com/ewilliams-labs/moodmix/backend/internal/core/domain"
)

// PlaylistRepository persists the playlists MoodMix created.
type PlaylistRepository interface {
	GetByID(ctx context.Context, id string) (domain.Playlist, error)
	Save(ctx context.Context, p domain.Playlist) error
	// ListByOwner returns the owner's playlists created at or after since,
	// newest first, with their tracks.
	ListByOwner(ctx context.Context, ownerID string, since time.Time) ([]domain.Playlist, error)
	// ListPage returns one page of the owner's playlists, newest first, and
	// the owner's total playlist count.
	ListPage(ctx context.Context, ownerID string, limit, offset int) ([]domain.Playlist, int, error)
	MarkSynced(ctx context.Context, id string, info domain.SyncInfo) error
	Delete(ctx context.Context, id string) error
}

// LeaseStore holds at most one unexpired plan-then-build lease per user.
type LeaseStore interface {
	// Acquire takes the lease, replacing an expired one. An unexpired lease
	// yields a *domain.LeaseHeldError.
	Acquire(ctx context.Context, userID string, ttl time.Duration) (domain.Lease, error)
	// Release drops the lease if it still carries token. An empty token
	// releases whatever lease the user holds.
	Release(ctx context.Context, userID, token string) error
}
