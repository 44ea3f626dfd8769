package ports

import (
	"context"
	"time"

	"github.com/ewilliams-labs/moodmix/backend/internal/core/domain"
)

// SyncQueue schedules a background refresh of a stored playlist's remote
// state. Enqueue must not block; it reports whether the job was accepted.
type SyncQueue interface {
	Enqueue(playlistID, remoteID string) bool
}

// PlaylistRefresher re-reads the owner's stale playlists from the catalog,
// dropping those the catalog no longer has.
type PlaylistRefresher interface {
	RefreshStale(ctx context.Context, ownerID string, ttl time.Duration) (domain.RefreshReport, error)
}
