package ports

import (
	"context"

	"github.com/ewilliams-labs/moodmix/backend/internal/core/domain"
)

// LibrarySource reads the user's listening history. Each call may fail
// independently of the others.
type LibrarySource interface {
	RecentTracks(ctx context.Context, maxItems int) ([]domain.Track, error)
	TopTracks(ctx context.Context, window domain.TimeWindow, limit int) ([]domain.Track, error)
	SavedTracks(ctx context.Context, maxItems int) ([]domain.Track, error)
}

// TrackSearcher runs catalog track searches restricted to a market.
type TrackSearcher interface {
	SearchTracks(ctx context.Context, query string, limit int, market string) ([]domain.Track, error)
}

// ArtistLookup fetches artist metadata in batches. Missing ids are absent
// from the returned map.
type ArtistLookup interface {
	GetArtists(ctx context.Context, ids []string) (map[string]domain.Artist, error)
}

// ProfileSource returns the current user's market and content preferences.
type ProfileSource interface {
	GetProfile(ctx context.Context) (domain.UserProfile, error)
}

// PlaylistWriter creates and fills playlists in the catalog.
type PlaylistWriter interface {
	CreatePlaylist(ctx context.Context, p domain.NewRemotePlaylist) (domain.RemotePlaylist, error)
	AddItems(ctx context.Context, playlistID string, uris []string) (string, error)
	GetPlaylist(ctx context.Context, playlistID string) (domain.RemotePlaylist, error)
}

// Catalog is everything the service layer needs from the music catalog.
type Catalog interface {
	LibrarySource
	TrackSearcher
	ArtistLookup
	ProfileSource
	PlaylistWriter
}
