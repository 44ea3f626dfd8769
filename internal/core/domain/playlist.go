package domain

import (
	"errors"
	"time"
)

// Playlist is the local record of a playlist MoodMix created for a user.
// Its tracks feed the exclusion sets of later builds.
type Playlist struct {
	ID          string
	OwnerID     string
	Name        string
	Mood        string
	RemoteID    string
	RemoteURL   string
	SnapshotID  string
	Public      bool
	CreatedAt   time.Time
	LastSynced  time.Time
	RemoteCount int
	Tracks      []Track
}

func NewPlaylist(id, ownerID, name string) (*Playlist, error) {
	if id == "" || ownerID == "" || name == "" {
		return nil, errors.New("domain: invalid argument")
	}
	return &Playlist{
		ID:      id,
		OwnerID: ownerID,
		Name:    name,
		Tracks:  []Track{},
	}, nil
}

// AddTrack appends a track while preventing the same song twice. Songs are
// compared by content key, so an ISRC match or a title/artist/duration match
// both count as duplicates.
func (p *Playlist) AddTrack(t Track) error {
	key := ContentKey(t)
	for _, ex := range p.Tracks {
		if ex.ID == t.ID || ContentKey(ex) == key {
			return ErrDuplicateTrack
		}
	}
	p.Tracks = append(p.Tracks, t)
	return nil
}

// IsStale reports whether the cached remote state is missing or older than ttl.
func (p Playlist) IsStale(now time.Time, ttl time.Duration) bool {
	return p.LastSynced.IsZero() || now.Sub(p.LastSynced) > ttl
}

// RefreshReport summarizes one pass over a user's stale playlists.
type RefreshReport struct {
	Refreshed int
	Deleted   int
	Skipped   int
	// RateLimited is set when the catalog answered 429 and the pass stopped early.
	RateLimited bool
	RetryAfter  string
}

// SyncInfo is the remote state captured by a background refresh.
type SyncInfo struct {
	Name       string
	SnapshotID string
	Public     bool
	TrackCount int
	URL        string
	SyncedAt   time.Time
}

// RemotePlaylist is a playlist as the catalog reports it.
type RemotePlaylist struct {
	ID            string
	Name          string
	Description   string
	Public        bool
	Collaborative bool
	SnapshotID    string
	URI           string
	URL           string
	TrackCount    int
}

// NewRemotePlaylist describes a playlist to create in the catalog.
type NewRemotePlaylist struct {
	Name          string
	Description   string
	Public        bool
	Collaborative bool
}

// Lease is a time-boxed plan-then-build token for one user.
type Lease struct {
	UserID     string
	Token      string
	AcquiredAt time.Time
	ExpiresAt  time.Time
}
