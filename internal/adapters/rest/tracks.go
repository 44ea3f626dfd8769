package rest

import (
	"time"

	"github.com/ewilliams-labs/moodmix/backend/internal/core/domain"
)

// playlistView is the wire form of a stored playlist.
type playlistView struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Mood        string               `json:"mood,omitempty"`
	RemoteID    string               `json:"spotify_id,omitempty"`
	URL         string               `json:"url,omitempty"`
	SnapshotID  string               `json:"snapshot_id,omitempty"`
	Public      bool                 `json:"public"`
	CreatedAt   time.Time            `json:"created_at"`
	LastSynced  *time.Time           `json:"last_synced,omitempty"`
	RemoteCount int                  `json:"remote_track_count"`
	Tracks      []domain.TrackRecord `json:"tracks"`
}

func newPlaylistView(p domain.Playlist) playlistView {
	tracks := make([]domain.TrackRecord, 0, len(p.Tracks))
	for _, t := range p.Tracks {
		tracks = append(tracks, t.Record())
	}
	v := playlistView{
		ID:          p.ID,
		Name:        p.Name,
		Mood:        p.Mood,
		RemoteID:    p.RemoteID,
		URL:         p.RemoteURL,
		SnapshotID:  p.SnapshotID,
		Public:      p.Public,
		CreatedAt:   p.CreatedAt,
		RemoteCount: p.RemoteCount,
		Tracks:      tracks,
	}
	if !p.LastSynced.IsZero() {
		synced := p.LastSynced
		v.LastSynced = &synced
	}
	return v
}
