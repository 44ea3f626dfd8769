package spotify

import (
	"github.com/ewilliams-labs/moodmix/backend/internal/core/domain"
)

// mapTrackToDomain converts a raw Spotify track to a clean Domain track.
func mapTrackToDomain(st spotifyTrack) domain.Track {
	artists := make([]domain.ArtistRef, 0, len(st.Artists))
	for _, a := range st.Artists {
		artists = append(artists, domain.ArtistRef{ID: a.ID, Name: a.Name})
	}

	images := make([]string, 0, len(st.Album.Images))
	for _, img := range st.Album.Images {
		if img.URL != "" {
			images = append(images, img.URL)
		}
	}

	return domain.Track{
		ID:         st.ID,
		ISRC:       st.ExternalIDs.ISRC,
		Title:      st.Name,
		Artists:    artists,
		Explicit:   st.Explicit,
		Popularity: st.Popularity,
		DurationMs: st.DurationMs,
		Album: domain.Album{
			ID:     st.Album.ID,
			Name:   st.Album.Name,
			Images: images,
		},
		URI:         st.URI,
		PreviewURL:  st.PreviewURL,
		ExternalURL: st.ExternalURLs.Spotify,
	}
}

// usable reports whether a listing entry refers to a real catalog track.
// Local files and tracks unavailable in the requested market are dropped.
func usable(st *spotifyTrack) bool {
	if st == nil || st.IsLocal || st.ID == "" {
		return false
	}
	return st.IsPlayable == nil || *st.IsPlayable
}

func mapTracks(in []*spotifyTrack) []domain.Track {
	out := make([]domain.Track, 0, len(in))
	for _, st := range in {
		if usable(st) {
			out = append(out, mapTrackToDomain(*st))
		}
	}
	return out
}

func mapArtistToDomain(sa spotifyArtist) domain.Artist {
	genres := make([]string, len(sa.Genres))
	copy(genres, sa.Genres)
	return domain.Artist{
		ID:         sa.ID,
		Name:       sa.Name,
		Popularity: sa.Popularity,
		Genres:     genres,
	}
}

func mapProfileToDomain(u spotifyUser) domain.UserProfile {
	return domain.UserProfile{
		ID:                    u.ID,
		DisplayName:           u.DisplayName,
		Country:               u.Country,
		ExplicitFilterEnabled: u.ExplicitContent.FilterEnabled,
	}
}

// mapPlaylistToDomain converts a raw Spotify playlist.
func mapPlaylistToDomain(sp spotifyPlaylist) domain.RemotePlaylist {
	return domain.RemotePlaylist{
		ID:            sp.ID,
		Name:          sp.Name,
		Description:   sp.Description,
		Public:        sp.Public,
		Collaborative: sp.Collaborative,
		SnapshotID:    sp.SnapshotID,
		URI:           sp.URI,
		URL:           sp.ExternalURLs.Spotify,
		TrackCount:    sp.Tracks.Total,
	}
}
