package domain

// ArtistRef is an artist credit on a track.
type ArtistRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Album holds the album metadata carried on a track.
type Album struct {
	ID     string   `json:"id,omitempty"`
	Name   string   `json:"name,omitempty"`
	Images []string `json:"images,omitempty"`
}

// Track represents a musical track in the domain layer.
type Track struct {
	ID          string
	ISRC        string // International Standard Recording Code for matching
	Title       string
	Artists     []ArtistRef // first entry is the primary artist
	Explicit    bool
	Popularity  int // 0..100
	DurationMs  int
	Album       Album
	URI         string
	PreviewURL  string
	ExternalURL string
}

// PrimaryArtist returns the name of the first credited artist.
func (t Track) PrimaryArtist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0].Name
}

// ArtistNames returns every credited artist name in credit order.
func (t Track) ArtistNames() []string {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	return names
}

// ArtistIDs returns the distinct artist ids credited on the track.
func (t Track) ArtistIDs() []string {
	ids := make([]string, 0, len(t.Artists))
	seen := make(map[string]struct{}, len(t.Artists))
	for _, a := range t.Artists {
		if a.ID == "" {
			continue
		}
		if _, ok := seen[a.ID]; ok {
			continue
		}
		seen[a.ID] = struct{}{}
		ids = append(ids, a.ID)
	}
	return ids
}

// Playable reports whether the track can be placed in a playlist.
func (t Track) Playable() bool {
	return t.ID != "" && t.URI != ""
}

// Artist is catalog metadata about a performer.
type Artist struct {
	ID         string
	Name       string
	Popularity int
	Genres     []string
}

// TrackRecord is the compact, serializable form of a track returned to callers.
type TrackRecord struct {
	ID          string      `json:"id"`
	URI         string      `json:"uri"`
	Name        string      `json:"name"`
	ISRC        string      `json:"isrc,omitempty"`
	Explicit    bool        `json:"explicit"`
	DurationMs  int         `json:"duration_ms"`
	Popularity  int         `json:"popularity"`
	PreviewURL  string      `json:"preview_url,omitempty"`
	ExternalURL string      `json:"external_url,omitempty"`
	Album       Album       `json:"album"`
	Artists     []ArtistRef `json:"artists"`
}

// Record converts a track to its compact form.
func (t Track) Record() TrackRecord {
	artists := make([]ArtistRef, len(t.Artists))
	copy(artists, t.Artists)
	return TrackRecord{
		ID:          t.ID,
		URI:         t.URI,
		Name:        t.Title,
		ISRC:        t.ISRC,
		Explicit:    t.Explicit,
		DurationMs:  t.DurationMs,
		Popularity:  t.Popularity,
		PreviewURL:  t.PreviewURL,
		ExternalURL: t.ExternalURL,
		Album:       t.Album,
		Artists:     artists,
	}
}

// UserProfile is the subset of the catalog account the builder needs.
type UserProfile struct {
	ID                    string
	DisplayName           string
	Country               string // home market
	ExplicitFilterEnabled bool
}

// Track converts a compact record back into a track.
func (r TrackRecord) Track() Track {
	artists := make([]ArtistRef, len(r.Artists))
	copy(artists, r.Artists)
	return Track{
		ID:          r.ID,
		ISRC:        r.ISRC,
		Title:       r.Name,
		Artists:     artists,
		Explicit:    r.Explicit,
		Popularity:  r.Popularity,
		DurationMs:  r.DurationMs,
		Album:       r.Album,
		URI:         r.URI,
		PreviewURL:  r.PreviewURL,
		ExternalURL: r.ExternalURL,
	}
}
