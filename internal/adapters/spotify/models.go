package spotify

// spotifyImage is an image resource attached to albums and artists.
type spotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type spotifyArtistRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type spotifyAlbum struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Images []spotifyImage `json:"images"`
}

// spotifyTrack represents the Spotify API response for a track.
type spotifyTrack struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Artists     []spotifyArtistRef `json:"artists"`
	Album       spotifyAlbum       `json:"album"`
	DurationMs  int                `json:"duration_ms"`
	Explicit    bool               `json:"explicit"`
	Popularity  int                `json:"popularity"`
	URI         string             `json:"uri"`
	PreviewURL  string             `json:"preview_url"`
	IsLocal     bool               `json:"is_local"`
	IsPlayable  *bool              `json:"is_playable,omitempty"`
	ExternalIDs struct {
		ISRC string `json:"isrc"`
	} `json:"external_ids"`
	ExternalURLs struct {
		Spotify string `json:"spotify"`
	} `json:"external_urls"`
}

// spotifyArtist is the full artist object returned by /artists.
type spotifyArtist struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Popularity int      `json:"popularity"`
	Genres     []string `json:"genres"`
}

// trackItem wraps a track in saved, recent and playlist listings.
type trackItem struct {
	Track *spotifyTrack `json:"track"`
}

// trackPage is a paging object over wrapped tracks. Recently played uses
// cursors but shares the next link.
type trackPage struct {
	Items []trackItem `json:"items"`
	Next  string      `json:"next"`
}

// topPage is the /me/top/tracks response, whose items are bare tracks.
type topPage struct {
	Items []spotifyTrack `json:"items"`
}

type searchResponse struct {
	Tracks struct {
		Items []*spotifyTrack `json:"items"`
	} `json:"tracks"`
}

type artistsResponse struct {
	Artists []*spotifyArtist `json:"artists"`
}

type spotifyUser struct {
	ID              string `json:"id"`
	DisplayName     string `json:"display_name"`
	Country         string `json:"country"`
	ExplicitContent struct {
		FilterEnabled bool `json:"filter_enabled"`
		FilterLocked  bool `json:"filter_locked"`
	} `json:"explicit_content"`
}

// spotifyPlaylist represents the Spotify API response for a playlist.
type spotifyPlaylist struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Public        bool   `json:"public"`
	Collaborative bool   `json:"collaborative"`
	SnapshotID    string `json:"snapshot_id"`
	URI           string `json:"uri"`
	ExternalURLs  struct {
		Spotify string `json:"spotify"`
	} `json:"external_urls"`
	Tracks struct {
		Total int `json:"total"`
	} `json:"tracks"`
}

// createPlaylistRequest is the body of POST /users/{id}/playlists.
type createPlaylistRequest struct {
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	Public        bool   `json:"public"`
	Collaborative bool   `json:"collaborative"`
}

// addItemsRequest represents the request body for adding tracks to a playlist.
type addItemsRequest struct {
	URIs []string `json:"uris"`
}

type snapshotResponse struct {
	SnapshotID string `json:"snapshot_id"`
}
