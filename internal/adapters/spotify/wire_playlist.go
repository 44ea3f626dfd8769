package spotify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ewilliams-labs/moodmix/backend/internal/core/domain"
)

const addItemsBatchSize = 100

// CreatePlaylist creates an empty playlist owned by the current user.
func (c *Client) CreatePlaylist(ctx context.Context, p domain.NewRemotePlaylist) (domain.RemotePlaylist, error) {
	userID, err := c.currentUserID(ctx)
	if err != nil {
		return domain.RemotePlaylist{}, err
	}

	body := createPlaylistRequest{
		Name:          p.Name,
		Description:   p.Description,
		Public:        p.Public,
		Collaborative: p.Collaborative,
	}
	var sp spotifyPlaylist
	path := fmt.Sprintf("/users/%s/playlists", url.PathEscape(userID))
	if err := c.doJSON(ctx, http.MethodPost, c.endpoint(path, nil), body, &sp); err != nil {
		return domain.RemotePlaylist{}, fmt.Errorf("spotify adapter: create playlist: %w", err)
	}
	return mapPlaylistToDomain(sp), nil
}

// AddItems appends the uris in order, 100 per request, and returns the
// snapshot id of the last write.
func (c *Client) AddItems(ctx context.Context, playlistID string, uris []string) (string, error) {
	path := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	snapshot := ""
	for start := 0; start < len(uris); start += addItemsBatchSize {
		end := min(start+addItemsBatchSize, len(uris))

		var resp snapshotResponse
		body := addItemsRequest{URIs: uris[start:end]}
		if err := c.doJSON(ctx, http.MethodPost, c.endpoint(path, nil), body, &resp); err != nil {
			return snapshot, fmt.Errorf("spotify adapter: add items: %w", err)
		}
		if resp.SnapshotID != "" {
			snapshot = resp.SnapshotID
		}
	}
	return snapshot, nil
}

// GetPlaylist fetches playlist details, used by the background sync.
func (c *Client) GetPlaylist(ctx context.Context, playlistID string) (domain.RemotePlaylist, error) {
	q := url.Values{}
	q.Set("fields", "id,name,description,public,collaborative,snapshot_id,uri,external_urls,tracks.total")
	path := fmt.Sprintf("/playlists/%s", url.PathEscape(playlistID))

	var sp spotifyPlaylist
	if err := c.doJSON(ctx, http.MethodGet, c.endpoint(path, q), nil, &sp); err != nil {
		return domain.RemotePlaylist{}, fmt.Errorf("spotify adapter: get playlist: %w", err)
	}
	return mapPlaylistToDomain(sp), nil
}

func (c *Client) currentUserID(ctx context.Context) (string, error) {
	c.mu.Lock()
	id := c.userID
	c.mu.Unlock()
	if id != "" {
		return id, nil
	}
	profile, err := c.GetProfile(ctx)
	if err != nil {
		return "", err
	}
	if profile.ID == "" {
		return "", fmt.Errorf("spotify adapter: profile has no user id")
	}
	return profile.ID, nil
}
