package spotify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ewilliams-labs/moodmix/backend/internal/core/domain"
)

const artistBatchSize = 50

// GetArtists fetches artist metadata in batches of 50. Ids the catalog does
// not know are absent from the result.
func (c *Client) GetArtists(ctx context.Context, ids []string) (map[string]domain.Artist, error) {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	out := make(map[string]domain.Artist, len(unique))
	for start := 0; start < len(unique); start += artistBatchSize {
		end := min(start+artistBatchSize, len(unique))

		q := url.Values{}
		q.Set("ids", strings.Join(unique[start:end], ","))

		var body artistsResponse
		if err := c.doJSON(ctx, http.MethodGet, c.endpoint("/artists", q), nil, &body); err != nil {
			return nil, fmt.Errorf("spotify adapter: artists: %w", err)
		}
		// Spotify returns null for unknown ids
		for _, a := range body.Artists {
			if a != nil && a.ID != "" {
				out[a.ID] = mapArtistToDomain(*a)
			}
		}
	}
	return out, nil
}

// GetProfile returns the current user's id, market and explicit filter.
func (c *Client) GetProfile(ctx context.Context) (domain.UserProfile, error) {
	var u spotifyUser
	if err := c.doJSON(ctx, http.MethodGet, c.endpoint("/me", nil), nil, &u); err != nil {
		return domain.UserProfile{}, fmt.Errorf("spotify adapter: profile: %w", err)
	}

	c.mu.Lock()
	c.userID = u.ID
	c.mu.Unlock()

	return mapProfileToDomain(u), nil
}
