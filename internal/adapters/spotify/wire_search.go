package spotify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ewilliams-labs/moodmix/backend/internal/core/domain"
)

// SearchTracks runs a free-text track search, restricted to market when set.
func (c *Client) SearchTracks(ctx context.Context, query string, limit int, market string) ([]domain.Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.Track{}, nil
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("type", "track")
	q.Set("limit", strconv.Itoa(clamp(limit, 1, pageSize)))
	if market != "" {
		q.Set("market", market)
	}
	searchURL := c.endpoint("/search", q)
	c.logger.Debug("search", "url", searchURL)

	var body searchResponse
	if err := c.doJSON(ctx, http.MethodGet, searchURL, nil, &body); err != nil {
		return nil, fmt.Errorf("spotify adapter: search %q: %w", query, err)
	}
	return mapTracks(body.Tracks.Items), nil
}
