package spotify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ewilliams-labs/moodmix/backend/internal/core/domain"
)

const pageSize = 50

// RecentTracks returns up to maxItems recently played tracks, newest first.
func (c *Client) RecentTracks(ctx context.Context, maxItems int) ([]domain.Track, error) {
	tracks, err := c.pagedTracks(ctx, "/me/player/recently-played", maxItems)
	if err != nil {
		return nil, fmt.Errorf("spotify adapter: recent tracks: %w", err)
	}
	return tracks, nil
}

// SavedTracks returns up to maxItems tracks from the user's library.
func (c *Client) SavedTracks(ctx context.Context, maxItems int) ([]domain.Track, error) {
	tracks, err := c.pagedTracks(ctx, "/me/tracks", maxItems)
	if err != nil {
		return nil, fmt.Errorf("spotify adapter: saved tracks: %w", err)
	}
	return tracks, nil
}

// TopTracks returns the user's top tracks for the affinity window.
func (c *Client) TopTracks(ctx context.Context, window domain.TimeWindow, limit int) ([]domain.Track, error) {
	q := url.Values{}
	q.Set("time_range", string(window))
	q.Set("limit", strconv.Itoa(clamp(limit, 1, pageSize)))

	var page topPage
	if err := c.doJSON(ctx, http.MethodGet, c.endpoint("/me/top/tracks", q), nil, &page); err != nil {
		return nil, fmt.Errorf("spotify adapter: top tracks: %w", err)
	}

	out := make([]domain.Track, 0, len(page.Items))
	for i := range page.Items {
		if usable(&page.Items[i]) {
			out = append(out, mapTrackToDomain(page.Items[i]))
		}
	}
	return out, nil
}

// pagedTracks follows next links until maxItems wrapped tracks are collected.
func (c *Client) pagedTracks(ctx context.Context, path string, maxItems int) ([]domain.Track, error) {
	if maxItems <= 0 {
		return []domain.Track{}, nil
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(min(pageSize, maxItems)))
	next := c.endpoint(path, q)

	out := make([]domain.Track, 0, maxItems)
	seen := 0
	for next != "" && seen < maxItems {
		var page trackPage
		if err := c.doJSON(ctx, http.MethodGet, next, nil, &page); err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			if seen >= maxItems {
				break
			}
			seen++
			if usable(item.Track) {
				out = append(out, mapTrackToDomain(*item.Track))
			}
		}
		if len(page.Items) == 0 {
			break
		}
		next = page.Next
	}
	return out, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
