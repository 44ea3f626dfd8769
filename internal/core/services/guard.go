package services

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/ewilliams-labs/moodmix/backend/internal/core/domain"
	"github.com/ewilliams-labs/moodmix/backend/internal/core/ports"
)

// AllowsExplicit reports whether the track is acceptable under the clean-only policy.
func AllowsExplicit(t domain.Track, cleanOnly bool) bool {
	return !cleanOnly || !t.Explicit
}

// BestArtistPopularity returns the highest popularity among the track's
// artists present in the lookup map. Unknown artists count as zero.
func BestArtistPopularity(t domain.Track, artists map[string]domain.Artist) int {
	best := 0
	for _, id := range t.ArtistIDs() {
		if a, ok := artists[id]; ok && a.Popularity > best {
			best = a.Popularity
		}
	}
	return best
}

// PassesPopularity requires the track popularity and the best artist
// popularity to reach their thresholds.
func PassesPopularity(t domain.Track, artists map[string]domain.Artist, minTrackPop, minArtistPop int) bool {
	if t.Popularity < minTrackPop {
		return false
	}
	return BestArtistPopularity(t, artists) >= minArtistPop
}

// PassesGenre requires some credited artist genre to contain one of the
// tokens. It passes everything when tokens is empty.
func PassesGenre(t domain.Track, artists map[string]domain.Artist, tokens []string) bool {
	if len(tokens) == 0 {
		return true
	}
	for _, id := range t.ArtistIDs() {
		if a, ok := artists[id]; ok && domain.GenresMatch(a.Genres, tokens) {
			return true
		}
	}
	return false
}

// guard applies the popularity and genre checks of one build. Artist
// metadata is fetched in batches and cached for the lifetime of the guard,
// which never outlives a single preview.
type guard struct {
	lookup       ports.ArtistLookup
	minTrackPop  int
	minArtistPop int
	tokens       []string
	logger       *log.Logger

	cache   map[string]domain.Artist
	missing map[string]struct{}
	lookups int
}

func newGuard(lookup ports.ArtistLookup, minTrackPop, minArtistPop int, tokens []string, logger *log.Logger) *guard {
	return &guard{
		lookup:       lookup,
		minTrackPop:  minTrackPop,
		minArtistPop: minArtistPop,
		tokens:       tokens,
		logger:       logger,
		cache:        make(map[string]domain.Artist),
		missing:      make(map[string]struct{}),
	}
}

// artists returns cached metadata for the ids, fetching unknown ones in a
// single batch. A failed fetch leaves the cache untouched so a later call
// can retry.
func (g *guard) artists(ctx context.Context, ids []string) map[string]domain.Artist {
	var need []string
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := g.cache[id]; ok {
			continue
		}
		if _, ok := g.missing[id]; ok {
			continue
		}
		need = append(need, id)
	}
	if len(need) > 0 && g.lookup != nil {
		g.lookups++
		fetched, err := g.lookup.GetArtists(ctx, need)
		if err != nil {
			g.logger.Warn("artist lookup failed", "ids", len(need), "error", err)
		} else {
			for _, id := range need {
				if a, ok := fetched[id]; ok {
					g.cache[id] = a
				} else {
					g.missing[id] = struct{}{}
				}
			}
		}
	}
	out := make(map[string]domain.Artist, len(seen))
	for id := range seen {
		if a, ok := g.cache[id]; ok {
			out[id] = a
		}
	}
	return out
}

// Check runs the popularity and genre guards on one track.
func (g *guard) Check(ctx context.Context, t domain.Track) bool {
	if t.Popularity < g.minTrackPop {
		return false
	}
	amap := g.artists(ctx, t.ArtistIDs())
	return PassesPopularity(t, amap, g.minTrackPop, g.minArtistPop) && PassesGenre(t, amap, g.tokens)
}

// Filter guards a batch of candidates with one artist lookup and returns the
// survivors in input order plus the number rejected.
func (g *guard) Filter(ctx context.Context, tracks []domain.Track) ([]domain.Track, int) {
	if len(tracks) == 0 {
		return nil, 0
	}
	var ids []string
	for _, t := range tracks {
		ids = append(ids, t.ArtistIDs()...)
	}
	amap := g.artists(ctx, ids)

	kept := make([]domain.Track, 0, len(tracks))
	rejected := 0
	for _, t := range tracks {
		if !PassesPopularity(t, amap, g.minTrackPop, g.minArtistPop) || !PassesGenre(t, amap, g.tokens) {
			rejected++
			continue
		}
		kept = append(kept, t)
	}
	return kept, rejected
}
