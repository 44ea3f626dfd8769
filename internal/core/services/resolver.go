package services

import (
	"context"
	"strings"

	"github.com/ewilliams-labs/moodmix/backend/internal/core/domain"
)

// resolveLibraryPick looks a library pick up in the pool and runs it through
// the guards. Picks that are unknown, banned or fail a guard are dropped.
func (r *buildRun) resolveLibraryPick(ctx context.Context, p domain.SelectorPick) (domain.Track, bool) {
	entry, ok := r.pool.Get(strings.TrimSpace(p.LibraryID))
	if !ok {
		return domain.Track{}, false
	}
	t := entry.Track
	if r.excl.Blocks(t) || !AllowsExplicit(t, r.cleanOnly) {
		return domain.Track{}, false
	}
	if !r.guard.Check(ctx, t) {
		r.debug.RejectedByGuard++
		return domain.Track{}, false
	}
	return t, true
}

// resolveOutsidePick searches the catalog once for "<title> <artist>" and
// returns the best guarded match.
func (r *buildRun) resolveOutsidePick(ctx context.Context, p domain.SelectorPick) (domain.Track, bool) {
	q := strings.TrimSpace(p.Title) + " " + strings.TrimSpace(p.Artist)
	items := r.search(ctx, q)

	filtered := make([]domain.Track, 0, len(items))
	for _, t := range items {
		if !t.Playable() || r.dedup.SeenID(t.ID) || r.excl.Blocks(t) {
			continue
		}
		if !AllowsExplicit(t, r.cleanOnly) {
			continue
		}
		filtered = append(filtered, t)
	}

	kept, rejected := r.guard.Filter(ctx, filtered)
	r.debug.RejectedByGuard += rejected
	return BestMatch(q, kept)
}

// BestMatch prefers the first candidate whose title and artist text contains
// every token of the query, else the first candidate.
func BestMatch(query string, candidates []domain.Track) (domain.Track, bool) {
	if len(candidates) == 0 {
		return domain.Track{}, false
	}
	parts := strings.Fields(strings.ToLower(query))
	for _, c := range candidates {
		hay := strings.ToLower(c.Title) + " " + strings.ToLower(strings.Join(c.ArtistNames(), " "))
		all := true
		for _, part := range parts {
			if !strings.Contains(hay, part) {
				all = false
				break
			}
		}
		if all {
			return c, true
		}
	}
	return candidates[0], true
}
