package services

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/ewilliams-labs/moodmix/backend/internal/core/domain"
	"github.com/ewilliams-labs/moodmix/backend/internal/core/ports"
)

const (
	recentPoolLimit = 50
	topPoolLimit    = 50
	savedPoolLimit  = 200
)

// poolResult is the outcome of collecting the user's library.
type poolResult struct {
	pool     *domain.CandidatePool
	counts   map[domain.Source]int
	filtered int
}

// collectPool reads every library source in order. A failing source is
// logged and contributes nothing. Tracks without an id or URI are skipped,
// excluded tracks are counted in filtered.
func collectPool(ctx context.Context, lib ports.LibrarySource, excl domain.Exclusions, logger *log.Logger) poolResult {
	res := poolResult{
		pool:   domain.NewCandidatePool(),
		counts: make(map[domain.Source]int, len(domain.Sources)),
	}
	for _, src := range domain.Sources {
		res.counts[src] = 0
	}

	insert := func(tracks []domain.Track, src domain.Source) {
		for _, t := range tracks {
			if !t.Playable() {
				continue
			}
			if excl.Blocks(t) {
				res.filtered++
				continue
			}
			if res.pool.Insert(t, src) {
				res.counts[src]++
			}
		}
	}

	fetch := func(src domain.Source) ([]domain.Track, error) {
		switch src {
		case domain.SourceRecent:
			return lib.RecentTracks(ctx, recentPoolLimit)
		case domain.SourceTopShort:
			return lib.TopTracks(ctx, domain.WindowShort, topPoolLimit)
		case domain.SourceTopMedium:
			return lib.TopTracks(ctx, domain.WindowMedium, topPoolLimit)
		default:
			return lib.SavedTracks(ctx, savedPoolLimit)
		}
	}

	for _, src := range domain.Sources {
		tracks, err := fetch(src)
		if err != nil {
			logger.Warn("library source failed", "source", src, "error", err)
			continue
		}
		insert(tracks, src)
	}
	return res
}
