package services

import (
	"context"
	"sort"

	"github.com/ewilliams-labs/moodmix/backend/internal/core/domain"
)

// fillTier is one strategy for filling the remaining slots of a preview.
// Tiers run in order and only while the quota is unmet.
type fillTier interface {
	Name() domain.Tier
	Fill(ctx context.Context, run *buildRun) error
}

// selectionTier asks the advisory selector for picks, resolves them through
// the guards and keeps the first unique ones.
type selectionTier struct{}

func (selectionTier) Name() domain.Tier { return domain.TierSelection }

func (selectionTier) Fill(ctx context.Context, run *buildRun) error {
	picks := run.advise(ctx)
	if err := ctx.Err(); err != nil {
		return err
	}

	var candidates []domain.Track
	for _, p := range picks {
		if !p.IsLibrary() {
			continue
		}
		run.debug.LibraryRequested++
		if t, ok := run.resolveLibraryPick(ctx, p); ok {
			run.debug.LibraryAccepted++
			candidates = append(candidates, t)
		}
	}
	for _, p := range picks {
		if p.IsLibrary() {
			continue
		}
		run.debug.OutsideRequested++
		t, ok := run.resolveOutsidePick(ctx, p)
		if !ok {
			run.debug.MissingResolutions = append(run.debug.MissingResolutions, domain.TitleArtist{Title: p.Title, Artist: p.Artist})
			continue
		}
		run.debug.OutsideResolved++
		candidates = append(candidates, t)
	}

	for _, t := range candidates {
		if run.need() <= 0 {
			break
		}
		run.accept(t)
	}
	return nil
}

// advise runs the selector. A failed selection is recorded and yields no picks.
func (r *buildRun) advise(ctx context.Context) []domain.SelectorPick {
	if r.b.deps.Selector == nil {
		return nil
	}
	in := domain.SelectorInput{
		Plan:                  r.plan,
		Library:               r.pool.Snapshot(r.b.cfg.LibraryCap),
		Length:                r.n,
		Market:                r.market,
		DisallowedLibraryIDs:  r.excl.IDs(),
		DisallowedTitleArtist: r.excl.Pairs(),
	}
	sel, err := r.b.deps.Selector.SelectTracks(ctx, in)
	if err != nil {
		r.debug.AdvisoryError = err.Error()
		r.debug.LLMAttempts = append(r.debug.LLMAttempts, domain.AttemptsFrom(err)...)
		r.logger.Warn("advisory selection unavailable", "error", err)
		return nil
	}
	r.debug.LLMAttempts = append(r.debug.LLMAttempts, sel.Attempts...)
	return sel.Result.Picks
}

// backfillTier searches plan and pool-artist queries and accepts guarded
// candidates in popularity order.
type backfillTier struct{}

func (backfillTier) Name() domain.Tier { return domain.TierBackfill }

func (backfillTier) Fill(ctx context.Context, run *buildRun) error {
	queries := head(BackfillQueries(run.plan, run.pool, run.cleanOnly), run.b.cfg.MaxBackfillQueries)
	for _, q := range queries {
		if run.need() <= 0 {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		items := byPopularity(run.search(ctx, q))

		eligible := make([]domain.Track, 0, len(items))
		for _, t := range items {
			if run.eligible(t) {
				eligible = append(eligible, t)
			}
		}
		kept, rejected := run.guard.Filter(ctx, eligible)
		run.debug.RejectedByGuard += rejected

		for _, t := range kept {
			if run.need() <= 0 {
				break
			}
			run.accept(t)
		}
	}
	return nil
}

// relaxedTier searches genre and mood queries, accepting anything above the
// relaxed popularity floor without a genre check. Explicit policy, bans and
// dedup still apply.
type relaxedTier struct{}

func (relaxedTier) Name() domain.Tier { return domain.TierRelaxed }

func (relaxedTier) Fill(ctx context.Context, run *buildRun) error {
	floor := run.b.cfg.RelaxedFloor()
	for _, q := range RelaxedQueries(run.guard.tokens, run.plan.MoodWord()) {
		if run.need() <= 0 {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, t := range byPopularity(run.search(ctx, q)) {
			if run.need() <= 0 {
				break
			}
			if !run.eligible(t) || t.Popularity < floor {
				continue
			}
			run.accept(t)
		}
	}
	return nil
}

// byPopularity sorts in place, highest popularity first, keeping catalog
// order for ties.
func byPopularity(items []domain.Track) []domain.Track {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Popularity > items[j].Popularity
	})
	return items
}
