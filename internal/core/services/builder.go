package services

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/ewilliams-labs/moodmix/backend/internal/core/domain"
	"github.com/ewilliams-labs/moodmix/backend/internal/core/ports"
)

// BuilderConfig holds the tunables of the track pipeline.
type BuilderConfig struct {
	MinTrackPop        int
	MinArtistPop       int
	LibraryCap         int
	SearchLimit        int
	MaxBackfillQueries int
}

// DefaultBuilderConfig returns the production thresholds.
func DefaultBuilderConfig() BuilderConfig {
	return BuilderConfig{
		MinTrackPop:        35,
		MinArtistPop:       35,
		LibraryCap:         400,
		SearchLimit:        10,
		MaxBackfillQueries: 12,
	}
}

// RelaxedFloor is the track popularity floor of the relaxed tier.
func (c BuilderConfig) RelaxedFloor() int {
	return max(10, c.MinTrackPop/2)
}

// BuilderDeps are the collaborators of a PlaylistBuilder.
type BuilderDeps struct {
	Library  ports.LibrarySource
	Search   ports.TrackSearcher
	Artists  ports.ArtistLookup
	Profile  ports.ProfileSource
	Selector ports.TrackSelector
}

// PlaylistBuilder turns a plan into exactly N tracks or nothing. It holds no
// per-call state; every Preview gets its own buildRun.
type PlaylistBuilder struct {
	deps   BuilderDeps
	cfg    BuilderConfig
	tiers  []fillTier
	logger *log.Logger
}

// NewPlaylistBuilder constructs a PlaylistBuilder with the standard tiers.
func NewPlaylistBuilder(deps BuilderDeps, cfg BuilderConfig, logger *log.Logger) *PlaylistBuilder {
	if logger == nil {
		logger = log.Default()
	}
	def := DefaultBuilderConfig()
	if cfg.LibraryCap <= 0 {
		cfg.LibraryCap = def.LibraryCap
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = def.SearchLimit
	}
	if cfg.MaxBackfillQueries <= 0 {
		cfg.MaxBackfillQueries = def.MaxBackfillQueries
	}
	return &PlaylistBuilder{
		deps:   deps,
		cfg:    cfg,
		tiers:  []fillTier{selectionTier{}, backfillTier{}, relaxedTier{}},
		logger: logger.With("component", "builder"),
	}
}

// Config returns the builder's thresholds.
func (b *PlaylistBuilder) Config() BuilderConfig {
	return b.cfg
}

// buildRun is the mutable state of one Preview call.
type buildRun struct {
	b         *PlaylistBuilder
	plan      domain.MoodPlan
	n         int
	market    string
	cleanOnly bool
	excl      domain.Exclusions
	pool      *domain.CandidatePool
	guard     *guard
	dedup     *domain.Deduper
	tracks    []domain.Track
	debug     domain.Debug
	logger    *log.Logger
}

func (r *buildRun) need() int {
	return r.n - len(r.tracks)
}

// eligible applies the hard filters every accepted track must pass no
// matter which tier proposes it.
func (r *buildRun) eligible(t domain.Track) bool {
	if !t.Playable() {
		return false
	}
	if r.excl.Blocks(t) {
		return false
	}
	if r.dedup.Seen(t) {
		return false
	}
	return AllowsExplicit(t, r.cleanOnly)
}

// accept appends the track unless it duplicates an accepted one.
func (r *buildRun) accept(t domain.Track) bool {
	if r.need() <= 0 {
		return false
	}
	if !r.dedup.Add(t) {
		return false
	}
	r.tracks = append(r.tracks, t)
	return true
}

// search runs one catalog query. Failures count as an empty result.
func (r *buildRun) search(ctx context.Context, q string) []domain.Track {
	r.debug.SearchCalls++
	items, err := r.b.deps.Search.SearchTracks(ctx, q, r.b.cfg.SearchLimit, r.market)
	if err != nil {
		r.logger.Warn("search failed", "query", q, "error", err)
		return nil
	}
	return items
}

// Preview runs the pipeline for one plan. The returned preview either holds
// exactly the requested number of tracks or none, with Debug explaining why.
// The error is non-nil only when ctx is cancelled.
func (b *PlaylistBuilder) Preview(ctx context.Context, plan domain.MoodPlan, length int, excl domain.Exclusions) (domain.BuildPreview, error) {
	n := domain.ClampLength(length)
	run := &buildRun{
		b:      b,
		plan:   plan,
		n:      n,
		excl:   excl,
		logger: b.logger,
	}

	pr := collectPool(ctx, b.deps.Library, excl, b.logger)
	if err := ctx.Err(); err != nil {
		return domain.BuildPreview{}, err
	}
	run.pool = pr.pool

	var userWantsClean bool
	if b.deps.Profile != nil {
		profile, err := b.deps.Profile.GetProfile(ctx)
		if err != nil {
			b.logger.Warn("profile unavailable, allowing explicit content", "error", err)
		} else {
			run.market = profile.Country
			userWantsClean = profile.ExplicitFilterEnabled
		}
	}

	policy := plan.ExplicitPolicy()
	switch policy {
	case domain.ExplicitNo:
		run.cleanOnly = true
	case domain.ExplicitYes:
		run.cleanOnly = false
	default:
		run.cleanOnly = userWantsClean
	}

	tokens := domain.DeriveGenreTokens(plan)
	run.guard = newGuard(b.deps.Artists, b.cfg.MinTrackPop, b.cfg.MinArtistPop, tokens, b.logger)
	run.dedup = domain.NewDeduper(excl.IDs()...)
	run.debug = domain.Debug{
		Market:                     run.market,
		PopThresholds:              domain.PopThresholds{Track: b.cfg.MinTrackPop, Artist: b.cfg.MinArtistPop},
		RelaxedFloor:               b.cfg.RelaxedFloor(),
		LibrarySize:                pr.pool.Len(),
		Sources:                    pr.counts,
		Requested:                  n,
		ExplicitPolicy:             policy,
		CleanOnly:                  run.cleanOnly,
		GenreTokens:                tokens,
		MissingResolutions:         []domain.TitleArtist{},
		DisallowedTotal:            excl.Len(),
		DisallowedFilteredFromPool: pr.filtered,
		LLMAttempts:                []domain.SelectorAttempt{},
		TierFills:                  make(map[domain.Tier]int, len(b.tiers)),
	}

	for _, tier := range b.tiers {
		if run.need() <= 0 {
			break
		}
		if err := ctx.Err(); err != nil {
			return domain.BuildPreview{}, err
		}
		before := len(run.tracks)
		if err := tier.Fill(ctx, run); err != nil {
			return domain.BuildPreview{}, err
		}
		run.debug.TiersRun = append(run.debug.TiersRun, tier.Name())
		run.debug.TierFills[tier.Name()] = len(run.tracks) - before
		if tier.Name() != domain.TierSelection {
			run.debug.FallbackUsed = true
		}
	}
	if err := ctx.Err(); err != nil {
		return domain.BuildPreview{}, err
	}

	modes := make([]string, 0, len(run.debug.TiersRun))
	for _, t := range run.debug.TiersRun {
		modes = append(modes, string(t))
	}
	run.debug.Mode = strings.Join(modes, "+")
	run.debug.Selected = len(run.tracks)

	if len(run.tracks) < n {
		run.debug.Reason = domain.ReasonInsufficientTracks
		b.logger.Info("preview under quota", "requested", n, "selected", len(run.tracks), "tiers", run.debug.Mode)
		return domain.BuildPreview{URIs: []string{}, Tracks: []domain.TrackRecord{}, Debug: run.debug}, nil
	}

	preview := domain.BuildPreview{
		URIs:   make([]string, 0, n),
		Tracks: make([]domain.TrackRecord, 0, n),
		Debug:  run.debug,
	}
	for _, t := range run.tracks {
		preview.URIs = append(preview.URIs, t.URI)
		preview.Tracks = append(preview.Tracks, t.Record())
	}
	b.logger.Debug("preview filled", "requested", n, "tiers", run.debug.Mode, "searches", run.debug.SearchCalls)
	return preview, nil
}
