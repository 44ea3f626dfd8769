package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ewilliams-labs/moodmix/backend/internal/core/domain"
	"github.com/ewilliams-labs/moodmix/backend/internal/core/ports"
)

const (
	maxDescriptionLen = 300
	maxNameAttempts   = 500
	nameSeparator     = "•"

	defaultPageLimit = 50
	maxPageLimit     = 200
)

// Previewer produces track previews for a plan.
type Previewer interface {
	Preview(ctx context.Context, plan domain.MoodPlan, length int, excl domain.Exclusions) (domain.BuildPreview, error)
}

// OrchestratorConfig holds the request-level policy knobs.
type OrchestratorConfig struct {
	LeaseTTL    time.Duration
	HistoryDays int
	// CacheTTL is how old a stored playlist's remote state may get before a
	// listing refreshes it.
	CacheTTL time.Duration
	// BuildCooldown blocks planning and building for this long after the
	// user's last playlist. Zero disables it.
	BuildCooldown time.Duration
}

// OrchestratorDeps are the collaborators of an Orchestrator. Sync and
// Refresher may be nil.
type OrchestratorDeps struct {
	Planner   ports.Planner
	Builder   Previewer
	Remote    ports.PlaylistWriter
	Repo      ports.PlaylistRepository
	Leases    ports.LeaseStore
	Sync      ports.SyncQueue
	Refresher ports.PlaylistRefresher
}

// Orchestrator coordinates planning, previewing and creating playlists for a
// user, holding the per-user lease around plan-then-build.
type Orchestrator struct {
	planner ports.Planner
	builder Previewer
	remote  ports.PlaylistWriter
	repo    ports.PlaylistRepository
	leases  ports.LeaseStore
	sync    ports.SyncQueue
	refresh ports.PlaylistRefresher
	cfg     OrchestratorConfig
	logger  *log.Logger
	now     func() time.Time
	newID   func() string

	// tokens remembers the lease each user's last plan took, so a build
	// releases only that lease.
	mu     sync.Mutex
	tokens map[string]string
}

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(deps OrchestratorDeps, cfg OrchestratorConfig, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = 15 * time.Minute
	}
	if cfg.HistoryDays <= 0 {
		cfg.HistoryDays = 14
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 24 * time.Hour
	}
	return &Orchestrator{
		planner: deps.Planner,
		builder: deps.Builder,
		remote:  deps.Remote,
		repo:    deps.Repo,
		leases:  deps.Leases,
		sync:    deps.Sync,
		refresh: deps.Refresher,
		cfg:     cfg,
		logger:  logger.With("component", "orchestrator"),
		now:     time.Now,
		newID:   uuid.NewString,
		tokens:  make(map[string]string),
	}
}

// BuildRequest describes a playlist to create. Either Plan or Mood must be set.
type BuildRequest struct {
	Mood          string
	Plan          *domain.MoodPlan
	Length        int
	Name          string
	Public        bool
	Collaborative bool
}

// BuildResult is a created playlist and the preview it was filled from.
type BuildResult struct {
	Playlist domain.Playlist
	Preview  domain.BuildPreview
}

// PlanFromMood takes the user's lease and plans the mood. The lease stays
// held for the following Build unless planning fails.
func (o *Orchestrator) PlanFromMood(ctx context.Context, userID, mood string) (domain.MoodPlan, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.MoodPlan{}, fmt.Errorf("%w: user id is required", domain.ErrInvalidRequest)
	}
	if err := o.checkCooldown(ctx, userID); err != nil {
		return domain.MoodPlan{}, err
	}
	lease, err := o.leases.Acquire(ctx, userID, o.cfg.LeaseTTL)
	if err != nil {
		return domain.MoodPlan{}, err
	}
	plan, err := o.planner.Plan(ctx, mood)
	if err != nil {
		o.releaseLease(ctx, userID, lease.Token)
		return domain.MoodPlan{}, err
	}
	o.mu.Lock()
	o.tokens[userID] = lease.Token
	o.mu.Unlock()
	return plan, nil
}

// Preview builds a preview against the user's recent history. An unfilled
// preview is reported as a *domain.QuotaError carrying its debug record.
func (o *Orchestrator) Preview(ctx context.Context, userID string, plan domain.MoodPlan, length int) (domain.BuildPreview, error) {
	if length <= 0 {
		length = plan.Length
	}
	excl, err := o.exclusions(ctx, userID)
	if err != nil {
		return domain.BuildPreview{}, err
	}
	preview, err := o.builder.Preview(ctx, plan, length, excl)
	if err != nil {
		return domain.BuildPreview{}, fmt.Errorf("service: preview failed: %w", err)
	}
	if !preview.Filled() {
		return preview, &domain.QuotaError{
			Requested: preview.Debug.Requested,
			Selected:  preview.Debug.Selected,
			Debug:     preview.Debug,
		}
	}
	return preview, nil
}

// Build previews, creates the remote playlist, fills it and stores the
// record. The lease taken by the user's last plan is released on every path;
// with no plan on record the user's lease is released unconditionally.
func (o *Orchestrator) Build(ctx context.Context, userID string, req BuildRequest) (BuildResult, error) {
	defer o.releaseLease(ctx, userID, o.takeToken(userID))

	if strings.TrimSpace(userID) == "" {
		return BuildResult{}, fmt.Errorf("%w: user id is required", domain.ErrInvalidRequest)
	}
	if req.Public && req.Collaborative {
		return BuildResult{}, fmt.Errorf("%w: a playlist cannot be both public and collaborative", domain.ErrInvalidRequest)
	}
	if err := o.checkCooldown(ctx, userID); err != nil {
		return BuildResult{}, err
	}

	var plan domain.MoodPlan
	switch {
	case req.Plan != nil:
		plan = *req.Plan
		if err := plan.Validate(); err != nil {
			return BuildResult{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
		}
	case strings.TrimSpace(req.Mood) != "":
		p, err := o.planner.Plan(ctx, req.Mood)
		if err != nil {
			return BuildResult{}, err
		}
		plan = p
	default:
		return BuildResult{}, fmt.Errorf("%w: plan or mood is required", domain.ErrInvalidRequest)
	}

	length := req.Length
	if length <= 0 {
		length = plan.Length
	}
	preview, err := o.Preview(ctx, userID, plan, length)
	if err != nil {
		return BuildResult{Preview: preview}, err
	}

	desired := strings.TrimSpace(req.Name)
	if desired == "" {
		desired = o.deriveName(plan)
	}
	name, err := o.uniqueName(ctx, userID, desired)
	if err != nil {
		return BuildResult{}, err
	}

	remote, err := o.remote.CreatePlaylist(ctx, domain.NewRemotePlaylist{
		Name:          name,
		Description:   DeriveDescription(plan),
		Public:        req.Public,
		Collaborative: req.Collaborative,
	})
	if err != nil {
		return BuildResult{}, fmt.Errorf("service: failed to create playlist: %w", err)
	}
	snapshot, err := o.remote.AddItems(ctx, remote.ID, preview.URIs)
	if err != nil {
		return BuildResult{}, fmt.Errorf("service: failed to add tracks: %w", err)
	}

	record, err := domain.NewPlaylist(o.newID(), userID, name)
	if err != nil {
		return BuildResult{}, err
	}
	record.Mood = moodLabel(plan)
	record.RemoteID = remote.ID
	record.RemoteURL = remote.URL
	record.SnapshotID = snapshot
	record.Public = req.Public
	record.CreatedAt = o.now().UTC()
	record.RemoteCount = len(preview.URIs)
	for _, tr := range preview.Tracks {
		if err := record.AddTrack(tr.Track()); err != nil {
			return BuildResult{}, fmt.Errorf("service: domain rule violation: %w", err)
		}
	}

	if err := o.repo.Save(ctx, *record); err != nil {
		return BuildResult{}, fmt.Errorf("service: failed to save playlist: %w", err)
	}
	if o.sync != nil {
		o.sync.Enqueue(record.ID, record.RemoteID)
	}
	o.logger.Info("playlist built", "user", userID, "playlist", record.ID, "tracks", len(record.Tracks))
	return BuildResult{Playlist: *record, Preview: preview}, nil
}

// PlaylistPage is one page of a user's stored playlists, newest first.
type PlaylistPage struct {
	Playlists []domain.Playlist
	Count     int
	Limit     int
	Offset    int
	// NextOffset is nil on the last page.
	NextOffset *int
	// RetryAfter relays the catalog's hint when the refresh was rate limited.
	RetryAfter string
}

// ListPlaylists refreshes the user's stale playlists, then returns one page
// of them. limit is clamped to 1..200 and a negative offset counts as zero.
// A failed or rate-limited refresh still serves the stored records.
func (o *Orchestrator) ListPlaylists(ctx context.Context, userID string, limit, offset int) (PlaylistPage, error) {
	page := PlaylistPage{Limit: max(1, min(maxPageLimit, limit)), Offset: max(0, offset)}

	if o.refresh != nil {
		report, err := o.refresh.RefreshStale(ctx, userID, o.cfg.CacheTTL)
		switch {
		case err != nil:
			o.logger.Warn("playlist refresh failed", "user", userID, "error", err)
		case report.RateLimited:
			page.RetryAfter = report.RetryAfter
		}
		if report.Refreshed+report.Deleted > 0 {
			o.logger.Debug("playlists refreshed", "user", userID, "refreshed", report.Refreshed, "deleted", report.Deleted)
		}
	}

	pls, total, err := o.repo.ListPage(ctx, userID, page.Limit, page.Offset)
	if err != nil {
		return PlaylistPage{}, fmt.Errorf("service: failed to list playlists: %w", err)
	}
	page.Playlists = pls
	page.Count = total
	if next := page.Offset + page.Limit; next < total {
		page.NextOffset = &next
	}
	return page, nil
}

// GetPlaylist returns one stored playlist owned by the user.
func (o *Orchestrator) GetPlaylist(ctx context.Context, userID, id string) (domain.Playlist, error) {
	pl, err := o.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Playlist{}, fmt.Errorf("service: failed to load playlist: %w", err)
	}
	if pl.OwnerID != userID {
		return domain.Playlist{}, fmt.Errorf("service: failed to load playlist: %w", domain.ErrNotFound)
	}
	return pl, nil
}

func (o *Orchestrator) exclusions(ctx context.Context, userID string) (domain.Exclusions, error) {
	since := o.now().Add(-time.Duration(o.cfg.HistoryDays) * 24 * time.Hour)
	history, err := o.repo.ListByOwner(ctx, userID, since)
	if err != nil {
		return domain.Exclusions{}, fmt.Errorf("service: failed to load history: %w", err)
	}
	return ExclusionsFromHistory(history), nil
}

// checkCooldown rejects users whose newest playlist is younger than the
// configured cooldown.
func (o *Orchestrator) checkCooldown(ctx context.Context, userID string) error {
	if o.cfg.BuildCooldown <= 0 {
		return nil
	}
	now := o.now()
	recent, err := o.repo.ListByOwner(ctx, userID, now.Add(-o.cfg.BuildCooldown))
	if err != nil {
		return fmt.Errorf("service: failed to load history: %w", err)
	}
	if len(recent) == 0 {
		return nil
	}
	last := recent[0].CreatedAt
	next := last.Add(o.cfg.BuildCooldown)
	if !now.Before(next) {
		return nil
	}
	return &domain.CooldownError{LastCreatedAt: last, RetryAt: next, RetryAfter: next.Sub(now)}
}

func (o *Orchestrator) takeToken(userID string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	token := o.tokens[userID]
	delete(o.tokens, userID)
	return token
}

func (o *Orchestrator) releaseLease(ctx context.Context, userID, token string) {
	if userID == "" {
		return
	}
	if err := o.leases.Release(context.WithoutCancel(ctx), userID, token); err != nil {
		o.logger.Warn("release lease failed", "user", userID, "error", err)
	}
}

func (o *Orchestrator) deriveName(plan domain.MoodPlan) string {
	base := titleCase(moodLabel(plan))
	if base == "" {
		base = "MoodMix"
	}
	return fmt.Sprintf("%s %s MoodMix %s %s", base, nameSeparator, nameSeparator, o.now().Format("01/02/2006"))
}

// uniqueName numbers the playlist after the owner's existing ones, skipping
// names already taken.
func (o *Orchestrator) uniqueName(ctx context.Context, userID, desired string) (string, error) {
	existing, err := o.repo.ListByOwner(ctx, userID, time.Time{})
	if err != nil {
		return "", fmt.Errorf("service: failed to list playlists: %w", err)
	}
	taken := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		taken[nameKey(p.Name)] = struct{}{}
	}

	left := strings.TrimSpace(desired)
	if i := strings.Index(left, nameSeparator); i >= 0 {
		left = strings.TrimSpace(left[:i])
	}
	if left == "" {
		left = "MoodMix"
	}
	date := o.now().Format("01/02/2006")
	start := len(existing) + 1
	for n := start; n < start+maxNameAttempts; n++ {
		candidate := fmt.Sprintf("%s %s MoodMix PL %d %s %s", left, nameSeparator, n, nameSeparator, date)
		if _, ok := taken[nameKey(candidate)]; !ok {
			return candidate, nil
		}
	}
	return fmt.Sprintf("%s %s MoodMix PL %d %s %s %s %s", left, nameSeparator, start, nameSeparator, date, nameSeparator, o.now().Format("15:04:05")), nil
}

// DeriveDescription summarizes the plan for the remote playlist.
func DeriveDescription(plan domain.MoodPlan) string {
	intent := strings.TrimSpace(plan.Intent)
	if intent == "" {
		intent = "-"
	}
	stages := head(orderingStrings(plan.Plan.Ordering), 5)
	desc := fmt.Sprintf("MoodMix %s intent: %s %s tags: %s %s flow: %s",
		nameSeparator, intent,
		nameSeparator, strings.Join(head(plan.SemanticTags, 5), ", "),
		nameSeparator, strings.Join(stages, ", "))
	return truncate(desc, maxDescriptionLen)
}

func orderingStrings(stages []domain.OrderingStage) []string {
	out := make([]string, len(stages))
	for i, s := range stages {
		out[i] = string(s)
	}
	return out
}

func moodLabel(plan domain.MoodPlan) string {
	if m := strings.TrimSpace(plan.NormalizedMood); m != "" {
		return m
	}
	return strings.TrimSpace(plan.Intent)
}

func nameKey(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// titleCase upper-cases the first letter of every word and lower-cases the rest.
func titleCase(s string) string {
	return strings.TrimSpace(cases.Title(language.Und).String(s))
}
