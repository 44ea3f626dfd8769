package domain

// Tier names the fill strategy that contributed tracks to a preview.
type Tier string

const (
	TierSelection Tier = "selection"
	TierBackfill  Tier = "backfill"
	TierRelaxed   Tier = "relaxed"
)

// ReasonInsufficientTracks explains an empty preview.
const ReasonInsufficientTracks = "insufficient_tracks_after_fallback"

// PopThresholds are the popularity floors in effect for a build.
type PopThresholds struct {
	Track  int `json:"track"`
	Artist int `json:"artist"`
}

// Debug records every pipeline decision of one preview.
type Debug struct {
	Mode                       string            `json:"mode"`
	Market                     string            `json:"market,omitempty"`
	PopThresholds              PopThresholds     `json:"pop_thresholds"`
	RelaxedFloor               int               `json:"relaxed_floor"`
	LibrarySize                int               `json:"library_size"`
	Sources                    map[Source]int    `json:"sources"`
	Requested                  int               `json:"requested"`
	Selected                   int               `json:"selected"`
	ExplicitPolicy             ExplicitPolicy    `json:"explicit_policy"`
	CleanOnly                  bool              `json:"resolved_clean_only"`
	GenreTokens                []string          `json:"genre_tokens"`
	LibraryRequested           int               `json:"library_requested"`
	LibraryAccepted            int               `json:"library_accepted"`
	OutsideRequested           int               `json:"outside_requested"`
	OutsideResolved            int               `json:"outside_resolved"`
	MissingResolutions         []TitleArtist     `json:"missing_resolutions"`
	RejectedByGuard            int               `json:"rejected_low_pop"`
	DisallowedTotal            int               `json:"disallowed_total"`
	DisallowedFilteredFromPool int               `json:"disallowed_filtered_from_pool"`
	AdvisoryError              string            `json:"advisory_error,omitempty"`
	LLMAttempts                []SelectorAttempt `json:"llm_attempts"`
	TiersRun                   []Tier            `json:"tiers_run"`
	TierFills                  map[Tier]int      `json:"tier_fills"`
	SearchCalls                int               `json:"search_calls"`
	FallbackUsed               bool              `json:"fallback_used"`
	Reason                     string            `json:"reason,omitempty"`
}

// BuildPreview is the builder result: either exactly the requested number of
// URIs and tracks in assembly order, or none at all.
type BuildPreview struct {
	URIs   []string      `json:"uris"`
	Tracks []TrackRecord `json:"tracks"`
	Debug  Debug         `json:"debug"`
}

// Filled reports whether the preview met its quota.
func (p BuildPreview) Filled() bool {
	return len(p.URIs) > 0 && len(p.URIs) == p.Debug.Requested
}
