package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Level is a point on the 7-step ordinal scale used for energy and danceability.
type Level string

const (
	LevelVeryLow    Level = "very_low"
	LevelLow        Level = "low"
	LevelMediumLow  Level = "medium_low"
	LevelMedium     Level = "medium"
	LevelMediumHigh Level = "medium_high"
	LevelHigh       Level = "high"
	LevelVeryHigh   Level = "very_high"
)

// Levels lists the scale in ascending order.
var Levels = []Level{
	LevelVeryLow, LevelLow, LevelMediumLow, LevelMedium, LevelMediumHigh, LevelHigh, LevelVeryHigh,
}

// ExplicitPolicy controls whether explicit tracks may be selected.
type ExplicitPolicy string

const (
	ExplicitYes      ExplicitPolicy = "yes"
	ExplicitNo       ExplicitPolicy = "no"
	ExplicitUserPref ExplicitPolicy = "user_pref"
)

// OrderingStage labels a segment of the playlist arc.
type OrderingStage string

const (
	StageStrongOpener OrderingStage = "strong opener"
	StageEnergyClimb  OrderingStage = "energy climb"
	StagePeak         OrderingStage = "peak"
	StageCrowdChant   OrderingStage = "crowd chant"
	StageSoftLanding  OrderingStage = "soft landing"
	StageCoolDown     OrderingStage = "cool-down"
	StageEncore       OrderingStage = "encore"
)

// OrderingStages lists every allowed stage label.
var OrderingStages = []OrderingStage{
	StageStrongOpener, StageEnergyClimb, StagePeak, StageCrowdChant, StageSoftLanding, StageCoolDown, StageEncore,
}

// DefaultOrdering is used when the planner produced no usable stage labels.
var DefaultOrdering = []OrderingStage{StageStrongOpener, StageEnergyClimb, StagePeak, StageSoftLanding}

const (
	MinPlaylistLength     = 4
	MaxPlaylistLength     = 10
	DefaultPlaylistLength = 10
)

// Constraints are soft guidance knobs produced by the planner.
type Constraints struct {
	Energy          Level          `json:"energy,omitempty"`
	Danceability    Level          `json:"danceability,omitempty"`
	ExplicitAllowed ExplicitPolicy `json:"explicit_allowed,omitempty"`
}

// PlanShape describes what to look for and how to order it.
type PlanShape struct {
	Themes           []string        `json:"themes"`
	CandidateBuckets []string        `json:"candidate_buckets"`
	NoveltyRatio     float64         `json:"novelty_ratio"`
	Ordering         []OrderingStage `json:"ordering"`
}

// MoodPlan is the structured interpretation of a free-text mood.
type MoodPlan struct {
	NormalizedMood string      `json:"normalized_mood"`
	Intent         string      `json:"intent"`
	SemanticTags   []string    `json:"semantic_tags"`
	Constraints    Constraints `json:"constraints"`
	Plan           PlanShape   `json:"plan"`

	// Length is inferred from the mood text, never chosen by the model.
	Length int `json:"length,omitempty"`
}

// ExplicitPolicy returns the plan's explicit setting, defaulting to user_pref.
func (p MoodPlan) ExplicitPolicy() ExplicitPolicy {
	switch p.Constraints.ExplicitAllowed {
	case ExplicitYes, ExplicitNo:
		return p.Constraints.ExplicitAllowed
	default:
		return ExplicitUserPref
	}
}

// MoodWord returns the first word of the mood label (or intent), lowercased.
func (p MoodPlan) MoodWord() string {
	src := strings.TrimSpace(p.NormalizedMood)
	if src == "" {
		src = strings.TrimSpace(p.Intent)
	}
	fields := strings.Fields(src)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}

// Validate checks the structural constraints of a plan.
func (p MoodPlan) Validate() error {
	if strings.TrimSpace(p.NormalizedMood) == "" {
		return fmt.Errorf("%w: normalized_mood is required", ErrInvalidPlan)
	}
	if strings.TrimSpace(p.Intent) == "" {
		return fmt.Errorf("%w: intent is required", ErrInvalidPlan)
	}
	if err := checkCount("semantic_tags", len(p.SemanticTags), 1, 8); err != nil {
		return err
	}
	if err := checkLevel("energy", p.Constraints.Energy); err != nil {
		return err
	}
	if err := checkLevel("danceability", p.Constraints.Danceability); err != nil {
		return err
	}
	switch p.Constraints.ExplicitAllowed {
	case "", ExplicitYes, ExplicitNo, ExplicitUserPref:
	default:
		return fmt.Errorf("%w: explicit_allowed %q", ErrInvalidPlan, p.Constraints.ExplicitAllowed)
	}
	if err := checkCount("plan.themes", len(p.Plan.Themes), 1, 6); err != nil {
		return err
	}
	if err := checkCount("plan.candidate_buckets", len(p.Plan.CandidateBuckets), 1, 6); err != nil {
		return err
	}
	if p.Plan.NoveltyRatio < 0 || p.Plan.NoveltyRatio > 1 {
		return fmt.Errorf("%w: novelty_ratio %v outside [0,1]", ErrInvalidPlan, p.Plan.NoveltyRatio)
	}
	if err := checkCount("plan.ordering", len(p.Plan.Ordering), 1, 6); err != nil {
		return err
	}
	for _, st := range p.Plan.Ordering {
		if !isOrderingStage(st) {
			return fmt.Errorf("%w: ordering stage %q", ErrInvalidPlan, st)
		}
	}
	return nil
}

func checkCount(field string, n, lo, hi int) error {
	if n < lo || n > hi {
		return fmt.Errorf("%w: %s must have %d-%d items, got %d", ErrInvalidPlan, field, lo, hi, n)
	}
	return nil
}

func checkLevel(field string, l Level) error {
	if l == "" {
		return nil
	}
	for _, v := range Levels {
		if v == l {
			return nil
		}
	}
	return fmt.Errorf("%w: %s level %q", ErrInvalidPlan, field, l)
}

func isOrderingStage(s OrderingStage) bool {
	for _, v := range OrderingStages {
		if v == s {
			return true
		}
	}
	return false
}

var lengthHint = regexp.MustCompile(`\b(\d{1,3})\b`)

// InferLength reads the first number in the mood text and clamps it to 4..10.
// Text without a number yields the default length.
func InferLength(text string) int {
	m := lengthHint.FindStringSubmatch(text)
	if m == nil {
		return DefaultPlaylistLength
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return DefaultPlaylistLength
	}
	// a hint of zero is still a hint, unlike ClampLength's "unset"
	return max(MinPlaylistLength, min(MaxPlaylistLength, n))
}

// ClampLength bounds a requested length to the supported range; zero means default.
func ClampLength(n int) int {
	if n == 0 {
		return DefaultPlaylistLength
	}
	if n < MinPlaylistLength {
		return MinPlaylistLength
	}
	if n > MaxPlaylistLength {
		return MaxPlaylistLength
	}
	return n
}

var levelSynonyms = map[string]Level{
	"verylow":          LevelVeryLow,
	"ultra_low":        LevelVeryLow,
	"super_low":        LevelVeryLow,
	"mid_low":          LevelMediumLow,
	"mediumlow":        LevelMediumLow,
	"moderate":         LevelMedium,
	"moderate_to_low":  LevelMediumLow,
	"moderate_to_high": LevelMediumHigh,
	"moderate_high":    LevelMediumHigh,
	"veryhigh":         LevelVeryHigh,
	"ultra_high":       LevelVeryHigh,
	"super_high":       LevelVeryHigh,
}

// NormalizeLevel maps loose model output ("Moderate", "very-high") onto the scale.
// It returns false when nothing sensible can be derived.
func NormalizeLevel(raw string) (Level, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	if s == "" {
		return "", false
	}
	if l, ok := levelSynonyms[s]; ok {
		return l, true
	}
	for _, l := range Levels {
		if Level(s) == l {
			return l, true
		}
	}
	has := func(sub string) bool { return strings.Contains(s, sub) }
	switch {
	case has("very") && has("low"):
		return LevelVeryLow, true
	case has("very") && has("high"):
		return LevelVeryHigh, true
	case has("high") && has("medium"):
		return LevelMediumHigh, true
	case has("low") && has("medium"):
		return LevelMediumLow, true
	case has("high"):
		return LevelHigh, true
	case has("low"):
		return LevelLow, true
	case has("medium") || has("moderate"):
		return LevelMedium, true
	}
	return "", false
}

var stageAliases = map[string]OrderingStage{
	"opener":    StageStrongOpener,
	"intro":     StageStrongOpener,
	"rise":      StageEnergyClimb,
	"build":     StageEnergyClimb,
	"ramp":      StageEnergyClimb,
	"climax":    StagePeak,
	"chant":     StageCrowdChant,
	"crowd":     StageCrowdChant,
	"cooldown":  StageCoolDown,
	"cool down": StageCoolDown,
	"landing":   StageSoftLanding,
	"close":     StageSoftLanding,
	"outro":     StageSoftLanding,
	"bonus":     StageEncore,
}

// CoerceOrdering maps loose stage labels onto the allowed set, drops unknown
// and repeated labels, and caps the result at six entries.
func CoerceOrdering(raw []string) []OrderingStage {
	out := make([]OrderingStage, 0, 6)
	limit := len(raw)
	if limit > 6 {
		limit = 6
	}
	for _, s := range raw[:limit] {
		t := strings.TrimSpace(s)
		stage := OrderingStage(t)
		if alias, ok := stageAliases[strings.ToLower(t)]; ok {
			stage = alias
		}
		if !isOrderingStage(stage) {
			continue
		}
		dup := false
		for _, seen := range out {
			if seen == stage {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, stage)
		}
	}
	if len(out) == 0 {
		out = append(out, DefaultOrdering...)
	}
	return out
}
