package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/ewilliams-labs/moodmix/backend/internal/core/domain"
	"github.com/ewilliams-labs/moodmix/backend/internal/core/ports"
)

const plannerSystemPrompt = `You are a playlist planning assistant.
Output ONLY a single JSON object with exactly this shape. No prose, no code fences.
{
  "normalized_mood": "concise label like 'calm focus' or 'hype pre-game'",
  "intent": "short phrase of intent, e.g. 'motivation', 'focus', 'relaxation'",
  "semantic_tags": ["1-8 short tags"],
  "constraints": {"energy": "<level>", "danceability": "<level>", "explicit_allowed": "yes|no|user_pref"},
  "plan": {"themes": ["1-6"], "candidate_buckets": ["1-6"], "novelty_ratio": 0.3, "ordering": ["3-6 stages"]}
}
Constraints:
- ordering MUST contain 3-6 items chosen ONLY from: [strong opener, energy climb, peak, crowd chant, soft landing, cool-down, encore].
- Do NOT put genres or eras in ordering; those belong in themes or candidate_buckets.
- energy and danceability MUST be exactly one of: [very_low, low, medium_low, medium, medium_high, high, very_high].
- Use concrete musical language; do NOT include track IDs.`

const defaultNoveltyRatio = 0.3

// MoodPlanner turns mood text into a validated MoodPlan using a chat model.
type MoodPlanner struct {
	model  ports.ChatModel
	logger *log.Logger
}

// NewMoodPlanner constructs a MoodPlanner.
func NewMoodPlanner(model ports.ChatModel, logger *log.Logger) *MoodPlanner {
	if logger == nil {
		logger = log.Default()
	}
	return &MoodPlanner{model: model, logger: logger.With("component", "planner")}
}

// rawPlan mirrors MoodPlan with loose fields so model output can be repaired
// before validation.
type rawPlan struct {
	NormalizedMood string   `json:"normalized_mood"`
	Intent         string   `json:"intent"`
	SemanticTags   []string `json:"semantic_tags"`
	Constraints    struct {
		Energy          string `json:"energy"`
		Danceability    string `json:"danceability"`
		ExplicitAllowed string `json:"explicit_allowed"`
	} `json:"constraints"`
	Plan struct {
		Themes           []string `json:"themes"`
		CandidateBuckets []string `json:"candidate_buckets"`
		NoveltyRatio     *float64 `json:"novelty_ratio"`
		Ordering         []string `json:"ordering"`
	} `json:"plan"`
}

// Plan implements ports.Planner.
func (p *MoodPlanner) Plan(ctx context.Context, mood string) (domain.MoodPlan, error) {
	mood = strings.TrimSpace(mood)
	if mood == "" {
		return domain.MoodPlan{}, fmt.Errorf("%w: mood must be a non-empty string", domain.ErrInvalidRequest)
	}

	raw, err := p.model.Chat(ctx, []domain.ChatMessage{
		{Role: "system", Content: plannerSystemPrompt},
		{Role: "user", Content: "Mood text: " + mood},
	})
	if err != nil {
		return domain.MoodPlan{}, fmt.Errorf("%w: %w", domain.ErrPlannerUnavailable, err)
	}

	obj, err := extractJSONObject(stripCodeFence(raw))
	if err != nil {
		return domain.MoodPlan{}, fmt.Errorf("%w: planner output: %v", domain.ErrInvalidPlan, err)
	}
	var rp rawPlan
	if err := json.Unmarshal([]byte(obj), &rp); err != nil {
		return domain.MoodPlan{}, fmt.Errorf("%w: planner output is not valid JSON: %v", domain.ErrInvalidPlan, err)
	}

	plan := rp.normalize()
	if err := plan.Validate(); err != nil {
		p.logger.Warn("planner output failed validation", "error", err)
		return domain.MoodPlan{}, fmt.Errorf("planner: %w", err)
	}
	plan.Length = domain.InferLength(mood)
	return plan, nil
}

func (rp rawPlan) normalize() domain.MoodPlan {
	plan := domain.MoodPlan{
		NormalizedMood: strings.TrimSpace(rp.NormalizedMood),
		Intent:         strings.TrimSpace(rp.Intent),
		SemanticTags:   rp.SemanticTags,
		Constraints: domain.Constraints{
			ExplicitAllowed: domain.ExplicitPolicy(strings.ToLower(strings.TrimSpace(rp.Constraints.ExplicitAllowed))),
		},
		Plan: domain.PlanShape{
			Themes:           rp.Plan.Themes,
			CandidateBuckets: rp.Plan.CandidateBuckets,
			NoveltyRatio:     defaultNoveltyRatio,
			Ordering:         domain.CoerceOrdering(rp.Plan.Ordering),
		},
	}
	if plan.Constraints.ExplicitAllowed == "" {
		plan.Constraints.ExplicitAllowed = domain.ExplicitUserPref
	}
	if rp.Plan.NoveltyRatio != nil {
		plan.Plan.NoveltyRatio = *rp.Plan.NoveltyRatio
	}
	plan.Constraints.Energy = normalizeOrKeep(rp.Constraints.Energy)
	plan.Constraints.Danceability = normalizeOrKeep(rp.Constraints.Danceability)
	return plan
}

// normalizeOrKeep maps a loose level onto the scale, keeping the raw value
// when it cannot be mapped so validation reports it.
func normalizeOrKeep(raw string) domain.Level {
	if l, ok := domain.NormalizeLevel(raw); ok {
		return l
	}
	return domain.Level(strings.TrimSpace(raw))
}

// stripCodeFence removes a surrounding markdown code fence.
func stripCodeFence(s string) string {
	text := strings.TrimSpace(s)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")[1:]
	if n := len(lines); n > 0 && strings.HasPrefix(strings.TrimSpace(lines[n-1]), "```") {
		lines = lines[:n-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
