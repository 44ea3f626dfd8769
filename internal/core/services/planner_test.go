package services

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/ewilliams-labs/moodmix/backend/internal/core/domain"
)

const fencedPlan = "```json\n" + `{
  "normalized_mood": "rainy study",
  "intent": "focus",
  "semantic_tags": ["lofi", "mellow"],
  "constraints": {"energy": "Moderate", "danceability": "very-low", "explicit_allowed": "no"},
  "plan": {"themes": ["rain"], "candidate_buckets": ["jazzhop"], "ordering": ["intro", "build", "climax", "outro", "90s"]}
}` + "\n```"

func TestMoodPlanner_Plan(t *testing.T) {
	tests := []struct {
		name      string
		mood      string
		reply     string
		chatErr   error
		wantErr   error
		wantCalls int
	}{
		{name: "repairs loose output", mood: "give me 6 songs for a rainy study session", reply: fencedPlan, wantCalls: 1},
		{name: "empty mood", mood: "   ", wantErr: domain.ErrInvalidRequest},
		{name: "not json", mood: "happy", reply: "I cannot help with that", wantErr: domain.ErrInvalidPlan, wantCalls: 1},
		{name: "missing themes", mood: "happy", reply: `{"normalized_mood":"happy","intent":"joy","semantic_tags":["sunny"],"constraints":{},"plan":{"candidate_buckets":["pop"],"ordering":["peak"]}}`, wantErr: domain.ErrInvalidPlan, wantCalls: 1},
		{name: "model failure", mood: "happy", chatErr: errors.New("ollama down"), wantCalls: 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			chat := &fakeChat{replies: []string{tc.reply}, err: tc.chatErr}
			p := NewMoodPlanner(chat, quietLogger())

			plan, err := p.Plan(context.Background(), tc.mood)
			if len(chat.calls) != tc.wantCalls {
				t.Fatalf("chat calls = %d, want %d", len(chat.calls), tc.wantCalls)
			}
			if tc.chatErr != nil {
				if !errors.Is(err, tc.chatErr) || !errors.Is(err, domain.ErrPlannerUnavailable) {
					t.Fatalf("expected wrapped model error, got %v", err)
				}
				return
			}
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if plan.Constraints.Energy != domain.LevelMedium || plan.Constraints.Danceability != domain.LevelVeryLow {
				t.Fatalf("levels not normalized: %+v", plan.Constraints)
			}
			wantOrdering := []domain.OrderingStage{domain.StageStrongOpener, domain.StageEnergyClimb, domain.StagePeak, domain.StageSoftLanding}
			if !reflect.DeepEqual(plan.Plan.Ordering, wantOrdering) {
				t.Fatalf("ordering = %v", plan.Plan.Ordering)
			}
			if plan.Plan.NoveltyRatio != 0.3 {
				t.Fatalf("novelty default = %v", plan.Plan.NoveltyRatio)
			}
			if plan.Length != 6 {
				t.Fatalf("length = %d, want 6", plan.Length)
			}
			if plan.ExplicitPolicy() != domain.ExplicitNo {
				t.Fatalf("explicit policy = %q", plan.ExplicitPolicy())
			}
		})
	}
}
