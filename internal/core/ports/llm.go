package ports

import (
	"context"

	"github.com/ewilliams-labs/moodmix/backend/internal/core/domain"
)

// ChatModel sends a conversation to a language model that answers in JSON
// and returns the raw reply text.
type ChatModel interface {
	Chat(ctx context.Context, messages []domain.ChatMessage) (string, error)
}

// Planner turns free-text mood into a validated plan.
type Planner interface {
	Plan(ctx context.Context, mood string) (domain.MoodPlan, error)
}

// TrackSelector is the advisory step. It returns a validated selection or a
// *domain.SelectionError.
type TrackSelector interface {
	SelectTracks(ctx context.Context, in domain.SelectorInput) (domain.Selection, error)
}
