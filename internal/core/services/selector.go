package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/ewilliams-labs/moodmix/backend/internal/core/domain"
	"github.com/ewilliams-labs/moodmix/backend/internal/core/ports"
)

const previewLimit = 1200

const selectorSystemPrompt = `You are a strict playlist selector.
Choose exactly N tracks (N is the "length" field) that fit the PLAN's style and constraints, following plan.plan.ordering.
Rules:
1) Prefer tracks from LIBRARY when they fit the theme.
2) If LIBRARY coverage is insufficient, fill the remainder with outside songs by title+artist until N is reached.
   Prefer widely-known/popular tracks that clearly match the vibe and outline.
3) Respect explicit policy: if plan.constraints.explicit_allowed == "no", avoid explicit songs.
4) Avoid kids/nursery or novelty music unless the PLAN explicitly asks for it.
5) Do NOT choose songs just because the mood words appear in a title or artist name. Focus on the sonic FEEL.
6) For each pick, output either {"library_id": "<id>"} OR {"title": "<song>", "artist": "<artist>"}, never both.
7) Never pick anything in the disallowed lists (by library_id OR by title+artist).
8) Output only JSON: {"picks":[...]} with no extra commentary.`

const selectorReminder = `Your previous output failed validation. Reminder:
- Exactly N picks.
- Each pick must be EITHER {library_id} OR {title AND artist}.
- Fill outside picks until N if the library is insufficient.
- Never use disallowed items.
- Do not choose songs because the mood words appear; choose based on vibe.`

var errNoJSONObject = errors.New("reply contains no JSON object")

// SelectorAdvisor asks a chat model for track picks and validates the reply
// strictly. A structurally invalid reply is retried once with a corrective
// reminder.
type SelectorAdvisor struct {
	model  ports.ChatModel
	logger *log.Logger
}

// NewSelectorAdvisor constructs a SelectorAdvisor.
func NewSelectorAdvisor(model ports.ChatModel, logger *log.Logger) *SelectorAdvisor {
	if logger == nil {
		logger = log.Default()
	}
	return &SelectorAdvisor{model: model, logger: logger.With("component", "selector")}
}

// SelectTracks implements ports.TrackSelector.
func (s *SelectorAdvisor) SelectTracks(ctx context.Context, in domain.SelectorInput) (domain.Selection, error) {
	if in.DisallowedLibraryIDs == nil {
		in.DisallowedLibraryIDs = []string{}
	}
	if in.DisallowedTitleArtist == nil {
		in.DisallowedTitleArtist = []domain.TitleArtist{}
	}
	if in.Library == nil {
		in.Library = []domain.LibraryItem{}
	}
	payload, err := json.Marshal(in)
	if err != nil {
		return domain.Selection{}, &domain.SelectionError{Err: fmt.Errorf("encode input: %w", err)}
	}

	var attempts []domain.SelectorAttempt
	conversations := [][]domain.ChatMessage{
		{
			{Role: "system", Content: selectorSystemPrompt},
			{Role: "user", Content: string(payload)},
		},
		{
			{Role: "system", Content: selectorSystemPrompt},
			{Role: "system", Content: selectorReminder},
			{Role: "user", Content: string(payload)},
		},
	}

	var lastErr error
	for i, msgs := range conversations {
		raw, err := s.model.Chat(ctx, msgs)
		attempts = append(attempts, domain.SelectorAttempt{
			InputPreview:  truncate(string(payload), previewLimit),
			OutputPreview: truncate(raw, previewLimit),
		})
		if err != nil {
			return domain.Selection{}, &domain.SelectionError{Attempts: attempts, Err: err}
		}
		result, err := parseSelection(raw)
		if err == nil {
			return domain.Selection{Result: result, Attempts: attempts}, nil
		}
		lastErr = err
		s.logger.Warn("selector reply failed validation", "attempt", i+1, "error", err)
	}
	return domain.Selection{}, &domain.SelectionError{Attempts: attempts, Err: lastErr}
}

func parseSelection(raw string) (domain.SelectorResult, error) {
	obj, err := extractJSONObject(raw)
	if err != nil {
		return domain.SelectorResult{}, err
	}
	var res domain.SelectorResult
	if err := json.Unmarshal([]byte(obj), &res); err != nil {
		return domain.SelectorResult{}, fmt.Errorf("%w: %v", domain.ErrInvalidPick, err)
	}
	for i := range res.Picks {
		p := &res.Picks[i]
		p.LibraryID = strings.TrimSpace(p.LibraryID)
		p.Title = strings.TrimSpace(p.Title)
		p.Artist = strings.TrimSpace(p.Artist)
	}
	if err := res.Validate(); err != nil {
		return domain.SelectorResult{}, err
	}
	return res, nil
}

// extractJSONObject returns the text between the first '{' and the last '}'.
func extractJSONObject(raw string) (string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", errNoJSONObject
	}
	return raw[start : end+1], nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
