package domain

import (
	"errors"
	"fmt"
	"strings"
)

// MaxPicks bounds the number of picks a selector may return.
const MaxPicks = 10

// SelectorPick is one advisory suggestion: either a library reference or an
// outside title+artist, never both and never neither.
type SelectorPick struct {
	LibraryID string `json:"library_id,omitempty"`
	Title     string `json:"title,omitempty"`
	Artist    string `json:"artist,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

// IsLibrary reports whether the pick references the library.
func (p SelectorPick) IsLibrary() bool {
	return strings.TrimSpace(p.LibraryID) != ""
}

// Validate enforces the library XOR title+artist rule.
func (p SelectorPick) Validate() error {
	hasLib := p.IsLibrary()
	hasOutside := strings.TrimSpace(p.Title) != "" && strings.TrimSpace(p.Artist) != ""
	if hasLib && hasOutside {
		return fmt.Errorf("%w: library_id and title+artist are mutually exclusive", ErrInvalidPick)
	}
	if !hasLib && !hasOutside {
		return fmt.Errorf("%w: need a library_id or both title and artist", ErrInvalidPick)
	}
	return nil
}

// SelectorResult is the validated output of the advisory step.
type SelectorResult struct {
	Picks []SelectorPick `json:"picks"`
}

// Validate checks the pick count and every pick.
func (r SelectorResult) Validate() error {
	if len(r.Picks) == 0 || len(r.Picks) > MaxPicks {
		return fmt.Errorf("%w: expected 1-%d picks, got %d", ErrInvalidPick, MaxPicks, len(r.Picks))
	}
	for i, p := range r.Picks {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("pick %d: %w", i, err)
		}
	}
	return nil
}

// SelectorInput is everything the advisory step is allowed to see.
type SelectorInput struct {
	Plan                  MoodPlan      `json:"plan"`
	Library               []LibraryItem `json:"library"`
	Length                int           `json:"length"`
	Market                string        `json:"market,omitempty"`
	DisallowedLibraryIDs  []string      `json:"disallowed_library_ids"`
	DisallowedTitleArtist []TitleArtist `json:"disallowed_title_artist"`
}

// SelectorAttempt keeps truncated previews of one model exchange.
type SelectorAttempt struct {
	InputPreview  string `json:"input_preview"`
	OutputPreview string `json:"output_preview"`
}

// Selection is a validated result plus the attempts that produced it.
type Selection struct {
	Result   SelectorResult
	Attempts []SelectorAttempt
}

// SelectionError is returned when the advisory step could not produce a
// valid result. It keeps the attempts for diagnostics.
type SelectionError struct {
	Attempts []SelectorAttempt
	Err      error
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("selector: no valid selection after %d attempt(s): %v", len(e.Attempts), e.Err)
}

func (e *SelectionError) Unwrap() error {
	return e.Err
}

// AttemptsFrom extracts attempts from a selection error, if any.
func AttemptsFrom(err error) []SelectorAttempt {
	var selErr *SelectionError
	if errors.As(err, &selErr) {
		return selErr.Attempts
	}
	return nil
}

// ChatMessage is one message in a chat-model exchange.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
