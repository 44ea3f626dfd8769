package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/ewilliams-labs/moodmix/backend/internal/core/domain"
)

func selectorInput() domain.SelectorInput {
	return domain.SelectorInput{
		Plan:                  chillPlan(domain.ExplicitNo),
		Library:               []domain.LibraryItem{{ID: "lib1", Name: "Song", Artists: []string{"Band"}}},
		Length:                4,
		Market:                "US",
		DisallowedLibraryIDs:  []string{"gone"},
		DisallowedTitleArtist: []domain.TitleArtist{{Title: "Old", Artist: "Hit"}},
	}
}

func TestSelectorAdvisor_SelectTracks(t *testing.T) {
	const valid = `{"picks":[{"library_id":"lib1"},{"title":"Teardrop","artist":"Massive Attack"}]}`
	const both = `{"picks":[{"library_id":"lib1","title":"Teardrop","artist":"Massive Attack"}]}`

	tests := []struct {
		name         string
		replies      []string
		chatErr      error
		wantErr      bool
		wantCalls    int
		wantAttempts int
		wantPicks    int
	}{
		{name: "valid first reply", replies: []string{valid}, wantCalls: 1, wantAttempts: 1, wantPicks: 2},
		{name: "prose around json", replies: []string{"Sure! " + valid + " enjoy"}, wantCalls: 1, wantAttempts: 1, wantPicks: 2},
		{name: "both references triggers retry", replies: []string{both, valid}, wantCalls: 2, wantAttempts: 2, wantPicks: 2},
		{name: "empty picks triggers retry", replies: []string{`{"picks":[]}`, valid}, wantCalls: 2, wantAttempts: 2, wantPicks: 2},
		{name: "second failure is fatal", replies: []string{"not json", both}, wantErr: true, wantCalls: 2, wantAttempts: 2},
		{name: "transport error is not retried", chatErr: errors.New("connection refused"), wantErr: true, wantCalls: 1, wantAttempts: 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			chat := &fakeChat{replies: tc.replies, err: tc.chatErr}
			s := NewSelectorAdvisor(chat, quietLogger())

			sel, err := s.SelectTracks(context.Background(), selectorInput())
			if (err != nil) != tc.wantErr {
				t.Fatalf("unexpected error state: got err=%v wantErr=%v", err, tc.wantErr)
			}
			if len(chat.calls) != tc.wantCalls {
				t.Fatalf("chat calls = %d, want %d", len(chat.calls), tc.wantCalls)
			}

			attempts := sel.Attempts
			if err != nil {
				var selErr *domain.SelectionError
				if !errors.As(err, &selErr) {
					t.Fatalf("expected *domain.SelectionError, got %T", err)
				}
				attempts = selErr.Attempts
			}
			if len(attempts) != tc.wantAttempts {
				t.Fatalf("attempts = %d, want %d", len(attempts), tc.wantAttempts)
			}
			if !tc.wantErr && len(sel.Result.Picks) != tc.wantPicks {
				t.Fatalf("picks = %d, want %d", len(sel.Result.Picks), tc.wantPicks)
			}
		})
	}
}

func TestSelectorAdvisor_RetryCarriesReminder(t *testing.T) {
	chat := &fakeChat{replies: []string{`{"picks":[{"notes":"vibes"}]}`, `{"picks":[{"library_id":"lib1"}]}`}}
	s := NewSelectorAdvisor(chat, quietLogger())

	if _, err := s.SelectTracks(context.Background(), selectorInput()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first, second := chat.calls[0], chat.calls[1]
	if len(first) != 2 || len(second) != 3 {
		t.Fatalf("message counts = %d/%d, want 2/3", len(first), len(second))
	}
	if second[1].Role != "system" || !strings.Contains(second[1].Content, "failed validation") {
		t.Fatalf("retry should carry the corrective reminder, got %+v", second[1])
	}
	if !strings.Contains(first[0].Content, "sonic FEEL") || !strings.Contains(first[0].Content, "disallowed") {
		t.Fatal("system prompt is missing selection rules")
	}

	var payload domain.SelectorInput
	if err := json.Unmarshal([]byte(first[1].Content), &payload); err != nil {
		t.Fatalf("user message is not the JSON input: %v", err)
	}
	if payload.Length != 4 || payload.DisallowedLibraryIDs[0] != "gone" || payload.DisallowedTitleArtist[0].Title != "Old" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestSelectorAdvisor_TruncatesPreviews(t *testing.T) {
	long := strings.Repeat("x", 5000)
	chat := &fakeChat{replies: []string{long, long}}
	s := NewSelectorAdvisor(chat, quietLogger())

	_, err := s.SelectTracks(context.Background(), selectorInput())
	attempts := domain.AttemptsFrom(err)
	if len(attempts) != 2 {
		t.Fatalf("attempts = %d, want 2", len(attempts))
	}
	for _, a := range attempts {
		if len([]rune(a.OutputPreview)) != previewLimit {
			t.Fatalf("output preview length = %d, want %d", len(a.OutputPreview), previewLimit)
		}
		if len([]rune(a.InputPreview)) > previewLimit {
			t.Fatalf("input preview length = %d exceeds %d", len(a.InputPreview), previewLimit)
		}
	}
}
