package services

import (
	"strings"

	"github.com/ewilliams-labs/moodmix/backend/internal/core/domain"
)

// ExclusionsFromHistory bans every track of the given playlists by id and
// by (title, primary artist).
func ExclusionsFromHistory(history []domain.Playlist) domain.Exclusions {
	var ids []string
	var pairs []domain.TitleArtist
	for _, p := range history {
		for _, t := range p.Tracks {
			if t.ID == "" {
				continue
			}
			ids = append(ids, t.ID)
			title := strings.TrimSpace(t.Title)
			artist := strings.TrimSpace(t.PrimaryArtist())
			if title != "" && artist != "" {
				pairs = append(pairs, domain.TitleArtist{Title: title, Artist: artist})
			}
		}
	}
	return domain.NewExclusions(ids, pairs)
}
