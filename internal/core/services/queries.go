package services

import (
	"strings"

	"github.com/ewilliams-labs/moodmix/backend/internal/core/domain"
)

const (
	maxQueryTags     = 6
	maxQueryThemes   = 4
	maxPoolArtists   = 5
	maxCleanVariants = 2
)

// BackfillQueries derives search strings from the plan's mood, tags and
// themes, biased toward the most popular artists already in the pool.
// When cleanOnly is set, "clean" variants of the first queries are appended.
// The caller caps the list.
func BackfillQueries(plan domain.MoodPlan, pool *domain.CandidatePool, cleanOnly bool) []string {
	mood := strings.ToLower(strings.TrimSpace(plan.NormalizedMood))
	tags := nonEmpty(plan.SemanticTags, maxQueryTags)
	themes := nonEmpty(plan.Plan.Themes, maxQueryThemes)

	var phrases []string
	for _, tag := range head(tags, 4) {
		phrases = append(phrases, joinTerms(mood, tag))
	}
	for _, th := range head(themes, 3) {
		phrases = append(phrases, joinTerms(mood, th))
	}

	terms := head(tags, 3)
	if len(terms) == 0 && mood != "" {
		terms = []string{mood}
	}
	for _, artist := range topPoolArtists(pool, maxPoolArtists) {
		for _, term := range terms {
			phrases = append(phrases, joinTerms(term, artist))
		}
	}

	queries := dedupStrings(phrases)
	if len(queries) == 0 {
		base := make([]string, 0, 1+len(tags)+len(themes))
		if mood != "" {
			base = append(base, mood)
		}
		base = append(base, tags...)
		base = append(base, themes...)
		if len(base) > 0 {
			queries = []string{strings.Join(head(base, 2), " ")}
		}
	}

	if cleanOnly {
		out := append([]string(nil), head(queries, 10)...)
		for _, q := range head(queries, maxCleanVariants) {
			out = append(out, q+" clean")
		}
		queries = out
	}
	return queries
}

// RelaxedQueries derives broad genre and mood searches for the last
// fallback tier: each genre token alone, as "hits" and as "top songs",
// then the mood word and its "hits" variant.
func RelaxedQueries(tokens []string, moodWord string) []string {
	var qs []string
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		qs = append(qs, tok, tok+" hits", tok+" top songs")
	}
	if moodWord != "" {
		qs = append(qs, moodWord, moodWord+" hits")
	}
	return dedupStrings(qs)
}

// topPoolArtists collects artist names from the most popular pool tracks,
// stopping once enough names are gathered.
func topPoolArtists(pool *domain.CandidatePool, limit int) []string {
	if pool == nil {
		return nil
	}
	var names []string
	for _, e := range pool.ByPopularity() {
		names = append(names, e.Track.ArtistNames()...)
		if len(names) >= limit {
			break
		}
	}
	return head(dedupStrings(names), limit)
}

func joinTerms(a, b string) string {
	return strings.TrimSpace(strings.Join(nonEmpty([]string{a, b}, 2), " "))
}

func nonEmpty(in []string, limit int) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return head(out, limit)
}

func head(in []string, n int) []string {
	if len(in) > n {
		return in[:n]
	}
	return in
}

func dedupStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
