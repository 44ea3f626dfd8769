package domain

import "strings"

// GenreFamily is a whitelisted genre and the synonyms it expands to.
type GenreFamily struct {
	Name     string
	Synonyms []string
}

// GenreFamilies is scanned in order; order fixes the token order of DeriveGenreTokens.
var GenreFamilies = []GenreFamily{
	{Name: "metalcore", Synonyms: []string{"metalcore"}},
	{Name: "hardcore", Synonyms: []string{"hardcore", "post-hardcore"}},
	{Name: "metal", Synonyms: []string{"metal", "nu-metal", "post-metal", "deathcore", "black metal", "groove metal"}},
	{Name: "punk", Synonyms: []string{"punk", "hardcore punk", "post-punk"}},
	{Name: "industrial", Synonyms: []string{"industrial", "aggrotech", "industrial metal"}},
	{Name: "rock", Synonyms: []string{"rock", "alt rock", "hard rock"}},
	{Name: "edm", Synonyms: []string{"edm", "dubstep", "bass", "trap edm", "electro house"}},
	{Name: "hip hop", Synonyms: []string{"hip hop", "rap", "trap"}},
	{Name: "pop", Synonyms: []string{"pop"}},
	{Name: "folk", Synonyms: []string{"folk", "indie folk"}},
	{Name: "country", Synonyms: []string{"country"}},
	{Name: "ambient", Synonyms: []string{"ambient"}},
	{Name: "classical", Synonyms: []string{"classical", "orchestral"}},
}

// DeriveGenreTokens scans the plan's tags, themes and candidate buckets for
// whitelisted genre words. A family contributes all of its synonyms once if
// any synonym occurs as a substring of the plan text. The result is
// deterministic and free of duplicates; an empty result disables the genre guard.
func DeriveGenreTokens(p MoodPlan) []string {
	terms := make([]string, 0, len(p.SemanticTags)+len(p.Plan.Themes)+len(p.Plan.CandidateBuckets))
	terms = append(terms, p.SemanticTags...)
	terms = append(terms, p.Plan.Themes...)
	terms = append(terms, p.Plan.CandidateBuckets...)
	text := strings.ToLower(strings.Join(terms, " "))

	var tokens []string
	seen := make(map[string]struct{})
	for _, fam := range GenreFamilies {
		matched := false
		for _, syn := range fam.Synonyms {
			if strings.Contains(text, syn) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		for _, syn := range fam.Synonyms {
			if _, ok := seen[syn]; ok {
				continue
			}
			seen[syn] = struct{}{}
			tokens = append(tokens, syn)
		}
	}
	return tokens
}

// GenresMatch reports whether any genre contains any token as a substring.
// No tokens means no constraint.
func GenresMatch(genres []string, tokens []string) bool {
	if len(tokens) == 0 {
		return true
	}
	for _, g := range genres {
		lg := strings.ToLower(g)
		for _, tok := range tokens {
			if tok != "" && strings.Contains(lg, strings.ToLower(tok)) {
				return true
			}
		}
	}
	return false
}
