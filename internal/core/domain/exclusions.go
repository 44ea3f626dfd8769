package domain

import (
	"sort"
	"strings"
)

// TitleArtist identifies a song by name and primary artist.
type TitleArtist struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

func (p TitleArtist) key() string {
	return strings.ToLower(strings.TrimSpace(p.Title)) + "\x00" + strings.ToLower(strings.TrimSpace(p.Artist))
}

// Exclusions are the caller-supplied hard bans: track ids and (title, artist)
// pairs, the latter compared case-insensitively.
type Exclusions struct {
	ids   map[string]struct{}
	pairs map[string]struct{}
	list  []TitleArtist
}

// NewExclusions builds the ban sets. Blank entries and repeated pairs are dropped.
func NewExclusions(ids []string, pairs []TitleArtist) Exclusions {
	e := Exclusions{
		ids:   make(map[string]struct{}, len(ids)),
		pairs: make(map[string]struct{}, len(pairs)),
	}
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			e.ids[id] = struct{}{}
		}
	}
	for _, p := range pairs {
		if strings.TrimSpace(p.Title) == "" || strings.TrimSpace(p.Artist) == "" {
			continue
		}
		k := p.key()
		if _, ok := e.pairs[k]; ok {
			continue
		}
		e.pairs[k] = struct{}{}
		e.list = append(e.list, p)
	}
	return e
}

// HasID reports whether the track id is banned.
func (e Exclusions) HasID(id string) bool {
	_, ok := e.ids[id]
	return ok
}

// HasPair reports whether the title/artist pair is banned.
func (e Exclusions) HasPair(title, artist string) bool {
	_, ok := e.pairs[TitleArtist{Title: title, Artist: artist}.key()]
	return ok
}

// Blocks reports whether the track is banned by id or by title and any credited artist.
func (e Exclusions) Blocks(t Track) bool {
	if e.HasID(t.ID) {
		return true
	}
	if len(e.pairs) == 0 {
		return false
	}
	for _, a := range t.Artists {
		if e.HasPair(t.Title, a.Name) {
			return true
		}
	}
	return false
}

// IDs returns the banned ids in sorted order.
func (e Exclusions) IDs() []string {
	out := make([]string, 0, len(e.ids))
	for id := range e.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Pairs returns the banned pairs in the order they were supplied.
func (e Exclusions) Pairs() []TitleArtist {
	out := make([]TitleArtist, len(e.list))
	copy(out, e.list)
	return out
}

// Len is the number of banned ids.
func (e Exclusions) Len() int {
	return len(e.ids)
}
