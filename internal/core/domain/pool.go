package domain

import "sort"

// Source is the provenance of a library track.
type Source string

const (
	SourceRecent    Source = "recent"
	SourceTopShort  Source = "top_short"
	SourceTopMedium Source = "top_medium"
	SourceSaved     Source = "saved"
)

// Sources lists the library sources in collection order.
var Sources = []Source{SourceRecent, SourceTopShort, SourceTopMedium, SourceSaved}

// TimeWindow selects the affinity window of a top-tracks listing.
type TimeWindow string

const (
	WindowShort  TimeWindow = "short_term"
	WindowMedium TimeWindow = "medium_term"
	WindowLong   TimeWindow = "long_term"
)

// PoolEntry is a library track tagged with where it came from.
type PoolEntry struct {
	Track  Track
	Source Source
}

// CandidatePool maps track id to entry. The first source to insert a track
// wins. Insertion order is kept so snapshots are reproducible.
type CandidatePool struct {
	entries map[string]PoolEntry
	order   []string
}

// NewCandidatePool returns an empty pool.
func NewCandidatePool() *CandidatePool {
	return &CandidatePool{entries: make(map[string]PoolEntry)}
}

// Insert adds the track unless its id is already present.
func (p *CandidatePool) Insert(t Track, src Source) bool {
	if _, ok := p.entries[t.ID]; ok {
		return false
	}
	p.entries[t.ID] = PoolEntry{Track: t, Source: src}
	p.order = append(p.order, t.ID)
	return true
}

// Get looks a track up by id.
func (p *CandidatePool) Get(id string) (PoolEntry, bool) {
	e, ok := p.entries[id]
	return e, ok
}

// Len is the number of distinct tracks.
func (p *CandidatePool) Len() int {
	return len(p.order)
}

// Entries returns the pool in insertion order.
func (p *CandidatePool) Entries() []PoolEntry {
	out := make([]PoolEntry, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.entries[id])
	}
	return out
}

// ByPopularity returns the pool sorted by track popularity, highest first.
// Ties keep insertion order.
func (p *CandidatePool) ByPopularity() []PoolEntry {
	out := p.Entries()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Track.Popularity > out[j].Track.Popularity
	})
	return out
}

// LibraryItem is the compact view of a pool track handed to the selector.
type LibraryItem struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Artists    []string `json:"artists"`
	Album      string   `json:"album,omitempty"`
	Explicit   bool     `json:"explicit"`
	Popularity int      `json:"popularity"`
	URI        string   `json:"uri,omitempty"`
}

// Snapshot returns at most limit library items in insertion order; overflow is dropped.
// Tracks without a named artist are skipped.
func (p *CandidatePool) Snapshot(limit int) []LibraryItem {
	items := make([]LibraryItem, 0, min(limit, len(p.order)))
	for i, id := range p.order {
		if i >= limit {
			break
		}
		t := p.entries[id].Track
		artists := t.ArtistNames()
		if len(artists) == 0 {
			continue
		}
		items = append(items, LibraryItem{
			ID:         t.ID,
			Name:       t.Title,
			Artists:    artists,
			Album:      t.Album.Name,
			Explicit:   t.Explicit,
			Popularity: t.Popularity,
			URI:        t.URI,
		})
	}
	return items
}
