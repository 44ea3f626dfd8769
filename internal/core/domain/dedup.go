package domain

// Deduper tracks two independent equivalence relations over accepted tracks:
// exact catalog id and content key. A track is a duplicate if either matches.
type Deduper struct {
	ids  map[string]struct{}
	keys map[string]struct{}
}

// NewDeduper seeds the id set, typically with the disallowed ids.
func NewDeduper(seedIDs ...string) *Deduper {
	d := &Deduper{
		ids:  make(map[string]struct{}, len(seedIDs)),
		keys: make(map[string]struct{}),
	}
	for _, id := range seedIDs {
		if id != "" {
			d.ids[id] = struct{}{}
		}
	}
	return d
}

// SeenID reports whether the id was seen or seeded.
func (d *Deduper) SeenID(id string) bool {
	_, ok := d.ids[id]
	return ok
}

// Seen reports whether the track collides on id or content key.
func (d *Deduper) Seen(t Track) bool {
	if t.ID == "" {
		return true
	}
	if _, ok := d.ids[t.ID]; ok {
		return true
	}
	_, ok := d.keys[ContentKey(t)]
	return ok
}

// Add records the track when it is new and reports whether it was accepted.
// A rejected track still has its id remembered so later passes skip it.
func (d *Deduper) Add(t Track) bool {
	if t.ID == "" {
		return false
	}
	if d.Seen(t) {
		d.ids[t.ID] = struct{}{}
		return false
	}
	d.ids[t.ID] = struct{}{}
	d.keys[ContentKey(t)] = struct{}{}
	return true
}
