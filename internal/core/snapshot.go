package core

// Snapshot is the set of (track, adder) pairs on the playlist at one point in time.
// Order is irrelevant and duplicates collapse.
type Snapshot map[MembershipEntry]struct{}

// NewSnapshot builds a snapshot from a playlist listing.
func NewSnapshot(entries ...MembershipEntry) Snapshot {
	s := make(Snapshot, len(entries))
	for _, entry := range entries {
		s[entry] = struct{}{}
	}
	return s
}

func (s Snapshot) Has(entry MembershipEntry) bool {
	_, ok := s[entry]
	return ok
}

func (s Snapshot) Len() int {
	return len(s)
}

// Entries returns the members in unspecified order.
func (s Snapshot) Entries() []MembershipEntry {
	entries := make([]MembershipEntry, 0, len(s))
	for entry := range s {
		entries = append(entries, entry)
	}
	return entries
}

// Diff returns added = after \ before and removed = before \ after.
// A track re-added by a different user shows up in both sets since the pair changed.
func Diff(before, after Snapshot) (added, removed Snapshot) {
	added = make(Snapshot)
	removed = make(Snapshot)

	for entry := range after {
		if !before.Has(entry) {
			added[entry] = struct{}{}
		}
	}

	for entry := range before {
		if !after.Has(entry) {
			removed[entry] = struct{}{}
		}
	}

	return added, removed
}

// Events flattens a diff into change events, all additions before all removals.
func Events(added, removed Snapshot) []ChangeEvent {
	events := make([]ChangeEvent, 0, len(added)+len(removed))
	for entry := range added {
		events = append(events, ChangeEvent{Kind: ChangeAdded, Entry: entry})
	}
	for entry := range removed {
		events = append(events, ChangeEvent{Kind: ChangeRemoved, Entry: entry})
	}
	return events
}
