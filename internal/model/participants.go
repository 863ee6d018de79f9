package model

import "sort"

// ParticipantSet is a set of user ids. Use NewParticipantSet; a nil set is read-only.
type ParticipantSet map[string]struct{}

func NewParticipantSet(ids ...string) ParticipantSet {
	s := make(ParticipantSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s ParticipantSet) Add(id string) {
	s[id] = struct{}{}
}

func (s ParticipantSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s ParticipantSet) Len() int {
	return len(s)
}

// Intersects reports whether any of ids is in the set.
func (s ParticipantSet) Intersects(ids []string) bool {
	for _, id := range ids {
		if s.Has(id) {
			return true
		}
	}
	return false
}

// Sorted returns the members in lexical order.
func (s ParticipantSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s ParticipantSet) Clone() ParticipantSet {
	out := make(ParticipantSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}
