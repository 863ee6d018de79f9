package model

// RecentIDs is a bounded, oldest-first window of message ids already folded
// into a piece of state.
type RecentIDs []string

func (r RecentIDs) Contains(id string) bool {
	for _, v := range r {
		if v == id {
			return true
		}
	}
	return false
}

// Add appends id and drops the oldest entries beyond limit. Adding an id that
// is already present is a no-op.
func (r RecentIDs) Add(id string, limit int) RecentIDs {
	if r.Contains(id) {
		return r
	}
	r = append(r, id)
	if over := len(r) - limit; limit > 0 && over > 0 {
		r = append(RecentIDs(nil), r[over:]...)
	}
	return r
}
