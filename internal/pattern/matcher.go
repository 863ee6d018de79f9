package pattern

import "basegraph.app/pulse/internal/model"

// Matcher tests text against every category of a Table.
type Matcher struct {
	table *Table
}

func NewMatcher(table *Table) *Matcher {
	return &Matcher{table: table}
}

// Match returns every matching pattern per category. A category is present
// only when at least one of its patterns matched.
func (m *Matcher) Match(text string) model.NarrativeElements {
	out := model.NarrativeElements{}
	if text == "" {
		return out
	}

	for _, c := range m.table.order {
		var matched []string
		for _, p := range m.table.patterns[c] {
			if p.re.MatchString(text) {
				matched = append(matched, p.source)
			}
		}
		if len(matched) > 0 {
			out[c] = matched
		}
	}

	return out
}
