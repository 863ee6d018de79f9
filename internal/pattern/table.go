// Package pattern matches message text against fixed, categorized phrase tables.
package pattern

import (
	"fmt"
	"regexp"
	"sort"

	"basegraph.app/pulse/internal/model"
)

// Definitions maps a category to its phrase regexes, in match order.
type Definitions map[model.Category][]string

// categoryOrder fixes iteration order so matching is deterministic.
var categoryOrder = []model.Category{
	model.CategoryTopicShift,
	model.CategoryAgreement,
	model.CategoryDisagreement,
	model.CategoryBuildingOn,
	model.CategoryQuestioning,
	model.CategoryConclusion,
	model.CategoryStoryStart,
	model.CategoryEmotionalMoments,
	model.CategoryCommunityBuilding,
	model.CategoryQuestions,
	model.CategoryCelebration,
	model.CategorySupport,
}

// DefaultDefinitions returns the built-in phrase tables.
func DefaultDefinitions() Definitions {
	return Definitions{
		model.CategoryTopicShift: {
			`speaking of`, `that reminds me`, `on a different note`,
			`changing the subject`, `by the way`, `also`,
		},
		model.CategoryAgreement: {
			`exactly`, `i agree`, `you're right`, `that's true`,
			`absolutely`, `definitely`, `precisely`,
		},
		model.CategoryDisagreement: {
			`actually`, `but`, `however`, `i disagree`,
			`on the contrary`, `not really`, `i think differently`,
		},
		model.CategoryBuildingOn: {
			`and also`, `furthermore`, `in addition`, `plus`,
			`adding to that`, `building on`, `expanding on`,
		},
		model.CategoryQuestioning: {
			`what do you mean`, `can you explain`, `how so`,
			`why`, `what if`, `have you considered`,
		},
		model.CategoryConclusion: {
			`so in conclusion`, `to summarize`, `overall`,
			`in the end`, `finally`, `to wrap up`,
		},
		model.CategoryStoryStart: {
			`once upon a time`, `story time`, `let me tell you`,
			`i remember when`, `back in`, `there was this time`,
		},
		model.CategoryEmotionalMoments: {
			`i was so (happy|sad|excited|angry|proud|disappointed)`,
			`it made me (feel|cry|laugh|smile)`, `i couldn't believe`,
			`it was (amazing|terrible|incredible|awful)`,
		},
		model.CategoryCommunityBuilding: {
			`we should`, `let's all`, `everyone`, `together we`,
			`our (server|community|group)`, `what if we`,
		},
		model.CategoryQuestions: {
			`\?`, `what do you think`, `does anyone know`,
			`has anyone`, `can someone`, `who here`,
		},
		model.CategoryCelebration: {
			`congratulations`, `well done`, `good job`, `awesome`,
			`great work`, `proud of`, `celebrate`,
		},
		model.CategorySupport: {
			`are you okay`, `hope you're`, `thinking of you`,
			`here if you need`, `support`, `help`,
		},
	}
}

type compiledPattern struct {
	source string
	re     *regexp.Regexp
}

// Table is an immutable, compiled set of phrase patterns.
type Table struct {
	order    []model.Category
	patterns map[model.Category][]compiledPattern
}

// NewTable compiles defs case-insensitively. Categories unknown to the
// built-in order are matched after it, sorted by name.
func NewTable(defs Definitions) (*Table, error) {
	t := &Table{patterns: make(map[model.Category][]compiledPattern, len(defs))}

	for _, c := range orderFor(defs) {
		sources := defs[c]
		compiled := make([]compiledPattern, 0, len(sources))
		for _, src := range sources {
			re, err := regexp.Compile("(?i)" + src)
			if err != nil {
				return nil, fmt.Errorf("compiling %s pattern %q: %w", c, src, err)
			}
			compiled = append(compiled, compiledPattern{source: src, re: re})
		}
		t.order = append(t.order, c)
		t.patterns[c] = compiled
	}

	return t, nil
}

// DefaultTable compiles DefaultDefinitions. It panics only if the built-in
// tables are invalid.
func DefaultTable() *Table {
	t, err := NewTable(DefaultDefinitions())
	if err != nil {
		panic(err)
	}
	return t
}

// Categories returns the table's categories in match order.
func (t *Table) Categories() []model.Category {
	return append([]model.Category(nil), t.order...)
}

// Patterns returns the pattern sources for c.
func (t *Table) Patterns(c model.Category) []string {
	out := make([]string, 0, len(t.patterns[c]))
	for _, p := range t.patterns[c] {
		out = append(out, p.source)
	}
	return out
}

func orderFor(defs Definitions) []model.Category {
	seen := make(map[model.Category]bool, len(defs))
	order := make([]model.Category, 0, len(defs))
	for _, c := range categoryOrder {
		if _, ok := defs[c]; ok {
			order = append(order, c)
			seen[c] = true
		}
	}

	var extra []model.Category
	for c := range defs {
		if !seen[c] {
			extra = append(extra, c)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(order, extra...)
}
