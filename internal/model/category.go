package model

import "sort"

// Category is a named class of phrase patterns.
type Category string

const (
	CategoryTopicShift        Category = "topic_shift"
	CategoryAgreement         Category = "agreement"
	CategoryDisagreement      Category = "disagreement"
	CategoryBuildingOn        Category = "building_on"
	CategoryQuestioning       Category = "questioning"
	CategoryConclusion        Category = "conclusion"
	CategoryStoryStart        Category = "story_start"
	CategoryEmotionalMoments  Category = "emotional_moments"
	CategoryCommunityBuilding Category = "community_building"
	CategoryQuestions         Category = "questions"
	CategoryCelebration       Category = "celebration"
	CategorySupport           Category = "support"
)

// NarrativeElements maps a matched category to every pattern of it that matched.
type NarrativeElements map[Category][]string

func (e NarrativeElements) Has(c Category) bool {
	return len(e[c]) > 0
}

func (e NarrativeElements) HasAny(cs ...Category) bool {
	for _, c := range cs {
		if e.Has(c) {
			return true
		}
	}
	return false
}

func (e NarrativeElements) Count(c Category) int {
	return len(e[c])
}

// Categories returns the matched categories in lexical order.
func (e NarrativeElements) Categories() []Category {
	out := make([]Category, 0, len(e))
	for c, patterns := range e {
		if len(patterns) > 0 {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (e NarrativeElements) Clone() NarrativeElements {
	if e == nil {
		return NarrativeElements{}
	}
	out := make(NarrativeElements, len(e))
	for c, patterns := range e {
		out[c] = append([]string(nil), patterns...)
	}
	return out
}
