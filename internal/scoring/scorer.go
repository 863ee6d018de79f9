// Package scoring turns a message and its matched categories into
// engagement, thread-potential and influence scores.
package scoring

import (
	"sort"
	"unicode/utf8"

	"basegraph.app/pulse/internal/model"
)

// Meta is the message metadata the scorer reads.
type Meta struct {
	Text          string
	MentionCount  int
	ReactionCount int
}

func MetaFor(msg model.Message) Meta {
	return Meta{
		Text:          msg.Text,
		MentionCount:  len(msg.Mentions),
		ReactionCount: msg.ReactionCount,
	}
}

type Scores struct {
	Engagement      float64 `json:"engagement_score"`
	ThreadPotential float64 `json:"thread_potential"`
	Influence       float64 `json:"influence_score"`
}

// Weights holds every constant the scorer uses.
type Weights struct {
	// Engagement
	LengthDivisor   float64
	LengthCap       float64
	MentionWeight   float64
	ReactionWeight  float64
	CategoryWeights map[model.Category]float64
	EngagementCap   float64

	// Thread potential
	ThreadBonuses       map[model.Category]float64
	LongTextThreshold   int
	LongTextThreadBonus float64
	MentionThreadBonus  float64

	// Influence
	EngagementFactor      float64
	ThreadFactor          float64
	InfluenceBonuses      map[model.Category]float64
	VeryLongTextThreshold int
	VeryLongTextBonus     float64
	InfluencePerMention   float64
}

func DefaultWeights() Weights {
	return Weights{
		LengthDivisor:  100,
		LengthCap:      2.0,
		MentionWeight:  0.5,
		ReactionWeight: 0.3,
		CategoryWeights: map[model.Category]float64{
			model.CategoryStoryStart:        3.0,
			model.CategoryEmotionalMoments:  2.0,
			model.CategoryCommunityBuilding: 2.5,
			model.CategoryQuestions:         1.5,
			model.CategoryCelebration:       1.0,
			model.CategorySupport:           1.5,
		},
		EngagementCap: 10.0,

		ThreadBonuses: map[model.Category]float64{
			model.CategoryQuestions:         0.8,
			model.CategoryStoryStart:        0.7,
			model.CategoryCommunityBuilding: 0.6,
			model.CategoryEmotionalMoments:  0.5,
		},
		LongTextThreshold:   50,
		LongTextThreadBonus: 0.2,
		MentionThreadBonus:  0.3,

		EngagementFactor: 0.3,
		ThreadFactor:     0.4,
		InfluenceBonuses: map[model.Category]float64{
			model.CategoryQuestions:         0.3,
			model.CategoryStoryStart:        0.4,
			model.CategoryEmotionalMoments:  0.2,
			model.CategoryCommunityBuilding: 0.3,
		},
		VeryLongTextThreshold: 100,
		VeryLongTextBonus:     0.1,
		InfluencePerMention:   0.1,
	}
}

type Scorer struct {
	w Weights
}

func NewScorer(w Weights) *Scorer {
	return &Scorer{w: w}
}

func (s *Scorer) Score(meta Meta, elements model.NarrativeElements) Scores {
	engagement := s.Engagement(meta, elements)
	thread := s.ThreadPotential(meta, elements)
	return Scores{
		Engagement:      engagement,
		ThreadPotential: thread,
		Influence:       s.Influence(meta, elements, engagement, thread),
	}
}

// Engagement is bounded to [0, EngagementCap].
func (s *Scorer) Engagement(meta Meta, elements model.NarrativeElements) float64 {
	length := float64(textLength(meta.Text))

	score := 0.0
	if s.w.LengthDivisor > 0 {
		score += min(length/s.w.LengthDivisor, s.w.LengthCap)
	}
	score += s.w.MentionWeight * float64(meta.MentionCount)
	score += s.w.ReactionWeight * float64(meta.ReactionCount)

	for _, c := range sortedKeys(s.w.CategoryWeights) {
		score += s.w.CategoryWeights[c] * float64(elements.Count(c))
	}

	return clamp(score, 0, s.w.EngagementCap)
}

// ThreadPotential is bounded to [0, 1].
func (s *Scorer) ThreadPotential(meta Meta, elements model.NarrativeElements) float64 {
	potential := 0.0
	for _, c := range sortedKeys(s.w.ThreadBonuses) {
		if elements.Has(c) {
			potential += s.w.ThreadBonuses[c]
		}
	}

	if textLength(meta.Text) > s.w.LongTextThreshold {
		potential += s.w.LongTextThreadBonus
	}
	if meta.MentionCount > 0 {
		potential += s.w.MentionThreadBonus
	}

	return clamp(potential, 0, 1)
}

// Influence feeds flow matching and is bounded to [0, 1].
func (s *Scorer) Influence(meta Meta, elements model.NarrativeElements, engagement, thread float64) float64 {
	score := s.w.EngagementFactor*engagement + s.w.ThreadFactor*thread

	for _, c := range sortedKeys(s.w.InfluenceBonuses) {
		if elements.Has(c) {
			score += s.w.InfluenceBonuses[c]
		}
	}

	if textLength(meta.Text) > s.w.VeryLongTextThreshold {
		score += s.w.VeryLongTextBonus
	}
	score += s.w.InfluencePerMention * float64(meta.MentionCount)

	return clamp(score, 0, 1)
}

func textLength(s string) int {
	return utf8.RuneCountInString(s)
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(v, hi))
}

// sortedKeys fixes summation order so scores are reproducible bit for bit.
func sortedKeys(m map[model.Category]float64) []model.Category {
	keys := make([]model.Category, 0, len(m))
	for c := range m {
		keys = append(keys, c)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
