package services

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/temcen/affinity/pkg/models"
)

// SimilarityMetric names one of the pairwise user similarity measures.
type SimilarityMetric string

const (
	MetricSetOverlap      SimilarityMetric = "set_overlap"
	MetricWeightedVector  SimilarityMetric = "weighted_vector"
	MetricBehaviorPattern SimilarityMetric = "behavior_pattern"
	MetricCombined        SimilarityMetric = "combined"
)

// SimilarityWeights weights the three base metrics inside the combined score.
// They are expected to sum to 1.0 so that the combined score stays in [0,1].
type SimilarityWeights struct {
	SetOverlap      float64 `json:"set_overlap"`
	WeightedVector  float64 `json:"weighted_vector"`
	BehaviorPattern float64 `json:"behavior_pattern"`
}

// DefaultSimilarityWeights returns 0.3 / 0.4 / 0.3.
func DefaultSimilarityWeights() SimilarityWeights {
	return SimilarityWeights{
		SetOverlap:      0.3,
		WeightedVector:  0.4,
		BehaviorPattern: 0.3,
	}
}

func (w SimilarityWeights) Sum() float64 {
	return w.SetOverlap + w.WeightedVector + w.BehaviorPattern
}

// SimilarityEngine computes pairwise user similarities over an InteractionModel.
// Every metric is symmetric and returns 0 when either user has no data.
type SimilarityEngine struct {
	model   *InteractionModel
	weights SimilarityWeights
}

func NewSimilarityEngine(model *InteractionModel, weights SimilarityWeights) *SimilarityEngine {
	return &SimilarityEngine{
		model:   model,
		weights: weights,
	}
}

// SetOverlap is the Jaccard index of the two users' item sets.
func (e *SimilarityEngine) SetOverlap(a, b string) float64 {
	itemsA, itemsB := e.model.Items(a), e.model.Items(b)
	if len(itemsA) == 0 || len(itemsB) == 0 {
		return 0.0
	}

	intersection := e.model.CommonItemCount(a, b)
	union := len(itemsA) + len(itemsB) - intersection
	if union == 0 {
		return 0.0
	}

	return float64(intersection) / float64(union)
}

// WeightedVector is the cosine similarity of the two users' weights restricted to
// their common items. It measures agreement in relative weighting on shared items,
// not overlap: a single shared item with positive weights always scores 1.0.
func (e *SimilarityEngine) WeightedVector(a, b string) float64 {
	itemsA, itemsB := e.model.Items(a), e.model.Items(b)

	common := make([]string, 0)
	for itemID := range itemsA {
		if _, ok := itemsB[itemID]; ok {
			common = append(common, itemID)
		}
	}
	if len(common) == 0 {
		return 0.0
	}
	sort.Strings(common)

	vecA := make([]float64, len(common))
	vecB := make([]float64, len(common))
	for i, itemID := range common {
		vecA[i] = itemsA[itemID]
		vecB[i] = itemsB[itemID]
	}

	return cosine(vecA, vecB)
}

// BehaviorPattern compares the distributions of behavior types of the two users.
func (e *SimilarityEngine) BehaviorPattern(a, b string) float64 {
	vecA := behaviorDistribution(e.model.BehaviorCounts(a))
	vecB := behaviorDistribution(e.model.BehaviorCounts(b))
	if vecA == nil || vecB == nil {
		return 0.0
	}

	return cosine(vecA, vecB)
}

// Combined is the weighted sum of the three base metrics, clamped to [0,1].
func (e *SimilarityEngine) Combined(a, b string) float64 {
	sum := e.weights.SetOverlap*e.SetOverlap(a, b) +
		e.weights.WeightedVector*e.WeightedVector(a, b) +
		e.weights.BehaviorPattern*e.BehaviorPattern(a, b)
	return math.Max(0.0, math.Min(1.0, sum))
}

// Score dispatches on metric. Unknown metrics score 0.
func (e *SimilarityEngine) Score(metric SimilarityMetric, a, b string) float64 {
	switch metric {
	case MetricSetOverlap:
		return e.SetOverlap(a, b)
	case MetricWeightedVector:
		return e.WeightedVector(a, b)
	case MetricBehaviorPattern:
		return e.BehaviorPattern(a, b)
	case MetricCombined:
		return e.Combined(a, b)
	default:
		return 0.0
	}
}

// behaviorDistribution returns the L1-normalized count vector in BehaviorTypes order,
// or nil when there are no counts.
func behaviorDistribution(counts map[models.BehaviorType]int) []float64 {
	vec := make([]float64, len(models.BehaviorTypes))
	for i, bt := range models.BehaviorTypes {
		vec[i] = float64(counts[bt])
	}

	total := floats.Sum(vec)
	if total == 0 {
		return nil
	}
	floats.Scale(1/total, vec)

	return vec
}

// cosine returns dot(a,b)/(|a||b|) clamped to [0,1], or 0 when either norm is zero.
func cosine(a, b []float64) float64 {
	normA := floats.Norm(a, 2)
	normB := floats.Norm(b, 2)
	if normA == 0 || normB == 0 {
		return 0.0
	}

	sim := floats.Dot(a, b) / (normA * normB)
	return math.Max(0.0, math.Min(1.0, sim))
}
