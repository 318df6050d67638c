package services

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/temcen/affinity/pkg/models"
)

// FeatureWeights weights the content sub-scores of the feature-match term.
type FeatureWeights struct {
	Category   float64 `json:"category"`
	Brand      float64 `json:"brand"`
	Price      float64 `json:"price"`
	Quality    float64 `json:"quality"`
	Popularity float64 `json:"popularity"`
}

func DefaultFeatureWeights() FeatureWeights {
	return FeatureWeights{
		Category:   0.3,
		Brand:      0.2,
		Price:      0.2,
		Quality:    0.2,
		Popularity: 0.1,
	}
}

// RankingWeights fuses the normalized collaborative and feature-match terms.
type RankingWeights struct {
	Collaborative float64        `json:"collaborative"`
	Feature       float64        `json:"feature"`
	Features      FeatureWeights `json:"features"`
}

func DefaultRankingWeights() RankingWeights {
	return RankingWeights{
		Collaborative: 0.6,
		Feature:       0.4,
		Features:      DefaultFeatureWeights(),
	}
}

const (
	matchedPriceScore   = 1.0
	unmatchedPriceScore = 0.5
	explainedItems      = 3
)

// ItemRanker orders an external candidate set for a user by fusing collaborative and
// content-feature evidence.
type ItemRanker struct {
	features  FeatureLookup
	describer *PreferenceDescriber
	weights   RankingWeights
	workers   int
	logger    *logrus.Logger
	metrics   *Metrics
}

func NewItemRanker(
	features FeatureLookup,
	describer *PreferenceDescriber,
	weights RankingWeights,
	workers int,
	logger *logrus.Logger,
	metrics *Metrics,
) *ItemRanker {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &ItemRanker{
		features:  features,
		describer: describer,
		weights:   weights,
		workers:   workers,
		logger:    logger,
		metrics:   metrics,
	}
}

// Rank returns the distinct req.CandidateItems reordered by descending fused score. A repeated
// item keeps its first position; items with equal scores keep their request order.
func (r *ItemRanker) Rank(ctx context.Context, req *models.RankingRequest, profile *models.CollaborativeProfile) (*models.RankingResult, error) {
	if req == nil || len(req.CandidateItems) == 0 {
		return nil, fmt.Errorf("%w: candidate set is empty", models.ErrInvalidRequest)
	}
	if profile == nil || profile.UserID != req.TargetUserID {
		profileUser := ""
		if profile != nil {
			profileUser = profile.UserID
		}
		return nil, fmt.Errorf("%w: profile is for user %q, request is for user %q",
			models.ErrProfileMismatch, profileUser, req.TargetUserID)
	}

	candidates := uniqueItems(req.CandidateItems)

	collaborative := collaborativeScores(candidates, profile)
	normalizeMinMax(collaborative)

	summary := r.describer.Summarize(ctx, profile)
	feature, err := r.featureScores(ctx, candidates, summary)
	if err != nil {
		return nil, err
	}
	normalizeMinMax(feature)

	order := make([]int, len(candidates))
	final := make([]float64, len(candidates))
	for i := range candidates {
		order[i] = i
		final[i] = r.weights.Collaborative*collaborative[i] + r.weights.Feature*feature[i]
	}
	sort.SliceStable(order, func(a, b int) bool {
		return final[order[a]] > final[order[b]]
	})

	result := &models.RankingResult{
		UserID:      req.TargetUserID,
		RankedItems: make([]string, len(order)),
		Scores:      make([]float64, len(order)),
	}
	for pos, idx := range order {
		result.RankedItems[pos] = candidates[idx]
		result.Scores[pos] = final[idx]
	}
	result.Explanation = explainRanking(profile, result.RankedItems)

	r.logger.WithFields(logrus.Fields{
		"user_id":    req.TargetUserID,
		"candidates": len(candidates),
		"neighbors":  len(profile.Neighbors),
	}).Debug("Candidate items ranked")

	return result, nil
}

// collaborativeScores gives each candidate found at rank p of the profile's candidate list
// the score (1/(p+1)) times the mean neighbor similarity. Other candidates score 0.
func collaborativeScores(candidates []string, profile *models.CollaborativeProfile) []float64 {
	scores := make([]float64, len(candidates))
	if len(profile.Neighbors) == 0 || len(profile.CandidateItems) == 0 {
		return scores
	}

	meanSimilarity := stat.Mean(profile.SimilarityScores(), nil)

	position := make(map[string]int, len(profile.CandidateItems))
	for p, itemID := range profile.CandidateItems {
		if _, ok := position[itemID]; !ok {
			position[itemID] = p
		}
	}

	for i, itemID := range candidates {
		if p, ok := position[itemID]; ok {
			scores[i] = meanSimilarity / float64(p+1)
		}
	}
	return scores
}

// uniqueItems drops repeated item ids, keeping the first occurrence of each.
func uniqueItems(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	unique := make([]string, 0, len(items))
	for _, itemID := range items {
		if _, ok := seen[itemID]; ok {
			continue
		}
		seen[itemID] = struct{}{}
		unique = append(unique, itemID)
	}
	return unique
}

// featureScores computes the weighted feature-match score of every candidate. A failed lookup
// scores 0. candidates must be distinct.
func (r *ItemRanker) featureScores(ctx context.Context, candidates []string, summary *models.PreferenceSummary) ([]float64, error) {
	categories := foldedSet(summary.Categories)
	brands := foldedSet(summary.Brands)

	scores := make([]float64, len(candidates))
	var g errgroup.Group
	g.SetLimit(r.workers)
	for i, itemID := range candidates {
		i, itemID := i, itemID
		g.Go(func() error {
			f, err := lookupFeatures(ctx, r.features, itemID)
			if err != nil {
				r.metrics.FeatureLookupFailed()
				r.logger.WithError(err).WithField("item_id", itemID).Warn("Item features unavailable, scoring content match as zero")
				return nil
			}
			scores[i] = r.matchFeatures(f, categories, brands, summary.PriceBand)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("ranking cancelled: %w", err)
	}

	return scores, nil
}

func (r *ItemRanker) matchFeatures(f *models.ItemFeatures, categories, brands map[string]struct{}, band models.PriceBand) float64 {
	w := r.weights.Features
	score := 0.0

	if _, ok := categories[foldLabel(f.Category)]; ok {
		score += w.Category
	}
	if _, ok := brands[foldLabel(f.Brand)]; ok {
		score += w.Brand
	}

	priceScore := unmatchedPriceScore
	if band != models.PriceBandUnknown && models.PriceBandFor(f.Price) == band {
		priceScore = matchedPriceScore
	}
	score += w.Price * priceScore

	score += w.Quality * clamp01(f.QualityScore)
	score += w.Popularity * clamp01(f.Popularity/100)

	return score
}

func foldedSet(labels []string) map[string]struct{} {
	set := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		if key := foldLabel(l); key != "" {
			set[key] = struct{}{}
		}
	}
	return set
}

// normalizeMinMax rescales scores to [0,1] in place. An all-zero set stays zero and any
// other constant set becomes 1.
func normalizeMinMax(scores []float64) {
	if len(scores) == 0 {
		return
	}
	lo, hi := floats.Min(scores), floats.Max(scores)
	span := hi - lo
	for i, s := range scores {
		switch {
		case span > 0:
			scores[i] = (s - lo) / span
		case hi > 0:
			scores[i] = 1
		default:
			scores[i] = 0
		}
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

func explainRanking(profile *models.CollaborativeProfile, ranked []string) string {
	top := ranked
	if len(top) > explainedItems {
		top = top[:explainedItems]
	}

	if len(profile.Neighbors) == 0 {
		return fmt.Sprintf("Ranked %d candidate items for user %s by content features only; no similar users were found. Top items: %s.",
			len(ranked), profile.UserID, strings.Join(top, ", "))
	}

	return fmt.Sprintf("Ranked %d candidate items for user %s using %d similar users. Top items: %s, endorsed by users with similar behavior.",
		len(ranked), profile.UserID, len(profile.Neighbors), strings.Join(top, ", "))
}
