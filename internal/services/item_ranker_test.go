package services

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temcen/affinity/pkg/models"
)

func newRanker(model *InteractionModel, lookup FeatureLookup) *ItemRanker {
	describer := NewPreferenceDescriber(model, lookup, 4, quietLogger())
	return NewItemRanker(lookup, describer, DefaultRankingWeights(), 4, quietLogger(), nil)
}

func TestItemRanker_CollaborativeDominatesFeatureTie(t *testing.T) {
	model := buildModel(t,
		behavior("me", "seen", models.BehaviorClick),
		behavior("n1", "seen", models.BehaviorClick),
		behavior("n1", "X", models.BehaviorOrder),
	)
	profile := &models.CollaborativeProfile{
		UserID:          "me",
		Neighbors:       []models.Neighbor{{UserID: "n1", Similarity: 0.8, CommonItems: 1}},
		CandidateItems:  []string{"X"},
		CandidateScores: []float64{4},
	}
	ranker := newRanker(model, neutralFeatures)

	for _, candidates := range [][]string{{"X", "Y"}, {"Y", "X"}} {
		result, err := ranker.Rank(context.Background(), &models.RankingRequest{
			TargetUserID:   "me",
			CandidateItems: candidates,
		}, profile)
		require.NoError(t, err)

		assert.Equal(t, []string{"X", "Y"}, result.RankedItems)
		assert.InDelta(t, 1.0, result.Scores[0], 1e-12)
		assert.InDelta(t, 0.4, result.Scores[1], 1e-12)
		assert.Greater(t, result.Scores[0], result.Scores[1])
	}
}

func TestItemRanker_Rank(t *testing.T) {
	ctx := context.Background()
	model := buildModel(t, communityRecords()...)
	engine := NewSimilarityEngine(model, DefaultSimilarityWeights())
	selector := NewNeighborSelector(model, engine, 2, quietLogger())
	builder := NewProfileBuilder(model, selector, 3, quietLogger())

	profile, err := builder.BuildProfile(ctx, "u1", 10)
	require.NoError(t, err)
	require.NotEmpty(t, profile.CandidateItems)

	ranker := newRanker(model, hashFeatures)
	candidates := []string{"i9", "i6", "i7", "i10", "i5", "i8"}
	req := &models.RankingRequest{TargetUserID: "u1", CandidateItems: candidates}

	t.Run("output is a permutation with aligned scores", func(t *testing.T) {
		result, err := ranker.Rank(ctx, req, profile)
		require.NoError(t, err)

		assert.Equal(t, "u1", result.UserID)
		assert.ElementsMatch(t, candidates, result.RankedItems)
		assert.Len(t, result.Scores, len(candidates))
		assert.True(t, sort.SliceIsSorted(result.Scores, func(i, j int) bool {
			return result.Scores[i] > result.Scores[j]
		}))
		for _, s := range result.Scores {
			assert.GreaterOrEqual(t, s, 0.0)
			assert.LessOrEqual(t, s, 1.0+1e-12)
		}
		assert.NotEmpty(t, result.Explanation)
		assert.Contains(t, result.Explanation, "3 similar users")
		assert.Equal(t, candidates, req.CandidateItems, "request is not modified")
	})

	t.Run("profile top candidate ranks first on a feature tie", func(t *testing.T) {
		result, err := newRanker(model, neutralFeatures).Rank(ctx, req, profile)
		require.NoError(t, err)
		assert.Equal(t, profile.CandidateItems[0], result.RankedItems[0])
	})

	t.Run("idempotent", func(t *testing.T) {
		first, err := ranker.Rank(ctx, req, profile)
		require.NoError(t, err)
		for i := 0; i < 5; i++ {
			again, err := ranker.Rank(ctx, req, profile)
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	})

	t.Run("duplicate candidates are collapsed", func(t *testing.T) {
		dupReq := &models.RankingRequest{
			TargetUserID:   "u1",
			CandidateItems: []string{"i5", "i9", "i5"},
		}
		result, err := ranker.Rank(ctx, dupReq, profile)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"i5", "i9"}, result.RankedItems)
		assert.Len(t, result.Scores, 2)
		assert.Equal(t, []string{"i5", "i9", "i5"}, dupReq.CandidateItems, "request is not modified")
	})

	t.Run("first occurrence keeps its request position on a tie", func(t *testing.T) {
		result, err := newRanker(model, neutralFeatures).Rank(ctx, &models.RankingRequest{
			TargetUserID:   "u1",
			CandidateItems: []string{"ghost_b", "ghost_a", "ghost_b"},
		}, profile)
		require.NoError(t, err)
		assert.Equal(t, []string{"ghost_b", "ghost_a"}, result.RankedItems)
		assert.Len(t, result.Scores, 2)
	})
}

func TestItemRanker_Errors(t *testing.T) {
	ctx := context.Background()
	model := buildModel(t, communityRecords()...)
	ranker := newRanker(model, hashFeatures)
	profile := &models.CollaborativeProfile{UserID: "u1"}

	t.Run("empty candidate set", func(t *testing.T) {
		_, err := ranker.Rank(ctx, &models.RankingRequest{TargetUserID: "u1"}, profile)
		assert.ErrorIs(t, err, models.ErrInvalidRequest)

		_, err = ranker.Rank(ctx, nil, profile)
		assert.ErrorIs(t, err, models.ErrInvalidRequest)
	})

	t.Run("profile for another user", func(t *testing.T) {
		_, err := ranker.Rank(ctx, &models.RankingRequest{TargetUserID: "u2", CandidateItems: []string{"i1"}}, profile)
		assert.ErrorIs(t, err, models.ErrProfileMismatch)

		_, err = ranker.Rank(ctx, &models.RankingRequest{TargetUserID: "u2", CandidateItems: []string{"i1"}}, nil)
		assert.ErrorIs(t, err, models.ErrProfileMismatch)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := ranker.Rank(cancelled, &models.RankingRequest{TargetUserID: "u1", CandidateItems: []string{"i1"}}, profile)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestItemRanker_UnknownUserRanksByFeatures(t *testing.T) {
	model := buildModel(t, communityRecords()...)
	features := staticFeatures{
		"low":  {ItemID: "low", Category: "Home", Brand: "B", Price: 10, Popularity: 0, QualityScore: 0},
		"high": {ItemID: "high", Category: "Home", Brand: "B", Price: 10, Popularity: 100, QualityScore: 1},
	}
	ranker := newRanker(model, features)

	result, err := ranker.Rank(context.Background(), &models.RankingRequest{
		TargetUserID:   "ghost",
		CandidateItems: []string{"low", "high"},
	}, &models.CollaborativeProfile{UserID: "ghost"})
	require.NoError(t, err)

	assert.Equal(t, []string{"high", "low"}, result.RankedItems)
	assert.InDelta(t, 0.4, result.Scores[0], 1e-12)
	assert.InDelta(t, 0.0, result.Scores[1], 1e-12)
	assert.Contains(t, result.Explanation, "no similar users")
}

func TestItemRanker_FeatureLookupFailure(t *testing.T) {
	model := buildModel(t, communityRecords()...)
	features := staticFeatures{
		"known": {ItemID: "known", Category: "Home", Brand: "B", Price: 10, Popularity: 20, QualityScore: 0.3},
		"bad":   {ItemID: "bad", Category: "Home", Brand: "B", Price: 10, Popularity: 250, QualityScore: 0.3},
	}
	ranker := newRanker(model, features)

	result, err := ranker.Rank(context.Background(), &models.RankingRequest{
		TargetUserID:   "ghost",
		CandidateItems: []string{"missing", "bad", "known"},
	}, &models.CollaborativeProfile{UserID: "ghost"})
	require.NoError(t, err)

	assert.Equal(t, []string{"known", "missing", "bad"}, result.RankedItems)
	assert.InDelta(t, 0.4, result.Scores[0], 1e-12)
	assert.Equal(t, 0.0, result.Scores[1])
	assert.Equal(t, 0.0, result.Scores[2])
}

func TestItemRanker_TiesKeepRequestOrder(t *testing.T) {
	model := buildModel(t)
	ranker := newRanker(model, neutralFeatures)
	candidates := []string{"d", "b", "a", "c"}

	result, err := ranker.Rank(context.Background(), &models.RankingRequest{
		TargetUserID:   "ghost",
		CandidateItems: candidates,
	}, &models.CollaborativeProfile{UserID: "ghost"})
	require.NoError(t, err)

	assert.Equal(t, candidates, result.RankedItems)
	for _, s := range result.Scores {
		assert.InDelta(t, 0.4, s, 1e-12)
	}
}

func TestItemRanker_FeatureMatch(t *testing.T) {
	ranker := newRanker(buildModel(t), neutralFeatures)
	categories := foldedSet([]string{"Electronics"})
	brands := foldedSet([]string{"BrandA"})

	full := &models.ItemFeatures{Category: "electronics", Brand: "BRANDA", Price: 30, Popularity: 100, QualityScore: 1}
	assert.InDelta(t, 1.0, ranker.matchFeatures(full, categories, brands, models.PriceBandLow), 1e-12)

	// unmatched band scores half the price weight
	assert.InDelta(t, 0.9, ranker.matchFeatures(full, categories, brands, models.PriceBandHigh), 1e-12)
	assert.InDelta(t, 0.9, ranker.matchFeatures(full, categories, brands, models.PriceBandUnknown), 1e-12)

	none := &models.ItemFeatures{Category: "Books", Brand: "Other", Price: 30}
	assert.InDelta(t, 0.1, ranker.matchFeatures(none, categories, brands, models.PriceBandMid), 1e-12)
}

func TestNormalizeMinMax(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want []float64
	}{
		{name: "spread", in: []float64{2, 4, 3}, want: []float64{0, 1, 0.5}},
		{name: "all zero", in: []float64{0, 0}, want: []float64{0, 0}},
		{name: "constant", in: []float64{0.7, 0.7}, want: []float64{1, 1}},
		{name: "empty", in: []float64{}, want: []float64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			normalizeMinMax(tt.in)
			assert.InDeltaSlice(t, tt.want, tt.in, 1e-12)
		})
	}
}
