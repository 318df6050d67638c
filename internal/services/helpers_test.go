package services

import (
	"context"
	"fmt"
	"hash/fnv"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/temcen/affinity/internal/config"
	"github.com/temcen/affinity/pkg/models"
)

var baseTime = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func behavior(userID, itemID string, bt models.BehaviorType) models.BehaviorRecord {
	return models.BehaviorRecord{
		UserID:       userID,
		ItemID:       itemID,
		BehaviorType: bt,
		Timestamp:    baseTime,
	}
}

func weighted(userID, itemID string, bt models.BehaviorType, weight float64) models.BehaviorRecord {
	r := behavior(userID, itemID, bt)
	r.Weight = &weight
	return r
}

func buildModel(t *testing.T, records ...models.BehaviorRecord) *InteractionModel {
	t.Helper()
	model, err := BuildInteractionModel(records)
	require.NoError(t, err)
	return model
}

// hashFeatures derives stable pseudo features from the item id.
var hashFeatures = FeatureLookupFunc(func(ctx context.Context, itemID string) (*models.ItemFeatures, error) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(itemID))
	sum := h.Sum32()

	categories := []string{"Electronics", "Apparel", "Home", "Books", "Sports"}
	brands := []string{"BrandA", "BrandB", "BrandC", "BrandD"}

	return &models.ItemFeatures{
		ItemID:       itemID,
		Category:     categories[sum%uint32(len(categories))],
		Brand:        brands[sum%uint32(len(brands))],
		Price:        float64(10 + sum%490),
		Popularity:   float64(sum % 101),
		QualityScore: float64(sum%100) / 100,
	}, nil
})

// staticFeatures serves features from a map and fails for unknown items.
type staticFeatures map[string]models.ItemFeatures

func (s staticFeatures) Features(ctx context.Context, itemID string) (*models.ItemFeatures, error) {
	f, ok := s[itemID]
	if !ok {
		return nil, fmt.Errorf("no features for %s", itemID)
	}
	return &f, nil
}

// neutralFeatures returns the same features for every item.
var neutralFeatures = FeatureLookupFunc(func(ctx context.Context, itemID string) (*models.ItemFeatures, error) {
	return &models.ItemFeatures{
		ItemID:       itemID,
		Category:     "General",
		Brand:        "Generic",
		Price:        100,
		Popularity:   50,
		QualityScore: 0.5,
	}, nil
})

func testRecommendationConfig() *config.RecommendationConfig {
	return &config.RecommendationConfig{
		Similarity: config.SimilarityConfig{SetOverlap: 0.3, WeightedVector: 0.4, BehaviorPattern: 0.3},
		Neighbors:  config.NeighborConfig{K: 10, MinCommonItems: 3, Workers: 2},
		Ranking: config.RankingConfig{
			Collaborative: 0.6,
			Feature:       0.4,
			Features: config.FeatureWeightsConfig{
				Category: 0.3, Brand: 0.2, Price: 0.2, Quality: 0.2, Popularity: 0.1,
			},
			Workers: 2,
		},
	}
}

// communityRecords builds a small population: u1..u4 share items 1-4 with varying behavior,
// u5 shares only two items with u1 and u6 has a disjoint history.
func communityRecords() []models.BehaviorRecord {
	return []models.BehaviorRecord{
		behavior("u1", "i1", models.BehaviorClick),
		behavior("u1", "i2", models.BehaviorView),
		behavior("u1", "i3", models.BehaviorCart),
		behavior("u1", "i4", models.BehaviorOrder),

		behavior("u2", "i1", models.BehaviorClick),
		behavior("u2", "i2", models.BehaviorView),
		behavior("u2", "i3", models.BehaviorCart),
		behavior("u2", "i4", models.BehaviorOrder),
		behavior("u2", "i5", models.BehaviorOrder),
		behavior("u2", "i6", models.BehaviorClick),

		behavior("u3", "i1", models.BehaviorView),
		behavior("u3", "i2", models.BehaviorView),
		behavior("u3", "i3", models.BehaviorView),
		behavior("u3", "i7", models.BehaviorCart),

		behavior("u4", "i2", models.BehaviorClick),
		behavior("u4", "i3", models.BehaviorClick),
		behavior("u4", "i4", models.BehaviorClick),
		behavior("u4", "i5", models.BehaviorView),

		behavior("u5", "i1", models.BehaviorOrder),
		behavior("u5", "i2", models.BehaviorOrder),
		behavior("u5", "i8", models.BehaviorOrder),

		behavior("u6", "i9", models.BehaviorClick),
		behavior("u6", "i10", models.BehaviorView),
	}
}
