package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/temcen/affinity/pkg/models"
)

// FeatureLookup resolves the content features of an item from an external catalog.
type FeatureLookup interface {
	Features(ctx context.Context, itemID string) (*models.ItemFeatures, error)
}

// FeatureLookupFunc adapts a plain function to FeatureLookup.
type FeatureLookupFunc func(ctx context.Context, itemID string) (*models.ItemFeatures, error)

func (f FeatureLookupFunc) Features(ctx context.Context, itemID string) (*models.ItemFeatures, error) {
	return f(ctx, itemID)
}

// lookupFeatures calls lookup and rejects missing or malformed responses with ErrFeatureUnavailable.
func lookupFeatures(ctx context.Context, lookup FeatureLookup, itemID string) (*models.ItemFeatures, error) {
	if lookup == nil {
		return nil, fmt.Errorf("%w: no feature lookup configured", models.ErrFeatureUnavailable)
	}

	features, err := lookup.Features(ctx, itemID)
	if err != nil {
		if errors.Is(err, models.ErrFeatureUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: item %s: %v", models.ErrFeatureUnavailable, itemID, err)
	}
	if err := validateFeatures(features); err != nil {
		return nil, fmt.Errorf("%w: item %s: %v", models.ErrFeatureUnavailable, itemID, err)
	}

	return features, nil
}

func validateFeatures(f *models.ItemFeatures) error {
	if f == nil {
		return errors.New("empty response")
	}
	for name, v := range map[string]float64{
		"price":         f.Price,
		"popularity":    f.Popularity,
		"quality_score": f.QualityScore,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s is not a finite number", name)
		}
	}
	if f.Price < 0 {
		return fmt.Errorf("negative price %v", f.Price)
	}
	if f.Popularity < 0 || f.Popularity > 100 {
		return fmt.Errorf("popularity %v outside [0,100]", f.Popularity)
	}
	if f.QualityScore < 0 || f.QualityScore > 1 {
		return fmt.Errorf("quality score %v outside [0,1]", f.QualityScore)
	}
	return nil
}

// CatalogQuerier is the subset of a pgx pool used by the catalog lookup.
type CatalogQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// CatalogFeatureLookup reads item features from the item_catalog table.
type CatalogFeatureLookup struct {
	db     CatalogQuerier
	logger *logrus.Logger
}

func NewCatalogFeatureLookup(db CatalogQuerier, logger *logrus.Logger) *CatalogFeatureLookup {
	return &CatalogFeatureLookup{
		db:     db,
		logger: logger,
	}
}

const catalogFeaturesQuery = `
	SELECT item_id, category, brand, price, popularity, quality_score
	FROM item_catalog
	WHERE item_id = $1`

func (c *CatalogFeatureLookup) Features(ctx context.Context, itemID string) (*models.ItemFeatures, error) {
	var f models.ItemFeatures
	err := c.db.QueryRow(ctx, catalogFeaturesQuery, itemID).Scan(
		&f.ItemID, &f.Category, &f.Brand, &f.Price, &f.Popularity, &f.QualityScore,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: item %s not in catalog", models.ErrFeatureUnavailable, itemID)
		}
		return nil, fmt.Errorf("catalog query failed: %w", err)
	}

	return &f, nil
}

// CachedFeatureLookup fronts another lookup with a Redis cache. Failed lookups are not cached
// and Redis errors fall through to the underlying lookup.
type CachedFeatureLookup struct {
	next   FeatureLookup
	redis  *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

func NewCachedFeatureLookup(next FeatureLookup, redis *redis.Client, ttl time.Duration, logger *logrus.Logger) *CachedFeatureLookup {
	return &CachedFeatureLookup{
		next:   next,
		redis:  redis,
		ttl:    ttl,
		logger: logger,
	}
}

func featureCacheKey(itemID string) string {
	return "item_features:" + itemID
}

func (c *CachedFeatureLookup) Features(ctx context.Context, itemID string) (*models.ItemFeatures, error) {
	key := featureCacheKey(itemID)

	cached, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var f models.ItemFeatures
		if err := json.Unmarshal(cached, &f); err == nil {
			return &f, nil
		}
		c.logger.WithField("item_id", itemID).Warn("Discarding undecodable cached features")
	case !errors.Is(err, redis.Nil):
		c.logger.WithError(err).WithField("item_id", itemID).Warn("Feature cache read failed")
	}

	f, err := c.next.Features(ctx, itemID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(f); err == nil {
		if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.WithError(err).WithField("item_id", itemID).Warn("Failed to cache item features")
		}
	}

	return f, nil
}
