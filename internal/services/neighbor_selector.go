package services

import (
	"context"
	"runtime"
	"sort"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/temcen/affinity/pkg/models"
)

// DefaultMinCommonItems is the confidence gate applied when no explicit value is configured.
const DefaultMinCommonItems = 3

// NeighborSelector finds the users most similar to a target user.
type NeighborSelector struct {
	model   *InteractionModel
	engine  *SimilarityEngine
	workers int
	logger  *logrus.Logger
}

// NewNeighborSelector creates a selector. workers <= 0 uses GOMAXPROCS.
func NewNeighborSelector(model *InteractionModel, engine *SimilarityEngine, workers int, logger *logrus.Logger) *NeighborSelector {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &NeighborSelector{
		model:   model,
		engine:  engine,
		workers: workers,
		logger:  logger,
	}
}

// FindNeighbors returns up to k users sharing at least minCommonItems items with target,
// ordered by descending combined similarity with ties broken by ascending user id.
func (s *NeighborSelector) FindNeighbors(
	ctx context.Context,
	target string,
	k int,
	minCommonItems int,
) ([]models.Neighbor, error) {
	if k <= 0 || len(s.model.Items(target)) == 0 {
		return []models.Neighbor{}, nil
	}

	users := s.model.Users()
	scored := make([]*models.Neighbor, len(users))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.workers)

	for i, userID := range users {
		i, userID := i, userID
		if userID == target {
			continue
		}

		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}

			common := s.model.CommonItemCount(target, userID)
			if common < minCommonItems {
				return nil
			}

			scored[i] = &models.Neighbor{
				UserID:      userID,
				Similarity:  s.engine.Combined(target, userID),
				CommonItems: common,
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	neighbors := make([]models.Neighbor, 0)
	for _, n := range scored {
		if n != nil {
			neighbors = append(neighbors, *n)
		}
	}

	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Similarity != neighbors[j].Similarity {
			return neighbors[i].Similarity > neighbors[j].Similarity
		}
		return neighbors[i].UserID < neighbors[j].UserID
	})

	if len(neighbors) > k {
		neighbors = neighbors[:k]
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":          target,
		"candidates":       len(users) - 1,
		"neighbors":        len(neighbors),
		"min_common_items": minCommonItems,
	}).Debug("Neighbor selection completed")

	return neighbors, nil
}
