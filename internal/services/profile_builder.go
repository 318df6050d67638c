package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/temcen/affinity/pkg/models"
)

// ProfileBuilder assembles collaborative profiles from selected neighbors.
type ProfileBuilder struct {
	model          *InteractionModel
	selector       *NeighborSelector
	minCommonItems int
	logger         *logrus.Logger
}

func NewProfileBuilder(model *InteractionModel, selector *NeighborSelector, minCommonItems int, logger *logrus.Logger) *ProfileBuilder {
	return &ProfileBuilder{
		model:          model,
		selector:       selector,
		minCommonItems: minCommonItems,
		logger:         logger,
	}
}

// BuildProfile selects up to k neighbors of userID and ranks the items they touched that
// userID has not, scoring each item by the sum of neighbor weight times neighbor similarity.
func (b *ProfileBuilder) BuildProfile(ctx context.Context, userID string, k int) (*models.CollaborativeProfile, error) {
	neighbors, err := b.selector.FindNeighbors(ctx, userID, k, b.minCommonItems)
	if err != nil {
		return nil, fmt.Errorf("failed to find neighbors: %w", err)
	}

	items, scores := b.candidateItems(userID, neighbors)

	profile := &models.CollaborativeProfile{
		UserID:          userID,
		Neighbors:       neighbors,
		CandidateItems:  items,
		CandidateScores: scores,
		BehaviorHistory: b.model.History(userID),
	}

	b.logger.WithFields(logrus.Fields{
		"user_id":         userID,
		"neighbors":       len(neighbors),
		"candidate_items": len(items),
	}).Debug("Collaborative profile built")

	return profile, nil
}

func (b *ProfileBuilder) candidateItems(userID string, neighbors []models.Neighbor) ([]string, []float64) {
	owned := b.model.Items(userID)
	itemScores := make(map[string]float64)

	for _, n := range neighbors {
		for itemID, weight := range b.model.Items(n.UserID) {
			if _, ok := owned[itemID]; ok {
				continue
			}
			itemScores[itemID] += weight * n.Similarity
		}
	}

	type scoredItem struct {
		itemID string
		score  float64
	}
	ranked := make([]scoredItem, 0, len(itemScores))
	for itemID, score := range itemScores {
		ranked = append(ranked, scoredItem{itemID: itemID, score: score})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].itemID < ranked[j].itemID
	})

	items := make([]string, len(ranked))
	scores := make([]float64, len(ranked))
	for i, r := range ranked {
		items[i] = r.itemID
		scores[i] = r.score
	}

	return items, scores
}
