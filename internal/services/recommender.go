package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/temcen/affinity/internal/config"
	"github.com/temcen/affinity/pkg/models"
)

// snapshot is one immutable generation of the interaction model together with the
// components bound to it.
type snapshot struct {
	model     *InteractionModel
	engine    *SimilarityEngine
	selector  *NeighborSelector
	builder   *ProfileBuilder
	describer *PreferenceDescriber
	ranker    *ItemRanker
	loadedAt  time.Time
}

// Recommender serves neighbor, profile, description and ranking queries against the current
// interaction model. Reload swaps in a new model without disturbing in-flight queries.
type Recommender struct {
	cfg     *config.RecommendationConfig
	lookup  FeatureLookup
	logger  *logrus.Logger
	metrics *Metrics
	current atomic.Pointer[snapshot]
}

func NewRecommender(cfg *config.RecommendationConfig, lookup FeatureLookup, logger *logrus.Logger, metrics *Metrics) *Recommender {
	r := &Recommender{
		cfg:     cfg,
		lookup:  lookup,
		logger:  logger,
		metrics: metrics,
	}

	empty, _ := BuildInteractionModel(nil)
	r.current.Store(r.newSnapshot(empty))

	return r
}

func (r *Recommender) newSnapshot(model *InteractionModel) *snapshot {
	engine := NewSimilarityEngine(model, SimilarityWeights{
		SetOverlap:      r.cfg.Similarity.SetOverlap,
		WeightedVector:  r.cfg.Similarity.WeightedVector,
		BehaviorPattern: r.cfg.Similarity.BehaviorPattern,
	})
	selector := NewNeighborSelector(model, engine, r.cfg.Neighbors.Workers, r.logger)
	describer := NewPreferenceDescriber(model, r.lookup, r.cfg.Ranking.Workers, r.logger)

	weights := RankingWeights{
		Collaborative: r.cfg.Ranking.Collaborative,
		Feature:       r.cfg.Ranking.Feature,
		Features: FeatureWeights{
			Category:   r.cfg.Ranking.Features.Category,
			Brand:      r.cfg.Ranking.Features.Brand,
			Price:      r.cfg.Ranking.Features.Price,
			Quality:    r.cfg.Ranking.Features.Quality,
			Popularity: r.cfg.Ranking.Features.Popularity,
		},
	}

	return &snapshot{
		model:     model,
		engine:    engine,
		selector:  selector,
		builder:   NewProfileBuilder(model, selector, r.cfg.Neighbors.MinCommonItems, r.logger),
		describer: describer,
		ranker:    NewItemRanker(r.lookup, describer, weights, r.cfg.Ranking.Workers, r.logger, r.metrics),
		loadedAt:  time.Now(),
	}
}

// Reload builds a new interaction model from records and makes it current. On failure the
// previous model stays in place.
func (r *Recommender) Reload(records []models.BehaviorRecord) error {
	model, err := BuildInteractionModel(records)
	r.metrics.ModelLoaded(model, err)
	if err != nil {
		return fmt.Errorf("failed to build interaction model: %w", err)
	}

	r.current.Store(r.newSnapshot(model))

	r.logger.WithFields(logrus.Fields{
		"users":   model.UserCount(),
		"items":   model.ItemCount(),
		"records": model.RecordCount(),
	}).Info("Interaction model loaded")

	return nil
}

// Model returns the current interaction model.
func (r *Recommender) Model() *InteractionModel {
	return r.current.Load().model
}

// LoadedAt reports when the current model was installed.
func (r *Recommender) LoadedAt() time.Time {
	return r.current.Load().loadedAt
}

// ModelStats describes the interaction model currently served.
type ModelStats struct {
	Users    int       `json:"users"`
	Items    int       `json:"items"`
	Records  int       `json:"records"`
	LoadedAt time.Time `json:"loaded_at"`
}

// Stats reports the size of the current model and when it was installed.
func (r *Recommender) Stats() ModelStats {
	snap := r.current.Load()
	return ModelStats{
		Users:    snap.model.UserCount(),
		Items:    snap.model.ItemCount(),
		Records:  snap.model.RecordCount(),
		LoadedAt: snap.loadedAt,
	}
}

// Similarity scores a pair of users with the given metric.
func (r *Recommender) Similarity(metric SimilarityMetric, a, b string) float64 {
	return r.current.Load().engine.Score(metric, a, b)
}

// Neighbors returns up to k neighbors of userID. k <= 0 and minCommonItems < 0 fall back to
// the configured values.
func (r *Recommender) Neighbors(ctx context.Context, userID string, k, minCommonItems int) ([]models.Neighbor, error) {
	if k <= 0 {
		k = r.cfg.Neighbors.K
	}
	if minCommonItems < 0 {
		minCommonItems = r.cfg.Neighbors.MinCommonItems
	}
	return r.current.Load().selector.FindNeighbors(ctx, userID, k, minCommonItems)
}

// Profile builds a collaborative profile for userID from up to k neighbors. k <= 0 uses the
// configured neighbor count.
func (r *Recommender) Profile(ctx context.Context, userID string, k int) (*models.CollaborativeProfile, error) {
	return r.profile(ctx, r.current.Load(), userID, k)
}

func (r *Recommender) profile(ctx context.Context, snap *snapshot, userID string, k int) (*models.CollaborativeProfile, error) {
	if k <= 0 {
		k = r.cfg.Neighbors.K
	}
	profile, err := snap.builder.BuildProfile(ctx, userID, k)
	if err != nil {
		return nil, err
	}
	r.metrics.ObserveNeighbors(len(profile.Neighbors))
	return profile, nil
}

// Summarize returns the structured preference summary of userID.
func (r *Recommender) Summarize(ctx context.Context, userID string) (*models.PreferenceSummary, error) {
	snap := r.current.Load()
	profile, err := r.profile(ctx, snap, userID, 0)
	if err != nil {
		return nil, err
	}
	return snap.describer.Summarize(ctx, profile), nil
}

// Describe returns the text preference description of userID.
func (r *Recommender) Describe(ctx context.Context, userID string) (string, error) {
	summary, err := r.Summarize(ctx, userID)
	if err != nil {
		return "", err
	}
	return summary.Text(), nil
}

// Rank builds a fresh profile for the request user and ranks the request candidates.
func (r *Recommender) Rank(ctx context.Context, req *models.RankingRequest) (result *models.RankingResult, err error) {
	started := time.Now()
	defer func() { r.metrics.ObserveRanking(started, err) }()

	if req == nil || len(req.CandidateItems) == 0 {
		return nil, fmt.Errorf("%w: candidate set is empty", models.ErrInvalidRequest)
	}

	snap := r.current.Load()
	profile, err := r.profile(ctx, snap, req.TargetUserID, 0)
	if err != nil {
		return nil, err
	}

	return snap.ranker.Rank(ctx, req, profile)
}

// RankBatch ranks every request independently. A failing request is reported in its own
// entry and does not affect the others.
func (r *Recommender) RankBatch(ctx context.Context, reqs []models.RankingRequest) []models.BatchRankingEntry {
	entries := make([]models.BatchRankingEntry, len(reqs))
	for i := range reqs {
		entries[i].UserID = reqs[i].TargetUserID

		result, err := r.Rank(ctx, &reqs[i])
		if err != nil {
			r.logger.WithError(err).WithField("user_id", reqs[i].TargetUserID).Warn("Batch ranking entry failed")
			entries[i].Error = err.Error()
			continue
		}
		entries[i].Result = result
	}
	return entries
}
