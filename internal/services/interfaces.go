package services

import (
	"context"

	"github.com/temcen/affinity/pkg/models"
)

// RankingServiceInterface defines the ranking operations exposed over HTTP
type RankingServiceInterface interface {
	Rank(ctx context.Context, req *models.RankingRequest) (*models.RankingResult, error)
	RankBatch(ctx context.Context, reqs []models.RankingRequest) []models.BatchRankingEntry
}

// ProfileServiceInterface defines the per-user neighbor, profile and preference queries
type ProfileServiceInterface interface {
	Neighbors(ctx context.Context, userID string, k, minCommonItems int) ([]models.Neighbor, error)
	Profile(ctx context.Context, userID string, k int) (*models.CollaborativeProfile, error)
	Summarize(ctx context.Context, userID string) (*models.PreferenceSummary, error)
}

// ModelLoaderInterface reloads the interaction model from its configured source
type ModelLoaderInterface interface {
	Load(ctx context.Context) (*LoadReport, error)
}

// ExporterInterface publishes every user's profile to the configured sinks
type ExporterInterface interface {
	Export(ctx context.Context) (*ExportReport, error)
}

// HealthServiceInterface reports dependency and model health
type HealthServiceInterface interface {
	CheckHealth(ctx context.Context) *HealthStatus
}

// ModelStatsProvider reports the size of the served interaction model
type ModelStatsProvider interface {
	Stats() ModelStats
}

var (
	_ RankingServiceInterface = (*Recommender)(nil)
	_ ProfileServiceInterface = (*Recommender)(nil)
	_ ModelLoaderInterface    = (*ModelLoader)(nil)
	_ ExporterInterface       = (*Exporter)(nil)
	_ HealthServiceInterface  = (*HealthService)(nil)
	_ ModelStatsProvider      = (*Recommender)(nil)
)
