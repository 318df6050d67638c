package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temcen/affinity/internal/config"
	"github.com/temcen/affinity/internal/database"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	path := filepath.Join(t.TempDir(), "behaviors.jsonl")
	data := `{"user_id":"u1","item_id":"i1","behavior_type":"click","timestamp":"2024-01-15T10:00:00Z"}
{"user_id":"u2","item_id":"i1","behavior_type":"order","timestamp":"2024-01-15T10:05:00Z","score":2}
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg := &config.Config{Recommendation: *testRecommendationConfig()}
	cfg.Ingest.Source = "file"
	cfg.Ingest.Path = path
	cfg.Export.NeighborK = 5
	return cfg
}

func TestNew(t *testing.T) {
	t.Run("minimal configuration", func(t *testing.T) {
		cfg := testConfig(t)
		s, err := New(cfg, quietLogger(), &database.Database{}, prometheus.NewRegistry())
		require.NoError(t, err)
		defer s.Close()

		assert.False(t, s.Auth.Enabled())
		assert.Nil(t, s.Recommender.lookup)

		report, err := s.Loader.Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, report.Records)

		status := s.Health.CheckHealth(context.Background())
		assert.Equal(t, "healthy", status.Status)
	})

	t.Run("kafka sink", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Kafka.Brokers = []string{"localhost:9092"}
		cfg.Export.Sinks = []string{"kafka"}

		s, err := New(cfg, quietLogger(), &database.Database{}, prometheus.NewRegistry())
		require.NoError(t, err)
		assert.Len(t, s.Exporter.sinks, 1)
		assert.Equal(t, "kafka", s.Exporter.sinks[0].Name())
		assert.NoError(t, s.Close())
	})

	tests := []struct {
		name   string
		mutate func(cfg *config.Config)
	}{
		{name: "neo4j sink without driver", mutate: func(cfg *config.Config) { cfg.Export.Sinks = []string{"neo4j"} }},
		{name: "unknown sink", mutate: func(cfg *config.Config) { cfg.Export.Sinks = []string{"s3"} }},
		{name: "postgres source without database", mutate: func(cfg *config.Config) { cfg.Ingest.Source = "postgres" }},
		{name: "unknown source", mutate: func(cfg *config.Config) { cfg.Ingest.Source = "ftp" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(cfg)
			_, err := New(cfg, quietLogger(), &database.Database{}, prometheus.NewRegistry())
			assert.Error(t, err)
		})
	}
}
