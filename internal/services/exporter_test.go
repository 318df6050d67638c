package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temcen/affinity/pkg/models"
)

type recordingSink struct {
	name     string
	err      error
	received []models.ProfileExport
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Publish(ctx context.Context, exports []models.ProfileExport) error {
	s.received = exports
	return s.err
}

func TestExporter_Collect(t *testing.T) {
	r := loadedRecommender(t, neutralFeatures)
	exporter := NewExporter(r, nil, 5, quietLogger(), nil)

	exports, err := exporter.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, exports, 6)

	for i, e := range exports {
		assert.Equal(t, r.Model().Users()[i], e.Profile.UserID)
		assert.NotEqual(t, [16]byte{}, [16]byte(e.ID))
		assert.Equal(t, e.Summary.Text(), e.Description)
		assert.LessOrEqual(t, len(e.Profile.Neighbors), 5)
	}
	assert.Contains(t, exports[5].Description, "No clear preference")
}

func TestExporter_CollectCancelled(t *testing.T) {
	r := loadedRecommender(t, neutralFeatures)
	exporter := NewExporter(r, nil, 5, quietLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := exporter.Collect(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExporter_Export(t *testing.T) {
	r := loadedRecommender(t, neutralFeatures)

	t.Run("every sink receives the same profiles", func(t *testing.T) {
		kafkaSink := &recordingSink{name: "kafka"}
		graphSink := &recordingSink{name: "neo4j"}
		exporter := NewExporter(r, []ProfileSink{kafkaSink, graphSink}, 5, quietLogger(), nil)

		report, err := exporter.Export(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 6, report.Profiles)
		assert.Equal(t, []string{"kafka", "neo4j"}, report.Sinks)
		assert.Empty(t, report.Failures)
		assert.False(t, report.CompletedAt.Before(report.StartedAt))
		assert.Equal(t, kafkaSink.received, graphSink.received)
	})

	t.Run("a failing sink does not stop the others", func(t *testing.T) {
		broken := &recordingSink{name: "kafka", err: errors.New("broker unavailable")}
		graphSink := &recordingSink{name: "neo4j"}
		exporter := NewExporter(r, []ProfileSink{broken, graphSink}, 5, quietLogger(), nil)

		report, err := exporter.Export(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, broken.err)

		require.NotNil(t, report)
		assert.Equal(t, map[string]string{"kafka": "broker unavailable"}, report.Failures)
		assert.Len(t, graphSink.received, 6)
	})
}
