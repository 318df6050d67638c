package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/temcen/affinity/internal/ingest"
)

// LoadReport describes one reload of the interaction model from its source.
type LoadReport struct {
	Records  int           `json:"records"`
	Users    int           `json:"users"`
	Items    int           `json:"items"`
	Duration time.Duration `json:"duration"`
}

// ModelLoader reads behavior records from a source and installs them in the recommender.
type ModelLoader struct {
	source      ingest.Source
	recommender *Recommender
	logger      *logrus.Logger
}

func NewModelLoader(source ingest.Source, recommender *Recommender, logger *logrus.Logger) *ModelLoader {
	return &ModelLoader{
		source:      source,
		recommender: recommender,
		logger:      logger,
	}
}

// Load replaces the current model. Read or validation failures leave the current model serving.
func (l *ModelLoader) Load(ctx context.Context) (*LoadReport, error) {
	started := time.Now()

	records, err := l.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read behavior records: %w", err)
	}

	if err := l.recommender.Reload(records); err != nil {
		return nil, err
	}

	model := l.recommender.Model()
	report := &LoadReport{
		Records:  model.RecordCount(),
		Users:    model.UserCount(),
		Items:    model.ItemCount(),
		Duration: time.Since(started),
	}

	l.logger.WithFields(logrus.Fields{
		"records":  report.Records,
		"duration": report.Duration,
	}).Info("Behavior records loaded")

	return report, nil
}
