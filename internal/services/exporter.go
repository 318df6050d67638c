package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/temcen/affinity/pkg/models"
)

// ProfileSink receives exported profiles, e.g. a message topic or a graph store.
type ProfileSink interface {
	Name() string
	Publish(ctx context.Context, exports []models.ProfileExport) error
}

// ExportReport summarizes one export run.
type ExportReport struct {
	ID          uuid.UUID         `json:"id"`
	Profiles    int               `json:"profiles"`
	Sinks       []string          `json:"sinks"`
	Failures    map[string]string `json:"failures,omitempty"`
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt time.Time         `json:"completed_at"`
}

// Exporter builds the profile and preference description of every known user and hands them
// to the configured sinks.
type Exporter struct {
	recommender *Recommender
	sinks       []ProfileSink
	neighborK   int
	logger      *logrus.Logger
	metrics     *Metrics
}

func NewExporter(recommender *Recommender, sinks []ProfileSink, neighborK int, logger *logrus.Logger, metrics *Metrics) *Exporter {
	return &Exporter{
		recommender: recommender,
		sinks:       sinks,
		neighborK:   neighborK,
		logger:      logger,
		metrics:     metrics,
	}
}

// Export runs against a single model generation. Every sink is attempted; the returned error
// joins the failures of all sinks.
func (e *Exporter) Export(ctx context.Context) (*ExportReport, error) {
	report := &ExportReport{
		ID:        uuid.New(),
		StartedAt: time.Now(),
	}

	exports, err := e.Collect(ctx)
	if err != nil {
		return nil, err
	}
	report.Profiles = len(exports)

	var errs []error
	for _, sink := range e.sinks {
		report.Sinks = append(report.Sinks, sink.Name())

		err := sink.Publish(ctx, exports)
		e.metrics.ProfileExported(sink.Name(), err)
		if err != nil {
			if report.Failures == nil {
				report.Failures = make(map[string]string)
			}
			report.Failures[sink.Name()] = err.Error()
			errs = append(errs, fmt.Errorf("sink %s: %w", sink.Name(), err))
			continue
		}

		e.logger.WithFields(logrus.Fields{
			"export_id": report.ID,
			"sink":      sink.Name(),
			"profiles":  len(exports),
		}).Info("Profiles exported")
	}
	report.CompletedAt = time.Now()

	return report, errors.Join(errs...)
}

// Collect builds the export records for every user of the current model, in user id order.
func (e *Exporter) Collect(ctx context.Context) ([]models.ProfileExport, error) {
	snap := e.recommender.current.Load()
	users := snap.model.Users()

	exports := make([]models.ProfileExport, 0, len(users))
	for _, userID := range users {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		profile, err := e.recommender.profile(ctx, snap, userID, e.neighborK)
		if err != nil {
			e.logger.WithError(err).WithField("user_id", userID).Warn("Skipping user whose profile could not be built")
			continue
		}
		summary := snap.describer.Summarize(ctx, profile)

		exports = append(exports, models.ProfileExport{
			ID:          uuid.New(),
			Profile:     profile,
			Summary:     summary,
			Description: summary.Text(),
			GeneratedAt: time.Now().UTC(),
		})
	}

	return exports, nil
}
