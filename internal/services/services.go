package services

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/temcen/affinity/internal/config"
	"github.com/temcen/affinity/internal/database"
	"github.com/temcen/affinity/internal/graph"
	"github.com/temcen/affinity/internal/ingest"
	"github.com/temcen/affinity/internal/messaging"
	"github.com/temcen/affinity/internal/validation"
)

type Services struct {
	Auth        *AuthService
	Health      *HealthService
	Metrics     *Metrics
	Validator   *validation.SchemaValidator
	Recommender *Recommender
	Loader      *ModelLoader
	Exporter    *Exporter

	closers []io.Closer
}

func New(cfg *config.Config, logger *logrus.Logger, db *database.Database, reg prometheus.Registerer) (*Services, error) {
	validator, err := validation.NewSchemaValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to load schemas: %w", err)
	}

	metrics := NewMetrics(reg, logger)
	recommender := NewRecommender(&cfg.Recommendation, featureLookup(cfg, db, logger), logger, metrics)

	source, err := behaviorSource(cfg, db, validator, logger)
	if err != nil {
		return nil, err
	}

	s := &Services{
		Auth:        NewAuthService(&cfg.Auth, logger),
		Health:      NewHealthService(db, recommender, reg, logger),
		Metrics:     metrics,
		Validator:   validator,
		Recommender: recommender,
		Loader:      NewModelLoader(source, recommender, logger),
	}

	sinks, err := s.profileSinks(cfg, db, logger)
	if err != nil {
		return nil, err
	}
	s.Exporter = NewExporter(recommender, sinks, cfg.Export.NeighborK, logger, metrics)

	return s, nil
}

// Close releases the export sinks.
func (s *Services) Close() error {
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			return err
		}
	}
	return nil
}

// featureLookup reads the catalog from PostgreSQL, cached in Redis when both are configured.
// Without PostgreSQL every item ranks on collaborative evidence alone.
func featureLookup(cfg *config.Config, db *database.Database, logger *logrus.Logger) FeatureLookup {
	if db == nil || db.PG == nil {
		logger.Warn("No item catalog configured, feature scores will be zero")
		return nil
	}

	var lookup FeatureLookup = NewCatalogFeatureLookup(db.PG, logger)
	if db.Redis != nil {
		lookup = NewCachedFeatureLookup(lookup, db.Redis, cfg.Recommendation.FeatureCacheTTL, logger)
	}
	return lookup
}

func behaviorSource(cfg *config.Config, db *database.Database, validator *validation.SchemaValidator, logger *logrus.Logger) (ingest.Source, error) {
	switch cfg.Ingest.Source {
	case "postgres":
		if db == nil || db.PG == nil {
			return nil, fmt.Errorf("ingest source postgres requires database.url")
		}
		return ingest.NewPostgresSource(db.PG, cfg.Ingest.Table, logger), nil
	case "", "file":
		return ingest.NewFileSource(cfg.Ingest.Path, ingest.Format(cfg.Ingest.Format), validator, logger), nil
	default:
		return nil, fmt.Errorf("unknown ingest source %q", cfg.Ingest.Source)
	}
}

func (s *Services) profileSinks(cfg *config.Config, db *database.Database, logger *logrus.Logger) ([]ProfileSink, error) {
	var sinks []ProfileSink
	for _, name := range cfg.Export.Sinks {
		switch name {
		case "kafka":
			publisher := messaging.NewProfilePublisher(cfg, logger)
			s.closers = append(s.closers, publisher)
			sinks = append(sinks, publisher)
		case "neo4j":
			if db == nil || db.Neo4j == nil {
				return nil, fmt.Errorf("export sink neo4j requires neo4j.url")
			}
			sinks = append(sinks, graph.NewNeighborGraphWriter(db.Neo4j, cfg.Neo4j.Database, logger))
		default:
			return nil, fmt.Errorf("unknown export sink %q", name)
		}
	}
	return sinks, nil
}
