package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sirupsen/logrus"

	"github.com/temcen/affinity/pkg/models"
)

const upsertNeighborsCypher = `
	UNWIND $profiles AS profile
	MERGE (u:User {id: profile.user_id})
	SET u.description = profile.description,
	    u.profiled_at = datetime(profile.generated_at)
	WITH u, profile
	OPTIONAL MATCH (u)-[old:SIMILAR_TO]->()
	DELETE old
	WITH DISTINCT u, profile
	UNWIND profile.neighbors AS neighbor
	MERGE (v:User {id: neighbor.user_id})
	MERGE (u)-[r:SIMILAR_TO]->(v)
	SET r.similarity = neighbor.similarity,
	    r.common_items = neighbor.common_items,
	    r.rank = neighbor.rank`

// NeighborGraphWriter stores each exported profile's neighbors as SIMILAR_TO edges, replacing
// the edges of a previous export.
type NeighborGraphWriter struct {
	driver    neo4j.DriverWithContext
	database  string
	batchSize int
	logger    *logrus.Logger
}

func NewNeighborGraphWriter(driver neo4j.DriverWithContext, database string, logger *logrus.Logger) *NeighborGraphWriter {
	return &NeighborGraphWriter{
		driver:    driver,
		database:  database,
		batchSize: 500,
		logger:    logger,
	}
}

func (w *NeighborGraphWriter) Name() string {
	return "neo4j"
}

// Publish writes exports in batches, one write transaction per batch.
func (w *NeighborGraphWriter) Publish(ctx context.Context, exports []models.ProfileExport) error {
	session := w.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: w.database,
	})
	defer session.Close(ctx)

	for start := 0; start < len(exports); start += w.batchSize {
		end := min(start+w.batchSize, len(exports))
		params := neighborParams(exports[start:end])

		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
			result, err := tx.Run(ctx, upsertNeighborsCypher, params)
			if err != nil {
				return nil, err
			}

			summary, err := result.Consume(ctx)
			if err != nil {
				return nil, err
			}

			return summary.Counters(), nil
		})
		if err != nil {
			w.logger.WithError(err).WithField("batch_size", end-start).Error("Failed to write neighbor graph batch")
			return fmt.Errorf("failed to write neighbor graph: %w", err)
		}

		w.logger.WithField("batch_size", end-start).Debug("Wrote neighbor graph batch")
	}

	return nil
}

// neighborParams flattens exports into the parameter map of upsertNeighborsCypher.
func neighborParams(exports []models.ProfileExport) map[string]interface{} {
	profiles := make([]map[string]interface{}, 0, len(exports))
	for _, export := range exports {
		if export.Profile == nil {
			continue
		}

		neighbors := make([]map[string]interface{}, len(export.Profile.Neighbors))
		for i, n := range export.Profile.Neighbors {
			neighbors[i] = map[string]interface{}{
				"user_id":      n.UserID,
				"similarity":   n.Similarity,
				"common_items": int64(n.CommonItems),
				"rank":         int64(i + 1),
			}
		}

		profiles = append(profiles, map[string]interface{}{
			"user_id":      export.Profile.UserID,
			"description":  export.Description,
			"generated_at": export.GeneratedAt.UTC().Format("2006-01-02T15:04:05Z"),
			"neighbors":    neighbors,
		})
	}

	return map[string]interface{}{"profiles": profiles}
}
