package ingest

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/temcen/affinity/pkg/models"
)

const DefaultBehaviorTable = "user_behaviors"

// Querier is the subset of a pgx pool used by PostgresSource.
type Querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// PostgresSource reads behavior records from a table with the columns
// user_id, item_id, behavior_type, occurred_at and an optional weight.
type PostgresSource struct {
	db     Querier
	table  string
	logger *logrus.Logger
}

func NewPostgresSource(db Querier, table string, logger *logrus.Logger) *PostgresSource {
	if table == "" {
		table = DefaultBehaviorTable
	}
	return &PostgresSource{
		db:     db,
		table:  table,
		logger: logger,
	}
}

func (s *PostgresSource) query() string {
	return fmt.Sprintf(`
		SELECT user_id, item_id, behavior_type, occurred_at, weight
		FROM %s
		ORDER BY occurred_at, user_id, item_id`, pgx.Identifier{s.table}.Sanitize())
}

func (s *PostgresSource) Load(ctx context.Context) ([]models.BehaviorRecord, error) {
	rows, err := s.db.Query(ctx, s.query())
	if err != nil {
		return nil, fmt.Errorf("failed to query behavior records: %w", err)
	}
	defer rows.Close()

	var records []models.BehaviorRecord
	for rows.Next() {
		var (
			record       models.BehaviorRecord
			behaviorType string
		)
		if err := rows.Scan(&record.UserID, &record.ItemID, &behaviorType, &record.Timestamp, &record.Weight); err != nil {
			return nil, fmt.Errorf("failed to scan behavior record: %w", err)
		}
		record.BehaviorType = models.BehaviorType(behaviorType)
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read behavior records: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"table":   s.table,
		"records": len(records),
	}).Info("Behavior records loaded from PostgreSQL")

	return records, nil
}
