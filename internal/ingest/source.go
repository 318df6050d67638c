// Package ingest loads behavior records from files and from PostgreSQL.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/temcen/affinity/pkg/models"
)

// Source produces the full set of behavior records the interaction model is built from.
type Source interface {
	Load(ctx context.Context) ([]models.BehaviorRecord, error)
}

// SourceFunc adapts a plain function to Source.
type SourceFunc func(ctx context.Context) ([]models.BehaviorRecord, error)

func (f SourceFunc) Load(ctx context.Context) ([]models.BehaviorRecord, error) {
	return f(ctx)
}

// timestampLayouts are tried in order. Timestamps without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(value string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}
