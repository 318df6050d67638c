package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/temcen/affinity/internal/validation"
	"github.com/temcen/affinity/pkg/models"
)

// Format is the layout of a behavior file.
type Format string

const (
	FormatAuto  Format = ""
	FormatJSON  Format = "json"  // a single JSON array of records
	FormatJSONL Format = "jsonl" // one JSON record per line
)

const maxLineBytes = 1 << 20

// rawRecord is the on-disk shape of a behavior record. score is accepted as an alias of weight.
type rawRecord struct {
	UserID       string   `json:"user_id"`
	ItemID       string   `json:"item_id"`
	BehaviorType string   `json:"behavior_type"`
	Timestamp    string   `json:"timestamp"`
	Weight       *float64 `json:"weight"`
	Score        *float64 `json:"score"`
}

func (r rawRecord) toRecord() (models.BehaviorRecord, error) {
	ts, err := parseTimestamp(r.Timestamp)
	if err != nil {
		return models.BehaviorRecord{}, err
	}

	weight := r.Weight
	if weight == nil {
		weight = r.Score
	}

	return models.BehaviorRecord{
		UserID:       r.UserID,
		ItemID:       r.ItemID,
		BehaviorType: models.BehaviorType(r.BehaviorType),
		Timestamp:    ts,
		Weight:       weight,
	}, nil
}

// FileSource reads behavior records from a JSON or JSON-lines file.
type FileSource struct {
	path      string
	format    Format
	validator *validation.SchemaValidator
	logger    *logrus.Logger
}

func NewFileSource(path string, format Format, validator *validation.SchemaValidator, logger *logrus.Logger) *FileSource {
	return &FileSource{
		path:      path,
		format:    format,
		validator: validator,
		logger:    logger,
	}
}

func (s *FileSource) Load(ctx context.Context) ([]models.BehaviorRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open behavior file: %w", err)
	}
	defer f.Close()

	format := s.format
	if format == FormatAuto {
		format = formatFromPath(s.path)
	}

	records, err := ReadRecords(ctx, f, format, s.validator)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	s.logger.WithFields(logrus.Fields{
		"path":    s.path,
		"format":  format,
		"records": len(records),
	}).Info("Behavior records loaded from file")

	return records, nil
}

func formatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return FormatJSONL
	case ".json":
		return FormatJSON
	default:
		return FormatAuto
	}
}

// ReadRecords decodes and validates every record in r. FormatAuto picks JSON when the first
// non-space byte opens an array and JSON lines otherwise. Any invalid record fails the whole
// read with models.ErrDataIntegrity.
func ReadRecords(ctx context.Context, r io.Reader, format Format, validator *validation.SchemaValidator) ([]models.BehaviorRecord, error) {
	br := bufio.NewReader(r)

	if format == FormatAuto {
		format = sniffFormat(br)
	}

	var raws []json.RawMessage
	var positions []string

	switch format {
	case FormatJSON:
		if err := json.NewDecoder(br).Decode(&raws); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, nil
			}
			return nil, fmt.Errorf("%w: malformed JSON array: %v", models.ErrDataIntegrity, err)
		}
		positions = make([]string, len(raws))
		for i := range raws {
			positions[i] = fmt.Sprintf("record %d", i)
		}
	case FormatJSONL:
		scanner := bufio.NewScanner(br)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		line := 0
		for scanner.Scan() {
			line++
			text := bytes.TrimSpace(scanner.Bytes())
			if len(text) == 0 {
				continue
			}
			raws = append(raws, append(json.RawMessage(nil), text...))
			positions = append(positions, fmt.Sprintf("line %d", line))
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to scan JSON lines: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported behavior file format %q", format)
	}

	records := make([]models.BehaviorRecord, 0, len(raws))
	for i, raw := range raws {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if validator != nil {
			if err := validator.ValidateBehaviorRecord(raw).Err(); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", models.ErrDataIntegrity, positions[i], err)
			}
		}

		var rr rawRecord
		if err := json.Unmarshal(raw, &rr); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", models.ErrDataIntegrity, positions[i], err)
		}
		record, err := rr.toRecord()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", models.ErrDataIntegrity, positions[i], err)
		}
		records = append(records, record)
	}

	return records, nil
}

func sniffFormat(br *bufio.Reader) Format {
	for {
		b, err := br.Peek(1)
		if err != nil {
			return FormatJSONL
		}
		switch b[0] {
		case ' ', '\t', '\r', '\n':
			_, _ = br.ReadByte()
		case '[':
			return FormatJSON
		default:
			return FormatJSONL
		}
	}
}
