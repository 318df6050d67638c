package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaValidator_BehaviorRecord(t *testing.T) {
	sv, err := NewSchemaValidator()
	require.NoError(t, err)
	assert.True(t, sv.SchemaExists(BehaviorRecordSchema))
	assert.True(t, sv.SchemaExists(RankingRequestSchema))

	tests := []struct {
		name   string
		doc    string
		valid  bool
		fields []string
	}{
		{
			name:  "minimal record",
			doc:   `{"user_id":"u1","item_id":"i1","behavior_type":"click","timestamp":"2024-01-15T10:30:00"}`,
			valid: true,
		},
		{
			name:  "record with score",
			doc:   `{"user_id":"u1","item_id":"i1","behavior_type":"order","timestamp":"2024-01-15T10:30:00Z","score":2.5}`,
			valid: true,
		},
		{
			name: "missing item",
			doc:  `{"user_id":"u1","behavior_type":"click","timestamp":"2024-01-15T10:30:00"}`,
		},
		{
			name:   "unknown behavior type",
			doc:    `{"user_id":"u1","item_id":"i1","behavior_type":"like","timestamp":"2024-01-15T10:30:00"}`,
			fields: []string{"behavior_type"},
		},
		{
			name:   "negative weight",
			doc:    `{"user_id":"u1","item_id":"i1","behavior_type":"view","timestamp":"2024-01-15T10:30:00","weight":-1}`,
			fields: []string{"weight"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := sv.ValidateBehaviorRecord(tt.doc)
			assert.Equal(t, tt.valid, result.Valid)
			if tt.valid {
				assert.NoError(t, result.Err())
				return
			}
			require.Error(t, result.Err())
			fieldErrors := result.FieldErrors()
			for _, f := range tt.fields {
				assert.Contains(t, fieldErrors, f)
			}
		})
	}
}

func TestSchemaValidator_RankingRequest(t *testing.T) {
	sv, err := NewSchemaValidator()
	require.NoError(t, err)

	assert.True(t, sv.ValidateRankingRequest(map[string]interface{}{
		"user_id":         "u1",
		"candidate_items": []string{"a", "b"},
	}).Valid)

	assert.False(t, sv.ValidateRankingRequest(map[string]interface{}{
		"user_id":         "u1",
		"candidate_items": []string{},
	}).Valid)

	malformed := sv.ValidateRankingRequest([]byte(`{"user_id":`))
	assert.False(t, malformed.Valid)
	assert.Equal(t, "MALFORMED_JSON", malformed.Errors[0].Code)
}

func TestSchemaValidator_UnknownSchema(t *testing.T) {
	sv, err := NewSchemaValidator()
	require.NoError(t, err)

	result := sv.validate("missing", `{}`)
	assert.False(t, result.Valid)
	assert.Equal(t, "SCHEMA_NOT_FOUND", result.Errors[0].Code)
}
