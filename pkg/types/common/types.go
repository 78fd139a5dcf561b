// Package common defines shared value types used across the
// CyberTrace-Intelligence platform: identifiers, priority levels, similarity
// thresholds, and the wire-level match pair shape.  No behavior beyond
// validation and serialization lives here.
package common

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ID is a string alias for UUID v4.
type ID string

// NewID generates a fresh random ID.
func NewID() ID {
	return ID(uuid.NewString())
}

// Metadata is an open-ended key-value bag.
type Metadata map[string]interface{}

// Priority is the ordinal priority label assigned to a classified incident.
type Priority string

const (
	PriorityVeryLow  Priority = "Very Low"
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityVeryHigh Priority = "Very High"
)

// PriorityForScore maps a numeric score to its label.  Scores are clamped to
// [1,5] and rounded half-up, so the label is always monotonic in the score.
func PriorityForScore(score float64) Priority {
	s := int(score + 0.5)
	if s < 1 {
		s = 1
	}
	if s > 5 {
		s = 5
	}
	switch s {
	case 1:
		return PriorityVeryLow
	case 2:
		return PriorityLow
	case 3:
		return PriorityMedium
	case 4:
		return PriorityHigh
	default:
		return PriorityVeryHigh
	}
}

// Thresholds carries the two similarity cutoffs used by the matcher.
// Zero values mean "use the configured default".
type Thresholds struct {
	Cross  float64 `json:"cross_threshold"`
	Within float64 `json:"within_threshold"`
}

// Validate rejects thresholds outside [0,1].
func (t Thresholds) Validate() error {
	if t.Cross < 0 || t.Cross > 1 {
		return fmt.Errorf("cross_threshold %v outside [0,1]", t.Cross)
	}
	if t.Within < 0 || t.Within > 1 {
		return fmt.Errorf("within_threshold %v outside [0,1]", t.Within)
	}
	return nil
}

// MatchPair is the wire shape of one similarity match: two record ids and
// the aggregate score that linked them.  It serializes as a three-element
// JSON array [id_a, id_b, score] to match the external task contract.
type MatchPair struct {
	IDA   string
	IDB   string
	Score float64
}

// MarshalJSON encodes the pair as [id_a, id_b, score].
func (p MatchPair) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]interface{}{p.IDA, p.IDB, p.Score})
}

// UnmarshalJSON decodes the [id_a, id_b, score] array form.
func (p *MatchPair) UnmarshalJSON(data []byte) error {
	var arr [3]json.RawMessage
	if err := json.Unmarshal(data, &arr); err != nil {
		return err
	}
	if err := json.Unmarshal(arr[0], &p.IDA); err != nil {
		return fmt.Errorf("match pair id_a: %w", err)
	}
	if err := json.Unmarshal(arr[1], &p.IDB); err != nil {
		return fmt.Errorf("match pair id_b: %w", err)
	}
	if err := json.Unmarshal(arr[2], &p.Score); err != nil {
		return fmt.Errorf("match pair score: %w", err)
	}
	return nil
}

// Pagination defines parameters for paginated requests.
type Pagination struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total,omitempty"`
}

// ErrorDetail provides structured error information for API responses.
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Timestamp is a time.Time alias serialized as RFC 3339.
type Timestamp time.Time

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t).Format(time.RFC3339))
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	*t = Timestamp(parsed)
	return nil
}
