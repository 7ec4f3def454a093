package extractor

import (
	"fmt"

	"scenarioflow/internal/domain"
)

// MissingMarkersError is returned when the cleaned text has no marker pair.
// Snippet holds the leading part of that text for diagnosis.
type MissingMarkersError struct {
	StartMarker string
	EndMarker   string
	Snippet     string
}

func (e *MissingMarkersError) Error() string {
	return fmt.Sprintf("%s...%s markers not found in response; text begins: %s", e.StartMarker, e.EndMarker, e.Snippet)
}

func (e *MissingMarkersError) Unwrap() error {
	return domain.ErrMissingMarkers
}

// MalformedJSONError is returned when the marked block does not decode,
// even after control characters are stripped.
type MalformedJSONError struct {
	// FirstErr is the error from the initial decode attempt.
	FirstErr error
	Err      error
}

func (e *MalformedJSONError) Error() string {
	return fmt.Sprintf("decoding marked json block: %v", e.Err)
}

func (e *MalformedJSONError) Unwrap() []error {
	return []error{domain.ErrMalformedJSON, e.Err}
}

// SchemaViolationError reports the first failed payload check.
type SchemaViolationError struct {
	Field    string
	Reason   string
	Expected int
	Actual   int
}

func (e *SchemaViolationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid payload: %s", e.Reason)
	}
	return fmt.Sprintf("invalid payload field %q: %s", e.Field, e.Reason)
}

func (e *SchemaViolationError) Unwrap() error {
	return domain.ErrSchemaViolation
}

func countMismatch(field string, expected, actual int) *SchemaViolationError {
	return &SchemaViolationError{
		Field:    field,
		Reason:   fmt.Sprintf("expected exactly %d entries, got %d; raise the generation token limit or tighten the prompt", expected, actual),
		Expected: expected,
		Actual:   actual,
	}
}
