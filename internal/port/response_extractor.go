package port

import "scenarioflow/internal/domain"

// ResponseExtractor locates, decodes and validates the JSON payload embedded
// in a raw model response.
type ResponseExtractor interface {
	Extract(raw interface{}) (*domain.Extraction, error)
}
