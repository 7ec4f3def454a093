package domain

import "time"

// ParsedPayload is the validated JSON object extracted from a model response.
// It is passed through to the next pipeline stage unchanged.
type ParsedPayload map[string]interface{}

// Shape names identify which RawResponse variant supplied the text.
const (
	ShapeString               = "string"
	ShapeContentArray         = "content_array"
	ShapeResponseContentArray = "response_content_array"
	ShapeMessagesContentArray = "messages_content_array"
	ShapeMessageObject        = "message_object"
	ShapeChoicesMessage       = "choices_message"
	ShapeDataMessage          = "data_message"
	ShapeCandidatesParts      = "candidates_parts"
	ShapeFallbackSerialized   = "fallback_serialized"
)

// Extraction describes one successful extraction.
type Extraction struct {
	Payload   ParsedPayload `json:"payload"`
	Shape     string        `json:"shape"`
	Scenarios int           `json:"scenarios"`
	Citations int           `json:"citations"`
}

// ExtractionResult is what the service hands back to transports.
type ExtractionResult struct {
	RequestID   string        `json:"request_id"`
	Payload     ParsedPayload `json:"payload"`
	Shape       string        `json:"shape"`
	Scenarios   int           `json:"scenarios"`
	Citations   int           `json:"citations"`
	Provider    string        `json:"provider,omitempty"`
	Model       string        `json:"model,omitempty"`
	ExtractedAt time.Time     `json:"extracted_at"`
}

// RejectedResponse is the archived record of a raw response the extractor refused.
type RejectedResponse struct {
	ID         string      `json:"id"`
	RequestID  string      `json:"request_id,omitempty"`
	Reason     string      `json:"reason"`
	Raw        interface{} `json:"raw"`
	Provider   string      `json:"provider,omitempty"`
	Model      string      `json:"model,omitempty"`
	RejectedAt time.Time   `json:"rejected_at"`
}
