package domain

import "errors"

var (
	ErrMissingMarkers        = errors.New("json markers not found in response")
	ErrMalformedJSON         = errors.New("content between markers is not valid json")
	ErrSchemaViolation       = errors.New("payload does not match expected schema")
	ErrOutputTruncated       = errors.New("model output truncated at token limit")
	ErrProviderNotConfigured = errors.New("no completion provider configured")
	ErrEmptyProviderResponse = errors.New("empty response from completion provider")
	ErrProviderFailed        = errors.New("completion provider call failed")
	ErrInvalidRawResponse    = errors.New("raw response is not valid json")
	ErrEmptyPrompt           = errors.New("prompt is required")
	ErrArchiveDisabled       = errors.New("rejected-response archive is disabled")
)
