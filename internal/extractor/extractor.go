// Package extractor turns a raw model response into a validated scenario
// payload. The response text is located by shape, unwrapped from an optional
// code fence, cut out from between sentinel markers, decoded and checked
// against the expected scenario/citation contract.
package extractor

import (
	"encoding/json"
	"regexp"
	"strings"

	"scenarioflow/internal/config"
	"scenarioflow/internal/domain"
)

const (
	DefaultExpectedScenarios = 12
	DefaultScenariosField    = "scenarios"
	DefaultCitationsField    = "sources"
	DefaultStartMarker       = "<<JSON_START>>"
	DefaultEndMarker         = "<<JSON_END>>"
	DefaultSnippetLength     = 300
)

// Extractor implements port.ResponseExtractor. It holds no mutable state and
// is safe for concurrent use.
type Extractor struct {
	expected       int
	scenariosField string
	citationsField string
	startMarker    string
	endMarker      string
	snippetLength  int
	markers        *regexp.Regexp
	diag           Diagnostics
}

// New creates an Extractor from config. Zero values fall back to the
// defaults above; a nil diag discards events.
func New(cfg *config.ExtractorConfig, diag Diagnostics) *Extractor {
	e := &Extractor{
		expected:       DefaultExpectedScenarios,
		scenariosField: DefaultScenariosField,
		citationsField: DefaultCitationsField,
		startMarker:    DefaultStartMarker,
		endMarker:      DefaultEndMarker,
		snippetLength:  DefaultSnippetLength,
		diag:           diag,
	}
	if cfg != nil {
		if cfg.ExpectedScenarios > 0 {
			e.expected = cfg.ExpectedScenarios
		}
		if cfg.ScenariosField != "" {
			e.scenariosField = cfg.ScenariosField
		}
		if cfg.CitationsField != "" {
			e.citationsField = cfg.CitationsField
		}
		if cfg.StartMarker != "" {
			e.startMarker = cfg.StartMarker
		}
		if cfg.EndMarker != "" {
			e.endMarker = cfg.EndMarker
		}
		if cfg.SnippetLength > 0 {
			e.snippetLength = cfg.SnippetLength
		}
	}
	if e.diag == nil {
		e.diag = NopDiagnostics{}
	}
	e.markers = markerPattern(e.startMarker, e.endMarker)
	return e
}

// ExpectedScenarios returns the exact scenario count a payload must carry.
func (e *Extractor) ExpectedScenarios() int {
	return e.expected
}

// Extract resolves, decodes and validates raw. Any failure is returned as
// *MissingMarkersError, *MalformedJSONError or *SchemaViolationError; no
// partial payload is ever returned.
func (e *Extractor) Extract(raw interface{}) (*domain.Extraction, error) {
	text, shape := ResolveText(raw)
	e.diag.ShapeResolved(shape, len(text))

	payload, err := e.decode(StripCodeFence(text))
	if err != nil {
		e.diag.Rejected(err)
		return nil, err
	}

	scenarios, citations, err := e.validate(payload)
	if err != nil {
		e.diag.Rejected(err)
		return nil, err
	}

	e.diag.Accepted(scenarios, citations)
	return &domain.Extraction{
		Payload:   payload,
		Shape:     shape,
		Scenarios: scenarios,
		Citations: citations,
	}, nil
}

func (e *Extractor) decode(cleaned string) (domain.ParsedPayload, error) {
	m := e.markers.FindStringSubmatch(cleaned)
	if m == nil {
		return nil, &MissingMarkersError{
			StartMarker: e.startMarker,
			EndMarker:   e.endMarker,
			Snippet:     snippet(cleaned, e.snippetLength),
		}
	}
	block := strings.TrimSpace(m[1])

	var decoded interface{}
	firstErr := json.Unmarshal([]byte(block), &decoded)
	if firstErr != nil {
		stripped, removed := StripControlChars(block)
		if removed == 0 {
			return nil, &MalformedJSONError{FirstErr: firstErr, Err: firstErr}
		}
		e.diag.ControlCharsStripped(removed)
		decoded = nil
		if err := json.Unmarshal([]byte(stripped), &decoded); err != nil {
			return nil, &MalformedJSONError{FirstErr: firstErr, Err: err}
		}
	}

	obj, ok := decoded.(map[string]interface{})
	if !ok {
		return nil, &SchemaViolationError{Reason: "top-level value is not a JSON object"}
	}
	return domain.ParsedPayload(obj), nil
}

func (e *Extractor) validate(payload domain.ParsedPayload) (scenarios, citations int, err error) {
	list, ok := payload[e.scenariosField].([]interface{})
	if !ok {
		return 0, 0, &SchemaViolationError{Field: e.scenariosField, Reason: "missing or not an array"}
	}
	if len(list) != e.expected {
		return 0, 0, countMismatch(e.scenariosField, e.expected, len(list))
	}

	sources, ok := payload[e.citationsField].([]interface{})
	if !ok {
		return 0, 0, &SchemaViolationError{Field: e.citationsField, Reason: "missing or not an array"}
	}
	return len(list), len(sources), nil
}
