package extractor_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"scenarioflow/internal/config"
	"scenarioflow/internal/domain"
	"scenarioflow/internal/extractor"
)

// --- helpers ---

func scenarioPayload(scenarios, citations int) map[string]interface{} {
	list := make([]interface{}, 0, scenarios)
	for i := 0; i < scenarios; i++ {
		list = append(list, map[string]interface{}{
			"title":       fmt.Sprintf("Scenario %d", i+1),
			"probability": "medium",
		})
	}
	sources := make([]interface{}, 0, citations)
	for i := 0; i < citations; i++ {
		sources = append(sources, map[string]interface{}{
			"url": fmt.Sprintf("https://example.com/source/%d", i+1),
		})
	}
	return map[string]interface{}{
		"scenarios": list,
		"sources":   sources,
		"summary":   "quarterly outlook",
	}
}

func mustJSON(t *testing.T, v interface{}) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

// decoded returns v as encoding/json would hand it back.
func decoded(t *testing.T, v interface{}) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(mustJSON(t, v)), &out))
	return out
}

func wrapped(body string) string {
	return "```json\nHere is the analysis.\n<<JSON_START>>\n" + body + "\n<<JSON_END>>\nLet me know if you need more.\n```"
}

type recordingDiagnostics struct {
	events []string
}

func (r *recordingDiagnostics) ShapeResolved(shape string, textLen int) {
	r.events = append(r.events, "shape:"+shape)
}

func (r *recordingDiagnostics) ControlCharsStripped(removed int) {
	r.events = append(r.events, fmt.Sprintf("stripped:%d", removed))
}

func (r *recordingDiagnostics) Accepted(scenarios, citations int) {
	r.events = append(r.events, fmt.Sprintf("accepted:%d:%d", scenarios, citations))
}

func (r *recordingDiagnostics) Rejected(err error) {
	r.events = append(r.events, "rejected")
}

// --- round trip ---

func TestExtract_RoundTrip(t *testing.T) {
	payload := scenarioPayload(12, 3)
	ex := extractor.New(nil, nil)

	result, err := ex.Extract(wrapped(mustJSON(t, payload)))

	require.NoError(t, err)
	assert.Equal(t, decoded(t, payload), map[string]interface{}(result.Payload))
	assert.Equal(t, domain.ShapeString, result.Shape)
	assert.Equal(t, 12, result.Scenarios)
	assert.Equal(t, 3, result.Citations)
}

func TestExtract_AllShapesYieldSamePayload(t *testing.T) {
	text := wrapped(mustJSON(t, scenarioPayload(12, 1)))
	want := decoded(t, scenarioPayload(12, 1))

	tests := []struct {
		shape string
		raw   interface{}
	}{
		{domain.ShapeString, text},
		{domain.ShapeContentArray, map[string]interface{}{
			"content": []interface{}{map[string]interface{}{"type": "text", "text": text}},
		}},
		{domain.ShapeResponseContentArray, map[string]interface{}{
			"response": map[string]interface{}{
				"content": []interface{}{map[string]interface{}{"text": text}},
			},
		}},
		{domain.ShapeMessagesContentArray, map[string]interface{}{
			"messages": []interface{}{map[string]interface{}{
				"content": []interface{}{map[string]interface{}{"text": text}},
			}},
		}},
		{domain.ShapeMessageObject, map[string]interface{}{
			"message": map[string]interface{}{
				"type":    "message",
				"content": []interface{}{map[string]interface{}{"type": "text", "text": text}},
			},
		}},
		{domain.ShapeChoicesMessage, map[string]interface{}{
			"choices": []interface{}{map[string]interface{}{
				"message": map[string]interface{}{"role": "assistant", "content": text},
			}},
		}},
		{domain.ShapeDataMessage, map[string]interface{}{
			"data": []interface{}{map[string]interface{}{
				"message": map[string]interface{}{"content": text},
			}},
		}},
		{domain.ShapeCandidatesParts, map[string]interface{}{
			"candidates": []interface{}{map[string]interface{}{
				"content": map[string]interface{}{
					"parts": []interface{}{map[string]interface{}{"text": text}},
				},
			}},
		}},
	}

	ex := extractor.New(nil, nil)
	for _, tt := range tests {
		t.Run(tt.shape, func(t *testing.T) {
			gotText, gotShape := extractor.ResolveText(tt.raw)
			assert.Equal(t, text, gotText)
			assert.Equal(t, tt.shape, gotShape)

			result, err := ex.Extract(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, want, map[string]interface{}(result.Payload))
			assert.Equal(t, tt.shape, result.Shape)
		})
	}
}

// --- scenario count boundary ---

func TestExtract_ScenarioCountBoundary(t *testing.T) {
	tests := []struct {
		count   int
		wantErr bool
	}{
		{11, true},
		{12, false},
		{13, true},
		{0, true},
	}

	ex := extractor.New(nil, nil)
	for _, tt := range tests {
		t.Run(fmt.Sprintf("count_%d", tt.count), func(t *testing.T) {
			result, err := ex.Extract(wrapped(mustJSON(t, scenarioPayload(tt.count, 0))))

			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, 0, result.Citations)
				return
			}
			assert.Nil(t, result)
			assert.ErrorIs(t, err, domain.ErrSchemaViolation)

			var sv *extractor.SchemaViolationError
			require.True(t, errors.As(err, &sv))
			assert.Equal(t, "scenarios", sv.Field)
			assert.Equal(t, 12, sv.Expected)
			assert.Equal(t, tt.count, sv.Actual)
			assert.Contains(t, err.Error(), fmt.Sprintf("got %d", tt.count))
			assert.Contains(t, err.Error(), "token limit")
		})
	}
}

func TestExtract_SchemaViolations(t *testing.T) {
	twelve := scenarioPayload(12, 0)["scenarios"]

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing scenarios", `{"sources": []}`, "scenarios"},
		{"scenarios is an object", `{"scenarios": {"a": 1}, "sources": []}`, "scenarios"},
		{"scenarios is null", `{"scenarios": null, "sources": []}`, "scenarios"},
		{"missing sources", mustJSON(t, map[string]interface{}{"scenarios": twelve}), "sources"},
		{"sources is a string", mustJSON(t, map[string]interface{}{"scenarios": twelve, "sources": "none"}), "sources"},
		{"sources is null", mustJSON(t, map[string]interface{}{"scenarios": twelve, "sources": nil}), "sources"},
		{"top-level array", `[1, 2, 3]`, ""},
	}

	ex := extractor.New(nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ex.Extract(wrapped(tt.body))

			assert.Nil(t, result)
			assert.ErrorIs(t, err, domain.ErrSchemaViolation)
			var sv *extractor.SchemaViolationError
			require.True(t, errors.As(err, &sv))
			assert.Equal(t, tt.field, sv.Field)
		})
	}
}

// --- control characters ---

func TestExtract_ControlCharacterRecovery(t *testing.T) {
	clean := scenarioPayload(12, 1)
	clean["summary"] = "alphabeta"
	cleanJSON := mustJSON(t, clean)
	dirtyJSON := strings.Replace(cleanJSON, "alphabeta", "alpha\n\tbeta\x01", 1)

	var probe interface{}
	require.Error(t, json.Unmarshal([]byte(dirtyJSON), &probe), "dirty block must not decode as-is")

	diag := &recordingDiagnostics{}
	ex := extractor.New(nil, diag)

	result, err := ex.Extract(wrapped(dirtyJSON))

	require.NoError(t, err)
	assert.Equal(t, decoded(t, clean), map[string]interface{}(result.Payload))
	assert.Contains(t, diag.events, "stripped:3")
}

func TestExtract_MalformedJSON(t *testing.T) {
	diag := &recordingDiagnostics{}
	ex := extractor.New(nil, diag)

	result, err := ex.Extract(wrapped(`{"scenarios": [}`))

	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrMalformedJSON)
	assert.NotErrorIs(t, err, domain.ErrSchemaViolation)

	var mj *extractor.MalformedJSONError
	require.True(t, errors.As(err, &mj))
	assert.Error(t, mj.FirstErr)
	assert.Equal(t, "rejected", diag.events[len(diag.events)-1])
}

func TestExtract_MalformedWithoutControlCharsSkipsStripEvent(t *testing.T) {
	diag := &recordingDiagnostics{}
	ex := extractor.New(nil, diag)

	_, err := ex.Extract(wrapped(`{"scenarios": [], "sources": [],}`))

	assert.ErrorIs(t, err, domain.ErrMalformedJSON)
	assert.Equal(t, []string{"shape:" + domain.ShapeString, "rejected"}, diag.events)
}

// --- markers ---

func TestExtract_MissingMarkers(t *testing.T) {
	text := "The model answered without any markers: " + mustJSON(t, scenarioPayload(12, 0))
	ex := extractor.New(nil, nil)

	result, err := ex.Extract(text)

	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrMissingMarkers)
	assert.Contains(t, err.Error(), "The model answered without any markers")

	var mm *extractor.MissingMarkersError
	require.True(t, errors.As(err, &mm))
	assert.Len(t, mm.Snippet, 300)
	assert.True(t, strings.HasPrefix(text, mm.Snippet))
}

func TestExtract_MissingMarkersKeepsLiteralPrefix(t *testing.T) {
	tests := []struct {
		name string
		raw  interface{}
		text string
	}{
		{"multi-line text", "line one\nline two with \"quotes\"", "line one\nline two with \"quotes\""},
		{"serialized fallback", map[string]interface{}{"unexpected": "value"}, `{"unexpected":"value"}`},
	}

	ex := extractor.New(nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ex.Extract(tt.raw)

			require.ErrorIs(t, err, domain.ErrMissingMarkers)
			assert.True(t, strings.Contains(err.Error(), tt.text[:15]), "error %q lacks %q", err.Error(), tt.text[:15])
			assert.Contains(t, err.Error(), tt.text)
		})
	}
}

func TestExtract_MissingEndMarker(t *testing.T) {
	ex := extractor.New(nil, nil)

	_, err := ex.Extract("<<JSON_START>>{\"scenarios\": []}")

	assert.ErrorIs(t, err, domain.ErrMissingMarkers)
}

func TestExtract_ShortestMarkedSpan(t *testing.T) {
	first := mustJSON(t, scenarioPayload(12, 0))
	text := "<<JSON_START>>" + first + "<<JSON_END>> and later <<JSON_START>>{\"other\": true}<<JSON_END>>"
	ex := extractor.New(nil, nil)

	result, err := ex.Extract(text)

	require.NoError(t, err)
	assert.Equal(t, decoded(t, scenarioPayload(12, 0)), map[string]interface{}(result.Payload))
}

// --- fallback shape ---

func TestExtract_UnknownShapeFallsBackThenMissesMarkers(t *testing.T) {
	raw := map[string]interface{}{"output": map[string]interface{}{"unexpected": "layout"}}

	text, shape := extractor.ResolveText(raw)
	assert.Equal(t, domain.ShapeFallbackSerialized, shape)
	assert.Equal(t, `{"output":{"unexpected":"layout"}}`, text)

	diag := &recordingDiagnostics{}
	_, err := extractor.New(nil, diag).Extract(raw)

	assert.ErrorIs(t, err, domain.ErrMissingMarkers)
	assert.Contains(t, err.Error(), "unexpected")
	assert.Equal(t, []string{"shape:" + domain.ShapeFallbackSerialized, "rejected"}, diag.events)
}

// --- configuration ---

func TestExtract_CustomContract(t *testing.T) {
	cfg := &config.ExtractorConfig{
		ExpectedScenarios: 2,
		ScenariosField:    "items",
		CitationsField:    "refs",
		StartMarker:       "[[BEGIN]]",
		EndMarker:         "[[END]]",
	}
	ex := extractor.New(cfg, nil)
	assert.Equal(t, 2, ex.ExpectedScenarios())

	result, err := ex.Extract(`[[BEGIN]]{"items": [{}, {}], "refs": ["a"]}[[END]]`)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Scenarios)
	assert.Equal(t, 1, result.Citations)

	_, err = ex.Extract(wrapped(mustJSON(t, scenarioPayload(12, 0))))
	assert.ErrorIs(t, err, domain.ErrMissingMarkers)
}

// --- diagnostics ---

func TestExtract_DiagnosticsOnSuccess(t *testing.T) {
	diag := &recordingDiagnostics{}
	raw := map[string]interface{}{
		"choices": []interface{}{map[string]interface{}{
			"message": map[string]interface{}{"content": wrapped(mustJSON(t, scenarioPayload(12, 4)))},
		}},
	}

	_, err := extractor.New(nil, diag).Extract(raw)

	require.NoError(t, err)
	assert.Equal(t, []string{"shape:" + domain.ShapeChoicesMessage, "accepted:12:4"}, diag.events)
}

func TestZapDiagnostics_EmitsStructuredEvents(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	ex := extractor.New(nil, extractor.NewZapDiagnostics(zap.New(core)))

	_, err := ex.Extract(wrapped(mustJSON(t, scenarioPayload(12, 2))))
	require.NoError(t, err)

	accepted := logs.FilterMessage("payload accepted").All()
	require.Len(t, accepted, 1)
	assert.Equal(t, int64(12), accepted[0].ContextMap()["scenarios"])
	assert.Equal(t, int64(2), accepted[0].ContextMap()["citations"])

	_, err = ex.Extract("no markers")
	require.Error(t, err)
	assert.Equal(t, 1, logs.FilterMessage("payload rejected").Len())
}
