package export

import (
	"fmt"
	"io"

	"scenarioflow/internal/domain"
)

// Format names accepted by Write.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// ContentType returns the MIME type for format.
func ContentType(format string) string {
	switch format {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/json"
	}
}

// Write renders the scenarios (and, for xlsx, the citations) of payload.
// CSV carries the scenarios table only.
func Write(w io.Writer, format string, payload domain.ParsedPayload, scenariosField, citationsField string) error {
	scenarios := FromPayload("Scenarios", payload, scenariosField)
	switch format {
	case FormatCSV:
		return WriteCSV(w, scenarios, true)
	case FormatXLSX:
		return WriteXLSX(w, scenarios, FromPayload("Sources", payload, citationsField))
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}
