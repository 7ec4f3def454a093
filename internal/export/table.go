package export

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"scenarioflow/internal/domain"
)

// valueColumn holds entries that are not JSON objects.
const valueColumn = "value"

// Table is a rectangular view of one array field of a payload.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// FromPayload flattens payload[field] into a table. Object entries
// contribute their keys as columns (sorted, after a leading "#" column);
// nested values are written as JSON. A missing or non-array field yields
// a table with only the header.
func FromPayload(name string, payload domain.ParsedPayload, field string) Table {
	entries, _ := payload[field].([]interface{})

	keys := map[string]bool{}
	for _, e := range entries {
		if obj, ok := e.(map[string]interface{}); ok {
			for k := range obj {
				keys[k] = true
			}
		} else {
			keys[valueColumn] = true
		}
	}
	cols := make([]string, 0, len(keys))
	for k := range keys {
		cols = append(cols, k)
	}
	sort.Strings(cols)

	t := Table{Name: name, Columns: append([]string{"#"}, cols...)}
	for i, e := range entries {
		row := make([]string, len(t.Columns))
		row[0] = strconv.Itoa(i + 1)
		obj, isObj := e.(map[string]interface{})
		for j, col := range cols {
			switch {
			case isObj:
				row[j+1] = formatCell(obj[col])
			case col == valueColumn:
				row[j+1] = formatCell(e)
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func formatCell(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return formatBool(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprintf("%v", x)
		}
		return string(b)
	}
}

func formatBool(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans a name for use in Content-Disposition.
// Replaces non-alphanumeric chars (except - _) with _, collapses consecutive
// underscores, and truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" {
		s = "scenarios"
	}
	return s
}

// BuildFilename returns {sanitized_name}_{YYYY-MM-DD}.{ext}.
func BuildFilename(name, ext string, at time.Time) string {
	return fmt.Sprintf("%s_%s.%s", SanitizeFilename(name), at.Format("2006-01-02"), ext)
}
