package engine

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/fastsearch/internal/client/api"
)

// DefaultFields are the columns shown for a user hit.
var DefaultFields = []string{"name", "email", "phone", "date_of_birth", "city", "country", "created_at"}

var dateFields = map[string]bool{
	"date_of_birth": true,
	"created_at":    true,
	"updated_at":    true,
	"deleted_at":    true,
}

// zeroUnix marks an unset timestamp.
const zeroUnix int64 = -62135596800

const (
	highlightOpen  = "<em>"
	highlightClose = "</em>"
)

// Render returns one display string per field. Highlighted values are
// preferred over raw ones; date fields are cut to the calendar date.
func Render(hit api.Hit, fields []string) []string {
	out := make([]string, len(fields))
	for i, name := range fields {
		v, ok := hit.Formatted[name]
		if !ok || v == nil {
			v = hit.Fields[name]
		}
		if dateFields[name] {
			out[i] = renderDate(v)
			continue
		}
		out[i] = renderValue(v)
	}
	return out
}

func renderValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	}
	return fmt.Sprint(v)
}

func renderDate(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case float64:
		return unixDate(int64(v))
	case int64:
		return unixDate(v)
	case int:
		return unixDate(int64(v))
	case string:
		plain := strings.NewReplacer(highlightOpen, "", highlightClose, "").Replace(v)
		if n, err := strconv.ParseInt(plain, 10, 64); err == nil {
			if v != plain {
				return highlightOpen + unixDate(n) + highlightClose
			}
			return unixDate(n)
		}
		return cutDate(v)
	}
	return renderValue(v)
}

func unixDate(sec int64) string {
	if sec == zeroUnix {
		return ""
	}
	return time.Unix(sec, 0).UTC().Format(time.DateOnly)
}

// cutDate drops the time of day from an RFC 3339 value, closing a highlight
// left open by the cut.
func cutDate(s string) string {
	i := strings.IndexByte(s, 'T')
	if i < 0 {
		return s
	}
	s = s[:i]
	if strings.Count(s, highlightOpen) > strings.Count(s, highlightClose) {
		s += highlightClose
	}
	return s
}
