package unread

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// NormalizeID renders an item identifier in its canonical string form so that
// the same item reported as a number, a string, or a differently-cased UUID
// compares equal.
func NormalizeID(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return normalizeString(id)
	case ID:
		return normalizeString(string(id))
	case json.Number:
		return normalizeString(id.String())
	case uuid.UUID:
		return id.String()
	case int:
		return strconv.FormatInt(int64(id), 10)
	case int64:
		return strconv.FormatInt(id, 10)
	case uint:
		return strconv.FormatUint(uint64(id), 10)
	case uint64:
		return strconv.FormatUint(id, 10)
	case float64:
		return formatFloat(id)
	case fmt.Stringer:
		return normalizeString(id.String())
	default:
		return normalizeString(fmt.Sprint(id))
	}
}

func normalizeString(s string) string {
	s = strings.TrimSpace(s)
	if u, err := uuid.Parse(s); err == nil {
		return u.String()
	}
	// Integral floats ("12.0", "1.2e1") collapse to their integer form; plain
	// digit strings are kept as written.
	if strings.ContainsAny(s, ".eE") && isNumeric(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return formatFloat(f)
		}
	}
	return s
}

// isNumeric rejects strings ParseFloat accepts but that are not plain numbers
// ("inf", "NaN", hex floats).
func isNumeric(s string) bool {
	for _, r := range s {
		if (r < '0' || r > '9') && r != '-' && r != '+' && r != '.' && r != 'e' && r != 'E' {
			return false
		}
	}
	return true
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ID is an identifier decoded from either a JSON string or a JSON number.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(normalizeString(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("identifier must be a string or number: %w", err)
	}
	*id = ID(normalizeString(n.String()))
	return nil
}

func (id ID) String() string { return string(id) }
