// Package rows normalizes raw cell values and validates each answer
// against the matched template schema.
package rows

import (
	"math"
	"strconv"
	"strings"

	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/table"
)

// NormalizeValue canonicalizes a raw cell to its on-disk string form:
// missing/NA/blank becomes the missing token, boolean literals are
// lowercased, integer-valued numerics lose their trailing ".0", other
// numerics keep their shortest decimal form, everything else is the
// trimmed string.
func NormalizeValue(v string) string {
	trimmed := strings.TrimSpace(v)
	if table.IsMissing(trimmed) {
		return table.MissingToken
	}

	switch strings.ToLower(trimmed) {
	case "true":
		return "true"
	case "false":
		return "false"
	}

	if f, err := strconv.ParseFloat(trimmed, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		if f == math.Trunc(f) && math.Abs(f) < 1e15 {
			return strconv.FormatInt(int64(f), 10)
		}
		return strconv.FormatFloat(f, 'f', -1, 64)
	}

	return trimmed
}

// parseNumeric parses a normalized cell as a number
func parseNumeric(v string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
