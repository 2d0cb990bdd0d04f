package normalize

import (
	"strconv"
	"strings"
)

// nullSentinels are cell values treated as absent.
var nullSentinels = map[string]bool{
	"NULL": true,
	"N/A":  true,
	"NA":   true,
	"NONE": true,
}

// Coerce converts a raw CSV/DBF cell to a typed value: nil for empty or null
// sentinels, int64 for plain integers, float64 for decimals (thousands commas
// stripped), otherwise the trimmed string. Strings of digits with a leading
// zero (ZIP and FIPS codes) are kept as strings.
func Coerce(s string) any {
	v := strings.TrimSpace(s)
	if v == "" || nullSentinels[strings.ToUpper(v)] {
		return nil
	}

	if allDigits(v) {
		if len(v) > 1 && v[0] == '0' {
			return v
		}
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}

	if f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64); err == nil {
		return f
	}

	return v
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
