package match

import (
	"strings"
	"time"
)

// dobLayouts are tried in order. Month-first wins over day-first for
// ambiguous dates such as 03/04/1990.
var dobLayouts = []string{
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

// ParseDOB parses a date of birth in any accepted layout.
func ParseDOB(s string) (time.Time, bool) {
	s = strings.Join(strings.Fields(s), " ")
	for _, layout := range dobLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CompareDOB requires the same calendar date. A mismatch is a hard fail.
func CompareDOB(a, b string) FieldResult {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return missing("one or both dates of birth are missing")
	}
	ta, okA := ParseDOB(a)
	tb, okB := ParseDOB(b)
	if !okA || !okB {
		return FieldResult{
			Method:  MethodParseError,
			Details: map[string]interface{}{"reason": "failed to parse one or both dates", "a": a, "b": b},
		}
	}

	res := FieldResult{
		Method: MethodExact,
		Details: map[string]interface{}{
			"a": ta.Format("2006-01-02"),
			"b": tb.Format("2006-01-02"),
		},
	}
	if ta.Equal(tb) {
		res.Score, res.Match = 100, true
	} else {
		res.HardFail = true
	}
	return res
}
