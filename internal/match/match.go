// Package match compares the identity fields of two records, typically a
// scanned ID against a contract party, and recommends whether they describe
// the same person.
package match

import (
	"math"

	"github.com/sam02425/Document-Portal/internal/extract"
)

// Field is a comparable identity field.
type Field string

const (
	FieldName    Field = "name"
	FieldAddress Field = "address"
	FieldDOB     Field = "dob"
)

// DefaultFields are compared when none are requested.
var DefaultFields = []Field{FieldName, FieldAddress, FieldDOB}

var weights = map[Field]float64{
	FieldName:    0.4,
	FieldAddress: 0.4,
	FieldDOB:     0.2,
}

// ParseField validates a field name.
func ParseField(s string) (Field, bool) {
	f := Field(s)
	_, ok := weights[f]
	return f, ok
}

// Comparison methods reported per field.
const (
	MethodExact       = "exact"
	MethodComponents  = "components"
	MethodFuzzy       = "fuzzy"
	MethodMissingData = "missing_data"
	MethodParseError  = "parse_error"
)

// Recommendation is the overall verdict.
type Recommendation string

const (
	Verified       Recommendation = "verified"
	ReviewRequired Recommendation = "review_required"
	Rejected       Recommendation = "rejected"
)

const (
	verifiedMin = 85.0
	rejectedMax = 60.0
	matchMin    = 70.0
)

// Record holds the identity fields of one side.
type Record struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	DOB     string `json:"dob"`
}

// RecordFromResult reads the identity fields of an extraction result.
func RecordFromResult(r extract.Result) Record {
	return Record{
		Name:    r.Value(extract.FieldName),
		Address: r.Value(extract.FieldAddress),
		DOB:     r.Value(extract.FieldDOB),
	}
}

// FieldResult is the comparison of one field.
type FieldResult struct {
	Score float64 `json:"score"`
	Match bool    `json:"match"`

	// HardFail marks a mismatch on an exact-match field; it rejects the
	// whole comparison regardless of score.
	HardFail bool                   `json:"hard_fail"`
	Method   string                 `json:"method"`
	Details  map[string]interface{} `json:"details,omitempty"`
}

func missing(reason string) FieldResult {
	return FieldResult{Method: MethodMissingData, Details: map[string]interface{}{"reason": reason}}
}

// Report is the outcome of Compare.
type Report struct {
	Fields  map[Field]FieldResult `json:"field_results"`
	Checked []Field               `json:"verification_fields"`
	Overall float64               `json:"overall_score"`

	// Match requires the name and, when checked, the date of birth to
	// match with an overall score of at least 70.
	Match          bool           `json:"overall_match"`
	Recommendation Recommendation `json:"recommendation"`
}

// Compare checks fields of a against b. Unknown fields are ignored and an
// empty list checks DefaultFields. Strict raises the name thresholds.
func Compare(a, b Record, fields []Field, strict bool) Report {
	if len(fields) == 0 {
		fields = DefaultFields
	}

	rep := Report{Fields: make(map[Field]FieldResult)}
	for _, f := range fields {
		if _, ok := rep.Fields[f]; ok {
			continue
		}
		var res FieldResult
		switch f {
		case FieldName:
			res = CompareNames(a.Name, b.Name, strict)
		case FieldAddress:
			res = CompareAddresses(a.Address, b.Address)
		case FieldDOB:
			res = CompareDOB(a.DOB, b.DOB)
		default:
			continue
		}
		rep.Fields[f] = res
		rep.Checked = append(rep.Checked, f)
	}

	var total, weight float64
	allMatch, hardFail := true, false
	for _, f := range rep.Checked {
		res := rep.Fields[f]
		total += res.Score * weights[f]
		weight += weights[f]
		allMatch = allMatch && res.Match
		hardFail = hardFail || res.HardFail
	}
	if weight > 0 {
		rep.Overall = round2(total / weight)
	}

	critical := rep.Fields[FieldName].Match
	if dob, ok := rep.Fields[FieldDOB]; ok {
		critical = critical && dob.Match
	}
	rep.Match = critical && !hardFail && rep.Overall >= matchMin

	switch {
	case hardFail || rep.Overall < rejectedMax || len(rep.Checked) == 0:
		rep.Recommendation = Rejected
	case rep.Overall >= verifiedMin && allMatch:
		rep.Recommendation = Verified
	default:
		rep.Recommendation = ReviewRequired
	}
	return rep
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
