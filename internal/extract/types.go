// Package extract turns recognized page text into typed document fields.
//
// Extract is deterministic: the same text, document type and clock always
// produce the same Result. Every field carries its own confidence and the
// source that produced it, so results from the regex extractor and the
// vision model can be merged field by field.
package extract

import (
	"fmt"
	"strings"
)

// DocType is the closed set of document kinds.
type DocType string

const (
	DocTypeID            DocType = "id"
	DocTypeInvoice       DocType = "invoice"
	DocTypeReceipt       DocType = "receipt"
	DocTypeShiftReport   DocType = "shift_report"
	DocTypeLotteryReport DocType = "lottery_report"
	DocTypeUnknown       DocType = "unknown"
)

var docTypeAliases = map[string]DocType{
	"id":              DocTypeID,
	"identity":        DocTypeID,
	"driver license":  DocTypeID,
	"drivers license": DocTypeID,
	"invoice":         DocTypeInvoice,
	"bill":            DocTypeInvoice,
	"receipt":         DocTypeReceipt,
	"shift_report":    DocTypeShiftReport,
	"shift report":    DocTypeShiftReport,
	"night audit":     DocTypeShiftReport,
	"lottery_report":  DocTypeLotteryReport,
	"lottery report":  DocTypeLotteryReport,
	"unknown":         DocTypeUnknown,
	"other":           DocTypeUnknown,
	"":                DocTypeUnknown,
}

// ParseDocType accepts the canonical names and the labels the vision model
// uses ("Shift Report", "Invoice", ...).
func ParseDocType(s string) (DocType, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.ReplaceAll(key, "'", "")
	if t, ok := docTypeAliases[key]; ok {
		return t, nil
	}
	return DocTypeUnknown, fmt.Errorf("unknown document type %q", s)
}

// IsReport reports whether t is a periodic report grouped by date and vendor.
func (t DocType) IsReport() bool {
	return t == DocTypeShiftReport || t == DocTypeLotteryReport
}

// Source identifies the extractor that produced a field.
type Source string

const (
	SourceDeterministic Source = "deterministic"
	SourceVision        Source = "vision"
)

// Method describes how a whole result was produced.
type Method string

const (
	MethodDeterministic Method = "deterministic"
	MethodVision        Method = "vision"
	MethodHybrid        Method = "hybrid"
)

// Field names shared by the extractors, the merger and the vision parser.
const (
	FieldLicenseNumber = "license_number"
	FieldDOB           = "dob"
	FieldExpiration    = "expiration_date"
	FieldIssueDate     = "issue_date"
	FieldSex           = "sex"
	FieldHeight        = "height"
	FieldName          = "name"
	FieldAddress       = "address"

	FieldTotal         = "total"
	FieldDate          = "date"
	FieldInvoiceNumber = "invoice_number"
	FieldVendor        = "vendor"
)

// Field is one extracted value.
type Field struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	Source     Source  `json:"source"`
}

// LineItem is one invoice or receipt line.
type LineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Total       float64 `json:"total"`
	UOM         string  `json:"unit_of_measure,omitempty"`
	PackSize    string  `json:"pack_size,omitempty"`
	SKU         string  `json:"sku,omitempty"`
	UPC         string  `json:"upc,omitempty"`
	Brand       string  `json:"brand,omitempty"`
}

// Validation holds the consistency checks of a result.
type Validation struct {
	// Valid is false when the fields contradict each other. An expired
	// document is still structurally valid; see IsExpired.
	Valid     bool     `json:"valid"`
	Errors    []string `json:"errors"`
	Warnings  []string `json:"warnings"`
	Age       *int     `json:"age,omitempty"`
	IsExpired bool     `json:"is_expired"`
}

func newValidation() Validation {
	return Validation{Valid: true, Errors: []string{}, Warnings: []string{}}
}

func (v *Validation) fail(msg string) {
	v.Valid = false
	v.Errors = append(v.Errors, msg)
}

func (v *Validation) warn(msg string) {
	v.Warnings = append(v.Warnings, msg)
}

// Result is the extraction outcome for one page or one merged document.
// Results are treated as immutable; use Clone before modifying one.
type Result struct {
	DocType    DocType          `json:"doc_type"`
	Fields     map[string]Field `json:"fields"`
	Confidence float64          `json:"confidence"`
	Method     Method           `json:"method"`
	Degraded   bool             `json:"degraded"`
	Validation Validation       `json:"validation"`
	LineItems  []LineItem       `json:"line_items"`

	// Sequence is the page's submission position within a document.
	Sequence   int    `json:"sequence"`
	SourceFile string `json:"source_file,omitempty"`

	// Set on results produced by the multi-page merger.
	IsMerged          bool     `json:"is_merged,omitempty"`
	MergedPageCount   int      `json:"merged_page_count,omitempty"`
	OriginalFilenames []string `json:"original_filenames,omitempty"`
}

// Value returns the named field's value, or "".
func (r Result) Value(name string) string {
	return r.Fields[name].Value
}

// Has reports whether the named field has a non-empty value.
func (r Result) Has(name string) bool {
	return strings.TrimSpace(r.Fields[name].Value) != ""
}

// Clone returns a deep copy of r.
func (r Result) Clone() Result {
	out := r
	out.Fields = make(map[string]Field, len(r.Fields))
	for k, v := range r.Fields {
		out.Fields[k] = v
	}
	out.LineItems = append([]LineItem(nil), r.LineItems...)
	out.OriginalFilenames = append([]string(nil), r.OriginalFilenames...)
	out.Validation.Errors = append([]string{}, r.Validation.Errors...)
	out.Validation.Warnings = append([]string{}, r.Validation.Warnings...)
	if r.Validation.Age != nil {
		age := *r.Validation.Age
		out.Validation.Age = &age
	}
	return out
}

var mandatory = map[DocType][]string{
	DocTypeID:            {FieldLicenseNumber, FieldDOB},
	DocTypeInvoice:       {FieldInvoiceNumber, FieldTotal},
	DocTypeReceipt:       {FieldTotal},
	DocTypeShiftReport:   {FieldTotal, FieldDate},
	DocTypeLotteryReport: {FieldDate},
}

// Mandatory returns the fields a result of type t needs before it can skip
// the vision extractor.
func Mandatory(t DocType) []string {
	return append([]string(nil), mandatory[t]...)
}

// MissingMandatory lists the mandatory fields r lacks, in declaration order.
func (r Result) MissingMandatory() []string {
	var missing []string
	for _, name := range mandatory[r.DocType] {
		if !r.Has(name) {
			missing = append(missing, name)
		}
	}
	return missing
}
