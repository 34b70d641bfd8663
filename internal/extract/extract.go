package extract

import "time"

// Extract runs the regex extractor for docType over text. DocTypeUnknown
// (or "") classifies the text first. now anchors the age and expiration
// checks.
func Extract(text string, docType DocType, now time.Time) Result {
	if docType == "" || docType == DocTypeUnknown {
		docType = ClassifyText(text)
	}

	switch docType {
	case DocTypeID:
		return extractID(text, now)
	case DocTypeUnknown:
		return Result{
			DocType:    DocTypeUnknown,
			Fields:     map[string]Field{},
			Method:     MethodDeterministic,
			LineItems:  []LineItem{},
			Validation: newValidation(),
		}
	default:
		return extractInvoice(text, docType, now)
	}
}

// Validate recomputes the consistency checks of r, for results whose fields
// changed after extraction.
func Validate(r Result, now time.Time) Validation {
	if r.DocType == DocTypeID {
		return ValidateID(r, now)
	}
	v := newValidation()
	if r.Has(FieldDate) {
		if _, ok := ParseDate(r.Value(FieldDate)); !ok {
			v.warn("Unparseable date")
		}
	}
	return v
}
