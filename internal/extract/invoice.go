package extract

import (
	"regexp"
	"strings"
	"time"
)

const (
	invoiceFieldPoints = 33
	totalFloor         = 60.0

	confVendorGuess = 50.0
	confISODate     = 70.0
)

const amount = `\$?\s*([0-9,]+[.,][0-9]{2})`

// Label order matters: the specific labels are tried before the bare TOTAL.
var totalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`TOTAL\s*SALES\s*[:.]?\s*` + amount),
	regexp.MustCompile(`INVOICE\s*TOTAL\s*[:.]?\s*` + amount),
	regexp.MustCompile(`AMOUNT\s*DUE\s*[:.]?\s*` + amount),
	regexp.MustCompile(`\bTOTAL\s*(AMOUNT|DUE)?\s*[:.]?\s*` + amount),
	regexp.MustCompile(`BALANCE\s*DUE\s*[:.]?\s*` + amount),
	regexp.MustCompile(`GRAND\s*TOTAL\s*[:.]?\s*` + amount),
}

var datePatterns = []struct {
	re   *regexp.Regexp
	conf float64
}{
	{regexp.MustCompile(`(INVOICE|BILL|DUE)\s*DATE\s*[:.]?\s*(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`), confLabeled},
	{regexp.MustCompile(`DATE\s*[:.]?\s*(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`), confLabeled},
	{regexp.MustCompile(`(\d{4}-\d{2}-\d{2})`), confISODate},
}

var invoiceNumberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(INVOICE|BILL)\s*(NO|NUMBER|#)?\s*[:.]?\s*([A-Za-z0-9\-]+)`),
	regexp.MustCompile(`\b(INV-[A-Z0-9][A-Z0-9\-]*)`),
	regexp.MustCompile(`\bINV\s*[:.#]?\s*([A-Za-z0-9\-]+)`),
}

func extractInvoice(text string, docType DocType, now time.Time) Result {
	upper := strings.ToUpper(text)
	fields := make(map[string]Field)
	found := 0

	for _, re := range totalPatterns {
		if m := re.FindStringSubmatch(upper); m != nil {
			fields[FieldTotal] = Field{Value: NormalizeAmount(m[len(m)-1]), Confidence: confLabeled, Source: SourceDeterministic}
			found++
			break
		}
	}

	for _, p := range datePatterns {
		if m := p.re.FindStringSubmatch(upper); m != nil {
			fields[FieldDate] = Field{Value: m[len(m)-1], Confidence: p.conf, Source: SourceDeterministic}
			found++
			break
		}
	}

	if num, ok := findInvoiceNumber(upper); ok {
		fields[FieldInvoiceNumber] = Field{Value: num, Confidence: confLabeled, Source: SourceDeterministic}
		found++
	}

	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			fields[FieldVendor] = Field{Value: line, Confidence: confVendorGuess, Source: SourceDeterministic}
			break
		}
	}

	conf := float64(found * invoiceFieldPoints)
	if conf > 100 {
		conf = 100
	}
	if _, ok := fields[FieldTotal]; ok && conf < totalFloor {
		conf = totalFloor
	}

	res := Result{
		DocType:    docType,
		Fields:     fields,
		Confidence: conf,
		Method:     MethodDeterministic,
		LineItems:  []LineItem{},
	}
	res.Validation = Validate(res, now)
	return res
}

// findInvoiceNumber returns the first labeled token that contains a digit.
// Labels followed by words ("INVOICE DATE") are skipped.
func findInvoiceNumber(upper string) (string, bool) {
	for _, re := range invoiceNumberPatterns {
		for _, m := range re.FindAllStringSubmatch(upper, -1) {
			val := m[len(m)-1]
			if strings.ContainsAny(val, "0123456789") {
				return val, true
			}
		}
	}
	return "", false
}

// NormalizeAmount turns an OCR'd amount into "1234.56". The separator before
// the last two digits is the decimal point, whichever character it is; all
// other separators are dropped.
func NormalizeAmount(s string) string {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	if len(s) < 3 {
		return s
	}
	sep := len(s) - 3
	if s[sep] != '.' && s[sep] != ',' {
		return strings.NewReplacer(",", "", " ", "").Replace(s)
	}
	whole := strings.NewReplacer(",", "", ".", "", " ", "").Replace(s[:sep])
	if whole == "" {
		whole = "0"
	}
	return whole + "." + s[sep+1:]
}
