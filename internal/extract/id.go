package extract

import (
	"regexp"
	"strings"
	"time"
)

const (
	idFieldPoints = 20

	confLabeled  = 90.0
	confInferred = 60.0
)

const idDate = `(\d{2}[-/]\d{2}[-/]\d{4})`

var (
	idDateRe       = regexp.MustCompile(idDate)
	idLicenseRe    = regexp.MustCompile(`(DL|LIC|NO)\.?\s*[:#]?\s*([A-Z0-9]{7,})`)
	idDOBRe        = regexp.MustCompile(`(DOB|BIRTH)\s*[:.]?\s*` + idDate)
	idExpirationRe = regexp.MustCompile(`(EXP|EXPIRES)\s*[:.]?\s*` + idDate)
	idIssueRe      = regexp.MustCompile(`(ISS|ISSUED)\s*[:.]?\s*` + idDate)
	idSexRe        = regexp.MustCompile(`(SEX|GENDER)\s*[:.]?\s*([MF])`)
	idHeightRe     = regexp.MustCompile(`(HGT|HEIGHT)\s*[:.]?\s*(\d+['\-]\d+"?)`)
)

var idPatterns = []struct {
	field string
	re    *regexp.Regexp
}{
	{FieldLicenseNumber, idLicenseRe},
	{FieldDOB, idDOBRe},
	{FieldExpiration, idExpirationRe},
	{FieldIssueDate, idIssueRe},
	{FieldSex, idSexRe},
	{FieldHeight, idHeightRe},
}

func extractID(text string, now time.Time) Result {
	upper := strings.ToUpper(text)
	fields := make(map[string]Field)

	for _, p := range idPatterns {
		if m := p.re.FindStringSubmatch(upper); m != nil {
			fields[p.field] = Field{Value: m[len(m)-1], Confidence: confLabeled, Source: SourceDeterministic}
		}
	}

	// Unlabeled dates: on a license the earliest printed date is the birth
	// date and the last one the expiration.
	_, hasDOB := fields[FieldDOB]
	_, hasExp := fields[FieldExpiration]
	if !hasDOB || !hasExp {
		dates := idDateRe.FindAllString(upper, -1)
		if len(dates) >= 2 && dates[0] != dates[len(dates)-1] {
			if !hasDOB {
				fields[FieldDOB] = Field{Value: dates[0], Confidence: confInferred, Source: SourceDeterministic}
			}
			if !hasExp {
				fields[FieldExpiration] = Field{Value: dates[len(dates)-1], Confidence: confInferred, Source: SourceDeterministic}
			}
		}
	}

	conf := float64(len(fields) * idFieldPoints)
	if conf > 100 {
		conf = 100
	}

	res := Result{
		DocType:    DocTypeID,
		Fields:     fields,
		Confidence: conf,
		Method:     MethodDeterministic,
		LineItems:  []LineItem{},
	}
	res.Validation = ValidateID(res, now)
	return res
}

// ValidateID checks the dates of an identity result against each other and
// against now.
func ValidateID(r Result, now time.Time) Validation {
	v := newValidation()
	today := dayOf(now)

	dob, dobOK := parseField(r, FieldDOB, "Unparseable date of birth", &v)
	exp, expOK := parseField(r, FieldExpiration, "Unparseable expiration date", &v)
	iss, issOK := parseField(r, FieldIssueDate, "Unparseable issue date", &v)

	if dobOK {
		a := age(dob, today)
		v.Age = &a
		switch {
		case a < 0 || dob.After(today):
			v.fail("Date of birth is in the future")
		case a < 18:
			v.warn("Under 18")
		case a < 21:
			v.warn("Under 21")
		}
	}

	if expOK && exp.Before(today) {
		v.IsExpired = true
		v.Errors = append(v.Errors, "Document is expired")
	}
	if dobOK && expOK && exp.Before(dob) {
		v.fail("Expiration date is before date of birth")
	}
	if issOK && expOK && exp.Before(iss) {
		v.fail("Expiration date is before issue date")
	}
	return v
}

func parseField(r Result, name, warning string, v *Validation) (time.Time, bool) {
	if !r.Has(name) {
		return time.Time{}, false
	}
	t, ok := parseIDDate(r.Value(name))
	if !ok {
		v.warn(warning)
	}
	return t, ok
}

// parseIDDate accepts MM/DD/YYYY with "/" or "-", plus ISO dates from the
// vision model.
func parseIDDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) == 10 && s[4] == '-' {
		t, err := time.Parse("2006-01-02", s)
		return t, err == nil
	}
	t, err := time.Parse("01/02/2006", strings.ReplaceAll(s, "-", "/"))
	return t, err == nil
}
