package extract

import (
	"strings"
	"testing"
	"time"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

const sampleLicense = `DRIVER LICENSE
DL: D1234567
DOB: 01/15/1990
EXP: 01/15/2030
SEX: M
HGT: 5'10"`

func TestExtractID_AllFields(t *testing.T) {
	res := Extract(sampleLicense, DocTypeID, testNow)

	want := map[string]string{
		FieldLicenseNumber: "D1234567",
		FieldDOB:           "01/15/1990",
		FieldExpiration:    "01/15/2030",
		FieldSex:           "M",
		FieldHeight:        `5'10"`,
	}
	for name, value := range want {
		f, ok := res.Fields[name]
		if !ok {
			t.Errorf("missing field %s", name)
			continue
		}
		if f.Value != value {
			t.Errorf("%s = %q, want %q", name, f.Value, value)
		}
		if f.Source != SourceDeterministic {
			t.Errorf("%s source = %s", name, f.Source)
		}
	}

	if res.Confidence != 100 {
		t.Errorf("confidence = %v, want 100", res.Confidence)
	}
	if res.Method != MethodDeterministic || res.DocType != DocTypeID {
		t.Errorf("method/type = %s/%s", res.Method, res.DocType)
	}
	if !res.Validation.Valid || len(res.Validation.Errors) != 0 {
		t.Errorf("validation = %+v", res.Validation)
	}
	if res.Validation.Age == nil || *res.Validation.Age != 34 {
		t.Errorf("age = %v, want 34", res.Validation.Age)
	}
	if len(res.MissingMandatory()) != 0 {
		t.Errorf("missing mandatory: %v", res.MissingMandatory())
	}
}

func TestExtractID_LowercaseInput(t *testing.T) {
	res := Extract(strings.ToLower(sampleLicense), DocTypeID, testNow)
	if res.Value(FieldLicenseNumber) != "D1234567" {
		t.Errorf("license = %q", res.Value(FieldLicenseNumber))
	}
}

func TestExtractID_DateFallback(t *testing.T) {
	text := "DRIVER LICENSE\n01/15/1990\nCLASS C 03/02/2020\n01/15/2030"
	res := Extract(text, DocTypeID, testNow)

	if got := res.Value(FieldDOB); got != "01/15/1990" {
		t.Errorf("dob = %q", got)
	}
	if got := res.Value(FieldExpiration); got != "01/15/2030" {
		t.Errorf("exp = %q", got)
	}
	if res.Fields[FieldDOB].Confidence >= confLabeled {
		t.Errorf("inferred dob confidence = %v, want below labeled", res.Fields[FieldDOB].Confidence)
	}
	if res.Confidence != 40 {
		t.Errorf("confidence = %v, want 40", res.Confidence)
	}
}

func TestExtractID_DateFallbackNeedsTwoDistinctDates(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"single date", "LICENSE\n01/15/1990"},
		{"same date twice", "LICENSE\n01/15/1990\n01/15/1990"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Extract(tt.text, DocTypeID, testNow)
			if res.Has(FieldDOB) || res.Has(FieldExpiration) {
				t.Errorf("unexpected dates: %+v", res.Fields)
			}
		})
	}
}

func TestValidateID(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		wantValid   bool
		wantExpired bool
		wantError   string
		wantWarning string
	}{
		{"valid adult", "DOB 01/15/1990 EXP 01/15/2030", true, false, "", ""},
		{"under 21", "DOB 01/01/2005 EXP 01/15/2030", true, false, "", "Under 21"},
		{"under 18", "DOB 01/01/2010 EXP 01/15/2030", true, false, "", "Under 18"},
		{"future dob", "DOB 01/01/2025 EXP 01/15/2030", false, false, "Date of birth is in the future", ""},
		{"expired", "DOB 01/15/1990 EXP 01/15/2020", true, true, "Document is expired", ""},
		{"expiry before birth", "DOB 01/01/2000 EXP 01/01/1999", false, true, "Expiration date is before date of birth", ""},
		{"expiry before issue", "DOB 01/01/1990 ISS 01/01/2031 EXP 01/01/2030", false, false, "Expiration date is before issue date", ""},
		{"unparseable dob", "DOB 13/45/1990 EXP 01/15/2030", true, false, "", "Unparseable date of birth"},
		{"dash separators", "DOB 01-15-1990 EXP 01-15-2030", true, false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Extract(tt.text, DocTypeID, testNow).Validation
			if v.Valid != tt.wantValid {
				t.Errorf("Valid = %v, want %v (errors %v)", v.Valid, tt.wantValid, v.Errors)
			}
			if v.IsExpired != tt.wantExpired {
				t.Errorf("IsExpired = %v, want %v", v.IsExpired, tt.wantExpired)
			}
			if tt.wantError != "" && !contains(v.Errors, tt.wantError) {
				t.Errorf("errors %v missing %q", v.Errors, tt.wantError)
			}
			if tt.wantWarning != "" && !contains(v.Warnings, tt.wantWarning) {
				t.Errorf("warnings %v missing %q", v.Warnings, tt.wantWarning)
			}
		})
	}
}

func TestValidateID_ISODatesFromVision(t *testing.T) {
	r := Result{
		DocType: DocTypeID,
		Fields: map[string]Field{
			FieldDOB:        {Value: "1990-01-15", Source: SourceVision},
			FieldExpiration: {Value: "2030-01-15", Source: SourceVision},
		},
	}
	v := ValidateID(r, testNow)
	if !v.Valid || len(v.Warnings) != 0 {
		t.Errorf("validation = %+v", v)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
