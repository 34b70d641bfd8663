package match

import (
	"regexp"
	"strings"
)

const (
	addressThreshold = 70.0
	jaccardMin       = 0.85
)

var streetTypes = map[string][]string{
	"ALLEY":      {"ALY", "ALLEE", "ALLY"},
	"AVENUE":     {"AVE", "AV", "AVEN", "AVENU", "AVN", "AVNUE"},
	"BOULEVARD":  {"BLVD", "BOUL", "BOULV"},
	"CIRCLE":     {"CIR", "CIRC", "CIRCL", "CRCL", "CRCLE"},
	"COURT":      {"CT", "CRT"},
	"DRIVE":      {"DR", "DRIV", "DRV"},
	"EXPRESSWAY": {"EXPY", "EXP", "EXPRESS", "EXPW"},
	"HIGHWAY":    {"HWY", "HIGHWY", "HIWAY", "HIWY"},
	"LANE":       {"LN", "LA"},
	"PARKWAY":    {"PKWY", "PARKWY", "PKY", "PKWAY"},
	"PLACE":      {"PL"},
	"PLAZA":      {"PLZ", "PLZA"},
	"ROAD":       {"RD"},
	"SQUARE":     {"SQ", "SQR", "SQRE", "SQU"},
	"STREET":     {"ST", "STR", "STRT"},
	"TERRACE":    {"TER", "TERR"},
	"TRAIL":      {"TRL", "TRLS"},
	"WAY":        {"WY"},
}

var directionals = map[string][]string{
	"NORTH":     {"N", "NO"},
	"SOUTH":     {"S", "SO"},
	"EAST":      {"E"},
	"WEST":      {"W"},
	"NORTHEAST": {"NE"},
	"NORTHWEST": {"NW"},
	"SOUTHEAST": {"SE"},
	"SOUTHWEST": {"SW"},
}

var (
	streetTypeOf  = reverse(streetTypes)
	directionalOf = reverse(directionals)

	unitRe     = regexp.MustCompile(`(?:\b(?:APT|APARTMENT|UNIT|STE|SUITE)\b|#)\s*#?\s*[A-Z0-9-]+`)
	stateZipRe = regexp.MustCompile(`\b([A-Z]{2})\b\s*(\d{5}(?:-\d{4})?)?`)
	tailRe     = regexp.MustCompile(`^(.*?)\s+([A-Z]{2})\s+(\d{5}(?:-\d{4})?)$`)
	nonAlnumRe = regexp.MustCompile(`[^A-Z0-9]`)
)

func reverse(m map[string][]string) map[string]string {
	out := make(map[string]string)
	for standard, abbrevs := range m {
		out[standard] = standard
		for _, a := range abbrevs {
			out[a] = standard
		}
	}
	return out
}

// Address is a parsed US street address. Street types and directionals are
// expanded to their full USPS names.
type Address struct {
	Number     string `json:"number,omitempty"`
	StreetName string `json:"street_name,omitempty"`
	StreetType string `json:"street_type,omitempty"`
	Unit       string `json:"unit,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	ZIP        string `json:"zip,omitempty"`
}

// Street returns number, name and type joined.
func (a Address) Street() string {
	return strings.Join(strings.Fields(a.Number+" "+a.StreetName+" "+a.StreetType), " ")
}

// ParseAddress splits "123 N Main St Apt 4, Austin, TX 78701". Addresses
// printed on one line without commas, as on most licenses, are split after
// the street type.
func ParseAddress(s string) Address {
	parts := strings.Split(strings.ToUpper(s), ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) == 1 {
		return parseLine(parts[0])
	}

	addr := parseStreet(parts[0])
	if len(parts) > 1 {
		addr.City = parts[1]
	}
	if len(parts) > 2 {
		if m := stateZipRe.FindStringSubmatch(strings.Join(parts[2:], " ")); m != nil {
			addr.State = m[1]
			addr.ZIP = m[2]
		}
	}
	return addr
}

func parseLine(s string) Address {
	var unit, state, zip string
	if m := unitRe.FindString(s); m != "" {
		unit = m
		s = strings.Replace(s, m, " ", 1)
	}
	if m := tailRe.FindStringSubmatch(s); m != nil {
		s, state, zip = m[1], m[2], m[3]
	}
	words := strings.Fields(s)
	split := len(words)
	for i := len(words) - 1; i > 0; i-- {
		if _, ok := streetTypeOf[strings.TrimSuffix(words[i], ".")]; ok {
			split = i + 1
			break
		}
	}
	addr := parseStreet(strings.Join(words[:split], " "))
	addr.City = strings.Join(words[split:], " ")
	addr.Unit, addr.State, addr.ZIP = unit, state, zip
	return addr
}

func parseStreet(s string) Address {
	var addr Address
	if m := unitRe.FindString(s); m != "" {
		addr.Unit = m
		s = strings.Replace(s, m, "", 1)
	}
	words := strings.Fields(strings.ReplaceAll(s, ".", ""))
	if len(words) == 0 {
		return addr
	}
	if isNumber(words[0]) {
		addr.Number = words[0]
		words = words[1:]
	}
	if len(words) == 0 {
		return addr
	}
	if t, ok := streetTypeOf[words[len(words)-1]]; ok {
		addr.StreetType = t
		words = words[:len(words)-1]
	}
	if len(words) > 0 {
		if d, ok := directionalOf[words[0]]; ok {
			words[0] = d
		}
	}
	addr.StreetName = strings.Join(words, " ")
	return addr
}

func isNumber(s string) bool {
	s = strings.ReplaceAll(s, "-", "")
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// CompareAddresses scores two addresses by their matching components.
func CompareAddresses(a, b string) FieldResult {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return missing("one or both addresses are missing")
	}
	pa, pb := ParseAddress(a), ParseAddress(b)

	number := pa.Number != "" && pa.Number == pb.Number
	street := similar(pa.StreetName, pb.StreetName)
	city := similar(pa.City, pb.City)
	state := pa.State != "" && pa.State == pb.State
	zip := pa.ZIP != "" && pa.ZIP == pb.ZIP

	var score float64
	switch {
	case number && street && city && state && zip:
		score = 100
	case number && street && city && state:
		score = 95
	case number && street && city:
		score = 75
	case number && street:
		score = 60
	}

	return FieldResult{
		Score:  score,
		Match:  score >= addressThreshold,
		Method: MethodComponents,
		Details: map[string]interface{}{
			"number":      number,
			"street_name": street,
			"street_type": pa.StreetType == pb.StreetType,
			"city":        city,
			"state":       state,
			"zip":         zip,
		},
	}
}

// similar accepts equal strings, a substring or a character-set Jaccard
// index of at least 0.85, after dropping non-alphanumerics.
func similar(a, b string) bool {
	a, b = nonAlnumRe.ReplaceAllString(a, ""), nonAlnumRe.ReplaceAllString(b, "")
	if a == "" || b == "" {
		return false
	}
	if a == b || strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}
	return jaccard(a, b) >= jaccardMin
}

func jaccard(a, b string) float64 {
	sa := make(map[rune]bool)
	for _, r := range a {
		sa[r] = true
	}
	union := len(sa)
	inter := 0
	seen := make(map[rune]bool)
	for _, r := range b {
		if seen[r] {
			continue
		}
		seen[r] = true
		if sa[r] {
			inter++
		} else {
			union++
		}
	}
	return float64(inter) / float64(union)
}
