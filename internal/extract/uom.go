package extract

import (
	"fmt"
	"regexp"
	"strings"
)

// uomCodes lists each standard unit code with the spellings that map to it.
// Order matters for UOMFromDescription.
var uomCodes = []struct {
	code     string
	variants []string
}{
	{"EA", []string{"EACH", "E", "PC", "PIECE", "UNIT", "U", "PCS", "PIECES"}},
	{"CS", []string{"CASE", "CASES", "C", "CA", "CSE"}},
	{"BX", []string{"BOX", "BOXES", "B"}},
	{"PK", []string{"PACK", "PACKS", "PAK", "PKG", "PACKAGE"}},
	{"DZ", []string{"DOZEN", "DOZ", "DZN"}},
	{"CT", []string{"COUNT", "CNT"}},
	{"LB", []string{"POUND", "POUNDS", "LBS", "#"}},
	{"OZ", []string{"OUNCE", "OUNCES", "ONZ"}},
	{"KG", []string{"KILOGRAM", "KILOGRAMS", "KILO", "KILOS"}},
	{"G", []string{"GRAM", "GRAMS", "GRM", "GR"}},
	{"TON", []string{"TONS", "T", "TN"}},
	{"GAL", []string{"GALLON", "GALLONS", "GALS", "GL"}},
	{"QT", []string{"QUART", "QUARTS", "QTS"}},
	{"PT", []string{"PINT", "PINTS", "PTS"}},
	{"FL OZ", []string{"FLUID OUNCE", "FLUID OUNCES", "FLOZ", "FO"}},
	{"L", []string{"LITER", "LITERS", "LITRE", "LITRES", "LTR"}},
	{"ML", []string{"MILLILITER", "MILLILITERS", "MILLILITRE", "MILLILITRES", "MLTR"}},
	{"FT", []string{"FOOT", "FEET", "F"}},
	{"IN", []string{"INCH", "INCHES", `"`}},
	{"YD", []string{"YARD", "YARDS", "Y"}},
	{"M", []string{"METER", "METERS", "METRE", "METRES", "MTR"}},
	{"CM", []string{"CENTIMETER", "CENTIMETERS", "CENTIMETRE", "CENTIMETRES"}},
	{"SQ FT", []string{"SQUARE FOOT", "SQUARE FEET", "SQFT", "SF"}},
	{"SQ M", []string{"SQUARE METER", "SQUARE METRES", "SQM", "SM"}},
	{"ROLL", []string{"ROLLS", "RL"}},
	{"BAG", []string{"BAGS", "BG"}},
	{"BOTTLE", []string{"BOTTLES", "BTL", "BTLS"}},
	{"CAN", []string{"CANS", "CN"}},
	{"JAR", []string{"JARS", "JR"}},
	{"TUB", []string{"TUBS"}},
	{"BAR", []string{"BARS"}},
	{"PALLET", []string{"PALLETS", "PLT", "PLTS"}},
	{"CARTON", []string{"CARTONS", "CTN", "CTNS"}},
}

var packSizes = []struct {
	code     string
	variants []string
}{
	{"12-PACK", []string{"12PK", "12 PK", "12PACK", "12 PACK", "12CT", "12 CT"}},
	{"24-PACK", []string{"24PK", "24 PK", "24PACK", "24 PACK", "24CT", "24 CT"}},
	{"6-PACK", []string{"6PK", "6 PK", "6PACK", "6 PACK", "6CT", "6 CT"}},
	{"12OZ", []string{"12 OZ", "12-OZ", "12 OUNCE"}},
	{"16OZ", []string{"16 OZ", "16-OZ", "16 OUNCE"}},
	{"20OZ", []string{"20 OZ", "20-OZ", "20 OUNCE"}},
	{"2L", []string{"2 LITER", "2L BOTTLE", "2 L"}},
}

var (
	uomLookup = func() map[string]string {
		m := make(map[string]string)
		for _, u := range uomCodes {
			for _, v := range u.variants {
				m[v] = u.code
			}
			m[u.code] = u.code
		}
		return m
	}()

	packCountRe = regexp.MustCompile(`(\d+)\s*-?\s*(PK|PACK|CT|COUNT)`)
	packSizeRe  = regexp.MustCompile(`(\d+)\s*(OZ|L|ML|LITER|OUNCE)`)
)

// StandardizeUOM maps a unit spelling to its standard code ("case" → "CS").
// Empty input means each. Unknown units are returned upper-cased.
func StandardizeUOM(uom string) string {
	clean := strings.ToUpper(strings.TrimSpace(uom))
	if clean == "" {
		return "EA"
	}
	if code, ok := uomLookup[clean]; ok {
		return code
	}
	if len(clean) > 1 && strings.HasSuffix(clean, "S") {
		if code, ok := uomLookup[clean[:len(clean)-1]]; ok {
			return code
		}
	}
	return clean
}

// ValidUOM reports whether uom is a known unit, with its standard code.
func ValidUOM(uom string) (string, bool) {
	if strings.TrimSpace(uom) == "" {
		return "", false
	}
	code := StandardizeUOM(uom)
	for _, u := range uomCodes {
		if u.code == code {
			return code, true
		}
	}
	return "", false
}

// ParsePackSize finds a pack or container size in a product description:
// "Coca-Cola 12oz 24pk" → "24-PACK", "PEPSI 2L 8PK" → "8-PACK".
func ParsePackSize(description string) (string, bool) {
	upper := strings.ToUpper(description)
	if upper == "" {
		return "", false
	}
	for _, p := range packSizes {
		for _, v := range p.variants {
			if strings.Contains(upper, v) {
				return p.code, true
			}
		}
	}
	if m := packCountRe.FindStringSubmatch(upper); m != nil {
		return m[1] + "-PACK", true
	}
	if m := packSizeRe.FindStringSubmatch(upper); m != nil {
		unit := "OZ"
		switch m[2] {
		case "ML":
			unit = "ML"
		case "L", "LITER":
			unit = "L"
		}
		return m[1] + unit, true
	}
	return "", false
}

// UOMFromDescription finds a unit word in a product description.
func UOMFromDescription(description string) (string, bool) {
	padded := " " + strings.ToUpper(description) + " "
	if strings.TrimSpace(padded) == "" {
		return "", false
	}
	for _, u := range uomCodes {
		if strings.Contains(padded, " "+u.code+" ") {
			return u.code, true
		}
		for _, v := range u.variants {
			if strings.Contains(padded, " "+v+" ") {
				return u.code, true
			}
		}
	}
	return "", false
}

type conversion struct{ from, to string }

var conversions = map[conversion]float64{
	{"DZ", "EA"}:     12,
	{"CS", "EA"}:     12,
	{"LB", "OZ"}:     16,
	{"KG", "G"}:      1000,
	{"TON", "LB"}:    2000,
	{"GAL", "QT"}:    4,
	{"QT", "PT"}:     2,
	{"PT", "FL OZ"}:  16,
	{"GAL", "FL OZ"}: 128,
	{"L", "ML"}:      1000,
	{"FT", "IN"}:     12,
	{"YD", "FT"}:     3,
	{"M", "CM"}:      100,
}

// ConvertQuantity converts q between units using direct factors only
// (12 DZ → 144 EA). A case counts 12 each.
func ConvertQuantity(q float64, from, to string) (float64, error) {
	f, t := StandardizeUOM(from), StandardizeUOM(to)
	if f == t {
		return q, nil
	}
	if factor, ok := conversions[conversion{f, t}]; ok {
		return q * factor, nil
	}
	if factor, ok := conversions[conversion{t, f}]; ok {
		return q / factor, nil
	}
	return 0, fmt.Errorf("no conversion from %s to %s", f, t)
}

// StandardizeLineItem fills the unit and pack size of item from its
// description when missing and normalizes the unit code.
func StandardizeLineItem(item LineItem) LineItem {
	if item.UOM == "" {
		if u, ok := UOMFromDescription(item.Description); ok {
			item.UOM = u
		}
	}
	item.UOM = StandardizeUOM(item.UOM)
	if item.PackSize == "" {
		if p, ok := ParsePackSize(item.Description); ok {
			item.PackSize = p
		}
	}
	return item
}
