package match

import (
	"sort"
	"strings"
	"unicode"

	"github.com/agext/levenshtein"
	"github.com/anyascii/go"
)

// Name score thresholds.
const (
	componentMin       = 90.0
	middleBonus        = 5.0
	componentThreshold = 85.0
	componentStrict    = 95.0
	fullThreshold      = 80.0
	fullStrict         = 90.0
)

type nameParts struct {
	first, middle, last string
}

// normalizeName transliterates to ASCII, upper-cases, drops punctuation
// other than the "LAST, FIRST" comma and collapses whitespace.
func normalizeName(s string) string {
	s = strings.ToUpper(anyascii.Transliterate(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '.' || r == '\'':
		case r == ',':
			b.WriteString(" , ")
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	s = strings.Join(strings.Fields(b.String()), " ")
	s = strings.ReplaceAll(s, " , ", ", ")
	return strings.Trim(s, " ,")
}

// parseName splits a normalized name. "LAST, FIRST MIDDLE" is recognized;
// otherwise the first token is the first name and the last token the
// last name.
func parseName(s string) nameParts {
	if last, rest, ok := strings.Cut(s, ","); ok {
		words := strings.Fields(rest)
		p := nameParts{last: strings.TrimSpace(last)}
		if len(words) > 0 {
			p.first = words[0]
			p.middle = strings.Join(words[1:], " ")
		}
		return p
	}
	words := strings.Fields(s)
	switch len(words) {
	case 0:
		return nameParts{}
	case 1:
		return nameParts{first: words[0], last: words[0]}
	default:
		return nameParts{
			first:  words[0],
			middle: strings.Join(words[1:len(words)-1], " "),
			last:   words[len(words)-1],
		}
	}
}

// middleCompatible accepts equal middles, an initial of the other, or one
// side missing.
func middleCompatible(a, b string) bool {
	if a == "" || b == "" || a == b {
		return true
	}
	if len(a) == 1 && strings.HasPrefix(b, a) {
		return true
	}
	return len(b) == 1 && strings.HasPrefix(a, b)
}

// ratio is the edit-distance similarity of a and b in [0, 100].
func ratio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}
	longest := len([]rune(a))
	if n := len([]rune(b)); n > longest {
		longest = n
	}
	return 100 * (1 - float64(levenshtein.Distance(a, b, nil))/float64(longest))
}

// tokenSortRatio compares names independent of word order.
func tokenSortRatio(a, b string) float64 {
	return ratio(sortedTokens(a), sortedTokens(b))
}

func sortedTokens(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, ",", " "))
	sort.Strings(words)
	return strings.Join(words, " ")
}

// CompareNames scores two personal names.
func CompareNames(a, b string, strict bool) FieldResult {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return missing("one or both names are missing")
	}
	na, nb := normalizeName(a), normalizeName(b)
	if na == nb {
		return FieldResult{Score: 100, Match: true, Method: MethodExact}
	}

	pa, pb := parseName(na), parseName(nb)
	first := ratio(pa.first, pb.first)
	last := ratio(pa.last, pb.last)
	if first > componentMin && last > componentMin {
		compatible := middleCompatible(pa.middle, pb.middle)
		score := (first + last) / 2
		if compatible {
			score = minFloat(score+middleBonus, 100)
		}
		threshold := componentThreshold
		if strict {
			threshold = componentStrict
		}
		return FieldResult{
			Score:  round2(score),
			Match:  score >= threshold,
			Method: MethodComponents,
			Details: map[string]interface{}{
				"first_name_score":  round2(first),
				"last_name_score":   round2(last),
				"middle_name_match": compatible,
			},
		}
	}

	score := tokenSortRatio(na, nb)
	threshold := fullThreshold
	if strict {
		threshold = fullStrict
	}
	return FieldResult{Score: round2(score), Match: score >= threshold, Method: MethodFuzzy}
}
