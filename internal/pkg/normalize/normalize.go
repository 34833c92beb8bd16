package normalize

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/harbibet/harbi/internal/pkg/models"
)

// ErrAmbiguousIndicators is returned when a raw name carries conflicting
// markers (e.g. two different age brackets). Callers treat it as no-match,
// never as a guess.
var ErrAmbiguousIndicators = errors.New("ambiguous indicator set")

var (
	agePattern = regexp.MustCompile(`(?i)\b(U1[79]|U2[013])\b`)
	// Women marker as published: "(W)". Checked before punctuation collapse.
	womenPattern = regexp.MustCompile(`(?i)\(w\)`)
	// Reserve squads: trailing "II" or "B" ("Atletico Madrid B" ==
	// "Atletico Madrid II"). Case-sensitive so "Moreirense b" style noise
	// in lowercase feeds is not mistaken for a squad marker.
	reservePattern = regexp.MustCompile(`\s+(II|B)\s*$`)
)

// Club prefixes stripped before similarity so "CA Lanus" and "Lanus" score
// as the same club. Longer prefixes first; stripping repeats until no
// prefix matches, so stacked forms ("SC Deportivo Cali") collapse to the
// same text a source printing the bare name would produce.
var clubPrefixes = []string{
	"club atletico ", "club deportivo ",
	"deportivo ", "atletico ", "club ", "real ",
	"ca ", "cd ", "cf ", "fc ", "sc ", "ac ", "as ", "ad ", "cs ", "ce ", "sd ", "ud ",
}

// Country tags some sources append in parentheses, expanded to the full
// name so "Alianza FC (Pan)" can meet "Alianza FC Panama".
var countryTags = map[string]string{
	"(pan)": "panama", "(uru)": "uruguay", "(slv)": "el salvador",
	"(par)": "paraguay", "(ecu)": "ecuador", "(chi)": "chile",
	"(arg)": "argentina", "(mex)": "mexico", "(bra)": "brazil",
	"(col)": "colombia", "(per)": "peru", "(ven)": "venezuela",
	"(bol)": "bolivia", "(ksa)": "saudi arabia", "(uae)": "united arab emirates",
	"(qat)": "qatar", "(jor)": "jordan", "(kuw)": "kuwait",
	"(egy)": "egypt", "(brn)": "bahrain",
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Extract pulls the structured indicators out of a raw team name and
// returns the remaining text with the matched tokens removed, so indicator
// tokens never influence similarity scores. Extraction is order-independent.
func Extract(raw string) (models.IndicatorSet, string, error) {
	var set models.IndicatorSet
	rest := raw

	ages := agePattern.FindAllString(rest, -1)
	for _, a := range ages {
		a = strings.ToUpper(a)
		if set.Age != "" && set.Age != a {
			return models.IndicatorSet{}, "", ErrAmbiguousIndicators
		}
		set.Age = a
	}
	if set.Age != "" {
		rest = agePattern.ReplaceAllString(rest, " ")
	}

	if womenPattern.MatchString(rest) {
		set.Women = true
		rest = womenPattern.ReplaceAllString(rest, " ")
	}

	if loc := reservePattern.FindStringIndex(rest); loc != nil {
		set.Reserve = true
		rest = rest[:loc[0]]
	}

	return set, strings.TrimSpace(rest), nil
}

// Fold removes diacritics and lower-cases: "Beşiktaş" -> "besiktas".
// Unknown characters pass through unchanged.
func Fold(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// Normalize splits a raw team name into its indicator set and the
// normalized text used downstream for similarity scoring and registry
// lookups. The text component is idempotent: normalizing it again yields
// the same string. Never fails on malformed input; the only error is
// ErrAmbiguousIndicators.
func Normalize(raw string) (models.IndicatorSet, string, error) {
	set, rest, err := Extract(raw)
	if err != nil {
		return models.IndicatorSet{}, "", err
	}

	text := Fold(rest)
	for tag, full := range countryTags {
		if strings.Contains(text, tag) {
			text = strings.ReplaceAll(text, tag, " "+full+" ")
		}
	}
	text = collapsePunct(text)

	for stripped := true; stripped; {
		stripped = false
		for _, p := range clubPrefixes {
			if strings.HasPrefix(text, p) {
				text = strings.TrimSpace(text[len(p):])
				stripped = true
				break
			}
		}
	}

	return set, text, nil
}

// collapsePunct replaces punctuation with spaces and collapses runs of
// whitespace to single spaces.
func collapsePunct(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
