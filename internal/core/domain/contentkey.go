package domain

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// ContentKey fingerprints a recording so the same song under different
// catalog ids collapses to one key. An ISRC wins when present; otherwise the
// key joins the normalized title, normalized primary artist and the duration
// rounded to whole seconds, ties to even.
func ContentKey(t Track) string {
	if isrc := strings.ToUpper(strings.TrimSpace(t.ISRC)); isrc != "" {
		return "isrc:" + isrc
	}
	secs := int(math.RoundToEven(float64(t.DurationMs) / 1000))
	return NormalizeText(t.Title) + "|" + NormalizeText(t.PrimaryArtist()) + "|" + strconv.Itoa(secs)
}

// NormalizeText applies full Unicode case folding ("Straße" and "STRASSE"
// agree), strips punctuation and collapses whitespace. Letters, digits and
// underscores survive, matching a \w class.
func NormalizeText(input string) string {
	var out strings.Builder
	pendingSpace := false
	for _, r := range cases.Fold().String(input) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			if pendingSpace && out.Len() > 0 {
				out.WriteRune(' ')
			}
			pendingSpace = false
			out.WriteRune(r)
		case unicode.IsSpace(r):
			pendingSpace = true
		}
	}
	return out.String()
}
