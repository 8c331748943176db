// Package ocr post-processes raw OCR text from Romanian receipts and invoices:
// it repairs common character confusions, restores diacritics, and extracts
// structured fields (vendor, CUI, dates, totals, VAT, line items).
package ocr

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// the letter guards keep words such as "RO18547290" or "5lei" intact
	pipeBeforeDigit = regexp.MustCompile(`(^|[^A-Za-z])[|l](\d)`)
	pipeAfterDigit  = regexp.MustCompile(`(\d)[|l]($|[^A-Za-z])`)
	oBeforeDigit    = regexp.MustCompile(`(^|[^A-Za-z])O(\d)`)
	oAfterDigit     = regexp.MustCompile(`(\d)O($|[^A-Za-z])`)
	otherSpace      = regexp.MustCompile(`[\t\f\v]+`)
	spaceRun        = regexp.MustCompile(` {2,}`)
	blankLines      = regexp.MustCompile(`\n{2,}`)
)

// cedilla forms are what most OCR engines and legacy encodings emit; the
// official Romanian letters use a comma below.
var cedillaToComma = strings.NewReplacer(
	"ş", "ș", // ş -> ș
	"Ş", "Ș", // Ş -> Ș
	"ţ", "ț", // ţ -> ț
	"Ţ", "Ț", // Ţ -> Ț
)

type diacriticWord struct {
	re   *regexp.Regexp
	with string
}

// words that OCR usually returns ASCII-folded
var diacriticWords = buildDiacriticWords(map[string]string{
	"bucuresti":  "București",
	"timisoara":  "Timișoara",
	"iasi":       "Iași",
	"brasov":     "Brașov",
	"constanta":  "Constanța",
	"ploiesti":   "Ploiești",
	"pitesti":    "Pitești",
	"galati":     "Galați",
	"targu":      "Târgu",
	"judetul":    "Județul",
	"romania":    "România",
	"plata":      "Plată",
	"chitanta":   "Chitanță",
	"factura":    "Factură",
	"inversa":    "Inversă",
})

func buildDiacriticWords(m map[string]string) []diacriticWord {
	out := make([]diacriticWord, 0, len(m))
	for ascii, proper := range m {
		out = append(out, diacriticWord{re: regexp.MustCompile(`(?i)\b` + ascii + `\b`), with: proper})
	}
	return out
}

// CleanText fixes digit confusions and whitespace without touching letters
// elsewhere. Line breaks are kept so line-oriented patterns still work.
func CleanText(text string) string {
	s := strings.ReplaceAll(text, "\r\n", "\n")
	// two passes so runs like "1l|2" are fully repaired
	for i := 0; i < 2; i++ {
		s = pipeBeforeDigit.ReplaceAllString(s, "${1}1$2")
		s = pipeAfterDigit.ReplaceAllString(s, "${1}1$2")
		s = oBeforeDigit.ReplaceAllString(s, "${1}0$2")
		s = oAfterDigit.ReplaceAllString(s, "${1}0$2")
	}
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		// a run of spaces shrinks to two: column gaps separate item names
		// from prices
		l = otherSpace.ReplaceAllString(l, "  ")
		lines[i] = strings.TrimSpace(spaceRun.ReplaceAllString(l, "  "))
	}
	s = strings.Join(lines, "\n")
	return strings.TrimSpace(blankLines.ReplaceAllString(s, "\n"))
}

// FixDiacritics converts cedilla letters to comma-below, restores diacritics
// on well-known words and returns NFC text.
func FixDiacritics(text string) string {
	s := norm.NFC.String(text)
	s = cedillaToComma.Replace(s)
	for _, w := range diacriticWords {
		s = w.re.ReplaceAllStringFunc(s, func(m string) string {
			if m == strings.ToUpper(m) {
				return strings.ToUpper(w.with)
			}
			if m == strings.ToLower(m) {
				return strings.ToLower(w.with)
			}
			return w.with
		})
	}
	return s
}

// Normalize runs CleanText and FixDiacritics.
func Normalize(text string) string {
	return FixDiacritics(CleanText(text))
}

// Fold strips diacritics so keyword patterns can match either spelling.
func Fold(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return out
}
