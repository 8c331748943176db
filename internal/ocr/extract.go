package ocr

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/cui"
)

// Language selects the keyword set used for extraction. Romanian patterns are
// always tried; German and English add their own total/VAT keywords.
type Language string

const (
	LangRO   Language = "ro"
	LangDE   Language = "de"
	LangEN   Language = "en"
	LangAuto Language = "auto"
)

type Status string

const (
	StatusCompleted      Status = "COMPLETED"
	StatusReviewRequired Status = "REVIEW_REQUIRED"
)

// ReviewThreshold is the overall confidence above which a result needs no
// human review.
const ReviewThreshold = 0.7

type LineItem struct {
	Name      string              `json:"name"`
	Quantity  decimal.NullDecimal `json:"quantity"`
	UnitPrice decimal.NullDecimal `json:"unit_price"`
	Price     decimal.Decimal     `json:"price"`
}

// Result is the structured output of Extract.
type Result struct {
	Text          string              `json:"text"`
	Language      Language            `json:"language"`
	VendorName    string              `json:"vendor_name,omitempty"`
	VendorCUI     string              `json:"vendor_cui,omitempty"`
	VendorCUIOK   bool                `json:"vendor_cui_valid"`
	ClientName    string              `json:"client_name,omitempty"`
	ClientCUI     string              `json:"client_cui,omitempty"`
	Date          *time.Time          `json:"date,omitempty"`
	Time          string              `json:"time,omitempty"`
	ReceiptNumber string              `json:"receipt_number,omitempty"`
	Total         decimal.NullDecimal `json:"total"`
	VATAmount     decimal.NullDecimal `json:"vat_amount"`
	VATRate       decimal.NullDecimal `json:"vat_rate"`
	PaymentMethod string              `json:"payment_method,omitempty"`
	Items         []LineItem          `json:"items"`
	Confidence    map[string]float64  `json:"confidence"`
	Overall       float64             `json:"overall_confidence"`
	Status        Status              `json:"status"`
	Warnings      []string            `json:"warnings,omitempty"`
}

var (
	vendorPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)S\.?C\.?\s+([A-Z0-9][A-Z0-9 &.-]+?\s(?:S\.?R\.?L\.?|S\.?A\.?))`),
		regexp.MustCompile(`(?i)\b(OMV|PETROM|KAUFLAND|LIDL|MEGA\s*IMAGE|CARREFOUR|PROFI|PENNY|AUCHAN|DEDEMAN|EMAG)\b`),
		regexp.MustCompile(`(?im)^([A-Z][A-Z0-9 &.-]{3,}(?:S\.?R\.?L\.?|S\.?A\.?|INC|CO))`),
	}
	knownChain = regexp.MustCompile(`(?i)^(OMV|PETROM|KAUFLAND|LIDL|MEGA\s*IMAGE|CARREFOUR|PROFI|PENNY|AUCHAN|DEDEMAN|EMAG)`)

	vendorCUIPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)C\.?\s?I\.?\s?F\.?[:\s]*(?:RO\s?)?(\d{2,10})\b`),
		regexp.MustCompile(`(?i)\bC\.?U\.?I\.?[:\s]*(?:RO\s?)?(\d{2,10})\b`),
		regexp.MustCompile(`(?i)COD\s+FISCAL[:\s]*(?:RO\s?)?(\d{2,10})\b`),
		regexp.MustCompile(`\bRO\s?(\d{6,10})\b`),
	}
	clientCUIPattern  = regexp.MustCompile(`(?i)CLIENT\s+C\.?U\.?I\.?[:\s/]*(?:RO\s?)?(\d{2,10})\b`)
	clientNamePattern = regexp.MustCompile(`(?im)(?:NUME\s+)?CLIENT[:\s]+([A-Z][A-Z &.-]+?(?:S\.?R\.?L\.?|S\.?A\.?)?)\s*$`)

	amountRe      = `(\d{1,3}(?:[.\s]\d{3})*[.,]\d{2}|\d{1,6}[.,]\d{2})`
	totalPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)TOTAL\s+(?:DE\s+)?PLATA[:\s]*` + amountRe),
		regexp.MustCompile(`(?i)\bTOTAL[S:\s]*` + amountRe + `\s*(?:RON|LEI|A)?`),
		regexp.MustCompile(`(?i)CARTE\s+CREDIT[:\s]*` + amountRe),
		regexp.MustCompile(`(?i)\bSUMA[:\s]*` + amountRe),
		regexp.MustCompile(`(?i)\bDE\s+PLATA[:\s]*` + amountRe),
		regexp.MustCompile(`(?i)(\d{2,3}[.,]\d{2})\s*(?:RON|LEI|A)\b`),
	}
	foreignTotalPatterns = map[Language][]*regexp.Regexp{
		LangDE: {
			regexp.MustCompile(`(?i)\b(?:GESAMT|SUMME|ZU\s+ZAHLEN|BETRAG)[:\s]*(?:EUR)?\s*` + amountRe),
		},
		LangEN: {
			regexp.MustCompile(`(?i)\b(?:AMOUNT\s+DUE|GRAND\s+TOTAL|BALANCE\s+DUE)[:\s]*` + amountRe),
		},
	}
	anyAmount = regexp.MustCompile(`\b(\d{2,4})[.,](\d{2})\b`)

	vatAmountPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)TOTAL\s+TAXE[:\s]*` + amountRe),
		regexp.MustCompile(`(?i)\bT\.?V\.?A\.?[:\s]*` + amountRe),
		regexp.MustCompile(`(?i)\bA-\d+[.,]?\d*%[:\s]*` + amountRe),
		regexp.MustCompile(`(?i)\b(?:MWST|UST|VAT)[:\s]*` + amountRe),
	}
	vatRatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bA-(\d{1,2})[.,]?\d*%`),
		regexp.MustCompile(`(?i)(\d{1,2})\s*%\s*(?:TVA|MWST|VAT)`),
		regexp.MustCompile(`(?i)(?:TVA|MWST|VAT)\s*(\d{1,2})\s*%`),
	}
	receiptPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)NUMAR\s+TRANZACTIE[:\s]*(\d+)`),
		regexp.MustCompile(`(?i)NR\.?\s*POS[:\s]*(\d+)`),
		regexp.MustCompile(`(?i)BON\s+FISCAL\s*#?\s*(?:NR\.?\s*)?(\d+)`),
		regexp.MustCompile(`(?i)FACTURA\s+(?:SERIA\s+[A-Z]+\s+)?(?:NR\.?|NUMAR)[:\s]*([A-Z]*\d+)`),
		regexp.MustCompile(`(?i)\b(?:NR|NUMAR)[.:\s]*(\d{4,})`),
	}
	itemWithQty   = regexp.MustCompile(`^\*?\s*\d*\s*([A-Z][A-Z ]+?)\s+(\d+[.,]\d+)\s*L?\s*[xX*]\s*(\d+[.,]\d+)\s+(\d+[.,]\d+)`)
	itemNamePrice = regexp.MustCompile(`^([A-Za-z][A-Za-z ]{2,30}?)\s{2,}(\d{1,6}[.,]\d{2})\s*$`)
	itemExcluded  = []string{"TOTAL", "TVA", "SUMA", "PLATA", "REST", "TAXE", "SUBTOTAL",
		"CREDIT", "DEBIT", "CASIER", "NUMERAR", "CARD", "BON", "FISCAL"}

	cardWords = wordPatterns("VISA", "MASTERCARD", "CONTACTLESS", "CARD", "POS", "CREDIT")
	cashWords = wordPatterns("NUMERAR", "CASH", "BANI", "BAR")
)

var (
	minTotal     = decimal.RequireFromString("0.50")
	maxTotal     = decimal.RequireFromString("9999.99")
	likelyTotal  = decimal.NewFromInt(10)
	minFallback  = decimal.NewFromInt(5)
	maxVAT       = decimal.RequireFromString("99999.99")
	minVAT       = decimal.RequireFromString("0.01")
	idThreshold  = decimal.NewFromInt(100000)
	yearLowerBnd = decimal.NewFromInt(1900)
	yearUpperBnd = decimal.NewFromInt(2099)
)

// Extract normalizes raw OCR text and pulls structured fields out of it.
func Extract(raw string, lang Language) Result {
	if lang == "" {
		lang = LangAuto
	}
	text := Normalize(raw)
	// keyword matching runs on the diacritic-free text
	folded := Fold(text)
	if lang == LangAuto {
		lang = detectLanguage(folded)
	}

	res := Result{
		Text:       text,
		Language:   lang,
		Items:      []LineItem{},
		Confidence: map[string]float64{},
	}

	extractVendor(folded, &res)
	extractCUIs(folded, &res)
	extractDate(folded, &res)
	if t, ok := ExtractTime(folded); ok {
		res.Time = t
	}
	extractTotal(folded, lang, &res)
	extractVAT(folded, &res)
	extractReceiptNumber(folded, &res)
	res.PaymentMethod = detectPaymentMethod(folded)
	res.Items = extractItems(folded)

	res.Overall = overall(res.Confidence)
	res.Status = StatusReviewRequired
	if res.Overall > ReviewThreshold {
		res.Status = StatusCompleted
	}
	return res
}

func detectLanguage(folded string) Language {
	up := strings.ToUpper(folded)
	score := map[Language]int{}
	for _, w := range []string{"TOTAL DE PLATA", "TVA", "BON FISCAL", "NUMERAR", "FACTURA", "CUI", "C.I.F"} {
		score[LangRO] += strings.Count(up, w)
	}
	for _, w := range []string{"MWST", "SUMME", "GESAMT", "RECHNUNG", "BETRAG"} {
		score[LangDE] += strings.Count(up, w)
	}
	for _, w := range []string{"INVOICE", "AMOUNT DUE", "RECEIPT", "VAT", "GRAND TOTAL"} {
		score[LangEN] += strings.Count(up, w)
	}
	best, bestScore := LangRO, score[LangRO]
	for _, l := range []Language{LangDE, LangEN} {
		if score[l] > bestScore {
			best, bestScore = l, score[l]
		}
	}
	return best
}

func extractVendor(text string, res *Result) {
	for i, re := range vendorPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			res.VendorName = strings.TrimSpace(m[1])
			switch {
			case knownChain.MatchString(res.VendorName):
				res.Confidence["vendor_name"] = 0.9
			case i == 0:
				res.Confidence["vendor_name"] = 0.85
			default:
				res.Confidence["vendor_name"] = 0.7
			}
			return
		}
	}
	// first line that is not just numbers and punctuation
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) > 5 && strings.IndexFunc(line, isLetter) >= 0 {
			res.VendorName = line
			res.Confidence["vendor_name"] = 0.4
			return
		}
	}
}

func isLetter(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')
}

func extractCUIs(text string, res *Result) {
	clientSpan := clientCUIPattern.FindStringSubmatchIndex(text)
	if clientSpan != nil {
		res.ClientCUI = text[clientSpan[2]:clientSpan[3]]
		res.Confidence["client_cui"] = cuiConfidence(res.ClientCUI)
	}
	if m := clientNamePattern.FindStringSubmatch(text); m != nil {
		res.ClientName = strings.TrimSpace(m[1])
	}

	var fallback string
	for _, re := range vendorCUIPatterns {
		for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
			// skip the buyer's code
			if clientSpan != nil && loc[2] >= clientSpan[2] && loc[3] <= clientSpan[3] {
				continue
			}
			code := text[loc[2]:loc[3]]
			if cui.IsValid(code) {
				res.VendorCUI = code
				res.VendorCUIOK = true
				res.Confidence["vendor_cui"] = 0.95
				return
			}
			if fallback == "" {
				fallback = code
			}
		}
	}
	if fallback != "" {
		res.VendorCUI = fallback
		res.Confidence["vendor_cui"] = 0.4
		res.Warnings = append(res.Warnings, "vendor CUI failed checksum validation")
	}
}

func cuiConfidence(code string) float64 {
	if cui.IsValid(code) {
		return 0.95
	}
	return 0.4
}

func extractDate(text string, res *Result) {
	dates := ExtractDates(text)
	if len(dates) == 0 {
		return
	}
	d := dates[0]
	res.Date = &d
	res.Confidence["date"] = 0.9
	if !dmyDate.MatchString(text) && !ymdDate.MatchString(text) && !textDate.MatchString(text) {
		res.Confidence["date"] = 0.6
	}
}

func extractTotal(text string, lang Language, res *Result) {
	patterns := totalPatterns
	if extra, ok := foreignTotalPatterns[lang]; ok {
		patterns = append(append([]*regexp.Regexp{}, extra...), totalPatterns...)
	}

	var candidates []decimal.Decimal
	for _, re := range patterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			amt, ok := ParseAmount(m[1])
			if !ok || amt.LessThan(minTotal) || amt.GreaterThan(maxTotal) || isYearOrID(amt) {
				continue
			}
			candidates = append(candidates, amt)
		}
	}
	confidence := 0.85
	if len(candidates) == 0 {
		for _, m := range anyAmount.FindAllStringSubmatch(text, -1) {
			amt, err := decimal.NewFromString(m[1] + "." + m[2])
			if err != nil || amt.LessThan(minFallback) || amt.GreaterThan(maxTotal) || isYearOrID(amt) {
				continue
			}
			candidates = append(candidates, amt)
		}
		confidence = 0.5
	}
	if len(candidates) == 0 {
		return
	}

	total, repeated := voteTotal(candidates)
	if repeated {
		confidence = 0.95
	}
	res.Total = decimal.NewNullDecimal(total)
	res.Confidence["total"] = confidence
}

// voteTotal picks the most frequent candidate if it occurs more than once,
// otherwise the largest candidate of at least 10, otherwise the largest.
func voteTotal(candidates []decimal.Decimal) (decimal.Decimal, bool) {
	counts := map[string]int{}
	values := map[string]decimal.Decimal{}
	var keys []string
	for _, c := range candidates {
		k := c.StringFixed(2)
		if _, ok := counts[k]; !ok {
			keys = append(keys, k)
		}
		counts[k]++
		values[k] = c
	}
	// stable: on equal counts the larger amount wins
	sort.SliceStable(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return values[keys[i]].GreaterThan(values[keys[j]])
	})
	if counts[keys[0]] > 1 {
		return values[keys[0]], true
	}

	best := decimal.Zero
	found := false
	for _, c := range candidates {
		if c.GreaterThanOrEqual(likelyTotal) && c.GreaterThan(best) {
			best, found = c, true
		}
	}
	if found {
		return best, false
	}
	for _, c := range candidates {
		if c.GreaterThan(best) {
			best = c
		}
	}
	return best, false
}

func isYearOrID(amt decimal.Decimal) bool {
	whole := amt.Truncate(0)
	if whole.GreaterThanOrEqual(yearLowerBnd) && whole.LessThanOrEqual(yearUpperBnd) {
		return true
	}
	return whole.GreaterThanOrEqual(idThreshold) && whole.Equal(amt)
}

func extractVAT(text string, res *Result) {
	for _, re := range vatAmountPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			amt, ok := ParseAmount(m[1])
			if ok && amt.GreaterThanOrEqual(minVAT) && amt.LessThanOrEqual(maxVAT) {
				res.VATAmount = decimal.NewNullDecimal(amt)
				res.Confidence["vat_amount"] = 0.8
				break
			}
		}
	}
	for _, re := range vatRatePatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			rate, err := strconv.Atoi(m[1])
			if err == nil && rate >= 1 && rate <= 30 {
				res.VATRate = decimal.NewNullDecimal(decimal.NewFromInt(int64(rate)))
				res.Confidence["vat_rate"] = 0.8
				break
			}
		}
	}
	if res.Total.Valid && res.VATAmount.Valid && res.VATAmount.Decimal.GreaterThan(res.Total.Decimal) {
		res.Warnings = append(res.Warnings, "VAT amount exceeds total")
		res.Confidence["vat_amount"] = 0.3
	}
}

func extractReceiptNumber(text string, res *Result) {
	for _, re := range receiptPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			res.ReceiptNumber = m[1]
			res.Confidence["receipt_number"] = 0.8
			return
		}
	}
}

func detectPaymentMethod(text string) string {
	up := strings.ToUpper(text)
	for _, re := range cardWords {
		if re.MatchString(up) {
			return "card"
		}
	}
	for _, re := range cashWords {
		if re.MatchString(up) {
			return "cash"
		}
	}
	return ""
}

func wordPatterns(words ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(words))
	for _, w := range words {
		out = append(out, regexp.MustCompile(`\b`+regexp.QuoteMeta(w)+`\b`))
	}
	return out
}

func extractItems(text string) []LineItem {
	items := []LineItem{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if m := itemWithQty.FindStringSubmatch(line); m != nil {
			name := strings.TrimSpace(m[1])
			if excludedItem(name) {
				continue
			}
			qty, _ := ParseAmount(m[2])
			unit, _ := ParseAmount(m[3])
			price, _ := ParseAmount(m[4])
			items = append(items, LineItem{
				Name:      name,
				Quantity:  decimal.NewNullDecimal(qty),
				UnitPrice: decimal.NewNullDecimal(unit),
				Price:     price,
			})
			continue
		}
		if m := itemNamePrice.FindStringSubmatch(line); m != nil {
			name := strings.TrimSpace(m[1])
			price, ok := ParseAmount(m[2])
			if excludedItem(name) || !ok || price.LessThan(minVAT) || price.GreaterThan(maxTotal) {
				continue
			}
			items = append(items, LineItem{Name: name, Price: price})
		}
	}
	return items
}

func excludedItem(name string) bool {
	up := strings.ToUpper(name)
	for _, w := range itemExcluded {
		if strings.Contains(up, w) {
			return true
		}
	}
	return false
}

var fieldWeights = map[string]float64{
	"total":       0.35,
	"vendor_cui":  0.25,
	"date":        0.2,
	"vendor_name": 0.2,
}

func overall(conf map[string]float64) float64 {
	var sum float64
	for field, w := range fieldWeights {
		sum += conf[field] * w
	}
	return float64(int(sum*1000+0.5)) / 1000
}
