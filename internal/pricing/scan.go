package pricing

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/Nestour97/dsp-scraper/helpers"
)

// contextRadius is how many bytes of surrounding text each candidate
// carries for contextual scoring.
const contextRadius = 80

const (
	// numberPat accepts digit groups separated by period, comma or space
	// (thousands like "1 490,00") or a plain number with one decimal
	// separator.
	numberPat = `(?:\d{1,3}(?:[ .,]\d{3})+(?:[.,]\d{1,2})?|\d+(?:[.,]\d+)?)`

	// currencyPat accepts prefixed multi-character symbols, any Unicode
	// currency sign, the ambiguous letter symbols, and 3-letter ISO
	// codes. Multi-character forms come first so they win the match.
	currencyPat = `(?:US\$|HK\$|NT\$|CA\$|NZ\$|A\$|MX\$|R\$|RD\$|N\$|CN¥|RMB|S/\.?|Bs\.?|KSh|TSh|USh|Rp|zł|Kč|kr\.?|Rs\.?|₨|\p{Sc}|[A-Z]{3})`
)

var (
	// pairRe matches currency-then-number or number-then-currency with at
	// most one space between them.
	pairRe = regexp.MustCompile(`(` + currencyPat + `) ?(` + numberPat + `)|(` + numberPat + `) ?(` + currencyPat + `)`)

	// stitchSeparatorRe repairs numbers that DOM flattening broke apart:
	// "8 . 500" -> "8.500".
	stitchSeparatorRe = regexp.MustCompile(`(\d) ?([.,]) ?(\d)`)

	// stitchSymbolRe closes the gap between a currency sign and its
	// number: "$ 8" -> "$8".
	stitchSymbolRe = regexp.MustCompile(`(\p{Sc}) +(\d)`)
)

// tryPlausibleMinimum guards the TRY ISO code against English "try": a
// bare integer below this next to "TRY" is treated as text, not money.
var tryPlausibleMinimum = decimal.NewFromInt(5)

// NormalizeScanText applies the scanner's pre-pass: whitespace collapse
// plus re-stitching of numbers and symbol gaps. Exposed because candidate
// positions refer to this normalized form.
func NormalizeScanText(text string) string {
	s := helpers.CleanSpaces(text)
	s = stitchSeparatorRe.ReplaceAllString(s, "$1$2$3")
	s = stitchSymbolRe.ReplaceAllString(s, "$1$2")
	return s
}

// ScanPriceTokens scans a block of text for all currency+number token
// pairs in either order, returning candidates in first-seen order with
// overlapping matches deduplicated.
func ScanPriceTokens(text string) []PriceCandidate {
	normalized := NormalizeScanText(text)

	var candidates []PriceCandidate
	lastEnd := -1
	for _, m := range pairRe.FindAllStringSubmatchIndex(normalized, -1) {
		if m[0] < lastEnd {
			continue
		}

		var curStart, curEnd, numStart, numEnd int
		if m[2] >= 0 {
			curStart, curEnd, numStart, numEnd = m[2], m[3], m[4], m[5]
		} else {
			numStart, numEnd, curStart, curEnd = m[6], m[7], m[8], m[9]
		}

		currencyRaw := normalized[curStart:curEnd]
		if !plausibleCurrencyToken(currencyRaw, normalized[numStart:numEnd]) {
			continue
		}

		value, hasValue := NormalizeNumber(normalized[numStart:numEnd])
		candidates = append(candidates, PriceCandidate{
			RawToken:      strings.TrimSpace(normalized[m[0]:m[1]]),
			NumericValue:  value,
			HasValue:      hasValue,
			CurrencyRaw:   currencyRaw,
			Start:         m[0],
			End:           m[1],
			ContextWindow: contextWindow(normalized, m[0], m[1]),
		})
		lastEnd = m[1]
	}

	return candidates
}

// plausibleCurrencyToken filters pair matches whose "currency" part is a
// random uppercase trigram ("REE 3" out of "FREE 3") or the TRY code in a
// non-monetary context.
func plausibleCurrencyToken(cur, num string) bool {
	if len(cur) == 3 && cur == strings.ToUpper(cur) && isAlpha3(cur) {
		if !knownISO[cur] {
			return false
		}
		if cur == "TRY" {
			val, ok := NormalizeNumber(num)
			if !ok {
				return false
			}
			if !strings.ContainsAny(num, ".,") && val.LessThan(tryPlausibleMinimum) {
				return false
			}
		}
	}
	return true
}

func isAlpha3(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}

// contextWindow extracts ±contextRadius bytes around a match, clamped to
// rune boundaries.
func contextWindow(s string, start, end int) string {
	lo := start - contextRadius
	if lo < 0 {
		lo = 0
	}
	for lo > 0 && !utf8.RuneStart(s[lo]) {
		lo--
	}
	hi := end + contextRadius
	if hi > len(s) {
		hi = len(s)
	}
	for hi < len(s) && !utf8.RuneStart(s[hi]) {
		hi++
	}
	return s[lo:hi]
}
