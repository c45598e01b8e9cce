package pricing

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Nestour97/dsp-scraper/internal/country"
	"github.com/Nestour97/dsp-scraper/logger"
)

// strongTokens is the ordered table of unambiguous currency markers.
// First matching pattern wins, so prefixed multi-character symbols come
// before the single-character ones they contain. Represented as data so
// the precedence order stays reviewable and testable.
//
// Deliberately absent: bare "$", "kr", "Rs", "₨" (ambiguous, resolved via
// territory default), "¥" (CN/JP special case), and the ISO code path
// (layer 2).
var strongTokens = []struct {
	re  *regexp.Regexp
	iso string
}{
	{regexp.MustCompile(`US\$`), "USD"},
	{regexp.MustCompile(`HK\$`), "HKD"},
	{regexp.MustCompile(`NT\$`), "TWD"},
	{regexp.MustCompile(`CA\$`), "CAD"},
	{regexp.MustCompile(`NZ\$`), "NZD"},
	{regexp.MustCompile(`A\$`), "AUD"},
	{regexp.MustCompile(`MX\$`), "MXN"},
	{regexp.MustCompile(`R\$`), "BRL"},
	{regexp.MustCompile(`RD\$`), "DOP"},
	{regexp.MustCompile(`N\$`), "NAD"},
	{regexp.MustCompile(`CN¥`), "CNY"},
	{regexp.MustCompile(`\bRMB\b`), "CNY"},
	{regexp.MustCompile(`S/\.?`), "PEN"},
	{regexp.MustCompile(`\bBs\.?`), "BOB"},
	{regexp.MustCompile(`\bKSh\b`), "KES"},
	{regexp.MustCompile(`\bTSh\b`), "TZS"},
	{regexp.MustCompile(`\bUSh\b`), "UGX"},
	{regexp.MustCompile(`\bRp\d|\bRp\b`), "IDR"},
	{regexp.MustCompile(`zł`), "PLN"},
	{regexp.MustCompile(`Kč`), "CZK"},
	{regexp.MustCompile(`€`), "EUR"},
	{regexp.MustCompile(`£`), "GBP"},
	{regexp.MustCompile(`₹`), "INR"},
	{regexp.MustCompile(`₩`), "KRW"},
	{regexp.MustCompile(`₫`), "VND"},
	{regexp.MustCompile(`฿`), "THB"},
	{regexp.MustCompile(`₺`), "TRY"},
	{regexp.MustCompile(`₪`), "ILS"},
	{regexp.MustCompile(`₴`), "UAH"},
	{regexp.MustCompile(`₦`), "NGN"},
	{regexp.MustCompile(`₱`), "PHP"},
	{regexp.MustCompile(`₲`), "PYG"},
	{regexp.MustCompile(`₵`), "GHS"},
	{regexp.MustCompile(`₡`), "CRC"},
	{regexp.MustCompile(`₽`), "RUB"},
	{regexp.MustCompile(`₸`), "KZT"},
	{regexp.MustCompile(`₼`), "AZN"},
	{regexp.MustCompile(`₾`), "GEL"},
	{regexp.MustCompile(`₭`), "LAK"},
	{regexp.MustCompile(`֏`), "AMD"},
}

// knownISO is the allow-list for the bare-ISO-code detection layer.
var knownISO = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "AUD": true, "CAD": true,
	"NZD": true, "SGD": true, "HKD": true, "TWD": true, "MXN": true,
	"ARS": true, "CLP": true, "COP": true, "PEN": true, "BOB": true,
	"NIO": true, "GTQ": true, "PYG": true, "UYU": true, "BRL": true,
	"ZAR": true, "NAD": true, "CHF": true, "NOK": true, "SEK": true,
	"DKK": true, "ISK": true, "PLN": true, "CZK": true, "HUF": true,
	"RON": true, "BGN": true, "RSD": true, "BAM": true, "MKD": true,
	"TRY": true, "ILS": true, "AED": true, "SAR": true, "QAR": true,
	"KWD": true, "BHD": true, "OMR": true, "JOD": true, "EGP": true,
	"MAD": true, "NGN": true, "KES": true, "GHS": true, "TZS": true,
	"UGX": true, "INR": true, "PKR": true, "LKR": true, "NPR": true,
	"BDT": true, "MYR": true, "IDR": true, "PHP": true, "VND": true,
	"THB": true, "KRW": true, "JPY": true, "CNY": true, "KZT": true,
	"UAH": true, "AZN": true, "GEL": true, "AMD": true,
}

var (
	isoCodeRe     = regexp.MustCompile(`[A-Z]{3}`)
	usdMarkerRe   = regexp.MustCompile(`US\$|\bUSD\b`)
	yenSymbolRe   = regexp.MustCompile(`[¥￥]`)
	tryAdjacentRe = regexp.MustCompile(`TRY\s?(\d+(?:[.,]\d+)?)|(\d+(?:[.,]\d+)?)\s?TRY`)
)

// ambiguous symbols that map to more than one currency; resolved via the
// territory default, never via the symbol itself.
var ambiguousSymbolRe = regexp.MustCompile(`\$|₨|(?i)\bkr\.?\b|\bRs\.?\b`)

// usdPeggedMarkets are the Gulf markets where the target pricing pages
// habitually quote a bare "$" meaning USD despite a non-dollar official
// currency.
var usdPeggedMarkets = map[string]bool{
	"KW": true, "SA": true, "AE": true, "QA": true, "BH": true, "OM": true,
}

// dollarCurrencies are currencies whose customary sign is "$"; when a
// territory defaults to one of these, a bare "$" needs no second-guessing.
var dollarCurrencies = map[string]bool{
	"USD": true, "AUD": true, "CAD": true, "NZD": true, "SGD": true,
	"HKD": true, "TWD": true, "MXN": true, "ARS": true, "CLP": true,
	"COP": true, "UYU": true, "BBD": true, "BSD": true, "BZD": true,
	"JMD": true, "TTD": true, "XCD": true, "LRD": true, "NAD": true,
	"BND": true, "FJD": true, "GYD": true, "SRD": true, "ZWL": true,
}

// dollarHeuristicThreshold: bare-"$" amounts at or below this are taken
// as USD in non-dollar markets. Empirically tuned, not provably correct.
var dollarHeuristicThreshold = decimal.NewFromInt(50)

// DollarStrategy disambiguates a bare "$" in a market whose default
// currency is not dollar-denominated. Swappable so the guess can be
// refined without touching the detection layers.
type DollarStrategy func(text, countryCode string, amount decimal.Decimal) (iso string, source Source, ok bool)

// Detector resolves currency markers in text using a layered strategy:
// strong tokens, bare ISO codes near digits, ambiguous symbols via
// territory default, then territory default alone.
type Detector struct {
	resolver *country.Resolver
	dollar   DollarStrategy
	log      *logger.Logger
}

// NewDetector creates a detector backed by the given territory resolver.
func NewDetector(resolver *country.Resolver) *Detector {
	d := &Detector{
		resolver: resolver,
		log:      logger.ForPipeline(),
	}
	d.dollar = d.defaultDollarStrategy
	return d
}

// SetDollarStrategy replaces the bare-"$" disambiguation heuristic.
func (d *Detector) SetDollarStrategy(s DollarStrategy) {
	d.dollar = s
}

// Detect returns the best-guess ISO-4217 currency for a text span.
// amount is the numeric value the marker qualifies, used only by the
// dollar heuristic; pass decimal.Decimal{} when unknown.
func (d *Detector) Detect(text, countryCode string, amount decimal.Decimal) CurrencyResolution {
	// Layer 1: strong tokens, first match in table order wins.
	for _, tok := range strongTokens {
		if tok.re.MatchString(text) {
			return CurrencyResolution{ISOCode: tok.iso, Source: SourceSymbol}
		}
	}

	// ¥ alone is insufficient: CNY in China, JPY in Japan, territory
	// default elsewhere.
	if yenSymbolRe.MatchString(text) {
		switch strings.ToUpper(countryCode) {
		case "CN":
			return CurrencyResolution{ISOCode: "CNY", Source: SourceSymbol}
		case "JP":
			return CurrencyResolution{ISOCode: "JPY", Source: SourceSymbol}
		default:
			return CurrencyResolution{ISOCode: d.resolver.DefaultCurrency(countryCode), Source: SourceTerritoryDefault}
		}
	}

	// Layer 2: bare ISO code adjacent to a digit. Case-sensitive so the
	// English word "Try" never reads as TRY.
	if iso, ok := d.isoCodeNearDigit(text); ok {
		return CurrencyResolution{ISOCode: iso, Source: SourceCode}
	}

	// Layer 3: ambiguous symbols resolve via the territory default.
	if loc := ambiguousSymbolRe.FindString(text); loc != "" {
		def := d.resolver.DefaultCurrency(countryCode)
		if strings.Contains(text, "$") && !dollarCurrencies[def] {
			if iso, source, ok := d.dollar(text, countryCode, amount); ok {
				return CurrencyResolution{ISOCode: iso, Source: source}
			}
		}
		return CurrencyResolution{ISOCode: def, Source: SourceAmbiguousDefault}
	}

	// Layer 4: no marker at all.
	return CurrencyResolution{ISOCode: d.resolver.DefaultCurrency(countryCode), Source: SourceTerritoryDefault}
}

// isoCodeNearDigit finds an allow-listed uppercase ISO code within 6
// characters of a digit. TRY additionally requires an immediately
// adjacent amount that looks monetary (has a fractional part or is at
// least 5), guarding against all-caps "TRY 1 MONTH FREE" copy.
func (d *Detector) isoCodeNearDigit(text string) (string, bool) {
	for _, loc := range isoCodeRe.FindAllStringIndex(text, -1) {
		code := text[loc[0]:loc[1]]
		if !knownISO[code] {
			continue
		}
		if isLetterAt(text, loc[0]-1) || isLetterAt(text, loc[1]) {
			continue
		}
		if !digitWithin(text, loc[0], loc[1], 6) {
			continue
		}
		if code == "TRY" && !tryLooksMonetary(text) {
			continue
		}
		return code, true
	}
	return "", false
}

func tryLooksMonetary(text string) bool {
	m := tryAdjacentRe.FindStringSubmatch(text)
	if m == nil {
		return false
	}
	num := m[1]
	if num == "" {
		num = m[2]
	}
	val, ok := NormalizeNumber(num)
	if !ok {
		return false
	}
	return strings.ContainsAny(num, ".,") || val.GreaterThanOrEqual(decimal.NewFromInt(5))
}

// defaultDollarStrategy implements the documented bare-"$" guess: an
// explicit US$/USD marker nearby, then the Gulf-market allow-list, then
// "small amounts are USD". Every branch is a heuristic and is logged.
func (d *Detector) defaultDollarStrategy(text, countryCode string, amount decimal.Decimal) (string, Source, bool) {
	if usdMarkerRe.MatchString(text) {
		return "USD", SourceContextOverride, true
	}
	cc := strings.ToUpper(countryCode)
	if usdPeggedMarkets[cc] {
		logger.Heuristic("dollar_gulf_market", logger.Fields{"country": cc})
		return "USD", SourceHeuristicOverride, true
	}
	if amount.IsPositive() && amount.LessThanOrEqual(dollarHeuristicThreshold) {
		logger.Heuristic("dollar_small_amount", logger.Fields{
			"country": cc,
			"amount":  amount.String(),
		})
		return "USD", SourceHeuristicOverride, true
	}
	return "", "", false
}

func isLetterAt(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return false
	}
	c := s[i]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func digitWithin(s string, start, end, dist int) bool {
	lo := start - dist
	if lo < 0 {
		lo = 0
	}
	hi := end + dist
	if hi > len(s) {
		hi = len(s)
	}
	for i := lo; i < start; i++ {
		if s[i] >= '0' && s[i] <= '9' {
			return true
		}
	}
	for i := end; i < hi; i++ {
		if s[i] >= '0' && s[i] <= '9' {
			return true
		}
	}
	return false
}
