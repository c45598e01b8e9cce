// Package country maps ISO-3166 territories to display names and default
// currencies. The authoritative source is the CLDR data shipped with
// golang.org/x/text; a curated override table takes precedence for
// territories where the pricing pages do not bill in the official currency.
package country

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// currencyOverrides wins over the CLDR lookup. Entries exist because the
// legally accurate territory currency differs from what the target pricing
// pages actually display: dollarized storefronts, euro-using
// microstates CLDR maps oddly, and scraper policy decisions.
var currencyOverrides = map[string]string{
	// Apple and Spotify bill these storefronts in USD regardless of the
	// official local currency.
	"AR": "USD",
	"TL": "USD",
	"EC": "USD",
	"SV": "USD",
	"ZW": "USD",
	// Euro adopters and microstates.
	"XK": "EUR",
	"ME": "EUR",
	"AD": "EUR",
	"MC": "EUR",
	"SM": "EUR",
	"VA": "EUR",
	// Liechtenstein uses the Swiss franc.
	"LI": "CHF",
}

// Resolver resolves territory defaults. The zero value is not usable;
// construct with NewResolver.
type Resolver struct {
	overrides map[string]string
}

// NewResolver creates a resolver with the curated override table.
func NewResolver() *Resolver {
	return &Resolver{overrides: currencyOverrides}
}

// NewResolverWithOverrides creates a resolver with a custom override table,
// used in tests and for per-DSP policy adjustments.
func NewResolverWithOverrides(overrides map[string]string) *Resolver {
	merged := make(map[string]string, len(currencyOverrides)+len(overrides))
	for k, v := range currencyOverrides {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[strings.ToUpper(k)] = v
	}
	return &Resolver{overrides: merged}
}

// DefaultCurrency returns the ISO-4217 currency for a territory, or "" when
// the territory is unrecognized. Override table first, CLDR second.
//
// Passing anything but a 2-letter code is a programming error and panics.
func (r *Resolver) DefaultCurrency(countryCode string) string {
	mustAlpha2(countryCode)
	code := strings.ToUpper(countryCode)

	if iso, ok := r.overrides[code]; ok {
		return iso
	}

	region, err := language.ParseRegion(code)
	if err != nil {
		return ""
	}
	unit, ok := currency.FromRegion(region)
	if !ok {
		return ""
	}
	return unit.String()
}

// Name returns the English display name for a territory, falling back to
// the code itself when CLDR has no entry.
func (r *Resolver) Name(countryCode string) string {
	mustAlpha2(countryCode)
	code := strings.ToUpper(countryCode)

	region, err := language.ParseRegion(code)
	if err != nil {
		return code
	}
	if name := display.English.Regions().Name(region); name != "" {
		return name
	}
	return code
}

// HasOverride reports whether the territory's currency comes from the
// curated table rather than CLDR.
func (r *Resolver) HasOverride(countryCode string) bool {
	mustAlpha2(countryCode)
	_, ok := r.overrides[strings.ToUpper(countryCode)]
	return ok
}

func mustAlpha2(code string) {
	if len(code) != 2 {
		panic(fmt.Sprintf("country: code %q is not ISO-3166 alpha-2", code))
	}
	for _, r := range code {
		if !unicode.IsLetter(r) {
			panic(fmt.Sprintf("country: code %q is not ISO-3166 alpha-2", code))
		}
	}
}
