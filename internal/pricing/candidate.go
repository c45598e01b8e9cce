// Package pricing implements the price-extraction core: scanning noisy
// plan-card text for currency+number tokens, normalizing localized
// numerals, resolving ambiguous currency markers, and picking the
// recurring monthly price out of promotional copy.
package pricing

import "github.com/shopspring/decimal"

// PriceCandidate is a detected currency+number occurrence within a text
// block. Candidates live only for the duration of one scan.
type PriceCandidate struct {
	// RawToken is the matched substring, e.g. "$10.99" or "10,99 €".
	RawToken string

	// NumericValue is the normalized amount; HasValue is false when the
	// number part could not be parsed.
	NumericValue decimal.Decimal
	HasValue     bool

	// CurrencyRaw is the literal symbol or code matched, e.g. "$" or "SAR".
	CurrencyRaw string

	// Start and End are byte offsets into the normalized source text.
	Start int
	End   int

	// ContextWindow is the surrounding text used for contextual scoring.
	ContextWindow string
}

// Source records which layer of currency detection produced a resolution.
// Used for debugging and audit, never for business-logic branching.
type Source string

const (
	SourceSymbol            Source = "symbol"
	SourceCode              Source = "code"
	SourceAmbiguousDefault  Source = "ambiguous_default"
	SourceTerritoryDefault  Source = "territory_default"
	SourceContextOverride   Source = "context_override"
	SourceHeuristicOverride Source = "heuristic_override"
)

// CurrencyResolution is the output of currency detection.
type CurrencyResolution struct {
	// ISOCode is the resolved ISO-4217 code, or "" when undetermined.
	ISOCode string

	// Source is the provenance of the resolution.
	Source Source
}
