package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tier is a canonical subscription tier. Localized plan labels are
// normalized into one of these before a row is emitted. iCloud+ storage
// plans keep their size label ("50 GB", "2 TB") as the tier.
type Tier string

const (
	TierStudent    Tier = "Student"
	TierIndividual Tier = "Individual"
	TierFamily     Tier = "Family"
	TierDuo        Tier = "Duo"
	TierBasic      Tier = "Basic"
	TierStandard   Tier = "Standard"
	TierPremium    Tier = "Premium"
	TierVoice      Tier = "Voice"
	TierOther      Tier = "Other"
)

// tierOrder fixes the output ordering of canonical tiers within a country.
var tierOrder = map[Tier]int{
	TierStudent:    0,
	TierIndividual: 1,
	TierFamily:     2,
	TierDuo:        3,
	TierBasic:      4,
	TierStandard:   5,
	TierPremium:    6,
	TierVoice:      7,
}

// Order returns the sort position of the tier. Unknown tiers (including
// iCloud+ storage labels) sort after the canonical ones, alphabetically.
func (t Tier) Order() int {
	if o, ok := tierOrder[t]; ok {
		return o
	}
	return len(tierOrder)
}

// PriceRow is the pipeline's final output unit, one per (country, plan).
type PriceRow struct {
	RunID          string           `json:"run_id"`
	Provider       string           `json:"provider"`
	Country        string           `json:"country"`
	CountryCode    string           `json:"country_code"`
	Plan           Tier             `json:"plan"`
	Currency       string           `json:"currency"`
	CurrencyRaw    string           `json:"currency_raw"`
	PriceDisplay   string           `json:"price_display"`
	PriceValue     *decimal.Decimal `json:"price_value,omitempty"`
	Source         string           `json:"source"`
	SourceURL      string           `json:"source_url"`
	HasPage        bool             `json:"has_page"`
	Redirected     bool             `json:"redirected"`
	RedirectedTo   string           `json:"redirected_to,omitempty"`
	RedirectReason string           `json:"redirect_reason,omitempty"`
	ScrapedAt      time.Time        `json:"scraped_at"`
}

// Diagnostic records a failure to resolve a price or currency so
// downstream tooling can audit coverage gaps.
type Diagnostic struct {
	RunID       string    `json:"run_id"`
	Provider    string    `json:"provider"`
	Country     string    `json:"country"`
	CountryCode string    `json:"country_code"`
	Plan        string    `json:"plan"`
	URL         string    `json:"url"`
	Reason      string    `json:"reason"`
	Snippet     string    `json:"snippet,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Diagnostic reasons emitted by the pipeline.
const (
	ReasonNoPriceMatches      = "no_price_matches"
	ReasonOnlyIntroPrices     = "only_intro_prices_found"
	ReasonCurrencyUnresolved  = "currency_unresolved"
	ReasonCountryFailed       = "country_failed"
	ReasonImplausibleOverride = "implausible_price_override_failed"
)

// ExportColumns is the CSV/spreadsheet column set produced by the
// aggregation layer.
var ExportColumns = []string{
	"Country",
	"Country Code",
	"Currency",
	"Currency Raw",
	"Plan",
	"Price Display",
	"Price Value",
	"Source",
	"Redirected",
	"Redirected To",
	"Redirect Reason",
	"Source URL",
	"Has Page",
}
