// Package secondary supplies fallback prices from a curated reference
// table, consulted when a scraped value fails the plausibility check.
package secondary

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Nestour97/dsp-scraper/internal/model"
	"github.com/Nestour97/dsp-scraper/internal/pipeline"
)

// entry is one reference price as stored in the JSON table.
type entry struct {
	Provider string `json:"provider"`
	Country  string `json:"country"`
	Plan     string `json:"plan"`
	Price    string `json:"price"`
	Currency string `json:"currency"`
}

// ReferenceSource answers PriceFor lookups from an in-memory table
// loaded once at startup. The table is maintained by hand from
// provider press releases and billing receipts.
type ReferenceSource struct {
	prices map[string]priced
}

type priced struct {
	value    decimal.Decimal
	currency string
}

var _ pipeline.SecondarySource = (*ReferenceSource)(nil)

// LoadReference reads the JSON reference table at path.
func LoadReference(path string) (*ReferenceSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading reference table: %w", err)
	}
	return ParseReference(data)
}

// ParseReference builds a source from raw JSON, a flat array of
// {provider, country, plan, price, currency} objects.
func ParseReference(data []byte) (*ReferenceSource, error) {
	var entries []entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing reference table: %w", err)
	}

	src := &ReferenceSource{prices: make(map[string]priced, len(entries))}
	for _, e := range entries {
		value, err := decimal.NewFromString(e.Price)
		if err != nil {
			return nil, fmt.Errorf("reference price for %s/%s/%s: %w", e.Provider, e.Country, e.Plan, err)
		}
		src.prices[key(e.Provider, e.Country, model.Tier(e.Plan))] = priced{
			value:    value,
			currency: strings.ToUpper(e.Currency),
		}
	}
	return src, nil
}

// PriceFor returns the reference price for the given market and tier.
func (s *ReferenceSource) PriceFor(_ context.Context, provider, countryCode string, tier model.Tier) (decimal.Decimal, string, error) {
	p, ok := s.prices[key(provider, countryCode, tier)]
	if !ok {
		return decimal.Zero, "", fmt.Errorf("no reference price for %s/%s/%s", provider, countryCode, tier)
	}
	return p.value, p.currency, nil
}

func key(provider, countryCode string, tier model.Tier) string {
	return strings.ToLower(provider) + "|" + strings.ToUpper(countryCode) + "|" + strings.ToLower(string(tier))
}
