package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nestour97/dsp-scraper/internal/country"
	"github.com/Nestour97/dsp-scraper/internal/model"
)

func newTestSelector(t *testing.T) *Selector {
	t.Helper()
	return NewSelector(NewDetector(country.NewResolver()))
}

func TestSelectStandardPrice(t *testing.T) {
	s := newTestSelector(t)

	tests := []struct {
		name     string
		text     string
		country  string
		wantVal  string
		wantISO  string
		wantPlcy string
	}{
		{
			name:     "promo then standard",
			text:     "3 months for $0.99, then $10.99/month",
			country:  "US",
			wantVal:  "10.99",
			wantISO:  "USD",
			wantPlcy: "monthly_after",
		},
		{
			name:     "french promo with zero intro",
			text:     "0 € pendant 1 mois, puis 10,99 €/mois",
			country:  "FR",
			wantVal:  "10.99",
			wantISO:  "EUR",
			wantPlcy: "monthly_after",
		},
		{
			name:     "tenge with space grouping",
			text:     "₸1 490,00 / month",
			country:  "KZ",
			wantVal:  "1490",
			wantISO:  "KZT",
			wantPlcy: "monthly_no_intro",
		},
		{
			name:     "plain monthly line",
			text:     "Premium Individual €10.99 al mes",
			country:  "ES",
			wantVal:  "10.99",
			wantISO:  "EUR",
			wantPlcy: "monthly_no_intro",
		},
		{
			name:     "pivot without monthly wording",
			text:     "€0.99 for 3 weeks, then €9.99",
			country:  "DE",
			wantVal:  "9.99",
			wantISO:  "EUR",
			wantPlcy: "after_pivot",
		},
		{
			name:     "no markers picks largest",
			text:     "Basic $4.99 Premium $9.99",
			country:  "US",
			wantVal:  "9.99",
			wantISO:  "USD",
			wantPlcy: "largest_value",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, reason := s.Select(tt.text, tt.country)
			require.Empty(t, reason)
			require.NotNil(t, sel)
			assert.Equal(t, tt.wantVal, sel.Candidate.NumericValue.String())
			assert.Equal(t, tt.wantISO, sel.Currency.ISOCode)
			assert.Equal(t, tt.wantPlcy, sel.Policy)
		})
	}
}

func TestSelectFailureReasons(t *testing.T) {
	s := newTestSelector(t)

	tests := []struct {
		name       string
		text       string
		country    string
		wantReason string
	}{
		{
			name:       "no prices at all",
			text:       "Premium plan, cancel anytime",
			country:    "US",
			wantReason: model.ReasonNoPriceMatches,
		},
		{
			name:       "only promotional prices",
			text:       "Try 1 month free at $5.49",
			country:    "US",
			wantReason: model.ReasonOnlyIntroPrices,
		},
		{
			name:       "zero amounts are not prices",
			text:       "0 € pendant 3 mois",
			country:    "FR",
			wantReason: model.ReasonNoPriceMatches,
		},
		{
			name:       "bare month count is not a price",
			text:       "Free for 3 months",
			country:    "US",
			wantReason: model.ReasonNoPriceMatches,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, reason := s.Select(tt.text, tt.country)
			assert.Nil(t, sel)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}

// A price whose currency cannot be resolved is still returned so the
// caller can emit it with a diagnostic instead of losing the value.
func TestSelectCurrencyUnresolved(t *testing.T) {
	s := newTestSelector(t)

	sel, reason := s.Select("99 kr monthly", "ZX")
	assert.Equal(t, model.ReasonCurrencyUnresolved, reason)
	require.NotNil(t, sel)
	assert.Equal(t, "99", sel.Candidate.NumericValue.String())
	assert.Empty(t, sel.Currency.ISOCode)
}

// The winner's currency resolution carries provenance for auditing.
func TestSelectCurrencyProvenance(t *testing.T) {
	s := newTestSelector(t)

	sel, reason := s.Select("₸1 490,00 / month", "KZ")
	require.Empty(t, reason)
	assert.Equal(t, SourceSymbol, sel.Currency.Source)

	sel, reason = s.Select("99 kr/månad", "SE")
	require.Empty(t, reason)
	assert.Equal(t, "SEK", sel.Currency.ISOCode)
	assert.Equal(t, SourceAmbiguousDefault, sel.Currency.Source)
}
