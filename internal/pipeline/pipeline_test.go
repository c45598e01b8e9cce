package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nestour97/dsp-scraper/internal/country"
	"github.com/Nestour97/dsp-scraper/internal/model"
	"github.com/Nestour97/dsp-scraper/internal/plan"
	"github.com/Nestour97/dsp-scraper/internal/pricing"
	"github.com/Nestour97/dsp-scraper/internal/translate"
)

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	resolver := country.NewResolver()
	return New(
		plan.NewClassifier(translate.Noop{}),
		pricing.NewSelector(pricing.NewDetector(resolver)),
		resolver,
	)
}

type stubSecondary struct {
	value decimal.Decimal
	iso   string
	err   error
	calls int
}

func (s *stubSecondary) PriceFor(context.Context, string, string, model.Tier) (decimal.Decimal, string, error) {
	s.calls++
	return s.value, s.iso, s.err
}

func TestExtractRows(t *testing.T) {
	p := newTestPipeline(t)

	in := Input{
		RunID:       "run-1",
		Provider:    "spotify",
		CountryCode: "US",
		SourceURL:   "https://www.spotify.com/us/premium/",
		HasPage:     true,
		Cards: []Card{
			{PlanName: "Premium Individual", Text: "Premium Individual $10.99 per month", Source: "plan_card"},
			{PlanName: "Premium Student", Text: "Premium Student $5.99 per month", Source: "plan_card"},
		},
	}

	rows, diags := p.Extract(context.Background(), in, Options{Mode: ModeFull})
	require.Len(t, rows, 2)
	assert.Empty(t, diags)

	byTier := map[model.Tier]model.PriceRow{}
	for _, r := range rows {
		byTier[r.Plan] = r
	}

	indiv := byTier[model.TierIndividual]
	require.NotNil(t, indiv.PriceValue)
	assert.Equal(t, "10.99", indiv.PriceValue.String())
	assert.Equal(t, "USD", indiv.Currency)
	assert.Equal(t, "$10.99", indiv.PriceDisplay)
	assert.Equal(t, "United States", indiv.Country)
	assert.Equal(t, "run-1", indiv.RunID)
	assert.Equal(t, "https://www.spotify.com/us/premium/", indiv.SourceURL)

	student := byTier[model.TierStudent]
	require.NotNil(t, student.PriceValue)
	assert.Equal(t, "5.99", student.PriceValue.String())
}

func TestExtractDiagnosticOnPromoOnlyCard(t *testing.T) {
	p := newTestPipeline(t)

	in := Input{
		Provider:    "spotify",
		CountryCode: "US",
		Cards: []Card{
			{PlanName: "Premium", Text: "Try 1 month free", Source: "plan_card"},
		},
	}

	rows, diags := p.Extract(context.Background(), in, Options{Mode: ModeFull})
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].PriceValue)

	require.Len(t, diags, 1)
	assert.Equal(t, model.ReasonNoPriceMatches, diags[0].Reason)
	assert.Equal(t, "Premium", diags[0].Plan)
}

func TestExtractDropsUnclassifiableCards(t *testing.T) {
	p := newTestPipeline(t)

	in := Input{
		Provider:    "netflix",
		CountryCode: "US",
		Cards: []Card{
			{PlanName: "Mega 4K", Text: "$9.99 per month", Source: "plan_card"},
		},
	}

	rows, diags := p.Extract(context.Background(), in, Options{Mode: ModeFull})
	assert.Empty(t, rows)
	assert.Empty(t, diags)
}

func TestExtractPresetTier(t *testing.T) {
	p := newTestPipeline(t)

	in := Input{
		Provider:    "icloud",
		CountryCode: "US",
		Cards: []Card{
			{Tier: model.Tier("50 GB"), Text: "50 GB: $0.99 per month", Source: "support_article"},
		},
	}

	rows, _ := p.Extract(context.Background(), in, Options{Mode: ModeFull})
	require.Len(t, rows, 1)
	assert.Equal(t, model.Tier("50 GB"), rows[0].Plan)
	require.NotNil(t, rows[0].PriceValue)
	assert.Equal(t, "0.99", rows[0].PriceValue.String())
}

func TestExtractSemanticFallback(t *testing.T) {
	p := newTestPipeline(t)

	page := "Individual plan costs $10.99 per month." +
		strings.Repeat(" lorem ipsum dolor", 25) +
		" Family plan costs $16.99 per month."
	in := Input{
		Provider:     "applemusic",
		CountryCode:  "US",
		FullPageText: page,
	}

	rows, _ := p.Extract(context.Background(), in, Options{Mode: ModeFull})
	require.Len(t, rows, 2)

	byTier := map[model.Tier]model.PriceRow{}
	for _, r := range rows {
		byTier[r.Plan] = r
		assert.Equal(t, "semantic_fallback", r.Source)
	}
	require.NotNil(t, byTier[model.TierIndividual].PriceValue)
	assert.Equal(t, "10.99", byTier[model.TierIndividual].PriceValue.String())
	require.NotNil(t, byTier[model.TierFamily].PriceValue)
	assert.Equal(t, "16.99", byTier[model.TierFamily].PriceValue.String())
}

func TestExtractImplausibleOverride(t *testing.T) {
	in := Input{
		Provider:    "applemusic",
		CountryCode: "US",
		Cards: []Card{
			{PlanName: "Individual", Text: "Individual $4.99 per month", Source: "plan_card"},
			{PlanName: "Student", Text: "Student $5.99 per month", Source: "plan_card"},
		},
	}

	t.Run("secondary source replaces the value", func(t *testing.T) {
		p := newTestPipeline(t)
		sec := &stubSecondary{value: decimal.RequireFromString("10.99"), iso: "USD"}
		p.SetSecondarySource(sec)

		rows, diags := p.Extract(context.Background(), in, Options{Mode: ModeFull})
		assert.Empty(t, diags)
		assert.Equal(t, 1, sec.calls)

		for _, r := range rows {
			if r.Plan == model.TierIndividual {
				require.NotNil(t, r.PriceValue)
				assert.Equal(t, "10.99", r.PriceValue.String())
				assert.Equal(t, "secondary_override", r.Source)
			}
		}
	})

	t.Run("failed lookup keeps the value and flags it", func(t *testing.T) {
		p := newTestPipeline(t)
		p.SetSecondarySource(&stubSecondary{err: errors.New("unavailable")})

		rows, diags := p.Extract(context.Background(), in, Options{Mode: ModeFull})
		require.Len(t, diags, 1)
		assert.Equal(t, model.ReasonImplausibleOverride, diags[0].Reason)

		for _, r := range rows {
			if r.Plan == model.TierIndividual {
				require.NotNil(t, r.PriceValue)
				assert.Equal(t, "4.99", r.PriceValue.String())
			}
		}
	})

	t.Run("plausible prices are untouched", func(t *testing.T) {
		p := newTestPipeline(t)
		sec := &stubSecondary{value: decimal.RequireFromString("10.99"), iso: "USD"}
		p.SetSecondarySource(sec)

		ok := Input{
			Provider:    "applemusic",
			CountryCode: "US",
			Cards: []Card{
				{PlanName: "Individual", Text: "Individual $10.99 per month", Source: "plan_card"},
				{PlanName: "Student", Text: "Student $5.99 per month", Source: "plan_card"},
			},
		}
		_, diags := p.Extract(context.Background(), ok, Options{Mode: ModeFull})
		assert.Empty(t, diags)
		assert.Equal(t, 0, sec.calls)
	})
}

func TestOptionsCountryFilter(t *testing.T) {
	p := newTestPipeline(t)

	in := Input{
		Provider:    "spotify",
		CountryCode: "DE",
		Cards:       []Card{{PlanName: "Individual", Text: "9,99 € pro Monat", Source: "plan_card"}},
	}

	rows, diags := p.Extract(context.Background(), in, Options{Mode: ModeTest, CountryFilter: []string{"US"}})
	assert.Empty(t, rows)
	assert.Empty(t, diags)

	rows, _ = p.Extract(context.Background(), in, Options{Mode: ModeTest, CountryFilter: []string{"DE"}})
	assert.Len(t, rows, 1)
}

func TestSortRows(t *testing.T) {
	rows := []model.PriceRow{
		{Country: "Germany", Plan: model.TierFamily},
		{Country: "France", Plan: model.TierStudent},
		{Country: "Germany", Plan: model.TierIndividual},
		{Country: "France", Plan: model.TierIndividual},
		{Country: "France", Plan: model.Tier("50 GB")},
	}

	SortRows(rows)

	assert.Equal(t, "France", rows[0].Country)
	assert.Equal(t, model.TierStudent, rows[0].Plan)
	assert.Equal(t, model.TierIndividual, rows[1].Plan)
	assert.Equal(t, model.Tier("50 GB"), rows[2].Plan)
	assert.Equal(t, "Germany", rows[3].Country)
	assert.Equal(t, model.TierIndividual, rows[3].Plan)
	assert.Equal(t, model.TierFamily, rows[4].Plan)
}