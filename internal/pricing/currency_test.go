package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nestour97/dsp-scraper/internal/country"
)

func newTestDetector(t *testing.T) *Detector {
	t.Helper()
	return NewDetector(country.NewResolver())
}

func amt(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestDetectStrongTokens(t *testing.T) {
	d := newTestDetector(t)

	tests := []struct {
		name    string
		text    string
		country string
		wantISO string
	}{
		{"prefixed dollar beats bare dollar", "US$5.99 per month", "AR", "USD"},
		{"brazilian real", "R$ 19,90/mês", "BR", "BRL"},
		{"euro sign", "€10.99 monthly", "DE", "EUR"},
		{"tenge sign", "₸1 490,00 / month", "KZ", "KZT"},
		{"zloty", "19,99 zł miesięcznie", "PL", "PLN"},
		{"renminbi prefix beats yen sign", "CN¥10/月", "CN", "CNY"},
		{"won", "₩10,900", "KR", "KRW"},
		{"rupiah needs digit or boundary", "Rp54.990", "ID", "IDR"},
		{"lira sign", "₺57,99", "TR", "TRY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Detect(tt.text, tt.country, decimal.Decimal{})
			assert.Equal(t, tt.wantISO, got.ISOCode)
			assert.Equal(t, SourceSymbol, got.Source)
		})
	}
}

func TestDetectYenSign(t *testing.T) {
	d := newTestDetector(t)

	assert.Equal(t, CurrencyResolution{ISOCode: "JPY", Source: SourceSymbol},
		d.Detect("¥1,080/月", "JP", decimal.Decimal{}))
	assert.Equal(t, CurrencyResolution{ISOCode: "CNY", Source: SourceSymbol},
		d.Detect("¥15/月", "CN", decimal.Decimal{}))

	// Elsewhere the sign proves nothing, fall back to the territory.
	got := d.Detect("¥10", "US", decimal.Decimal{})
	assert.Equal(t, "USD", got.ISOCode)
	assert.Equal(t, SourceTerritoryDefault, got.Source)
}

func TestDetectISOCode(t *testing.T) {
	d := newTestDetector(t)

	got := d.Detect("10.99 SAR per month", "SA", decimal.Decimal{})
	assert.Equal(t, "SAR", got.ISOCode)
	assert.Equal(t, SourceCode, got.Source)

	got = d.Detect("USD 9.99", "US", decimal.Decimal{})
	assert.Equal(t, "USD", got.ISOCode)
	assert.Equal(t, SourceCode, got.Source)

	// Unknown trigrams never resolve as codes.
	got = d.Detect("PLAN 9.99 per month", "GB", decimal.Decimal{})
	assert.Equal(t, SourceTerritoryDefault, got.Source)
	assert.Equal(t, "GBP", got.ISOCode)
}

func TestDetectTRYGuard(t *testing.T) {
	d := newTestDetector(t)

	// All-caps promo copy: "TRY 1" is a verb, not a currency.
	got := d.Detect("TRY 1 MONTH FREE", "TR", decimal.Decimal{})
	assert.Equal(t, SourceTerritoryDefault, got.Source)
	assert.Equal(t, "TRY", got.ISOCode)

	// A real amount next to the code resolves normally.
	got = d.Detect("TRY 59,99 / ay", "TR", decimal.Decimal{})
	assert.Equal(t, SourceCode, got.Source)
	assert.Equal(t, "TRY", got.ISOCode)
}

func TestDetectAmbiguousSymbols(t *testing.T) {
	d := newTestDetector(t)

	tests := []struct {
		name       string
		text       string
		country    string
		amount     string
		wantISO    string
		wantSource Source
	}{
		{"kr in sweden", "99 kr/månad", "SE", "99", "SEK", SourceAmbiguousDefault},
		{"kr in norway", "79 kr.", "NO", "79", "NOK", SourceAmbiguousDefault},
		{"rupee abbreviation in india", "Rs. 119 per month", "IN", "119", "INR", SourceAmbiguousDefault},
		{"dollar in dollar country", "$10.99/month", "US", "10.99", "USD", SourceAmbiguousDefault},
		{"dollar in pegged gulf market", "$5.49 per month", "KW", "5.49", "USD", SourceHeuristicOverride},
		{"try verb never reads as lira", "Try 1 month free — $5.49", "KW", "5.49", "USD", SourceHeuristicOverride},
		{"dollar with usd marker nearby", "$119.88 billed yearly (USD)", "SE", "119.88", "USD", SourceContextOverride},
		{"large bare dollar stays local", "$399 al mes", "MX", "399", "MXN", SourceAmbiguousDefault},
		{"small bare dollar reads as usd", "$4.99 monthly", "EG", "4.99", "USD", SourceHeuristicOverride},
		{"bare dollar in chile stays local", "$4.990 al mes", "CL", "4990", "CLP", SourceAmbiguousDefault},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Detect(tt.text, tt.country, amt(t, tt.amount))
			assert.Equal(t, tt.wantISO, got.ISOCode)
			assert.Equal(t, tt.wantSource, got.Source)
		})
	}
}

func TestDetectCustomDollarStrategy(t *testing.T) {
	d := newTestDetector(t)
	d.SetDollarStrategy(func(text, countryCode string, amount decimal.Decimal) (string, Source, bool) {
		return "XTS", SourceHeuristicOverride, true
	})

	got := d.Detect("$9.99", "EG", amt(t, "9.99"))
	assert.Equal(t, "XTS", got.ISOCode)
	assert.Equal(t, SourceHeuristicOverride, got.Source)

	// Dollar-sign markets never consult the strategy at all.
	got = d.Detect("$9.99", "MX", amt(t, "9.99"))
	assert.Equal(t, "MXN", got.ISOCode)
	assert.Equal(t, SourceAmbiguousDefault, got.Source)
}

func TestDetectTerritoryFallback(t *testing.T) {
	d := newTestDetector(t)

	got := d.Detect("10.99 every month", "FR", decimal.Decimal{})
	assert.Equal(t, "EUR", got.ISOCode)
	assert.Equal(t, SourceTerritoryDefault, got.Source)

	// Override table wins over the region's nominal currency.
	got = d.Detect("9.99 al mes", "AR", decimal.Decimal{})
	assert.Equal(t, "USD", got.ISOCode)
}
