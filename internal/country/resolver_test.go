package country

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultCurrency(t *testing.T) {
	r := NewResolver()

	tests := []struct {
		code     string
		expected string
	}{
		{"US", "USD"},
		{"GB", "GBP"},
		{"DE", "EUR"},
		{"FR", "EUR"},
		{"JP", "JPY"},
		{"KR", "KRW"},
		{"KZ", "KZT"},
		{"KW", "KWD"},
		{"BR", "BRL"},
		{"SE", "SEK"},
		{"TR", "TRY"},
		{"IN", "INR"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, r.DefaultCurrency(tt.code))
		})
	}
}

func TestOverrideWinsOverDatabase(t *testing.T) {
	r := NewResolver()

	// Argentina's official currency is ARS; the storefront policy says USD.
	assert.Equal(t, "USD", r.DefaultCurrency("AR"))
	assert.True(t, r.HasOverride("AR"))

	// Every entry in the table must win regardless of what CLDR says.
	for code, want := range currencyOverrides {
		assert.Equal(t, want, r.DefaultCurrency(code), "override for %s", code)
	}
}

func TestCustomOverrides(t *testing.T) {
	r := NewResolverWithOverrides(map[string]string{"tr": "USD"})

	assert.Equal(t, "USD", r.DefaultCurrency("TR"))
	// Base table entries survive the merge.
	assert.Equal(t, "USD", r.DefaultCurrency("AR"))
}

func TestUnknownTerritory(t *testing.T) {
	r := NewResolver()
	assert.Equal(t, "", r.DefaultCurrency("ZX"))
}

func TestName(t *testing.T) {
	r := NewResolver()

	assert.Equal(t, "United States", r.Name("US"))
	assert.Equal(t, "Germany", r.Name("DE"))
	assert.Equal(t, "South Korea", r.Name("KR"))
}

func TestMalformedCodePanics(t *testing.T) {
	r := NewResolver()

	assert.Panics(t, func() { r.DefaultCurrency("USA") })
	assert.Panics(t, func() { r.DefaultCurrency("") })
	assert.Panics(t, func() { r.DefaultCurrency("U1") })
	assert.Panics(t, func() { r.Name("United States") })
}
