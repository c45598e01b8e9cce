package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeScanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"split decimal restitched", "Rp 8 . 500 per bulan", "Rp 8.500 per bulan"},
		{"symbol gap closed", "$ 8 a month", "$8 a month"},
		{"whitespace collapsed", "  €10.99   monthly ", "€10.99 monthly"},
		{"nbsp normalized", "1 490,00 ₸", "1 490,00 ₸"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeScanText(tt.in))
		})
	}
}

func TestScanPriceTokens(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		wantTokens   []string
		wantValues   []string
		wantCurrency []string
	}{
		{
			name:         "symbol before number",
			text:         "Premium costs $10.99 per month",
			wantTokens:   []string{"$10.99"},
			wantValues:   []string{"10.99"},
			wantCurrency: []string{"$"},
		},
		{
			name:         "number before symbol",
			text:         "Premium : 10,99 € par mois",
			wantTokens:   []string{"10,99 €"},
			wantValues:   []string{"10.99"},
			wantCurrency: []string{"€"},
		},
		{
			name:         "space thousands grouping",
			text:         "₸1 490,00 / month",
			wantTokens:   []string{"₸1 490,00"},
			wantValues:   []string{"1490"},
			wantCurrency: []string{"₸"},
		},
		{
			name:         "stitched rupiah",
			text:         "Rp 54 . 990/bulan",
			wantTokens:   []string{"Rp 54.990"},
			wantValues:   []string{"54990"},
			wantCurrency: []string{"Rp"},
		},
		{
			name:         "multiple in document order",
			text:         "3 months for $0.99, then $10.99/month",
			wantTokens:   []string{"$0.99", "$10.99"},
			wantValues:   []string{"0.99", "10.99"},
			wantCurrency: []string{"$", "$"},
		},
		{
			name:         "prefixed dollar kept whole",
			text:         "US$5.99 monthly",
			wantTokens:   []string{"US$5.99"},
			wantValues:   []string{"5.99"},
			wantCurrency: []string{"US$"},
		},
		{
			name:         "iso code pair",
			text:         "SAR 21.99 per month",
			wantTokens:   []string{"SAR 21.99"},
			wantValues:   []string{"21.99"},
			wantCurrency: []string{"SAR"},
		},
		{
			name:       "random trigram rejected",
			text:       "FREE 3 months of Premium",
			wantTokens: nil,
		},
		{
			name:       "try verb rejected",
			text:       "TRY 1 month of Premium",
			wantTokens: nil,
		},
		{
			name:         "try currency with real amount",
			text:         "TRY 59,99 / ay",
			wantTokens:   []string{"TRY 59,99"},
			wantValues:   []string{"59.99"},
			wantCurrency: []string{"TRY"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScanPriceTokens(tt.text)
			require.Len(t, got, len(tt.wantTokens))
			for i, c := range got {
				assert.Equal(t, tt.wantTokens[i], c.RawToken)
				assert.Equal(t, tt.wantCurrency[i], c.CurrencyRaw)
				require.True(t, c.HasValue)
				assert.Equal(t, tt.wantValues[i], c.NumericValue.String())
			}
		})
	}
}

func TestScanContextWindow(t *testing.T) {
	got := ScanPriceTokens("Individual plan: $10.99 per month after your trial ends")
	require.Len(t, got, 1)
	assert.Contains(t, got[0].ContextWindow, "Individual plan")
	assert.Contains(t, got[0].ContextWindow, "per month")
	assert.Contains(t, got[0].ContextWindow, "$10.99")
}

func TestScanOffsetsRefersToNormalizedText(t *testing.T) {
	text := "Plan A: $ 4.99, Plan B: $ 9.99"
	normalized := NormalizeScanText(text)

	got := ScanPriceTokens(text)
	require.Len(t, got, 2)
	for _, c := range got {
		assert.Equal(t, c.RawToken, normalized[c.Start:c.End])
	}
	assert.Less(t, got[0].Start, got[1].Start)
}
