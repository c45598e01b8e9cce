package scraper

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nestour97/dsp-scraper/config"
)

func docFromHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func newAppleScraper() *AppleMusicScraper {
	cfg := config.Config{AppleMusicURL: "https://www.apple.com/%s/apple-music/"}
	return NewAppleMusicScraper(cfg, nil)
}

func TestAppleMusicPageURL(t *testing.T) {
	s := newAppleScraper()

	assert.Equal(t, "https://www.apple.com/apple-music/", s.pageURL("US"))
	assert.Equal(t, "https://www.apple.com/de/apple-music/", s.pageURL("DE"))
	assert.Equal(t, "https://www.apple.com/kz/apple-music/", s.pageURL("kz"))
}

func TestAppleMusicGridCards(t *testing.T) {
	html := `<html><body>
		<section class="section-pricing-table">
			<div class="tile"><h3>Student</h3><p>$5.99/month after free trial</p></div>
			<div class="tile"><h3>Individual</h3><p>$10.99/month</p></div>
			<div class="tile"><h3>Family</h3><p>$16.99/month</p></div>
		</section>
		<section class="promo"><h3>Ignored</h3><p>$99.99</p></section>
	</body></html>`

	s := newAppleScraper()
	cards := s.gridCards(docFromHTML(t, html), "https://www.apple.com/apple-music/")
	require.Len(t, cards, 3)

	assert.Equal(t, "Student", cards[0].PlanName)
	assert.Contains(t, cards[0].Text, "$5.99/month")
	assert.Equal(t, "plan_grid", cards[0].Source)
	assert.Equal(t, "Individual", cards[1].PlanName)
	assert.Equal(t, "Family", cards[2].PlanName)
}

func TestAppleMusicGridReadsSiblingPrice(t *testing.T) {
	html := `<html><body>
		<div class="plans">
			<div><h3>Individual</h3></div>
			<div><p>$10.99 per month</p></div>
		</div>
	</body></html>`

	s := newAppleScraper()
	cards := s.gridCards(docFromHTML(t, html), "")
	require.Len(t, cards, 1)
	assert.Contains(t, cards[0].Text, "$10.99")
}

func TestAppleMusicHeroFallback(t *testing.T) {
	html := `<html><body>
		<section class="hero-banner">
			<p>Apple Music. Try it free, then $10.99/month.</p>
		</section>
	</body></html>`

	s := newAppleScraper()
	cards := s.heroCards(docFromHTML(t, html), "")
	require.Len(t, cards, 1)
	assert.Equal(t, "Individual", cards[0].PlanName)
	assert.Equal(t, "hero_banner", cards[0].Source)
	assert.Contains(t, cards[0].Text, "$10.99/month")
}

func TestAppleMusicJSONLDCards(t *testing.T) {
	html := `<html><head>
		<script type="application/ld+json">
		{"@type":"Product","name":"Apple Music","offers":[{"@type":"Offer","name":"Individual","price":"10.99","priceCurrency":"USD"}]}
		</script>
	</head><body></body></html>`

	s := newAppleScraper()
	cards := s.jsonLDCards(docFromHTML(t, html), "")
	require.Len(t, cards, 1)
	assert.Equal(t, "Individual", cards[0].PlanName)
	assert.Equal(t, "USD 10.99 per month", cards[0].Text)
	assert.Equal(t, "json_ld", cards[0].Source)
}

func TestRedirectInfo(t *testing.T) {
	redirected, to, reason := redirectInfo(
		"https://www.apple.com/xk/apple-music/",
		"https://www.apple.com/apple-music/",
	)
	assert.True(t, redirected)
	assert.Equal(t, "https://www.apple.com/apple-music/", to)
	assert.NotEmpty(t, reason)

	redirected, _, _ = redirectInfo(
		"https://www.apple.com/de/apple-music/",
		"https://www.apple.com/de/apple-music/",
	)
	assert.False(t, redirected)

	// Scheme or query changes without a path change are not locale moves.
	redirected, _, _ = redirectInfo(
		"https://www.apple.com/de/apple-music/",
		"https://www.apple.com/de/apple-music/?cid=x",
	)
	assert.False(t, redirected)
}
