package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Nestour97/dsp-scraper/config"
	"github.com/Nestour97/dsp-scraper/helpers"
	"github.com/Nestour97/dsp-scraper/internal/pipeline"
	"github.com/Nestour97/dsp-scraper/logger"
	apperr "github.com/Nestour97/dsp-scraper/pkg/errors"
	"github.com/Nestour97/dsp-scraper/services/cache"
)

// spotifySettle is how long to let the premium page hydrate after load.
const spotifySettle = 900 * time.Millisecond

// SpotifyScraper renders the locale's premium page in a headless browser
// and isolates each plan card by its test id.
type SpotifyScraper struct {
	BaseScraper
	URLFormat string
	browser   *Browser
	log       *logger.Logger
}

func NewSpotifyScraper(cfg config.Config, cacheSvc cache.CacheService, browser *Browser) *SpotifyScraper {
	return &SpotifyScraper{
		BaseScraper: BaseScraper{
			ProviderName: "spotify",
			CacheSvc:     cacheSvc,
			BlockTime:    cfg.BlockTime,
		},
		URLFormat: cfg.SpotifyURLFormat,
		browser:   browser,
		log:       logger.ForScraper("spotify"),
	}
}

// spotifyLocale maps a country code onto Spotify's URL path segment.
// Most storefronts use the bare lowercase country code; a few use a
// suffixed locale.
func spotifyLocale(countryCode string) string {
	cc := strings.ToLower(countryCode)
	switch cc {
	case "gb":
		return "uk"
	case "us":
		return "us"
	}
	return cc
}

func (s *SpotifyScraper) FetchPlans(ctx context.Context, countryCode string) (pipeline.Input, error) {
	pageURL := fmt.Sprintf(s.URLFormat, spotifyLocale(countryCode))
	in := pipeline.Input{
		Provider:    s.ProviderName,
		CountryCode: countryCode,
		SourceURL:   pageURL,
	}

	html, finalURL, err := s.browser.HTML(ctx, pageURL, spotifySettle)
	if err != nil {
		return in, err
	}
	in.HasPage = true
	in.Redirected, in.RedirectedTo, in.RedirectReason = redirectInfo(pageURL, finalURL)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return in, apperr.NewParsing(s.ProviderName, "failed to parse "+pageURL, err)
	}

	in.Cards = s.planCards(doc, pageURL)
	if len(in.Cards) == 0 {
		in.FullPageText = helpers.CleanSpaces(doc.Find("body").Text())
		s.log.WithField("country", countryCode).Debug().
			Msg("no plan cards isolated, falling back to full page text")
	}
	return in, nil
}

// planCards reads the premium page's plan cards: the plan name from the
// card heading, the price from the card's first paragraphs.
func (s *SpotifyScraper) planCards(doc *goquery.Document, pageURL string) []pipeline.Card {
	cards := doc.Find(`[data-testid="plan-card"]`)
	if cards.Length() == 0 {
		cards = doc.Find("section")
	}

	var out []pipeline.Card
	cards.Each(func(_ int, card *goquery.Selection) {
		name := helpers.CleanSpaces(card.Find(`h2, h3, [data-testid="plan-title"]`).First().Text())

		var lines []string
		card.Find("p").EachWithBreak(func(i int, p *goquery.Selection) bool {
			if i >= 8 {
				return false
			}
			if tx := helpers.CleanSpaces(p.Text()); tx != "" {
				lines = append(lines, tx)
			}
			return true
		})
		if name == "" && len(lines) == 0 {
			return
		}

		out = append(out, pipeline.Card{
			PlanName:  name,
			Text:      strings.Join(lines, " "),
			Source:    "plan_card",
			SourceURL: pageURL,
		})
	})
	return out
}

var _ Scraper = (*SpotifyScraper)(nil)
