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

const disneySettle = 2 * time.Second

// DisneyPlusScraper renders the localized sign-up page and isolates the
// plan tiles. Disney's markup varies heavily by market, so the tile scan
// is generic and the full-page fallback carries most storefronts.
type DisneyPlusScraper struct {
	BaseScraper
	URLFormat string
	browser   *Browser
	log       *logger.Logger
}

func NewDisneyPlusScraper(cfg config.Config, cacheSvc cache.CacheService, browser *Browser) *DisneyPlusScraper {
	return &DisneyPlusScraper{
		BaseScraper: BaseScraper{
			ProviderName: "disneyplus",
			CacheSvc:     cacheSvc,
			BlockTime:    cfg.BlockTime,
		},
		URLFormat: cfg.DisneyPlusURLFormat,
		browser:   browser,
		log:       logger.ForScraper("disneyplus"),
	}
}

func (s *DisneyPlusScraper) FetchPlans(ctx context.Context, countryCode string) (pipeline.Input, error) {
	pageURL := fmt.Sprintf(s.URLFormat, strings.ToLower(countryCode))
	in := pipeline.Input{
		Provider:    s.ProviderName,
		CountryCode: countryCode,
		SourceURL:   pageURL,
	}

	html, finalURL, err := s.browser.HTML(ctx, pageURL, disneySettle)
	if err != nil {
		return in, err
	}
	in.HasPage = true
	in.Redirected, in.RedirectedTo, in.RedirectReason = redirectInfo(pageURL, finalURL)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return in, apperr.NewParsing(s.ProviderName, "failed to parse "+pageURL, err)
	}

	in.Cards = s.planTiles(doc, pageURL)
	if len(in.Cards) == 0 {
		in.FullPageText = helpers.CleanSpaces(doc.Find("body").Text())
		s.log.WithField("country", countryCode).Debug().
			Msg("no plan tiles isolated, falling back to full page text")
	}
	return in, nil
}

func (s *DisneyPlusScraper) planTiles(doc *goquery.Document, pageURL string) []pipeline.Card {
	var out []pipeline.Card
	doc.Find(`[data-testid*="plan"], [class*="plan-card"], [class*="planCard"]`).Each(func(_ int, tile *goquery.Selection) {
		name := helpers.CleanSpaces(tile.Find("h2, h3, h4").First().Text())
		text := helpers.CleanSpaces(tile.Text())
		if text == "" {
			return
		}
		out = append(out, pipeline.Card{
			PlanName:  name,
			Text:      text,
			Source:    "plan_tile",
			SourceURL: pageURL,
		})
	})
	return out
}

var _ Scraper = (*DisneyPlusScraper)(nil)
