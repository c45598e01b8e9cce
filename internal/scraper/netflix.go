package scraper

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Nestour97/dsp-scraper/config"
	"github.com/Nestour97/dsp-scraper/helpers"
	"github.com/Nestour97/dsp-scraper/internal/country"
	"github.com/Nestour97/dsp-scraper/internal/pipeline"
	"github.com/Nestour97/dsp-scraper/logger"
	apperr "github.com/Nestour97/dsp-scraper/pkg/errors"
	"github.com/Nestour97/dsp-scraper/services/cache"
)

const netflixSettle = 3 * time.Second

// netflixPlanLineRe matches help-article lines like
// "Standard with ads: 6.99 €/month" or "Premium: CHF 24.90 / month".
var netflixPlanLineRe = regexp.MustCompile(`(?i)^(standard with ads|basic|standard|premium|mobile)\s*[:\x{2013}-]\s*(.+)$`)

// NetflixScraper reads the help-center pricing article, which lists every
// country's plans on one JavaScript-rendered page.
type NetflixScraper struct {
	BaseScraper
	URL      string
	browser  *Browser
	resolver *country.Resolver
	log      *logger.Logger

	mu     sync.Mutex
	parsed map[string][]pipeline.Card
	final  string
}

func NewNetflixScraper(cfg config.Config, cacheSvc cache.CacheService, browser *Browser, resolver *country.Resolver) *NetflixScraper {
	return &NetflixScraper{
		BaseScraper: BaseScraper{
			ProviderName: "netflix",
			CacheSvc:     cacheSvc,
			BlockTime:    cfg.BlockTime,
		},
		URL:      cfg.NetflixHelpURL,
		browser:  browser,
		resolver: resolver,
		log:      logger.ForScraper("netflix"),
	}
}

func (s *NetflixScraper) FetchPlans(ctx context.Context, countryCode string) (pipeline.Input, error) {
	in := pipeline.Input{
		Provider:    s.ProviderName,
		CountryCode: countryCode,
		SourceURL:   s.URL,
	}

	byCountry, finalURL, err := s.article(ctx)
	if err != nil {
		return in, err
	}
	in.HasPage = true
	in.Redirected, in.RedirectedTo, in.RedirectReason = redirectInfo(s.URL, finalURL)

	name := strings.ToLower(s.resolver.Name(countryCode))
	in.Cards = byCountry[name]
	if len(in.Cards) == 0 {
		s.log.WithFields(logger.Fields{
			"country": countryCode,
			"name":    name,
		}).Debug().Msg("country not present in help article")
	}
	return in, nil
}

func (s *NetflixScraper) article(ctx context.Context) (map[string][]pipeline.Card, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.parsed != nil {
		return s.parsed, s.final, nil
	}

	html, finalURL, err := s.browser.HTML(ctx, s.URL, netflixSettle)
	if err != nil {
		return nil, "", err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, "", apperr.NewParsing(s.ProviderName, "failed to parse help article", err)
	}

	s.parsed = s.parseArticle(doc)
	s.final = finalURL
	return s.parsed, s.final, nil
}

// parseArticle walks the rendered article: country headings open blocks,
// plan lines under a heading become that country's cards.
func (s *NetflixScraper) parseArticle(doc *goquery.Document) map[string][]pipeline.Card {
	byCountry := map[string][]pipeline.Card{}

	article := doc.Find("article, .kb-article, main")
	if article.Length() == 0 {
		article = doc.Selection
	}

	currentCountry := ""
	article.Find("h2, h3, p, li").Each(func(_ int, el *goquery.Selection) {
		text := helpers.CleanSpaces(el.Text())
		if text == "" {
			return
		}

		if goquery.NodeName(el) == "h2" || goquery.NodeName(el) == "h3" {
			if strings.ContainsAny(text, "0123456789") {
				// Marketing headings ("Plans from $7.99") close the block.
				currentCountry = ""
			} else {
				currentCountry = strings.ToLower(text)
			}
			return
		}

		m := netflixPlanLineRe.FindStringSubmatch(text)
		if m == nil || currentCountry == "" {
			return
		}
		line := m[2]
		if !strings.Contains(strings.ToLower(line), "month") {
			line += " per month"
		}
		byCountry[currentCountry] = append(byCountry[currentCountry], pipeline.Card{
			PlanName:  m[1],
			Text:      line,
			Source:    "help_article",
			SourceURL: s.URL,
		})
	})

	return byCountry
}

var _ Scraper = (*NetflixScraper)(nil)
