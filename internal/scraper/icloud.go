package scraper

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/Nestour97/dsp-scraper/config"
	"github.com/Nestour97/dsp-scraper/helpers"
	"github.com/Nestour97/dsp-scraper/internal/country"
	"github.com/Nestour97/dsp-scraper/internal/model"
	"github.com/Nestour97/dsp-scraper/internal/pipeline"
	"github.com/Nestour97/dsp-scraper/logger"
	"github.com/Nestour97/dsp-scraper/services/cache"
)

// ICloudScraper reads Apple's single support article that lists iCloud+
// storage prices for every country. The article is fetched once and the
// parsed result is served per country.
type ICloudScraper struct {
	BaseScraper
	URL      string
	resolver *country.Resolver
	log      *logger.Logger

	mu     sync.Mutex
	parsed map[string][]pipeline.Card
	final  string
}

var (
	// countryHeadingRe matches article lines like "United Kingdom (GBP)".
	countryHeadingRe = regexp.MustCompile(`^(.+?)\s*\(([A-Z]{2,5}|Euro)\)$`)

	// storagePlanRe matches plan lines like "50 GB: $0.99" or "2 TB - 9,99".
	storagePlanRe = regexp.MustCompile(`(?i)^\s*(\d+)\s*(GB|TB)\s*[:\x{2013}-]?\s*(.+?)\s*$`)
)

func NewICloudScraper(cfg config.Config, cacheSvc cache.CacheService, resolver *country.Resolver) *ICloudScraper {
	return &ICloudScraper{
		BaseScraper: BaseScraper{
			ProviderName: "icloud",
			CacheSvc:     cacheSvc,
			BlockTime:    cfg.BlockTime,
		},
		URL:      cfg.ICloudSupportURL,
		resolver: resolver,
		log:      logger.ForScraper("icloud"),
	}
}

func (s *ICloudScraper) FetchPlans(ctx context.Context, countryCode string) (pipeline.Input, error) {
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

	name := s.resolver.Name(countryCode)
	in.Cards = byCountry[strings.ToLower(name)]
	if len(in.Cards) == 0 {
		s.log.WithFields(logger.Fields{
			"country": countryCode,
			"name":    name,
		}).Debug().Msg("country not present in support article")
	}
	return in, nil
}

// article fetches and parses the support article once per process.
func (s *ICloudScraper) article(ctx context.Context) (map[string][]pipeline.Card, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.parsed != nil {
		return s.parsed, s.final, nil
	}

	doc, res, err := s.fetchDocument(ctx, s.URL, "all")
	if err != nil {
		return nil, "", err
	}

	s.parsed = s.parseArticle(doc)
	s.final = res.FinalURL
	return s.parsed, s.final, nil
}

// parseArticle walks the article paragraphs: a country heading opens a
// block, each following storage line becomes one card until the next
// heading. Plan sizes are used as tier labels directly.
func (s *ICloudScraper) parseArticle(doc *goquery.Document) map[string][]pipeline.Card {
	byCountry := map[string][]pipeline.Card{}

	paras := doc.Find("p.gb-paragraph")
	if paras.Length() == 0 {
		paras = doc.Find("article p, main p")
	}

	currentCountry := ""
	currentCurrency := ""
	paras.Each(func(_ int, p *goquery.Selection) {
		text := helpers.CleanSpaces(p.Text())
		if text == "" {
			return
		}

		if m := countryHeadingRe.FindStringSubmatch(text); m != nil {
			currentCountry = strings.ToLower(strings.TrimSpace(m[1]))
			currentCurrency = m[2]
			return
		}

		m := storagePlanRe.FindStringSubmatch(text)
		if m == nil || currentCountry == "" {
			return
		}
		tier := model.Tier(strings.TrimLeft(m[1], "0") + " " + strings.ToUpper(m[2]))
		byCountry[currentCountry] = append(byCountry[currentCountry], pipeline.Card{
			Tier:      tier,
			Text:      currentCurrency + " " + m[3] + " per month",
			Source:    "support_article",
			SourceURL: s.URL,
		})
	})

	return byCountry
}

var _ Scraper = (*ICloudScraper)(nil)
