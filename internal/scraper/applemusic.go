package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Nestour97/dsp-scraper/config"
	"github.com/Nestour97/dsp-scraper/helpers"
	"github.com/Nestour97/dsp-scraper/internal/pipeline"
	"github.com/Nestour97/dsp-scraper/logger"
	"github.com/Nestour97/dsp-scraper/services/cache"
)

// AppleMusicScraper reads the marketing page's plan grid, falling back to
// the hero banner and JSON-LD offers when the grid is missing.
type AppleMusicScraper struct {
	BaseScraper
	URLFormat string
	log       *logger.Logger
}

var (
	planSectionRe = regexp.MustCompile(`(?i)pricing|plans|tiers|grid`)
	heroSectionRe = regexp.MustCompile(`(?i)hero|banner`)
)

func NewAppleMusicScraper(cfg config.Config, cacheSvc cache.CacheService) *AppleMusicScraper {
	return &AppleMusicScraper{
		BaseScraper: BaseScraper{
			ProviderName: "applemusic",
			CacheSvc:     cacheSvc,
			BlockTime:    cfg.BlockTime,
		},
		URLFormat: cfg.AppleMusicURL,
		log:       logger.ForScraper("applemusic"),
	}
}

// pageURL builds the storefront URL. The US storefront lives at the root
// path without a country prefix.
func (s *AppleMusicScraper) pageURL(countryCode string) string {
	cc := strings.ToLower(countryCode)
	if cc == "us" {
		return strings.Replace(s.URLFormat, "/%s", "", 1)
	}
	return fmt.Sprintf(s.URLFormat, cc)
}

func (s *AppleMusicScraper) FetchPlans(ctx context.Context, countryCode string) (pipeline.Input, error) {
	pageURL := s.pageURL(countryCode)
	in := pipeline.Input{
		Provider:    s.ProviderName,
		CountryCode: countryCode,
		SourceURL:   pageURL,
	}

	doc, res, err := s.fetchDocument(ctx, pageURL, countryCode)
	if err != nil {
		return in, err
	}
	in.HasPage = true
	in.Redirected, in.RedirectedTo, in.RedirectReason = redirectInfo(pageURL, res.FinalURL)

	in.Cards = s.gridCards(doc, pageURL)
	if len(in.Cards) == 0 {
		in.Cards = s.heroCards(doc, pageURL)
	}
	if len(in.Cards) == 0 {
		in.Cards = s.jsonLDCards(doc, pageURL)
	}
	if len(in.Cards) == 0 {
		in.FullPageText = helpers.CleanSpaces(doc.Find("body").Text())
		s.log.WithField("country", countryCode).Debug().
			Msg("no plan cards isolated, falling back to full page text")
	}

	return in, nil
}

// gridCards walks sections that look like a pricing grid and takes each
// tier heading's enclosing container as one card.
func (s *AppleMusicScraper) gridCards(doc *goquery.Document, pageURL string) []pipeline.Card {
	var cards []pipeline.Card
	doc.Find("section, div").Each(func(_ int, sec *goquery.Selection) {
		class, _ := sec.Attr("class")
		if !planSectionRe.MatchString(class) {
			return
		}
		sec.Find("h2, h3, h4").Each(func(_ int, h *goquery.Selection) {
			name := helpers.CleanSpaces(h.Text())
			if name == "" {
				return
			}
			container := h.Parent()
			text := helpers.CleanSpaces(container.Text())
			if !strings.ContainsAny(text, "0123456789") {
				if sib := container.Next(); sib.Length() > 0 {
					text = helpers.CleanSpaces(container.Text() + " " + sib.Text())
				}
			}
			cards = append(cards, pipeline.Card{
				PlanName:  name,
				Text:      text,
				Source:    "plan_grid",
				SourceURL: pageURL,
			})
		})
	})
	return cards
}

// heroCards extracts a single Individual-tier card from the hero banner,
// which localizes copy like "Individual $10.99/month after free trial".
func (s *AppleMusicScraper) heroCards(doc *goquery.Document, pageURL string) []pipeline.Card {
	var cards []pipeline.Card
	doc.Find("section").EachWithBreak(func(_ int, sec *goquery.Selection) bool {
		class, _ := sec.Attr("class")
		if !heroSectionRe.MatchString(class) {
			return true
		}
		text := helpers.CleanSpaces(sec.Text())
		if text == "" || !strings.Contains(strings.ToLower(text), "month") {
			return true
		}
		cards = append(cards, pipeline.Card{
			PlanName:  "Individual",
			Text:      text,
			Source:    "hero_banner",
			SourceURL: pageURL,
		})
		return false
	})
	return cards
}

type ldOffer struct {
	Type          string          `json:"@type"`
	Name          string          `json:"name"`
	Price         json.RawMessage `json:"price"`
	PriceCurrency string          `json:"priceCurrency"`
	Offers        json.RawMessage `json:"offers"`
}

// priceString tolerates both "10.99" and 10.99 in structured data.
func (o ldOffer) priceString() string {
	p := strings.Trim(string(o.Price), `"`)
	if p == "null" {
		return ""
	}
	return p
}

// jsonLDCards parses schema.org Offer blocks. Apple sometimes ships the
// price only in structured data.
func (s *AppleMusicScraper) jsonLDCards(doc *goquery.Document, pageURL string) []pipeline.Card {
	var cards []pipeline.Card
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, tag *goquery.Selection) {
		raw := strings.TrimSpace(tag.Text())
		if raw == "" {
			return
		}
		for _, offer := range parseLDOffers(raw) {
			price := offer.priceString()
			if price == "" {
				continue
			}
			name := offer.Name
			if name == "" {
				name = "Individual"
			}
			cards = append(cards, pipeline.Card{
				PlanName:  name,
				Text:      fmt.Sprintf("%s %s per month", offer.PriceCurrency, price),
				Source:    "json_ld",
				SourceURL: pageURL,
			})
		}
	})
	return cards
}

// parseLDOffers tolerates both a single object and a list at the top
// level, and unwraps Product.offers.
func parseLDOffers(raw string) []ldOffer {
	var blocks []ldOffer
	var one ldOffer
	if err := json.Unmarshal([]byte(raw), &one); err == nil {
		blocks = append(blocks, one)
	} else {
		var many []ldOffer
		if err := json.Unmarshal([]byte(raw), &many); err != nil {
			return nil
		}
		blocks = many
	}

	var offers []ldOffer
	for _, b := range blocks {
		switch b.Type {
		case "Offer":
			offers = append(offers, b)
		case "Product":
			if len(b.Offers) == 0 {
				continue
			}
			var nested []ldOffer
			var single ldOffer
			if err := json.Unmarshal(b.Offers, &nested); err == nil {
				offers = append(offers, nested...)
			} else if err := json.Unmarshal(b.Offers, &single); err == nil {
				offers = append(offers, single)
			}
		}
	}
	return offers
}

var _ Scraper = (*AppleMusicScraper)(nil)
