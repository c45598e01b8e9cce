package scraper

import (
	"github.com/Nestour97/dsp-scraper/config"
	"github.com/Nestour97/dsp-scraper/internal/country"
	"github.com/Nestour97/dsp-scraper/logger"
	"github.com/Nestour97/dsp-scraper/services/cache"
)

// CreateScrapers builds the scrapers named in the configuration. Unknown
// provider keys are logged and skipped rather than failing the run.
func CreateScrapers(cfg config.Config, cacheSvc cache.CacheService, browser *Browser, resolver *country.Resolver) []Scraper {
	var scrapers []Scraper
	for _, name := range cfg.Providers {
		switch name {
		case "applemusic":
			scrapers = append(scrapers, NewAppleMusicScraper(cfg, cacheSvc))
		case "icloud":
			scrapers = append(scrapers, NewICloudScraper(cfg, cacheSvc, resolver))
		case "spotify":
			scrapers = append(scrapers, NewSpotifyScraper(cfg, cacheSvc, browser))
		case "netflix":
			scrapers = append(scrapers, NewNetflixScraper(cfg, cacheSvc, browser, resolver))
		case "disneyplus":
			scrapers = append(scrapers, NewDisneyPlusScraper(cfg, cacheSvc, browser))
		default:
			logger.Warn("unknown provider %q in configuration, skipping", name)
		}
	}
	return scrapers
}
