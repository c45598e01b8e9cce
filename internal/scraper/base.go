package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Nestour97/dsp-scraper/helpers"
	apperr "github.com/Nestour97/dsp-scraper/pkg/errors"
	"github.com/Nestour97/dsp-scraper/services/cache"
)

// BaseScraper provides the shared fetch path: rate-limit backoff through
// the cache service, HTML parsing, and redirect detection.
type BaseScraper struct {
	ProviderName string
	CacheSvc     cache.CacheService
	BlockTime    time.Duration
}

// fetchPage fetches a URL with the provider+country rate-limit guard. A
// 429 from the storefront blocks further requests for BlockTime.
func (b *BaseScraper) fetchPage(ctx context.Context, pageURL, countryCode string) (*helpers.FetchResult, error) {
	blockKey := b.blockKey(countryCode)
	if b.CacheSvc != nil {
		if _, err := b.CacheSvc.Get(blockKey); err == nil {
			return nil, apperr.NewRateLimit(b.ProviderName,
				fmt.Sprintf("blocked for %s after upstream 429", b.BlockTime))
		}
	}

	res, err := helpers.Fetch(ctx, pageURL)
	if err != nil {
		if b.CacheSvc != nil && strings.HasPrefix(err.Error(), "rate limited") {
			b.CacheSvc.Set(blockKey, []byte("1"), b.BlockTime)
		}
		return nil, apperr.NewNetwork(b.ProviderName, "failed to fetch "+pageURL, err)
	}
	return res, nil
}

// fetchDocument fetches and parses a page in one step.
func (b *BaseScraper) fetchDocument(ctx context.Context, pageURL, countryCode string) (*goquery.Document, *helpers.FetchResult, error) {
	res, err := b.fetchPage(ctx, pageURL, countryCode)
	if err != nil {
		return nil, nil, err
	}
	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return nil, nil, apperr.NewParsing(b.ProviderName, "failed to parse "+pageURL, err)
	}
	return doc, res, nil
}

func (b *BaseScraper) blockKey(countryCode string) string {
	return cache.Key("ratelimit", b.ProviderName+":"+countryCode)
}

// Provider returns the provider key.
func (b *BaseScraper) Provider() string {
	return b.ProviderName
}

// redirectInfo compares the requested and final URLs. Storefronts
// redirect unsupported countries to another locale's page, which means
// the extracted price belongs to the landing locale, not the requested
// one.
func redirectInfo(requested, final string) (redirected bool, to, reason string) {
	if final == "" || final == requested {
		return false, "", ""
	}
	reqPath := pathOf(requested)
	finPath := pathOf(final)
	if reqPath == finPath {
		return false, "", ""
	}
	return true, final, fmt.Sprintf("requested %s, landed on %s", reqPath, finPath)
}

func pathOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return strings.TrimSuffix(u.Path, "/")
}
