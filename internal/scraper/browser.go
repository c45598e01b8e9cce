package scraper

import (
	"context"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"

	"github.com/Nestour97/dsp-scraper/config"
	apperr "github.com/Nestour97/dsp-scraper/pkg/errors"
)

// Browser wraps a shared headless Chrome connection for the scrapers
// that need JavaScript rendering. The browser is launched lazily on
// first use and shared; pages are created per fetch.
type Browser struct {
	bin      string
	headless bool

	mu      sync.Mutex
	browser *rod.Browser
}

func NewBrowser(cfg config.Config) *Browser {
	return &Browser{
		bin:      cfg.BrowserBin,
		headless: cfg.BrowserHeadless,
	}
}

func (b *Browser) connect() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser != nil {
		return b.browser, nil
	}

	var browser *rod.Browser
	err := rod.Try(func() {
		l := launcher.New().Headless(b.headless)
		if b.bin != "" {
			l = l.Bin(b.bin)
		}
		browser = rod.New().ControlURL(l.MustLaunch()).MustConnect()
	})
	if err != nil {
		return nil, apperr.NewBrowser("browser", "failed to launch headless browser", err)
	}
	b.browser = browser
	return browser, nil
}

// HTML navigates to a URL, waits for the page to settle, and returns the
// rendered HTML plus the final URL after any redirects.
func (b *Browser) HTML(ctx context.Context, pageURL string, settle time.Duration) (html, finalURL string, err error) {
	browser, err := b.connect()
	if err != nil {
		return "", "", err
	}

	err = rod.Try(func() {
		page := browser.Context(ctx).MustPage(pageURL)
		defer page.MustClose()

		page.MustWaitLoad()
		if settle > 0 {
			time.Sleep(settle)
		}
		html = page.MustHTML()
		finalURL = page.MustInfo().URL
	})
	if err != nil {
		return "", "", apperr.NewBrowser("browser", "failed to render "+pageURL, err)
	}
	return html, finalURL, nil
}

// Close tears the shared browser down.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser == nil {
		return nil
	}
	err := b.browser.Close()
	b.browser = nil
	return err
}
