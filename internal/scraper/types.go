// Package scraper contains the per-provider fetchers. Each scraper knows
// how to reach one provider's pricing page for a country and isolate the
// plan text blocks; price and currency extraction happen downstream in
// the pipeline.
package scraper

import (
	"context"

	"github.com/Nestour97/dsp-scraper/internal/pipeline"
)

// Scraper is the contract every provider fetcher implements.
type Scraper interface {
	// FetchPlans retrieves one country's pricing page and returns the
	// isolated plan cards, ready for the extraction pipeline.
	FetchPlans(ctx context.Context, countryCode string) (pipeline.Input, error)

	// Provider returns the provider key used in rows, logs and config.
	Provider() string
}
