package publisher

import "github.com/Nestour97/dsp-scraper/internal/model"

// Publisher pushes scraped rows and diagnostics to downstream consumers
// (the dashboard ingests them from Redis streams).
type Publisher interface {
	// PublishRow publishes one canonical price row.
	PublishRow(row model.PriceRow) error

	// PublishDiagnostic publishes one extraction failure record.
	PublishDiagnostic(diag model.Diagnostic) error

	// TrimStreams trims the streams to the configured maximum length.
	TrimStreams() error

	// Close closes the publisher connection.
	Close() error
}
