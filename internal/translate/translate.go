// Package translate abstracts the machine-translation dependency used by
// contextual scoring and plan classification. Translation is external,
// rate-limited and sometimes unavailable; the Noop fallback keeps the
// pipeline functional (with reduced non-English accuracy) when it is.
package translate

import (
	"context"
	"strings"
)

// Translator translates arbitrary text to English.
type Translator interface {
	// Translate returns an English rendering of text. Implementations
	// should return lowercase output; callers treat the result as
	// keyword-matching input, not display text.
	Translate(ctx context.Context, text string) (string, error)
}

// Noop is the pass-through fallback: it returns the lowercased original
// so downstream keyword matching remains stable without a translation
// service.
type Noop struct{}

// Translate implements Translator.
func (Noop) Translate(_ context.Context, text string) (string, error) {
	return strings.ToLower(text), nil
}
