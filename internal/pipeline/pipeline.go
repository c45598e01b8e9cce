// Package pipeline ties the extraction core together: it takes the text
// blocks a fetcher isolated per plan, classifies each plan, selects the
// recurring price and its currency, and emits canonical rows plus
// diagnostics for everything it could not resolve.
package pipeline

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Nestour97/dsp-scraper/internal/country"
	"github.com/Nestour97/dsp-scraper/internal/model"
	"github.com/Nestour97/dsp-scraper/internal/plan"
	"github.com/Nestour97/dsp-scraper/internal/pricing"
	"github.com/Nestour97/dsp-scraper/logger"
)

// Mode selects how much of the country list a run covers.
type Mode string

const (
	// ModeFull processes every country the caller supplies.
	ModeFull Mode = "full"

	// ModeTest restricts processing to the option's CountryFilter.
	ModeTest Mode = "test"
)

// Options configure one pipeline invocation. Passed explicitly instead
// of living in process-wide state so concurrent runs stay independent.
type Options struct {
	Mode          Mode
	CountryFilter []string
}

// Allows reports whether the given country is in scope for this run.
func (o Options) Allows(countryCode string) bool {
	if o.Mode != ModeTest || len(o.CountryFilter) == 0 {
		return true
	}
	for _, c := range o.CountryFilter {
		if c == countryCode {
			return true
		}
	}
	return false
}

// Card is one plan's isolated text block, produced by a fetcher.
type Card struct {
	// PlanName is the raw plan label as scraped; ignored when Tier is set.
	PlanName string

	// Tier short-circuits classification for providers whose plans are
	// not tier-like, such as iCloud+ storage sizes.
	Tier model.Tier

	// Text is the card's visible and hidden text content.
	Text string

	// Source tags the extraction path that produced the card.
	Source string

	SourceURL string
}

// Input is everything the pipeline needs for one (provider, country).
type Input struct {
	RunID       string
	Provider    string
	CountryCode string

	// Cards are the isolated plan blocks. When empty and FullPageText is
	// set, the pipeline falls back to carving windows around plan-name
	// mentions in the full page.
	Cards        []Card
	FullPageText string

	SourceURL      string
	HasPage        bool
	Redirected     bool
	RedirectedTo   string
	RedirectReason string
}

// SecondarySource supplies a fallback price when a scraped value looks
// implausible. Implementations are external lookups and may fail.
type SecondarySource interface {
	PriceFor(ctx context.Context, provider, countryCode string, tier model.Tier) (decimal.Decimal, string, error)
}

// semanticWindow is how many bytes around a plan-name mention are fed to
// the selector in fallback mode.
const semanticWindow = 300

// minPlausiblePrice is the sanity floor for an Individual-tier price.
var minPlausiblePrice = decimal.RequireFromString("0.5")

// Pipeline is safe for concurrent use; it holds no mutable state across
// invocations.
type Pipeline struct {
	classifier *plan.Classifier
	selector   *pricing.Selector
	resolver   *country.Resolver
	secondary  SecondarySource
	log        *logger.Logger
}

func New(classifier *plan.Classifier, selector *pricing.Selector, resolver *country.Resolver) *Pipeline {
	return &Pipeline{
		classifier: classifier,
		selector:   selector,
		resolver:   resolver,
		log:        logger.ForPipeline(),
	}
}

// SetSecondarySource installs a fallback price lookup consulted when an
// Individual-tier price fails the plausibility check.
func (p *Pipeline) SetSecondarySource(s SecondarySource) {
	p.secondary = s
}

// Extract turns one country's scraped content into canonical rows. Every
// failure to resolve a price or currency produces a diagnostic alongside
// a best-effort row; malformed input never returns an error.
func (p *Pipeline) Extract(ctx context.Context, in Input, opts Options) ([]model.PriceRow, []model.Diagnostic) {
	if !opts.Allows(in.CountryCode) {
		return nil, nil
	}

	countryName := p.resolver.Name(in.CountryCode)
	if countryName == "" {
		countryName = in.CountryCode
	}

	cards := in.Cards
	if len(cards) == 0 && in.FullPageText != "" {
		cards = p.semanticCards(in)
	}

	now := time.Now().UTC()
	var rows []model.PriceRow
	var diags []model.Diagnostic
	seen := map[model.Tier]bool{}

	for _, card := range cards {
		tier := card.Tier
		if tier == "" {
			tier = p.classifier.Classify(ctx, card.PlanName)
		}
		if tier == model.TierOther {
			p.log.WithFields(logger.Fields{
				"provider": in.Provider,
				"country":  in.CountryCode,
				"plan":     card.PlanName,
			}).Debug().Msg("dropping unclassifiable plan card")
			continue
		}
		if seen[tier] {
			continue
		}
		seen[tier] = true

		row := model.PriceRow{
			RunID:          in.RunID,
			Provider:       in.Provider,
			Country:        countryName,
			CountryCode:    in.CountryCode,
			Plan:           tier,
			Source:         card.Source,
			SourceURL:      sourceURL(card, in),
			HasPage:        in.HasPage,
			Redirected:     in.Redirected,
			RedirectedTo:   in.RedirectedTo,
			RedirectReason: in.RedirectReason,
			ScrapedAt:      now,
		}

		sel, reason := p.selector.Select(card.Text, in.CountryCode)
		if sel != nil {
			v := sel.Candidate.NumericValue
			row.PriceValue = &v
			row.PriceDisplay = sel.Candidate.RawToken
			row.CurrencyRaw = sel.Candidate.CurrencyRaw
			row.Currency = sel.Currency.ISOCode
		}
		if reason != "" {
			diags = append(diags, p.diagnostic(in, string(tier), reason, card, now))
		}

		rows = append(rows, row)
	}

	diags = append(diags, p.overrideImplausible(ctx, in, rows, now)...)

	return rows, diags
}

// semanticCards carves a window around each plan-name mention in the
// full page text when the fetcher could not isolate plan cards.
func (p *Pipeline) semanticCards(in Input) []Card {
	var cards []Card
	for _, m := range plan.FindMentions(in.FullPageText) {
		lo := m.Index - semanticWindow/2
		if lo < 0 {
			lo = 0
		}
		hi := m.Index + semanticWindow
		if hi > len(in.FullPageText) {
			hi = len(in.FullPageText)
		}
		for lo > 0 && in.FullPageText[lo]&0xC0 == 0x80 {
			lo--
		}
		for hi < len(in.FullPageText) && in.FullPageText[hi]&0xC0 == 0x80 {
			hi++
		}
		cards = append(cards, Card{
			Tier:   m.Tier,
			Text:   in.FullPageText[lo:hi],
			Source: "semantic_fallback",
		})
	}
	return cards
}

// overrideImplausible applies the Individual-tier sanity check: an
// Individual price below the Student price, or below the plausibility
// floor, is replaced from the secondary source when one is available.
// When the lookup fails the original value is kept and flagged.
func (p *Pipeline) overrideImplausible(ctx context.Context, in Input, rows []model.PriceRow, now time.Time) []model.Diagnostic {
	var indiv, student *model.PriceRow
	for i := range rows {
		switch rows[i].Plan {
		case model.TierIndividual:
			indiv = &rows[i]
		case model.TierStudent:
			student = &rows[i]
		}
	}
	if indiv == nil || indiv.PriceValue == nil {
		return nil
	}

	implausible := indiv.PriceValue.LessThan(minPlausiblePrice)
	if student != nil && student.PriceValue != nil &&
		indiv.Currency == student.Currency &&
		indiv.PriceValue.LessThan(*student.PriceValue) {
		implausible = true
	}
	if !implausible {
		return nil
	}

	if p.secondary != nil {
		value, iso, err := p.secondary.PriceFor(ctx, in.Provider, in.CountryCode, model.TierIndividual)
		if err == nil && value.IsPositive() {
			logger.Heuristic("implausible_price_override", logger.Fields{
				"provider": in.Provider,
				"country":  in.CountryCode,
				"old":      indiv.PriceValue.String(),
				"new":      value.String(),
			})
			indiv.PriceValue = &value
			indiv.PriceDisplay = value.StringFixed(2)
			if iso != "" {
				indiv.Currency = iso
			}
			indiv.Source = "secondary_override"
			return nil
		}
	}

	return []model.Diagnostic{p.diagnostic(in, string(model.TierIndividual), model.ReasonImplausibleOverride, Card{}, now)}
}

func (p *Pipeline) diagnostic(in Input, planLabel, reason string, card Card, now time.Time) model.Diagnostic {
	return model.Diagnostic{
		RunID:       in.RunID,
		Provider:    in.Provider,
		Country:     p.resolver.Name(in.CountryCode),
		CountryCode: in.CountryCode,
		Plan:        planLabel,
		URL:         sourceURL(card, in),
		Reason:      reason,
		Snippet:     snippet(card.Text),
		Timestamp:   now,
	}
}

func sourceURL(card Card, in Input) string {
	if card.SourceURL != "" {
		return card.SourceURL
	}
	return in.SourceURL
}

func snippet(text string) string {
	const max = 200
	if len(text) <= max {
		return text
	}
	cut := max
	for cut > 0 && text[cut]&0xC0 == 0x80 {
		cut--
	}
	return text[:cut]
}

// SortRows orders the output table deterministically by country, then by
// tier position, then by tier name for non-canonical tiers.
func SortRows(rows []model.PriceRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Country != rows[j].Country {
			return rows[i].Country < rows[j].Country
		}
		oi, oj := rows[i].Plan.Order(), rows[j].Plan.Order()
		if oi != oj {
			return oi < oj
		}
		return rows[i].Plan < rows[j].Plan
	})
}
