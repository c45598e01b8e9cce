package pricing

import (
	"strings"

	"github.com/Nestour97/dsp-scraper/internal/model"
	"github.com/Nestour97/dsp-scraper/logger"
)

// Scoring weights applied on top of a candidate's numeric value. Sub-unit
// amounts and promo prices are damped, recurring prices are boosted.
const (
	subUnitWeight = 0.3
	introWeight   = 0.5
	afterWeight   = 1.3
	monthlyWeight = 1.4
)

// Selection is the outcome of picking the standard recurring price out of
// a scanned page.
type Selection struct {
	Candidate PriceCandidate
	Currency  CurrencyResolution
	Policy    string
}

// Selector picks the standard (post-promotion, recurring) price from a
// set of scanned candidates and resolves its currency.
type Selector struct {
	detector *Detector
}

func NewSelector(detector *Detector) *Selector {
	return &Selector{detector: detector}
}

type markedCandidate struct {
	PriceCandidate
	monthly bool
	after   bool
	intro   bool
	score   float64
}

func (s *Selector) mark(c PriceCandidate) markedCandidate {
	m := markedCandidate{
		PriceCandidate: c,
		monthly:        HasMonthlyMarker(c.ContextWindow),
		after:          HasAfterMarker(c.ContextWindow),
		intro:          HasIntroMarker(c.ContextWindow),
	}
	m.score, _ = c.NumericValue.Float64()
	if m.score < 1 {
		m.score *= subUnitWeight
	}
	if m.monthly {
		m.score *= monthlyWeight
	}
	if m.after {
		m.score *= afterWeight
	}
	if m.intro {
		m.score *= introWeight
	}
	return m
}

// Select scans text for price candidates and applies the selection policy
// in order: recurring price named after a promotion, recurring price with
// no promo wording, the price following the last "then"-style marker, and
// finally the largest value on the page. It returns a failure reason from
// the model package when no standard price can be picked.
func (s *Selector) Select(text, countryCode string) (*Selection, string) {
	normalized := NormalizeScanText(text)

	var marked []markedCandidate
	for _, c := range ScanPriceTokens(text) {
		if !c.HasValue || !c.NumericValue.IsPositive() {
			continue
		}
		marked = append(marked, s.mark(c))
	}
	if len(marked) == 0 {
		return nil, model.ReasonNoPriceMatches
	}

	if win, ok := bestScored(marked, func(m markedCandidate) bool { return m.monthly && m.after }); ok {
		return s.finish(win, "monthly_after", countryCode)
	}
	if win, ok := bestScored(marked, func(m markedCandidate) bool { return m.monthly && !m.intro }); ok {
		return s.finish(win, "monthly_no_intro", countryCode)
	}
	if pivot := lastAfterMarkerIndex(normalized); pivot >= 0 {
		if win, ok := bestValue(marked, func(m markedCandidate) bool { return m.Start > pivot }); ok {
			return s.finish(win, "after_pivot", countryCode)
		}
	}

	allIntro := true
	for _, m := range marked {
		if !m.intro {
			allIntro = false
			break
		}
	}
	if allIntro {
		return nil, model.ReasonOnlyIntroPrices
	}

	win, _ := bestValue(marked, func(markedCandidate) bool { return true })
	logger.Heuristic("largest_value_fallback", logger.Fields{
		"country": countryCode,
		"token":   win.RawToken,
	})
	return s.finish(win, "largest_value", countryCode)
}

// finish resolves the winner's currency. A selection with an empty ISO
// code is still returned so callers can emit the price with a
// currency-unresolved diagnostic instead of dropping it.
func (s *Selector) finish(win markedCandidate, policy, countryCode string) (*Selection, string) {
	detectText := win.CurrencyRaw + " " + win.ContextWindow
	res := s.detector.Detect(detectText, countryCode, win.NumericValue)
	sel := &Selection{
		Candidate: win.PriceCandidate,
		Currency:  res,
		Policy:    policy,
	}
	if res.ISOCode == "" {
		return sel, model.ReasonCurrencyUnresolved
	}
	return sel, ""
}

func bestScored(marked []markedCandidate, keep func(markedCandidate) bool) (markedCandidate, bool) {
	var best markedCandidate
	found := false
	for _, m := range marked {
		if !keep(m) {
			continue
		}
		if !found || m.score > best.score {
			best, found = m, true
		}
	}
	return best, found
}

func bestValue(marked []markedCandidate, keep func(markedCandidate) bool) (markedCandidate, bool) {
	var best markedCandidate
	found := false
	for _, m := range marked {
		if !keep(m) {
			continue
		}
		if !found || m.NumericValue.GreaterThan(best.NumericValue) {
			best, found = m, true
		}
	}
	return best, found
}

// lastAfterMarkerIndex returns the byte offset of the last post-promotion
// marker in the normalized text, or -1.
func lastAfterMarkerIndex(text string) int {
	last := -1
	for _, loc := range afterWordRe.FindAllStringIndex(text, -1) {
		if loc[0] > last {
			last = loc[0]
		}
	}
	lower := strings.ToLower(text)
	for _, w := range afterLoose {
		if i := strings.LastIndex(lower, w); i > last {
			last = i
		}
	}
	for _, w := range afterCJK {
		if i := strings.LastIndex(text, w); i > last {
			last = i
		}
	}
	return last
}
