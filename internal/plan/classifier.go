// Package plan maps localized plan names ("Étudiant", "Familia",
// "프리미엄") onto the canonical subscription tiers.
package plan

import (
	"context"
	"sort"
	"strings"

	"github.com/xrash/smetrics"

	"github.com/Nestour97/dsp-scraper/helpers"
	"github.com/Nestour97/dsp-scraper/internal/model"
	"github.com/Nestour97/dsp-scraper/internal/translate"
	"github.com/Nestour97/dsp-scraper/logger"
)

// fuzzyThreshold is the minimum Jaro-Winkler similarity for a token to
// claim a tier when no synonym matched.
const fuzzyThreshold = 0.6

// tierSynonyms lists, per tier, the substrings that identify it across
// the languages the providers localize into. Entries are matched against
// lowercased, accent-stripped input, so "Étudiant" is listed as
// "etudiant". CJK entries are matched against the raw input because
// accent stripping and lowercasing do not apply.
var tierSynonyms = []struct {
	tier  model.Tier
	latin []string
	cjk   []string
}{
	{model.TierStudent,
		[]string{"student", "etudiant", "estudiante", "estudante", "ogrenci", "universitar"},
		[]string{"学生", "학생"}},
	{model.TierFamily,
		[]string{"family", "famille", "familie", "familia", "familial", "aile"},
		[]string{"家族", "家庭", "가족"}},
	{model.TierDuo,
		[]string{"duo"},
		nil},
	{model.TierVoice,
		[]string{"voice"},
		nil},
	{model.TierBasic,
		[]string{"basic", "basique", "basico", "temel"},
		[]string{"ベーシック", "베이식", "基本"}},
	{model.TierStandard,
		[]string{"standard", "estandar", "standart", "padrao"},
		[]string{"スタンダード", "스탠다드", "標準"}},
	{model.TierIndividual,
		[]string{"individual", "individuel", "individuell", "individuale", "bireysel", "solo"},
		[]string{"個人", "个人", "개인"}},
	{model.TierPremium,
		[]string{"premium"},
		[]string{"プレミアム", "프리미엄", "премиум"}},
}

// individualAliases are wordings some providers use for their
// single-person tier. Checked before the synonym table so that
// "Personnel" never fuzzy-drifts elsewhere.
var individualAliases = []string{"personal", "personnel", "staff", "persoonlijk", "personlig"}

// canonicalNames feed the fuzzy fallback.
var canonicalNames = []struct {
	tier model.Tier
	name string
}{
	{model.TierStudent, "student"},
	{model.TierIndividual, "individual"},
	{model.TierFamily, "family"},
	{model.TierDuo, "duo"},
	{model.TierBasic, "basic"},
	{model.TierStandard, "standard"},
	{model.TierPremium, "premium"},
	{model.TierVoice, "voice"},
}

// Classifier resolves raw plan names to tiers, optionally translating
// unrecognized names to English before giving up.
type Classifier struct {
	translator translate.Translator
	log        *logger.Logger
}

func NewClassifier(translator translate.Translator) *Classifier {
	return &Classifier{
		translator: translator,
		log:        logger.ForPipeline(),
	}
}

// Classify maps a raw plan name onto a tier. Unmatchable names come back
// as TierOther rather than an error so one odd plan card never sinks the
// whole page.
func (c *Classifier) Classify(ctx context.Context, rawName string) model.Tier {
	raw := helpers.CleanSpaces(rawName)
	if raw == "" {
		return model.TierOther
	}

	if tier, ok := match(raw); ok {
		return tier
	}

	if c.translator != nil {
		translated, err := c.translator.Translate(ctx, raw)
		if err == nil && !strings.EqualFold(translated, raw) {
			if tier, ok := match(translated); ok {
				return tier
			}
		}
	}

	if tier, ok := fuzzyMatch(raw); ok {
		logger.Heuristic("plan_fuzzy_match", logger.Fields{
			"raw":  rawName,
			"tier": string(tier),
		})
		return tier
	}

	c.log.WithField("raw", rawName).Debug().Msg("plan name did not match any tier")
	return model.TierOther
}

func match(name string) (model.Tier, bool) {
	folded := helpers.StripAccents(strings.ToLower(name))

	for _, alias := range individualAliases {
		if strings.Contains(folded, alias) {
			return model.TierIndividual, true
		}
	}
	for _, syn := range tierSynonyms {
		for _, s := range syn.latin {
			if strings.Contains(folded, s) {
				return syn.tier, true
			}
		}
		for _, s := range syn.cjk {
			if strings.Contains(name, s) {
				return syn.tier, true
			}
		}
	}
	return model.TierOther, false
}

// Mention is a plan-name occurrence inside free-form page text, used to
// carve per-plan windows out of a page when no plan cards were isolated.
type Mention struct {
	Tier  model.Tier
	Label string
	Index int
}

// FindMentions locates the first occurrence of each tier's name in the
// text, in document order. Matching is case-insensitive for latin
// synonyms and literal for CJK ones; indexes refer to the input text.
func FindMentions(text string) []Mention {
	lower := strings.ToLower(text)

	var mentions []Mention
	seen := map[model.Tier]bool{}
	add := func(tier model.Tier, label string, idx int) {
		if idx < 0 || seen[tier] {
			return
		}
		seen[tier] = true
		mentions = append(mentions, Mention{Tier: tier, Label: label, Index: idx})
	}

	for _, alias := range individualAliases {
		add(model.TierIndividual, alias, strings.Index(lower, alias))
	}
	for _, syn := range tierSynonyms {
		for _, s := range syn.latin {
			add(syn.tier, s, strings.Index(lower, s))
		}
		for _, s := range syn.cjk {
			add(syn.tier, s, strings.Index(text, s))
		}
	}

	sort.Slice(mentions, func(i, j int) bool { return mentions[i].Index < mentions[j].Index })
	return mentions
}

// fuzzyMatch compares each input token against the canonical English tier
// names and takes the best similarity at or above the threshold.
func fuzzyMatch(name string) (model.Tier, bool) {
	folded := helpers.StripAccents(strings.ToLower(name))

	best := model.TierOther
	bestScore := 0.0
	for _, token := range strings.Fields(folded) {
		for _, cand := range canonicalNames {
			score := smetrics.JaroWinkler(token, cand.name, 0.7, 4)
			if score >= fuzzyThreshold && score > bestScore {
				best, bestScore = cand.tier, score
			}
		}
	}
	return best, bestScore > 0
}
