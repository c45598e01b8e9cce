package plan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Nestour97/dsp-scraper/internal/model"
	"github.com/Nestour97/dsp-scraper/internal/translate"
)

// stubTranslator returns a fixed mapping, standing in for the real
// translation backend.
type stubTranslator struct {
	mapping map[string]string
	calls   int
}

func (s *stubTranslator) Translate(_ context.Context, text string) (string, error) {
	s.calls++
	if out, ok := s.mapping[text]; ok {
		return out, nil
	}
	return text, nil
}

func TestClassify(t *testing.T) {
	c := NewClassifier(translate.Noop{})

	tests := []struct {
		name string
		raw  string
		want model.Tier
	}{
		{"english canonical", "Student", model.TierStudent},
		{"brand prefix stripped by priority", "Premium Family", model.TierFamily},
		{"duo beats premium", "Premium Duo", model.TierDuo},
		{"bare premium", "Premium", model.TierPremium},
		{"french accents", "Étudiant", model.TierStudent},
		{"spanish", "Plan Familiar", model.TierFamily},
		{"turkish", "Öğrenci", model.TierStudent},
		{"german", "Individuell", model.TierIndividual},
		{"japanese", "プレミアム", model.TierPremium},
		{"korean student", "학생", model.TierStudent},
		{"netflix standard", "Standard with ads", model.TierStandard},
		{"netflix basic", "Basic", model.TierBasic},
		{"personal wording", "Personal Plan", model.TierIndividual},
		{"french personnel", "Personnel", model.TierIndividual},
		{"voice plan", "Premium Voice", model.TierVoice},
		{"unknown", "Mega 4K", model.TierOther},
		{"empty", "", model.TierOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(context.Background(), tt.raw))
		})
	}
}

func TestClassifyTranslationFallback(t *testing.T) {
	st := &stubTranslator{mapping: map[string]string{
		"Opiskelija": "student plan",
	}}
	c := NewClassifier(st)

	got := c.Classify(context.Background(), "Opiskelija")
	assert.Equal(t, model.TierStudent, got)
	assert.Equal(t, 1, st.calls)

	// Names the synonym table already resolves never hit the translator.
	st.calls = 0
	c.Classify(context.Background(), "Familie")
	assert.Equal(t, 0, st.calls)
}

func TestClassifyFuzzy(t *testing.T) {
	c := NewClassifier(nil)

	// Close misspellings still land on the right tier.
	assert.Equal(t, model.TierStudent, c.Classify(context.Background(), "Studnet"))
	assert.Equal(t, model.TierPremium, c.Classify(context.Background(), "Premum tier"))
}

func TestTierOrdering(t *testing.T) {
	assert.Less(t, model.TierStudent.Order(), model.TierIndividual.Order())
	assert.Less(t, model.TierIndividual.Order(), model.TierFamily.Order())
	assert.Less(t, model.TierFamily.Order(), model.TierOther.Order())
}
