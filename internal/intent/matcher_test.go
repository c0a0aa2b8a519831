package intent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/minerva/internal/catalog"
)

func newTestMatcher(t *testing.T) (*Matcher, *catalog.Registry) {
	t.Helper()
	reg, err := catalog.Default()
	require.NoError(t, err)
	return NewMatcher(reg), reg
}

func TestMatchContainment(t *testing.T) {
	m, _ := newTestMatcher(t)

	tests := []struct {
		text    string
		topic   catalog.Key
		keyword string
	}{
		{"sociosanitario", catalog.KeySociosanitario, "sociosanitario"},
		{"  CAJERO  ", catalog.KeyCajero, "cajero"},
		{"quiero ver el catálogo de ENFERMERÍA por favor", catalog.KeyEnfermeria, "enfermería"},
		{"busco curso de oficina", catalog.KeyAdministrativo, "oficina"},
		{"dame todos los cursos", catalog.KeyGeneral, "todos los cursos"},
		// "sanitario" belongs to enfermeria but sociosanitario is declared first
		{"curso sociosanitario", catalog.KeySociosanitario, "sociosanitario"},
		{"auxiliar sanitaria", catalog.KeyEnfermeria, "sanitaria"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := m.Match(tt.text)
			assert.Equal(t, tt.topic, got.Topic)
			assert.Equal(t, KindExact, got.Kind)
			assert.Equal(t, tt.keyword, got.Keyword)
			assert.GreaterOrEqual(t, got.Score, 0.99)
		})
	}
}

func TestMatchEveryKeywordIsFoundInContext(t *testing.T) {
	m, reg := newTestMatcher(t)

	for _, topic := range reg.Topics() {
		for _, kw := range topic.Keywords {
			if len([]rune(kw)) < 3 {
				continue
			}
			got := m.Match("hola, me interesa " + strings.ToUpper(kw) + " gracias")
			require.True(t, got.Matched(), kw)
			assert.Equal(t, KindExact, got.Kind, kw)
			assert.GreaterOrEqual(t, got.Score, ExactScore, kw)
		}
	}
}

func TestMatchPrefix(t *testing.T) {
	m, _ := newTestMatcher(t)

	tests := []struct {
		text    string
		topic   catalog.Key
		keyword string
	}{
		{"enf", catalog.KeyEnfermeria, "enfermeria"},
		{"adm", catalog.KeyAdministrativo, "administrativo"},
		{"so", catalog.KeySociosanitario, "sociosanitario"},
		{"ca", catalog.KeyCajero, "cajero"},
		{"Merca", catalog.KeyCajero, "mercadona"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := m.Match(tt.text)
			assert.Equal(t, tt.topic, got.Topic)
			assert.Equal(t, KindPrefix, got.Kind)
			assert.Equal(t, tt.keyword, got.Keyword)
			assert.Equal(t, PrefixScore, got.Score)
		})
	}
}

func TestMatchSimilarity(t *testing.T) {
	m, _ := newTestMatcher(t)
	th := DefaultThresholds()

	got := m.Match("cajro")
	assert.Equal(t, catalog.KeyCajero, got.Topic)
	assert.Equal(t, KindFuzzy, got.Kind)
	assert.Equal(t, "cajero", got.Keyword)
	assert.Equal(t, StrengthStrong, th.Classify(got))

	got = m.Match("sanidad")
	assert.Equal(t, catalog.KeyEnfermeria, got.Topic)
	assert.Equal(t, "sanitario", got.Keyword)
	assert.InDelta(t, 0.625, got.Score, 1e-9)
	assert.Equal(t, StrengthModerate, th.Classify(got))

	got = m.Match("xyz123")
	assert.Equal(t, KindFuzzy, got.Kind)
	assert.Less(t, got.Score, DefaultModerateThreshold)
	assert.Equal(t, StrengthNone, th.Classify(got))
}

func TestMatchNothing(t *testing.T) {
	m, _ := newTestMatcher(t)

	for _, text := range []string{"", "   ", "\t\n"} {
		got := m.Match(text)
		assert.False(t, got.Matched())
		assert.Equal(t, KindNone, got.Kind)
		assert.Zero(t, got.Score)
	}

	got := m.Match("1")
	assert.False(t, got.Matched(), "digits share no runes with any keyword")
}

func TestMatchIsDeterministic(t *testing.T) {
	m, _ := newTestMatcher(t)
	for _, text := range []string{"sanidad", "enf", "xyz", "cajro", "no", "si"} {
		first := m.Match(text)
		for i := 0; i < 20; i++ {
			assert.Equal(t, first, m.Match(text))
		}
	}
}

func TestClassify(t *testing.T) {
	th := Thresholds{Strong: 0.65, Moderate: 0.45}

	assert.Equal(t, StrengthStrong, th.Classify(Result{Topic: "x", Score: 0.65}))
	assert.Equal(t, StrengthModerate, th.Classify(Result{Topic: "x", Score: 0.64}))
	assert.Equal(t, StrengthModerate, th.Classify(Result{Topic: "x", Score: 0.45}))
	assert.Equal(t, StrengthNone, th.Classify(Result{Topic: "x", Score: 0.44}))
	assert.Equal(t, StrengthNone, th.Classify(Result{Score: 0.99}))
	assert.Equal(t, "moderate", StrengthModerate.String())
}
