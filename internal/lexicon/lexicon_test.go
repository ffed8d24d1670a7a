package lexicon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shaizy-S/AutoSentiment/internal/domain"
	"github.com/Shaizy-S/AutoSentiment/internal/normalizer"
)

func tokens(s string) []string {
	return normalizer.Tokenize(normalizer.Text(s))
}

func TestDefaultLexiconLoads(t *testing.T) {
	lex := Default()

	assert.NotEmpty(t, lex.Version())
	assert.Equal(t, Default().Version(), lex.Version())
	assert.InDelta(t, 0.85, lex.CrossLanguagePenalty(), 1e-9)
	assert.InDelta(t, 0.4, lex.ConfidenceFloor(), 1e-9)
}

func TestAspectsAtPrefersLongestPhrase(t *testing.T) {
	lex := Default()
	toks := tokens("Build quality is solid")

	matches := lex.AspectsAt(toks, 0)
	require.NotEmpty(t, matches)
	assert.Equal(t, domain.AspectBuildQuality, matches[0].Aspect)
	assert.Len(t, matches[0].Tokens, 2)
}

func TestAspectTermsAreNormalized(t *testing.T) {
	lex := Default()
	// The lexicon spells डिज़ाइन with a nukta; review text folds it away.
	toks := tokens("डिज़ाइन अच्छा है")

	matches := lex.AspectsAt(toks, 0)
	require.NotEmpty(t, matches)
	assert.Equal(t, domain.AspectBuildQuality, matches[0].Aspect)
}

func TestRuleResolvesByContext(t *testing.T) {
	lex := Default()
	rule, ok := lex.Rule("cell")
	require.True(t, ok)

	toks := tokens("the battery cell died")
	aspect, conf, ok := rule.Resolve(toks, 2)
	require.True(t, ok)
	assert.Equal(t, domain.AspectBattery, aspect)
	assert.InDelta(t, 0.8, conf, 1e-9)

	toks = tokens("phone cell is fine")
	aspect, _, ok = rule.Resolve(toks, 1)
	require.True(t, ok)
	assert.Equal(t, domain.AspectPerformance, aspect)

	_, _, ok = rule.Resolve(tokens("cell"), 0)
	assert.False(t, ok, "cell has no default aspect")
}

func TestRuleFallsBackToDefault(t *testing.T) {
	lex := Default()
	rule, ok := lex.Rule("quality")
	require.True(t, ok)

	aspect, conf, ok := rule.Resolve(tokens("quality is top notch"), 0)
	require.True(t, ok)
	assert.Equal(t, domain.AspectBuildQuality, aspect)
	assert.InDelta(t, 0.45, conf, 1e-9)
}

func TestPolarityAndModifiers(t *testing.T) {
	lex := Default()

	term, ok := lex.PolarityAt(tokens("बहुत बढ़िया"), 1)
	require.True(t, ok)
	assert.Greater(t, term.Polarity, 0.0)

	term, ok = lex.PolarityAt(tokens("खूप वाईट"), 1)
	require.True(t, ok)
	assert.Less(t, term.Polarity, 0.0)

	_, ok = lex.PolarityAt(tokens("फोन"), 0)
	assert.False(t, ok)

	assert.True(t, lex.IsNegator("नहीं"))
	assert.True(t, lex.IsNegator("नाही"))
	assert.True(t, lex.IsNegator("not"))
	assert.True(t, lex.IsIntensifier("बहुत"))
	assert.True(t, lex.IsIntensifier("खूप"))
	assert.False(t, lex.IsIntensifier("अच्छा"))
}

func TestParseRejectsInvalidLexicons(t *testing.T) {
	cases := map[string]string{
		"unknown aspect":   "aspects:\n  - aspect: Speaker\n    terms: {en: {speaker: 0.9}}\n",
		"other aspect":     "aspects:\n  - aspect: Other\n    terms: {en: {misc: 0.9}}\n",
		"bad confidence":   "aspects:\n  - aspect: Camera\n    terms: {en: {camera: 1.5}}\n",
		"unknown language": "aspects:\n  - aspect: Camera\n    terms: {fr: {appareil: 0.9}}\n",
		"zero polarity":    "polarity: {en: {meh: 0}}\n",
		"phrase rule":      "rules:\n  - term: battery cell\n    contexts: []\n",
		"not yaml":         "aspects: [",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestVersionTracksContent(t *testing.T) {
	a, err := Parse([]byte("aspects:\n  - aspect: Camera\n    terms: {en: {camera: 0.9}}\n"))
	require.NoError(t, err)
	b, err := Parse([]byte("aspects:\n  - aspect: Camera\n    terms: {en: {camera: 0.8}}\n"))
	require.NoError(t, err)

	assert.NotEqual(t, a.Version(), b.Version())
	assert.InDelta(t, 1.0, a.CrossLanguagePenalty(), 1e-9)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexicon.yaml")
	require.NoError(t, os.WriteFile(path, []byte("aspects:\n  - aspect: Display\n    terms: {en: {panel: 0.9}}\n"), 0o600))

	lex, err := Load(path)
	require.NoError(t, err)
	matches := lex.AspectsAt([]string{"panel"}, 0)
	require.Len(t, matches, 1)
	assert.Equal(t, domain.AspectDisplay, matches[0].Aspect)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLanguageHints(t *testing.T) {
	assert.Empty(t, Default().Hints(LangMarathi))

	lex, err := Parse([]byte(`
confidenceFloor: 0.4
languageHints:
  mr: ["आम्ही", "केला  घेतला"]
  HI: ["हमने"]
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"आम्ही", "केला", "घेतला"}, lex.Hints(LangMarathi))
	assert.Equal(t, []string{"हमने"}, lex.Hints(LangHindi))

	_, err = Parse([]byte("languageHints:\n  en: [\"the\"]\n"))
	assert.Error(t, err)
}
