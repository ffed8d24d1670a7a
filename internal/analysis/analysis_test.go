package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shaizy-S/AutoSentiment/internal/domain"
	"github.com/Shaizy-S/AutoSentiment/internal/lexicon"
	"github.com/Shaizy-S/AutoSentiment/internal/normalizer"
)

var norm = normalizer.New()

func review(id, text string, rating int) domain.NormalizedReview {
	return norm.Normalize(domain.RawReview{SourceID: id, Text: text, Rating: rating})
}

func aspects(mentions []domain.AspectMention) []domain.Aspect {
	out := make([]domain.Aspect, 0, len(mentions))
	for _, m := range mentions {
		out = append(out, m.Aspect)
	}
	return out
}

func TestExtractFindsAspectsInFixedOrder(t *testing.T) {
	ex := NewExtractor(lexicon.Default())
	r := review("r1", "बैटरी खराब है लेकिन कैमरा बहुत अच्छा है", 0)

	mentions, err := ex.Extract(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, []domain.Aspect{domain.AspectCamera, domain.AspectBattery}, aspects(mentions))
	assert.Equal(t, "r1", mentions[0].ReviewID)
	assert.Equal(t, "कैमरा", mentions[0].Span.Text)
}

func TestExtractMergesDuplicatesKeepingHighestConfidence(t *testing.T) {
	ex := NewExtractor(lexicon.Default())
	r := review("r1", "photo is ok, camera is great, photo again", 0)

	mentions, err := ex.Extract(context.Background(), r)
	require.NoError(t, err)
	require.Len(t, mentions, 1)
	assert.Equal(t, "camera", mentions[0].Span.Text)
	assert.InDelta(t, 0.95, mentions[0].Confidence, 1e-9)
}

func TestExtractPrefersPhrases(t *testing.T) {
	ex := NewExtractor(lexicon.Default())
	r := review("r1", "value for money phone", 0)

	mentions, err := ex.Extract(context.Background(), r)
	require.NoError(t, err)
	require.Len(t, mentions, 1)
	assert.Equal(t, domain.AspectValue, mentions[0].Aspect)
	assert.Equal(t, domain.Span{Start: 0, End: 3, Text: "value for money"}, mentions[0].Span)
}

func TestExtractAppliesCrossLanguagePenalty(t *testing.T) {
	ex := NewExtractor(lexicon.Default())
	r := domain.NormalizedReview{ID: "r1", Tokens: []string{"कैमरे", "छान"}, Language: domain.LanguageMarathi}

	mentions, err := ex.Extract(context.Background(), r)
	require.NoError(t, err)
	require.Len(t, mentions, 1)
	assert.InDelta(t, 0.95*0.85, mentions[0].Confidence, 1e-9)

	// A term listed for both languages keeps its full confidence.
	r.Tokens = []string{"फोटो", "छान"}
	mentions, err = ex.Extract(context.Background(), r)
	require.NoError(t, err)
	require.Len(t, mentions, 1)
	assert.InDelta(t, 0.8, mentions[0].Confidence, 1e-9)
}

func TestExtractDisambiguatesByContext(t *testing.T) {
	ex := NewExtractor(lexicon.Default())

	mentions, err := ex.Extract(context.Background(), review("r1", "the phone cell is ok", 0))
	require.NoError(t, err)
	assert.Equal(t, []domain.Aspect{domain.AspectPerformance}, aspects(mentions))

	mentions, err = ex.Extract(context.Background(), review("r2", "battery cell died", 0))
	require.NoError(t, err)
	assert.Equal(t, []domain.Aspect{domain.AspectBattery}, aspects(mentions))

	mentions, err = ex.Extract(context.Background(), review("r3", "camera quality is superb", 0))
	require.NoError(t, err)
	assert.Equal(t, []domain.Aspect{domain.AspectCamera}, aspects(mentions))
}

func TestExtractHonoursConfidenceFloor(t *testing.T) {
	lex, err := lexicon.Parse([]byte("confidenceFloor: 0.4\naspects:\n  - aspect: Display\n    terms: {en: {panel: 0.3, screen: 0.9}}\n"))
	require.NoError(t, err)
	ex := NewExtractor(lex)

	mentions, err := ex.Extract(context.Background(), review("r1", "panel looks fine", 0))
	require.NoError(t, err)
	assert.Empty(t, mentions)

	mentions, err = ex.Extract(context.Background(), review("r2", "screen looks fine", 0))
	require.NoError(t, err)
	assert.Len(t, mentions, 1)
}

func TestExtractStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewExtractor(lexicon.Default()).Extract(ctx, review("r1", "camera", 0))
	assert.ErrorIs(t, err, context.Canceled)
}

func scoreFirst(t *testing.T, s *Scorer, r domain.NormalizedReview) domain.AspectSentiment {
	t.Helper()
	mentions, err := NewExtractor(lexicon.Default()).Extract(context.Background(), r)
	require.NoError(t, err)
	require.NotEmpty(t, mentions)
	out, err := s.Score(context.Background(), r, mentions[0])
	require.NoError(t, err)
	return out
}

func TestScoreBlendsAllSignals(t *testing.T) {
	s := NewScorer(lexicon.Default())
	got := scoreFirst(t, s, review("r1", "camera very good", 5))

	// 0.5*0.7 + 0.3*1 + 0.2*(0.7*1.25)
	assert.InDelta(t, 0.825, got.Score, 1e-9)
	assert.InDelta(t, 0.95, got.Confidence, 1e-9)
	assert.Equal(t, domain.AspectCamera, got.Aspect)
}

func TestScoreAppliesNegationAndRedistributesRatingWeight(t *testing.T) {
	s := NewScorer(lexicon.Default())
	got := scoreFirst(t, s, review("r1", "कैमरा अच्छा नहीं है", 0))

	assert.InDelta(t, -0.7, got.Score, 1e-9)
	assert.InDelta(t, 0.95, got.Confidence, 1e-9)
}

func TestScoreConfidenceIgnoresMissingRating(t *testing.T) {
	s := NewScorer(lexicon.Default())
	rated := scoreFirst(t, s, review("r1", "battery good", 4))
	unrated := scoreFirst(t, s, review("r2", "battery good", 0))

	assert.Equal(t, rated.Confidence, unrated.Confidence)
	assert.InDelta(t, 0.7, unrated.Score, 1e-9)
}

func TestScoreWithOnlyRating(t *testing.T) {
	s := NewScorer(lexicon.Default())
	got := scoreFirst(t, s, review("r1", "camera", 1))

	assert.InDelta(t, -1.0, got.Score, 1e-9)
	assert.InDelta(t, 0.95, got.Confidence, 1e-9)
}

func TestScoreWithoutSignal(t *testing.T) {
	s := NewScorer(lexicon.Default())
	got := scoreFirst(t, s, review("r1", "camera", 0))

	assert.Zero(t, got.Score)
	assert.Zero(t, got.Confidence)
}

func TestScoreWindow(t *testing.T) {
	text := "camera " + strings.Repeat("filler ", 13) + "good"

	got := scoreFirst(t, NewScorer(lexicon.Default()), review("r1", text, 0))
	assert.Zero(t, got.Confidence)

	got = scoreFirst(t, NewScorer(lexicon.Default(), WithWindow(20)), review("r1", text, 0))
	assert.InDelta(t, 0.7, got.Score, 1e-9)
}

func TestScoreIsBounded(t *testing.T) {
	s := NewScorer(lexicon.Default())
	for _, text := range []string{
		"camera extremely excellent superb amazing",
		"camera not not worst terrible",
		"बैटरी बहुत बहुत बेकार घटिया",
	} {
		for rating := 0; rating <= 5; rating++ {
			got := scoreFirst(t, s, review("r", text, rating))
			assert.GreaterOrEqual(t, got.Score, -1.0, text)
			assert.LessOrEqual(t, got.Score, 1.0, text)
		}
	}
}

func TestRatingPrior(t *testing.T) {
	assert.InDelta(t, -1.0, RatingPrior(1), 1e-9)
	assert.InDelta(t, 0.0, RatingPrior(3), 1e-9)
	assert.InDelta(t, 1.0, RatingPrior(5), 1e-9)
}

func TestLexicalAnalyzerVersion(t *testing.T) {
	lex := lexicon.Default()
	a := NewLexical(lex)
	assert.Equal(t, "lexical/"+lex.Version(), a.Version())
	assert.Equal(t, a.Version(), NewLexical(lex, WithWeights(DefaultWeights)).Version())

	tuned := NewLexical(lex, WithWeights(Weights{Lexicon: 0.6, Rating: 0.2, Modifier: 0.2}))
	assert.Equal(t, "lexical/"+lex.Version()+"/n12-w0.6-0.2-0.2", tuned.Version())
}

func TestWithWeightsChangesBlend(t *testing.T) {
	s := NewScorer(lexicon.Default(), WithWeights(Weights{Lexicon: 1}))
	got := scoreFirst(t, s, review("r1", "camera very good", 1))
	assert.InDelta(t, 0.7, got.Score, 1e-9, "rating and modifier are ignored")

	s = NewScorer(lexicon.Default(), WithWeights(Weights{Lexicon: -1, Rating: 1}))
	got = scoreFirst(t, s, review("r1", "camera very good", 5))
	assert.InDelta(t, 0.825, got.Score, 1e-9, "invalid weights keep the defaults")
}

func TestAnalyzeAllKeepsInputOrder(t *testing.T) {
	a := NewLexical(lexicon.Default())
	var reviews []domain.NormalizedReview
	for i := 0; i < 40; i++ {
		reviews = append(reviews, review(fmt.Sprintf("r%02d", i), "battery is good", 4))
	}

	results, err := AnalyzeAll(context.Background(), a, reviews, 3)
	require.NoError(t, err)
	require.Len(t, results, len(reviews))
	for i, res := range results {
		assert.Equal(t, reviews[i].ID, res.Review.ID)
		require.Len(t, res.Sentiments, 1)
		assert.Equal(t, domain.AspectBattery, res.Sentiments[0].Aspect)
		assert.Equal(t, reviews[i].ID, res.Sentiments[0].ReviewID)
	}
}

type failingScorer struct{}

func (failingScorer) Score(context.Context, domain.NormalizedReview, domain.AspectMention) (domain.AspectSentiment, error) {
	return domain.AspectSentiment{}, errors.New("model exploded")
}

func TestAnalyzeAllWrapsScorerFailures(t *testing.T) {
	lex := lexicon.Default()
	a := New(NewExtractor(lex), failingScorer{}, "broken")

	_, err := AnalyzeAll(context.Background(), a, []domain.NormalizedReview{review("r1", "camera good", 5)}, 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAnalyzer)
	assert.Contains(t, err.Error(), "model exploded")
}

func TestAnalyzeAllReportsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := AnalyzeAll(ctx, NewLexical(lexicon.Default()), []domain.NormalizedReview{review("r1", "camera good", 5)}, 2)
	assert.ErrorIs(t, err, context.Canceled)
}
