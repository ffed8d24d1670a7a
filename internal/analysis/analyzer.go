// Package analysis turns normalized reviews into aspect mentions and aspect sentiments.
package analysis

import (
	"context"

	"github.com/Shaizy-S/AutoSentiment/internal/domain"
	"github.com/Shaizy-S/AutoSentiment/internal/lexicon"
	"github.com/Shaizy-S/AutoSentiment/internal/ports"
)

// Analyzer composes an extractor and a scorer under a single version identity.
type Analyzer struct {
	extractor ports.AspectExtractor
	scorer    ports.SentimentScorer
	version   string
}

var _ ports.TextAnalyzer = (*Analyzer)(nil)

// New composes an analyzer. The version must change whenever either half changes behaviour.
func New(extractor ports.AspectExtractor, scorer ports.SentimentScorer, version string) *Analyzer {
	return &Analyzer{extractor: extractor, scorer: scorer, version: version}
}

// NewLexical returns the lexicon-only analyzer. Non-default scorer settings are part of its version.
func NewLexical(lex *lexicon.Lexicon, opts ...ScorerOption) *Analyzer {
	scorer := NewScorer(lex, opts...)
	return New(NewExtractor(lex), scorer, "lexical/"+lex.Version()+scorer.variant())
}

func (a *Analyzer) Extract(ctx context.Context, review domain.NormalizedReview) ([]domain.AspectMention, error) {
	return a.extractor.Extract(ctx, review)
}

func (a *Analyzer) Score(ctx context.Context, review domain.NormalizedReview, m domain.AspectMention) (domain.AspectSentiment, error) {
	return a.scorer.Score(ctx, review, m)
}

func (a *Analyzer) Version() string {
	return a.version
}
