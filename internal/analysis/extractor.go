package analysis

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Shaizy-S/AutoSentiment/internal/domain"
	"github.com/Shaizy-S/AutoSentiment/internal/lexicon"
	"github.com/Shaizy-S/AutoSentiment/internal/ports"
)

// Extractor finds aspect mentions with the lexicon triggers and disambiguation rules.
type Extractor struct {
	lex *lexicon.Lexicon
}

var _ ports.AspectExtractor = (*Extractor)(nil)

// NewExtractor builds an extractor over lex.
func NewExtractor(lex *lexicon.Lexicon) *Extractor {
	return &Extractor{lex: lex}
}

// Extract returns at most one mention per aspect, ordered by the ranked aspect order.
// Mentions below the lexicon confidence floor are dropped.
func (e *Extractor) Extract(ctx context.Context, review domain.NormalizedReview) ([]domain.AspectMention, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.lex == nil {
		return nil, fmt.Errorf("%w: extractor has no lexicon", domain.ErrAnalyzer)
	}

	best := make(map[domain.Aspect]domain.AspectMention)
	consider := func(m domain.AspectMention) {
		if m.Confidence < e.lex.ConfidenceFloor() {
			return
		}
		// Earlier span wins ties so the result does not depend on anything but the text.
		if cur, ok := best[m.Aspect]; !ok || m.Confidence > cur.Confidence {
			best[m.Aspect] = m
		}
	}

	tokens := review.Tokens
	for i := 0; i < len(tokens); {
		if rule, ok := e.lex.Rule(tokens[i]); ok {
			if aspect, conf, ok := rule.Resolve(tokens, i); ok {
				consider(mention(review, aspect, conf, i, i+1))
			}
			i++
			continue
		}

		matches := e.lex.AspectsAt(tokens, i)
		if len(matches) == 0 {
			i++
			continue
		}
		length := len(matches[0].Tokens)
		for _, m := range matches {
			if len(m.Tokens) != length {
				break
			}
			consider(mention(review, m.Aspect, m.Confidence*e.penalty(review.Language, m.Lang), i, i+length))
		}
		i += length
	}

	out := make([]domain.AspectMention, 0, len(best))
	for _, m := range best {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Aspect.Index() < out[j].Aspect.Index()
	})
	return out, nil
}

// penalty applies when a Hindi trigger shows up in a Marathi review or the other way round.
func (e *Extractor) penalty(review domain.Language, termLang string) float64 {
	switch {
	case review == domain.LanguageHindi && termLang == lexicon.LangMarathi,
		review == domain.LanguageMarathi && termLang == lexicon.LangHindi:
		return e.lex.CrossLanguagePenalty()
	}
	return 1
}

func mention(review domain.NormalizedReview, aspect domain.Aspect, conf float64, start, end int) domain.AspectMention {
	return domain.AspectMention{
		ReviewID: review.ID,
		Aspect:   aspect,
		Span: domain.Span{
			Start: start,
			End:   end,
			Text:  strings.Join(review.Tokens[start:end], " "),
		},
		Confidence: conf,
	}
}
