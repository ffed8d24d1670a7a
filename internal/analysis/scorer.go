package analysis

import (
	"context"
	"fmt"

	"github.com/Shaizy-S/AutoSentiment/internal/domain"
	"github.com/Shaizy-S/AutoSentiment/internal/lexicon"
	"github.com/Shaizy-S/AutoSentiment/internal/ports"
)

const (
	// DefaultWindow is the number of tokens inspected on each side of a mention.
	DefaultWindow = 12

	intensifierGain = 1.25
	negatorsBefore  = 3
	negatorsAfter   = 2
	intensifierSpan = 2
)

// Weights of the three scoring signals. Absent signals have their weight redistributed.
type Weights struct {
	Lexicon  float64
	Rating   float64
	Modifier float64
}

// DefaultWeights is the standard blend of lexicon polarity, star rating and modifiers.
var DefaultWeights = Weights{Lexicon: 0.5, Rating: 0.3, Modifier: 0.2}

// Scorer is the lexicon-based aspect sentiment scorer.
type Scorer struct {
	lex     *lexicon.Lexicon
	window  int
	weights Weights
}

var _ ports.SentimentScorer = (*Scorer)(nil)

// ScorerOption customizes a Scorer.
type ScorerOption func(*Scorer)

// WithWindow overrides the polarity window.
func WithWindow(n int) ScorerOption {
	return func(s *Scorer) {
		if n > 0 {
			s.window = n
		}
	}
}

// WithWeights overrides the signal weights.
func WithWeights(w Weights) ScorerOption {
	return func(s *Scorer) {
		if w.Lexicon >= 0 && w.Rating >= 0 && w.Modifier >= 0 && w.Lexicon+w.Rating+w.Modifier > 0 {
			s.weights = w
		}
	}
}

// NewScorer builds a Scorer over lex.
func NewScorer(lex *lexicon.Lexicon, opts ...ScorerOption) *Scorer {
	s := &Scorer{lex: lex, window: DefaultWindow, weights: DefaultWeights}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score computes the sentiment of one mention. A pair without any signal scores 0 with confidence 0.
// Otherwise the weights of the missing signals are redistributed and the mention confidence is kept,
// so a review without a star rating carries as much weight as a rated one.
func (s *Scorer) Score(ctx context.Context, review domain.NormalizedReview, m domain.AspectMention) (domain.AspectSentiment, error) {
	if err := ctx.Err(); err != nil {
		return domain.AspectSentiment{}, err
	}
	if s.lex == nil {
		return domain.AspectSentiment{}, fmt.Errorf("%w: scorer has no lexicon", domain.ErrAnalyzer)
	}
	if m.Span.Start < 0 || m.Span.End > len(review.Tokens) || m.Span.Start > m.Span.End {
		return domain.AspectSentiment{}, fmt.Errorf("%w: span [%d,%d) outside review %s", domain.ErrAnalyzer, m.Span.Start, m.Span.End, review.ID)
	}

	sig := s.signals(review, m.Span)

	var sum, weight float64
	if sig.hasLexicon {
		sum += s.weights.Lexicon * sig.lexicon
		weight += s.weights.Lexicon
	}
	if review.HasRating() {
		sum += s.weights.Rating * RatingPrior(review.Rating)
		weight += s.weights.Rating
	}
	if sig.hasModifier {
		sum += s.weights.Modifier * sig.modifier
		weight += s.weights.Modifier
	}

	out := domain.AspectSentiment{ReviewID: review.ID, Aspect: m.Aspect}
	if weight == 0 {
		return out, nil
	}
	out.Score = clamp(sum / weight)
	out.Confidence = m.Confidence
	return out, nil
}

// variant is empty for the default settings and otherwise encodes window and weights.
func (s *Scorer) variant() string {
	if s.window == DefaultWindow && s.weights == DefaultWeights {
		return ""
	}
	return fmt.Sprintf("/n%d-w%g-%g-%g", s.window, s.weights.Lexicon, s.weights.Rating, s.weights.Modifier)
}

// RatingPrior maps a 1..5 star rating onto [-1, +1].
func RatingPrior(rating int) float64 {
	return float64(rating-3) / 2
}

type signals struct {
	lexicon     float64
	hasLexicon  bool
	modifier    float64
	hasModifier bool
}

func (s *Scorer) signals(review domain.NormalizedReview, span domain.Span) signals {
	tokens := review.Tokens
	lo := max(0, span.Start-s.window)
	hi := min(len(tokens), span.End+s.window)

	var (
		out            signals
		lexSum, modSum float64
		terms          int
	)
	for j := lo; j < hi; {
		term, ok := s.lex.PolarityAt(tokens, j)
		if !ok {
			j++
			continue
		}
		end := j + len(term.Tokens)

		v := term.Polarity
		negated := s.anyWithin(tokens, j-negatorsBefore, j, s.lex.IsNegator) ||
			s.anyWithin(tokens, end, end+negatorsAfter, s.lex.IsNegator)
		if negated {
			v = -v
		}
		mod := v
		if s.anyWithin(tokens, j-intensifierSpan, j, s.lex.IsIntensifier) {
			mod = clamp(v * intensifierGain)
			out.hasModifier = true
		}
		if negated {
			out.hasModifier = true
		}

		lexSum += v
		modSum += mod
		terms++
		j = end
	}

	if terms > 0 {
		out.hasLexicon = true
		out.lexicon = lexSum / float64(terms)
		out.modifier = modSum / float64(terms)
	}
	return out
}

func (s *Scorer) anyWithin(tokens []string, from, to int, pred func(string) bool) bool {
	from, to = max(0, from), min(len(tokens), to)
	for k := from; k < to; k++ {
		if pred(tokens[k]) {
			return true
		}
	}
	return false
}

func clamp(v float64) float64 {
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	}
	return v
}
