// Package aggregator folds per-review aspect sentiments into per-product aspect scores.
package aggregator

import (
	"math"
	"sort"

	"github.com/Shaizy-S/AutoSentiment/internal/analysis"
	"github.com/Shaizy-S/AutoSentiment/internal/domain"
)

// Defaults for publishing thresholds.
const (
	DefaultMinSupport      = 3
	DefaultMinAspects      = 3
	DefaultFallbackSamples = 3

	// evidencePerAspect bounds the ranked candidates kept for each published aspect.
	evidencePerAspect = 3
)

// Config controls when aspect and overall scores are published.
type Config struct {
	MinSupport      int
	MinAspects      int
	FallbackSamples int
}

// Aggregator is stateless and safe for concurrent use.
type Aggregator struct {
	cfg Config
}

// New returns an Aggregator, filling unset thresholds with defaults.
func New(cfg Config) *Aggregator {
	if cfg.MinSupport <= 0 {
		cfg.MinSupport = DefaultMinSupport
	}
	if cfg.MinAspects <= 0 {
		cfg.MinAspects = DefaultMinAspects
	}
	if cfg.FallbackSamples < 0 {
		cfg.FallbackSamples = 0
	} else if cfg.FallbackSamples == 0 {
		cfg.FallbackSamples = DefaultFallbackSamples
	}
	return &Aggregator{cfg: cfg}
}

type bucket struct {
	sumWS, sumW float64
	support     int
	evidence    []domain.SampleReview
}

// Aggregate builds the product-local part of a ProductAnalysis from analysed reviews.
// Aspects come out in the ranked aspect order whatever the order of the results.
func (a *Aggregator) Aggregate(product string, results []analysis.ReviewResult) domain.ProductAnalysis {
	buckets := make([]bucket, len(domain.RankedAspects))
	var unmentioned []domain.SampleReview
	analyzed := 0

	for _, res := range results {
		if len(res.Sentiments) == 0 {
			if res.Review.HasRating() {
				unmentioned = append(unmentioned, sample(res.Review, domain.AspectOther, analysis.RatingPrior(res.Review.Rating), 0))
			}
			continue
		}
		analyzed++

		for _, s := range res.Sentiments {
			idx := s.Aspect.Index()
			if idx >= len(buckets) {
				continue
			}
			w := res.Review.Language.Weight() * s.Confidence
			if w <= 0 {
				continue
			}
			b := &buckets[idx]
			b.sumWS += w * s.Score
			b.sumW += w
			b.support++
			b.evidence = append(b.evidence, sample(res.Review, s.Aspect, s.Score, math.Abs(s.Confidence*w)))
		}
	}

	out := domain.ProductAnalysis{
		Product:       product,
		ReviewCount:   len(results),
		AnalyzedCount: analyzed,
	}

	total := 0
	for i, b := range buckets {
		if b.support == 0 {
			continue
		}
		score := domain.AspectScore{
			Aspect:  domain.RankedAspects[i],
			Score:   ToPercent(b.sumWS / b.sumW),
			Support: b.support,
		}
		if b.support < a.cfg.MinSupport {
			out.Insufficient = append(out.Insufficient, score)
			continue
		}
		out.Aspects = append(out.Aspects, score)
		total += score.Score

		sortEvidence(b.evidence)
		out.Evidence = append(out.Evidence, b.evidence[:min(len(b.evidence), evidencePerAspect)]...)
	}

	if len(out.Aspects) >= a.cfg.MinAspects {
		out.Overall = float64(total) / (10 * float64(len(out.Aspects)))
		out.HasOverall = true
	}

	sort.SliceStable(unmentioned, func(i, j int) bool {
		return newer(unmentioned[i], unmentioned[j])
	})
	if len(unmentioned) > a.cfg.FallbackSamples {
		unmentioned = unmentioned[:a.cfg.FallbackSamples]
	}
	out.Fallback = unmentioned

	return out
}

// ToPercent maps a raw score in [-1, +1] onto the 0..100 scale.
func ToPercent(raw float64) int {
	v := int(math.Round(50 * (raw + 1)))
	return min(100, max(0, v))
}

func sample(r domain.NormalizedReview, aspect domain.Aspect, sentiment, strength float64) domain.SampleReview {
	return domain.SampleReview{
		SourceID:  r.ID,
		Text:      r.Original,
		Rating:    r.Rating,
		Aspect:    aspect,
		Language:  r.Language,
		Timestamp: r.Timestamp,
		Sentiment: sentiment,
		Strength:  strength,
	}
}

// sortEvidence orders candidates by strength, then explicit rating, then recency, then source id.
func sortEvidence(c []domain.SampleReview) {
	sort.SliceStable(c, func(i, j int) bool {
		a, b := c[i], c[j]
		if a.Strength != b.Strength {
			return a.Strength > b.Strength
		}
		ar, br := domain.ValidRating(a.Rating), domain.ValidRating(b.Rating)
		if ar != br {
			return ar
		}
		return newer(a, b)
	})
}

func newer(a, b domain.SampleReview) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.After(b.Timestamp)
	}
	return a.SourceID < b.SourceID
}
