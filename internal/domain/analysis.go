package domain

import "time"

// Span locates a mention inside the token sequence of a normalized review.
type Span struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
}

// AspectMention is a recognized reference to an aspect inside one review.
type AspectMention struct {
	ReviewID   string
	Aspect     Aspect
	Span       Span
	Confidence float64
}

// AspectSentiment is the scored polarity of one (review, aspect) pair.
type AspectSentiment struct {
	ReviewID   string
	Aspect     Aspect
	Score      float64 // [-1, +1]
	Confidence float64
}

// AspectScore is the aggregated score of a product on one aspect.
type AspectScore struct {
	Aspect  Aspect `json:"aspect"`
	Score   int    `json:"score"`
	Support int    `json:"support"`
}

// SampleReview is a review excerpt that backs an aspect score.
type SampleReview struct {
	SourceID  string    `json:"source_id"`
	Text      string    `json:"text"`
	Rating    int       `json:"rating,omitempty"`
	Aspect    Aspect    `json:"aspect"`
	Language  Language  `json:"language"`
	Timestamp time.Time `json:"timestamp"`
	Sentiment float64   `json:"sentiment"`
	Strength  float64   `json:"strength"`
}

// Versions identifies the provider and analyzer that produced an analysis.
type Versions struct {
	Provider string `json:"provider"`
	Analyzer string `json:"analyzer"`
}

// ProductAnalysis is the sealed, product-local result of one pipeline run.
// It is shared through the cache and must be treated as read-only.
type ProductAnalysis struct {
	Product       string         `json:"product"`
	Versions      Versions       `json:"versions"`
	Profile       string         `json:"profile"`
	ReviewCount   int            `json:"review_count"`
	AnalyzedCount int            `json:"analyzed_count"`
	Aspects       []AspectScore  `json:"aspects"`
	Insufficient  []AspectScore  `json:"insufficient,omitempty"`
	Overall       float64        `json:"overall"`
	HasOverall    bool           `json:"has_overall"`
	Evidence      []SampleReview `json:"evidence,omitempty"`
	Fallback      []SampleReview `json:"fallback,omitempty"`
}

// Score returns the published score for the aspect.
func (p ProductAnalysis) Score(aspect Aspect) (AspectScore, bool) {
	for _, s := range p.Aspects {
		if s.Aspect == aspect {
			return s, true
		}
	}
	return AspectScore{}, false
}

// EvidenceFor returns the representative review recorded for the aspect.
func (p ProductAnalysis) EvidenceFor(aspect Aspect) (SampleReview, bool) {
	for _, e := range p.Evidence {
		if e.Aspect == aspect {
			return e, true
		}
	}
	return SampleReview{}, false
}

// EvidenceCandidates returns every review recorded for the aspect, best first.
func (p ProductAnalysis) EvidenceCandidates(aspect Aspect) []SampleReview {
	var out []SampleReview
	for _, e := range p.Evidence {
		if e.Aspect == aspect {
			out = append(out, e)
		}
	}
	return out
}

// MeanSupport averages support over the published aspects.
func (p ProductAnalysis) MeanSupport() float64 {
	if len(p.Aspects) == 0 {
		return 0
	}
	total := 0
	for _, s := range p.Aspects {
		total += s.Support
	}
	return float64(total) / float64(len(p.Aspects))
}

// SentimentLabel mirrors the coarse label shown next to the overall score.
func (p ProductAnalysis) SentimentLabel() string {
	switch {
	case !p.HasOverall:
		return ""
	case p.Overall > 6:
		return "positive"
	case p.Overall > 4:
		return "neutral"
	default:
		return "negative"
	}
}
