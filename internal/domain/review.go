package domain

import (
	"strings"
	"time"
)

// Language labels a review after script detection and Hindi/Marathi disambiguation.
type Language string

const (
	LanguageHindi   Language = "hi"
	LanguageMarathi Language = "mr"
	LanguageOther   Language = "other"
)

// ParseLanguage accepts the boundary tags "hi", "mr" and "other".
func ParseLanguage(tag string) (Language, bool) {
	switch Language(strings.ToLower(strings.TrimSpace(tag))) {
	case LanguageHindi:
		return LanguageHindi, true
	case LanguageMarathi:
		return LanguageMarathi, true
	case LanguageOther:
		return LanguageOther, true
	default:
		return "", false
	}
}

// Weight is the aggregation weight of reviews written in the language.
func (l Language) Weight() float64 {
	switch l {
	case LanguageHindi, LanguageMarathi:
		return 1.0
	default:
		return 0.5
	}
}

// ProductQuery is a deduplicated candidate product of one comparison request.
type ProductQuery struct {
	ID         string
	RawName    string
	Normalized string
}

// RawReview is a review record as returned by a provider.
type RawReview struct {
	SourceID  string
	Text      string
	Rating    int // 0 when the source carries no star rating
	Timestamp time.Time
}

// NormalizedReview is a RawReview after language labelling and text normalization.
type NormalizedReview struct {
	ID                 string
	Original           string
	Text               string
	Tokens             []string
	Language           Language
	LanguageConfidence float64
	Rating             int
	Timestamp          time.Time
}

// HasRating reports whether an explicit 1..5 star rating is present.
func (r NormalizedReview) HasRating() bool {
	return ValidRating(r.Rating)
}

// ValidRating reports whether v is a 1..5 star rating.
func ValidRating(v int) bool {
	return v >= 1 && v <= 5
}
