package ports

import (
	"context"
	"io"
	"time"

	"github.com/Shaizy-S/AutoSentiment/internal/domain"
)

// ReviewProvider resolves a product into a bounded, stably ordered review collection.
type ReviewProvider interface {
	Fetch(ctx context.Context, query domain.ProductQuery, limit int) ([]domain.RawReview, error)
	Version() string
}

// AspectExtractor maps a normalized review to aspect mentions.
type AspectExtractor interface {
	Extract(ctx context.Context, review domain.NormalizedReview) ([]domain.AspectMention, error)
}

// SentimentScorer scores one (review, mention) pair in [-1, +1].
type SentimentScorer interface {
	Score(ctx context.Context, review domain.NormalizedReview, mention domain.AspectMention) (domain.AspectSentiment, error)
}

// TextAnalyzer is the extraction and scoring contract the pipeline depends on.
type TextAnalyzer interface {
	AspectExtractor
	SentimentScorer
	Version() string
}

// AnalysisStore persists sealed analyses behind the in-memory cache.
type AnalysisStore interface {
	Load(ctx context.Context, key string) (domain.ProductAnalysis, bool, error)
	Save(ctx context.Context, key string, analysis domain.ProductAnalysis) error
}

// ReviewRepository stores reviews for the SQL-backed provider and the ingest command.
type ReviewRepository interface {
	SaveReviews(ctx context.Context, product string, reviews []domain.RawReview) (int, error)
}

// PageFetcher downloads an HTML page for scraping.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}

// Scheduler controls when recurring jobs (cache warm-up) execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}

// Notifier publishes a plain-text digest to operators.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}
