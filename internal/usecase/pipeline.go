package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/sync/semaphore"

	"github.com/Shaizy-S/AutoSentiment/internal/aggregator"
	"github.com/Shaizy-S/AutoSentiment/internal/analysis"
	"github.com/Shaizy-S/AutoSentiment/internal/cache"
	"github.com/Shaizy-S/AutoSentiment/internal/domain"
	"github.com/Shaizy-S/AutoSentiment/internal/normalizer"
	"github.com/Shaizy-S/AutoSentiment/internal/ports"
)

// DefaultProviderConcurrency bounds outstanding provider calls across all pipelines.
const DefaultProviderConcurrency = 16

// Profile holds the request options that change a product analysis.
type Profile struct {
	MaxReviews int
	Languages  []domain.Language
}

// String is the canonical form used in cache keys.
func (p Profile) String() string {
	langs := make([]string, len(p.Languages))
	for i, l := range p.Languages {
		langs[i] = string(l)
	}
	slices.Sort(langs)
	langs = slices.Compact(langs)
	return fmt.Sprintf("n=%d;langs=%s", p.MaxReviews, strings.Join(langs, ","))
}

// accepts reports whether a review in lang is kept. "Other" reviews are always kept and downweighted later.
func (p Profile) accepts(lang domain.Language) bool {
	return lang == domain.LanguageOther || len(p.Languages) == 0 || slices.Contains(p.Languages, lang)
}

// PipelineDeps wires all driven adapters into the per-product pipeline.
type PipelineDeps struct {
	Provider            ports.ReviewProvider
	Analyzer            ports.TextAnalyzer
	Normalizer          *normalizer.Normalizer
	Aggregator          *aggregator.Aggregator
	Cache               *cache.ResultCache
	ProviderConcurrency int
	Parallelism         int
	Logger              *slog.Logger
}

// Pipeline turns one product query into a sealed ProductAnalysis:
// Provider -> Normalizer -> Extractor -> Scorer -> Aggregator, behind the result cache.
type Pipeline struct {
	provider    ports.ReviewProvider
	analyzer    ports.TextAnalyzer
	normalizer  *normalizer.Normalizer
	aggregator  *aggregator.Aggregator
	cache       *cache.ResultCache
	providerSem *semaphore.Weighted
	parallelism int
	logger      *slog.Logger
}

// NewPipeline constructs the per-product pipeline.
func NewPipeline(deps PipelineDeps) *Pipeline {
	if deps.Normalizer == nil {
		deps.Normalizer = normalizer.New()
	}
	if deps.Aggregator == nil {
		deps.Aggregator = aggregator.New(aggregator.Config{})
	}
	if deps.ProviderConcurrency <= 0 {
		deps.ProviderConcurrency = DefaultProviderConcurrency
	}
	if deps.Parallelism <= 0 {
		deps.Parallelism = analysis.DefaultParallelism
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Pipeline{
		provider:    deps.Provider,
		analyzer:    deps.Analyzer,
		normalizer:  deps.Normalizer,
		aggregator:  deps.Aggregator,
		cache:       deps.Cache,
		providerSem: semaphore.NewWeighted(int64(deps.ProviderConcurrency)),
		parallelism: deps.Parallelism,
		logger:      deps.Logger,
	}
}

// Versions identifies the provider and analyzer behind every analysis this pipeline produces.
func (p *Pipeline) Versions() domain.Versions {
	return domain.Versions{Provider: p.provider.Version(), Analyzer: p.analyzer.Version()}
}

// Analyze returns the analysis of query, from the cache when possible.
func (p *Pipeline) Analyze(ctx context.Context, query domain.ProductQuery, profile Profile) (domain.ProductAnalysis, error) {
	if p.provider == nil || p.analyzer == nil {
		return domain.ProductAnalysis{}, fmt.Errorf("%w: pipeline is not configured", domain.ErrInternal)
	}
	if p.cache == nil {
		return p.build(ctx, query, profile)
	}

	v := p.Versions()
	key := cache.Key{Product: query.Normalized, Provider: v.Provider, Analyzer: v.Analyzer, Profile: profile.String()}
	result, hit, err := p.cache.GetOrCompute(ctx, key, func(ctx context.Context) (domain.ProductAnalysis, error) {
		return p.build(ctx, query, profile)
	})
	if hit {
		p.logger.Debug("cache hit", "product", query.Normalized)
	}
	return result, err
}

func (p *Pipeline) build(ctx context.Context, query domain.ProductQuery, profile Profile) (domain.ProductAnalysis, error) {
	raw, err := p.fetch(ctx, query, profile.MaxReviews)
	if err != nil {
		return domain.ProductAnalysis{}, err
	}

	reviews := make([]domain.NormalizedReview, 0, len(raw))
	for _, r := range prepare(raw) {
		n := p.normalizer.Normalize(r)
		if !profile.accepts(n.Language) {
			continue
		}
		reviews = append(reviews, n)
	}
	p.logger.Debug("reviews normalized", "product", query.Normalized, "fetched", len(raw), "retained", len(reviews))

	results, err := analysis.AnalyzeAll(ctx, p.analyzer, reviews, p.parallelism)
	if err != nil {
		return domain.ProductAnalysis{}, fmt.Errorf("analyze %s: %w", query.Normalized, err)
	}
	if err := ctx.Err(); err != nil {
		return domain.ProductAnalysis{}, err
	}

	out := p.aggregator.Aggregate(query.Normalized, results)
	out.Versions = p.Versions()
	out.Profile = profile.String()
	p.logger.Debug("analysis sealed", "product", query.Normalized, "aspects", len(out.Aspects), "overall", out.Overall)
	return out, nil
}

func (p *Pipeline) fetch(ctx context.Context, query domain.ProductQuery, limit int) ([]domain.RawReview, error) {
	if err := p.providerSem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer p.providerSem.Release(1)

	raw, err := p.provider.Fetch(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch reviews: %w", err)
	}
	if limit > 0 && len(raw) > limit {
		raw = raw[:limit]
	}
	return raw, nil
}

// prepare drops repeated source ids and names reviews that arrived without one.
// Generated ids depend only on the position in the provider output.
func prepare(raw []domain.RawReview) []domain.RawReview {
	out := make([]domain.RawReview, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for i, r := range raw {
		if strings.TrimSpace(r.Text) == "" {
			continue
		}
		if r.SourceID == "" {
			r.SourceID = fmt.Sprintf("review-%04d", i)
		}
		if _, dup := seen[r.SourceID]; dup {
			continue
		}
		seen[r.SourceID] = struct{}{}
		out = append(out, r)
	}
	return out
}
