package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Shaizy-S/AutoSentiment/internal/domain"
	"github.com/Shaizy-S/AutoSentiment/internal/normalizer"
	"github.com/Shaizy-S/AutoSentiment/internal/ranker"
)

// Request limits and defaults.
const (
	MinProducts       = 2
	MaxProducts       = 5
	DefaultMaxReviews = 200
	DefaultTimeout    = 30 * time.Second
)

// DefaultLanguages is the language filter applied when a request names none.
var DefaultLanguages = []domain.Language{domain.LanguageHindi, domain.LanguageMarathi}

// ProductAnalyzer produces the analysis of one product. *Pipeline is the production implementation.
type ProductAnalyzer interface {
	Analyze(ctx context.Context, query domain.ProductQuery, profile Profile) (domain.ProductAnalysis, error)
	Versions() domain.Versions
}

// OrchestratorConfig overrides request defaults.
type OrchestratorConfig struct {
	MaxReviews int
	Timeout    time.Duration
	Languages  []domain.Language
}

// Orchestrator is the comparison entry point: it validates a request, fans out per-product
// pipelines under a global deadline and ranks the products that completed.
type Orchestrator struct {
	products ProductAnalyzer
	defaults OrchestratorConfig
	logger   *slog.Logger
	newID    func() string
}

// NewOrchestrator wires the product analyzer with request defaults.
func NewOrchestrator(products ProductAnalyzer, cfg OrchestratorConfig, logger *slog.Logger) *Orchestrator {
	if cfg.MaxReviews <= 0 {
		cfg.MaxReviews = DefaultMaxReviews
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if len(cfg.Languages) == 0 {
		cfg.Languages = DefaultLanguages
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{products: products, defaults: cfg, logger: logger, newID: uuid.NewString}
}

type outcome struct {
	analysis domain.ProductAnalysis
	err      error
}

// Compare runs one comparison. Per-product failures are reported in the result; only batch-level
// conditions (invalid request, fewer than two completed products, caller cancellation) return an error.
func (o *Orchestrator) Compare(ctx context.Context, req domain.ComparisonRequest) (domain.ComparisonResult, error) {
	started := time.Now()
	queryID := o.newID()
	log := o.logger.With("query_id", queryID)

	queries, opts, err := o.validate(req)
	if err != nil {
		log.Info("comparison rejected", "error", err)
		return domain.ComparisonResult{}, err
	}
	profile := Profile{MaxReviews: opts.MaxReviewsPerProduct, Languages: opts.Languages}
	log.Info("comparison started", "products", len(queries), "timeout", opts.Timeout, "profile", profile.String())

	runCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	outcomes := make([]outcome, len(queries))
	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[i] = o.runOne(runCtx, log, q, profile)
		}()
	}
	wg.Wait()

	if ctx.Err() != nil {
		log.Info("comparison cancelled by caller")
		return domain.ComparisonResult{}, fmt.Errorf("%w: %v", domain.ErrCancelled, ctx.Err())
	}
	deadlineHit := errors.Is(runCtx.Err(), context.DeadlineExceeded)

	var (
		entries []ranker.Entry
		failed  []domain.ProductReport
		reasons []string
	)
	for i, q := range queries {
		oc := outcomes[i]
		if oc.err == nil {
			entries = append(entries, ranker.Entry{Name: q.RawName, Key: q.Normalized, Analysis: oc.analysis})
			continue
		}

		report := domain.ProductReport{Query: q, Status: domain.StatusFailed, Reason: oc.err.Error()}
		if domain.IsCancellation(oc.err) && runCtx.Err() != nil {
			report.Status = domain.StatusCancelled
			report.Reason = "deadline exceeded before the analysis completed"
		}
		log.Warn("product not analysed", "product", q.Normalized, "status", report.Status, "error", oc.err)
		failed = append(failed, report)
		reasons = append(reasons, fmt.Sprintf("%s: %s", q.RawName, report.Reason))
	}

	if len(entries) < MinProducts {
		detail := strings.Join(reasons, "; ")
		if deadlineHit {
			return domain.ComparisonResult{}, fmt.Errorf("%w: only %d of %d products completed (%s)", domain.ErrTimeout, len(entries), len(queries), detail)
		}
		return domain.ComparisonResult{}, fmt.Errorf("%w: only %d of %d products completed (%s)", domain.ErrInsufficientData, len(entries), len(queries), detail)
	}

	ranked := ranker.Rank(entries)
	result := domain.ComparisonResult{
		QueryID:  queryID,
		Winner:   ranked.Winner,
		Versions: o.products.Versions(),
	}
	byKey := make(map[string]domain.ProductQuery, len(queries))
	for _, q := range queries {
		byKey[q.Normalized] = q
	}
	for _, r := range ranked.Order {
		a := r.Analysis
		result.Products = append(result.Products, domain.ProductReport{
			Query:      byKey[r.Key],
			Status:     domain.StatusOK,
			Analysis:   &a,
			Strengths:  r.Strengths,
			Weaknesses: r.Weaknesses,
			Samples:    r.Samples,
		})
		result.Ranking = append(result.Ranking, r.Name)
	}
	result.Products = append(result.Products, failed...)
	result.Elapsed = time.Since(started)

	log.Info("comparison finished", "winner", result.Winner, "ok", len(entries), "failed", len(failed), "elapsed", result.Elapsed)
	return result, nil
}

func (o *Orchestrator) runOne(ctx context.Context, log *slog.Logger, q domain.ProductQuery, profile Profile) (oc outcome) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("product pipeline panicked", "product", q.Normalized, "panic", r)
			oc = outcome{err: fmt.Errorf("%w: pipeline panicked", domain.ErrInternal)}
		}
	}()

	a, err := o.products.Analyze(ctx, q, profile)
	if err != nil {
		return outcome{err: err}
	}
	return outcome{analysis: a}
}

// validate deduplicates products by normalized name and applies option defaults.
func (o *Orchestrator) validate(req domain.ComparisonRequest) ([]domain.ProductQuery, domain.ComparisonOptions, error) {
	var queries []domain.ProductQuery
	seen := make(map[string]bool)
	for _, raw := range req.Products {
		name := strings.Join(strings.Fields(raw), " ")
		if name == "" {
			return nil, domain.ComparisonOptions{}, domain.InvalidRequestf("product names must not be empty")
		}
		key := normalizer.Name(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		queries = append(queries, domain.ProductQuery{ID: o.newID(), RawName: name, Normalized: key})
	}
	if len(queries) < MinProducts {
		return nil, domain.ComparisonOptions{}, domain.InvalidRequestf("need at least %d distinct products, got %d", MinProducts, len(queries))
	}
	if len(queries) > MaxProducts {
		return nil, domain.ComparisonOptions{}, domain.InvalidRequestf("at most %d distinct products can be compared, got %d", MaxProducts, len(queries))
	}

	opts := req.Options
	switch {
	case opts.MaxReviewsPerProduct < 0:
		return nil, opts, domain.InvalidRequestf("max_reviews_per_product must be positive")
	case opts.MaxReviewsPerProduct == 0:
		opts.MaxReviewsPerProduct = o.defaults.MaxReviews
	}
	switch {
	case opts.Timeout < 0:
		return nil, opts, domain.InvalidRequestf("timeout must be positive")
	case opts.Timeout == 0:
		opts.Timeout = o.defaults.Timeout
	}
	if len(opts.Languages) == 0 {
		opts.Languages = o.defaults.Languages
	}
	langs := make([]domain.Language, 0, len(opts.Languages))
	for _, l := range opts.Languages {
		parsed, ok := domain.ParseLanguage(string(l))
		if !ok {
			return nil, opts, domain.InvalidRequestf("unknown language tag %q", l)
		}
		langs = append(langs, parsed)
	}
	opts.Languages = langs
	return queries, opts, nil
}
