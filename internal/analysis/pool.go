package analysis

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Shaizy-S/AutoSentiment/internal/domain"
	"github.com/Shaizy-S/AutoSentiment/internal/ports"
)

// DefaultParallelism bounds concurrent per-review analysis.
const DefaultParallelism = 8

// ReviewResult is the analysis of one review. Mentions and Sentiments are index-aligned.
type ReviewResult struct {
	Review     domain.NormalizedReview
	Mentions   []domain.AspectMention
	Sentiments []domain.AspectSentiment
}

// AnalyzeAll extracts and scores every review on a bounded pool. Results keep the input order.
// The first failure cancels the remaining work.
func AnalyzeAll(ctx context.Context, analyzer ports.TextAnalyzer, reviews []domain.NormalizedReview, parallelism int) ([]ReviewResult, error) {
	if parallelism < 1 {
		parallelism = DefaultParallelism
	}

	results := make([]ReviewResult, len(reviews))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)

	for i := range reviews {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := analyzeOne(gctx, analyzer, reviews[i])
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		// A sibling failure cancels gctx; report the parent's cancellation only if it really happened.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if domain.IsCancellation(err) || errors.Is(err, domain.ErrAnalyzer) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrAnalyzer, err)
	}
	return results, nil
}

func analyzeOne(ctx context.Context, analyzer ports.TextAnalyzer, review domain.NormalizedReview) (ReviewResult, error) {
	mentions, err := analyzer.Extract(ctx, review)
	if err != nil {
		return ReviewResult{}, fmt.Errorf("extract %s: %w", review.ID, err)
	}

	res := ReviewResult{Review: review, Mentions: mentions}
	for _, m := range mentions {
		s, err := analyzer.Score(ctx, review, m)
		if err != nil {
			return ReviewResult{}, fmt.Errorf("score %s/%s: %w", review.ID, m.Aspect, err)
		}
		s.ReviewID = review.ID
		s.Aspect = m.Aspect
		s.Score = clamp(s.Score)
		res.Sentiments = append(res.Sentiments, s)
	}
	return res, nil
}
