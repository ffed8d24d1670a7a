package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Shaizy-S/AutoSentiment/internal/domain"
	"github.com/Shaizy-S/AutoSentiment/internal/normalizer"
	"github.com/Shaizy-S/AutoSentiment/internal/ports"
)

// Warmer keeps the analyses of frequently compared products hot in the result cache.
type Warmer struct {
	driver   ports.Scheduler
	products ProductAnalyzer
	names    []string
	profile  Profile
	notifier ports.Notifier
	logger   *slog.Logger
}

// WarmerOption customizes a Warmer.
type WarmerOption func(*Warmer)

// WithNotifier publishes a digest after every warm-up run.
func WithNotifier(n ports.Notifier) WarmerOption {
	return func(w *Warmer) {
		w.notifier = n
	}
}

// NewWarmer returns a helper to start/stop recurring warm-up runs.
func NewWarmer(driver ports.Scheduler, products ProductAnalyzer, names []string, profile Profile, logger *slog.Logger, opts ...WarmerOption) *Warmer {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Warmer{driver: driver, products: products, names: names, profile: profile, logger: logger}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start registers the warm-up job with the provided scheduler.
func (w *Warmer) Start(ctx context.Context) error {
	if w.driver == nil || w.products == nil || len(w.names) == 0 {
		return nil
	}

	job := func(trigger time.Time) {
		w.run(ctx, trigger)
	}

	return w.driver.Start(ctx, job)
}

// WarmUp analyses every configured product once; failures are logged and skipped.
func (w *Warmer) WarmUp(ctx context.Context) int {
	return w.run(ctx, time.Now())
}

func (w *Warmer) run(ctx context.Context, trigger time.Time) int {
	var lines []string
	warmed := 0
	for _, raw := range w.names {
		name := strings.Join(strings.Fields(raw), " ")
		if name == "" {
			continue
		}
		q := domain.ProductQuery{ID: "warmup", RawName: name, Normalized: normalizer.Name(name)}
		a, err := w.products.Analyze(ctx, q, w.profile)
		if err != nil {
			w.logger.Warn("warm-up failed", "product", q.Normalized, "error", err)
			lines = append(lines, fmt.Sprintf("- %s: failed (%v)", name, err))
			continue
		}
		warmed++
		lines = append(lines, digestLine(name, a))
	}
	w.logger.Debug("warm-up done", "products", warmed)

	if w.notifier != nil && len(lines) > 0 && ctx.Err() == nil {
		digest := fmt.Sprintf("Warm-up %s: %d/%d products analysed\n%s",
			trigger.UTC().Format(time.RFC3339), warmed, len(lines), strings.Join(lines, "\n"))
		if err := w.notifier.PublishDigest(ctx, digest); err != nil {
			w.logger.Warn("warm-up digest not delivered", "error", err)
		}
	}
	return warmed
}

func digestLine(name string, a domain.ProductAnalysis) string {
	if !a.HasOverall {
		return fmt.Sprintf("- %s: no overall score (%d reviews)", name, a.ReviewCount)
	}
	return fmt.Sprintf("- %s: %.1f/10 %s (%d reviews)", name, a.Overall, a.SentimentLabel(), a.ReviewCount)
}

// Stop gracefully tears down the underlying scheduler.
func (w *Warmer) Stop(ctx context.Context) error {
	if w.driver == nil {
		return nil
	}

	return w.driver.Stop(ctx)
}
