package source

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Shaizy-S/AutoSentiment/internal/domain"
	"github.com/Shaizy-S/AutoSentiment/internal/ports"
)

// MultiSource queries several registered providers in configured order and concatenates their reviews.
type MultiSource struct {
	names   []string
	sources []ports.ReviewProvider
	logger  *slog.Logger
}

var _ ports.ReviewProvider = (*MultiSource)(nil)

// NewMultiSource resolves names against the registry.
func NewMultiSource(reg *Registry, names []string, log *slog.Logger) (*MultiSource, error) {
	if reg == nil {
		return nil, fmt.Errorf("provider registry is not configured")
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no providers configured")
	}

	m := &MultiSource{logger: log}
	for _, name := range names {
		p, err := reg.Resolve(name)
		if err != nil {
			return nil, err
		}
		m.names = append(m.names, name)
		m.sources = append(m.sources, p)
	}
	return m, nil
}

// Fetch walks the sources in order until limit reviews are collected. Review ids are deduplicated;
// a source failure fails the whole fetch so the output stays stable for a given provider version.
func (m *MultiSource) Fetch(ctx context.Context, query domain.ProductQuery, limit int) ([]domain.RawReview, error) {
	m.debug("fetch reviews", "product", query.Normalized, "sources", len(m.sources), "limit", limit)

	var aggregated []domain.RawReview
	seen := map[string]struct{}{}
	for i, src := range m.sources {
		if limit > 0 && len(aggregated) >= limit {
			break
		}
		remaining := 0
		if limit > 0 {
			remaining = limit - len(aggregated)
		}

		results, err := src.Fetch(ctx, query, remaining)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", m.names[i], err)
		}

		for _, r := range results {
			if r.SourceID != "" {
				if _, ok := seen[r.SourceID]; ok {
					continue
				}
				seen[r.SourceID] = struct{}{}
			}
			aggregated = append(aggregated, r)
		}
		m.debug("source produced reviews", "source", m.names[i], "count", len(results))
	}

	if limit > 0 && len(aggregated) > limit {
		aggregated = aggregated[:limit]
	}
	m.debug("multi source done", "total_reviews", len(aggregated))
	return aggregated, nil
}

// Version joins the versions of every source; it changes whenever any source changes.
func (m *MultiSource) Version() string {
	parts := make([]string, len(m.sources))
	for i, src := range m.sources {
		parts[i] = m.names[i] + "@" + src.Version()
	}
	return "multi(" + strings.Join(parts, ",") + ")"
}

func (m *MultiSource) debug(msg string, args ...interface{}) {
	if m.logger != nil {
		m.logger.Debug(msg, args...)
	}
}
