// Package dataset serves reviews from a labelled CSV file.
package dataset

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Shaizy-S/AutoSentiment/internal/domain"
	"github.com/Shaizy-S/AutoSentiment/internal/normalizer"
	"github.com/Shaizy-S/AutoSentiment/internal/ports"
)

// Row is one CSV record. An empty Product serves every query.
type Row struct {
	Product string
	Review  domain.RawReview
}

// Provider answers queries from rows loaded once at start-up.
type Provider struct {
	version   string
	byProduct map[string][]domain.RawReview
	shared    []domain.RawReview
}

var _ ports.ReviewProvider = (*Provider)(nil)

// Open loads a CSV file.
func Open(path string) (*Provider, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	rows, err := ReadCSV(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	sum := sha256.Sum256(raw)
	return New(rows, "dataset/"+hex.EncodeToString(sum[:])[:12]), nil
}

// New indexes rows by normalized product name, keeping file order.
func New(rows []Row, version string) *Provider {
	p := &Provider{version: version, byProduct: make(map[string][]domain.RawReview)}
	for _, r := range rows {
		if r.Product == "" {
			p.shared = append(p.shared, r.Review)
			continue
		}
		key := normalizer.Name(r.Product)
		p.byProduct[key] = append(p.byProduct[key], r.Review)
	}
	return p
}

// Fetch returns the product's rows followed by the shared rows, truncated to limit.
func (p *Provider) Fetch(ctx context.Context, query domain.ProductQuery, limit int) ([]domain.RawReview, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	own := p.byProduct[query.Normalized]
	out := make([]domain.RawReview, 0, len(own)+len(p.shared))
	out = append(out, own...)
	out = append(out, p.shared...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Version identifies the dataset content.
func (p *Provider) Version() string {
	return p.version
}

// ReadCSV parses a header-driven review CSV. Only the text column is required.
// Known columns: product, text, rating, sentiment, source_id, timestamp, language.
func ReadCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	if _, ok := cols["text"]; !ok {
		return nil, errors.New(`missing "text" column`)
	}

	get := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var rows []Row
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		text := get(rec, "text")
		if text == "" {
			continue
		}
		rating, err := parseRating(get(rec, "rating"), get(rec, "sentiment"))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		id := get(rec, "source_id")
		if id == "" {
			id = fmt.Sprintf("row-%06d", line)
		}

		rows = append(rows, Row{
			Product: get(rec, "product"),
			Review: domain.RawReview{
				SourceID:  id,
				Text:      text,
				Rating:    rating,
				Timestamp: parseTime(get(rec, "timestamp")),
			},
		})
	}
	return rows, nil
}

// parseRating prefers an explicit star rating and falls back to the sentiment label.
func parseRating(rating, sentiment string) (int, error) {
	if rating != "" {
		v, err := strconv.ParseFloat(rating, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid rating %q", rating)
		}
		r := int(v + 0.5)
		if !domain.ValidRating(r) {
			return 0, nil
		}
		return r, nil
	}
	switch strings.ToLower(sentiment) {
	case "positive", "pos":
		return 5, nil
	case "negative", "neg":
		return 1, nil
	case "neutral":
		return 3, nil
	}
	return 0, nil
}

func parseTime(raw string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
