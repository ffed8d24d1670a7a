// Package marketplace scrapes product reviews from e-commerce review pages.
package marketplace

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Shaizy-S/AutoSentiment/internal/domain"
	"github.com/Shaizy-S/AutoSentiment/internal/ports"
)

const (
	defaultMaxPages  = 5
	defaultPageDelay = time.Second
	queryPlaceholder = "{query}"
)

var (
	ratingExpr  = regexp.MustCompile(`[1-5](?:\.\d)?`)
	dateExpr    = regexp.MustCompile(`\d{1,2} [A-Za-z]+,? \d{4}|[A-Za-z]{3},? \d{4}`)
	dateLayouts = []string{"2 January 2006", "2 Jan 2006", "2 January, 2006", "Jan, 2006", "Jan 2006"}
)

// Site describes where a marketplace keeps its reviews and how to read them.
type Site struct {
	Name           string   `yaml:"name"`
	ReviewsURL     string   `yaml:"reviewsURL"` // contains {query}
	PageParam      string   `yaml:"pageParam"`
	ReviewSelector string   `yaml:"reviewSelector"`
	IDAttr         string   `yaml:"idAttr"`
	RatingSelector string   `yaml:"ratingSelector"`
	TextSelectors  []string `yaml:"textSelectors"`
	DateSelector   string   `yaml:"dateSelector"`
	MaxPages       int      `yaml:"maxPages"`
}

// Presets holds the built-in site definitions.
var Presets = map[string]Site{
	"flipkart": {
		Name:           "flipkart",
		ReviewsURL:     "https://www.flipkart.com/search?q={query}&marketplace=FLIPKART",
		PageParam:      "page",
		ReviewSelector: "div._1AtVbE",
		RatingSelector: "div._3LWZlK",
		TextSelectors:  []string{"div.t-ZTKy", "div._6K-7Co"},
		DateSelector:   "p._2sc7ZR",
	},
	"amazon": {
		Name:           "amazon",
		ReviewsURL:     "https://www.amazon.in/s?k={query}",
		PageParam:      "pageNumber",
		ReviewSelector: "div[data-hook=review]",
		IDAttr:         "id",
		RatingSelector: "i[data-hook=review-star-rating]",
		TextSelectors:  []string{"span[data-hook=review-body]"},
		DateSelector:   "span[data-hook=review-date]",
	},
}

// Preset returns the site registered under name.
func Preset(name string) (Site, bool) {
	s, ok := Presets[strings.ToLower(name)]
	return s, ok
}

// Scraper walks the review pages of one site and extracts raw reviews.
type Scraper struct {
	site    Site
	fetcher ports.PageFetcher
	delay   time.Duration
	sleep   func(ctx context.Context, d time.Duration) error
	logger  *slog.Logger
}

var _ ports.ReviewProvider = (*Scraper)(nil)

// Option customizes a Scraper.
type Option func(*Scraper)

// WithPageDelay sets the pause between two page requests.
func WithPageDelay(d time.Duration) Option {
	return func(s *Scraper) {
		if d >= 0 {
			s.delay = d
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scraper) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewScraper wires a page fetcher for site; MaxPages defaults to 5.
func NewScraper(site Site, fetcher ports.PageFetcher, opts ...Option) *Scraper {
	if site.MaxPages <= 0 {
		site.MaxPages = defaultMaxPages
	}
	s := &Scraper{site: site, fetcher: fetcher, delay: defaultPageDelay, sleep: wait, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name identifies the scraper inside the source registry.
func (s *Scraper) Name() string {
	return s.site.Name
}

// Version changes whenever the extraction rules change.
func (s *Scraper) Version() string {
	return fmt.Sprintf("marketplace/%s@1", s.site.Name)
}

// Fetch walks result pages in order until limit reviews are collected or a page adds nothing new.
func (s *Scraper) Fetch(ctx context.Context, query domain.ProductQuery, limit int) ([]domain.RawReview, error) {
	if s.fetcher == nil {
		return nil, domain.Permanent(fmt.Errorf("site %s has no page fetcher", s.site.Name))
	}

	results := make([]domain.RawReview, 0)
	seen := map[string]struct{}{}

	for page := 1; page <= s.site.MaxPages; page++ {
		if page > 1 {
			if err := s.sleep(ctx, s.delay); err != nil {
				return nil, err
			}
		}

		pageURL, err := buildPageURL(s.site, query.Normalized, page)
		if err != nil {
			return nil, domain.Permanent(err)
		}

		doc, err := s.fetchDocument(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("site %s page %d: %w", s.site.Name, page, err)
		}

		added := 0
		for _, r := range s.extractReviews(doc, page) {
			if _, ok := seen[r.SourceID]; ok {
				continue
			}
			seen[r.SourceID] = struct{}{}
			results = append(results, r)
			added++
		}
		s.logger.Debug("review page scraped", "site", s.site.Name, "product", query.Normalized, "page", page, "added", added)

		if added == 0 || (limit > 0 && len(results) >= limit) {
			break
		}
	}

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *Scraper) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	body, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(body, 16<<20))
	if err != nil {
		return nil, domain.Transient(fmt.Errorf("parse document: %w", err))
	}
	return doc, nil
}

func (s *Scraper) extractReviews(doc *goquery.Document, page int) []domain.RawReview {
	var collected []domain.RawReview
	doc.Find(s.site.ReviewSelector).Each(func(i int, sel *goquery.Selection) {
		r, ok := parseReview(sel, s.site, page, i)
		if ok {
			collected = append(collected, r)
		}
	})
	return collected
}

func parseReview(sel *goquery.Selection, site Site, page, idx int) (domain.RawReview, bool) {
	var text string
	for _, ts := range site.TextSelectors {
		text = strings.TrimSpace(sel.Find(ts).First().Text())
		if text != "" {
			break
		}
	}
	text = strings.TrimSpace(strings.TrimSuffix(text, "READ MORE"))
	if text == "" {
		return domain.RawReview{}, false
	}

	id := ""
	if site.IDAttr != "" {
		id, _ = sel.Attr(site.IDAttr)
	}
	if id == "" {
		id = fmt.Sprintf("p%d-%d", page, idx)
	}

	return domain.RawReview{
		SourceID:  site.Name + ":" + id,
		Text:      text,
		Rating:    parseRating(sel.Find(site.RatingSelector).First().Text()),
		Timestamp: parseDate(sel.Find(site.DateSelector).First().Text()),
	}, true
}

// parseRating reads the leading star value ("4.0 out of 5 stars", "5★"); 0 when absent.
func parseRating(raw string) int {
	match := ratingExpr.FindString(raw)
	if match == "" {
		return 0
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	r := int(v + 0.5)
	if !domain.ValidRating(r) {
		return 0
	}
	return r
}

// parseDate understands "Reviewed in India on 5 March 2024" and "Mar, 2024"; zero when unknown.
func parseDate(raw string) time.Time {
	match := dateExpr.FindString(raw)
	if match == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, match); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func buildPageURL(site Site, product string, page int) (string, error) {
	raw := strings.ReplaceAll(site.ReviewsURL, queryPlaceholder, url.QueryEscape(product))
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid reviews url %s: %w", site.ReviewsURL, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("invalid reviews url %s: scheme and host are required", site.ReviewsURL)
	}

	if site.PageParam != "" {
		query := parsed.Query()
		query.Set(site.PageParam, strconv.Itoa(page))
		parsed.RawQuery = query.Encode()
	}
	return parsed.String(), nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
