package marketplace

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Shaizy-S/AutoSentiment/internal/domain"
)

const amazonPage = `
<div id="cm_cr-review_list">
  <div data-hook="review" id="R1">
    <i data-hook="review-star-rating"><span>5.0 out of 5 stars</span></i>
    <span data-hook="review-date">Reviewed in India on 5 March 2024</span>
    <span data-hook="review-body"><span>कैमरा बहुत अच्छा है</span></span>
  </div>
  <div data-hook="review" id="R2">
    <i data-hook="review-star-rating"><span>2.0 out of 5 stars</span></i>
    <span data-hook="review-body"><span>बॅटरी लवकर संपते</span></span>
  </div>
  <div data-hook="review" id="R3">
    <span data-hook="review-body"></span>
  </div>
</div>`

func TestBuildPageURL(t *testing.T) {
	t.Parallel()

	site := Site{Name: "amazon", ReviewsURL: "https://www.amazon.in/s?k={query}", PageParam: "pageNumber"}
	u, err := buildPageURL(site, "redmi note 13", 3)
	if err != nil {
		t.Fatalf("buildPageURL returned error: %v", err)
	}

	parsed, err := url.Parse(u)
	if err != nil {
		t.Fatalf("parse result: %v", err)
	}
	if parsed.Host != "www.amazon.in" {
		t.Fatalf("unexpected host: %s", parsed.Host)
	}
	q := parsed.Query()
	if q.Get("k") != "redmi note 13" {
		t.Fatalf("expected product in query, got %q", q.Get("k"))
	}
	if q.Get("pageNumber") != "3" {
		t.Fatalf("expected pageNumber=3, got %s", q.Get("pageNumber"))
	}

	if _, err := buildPageURL(Site{ReviewsURL: "/relative/{query}"}, "x", 1); err == nil {
		t.Fatalf("expected error for relative url")
	}
}

func TestParseReview(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(amazonPage))
	if err != nil {
		t.Fatalf("new document: %v", err)
	}
	site := Presets["amazon"]

	r, ok := parseReview(doc.Find(site.ReviewSelector).First(), site, 1, 0)
	if !ok {
		t.Fatalf("expected review to parse")
	}
	if r.SourceID != "amazon:R1" {
		t.Fatalf("unexpected id: %s", r.SourceID)
	}
	if r.Text != "कैमरा बहुत अच्छा है" {
		t.Fatalf("unexpected text: %q", r.Text)
	}
	if r.Rating != 5 {
		t.Fatalf("unexpected rating: %d", r.Rating)
	}
	want := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	if !r.Timestamp.Equal(want) {
		t.Fatalf("unexpected date: %v", r.Timestamp)
	}

	if _, ok := parseReview(doc.Find(site.ReviewSelector).Eq(2), site, 1, 2); ok {
		t.Fatalf("review without text must be skipped")
	}
}

func TestParseRatingAndDate(t *testing.T) {
	t.Parallel()

	ratings := map[string]int{"4.0 out of 5 stars": 4, "5★": 5, "": 0, "no stars": 0, "3.6": 4}
	for raw, want := range ratings {
		if got := parseRating(raw); got != want {
			t.Fatalf("parseRating(%q) = %d, want %d", raw, got, want)
		}
	}

	if got := parseDate("Mar, 2024"); got.Year() != 2024 || got.Month() != time.March {
		t.Fatalf("unexpected flipkart date: %v", got)
	}
	if got := parseDate("11 months ago"); !got.IsZero() {
		t.Fatalf("relative dates are unknown, got %v", got)
	}
}

func TestScraperFetchPaginates(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		pages []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("pageNumber")
		mu.Lock()
		pages = append(pages, page)
		mu.Unlock()
		switch page {
		case "1":
			_, _ = w.Write([]byte(amazonPage))
		case "2":
			_, _ = w.Write([]byte(`<div data-hook="review" id="R4"><span data-hook="review-body">डिस्प्ले शानदार है</span></div>
			<div data-hook="review" id="R1"><span data-hook="review-body">duplicate</span></div>`))
		default:
			_, _ = w.Write([]byte(`<html><body>no more reviews</body></html>`))
		}
	}))
	defer server.Close()

	site := Presets["amazon"]
	site.ReviewsURL = server.URL + "/product-reviews?k={query}"
	sc := NewScraper(site, NewHTTPFetcher(server.Client()), WithPageDelay(0))

	reviews, err := sc.Fetch(context.Background(), domain.ProductQuery{Normalized: "redmi note 13"}, 10)
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(reviews) != 3 {
		t.Fatalf("expected 3 reviews, got %d", len(reviews))
	}
	got := []string{reviews[0].SourceID, reviews[1].SourceID, reviews[2].SourceID}
	if strings.Join(got, ",") != "amazon:R1,amazon:R2,amazon:R4" {
		t.Fatalf("unexpected order: %v", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if strings.Join(pages, ",") != "1,2,3" {
		t.Fatalf("unexpected page walk: %v", pages)
	}
	if sc.Version() != "marketplace/amazon@1" {
		t.Fatalf("unexpected version: %s", sc.Version())
	}
}

func TestScraperFetchStopsAtLimit(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(amazonPage))
	}))
	defer server.Close()

	site := Presets["amazon"]
	site.ReviewsURL = server.URL + "/r?k={query}"
	sc := NewScraper(site, NewHTTPFetcher(server.Client()), WithPageDelay(0))

	reviews, err := sc.Fetch(context.Background(), domain.ProductQuery{Normalized: "pixel 8"}, 1)
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(reviews) != 1 || calls.Load() != 1 {
		t.Fatalf("expected one review from one page, got %d reviews from %d pages", len(reviews), calls.Load())
	}
}

func TestHTTPFetcherClassifiesFailures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status int
		want   error
	}{
		{status: http.StatusServiceUnavailable, want: domain.ErrTransient},
		{status: http.StatusTooManyRequests, want: domain.ErrTransient},
		{status: http.StatusNotFound, want: domain.ErrPermanent},
	}
	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))

		_, err := NewHTTPFetcher(server.Client()).Fetch(context.Background(), server.URL)
		server.Close()
		if !errors.Is(err, tc.want) {
			t.Fatalf("status %d: expected %v, got %v", tc.status, tc.want, err)
		}
	}
}

func TestScraperWithoutFetcherIsPermanent(t *testing.T) {
	t.Parallel()

	_, err := NewScraper(Presets["flipkart"], nil).Fetch(context.Background(), domain.ProductQuery{Normalized: "x"}, 5)
	if !errors.Is(err, domain.ErrPermanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
}

func TestScraperHonoursCancellationBetweenPages(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, amazonPage)
	}))
	defer server.Close()

	site := Presets["amazon"]
	site.ReviewsURL = server.URL + "/r?k={query}"
	sc := NewScraper(site, NewHTTPFetcher(server.Client()), WithPageDelay(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := sc.Fetch(ctx, domain.ProductQuery{Normalized: "x"}, 10); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}
