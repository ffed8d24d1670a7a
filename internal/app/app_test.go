package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shaizy-S/AutoSentiment/internal/config"
	"github.com/Shaizy-S/AutoSentiment/internal/domain"
	"github.com/Shaizy-S/AutoSentiment/internal/lexicon"
	"github.com/Shaizy-S/AutoSentiment/internal/logging"
)

func reviewsCSV() string {
	var b strings.Builder
	b.WriteString("product,source_id,text,rating\n")
	add := func(product, prefix, text string, rating, n int) {
		for i := range n {
			fmt.Fprintf(&b, "%s,%s-%d,%s,%d\n", product, prefix, i, text, rating)
		}
	}
	add("Phone A", "a-cam", "camera and performance are excellent", 5, 5)
	add("Phone A", "a-bat", "battery and price are good", 4, 5)
	add("Phone B", "b-cam", "camera and performance are poor", 2, 5)
	add("Phone B", "b-bat", "battery and price are great", 5, 5)
	return b.String()
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "reviews.csv")
	require.NoError(t, os.WriteFile(path, []byte(reviewsCSV()), 0o644))

	cfg := config.Default()
	cfg.Provider.Dataset.Path = path
	cfg.Provider.Database.DSN = filepath.Join(dir, "reviews.db")
	cfg.Cache.Store = config.StoreFile
	cfg.Cache.Dir = filepath.Join(dir, "cache")
	return cfg
}

func TestApplicationCompareFromDataset(t *testing.T) {
	cfg := testConfig(t)
	application, err := New(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Close() })

	res, err := application.Compare(context.Background(), domain.ComparisonRequest{Products: []string{"Phone A", "Phone B"}})
	require.NoError(t, err)
	assert.Equal(t, "Phone A", res.Winner)
	assert.Equal(t, []string{"Phone A", "Phone B"}, res.Ranking)
	assert.True(t, strings.HasPrefix(res.Versions.Provider, "dataset/"))

	entries, err := os.ReadDir(cfg.Cache.Dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "both analyses persisted")
}

func TestApplicationIngestThenCompareFromSQL(t *testing.T) {
	cfg := testConfig(t)
	cfg.Provider.Sources = []string{config.SourceSQL}
	cfg.Cache.Store = config.StoreNone

	application, err := New(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Close() })

	n, err := application.Ingest(context.Background(), strings.NewReader(reviewsCSV()))
	require.NoError(t, err)
	assert.Equal(t, 20, n)

	res, err := application.Compare(context.Background(), domain.ComparisonRequest{Products: []string{"phone  b", "PHONE A"}})
	require.NoError(t, err)
	assert.Equal(t, "PHONE A", res.Winner)
	assert.Equal(t, "sql/sqlite3@1", res.Versions.Provider)
}

func TestApplicationIngestDropsCachedAnalyses(t *testing.T) {
	cfg := testConfig(t)
	cfg.Provider.Sources = []string{config.SourceSQL}
	cfg.Cache.Store = config.StoreNone

	application, err := New(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Close() })

	_, err = application.Ingest(context.Background(), strings.NewReader(reviewsCSV()))
	require.NoError(t, err)
	_, err = application.Compare(context.Background(), domain.ComparisonRequest{Products: []string{"Phone A", "Phone B"}})
	require.NoError(t, err)
	assert.Equal(t, 2, application.results.Len())

	more := "product,source_id,text,rating\nPhone B,b-new,camera is excellent,5\n"
	n, err := application.Ingest(context.Background(), strings.NewReader(more))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Zero(t, application.results.Len())
}

func TestApplicationWarmUp(t *testing.T) {
	cfg := testConfig(t)
	cfg.Warmup.Interval = 1
	cfg.Warmup.Products = []string{"Phone A", " ", "Phone B"}

	application, err := New(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Close() })

	assert.Equal(t, 2, application.WarmUp(context.Background()))
}

func TestApplicationHandler(t *testing.T) {
	application, err := New(context.Background(), testConfig(t), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Close() })

	srv := httptest.NewServer(application.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, map[string]string{"status": "healthy", "version": Version}, body)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Analyzer.Scorer = "magic"
	_, err := New(context.Background(), cfg, logging.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown scorer")
}

func TestNewFailsOnMissingDataset(t *testing.T) {
	cfg := testConfig(t)
	cfg.Provider.Dataset.Path = filepath.Join(t.TempDir(), "missing.csv")
	_, err := New(context.Background(), cfg, logging.Discard())
	require.Error(t, err)
}

func TestBuildAnalyzerCarriesConfiguredWeights(t *testing.T) {
	lex := lexicon.Default()
	cfg := config.Default().Analyzer

	plain, err := buildAnalyzer(cfg, lex)
	require.NoError(t, err)
	assert.Equal(t, "lexical/"+lex.Version(), plain.Version())

	cfg.Weights = config.WeightsConfig{Lexicon: 0.6, Rating: 0.2, Modifier: 0.2}
	tuned, err := buildAnalyzer(cfg, lex)
	require.NoError(t, err)
	assert.NotEqual(t, plain.Version(), tuned.Version())
}

func TestSiteFor(t *testing.T) {
	sites := []config.SiteConfig{
		{Name: "flipkart", Preset: "flipkart", MaxPages: 2},
		{Name: "shop", ReviewsURL: "https://shop.example/r?q={query}", ReviewSelector: "div.review", TextSelectors: []string{"p"}, Browser: true},
		{Name: "broken", ReviewsURL: "https://broken.example/{query}"},
		{Name: "ghost", Preset: "ghost"},
	}

	site, browser, err := siteFor(sites, "flipkart")
	require.NoError(t, err)
	assert.False(t, browser)
	assert.Equal(t, 2, site.MaxPages)
	assert.NotEmpty(t, site.ReviewSelector)

	site, browser, err = siteFor(sites, "shop")
	require.NoError(t, err)
	assert.True(t, browser)
	assert.Equal(t, "div.review", site.ReviewSelector)

	_, _, err = siteFor(sites, "broken")
	assert.Error(t, err)
	_, _, err = siteFor(sites, "ghost")
	assert.Error(t, err)
	_, _, err = siteFor(sites, "missing")
	assert.Error(t, err)
}
