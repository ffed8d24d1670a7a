package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/Shaizy-S/AutoSentiment/internal/aggregator"
	"github.com/Shaizy-S/AutoSentiment/internal/analysis"
	"github.com/Shaizy-S/AutoSentiment/internal/cache"
	"github.com/Shaizy-S/AutoSentiment/internal/config"
	"github.com/Shaizy-S/AutoSentiment/internal/domain"
	"github.com/Shaizy-S/AutoSentiment/internal/httpapi"
	"github.com/Shaizy-S/AutoSentiment/internal/infrastructure/cachestore"
	"github.com/Shaizy-S/AutoSentiment/internal/infrastructure/dataset"
	"github.com/Shaizy-S/AutoSentiment/internal/infrastructure/llm"
	"github.com/Shaizy-S/AutoSentiment/internal/infrastructure/marketplace"
	"github.com/Shaizy-S/AutoSentiment/internal/infrastructure/ml"
	"github.com/Shaizy-S/AutoSentiment/internal/infrastructure/scheduler"
	"github.com/Shaizy-S/AutoSentiment/internal/infrastructure/storage"
	"github.com/Shaizy-S/AutoSentiment/internal/infrastructure/telegram"
	"github.com/Shaizy-S/AutoSentiment/internal/lexicon"
	"github.com/Shaizy-S/AutoSentiment/internal/logging"
	"github.com/Shaizy-S/AutoSentiment/internal/normalizer"
	"github.com/Shaizy-S/AutoSentiment/internal/ports"
	"github.com/Shaizy-S/AutoSentiment/internal/source"
	"github.com/Shaizy-S/AutoSentiment/internal/usecase"
)

// Version is reported by the health endpoint and the CLI.
const Version = "0.4.0"

const shutdownTimeout = 10 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg          config.Config
	logger       *slog.Logger
	orchestrator *usecase.Orchestrator
	pipeline     *usecase.Pipeline
	results      *cache.ResultCache
	warmer       *usecase.Warmer
	db           *sql.DB
	closers      []func() error
}

// New builds every adapter named by cfg. Close releases them.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	a := &Application{cfg: cfg, logger: baseLogger}

	lex, err := lexicon.Load(cfg.Analyzer.Lexicon)
	if err != nil {
		return nil, err
	}
	textAnalyzer, err := buildAnalyzer(cfg.Analyzer, lex)
	if err != nil {
		return nil, err
	}

	provider, err := a.buildProvider(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	store, err := a.buildStore(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	languages, err := parseLanguages(cfg.Engine.Languages)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	norm := normalizer.New(
		normalizer.WithHindiHints(lex.Hints(lexicon.LangHindi)),
		normalizer.WithMarathiHints(lex.Hints(lexicon.LangMarathi)),
	)
	a.results = cache.New(cache.Config{Capacity: cfg.Cache.Capacity, TTL: cfg.Cache.TTL}, store, baseLogger)
	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Provider:   provider,
		Analyzer:   textAnalyzer,
		Normalizer: norm,
		Aggregator: aggregator.New(aggregator.Config{
			MinSupport:      cfg.Engine.MinSupport,
			MinAspects:      cfg.Engine.MinAspects,
			FallbackSamples: cfg.Engine.FallbackSamples,
		}),
		Cache:               a.results,
		ProviderConcurrency: cfg.Engine.ProviderConcurrency,
		Parallelism:         cfg.Engine.Parallelism,
		Logger:              baseLogger.With("component", "pipeline"),
	})

	a.orchestrator = usecase.NewOrchestrator(a.pipeline, usecase.OrchestratorConfig{
		MaxReviews: cfg.Engine.MaxReviews,
		Timeout:    cfg.Engine.Timeout,
		Languages:  languages,
	}, baseLogger.With("component", "orchestrator"))

	if len(cfg.Warmup.Products) > 0 && cfg.Warmup.Interval > 0 {
		var opts []usecase.WarmerOption
		if tg := cfg.Warmup.Telegram; tg.BotToken != "" {
			opts = append(opts, usecase.WithNotifier(telegram.NewNotifier(tg.APIBase, tg.BotToken, tg.ChatID)))
		}
		a.warmer = usecase.NewWarmer(
			scheduler.NewIntervalScheduler(cfg.Warmup.Interval),
			a.pipeline,
			cfg.Warmup.Products,
			usecase.Profile{MaxReviews: cfg.Engine.MaxReviews, Languages: languages},
			baseLogger.With("component", "warmup"),
			opts...,
		)
	}

	baseLogger.Info("application ready",
		"sources", cfg.Provider.Sources,
		"scorer", cfg.Analyzer.Scorer,
		"store", cfg.Cache.Store,
		"versions", a.pipeline.Versions())
	return a, nil
}

// Compare runs one comparison.
func (a *Application) Compare(ctx context.Context, req domain.ComparisonRequest) (domain.ComparisonResult, error) {
	return a.orchestrator.Compare(ctx, req)
}

// Handler exposes the HTTP API.
func (a *Application) Handler() http.Handler {
	return httpapi.NewRouter(a.orchestrator, Version, a.cfg.HTTP.RequestTimeout, a.logger.With("component", "http"))
}

// Serve runs the HTTP API and the cache warmer until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTP.Addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if a.warmer != nil {
		if err := a.warmer.Start(ctx); err != nil {
			return fmt.Errorf("start warm-up: %w", err)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := a.warmer.Stop(stopCtx); err != nil {
				a.logger.Warn("warm-up did not stop cleanly", "error", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.logger.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// WarmUp analyses the configured warm-up products once.
func (a *Application) WarmUp(ctx context.Context) int {
	if a.warmer == nil {
		return 0
	}
	return a.warmer.WarmUp(ctx)
}

// Ingest loads a review CSV into the SQL store, grouping rows by normalized product name.
// Rows without a product column are skipped. Analyses held in memory are dropped afterwards
// so the next comparison sees the new reviews.
func (a *Application) Ingest(ctx context.Context, r io.Reader) (int, error) {
	rows, err := dataset.ReadCSV(r)
	if err != nil {
		return 0, err
	}
	repo, err := a.repository(ctx)
	if err != nil {
		return 0, err
	}

	var (
		order   []string
		grouped = make(map[string][]domain.RawReview)
	)
	for _, row := range rows {
		key := normalizer.Name(row.Product)
		if key == "" {
			continue
		}
		if _, ok := grouped[key]; !ok {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], row.Review)
	}

	total := 0
	for _, key := range order {
		n, err := repo.SaveReviews(ctx, key, grouped[key])
		if err != nil {
			return total, fmt.Errorf("ingest %s: %w", key, err)
		}
		a.logger.Info("reviews ingested", "product", key, "count", n)
		total += n
	}
	if total > 0 && a.results != nil {
		a.results.Purge()
	}
	return total, nil
}

// Close releases database and cache connections.
func (a *Application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func buildAnalyzer(cfg config.AnalyzerConfig, lex *lexicon.Lexicon) (ports.TextAnalyzer, error) {
	switch cfg.Scorer {
	case config.ScorerML:
		client := ml.NewClient(cfg.ML.InferenceURL, cfg.ML.APIKey, cfg.ML.Model, cfg.ML.Timeout)
		return analysis.New(analysis.NewExtractor(lex), client, client.Name()+"+"+lex.Version()), nil
	case config.ScorerOpenAI:
		scorer, err := llm.NewScorer(llm.Config{
			APIKey:     cfg.OpenAI.APIKey,
			Model:      cfg.OpenAI.Model,
			BaseURL:    cfg.OpenAI.BaseURL,
			MaxRetries: 2,
		})
		if err != nil {
			return nil, err
		}
		return analysis.New(analysis.NewExtractor(lex), scorer, scorer.Name()+"+"+lex.Version()), nil
	default:
		var opts []analysis.ScorerOption
		if w := cfg.Weights; w.IsSet() {
			opts = append(opts, analysis.WithWeights(analysis.Weights{Lexicon: w.Lexicon, Rating: w.Rating, Modifier: w.Modifier}))
		}
		return analysis.NewLexical(lex, opts...), nil
	}
}

func (a *Application) buildProvider(ctx context.Context) (ports.ReviewProvider, error) {
	cfg := a.cfg.Provider
	policy := source.RetryPolicy{Retries: cfg.Retry.Retries, Base: cfg.Retry.Base, Max: cfg.Retry.Max}
	registry := source.NewRegistry()

	for _, name := range cfg.Sources {
		log := a.logger.With("component", "source."+name)
		var provider ports.ReviewProvider

		switch name {
		case config.SourceDataset:
			p, err := dataset.Open(cfg.Dataset.Path)
			if err != nil {
				return nil, err
			}
			provider = p
		case config.SourceSQL:
			repo, err := a.repository(ctx)
			if err != nil {
				return nil, err
			}
			provider = repo
		default:
			site, browser, err := siteFor(cfg.Sites, name)
			if err != nil {
				return nil, err
			}
			var fetcher ports.PageFetcher = marketplace.NewHTTPFetcher(nil)
			if browser {
				fetcher = marketplace.NewBrowserFetcher(cfg.Browser.ExecPath, cfg.Browser.Settle)
			}
			provider = marketplace.NewScraper(site, fetcher,
				marketplace.WithPageDelay(cfg.PageDelay),
				marketplace.WithLogger(log))
		}

		registry.Register(name, source.WithRetry(provider, policy, log))
	}

	if len(cfg.Sources) == 1 {
		return registry.Resolve(cfg.Sources[0])
	}
	return source.NewMultiSource(registry, cfg.Sources, a.logger.With("component", "source"))
}

// repository opens the SQL review store once.
func (a *Application) repository(ctx context.Context) (*storage.ReviewRepository, error) {
	dbCfg := a.cfg.Provider.Database
	if a.db == nil {
		db, err := storage.Open(ctx, dbCfg.Driver, dbCfg.DSN)
		if err != nil {
			return nil, err
		}
		a.db = db
		a.closers = append(a.closers, db.Close)
	}
	repo := storage.NewReviewRepository(a.db, dbCfg.Driver)
	if err := repo.Migrate(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

func (a *Application) buildStore(ctx context.Context) (ports.AnalysisStore, error) {
	cfg := a.cfg.Cache
	switch cfg.Store {
	case config.StoreFile:
		return cachestore.NewFileStore(cfg.Dir)
	case config.StoreRedis:
		store, err := cachestore.NewRedisStore(ctx, cachestore.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
			TTL:      cfg.TTL,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	default:
		return nil, nil
	}
}

// siteFor merges a configured site over its preset.
func siteFor(sites []config.SiteConfig, name string) (marketplace.Site, bool, error) {
	for _, sc := range sites {
		if sc.Name != name {
			continue
		}
		site := marketplace.Site{Name: sc.Name}
		if sc.Preset != "" {
			preset, ok := marketplace.Preset(sc.Preset)
			if !ok {
				return marketplace.Site{}, false, fmt.Errorf("site %s: unknown preset %q", name, sc.Preset)
			}
			site = preset
			site.Name = sc.Name
		}
		if sc.ReviewsURL != "" {
			site.ReviewsURL = sc.ReviewsURL
		}
		if sc.PageParam != "" {
			site.PageParam = sc.PageParam
		}
		if sc.ReviewSelector != "" {
			site.ReviewSelector = sc.ReviewSelector
		}
		if sc.IDAttr != "" {
			site.IDAttr = sc.IDAttr
		}
		if sc.RatingSelector != "" {
			site.RatingSelector = sc.RatingSelector
		}
		if len(sc.TextSelectors) > 0 {
			site.TextSelectors = sc.TextSelectors
		}
		if sc.DateSelector != "" {
			site.DateSelector = sc.DateSelector
		}
		if sc.MaxPages > 0 {
			site.MaxPages = sc.MaxPages
		}
		if site.ReviewsURL == "" || site.ReviewSelector == "" || len(site.TextSelectors) == 0 {
			return marketplace.Site{}, false, fmt.Errorf("site %s: reviewsURL, reviewSelector and textSelectors are required", name)
		}
		return site, sc.Browser, nil
	}
	return marketplace.Site{}, false, fmt.Errorf("provider %s is not configured", name)
}

func parseLanguages(tags []string) ([]domain.Language, error) {
	out := make([]domain.Language, 0, len(tags))
	for _, tag := range tags {
		l, ok := domain.ParseLanguage(tag)
		if !ok {
			return nil, fmt.Errorf("unknown language %q", tag)
		}
		out = append(out, l)
	}
	return out, nil
}

// OpenInput opens path for reading, with "-" meaning stdin.
func OpenInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}
