package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	configPathEnv     = "AUTOSENTIMENT_CONFIG"
	databaseDSNEnv    = "DATABASE_DSN"
	databaseDriverEnv = "DATABASE_DRIVER"
	openAIKeyEnv      = "OPENAI_API_KEY"
	openAIModelEnv    = "OPENAI_MODEL"
	mlURLEnv          = "ML_INFERENCE_URL"
	mlKeyEnv          = "ML_API_KEY"
	redisAddrEnv      = "REDIS_ADDR"
	redisPasswordEnv  = "REDIS_PASSWORD"
	logLevelEnv       = "LOG_LEVEL"
	httpAddrEnv       = "HTTP_ADDR"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatEnv   = "TELEGRAM_CHAT_ID"
)

// Source names understood besides marketplace sites.
const (
	SourceDataset = "dataset"
	SourceSQL     = "sql"
)

// Scorer kinds.
const (
	ScorerLexical = "lexical"
	ScorerML      = "ml"
	ScorerOpenAI  = "openai"
)

// Cache store kinds.
const (
	StoreNone  = "none"
	StoreFile  = "file"
	StoreRedis = "redis"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	Engine   EngineConfig   `yaml:"engine"`
	Provider ProviderConfig `yaml:"provider"`
	Analyzer AnalyzerConfig `yaml:"analyzer"`
	Cache    CacheConfig    `yaml:"cache"`
	HTTP     HTTPConfig     `yaml:"http"`
	Warmup   WarmupConfig   `yaml:"warmup"`
}

// LoggingConfig selects the slog level (error|warn|info|debug).
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// EngineConfig holds comparison defaults and concurrency bounds.
type EngineConfig struct {
	MaxReviews          int           `yaml:"maxReviews"`
	Timeout             time.Duration `yaml:"timeout"`
	Languages           []string      `yaml:"languages"`
	Parallelism         int           `yaml:"parallelism"`
	ProviderConcurrency int           `yaml:"providerConcurrency"`
	MinSupport          int           `yaml:"minSupport"`
	MinAspects          int           `yaml:"minAspects"`
	FallbackSamples     int           `yaml:"fallbackSamples"`
}

// ProviderConfig lists the review sources, queried in order.
type ProviderConfig struct {
	Sources   []string       `yaml:"sources"`
	Retry     RetryConfig    `yaml:"retry"`
	Sites     []SiteConfig   `yaml:"sites"`
	Dataset   DatasetConfig  `yaml:"dataset"`
	Database  DatabaseConfig `yaml:"database"`
	Browser   BrowserConfig  `yaml:"browser"`
	PageDelay time.Duration  `yaml:"pageDelay"`
}

// RetryConfig is the provider retry policy.
type RetryConfig struct {
	Retries int           `yaml:"retries"`
	Base    time.Duration `yaml:"base"`
	Max     time.Duration `yaml:"max"`
}

// SiteConfig describes one marketplace. Preset names a built-in site whose fields the others override.
type SiteConfig struct {
	Name           string   `yaml:"name"`
	Preset         string   `yaml:"preset"`
	ReviewsURL     string   `yaml:"reviewsURL"`
	PageParam      string   `yaml:"pageParam"`
	ReviewSelector string   `yaml:"reviewSelector"`
	IDAttr         string   `yaml:"idAttr"`
	RatingSelector string   `yaml:"ratingSelector"`
	TextSelectors  []string `yaml:"textSelectors"`
	DateSelector   string   `yaml:"dateSelector"`
	MaxPages       int      `yaml:"maxPages"`
	Browser        bool     `yaml:"browser"`
}

// DatasetConfig points at a review CSV.
type DatasetConfig struct {
	Path string `yaml:"path"`
}

// DatabaseConfig describes the SQL review store.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// BrowserConfig configures headless Chrome for JS-rendered sites.
type BrowserConfig struct {
	ExecPath string        `yaml:"execPath"`
	Settle   time.Duration `yaml:"settle"`
}

// AnalyzerConfig selects the sentiment scorer.
type AnalyzerConfig struct {
	Scorer  string        `yaml:"scorer"`
	Lexicon string        `yaml:"lexicon"`
	Weights WeightsConfig `yaml:"weights"`
	ML      MLConfig      `yaml:"ml"`
	OpenAI  OpenAIConfig  `yaml:"openai"`
}

// WeightsConfig sets the lexical scorer's signal weights. All zero keeps the built-in weights.
type WeightsConfig struct {
	Lexicon  float64 `yaml:"lexicon"`
	Rating   float64 `yaml:"rating"`
	Modifier float64 `yaml:"modifier"`
}

// IsSet reports whether any weight was configured.
func (w WeightsConfig) IsSet() bool {
	return w.Lexicon != 0 || w.Rating != 0 || w.Modifier != 0
}

// MLConfig describes the remote inference service.
type MLConfig struct {
	InferenceURL string        `yaml:"inferenceUrl"`
	APIKey       string        `yaml:"apiKey"`
	Model        string        `yaml:"model"`
	Timeout      time.Duration `yaml:"timeout"`
}

// OpenAIConfig defines how to contact the OpenAI API.
type OpenAIConfig struct {
	APIKey  string `yaml:"apiKey"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"baseURL"`
}

// CacheConfig sizes the in-memory cache and selects the persistent tier.
type CacheConfig struct {
	Capacity int           `yaml:"capacity"`
	TTL      time.Duration `yaml:"ttl"`
	Store    string        `yaml:"store"`
	Dir      string        `yaml:"dir"`
	Redis    RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis connection details.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr           string        `yaml:"addr"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
}

// WarmupConfig keeps the listed products' analyses fresh in the cache.
type WarmupConfig struct {
	Interval time.Duration  `yaml:"interval"`
	Products []string       `yaml:"products"`
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig enables the warm-up digest. Both token and chat are required.
type TelegramConfig struct {
	APIBase  string `yaml:"apiBase"`
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Load reads .env, then the YAML file named by AUTOSENTIMENT_CONFIG (if any) over the defaults,
// then environment overrides.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: cannot read .env: %v", err)
	}
	return LoadFile(os.Getenv(configPathEnv))
}

// LoadFile is Load without the .env step. An empty path yields defaults plus environment overrides.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Provider.Database.DSN = v
	}
	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Provider.Database.Driver = v
	}
	if v := os.Getenv(openAIKeyEnv); v != "" {
		c.Analyzer.OpenAI.APIKey = v
	}
	if v := os.Getenv(openAIModelEnv); v != "" {
		c.Analyzer.OpenAI.Model = v
	}
	if v := os.Getenv(mlURLEnv); v != "" {
		c.Analyzer.ML.InferenceURL = v
	}
	if v := os.Getenv(mlKeyEnv); v != "" {
		c.Analyzer.ML.APIKey = v
	}
	if v := os.Getenv(redisAddrEnv); v != "" {
		c.Cache.Redis.Addr = v
	}
	if v := os.Getenv(redisPasswordEnv); v != "" {
		c.Cache.Redis.Password = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(httpAddrEnv); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Warmup.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatEnv); v != "" {
		c.Warmup.Telegram.ChatID = v
	}
}

// Validate rejects configurations the application cannot start with.
func (c Config) Validate() error {
	var errs []error
	e := c.Engine
	if e.MaxReviews <= 0 || e.Timeout <= 0 || e.Parallelism <= 0 || e.ProviderConcurrency <= 0 || e.MinSupport <= 0 || e.MinAspects <= 0 {
		errs = append(errs, errors.New("engine limits must be positive"))
	}
	for _, l := range e.Languages {
		switch strings.ToLower(l) {
		case "hi", "mr", "other":
		default:
			errs = append(errs, fmt.Errorf("engine: unknown language %q", l))
		}
	}

	if len(c.Provider.Sources) == 0 {
		errs = append(errs, errors.New("provider: at least one source is required"))
	}
	if c.Provider.Retry.Retries < 0 {
		errs = append(errs, errors.New("provider: retries must not be negative"))
	}
	sites := make(map[string]bool, len(c.Provider.Sites))
	for _, s := range c.Provider.Sites {
		if s.Name == "" {
			errs = append(errs, errors.New("provider: site without a name"))
		}
		sites[s.Name] = true
	}
	for _, src := range c.Provider.Sources {
		switch {
		case src == SourceDataset:
			if c.Provider.Dataset.Path == "" {
				errs = append(errs, errors.New("provider: dataset source needs dataset.path"))
			}
		case src == SourceSQL:
			if c.Provider.Database.DSN == "" {
				errs = append(errs, errors.New("provider: sql source needs database.dsn"))
			}
			if d := c.Provider.Database.Driver; d != "postgres" && d != "sqlite3" {
				errs = append(errs, fmt.Errorf("provider: unknown database driver %q", d))
			}
		case !sites[src]:
			errs = append(errs, fmt.Errorf("provider: unknown source %q", src))
		}
	}

	switch c.Analyzer.Scorer {
	case ScorerLexical:
	case ScorerML:
		if c.Analyzer.ML.InferenceURL == "" {
			errs = append(errs, errors.New("analyzer: ml scorer needs ml.inferenceUrl"))
		}
	case ScorerOpenAI:
		if c.Analyzer.OpenAI.APIKey == "" {
			errs = append(errs, errors.New("analyzer: openai scorer needs an api key"))
		}
	default:
		errs = append(errs, fmt.Errorf("analyzer: unknown scorer %q", c.Analyzer.Scorer))
	}
	if w := c.Analyzer.Weights; w.Lexicon < 0 || w.Rating < 0 || w.Modifier < 0 {
		errs = append(errs, errors.New("analyzer: weights must not be negative"))
	}

	if c.Cache.Capacity <= 0 || c.Cache.TTL <= 0 {
		errs = append(errs, errors.New("cache: capacity and ttl must be positive"))
	}
	switch c.Cache.Store {
	case StoreNone:
	case StoreFile:
		if c.Cache.Dir == "" {
			errs = append(errs, errors.New("cache: file store needs dir"))
		}
	case StoreRedis:
		if c.Cache.Redis.Addr == "" {
			errs = append(errs, errors.New("cache: redis store needs redis.addr"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache: unknown store %q", c.Cache.Store))
	}

	if t := c.Warmup.Telegram; (t.BotToken == "") != (t.ChatID == "") {
		errs = append(errs, errors.New("warmup: telegram needs both botToken and chatId"))
	}

	return errors.Join(errs...)
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Engine: EngineConfig{
			MaxReviews:          200,
			Timeout:             30 * time.Second,
			Languages:           []string{"hi", "mr"},
			Parallelism:         8,
			ProviderConcurrency: 16,
			MinSupport:          3,
			MinAspects:          3,
			FallbackSamples:     3,
		},
		Provider: ProviderConfig{
			Sources:   []string{SourceDataset},
			Retry:     RetryConfig{Retries: 3, Base: 250 * time.Millisecond, Max: 4 * time.Second},
			Dataset:   DatasetConfig{Path: "datasets/product_reviews.csv"},
			Database:  DatabaseConfig{Driver: "sqlite3", DSN: "autosentiment.db"},
			Browser:   BrowserConfig{Settle: 3 * time.Second},
			PageDelay: time.Second,
			Sites: []SiteConfig{
				{Name: "flipkart", Preset: "flipkart"},
				{Name: "amazon", Preset: "amazon"},
			},
		},
		Analyzer: AnalyzerConfig{
			Scorer: ScorerLexical,
			ML:     MLConfig{Timeout: 15 * time.Second},
			OpenAI: OpenAIConfig{Model: "gpt-4o-mini"},
		},
		Cache: CacheConfig{
			Capacity: 1024,
			TTL:      24 * time.Hour,
			Store:    StoreNone,
			Dir:      ".cache/analyses",
		},
		HTTP: HTTPConfig{Addr: ":8080", RequestTimeout: 60 * time.Second},
	}
}
