// Package cache holds sealed product analyses and deduplicates concurrent builds of the same key.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/Shaizy-S/AutoSentiment/internal/domain"
	"github.com/Shaizy-S/AutoSentiment/internal/ports"
)

const (
	DefaultCapacity = 1024
	DefaultTTL      = 24 * time.Hour
)

// Key identifies a product analysis. Profile captures request options that change the analysis
// (review limit, language filter).
type Key struct {
	Product  string
	Provider string
	Analyzer string
	Profile  string
}

// String is the canonical form of the key.
func (k Key) String() string {
	parts := []string{k.Product, k.Provider, k.Analyzer, k.Profile}
	for i, p := range parts {
		parts[i] = strconv.Quote(p)
	}
	return strings.Join(parts, "|")
}

// Hash is the SHA-256 of the canonical form, used by content-addressed stores.
func (k Key) Hash() string {
	sum := sha256.Sum256([]byte(k.String()))
	return hex.EncodeToString(sum[:])
}

// Config sizes the in-memory tier.
type Config struct {
	Capacity int
	TTL      time.Duration
}

// BuildFunc computes an analysis on a miss.
type BuildFunc func(ctx context.Context) (domain.ProductAnalysis, error)

type call struct {
	done    chan struct{}
	val     domain.ProductAnalysis
	err     error
	waiters int
	cancel  context.CancelFunc
}

// ResultCache is an LRU+TTL cache of sealed analyses with an optional persistent tier.
// At most one build per key runs at a time; callers for the same key wait for it.
type ResultCache struct {
	mu       sync.Mutex
	lru      *expirable.LRU[string, domain.ProductAnalysis]
	inflight map[string]*call
	store    ports.AnalysisStore
	logger   *slog.Logger
}

// New creates a cache. store may be nil for a memory-only cache.
func New(cfg Config, store ports.AnalysisStore, logger *slog.Logger) *ResultCache {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultCache{
		lru:      expirable.NewLRU[string, domain.ProductAnalysis](cfg.Capacity, nil, cfg.TTL),
		inflight: make(map[string]*call),
		store:    store,
		logger:   logger.With("component", "cache"),
	}
}

// Get returns a sealed analysis from memory.
func (c *ResultCache) Get(key Key) (domain.ProductAnalysis, bool) {
	return c.lru.Get(key.String())
}

// Len reports the number of entries held in memory.
func (c *ResultCache) Len() int {
	return c.lru.Len()
}

// Purge drops every in-memory entry. In-flight builds are unaffected.
func (c *ResultCache) Purge() {
	c.lru.Purge()
}

// GetOrCompute returns the cached analysis for key or joins/starts its build.
// The build runs detached from any single caller: a caller whose ctx ends stops waiting,
// and the build is cancelled only when no caller is left. Only successful builds are sealed.
func (c *ResultCache) GetOrCompute(ctx context.Context, key Key, build BuildFunc) (domain.ProductAnalysis, bool, error) {
	k := key.String()

	c.mu.Lock()
	if v, ok := c.lru.Get(k); ok {
		c.mu.Unlock()
		return v, true, nil
	}
	cl, joined := c.inflight[k]
	if joined {
		cl.waiters++
	} else {
		bctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		cl = &call{done: make(chan struct{}), waiters: 1, cancel: cancel}
		c.inflight[k] = cl
		go c.run(bctx, k, key, cl, build)
	}
	c.mu.Unlock()

	if joined {
		c.logger.Debug("joined in-flight build", "product", key.Product)
	}

	select {
	case <-cl.done:
		return cl.val, false, cl.err
	case <-ctx.Done():
		c.leave(k, cl)
		return domain.ProductAnalysis{}, false, ctx.Err()
	}
}

func (c *ResultCache) leave(k string, cl *call) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cl.waiters--
	if cl.waiters > 0 {
		return
	}
	// Nobody is waiting any more: abandon the build and let the next caller start afresh.
	if c.inflight[k] == cl {
		delete(c.inflight, k)
	}
	cl.cancel()
}

func (c *ResultCache) run(ctx context.Context, k string, key Key, cl *call, build BuildFunc) {
	defer cl.cancel()

	val, err := c.compute(ctx, key, build)

	c.mu.Lock()
	if c.inflight[k] == cl {
		delete(c.inflight, k)
	}
	if err == nil {
		c.lru.Add(k, val)
	}
	cl.val, cl.err = val, err
	c.mu.Unlock()
	close(cl.done)
}

func (c *ResultCache) compute(ctx context.Context, key Key, build BuildFunc) (val domain.ProductAnalysis, err error) {
	defer func() {
		if r := recover(); r != nil {
			val, err = domain.ProductAnalysis{}, fmt.Errorf("%w: build panicked: %v", domain.ErrInternal, r)
		}
	}()

	if c.store != nil {
		stored, ok, loadErr := c.store.Load(ctx, key.Hash())
		switch {
		case loadErr != nil:
			c.logger.Warn("persistent cache load failed, treating as miss", "product", key.Product, "error", loadErr)
		case ok && stored.Versions.Provider == key.Provider && stored.Versions.Analyzer == key.Analyzer:
			return stored, nil
		}
	}

	val, err = build(ctx)
	if err != nil {
		return domain.ProductAnalysis{}, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return domain.ProductAnalysis{}, ctxErr
	}

	if c.store != nil {
		if saveErr := c.store.Save(context.WithoutCancel(ctx), key.Hash(), val); saveErr != nil {
			c.logger.Warn("persistent cache save failed", "product", key.Product, "error", saveErr)
		}
	}
	return val, nil
}
