// Package cachestore holds the persistent tiers behind the in-memory result cache.
package cachestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/Shaizy-S/AutoSentiment/internal/domain"
	"github.com/Shaizy-S/AutoSentiment/internal/ports"
)

var keyExpr = regexp.MustCompile(`^[a-f0-9]{16,128}$`)

// FileStore keeps one JSON document per cache key inside a directory.
type FileStore struct {
	dir string
}

var _ ports.AnalysisStore = (*FileStore)(nil)

// NewFileStore creates dir when missing.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("file store: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("file store: create %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// Load reads the analysis stored under key. A missing file is a miss, not an error.
func (s *FileStore) Load(ctx context.Context, key string) (domain.ProductAnalysis, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.ProductAnalysis{}, false, err
	}
	path, err := s.path(key)
	if err != nil {
		return domain.ProductAnalysis{}, false, err
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.ProductAnalysis{}, false, nil
	}
	if err != nil {
		return domain.ProductAnalysis{}, false, fmt.Errorf("file store: read: %w", err)
	}

	var out domain.ProductAnalysis
	if err := json.Unmarshal(raw, &out); err != nil {
		return domain.ProductAnalysis{}, false, fmt.Errorf("file store: decode %s: %w", filepath.Base(path), err)
	}
	return out, true, nil
}

// Save writes the analysis through a temporary file so readers never see a partial document.
func (s *FileStore) Save(ctx context.Context, key string, analysis domain.ProductAnalysis) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(key)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("file store: encode: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("file store: temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("file store: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("file store: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("file store: rename: %w", err)
	}
	return nil
}

func (s *FileStore) path(key string) (string, error) {
	if !keyExpr.MatchString(key) {
		return "", fmt.Errorf("file store: invalid key %q", key)
	}
	return filepath.Join(s.dir, key+".json"), nil
}
