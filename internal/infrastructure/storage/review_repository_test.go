package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shaizy-S/AutoSentiment/internal/domain"
)

func newRepo(t *testing.T) *ReviewRepository {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, DriverSQLite, filepath.Join(t.TempDir(), "reviews.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewReviewRepository(db, DriverSQLite)
	require.NoError(t, repo.Migrate(ctx))
	require.NoError(t, repo.Migrate(ctx), "migrate must be idempotent")
	return repo
}

func at(day int) time.Time {
	return time.Date(2024, 3, day, 12, 0, 0, 0, time.UTC)
}

func TestSaveAndFetchOrdersByRecency(t *testing.T) {
	t.Parallel()
	repo := newRepo(t)
	ctx := context.Background()

	n, err := repo.SaveReviews(ctx, "redmi note 13", []domain.RawReview{
		{SourceID: "b", Text: "बैटरी अच्छी है", Rating: 4, Timestamp: at(2)},
		{SourceID: "a", Text: "कैमरा बढ़िया", Rating: 5, Timestamp: at(2)},
		{SourceID: "c", Text: "डिस्प्ले खराब", Rating: 2, Timestamp: at(5)},
		{SourceID: "d", Text: "undated"},
		{SourceID: "", Text: "no id is skipped"},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	_, err = repo.SaveReviews(ctx, "pixel 8", []domain.RawReview{{SourceID: "x", Text: "camera is good", Timestamp: at(9)}})
	require.NoError(t, err)

	got, err := repo.Fetch(ctx, domain.ProductQuery{Normalized: "redmi note 13"}, 10)
	require.NoError(t, err)
	ids := make([]string, len(got))
	for i, r := range got {
		ids[i] = r.SourceID
	}
	assert.Equal(t, []string{"c", "a", "b", "d"}, ids)
	assert.True(t, at(5).Equal(got[0].Timestamp), got[0].Timestamp)
	assert.Equal(t, 2, got[0].Rating)
	assert.True(t, got[3].Timestamp.IsZero())

	limited, err := repo.Fetch(ctx, domain.ProductQuery{Normalized: "redmi note 13"}, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestSaveReviewsUpserts(t *testing.T) {
	t.Parallel()
	repo := newRepo(t)
	ctx := context.Background()

	_, err := repo.SaveReviews(ctx, "pixel 8", []domain.RawReview{{SourceID: "x", Text: "old", Rating: 1}})
	require.NoError(t, err)
	_, err = repo.SaveReviews(ctx, "pixel 8", []domain.RawReview{{SourceID: "x", Text: "new", Rating: 5}})
	require.NoError(t, err)

	got, err := repo.Fetch(ctx, domain.ProductQuery{Normalized: "pixel 8"}, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].Text)
	assert.Equal(t, 5, got[0].Rating)
}

func TestSaveReviewsInBatches(t *testing.T) {
	t.Parallel()
	repo := newRepo(t)
	ctx := context.Background()

	reviews := make([]domain.RawReview, 450)
	for i := range reviews {
		reviews[i] = domain.RawReview{SourceID: fmt.Sprintf("r%03d", i), Text: "ok", Rating: 3}
	}
	n, err := repo.SaveReviews(ctx, "bulk", reviews)
	require.NoError(t, err)
	assert.Equal(t, 450, n)

	got, err := repo.Fetch(ctx, domain.ProductQuery{Normalized: "bulk"}, 0)
	require.NoError(t, err)
	assert.Len(t, got, 450)
	assert.Equal(t, "r000", got[0].SourceID)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), "mysql", "dsn")
	require.Error(t, err)
	assert.Equal(t, "sql/postgres@1", NewReviewRepository(nil, DriverPostgres).Version())
}
