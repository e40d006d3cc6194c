package semantic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamevents/streamevents/internal/embeddings"
	"github.com/streamevents/streamevents/internal/storage"
)

func backfillFixture(t *testing.T) (*storage.DB, *Provider) {
	t.Helper()

	db, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	creator := &storage.User{Username: "creator", Email: "creator@example.com", PasswordHash: "x"}
	require.NoError(t, db.CreateUser(creator))

	provider := NewProviderWith(embeddings.HashModelName, func() (embeddings.Embedder, error) {
		return embeddings.NewHashEmbedder(embeddings.DefaultHashDimensions), nil
	})
	return db, provider
}

func createEvent(t *testing.T, db *storage.DB, title, description string) *storage.Event {
	t.Helper()
	e := &storage.Event{
		Title:         title,
		Description:   description,
		Category:      "gaming",
		ScheduledDate: time.Now().Add(24 * time.Hour).UTC(),
		CreatorID:     1,
	}
	require.NoError(t, db.CreateEvent(e))
	return e
}

func TestBackfillEmbedsMissing(t *testing.T) {
	db, provider := backfillFixture(t)
	a := createEvent(t, db, "Retro night", "SNES classics")
	b := createEvent(t, db, "Jazz session", "Live improvisation")

	stats, err := NewBackfill(db, provider).Run(false, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Scanned)
	assert.Equal(t, 2, stats.Updated)
	assert.Equal(t, 0, stats.Skipped)
	assert.Empty(t, stats.Failed)

	for _, id := range []int64{a.ID, b.ID} {
		e, err := db.GetEvent(id)
		require.NoError(t, err)
		require.NotNil(t, e)
		assert.NotEmpty(t, e.Embedding)
		assert.Equal(t, embeddings.HashModelName, e.EmbeddingModel)
		require.NotNil(t, e.EmbeddingUpdatedAt)

		vec := embeddings.DeserializeVector(e.Embedding)
		assert.InDelta(t, 1.0, float64(embeddings.Norm(vec)), 1e-5)
	}
}

func TestBackfillIsIdempotent(t *testing.T) {
	db, provider := backfillFixture(t)
	e := createEvent(t, db, "Retro night", "SNES classics")

	job := NewBackfill(db, provider)
	_, err := job.Run(false, 0)
	require.NoError(t, err)

	first, err := db.GetEvent(e.ID)
	require.NoError(t, err)

	stats, err := job.Run(false, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Updated)
	assert.Equal(t, 1, stats.Skipped)

	second, err := db.GetEvent(e.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Embedding, second.Embedding)
	assert.Equal(t, first.EmbeddingUpdatedAt, second.EmbeddingUpdatedAt)
}

func TestBackfillForceReembeds(t *testing.T) {
	db, provider := backfillFixture(t)
	e := createEvent(t, db, "Retro night", "SNES classics")

	job := NewBackfill(db, provider)
	_, err := job.Run(false, 0)
	require.NoError(t, err)

	before, err := db.GetEvent(e.ID)
	require.NoError(t, err)

	stats, err := job.Run(true, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Updated)

	after, err := db.GetEvent(e.ID)
	require.NoError(t, err)
	// Deterministic embedder: same bytes, but the timestamp moves.
	assert.Equal(t, before.Embedding, after.Embedding)
	assert.True(t, after.EmbeddingUpdatedAt.After(*before.EmbeddingUpdatedAt) ||
		after.EmbeddingUpdatedAt.Equal(*before.EmbeddingUpdatedAt))
}

func TestBackfillSkipsBlankText(t *testing.T) {
	db, provider := backfillFixture(t)
	blank := &storage.Event{
		Title:         "   ",
		Description:   "",
		Category:      "",
		Tags:          " ",
		ScheduledDate: time.Now().Add(time.Hour).UTC(),
		CreatorID:     1,
	}
	require.NoError(t, db.CreateEvent(blank))

	stats, err := NewBackfill(db, provider).Run(true, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Updated)
	assert.Equal(t, 1, stats.Skipped)

	e, err := db.GetEvent(blank.ID)
	require.NoError(t, err)
	assert.Empty(t, e.Embedding)
}

func TestBackfillHonorsLimit(t *testing.T) {
	db, provider := backfillFixture(t)
	createEvent(t, db, "First", "oldest event")
	createEvent(t, db, "Second", "newer event")
	createEvent(t, db, "Third", "newest event")

	stats, err := NewBackfill(db, provider).Run(false, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Scanned)
	assert.Equal(t, 2, stats.Updated)
}
