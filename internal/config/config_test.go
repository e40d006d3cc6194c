package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, "localhost:8080", cfg.Addr)
	assert.Equal(t, "ollama", cfg.EmbeddingsProvider)
	assert.Equal(t, "./data/streamevents.db", cfg.DBPath)
	assert.Equal(t, "./data/bleve", cfg.IndexPath)
	assert.Equal(t, 72, cfg.SessionTTLHours)
	assert.Equal(t, 60, cfg.StatusIntervalSeconds)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("STREAMEVENTS_ADDR", "0.0.0.0:9000")
	t.Setenv("STREAMEVENTS_DATA_DIR", "/var/lib/streamevents")
	t.Setenv("STREAMEVENTS_EMBEDDINGS_PROVIDER", "hash")
	t.Setenv("STREAMEVENTS_SESSION_TTL_HOURS", "24")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Addr)
	assert.Equal(t, "hash", cfg.EmbeddingsProvider)
	assert.Equal(t, "/var/lib/streamevents/streamevents.db", cfg.DBPath)
	assert.Equal(t, "/var/lib/streamevents/bleve", cfg.IndexPath)
	assert.Equal(t, 24, cfg.SessionTTLHours)
}

func TestExplicitPathsWin(t *testing.T) {
	t.Setenv("STREAMEVENTS_DB_PATH", "/tmp/custom.db")
	t.Setenv("STREAMEVENTS_INDEX_PATH", "/tmp/custom-bleve")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom.db", cfg.DBPath)
	assert.Equal(t, "/tmp/custom-bleve", cfg.IndexPath)
}
