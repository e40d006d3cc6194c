package web

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamevents/streamevents/internal/semantic"
	"github.com/streamevents/streamevents/internal/storage"
)

// searchFixture seeds a few embedded events: two future, one past.
func searchFixture(t *testing.T) *testServer {
	t.Helper()
	ts := newTestServer(t)
	token := ts.register(t, "creator")

	ts.createEvent(t, token, "Retro Gaming Tournament", "Super Mario Kart on the SNES", "gaming", "retro, snes")
	ts.createEvent(t, token, "Acoustic Jazz Concert", "Live jazz standards and improvisation", "music", "jazz, acoustic")

	past := &storage.Event{
		Title:         "Retro Gaming Rewatch",
		Description:   "Replay of last year's retro gaming finals",
		Category:      "gaming",
		ScheduledDate: time.Now().Add(-48 * time.Hour).UTC(),
		Status:        storage.StatusFinished,
		CreatorID:     1,
	}
	require.NoError(t, ts.db.CreateEvent(past))
	require.NoError(t, ts.idx.IndexEvent(past))

	provider := semantic.NewProvider("hash", "", "")
	_, err := semantic.NewBackfill(ts.db, provider).Run(false, 0)
	require.NoError(t, err)

	return ts
}

func searchResults(t *testing.T, resp map[string]any) []map[string]any {
	t.Helper()
	raw, ok := resp["results"].([]any)
	require.True(t, ok, "missing results: %v", resp)
	out := make([]map[string]any, len(raw))
	for i, r := range raw {
		out[i] = r.(map[string]any)
	}
	return out
}

func hitTitles(t *testing.T, resp map[string]any) []string {
	t.Helper()
	var titles []string
	for _, hit := range searchResults(t, resp) {
		event := hit["event"].(map[string]any)
		titles = append(titles, event["title"].(string))
	}
	return titles
}

func TestSearchEmptyQuery(t *testing.T) {
	ts := searchFixture(t)

	w := ts.do(t, http.MethodGet, "/api/v1/search?q=", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, float64(0), resp["count"])
	assert.Empty(t, resp["results"])

	// Whitespace-only counts as empty too.
	w = ts.do(t, http.MethodGet, "/api/v1/search?q=%20%20", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decode(t, w)["count"])
}

func TestSemanticSearchRanksRelevantFirst(t *testing.T) {
	ts := searchFixture(t)

	w := ts.do(t, http.MethodGet, "/api/v1/search?q=retro+gaming+snes", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "semantic", resp["mode"])
	assert.Equal(t, true, resp["only_future"])

	titles := hitTitles(t, resp)
	require.NotEmpty(t, titles)
	assert.Equal(t, "Retro Gaming Tournament", titles[0])
	assert.NotContains(t, titles, "Retro Gaming Rewatch")

	// Scores arrive in descending order.
	hits := searchResults(t, resp)
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1]["score"].(float64), hits[i]["score"].(float64))
	}
}

func TestSearchFutureToggle(t *testing.T) {
	ts := searchFixture(t)

	w := ts.do(t, http.MethodGet, "/api/v1/search?q=retro+gaming&future=0", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, false, resp["only_future"])
	assert.Contains(t, hitTitles(t, resp), "Retro Gaming Rewatch")

	// Any non-"0" value keeps the filter on.
	w = ts.do(t, http.MethodGet, "/api/v1/search?q=retro+gaming&future=yes", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp = decode(t, w)
	assert.Equal(t, true, resp["only_future"])
	assert.NotContains(t, hitTitles(t, resp), "Retro Gaming Rewatch")
}

func TestKeywordSearch(t *testing.T) {
	ts := searchFixture(t)

	w := ts.do(t, http.MethodGet, "/api/v1/search?q=jazz&mode=keyword", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "keyword", resp["mode"])

	titles := hitTitles(t, resp)
	require.Len(t, titles, 1)
	assert.Equal(t, "Acoustic Jazz Concert", titles[0])
}

func TestHybridSearch(t *testing.T) {
	ts := searchFixture(t)

	w := ts.do(t, http.MethodGet, "/api/v1/search?q=jazz+concert&mode=hybrid&weight=0.5", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "hybrid", resp["mode"])

	titles := hitTitles(t, resp)
	require.NotEmpty(t, titles)
	assert.Equal(t, "Acoustic Jazz Concert", titles[0])
}

func TestSearchInvalidMode(t *testing.T) {
	ts := searchFixture(t)

	w := ts.do(t, http.MethodGet, "/api/v1/search?q=jazz&mode=psychic", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchUnavailableProvider(t *testing.T) {
	ts := newTestServer(t)

	// A provider pointed at a non-listening port fails its health probe.
	provider := semantic.NewProvider("ollama", "http://127.0.0.1:1", "m")
	srv := NewServer(ts.db, ts.idx, provider, time.Hour, "test")
	ts.router = srv.Router()

	w := ts.do(t, http.MethodGet, "/api/v1/search?q=anything", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
