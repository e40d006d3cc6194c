package web

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/streamevents/streamevents/internal/embeddings"
	"github.com/streamevents/streamevents/internal/search"
	"github.com/streamevents/streamevents/internal/semantic"
	"github.com/streamevents/streamevents/internal/storage"
)

var searchRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "streamevents_search_requests_total",
	Help: "Search requests by mode.",
}, []string{"mode"})

// handleSearch serves GET /api/v1/search.
//
// Query parameters:
//   - q: free-text query; blank returns an empty result without embedding.
//   - future: the literal value "0" disables the future-only filter; any
//     other value, including absence, keeps it enabled.
//   - mode: semantic (default), keyword, or hybrid.
//   - limit: result cap for keyword/hybrid (1-100, default 20); semantic
//     ranking depth is fixed at 20.
//   - weight: semantic share for hybrid mode (0.0-1.0, default 0.3).
func (s *Server) handleSearch(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	onlyFuture := c.Query("future") != "0"

	mode := c.Query("mode")
	if mode == "" {
		mode = "semantic"
	}
	searchRequests.WithLabelValues(mode).Inc()

	resp := gin.H{
		"query":       query,
		"mode":        mode,
		"only_future": onlyFuture,
		"model":       s.provider.ModelName(),
	}

	if query == "" {
		resp["results"] = []gin.H{}
		resp["count"] = 0
		c.JSON(http.StatusOK, resp)
		return
	}

	limit := intQuery(c, "limit", semantic.DefaultTopK)
	if limit > 100 {
		limit = 100
	}

	var hits []gin.H
	var err error
	switch mode {
	case "semantic":
		hits, err = s.semanticSearch(query, onlyFuture)
	case "keyword":
		hits, err = s.keywordSearch(query, onlyFuture, limit)
	case "hybrid":
		weight := 0.3
		if w, perr := strconv.ParseFloat(c.Query("weight"), 64); perr == nil && w >= 0 && w <= 1 {
			weight = w
		}
		hits, err = s.hybridSearch(query, onlyFuture, limit, weight)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid mode (valid: semantic, keyword, hybrid)"})
		return
	}
	if err != nil {
		// Model down or storage failing: a clear unavailable state, not a
		// stack trace.
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search unavailable: " + err.Error()})
		return
	}

	if hits == nil {
		hits = []gin.H{}
	}
	resp["results"] = hits
	resp["count"] = len(hits)
	c.JSON(http.StatusOK, resp)
}

// semanticSearch embeds the query and ranks candidate events by cosine
// similarity against their stored embeddings.
func (s *Server) semanticSearch(query string, onlyFuture bool) ([]gin.H, error) {
	queryVec, err := s.provider.EmbedText(query)
	if err != nil {
		return nil, err
	}

	events, err := s.loadCandidates(onlyFuture)
	if err != nil {
		return nil, err
	}

	candidates := make([]semantic.Candidate[*storage.Event], 0, len(events))
	for _, e := range events {
		// Events without an embedding fall out in the ranker's skip logic.
		candidates = append(candidates, semantic.Candidate[*storage.Event]{
			Item:   e,
			Vector: embeddings.DeserializeVector(e.Embedding),
		})
	}

	ranked := semantic.CosineTopK(queryVec, candidates, semantic.DefaultTopK)

	hits := make([]gin.H, 0, len(ranked))
	for _, r := range ranked {
		hits = append(hits, gin.H{
			"event": eventJSON(r.Item, nil),
			"score": r.Score,
		})
	}
	return hits, nil
}

// keywordSearch queries the bleve index and hydrates hits from storage.
func (s *Server) keywordSearch(query string, onlyFuture bool, limit int) ([]gin.H, error) {
	results, err := s.idx.Search(query, limit)
	if err != nil {
		return nil, err
	}
	return s.hydrateResults(results, onlyFuture)
}

// hybridSearch merges keyword and semantic rankings. semanticWeight is the
// share given to the semantic side.
func (s *Server) hybridSearch(query string, onlyFuture bool, limit int, semanticWeight float64) ([]gin.H, error) {
	// Overfetch candidates for better merging
	candidateLimit := limit * 3

	keywordResults, err := s.idx.Search(query, candidateLimit)
	if err != nil {
		return nil, err
	}

	queryVec, err := s.provider.EmbedText(query)
	if err != nil {
		return nil, err
	}
	events, err := s.loadCandidates(onlyFuture)
	if err != nil {
		return nil, err
	}
	candidates := make([]semantic.Candidate[*storage.Event], 0, len(events))
	for _, e := range events {
		candidates = append(candidates, semantic.Candidate[*storage.Event]{
			Item:   e,
			Vector: embeddings.DeserializeVector(e.Embedding),
		})
	}
	ranked := semantic.CosineTopK(queryVec, candidates, candidateLimit)

	semanticResults := make([]*search.Result, 0, len(ranked))
	for _, r := range ranked {
		semanticResults = append(semanticResults, &search.Result{
			EventID:  r.Item.ID,
			Title:    r.Item.Title,
			Category: r.Item.Category,
			Score:    float64(r.Score),
		})
	}

	merged, err := search.Merge(keywordResults, semanticResults, 1-semanticWeight, limit)
	if err != nil {
		return nil, err
	}
	return s.hydrateResults(merged, onlyFuture)
}

// loadCandidates reads the candidate events for semantic ranking.
func (s *Server) loadCandidates(onlyFuture bool) ([]*storage.Event, error) {
	filter := storage.EventFilter{}
	if onlyFuture {
		now := time.Now()
		filter.ScheduledAfter = &now
	}
	return s.db.ListEvents(filter)
}

// hydrateResults loads the events behind index results, applying the
// future-only filter and dropping hits whose event has been deleted.
func (s *Server) hydrateResults(results []*search.Result, onlyFuture bool) ([]gin.H, error) {
	now := time.Now()
	hits := make([]gin.H, 0, len(results))
	for _, r := range results {
		event, err := s.db.GetEvent(r.EventID)
		if err != nil {
			return nil, err
		}
		if event == nil {
			continue
		}
		if onlyFuture && event.ScheduledDate.Before(now) {
			continue
		}
		hit := gin.H{
			"event": eventJSON(event, nil),
			"score": r.Score,
		}
		if len(r.Fragments) > 0 {
			hit["fragments"] = r.Fragments
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
