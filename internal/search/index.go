// Package search maintains the keyword (bleve) index over events and the
// score merging used by hybrid search.
package search

import (
	"fmt"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/streamevents/streamevents/internal/storage"
)

// Index wraps a Bleve search index over events.
type Index struct {
	index bleve.Index
}

// IndexedEvent is the searchable projection of an event.
type IndexedEvent struct {
	ID          string
	Title       string
	Description string
	Category    string
	Tags        string
}

// Result is a keyword or hybrid search hit.
type Result struct {
	EventID   int64
	Title     string
	Category  string
	Score     float64
	Fragments map[string][]string // Highlighted snippets
}

// Open opens or creates a Bleve index at path.
func Open(path string) (*Index, error) {
	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		idx, err = bleve.New(path, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	return &Index{index: idx}, nil
}

// OpenInMemory creates a transient index. Used by tests.
func OpenInMemory() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	return &Index{index: idx}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	textFieldMapping := bleve.NewTextFieldMapping()

	titleFieldMapping := bleve.NewTextFieldMapping()
	titleFieldMapping.Analyzer = "standard"

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("ID", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("Title", titleFieldMapping)
	docMapping.AddFieldMappingsAt("Description", textFieldMapping)
	docMapping.AddFieldMappingsAt("Category", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("Tags", textFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}

// Close closes the index.
func (i *Index) Close() error {
	return i.index.Close()
}

// IndexEvent adds or updates an event in the index.
func (i *Index) IndexEvent(e *storage.Event) error {
	doc := &IndexedEvent{
		ID:          strconv.FormatInt(e.ID, 10),
		Title:       e.Title,
		Description: e.Description,
		Category:    e.Category,
		Tags:        e.Tags,
	}
	return i.index.Index(doc.ID, doc)
}

// Delete removes an event from the index.
func (i *Index) Delete(eventID int64) error {
	return i.index.Delete(strconv.FormatInt(eventID, 10))
}

// Search performs a keyword search with query-string syntax (quotes, boolean
// operators, fuzzy ~).
func (i *Index) Search(queryStr string, limit int) ([]*Result, error) {
	query := bleve.NewQueryStringQuery(queryStr)

	req := bleve.NewSearchRequestOptions(query, limit, 0, false)
	req.Highlight = bleve.NewHighlightWithStyle("html")
	req.Fields = []string{"Title", "Category"}

	results, err := i.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	var out []*Result
	for _, hit := range results.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		r := &Result{
			EventID:   id,
			Score:     hit.Score,
			Fragments: hit.Fragments,
		}
		if title, ok := hit.Fields["Title"].(string); ok {
			r.Title = title
		}
		if category, ok := hit.Fields["Category"].(string); ok {
			r.Category = category
		}
		out = append(out, r)
	}

	return out, nil
}

// Rebuild reindexes every event from storage in one batch.
func (i *Index) Rebuild(db *storage.DB) error {
	events, err := db.ListEvents(storage.EventFilter{})
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}

	batch := i.index.NewBatch()
	for _, e := range events {
		doc := &IndexedEvent{
			ID:          strconv.FormatInt(e.ID, 10),
			Title:       e.Title,
			Description: e.Description,
			Category:    e.Category,
			Tags:        e.Tags,
		}
		if err := batch.Index(doc.ID, doc); err != nil {
			return fmt.Errorf("batch index %s: %w", doc.ID, err)
		}
	}

	if err := i.index.Batch(batch); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	return nil
}

// Count returns the number of events in the index.
func (i *Index) Count() (uint64, error) {
	return i.index.DocCount()
}
