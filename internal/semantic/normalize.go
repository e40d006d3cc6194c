// Package semantic implements the embedding and ranking pipeline behind
// semantic event search: canonical text construction, a lazily initialized
// embedding provider, brute-force cosine top-k ranking, and the embedding
// backfill job.
package semantic

import (
	"strings"

	"github.com/streamevents/streamevents/internal/storage"
)

// textSeparator joins the surviving fields of an event's canonical text.
const textSeparator = " | "

// EventText builds the canonical text that gets embedded for an event: each
// field trimmed, empties dropped, survivors joined in the fixed order title,
// description, category, tags. All-blank input yields "". The same canonical
// form is used at indexing time and implicitly by free-text queries.
func EventText(title, description, category, tags string) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{title, description, category, tags} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, textSeparator)
}

// EventTextOf is EventText applied to a stored event.
func EventTextOf(e *storage.Event) string {
	return EventText(e.Title, e.Description, e.Category, e.Tags)
}
