package storage

import (
	"regexp"
	"strings"
	"time"
)

// Event statuses.
const (
	StatusScheduled = "scheduled"
	StatusLive      = "live"
	StatusFinished  = "finished"
	StatusCancelled = "cancelled"
)

// Categories accepted for events.
var Categories = []string{
	"gaming", "music", "talk", "education", "sports",
	"entertainment", "technology", "art", "other",
}

// categoryDurations holds the expected duration in minutes per category.
var categoryDurations = map[string]int{
	"gaming":        180,
	"music":         90,
	"talk":          60,
	"education":     120,
	"sports":        150,
	"entertainment": 120,
	"technology":    90,
	"art":           120,
	"other":         90,
}

// Event represents a scheduled streaming event.
type Event struct {
	ID            int64      `db:"id"`
	Title         string     `db:"title"`
	Description   string     `db:"description"`
	Category      string     `db:"category"`
	ScheduledDate time.Time  `db:"scheduled_date"`
	Status        string     `db:"status"`
	MaxViewers    int        `db:"max_viewers"`
	IsFeatured    bool       `db:"is_featured"`
	Tags          string     `db:"tags"` // Comma-separated
	StreamURL     string     `db:"stream_url"`
	ThumbnailURL  string     `db:"thumbnail_url"`
	CreatorID     int64      `db:"creator_id"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`

	// Embedding fields, written only by the backfill job.
	Embedding          []byte     `db:"embedding"` // Vector embedding (BLOB, little-endian float32)
	EmbeddingModel     string     `db:"embedding_model"`
	EmbeddingUpdatedAt *time.Time `db:"embedding_updated_at"`
}

// ValidCategory reports whether a category is one of the accepted choices.
func ValidCategory(category string) bool {
	_, ok := categoryDurations[category]
	return ok
}

// IsLive reports whether the event is currently live.
func (e *Event) IsLive() bool {
	return e.Status == StatusLive
}

// IsUpcoming reports whether the event is scheduled for the future.
func (e *Event) IsUpcoming() bool {
	return e.Status == StatusScheduled && e.ScheduledDate.After(time.Now())
}

// Duration returns the expected duration for the event based on its category.
func (e *Event) Duration() time.Duration {
	minutes, ok := categoryDurations[e.Category]
	if !ok {
		minutes = 90
	}
	return time.Duration(minutes) * time.Minute
}

// EndTime returns the expected end time of the event.
func (e *Event) EndTime() time.Time {
	return e.ScheduledDate.Add(e.Duration())
}

// TagsList returns the comma-separated tags as a slice.
func (e *Event) TagsList() []string {
	if e.Tags == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(e.Tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

var (
	youtubeRe       = regexp.MustCompile(`(?:https?://)?(?:www\.)?(?:youtube\.com/watch\?v=|youtu\.be/)([\w\-]+)`)
	twitchVideoRe   = regexp.MustCompile(`(?:https?://)?(?:www\.)?twitch\.tv/videos/(\d+)`)
	twitchChannelRe = regexp.MustCompile(`(?:https?://)?(?:www\.)?twitch\.tv/([a-zA-Z0-9_]+)$`)
)

// StreamEmbedURL converts YouTube/Twitch URLs to their embeddable player
// form. Returns "" when the URL is not recognized.
func (e *Event) StreamEmbedURL() string {
	if e.StreamURL == "" {
		return ""
	}
	if m := youtubeRe.FindStringSubmatch(e.StreamURL); m != nil {
		return "https://www.youtube.com/embed/" + m[1]
	}
	if m := twitchVideoRe.FindStringSubmatch(e.StreamURL); m != nil {
		return "https://player.twitch.tv/?video=" + m[1] + "&parent=localhost"
	}
	if m := twitchChannelRe.FindStringSubmatch(e.StreamURL); m != nil {
		return "https://player.twitch.tv/?channel=" + m[1] + "&parent=localhost"
	}
	if strings.Contains(e.StreamURL, "embed") || strings.Contains(e.StreamURL, "player") {
		return e.StreamURL
	}
	return ""
}
