package web

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/streamevents/streamevents/internal/storage"
)

const defaultPageSize = 12

type eventRequest struct {
	Title         string    `json:"title" binding:"required"`
	Description   string    `json:"description" binding:"required"`
	Category      string    `json:"category" binding:"required"`
	ScheduledDate time.Time `json:"scheduled_date" binding:"required"`
	MaxViewers    int       `json:"max_viewers"`
	IsFeatured    bool      `json:"is_featured"`
	Tags          string    `json:"tags"`
	StreamURL     string    `json:"stream_url"`
	ThumbnailURL  string    `json:"thumbnail_url"`
}

func (r *eventRequest) validate(isCreate bool) string {
	if len(r.Title) > 200 {
		return "title must be at most 200 characters"
	}
	if !storage.ValidCategory(r.Category) {
		return "invalid category (valid: " + strings.Join(storage.Categories, ", ") + ")"
	}
	if isCreate && r.ScheduledDate.Before(time.Now()) {
		return "scheduled date must be in the future"
	}
	if r.MaxViewers < 0 {
		return "max viewers cannot be negative"
	}
	return ""
}

func (s *Server) handleListEvents(c *gin.Context) {
	filter := storage.EventFilter{
		Category: c.Query("category"),
		Status:   c.Query("status"),
	}
	if filter.Category != "" && !storage.ValidCategory(filter.Category) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category"})
		return
	}

	page := intQuery(c, "page", 1)
	pageSize := intQuery(c, "page_size", defaultPageSize)
	if pageSize > 100 {
		pageSize = 100
	}
	filter.Limit = pageSize
	filter.Offset = (page - 1) * pageSize

	events, err := s.db.ListEvents(filter)
	if err != nil {
		serverError(c, err)
		return
	}

	out := make([]gin.H, 0, len(events))
	for _, e := range events {
		out = append(out, eventJSON(e, nil))
	}
	c.JSON(http.StatusOK, gin.H{"events": out, "page": page, "page_size": pageSize})
}

func (s *Server) handleGetEvent(c *gin.Context) {
	event, ok := s.eventFromPath(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": eventJSON(event, currentUser(c))})
}

func (s *Server) handleCreateEvent(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if msg := req.validate(true); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	event := &storage.Event{
		Title:         req.Title,
		Description:   req.Description,
		Category:      req.Category,
		ScheduledDate: req.ScheduledDate,
		MaxViewers:    req.MaxViewers,
		IsFeatured:    req.IsFeatured,
		Tags:          req.Tags,
		StreamURL:     req.StreamURL,
		ThumbnailURL:  req.ThumbnailURL,
		CreatorID:     currentUser(c).ID,
	}
	if err := s.db.CreateEvent(event); err != nil {
		serverError(c, err)
		return
	}
	s.reindexEvent(event)

	c.JSON(http.StatusCreated, gin.H{"event": eventJSON(event, currentUser(c))})
}

func (s *Server) handleUpdateEvent(c *gin.Context) {
	event, ok := s.eventFromPath(c)
	if !ok {
		return
	}
	user := currentUser(c)
	if event.CreatorID != user.ID && !user.IsAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the creator can edit this event"})
		return
	}

	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if msg := req.validate(false); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	event.Title = req.Title
	event.Description = req.Description
	event.Category = req.Category
	event.ScheduledDate = req.ScheduledDate
	event.MaxViewers = req.MaxViewers
	event.IsFeatured = req.IsFeatured
	event.Tags = req.Tags
	event.StreamURL = req.StreamURL
	event.ThumbnailURL = req.ThumbnailURL

	if err := s.db.UpdateEvent(event); err != nil {
		serverError(c, err)
		return
	}
	s.reindexEvent(event)

	// The stored embedding is now stale until the next backfill run; that
	// is tolerated, not detected.
	c.JSON(http.StatusOK, gin.H{"event": eventJSON(event, user)})
}

func (s *Server) handleDeleteEvent(c *gin.Context) {
	event, ok := s.eventFromPath(c)
	if !ok {
		return
	}
	user := currentUser(c)
	if event.CreatorID != user.ID && !user.IsAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the creator can delete this event"})
		return
	}

	if err := s.db.DeleteEvent(event.ID); err != nil {
		serverError(c, err)
		return
	}
	if err := s.idx.Delete(event.ID); err != nil {
		log.Warn().Err(err).Int64("event_id", event.ID).Msg("remove event from index failed")
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) handleMyEvents(c *gin.Context) {
	filter := storage.EventFilter{
		CreatorID: currentUser(c).ID,
		Status:    c.Query("status"),
	}
	page := intQuery(c, "page", 1)
	pageSize := intQuery(c, "page_size", defaultPageSize)
	filter.Limit = pageSize
	filter.Offset = (page - 1) * pageSize

	events, err := s.db.ListEvents(filter)
	if err != nil {
		serverError(c, err)
		return
	}

	out := make([]gin.H, 0, len(events))
	for _, e := range events {
		out = append(out, eventJSON(e, currentUser(c)))
	}
	c.JSON(http.StatusOK, gin.H{"events": out, "page": page, "page_size": pageSize})
}

// eventFromPath loads the event named by the :id path param, responding with
// 400/404 on failure.
func (s *Server) eventFromPath(c *gin.Context) (*storage.Event, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return nil, false
	}
	event, err := s.db.GetEvent(id)
	if err != nil {
		serverError(c, err)
		return nil, false
	}
	if event == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return nil, false
	}
	return event, true
}

func (s *Server) reindexEvent(e *storage.Event) {
	if err := s.idx.IndexEvent(e); err != nil {
		log.Warn().Err(err).Int64("event_id", e.ID).Msg("index event failed")
	}
}

// eventJSON renders an event. viewer, when non-nil, adds ownership info.
func eventJSON(e *storage.Event, viewer *storage.User) gin.H {
	out := gin.H{
		"id":             e.ID,
		"title":          e.Title,
		"description":    e.Description,
		"category":       e.Category,
		"scheduled_date": e.ScheduledDate,
		"end_time":       e.EndTime(),
		"status":         e.Status,
		"max_viewers":    e.MaxViewers,
		"is_featured":    e.IsFeatured,
		"is_live":        e.IsLive(),
		"is_upcoming":    e.IsUpcoming(),
		"tags":           e.TagsList(),
		"stream_url":     e.StreamURL,
		"embed_url":      e.StreamEmbedURL(),
		"thumbnail_url":  e.ThumbnailURL,
		"creator_id":     e.CreatorID,
		"created_at":     e.CreatedAt,
		"updated_at":     e.UpdatedAt,
	}
	if viewer != nil {
		out["is_creator"] = viewer.ID == e.CreatorID
	}
	return out
}

func intQuery(c *gin.Context, name string, def int) int {
	if v, err := strconv.Atoi(c.Query(name)); err == nil && v > 0 {
		return v
	}
	return def
}
