package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/streamevents/streamevents/internal/storage"
)

const (
	chatWindowSize = 50
	maxMessageLen  = 500
)

func (s *Server) handleChatLoad(c *gin.Context) {
	event, ok := s.eventFromPath(c)
	if !ok {
		return
	}

	msgs, err := s.db.ListChatMessages(event.ID, chatWindowSize)
	if err != nil {
		serverError(c, err)
		return
	}

	viewer := currentUser(c)
	out := make([]gin.H, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, chatMessageJSON(m, viewer))
	}
	c.JSON(http.StatusOK, gin.H{"messages": out})
}

type chatSendRequest struct {
	Message string `json:"message" binding:"required"`
}

func (s *Server) handleChatSend(c *gin.Context) {
	event, ok := s.eventFromPath(c)
	if !ok {
		return
	}
	if !event.IsLive() {
		c.JSON(http.StatusConflict, gin.H{"error": "chat is only open while the event is live"})
		return
	}

	var req chatSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message cannot be empty"})
		return
	}
	if len(message) > maxMessageLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message too long"})
		return
	}

	user := currentUser(c)
	msg := &storage.ChatMessage{
		EventID:     event.ID,
		UserID:      user.ID,
		Username:    user.Username,
		DisplayName: user.Name(),
		Message:     message,
	}
	if err := s.db.AddChatMessage(msg); err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": chatMessageJSON(msg, user)})
}

func (s *Server) handleChatDelete(c *gin.Context) {
	msg, ok := s.chatMessageFromPath(c)
	if !ok {
		return
	}
	if !msg.CanDelete(currentUser(c)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed to delete this message"})
		return
	}
	if err := s.db.SoftDeleteChatMessage(msg.ID); err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) handleChatHighlight(c *gin.Context) {
	msg, ok := s.chatMessageFromPath(c)
	if !ok {
		return
	}

	event, err := s.db.GetEvent(msg.EventID)
	if err != nil {
		serverError(c, err)
		return
	}
	user := currentUser(c)
	if event == nil || (event.CreatorID != user.ID && !user.IsAdmin) {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the event creator can highlight messages"})
		return
	}

	highlighted := !msg.IsHighlighted
	if err := s.db.SetChatHighlight(msg.ID, highlighted); err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"is_highlighted": highlighted})
}

func (s *Server) chatMessageFromPath(c *gin.Context) (*storage.ChatMessage, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return nil, false
	}
	msg, err := s.db.GetChatMessage(id)
	if err != nil {
		serverError(c, err)
		return nil, false
	}
	if msg == nil || msg.IsDeleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		return nil, false
	}
	return msg, true
}

func chatMessageJSON(m *storage.ChatMessage, viewer *storage.User) gin.H {
	return gin.H{
		"id":             m.ID,
		"user_id":        m.UserID,
		"username":       m.Username,
		"display_name":   m.DisplayName,
		"message":        m.Message,
		"created_at":     m.CreatedAt,
		"is_highlighted": m.IsHighlighted,
		"can_delete":     m.CanDelete(viewer),
	}
}
