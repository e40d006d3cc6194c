package storage

import (
	"database/sql"
	"time"
)

// ChatMessage is a single message in an event's chat. Username and display
// name are cached at write time to avoid a join per message.
type ChatMessage struct {
	ID            int64     `db:"id"`
	EventID       int64     `db:"event_id"`
	UserID        int64     `db:"user_id"`
	Username      string    `db:"username"`
	DisplayName   string    `db:"display_name"`
	Message       string    `db:"message"`
	CreatedAt     time.Time `db:"created_at"`
	IsDeleted     bool      `db:"is_deleted"`
	IsHighlighted bool      `db:"is_highlighted"`
}

// CanDelete reports whether a user may delete this message: the author or an
// admin.
func (m *ChatMessage) CanDelete(u *User) bool {
	if u == nil {
		return false
	}
	return u.ID == m.UserID || u.IsAdmin
}

// AddChatMessage appends a message to an event's chat.
func (d *DB) AddChatMessage(m *ChatMessage) error {
	m.CreatedAt = time.Now().UTC()
	res, err := d.db.Exec(`
	INSERT INTO chat_messages (event_id, user_id, username, display_name, message, created_at, is_deleted, is_highlighted)
	VALUES (?, ?, ?, ?, ?, ?, 0, 0)`,
		m.EventID, m.UserID, m.Username, m.DisplayName, m.Message, m.CreatedAt,
	)
	if err != nil {
		return err
	}
	m.ID, err = res.LastInsertId()
	return err
}

// ListChatMessages returns the most recent `limit` non-deleted messages for
// an event in chronological order.
func (d *DB) ListChatMessages(eventID int64, limit int) ([]*ChatMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	// Take the newest N, then flip to chronological order.
	rows, err := d.db.Query(`
	SELECT id, event_id, user_id, username, display_name, message, created_at, is_deleted, is_highlighted
	FROM (
		SELECT * FROM chat_messages
		WHERE event_id = ? AND is_deleted = 0
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	) ORDER BY created_at ASC, id ASC`,
		eventID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []*ChatMessage
	for rows.Next() {
		m := &ChatMessage{}
		err := rows.Scan(
			&m.ID, &m.EventID, &m.UserID, &m.Username, &m.DisplayName,
			&m.Message, &m.CreatedAt, &m.IsDeleted, &m.IsHighlighted,
		)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// GetChatMessage retrieves a message by ID. Returns (nil, nil) when not found.
func (d *DB) GetChatMessage(id int64) (*ChatMessage, error) {
	m := &ChatMessage{}
	err := d.db.QueryRow(`
	SELECT id, event_id, user_id, username, display_name, message, created_at, is_deleted, is_highlighted
	FROM chat_messages WHERE id = ?`, id,
	).Scan(
		&m.ID, &m.EventID, &m.UserID, &m.Username, &m.DisplayName,
		&m.Message, &m.CreatedAt, &m.IsDeleted, &m.IsHighlighted,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// SoftDeleteChatMessage marks a message as deleted without removing the row.
func (d *DB) SoftDeleteChatMessage(id int64) error {
	_, err := d.db.Exec("UPDATE chat_messages SET is_deleted = 1 WHERE id = ?", id)
	return err
}

// SetChatHighlight sets the highlight flag on a message.
func (d *DB) SetChatHighlight(id int64, highlighted bool) error {
	_, err := d.db.Exec("UPDATE chat_messages SET is_highlighted = ? WHERE id = ?", highlighted, id)
	return err
}
