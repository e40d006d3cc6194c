package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps SQLite database operations.
type DB struct {
	db *sql.DB
}

// Open opens or creates a SQLite database.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable foreign keys and WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	storage := &DB{db: db}

	if err := storage.initSchema(); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return storage, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// initSchema creates tables if they don't exist.
func (d *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		display_name TEXT NOT NULL DEFAULT '',
		bio TEXT NOT NULL DEFAULT '',
		avatar_url TEXT NOT NULL DEFAULT '',
		is_admin INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		expires_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL,
		scheduled_date TIMESTAMP NOT NULL,
		status TEXT NOT NULL DEFAULT 'scheduled',
		max_viewers INTEGER NOT NULL DEFAULT 100,
		is_featured INTEGER NOT NULL DEFAULT 0,
		tags TEXT NOT NULL DEFAULT '',
		stream_url TEXT NOT NULL DEFAULT '',
		thumbnail_url TEXT NOT NULL DEFAULT '',
		creator_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		embedding BLOB,
		embedding_model TEXT NOT NULL DEFAULT '',
		embedding_updated_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_events_scheduled ON events(scheduled_date);
	CREATE INDEX IF NOT EXISTS idx_events_status ON events(status);
	CREATE INDEX IF NOT EXISTS idx_events_category ON events(category);
	CREATE INDEX IF NOT EXISTS idx_events_creator ON events(creator_id);
	CREATE INDEX IF NOT EXISTS idx_events_created ON events(created_at);

	CREATE TABLE IF NOT EXISTS chat_messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_id INTEGER NOT NULL REFERENCES events(id) ON DELETE CASCADE,
		user_id INTEGER NOT NULL,
		username TEXT NOT NULL,
		display_name TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		is_deleted INTEGER NOT NULL DEFAULT 0,
		is_highlighted INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_chat_event ON chat_messages(event_id, created_at);
	`

	_, err := d.db.Exec(schema)
	return err
}

const eventColumns = `
	id, title, description, category, scheduled_date, status, max_viewers,
	is_featured, tags, stream_url, thumbnail_url, creator_id, created_at,
	updated_at, embedding, embedding_model, embedding_updated_at`

func scanEvent(row interface{ Scan(...any) error }) (*Event, error) {
	e := &Event{}
	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.Category, &e.ScheduledDate, &e.Status,
		&e.MaxViewers, &e.IsFeatured, &e.Tags, &e.StreamURL, &e.ThumbnailURL,
		&e.CreatorID, &e.CreatedAt, &e.UpdatedAt,
		&e.Embedding, &e.EmbeddingModel, &e.EmbeddingUpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// CreateEvent inserts a new event and sets its generated ID.
func (d *DB) CreateEvent(e *Event) error {
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
	if e.Status == "" {
		e.Status = StatusScheduled
	}
	if e.MaxViewers == 0 {
		e.MaxViewers = 100
	}

	res, err := d.db.Exec(`
	INSERT INTO events (
		title, description, category, scheduled_date, status, max_viewers,
		is_featured, tags, stream_url, thumbnail_url, creator_id, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Title, e.Description, e.Category, e.ScheduledDate, e.Status, e.MaxViewers,
		e.IsFeatured, e.Tags, e.StreamURL, e.ThumbnailURL, e.CreatorID, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return err
	}
	e.ID, err = res.LastInsertId()
	return err
}

// GetEvent retrieves an event by ID. Returns (nil, nil) when not found.
func (d *DB) GetEvent(id int64) (*Event, error) {
	row := d.db.QueryRow("SELECT"+eventColumns+" FROM events WHERE id = ?", id)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// UpdateEvent rewrites the mutable fields of an event. Embedding columns are
// untouched; they are owned by UpdateEventEmbedding.
func (d *DB) UpdateEvent(e *Event) error {
	e.UpdatedAt = time.Now().UTC()
	_, err := d.db.Exec(`
	UPDATE events SET
		title = ?, description = ?, category = ?, scheduled_date = ?, status = ?,
		max_viewers = ?, is_featured = ?, tags = ?, stream_url = ?, thumbnail_url = ?,
		updated_at = ?
	WHERE id = ?`,
		e.Title, e.Description, e.Category, e.ScheduledDate, e.Status,
		e.MaxViewers, e.IsFeatured, e.Tags, e.StreamURL, e.ThumbnailURL,
		e.UpdatedAt, e.ID,
	)
	return err
}

// DeleteEvent removes an event and, via cascade, its chat messages.
func (d *DB) DeleteEvent(id int64) error {
	_, err := d.db.Exec("DELETE FROM events WHERE id = ?", id)
	return err
}

// EventFilter narrows ListEvents.
type EventFilter struct {
	Category  string
	Status    string
	CreatorID int64
	// ScheduledAfter keeps events with scheduled_date >= the given time.
	ScheduledAfter *time.Time
	Limit          int
	Offset         int
}

// ListEvents retrieves events matching the filter, featured first, newest
// first within each group.
func (d *DB) ListEvents(f EventFilter) ([]*Event, error) {
	query := "SELECT" + eventColumns + " FROM events WHERE 1=1"
	var args []any

	if f.Category != "" {
		query += " AND category = ?"
		args = append(args, f.Category)
	}
	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, f.Status)
	}
	if f.CreatorID != 0 {
		query += " AND creator_id = ?"
		args = append(args, f.CreatorID)
	}
	if f.ScheduledAfter != nil {
		query += " AND scheduled_date >= ?"
		args = append(args, *f.ScheduledAfter)
	}
	query += " ORDER BY is_featured DESC, created_at DESC"
	if f.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// ListEventIDs returns event IDs ordered by creation time ascending. limit
// caps the result when positive; 0 means all.
func (d *DB) ListEventIDs(limit int) ([]int64, error) {
	query := "SELECT id FROM events ORDER BY created_at ASC, id ASC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateEventEmbedding writes only the three embedding columns, leaving
// concurrent edits to other fields untouched.
func (d *DB) UpdateEventEmbedding(id int64, embedding []byte, model string, at time.Time) error {
	_, err := d.db.Exec(
		"UPDATE events SET embedding = ?, embedding_model = ?, embedding_updated_at = ? WHERE id = ?",
		embedding, model, at, id,
	)
	return err
}

// UpdateEventStatus transitions an event to a new status.
func (d *DB) UpdateEventStatus(id int64, status string) error {
	_, err := d.db.Exec(
		"UPDATE events SET status = ?, updated_at = ? WHERE id = ?",
		status, time.Now().UTC(), id,
	)
	return err
}

// CountEvents returns the total number of events.
func (d *DB) CountEvents() (int, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM events").Scan(&count)
	return count, err
}

// CountEmbeddedEvents returns how many events carry an embedding.
func (d *DB) CountEmbeddedEvents() (int, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM events WHERE embedding IS NOT NULL AND length(embedding) > 0").Scan(&count)
	return count, err
}
