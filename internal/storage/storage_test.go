package storage

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testUser(t *testing.T, db *DB, username string) *User {
	t.Helper()
	u := &User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
	}
	require.NoError(t, db.CreateUser(u))
	return u
}

func testEvent(t *testing.T, db *DB, creatorID int64, title string) *Event {
	t.Helper()
	e := &Event{
		Title:         title,
		Description:   "description",
		Category:      "gaming",
		ScheduledDate: time.Now().Add(24 * time.Hour).UTC(),
		CreatorID:     creatorID,
	}
	require.NoError(t, db.CreateEvent(e))
	return e
}

func TestEventCRUD(t *testing.T) {
	db := testDB(t)
	u := testUser(t, db, "creator")

	e := &Event{
		Title:         "Retro Night",
		Description:   "SNES classics",
		Category:      "gaming",
		ScheduledDate: time.Now().Add(48 * time.Hour).UTC(),
		Tags:          "retro, snes",
		StreamURL:     "https://www.twitch.tv/retronight",
		CreatorID:     u.ID,
	}
	require.NoError(t, db.CreateEvent(e))
	assert.NotZero(t, e.ID)
	assert.Equal(t, StatusScheduled, e.Status)
	assert.Equal(t, 100, e.MaxViewers)

	got, err := db.GetEvent(e.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Retro Night", got.Title)
	assert.Equal(t, []string{"retro", "snes"}, got.TagsList())

	got.Title = "Retro Night II"
	got.Status = StatusLive
	require.NoError(t, db.UpdateEvent(got))

	updated, err := db.GetEvent(e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Retro Night II", updated.Title)
	assert.True(t, updated.IsLive())

	require.NoError(t, db.DeleteEvent(e.ID))
	gone, err := db.GetEvent(e.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestGetEventMissing(t *testing.T) {
	db := testDB(t)
	e, err := db.GetEvent(12345)
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestListEventsFilters(t *testing.T) {
	db := testDB(t)
	u := testUser(t, db, "creator")
	other := testUser(t, db, "other")

	gaming := testEvent(t, db, u.ID, "Gaming")
	music := &Event{
		Title:         "Concert",
		Category:      "music",
		ScheduledDate: time.Now().Add(-time.Hour).UTC(),
		Status:        StatusFinished,
		CreatorID:     other.ID,
	}
	require.NoError(t, db.CreateEvent(music))

	byCategory, err := db.ListEvents(EventFilter{Category: "gaming"})
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	assert.Equal(t, gaming.ID, byCategory[0].ID)

	byStatus, err := db.ListEvents(EventFilter{Status: StatusFinished})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, music.ID, byStatus[0].ID)

	byCreator, err := db.ListEvents(EventFilter{CreatorID: other.ID})
	require.NoError(t, err)
	require.Len(t, byCreator, 1)

	now := time.Now().UTC()
	future, err := db.ListEvents(EventFilter{ScheduledAfter: &now})
	require.NoError(t, err)
	require.Len(t, future, 1)
	assert.Equal(t, gaming.ID, future[0].ID)
}

func TestListEventsFeaturedFirst(t *testing.T) {
	db := testDB(t)
	u := testUser(t, db, "creator")

	plain := testEvent(t, db, u.ID, "Plain")
	featured := &Event{
		Title:         "Featured",
		Category:      "music",
		ScheduledDate: time.Now().Add(time.Hour).UTC(),
		IsFeatured:    true,
		CreatorID:     u.ID,
	}
	require.NoError(t, db.CreateEvent(featured))

	events, err := db.ListEvents(EventFilter{})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, featured.ID, events[0].ID)
	assert.Equal(t, plain.ID, events[1].ID)
}

func TestUpdateEventEmbeddingIsPartial(t *testing.T) {
	db := testDB(t)
	u := testUser(t, db, "creator")
	e := testEvent(t, db, u.ID, "Retro Night")

	blob := []byte{1, 2, 3, 4}
	at := time.Now().UTC()
	require.NoError(t, db.UpdateEventEmbedding(e.ID, blob, "test-model", at))

	got, err := db.GetEvent(e.ID)
	require.NoError(t, err)
	assert.Equal(t, blob, got.Embedding)
	assert.Equal(t, "test-model", got.EmbeddingModel)
	require.NotNil(t, got.EmbeddingUpdatedAt)

	// Non-embedding fields are untouched.
	assert.Equal(t, "Retro Night", got.Title)
	assert.Equal(t, e.UpdatedAt.Unix(), got.UpdatedAt.Unix())

	// And the reverse: a regular update leaves the embedding alone.
	got.Title = "Renamed"
	require.NoError(t, db.UpdateEvent(got))
	after, err := db.GetEvent(e.ID)
	require.NoError(t, err)
	assert.Equal(t, blob, after.Embedding)
}

func TestCountEmbeddedEvents(t *testing.T) {
	db := testDB(t)
	u := testUser(t, db, "creator")
	a := testEvent(t, db, u.ID, "A")
	testEvent(t, db, u.ID, "B")

	require.NoError(t, db.UpdateEventEmbedding(a.ID, []byte{1}, "m", time.Now().UTC()))

	total, err := db.CountEvents()
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	embedded, err := db.CountEmbeddedEvents()
	require.NoError(t, err)
	assert.Equal(t, 1, embedded)
}

func TestUserLookup(t *testing.T) {
	db := testDB(t)
	u := &User{
		Username:     "maria",
		Email:        "maria@example.com",
		PasswordHash: "hash",
		DisplayName:  "Maria",
		IsAdmin:      true,
	}
	require.NoError(t, db.CreateUser(u))

	byName, err := db.GetUserByUsername("maria")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.True(t, byName.IsAdmin)
	assert.Equal(t, "Maria", byName.Name())

	byEmail, err := db.GetUserByEmail("maria@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, u.ID, byEmail.ID)

	missing, err := db.GetUserByUsername("nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSessionExpiry(t *testing.T) {
	db := testDB(t)
	u := testUser(t, db, "maria")

	valid := &Session{Token: "valid-token", UserID: u.ID, ExpiresAt: time.Now().Add(time.Hour).UTC()}
	require.NoError(t, db.CreateSession(valid))

	got, err := db.GetSession("valid-token")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.UserID)

	expired := &Session{Token: "expired-token", UserID: u.ID, ExpiresAt: time.Now().Add(-time.Minute).UTC()}
	require.NoError(t, db.CreateSession(expired))

	gone, err := db.GetSession("expired-token")
	require.NoError(t, err)
	assert.Nil(t, gone)

	require.NoError(t, db.DeleteSession("valid-token"))
	deleted, err := db.GetSession("valid-token")
	require.NoError(t, err)
	assert.Nil(t, deleted)
}

func TestChatWindow(t *testing.T) {
	db := testDB(t)
	u := testUser(t, db, "maria")
	e := testEvent(t, db, u.ID, "Retro Night")

	for i := 0; i < 60; i++ {
		m := &ChatMessage{
			EventID:  e.ID,
			UserID:   u.ID,
			Username: u.Username,
			Message:  fmt.Sprintf("message %d", i),
		}
		require.NoError(t, db.AddChatMessage(m))
	}

	msgs, err := db.ListChatMessages(e.ID, 50)
	require.NoError(t, err)
	require.Len(t, msgs, 50)

	// Window holds the newest 50 in chronological order.
	assert.Equal(t, "message 10", msgs[0].Message)
	assert.Equal(t, "message 59", msgs[49].Message)
}

func TestChatSoftDelete(t *testing.T) {
	db := testDB(t)
	u := testUser(t, db, "maria")
	admin := &User{Username: "admin", Email: "admin@example.com", PasswordHash: "h", IsAdmin: true}
	require.NoError(t, db.CreateUser(admin))
	e := testEvent(t, db, u.ID, "Retro Night")

	m := &ChatMessage{EventID: e.ID, UserID: u.ID, Username: u.Username, Message: "hello"}
	require.NoError(t, db.AddChatMessage(m))

	assert.True(t, m.CanDelete(u))
	assert.True(t, m.CanDelete(admin))
	assert.False(t, m.CanDelete(&User{ID: 999}))
	assert.False(t, m.CanDelete(nil))

	require.NoError(t, db.SoftDeleteChatMessage(m.ID))

	msgs, err := db.ListChatMessages(e.ID, 50)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	// The row survives for moderation history.
	row, err := db.GetChatMessage(m.ID)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.True(t, row.IsDeleted)
}

func TestChatHighlight(t *testing.T) {
	db := testDB(t)
	u := testUser(t, db, "maria")
	e := testEvent(t, db, u.ID, "Retro Night")

	m := &ChatMessage{EventID: e.ID, UserID: u.ID, Username: u.Username, Message: "great play"}
	require.NoError(t, db.AddChatMessage(m))

	require.NoError(t, db.SetChatHighlight(m.ID, true))
	got, err := db.GetChatMessage(m.ID)
	require.NoError(t, err)
	assert.True(t, got.IsHighlighted)

	require.NoError(t, db.SetChatHighlight(m.ID, false))
	got, err = db.GetChatMessage(m.ID)
	require.NoError(t, err)
	assert.False(t, got.IsHighlighted)
}

func TestEventLifecycleHelpers(t *testing.T) {
	e := &Event{Category: "gaming", ScheduledDate: time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)}
	assert.Equal(t, 3*time.Hour, e.Duration())
	assert.Equal(t, time.Date(2026, 3, 1, 21, 0, 0, 0, time.UTC), e.EndTime())

	unknown := &Event{Category: "mystery"}
	assert.Equal(t, 90*time.Minute, unknown.Duration())

	assert.True(t, ValidCategory("music"))
	assert.False(t, ValidCategory("mystery"))
}

func TestStreamEmbedURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "https://www.youtube.com/embed/dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ", "https://www.youtube.com/embed/dQw4w9WgXcQ"},
		{"https://www.twitch.tv/videos/123456", "https://player.twitch.tv/?video=123456&parent=localhost"},
		{"https://www.twitch.tv/somechannel", "https://player.twitch.tv/?channel=somechannel&parent=localhost"},
		{"https://example.com/stream", ""},
		{"", ""},
	}
	for _, tt := range tests {
		e := &Event{StreamURL: tt.url}
		assert.Equal(t, tt.want, e.StreamEmbedURL(), tt.url)
	}
}
