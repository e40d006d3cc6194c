package storage

import (
	"database/sql"
	"time"
)

// User is a registered account.
type User struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	FirstName    string    `db:"first_name"`
	LastName     string    `db:"last_name"`
	DisplayName  string    `db:"display_name"`
	Bio          string    `db:"bio"`
	AvatarURL    string    `db:"avatar_url"`
	IsAdmin      bool      `db:"is_admin"`
	CreatedAt    time.Time `db:"created_at"`
}

// Name returns the best display name available for the user.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// Session maps an opaque token to a user until it expires.
type Session struct {
	Token     string    `db:"token"`
	UserID    int64     `db:"user_id"`
	ExpiresAt time.Time `db:"expires_at"`
}

const userColumns = `
	id, username, email, password_hash, first_name, last_name,
	display_name, bio, avatar_url, is_admin, created_at`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	u := &User{}
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.DisplayName, &u.Bio, &u.AvatarURL, &u.IsAdmin, &u.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// CreateUser inserts a new user and sets its generated ID.
func (d *DB) CreateUser(u *User) error {
	u.CreatedAt = time.Now().UTC()
	res, err := d.db.Exec(`
	INSERT INTO users (
		username, email, password_hash, first_name, last_name,
		display_name, bio, avatar_url, is_admin, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Username, u.Email, u.PasswordHash, u.FirstName, u.LastName,
		u.DisplayName, u.Bio, u.AvatarURL, u.IsAdmin, u.CreatedAt,
	)
	if err != nil {
		return err
	}
	u.ID, err = res.LastInsertId()
	return err
}

// GetUser retrieves a user by ID. Returns (nil, nil) when not found.
func (d *DB) GetUser(id int64) (*User, error) {
	return scanUser(d.db.QueryRow("SELECT"+userColumns+" FROM users WHERE id = ?", id))
}

// GetUserByUsername retrieves a user by username. Returns (nil, nil) when not found.
func (d *DB) GetUserByUsername(username string) (*User, error) {
	return scanUser(d.db.QueryRow("SELECT"+userColumns+" FROM users WHERE username = ?", username))
}

// GetUserByEmail retrieves a user by email. Returns (nil, nil) when not found.
func (d *DB) GetUserByEmail(email string) (*User, error) {
	return scanUser(d.db.QueryRow("SELECT"+userColumns+" FROM users WHERE email = ?", email))
}

// UpdateUserProfile rewrites the editable profile fields.
func (d *DB) UpdateUserProfile(u *User) error {
	_, err := d.db.Exec(`
	UPDATE users SET first_name = ?, last_name = ?, display_name = ?, bio = ?, avatar_url = ?
	WHERE id = ?`,
		u.FirstName, u.LastName, u.DisplayName, u.Bio, u.AvatarURL, u.ID,
	)
	return err
}

// CreateSession stores a session token for a user.
func (d *DB) CreateSession(s *Session) error {
	_, err := d.db.Exec(
		"INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)",
		s.Token, s.UserID, s.ExpiresAt,
	)
	return err
}

// GetSession resolves a token to its session. Expired or unknown tokens
// return (nil, nil).
func (d *DB) GetSession(token string) (*Session, error) {
	s := &Session{}
	err := d.db.QueryRow(
		"SELECT token, user_id, expires_at FROM sessions WHERE token = ?", token,
	).Scan(&s.Token, &s.UserID, &s.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if time.Now().After(s.ExpiresAt) {
		_, _ = d.db.Exec("DELETE FROM sessions WHERE token = ?", token)
		return nil, nil
	}
	return s, nil
}

// DeleteSession invalidates a session token.
func (d *DB) DeleteSession(token string) error {
	_, err := d.db.Exec("DELETE FROM sessions WHERE token = ?", token)
	return err
}
