package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS users (
        id TEXT PRIMARY KEY, -- UUID
        email TEXT UNIQUE NOT NULL,
        name TEXT NOT NULL,
        dob TEXT NOT NULL,
        password_hash TEXT NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS bookmarks (
        id TEXT PRIMARY KEY, -- UUID
        user_id TEXT NOT NULL,
        title TEXT NOT NULL,
        url TEXT NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (user_id) REFERENCES users (id)
    );

    CREATE TABLE IF NOT EXISTS agents (
        id TEXT PRIMARY KEY, -- UUID
        user_id TEXT NOT NULL,
        name TEXT NOT NULL,
        description TEXT NOT NULL DEFAULT '',
        system_prompt TEXT NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (user_id) REFERENCES users (id)
    );

    CREATE TABLE IF NOT EXISTS api_keys (
        user_id TEXT NOT NULL,
        provider TEXT NOT NULL,
        api_key TEXT NOT NULL,
        PRIMARY KEY (user_id, provider),
        FOREIGN KEY (user_id) REFERENCES users (id)
    );

    CREATE TABLE IF NOT EXISTS attachments (
        id TEXT PRIMARY KEY, -- UUID
        user_id TEXT NOT NULL,
        name TEXT NOT NULL,
        path TEXT NOT NULL,
        url TEXT NOT NULL,
        kind TEXT NOT NULL CHECK (kind IN ('image', 'file')),
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (user_id) REFERENCES users (id)
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

// User methods

func (s *SQLiteStore) CreateUser(email, name, dob, passwordHash string) (*User, error) {
	user := &User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		DOB:          dob,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	_, err := s.db.Exec(
		"INSERT INTO users (id, email, name, dob, password_hash, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		user.ID, user.Email, user.Name, user.DOB, user.PasswordHash, user.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return user, nil
}

func (s *SQLiteStore) GetUserByEmail(email string) (*User, error) {
	var user User
	err := s.db.QueryRow(
		"SELECT id, email, name, dob, password_hash, created_at FROM users WHERE email = ?", email,
	).Scan(&user.ID, &user.Email, &user.Name, &user.DOB, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

func (s *SQLiteStore) GetUserByID(id string) (*User, error) {
	var user User
	err := s.db.QueryRow(
		"SELECT id, email, name, dob, password_hash, created_at FROM users WHERE id = ?", id,
	).Scan(&user.ID, &user.Email, &user.Name, &user.DOB, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return &user, nil
}

// Bookmark methods

func (s *SQLiteStore) CreateBookmark(userID, title, url string) (*Bookmark, error) {
	bookmark := &Bookmark{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		URL:       url,
		CreatedAt: time.Now(),
	}
	_, err := s.db.Exec(
		"INSERT INTO bookmarks (id, user_id, title, url, created_at) VALUES (?, ?, ?, ?, ?)",
		bookmark.ID, bookmark.UserID, bookmark.Title, bookmark.URL, bookmark.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert bookmark: %w", err)
	}
	return bookmark, nil
}

func (s *SQLiteStore) GetBookmarksByUserID(userID string) ([]Bookmark, error) {
	rows, err := s.db.Query(
		"SELECT id, user_id, title, url, created_at FROM bookmarks WHERE user_id = ? ORDER BY created_at DESC, id DESC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookmarks: %w", err)
	}
	defer rows.Close()

	var bookmarks []Bookmark
	for rows.Next() {
		var b Bookmark
		if err := rows.Scan(&b.ID, &b.UserID, &b.Title, &b.URL, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bookmark row: %w", err)
		}
		bookmarks = append(bookmarks, b)
	}
	return bookmarks, nil
}

// DeleteBookmark is idempotent: deleting a bookmark that no longer exists
// is not an error.
func (s *SQLiteStore) DeleteBookmark(id, userID string) error {
	_, err := s.db.Exec("DELETE FROM bookmarks WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete bookmark: %w", err)
	}
	return nil
}

// Agent methods

func (s *SQLiteStore) CreateAgent(userID, name, description, systemPrompt string) (*Agent, error) {
	agent := &Agent{
		ID:           uuid.NewString(),
		UserID:       userID,
		Name:         name,
		Description:  description,
		SystemPrompt: systemPrompt,
		CreatedAt:    time.Now(),
	}
	_, err := s.db.Exec(
		"INSERT INTO agents (id, user_id, name, description, system_prompt, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		agent.ID, agent.UserID, agent.Name, agent.Description, agent.SystemPrompt, agent.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert agent: %w", err)
	}
	return agent, nil
}

func (s *SQLiteStore) GetAgentsByUserID(userID string) ([]Agent, error) {
	rows, err := s.db.Query(
		"SELECT id, user_id, name, description, system_prompt, created_at FROM agents WHERE user_id = ? ORDER BY created_at ASC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query agents: %w", err)
	}
	defer rows.Close()

	var agents []Agent
	for rows.Next() {
		var a Agent
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.Description, &a.SystemPrompt, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan agent row: %w", err)
		}
		agents = append(agents, a)
	}
	return agents, nil
}

func (s *SQLiteStore) GetAgentByID(id, userID string) (*Agent, error) {
	var a Agent
	err := s.db.QueryRow(
		"SELECT id, user_id, name, description, system_prompt, created_at FROM agents WHERE id = ? AND user_id = ?",
		id, userID,
	).Scan(&a.ID, &a.UserID, &a.Name, &a.Description, &a.SystemPrompt, &a.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}
	return &a, nil
}

func (s *SQLiteStore) DeleteAgent(id, userID string) error {
	_, err := s.db.Exec("DELETE FROM agents WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete agent: %w", err)
	}
	return nil
}

// Credential methods

// UpsertCredential stores or replaces the API key for a (user, provider)
// pair. Re-running setup overwrites the previous key.
func (s *SQLiteStore) UpsertCredential(userID, provider, apiKey string) error {
	_, err := s.db.Exec(
		"INSERT INTO api_keys (user_id, provider, api_key) VALUES (?, ?, ?) ON CONFLICT (user_id, provider) DO UPDATE SET api_key = excluded.api_key",
		userID, provider, apiKey,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert credential: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetCredential(userID, provider string) (*Credential, error) {
	var c Credential
	err := s.db.QueryRow(
		"SELECT user_id, provider, api_key FROM api_keys WHERE user_id = ? AND provider = ?",
		userID, provider,
	).Scan(&c.UserID, &c.Provider, &c.APIKey)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // No credential stored for this provider
		}
		return nil, fmt.Errorf("failed to query credential: %w", err)
	}
	return &c, nil
}

// Attachment methods

func (s *SQLiteStore) CreateAttachment(att *Attachment) error {
	att.ID = uuid.NewString()
	att.CreatedAt = time.Now()

	_, err := s.db.Exec(
		"INSERT INTO attachments (id, user_id, name, path, url, kind, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		att.ID, att.UserID, att.Name, att.Path, att.URL, att.Kind, att.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert attachment: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetAttachmentByID(id, userID string) (*Attachment, error) {
	var a Attachment
	err := s.db.QueryRow(
		"SELECT id, user_id, name, path, url, kind, created_at FROM attachments WHERE id = ? AND user_id = ?",
		id, userID,
	).Scan(&a.ID, &a.UserID, &a.Name, &a.Path, &a.URL, &a.Kind, &a.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get attachment: %w", err)
	}
	return &a, nil
}

// GetAttachmentsByUserID returns the user's staged attachments in upload
// order, the order they are serialized into the outbound message.
func (s *SQLiteStore) GetAttachmentsByUserID(userID string) ([]Attachment, error) {
	rows, err := s.db.Query(
		"SELECT id, user_id, name, path, url, kind, created_at FROM attachments WHERE user_id = ? ORDER BY created_at ASC, id ASC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query attachments: %w", err)
	}
	defer rows.Close()

	var attachments []Attachment
	for rows.Next() {
		var a Attachment
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.Path, &a.URL, &a.Kind, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attachment row: %w", err)
		}
		attachments = append(attachments, a)
	}
	return attachments, nil
}

func (s *SQLiteStore) DeleteAttachment(id, userID string) error {
	_, err := s.db.Exec("DELETE FROM attachments WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete attachment: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ClearAttachmentsByUserID(userID string) error {
	_, err := s.db.Exec("DELETE FROM attachments WHERE user_id = ?", userID)
	if err != nil {
		return fmt.Errorf("failed to clear attachments: %w", err)
	}
	return nil
}
