package store

import "time"

type User struct {
	ID           string    `json:"id"` // UUID
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	DOB          string    `json:"dob"`
	PasswordHash string    `json:"-"` // Do not expose this in JSON responses
	CreatedAt    time.Time `json:"created_at"`
}

type Bookmark struct {
	ID        string    `json:"id"` // UUID
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

type Agent struct {
	ID           string    `json:"id"` // UUID
	UserID       string    `json:"user_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	SystemPrompt string    `json:"system_prompt"`
	CreatedAt    time.Time `json:"created_at"`
}

// Credential is one stored API key per (user, provider) pair.
type Credential struct {
	UserID   string `json:"user_id"`
	Provider string `json:"provider"`
	APIKey   string `json:"-"`
}

type AttachmentKind string

const (
	AttachmentKindImage AttachmentKind = "image"
	AttachmentKindFile  AttachmentKind = "file"
)

// Attachment is a staged upload pending inclusion in the next outbound
// message. Rows live only until the send that references them succeeds.
type Attachment struct {
	ID        string         `json:"id"` // UUID
	UserID    string         `json:"user_id"`
	Name      string         `json:"name"`
	Path      string         `json:"-"` // blob handle inside the attachment store
	URL       string         `json:"url"`
	Kind      AttachmentKind `json:"kind"`
	CreatedAt time.Time      `json:"created_at"`
}
