package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestUser(t *testing.T, s *SQLiteStore, email string) *User {
	t.Helper()
	user, err := s.CreateUser(email, "Test User", "1990-01-01", "hashed")
	require.NoError(t, err)
	return user
}

func TestUserCreateAndLookup(t *testing.T) {
	s := newTestStore(t)

	user := createTestUser(t, s, "a@example.com")
	assert.NotEmpty(t, user.ID)

	byEmail, err := s.GetUserByEmail("a@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, user.ID, byEmail.ID)
	assert.Equal(t, "Test User", byEmail.Name)
	assert.Equal(t, "1990-01-01", byEmail.DOB)

	byID, err := s.GetUserByID(user.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "a@example.com", byID.Email)
}

func TestUserNotFoundIsNil(t *testing.T) {
	s := newTestStore(t)

	user, err := s.GetUserByEmail("missing@example.com")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestUserDuplicateEmailFails(t *testing.T) {
	s := newTestStore(t)

	createTestUser(t, s, "a@example.com")
	_, err := s.CreateUser("a@example.com", "Other", "1980-01-01", "hashed")
	assert.Error(t, err)
}

func TestBookmarksOrderedNewestFirst(t *testing.T) {
	s := newTestStore(t)
	user := createTestUser(t, s, "a@example.com")

	first, err := s.CreateBookmark(user.ID, "First", "http://one")
	require.NoError(t, err)
	second, err := s.CreateBookmark(user.ID, "Second", "http://two")
	require.NoError(t, err)

	bookmarks, err := s.GetBookmarksByUserID(user.ID)
	require.NoError(t, err)
	require.Len(t, bookmarks, 2)
	assert.Equal(t, second.ID, bookmarks[0].ID)
	assert.Equal(t, first.ID, bookmarks[1].ID)
}

func TestDeleteBookmarkIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	user := createTestUser(t, s, "a@example.com")

	bookmark, err := s.CreateBookmark(user.ID, "Title", "http://url")
	require.NoError(t, err)

	require.NoError(t, s.DeleteBookmark(bookmark.ID, user.ID))
	// Second delete is a no-op, not an error.
	require.NoError(t, s.DeleteBookmark(bookmark.ID, user.ID))

	bookmarks, err := s.GetBookmarksByUserID(user.ID)
	require.NoError(t, err)
	assert.Empty(t, bookmarks)
}

func TestBookmarksScopedToUser(t *testing.T) {
	s := newTestStore(t)
	alice := createTestUser(t, s, "alice@example.com")
	bob := createTestUser(t, s, "bob@example.com")

	bookmark, err := s.CreateBookmark(alice.ID, "Alice's", "http://a")
	require.NoError(t, err)

	// Bob cannot delete Alice's bookmark.
	require.NoError(t, s.DeleteBookmark(bookmark.ID, bob.ID))
	remaining, err := s.GetBookmarksByUserID(alice.ID)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestAgentLifecycle(t *testing.T) {
	s := newTestStore(t)
	user := createTestUser(t, s, "a@example.com")

	agent, err := s.CreateAgent(user.ID, "Helper", "helps out", "You are helpful.")
	require.NoError(t, err)

	loaded, err := s.GetAgentByID(agent.ID, user.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "You are helpful.", loaded.SystemPrompt)

	agents, err := s.GetAgentsByUserID(user.ID)
	require.NoError(t, err)
	assert.Len(t, agents, 1)

	require.NoError(t, s.DeleteAgent(agent.ID, user.ID))
	gone, err := s.GetAgentByID(agent.ID, user.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestCredentialUpsertAndLookup(t *testing.T) {
	s := newTestStore(t)
	user := createTestUser(t, s, "a@example.com")

	require.NoError(t, s.UpsertCredential(user.ID, "gemini", "key-1"))

	cred, err := s.GetCredential(user.ID, "gemini")
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "key-1", cred.APIKey)

	// Upsert replaces the stored key.
	require.NoError(t, s.UpsertCredential(user.ID, "gemini", "key-2"))
	cred, err = s.GetCredential(user.ID, "gemini")
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "key-2", cred.APIKey)

	// No row for another provider.
	missing, err := s.GetCredential(user.ID, "chatgpt")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestAttachmentStaging(t *testing.T) {
	s := newTestStore(t)
	user := createTestUser(t, s, "a@example.com")

	att := &Attachment{
		UserID: user.ID,
		Name:   "a.png",
		Path:   user.ID + "/abc.png",
		URL:    "http://localhost:8080/files/" + user.ID + "/abc.png",
		Kind:   AttachmentKindImage,
	}
	require.NoError(t, s.CreateAttachment(att))
	assert.NotEmpty(t, att.ID)

	staged, err := s.GetAttachmentsByUserID(user.ID)
	require.NoError(t, err)
	require.Len(t, staged, 1)
	assert.Equal(t, AttachmentKindImage, staged[0].Kind)

	require.NoError(t, s.ClearAttachmentsByUserID(user.ID))
	staged, err = s.GetAttachmentsByUserID(user.ID)
	require.NoError(t, err)
	assert.Empty(t, staged)
}

func TestDeleteAttachment(t *testing.T) {
	s := newTestStore(t)
	user := createTestUser(t, s, "a@example.com")

	att := &Attachment{UserID: user.ID, Name: "d.pdf", Path: "p", URL: "u", Kind: AttachmentKindFile}
	require.NoError(t, s.CreateAttachment(att))

	require.NoError(t, s.DeleteAttachment(att.ID, user.ID))
	gone, err := s.GetAttachmentByID(att.ID, user.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}
