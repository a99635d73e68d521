package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/lithammer/shortuuid/v4"

	"github.com/openmind-ai/openmind-server/internal/auth"
	"github.com/openmind-ai/openmind-server/internal/core"
	"github.com/openmind-ai/openmind-server/internal/storage"
	"github.com/openmind-ai/openmind-server/internal/store"
)

const maxUploadBytes = 32 << 20

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type APIHandler struct {
	dataStore   *store.SQLiteStore
	tokens      *auth.TokenManager
	chatService *core.ChatService
	blobStore   *storage.LocalBlobStore
}

func NewAPIHandler(ds *store.SQLiteStore, tokens *auth.TokenManager, cs *core.ChatService, bs *storage.LocalBlobStore) *APIHandler {
	return &APIHandler{
		dataStore:   ds,
		tokens:      tokens,
		chatService: cs,
		blobStore:   bs,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// writeError sends the inline error message the client renders.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

type contextKey string

const ctxKeyUserID contextKey = "userID"

func userIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyUserID).(string)
	return id
}

func (h *APIHandler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "Authorization header is required")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		userID, err := h.tokens.Validate(tokenString)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		user, err := h.dataStore.GetUserByID(userID)
		if err != nil {
			log.Printf("Error resolving user %s in auth middleware: %v", userID, err)
			writeError(w, http.StatusInternalServerError, "Failed to process user identity")
			return
		}
		if user == nil {
			writeError(w, http.StatusUnauthorized, "User not found")
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyUserID, user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Auth handlers

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	DOB      string `json:"dob"`
}

type AuthResponse struct {
	Token string      `json:"token"`
	User  *store.User `json:"user"`
}

func (h *APIHandler) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if !emailPattern.MatchString(req.Email) {
		writeError(w, http.StatusBadRequest, "Please enter a valid email address")
		return
	}
	if len(req.Password) < 6 {
		writeError(w, http.StatusBadRequest, "Password must be at least 6 characters long")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}
	if req.DOB == "" {
		writeError(w, http.StatusBadRequest, "Date of birth is required")
		return
	}

	existing, err := h.dataStore.GetUserByEmail(req.Email)
	if err != nil {
		log.Printf("Error checking existing user %s: %v", req.Email, err)
		writeError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "This email is already registered. Please sign in instead.")
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("Error hashing password for %s: %v", req.Email, err)
		writeError(w, http.StatusInternalServerError, "Failed to process password")
		return
	}

	user, err := h.dataStore.CreateUser(req.Email, req.Name, req.DOB, hashedPassword)
	if err != nil {
		log.Printf("Error creating user %s: %v", req.Email, err)
		writeError(w, http.StatusInternalServerError, "Failed to create user profile. Please try again.")
		return
	}

	token, err := h.tokens.Generate(user.ID)
	if err != nil {
		log.Printf("Error generating token for %s: %v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{Token: token, User: user})
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if !emailPattern.MatchString(req.Email) {
		writeError(w, http.StatusBadRequest, "Please enter a valid email address")
		return
	}
	if strings.TrimSpace(req.Password) == "" {
		writeError(w, http.StatusBadRequest, "Please enter your password")
		return
	}

	user, err := h.dataStore.GetUserByEmail(req.Email)
	if err != nil {
		log.Printf("Error getting user %s: %v", req.Email, err)
		writeError(w, http.StatusInternalServerError, "Failed to sign in")
		return
	}
	if user == nil || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "Incorrect email or password. Please try again.")
		return
	}

	token, err := h.tokens.Generate(user.ID)
	if err != nil {
		log.Printf("Error generating token for %s: %v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{Token: token, User: user})
}

func (h *APIHandler) MeHandler(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())

	user, err := h.dataStore.GetUserByID(userID)
	if err != nil || user == nil {
		log.Printf("Error loading profile for %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "Failed to load user profile. Please try again.")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Credential setup

type SetKeysRequest struct {
	Keys map[string]string `json:"keys"`
}

// SetKeysHandler stores the non-empty keys from the setup screen.
// Submitting none is the "skip" path and succeeds without writes.
func (h *APIHandler) SetKeysHandler(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())

	var req SetKeysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	for provider, key := range req.Keys {
		if key == "" {
			continue
		}
		if err := h.dataStore.UpsertCredential(userID, strings.ToLower(provider), key); err != nil {
			log.Printf("Error storing credential for user %s provider %s: %v", userID, provider, err)
			writeError(w, http.StatusInternalServerError, "Failed to store API keys")
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// Bookmark handlers

type CreateBookmarkRequest struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

func (h *APIHandler) ListBookmarksHandler(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())

	bookmarks, err := h.dataStore.GetBookmarksByUserID(userID)
	if err != nil {
		log.Printf("Error listing bookmarks for user %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "Failed to list bookmarks")
		return
	}
	if bookmarks == nil {
		bookmarks = []store.Bookmark{}
	}
	writeJSON(w, http.StatusOK, bookmarks)
}

func (h *APIHandler) CreateBookmarkHandler(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())

	var req CreateBookmarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "Title and URL are required")
		return
	}

	bookmark, err := h.dataStore.CreateBookmark(userID, req.Title, req.URL)
	if err != nil {
		log.Printf("Error creating bookmark for user %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "Failed to create bookmark")
		return
	}
	writeJSON(w, http.StatusCreated, bookmark)
}

func (h *APIHandler) DeleteBookmarkHandler(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	bookmarkID := chi.URLParam(r, "bookmarkID")

	if err := h.dataStore.DeleteBookmark(bookmarkID, userID); err != nil {
		log.Printf("Error deleting bookmark %s for user %s: %v", bookmarkID, userID, err)
		writeError(w, http.StatusInternalServerError, "Failed to delete bookmark")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Agent handlers

type CreateAgentRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	SystemPrompt string `json:"system_prompt"`
}

func (h *APIHandler) ListAgentsHandler(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())

	agents, err := h.dataStore.GetAgentsByUserID(userID)
	if err != nil {
		log.Printf("Error listing agents for user %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "Failed to list agents")
		return
	}
	if agents == nil {
		agents = []store.Agent{}
	}
	writeJSON(w, http.StatusOK, agents)
}

func (h *APIHandler) CreateAgentHandler(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())

	var req CreateAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.SystemPrompt) == "" {
		writeError(w, http.StatusBadRequest, "Name and system prompt are required")
		return
	}

	agent, err := h.dataStore.CreateAgent(userID, req.Name, req.Description, req.SystemPrompt)
	if err != nil {
		log.Printf("Error creating agent for user %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "Failed to create agent")
		return
	}
	writeJSON(w, http.StatusCreated, agent)
}

func (h *APIHandler) DeleteAgentHandler(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	agentID := chi.URLParam(r, "agentID")

	if err := h.dataStore.DeleteAgent(agentID, userID); err != nil {
		log.Printf("Error deleting agent %s for user %s: %v", agentID, userID, err)
		writeError(w, http.StatusInternalServerError, "Failed to delete agent")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Attachment handlers

func (h *APIHandler) UploadAttachmentsHandler(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart body: "+err.Error())
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "At least one file is required")
		return
	}

	uploaded := make([]store.Attachment, 0, len(files))
	for _, header := range files {
		att, err := h.storeUpload(userID, header)
		if err != nil {
			// The batch stops at the first failure; earlier files stay
			// staged.
			log.Printf("Error uploading attachment %s for user %s: %v", header.Filename, userID, err)
			writeError(w, http.StatusInternalServerError, "Failed to upload "+header.Filename)
			return
		}
		uploaded = append(uploaded, *att)
	}

	writeJSON(w, http.StatusCreated, uploaded)
}

func (h *APIHandler) storeUpload(userID string, header *multipart.FileHeader) (*store.Attachment, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	blob, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		return nil, err
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(blob)
	}
	kind := store.AttachmentKindFile
	if strings.HasPrefix(contentType, "image/") {
		kind = store.AttachmentKindImage
	}

	path := userID + "/" + shortuuid.New() + filepath.Ext(header.Filename)
	handle, err := h.blobStore.Upload(path, blob)
	if err != nil {
		return nil, err
	}

	att := &store.Attachment{
		UserID: userID,
		Name:   header.Filename,
		Path:   handle,
		URL:    h.blobStore.PublicURL(handle),
		Kind:   kind,
	}
	if err := h.dataStore.CreateAttachment(att); err != nil {
		// Best effort: don't leave an orphaned blob behind the failed row.
		if rmErr := h.blobStore.Remove([]string{handle}); rmErr != nil {
			log.Printf("Failed to remove orphaned blob %s: %v", handle, rmErr)
		}
		return nil, err
	}
	return att, nil
}

func (h *APIHandler) ListAttachmentsHandler(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())

	attachments, err := h.dataStore.GetAttachmentsByUserID(userID)
	if err != nil {
		log.Printf("Error listing attachments for user %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "Failed to list attachments")
		return
	}
	if attachments == nil {
		attachments = []store.Attachment{}
	}
	writeJSON(w, http.StatusOK, attachments)
}

// DeleteAttachmentHandler removes a staged attachment from both the
// staging area and the blob store.
func (h *APIHandler) DeleteAttachmentHandler(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	attachmentID := chi.URLParam(r, "attachmentID")

	att, err := h.dataStore.GetAttachmentByID(attachmentID, userID)
	if err != nil {
		log.Printf("Error loading attachment %s for user %s: %v", attachmentID, userID, err)
		writeError(w, http.StatusInternalServerError, "Failed to remove attachment")
		return
	}
	if att == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := h.blobStore.Remove([]string{att.Path}); err != nil {
		log.Printf("Error removing blob %s: %v", att.Path, err)
		writeError(w, http.StatusInternalServerError, "Failed to remove attachment")
		return
	}
	if err := h.dataStore.DeleteAttachment(attachmentID, userID); err != nil {
		log.Printf("Error deleting attachment row %s: %v", attachmentID, err)
		writeError(w, http.StatusInternalServerError, "Failed to remove attachment")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Chat handlers

type SendMessageRequest struct {
	Content string `json:"content"`
	Model   string `json:"model"`
	AgentID string `json:"agent_id,omitempty"`
}

func (h *APIHandler) SendMessageHandler(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Model == "" {
		req.Model = core.ProviderOpenMind
	}

	result, err := h.chatService.Send(r.Context(), userID, req.Content, req.Model, req.AgentID)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrSendInFlight):
			writeError(w, http.StatusConflict, "A message is already being sent")
		case errors.Is(err, core.ErrMissingAPIKey):
			writeError(w, http.StatusBadGateway, "No API key is configured for this provider")
		default:
			log.Printf("Error sending message for user %s: %v", userID, err)
			writeError(w, http.StatusBadGateway, "Failed to generate a reply. Please try again.")
		}
		return
	}

	if result.Kind == core.SendKindNone {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type ConversationResponse struct {
	Messages  []core.Message `json:"messages"`
	IsLoading bool           `json:"is_loading"`
}

func (h *APIHandler) GetConversationHandler(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())

	conv := h.chatService.Conversation(userID)
	writeJSON(w, http.StatusOK, ConversationResponse{
		Messages:  conv.Messages(),
		IsLoading: conv.IsSending(),
	})
}
