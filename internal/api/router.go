package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	// Publicly resolvable attachment URLs.
	fileServer := http.StripPrefix("/files/", http.FileServer(http.Dir(apiHandler.blobStore.RootDir())))
	r.Get("/files/*", fileServer.ServeHTTP)

	// All API routes will be under /api
	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/signup", apiHandler.SignupHandler)
		r.Post("/login", apiHandler.LoginHandler)
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})

		// User-authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(apiHandler.JWTAuthMiddleware)

			r.Get("/me", apiHandler.MeHandler)
			r.Put("/keys", apiHandler.SetKeysHandler)

			// Bookmark routes
			r.Get("/bookmarks", apiHandler.ListBookmarksHandler)
			r.Post("/bookmarks", apiHandler.CreateBookmarkHandler)
			r.Delete("/bookmarks/{bookmarkID}", apiHandler.DeleteBookmarkHandler)

			// Agent routes
			r.Get("/agents", apiHandler.ListAgentsHandler)
			r.Post("/agents", apiHandler.CreateAgentHandler)
			r.Delete("/agents/{agentID}", apiHandler.DeleteAgentHandler)

			// Attachment staging routes
			r.Get("/attachments", apiHandler.ListAttachmentsHandler)
			r.Post("/attachments", apiHandler.UploadAttachmentsHandler)
			r.Delete("/attachments/{attachmentID}", apiHandler.DeleteAttachmentHandler)

			// Chat routes
			r.Get("/chat/messages", apiHandler.GetConversationHandler)
			r.Post("/chat/messages", apiHandler.SendMessageHandler)
		})
	})

	return r
}
