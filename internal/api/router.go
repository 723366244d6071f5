package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wmo-im/codelists/internal/index"
	"github.com/wmo-im/codelists/internal/topicservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// rebuild, if non-nil, is exposed as POST /compile.
func NewRouter(svc *topicservice.Service, authEnabled bool, token string, sseHandler http.Handler, rebuild index.RebuildFunc) chi.Router {
	h := NewHandler(svc, rebuild)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Taxonomy browsing.
	r.Get("/topics", h.ListTopics)
	r.Get("/topics/*", h.GetTopic)
	r.Get("/children", h.Children)
	r.Get("/documents/*", h.Document)

	// Search.
	r.Get("/search", h.Search)

	// Registry sync ledger.
	r.Get("/sync/status", h.SyncStatus)

	// Recompile from sources.
	if rebuild != nil {
		r.Post("/compile", h.Compile)
	}

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
