package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wmo-im/codelists/internal/apperr"
	"github.com/wmo-im/codelists/internal/index"
	"github.com/wmo-im/codelists/internal/topicservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc     *topicservice.Service
	rebuild index.RebuildFunc
}

// NewHandler creates a new Handler.
func NewHandler(svc *topicservice.Service, rebuild index.RebuildFunc) *Handler {
	return &Handler{svc: svc, rebuild: rebuild}
}

// topicPath extracts the node path from the URL (everything after the route
// prefix). Supports encoded slashes (e.g. topic-hierarchy%2Focean).
func topicPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// validPath rejects traversal segments; node paths are plain names joined
// by slashes.
func validPath(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." || seg == "." {
			return false
		}
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, op, path string, err error) {
	if errors.Is(err, apperr.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	slog.Error(op+" failed", slog.String("path", path), slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
}

// ListTopics handles GET /api/topics.
//
//	@Summary		List taxonomy nodes with optional pagination and role filter
//	@Tags			topics
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			role	query		string	false	"Filter by role"	Enums(root, collection, concept)
//	@Success		200		{object}	TopicListResponse
//	@Security		BearerAuth
//	@Router			/topics [get]
func (h *Handler) ListTopics(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageLimit(r), queryInt(r, "offset", 0)
	role := r.URL.Query().Get("role")
	switch role {
	case "", "root", "collection", "concept":
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("role must be root, collection or concept"))
		return
	}

	items, total, err := h.svc.ListTopics(r.Context(), role, limit, offset)
	if err != nil {
		h.fail(w, "list topics", "", err)
		return
	}
	writeJSON(w, http.StatusOK, TopicListResponse{Topics: items, Total: total})
}

// GetTopic handles GET /api/topics/*.
//
//	@Summary		Get a single node with its document and members
//	@Tags			topics
//	@Produce		json
//	@Param			path	path		string	true	"Node path"
//	@Success		200		{object}	TopicDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/topics/{path} [get]
func (h *Handler) GetTopic(w http.ResponseWriter, r *http.Request) {
	path := topicPath(r)
	if path == "" || !validPath(path) {
		writeJSON(w, http.StatusBadRequest, errorBody("a valid path is required"))
		return
	}
	topic, err := h.svc.GetTopic(r.Context(), path)
	if err != nil {
		h.fail(w, "get topic", path, err)
		return
	}
	writeJSON(w, http.StatusOK, topic)
}

// Children handles GET /api/children?path=.
//
//	@Summary		List the direct members of a node (the root when path is empty)
//	@Tags			topics
//	@Produce		json
//	@Param			path	query		string	false	"Node path"
//	@Success		200		{object}	ChildrenResponse
//	@Security		BearerAuth
//	@Router			/children [get]
func (h *Handler) Children(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(r.URL.Query().Get("path"), "/")
	if !validPath(path) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid path"))
		return
	}
	items, err := h.svc.Children(r.Context(), path)
	if err != nil {
		h.fail(w, "children", path, err)
		return
	}
	writeJSON(w, http.StatusOK, ChildrenResponse{Path: path, Children: items})
}

// Document handles GET /api/documents/*.
//
//	@Summary		Get the generated Turtle document of a node
//	@Tags			topics
//	@Produce		text/turtle
//	@Param			path	path		string	true	"Node path"
//	@Success		200		{string}	string
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{path} [get]
func (h *Handler) Document(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSuffix(topicPath(r), ".ttl")
	if path == "" || !validPath(path) {
		writeJSON(w, http.StatusBadRequest, errorBody("a valid path is required"))
		return
	}
	data, err := h.svc.Document(r.Context(), path)
	if err != nil {
		h.fail(w, "document", path, err)
		return
	}
	writeTurtle(w, data)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across node names and descriptions
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	results, err := h.svc.Search(r.Context(), q, pageLimit(r))
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// SyncStatus handles GET /api/sync/status.
//
//	@Summary		Registry sync ledger summary and latest entries
//	@Tags			sync
//	@Produce		json
//	@Param			limit	query		int		false	"Number of recent entries"
//	@Success		200		{object}	SyncStatus
//	@Security		BearerAuth
//	@Router			/sync/status [get]
func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.SyncStatus(r.Context(), pageLimit(r))
	if err != nil {
		h.fail(w, "sync status", "", err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// Compile handles POST /api/compile.
//
//	@Summary		Regenerate the output tree from the CSV sources
//	@Tags			compile
//	@Success		204	"Compiled"
//	@Failure		422	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/compile [post]
func (h *Handler) Compile(w http.ResponseWriter, r *http.Request) {
	if err := h.rebuild(r.Context(), "api"); err != nil {
		slog.Error("compile failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
