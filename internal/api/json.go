package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
)

// Page size bounds for list and search endpoints.
const (
	defaultLimit = 50
	maxLimit     = 500
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

func writeTurtle(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "text/turtle; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// queryInt reads a non-negative integer parameter, falling back to def when
// it is absent or malformed.
func queryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v < 0 {
		return def
	}
	return v
}

// pageLimit reads the limit parameter clamped to maxLimit.
func pageLimit(r *http.Request) int {
	limit := queryInt(r, "limit", defaultLimit)
	if limit == 0 {
		limit = defaultLimit
	}
	return min(limit, maxLimit)
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}
