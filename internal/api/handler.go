package api

import (
	"context"
	"dbconsole/internal/core"
	"dbconsole/internal/logger"
	"dbconsole/internal/service"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-sql-driver/mysql"
)

type Handler struct {
	auth         *AuthHandler
	admin        *AdminHandler
	console      *ConsoleHandler
	sessions     SessionOpener
	guard        *service.DatabaseGuard
	loginLimiter *RateLimiter
	apiLimiter   *RateLimiter
}

func NewHandler(auth *AuthHandler, admin *AdminHandler, console *ConsoleHandler, sessions SessionOpener, guard *service.DatabaseGuard, loginLimiter, apiLimiter *RateLimiter) *Handler {
	return &Handler{
		auth:         auth,
		admin:        admin,
		console:      console,
		sessions:     sessions,
		guard:        guard,
		loginLimiter: loginLimiter,
		apiLimiter:   apiLimiter,
	}
}

// Routes builds the console router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(LoggingMiddleware)

	r.Get("/setup", h.auth.SetupStatus)
	r.Post("/setup", h.auth.DoSetup)
	r.With(h.loginLimiter.Limit(ByIP)).Post("/login", h.auth.DoLogin)
	r.Get("/logout", h.auth.Logout)

	r.Group(func(r chi.Router) {
		r.Use(h.auth.RequireUser)
		r.Use(h.apiLimiter.Limit(ByUser))

		r.Route("/admin", h.admin.RegisterRoutes)

		r.Route("/servers/{serverID}", func(r chi.Router) {
			r.Use(ServerSession(h.sessions))
			r.Get("/databases", h.console.Databases)

			r.Route("/db/{database}", func(r chi.Router) {
				r.Use(RequireDatabase(h.guard))
				r.Post("/sql", h.console.ExecuteSQL)
				r.Get("/bookmarks", h.console.ListBookmarks)
				r.Post("/bookmarks", h.console.AddBookmark)
				r.Get("/bookmarks/{bookmarkID}", h.console.GetBookmark)
				r.Post("/bookmarks/{bookmarkID}/run", h.console.RunBookmark)
				r.Delete("/bookmarks/{bookmarkID}", h.console.DeleteBookmark)
				r.Get("/tables/{table}/status", h.console.TableStatus)
			})
		})
	})

	return r
}

// ConsoleHandler serves the per-server console. Every handler runs after
// ServerSession, so the pinned connection is in the request context.
type ConsoleHandler struct {
	executor  *service.QueryExecutor
	bookmarks *service.BookmarkService
	inspector *service.TableInspector
}

func NewConsoleHandler(executor *service.QueryExecutor, bookmarks *service.BookmarkService, inspector *service.TableInspector) *ConsoleHandler {
	return &ConsoleHandler{
		executor:  executor,
		bookmarks: bookmarks,
		inspector: inspector,
	}
}

// Databases is the server's top-level listing. RequireDatabase sends
// clients here with reload and message set.
func (h *ConsoleHandler) Databases(w http.ResponseWriter, r *http.Request) {
	names, err := h.executor.Databases(r.Context(), querierFrom(r.Context()))
	if err != nil {
		fail(w, err)
		return
	}

	resp := map[string]interface{}{
		"success": true,
		"data":    names,
	}
	if msg := r.URL.Query().Get("message"); msg != "" {
		resp["message"] = msg
	}
	if r.URL.Query().Get("reload") == "1" {
		resp["reload"] = true
	}
	writeJSON(w, http.StatusOK, resp)
}

type sqlRequest struct {
	SQL  string `json:"sql"`
	Args []any  `json:"args"`
}

func (h *ConsoleHandler) ExecuteSQL(w http.ResponseWriter, r *http.Request) {
	var req sqlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.executor.Execute(r.Context(), querierFrom(r.Context()), requestContext(r), req.SQL, req.Args...)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    result,
	})
}

func (h *ConsoleHandler) ListBookmarks(w http.ResponseWriter, r *http.Request) {
	entries, err := h.bookmarks.List(r.Context(), querierFrom(r.Context()), requestContext(r))
	if errors.Is(err, core.ErrBookmarksDisabled) {
		writeDisabled(w, []core.BookmarkEntry{})
		return
	}
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"enabled": true,
		"data":    entries,
	})
}

// GetBookmark looks a bookmark up by id, or by label with ?field=label.
// ?all=1 ignores ownership.
func (h *ConsoleHandler) GetBookmark(w http.ResponseWriter, r *http.Request) {
	field := core.BookmarkField(r.URL.Query().Get("field"))
	if field == "" {
		field = core.BookmarkFieldID
	}
	allUsers := r.URL.Query().Get("all") == "1"

	text, err := h.bookmarks.Get(r.Context(), querierFrom(r.Context()), requestContext(r), pathParam(r, "bookmarkID"), field, allUsers)
	if errors.Is(err, core.ErrBookmarksDisabled) {
		writeDisabled(w, nil)
		return
	}
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"enabled": true,
		"data":    map[string]string{"query": text},
	})
}

// addBookmarkRequest carries the query URL-encoded, the way the console's
// SQL form submits it.
type addBookmarkRequest struct {
	Label  string `json:"label"`
	Query  string `json:"query"`
	Shared bool   `json:"shared"`
}

func (h *ConsoleHandler) AddBookmark(w http.ResponseWriter, r *http.Request) {
	var req addBookmarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	b, err := h.bookmarks.Add(r.Context(), querierFrom(r.Context()), requestContext(r), req.Label, req.Query, req.Shared)
	if errors.Is(err, core.ErrBookmarksDisabled) {
		writeDisabled(w, nil)
		return
	}
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"enabled": true,
		"data":    b,
	})
}

type runBookmarkRequest struct {
	Variable string `json:"variable"`
}

func (h *ConsoleHandler) RunBookmark(w http.ResponseWriter, r *http.Request) {
	id, ok := bookmarkID(w, r)
	if !ok {
		return
	}

	var req runBookmarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.bookmarks.Run(r.Context(), querierFrom(r.Context()), requestContext(r), id, req.Variable)
	if errors.Is(err, core.ErrBookmarksDisabled) {
		writeDisabled(w, nil)
		return
	}
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"enabled": true,
		"data":    result,
	})
}

func (h *ConsoleHandler) DeleteBookmark(w http.ResponseWriter, r *http.Request) {
	id, ok := bookmarkID(w, r)
	if !ok {
		return
	}

	err := h.bookmarks.Delete(r.Context(), querierFrom(r.Context()), requestContext(r), id)
	if errors.Is(err, core.ErrBookmarksDisabled) {
		writeDisabled(w, nil)
		return
	}
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"enabled": true,
	})
}

func (h *ConsoleHandler) TableStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.inspector.Inspect(r.Context(), querierFrom(r.Context()), pathParam(r, "table"))
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    status,
	})
}

func bookmarkID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(pathParam(r, "bookmarkID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, core.ErrInvalidBookmarkID.Error())
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   msg,
	})
}

// writeDisabled answers a bookmark request on a server without bookmark
// storage. It is not an error for the client.
func writeDisabled(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"enabled": false,
		"data":    data,
	})
}

// fail maps service errors to HTTP answers.
func fail(w http.ResponseWriter, err error) {
	var myErr *mysql.MySQLError
	switch {
	case errors.Is(err, core.ErrBookmarkNotFound),
		errors.Is(err, core.ErrTableNotFound),
		errors.Is(err, core.ErrServerNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrInvalidBookmarkID),
		errors.Is(err, core.ErrInvalidBookmarkField),
		errors.Is(err, core.ErrInvalidBookmarkQuery),
		errors.Is(err, core.ErrNoVariableSlot):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "query timed out")
	case errors.As(err, &myErr):
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"error":   myErr.Message,
			"code":    myErr.Number,
		})
	case errors.Is(err, core.ErrExecution):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logger.Error.Printf("Request failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
