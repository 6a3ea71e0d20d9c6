package api

import (
	"context"
	"dbconsole/internal/core"
	"dbconsole/internal/logger"
	"dbconsole/internal/service"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap ResponseWriter to capture status code
		rw := &responseWriter{w, http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		logger.Info.Printf("%s %s %d %v", r.Method, r.URL.Path, rw.status, duration)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Context keys
type key int

const (
	userKey key = iota
	querierKey
)

func withUser(ctx context.Context, u *core.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

func userFrom(ctx context.Context) *core.User {
	u, _ := ctx.Value(userKey).(*core.User)
	return u
}

func withQuerier(ctx context.Context, q core.Querier) context.Context {
	return context.WithValue(ctx, querierKey, q)
}

func querierFrom(ctx context.Context) core.Querier {
	q, _ := ctx.Value(querierKey).(core.Querier)
	return q
}

// pathParam returns the unescaped chi URL parameter.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

// requestContext collects server, user and database of the current request.
func requestContext(r *http.Request) core.RequestContext {
	serverID, _ := strconv.ParseInt(chi.URLParam(r, "serverID"), 10, 64)
	rc := core.RequestContext{
		ServerID: serverID,
		Database: pathParam(r, "database"),
	}
	if u := userFrom(r.Context()); u != nil {
		rc.User = u.Username
	}
	return rc
}

// SessionOpener opens the per-request connection to a registered server.
type SessionOpener interface {
	Open(ctx context.Context, serverID int64) (*service.Session, error)
}

// ServerSession pins one connection to {serverID} for the rest of the
// request and releases it afterwards.
func ServerSession(opener SessionOpener) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			serverID, err := strconv.ParseInt(chi.URLParam(r, "serverID"), 10, 64)
			if err != nil || serverID <= 0 {
				writeError(w, http.StatusBadRequest, "invalid server id")
				return
			}

			sess, err := opener.Open(r.Context(), serverID)
			if err != nil {
				switch {
				case errors.Is(err, core.ErrServerNotFound):
					writeError(w, http.StatusNotFound, err.Error())
				case errors.Is(err, core.ErrServerInactive):
					writeError(w, http.StatusConflict, err.Error())
				default:
					logger.Error.Printf("Failed to open server %d: %v", serverID, err)
					writeError(w, http.StatusBadGateway, "server unavailable")
				}
				return
			}
			defer func() {
				if err := sess.Close(); err != nil {
					logger.Error.Printf("Failed to close session for server %d: %v", serverID, err)
				}
			}()

			next.ServeHTTP(w, r.WithContext(withQuerier(r.Context(), sess.Conn)))
		})
	}
}

// RequireDatabase makes {database} the current database of the pinned
// connection. When it cannot, the client is sent back to the database
// listing of the server with a reload flag and a message, and next never
// runs. An incoming message query value takes precedence over the guard's
// own error text.
func RequireDatabase(guard *service.DatabaseGuard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := querierFrom(r.Context())
			if q == nil {
				writeError(w, http.StatusInternalServerError, "no server session")
				return
			}

			database := pathParam(r, "database")
			err := guard.Use(r.Context(), q, database)
			if err == nil {
				next.ServeHTTP(w, r)
				return
			}

			message := r.URL.Query().Get("message")
			if message == "" {
				message = redirectMessage(err, database)
			}
			target := "/servers/" + url.PathEscape(chi.URLParam(r, "serverID")) + "/databases?" + url.Values{
				"reload":  {"1"},
				"message": {message},
			}.Encode()

			http.Redirect(w, r, target, http.StatusFound)
		})
	}
}

// redirectMessage keeps server error text out of the redirect URL.
func redirectMessage(err error, database string) string {
	if errors.Is(err, core.ErrDatabaseUnavailable) {
		logger.Error.WithField("database", database).Printf("Select database failed: %v", err)
		return core.ErrDatabaseUnavailable.Error() + ": " + database
	}
	return err.Error()
}
