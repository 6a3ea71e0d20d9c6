package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbconsole/internal/service"
)

func TestRequireDatabase(t *testing.T) {
	tests := []struct {
		name        string
		database    string
		target      string
		setupMock   func(mock sqlmock.Sqlmock)
		wantNext    bool
		wantMessage string
	}{
		{
			name:     "selectable database reaches the handler",
			database: "shop",
			target:   "/servers/7/db/shop/sql",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("USE `shop`").WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantNext: true,
		},
		{
			name:        "empty database redirects without a query",
			database:    "",
			target:      "/servers/7/db//sql",
			wantMessage: "no database selected",
		},
		{
			name:     "failing USE redirects with its error",
			database: "gone",
			target:   "/servers/7/db/gone/sql",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("USE `gone`").WillReturnError(errors.New("unknown database"))
			},
			wantMessage: "database cannot be selected: gone",
		},
		{
			name:     "pending message wins over the guard error",
			database: "gone",
			target:   "/servers/7/db/gone/sql?message=saved+bookmark",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("USE `gone`").WillReturnError(errors.New("unknown database"))
			},
			wantMessage: "saved bookmark",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
			require.NoError(t, err)
			defer func() { _ = db.Close() }()
			if tt.setupMock != nil {
				tt.setupMock(mock)
			}

			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("serverID", "7")
			rctx.URLParams.Add("database", tt.database)

			req := httptest.NewRequest(http.MethodPost, tt.target, nil)
			ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
			req = req.WithContext(withQuerier(ctx, db))

			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusNoContent)
			})

			rec := httptest.NewRecorder()
			RequireDatabase(service.NewDatabaseGuard())(next).ServeHTTP(rec, req)
			assert.NoError(t, mock.ExpectationsWereMet())

			if tt.wantNext {
				assert.True(t, called)
				assert.Equal(t, http.StatusNoContent, rec.Code)
				return
			}

			assert.False(t, called)
			require.Equal(t, http.StatusFound, rec.Code)
			loc, err := url.Parse(rec.Header().Get("Location"))
			require.NoError(t, err)
			assert.Equal(t, "/servers/7/databases", loc.Path)
			assert.Equal(t, "1", loc.Query().Get("reload"))
			assert.Equal(t, tt.wantMessage, loc.Query().Get("message"))
		})
	}
}

func TestRequireDatabase_NoSession(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/servers/1/db/shop/sql", nil)
	rec := httptest.NewRecorder()
	RequireDatabase(service.NewDatabaseGuard())(http.NotFoundHandler()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLoggingMiddleware_KeepsStatus(t *testing.T) {
	h := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
