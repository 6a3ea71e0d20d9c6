package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbconsole/internal/core"
	"dbconsole/internal/data"
	"dbconsole/internal/service"
)

const testKey = "0123456789abcdef0123456789abcdef"

// testEnv wires the console against an in-memory app store. Each server
// session opened during a request consumes the next queued sqlmock setup.
type testEnv struct {
	t        *testing.T
	router   http.Handler
	servers  *data.ServerRepo
	audit    *data.AuditRepo
	authSvc  *service.AuthService
	apiKey   string
	serverID int64

	mu     sync.Mutex
	queued []func(sqlmock.Sqlmock)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := data.InitDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	env := &testEnv{
		t:       t,
		servers: data.NewServerRepo(db),
		audit:   data.NewAuditRepo(db),
		authSvc: service.NewAuthService(data.NewUserRepo(db), data.NewApiKeyRepo(db)),
	}

	require.NoError(t, env.authSvc.SetupAdmin("alice", "pw"))
	alice, err := env.authSvc.Authenticate("alice", "pw")
	require.NoError(t, err)
	env.apiKey, _, err = env.authSvc.GenerateApiKey(alice.ID, "tests")
	require.NoError(t, err)

	cryptoSvc, err := service.NewEncryptionService(testKey)
	require.NoError(t, err)
	dsnEnc, err := cryptoSvc.Encrypt("root@tcp(127.0.0.1:3306)/")
	require.NoError(t, err)

	prod := &core.Server{Name: "prod", Driver: "mysql", DSNEnc: dsnEnc, BookmarkDB: "pma_bm", BookmarkTable: "bookmark", IsActive: true}
	require.NoError(t, env.servers.Create(prod))
	env.serverID = prod.ID

	bare := &core.Server{Name: "bare", Driver: "mysql", DSNEnc: dsnEnc, IsActive: true}
	require.NoError(t, env.servers.Create(bare))

	executor := service.NewQueryExecutor(env.audit, time.Second)
	bookmarks := service.NewBookmarkService(env.servers, executor,
		func(q core.Querier) core.BookmarkRepository { return data.NewBookmarkRepo(q) })
	opener := service.NewSessionOpener(env.servers, cryptoSvc, env.open)

	loginLimiter := NewRateLimiter(600, 100)
	apiLimiter := NewRateLimiter(600, 100)
	t.Cleanup(loginLimiter.Stop)
	t.Cleanup(apiLimiter.Stop)

	env.router = NewHandler(
		NewAuthHandler(env.authSvc, testKey, false),
		NewAdminHandler(env.servers, env.audit, env.authSvc, cryptoSvc),
		NewConsoleHandler(executor, bookmarks, service.NewTableInspector()),
		opener,
		service.NewDatabaseGuard(),
		loginLimiter,
		apiLimiter,
	).Routes()
	return env
}

// expectSession queues the statements the next server session must see.
func (e *testEnv) expectSession(setup func(mock sqlmock.Sqlmock)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queued = append(e.queued, setup)
}

func (e *testEnv) open(driver, dsn string) (*sql.DB, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.queued) == 0 {
		e.t.Errorf("unexpected server session for %s", dsn)
		return nil, errors.New("no session expected")
	}
	setup := e.queued[0]
	e.queued = e.queued[1:]

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(e.t, err)
	setup(mock)
	mock.ExpectClose()
	e.t.Cleanup(func() { assert.NoError(e.t, mock.ExpectationsWereMet()) })
	return db, nil
}

func (e *testEnv) do(method, path string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	req := newJSONRequest(e.t, method, path, body)
	req.Header.Set("X-API-Key", e.apiKey)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func newJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}
