package service

import (
	"database/sql"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"dbconsole/internal/core"
)

const testConsoleKey = "0123456789abcdef0123456789abcdef"

type fakeAuditRepo struct {
	mu   sync.Mutex
	logs []core.AuditLog
}

func (f *fakeAuditRepo) Create(l *core.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l.ID = int64(len(f.logs) + 1)
	f.logs = append(f.logs, *l)
	return nil
}

func (f *fakeAuditRepo) GetRecent(limit int) ([]core.AuditLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit > len(f.logs) {
		limit = len(f.logs)
	}
	return append([]core.AuditLog(nil), f.logs[len(f.logs)-limit:]...), nil
}

type fakeServerRepo struct {
	servers map[int64]*core.Server
}

func newFakeServerRepo(servers ...core.Server) *fakeServerRepo {
	f := &fakeServerRepo{servers: map[int64]*core.Server{}}
	for i := range servers {
		s := servers[i]
		f.servers[s.ID] = &s
	}
	return f
}

func (f *fakeServerRepo) Create(s *core.Server) error {
	s.ID = int64(len(f.servers) + 1)
	cp := *s
	f.servers[s.ID] = &cp
	return nil
}

func (f *fakeServerRepo) GetAll() ([]core.Server, error) {
	out := []core.Server{}
	for _, s := range f.servers {
		out = append(out, *s)
	}
	return out, nil
}

func (f *fakeServerRepo) GetByID(id int64) (*core.Server, error) {
	s, ok := f.servers[id]
	if !ok {
		return nil, core.ErrServerNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeServerRepo) Update(s *core.Server) error {
	cp := *s
	f.servers[s.ID] = &cp
	return nil
}

func (f *fakeServerRepo) Delete(id int64) error {
	delete(f.servers, id)
	return nil
}

// setupBookmarkServer returns a SQLite handle with an attached pma_bm schema
// holding an empty bookmark table.
func setupBookmarkServer(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`ATTACH DATABASE ':memory:' AS pma_bm`)
	require.NoError(t, err)
	_, err = db.Exec("CREATE TABLE pma_bm.bookmark (" +
		"id INTEGER PRIMARY KEY AUTOINCREMENT, " +
		"dbase TEXT NOT NULL DEFAULT '', " +
		"`user` TEXT NOT NULL DEFAULT '', " +
		"label TEXT NOT NULL DEFAULT '', " +
		"query TEXT NOT NULL)")
	require.NoError(t, err)
	return db
}
