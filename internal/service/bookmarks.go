package service

import (
	"context"
	"dbconsole/internal/core"
	"strconv"
)

// BookmarkRepoFactory binds a bookmark repository to one connection.
type BookmarkRepoFactory func(q core.Querier) core.BookmarkRepository

// BookmarkService resolves where a user's bookmarks live and runs the store
// operations on the request's connection.
type BookmarkService struct {
	servers  core.ServerRepository
	executor *QueryExecutor
	newRepo  BookmarkRepoFactory
	parser   *core.VariableParser
}

func NewBookmarkService(servers core.ServerRepository, executor *QueryExecutor, newRepo BookmarkRepoFactory) *BookmarkService {
	return &BookmarkService{
		servers:  servers,
		executor: executor,
		newRepo:  newRepo,
		parser:   core.NewVariableParser(),
	}
}

// ResolveScope returns the bookmark scope for rc. It returns
// core.ErrBookmarksDisabled when no server is selected or the server has no
// bookmark table configured.
func (s *BookmarkService) ResolveScope(rc core.RequestContext) (*core.BookmarkScope, error) {
	if rc.ServerID == 0 {
		return nil, core.ErrBookmarksDisabled
	}

	server, err := s.servers.GetByID(rc.ServerID)
	if err != nil {
		return nil, err
	}

	scope := &core.BookmarkScope{
		Database: server.BookmarkDB,
		Table:    server.BookmarkTable,
		User:     rc.User,
	}
	if !scope.Configured() {
		return nil, core.ErrBookmarksDisabled
	}
	return scope, nil
}

func (s *BookmarkService) List(ctx context.Context, q core.Querier, rc core.RequestContext) ([]core.BookmarkEntry, error) {
	scope, err := s.ResolveScope(rc)
	if err != nil {
		return nil, err
	}
	return s.newRepo(q).List(ctx, rc.Database, scope)
}

// Get returns the SQL text of a bookmark in rc.Database.
func (s *BookmarkService) Get(ctx context.Context, q core.Querier, rc core.RequestContext, id string, field core.BookmarkField, allUsers bool) (string, error) {
	scope, err := s.ResolveScope(rc)
	if err != nil {
		return "", err
	}
	return s.newRepo(q).GetQuery(ctx, rc.Database, scope, id, field, allUsers)
}

// Add saves encodedQuery (URL-encoded, as submitted by a form) under label.
func (s *BookmarkService) Add(ctx context.Context, q core.Querier, rc core.RequestContext, label, encodedQuery string, shared bool) (*core.Bookmark, error) {
	scope, err := s.ResolveScope(rc)
	if err != nil {
		return nil, err
	}

	b := &core.Bookmark{
		Database: rc.Database,
		Owner:    rc.User,
		Query:    encodedQuery,
		Label:    label,
	}
	if err := s.newRepo(q).Add(ctx, b, scope, shared); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *BookmarkService) Delete(ctx context.Context, q core.Querier, rc core.RequestContext, id int64) error {
	scope, err := s.ResolveScope(rc)
	if err != nil {
		return err
	}
	return s.newRepo(q).Delete(ctx, scope, id)
}

// Run executes bookmark id, binding variable into its [VARIABLE] slots.
// A variable for a bookmark without slots fails with core.ErrNoVariableSlot.
func (s *BookmarkService) Run(ctx context.Context, q core.Querier, rc core.RequestContext, id int64, variable string) (*ExecutionResult, error) {
	text, err := s.Get(ctx, q, rc, strconv.FormatInt(id, 10), core.BookmarkFieldID, false)
	if err != nil {
		return nil, err
	}

	if variable != "" && !s.parser.HasVariable(text) {
		return nil, core.ErrNoVariableSlot
	}
	parsed := s.parser.Parse(text, variable)
	return s.executor.Execute(ctx, q, rc, parsed.SQL, parsed.Args...)
}
