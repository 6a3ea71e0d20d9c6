package core

import (
	"context"
	"database/sql"
)

// Querier is the subset of *sql.DB, *sql.Conn and *sql.Tx the console
// issues statements through.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// UserRepository defines storage operations for console users
type UserRepository interface {
	CreateUser(username, passwordHash string) (*User, error)
	GetUserByUsername(username string) (*User, error)
	GetByID(id int64) (*User, error)
	Update(user *User) error
	CountUsers() (int, error)
}

// ApiKeyRepository defines storage operations for api keys
type ApiKeyRepository interface {
	Create(key *ApiKey) error
	ListByUser(userID int64) ([]ApiKey, error)
	GetByHash(hash string) (*ApiKey, error)
	Revoke(userID, id int64) error
	UpdateLastUsed(id int64) error
}

// ServerRepository defines storage operations for registered servers
type ServerRepository interface {
	Create(server *Server) error
	GetAll() ([]Server, error)
	GetByID(id int64) (*Server, error)
	Update(server *Server) error
	Delete(id int64) error
}

// AuditRepository defines storage operations for audit logs
type AuditRepository interface {
	Create(log *AuditLog) error
	GetRecent(limit int) ([]AuditLog, error)
}

// BookmarkRepository defines storage operations for bookmarks
type BookmarkRepository interface {
	List(ctx context.Context, database string, scope *BookmarkScope) ([]BookmarkEntry, error)
	GetQuery(ctx context.Context, database string, scope *BookmarkScope, id string, field BookmarkField, allUsers bool) (string, error)
	Add(ctx context.Context, bookmark *Bookmark, scope *BookmarkScope, shared bool) error
	Delete(ctx context.Context, scope *BookmarkScope, id int64) error
	EnsureTable(ctx context.Context, scope *BookmarkScope) error
}
