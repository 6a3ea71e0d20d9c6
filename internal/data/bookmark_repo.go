package data

import (
	"context"
	"database/sql"
	"dbconsole/internal/core"
	"errors"
	"fmt"
	"net/url"
	"strconv"
)

// BookmarkRepo stores bookmarks in a table on the target server. The table
// location comes from the scope, so every statement quotes it explicitly.
type BookmarkRepo struct {
	q core.Querier
}

func NewBookmarkRepo(q core.Querier) *BookmarkRepo {
	return &BookmarkRepo{q: q}
}

// List returns the bookmarks of database visible to scope.User: its own and
// the shared ones. Rows come back in the engine's natural order.
func (r *BookmarkRepo) List(ctx context.Context, database string, scope *core.BookmarkScope) ([]core.BookmarkEntry, error) {
	if !scope.Configured() {
		return nil, core.ErrBookmarksDisabled
	}

	query := fmt.Sprintf("SELECT label, id FROM %s WHERE dbase = ? AND (`user` = ? OR `user` = '')",
		core.QualifiedName(scope.Database, scope.Table))
	rows, err := r.q.QueryContext(ctx, query, database, scope.User)
	if err != nil {
		return nil, fmt.Errorf("%w: list bookmarks: %w", core.ErrExecution, err)
	}
	defer rows.Close()

	entries := []core.BookmarkEntry{}
	for rows.Next() {
		var label sql.NullString
		var id int64
		if err := rows.Scan(&label, &id); err != nil {
			return nil, fmt.Errorf("%w: scan bookmark: %w", core.ErrExecution, err)
		}
		entries = append(entries, core.BookmarkEntry{
			DisplayLabel: fmt.Sprintf("%d - %s", len(entries)+1, label.String),
			ID:           id,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list bookmarks: %w", core.ErrExecution, err)
	}
	return entries, nil
}

// GetQuery returns the SQL text of one bookmark of database, matched on field.
// Unless allUsers is set, only bookmarks visible to scope.User are considered.
func (r *BookmarkRepo) GetQuery(ctx context.Context, database string, scope *core.BookmarkScope, id string, field core.BookmarkField, allUsers bool) (string, error) {
	if !scope.Configured() {
		return "", core.ErrBookmarksDisabled
	}
	if !field.Valid() {
		return "", fmt.Errorf("%w: %q", core.ErrInvalidBookmarkField, field)
	}

	var value any = id
	if field == core.BookmarkFieldID {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return "", fmt.Errorf("%w: %q", core.ErrInvalidBookmarkID, id)
		}
		value = n
	}

	query := fmt.Sprintf("SELECT query FROM %s WHERE dbase = ? AND %s = ?",
		core.QualifiedName(scope.Database, scope.Table), core.QuoteIdentifier(string(field)))
	args := []any{database, value}
	if !allUsers {
		query += " AND (`user` = ? OR `user` = '')"
		args = append(args, scope.User)
	}
	query += " LIMIT 1"

	var text sql.NullString
	err := r.q.QueryRowContext(ctx, query, args...).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", core.ErrBookmarkNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: get bookmark: %w", core.ErrExecution, err)
	}
	return text.String, nil
}

// Add stores a new bookmark and writes the generated id back into b.
// b.Query arrives URL-encoded and is stored decoded. A shared bookmark is
// stored without owner so every user of the database sees it.
func (r *BookmarkRepo) Add(ctx context.Context, b *core.Bookmark, scope *core.BookmarkScope, shared bool) error {
	if !scope.Configured() {
		return core.ErrBookmarksDisabled
	}

	text, err := url.QueryUnescape(b.Query)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrInvalidBookmarkQuery, err)
	}

	owner := b.Owner
	if shared {
		owner = ""
	}

	query := fmt.Sprintf("INSERT INTO %s (id, dbase, `user`, query, label) VALUES (NULL, ?, ?, ?, ?)",
		core.QualifiedName(scope.Database, scope.Table))
	res, err := r.q.ExecContext(ctx, query, b.Database, owner, text, b.Label)
	if err != nil {
		return fmt.Errorf("%w: add bookmark: %w", core.ErrExecution, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("%w: add bookmark: %w", core.ErrExecution, err)
	}

	b.ID = id
	b.Owner = owner
	b.Query = text
	return nil
}

// Delete removes bookmark id if it belongs to scope.User or is shared.
// Deleting a missing id is not an error.
func (r *BookmarkRepo) Delete(ctx context.Context, scope *core.BookmarkScope, id int64) error {
	if !scope.Configured() {
		return core.ErrBookmarksDisabled
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE `user` IN (?, '') AND id = ?",
		core.QualifiedName(scope.Database, scope.Table))
	if _, err := r.q.ExecContext(ctx, query, scope.User, id); err != nil {
		return fmt.Errorf("%w: delete bookmark: %w", core.ErrExecution, err)
	}
	return nil
}

// EnsureTable creates the bookmark table if it does not exist yet.
func (r *BookmarkRepo) EnsureTable(ctx context.Context, scope *core.BookmarkScope) error {
	if !scope.Configured() {
		return core.ErrBookmarksDisabled
	}

	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s ("+
		"id INTEGER NOT NULL PRIMARY KEY AUTO_INCREMENT, "+
		"dbase VARCHAR(255) NOT NULL DEFAULT '', "+
		"`user` VARCHAR(255) NOT NULL DEFAULT '', "+
		"label VARCHAR(255) NOT NULL DEFAULT '', "+
		"query TEXT NOT NULL"+
		") COMMENT='Bookmarks'", core.QualifiedName(scope.Database, scope.Table))
	if _, err := r.q.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("%w: create bookmark table: %w", core.ErrExecution, err)
	}
	return nil
}
