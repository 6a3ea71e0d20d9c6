package core

import (
	"time"
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

type ApiKey struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	KeyPrefix   string     `json:"key_prefix"`
	KeyHash     string     `json:"-"`
	Description string     `json:"description"`
	IsActive    bool       `json:"is_active"`
	LastUsedAt  *time.Time `json:"last_used_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Server is a MySQL-family server registered in the console.
// BookmarkDB and BookmarkTable locate the bookmark storage on that server;
// leaving either empty disables bookmarks for it.
type Server struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Driver        string `json:"driver"`
	DSNEnc        string `json:"-"` // Encrypted
	BookmarkDB    string `json:"bookmark_db"`
	BookmarkTable string `json:"bookmark_table"`
	IsActive      bool   `json:"is_active"`
}

// RequestContext carries the per-request identity every console operation
// needs: which server, which console user and which database.
type RequestContext struct {
	ServerID int64
	User     string
	Database string
}

// BookmarkScope identifies where bookmarks live and whose are visible.
type BookmarkScope struct {
	Database string `json:"database"`
	Table    string `json:"table"`
	User     string `json:"user"`
}

// Configured reports whether both storage names are set.
func (s *BookmarkScope) Configured() bool {
	return s != nil && s.Database != "" && s.Table != ""
}

// Bookmark is a saved SQL statement. An empty Owner marks it as shared.
type Bookmark struct {
	ID       int64  `json:"id"`
	Database string `json:"database"`
	Owner    string `json:"owner"`
	Query    string `json:"query"`
	Label    string `json:"label"`
}

// BookmarkEntry is one line of a bookmark listing.
type BookmarkEntry struct {
	DisplayLabel string `json:"display_label"`
	ID           int64  `json:"id"`
}

// BookmarkField names the column a bookmark lookup matches on.
type BookmarkField string

const (
	BookmarkFieldID    BookmarkField = "id"
	BookmarkFieldLabel BookmarkField = "label"
)

func (f BookmarkField) Valid() bool {
	return f == BookmarkFieldID || f == BookmarkFieldLabel
}

// TableStatus is the normalized form of a SHOW TABLE STATUS row.
type TableStatus struct {
	Name          string            `json:"name"`
	Engine        string            `json:"engine"`
	Collation     string            `json:"collation"`
	Rows          int64             `json:"rows"`
	Comment       string            `json:"comment"`
	AutoIncrement int64             `json:"auto_increment"` // 0 when the table has none
	PackKeys      string            `json:"pack_keys"`
	Checksum      string            `json:"checksum"`
	DelayKeyWrite string            `json:"delay_key_write"`
	RowFormat     string            `json:"row_format"`
	Options       map[string]string `json:"options"`
}

type AuditLog struct {
	ID           int64     `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Username     string    `json:"username"`
	ServerID     int64     `json:"server_id"`
	Database     string    `json:"database"`
	SQLText      string    `json:"sql_text"`
	DurationMs   int64     `json:"duration_ms"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"error_message"`
}
