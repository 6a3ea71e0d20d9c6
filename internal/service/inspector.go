package service

import (
	"context"
	"dbconsole/internal/core"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// TableInspector reads SHOW TABLE STATUS for a single table. Nothing is
// cached; every call queries the server again.
type TableInspector struct{}

func NewTableInspector() *TableInspector {
	return &TableInspector{}
}

// Inspect returns the status of table in the connection's current database.
func (i *TableInspector) Inspect(ctx context.Context, q core.Querier, table string) (*core.TableStatus, error) {
	rows, err := q.QueryContext(ctx, "SHOW TABLE STATUS LIKE ?", core.EscapeLike(table))
	if err != nil {
		return nil, fmt.Errorf("%w: table status: %w", core.ErrExecution, err)
	}
	defer rows.Close()

	_, result, err := scanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: table status: %w", core.ErrExecution, err)
	}

	// LIKE is case-insensitive on some servers; prefer the exact name
	var row map[string]interface{}
	for _, r := range result {
		if asString(r["Name"]) == table {
			row = r
			break
		}
	}
	if row == nil && len(result) > 0 {
		row = result[0]
	}
	if row == nil {
		return nil, fmt.Errorf("%w: %s", core.ErrTableNotFound, table)
	}

	return normalizeStatus(row), nil
}

func normalizeStatus(row map[string]interface{}) *core.TableStatus {
	status := &core.TableStatus{
		Name:          asString(row["Name"]),
		Engine:        asString(row["Type"]),
		Collation:     asString(row["Collation"]),
		Rows:          asInt64(row["Rows"]),
		Comment:       stripInnoDBFree(asString(row["Comment"])),
		AutoIncrement: asInt64(row["Auto_increment"]),
		Options:       map[string]string{},
	}
	// Servers before 4.1.2 report Type, later ones Engine
	if status.Engine == "" {
		status.Engine = asString(row["Engine"])
	}

	applyCreateOptions(status, asString(row["Create_options"]))
	return status
}

// applyCreateOptions parses a blob like "row_format=DYNAMIC pack_keys=1 partitioned".
// Tokens without '=' carry no value and are skipped.
func applyCreateOptions(status *core.TableStatus, blob string) {
	for _, token := range strings.Fields(blob) {
		key, value, ok := strings.Cut(token, "=")
		if !ok || key == "" {
			continue
		}
		switch strings.ToLower(key) {
		case "pack_keys":
			status.PackKeys = value
		case "checksum":
			status.Checksum = value
		case "delay_key_write":
			status.DelayKeyWrite = value
		case "row_format":
			status.RowFormat = value
		default:
			status.Options[key] = value
		}
	}
}

var innodbFree = regexp.MustCompile(`(?:^|;\s*)InnoDB free: .*$`)

// stripInnoDBFree drops the free-space note InnoDB appends to table comments.
func stripInnoDBFree(comment string) string {
	return innodbFree.ReplaceAllString(comment, "")
}

func asString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case nil:
		return 0
	case int64:
		return t
	case int:
		return int64(t)
	case uint64:
		return int64(t)
	case float64:
		return int64(t)
	default:
		n, err := strconv.ParseInt(strings.TrimSpace(asString(t)), 10, 64)
		if err != nil {
			return 0
		}
		return n
	}
}
