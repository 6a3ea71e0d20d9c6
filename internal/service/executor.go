package service

import (
	"context"
	"database/sql"
	"dbconsole/internal/core"
	"dbconsole/internal/logger"
	"fmt"
	"strings"
	"time"
)

type QueryExecutor struct {
	auditRepo core.AuditRepository
	timeout   time.Duration
}

func NewQueryExecutor(auditRepo core.AuditRepository, timeout time.Duration) *QueryExecutor {
	return &QueryExecutor{
		auditRepo: auditRepo,
		timeout:   timeout,
	}
}

// ExecutionResult holds either a result set or the outcome of a statement
// that returns no rows.
type ExecutionResult struct {
	Columns      []string                 `json:"columns,omitempty"`
	Rows         []map[string]interface{} `json:"rows,omitempty"`
	RowsAffected int64                    `json:"rows_affected"`
	LastInsertID int64                    `json:"last_insert_id,omitempty"`
}

// Execute runs sqlText on q and records the attempt in the audit log.
func (e *QueryExecutor) Execute(ctx context.Context, q core.Querier, rc core.RequestContext, sqlText string, args ...any) (result *ExecutionResult, err error) {
	startTime := time.Now()

	defer func() {
		status := "SUCCESS"
		errMsg := ""
		if err != nil {
			status = "ERROR"
			errMsg = err.Error()
		}

		auditErr := e.auditRepo.Create(&core.AuditLog{
			Timestamp:    startTime,
			Username:     rc.User,
			ServerID:     rc.ServerID,
			Database:     rc.Database,
			SQLText:      sqlText,
			DurationMs:   time.Since(startTime).Milliseconds(),
			Status:       status,
			ErrorMessage: errMsg,
		})
		if auditErr != nil {
			logger.Error.Printf("Failed to write audit log: %v", auditErr)
		}
	}()

	if strings.TrimSpace(sqlText) == "" {
		return nil, fmt.Errorf("%w: empty statement", core.ErrExecution)
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if !returnsRows(sqlText) {
		res, err := q.ExecContext(ctxTimeout, sqlText, args...)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", core.ErrExecution, err)
		}
		out := &ExecutionResult{}
		// Not every driver reports both; zero is fine for a console
		out.RowsAffected, _ = res.RowsAffected()
		out.LastInsertID, _ = res.LastInsertId()
		return out, nil
	}

	rows, err := q.QueryContext(ctxTimeout, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrExecution, err)
	}
	defer rows.Close()

	columns, resultRows, err := scanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrExecution, err)
	}

	return &ExecutionResult{
		Columns:      columns,
		Rows:         resultRows,
		RowsAffected: int64(len(resultRows)),
	}, nil
}

// Databases lists the databases visible on the session's server.
func (e *QueryExecutor) Databases(ctx context.Context, q core.Querier) ([]string, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	rows, err := q.QueryContext(ctxTimeout, "SHOW DATABASES")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrExecution, err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("%w: %w", core.ErrExecution, err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrExecution, err)
	}
	return names, nil
}

// scanRows reads a whole result set into column-keyed maps.
func scanRows(rows *sql.Rows) ([]string, []map[string]interface{}, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	resultRows := []map[string]interface{}{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range columns {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, nil, err
		}

		rowMap := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			// Text protocol values arrive as []byte
			if b, ok := values[i].([]byte); ok {
				rowMap[col] = string(b)
			} else {
				rowMap[col] = values[i]
			}
		}
		resultRows = append(resultRows, rowMap)
	}
	return columns, resultRows, rows.Err()
}

var rowKeywords = map[string]bool{
	"SELECT":   true,
	"SHOW":     true,
	"DESCRIBE": true,
	"DESC":     true,
	"EXPLAIN":  true,
	"WITH":     true,
	"VALUES":   true,
	"TABLE":    true,
	"CHECKSUM": true,
	"ANALYZE":  true,
	"CHECK":    true,
	"OPTIMIZE": true,
	"REPAIR":   true,
}

// returnsRows guesses from the leading keyword whether sqlText yields a
// result set. Leading comments and parentheses are skipped.
func returnsRows(sqlText string) bool {
	s := strings.TrimSpace(sqlText)
	for {
		switch {
		case strings.HasPrefix(s, "/*"):
			end := strings.Index(s, "*/")
			if end < 0 {
				return false
			}
			s = strings.TrimSpace(s[end+2:])
		case strings.HasPrefix(s, "--"), strings.HasPrefix(s, "#"):
			end := strings.IndexByte(s, '\n')
			if end < 0 {
				return false
			}
			s = strings.TrimSpace(s[end+1:])
		case strings.HasPrefix(s, "("):
			s = strings.TrimSpace(s[1:])
		default:
			word := s
			if i := strings.IndexFunc(s, func(r rune) bool {
				return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z')
			}); i >= 0 {
				word = s[:i]
			}
			return rowKeywords[strings.ToUpper(word)]
		}
	}
}
