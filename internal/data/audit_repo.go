package data

import (
	"database/sql"
	"dbconsole/internal/core"
)

type AuditRepo struct {
	db *sql.DB
}

func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

func (r *AuditRepo) Create(l *core.AuditLog) error {
	res, err := r.db.Exec(`INSERT INTO audit_logs (timestamp, username, server_id, database_name, sql_text, duration_ms, status, error_message) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		l.Timestamp, l.Username, l.ServerID, l.Database, l.SQLText, l.DurationMs, l.Status, l.ErrorMessage)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	l.ID = id
	return nil
}

func (r *AuditRepo) GetRecent(limit int) ([]core.AuditLog, error) {
	rows, err := r.db.Query(`SELECT id, timestamp, username, server_id, database_name, sql_text, duration_ms, status, error_message FROM audit_logs ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []core.AuditLog{}
	for rows.Next() {
		var l core.AuditLog
		if err := rows.Scan(&l.ID, &l.Timestamp, &l.Username, &l.ServerID, &l.Database, &l.SQLText, &l.DurationMs, &l.Status, &l.ErrorMessage); err != nil {
			return nil, err
		}

		// SQLite hands timestamps back in UTC
		l.Timestamp = l.Timestamp.Local()

		logs = append(logs, l)
	}
	return logs, rows.Err()
}
