package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbconsole/internal/core"
)

var testRC = core.RequestContext{ServerID: 1, User: "alice", Database: "shop"}

func TestQueryExecutor_Execute(t *testing.T) {
	tests := []struct {
		name       string
		sql        string
		args       []any
		setupMock  func(mock sqlmock.Sqlmock)
		want       *ExecutionResult
		wantErr    error
		wantStatus string
	}{
		{
			name: "select returns rows",
			sql:  "SELECT id, name FROM customers",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT id, name FROM customers").
					WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
						AddRow(int64(1), []byte("Ada")).
						AddRow(int64(2), nil))
			},
			want: &ExecutionResult{
				Columns: []string{"id", "name"},
				Rows: []map[string]interface{}{
					{"id": int64(1), "name": "Ada"},
					{"id": int64(2), "name": nil},
				},
				RowsAffected: 2,
			},
			wantStatus: "SUCCESS",
		},
		{
			name: "leading comment does not hide a select",
			sql:  "/* report */ SELECT 1",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("/* report */ SELECT 1").
					WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(int64(1)))
			},
			want: &ExecutionResult{
				Columns:      []string{"1"},
				Rows:         []map[string]interface{}{{"1": int64(1)}},
				RowsAffected: 1,
			},
			wantStatus: "SUCCESS",
		},
		{
			name: "update reports affected rows",
			sql:  "UPDATE customers SET name = ? WHERE id = ?",
			args: []any{"Grace", int64(2)},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("UPDATE customers SET name = ? WHERE id = ?").
					WithArgs("Grace", int64(2)).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			want:       &ExecutionResult{RowsAffected: 1},
			wantStatus: "SUCCESS",
		},
		{
			name: "insert reports generated id",
			sql:  "INSERT INTO customers (name) VALUES ('Linus')",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO customers (name) VALUES ('Linus')").
					WillReturnResult(sqlmock.NewResult(9, 1))
			},
			want:       &ExecutionResult{RowsAffected: 1, LastInsertID: 9},
			wantStatus: "SUCCESS",
		},
		{
			name: "backend failure is an execution error",
			sql:  "SELEC nonsense",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("SELEC nonsense").WillReturnError(assert.AnError)
			},
			wantErr:    core.ErrExecution,
			wantStatus: "ERROR",
		},
		{
			name:       "empty statement",
			sql:        "   ",
			wantErr:    core.ErrExecution,
			wantStatus: "ERROR",
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

			audit := &fakeAuditRepo{}
			exec := NewQueryExecutor(audit, time.Second)

			got, err := exec.Execute(context.Background(), db, testRC, tt.sql, tt.args...)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			assert.NoError(t, mock.ExpectationsWereMet())

			require.Len(t, audit.logs, 1)
			entry := audit.logs[0]
			assert.Equal(t, tt.wantStatus, entry.Status)
			assert.Equal(t, "alice", entry.Username)
			assert.Equal(t, int64(1), entry.ServerID)
			assert.Equal(t, "shop", entry.Database)
			assert.Equal(t, tt.sql, entry.SQLText)
		})
	}
}

func TestQueryExecutor_Databases(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SHOW DATABASES").
		WillReturnRows(sqlmock.NewRows([]string{"Database"}).AddRow("information_schema").AddRow("shop"))

	names, err := NewQueryExecutor(&fakeAuditRepo{}, time.Second).Databases(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, []string{"information_schema", "shop"}, names)
}

func TestReturnsRows(t *testing.T) {
	tests := []struct {
		sql  string
		want bool
	}{
		{"SELECT 1", true},
		{"  select * from t", true},
		{"SHOW TABLES", true},
		{"DESC orders", true},
		{"EXPLAIN SELECT 1", true},
		{"WITH x AS (SELECT 1) SELECT * FROM x", true},
		{"(SELECT 1) UNION (SELECT 2)", true},
		{"-- note\nSELECT 1", true},
		{"# note\nSHOW DATABASES", true},
		{"/* a */ /* b */ SELECT 1", true},
		{"INSERT INTO t VALUES (1)", false},
		{"UPDATE t SET a = 1", false},
		{"DELETE FROM t", false},
		{"CREATE TABLE t (id INT)", false},
		{"USE shop", false},
		{"/* unterminated", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			assert.Equal(t, tt.want, returnsRows(tt.sql))
		})
	}
}
