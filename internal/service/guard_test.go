package service

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbconsole/internal/core"
)

func TestDatabaseGuard_Use(t *testing.T) {
	tests := []struct {
		name      string
		database  string
		setupMock func(mock sqlmock.Sqlmock)
		wantErr   error
	}{
		{
			name:     "empty name never reaches the server",
			database: "",
			wantErr:  core.ErrNoDatabase,
		},
		{
			name:     "selectable database",
			database: "shop",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("USE `shop`").WillReturnResult(sqlmock.NewResult(0, 0))
			},
		},
		{
			name:     "name is quoted as identifier",
			database: "odd`name",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("USE `odd``name`").WillReturnResult(sqlmock.NewResult(0, 0))
			},
		},
		{
			name:     "unknown database",
			database: "missing",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("USE `missing`").WillReturnError(assert.AnError)
			},
			wantErr: core.ErrDatabaseUnavailable,
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

			err = NewDatabaseGuard().Use(context.Background(), db, tt.database)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDatabaseGuard_Idempotent(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec("USE `shop`").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("USE `shop`").WillReturnResult(sqlmock.NewResult(0, 0))

	guard := NewDatabaseGuard()
	require.NoError(t, guard.Use(context.Background(), db, "shop"))
	require.NoError(t, guard.Use(context.Background(), db, "shop"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
