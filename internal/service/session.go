package service

import (
	"context"
	"database/sql"
	"dbconsole/internal/core"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Session is one request's hold on a server: a single pinned connection, so
// USE and every following statement see the same current database.
type Session struct {
	Server *core.Server
	Conn   *sql.Conn
	db     *sql.DB
}

func (s *Session) Close() error {
	return errors.Join(s.Conn.Close(), s.db.Close())
}

// OpenFunc opens a database handle for a decrypted DSN.
type OpenFunc func(driver, dsn string) (*sql.DB, error)

type SessionOpener struct {
	servers     core.ServerRepository
	cryptoSvc   *EncryptionService
	open        OpenFunc
	pingTimeout time.Duration
}

func NewSessionOpener(servers core.ServerRepository, cryptoSvc *EncryptionService, open OpenFunc) *SessionOpener {
	if open == nil {
		open = OpenServerDB
	}
	return &SessionOpener{
		servers:     servers,
		cryptoSvc:   cryptoSvc,
		open:        open,
		pingTimeout: 10 * time.Second,
	}
}

// Open resolves serverID, connects and pins one connection. The caller owns
// the session and must Close it when the request ends.
func (o *SessionOpener) Open(ctx context.Context, serverID int64) (*Session, error) {
	server, err := o.servers.GetByID(serverID)
	if err != nil {
		return nil, err
	}
	if !server.IsActive {
		return nil, core.ErrServerInactive
	}

	dsn, err := o.cryptoSvc.Decrypt(server.DSNEnc)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt server dsn: %w", err)
	}

	db, err := o.open(server.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open server %s: %w", server.Name, err)
	}
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, o.pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping server %s: %w", server.Name, err)
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to acquire connection to %s: %w", server.Name, err)
	}

	return &Session{Server: server, Conn: conn, db: db}, nil
}

// OpenServerDB opens a MySQL-family DSN. Parameters are interpolated client
// side so statements like SHOW TABLE STATUS LIKE ? need no server prepare.
func OpenServerDB(driver, dsn string) (*sql.DB, error) {
	if driver != "mysql" {
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	cfg.InterpolateParams = true

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, err
	}
	return sql.OpenDB(connector), nil
}
