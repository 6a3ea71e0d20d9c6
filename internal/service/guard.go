package service

import (
	"context"
	"dbconsole/internal/core"
	"fmt"
)

// DatabaseGuard makes a database the current one on a connection before any
// operation that depends on it.
type DatabaseGuard struct{}

func NewDatabaseGuard() *DatabaseGuard {
	return &DatabaseGuard{}
}

// Use selects name on q. It fails with core.ErrNoDatabase for an empty name
// and wraps core.ErrDatabaseUnavailable when the server refuses it.
// Repeating the call is harmless.
func (g *DatabaseGuard) Use(ctx context.Context, q core.Querier, name string) error {
	if name == "" {
		return core.ErrNoDatabase
	}
	if _, err := q.ExecContext(ctx, "USE "+core.QuoteIdentifier(name)); err != nil {
		return fmt.Errorf("%w: %s: %w", core.ErrDatabaseUnavailable, name, err)
	}
	return nil
}
