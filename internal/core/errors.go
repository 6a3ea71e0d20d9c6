package core

import "errors"

var (
	// ErrBookmarksDisabled means no server is selected or the server has no
	// bookmark storage configured. Callers treat it as an empty result.
	ErrBookmarksDisabled    = errors.New("bookmarks are not configured")
	ErrBookmarkNotFound     = errors.New("bookmark not found")
	ErrInvalidBookmarkID    = errors.New("invalid bookmark id")
	ErrInvalidBookmarkField = errors.New("invalid bookmark field")
	ErrInvalidBookmarkQuery = errors.New("invalid bookmark query encoding")
	// ErrNoVariableSlot means a variable was supplied for a bookmark without
	// a [VARIABLE] comment.
	ErrNoVariableSlot       = errors.New("bookmark takes no variable")

	ErrNoDatabase          = errors.New("no database selected")
	ErrDatabaseUnavailable = errors.New("database cannot be selected")

	ErrTableNotFound = errors.New("table not found")

	// ErrExecution wraps failures reported by the SQL backend.
	ErrExecution = errors.New("execution error")

	ErrServerNotFound = errors.New("server not found")
	ErrServerInactive = errors.New("server is inactive")
)
