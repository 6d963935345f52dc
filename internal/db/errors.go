package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrNotFound    = errors.New("db: not found")
	ErrUnavailable = errors.New("db: unavailable")
	ErrTimeout     = errors.New("db: statement timeout")
)

// Op constants name the operation for error context.
const (
	OpPing       = "ping"
	OpBegin      = "begin"
	OpExec       = "exec"
	OpQuery      = "query"
	OpCommit     = "commit"
	OpIntrospect = "introspect"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
