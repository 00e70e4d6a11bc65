package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrLockHeld = errors.New("db: lock held by another owner")
)

// Op constants map to Redis command names for error context.
const (
	OpConnect = "CONNECT"
	OpPing    = "PING"
	OpSet     = "SET"
	OpEval    = "EVAL"
	OpSAdd    = "SADD"
	OpSRem    = "SREM"
	OpDel     = "DEL"
	OpExpire  = "EXPIRE"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
