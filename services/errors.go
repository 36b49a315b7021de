package services

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
)

// DataStoreError wraps a failed database call. Callers may retry; this
// package never does.
type DataStoreError struct {
	Op  string
	Err error
}

func (e *DataStoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DataStoreError) Unwrap() error { return e.Err }

func invalidArg(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func notFound(what string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, what)
}

// storeErr classifies a driver error. Constraint violations are the
// caller's fault; everything else is a DataStoreError.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(op)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23503":
			return invalidArg("referenced record does not exist")
		case "23505":
			return invalidArg("record already exists")
		case "23514", "22P02":
			return invalidArg("value rejected by the database")
		}
	}
	return &DataStoreError{Op: op, Err: err}
}

// ParseID validates a UUID coming from a path, query or body.
func ParseID(field, raw string) (string, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", invalidArg("%s must be a valid UUID", field)
	}
	return id.String(), nil
}

// parseOptionalID validates a nullable reference.
func parseOptionalID(field string, raw *string) (*string, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := ParseID(field, *raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func requireUser(userID string) error {
	if userID == "" {
		return ErrUnauthorized
	}
	return nil
}
