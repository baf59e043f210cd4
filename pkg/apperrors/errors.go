package apperrors

import "errors"

var (
	ErrBadRequest        = errors.New("bad request")
	ErrDatabaseNotFound  = errors.New("database not found")
	ErrProjectNotFound   = errors.New("project not found")
	ErrMigrationNotFound = errors.New("migration not found")
	ErrMigrationApplied  = errors.New("migration already applied")
	ErrUnknownMethod     = errors.New("unknown method")
	ErrDiffFailed        = errors.New("schema diff failed")
)
