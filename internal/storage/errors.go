package storage

import "errors"

var (
	// ErrUnsupportedBackend is returned by Open for unknown backend names.
	ErrUnsupportedBackend = errors.New("unsupported storage backend")

	// ErrNotFound is returned by queries against a missing table.
	ErrNotFound = errors.New("table not found")

	// ErrSchemaConflict is returned when an existing table's columns do
	// not match the requested schema. Operator intervention required.
	ErrSchemaConflict = errors.New("schema conflict")

	// ErrBackendUnavailable wraps connection loss; fatal for the run.
	ErrBackendUnavailable = errors.New("storage backend unavailable")
)
