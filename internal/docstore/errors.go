package docstore

import (
	"github.com/kart-io/docbench/pkg/errors"
)

func init() {
	errors.RegisterService(errors.ServiceDocstore, "docstore")
}

var (
	// ErrNotFound is returned when a point operation matched nothing, or the
	// matched document is logically expired.
	ErrNotFound = errors.NewNotFoundError(errors.ServiceDocstore, 1).
			Message("Document not found").
			MustBuild()

	// ErrScanEmpty is returned when a range scan found no live documents.
	ErrScanEmpty = errors.NewNotFoundError(errors.ServiceDocstore, 2).
			Message("Scan returned no documents").
			MustBuild()

	// ErrStore wraps any failure reported by the storage backend.
	ErrStore = errors.NewDatabaseError(errors.ServiceDocstore, 1).
			Message("Store operation failed").
			MustBuild()

	// ErrConfig is returned for an unusable connection string or backend name.
	ErrConfig = errors.NewConfigError(errors.ServiceDocstore, 1).
			Message("Invalid store configuration").
			MustBuild()

	// ErrInvalidMetaField is returned for a metadata ordinal outside the field table.
	ErrInvalidMetaField = errors.NewRequestError(errors.ServiceDocstore, 1).
				Message("Invalid metadata field index").
				MustBuild()

	// ErrInvalidTTL is returned for a negative TTL.
	ErrInvalidTTL = errors.NewRequestError(errors.ServiceDocstore, 2).
			Message("TTL must not be negative").
			MustBuild()

	// ErrNotInitialized is returned when a client is used before Init or after Cleanup.
	ErrNotInitialized = errors.NewInternalError(errors.ServiceDocstore, 1).
				Message("Client is not initialized").
				MustBuild()

	// ErrSweeperTimeout is returned when the sweeper did not stop in time.
	ErrSweeperTimeout = errors.NewTimeoutError(errors.ServiceDocstore, 1).
				Message("Expiry sweeper did not stop in time").
				MustBuild()
)
