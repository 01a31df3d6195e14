package storage

import (
	"github.com/kart-io/docbench/pkg/errors"
)

func init() {
	errors.RegisterService(errors.ServiceStorage, "storage")
}

var (
	// ErrConnectionFailed indicates that connecting to a backend failed.
	ErrConnectionFailed = errors.NewBuilder(errors.ServiceStorage, errors.CategoryNetwork, 1).
				Message("Failed to connect to storage backend").
				MustBuild()

	// ErrInvalidConfig indicates that a backend configuration is unusable.
	ErrInvalidConfig = errors.NewConfigError(errors.ServiceStorage, 1).
				Message("Invalid storage configuration").
				MustBuild()

	// ErrClientNotFound indicates that no client is registered under a name.
	ErrClientNotFound = errors.NewNotFoundError(errors.ServiceStorage, 1).
				Message("Storage client not found").
				MustBuild()

	// ErrClientAlreadyExists indicates that the name is already registered.
	ErrClientAlreadyExists = errors.NewBuilder(errors.ServiceStorage, errors.CategoryConflict, 1).
				Message("Storage client already exists").
				MustBuild()
)
