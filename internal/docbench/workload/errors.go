package workload

import (
	"github.com/kart-io/docbench/pkg/errors"
)

func init() {
	errors.RegisterService(errors.ServiceDocbench, "docbench")
}

var (
	// ErrWorker is returned when a worker could not start or its pool failed.
	ErrWorker = errors.NewInternalError(errors.ServiceDocbench, 1).
			Message("Benchmark worker failed").
			MustBuild()

	// ErrReport is returned when a report output could not be written.
	ErrReport = errors.NewInternalError(errors.ServiceDocbench, 2).
			Message("Could not write report").
			MustBuild()
)
