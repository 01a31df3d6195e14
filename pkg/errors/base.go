package errors

// OK represents a successful operation.
var OK = Register(&Errno{
	Code:    0,
	Message: "Success",
})

// ============================================================================
// Request Errors (Category: 01)
// ============================================================================

var (
	// ErrInvalidParam indicates an invalid parameter.
	ErrInvalidParam = Register(&Errno{
		Code:    MakeCode(ServiceCommon, CategoryRequest, 1),
		Message: "Invalid parameter",
	})

	// ErrMissingParam indicates a missing required parameter.
	ErrMissingParam = Register(&Errno{
		Code:    MakeCode(ServiceCommon, CategoryRequest, 2),
		Message: "Missing required parameter",
	})
)

// ============================================================================
// Resource Errors (Category: 04)
// ============================================================================

// ErrNotFound indicates a generic missing resource.
var ErrNotFound = Register(&Errno{
	Code:    MakeCode(ServiceCommon, CategoryResource, 0),
	Message: "Resource not found",
})

// ============================================================================
// Internal Errors (Category: 07)
// ============================================================================

var (
	// ErrInternal indicates an internal error.
	ErrInternal = Register(&Errno{
		Code:    MakeCode(ServiceCommon, CategoryInternal, 0),
		Message: "Internal error",
	})

	// ErrNotImplemented indicates an operation the backend does not support.
	ErrNotImplemented = Register(&Errno{
		Code:    MakeCode(ServiceCommon, CategoryInternal, 3),
		Message: "Not implemented",
	})
)

// ============================================================================
// Database Errors (Category: 08)
// ============================================================================

var (
	// ErrDatabase indicates a generic database error.
	ErrDatabase = Register(&Errno{
		Code:    MakeCode(ServiceCommon, CategoryDatabase, 0),
		Message: "Database error",
	})

	// ErrDBConnection indicates a database connection failure.
	ErrDBConnection = Register(&Errno{
		Code:    MakeCode(ServiceCommon, CategoryDatabase, 1),
		Message: "Database connection failed",
	})
)

// ============================================================================
// Timeout Errors (Category: 11)
// ============================================================================

// ErrTimeout indicates an operation that did not finish in time.
var ErrTimeout = Register(&Errno{
	Code:    MakeCode(ServiceCommon, CategoryTimeout, 0),
	Message: "Operation timed out",
})

// ============================================================================
// Configuration Errors (Category: 12)
// ============================================================================

// ErrInvalidConfig indicates an invalid configuration value.
var ErrInvalidConfig = Register(&Errno{
	Code:    MakeCode(ServiceCommon, CategoryConfig, 0),
	Message: "Invalid configuration",
})
