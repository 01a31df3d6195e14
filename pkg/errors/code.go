package errors

// Service codes (AA).
const (
	// ServiceCommon is shared by all packages.
	ServiceCommon = 0
	// ServiceDocstore covers the shared handle, sweeper, batcher and CRUD client.
	ServiceDocstore = 10
	// ServiceDocbench covers workload generation and reporting.
	ServiceDocbench = 11
	// ServiceStorage covers backend connection components.
	ServiceStorage = 12
)

// Category codes (BB).
const (
	CategorySuccess  = 0
	CategoryRequest  = 1
	CategoryResource = 4
	CategoryConflict = 5
	CategoryInternal = 7
	CategoryDatabase = 8
	CategoryNetwork  = 10
	CategoryTimeout  = 11
	CategoryConfig   = 12
)

var categoryNames = map[int]string{
	CategorySuccess:  "success",
	CategoryRequest:  "request",
	CategoryResource: "resource",
	CategoryConflict: "conflict",
	CategoryInternal: "internal",
	CategoryDatabase: "database",
	CategoryNetwork:  "network",
	CategoryTimeout:  "timeout",
	CategoryConfig:   "config",
}

// MakeCode builds an AABBCCC error code.
func MakeCode(service, category, sequence int) int {
	return service*100000 + category*1000 + sequence
}

// ParseCode splits an error code into service, category and sequence.
func ParseCode(code int) (service, category, sequence int) {
	return code / 100000, (code / 1000) % 100, code % 1000
}

// GetService returns the service part of a code.
func GetService(code int) int {
	return code / 100000
}

// GetCategory returns the category part of a code.
func GetCategory(code int) int {
	return (code / 1000) % 100
}

// GetSequence returns the sequence part of a code.
func GetSequence(code int) int {
	return code % 1000
}

// CategoryName returns a short name for a category code.
func CategoryName(category int) string {
	if name, ok := categoryNames[category]; ok {
		return name
	}
	return "unknown"
}
