package errors

import (
	"testing"
)

func TestRegisterService(t *testing.T) {
	RegisterService(99, "test-service")

	name, ok := GetServiceName(99)
	if !ok {
		t.Error("GetServiceName should find registered service")
	}
	if name != "test-service" {
		t.Errorf("GetServiceName() = %q, want %q", name, "test-service")
	}

	// Same code with same name is idempotent
	RegisterService(99, "test-service")

	defer func() {
		if r := recover(); r == nil {
			t.Error("RegisterService should panic on conflict")
		}
	}()
	RegisterService(99, "different-service")
}

func TestBuilderBuild(t *testing.T) {
	const testService = 80

	e, err := NewNotFoundError(testService, 100).Message("Widget not found").Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if e.Code != MakeCode(testService, CategoryResource, 100) {
		t.Errorf("Code = %d", e.Code)
	}

	if _, err := NewNotFoundError(testService, 100).Message("again").Build(); err == nil {
		t.Error("Build() should fail on duplicate code")
	}

	if _, err := NewConfigError(testService, 101).Build(); err == nil {
		t.Error("Build() should require a message")
	}
}

func TestPresetCategories(t *testing.T) {
	const testService = 81

	tests := []struct {
		name     string
		builder  *ErrnoBuilder
		category int
	}{
		{"request", NewRequestError(testService, 1), CategoryRequest},
		{"not-found", NewNotFoundError(testService, 1), CategoryResource},
		{"internal", NewInternalError(testService, 1), CategoryInternal},
		{"database", NewDatabaseError(testService, 1), CategoryDatabase},
		{"timeout", NewTimeoutError(testService, 1), CategoryTimeout},
		{"config", NewConfigError(testService, 1), CategoryConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := tt.builder.Message(tt.name).MustBuild()
			if GetCategory(e.Code) != tt.category {
				t.Errorf("category = %d, want %d", GetCategory(e.Code), tt.category)
			}
		})
	}
}

func TestMustBuildPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("MustBuild should panic without message")
		}
	}()
	NewInternalError(82, 1).MustBuild()
}
