package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestMakeCode(t *testing.T) {
	tests := []struct {
		service  int
		category int
		sequence int
		expected int
	}{
		{0, 0, 0, 0},
		{0, 1, 1, 1001},
		{0, 12, 0, 12000},
		{10, 4, 1, 1004001},
		{11, 8, 2, 1108002},
		{90, 7, 1, 9007001},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_%d_%d", tt.service, tt.category, tt.sequence), func(t *testing.T) {
			got := MakeCode(tt.service, tt.category, tt.sequence)
			if got != tt.expected {
				t.Errorf("MakeCode(%d, %d, %d) = %d, want %d",
					tt.service, tt.category, tt.sequence, got, tt.expected)
			}
		})
	}
}

func TestParseCode(t *testing.T) {
	tests := []struct {
		code             int
		expectedService  int
		expectedCategory int
		expectedSequence int
	}{
		{0, 0, 0, 0},
		{1001, 0, 1, 1},
		{1004001, 10, 4, 1},
		{9007001, 90, 7, 1},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d", tt.code), func(t *testing.T) {
			service, category, sequence := ParseCode(tt.code)
			if service != tt.expectedService || category != tt.expectedCategory || sequence != tt.expectedSequence {
				t.Errorf("ParseCode(%d) = (%d, %d, %d), want (%d, %d, %d)",
					tt.code, service, category, sequence,
					tt.expectedService, tt.expectedCategory, tt.expectedSequence)
			}
			if GetService(tt.code) != service || GetCategory(tt.code) != category || GetSequence(tt.code) != sequence {
				t.Errorf("Get* helpers disagree with ParseCode for %d", tt.code)
			}
		})
	}
}

func TestErrnoError(t *testing.T) {
	e := ErrDatabase.WithCause(fmt.Errorf("connection reset"))
	if !strings.Contains(e.Error(), "connection reset") {
		t.Errorf("Error() = %q, want cause included", e.Error())
	}
	if ErrDatabase.cause != nil {
		t.Error("WithCause must not mutate the registered sentinel")
	}
}

func TestErrnoIs(t *testing.T) {
	wrapped := fmt.Errorf("read user1: %w", ErrNotFound.WithMessage("user1 missing"))

	if !stderrors.Is(wrapped, ErrNotFound) {
		t.Error("errors.Is should match by code through wrapping")
	}
	if stderrors.Is(wrapped, ErrDatabase) {
		t.Error("errors.Is should not match a different code")
	}
	if !IsCode(wrapped, ErrNotFound.Code) {
		t.Error("IsCode should see through fmt wrapping")
	}
	if GetCode(fmt.Errorf("plain")) != -1 {
		t.Error("GetCode of a non-Errno should be -1")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil) != nil {
		t.Error("FromError(nil) should be nil")
	}

	plain := fmt.Errorf("boom")
	got := FromError(plain)
	if got.Code != ErrInternal.Code {
		t.Errorf("FromError(plain).Code = %d, want %d", got.Code, ErrInternal.Code)
	}
	if !stderrors.Is(got, plain) {
		t.Error("FromError should keep the original cause")
	}

	e := ErrTimeout.WithMessage("sweeper")
	if FromError(fmt.Errorf("ctx: %w", e)) != e {
		t.Error("FromError should return the Errno found in the chain")
	}
}

func TestErrnoFormat(t *testing.T) {
	e := ErrInvalidConfig.WithCause(fmt.Errorf("bad url"))
	verbose := fmt.Sprintf("%+v", e)
	if !strings.Contains(verbose, "[config]") || !strings.Contains(verbose, "caused by: bad url") {
		t.Errorf("%%+v = %q", verbose)
	}
	if fmt.Sprintf("%s", e) != e.Error() {
		t.Errorf("%%s should match Error()")
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Register should panic on duplicate code")
		}
	}()
	Register(&Errno{Code: ErrInternal.Code, Message: "dup"})
}

func TestLookup(t *testing.T) {
	e, ok := Lookup(ErrDBConnection.Code)
	if !ok || e != ErrDBConnection {
		t.Errorf("Lookup(%d) = %v, %v", ErrDBConnection.Code, e, ok)
	}
	if _, ok := Lookup(9999999); ok {
		t.Error("Lookup of unknown code should fail")
	}
}
