package services_test

import (
	"errors"
	"strings"
	"testing"

	"fieldingest/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "parse", "submit", "backend rejected request", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"parse", "submit", "backend rejected request"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestFailureSeverityMapping(t *testing.T) {
	validationErr := services.Wrap(services.ErrValidation, "inputs", "check", "missing mode", nil)
	if sev := services.FailureSeverity(validationErr); sev != services.SeverityBlocked {
		t.Fatalf("expected blocked for validation error, got %s", sev)
	}

	transientErr := services.Wrap(services.ErrTransient, "parse", "status", "timeout", errors.New("io"))
	if sev := services.FailureSeverity(transientErr); sev != services.SeverityFailed {
		t.Fatalf("expected failed for transient error, got %s", sev)
	}

	if sev := services.FailureSeverity(nil); sev != services.SeverityFailed {
		t.Fatalf("expected failed for nil error, got %s", sev)
	}
}
