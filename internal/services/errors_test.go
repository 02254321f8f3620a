package services_test

import (
	"errors"
	"strings"
	"testing"

	"genomefetch/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalService, "entrez", "esearch", "request failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"entrez", "esearch", "request failed"} {
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

func TestMarkerPredicates(t *testing.T) {
	notFound := services.Wrap(services.ErrNotFound, "archive", "fetch", "missing", nil)
	if !services.IsNotFound(notFound) {
		t.Fatal("expected IsNotFound to match")
	}
	if services.IsValidation(notFound) {
		t.Fatal("did not expect IsValidation to match")
	}
	invalid := services.Wrap(services.ErrValidation, "repackage", "validate", "placeholder sequence", nil)
	if !services.IsValidation(invalid) {
		t.Fatal("expected IsValidation to match")
	}
}
