package services_test

import (
	"errors"
	"testing"

	"ferry/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	cause := errors.New("connection reset")
	err := services.Wrap(services.ErrTransient, "migration", "download", "fetch source", cause)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatal("expected ErrTransient classification")
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected cause to remain unwrappable")
	}
	want := "transient failure: migration: download: fetch source: connection reset"
	if err.Error() != want {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatal("expected nil marker to default to ErrTransient")
	}
	if err.Error() != "transient failure: service failure" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestWrapValidation(t *testing.T) {
	err := services.Wrap(services.ErrValidation, "migration", "download", "malformed source url", nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatal("expected ErrValidation classification")
	}
	if errors.Is(err, services.ErrTransient) {
		t.Fatal("validation errors must not classify as transient")
	}
}
