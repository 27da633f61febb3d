package provider_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"ferry/internal/provider"
	"ferry/internal/services"
	"ferry/internal/testsupport"
)

func TestFetchReturnsBody(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, 1024)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	client := provider.New(testsupport.NewConfig(t))
	data, err := client.Fetch(context.Background(), server.URL+"/v/abc.mp4")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Fatalf("expected %d bytes, got %d", len(payload), len(data))
	}
}

func TestFetchRejectsMalformedURL(t *testing.T) {
	client := provider.New(testsupport.NewConfig(t))
	_, err := client.Fetch(context.Background(), "not a url")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestFetchNon2xxIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusBadGateway)
	}))
	defer server.Close()

	client := provider.New(testsupport.NewConfig(t))
	_, err := client.Fetch(context.Background(), server.URL)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestFetchEnforcesSizeCap(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(bytes.Repeat([]byte{0x01}, 2048))
	}))
	defer server.Close()

	client := provider.NewWithDoer(http.DefaultClient, 1024)
	_, err := client.Fetch(context.Background(), server.URL)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected size-cap validation error, got %v", err)
	}
}

func TestFetchRejectsEmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	client := provider.New(testsupport.NewConfig(t))
	_, err := client.Fetch(context.Background(), server.URL)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error for empty body, got %v", err)
	}
}
