package extract_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"ferry/internal/extract"
	"ferry/internal/services"
)

func TestExtractPostsRequestAndReturnsImage(t *testing.T) {
	var got extract.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpeg-bytes"))
	}))
	defer server.Close()

	client := extract.NewWithDoer(server.URL, "", http.DefaultClient)
	image, err := client.Extract(context.Background(), extract.Request{
		SourceURL:  "https://durable.test/videos/abc.mp4",
		TimeOffset: 1,
		Width:      640,
		Height:     360,
	})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if string(image) != "jpeg-bytes" {
		t.Fatalf("unexpected image %q", image)
	}
	if got.SourceURL != "https://durable.test/videos/abc.mp4" || got.Width != 640 || got.Height != 360 {
		t.Fatalf("unexpected request payload: %#v", got)
	}
}

func TestExtractRequiresSourceURL(t *testing.T) {
	client := extract.NewWithDoer("https://extract.test", "", http.DefaultClient)
	_, err := client.Extract(context.Background(), extract.Request{})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestExtractNon2xxIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "codec error", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := extract.NewWithDoer(server.URL, "", http.DefaultClient)
	_, err := client.Extract(context.Background(), extract.Request{SourceURL: "https://a.test/v.mp4"})
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestExtractEmptyImageIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	client := extract.NewWithDoer(server.URL, "", http.DefaultClient)
	_, err := client.Extract(context.Background(), extract.Request{SourceURL: "https://a.test/v.mp4"})
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}
