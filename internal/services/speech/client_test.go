package speech_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"subforge/internal/services"
	"subforge/internal/services/speech"
)

func writeAudio(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.m4a")
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("write audio fixture: %v", err)
	}
	return path
}

func TestTranscribeSendsMultipartForm(t *testing.T) {
	var gotAuth string
	var gotFields map[string]string
	var gotFilename string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		gotFields = map[string]string{}
		for key, values := range r.MultipartForm.Value {
			gotFields[key] = values[0]
		}
		if files := r.MultipartForm.File["file"]; len(files) == 1 {
			gotFilename = files[0].Filename
		}
		w.Write([]byte("1\n00:00:00,000 --> 00:00:01,000\nhello\n"))
	}))
	defer server.Close()

	client := speech.NewClient(speech.Config{
		APIKey:   "key",
		BaseURL:  server.URL,
		Model:    "whisper-1",
		Language: "he",
	})
	transcript, err := client.Transcribe(context.Background(), writeAudio(t, 64))
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if transcript == "" {
		t.Fatal("expected transcript text")
	}
	if gotAuth != "Bearer key" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
	if gotFilename != "clip.m4a" {
		t.Fatalf("unexpected upload filename: %q", gotFilename)
	}
	want := map[string]string{
		"model":           "whisper-1",
		"response_format": "srt",
		"temperature":     "0",
		"language":        "he",
	}
	for key, value := range want {
		if gotFields[key] != value {
			t.Fatalf("field %s = %q, want %q", key, gotFields[key], value)
		}
	}
}

func TestTranscribeRejectsOversizedAudio(t *testing.T) {
	client := speech.NewClient(speech.Config{
		APIKey:         "key",
		BaseURL:        "http://127.0.0.1:0",
		Model:          "whisper-1",
		MaxUploadBytes: 16,
	})
	_, err := client.Transcribe(context.Background(), writeAudio(t, 32))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTranscribeMissingFile(t *testing.T) {
	client := speech.NewClient(speech.Config{APIKey: "key", BaseURL: "http://127.0.0.1:0", Model: "whisper-1"})
	_, err := client.Transcribe(context.Background(), filepath.Join(t.TempDir(), "absent.m4a"))
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestTranscribeEmptyTranscript(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("  \n"))
	}))
	defer server.Close()

	client := speech.NewClient(speech.Config{APIKey: "key", BaseURL: server.URL, Model: "whisper-1"})
	_, err := client.Transcribe(context.Background(), writeAudio(t, 64))
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestTranscribeRetryableStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := speech.NewClient(speech.Config{APIKey: "key", BaseURL: server.URL, Model: "whisper-1"})
	_, err := client.Transcribe(context.Background(), writeAudio(t, 64))
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestTranscribeRequiresAPIKey(t *testing.T) {
	client := speech.NewClient(speech.Config{BaseURL: "http://127.0.0.1:0", Model: "whisper-1"})
	_, err := client.Transcribe(context.Background(), writeAudio(t, 64))
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
