package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteChunkFile creates a chunk file listing the given item IDs.
func WriteChunkFile(t testing.TB, dir, name string, itemIDs ...string) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	content := ""
	for _, id := range itemIDs {
		content += id + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// SampleTranscript returns a small well-formed subtitle document as text.
func SampleTranscript() string {
	return "1\n00:00:00,000 --> 00:00:02,500\nhello there\n\n" +
		"2\n00:00:02,500 --> 00:00:05,000\nhow are you today\n"
}
