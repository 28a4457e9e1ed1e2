package workunit_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"subforge/internal/workunit"
)

func TestReadItemListSkipsBlanksAndComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.txt")
	content := "vid-a\n\n# a comment\n  vid-b  \nvid-c\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	items, err := workunit.ReadItemList(path)
	if err != nil {
		t.Fatalf("ReadItemList failed: %v", err)
	}
	want := []string{"vid-a", "vid-b", "vid-c"}
	if len(items) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(items))
	}
	for i, item := range items {
		if item != want[i] {
			t.Fatalf("item %d: got %q, want %q", i, item, want[i])
		}
	}
}

func TestPartitionCeilingDivision(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}
	groups := workunit.Partition(items, 2)
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}
	if len(groups[2]) != 1 || groups[2][0] != "e" {
		t.Fatalf("unexpected last group: %v", groups[2])
	}
	if workunit.Partition(nil, 2) != nil {
		t.Fatal("expected nil for empty input")
	}
	if workunit.Partition(items, 0) != nil {
		t.Fatal("expected nil for non-positive size")
	}
}

func TestWriteChunksNamingAndListOrder(t *testing.T) {
	dir := t.TempDir()
	items := make([]string, 25)
	for i := range items {
		items[i] = "vid-" + strings.Repeat("x", i+1)
	}

	written, err := workunit.WriteChunks(dir, items, 10)
	if err != nil {
		t.Fatalf("WriteChunks failed: %v", err)
	}
	if len(written) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(written))
	}
	if written[0].Name != "chunk_001.txt" || written[2].Name != "chunk_003.txt" {
		t.Fatalf("unexpected names: %s, %s", written[0].Name, written[2].Name)
	}

	listed, err := workunit.List(dir)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("expected 3 listed chunks, got %d", len(listed))
	}
	total := 0
	for _, chunk := range listed {
		total += len(chunk.Items)
	}
	if total != 25 {
		t.Fatalf("expected 25 items across chunks, got %d", total)
	}
}

func TestWriteChunksRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	if _, err := workunit.WriteChunks(dir, []string{"vid-a"}, 10); err != nil {
		t.Fatalf("WriteChunks failed: %v", err)
	}
	if _, err := workunit.WriteChunks(dir, []string{"vid-b"}, 10); err == nil {
		t.Fatal("expected overwrite refusal")
	}
}

func TestMarkerLifecycle(t *testing.T) {
	dir := t.TempDir()
	written, err := workunit.WriteChunks(dir, []string{"vid-a"}, 10)
	if err != nil {
		t.Fatalf("WriteChunks failed: %v", err)
	}
	chunk := written[0]

	if chunk.HasMarker() {
		t.Fatal("fresh chunk should have no marker")
	}
	if err := chunk.WriteMarker(); err != nil {
		t.Fatalf("WriteMarker failed: %v", err)
	}
	if !chunk.HasMarker() {
		t.Fatal("expected marker after write")
	}
	data, err := os.ReadFile(chunk.MarkerPath())
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !strings.HasPrefix(string(data), "Completed at: ") {
		t.Fatalf("unexpected marker content: %q", data)
	}
	if err := chunk.RemoveMarker(); err != nil {
		t.Fatalf("RemoveMarker failed: %v", err)
	}
	if chunk.HasMarker() {
		t.Fatal("expected marker removed")
	}
	// Removing an absent marker is not an error.
	if err := chunk.RemoveMarker(); err != nil {
		t.Fatalf("RemoveMarker on absent marker failed: %v", err)
	}
}

func TestLogActiveSince(t *testing.T) {
	dir := t.TempDir()
	written, err := workunit.WriteChunks(dir, []string{"vid-a"}, 10)
	if err != nil {
		t.Fatalf("WriteChunks failed: %v", err)
	}
	chunk := written[0]

	if chunk.LogActiveSince(time.Now().Add(-time.Hour)) {
		t.Fatal("missing log should not count as active")
	}
	if err := os.WriteFile(chunk.LogPath(), []byte("line\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if !chunk.LogActiveSince(time.Now().Add(-time.Hour)) {
		t.Fatal("fresh log should count as active")
	}
	if chunk.LogActiveSince(time.Now().Add(time.Hour)) {
		t.Fatal("future cutoff should not count as active")
	}
}
