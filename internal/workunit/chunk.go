package workunit

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	chunkPrefix = "chunk_"
	chunkExt    = ".txt"
	markerExt   = ".completed"
	logExt      = ".log"
	eventsExt   = ".events"
)

// Chunk is one persisted work unit: an ordered, named list of item IDs.
// Chunk files are immutable once written.
type Chunk struct {
	Name  string
	Path  string
	Items []string
}

// List loads every chunk file in dir, sorted by name. Zero-padded numbering
// makes the lexical order the processing order.
func List(dir string) ([]Chunk, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read chunks dir: %w", err)
	}

	var chunks []Chunk
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, chunkPrefix) || !strings.HasSuffix(name, chunkExt) {
			continue
		}
		path := filepath.Join(dir, name)
		items, err := ReadItemList(path)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", name, err)
		}
		chunks = append(chunks, Chunk{Name: name, Path: path, Items: items})
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Name < chunks[j].Name })
	return chunks, nil
}

// MarkerPath returns the chunk's completion marker location.
func (c Chunk) MarkerPath() string {
	return strings.TrimSuffix(c.Path, chunkExt) + markerExt
}

// LogPath returns the chunk's execution log location.
func (c Chunk) LogPath() string {
	return strings.TrimSuffix(c.Path, chunkExt) + logExt
}

// EventsPath returns the chunk's structured event stream location.
func (c Chunk) EventsPath() string {
	return strings.TrimSuffix(c.Path, chunkExt) + eventsExt
}

// HasMarker reports whether the completion marker exists.
func (c Chunk) HasMarker() bool {
	_, err := os.Stat(c.MarkerPath())
	return err == nil
}

// WriteMarker creates the completion marker. Its content is informational
// only; presence is the signal.
func (c Chunk) WriteMarker() error {
	content := fmt.Sprintf("Completed at: %s\n", time.Now().UTC().Format(time.RFC3339))
	if err := os.WriteFile(c.MarkerPath(), []byte(content), 0o644); err != nil {
		return fmt.Errorf("write completion marker: %w", err)
	}
	return nil
}

// RemoveMarker deletes the completion marker if present.
func (c Chunk) RemoveMarker() error {
	err := os.Remove(c.MarkerPath())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove completion marker: %w", err)
	}
	return nil
}

// LogActiveSince reports whether the chunk's log was modified after cutoff,
// indicating a worker is (or recently was) processing it.
func (c Chunk) LogActiveSince(cutoff time.Time) bool {
	info, err := os.Stat(c.LogPath())
	if err != nil {
		return false
	}
	return info.ModTime().After(cutoff)
}
