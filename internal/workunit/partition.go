package workunit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Partition splits items into order-preserving groups of at most size. The
// group count is the ceiling division; the last group may be smaller.
func Partition(items []string, size int) [][]string {
	if size <= 0 || len(items) == 0 {
		return nil
	}
	groups := make([][]string, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		groups = append(groups, items[start:end])
	}
	return groups
}

// WriteChunks partitions items and persists one chunk file per group under
// dir, named chunk_001.txt onward. It refuses to overwrite existing chunk
// files: chunks are immutable once created.
func WriteChunks(dir string, items []string, size int) ([]Chunk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create chunks dir: %w", err)
	}

	groups := Partition(items, size)
	chunks := make([]Chunk, 0, len(groups))
	for i, group := range groups {
		name := fmt.Sprintf("%s%03d%s", chunkPrefix, i+1, chunkExt)
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return nil, fmt.Errorf("chunk file already exists: %s", path)
		}
		content := strings.Join(group, "\n") + "\n"
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return nil, fmt.Errorf("write chunk %s: %w", name, err)
		}
		chunks = append(chunks, Chunk{Name: name, Path: path, Items: group})
	}
	return chunks, nil
}
