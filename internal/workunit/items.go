// Package workunit manages the file artifacts that partition a batch: chunk
// files holding item IDs, their completion markers, and the per-chunk log and
// event paths.
package workunit

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ReadItemList reads newline-delimited item IDs from path. Blank lines and
// lines beginning with '#' are ignored.
func ReadItemList(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open item list: %w", err)
	}
	defer file.Close()

	var items []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		items = append(items, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read item list: %w", err)
	}
	return items, nil
}
