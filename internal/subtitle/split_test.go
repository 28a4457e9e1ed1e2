package subtitle_test

import (
	"fmt"
	"testing"
	"time"

	"subforge/internal/subtitle"
)

func buildDocument(n int) subtitle.Document {
	doc := subtitle.Document{}
	for i := 0; i < n; i++ {
		doc.Segments = append(doc.Segments, subtitle.Segment{
			Index: i + 1,
			Start: time.Duration(i) * time.Second,
			End:   time.Duration(i+1) * time.Second,
			Lines: []string{fmt.Sprintf("cue %d", i+1)},
		})
	}
	return doc
}

func TestSplitChunkSizes(t *testing.T) {
	doc := buildDocument(45)
	chunks := subtitle.Split(doc, 20)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	sizes := []int{len(chunks[0].Segments), len(chunks[1].Segments), len(chunks[2].Segments)}
	if sizes[0] != 20 || sizes[1] != 20 || sizes[2] != 5 {
		t.Fatalf("unexpected chunk sizes: %v", sizes)
	}
}

func TestSplitEmptyDocument(t *testing.T) {
	if chunks := subtitle.Split(subtitle.Document{}, 20); chunks != nil {
		t.Fatalf("expected nil chunks, got %d", len(chunks))
	}
}

func TestSplitDefaultsSize(t *testing.T) {
	chunks := subtitle.Split(buildDocument(25), 0)
	if len(chunks) != 2 {
		t.Fatalf("expected default chunk size of %d, got %d chunks",
			subtitle.DefaultMaxSegments, len(chunks))
	}
}

func TestCombineRestoresNumbering(t *testing.T) {
	doc := buildDocument(45)
	chunks := subtitle.Split(doc, 20)
	// Simulate an external service returning per-chunk numbering.
	for ci := range chunks {
		for si := range chunks[ci].Segments {
			chunks[ci].Segments[si].Index = si + 1
		}
	}
	combined := subtitle.Combine(chunks)
	if len(combined.Segments) != 45 {
		t.Fatalf("expected 45 segments, got %d", len(combined.Segments))
	}
	for i, seg := range combined.Segments {
		if seg.Index != i+1 {
			t.Fatalf("segment %d has ordinal %d", i, seg.Index)
		}
	}
	if !combined.Equal(doc) {
		t.Fatal("combine changed timing or text")
	}
}
