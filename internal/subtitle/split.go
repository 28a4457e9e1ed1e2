package subtitle

// DefaultMaxSegments bounds how many cues are sent to an external transform
// in one request.
const DefaultMaxSegments = 20

// Split partitions the document into order-preserving chunks of at most
// maxSegments cues. The last chunk may be smaller. Chunks are views into the
// receiver's segment slice; callers must not mutate the source afterwards.
func Split(doc Document, maxSegments int) []Document {
	if maxSegments <= 0 {
		maxSegments = DefaultMaxSegments
	}
	if len(doc.Segments) == 0 {
		return nil
	}
	chunks := make([]Document, 0, (len(doc.Segments)+maxSegments-1)/maxSegments)
	for start := 0; start < len(doc.Segments); start += maxSegments {
		end := start + maxSegments
		if end > len(doc.Segments) {
			end = len(doc.Segments)
		}
		chunks = append(chunks, Document{Segments: doc.Segments[start:end]})
	}
	return chunks
}

// Combine concatenates chunks in order and restores canonical numbering.
// This is the only place global ordinals are rebuilt, so whatever numbering
// an external transform returned per chunk is irrelevant.
func Combine(chunks []Document) Document {
	var total int
	for _, chunk := range chunks {
		total += len(chunk.Segments)
	}
	combined := Document{Segments: make([]Segment, 0, total)}
	for _, chunk := range chunks {
		combined.Segments = append(combined.Segments, chunk.Segments...)
	}
	combined.Renumber()
	return combined
}
