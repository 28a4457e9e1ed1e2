package subtitle

import "strings"

const maxWordsPerLine = 10

// NormalizeTranscript cleans a freshly transcribed document: cue text is
// flattened and re-wrapped so no line exceeds ten words, and ordinals are
// restored to the canonical sequence. Timestamp precision is already
// truncated by the parser.
func NormalizeTranscript(doc Document) Document {
	normalized := Document{Segments: make([]Segment, 0, len(doc.Segments))}
	for _, seg := range doc.Segments {
		seg.Lines = wrapWords(flattenLines(seg.Lines), maxWordsPerLine)
		normalized.Segments = append(normalized.Segments, seg)
	}
	normalized.Renumber()
	return normalized
}

func flattenLines(lines []string) []string {
	var words []string
	for _, line := range lines {
		words = append(words, strings.Fields(line)...)
	}
	return words
}

func wrapWords(words []string, perLine int) []string {
	if len(words) == 0 {
		return nil
	}
	var lines []string
	for start := 0; start < len(words); start += perLine {
		end := start + perLine
		if end > len(words) {
			end = len(words)
		}
		lines = append(lines, strings.Join(words[start:end], " "))
	}
	return lines
}
