package subtitle

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Segment is one timed cue: a 1-based index, a start/end pair, and the
// text lines shown between them.
type Segment struct {
	Index int
	Start time.Duration
	End   time.Duration
	Lines []string
}

// Document is the ordered cue list for one language variant of one video.
type Document struct {
	Segments []Segment
}

// ErrEmptyDocument is returned when parsing input that contains no cues.
var ErrEmptyDocument = errors.New("subtitle document has no cues")

// Parse reads SRT text into a Document. Ordinal lines are treated
// permissively: a missing or garbled cue number does not fail the parse, the
// cue is kept and renumbered on render. Timestamp lines must be well formed.
func Parse(text string) (Document, error) {
	content := strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if content == "" {
		return Document{}, nil
	}

	var doc Document
	for _, block := range strings.Split(content, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		seg, err := parseBlock(block, len(doc.Segments)+1)
		if err != nil {
			return Document{}, err
		}
		doc.Segments = append(doc.Segments, seg)
	}
	return doc, nil
}

func parseBlock(block string, ordinal int) (Segment, error) {
	lines := strings.Split(block, "\n")

	// The first line is usually the cue number. Tolerate its absence: some
	// transforms drop or mangle it, and render renumbers anyway.
	cursor := 0
	if _, err := strconv.Atoi(strings.TrimSpace(lines[0])); err == nil {
		cursor = 1
	}
	if cursor >= len(lines) {
		return Segment{}, fmt.Errorf("cue %d: missing timestamp line", ordinal)
	}

	start, end, err := parseTimestampLine(lines[cursor])
	if err != nil {
		return Segment{}, fmt.Errorf("cue %d: %w", ordinal, err)
	}

	var text []string
	for _, line := range lines[cursor+1:] {
		text = append(text, strings.TrimRight(line, " \t"))
	}

	return Segment{
		Index: ordinal,
		Start: start,
		End:   end,
		Lines: text,
	}, nil
}

func parseTimestampLine(line string) (time.Duration, time.Duration, error) {
	parts := strings.Split(line, "-->")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid timestamp line %q", strings.TrimSpace(line))
	}
	start, err := ParseTimestamp(parts[0])
	if err != nil {
		return 0, 0, err
	}
	end, err := ParseTimestamp(parts[1])
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// ParseTimestamp reads an SRT timestamp (HH:MM:SS,mmm). A period separator is
// accepted, and millisecond fields longer than three digits are truncated.
func ParseTimestamp(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, errors.New("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	millisText := timeParts[1]
	if len(millisText) > 3 {
		millisText = millisText[:3]
	}
	hours, errH := strconv.Atoi(strings.TrimSpace(hms[0]))
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(millisText)
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	if hours < 0 || minutes < 0 || seconds < 0 || millis < 0 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	total := time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(millis)*time.Millisecond
	return total, nil
}

// FormatTimestamp renders a duration as HH:MM:SS,mmm. Sub-millisecond
// precision is truncated, never rounded.
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	millis := d.Milliseconds()
	hours := millis / 3_600_000
	millis -= hours * 3_600_000
	minutes := millis / 60_000
	millis -= minutes * 60_000
	seconds := millis / 1_000
	millis -= seconds * 1_000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, millis)
}

// Render serializes the Document as SRT text with canonical contiguous
// ordinals starting at 1, regardless of the stored indexes.
func (d Document) Render() string {
	if len(d.Segments) == 0 {
		return ""
	}
	var b strings.Builder
	for i, seg := range d.Segments {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString("\n")
		b.WriteString(FormatTimestamp(seg.Start))
		b.WriteString(" --> ")
		b.WriteString(FormatTimestamp(seg.End))
		b.WriteString("\n")
		for _, line := range seg.Lines {
			// A blank line would read as a block boundary on reparse.
			if strings.TrimSpace(line) == "" {
				continue
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Renumber rewrites segment indexes to the canonical 1..N sequence.
func (d *Document) Renumber() {
	for i := range d.Segments {
		d.Segments[i].Index = i + 1
	}
}

// Validate reports whether every cue has a well-formed time pair with the end
// strictly after the start and at least one non-empty text line. An empty
// Document is valid but degenerate.
func (d Document) Validate() bool {
	for _, seg := range d.Segments {
		if seg.End <= seg.Start {
			return false
		}
		hasText := false
		for _, line := range seg.Lines {
			if strings.TrimSpace(line) != "" {
				hasText = true
				break
			}
		}
		if !hasText {
			return false
		}
	}
	return true
}

// Equal compares two documents by timing and text, ignoring stored ordinals.
func (d Document) Equal(other Document) bool {
	if len(d.Segments) != len(other.Segments) {
		return false
	}
	for i, seg := range d.Segments {
		o := other.Segments[i]
		if seg.Start != o.Start || seg.End != o.End {
			return false
		}
		if len(seg.Lines) != len(o.Lines) {
			return false
		}
		for j, line := range seg.Lines {
			if line != o.Lines[j] {
				return false
			}
		}
	}
	return true
}
