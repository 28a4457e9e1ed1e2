package subtitle

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"subforge/internal/logging"
	"subforge/internal/retry"
)

// TransformFunc sends serialized SRT text through an external service and
// returns the transformed text.
type TransformFunc func(ctx context.Context, text string) (string, error)

// TransformStyle selects the acceptance and fallback rules for a transform.
type TransformStyle int

const (
	// StyleCorrection edits text in place. A no-op is safe, so a chunk that
	// exhausts its retries falls back to the original text.
	StyleCorrection TransformStyle = iota
	// StyleTranslation replaces text with another language. A no-op is not
	// acceptable, so exhausted retries fail the whole transform. Timestamps
	// must come back byte-identical.
	StyleTranslation
)

func (s TransformStyle) String() string {
	if s == StyleTranslation {
		return "translation"
	}
	return "correction"
}

// Transform splits doc into chunks of at most maxSegments cues (zero selects
// DefaultMaxSegments), round-trips each through fn, and recombines the
// results with canonical numbering. Each chunk is validated and retried
// independently; a bad response never forces the whole document back through
// the service.
func Transform(ctx context.Context, doc Document, fn TransformFunc, style TransformStyle, maxSegments int, policy retry.Policy, logger *slog.Logger) (Document, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if fn == nil {
		return Document{}, fmt.Errorf("%s transform: nil transform func", style)
	}

	chunks := Split(doc, maxSegments)
	transformed := make([]Document, 0, len(chunks))

	for i, chunk := range chunks {
		logger.Debug("transforming chunk",
			logging.String("style", style.String()),
			logging.Int("chunk", i+1),
			logging.Int("chunks", len(chunks)),
			logging.Int("segments", len(chunk.Segments)),
		)

		result, err := retry.DoValue(ctx, policy,
			func(ctx context.Context) (Document, error) {
				raw, callErr := fn(ctx, chunk.Render())
				if callErr != nil {
					return Document{}, callErr
				}
				return acceptChunk(chunk, raw, style)
			},
			nil,
		)
		if err != nil {
			if style == StyleCorrection {
				logger.Warn("chunk correction exhausted retries, keeping original text",
					logging.Int("chunk", i+1),
					logging.Error(err),
				)
				transformed = append(transformed, chunk)
				continue
			}
			return Document{}, fmt.Errorf("translate chunk %d/%d: %w", i+1, len(chunks), err)
		}
		transformed = append(transformed, result)
	}

	return Combine(transformed), nil
}

// acceptChunk decides whether a service response is usable for the given
// chunk. Rejections are returned as errors so the retry policy re-sends the
// chunk.
func acceptChunk(original Document, raw string, style TransformStyle) (Document, error) {
	parsed, err := Parse(strings.TrimSpace(raw))
	if err != nil {
		return Document{}, fmt.Errorf("response is not valid subtitle text: %w", err)
	}
	if !parsed.Validate() {
		return Document{}, fmt.Errorf("response failed structural validation")
	}
	if len(parsed.Segments) == 0 {
		return Document{}, fmt.Errorf("response contains no cues")
	}

	if style == StyleTranslation {
		if len(parsed.Segments) != len(original.Segments) {
			return Document{}, fmt.Errorf("response has %d cues, expected %d", len(parsed.Segments), len(original.Segments))
		}
		// The service only rewrites text lines. Changed timestamps mean the
		// structure was not preserved.
		for i, seg := range parsed.Segments {
			if seg.Start != original.Segments[i].Start || seg.End != original.Segments[i].End {
				return Document{}, fmt.Errorf("cue %d: response altered timestamps", i+1)
			}
		}
	}

	return parsed, nil
}
