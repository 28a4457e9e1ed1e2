// Package pipeline runs the ordered stage sequence for one item: fetch
// metadata, acquire and transcribe audio, correct and translate the
// transcript, and publish the results. Outcomes are recorded in the status
// ledger after every stage so a killed worker resumes exactly where the
// ledger left off.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"subforge/internal/config"
	"subforge/internal/events"
	"subforge/internal/ledger"
	"subforge/internal/logging"
	"subforge/internal/retry"
	"subforge/internal/services/hosting"
)

// Hosting is the video platform collaborator.
type Hosting interface {
	ListFiles(ctx context.Context, itemID string) ([]hosting.File, error)
	DownloadURL(ctx context.Context, itemID, fileID string) (string, error)
	Download(ctx context.Context, fileURL, dest string) error
	DeleteSubtitles(ctx context.Context, itemID string, languages []string) (int, error)
	UploadSubtitle(ctx context.Context, itemID, language, subtitleText string) error
}

// Transcriber converts a local audio file into subtitle text.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

// TextService is the chat-completion collaborator used for correction and
// translation.
type TextService interface {
	Complete(ctx context.Context, model, system, user string, temperature float64) (string, error)
}

// Deliverer sends finished captions to the downstream content API.
type Deliverer interface {
	Deliver(ctx context.Context, itemID, captionText string) error
}

// Emitter records stage transitions; the scheduler supplies a per-chunk
// events.Writer.
type Emitter interface {
	Emit(itemID, stage string, outcome events.Outcome, detail string) error
}

// Pipeline holds the collaborators needed to process items.
type Pipeline struct {
	cfg        *config.Config
	store      *ledger.Store
	hosting    Hosting
	transcribe Transcriber
	text       TextService
	deliver    Deliverer
	emitter    Emitter
	logger     *slog.Logger
	policy     retry.Policy
}

// Option customizes pipeline construction.
type Option func(*Pipeline)

// WithRetryPolicy overrides the retry policy derived from config.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(p *Pipeline) {
		p.policy = policy
	}
}

// WithEmitter sets the stage-transition event sink.
func WithEmitter(emitter Emitter) Option {
	return func(p *Pipeline) {
		p.emitter = emitter
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New constructs a pipeline. deliver may be nil when downstream delivery is
// disabled; the downstream flag then defaults to success so it never blocks
// terminal state.
func New(cfg *config.Config, store *ledger.Store, host Hosting, transcriber Transcriber, text TextService, deliver Deliverer, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:        cfg,
		store:      store,
		hosting:    host,
		transcribe: transcriber,
		text:       text,
		deliver:    deliver,
		logger:     logging.NewNop(),
		policy: retry.Policy{
			Attempts: cfg.Retry.Attempts,
			Delay:    time.Duration(cfg.Retry.DelaySeconds) * time.Second,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) emit(itemID, stage string, outcome events.Outcome, detail string) {
	if p.emitter == nil {
		return
	}
	if err := p.emitter.Emit(itemID, stage, outcome, detail); err != nil {
		p.logger.Warn("event emit failed",
			logging.String(logging.FieldItemID, itemID),
			logging.String(logging.FieldStage, stage),
			logging.Error(err),
		)
	}
}

// languageName renders an ISO 639-1 code as an English language name for the
// transform prompts. Unparseable tags fall back to the raw code.
func languageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return code
}
