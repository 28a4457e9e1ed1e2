package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"subforge/internal/config"
	"subforge/internal/events"
	"subforge/internal/ledger"
	"subforge/internal/pipeline"
	"subforge/internal/retry"
	"subforge/internal/services"
	"subforge/internal/services/hosting"
	"subforge/internal/testsupport"
)

type fakeHosting struct {
	mu          sync.Mutex
	files       []hosting.File
	listErr     error
	downloadErr error
	uploadErrs  map[string]error
	uploads     map[string]string
	deleted     []string
}

func newFakeHosting() *fakeHosting {
	return &fakeHosting{
		files: []hosting.File{{
			ID:             "file-1",
			Name:           "original.mp4",
			EncryptionType: "original",
			AudioCodec:     "aac",
			Downloadable:   true,
		}},
		uploadErrs: map[string]error{},
		uploads:    map[string]string{},
	}
}

func (f *fakeHosting) ListFiles(ctx context.Context, itemID string) ([]hosting.File, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.files, nil
}

func (f *fakeHosting) DownloadURL(ctx context.Context, itemID, fileID string) (string, error) {
	return "https://cdn.example.com/" + itemID + "/" + fileID, nil
}

func (f *fakeHosting) Download(ctx context.Context, fileURL, dest string) error {
	if f.downloadErr != nil {
		return f.downloadErr
	}
	return os.WriteFile(dest, []byte("audio-bytes"), 0o644)
}

func (f *fakeHosting) DeleteSubtitles(ctx context.Context, itemID string, languages []string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, itemID)
	return len(languages), nil
}

func (f *fakeHosting) UploadSubtitle(ctx context.Context, itemID, language, subtitleText string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.uploadErrs[language]; err != nil {
		return err
	}
	f.uploads[language] = subtitleText
	return nil
}

type fakeTranscriber struct {
	err error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, path string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("audio file missing: %w", err)
	}
	return testsupport.SampleTranscript(), nil
}

// fakeText echoes the prompt text back, optionally tagging the lines so tests
// can tell corrected output from translated output.
type fakeText struct {
	mu      sync.Mutex
	failAll error
	seen    []string
}

func (f *fakeText) Complete(ctx context.Context, model, system, user string, temperature float64) (string, error) {
	f.mu.Lock()
	f.seen = append(f.seen, system)
	f.mu.Unlock()
	if f.failAll != nil {
		return "", f.failAll
	}
	return user, nil
}

type fakeDeliverer struct {
	mu        sync.Mutex
	err       error
	delivered map[string]string
}

func (f *fakeDeliverer) Deliver(ctx context.Context, itemID, captionText string) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delivered == nil {
		f.delivered = map[string]string{}
	}
	f.delivered[itemID] = captionText
	return nil
}

type fixture struct {
	cfg     *config.Config
	store   *ledger.Store
	hosting *fakeHosting
	trans   *fakeTranscriber
	text    *fakeText
	deliver *fakeDeliverer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Downstream.Enabled = true
	return &fixture{
		cfg:     cfg,
		store:   testsupport.MustOpenLedger(t, cfg),
		hosting: newFakeHosting(),
		trans:   &fakeTranscriber{},
		text:    &fakeText{},
		deliver: &fakeDeliverer{},
	}
}

// pipeline builds the unit under test. The test config uses a single retry
// attempt with no delay, so failure paths stay fast.
func (fx *fixture) pipeline() *pipeline.Pipeline {
	return pipeline.New(fx.cfg, fx.store, fx.hosting, fx.trans, fx.text, fx.deliver,
		pipeline.WithRetryPolicy(retry.Policy{Attempts: 1}),
	)
}

func TestProcessFullSuccess(t *testing.T) {
	fx := newFixture(t)
	p := fx.pipeline()

	status, err := p.Process(context.Background(), "vid-ok")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if !status.Succeeded() {
		t.Fatalf("expected full success, got %#v", status)
	}

	// Primary plus both translation tracks were uploaded.
	for _, lang := range []string{"he", "ar", "ru"} {
		if _, ok := fx.hosting.uploads[lang]; !ok {
			t.Fatalf("missing %s upload; have %v", lang, keys(fx.hosting.uploads))
		}
	}
	if _, ok := fx.deliver.delivered["vid-ok"]; !ok {
		t.Fatal("expected downstream delivery")
	}
	if len(fx.hosting.deleted) == 0 {
		t.Fatal("expected stale subtitle cleanup")
	}

	persisted, err := fx.store.Get(context.Background(), "vid-ok")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if persisted == nil || !persisted.Succeeded() {
		t.Fatalf("expected persisted success, got %#v", persisted)
	}
}

func TestProcessSkipsAlreadyUploaded(t *testing.T) {
	fx := newFixture(t)
	testsupport.SeedStatus(t, fx.store, ledger.Status{ItemID: "vid-done", HostingUploaded: true})
	p := fx.pipeline()

	status, err := p.Process(context.Background(), "vid-done")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if !status.HostingUploaded {
		t.Fatalf("expected existing status returned, got %#v", status)
	}
	if len(fx.hosting.uploads) != 0 {
		t.Fatal("skipped item must not touch the hosting service")
	}
}

func TestProcessMetadataFailureIsHard(t *testing.T) {
	fx := newFixture(t)
	fx.hosting.listErr = errors.New("api down")
	p := fx.pipeline()

	status, err := p.Process(context.Background(), "vid-nometa")
	if err == nil {
		t.Fatal("expected hard failure")
	}
	if status.Succeeded() || status.HostingUploaded || status.TranslationA {
		t.Fatalf("hard failure must leave all flags false: %#v", status)
	}

	persisted, getErr := fx.store.Get(context.Background(), "vid-nometa")
	if getErr != nil {
		t.Fatalf("Get failed: %v", getErr)
	}
	if persisted == nil {
		t.Fatal("hard failure must still record the attempt")
	}
}

func TestProcessMetadataFailureKeepsClassification(t *testing.T) {
	fx := newFixture(t)
	fx.hosting.listErr = services.Wrap(services.ErrTransient, "hosting", "list files", "http 502", nil)
	p := fx.pipeline()

	_, err := p.Process(context.Background(), "vid-flaky")
	if err == nil {
		t.Fatal("expected hard failure")
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient classification preserved, got %v", err)
	}
	if errors.Is(err, services.ErrNotFound) {
		t.Fatalf("a 5xx must not be reported as missing: %v", err)
	}

	fx.hosting.listErr = services.Wrap(services.ErrNotFound, "hosting", "list files", "http 404", nil)
	_, err = p.Process(context.Background(), "vid-gone")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found classification, got %v", err)
	}
}

func TestProcessNoAudioIsHard(t *testing.T) {
	fx := newFixture(t)
	fx.hosting.files = []hosting.File{{
		ID:             "file-1",
		Name:           "stream.m3u8",
		EncryptionType: "drm",
		Downloadable:   false,
	}}
	p := fx.pipeline()

	if _, err := p.Process(context.Background(), "vid-noaudio"); err == nil {
		t.Fatal("expected hard failure when no audio source exists")
	}
}

func TestProcessFallsBackToHLSAudio(t *testing.T) {
	fx := newFixture(t)
	hls := &hosting.HLS{}
	hls.Params.Streams = []hosting.Stream{
		{ContentType: "video", URL: "https://cdn.example.com/v.m3u8"},
		{ContentType: "audio", URL: "https://cdn.example.com/a.m3u8"},
	}
	fx.hosting.files = []hosting.File{{
		ID:   "file-1",
		Name: "playback",
		HLS:  hls,
	}}
	p := fx.pipeline()

	status, err := p.Process(context.Background(), "vid-hls")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if !status.Succeeded() {
		t.Fatalf("expected success via HLS audio, got %#v", status)
	}
}

func TestProcessSkipsNonAACOriginal(t *testing.T) {
	fx := newFixture(t)
	hls := &hosting.HLS{}
	hls.Params.Streams = []hosting.Stream{
		{ContentType: "audio", URL: "https://cdn.example.com/a.m3u8"},
	}
	fx.hosting.files = []hosting.File{
		{
			ID:             "file-1",
			Name:           "original.mp4",
			EncryptionType: "original",
			AudioCodec:     "opus",
			Downloadable:   true,
		},
		{ID: "file-2", Name: "playback", HLS: hls},
	}
	p := fx.pipeline()

	status, err := p.Process(context.Background(), "vid-opus")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if !status.Succeeded() {
		t.Fatalf("expected HLS fallback past the non-aac original, got %#v", status)
	}
}

func TestProcessTranscriptionFailureIsHard(t *testing.T) {
	fx := newFixture(t)
	fx.trans.err = errors.New("whisper unavailable")
	p := fx.pipeline()

	status, err := p.Process(context.Background(), "vid-notext")
	if err == nil {
		t.Fatal("expected hard failure when transcription is exhausted")
	}
	if status.HostingUploaded || status.TranslationA || status.TranslationB || status.DownstreamSent {
		t.Fatalf("expected all-false status: %#v", status)
	}
}

func TestProcessTranslationUploadFailureIsSoft(t *testing.T) {
	fx := newFixture(t)
	fx.hosting.uploadErrs["ar"] = errors.New("upload rejected")
	p := fx.pipeline()

	status, err := p.Process(context.Background(), "vid-partial")
	if err != nil {
		t.Fatalf("soft failure must not error: %v", err)
	}
	if status.TranslationA {
		t.Fatal("expected translation A flag cleared")
	}
	if !status.TranslationB || !status.HostingUploaded || !status.DownstreamSent {
		t.Fatalf("other stages must be unaffected: %#v", status)
	}
	if status.Succeeded() {
		t.Fatal("partial item must not count as succeeded")
	}
}

func TestProcessCorrectionFailureKeepsRawTranscript(t *testing.T) {
	fx := newFixture(t)
	fx.cfg.Pipeline.EnableTranslation = false
	fx.text.failAll = errors.New("llm down")
	p := fx.pipeline()

	status, err := p.Process(context.Background(), "vid-rawonly")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if !status.HostingUploaded {
		t.Fatal("expected raw transcript upload to succeed")
	}
	uploaded := fx.hosting.uploads["he"]
	if !strings.Contains(uploaded, "hello there") {
		t.Fatalf("expected transcript text in upload, got %q", uploaded)
	}
}

func TestProcessDisabledStagesDefaultTrue(t *testing.T) {
	fx := newFixture(t)
	fx.cfg.Pipeline.EnableTranslation = false
	fx.cfg.Downstream.Enabled = false
	p := pipeline.New(fx.cfg, fx.store, fx.hosting, fx.trans, fx.text, nil)

	status, err := p.Process(context.Background(), "vid-minimal")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if !status.Succeeded() {
		t.Fatalf("disabled stages must not block success: %#v", status)
	}
	if len(fx.hosting.uploads) != 1 {
		t.Fatalf("expected only the primary upload, got %v", keys(fx.hosting.uploads))
	}
}

func TestProcessEmitsItemEvents(t *testing.T) {
	fx := newFixture(t)
	sink := &recordingEmitter{}
	p := pipeline.New(fx.cfg, fx.store, fx.hosting, fx.trans, fx.text, fx.deliver,
		pipeline.WithEmitter(sink))

	if _, err := p.Process(context.Background(), "vid-ev"); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	var sawStart, sawSuccess bool
	for _, ev := range sink.events {
		if ev.stage == events.StageItem && ev.outcome == events.OutcomeStarted {
			sawStart = true
		}
		if ev.stage == events.StageItem && ev.outcome == events.OutcomeSucceeded {
			sawSuccess = true
		}
	}
	if !sawStart || !sawSuccess {
		t.Fatalf("expected item start and success events, got %d events", len(sink.events))
	}
}

type recordedEvent struct {
	itemID  string
	stage   string
	outcome events.Outcome
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordingEmitter) Emit(itemID, stage string, outcome events.Outcome, detail string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{itemID: itemID, stage: stage, outcome: outcome})
	return nil
}

func keys(m map[string]string) []string {
	var out []string
	for k := range m {
		out = append(out, k)
	}
	return out
}
