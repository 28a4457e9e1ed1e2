package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"subforge/internal/events"
	"subforge/internal/ledger"
	"subforge/internal/logging"
	"subforge/internal/services"
	"subforge/internal/services/chat"
	"subforge/internal/services/hosting"
	"subforge/internal/subtitle"
)

// Process runs every stage for one item and returns the resulting ledger
// status. A non-nil error means a hard failure: no usable transcript could be
// produced, so every outcome flag is false. Soft failures (a single publish or
// translation stage) clear only their own flag and do not error.
func (p *Pipeline) Process(ctx context.Context, itemID string) (ledger.Status, error) {
	log := p.logger.With(logging.String(logging.FieldItemID, itemID))

	existing, err := p.store.Get(ctx, itemID)
	if err != nil {
		return ledger.Status{ItemID: itemID}, err
	}
	if existing != nil && existing.HostingUploaded {
		log.Info("item already uploaded, skipping")
		p.emit(itemID, events.StageItem, events.OutcomeSkipped, "already uploaded")
		return *existing, nil
	}

	status := ledger.Status{ItemID: itemID}
	// Disabled stages never run, so they must not block terminal success.
	if !p.cfg.Pipeline.EnableTranslation {
		status.TranslationA = true
		status.TranslationB = true
	}
	if p.deliver == nil {
		status.DownstreamSent = true
	}
	if err := p.store.Upsert(ctx, status); err != nil {
		return status, err
	}

	p.emit(itemID, events.StageItem, events.OutcomeStarted, "")
	log.Info("processing item")

	transcript, err := p.produceTranscript(ctx, itemID, log)
	if err != nil {
		status.DownstreamSent = false
		status.TranslationA = false
		status.TranslationB = false
		if upErr := p.store.Upsert(ctx, status); upErr != nil {
			log.Warn("status update failed", logging.Error(upErr))
		}
		p.emit(itemID, events.StageItem, events.OutcomeFailed, err.Error())
		return status, err
	}

	corrected := p.correct(ctx, itemID, transcript, log)

	if p.cfg.Pipeline.EnableTranslation {
		status.TranslationA = p.translateAndUpload(ctx, itemID, corrected,
			p.cfg.Pipeline.TranslationA, events.StageTranslateA, log)
		if err := p.store.Upsert(ctx, status); err != nil {
			log.Warn("status update failed", logging.Error(err))
		}
		status.TranslationB = p.translateAndUpload(ctx, itemID, corrected,
			p.cfg.Pipeline.TranslationB, events.StageTranslateB, log)
		if err := p.store.Upsert(ctx, status); err != nil {
			log.Warn("status update failed", logging.Error(err))
		}
	}

	status.HostingUploaded = p.publishPrimary(ctx, itemID, corrected, log)
	if err := p.store.Upsert(ctx, status); err != nil {
		log.Warn("status update failed", logging.Error(err))
	}

	if p.deliver != nil {
		status.DownstreamSent = p.publishSecondary(ctx, itemID, corrected, log)
		if err := p.store.Upsert(ctx, status); err != nil {
			log.Warn("status update failed", logging.Error(err))
		}
	}

	if status.Succeeded() {
		log.Info("successfully processed item")
		p.emit(itemID, events.StageItem, events.OutcomeSucceeded, "")
	} else {
		log.Warn("item finished with failed stages")
		p.emit(itemID, events.StageItem, events.OutcomeFailed, "one or more stages failed")
	}
	return status, nil
}

// produceTranscript runs the hard-failure stages: metadata, artifact cleanup,
// audio acquisition, and transcription.
func (p *Pipeline) produceTranscript(ctx context.Context, itemID string, log *slog.Logger) (subtitle.Document, error) {
	p.emit(itemID, events.StageFetchMetadata, events.OutcomeStarted, "")
	var files []hosting.File
	err := p.policy.Do(ctx, func(ctx context.Context) error {
		var listErr error
		files, listErr = p.hosting.ListFiles(ctx, itemID)
		return listErr
	})
	if err != nil {
		p.emit(itemID, events.StageFetchMetadata, events.OutcomeFailed, err.Error())
		// Only a genuine 404 means the item does not exist; transient or
		// config errors keep their classification for the caller.
		if errors.Is(err, services.ErrNotFound) {
			return subtitle.Document{}, services.Wrap(services.ErrNotFound, "pipeline", "fetch metadata",
				fmt.Sprintf("no file metadata for %s", itemID), err)
		}
		return subtitle.Document{}, fmt.Errorf("fetch metadata for %s: %w", itemID, err)
	}
	p.emit(itemID, events.StageFetchMetadata, events.OutcomeSucceeded, "")

	// Stale subtitle tracks from a prior run would duplicate once we upload
	// again, so clear them first. Failure here is not fatal.
	p.emit(itemID, events.StageClearArtifacts, events.OutcomeStarted, "")
	languages := append([]string{p.cfg.Pipeline.SourceLanguage},
		p.cfg.Pipeline.TranslationA, p.cfg.Pipeline.TranslationB)
	if removed, delErr := p.hosting.DeleteSubtitles(ctx, itemID, languages); delErr != nil {
		log.Warn("subtitle cleanup failed", logging.Error(delErr))
		p.emit(itemID, events.StageClearArtifacts, events.OutcomeFailed, delErr.Error())
	} else {
		p.emit(itemID, events.StageClearArtifacts, events.OutcomeSucceeded, fmt.Sprintf("removed %d", removed))
	}

	p.emit(itemID, events.StageLocateAudio, events.OutcomeStarted, "")
	source, err := p.locateAudio(ctx, itemID, files)
	if err != nil {
		p.emit(itemID, events.StageLocateAudio, events.OutcomeFailed, err.Error())
		return subtitle.Document{}, err
	}
	p.emit(itemID, events.StageLocateAudio, events.OutcomeSucceeded, source.detail)

	audioPath := filepath.Join(p.cfg.Paths.WorkDir, itemID+".m4a")
	p.emit(itemID, events.StageAcquireAudio, events.OutcomeStarted, "")
	err = p.policy.Do(ctx, func(ctx context.Context) error {
		return p.hosting.Download(ctx, source.url, audioPath)
	})
	if err != nil {
		p.emit(itemID, events.StageAcquireAudio, events.OutcomeFailed, err.Error())
		return subtitle.Document{}, services.Wrap(services.ErrTransient, "pipeline", "acquire audio",
			fmt.Sprintf("download failed for %s", itemID), err)
	}
	defer func() {
		if rmErr := os.Remove(audioPath); rmErr != nil && !os.IsNotExist(rmErr) {
			log.Warn("audio cleanup failed", logging.Error(rmErr))
		}
	}()
	p.emit(itemID, events.StageAcquireAudio, events.OutcomeSucceeded, "")

	p.emit(itemID, events.StageTranscribe, events.OutcomeStarted, "")
	var raw string
	err = p.policy.Do(ctx, func(ctx context.Context) error {
		var trErr error
		raw, trErr = p.transcribe.Transcribe(ctx, audioPath)
		return trErr
	})
	if err != nil {
		p.emit(itemID, events.StageTranscribe, events.OutcomeFailed, err.Error())
		return subtitle.Document{}, services.Wrap(services.ErrExternalTool, "pipeline", "transcribe",
			fmt.Sprintf("transcription failed for %s", itemID), err)
	}
	doc, err := subtitle.Parse(raw)
	if err != nil {
		p.emit(itemID, events.StageTranscribe, events.OutcomeFailed, err.Error())
		return subtitle.Document{}, services.Wrap(services.ErrValidation, "pipeline", "transcribe",
			fmt.Sprintf("transcript unparseable for %s", itemID), err)
	}
	doc = subtitle.NormalizeTranscript(doc)
	if len(doc.Segments) == 0 {
		p.emit(itemID, events.StageTranscribe, events.OutcomeFailed, "empty transcript")
		return subtitle.Document{}, services.Wrap(services.ErrValidation, "pipeline", "transcribe",
			fmt.Sprintf("empty transcript for %s", itemID), nil)
	}
	p.emit(itemID, events.StageTranscribe, events.OutcomeSucceeded,
		fmt.Sprintf("%d segments", len(doc.Segments)))
	return doc, nil
}

// correct applies grammar correction in the source language. Correction never
// fails the item: an exhausted or disabled correction keeps the raw
// transcript.
func (p *Pipeline) correct(ctx context.Context, itemID string, doc subtitle.Document, log *slog.Logger) subtitle.Document {
	if !p.cfg.Pipeline.EnableCorrection {
		return doc
	}
	p.emit(itemID, events.StageCorrect, events.OutcomeStarted, "")
	system := chat.CorrectionSystemPrompt(languageName(p.cfg.Pipeline.SourceLanguage))
	fn := func(ctx context.Context, text string) (string, error) {
		return p.text.Complete(ctx, p.cfg.LLM.CorrectionModel, system, text, p.cfg.LLM.Temperature)
	}
	corrected, err := subtitle.Transform(ctx, doc, fn, subtitle.StyleCorrection, p.cfg.Pipeline.ChunkSegments, p.policy, log)
	if err != nil {
		log.Warn("correction failed, keeping raw transcript", logging.Error(err))
		p.emit(itemID, events.StageCorrect, events.OutcomeFailed, err.Error())
		return doc
	}
	p.emit(itemID, events.StageCorrect, events.OutcomeSucceeded, "")
	return corrected
}

// translateAndUpload translates the corrected transcript into one target
// language and uploads the track. The outcome flag covers both steps.
func (p *Pipeline) translateAndUpload(ctx context.Context, itemID string, doc subtitle.Document, target, stage string, log *slog.Logger) bool {
	p.emit(itemID, stage, events.OutcomeStarted, "")
	system := chat.TranslationSystemPrompt(
		languageName(p.cfg.Pipeline.SourceLanguage), languageName(target))
	fn := func(ctx context.Context, text string) (string, error) {
		return p.text.Complete(ctx, p.cfg.LLM.TranslationModel, system, text, 0)
	}
	translated, err := subtitle.Transform(ctx, doc, fn, subtitle.StyleTranslation, p.cfg.Pipeline.ChunkSegments, p.policy, log)
	if err != nil {
		log.Warn("translation failed",
			logging.String("language", target), logging.Error(err))
		p.emit(itemID, stage, events.OutcomeFailed, err.Error())
		return false
	}
	err = p.policy.Do(ctx, func(ctx context.Context) error {
		return p.hosting.UploadSubtitle(ctx, itemID, target, translated.Render())
	})
	if err != nil {
		log.Warn("translated subtitle upload failed",
			logging.String("language", target), logging.Error(err))
		p.emit(itemID, stage, events.OutcomeFailed, err.Error())
		return false
	}
	p.emit(itemID, stage, events.OutcomeSucceeded, "")
	return true
}

func (p *Pipeline) publishPrimary(ctx context.Context, itemID string, doc subtitle.Document, log *slog.Logger) bool {
	p.emit(itemID, events.StagePublishPrimary, events.OutcomeStarted, "")
	err := p.policy.Do(ctx, func(ctx context.Context) error {
		return p.hosting.UploadSubtitle(ctx, itemID, p.cfg.Pipeline.SourceLanguage, doc.Render())
	})
	if err != nil {
		log.Warn("primary subtitle upload failed", logging.Error(err))
		p.emit(itemID, events.StagePublishPrimary, events.OutcomeFailed, err.Error())
		return false
	}
	p.emit(itemID, events.StagePublishPrimary, events.OutcomeSucceeded, "")
	return true
}

func (p *Pipeline) publishSecondary(ctx context.Context, itemID string, doc subtitle.Document, log *slog.Logger) bool {
	p.emit(itemID, events.StagePublishSecondary, events.OutcomeStarted, "")
	err := p.policy.Do(ctx, func(ctx context.Context) error {
		return p.deliver.Deliver(ctx, itemID, doc.Render())
	})
	if err != nil {
		log.Warn("downstream delivery failed", logging.Error(err))
		p.emit(itemID, events.StagePublishSecondary, events.OutcomeFailed, err.Error())
		return false
	}
	p.emit(itemID, events.StagePublishSecondary, events.OutcomeSucceeded, "")
	return true
}

