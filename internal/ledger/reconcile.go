package ledger

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"regexp"

	"subforge/internal/events"
	"subforge/internal/logging"
)

// FromEvents replays a structured event stream into per-item records.
// Per-stage success events set their flag precisely. A bare item-level
// "succeeded" with no stage detail falls back to the coarse form: all four
// flags take the item outcome. Items that only started contribute an
// all-false row, recording the attempt.
func FromEvents(stream []events.Event) map[string]Status {
	recovered := make(map[string]Status)
	for _, event := range stream {
		status, ok := recovered[event.ItemID]
		if !ok {
			status = Status{ItemID: event.ItemID}
		}

		switch event.Stage {
		case events.StageItem:
			if event.Outcome == events.OutcomeSucceeded {
				status.DownstreamSent = true
				status.TranslationA = true
				status.TranslationB = true
				status.HostingUploaded = true
			}
		case events.StagePublishSecondary:
			if event.Outcome == events.OutcomeSucceeded {
				status.DownstreamSent = true
			}
		case events.StageTranslateA:
			if event.Outcome == events.OutcomeSucceeded {
				status.TranslationA = true
			}
		case events.StageTranslateB:
			if event.Outcome == events.OutcomeSucceeded {
				status.TranslationB = true
			}
		case events.StagePublishPrimary:
			if event.Outcome == events.OutcomeSucceeded {
				status.HostingUploaded = true
			}
		}
		recovered[event.ItemID] = status
	}
	return recovered
}

var (
	logStartedPattern   = regexp.MustCompile(`processing item(?: \d+/\d+)?:? ([A-Za-z0-9_-]+)`)
	logSucceededPattern = regexp.MustCompile(`successfully processed ([A-Za-z0-9_-]+)`)
)

// ScrapeLog extracts started/succeeded markers from a free-text execution
// log. This is the coarse recovery path for logs that predate the event
// stream: a succeeded item gets all four flags set, a started-only item gets
// an all-false row. Per-operation granularity is lost; the rebuilt rows are
// not a precise source of truth.
func ScrapeLog(r io.Reader) (map[string]Status, error) {
	succeeded := make(map[string]bool)
	recovered := make(map[string]Status)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if match := logStartedPattern.FindStringSubmatch(line); match != nil {
			id := match[1]
			if _, ok := recovered[id]; !ok {
				recovered[id] = Status{ItemID: id}
			}
		}
		if match := logSucceededPattern.FindStringSubmatch(line); match != nil {
			succeeded[match[1]] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	for id := range succeeded {
		recovered[id] = Status{
			ItemID:          id,
			DownstreamSent:  true,
			TranslationA:    true,
			TranslationB:    true,
			HostingUploaded: true,
		}
	}
	return recovered, nil
}

// ApplyRecovered merges recovered rows into the store. Existing rows are left
// untouched unless overwrite is set: a recovery artifact never silently
// downgrades state the ledger already recorded.
func (s *Store) ApplyRecovered(ctx context.Context, recovered map[string]Status, overwrite bool, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	applied := 0
	for _, status := range recovered {
		existing, err := s.Get(ctx, status.ItemID)
		if err != nil {
			return applied, err
		}
		if existing != nil && !overwrite {
			logger.Debug("keeping existing ledger row",
				logging.String(logging.FieldItemID, status.ItemID),
			)
			continue
		}
		if err := s.Upsert(ctx, status); err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}
