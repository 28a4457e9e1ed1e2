package scheduler

import (
	"context"

	"subforge/internal/events"
	"subforge/internal/ledger"
	"subforge/internal/logging"
	"subforge/internal/workunit"
)

type chunkResult struct {
	name      string
	processed int
	failed    int
	completed bool
}

// runChunk processes every item in one chunk with a dedicated log file and
// event stream, then decides whether the chunk earned its marker.
func (s *Scheduler) runChunk(ctx context.Context, chunk workunit.Chunk) chunkResult {
	res := chunkResult{name: chunk.Name}
	log := s.logger.With(logging.String(logging.FieldChunk, chunk.Name))

	chunkLog, closer, err := logging.NewChunkLogger(chunk.LogPath(), s.cfg.Logging.Level)
	if err != nil {
		log.Error("chunk logger unavailable", logging.Error(err))
		return res
	}
	defer closer.Close()
	chunkLog = chunkLog.With(
		logging.String(logging.FieldChunk, chunk.Name),
		logging.String(logging.FieldRunID, s.runID),
	)

	stream, err := events.NewWriter(chunk.EventsPath(), s.runID)
	if err != nil {
		log.Error("event stream unavailable", logging.Error(err))
		return res
	}
	defer stream.Close()

	runner := s.factory(chunkLog, stream)

	chunkLog.Info("chunk starting", logging.Int("items", len(chunk.Items)))
	for i, itemID := range chunk.Items {
		if ctx.Err() != nil {
			chunkLog.Warn("chunk interrupted", logging.Error(ctx.Err()))
			return res
		}
		chunkLog.Info("processing item",
			logging.String(logging.FieldItemID, itemID),
			logging.Int("position", i+1),
			logging.Int("total", len(chunk.Items)),
		)
		status, err := runner.Process(ctx, itemID)
		res.processed++
		switch {
		case err != nil:
			res.failed++
			chunkLog.Error("item failed",
				logging.String(logging.FieldItemID, itemID), logging.Error(err))
		case !status.Succeeded():
			res.failed++
			chunkLog.Warn("item completed with failed stages",
				logging.String(logging.FieldItemID, itemID))
		default:
			chunkLog.Info("item succeeded",
				logging.String(logging.FieldItemID, itemID))
		}
	}

	done, missing, err := ChunkCompleted(ctx, s.store, chunk, s.mode)
	if err != nil {
		log.Error("completion check failed", logging.Error(err))
		return res
	}
	if done {
		if err := chunk.WriteMarker(); err != nil {
			log.Error("marker write failed", logging.Error(err))
			return res
		}
		chunkLog.Info("chunk complete, marker written")
	} else {
		chunkLog.Warn("chunk incomplete, leaving schedulable",
			logging.Int("missing", len(missing)))
	}
	// A marker only records that scheduling is finished; the run still
	// reports failure when items did not fully succeed.
	res.completed = done && res.failed == 0
	return res
}

// ChunkCompleted reports whether a chunk needs further scheduling under the
// given mode, plus the item IDs still falling short.
func ChunkCompleted(ctx context.Context, store *ledger.Store, chunk workunit.Chunk, mode Mode) (bool, []string, error) {
	var missing []string
	for _, itemID := range chunk.Items {
		status, err := store.Get(ctx, itemID)
		if err != nil {
			return false, nil, err
		}
		switch {
		case status == nil:
			missing = append(missing, itemID)
		case mode == ModeStrict && !status.HostingUploaded:
			missing = append(missing, itemID)
		}
	}
	return len(missing) == 0, missing, nil
}

// UpdateMarkers reconciles marker files against the ledger without running any
// items: chunks that are complete gain a marker, chunks that are not lose any
// stale one. It returns the number of chunks whose marker changed.
func (s *Scheduler) UpdateMarkers(ctx context.Context) (int, error) {
	chunks, err := workunit.List(s.cfg.Paths.ChunksDir)
	if err != nil {
		return 0, err
	}
	changed := 0
	for _, chunk := range chunks {
		done, missing, err := ChunkCompleted(ctx, s.store, chunk, s.mode)
		if err != nil {
			return changed, err
		}
		marked := chunk.HasMarker()
		switch {
		case done && !marked:
			if err := chunk.WriteMarker(); err != nil {
				return changed, err
			}
			s.logger.Info("marker written",
				logging.String(logging.FieldChunk, chunk.Name))
			changed++
		case !done && marked:
			if err := chunk.RemoveMarker(); err != nil {
				return changed, err
			}
			s.logger.Info("stale marker removed",
				logging.String(logging.FieldChunk, chunk.Name),
				logging.Int("missing", len(missing)))
			changed++
		}
	}
	return changed, nil
}
