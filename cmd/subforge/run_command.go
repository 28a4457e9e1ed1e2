package main

import (
	"fmt"
	"log/slog"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"subforge/internal/config"
	"subforge/internal/ledger"
	"subforge/internal/pipeline"
	"subforge/internal/scheduler"
	"subforge/internal/services/chat"
	"subforge/internal/services/downstream"
	"subforge/internal/services/hosting"
	"subforge/internal/services/speech"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var modeFlag string
	var force bool
	var workers int
	var statusInterval int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process all schedulable chunks",
		Long: "Run scans the chunk directory, skips chunks whose completion marker is\n" +
			"present, and processes the rest across the configured worker pool. The\n" +
			"command exits nonzero when any chunk finishes with failed items.",
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := scheduler.ParseMode(modeFlag)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			applyRunOverrides(cfg, workers, statusInterval)
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}
			store, err := ctx.openLedger()
			if err != nil {
				return err
			}
			defer store.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sched := scheduler.New(cfg, store, newRunnerFactory(cfg, store), mode,
				scheduler.WithForce(force),
				scheduler.WithLogger(logger),
			)
			summary, err := sched.Run(runCtx)
			if err != nil {
				return err
			}
			printSummary(cmd, summary)
			if summary.Failed() {
				return fmt.Errorf("%d of %d chunks finished with failures", len(summary.ChunksFailed), summary.ChunksRun)
			}
			return runCtx.Err()
		},
	}

	cmd.Flags().StringVar(&modeFlag, "mode", string(scheduler.ModeLenient),
		"Completion mode: lenient (every item attempted) or strict (every item published)")
	cmd.Flags().BoolVar(&force, "force", false, "Reprocess chunks that already carry a completion marker")
	cmd.Flags().IntVar(&workers, "workers", 0, "Worker pool size (0 uses the configured value)")
	cmd.Flags().IntVar(&statusInterval, "status-interval", 0, "Seconds between progress snapshots (0 uses the configured value)")
	return cmd
}

// applyRunOverrides lets run flags trump the configured scheduler settings.
// Zero values leave the config untouched.
func applyRunOverrides(cfg *config.Config, workers, statusInterval int) {
	if workers > 0 {
		cfg.Scheduler.Workers = workers
	}
	if statusInterval > 0 {
		cfg.Scheduler.StatusIntervalSecs = statusInterval
	}
}

// newRunnerFactory wires the production service clients into a per-chunk
// pipeline bound to that chunk's logger and event stream.
func newRunnerFactory(cfg *config.Config, store *ledger.Store) scheduler.RunnerFactory {
	host := hosting.NewClient(hosting.Config{
		APIKey:         cfg.Hosting.APIKey,
		BaseURL:        cfg.Hosting.BaseURL,
		TimeoutSeconds: cfg.Hosting.TimeoutSeconds,
	})
	transcriber := speech.NewClient(speech.Config{
		APIKey:         cfg.Transcription.APIKey,
		BaseURL:        cfg.Transcription.BaseURL,
		Model:          cfg.Transcription.Model,
		Language:       cfg.Pipeline.SourceLanguage,
		MaxUploadBytes: int64(cfg.Transcription.MaxUploadMiB) << 20,
		TimeoutSeconds: cfg.Transcription.TimeoutSeconds,
	})
	text := chat.NewClient(chat.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})
	var deliver pipeline.Deliverer
	if cfg.Downstream.Enabled {
		deliver = downstream.NewClient(downstream.Config{
			BaseURL:        cfg.Downstream.BaseURL,
			Token:          cfg.Downstream.Token,
			TimeoutSeconds: cfg.Downstream.TimeoutSeconds,
		})
	}

	return func(logger *slog.Logger, emitter scheduler.Emitter) scheduler.Runner {
		return pipeline.New(cfg, store, host, transcriber, text, deliver,
			pipeline.WithLogger(logger),
			pipeline.WithEmitter(emitter),
		)
	}
}

func printSummary(cmd *cobra.Command, summary scheduler.Summary) {
	rows := [][]string{
		{"Chunks run", strconv.Itoa(summary.ChunksRun)},
		{"Chunks skipped (marker)", strconv.Itoa(summary.ChunksSkipped)},
		{"Chunks skipped (active)", strconv.Itoa(summary.ChunksActive)},
		{"Items processed", strconv.Itoa(summary.ItemsProcessed)},
		{"Items failed", strconv.Itoa(summary.ItemsFailed)},
		{"Elapsed", summary.Elapsed.Round(time.Second).String()},
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderTable([]string{"Metric", "Value"}, rows, 2))
	for _, name := range summary.ChunksFailed {
		fmt.Fprintf(out, "failed: %s\n", name)
	}
}
