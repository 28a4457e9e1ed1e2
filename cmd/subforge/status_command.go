package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"subforge/internal/scheduler"
	"subforge/internal/workunit"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var chunkName string
	var modeFlag string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show ledger totals and per-chunk progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := scheduler.ParseMode(modeFlag)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if chunkName != "" {
				return printChunkDetail(cmd, ctx, chunkName)
			}

			store, err := ctx.openLedger()
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			runCtx := cmd.Context()

			stats, err := store.Summarize(runCtx)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Metric", "Value"},
				[][]string{
					{"Items tracked", strconv.Itoa(stats.Total)},
					{"Items succeeded", strconv.Itoa(stats.Succeeded)},
					{"Items uploaded", strconv.Itoa(stats.Uploaded)},
				},
				2,
			))

			chunks, err := workunit.List(cfg.Paths.ChunksDir)
			if err != nil {
				return err
			}
			if len(chunks) == 0 {
				fmt.Fprintln(out, "No chunk files found.")
				return nil
			}

			activeCutoff := time.Now().Add(-time.Duration(cfg.Scheduler.ActiveWindowSeconds) * time.Second)
			rows := make([][]string, 0, len(chunks))
			for _, chunk := range chunks {
				done, missing, err := scheduler.ChunkCompleted(runCtx, store, chunk, mode)
				if err != nil {
					return err
				}
				state := "pending"
				switch {
				case chunk.HasMarker():
					state = "marked"
				case done:
					state = "complete"
				case chunk.LogActiveSince(activeCutoff):
					state = "active"
				}
				rows = append(rows, []string{
					chunk.Name,
					strconv.Itoa(len(chunk.Items)),
					strconv.Itoa(len(chunk.Items) - len(missing)),
					state,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Chunk", "Items", "Done", "State"}, rows, 2, 3))
			return nil
		},
	}

	cmd.Flags().StringVar(&chunkName, "chunk", "", "Show per-item stage flags for one chunk file")
	cmd.Flags().StringVar(&modeFlag, "mode", string(scheduler.ModeLenient),
		"Completion mode used to judge chunks")
	return cmd
}

// printChunkDetail lists every item of one chunk with its four outcome flags.
func printChunkDetail(cmd *cobra.Command, ctx *commandContext, chunkName string) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	store, err := ctx.openLedger()
	if err != nil {
		return err
	}
	defer store.Close()

	chunks, err := workunit.List(cfg.Paths.ChunksDir)
	if err != nil {
		return err
	}
	var target *workunit.Chunk
	for i := range chunks {
		if chunks[i].Name == chunkName {
			target = &chunks[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("chunk %s not found in %s", chunkName, cfg.Paths.ChunksDir)
	}

	rows := make([][]string, 0, len(target.Items))
	for _, itemID := range target.Items {
		status, err := store.Get(cmd.Context(), itemID)
		if err != nil {
			return err
		}
		if status == nil {
			rows = append(rows, []string{itemID, "-", "-", "-", "-"})
			continue
		}
		rows = append(rows, []string{
			itemID,
			yesNo(status.HostingUploaded),
			yesNo(status.TranslationA),
			yesNo(status.TranslationB),
			yesNo(status.DownstreamSent),
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Item", "Uploaded", "Translation A", "Translation B", "Downstream"}, rows))
	return nil
}
