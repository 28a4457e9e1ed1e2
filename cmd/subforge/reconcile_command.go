package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"subforge/internal/events"
	"subforge/internal/ledger"
	"subforge/internal/scheduler"
	"subforge/internal/workunit"
)

func newReconcileCommand(ctx *commandContext) *cobra.Command {
	reconcileCmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Rebuild ledger state and markers after an interrupted run",
	}

	reconcileCmd.AddCommand(newReconcileEventsCommand(ctx))
	reconcileCmd.AddCommand(newReconcileLogsCommand(ctx))
	reconcileCmd.AddCommand(newReconcileMarkersCommand(ctx))

	return reconcileCmd
}

// newReconcileEventsCommand replays per-chunk event streams into the ledger.
// Events carry per-stage outcomes, so this is the precise recovery path.
func newReconcileEventsCommand(ctx *commandContext) *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Recover item outcomes from chunk event streams",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger()
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
			applied := 0
			for _, chunk := range chunks {
				stream, err := events.Read(chunk.EventsPath())
				if err != nil {
					if os.IsNotExist(err) {
						continue
					}
					return err
				}
				recovered := ledger.FromEvents(stream)
				n, err := store.ApplyRecovered(cmd.Context(), recovered, overwrite, logger)
				if err != nil {
					return err
				}
				applied += n
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recovered %d item statuses from event streams\n", applied)
			return nil
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace existing ledger rows instead of only filling gaps")
	return cmd
}

// newReconcileLogsCommand scrapes chunk log files. Logs only show that an item
// was attempted or fully succeeded, so recovery is coarser than event replay;
// use it when event streams are missing.
func newReconcileLogsCommand(ctx *commandContext) *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Recover item outcomes by scraping chunk log files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger()
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
			applied := 0
			for _, chunk := range chunks {
				f, err := os.Open(chunk.LogPath())
				if err != nil {
					if os.IsNotExist(err) {
						continue
					}
					return err
				}
				recovered, err := ledger.ScrapeLog(f)
				f.Close()
				if err != nil {
					return err
				}
				n, err := store.ApplyRecovered(cmd.Context(), recovered, overwrite, logger)
				if err != nil {
					return err
				}
				applied += n
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recovered %d item statuses from logs\n", applied)
			return nil
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace existing ledger rows instead of only filling gaps")
	return cmd
}

func newReconcileMarkersCommand(ctx *commandContext) *cobra.Command {
	var modeFlag string

	cmd := &cobra.Command{
		Use:   "markers",
		Short: "Rewrite chunk completion markers from ledger state",
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := scheduler.ParseMode(modeFlag)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}
			store, err := ctx.openLedger()
			if err != nil {
				return err
			}
			defer store.Close()

			sched := scheduler.New(cfg, store, nil, mode, scheduler.WithLogger(logger))
			changed, err := sched.UpdateMarkers(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %d markers\n", changed)
			return nil
		},
	}

	cmd.Flags().StringVar(&modeFlag, "mode", string(scheduler.ModeLenient),
		"Completion mode used to judge chunks")
	return cmd
}
