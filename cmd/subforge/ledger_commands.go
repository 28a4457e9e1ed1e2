package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"subforge/internal/workunit"
)

func newLedgerCommand(ctx *commandContext) *cobra.Command {
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect and manipulate the status ledger",
	}

	ledgerCmd.AddCommand(newLedgerExportCommand(ctx))
	ledgerCmd.AddCommand(newLedgerImportCommand(ctx))
	ledgerCmd.AddCommand(newLedgerResetCommand(ctx))

	return ledgerCmd
}

func newLedgerExportCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the ledger as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openLedger()
			if err != nil {
				return err
			}
			defer store.Close()

			target := strings.TrimSpace(output)
			if target == "" || target == "-" {
				return store.ExportCSV(cmd.Context(), cmd.OutOrStdout())
			}
			f, err := os.Create(target)
			if err != nil {
				return fmt.Errorf("create %s: %w", target, err)
			}
			if err := store.ExportCSV(cmd.Context(), f); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "-", "Destination file, or - for stdout")
	return cmd
}

func newLedgerImportCommand(ctx *commandContext) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load item statuses from a CSV export",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(input) == "" {
				return fmt.Errorf("--input is required")
			}
			store, err := ctx.openLedger()
			if err != nil {
				return err
			}
			defer store.Close()

			f, err := os.Open(input)
			if err != nil {
				return fmt.Errorf("open %s: %w", input, err)
			}
			defer f.Close()

			count, err := store.ImportCSV(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d item statuses\n", count)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "CSV file to import")
	return cmd
}

func newLedgerResetCommand(ctx *commandContext) *cobra.Command {
	var chunkName string

	cmd := &cobra.Command{
		Use:   "reset [item-id...]",
		Short: "Clear recorded outcomes so items run again",
		RunE: func(cmd *cobra.Command, args []string) error {
			itemIDs := args
			if chunkName != "" {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				chunks, err := workunit.List(cfg.Paths.ChunksDir)
				if err != nil {
					return err
				}
				found := false
				for _, chunk := range chunks {
					if chunk.Name == chunkName {
						itemIDs = append(itemIDs, chunk.Items...)
						found = true
						break
					}
				}
				if !found {
					return fmt.Errorf("chunk %s not found", chunkName)
				}
			}
			if len(itemIDs) == 0 {
				return fmt.Errorf("nothing to reset: pass item IDs or --chunk")
			}

			store, err := ctx.openLedger()
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.Reset(cmd.Context(), itemIDs...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset %d item statuses\n", n)
			return nil
		},
	}

	cmd.Flags().StringVar(&chunkName, "chunk", "", "Reset every item in this chunk file")
	return cmd
}
