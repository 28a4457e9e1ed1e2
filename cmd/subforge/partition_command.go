package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"subforge/internal/workunit"
)

func newPartitionCommand(ctx *commandContext) *cobra.Command {
	var inputPath string
	var size int

	cmd := &cobra.Command{
		Use:   "partition",
		Short: "Split an item list into chunk files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			input := strings.TrimSpace(inputPath)
			if input == "" {
				return fmt.Errorf("--input is required")
			}
			if size <= 0 {
				return fmt.Errorf("--size must be positive, got %d", size)
			}
			items, err := workunit.ReadItemList(input)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				return fmt.Errorf("no item IDs found in %s", input)
			}
			chunks, err := workunit.WriteChunks(cfg.Paths.ChunksDir, items, size)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d chunks (%d items) to %s\n",
				len(chunks), len(items), cfg.Paths.ChunksDir)
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "File listing one item ID per line")
	cmd.Flags().IntVarP(&size, "size", "s", 10, "Items per chunk")
	return cmd
}
