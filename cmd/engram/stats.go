package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	statsLimit        int
	diagnosticsDupThreshold float64
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the weakest memories and pending merge count",
	RunE: func(cmd *cobra.Command, args []string) error {
		preview, err := eng.GetConsolidationPreview(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("would_merge=%d\n", preview.WouldMergeCount)
		fmt.Println("weakest memories:")
		n := statsLimit
		if n <= 0 || n > len(preview.Weakest) {
			n = len(preview.Weakest)
		}
		for _, m := range preview.Weakest[:n] {
			age := humanize.Time(m.CreatedAt)
			last := "never accessed"
			if m.LastAccessedAt != nil {
				last = "accessed " + humanize.Time(*m.LastAccessedAt)
			}
			fmt.Printf("  [%d] strength=%.3f %q (created %s, %s)\n", m.ID, m.Strength, m.Title, age, last)
		}
		return nil
	},
}

var diagnosticsCmd = &cobra.Command{
	Use:   "diagnostics",
	Short: "Report store diagnostics: vector index availability and near-duplicate pairs",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("vector_index_available=%v\n", eng.VectorIndexAvailable())
		preview, err := eng.GetConsolidationPreview(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("would_merge_at_threshold=%d (dup_threshold=%.2f unused by brute-force scan)\n", preview.WouldMergeCount, diagnosticsDupThreshold)
		return nil
	},
}

func init() {
	statsCmd.Flags().IntVarP(&statsLimit, "limit", "n", 10, "max weakest memories to show")
	rootCmd.AddCommand(statsCmd)

	diagnosticsCmd.Flags().Float64Var(&diagnosticsDupThreshold, "dup-threshold", 0.92, "printed for reference only; the count always uses the default merge threshold 0.92")
	rootCmd.AddCommand(diagnosticsCmd)
}
