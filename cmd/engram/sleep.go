package main

import (
	"fmt"

	engram "github.com/engramhq/engram"
	"github.com/spf13/cobra"
)

var (
	sleepDryRun    bool
	sleepDecayRate float64
	sleepPrune     float64
	sleepMerge     float64
)

var sleepCmd = &cobra.Command{
	Use:   "sleep",
	Short: "Run one sleep-consolidation cycle",
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := eng.RunConsolidation(cmd.Context(), engram.ConsolidationOptions{
			DryRun:         sleepDryRun,
			DecayRate:      sleepDecayRate,
			PruneThreshold: sleepPrune,
			MergeThreshold: sleepMerge,
		})
		if err != nil {
			return err
		}
		fmt.Printf("decayed=%d pruned=%d merged=%d boosted=%d elapsed=%s dry_run=%v\n",
			result.Decayed, result.Pruned, result.Merged, result.Boosted, result.Elapsed, result.DryRun)
		return nil
	},
}

func init() {
	sleepCmd.Flags().BoolVar(&sleepDryRun, "dry-run", false, "preview without mutating state")
	sleepCmd.Flags().Float64Var(&sleepDecayRate, "decay-rate", 0, "override decay rate (default 0.95)")
	sleepCmd.Flags().Float64Var(&sleepPrune, "prune", 0, "override prune threshold (default 0.05)")
	sleepCmd.Flags().Float64Var(&sleepMerge, "merge", 0, "override merge threshold (default 0.92)")
	rootCmd.AddCommand(sleepCmd)
}
