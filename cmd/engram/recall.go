package main

import (
	"fmt"

	engram "github.com/engramhq/engram"
	"github.com/spf13/cobra"
)

var (
	recallBudget    int
	recallType      string
	recallSessionID string
	recallShort     bool
)

var recallCmd = &cobra.Command{
	Use:   "recall <q>",
	Short: "Assemble a token-budgeted context window for a query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := eng.Recall(cmd.Context(), args[0], engram.RecallOptions{
			Budget:    recallBudget,
			Type:      engram.MemoryType(recallType),
			SessionID: recallSessionID,
		})
		if err != nil {
			return err
		}
		if recallShort {
			for _, h := range result.Memories {
				fmt.Printf("[%d] %s\n", h.Memory.ID, h.Memory.Title)
			}
			return nil
		}
		fmt.Print(engram.RenderMarkdown(result))
		return nil
	},
}

func init() {
	recallCmd.Flags().IntVarP(&recallBudget, "budget", "b", 0, "token budget (default 4000)")
	recallCmd.Flags().StringVarP(&recallType, "type", "t", "", "filter to one memory type")
	recallCmd.Flags().StringVarP(&recallSessionID, "session", "s", "", "prepend this session's summary")
	recallCmd.Flags().BoolVar(&recallShort, "short", false, "print ids and titles only")
	rootCmd.AddCommand(recallCmd)
}
