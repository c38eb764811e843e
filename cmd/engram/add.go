package main

import (
	"fmt"

	engram "github.com/engramhq/engram"
	"github.com/spf13/cobra"
)

var (
	addContent    string
	addTags       string
	addImportance float64
	addPermanent  bool
	addNoAutoLink bool
)

var addCmd = &cobra.Command{
	Use:   "add <type> <title>",
	Short: "Write a memory through the add pipeline",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := eng.Add(cmd.Context(), engram.AddInput{
			Type:       engram.MemoryType(args[0]),
			Title:      args[1],
			Content:    addContent,
			Tags:       splitTags(addTags),
			Importance: addImportance,
			NoAutoLink: addNoAutoLink,
		})
		if err != nil {
			return err
		}
		if addPermanent {
			if err := eng.MarkPermanent(result.ID, true); err != nil {
				return err
			}
		}
		fmt.Printf("id=%d status=%s\n", result.ID, result.Status)
		if result.Status == engram.StatusMerged {
			fmt.Printf("merged_into=%d\n", result.MergedInto)
		}
		return nil
	},
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}

func init() {
	addCmd.Flags().StringVarP(&addContent, "content", "c", "", "memory content")
	addCmd.Flags().StringVarP(&addTags, "tags", "t", "", "comma-separated tags")
	addCmd.Flags().Float64VarP(&addImportance, "importance", "i", 0, "importance 0.0-1.0 (default 0.5)")
	addCmd.Flags().BoolVar(&addPermanent, "permanent", false, "tag the memory permanent")
	addCmd.Flags().BoolVar(&addNoAutoLink, "no-auto-link", false, "skip the auto-link step")
	rootCmd.AddCommand(addCmd)
}
