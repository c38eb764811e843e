package main

import (
	"fmt"
	"strconv"

	engram "github.com/engramhq/engram"
	"github.com/spf13/cobra"
)

var linkRelation string

var linkCmd = &cobra.Command{
	Use:   "link <src> <dst>",
	Short: "Create or replace a directed link between two memories",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid source id %q: %w", args[0], err)
		}
		dst, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid target id %q: %w", args[1], err)
		}
		if err := eng.Link(src, dst, engram.LinkRelation(linkRelation)); err != nil {
			return err
		}
		fmt.Println("linked")
		return nil
	},
}

func init() {
	linkCmd.Flags().StringVarP(&linkRelation, "relation", "r", string(engram.RelRelatedTo), "related_to, caused_by, evolved_from, contradicts, or supersedes")
	rootCmd.AddCommand(linkCmd)
}
