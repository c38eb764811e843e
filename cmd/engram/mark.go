package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var markRemove bool

var markCmd = &cobra.Command{
	Use:   "mark <id>",
	Short: "Toggle the permanent tag on a memory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q: %w", args[0], err)
		}
		if err := eng.MarkPermanent(id, !markRemove); err != nil {
			return err
		}
		if markRemove {
			fmt.Println("unmarked permanent")
		} else {
			fmt.Println("marked permanent")
		}
		return nil
	},
}

func init() {
	markCmd.Flags().BoolVar(&markRemove, "remove", false, "remove the permanent tag instead of adding it")
	rootCmd.AddCommand(markCmd)
}
