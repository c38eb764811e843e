package main

import (
	"fmt"
	"strconv"

	engram "github.com/engramhq/engram"
	"github.com/spf13/cobra"
)

var (
	updateTitle      string
	updateContent    string
	updateImportance float64
	updateStrength   float64
	updateArchived   bool
	getIncludeArchived bool
)

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Fetch a memory by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q: %w", args[0], err)
		}
		m, err := eng.Get(id, getIncludeArchived)
		if err != nil {
			return err
		}
		if m == nil {
			fmt.Println("not found")
			return nil
		}
		fmt.Printf("id=%d type=%s title=%q importance=%.2f strength=%.2f archived=%v\n", m.ID, m.Type, m.Title, m.Importance, m.Strength, m.Archived)
		fmt.Println(m.Content)
		if len(m.Tags) > 0 {
			fmt.Printf("tags: %v\n", m.Tags)
		}
		return nil
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Apply a partial patch to a memory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q: %w", args[0], err)
		}

		patch := engram.UpdatePatch{}
		if cmd.Flags().Changed("title") {
			patch.Title = &updateTitle
		}
		if cmd.Flags().Changed("content") {
			patch.Content = &updateContent
		}
		if cmd.Flags().Changed("importance") {
			patch.Importance = &updateImportance
		}
		if cmd.Flags().Changed("strength") {
			patch.Strength = &updateStrength
		}
		if cmd.Flags().Changed("archived") {
			patch.Archived = &updateArchived
		}

		found, err := eng.Update(cmd.Context(), id, patch)
		if err != nil {
			return err
		}
		if !found {
			fmt.Println("not found")
			return nil
		}
		fmt.Println("updated")
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Hard-delete a memory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q: %w", args[0], err)
		}
		found, err := eng.Delete(id)
		if err != nil {
			return err
		}
		if !found {
			fmt.Println("not found")
			return nil
		}
		fmt.Println("deleted")
		return nil
	},
}

func init() {
	getCmd.Flags().BoolVar(&getIncludeArchived, "include-archived", false, "include archived memories")
	rootCmd.AddCommand(getCmd)

	updateCmd.Flags().StringVar(&updateTitle, "title", "", "new title")
	updateCmd.Flags().StringVar(&updateContent, "content", "", "new content")
	updateCmd.Flags().Float64Var(&updateImportance, "importance", 0, "new importance")
	updateCmd.Flags().Float64Var(&updateStrength, "strength", 0, "new strength")
	updateCmd.Flags().BoolVar(&updateArchived, "archived", false, "new archived state")
	rootCmd.AddCommand(updateCmd)

	rootCmd.AddCommand(deleteCmd)
}
