package main

import (
	"fmt"
	"time"

	engram "github.com/engramhq/engram"
	"github.com/spf13/cobra"
)

var (
	sessionTitle           string
	sessionSummary         string
	sessionListLimit       int
	sessionAutoConsolidate bool
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage sessions",
}

var sessionStartCmd = &cobra.Command{
	Use:   "start [id]",
	Short: "Create or replace a session",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := ""
		if len(args) == 1 {
			id = args[0]
		}
		id, err := eng.StartSession(id, sessionTitle)
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil
	},
}

var sessionEndCmd = &cobra.Command{
	Use:   "end <id>",
	Short: "End a session, optionally embedding a summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := eng.EndSession(cmd.Context(), args[0], sessionSummary); err != nil {
			return err
		}
		if sessionAutoConsolidate {
			if _, err := eng.RunConsolidation(cmd.Context(), engram.ConsolidationOptions{}); err != nil {
				return err
			}
		}
		fmt.Println("ended")
		return nil
	},
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, most recent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions, err := eng.ListSessions(nil, nil, sessionListLimit)
		if err != nil {
			return err
		}
		for _, s := range sessions {
			ended := "active"
			if s.EndedAt != nil {
				ended = s.EndedAt.Format(time.RFC3339)
			}
			fmt.Printf("%s\t%s\t%s\n", s.ID, s.Title, ended)
		}
		return nil
	},
}

func init() {
	sessionStartCmd.Flags().StringVarP(&sessionTitle, "title", "t", "", "session title")
	sessionCmd.AddCommand(sessionStartCmd)

	sessionEndCmd.Flags().StringVarP(&sessionSummary, "summary", "s", "", "session summary")
	sessionEndCmd.Flags().BoolVar(&sessionAutoConsolidate, "auto-consolidate", false, "run consolidation after ending the session")
	sessionCmd.AddCommand(sessionEndCmd)

	sessionListCmd.Flags().IntVarP(&sessionListLimit, "limit", "n", 20, "max sessions to list")
	sessionCmd.AddCommand(sessionListCmd)

	rootCmd.AddCommand(sessionCmd)
}
