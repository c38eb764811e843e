package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Dump every non-archived memory",
	RunE: func(cmd *cobra.Command, args []string) error {
		memories, err := eng.Export()
		if err != nil {
			return err
		}

		var out []byte
		switch exportFormat {
		case "", "json":
			type exportRecord struct {
				ID         int64    `json:"id"`
				Type       string   `json:"type"`
				Title      string   `json:"title"`
				Content    string   `json:"content"`
				Importance float64  `json:"importance"`
				Strength   float64  `json:"strength"`
				Tags       []string `json:"tags,omitempty"`
			}
			records := make([]exportRecord, len(memories))
			for i, m := range memories {
				records[i] = exportRecord{ID: m.ID, Type: string(m.Type), Title: m.Title, Content: m.Content, Importance: m.Importance, Strength: m.Strength, Tags: m.Tags}
			}
			out, err = json.MarshalIndent(records, "", "  ")
			if err != nil {
				return err
			}
		case "md":
			var b []byte
			for _, m := range memories {
				b = append(b, []byte(fmt.Sprintf("## [%s] %s\n\n%s\n\n", m.Type, m.Title, m.Content))...)
			}
			out = b
		default:
			return fmt.Errorf("unknown format %q: must be json or md", exportFormat)
		}

		if exportOut == "" {
			fmt.Println(string(out))
			return nil
		}
		return os.WriteFile(exportOut, out, 0o644)
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "json or md")
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "output path (default stdout)")
	rootCmd.AddCommand(exportCmd)
}
