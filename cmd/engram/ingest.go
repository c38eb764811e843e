package main

import (
	"encoding/json"
	"fmt"
	"os"

	engram "github.com/engramhq/engram"
	"github.com/spf13/cobra"
)

var (
	ingestFile       string
	ingestRemoveFile bool
)

type ingestRecord struct {
	Type       string   `json:"type,omitempty"`
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Tags       []string `json:"tags,omitempty"`
	Importance float64  `json:"importance,omitempty"`
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [json]",
	Short: "Batch-write memories from a JSON array, inline or from a file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var raw []byte
		var err error
		switch {
		case ingestFile != "":
			raw, err = os.ReadFile(ingestFile)
		case len(args) == 1:
			raw = []byte(args[0])
		default:
			return fmt.Errorf("ingest requires either a JSON argument or -f file")
		}
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		var records []ingestRecord
		if err := json.Unmarshal(raw, &records); err != nil {
			return fmt.Errorf("parsing json: %w", err)
		}

		failures := 0
		for i, rec := range records {
			result, err := eng.Ingest(cmd.Context(), engram.AddInput{
				Type:       engram.MemoryType(rec.Type),
				Title:      rec.Title,
				Content:    rec.Content,
				Tags:       rec.Tags,
				Importance: rec.Importance,
			})
			if err != nil {
				failures++
				fmt.Fprintf(os.Stderr, "record %d failed: %v\n", i, err)
				continue
			}
			fmt.Printf("record %d: id=%d status=%s\n", i, result.ID, result.Status)
		}

		if failures > 0 {
			return fmt.Errorf("%d of %d records failed", failures, len(records))
		}

		if ingestRemoveFile && ingestFile != "" {
			if err := os.Remove(ingestFile); err != nil {
				return fmt.Errorf("removing %s: %w", ingestFile, err)
			}
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestFile, "file", "f", "", "path to a JSON file containing an array of records")
	ingestCmd.Flags().BoolVar(&ingestRemoveFile, "remove-file", false, "delete the input file, but only when every record succeeds")
	rootCmd.AddCommand(ingestCmd)
}
