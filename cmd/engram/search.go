package main

import (
	"fmt"

	engram "github.com/engramhq/engram"
	"github.com/spf13/cobra"
)

var (
	searchMode   string
	searchK      int
	searchType   string
	searchRerank bool
	searchSince  string
	searchHops   int
)

var searchCmd = &cobra.Command{
	Use:   "search <q>",
	Short: "Run raw semantic, lexical, or hybrid search",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var hits []engram.SearchHit
		var err error

		switch searchMode {
		case "", "hybrid":
			hits, err = eng.SearchHybrid(cmd.Context(), args[0], engram.HybridOptions{
				K: searchK, Type: engram.MemoryType(searchType), Since: searchSince,
				Rerank: searchRerank, Hops: searchHops,
			})
		case "semantic":
			hits, err = eng.SearchSemantic(cmd.Context(), args[0], engram.SearchOptions{K: searchK, Type: engram.MemoryType(searchType), Since: searchSince})
		case "fts":
			hits, err = eng.SearchFTS(args[0], engram.SearchOptions{K: searchK, Type: engram.MemoryType(searchType), Since: searchSince})
		default:
			return fmt.Errorf("unknown mode %q: must be hybrid, semantic, or fts", searchMode)
		}
		if err != nil {
			return err
		}

		for _, h := range hits {
			fmt.Printf("%.4f\t[%d]\t[%s]\t%s\n", h.Score, h.Memory.ID, h.Memory.Type, h.Memory.Title)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVarP(&searchMode, "mode", "m", "hybrid", "hybrid, semantic, or fts")
	searchCmd.Flags().IntVarP(&searchK, "k", "k", 0, "result count (default 10)")
	searchCmd.Flags().StringVarP(&searchType, "type", "t", "", "filter to one memory type")
	searchCmd.Flags().BoolVar(&searchRerank, "rerank", false, "cross-encoder rerank the fused top results (hybrid only; skipped when no reranker is configured, and this CLI configures none)")
	searchCmd.Flags().StringVar(&searchSince, "since", "", "only memories created after this duration ago, e.g. 7d")
	searchCmd.Flags().IntVar(&searchHops, "hops", 0, "N-hop link-graph expansion (hybrid only)")
	rootCmd.AddCommand(searchCmd)
}
