package main

import (
	"fmt"
	"os"

	engram "github.com/engramhq/engram"
	"github.com/spf13/cobra"
)

var (
	dbFlag     string
	configFlag string
	traceFlag  bool

	eng *engram.Engram
)

var rootCmd = &cobra.Command{
	Use:   "engram",
	Short: "A cognitive memory engine for long-lived AI agents",
	Long: `engram stores typed memories with semantic embeddings and lexical
indices, and exposes add/recall/search/link/sleep/session over a single
SQLite file.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if traceFlag {
			os.Setenv("TRACE", "1")
		}

		fileCfg, err := engram.LoadConfig(configFlag)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg, err := fileCfg.ToEngramConfig()
		if err != nil {
			return fmt.Errorf("resolving config: %w", err)
		}
		if dbFlag != "" {
			cfg.DBPath = dbFlag
		}

		e, err := engram.Init(cfg)
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		eng = e
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if eng != nil {
			return eng.Close()
		}
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbFlag, "db", "", "SQLite database path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().BoolVar(&traceFlag, "trace", false, "enable trace-level diagnostic logging")
}

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
