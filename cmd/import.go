package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fakeyudi/retrace/internal/oplog"
	"github.com/fakeyudi/retrace/internal/record"
	"github.com/spf13/cobra"
)

var importOut string

var importCmd = &cobra.Command{
	Use:   "import <transcript|dir...>",
	Short: "Convert session transcripts into a single ordered operation log",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sources, err := expandSources(args)
		if err != nil {
			return err
		}
		sets, err := loadRecords(cmd, sources)
		if err != nil {
			return err
		}

		ordered, malformed := record.Merge(sets...)
		for i := range malformed {
			cmd.PrintErrf("warning: dropped %s\n", malformed[i].Error())
		}
		if len(ordered) == 0 {
			return fmt.Errorf("no operation records found in %d sources", len(sources))
		}

		out := importOut
		if out == "" {
			dataDir, err := cfg.ResolveDataDir()
			if err != nil {
				return err
			}
			out = filepath.Join(dataDir, "oplog", "retrace-"+time.Now().Format("20060102-150405")+".jsonl")
		}

		w, err := oplog.NewWriter(out)
		if err != nil {
			return err
		}
		for _, rec := range ordered {
			if err := w.Append(rec); err != nil {
				w.Close()
				return fmt.Errorf("appending %s: %w", rec.ID, err)
			}
		}
		if err := w.Close(); err != nil {
			return err
		}

		cmd.Printf("Imported %d operations from %d sources. Output: %s\n", len(ordered), len(sources), out)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVarP(&importOut, "out", "o", "", "operation log to write (defaults into the data directory)")
	rootCmd.AddCommand(importCmd)
}
