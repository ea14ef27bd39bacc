package cmd

import (
	"fmt"

	"github.com/fakeyudi/retrace/internal/replay"
	"github.com/fakeyudi/retrace/internal/tui"
	"github.com/spf13/cobra"
)

var plainOutput bool

var viewCmd = &cobra.Command{
	Use:   "view [log|transcript|dir...]",
	Short: "Browse the replayed history in an interactive TUI",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, rep, done, err := buildEngine(cmd, args)
		if err != nil {
			return err
		}
		defer done()

		if plainOutput {
			printHistory(cmd, eng, rep)
			return nil
		}
		return tui.Run(eng, rep, sourcesLabel(args))
	},
}

// printHistory writes a plain-text rendering of the replayed history.
func printHistory(cmd *cobra.Command, eng *replay.Engine, rep *replay.Report) {
	cmd.Println("## Summary")
	cmd.Printf("  Operations:  %d\n", len(eng.Operations()))
	cmd.Printf("  Checkpoints: %d\n", eng.Checkpoints())
	cmd.Printf("  Files:       %d\n", len(eng.FinalTree()))
	cmd.Println()

	cmd.Println("## Sessions")
	sessions := eng.Sessions()
	if len(sessions) == 0 {
		cmd.Println("  (none)")
	} else {
		for _, s := range sessions {
			cmd.Printf("  %s  %d operations over %d files\n", s.SessionID, s.OperationCount, s.DistinctFiles)
		}
	}
	cmd.Println()

	cmd.Println("## Operations")
	steps := eng.Operations()
	if len(steps) == 0 {
		cmd.Println("  (none)")
	} else {
		for _, st := range steps {
			line := fmt.Sprintf("  %s  %-12s  %s  %s",
				short(st.Record.ID), st.Record.Kind, st.Record.Timestamp.Format("15:04:05"), st.Record.FilePath)
			if st.Bootstrapped() {
				line += "  [bootstrapped]"
			}
			if st.Record.Kind.Mutates() && st.SnapshotID == "" {
				line += "  [no checkpoint]"
			}
			cmd.Println(line)
		}
	}
	cmd.Println()

	cmd.Println("## Warnings")
	warnings := rep.Warnings()
	if len(warnings) == 0 {
		cmd.Println("  (none)")
	} else {
		for _, w := range warnings {
			cmd.Printf("  %s\n", w)
		}
	}
	cmd.Println()
}

func init() {
	viewCmd.Flags().BoolVar(&plainOutput, "plain", false, "plain text output instead of TUI")
	rootCmd.AddCommand(viewCmd)
}
