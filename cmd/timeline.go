package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var timelineCmd = &cobra.Command{
	Use:   "timeline <file> [log|transcript|dir...]",
	Short: "Show every operation that touched one file, numbered",
	Long: `Show every operation that touched one file, numbered from 1.

The file is matched against the path exactly as it appears in the log,
which is usually absolute. A relative path is also tried in its absolute
form before giving up.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, done, err := buildEngine(cmd, args[1:])
		if err != nil {
			return err
		}
		defer done()

		path := args[0]
		entries := eng.FileTimeline(path)
		if len(entries) == 0 {
			if abs, absErr := filepath.Abs(path); absErr == nil {
				path = abs
				entries = eng.FileTimeline(path)
			}
		}
		if len(entries) == 0 {
			return fmt.Errorf("no operations touched %s", args[0])
		}

		cmd.Println(path)
		for _, e := range entries {
			line := fmt.Sprintf("%3d. %-8s  %-12s  %s", e.Seq, short(e.OperationID), e.Kind, e.SessionID)
			if e.Bootstrap {
				line += "  [bootstrapped]"
			}
			cmd.Println(line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(timelineCmd)
}
