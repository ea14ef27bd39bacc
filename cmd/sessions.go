package cmd

import (
	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions [log|transcript|dir...]",
	Short: "Summarise each session found in the replayed logs",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, rep, done, err := buildEngine(cmd, args)
		if err != nil {
			return err
		}
		defer done()

		sessions := eng.Sessions()
		if len(sessions) == 0 {
			cmd.Println("no sessions")
			return nil
		}
		for _, s := range sessions {
			cmd.Printf("%-24s  %4d operations  %3d files  %s to %s\n",
				s.SessionID, s.OperationCount, s.DistinctFiles,
				s.First.Format("2006-01-02 15:04:05"), s.Last.Format("2006-01-02 15:04:05"))
		}
		printWarnings(cmd, rep)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
}
