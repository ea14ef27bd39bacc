package cmd

import (
	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay [log|transcript|dir...]",
	Short: "Replay operation logs and summarise what was rebuilt",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, rep, done, err := buildEngine(cmd, args)
		if err != nil {
			return err
		}
		defer done()

		cmd.Printf("Operations:  %d\n", len(eng.Operations()))
		cmd.Printf("Checkpoints: %d\n", eng.Checkpoints())
		cmd.Printf("Files:       %d\n", len(eng.FinalTree()))
		cmd.Printf("Sessions:    %d\n", len(eng.Sessions()))
		printWarnings(cmd, rep)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)
}
