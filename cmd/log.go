package cmd

import (
	"fmt"

	"github.com/fakeyudi/retrace/internal/record"
	"github.com/spf13/cobra"
)

var (
	logSession string
	logFile    string
	logAfter   string
	logFrom    string
	logTo      string
)

var logCmd = &cobra.Command{
	Use:   "log [log|transcript|dir...]",
	Short: "List replayed operations in chronological order",
	RunE: func(cmd *cobra.Command, args []string) error {
		if (logFrom == "") != (logTo == "") {
			return fmt.Errorf("--from and --to must be given together")
		}
		if logAfter != "" && logFrom != "" {
			return fmt.Errorf("--after cannot be combined with --from/--to")
		}

		eng, rep, done, err := buildEngine(cmd, args)
		if err != nil {
			return err
		}
		defer done()

		// Range flags narrow the listing to a slice of the history. The
		// returned records pick which steps get printed so markers like
		// [bootstrapped] stay visible either way.
		var allowed map[string]bool
		switch {
		case logFrom != "":
			recs, err := eng.OperationsBetween(logFrom, logTo, logFile)
			if err != nil {
				return err
			}
			allowed = idSet(recs)
		case logAfter != "":
			recs, err := eng.OperationsAfter(logAfter, logFile)
			if err != nil {
				return err
			}
			allowed = idSet(recs)
		}

		shown := 0
		for _, st := range eng.Operations() {
			r := st.Record
			if allowed != nil && !allowed[r.ID] {
				continue
			}
			if logSession != "" && r.SessionID != logSession {
				continue
			}
			if logFile != "" && r.FilePath != logFile {
				continue
			}
			line := fmt.Sprintf("%-8s  %-12s  %s  %-12s  %s",
				short(r.ID), r.Kind, r.Timestamp.Format("2006-01-02 15:04:05"), r.SessionID, r.FilePath)
			if st.Bootstrapped() {
				line += "  [bootstrapped]"
			}
			if r.Kind.Mutates() && st.SnapshotID == "" {
				line += "  [no checkpoint]"
			}
			cmd.Println(line)
			shown++
		}
		if shown == 0 {
			cmd.Println("no operations")
		}
		printWarnings(cmd, rep)
		return nil
	},
}

func idSet(recs []record.Record) map[string]bool {
	set := make(map[string]bool, len(recs))
	for _, r := range recs {
		set[r.ID] = true
	}
	return set
}

func init() {
	logCmd.Flags().StringVar(&logSession, "session", "", "only operations from this session")
	logCmd.Flags().StringVar(&logFile, "file", "", "only operations touching this file path")
	logCmd.Flags().StringVar(&logAfter, "after", "", "only operations after this operation id or prefix")
	logCmd.Flags().StringVar(&logFrom, "from", "", "start of an operation range (exclusive)")
	logCmd.Flags().StringVar(&logTo, "to", "", "end of an operation range (inclusive)")
	rootCmd.AddCommand(logCmd)
}
