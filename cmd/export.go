package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/fakeyudi/retrace/internal/export"
	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export [log|transcript|dir...]",
	Short: "Write the replayed history to a shareable file",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, rep, done, err := buildEngine(cmd, args)
		if err != nil {
			return err
		}
		defer done()

		// Select renderer based on --format flag or profile preference.
		format := exportFormat
		if format == "" && activeProfile != nil {
			format = activeProfile.ExportFormat
		}

		var renderer export.Renderer
		ext := ".md"
		if format == "json" {
			renderer = &export.JSONRenderer{}
			ext = ".json"
		} else {
			renderer = &export.MarkdownRenderer{}
		}

		b := export.New(eng, rep, sourcesLabel(args))
		data, err := renderer.Render(b)
		if err != nil {
			return fmt.Errorf("rendering history: %w", err)
		}

		out := exportOut
		if out == "" {
			out = "retrace-history-" + time.Now().Format("20060102-150405") + ext
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return fmt.Errorf("writing output file: %w", err)
		}

		cmd.Printf("Exported %d operations. Output: %s\n", len(b.Operations), out)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "", "output format: markdown or json (overrides profile)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "file to write (defaults to retrace-history-<time>)")
	rootCmd.AddCommand(exportCmd)
}
