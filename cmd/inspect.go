package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fakeyudi/retrace/internal/export"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <export-file>",
	Short: "Read back a previously exported history file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("file not found: %s", path)
			}
			return err
		}

		var parser export.Parser
		switch strings.ToLower(filepath.Ext(path)) {
		case ".json":
			parser = &export.JSONParser{}
		default:
			parser = &export.MarkdownParser{}
		}

		b, err := parser.Parse(data)
		if err != nil {
			return err
		}

		cmd.Printf("Source:     %s\n", b.Source)
		cmd.Printf("Generated:  %s\n", b.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
		cmd.Printf("Operations: %d\n", len(b.Operations))
		cmd.Printf("Files:      %d\n", len(b.Files))
		cmd.Printf("Sessions:   %d\n", len(b.Sessions))
		for _, s := range b.Sessions {
			cmd.Printf("  %s  %d operations over %d files\n", s.SessionID, s.OperationCount, s.DistinctFiles)
		}
		if len(b.Warnings) > 0 {
			cmd.Println("Warnings:")
			for _, w := range b.Warnings {
				cmd.Printf("  %s\n", w)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
