package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fakeyudi/retrace/internal/replay"
	"github.com/fakeyudi/retrace/internal/textdiff"
	"github.com/spf13/cobra"
)

var (
	diffContext int
	diffCheck   bool
)

var (
	diffAddStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	diffDelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	diffMetaStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

var diffCmd = &cobra.Command{
	Use:   "diff <operation> [log|transcript|dir...]",
	Short: "Show what one operation changed as a unified diff",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, done, err := buildEngine(cmd, args[1:])
		if err != nil {
			return err
		}
		defer done()

		d, err := eng.Diff(args[0])
		if err != nil {
			if errors.Is(err, replay.ErrNotApplicable) {
				cmd.Println("read operation, nothing to diff")
				return nil
			}
			return err
		}

		text := strings.Join(d.Unified, "\n")
		context := diffContext
		if context == 0 {
			context = cfg.ContextLines
		}
		if context != textdiff.DefaultContext && text != "" {
			text = strings.TrimSuffix(
				textdiff.Unified("a/"+d.FilePath, "b/"+d.FilePath, d.Before, d.After, context), "\n")
		}

		if text == "" {
			cmd.Printf("operation %s changed nothing\n", short(d.OperationID))
			return nil
		}

		if resolveColor() {
			cmd.Println(colorizeDiff(text))
		} else {
			cmd.Println(text)
		}

		if diffCheck {
			applied, err := textdiff.Apply(d.Before, text)
			if err != nil {
				return fmt.Errorf("diff does not apply: %w", err)
			}
			if applied != d.After {
				return fmt.Errorf("diff check failed: applying the diff does not reproduce the file")
			}
			cmd.Println("check: diff applies cleanly")
		}
		return nil
	},
}

// colorizeDiff colours added, removed and hunk-header lines.
func colorizeDiff(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			lines[i] = diffMetaStyle.Render(line)
		case strings.HasPrefix(line, "+"):
			lines[i] = diffAddStyle.Render(line)
		case strings.HasPrefix(line, "-"):
			lines[i] = diffDelStyle.Render(line)
		case strings.HasPrefix(line, "@@"):
			lines[i] = diffMetaStyle.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}

func init() {
	diffCmd.Flags().IntVarP(&diffContext, "context", "c", 0, "context lines around each change (0 uses the configured default)")
	diffCmd.Flags().BoolVar(&diffCheck, "check", false, "verify the diff reproduces the file when applied")
	rootCmd.AddCommand(diffCmd)
}
