package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
)

var checkoutOut string

var checkoutCmd = &cobra.Command{
	Use:   "checkout <operation> [log|transcript|dir...]",
	Short: "Restore the working tree as of one checkpoint",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, done, err := buildEngine(cmd, args[1:])
		if err != nil {
			return err
		}
		defer done()

		files, err := eng.Checkout(args[0])
		if err != nil {
			return err
		}

		if checkoutOut == "" {
			paths := make([]string, 0, len(files))
			for p := range files {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			total := 0
			for _, p := range paths {
				cmd.Printf("%8d  %s\n", len(files[p]), p)
				total += len(files[p])
			}
			cmd.Printf("%d files, %d bytes at %s\n", len(paths), total, args[0])
			return nil
		}

		// Absolute record paths nest under the output directory.
		for path, content := range files {
			target := filepath.Join(checkoutOut, path)
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", filepath.Dir(target), err)
			}
			if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", target, err)
			}
		}
		cmd.Printf("Restored %d files to %s\n", len(files), checkoutOut)
		return nil
	},
}

func init() {
	checkoutCmd.Flags().StringVarP(&checkoutOut, "out", "o", "", "directory to write the restored tree into")
	rootCmd.AddCommand(checkoutCmd)
}
