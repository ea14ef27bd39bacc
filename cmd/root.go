package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/x/term"
	"github.com/fakeyudi/retrace/internal/config"
	"github.com/fakeyudi/retrace/internal/profile"
	"github.com/spf13/cobra"
)

// cfg holds the merged configuration, populated in PersistentPreRunE.
var cfg config.Config

// activeProfile holds the loaded user profile.
var activeProfile *profile.Profile

// keepStore prevents on-disk snapshot stores from being removed on exit.
var keepStore bool

// storeBackend overrides the configured snapshot backend when set.
var storeBackend string

var rootCmd = &cobra.Command{
	Use:   "retrace",
	Short: "Replay agent edit logs into checkpoints you can diff and restore",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip setup check for the setup command itself.
		if cmd.Name() == "setup" {
			return nil
		}

		// First-run: profile missing → run setup wizard automatically.
		// Only do this when stdin is an interactive terminal.
		if !profile.Exists() {
			if term.IsTerminal(os.Stdin.Fd()) {
				fmt.Println()
				fmt.Println("  Welcome to retrace! Looks like this is your first time.")
				if err := runSetup(true); err != nil {
					return err
				}
			}
			// Non-interactive (tests, pipes): continue with defaults, no profile required.
		}

		// Load profile (optional — may not exist in non-interactive environments).
		if profile.Exists() {
			p, err := profile.Load()
			if err != nil {
				return fmt.Errorf("loading profile: %w", err)
			}
			activeProfile = p
		}

		// Load and merge config files.
		global, err := config.LoadGlobal()
		if err != nil {
			return fmt.Errorf("loading global config: %w", err)
		}
		project, err := config.LoadProject()
		if err != nil {
			return fmt.Errorf("loading project config: %w", err)
		}
		cfg = config.Merge(global, project)

		// Profile values fill in config gaps.
		if activeProfile != nil {
			if cfg.StoreBackend == "memory" && activeProfile.StoreBackend != "" {
				cfg.StoreBackend = activeProfile.StoreBackend
			}
			if cfg.Color == "auto" && activeProfile.Color != "" {
				cfg.Color = activeProfile.Color
			}
			if len(cfg.SearchRoots) == 0 && activeProfile.SearchRoot != "" {
				cfg.SearchRoots = []string{activeProfile.SearchRoot}
			}
		}

		// Flags win over both config and profile.
		if storeBackend != "" {
			if storeBackend != "memory" && storeBackend != "badger" {
				return fmt.Errorf("unknown store backend %q (want memory or badger)", storeBackend)
			}
			cfg.StoreBackend = storeBackend
		}

		return nil
	},
}

// Execute runs the root command. Exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// GetConfig returns the merged configuration for use by subcommands.
func GetConfig() config.Config {
	return cfg
}

// GetProfile returns the active user profile.
func GetProfile() *profile.Profile {
	return activeProfile
}

func init() {
	rootCmd.PersistentFlags().StringVar(&storeBackend, "store", "", "snapshot store backend: memory or badger (default from config)")
	rootCmd.PersistentFlags().BoolVar(&keepStore, "keep-store", false, "keep the on-disk snapshot store after the command exits")
}
