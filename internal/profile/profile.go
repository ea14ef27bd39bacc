// Package profile manages the user's persistent retrace profile.
// The profile lives next to the config file and is created once via the
// interactive setup flow, then consulted on every command to fill in
// preferences the config files leave unset.
package profile

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fakeyudi/retrace/internal/config"
)

// Profile holds user-level preferences set during first-run setup.
type Profile struct {
	Name         string `json:"name"`
	StoreBackend string `json:"store_backend"` // "memory" | "badger"
	ExportFormat string `json:"export_format"` // "markdown" | "json"
	Color        string `json:"color"`         // "auto" | "always" | "never"
	SearchRoot   string `json:"search_root"`   // default transcript location
}

// profilePath returns the path to the profile file.
func profilePath() (string, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "profile.json"), nil
}

// Exists reports whether a profile file is present on disk.
func Exists() bool {
	p, err := profilePath()
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}

// Load reads the profile from disk. Returns an error if the file is missing or malformed.
func Load() (*Profile, error) {
	p, err := profilePath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("profile not found, run 'retrace setup' to configure: %w", err)
	}
	var prof Profile
	if err := json.Unmarshal(data, &prof); err != nil {
		return nil, fmt.Errorf("malformed profile at %s: %w", p, err)
	}
	return &prof, nil
}

// Save writes the profile to disk atomically via a temp file + os.Rename,
// creating the config directory if needed.
func Save(prof *Profile) error {
	p, err := profilePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(prof, "", "  ")
	if err != nil {
		return err
	}

	// Write to a temp file in the same directory so os.Rename is atomic.
	tmp, err := os.CreateTemp(filepath.Dir(p), "profile-*.json.tmp")
	if err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("saving profile: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}
	if err = os.Rename(tmpName, p); err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}
	return nil
}

// RunSetup runs the interactive setup wizard and saves the resulting profile.
// If existing is non-nil, it is used as the default for each prompt (edit mode).
func RunSetup(existing *Profile) (*Profile, error) {
	r := bufio.NewReader(os.Stdin)

	ask := func(prompt, defaultVal string) (string, error) {
		if defaultVal != "" {
			fmt.Printf("%s [%s]: ", prompt, defaultVal)
		} else {
			fmt.Printf("%s: ", prompt)
		}
		line, err := r.ReadString('\n')
		if err != nil {
			return "", err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return defaultVal, nil
		}
		return line, nil
	}

	askChoice := func(prompt, defaultVal string, allowed ...string) (string, error) {
		ans, err := ask(prompt, defaultVal)
		if err != nil {
			return "", err
		}
		ans = strings.ToLower(ans)
		for _, a := range allowed {
			if ans == a {
				return ans, nil
			}
		}
		return defaultVal, nil
	}

	prof := &Profile{
		StoreBackend: "memory",
		ExportFormat: "markdown",
		Color:        "auto",
		SearchRoot:   defaultSearchRoot(),
	}
	if existing != nil {
		*prof = *existing
	}

	fmt.Println()
	fmt.Println("  ┌─────────────────────────────────┐")
	fmt.Println("  │   retrace — first-time setup    │")
	fmt.Println("  └─────────────────────────────────┘")
	fmt.Println()

	var err error

	prof.Name, err = ask("  Your name (shown in exports)", prof.Name)
	if err != nil {
		return nil, err
	}

	prof.StoreBackend, err = askChoice("  Snapshot store (memory/badger)", prof.StoreBackend, "memory", "badger")
	if err != nil {
		return nil, err
	}

	prof.ExportFormat, err = askChoice("  Default export format (markdown/json)", prof.ExportFormat, "markdown", "json")
	if err != nil {
		return nil, err
	}

	prof.Color, err = askChoice("  Color output (auto/always/never)", prof.Color, "auto", "always", "never")
	if err != nil {
		return nil, err
	}

	prof.SearchRoot, err = ask("  Transcript search root", prof.SearchRoot)
	if err != nil {
		return nil, err
	}

	fmt.Println()
	return prof, nil
}

// defaultSearchRoot points at the conventional transcript location.
func defaultSearchRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".claude", "projects")
}
