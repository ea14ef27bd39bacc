package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// Config holds all configurable Retrace settings.
type Config struct {
	DataDir        string   `json:"data_dir"`        // override the XDG data location
	StoreBackend   string   `json:"store_backend"`   // "memory" | "badger"
	Compression    string   `json:"compression"`     // "zstd" | "none"
	SearchRoots    []string `json:"search_roots"`    // where transcripts are discovered
	IgnorePatterns []string `json:"ignore_patterns"` // glob patterns skipped during discovery
	ContextLines   int      `json:"context_lines"`   // unified diff context
	Color          string   `json:"color"`           // "auto" | "always" | "never"
}

// Defaults returns sensible default configuration values.
func Defaults() Config {
	return Config{
		StoreBackend:   "memory",
		Compression:    "zstd",
		ContextLines:   3,
		Color:          "auto",
		SearchRoots:    []string{},
		IgnorePatterns: []string{},
	}
}

// LoadGlobal reads config.json from $XDG_CONFIG_HOME/retrace, falling
// back to ~/.config/retrace. Returns defaults if the file is absent.
func LoadGlobal() (*Config, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	return loadFile(filepath.Join(dir, "config.json"), true)
}

// LoadProject reads .retrace.json in the current working directory.
// Returns nil (no error) if the file is absent.
func LoadProject() (*Config, error) {
	return loadFile(".retrace.json", false)
}

// ConfigDir returns the directory retrace keeps its global config in.
func ConfigDir() (string, error) {
	if base := os.Getenv("XDG_CONFIG_HOME"); base != "" {
		return filepath.Join(base, "retrace"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "retrace"), nil
}

// ResolveDataDir returns the directory for stores and logs: the
// configured override, or $XDG_DATA_HOME/retrace, or
// ~/.local/share/retrace.
func (c Config) ResolveDataDir() (string, error) {
	if c.DataDir != "" {
		return c.DataDir, nil
	}
	if base := os.Getenv("XDG_DATA_HOME"); base != "" {
		return filepath.Join(base, "retrace"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "retrace"), nil
}

// ResolveSearchRoots returns the configured transcript roots, or the
// default assistant log location under the home directory.
func (c Config) ResolveSearchRoots() []string {
	if len(c.SearchRoots) > 0 {
		return c.SearchRoots
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{filepath.Join(home, ".claude", "projects")}
}

// loadFile reads and parses a JSON config file at path.
// If returnDefaults is true, returns defaults when the file is absent.
// If returnDefaults is false, returns nil when the file is absent.
func loadFile(path string, returnDefaults bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if returnDefaults {
				d := Defaults()
				return &d, nil
			}
			return nil, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &cfg, nil
}

// Merge combines global and project configs, with project taking precedence.
// Missing keys fall back to global, then defaults.
func Merge(global, project *Config) Config {
	result := Defaults()
	for _, layer := range []*Config{global, project} {
		if layer == nil {
			continue
		}
		if layer.DataDir != "" {
			result.DataDir = layer.DataDir
		}
		if layer.StoreBackend != "" {
			result.StoreBackend = layer.StoreBackend
		}
		if layer.Compression != "" {
			result.Compression = layer.Compression
		}
		if len(layer.SearchRoots) > 0 {
			result.SearchRoots = layer.SearchRoots
		}
		if len(layer.IgnorePatterns) > 0 {
			result.IgnorePatterns = layer.IgnorePatterns
		}
		if layer.ContextLines != 0 {
			result.ContextLines = layer.ContextLines
		}
		if layer.Color != "" {
			result.Color = layer.Color
		}
	}
	return result
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
