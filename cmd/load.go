package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/fakeyudi/retrace/internal/oplog"
	"github.com/fakeyudi/retrace/internal/record"
	"github.com/fakeyudi/retrace/internal/replay"
	"github.com/fakeyudi/retrace/internal/snapshot"
	"github.com/fakeyudi/retrace/internal/transcript"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// expandSources turns command arguments into a list of log files. Directory
// arguments are searched for transcripts; with no arguments at all the
// configured search roots are searched instead.
func expandSources(args []string) ([]string, error) {
	if len(args) == 0 {
		roots := cfg.ResolveSearchRoots()
		f := &transcript.Finder{Roots: roots, IgnorePatterns: cfg.IgnorePatterns}
		found, err := f.Find(time.Time{})
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			return nil, fmt.Errorf("no logs found under %s", strings.Join(roots, ", "))
		}
		return found, nil
	}

	var out []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("reading source %s: %w", arg, err)
		}
		if info.IsDir() {
			f := &transcript.Finder{Roots: []string{arg}, IgnorePatterns: cfg.IgnorePatterns}
			found, err := f.Find(time.Time{})
			if err != nil {
				return nil, err
			}
			out = append(out, found...)
			continue
		}
		out = append(out, arg)
	}
	return out, nil
}

// loadRecords reads each source file, treating it as a native operation log
// when its first line decodes as an operation record and as a session
// transcript otherwise. Unreadable lines are counted, not fatal.
func loadRecords(cmd *cobra.Command, paths []string) ([][]record.Record, error) {
	var sets [][]record.Record
	for _, path := range paths {
		if isOperationLog(path) {
			recs, skipped, err := oplog.ReadLog(path)
			if err != nil {
				return nil, err
			}
			if skipped > 0 {
				cmd.PrintErrf("warning: %s: %d unreadable lines skipped\n", path, skipped)
			}
			sets = append(sets, recs)
			continue
		}
		res, err := transcript.ParseFile(path)
		if err != nil {
			return nil, err
		}
		if res.Skipped > 0 {
			cmd.PrintErrf("warning: %s: %d unreadable lines skipped\n", path, res.Skipped)
		}
		sets = append(sets, res.Records)
	}
	return sets, nil
}

// isOperationLog sniffs the first non-empty line of a file. Native logs hold
// operation records directly, so the line carries a kind; transcripts wrap
// their operations inside conversation entries.
func isOperationLog(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	r := bufio.NewReader(f)
	for {
		line, err := r.ReadString('\n')
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			var rec record.Record
			if json.Unmarshal([]byte(trimmed), &rec) != nil {
				return false
			}
			return rec.Kind != ""
		}
		if err != nil {
			return false
		}
	}
}

// newStore opens the snapshot store selected by configuration. On-disk
// stores live under the data directory and are removed on teardown unless
// --keep-store is set.
func newStore() (snapshot.Store, string, error) {
	if cfg.StoreBackend != "badger" {
		return snapshot.NewMemory(), "", nil
	}
	dataDir, err := cfg.ResolveDataDir()
	if err != nil {
		return nil, "", err
	}
	dir := filepath.Join(dataDir, "store", uuid.NewString())
	st, err := snapshot.Open(dir, snapshot.Options{
		Compression: cfg.Compression != "none",
		Ephemeral:   !keepStore,
	})
	if err != nil {
		return nil, "", err
	}
	return st, dir, nil
}

// buildEngine replays the given sources into a fresh engine. The returned
// cleanup function tears the engine and its store down.
func buildEngine(cmd *cobra.Command, args []string) (*replay.Engine, *replay.Report, func(), error) {
	sources, err := expandSources(args)
	if err != nil {
		return nil, nil, nil, err
	}
	sets, err := loadRecords(cmd, sources)
	if err != nil {
		return nil, nil, nil, err
	}
	store, dir, err := newStore()
	if err != nil {
		return nil, nil, nil, err
	}
	eng, rep := replay.Build(store, sets...)
	cleanup := func() {
		if err := eng.Teardown(); err != nil {
			cmd.PrintErrf("warning: closing store: %v\n", err)
		}
		if keepStore && dir != "" {
			cmd.PrintErrf("snapshot store kept at %s\n", dir)
		}
	}
	return eng, rep, cleanup, nil
}

// sourcesLabel names the replayed input for titles and export headers.
func sourcesLabel(args []string) string {
	if len(args) == 0 {
		return "discovered transcripts"
	}
	label := filepath.Base(args[0])
	if len(args) > 1 {
		label += fmt.Sprintf(" (+%d more)", len(args)-1)
	}
	return label
}

// printWarnings reports replay problems on stderr so stdout stays clean.
func printWarnings(cmd *cobra.Command, rep *replay.Report) {
	for _, w := range rep.Warnings() {
		cmd.PrintErrf("warning: %s\n", w)
	}
}

// resolveColor decides whether diff output gets colorised.
func resolveColor() bool {
	switch cfg.Color {
	case "always":
		return true
	case "never":
		return false
	}
	return term.IsTerminal(os.Stdout.Fd())
}

// short truncates an operation id for display.
func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
