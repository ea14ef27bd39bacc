package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pgregory.net/rapid"

	"github.com/spf13/cobra"
)

// executeCommand runs a cobra command with the given args and captures combined output.
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	_, err = root.ExecuteC()
	return buf.String(), err
}

// isolateEnv points config, profile and data paths at a temp dir.
func isolateEnv(t *testing.T) {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(tmp, "data"))
}

// resetFlags restores package-level flag values, since cobra keeps them
// across ExecuteC calls in the same process.
func resetFlags() {
	keepStore = false
	storeBackend = ""
	logSession, logFile, logAfter, logFrom, logTo = "", "", "", "", ""
	checkoutOut = ""
	diffContext, diffCheck = 0, false
	importOut = ""
	exportFormat, exportOut = "", ""
	plainOutput = false
}

const (
	fxCreate = `{"id":"op-aaaa0001","session_id":"sess-1","timestamp":"2025-03-01T09:00:00Z","file_path":"src/app.py","kind":"create","content":"x = 1\n"}`
	fxEdit   = `{"id":"op-bbbb0002","session_id":"sess-1","timestamp":"2025-03-01T09:05:00Z","file_path":"src/app.py","kind":"partial_edit","old_fragment":"x = 1","new_fragment":"x = 2"}`
	fxRead   = `{"id":"op-cccc0003","session_id":"sess-2","timestamp":"2025-03-01T09:10:00Z","file_path":"src/app.py","kind":"read"}`
	fxOrphan = `{"id":"op-eeee0005","session_id":"sess-3","timestamp":"2025-03-01T09:20:00Z","file_path":"notes.md","kind":"partial_edit","old_fragment":"draft","new_fragment":"final"}`
	fxBroken = `{"id":"op-dddd0004","session_id":"sess-1","timestamp":"2025-03-01T09:15:00Z","kind":"create","content":"y\n"}`
)

// writeLog writes the given record lines as an operation log fixture.
func writeLog(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ops.jsonl")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestReplaySummarisesLog(t *testing.T) {
	isolateEnv(t)
	resetFlags()
	path := writeLog(t, fxCreate, fxEdit, fxRead)

	out, err := executeCommand(rootCmd, "replay", path)
	if err != nil {
		t.Fatalf("replay command error: %v", err)
	}
	for _, want := range []string{"Operations:  3", "Checkpoints: 2", "Files:       1", "Sessions:    2"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestReplayReportsMalformedRecords(t *testing.T) {
	isolateEnv(t)
	resetFlags()
	path := writeLog(t, fxCreate, fxBroken, fxEdit, fxRead)

	out, err := executeCommand(rootCmd, "replay", path)
	if err != nil {
		t.Fatalf("replay command error: %v", err)
	}
	if !strings.Contains(out, `dropped malformed record "op-dddd0004"`) {
		t.Errorf("expected a warning about the malformed record, got:\n%s", out)
	}
	if !strings.Contains(out, "Operations:  3") {
		t.Errorf("malformed record should not be replayed, got:\n%s", out)
	}
}

func TestReplayCountsAccuracy(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 15).Draw(rt, "n")

		isolateEnv(t)
		resetFlags()

		lines := make([]string, n)
		for i := 0; i < n; i++ {
			lines[i] = fmt.Sprintf(
				`{"id":"op-%04d","session_id":"sess-1","timestamp":"2025-03-01T09:%02d:00Z","file_path":"f%d.txt","kind":"create","content":"v\n"}`,
				i, i, i)
		}
		path := writeLog(t, lines...)

		out, err := executeCommand(rootCmd, "replay", path)
		if err != nil {
			rt.Fatalf("replay command error: %v", err)
		}
		wantOps := fmt.Sprintf("Operations:  %d", n)
		wantCps := fmt.Sprintf("Checkpoints: %d", n)
		wantFiles := fmt.Sprintf("Files:       %d", n)
		if !strings.Contains(out, wantOps) {
			rt.Errorf("expected output to contain %q, got:\n%s", wantOps, out)
		}
		if !strings.Contains(out, wantCps) {
			rt.Errorf("expected output to contain %q, got:\n%s", wantCps, out)
		}
		if !strings.Contains(out, wantFiles) {
			rt.Errorf("expected output to contain %q, got:\n%s", wantFiles, out)
		}
	})
}

func TestReplayStoreFlag(t *testing.T) {
	isolateEnv(t)
	resetFlags()
	path := writeLog(t, fxCreate, fxEdit)

	out, err := executeCommand(rootCmd, "replay", "--store", "badger", path)
	if err != nil {
		t.Fatalf("replay command error: %v", err)
	}
	if !strings.Contains(out, "Operations:  2") {
		t.Errorf("expected the usual summary over a badger store, got:\n%s", out)
	}

	// Ephemeral store directories are removed on teardown.
	storeDir := filepath.Join(os.Getenv("XDG_DATA_HOME"), "retrace", "store")
	if entries, err := os.ReadDir(storeDir); err == nil && len(entries) > 0 {
		t.Errorf("expected the ephemeral store to be removed, found %d entries", len(entries))
	}

	resetFlags()
	if _, err := executeCommand(rootCmd, "replay", "--store", "bolt", path); err == nil {
		t.Error("expected an error for an unknown store backend")
	}
}

func TestReplayKeepStore(t *testing.T) {
	isolateEnv(t)
	resetFlags()
	path := writeLog(t, fxCreate)

	out, err := executeCommand(rootCmd, "replay", "--store", "badger", "--keep-store", path)
	if err != nil {
		t.Fatalf("replay command error: %v", err)
	}
	if !strings.Contains(out, "snapshot store kept at") {
		t.Errorf("expected the kept-store notice, got:\n%s", out)
	}
}

func TestLogListsOperationsWithMarkers(t *testing.T) {
	isolateEnv(t)
	resetFlags()
	path := writeLog(t, fxCreate, fxEdit, fxRead, fxOrphan)

	out, err := executeCommand(rootCmd, "log", path)
	if err != nil {
		t.Fatalf("log command error: %v", err)
	}
	for _, want := range []string{"op-aaaa0", "op-bbbb0", "op-cccc0", "op-eeee0", "src/app.py", "[bootstrapped]"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestLogSessionFilter(t *testing.T) {
	isolateEnv(t)
	resetFlags()
	path := writeLog(t, fxCreate, fxEdit, fxRead)

	out, err := executeCommand(rootCmd, "log", "--session", "sess-1", path)
	if err != nil {
		t.Fatalf("log command error: %v", err)
	}
	if !strings.Contains(out, "op-aaaa0") || !strings.Contains(out, "op-bbbb0") {
		t.Errorf("expected sess-1 operations, got:\n%s", out)
	}
	if strings.Contains(out, "op-cccc0") {
		t.Errorf("sess-2 operation should be filtered out, got:\n%s", out)
	}
}

func TestLogAfterFilter(t *testing.T) {
	isolateEnv(t)
	resetFlags()
	path := writeLog(t, fxCreate, fxEdit, fxRead)

	out, err := executeCommand(rootCmd, "log", "--after", "op-aaaa0001", path)
	if err != nil {
		t.Fatalf("log command error: %v", err)
	}
	if strings.Contains(out, "op-aaaa0") {
		t.Errorf("start of range is exclusive, got:\n%s", out)
	}
	if !strings.Contains(out, "op-bbbb0") || !strings.Contains(out, "op-cccc0") {
		t.Errorf("expected the later operations, got:\n%s", out)
	}
}

func TestLogRangeFlags(t *testing.T) {
	isolateEnv(t)
	resetFlags()
	path := writeLog(t, fxCreate, fxEdit, fxRead)

	out, err := executeCommand(rootCmd, "log", "--from", "op-aaaa0001", "--to", "op-cccc0003", path)
	if err != nil {
		t.Fatalf("log command error: %v", err)
	}
	if strings.Contains(out, "op-aaaa0") {
		t.Errorf("range start is exclusive, got:\n%s", out)
	}
	if !strings.Contains(out, "op-bbbb0") || !strings.Contains(out, "op-cccc0") {
		t.Errorf("expected range contents, got:\n%s", out)
	}

	resetFlags()
	if _, err := executeCommand(rootCmd, "log", "--from", "op-aaaa0001", path); err == nil {
		t.Error("expected an error when --from is given without --to")
	}
}
