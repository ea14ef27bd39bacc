package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckoutWritesTreeToDir(t *testing.T) {
	isolateEnv(t)
	resetFlags()
	path := writeLog(t, fxCreate, fxEdit, fxRead)
	out := filepath.Join(t.TempDir(), "restored")

	// A unique prefix resolves the same as the full id.
	if _, err := executeCommand(rootCmd, "checkout", "op-bb", path, "--out", out); err != nil {
		t.Fatalf("checkout command error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(out, "src", "app.py"))
	if err != nil {
		t.Fatalf("restored file missing: %v", err)
	}
	if string(data) != "x = 2\n" {
		t.Errorf("restored content: got %q, want %q", string(data), "x = 2\n")
	}
}

func TestCheckoutListsTree(t *testing.T) {
	isolateEnv(t)
	resetFlags()
	path := writeLog(t, fxCreate, fxEdit, fxRead)

	out, err := executeCommand(rootCmd, "checkout", "op-aaaa0001", path)
	if err != nil {
		t.Fatalf("checkout command error: %v", err)
	}
	if !strings.Contains(out, "src/app.py") {
		t.Errorf("expected the file listing, got:\n%s", out)
	}
	if !strings.Contains(out, "1 files, 6 bytes") {
		t.Errorf("expected the totals line, got:\n%s", out)
	}
}

func TestCheckoutBootstrapCheckpoint(t *testing.T) {
	isolateEnv(t)
	resetFlags()
	path := writeLog(t, fxCreate, fxOrphan)
	out := filepath.Join(t.TempDir(), "restored")

	// An edit with no prior state records the state it found under a
	// synthetic checkpoint named after the operation.
	if _, err := executeCommand(rootCmd, "checkout", "^op-eeee0005", path, "--out", out); err != nil {
		t.Fatalf("checkout command error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(out, "notes.md"))
	if err != nil {
		t.Fatalf("restored file missing: %v", err)
	}
	if string(data) != "draft" {
		t.Errorf("bootstrap content: got %q, want %q", string(data), "draft")
	}
}

func TestCheckoutRejectsUnknownAndAmbiguous(t *testing.T) {
	isolateEnv(t)
	resetFlags()
	path := writeLog(t, fxCreate, fxEdit, fxRead)

	if _, err := executeCommand(rootCmd, "checkout", "op-zzzz", path); err == nil {
		t.Error("expected an error for an unknown checkpoint")
	}
	resetFlags()
	_, err := executeCommand(rootCmd, "checkout", "op-", path)
	if err == nil {
		t.Fatal("expected an error for an ambiguous prefix")
	}
	if !strings.Contains(err.Error(), "ambiguous") {
		t.Errorf("expected an ambiguity error, got: %v", err)
	}
}

func TestDiffShowsUnifiedChange(t *testing.T) {
	isolateEnv(t)
	resetFlags()
	path := writeLog(t, fxCreate, fxEdit, fxRead)

	out, err := executeCommand(rootCmd, "diff", "op-bbbb0002", path)
	if err != nil {
		t.Fatalf("diff command error: %v", err)
	}
	for _, want := range []string{"--- a/src/app.py", "+++ b/src/app.py", "-x = 1", "+x = 2"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestDiffCheckVerifiesApplication(t *testing.T) {
	isolateEnv(t)
	resetFlags()
	path := writeLog(t, fxCreate, fxEdit, fxRead)

	out, err := executeCommand(rootCmd, "diff", "op-bbbb0002", path, "--check")
	if err != nil {
		t.Fatalf("diff command error: %v", err)
	}
	if !strings.Contains(out, "check: diff applies cleanly") {
		t.Errorf("expected the check confirmation, got:\n%s", out)
	}
}

func TestDiffOfReadOperation(t *testing.T) {
	isolateEnv(t)
	resetFlags()
	path := writeLog(t, fxCreate, fxEdit, fxRead)

	out, err := executeCommand(rootCmd, "diff", "op-cccc0003", path)
	if err != nil {
		t.Fatalf("diff command error: %v", err)
	}
	if !strings.Contains(out, "read operation, nothing to diff") {
		t.Errorf("expected the read notice, got:\n%s", out)
	}
}
