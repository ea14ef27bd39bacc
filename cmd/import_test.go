package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const fxTranscript = `{"type":"assistant","sessionId":"sess-t","timestamp":"2025-03-01T10:00:00Z","cwd":"/work","message":{"content":[{"type":"tool_use","id":"tool-use-01","name":"Write","input":{"file_path":"notes.txt","content":"hello\n"}}]}}
{"type":"user","timestamp":"2025-03-01T10:00:05Z","message":{"content":"thanks"}}`

func TestImportTranscriptThenReplay(t *testing.T) {
	isolateEnv(t)
	resetFlags()

	dir := t.TempDir()
	tpath := filepath.Join(dir, "session-t.jsonl")
	if err := os.WriteFile(tpath, []byte(fxTranscript+"\n"), 0o644); err != nil {
		t.Fatalf("write transcript: %v", err)
	}
	outPath := filepath.Join(dir, "imported.jsonl")

	out, err := executeCommand(rootCmd, "import", tpath, "--out", outPath)
	if err != nil {
		t.Fatalf("import command error: %v", err)
	}
	if !strings.Contains(out, "Imported 1 operations from 1 sources") {
		t.Errorf("expected the import summary, got:\n%s", out)
	}

	// The written log is a native one and replays directly.
	resetFlags()
	out, err = executeCommand(rootCmd, "replay", outPath)
	if err != nil {
		t.Fatalf("replay command error: %v", err)
	}
	if !strings.Contains(out, "Operations:  1") || !strings.Contains(out, "Checkpoints: 1") {
		t.Errorf("expected the replayed import, got:\n%s", out)
	}
}

func TestImportRejectsEmptyInput(t *testing.T) {
	isolateEnv(t)
	resetFlags()

	dir := t.TempDir()
	tpath := filepath.Join(dir, "chatter.jsonl")
	line := `{"type":"user","timestamp":"2025-03-01T10:00:05Z","message":{"content":"no tools here"}}`
	if err := os.WriteFile(tpath, []byte(line+"\n"), 0o644); err != nil {
		t.Fatalf("write transcript: %v", err)
	}

	if _, err := executeCommand(rootCmd, "import", tpath, "--out", filepath.Join(dir, "out.jsonl")); err == nil {
		t.Error("expected an error importing a transcript with no operations")
	}
}

func TestExportInspectRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		name string
		ext  string
		args []string
	}{
		{name: "markdown", ext: ".md", args: nil},
		{name: "json", ext: ".json", args: []string{"--format", "json"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			isolateEnv(t)
			resetFlags()
			path := writeLog(t, fxCreate, fxEdit, fxRead)
			outFile := filepath.Join(t.TempDir(), "history"+tc.ext)

			args := append([]string{"export", path, "--out", outFile}, tc.args...)
			out, err := executeCommand(rootCmd, args...)
			if err != nil {
				t.Fatalf("export command error: %v", err)
			}
			if !strings.Contains(out, "Exported 3 operations") {
				t.Errorf("expected the export summary, got:\n%s", out)
			}

			out, err = executeCommand(rootCmd, "inspect", outFile)
			if err != nil {
				t.Fatalf("inspect command error: %v", err)
			}
			if !strings.Contains(out, "Operations: 3") {
				t.Errorf("expected the operation count back, got:\n%s", out)
			}
			if !strings.Contains(out, "Files:      1") {
				t.Errorf("expected the file count back, got:\n%s", out)
			}
			if !strings.Contains(out, "sess-1") || !strings.Contains(out, "sess-2") {
				t.Errorf("expected both sessions back, got:\n%s", out)
			}
		})
	}
}

func TestInspectMissingFile(t *testing.T) {
	isolateEnv(t)
	resetFlags()

	_, err := executeCommand(rootCmd, "inspect", filepath.Join(t.TempDir(), "nope.md"))
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
	if !strings.Contains(err.Error(), "file not found") {
		t.Errorf("expected a file-not-found error, got: %v", err)
	}
}
