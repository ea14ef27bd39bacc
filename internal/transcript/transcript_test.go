package transcript_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fakeyudi/retrace/internal/record"
	"github.com/fakeyudi/retrace/internal/transcript"
)

const toolLine = `{"type":"assistant","sessionId":"sess-1","timestamp":"2025-06-01T09:00:00.000Z","cwd":"/work","message":{"content":[` +
	`{"type":"tool_use","id":"toolu_01","name":"Write","input":{"file_path":"src/app.py","content":"print('hi')\n"}},` +
	`{"type":"tool_use","id":"toolu_02","name":"Edit","input":{"file_path":"/abs/lib.py","old_string":"a = 1","new_string":"a = 2"}},` +
	`{"type":"tool_use","id":"toolu_03","name":"MultiEdit","input":{"file_path":"src/app.py","edits":[{"old_string":"x","new_string":"y"},{"old_string":"p","new_string":"q"}]}},` +
	`{"type":"tool_use","id":"toolu_04","name":"Read","input":{"file_path":"src/app.py"}},` +
	`{"type":"text","text":"done"}` +
	`]}}`

func TestParseMapsToolUses(t *testing.T) {
	res, err := transcript.Parse(strings.NewReader(toolLine+"\n"), "fallback")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if res.Skipped != 0 {
		t.Fatalf("Skipped = %d, want 0", res.Skipped)
	}
	if len(res.Records) != 4 {
		t.Fatalf("len(Records) = %d, want 4", len(res.Records))
	}

	w := res.Records[0]
	if w.Kind != record.KindCreate || w.ID != "toolu_01" || w.SessionID != "sess-1" {
		t.Errorf("write record = %+v", w)
	}
	if w.FilePath != "/work/src/app.py" {
		t.Errorf("relative path not anchored at cwd: %q", w.FilePath)
	}
	if w.Content != "print('hi')\n" {
		t.Errorf("content = %q", w.Content)
	}
	wantTS := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	if !w.Timestamp.Equal(wantTS) {
		t.Errorf("timestamp = %v, want %v", w.Timestamp, wantTS)
	}

	e := res.Records[1]
	if e.Kind != record.KindPartialEdit || e.FilePath != "/abs/lib.py" {
		t.Errorf("edit record = %+v", e)
	}
	if e.OldFragment != "a = 1" || e.NewFragment != "a = 2" {
		t.Errorf("edit fragments = %q -> %q", e.OldFragment, e.NewFragment)
	}

	b := res.Records[2]
	if b.Kind != record.KindBatchEdit || len(b.Edits) != 2 {
		t.Errorf("batch record = %+v", b)
	}
	if b.Edits[0] != (record.Fragment{Old: "x", New: "y"}) {
		t.Errorf("batch pair = %+v", b.Edits[0])
	}

	if r := res.Records[3]; r.Kind != record.KindRead || r.FilePath != "/work/src/app.py" {
		t.Errorf("read record = %+v", r)
	}
}

func TestParseSkipsUnparseableLines(t *testing.T) {
	input := "not json at all\n" + toolLine + "\n{\"broken\": \n"
	res, err := transcript.Parse(strings.NewReader(input), "fallback")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if res.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", res.Skipped)
	}
	if len(res.Records) != 4 {
		t.Errorf("len(Records) = %d, want the good line parsed", len(res.Records))
	}
}

func TestParseIgnoresConversation(t *testing.T) {
	input := `{"type":"user","message":{"content":"please fix the bug"}}` + "\n" +
		`{"type":"assistant","sessionId":"s","timestamp":"2025-06-01T09:00:00Z","message":{"content":"sure, on it"}}` + "\n" +
		`{"type":"assistant","sessionId":"s","timestamp":"2025-06-01T09:00:01Z","message":{"content":[{"type":"tool_use","id":"t1","name":"Bash","input":{"command":"ls"}}]}}` + "\n"
	res, err := transcript.Parse(strings.NewReader(input), "fallback")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(res.Records) != 0 || res.Skipped != 0 {
		t.Errorf("Records = %d, Skipped = %d, want 0/0 for conversation-only input", len(res.Records), res.Skipped)
	}
}

func TestParseFallsBackForMissingFields(t *testing.T) {
	input := `{"type":"assistant","timestamp":"2025-06-01T09:00:00Z","message":{"content":[{"type":"tool_use","name":"Write","input":{"file_path":"/a.py","content":"x"}}]}}` + "\n"
	res, err := transcript.Parse(strings.NewReader(input), "named-by-file")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(res.Records) != 1 {
		t.Fatalf("len(Records) = %d, want 1", len(res.Records))
	}
	rec := res.Records[0]
	if rec.SessionID != "named-by-file" {
		t.Errorf("session = %q, want fallback", rec.SessionID)
	}
	if rec.ID == "" {
		t.Errorf("missing tool id should be replaced with a generated one")
	}
	if err := rec.Validate(); err != nil {
		t.Errorf("fallback record should be valid, got %v", err)
	}
}

func TestParseFileUsesNameAsSession(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "afternoon-session.jsonl")
	line := `{"type":"assistant","timestamp":"2025-06-01T09:00:00Z","message":{"content":[{"type":"tool_use","id":"t1","name":"Write","input":{"file_path":"/a.py","content":"x"}}]}}` + "\n"
	if err := os.WriteFile(path, []byte(line), 0o644); err != nil {
		t.Fatal(err)
	}
	res, err := transcript.ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() error: %v", err)
	}
	if len(res.Records) != 1 || res.Records[0].SessionID != "afternoon-session" {
		t.Fatalf("records = %+v, want session from file name", res.Records)
	}
}

func TestFindFiltersByAgeAndPattern(t *testing.T) {
	root := t.TempDir()
	mustWrite := func(rel, content string) string {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}
	fresh := mustWrite("proj/fresh.jsonl", "{}\n")
	stale := mustWrite("proj/stale.jsonl", "{}\n")
	mustWrite("proj/notes.txt", "not a transcript")
	mustWrite("scratch/tmp.jsonl", "{}\n")

	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatal(err)
	}

	f := &transcript.Finder{Roots: []string{root, filepath.Join(root, "missing")}, IgnorePatterns: []string{"scratch"}}
	got, err := f.Find(time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("Find() error: %v", err)
	}
	if len(got) != 1 || got[0] != fresh {
		t.Fatalf("Find() = %v, want only %s", got, fresh)
	}

	all, err := f.Find(time.Time{})
	if err != nil {
		t.Fatalf("Find(zero) error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("Find(zero) = %v, want fresh and stale", all)
	}
}

func TestWatchDeliversAppendedRecords(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sess-live.jsonl")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	f := &transcript.Finder{Roots: []string{dir}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	batches := make(chan transcript.Batch, 8)
	done := make(chan error, 1)
	go func() { done <- f.Watch(ctx, batches) }()

	line := `{"type":"assistant","timestamp":"2025-06-01T10:00:00Z","message":{"content":[{"type":"tool_use","id":"live_1","name":"Write","input":{"file_path":"/w/a.py","content":"x"}}]}}` + "\n"

	// Appending on a ticker rides out the gap between the goroutine
	// starting and the watcher registering the directory.
	deadline := time.After(5 * time.Second)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	var got transcript.Batch
	received := false
	for !received {
		fh, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fh.WriteString(line); err != nil {
			t.Fatal(err)
		}
		if err := fh.Close(); err != nil {
			t.Fatal(err)
		}
		select {
		case got = <-batches:
			received = true
		case <-deadline:
			t.Fatal("no batch arrived within 5s")
		case <-ticker.C:
		}
	}

	if got.Path != path || len(got.Records) == 0 {
		t.Fatalf("batch = %+v, want records from %s", got, path)
	}
	rec := got.Records[0]
	if rec.Kind != record.KindCreate || rec.SessionID != "sess-live" || rec.FilePath != "/w/a.py" {
		t.Errorf("first record = %+v", rec)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch() after cancel = %v, want nil", err)
	}
}
