package export_test

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/fakeyudi/retrace/internal/checkpoint"
	"github.com/fakeyudi/retrace/internal/export"
	"github.com/fakeyudi/retrace/internal/record"
	"github.com/fakeyudi/retrace/internal/replay"
	"github.com/fakeyudi/retrace/internal/snapshot"
)

func sampleBundle() *export.Bundle {
	ts := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	return &export.Bundle{
		Version:     export.BundleVersion,
		GeneratedAt: ts.Add(time.Hour),
		Source:      "demo.jsonl",
		Sessions: []checkpoint.SessionSummary{
			{SessionID: "sess-a", OperationCount: 2, DistinctFiles: 1, First: ts, Last: ts.Add(time.Minute)},
		},
		Files: []export.FileTimeline{
			{FilePath: "/w/a.py", Operations: []string{"ab12e3c4ff", "cd34f5a6bb"}},
		},
		Operations: []export.Operation{
			{ID: "ab12e3c4ff", SessionID: "sess-a", Timestamp: ts, FilePath: "/w/a.py", Kind: record.KindCreate, Snapshot: "snap-1"},
			{ID: "cd34f5a6bb", SessionID: "sess-a", Timestamp: ts.Add(time.Minute), FilePath: "/w/a.py", Kind: record.KindPartialEdit, Snapshot: "snap-2", Bootstrap: "^cd34f5a6bb"},
		},
		Warnings: []string{"operation xy99 not checkpointed: disk full"},
	}
}

func TestMarkdownRoundTrip(t *testing.T) {
	b := sampleBundle()
	out, err := export.MarkdownRenderer{}.Render(b)
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	got, err := export.MarkdownParser{}.Parse(out)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if !reflect.DeepEqual(got, b) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, b)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	b := sampleBundle()
	out, err := export.JSONRenderer{}.Render(b)
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	got, err := export.JSONParser{}.Parse(out)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if !reflect.DeepEqual(got, b) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, b)
	}
}

func TestMarkdownIsReadable(t *testing.T) {
	out, err := export.MarkdownRenderer{}.Render(sampleBundle())
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	text := string(out)
	for _, want := range []string{
		"# Edit History: demo.jsonl",
		"`sess-a` — 2 operations over 1 files",
		"`/w/a.py` — 2 operations: ab12e3c4, cd34f5a6",
		"`ab12e3c4` create /w/a.py",
		"[bootstrapped]",
		"## Warnings",
		"disk full",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("markdown missing %q:\n%s", want, text)
		}
	}
}

func TestMarkdownParserNeedsEmbeddedData(t *testing.T) {
	if _, err := (export.MarkdownParser{}).Parse([]byte("# Just Notes\n\nNothing embedded here.\n")); err == nil {
		t.Fatal("Parse(plain markdown) = nil error, want failure")
	}
}

func TestParseRejectsUnknownVersion(t *testing.T) {
	b := sampleBundle()
	b.Version = 99
	out, err := export.JSONRenderer{}.Render(b)
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if _, err := (export.JSONParser{}).Parse(out); err == nil {
		t.Fatal("Parse(version 99) = nil error, want version failure")
	}
}

func TestNewCollectsEngineState(t *testing.T) {
	ts := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	eng, rep := replay.Build(snapshot.NewMemory(), []record.Record{
		{ID: "op1", SessionID: "s1", Timestamp: ts, FilePath: "/a.py", Kind: record.KindCreate, Content: "x"},
		{ID: "op2", SessionID: "s1", Timestamp: ts.Add(time.Second), FilePath: "/a.py", Kind: record.KindRead},
	})
	defer eng.Teardown()

	b := export.New(eng, rep, "unit test")
	if b.Version != export.BundleVersion || b.Source != "unit test" {
		t.Errorf("bundle header = %+v", b)
	}
	if len(b.Operations) != 2 {
		t.Fatalf("len(Operations) = %d, want 2", len(b.Operations))
	}
	if b.Operations[0].Snapshot == "" {
		t.Errorf("create operation lost its snapshot id")
	}
	if b.Operations[1].Snapshot != "" {
		t.Errorf("read operation should carry no snapshot")
	}
	if len(b.Sessions) != 1 || b.Sessions[0].OperationCount != 2 {
		t.Errorf("sessions = %+v", b.Sessions)
	}
	if len(b.Files) != 1 || b.Files[0].FilePath != "/a.py" || len(b.Files[0].Operations) != 2 {
		t.Errorf("file timelines = %+v", b.Files)
	}
}
