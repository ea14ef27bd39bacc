package export

import (
	"sort"
	"time"

	"github.com/fakeyudi/retrace/internal/checkpoint"
	"github.com/fakeyudi/retrace/internal/record"
	"github.com/fakeyudi/retrace/internal/replay"
)

// BundleVersion is bumped when the bundle layout changes incompatibly.
const BundleVersion = 1

// Operation is the exportable view of one replayed step.
type Operation struct {
	ID        string      `json:"id"`
	SessionID string      `json:"session_id"`
	Timestamp time.Time   `json:"timestamp"`
	FilePath  string      `json:"file_path"`
	Kind      record.Kind `json:"kind"`
	Snapshot  string      `json:"snapshot,omitempty"`
	Bootstrap string      `json:"bootstrap,omitempty"`
}

// FileTimeline is the ordered operation history of one file.
type FileTimeline struct {
	FilePath   string   `json:"file_path"`
	Operations []string `json:"operations"`
}

// Bundle is a self-contained export of a replayed history: enough to
// re-render summaries elsewhere without the original logs.
type Bundle struct {
	Version     int                         `json:"version"`
	GeneratedAt time.Time                   `json:"generated_at"`
	Source      string                      `json:"source"`
	Sessions    []checkpoint.SessionSummary `json:"sessions"`
	Files       []FileTimeline              `json:"files"`
	Operations  []Operation                 `json:"operations"`
	Warnings    []string                    `json:"warnings,omitempty"`
}

// Renderer turns a bundle into one output format.
type Renderer interface {
	Render(b *Bundle) ([]byte, error)
}

// Parser recovers a bundle from rendered output.
type Parser interface {
	Parse(data []byte) (*Bundle, error)
}

// New assembles a bundle from a replayed engine.
func New(eng *replay.Engine, rep *replay.Report, source string) *Bundle {
	b := &Bundle{
		Version:     BundleVersion,
		GeneratedAt: time.Now().UTC(),
		Source:      source,
		Sessions:    eng.Sessions(),
		Warnings:    rep.Warnings(),
	}
	perFile := make(map[string][]string)
	var paths []string
	for _, step := range eng.Operations() {
		b.Operations = append(b.Operations, Operation{
			ID:        step.Record.ID,
			SessionID: step.Record.SessionID,
			Timestamp: step.Record.Timestamp,
			FilePath:  step.Record.FilePath,
			Kind:      step.Record.Kind,
			Snapshot:  step.SnapshotID,
			Bootstrap: step.BootstrapID,
		})
		p := step.Record.FilePath
		if _, seen := perFile[p]; !seen {
			paths = append(paths, p)
		}
		perFile[p] = append(perFile[p], step.Record.ID)
	}
	sort.Strings(paths)
	for _, p := range paths {
		b.Files = append(b.Files, FileTimeline{FilePath: p, Operations: perFile[p]})
	}
	return b
}
