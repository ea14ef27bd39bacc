package replay

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/fakeyudi/retrace/internal/checkpoint"
	"github.com/fakeyudi/retrace/internal/record"
	"github.com/fakeyudi/retrace/internal/textdiff"
)

// ErrNotApplicable is returned when a query asks for the diff of an
// operation that cannot have one, such as a read.
var ErrNotApplicable = errors.New("operation does not change file content")

// OpDiff is the before/after view of one mutating operation's file.
type OpDiff struct {
	OperationID string
	FilePath    string
	Before      string
	After       string
	Unified     []string
}

// TimelineEntry is one operation in a file's history, numbered from 1
// within that file.
type TimelineEntry struct {
	Seq         int
	OperationID string
	SessionID   string
	Kind        record.Kind
	Bootstrap   bool
}

// Checkout returns the full working tree at the checkpoint named by an
// operation id or unique prefix. The map is the caller's to keep;
// repeated checkouts of the same checkpoint are independent copies.
func (e *Engine) Checkout(idOrPrefix string) (map[string]string, error) {
	_, snapID, err := e.idx.Resolve(idOrPrefix)
	if err != nil {
		return nil, err
	}
	files, err := e.snapshotFiles(snapID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(files))
	for path, content := range files {
		out[path] = content
	}
	return out, nil
}

// Diff reconstructs what one operation did to its file: the content at
// the nearest persisted state before it against the content it left
// behind. Reads have no diff; operations whose snapshot write failed
// cannot be diffed because their "after" state was never persisted.
func (e *Engine) Diff(idOrPrefix string) (*OpDiff, error) {
	i, err := e.resolveStep(idOrPrefix)
	if err != nil {
		return nil, err
	}
	step := e.steps[i]
	if step.Record.Kind == record.KindRead {
		return nil, ErrNotApplicable
	}
	if step.SnapshotID == "" {
		return nil, fmt.Errorf("operation %s has no snapshot: %w", step.Record.ID, checkpoint.ErrNotFound)
	}

	path := step.Record.FilePath
	after, err := e.contentAt(step.SnapshotID, path)
	if err != nil {
		return nil, err
	}
	before, err := e.contentBefore(i, path)
	if err != nil {
		return nil, err
	}

	d := textdiff.Unified("a/"+path, "b/"+path, before, after, textdiff.DefaultContext)
	var lines []string
	if d != "" {
		lines = strings.Split(strings.TrimSuffix(d, "\n"), "\n")
	}
	return &OpDiff{
		OperationID: step.Record.ID,
		FilePath:    path,
		Before:      before,
		After:       after,
		Unified:     lines,
	}, nil
}

// contentBefore finds the file's content at the nearest persisted state
// before step i: the step's own bootstrap snapshot if it has one,
// otherwise the latest earlier step that kept a snapshot. A file with no
// earlier persisted state was absent, which reads as empty.
func (e *Engine) contentBefore(i int, path string) (string, error) {
	if id := e.steps[i].BootstrapID; id != "" {
		_, snapID, err := e.idx.Resolve(id)
		if err != nil {
			return "", err
		}
		return e.contentAt(snapID, path)
	}
	for j := i - 1; j >= 0; j-- {
		snapID := e.steps[j].SnapshotID
		if snapID == "" {
			continue
		}
		return e.contentAt(snapID, path)
	}
	return "", nil
}

func (e *Engine) contentAt(snapID, path string) (string, error) {
	files, err := e.snapshotFiles(snapID)
	if err != nil {
		return "", err
	}
	return files[path], nil
}

// FileTimeline lists every operation that addressed path, including
// reads, in replay order.
func (e *Engine) FileTimeline(path string) []TimelineEntry {
	var entries []TimelineEntry
	for _, step := range e.steps {
		if step.Record.FilePath != path {
			continue
		}
		entries = append(entries, TimelineEntry{
			Seq:         len(entries) + 1,
			OperationID: step.Record.ID,
			SessionID:   step.Record.SessionID,
			Kind:        step.Record.Kind,
			Bootstrap:   step.Bootstrapped(),
		})
	}
	return entries
}

// OperationsBetween returns the operations after start and up to end,
// both named by id or unique prefix. An end that precedes start yields
// nothing. The path filter is optional.
func (e *Engine) OperationsBetween(startID, endID, path string) ([]record.Record, error) {
	si, err := e.resolveStep(startID)
	if err != nil {
		return nil, err
	}
	ei, err := e.resolveStep(endID)
	if err != nil {
		return nil, err
	}
	return e.slice(si+1, ei, path), nil
}

// OperationsAfter returns every operation after the named one.
func (e *Engine) OperationsAfter(startID, path string) ([]record.Record, error) {
	si, err := e.resolveStep(startID)
	if err != nil {
		return nil, err
	}
	return e.slice(si+1, len(e.steps)-1, path), nil
}

func (e *Engine) slice(from, to int, path string) []record.Record {
	var out []record.Record
	for i := from; i <= to && i < len(e.steps); i++ {
		rec := e.steps[i].Record
		if path != "" && rec.FilePath != path {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Operations returns every replayed step in order.
func (e *Engine) Operations() []Step {
	return append([]Step(nil), e.steps...)
}

// FinalTree returns the working tree after the last operation.
func (e *Engine) FinalTree() map[string]string {
	out := make(map[string]string, len(e.frozen))
	for path, content := range e.frozen {
		out[path] = content
	}
	return out
}

// Sessions returns per-session summaries sorted by session id.
func (e *Engine) Sessions() []checkpoint.SessionSummary {
	sums := e.idx.Summaries()
	out := make([]checkpoint.SessionSummary, 0, len(sums))
	for _, s := range sums {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out
}

// Checkpoints reports how many checkpoints the index holds, synthetic
// bootstrap states included.
func (e *Engine) Checkpoints() int {
	return e.idx.Len()
}

// resolveStep resolves an id or prefix against the replayed operations.
// Unlike checkpoint resolution this also finds reads and failed writes,
// since range queries address log positions rather than snapshots.
func (e *Engine) resolveStep(idOrPrefix string) (int, error) {
	if i, ok := e.byID[idOrPrefix]; ok {
		return i, nil
	}
	id, err := checkpoint.ResolvePrefix(e.ids, idOrPrefix)
	if err != nil {
		return 0, err
	}
	return e.byID[id], nil
}
