// Package replay rebuilds working trees from tool operation records. A
// single goroutine folds the merged record stream into file states,
// snapshotting after every mutating operation; the resulting engine then
// answers checkout, diff, and history queries from any goroutine.
package replay

import (
	"fmt"
	"strings"
	"sync"

	"github.com/fakeyudi/retrace/internal/checkpoint"
	"github.com/fakeyudi/retrace/internal/record"
	"github.com/fakeyudi/retrace/internal/snapshot"
)

// BootstrapPrefix marks the synthetic checkpoint created when an edit
// arrives for a file with no recorded beginning. The id "^<op id>" names
// the reconstructed state immediately before that edit.
const BootstrapPrefix = "^"

// Step is one replayed operation. SnapshotID is empty when the operation
// produced no snapshot: reads never do, and mutations whose snapshot
// write failed are excluded from the index but still occupy their place
// in the log.
type Step struct {
	Record      record.Record
	SnapshotID  string
	BootstrapID string
}

// Bootstrapped reports whether this operation's file state had to be
// reconstructed from the edit's own old fragment.
func (s Step) Bootstrapped() bool {
	return s.BootstrapID != ""
}

// Engine holds a fully replayed history. Steps and index are immutable
// after Build; the snapshot memo is the only mutable state and is safe
// for concurrent use.
type Engine struct {
	store snapshot.Store
	idx   *checkpoint.Index

	steps  []Step
	byID   map[string]int
	ids    []string
	frozen map[string]string // final working tree, path -> content

	mu   sync.RWMutex
	memo map[string]map[string]string

	closeOnce sync.Once
	closeErr  error
}

// Build merges the record sources chronologically and replays them into
// store. It never aborts: malformed records, duplicate ids, and snapshot
// write failures all land in the report while the replay keeps going, so
// one bad record costs one checkpoint rather than the whole history.
func Build(store snapshot.Store, sources ...[]record.Record) (*Engine, *Report) {
	merged, malformed := record.Merge(sources...)
	rep := &Report{Malformed: malformed}
	eng := &Engine{
		store: store,
		idx:   checkpoint.New(),
		byID:  make(map[string]int),
		memo:  make(map[string]map[string]string),
	}

	tree := make(map[string]string)
	for _, rec := range merged {
		eng.idx.Observe(rec)
		step := Step{Record: rec}

		if rec.Kind == record.KindRead {
			eng.appendStep(step)
			continue
		}

		if old, ok := bootstrapState(tree, rec); ok {
			tree[rec.FilePath] = old
			preID := BootstrapPrefix + rec.ID
			if snapID, err := store.Put(tree); err != nil {
				rep.add(preID, err)
			} else if err := eng.idx.Record(preID, snapID); err != nil {
				rep.add(preID, err)
			} else {
				step.BootstrapID = preID
			}
		}

		apply(tree, rec)

		snapID, err := store.Put(tree)
		if err != nil {
			rep.add(rec.ID, err)
			eng.appendStep(step)
			continue
		}
		if err := eng.idx.Record(rec.ID, snapID); err != nil {
			rep.add(rec.ID, err)
			eng.appendStep(step)
			continue
		}
		step.SnapshotID = snapID
		eng.appendStep(step)
	}

	eng.frozen = make(map[string]string, len(tree))
	for path, content := range tree {
		eng.frozen[path] = content
	}
	return eng, rep
}

func (e *Engine) appendStep(step Step) {
	e.steps = append(e.steps, step)
	id := step.Record.ID
	if _, ok := e.byID[id]; !ok {
		e.byID[id] = len(e.steps) - 1
		e.ids = append(e.ids, id)
	}
}

// bootstrapState returns the synthetic pre-edit content for an edit whose
// file has no prior state in the tree: the edit's own old text, assumed
// to be the entire file. Creates and reads never bootstrap.
func bootstrapState(tree map[string]string, rec record.Record) (string, bool) {
	if _, ok := tree[rec.FilePath]; ok {
		return "", false
	}
	switch rec.Kind {
	case record.KindPartialEdit:
		return rec.OldFragment, true
	case record.KindBatchEdit:
		return rec.Edits[0].Old, true
	}
	return "", false
}

// apply folds one mutating record into the tree. A fragment that does not
// occur in the current content leaves the file untouched; the operation
// still gets its snapshot, recording that nothing changed.
func apply(tree map[string]string, rec record.Record) {
	switch rec.Kind {
	case record.KindCreate:
		tree[rec.FilePath] = rec.Content
	case record.KindPartialEdit:
		tree[rec.FilePath] = replaceFirst(tree[rec.FilePath], rec.OldFragment, rec.NewFragment)
	case record.KindBatchEdit:
		content := tree[rec.FilePath]
		for _, pair := range rec.Edits {
			content = replaceFirst(content, pair.Old, pair.New)
		}
		tree[rec.FilePath] = content
	}
}

func replaceFirst(content, old, new string) string {
	if old == "" {
		return content
	}
	return strings.Replace(content, old, new, 1)
}

// snapshotFiles loads a snapshot through the engine's memo. The returned
// map is shared; callers that hand it out must copy it first.
func (e *Engine) snapshotFiles(snapID string) (map[string]string, error) {
	e.mu.RLock()
	files, ok := e.memo[snapID]
	e.mu.RUnlock()
	if ok {
		return files, nil
	}
	files, err := e.store.Get(snapID)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot %s: %w", snapID, err)
	}
	e.mu.Lock()
	e.memo[snapID] = files
	e.mu.Unlock()
	return files, nil
}

// Teardown releases the snapshot backend. It is safe to call more than
// once and returns the first close error.
func (e *Engine) Teardown() error {
	e.closeOnce.Do(func() {
		e.closeErr = e.store.Close()
	})
	return e.closeErr
}
