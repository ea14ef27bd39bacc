// Package snapshot persists full working-tree states and hands them back
// by id. Snapshots are content addressed: a file's bytes are stored once
// per distinct content, and a snapshot is a manifest of path-to-blob
// references, so storing a tree that differs in one file from the last
// one only writes the changed blob.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ErrNoSnapshot is returned by Get for an id no Put produced.
var ErrNoSnapshot = errors.New("no snapshot with that id")

// WriteError wraps a backend failure while persisting a snapshot. Callers
// treat it as "this snapshot never happened" and keep going.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string {
	return "snapshot write failed: " + e.Err.Error()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Store persists working trees. Put returns a stable id derived from the
// tree's content: putting an identical tree twice returns the same id
// without writing anything new. Implementations are safe for concurrent
// Get once Put calls have stopped.
type Store interface {
	Put(files map[string]string) (string, error)
	Get(id string) (map[string]string, error)
	Close() error
}

// manifestEntry ties one path in a snapshot to its content blob.
type manifestEntry struct {
	Path string `json:"path"`
	Blob string `json:"blob"`
}

// hashCache remembers the last content hash computed per path. Replay
// rewrites one file per operation and carries the rest over unchanged,
// so comparing the incoming string against the cached one (a pointer
// comparison in the common case) skips nearly all rehashing.
type hashCache map[string]cachedHash

type cachedHash struct {
	content string
	sum     string
}

func (c hashCache) sumOf(path, content string) string {
	if prev, ok := c[path]; ok && prev.content == content {
		return prev.sum
	}
	h := sha256.Sum256([]byte(content))
	sum := hex.EncodeToString(h[:])
	c[path] = cachedHash{content: content, sum: sum}
	return sum
}

// buildManifest hashes the tree into a sorted manifest and derives the
// snapshot id from the manifest bytes. Sorting makes the id independent
// of map iteration order.
func buildManifest(cache hashCache, files map[string]string) ([]manifestEntry, []byte, string, error) {
	entries := make([]manifestEntry, 0, len(files))
	for path, content := range files {
		entries = append(entries, manifestEntry{Path: path, Blob: cache.sumOf(path, content)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	raw, err := json.Marshal(entries)
	if err != nil {
		return nil, nil, "", fmt.Errorf("encoding manifest: %w", err)
	}
	sum := sha256.Sum256(raw)
	return entries, raw, hex.EncodeToString(sum[:]), nil
}
