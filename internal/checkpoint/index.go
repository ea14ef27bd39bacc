// Package checkpoint maps operation ids to the snapshots a replay
// produced and keeps per-session aggregates for summary views.
package checkpoint

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fakeyudi/retrace/internal/record"
)

// ErrNotFound is returned when an id or prefix matches no indexed operation.
var ErrNotFound = errors.New("operation not found")

// AmbiguousPrefixError reports a prefix shared by several operation ids.
type AmbiguousPrefixError struct {
	Prefix  string
	Matches []string
}

func (e *AmbiguousPrefixError) Error() string {
	shown := e.Matches
	if len(shown) > 4 {
		shown = shown[:4]
	}
	return fmt.Sprintf("ambiguous prefix %q matches %d operations (%s)",
		e.Prefix, len(e.Matches), strings.Join(shown, ", "))
}

// DuplicateIDError reports an attempt to index the same operation id twice.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate operation id %q", e.ID)
}

// SessionSummary aggregates what one session did across a replay.
type SessionSummary struct {
	SessionID      string    `json:"session_id"`
	OperationCount int       `json:"operation_count"`
	DistinctFiles  int       `json:"distinct_files_touched"`
	First          time.Time `json:"first_timestamp"`
	Last           time.Time `json:"last_timestamp"`
}

type sessionAgg struct {
	count int
	files map[string]struct{}
	first time.Time
	last  time.Time
	ops   []string
}

// Index is the id-to-snapshot mapping built during a replay. It is written
// by the single replay goroutine and read freely afterwards.
type Index struct {
	snaps    map[string]string
	ids      []string
	sessions map[string]*sessionAgg
}

// New returns an empty index.
func New() *Index {
	return &Index{
		snaps:    make(map[string]string),
		sessions: make(map[string]*sessionAgg),
	}
}

// Record associates an operation id with its snapshot. Indexing an id a
// second time fails with DuplicateIDError and leaves the first mapping
// in place.
func (x *Index) Record(opID, snapshotID string) error {
	if _, ok := x.snaps[opID]; ok {
		return &DuplicateIDError{ID: opID}
	}
	x.snaps[opID] = snapshotID
	x.ids = append(x.ids, opID)
	return nil
}

// Observe feeds one replayed record into the per-session aggregates.
// Every valid record counts, including reads; only mutating kinds count
// toward the distinct files touched.
func (x *Index) Observe(rec record.Record) {
	agg, ok := x.sessions[rec.SessionID]
	if !ok {
		agg = &sessionAgg{files: make(map[string]struct{}), first: rec.Timestamp}
		x.sessions[rec.SessionID] = agg
	}
	agg.count++
	agg.ops = append(agg.ops, rec.ID)
	if rec.Timestamp.Before(agg.first) {
		agg.first = rec.Timestamp
	}
	if rec.Timestamp.After(agg.last) {
		agg.last = rec.Timestamp
	}
	if rec.Kind.Mutates() {
		agg.files[rec.FilePath] = struct{}{}
	}
}

// Resolve maps an operation id, or a unique prefix of one, to its snapshot.
// An exact match always wins, even when it is also a prefix of longer ids.
func (x *Index) Resolve(idOrPrefix string) (opID, snapshotID string, err error) {
	if snap, ok := x.snaps[idOrPrefix]; ok {
		return idOrPrefix, snap, nil
	}
	id, err := ResolvePrefix(x.ids, idOrPrefix)
	if err != nil {
		return "", "", err
	}
	return id, x.snaps[id], nil
}

// Len reports how many operations the index holds.
func (x *Index) Len() int {
	return len(x.ids)
}

// SessionOperations returns the operation ids one session contributed,
// in replay order.
func (x *Index) SessionOperations(sessionID string) []string {
	agg, ok := x.sessions[sessionID]
	if !ok {
		return nil
	}
	return append([]string(nil), agg.ops...)
}

// Summaries returns the per-session aggregates keyed by session id.
func (x *Index) Summaries() map[string]SessionSummary {
	out := make(map[string]SessionSummary, len(x.sessions))
	for id, agg := range x.sessions {
		out[id] = SessionSummary{
			SessionID:      id,
			OperationCount: agg.count,
			DistinctFiles:  len(agg.files),
			First:          agg.first,
			Last:           agg.last,
		}
	}
	return out
}

// ResolvePrefix resolves idOrPrefix against a set of ids: an exact match
// wins outright, otherwise the prefix must select exactly one id. The
// ambiguous-match list comes back sorted so errors read the same across
// runs.
func ResolvePrefix(ids []string, idOrPrefix string) (string, error) {
	if idOrPrefix == "" {
		return "", ErrNotFound
	}
	var matches []string
	for _, id := range ids {
		if id == idOrPrefix {
			return id, nil
		}
		if strings.HasPrefix(id, idOrPrefix) {
			matches = append(matches, id)
		}
	}
	switch len(matches) {
	case 0:
		return "", ErrNotFound
	case 1:
		return matches[0], nil
	default:
		sort.Strings(matches)
		return "", &AmbiguousPrefixError{Prefix: idOrPrefix, Matches: matches}
	}
}
