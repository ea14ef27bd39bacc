package record

import (
	"fmt"
	"time"
)

// Kind names the tool invocation a Record captures.
type Kind string

const (
	KindCreate      Kind = "create"
	KindPartialEdit Kind = "partial_edit"
	KindBatchEdit   Kind = "batch_edit"
	KindRead        Kind = "read"
)

// Mutates reports whether an operation of this kind changes file content.
func (k Kind) Mutates() bool {
	switch k {
	case KindCreate, KindPartialEdit, KindBatchEdit:
		return true
	}
	return false
}

// Fragment is one old/new replacement pair inside a batch edit.
type Fragment struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// Record is a single tool invocation recovered from a session log.
// Exactly one payload group is meaningful per kind: Content for creates,
// OldFragment/NewFragment for partial edits, Edits for batch edits, and
// nothing for reads.
type Record struct {
	ID          string     `json:"id"`
	SessionID   string     `json:"session_id"`
	Timestamp   time.Time  `json:"timestamp"`
	FilePath    string     `json:"file_path"`
	Kind        Kind       `json:"kind"`
	Content     string     `json:"content,omitempty"`
	OldFragment string     `json:"old_fragment,omitempty"`
	NewFragment string     `json:"new_fragment,omitempty"`
	Edits       []Fragment `json:"edits,omitempty"`
}

// MalformedError describes a record that cannot participate in a replay.
type MalformedError struct {
	ID     string
	Reason string
}

func (e *MalformedError) Error() string {
	if e.ID == "" {
		return "malformed record: " + e.Reason
	}
	return fmt.Sprintf("malformed record %q: %s", e.ID, e.Reason)
}

// Validate checks the structural rules a record must satisfy before replay.
// A nil return means the record is safe to apply.
func (r Record) Validate() error {
	if r.ID == "" {
		return &MalformedError{Reason: "missing id"}
	}
	if r.SessionID == "" {
		return &MalformedError{ID: r.ID, Reason: "missing session_id"}
	}
	if r.Timestamp.IsZero() {
		return &MalformedError{ID: r.ID, Reason: "missing timestamp"}
	}
	if r.FilePath == "" {
		return &MalformedError{ID: r.ID, Reason: "missing file_path"}
	}
	switch r.Kind {
	case KindCreate, KindRead:
	case KindPartialEdit:
		if r.OldFragment == "" {
			return &MalformedError{ID: r.ID, Reason: "partial_edit without old_fragment"}
		}
	case KindBatchEdit:
		if len(r.Edits) == 0 {
			return &MalformedError{ID: r.ID, Reason: "batch_edit without edits"}
		}
		for i, e := range r.Edits {
			if e.Old == "" {
				return &MalformedError{ID: r.ID, Reason: fmt.Sprintf("batch_edit pair %d without old text", i+1)}
			}
		}
	default:
		return &MalformedError{ID: r.ID, Reason: fmt.Sprintf("unknown kind %q", r.Kind)}
	}
	return nil
}
