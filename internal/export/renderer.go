package export

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	versionSentinel = "<!-- retrace-bundle-version: %d -->"
	dataSentinel    = "<!-- retrace-data: %s -->"
	timeLayout      = "2006-01-02 15:04:05"
)

// MarkdownRenderer produces a human-readable history with the full
// bundle embedded in a trailing comment, so the file stays parseable.
type MarkdownRenderer struct{}

func (MarkdownRenderer) Render(b *Bundle) ([]byte, error) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(versionSentinel, b.Version))
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "# Edit History: %s\n\n", b.Source)
	fmt.Fprintf(&sb, "Generated at %s.\n\n", b.GeneratedAt.Format(timeLayout))

	sb.WriteString("## Sessions\n\n")
	if len(b.Sessions) == 0 {
		sb.WriteString("_none_\n")
	}
	for _, s := range b.Sessions {
		fmt.Fprintf(&sb, "- `%s` — %d operations over %d files, %s to %s\n",
			s.SessionID, s.OperationCount, s.DistinctFiles,
			s.First.Format(timeLayout), s.Last.Format(timeLayout))
	}

	sb.WriteString("\n## Files\n\n")
	if len(b.Files) == 0 {
		sb.WriteString("_none_\n")
	}
	for _, f := range b.Files {
		ids := make([]string, len(f.Operations))
		for i, id := range f.Operations {
			ids[i] = shortID(id)
		}
		fmt.Fprintf(&sb, "- `%s` — %d operations: %s\n", f.FilePath, len(f.Operations), strings.Join(ids, ", "))
	}

	sb.WriteString("\n## Operations\n\n")
	if len(b.Operations) == 0 {
		sb.WriteString("_none_\n")
	}
	for _, op := range b.Operations {
		fmt.Fprintf(&sb, "- `%s` %s %s (%s, %s)", shortID(op.ID), op.Kind, op.FilePath,
			op.SessionID, op.Timestamp.Format(timeLayout))
		if op.Bootstrap != "" {
			sb.WriteString(" [bootstrapped]")
		}
		if op.Snapshot == "" && op.Kind.Mutates() {
			sb.WriteString(" [no checkpoint]")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n## Warnings\n\n")
	if len(b.Warnings) == 0 {
		sb.WriteString("_none_\n")
	}
	for _, w := range b.Warnings {
		fmt.Fprintf(&sb, "- %s\n", w)
	}

	payload, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("encoding bundle payload: %w", err)
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf(dataSentinel, base64.StdEncoding.EncodeToString(payload)))
	sb.WriteString("\n")
	return []byte(sb.String()), nil
}

// JSONRenderer emits the bundle as indented JSON.
type JSONRenderer struct{}

func (JSONRenderer) Render(b *Bundle) ([]byte, error) {
	return json.MarshalIndent(b, "", "  ")
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
