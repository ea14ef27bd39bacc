// Package transcript turns assistant session logs into operation
// records. A transcript is a JSONL stream of messages; the tool_use
// blocks inside assistant messages are the operations worth replaying,
// everything else is conversation.
package transcript

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fakeyudi/retrace/internal/record"
)

// Transcript lines can carry large embedded file contents.
const maxLineSize = 1024 * 1024

// Result is what a parse pass recovered. Skipped counts lines that were
// not valid JSON; records with missing fields still come back and are
// reported properly by the merge step instead.
type Result struct {
	Records []record.Record
	Skipped int
}

type transcriptLine struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	Timestamp string `json:"timestamp"`
	Cwd       string `json:"cwd"`
	Message   struct {
		Content json.RawMessage `json:"content"`
	} `json:"message"`
}

type contentBlock struct {
	Type  string          `json:"type"`
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

type editInput struct {
	FilePath  string `json:"file_path"`
	OldString string `json:"old_string"`
	NewString string `json:"new_string"`
}

type writeInput struct {
	FilePath string `json:"file_path"`
	Content  string `json:"content"`
}

type multiEditInput struct {
	FilePath string `json:"file_path"`
	Edits    []struct {
		OldString string `json:"old_string"`
		NewString string `json:"new_string"`
	} `json:"edits"`
}

// Parse reads a transcript stream. fallbackSession names records from
// lines that carry no session id of their own, which is common in older
// transcripts where only the file name identifies the session.
func Parse(r io.Reader, fallbackSession string) (*Result, error) {
	res := &Result{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var line transcriptLine
		if err := json.Unmarshal(raw, &line); err != nil {
			res.Skipped++
			continue
		}
		if line.Type != "assistant" || len(line.Message.Content) == 0 {
			continue
		}
		var blocks []contentBlock
		if err := json.Unmarshal(line.Message.Content, &blocks); err != nil {
			// Plain string content means no tool calls on this line.
			continue
		}
		session := line.SessionID
		if session == "" {
			session = fallbackSession
		}
		ts, _ := time.Parse(time.RFC3339, line.Timestamp)
		for _, block := range blocks {
			if block.Type != "tool_use" {
				continue
			}
			rec, ok := mapToolUse(block, session, ts, line.Cwd)
			if !ok {
				continue
			}
			res.Records = append(res.Records, rec)
		}
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("scanning transcript: %w", err)
	}
	return res, nil
}

// mapToolUse converts one tool invocation into a record. Tools that do
// not touch files map to nothing. Inputs that fail to decode are treated
// the same, since there is no file operation to recover from them.
func mapToolUse(block contentBlock, session string, ts time.Time, cwd string) (record.Record, bool) {
	rec := record.Record{
		ID:        block.ID,
		SessionID: session,
		Timestamp: ts,
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	switch block.Name {
	case "Write", "Create":
		var in writeInput
		if json.Unmarshal(block.Input, &in) != nil {
			return record.Record{}, false
		}
		rec.Kind = record.KindCreate
		rec.FilePath = resolvePath(in.FilePath, cwd)
		rec.Content = in.Content
	case "Edit":
		var in editInput
		if json.Unmarshal(block.Input, &in) != nil {
			return record.Record{}, false
		}
		rec.Kind = record.KindPartialEdit
		rec.FilePath = resolvePath(in.FilePath, cwd)
		rec.OldFragment = in.OldString
		rec.NewFragment = in.NewString
	case "MultiEdit":
		var in multiEditInput
		if json.Unmarshal(block.Input, &in) != nil {
			return record.Record{}, false
		}
		rec.Kind = record.KindBatchEdit
		rec.FilePath = resolvePath(in.FilePath, cwd)
		for _, e := range in.Edits {
			rec.Edits = append(rec.Edits, record.Fragment{Old: e.OldString, New: e.NewString})
		}
	case "Read", "View":
		var in editInput
		if json.Unmarshal(block.Input, &in) != nil {
			return record.Record{}, false
		}
		rec.Kind = record.KindRead
		rec.FilePath = resolvePath(in.FilePath, cwd)
	default:
		return record.Record{}, false
	}
	return rec, true
}

// resolvePath anchors relative tool paths at the session's working
// directory so records from different sessions agree on file identity.
func resolvePath(path, cwd string) string {
	if path == "" {
		return ""
	}
	if filepath.IsAbs(path) || cwd == "" {
		return filepath.Clean(path)
	}
	return filepath.Join(cwd, path)
}

// ParseFile parses one transcript file, using the file name as the
// session fallback.
func ParseFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening transcript: %w", err)
	}
	defer f.Close()
	return Parse(f, sessionFromPath(path))
}

func sessionFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
