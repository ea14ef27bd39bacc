package textdiff

import (
	"fmt"
	"strings"

	godiff "github.com/sourcegraph/go-diff/diff"
)

// Apply replays a unified diff on top of original and returns the patched
// content. An empty diff, or one without hunks, leaves the content
// unchanged. Hunk positions are trusted as-is; context lines are taken
// from the original rather than re-checked against the hunk body.
func Apply(original, unified string) (string, error) {
	if !strings.Contains(unified, "@@") {
		return original, nil
	}
	fd, err := godiff.ParseFileDiff([]byte(unified))
	if err != nil {
		return "", fmt.Errorf("parsing diff: %w", err)
	}

	lines := strings.Split(original, "\n")
	out := make([]string, 0, len(lines))
	idx := 0
	for _, h := range fd.Hunks {
		start := int(h.OrigStartLine) - 1
		for idx < start && idx < len(lines) {
			out = append(out, lines[idx])
			idx++
		}
		body := strings.Split(strings.TrimSuffix(string(h.Body), "\n"), "\n")
		for _, bl := range body {
			switch {
			case strings.HasPrefix(bl, "+"):
				out = append(out, bl[1:])
			case strings.HasPrefix(bl, "-"):
				idx++
			case strings.HasPrefix(bl, `\`):
				// "\ No newline at end of file" carries no content.
			default:
				if idx < len(lines) {
					out = append(out, lines[idx])
					idx++
				}
			}
		}
	}
	for idx < len(lines) {
		out = append(out, lines[idx])
		idx++
	}
	return strings.Join(out, "\n"), nil
}
