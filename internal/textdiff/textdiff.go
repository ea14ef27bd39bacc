// Package textdiff produces and applies unified diffs over whole-file
// contents. Files are treated as newline-separated line sequences; an
// empty content string is a single empty line, so every diff hunk spans
// at least one line on each side.
package textdiff

import (
	"fmt"
	"strings"
)

// DefaultContext is the number of unchanged lines shown around each change.
const DefaultContext = 3

type editOp int

const (
	opEqual editOp = iota
	opDelete
	opInsert
)

// edit is one step of the line-level edit script. a and b index into the
// old and new line slices; an insert carries the old-side position the
// new line lands before.
type edit struct {
	op   editOp
	a, b int
}

// Unified renders the changes from a to b as a unified diff with the given
// number of context lines per hunk. Identical inputs produce an empty
// string. A non-positive context falls back to DefaultContext.
func Unified(aName, bName, a, b string, context int) string {
	if a == b {
		return ""
	}
	if context <= 0 {
		context = DefaultContext
	}
	aLines := strings.Split(a, "\n")
	bLines := strings.Split(b, "\n")
	edits := script(aLines, bLines)
	hunks := group(aLines, bLines, edits, context)

	var sb strings.Builder
	fmt.Fprintf(&sb, "--- %s\n", aName)
	fmt.Fprintf(&sb, "+++ %s\n", bName)
	for _, h := range hunks {
		fmt.Fprintf(&sb, "@@ -%d,%d +%d,%d @@\n", h.aStart+1, h.aCount, h.bStart+1, h.bCount)
		for _, line := range h.lines {
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// script computes a full line-level edit script between a and b, including
// the equal runs. Keeping the equal steps is what lets hunk grouping count
// the gap between changes without re-deriving line positions.
func script(a, b []string) []edit {
	m, n := len(a), len(b)
	lcs := make([][]int, m+1)
	for i := range lcs {
		lcs[i] = make([]int, n+1)
	}
	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			switch {
			case a[i-1] == b[j-1]:
				lcs[i][j] = lcs[i-1][j-1] + 1
			case lcs[i-1][j] >= lcs[i][j-1]:
				lcs[i][j] = lcs[i-1][j]
			default:
				lcs[i][j] = lcs[i][j-1]
			}
		}
	}

	edits := make([]edit, 0, m+n)
	i, j := m, n
	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && a[i-1] == b[j-1]:
			edits = append(edits, edit{opEqual, i - 1, j - 1})
			i--
			j--
		case j > 0 && (i == 0 || lcs[i][j-1] >= lcs[i-1][j]):
			edits = append(edits, edit{opInsert, i, j - 1})
			j--
		default:
			edits = append(edits, edit{opDelete, i - 1, j})
			i--
		}
	}
	for l, r := 0, len(edits)-1; l < r; l, r = l+1, r-1 {
		edits[l], edits[r] = edits[r], edits[l]
	}
	return edits
}

type hunk struct {
	aStart, aCount int
	bStart, bCount int
	lines          []string
}

// group slices the edit script into hunks. Two changes land in the same
// hunk when the run of equal lines between them fits inside twice the
// context width; otherwise the context windows would not overlap.
func group(a, b []string, edits []edit, context int) []hunk {
	var changes []int
	for i, e := range edits {
		if e.op != opEqual {
			changes = append(changes, i)
		}
	}
	if len(changes) == 0 {
		return nil
	}

	var hunks []hunk
	gi := 0
	for gi < len(changes) {
		gj := gi
		for gj+1 < len(changes) && changes[gj+1]-changes[gj]-1 <= 2*context {
			gj++
		}
		lo := changes[gi] - context
		if lo < 0 {
			lo = 0
		}
		hi := changes[gj] + context
		if hi > len(edits)-1 {
			hi = len(edits) - 1
		}

		h := hunk{aStart: -1, bStart: -1}
		for k := lo; k <= hi; k++ {
			e := edits[k]
			switch e.op {
			case opEqual:
				if h.aStart < 0 {
					h.aStart = e.a
				}
				if h.bStart < 0 {
					h.bStart = e.b
				}
				h.aCount++
				h.bCount++
				h.lines = append(h.lines, " "+a[e.a])
			case opDelete:
				if h.aStart < 0 {
					h.aStart = e.a
				}
				h.aCount++
				h.lines = append(h.lines, "-"+a[e.a])
			case opInsert:
				if h.bStart < 0 {
					h.bStart = e.b
				}
				h.bCount++
				h.lines = append(h.lines, "+"+b[e.b])
			}
		}
		if h.aStart < 0 {
			h.aStart = edits[lo].a
		}
		if h.bStart < 0 {
			h.bStart = edits[lo].b
		}
		hunks = append(hunks, h)
		gi = gj + 1
	}
	return hunks
}
