package transcript

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Finder locates transcript files under a set of root directories.
type Finder struct {
	Roots          []string
	IgnorePatterns []string
}

// Find walks the roots for .jsonl transcripts modified after since. A
// zero since matches everything. Roots that do not exist are skipped, so
// a default root can be configured before any session ever ran.
func (f *Finder) Find(since time.Time) ([]string, error) {
	var found []string
	for _, root := range f.Roots {
		if _, err := os.Stat(root); err != nil {
			continue
		}
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if f.isIgnored(path) {
					return filepath.SkipDir
				}
				return nil
			}
			if !strings.HasSuffix(d.Name(), ".jsonl") || f.isIgnored(path) {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			if !since.IsZero() && !info.ModTime().After(since) {
				return nil
			}
			found = append(found, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(found)
	return found, nil
}

// isIgnored matches a path against the ignore patterns, by base name and
// by full path.
func (f *Finder) isIgnored(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range f.IgnorePatterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, path); matched {
			return true
		}
	}
	return false
}
