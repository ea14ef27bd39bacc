package transcript

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/fakeyudi/retrace/internal/record"
)

// Batch is a set of records recovered from one transcript append.
type Batch struct {
	Path    string
	Records []record.Record
	Skipped int
}

// Watch follows the finder's roots and delivers newly appended records
// until the context is cancelled. Content already present when the watch
// starts is skipped; callers ingest that separately with Find and Parse.
// Partial trailing lines are left in place until their newline arrives.
func (f *Finder) Watch(ctx context.Context, batches chan<- Batch) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	offsets := make(map[string]int64)
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
				return watcher.Add(path)
			}
			if strings.HasSuffix(d.Name(), ".jsonl") && !f.isIgnored(path) {
				if info, err := d.Info(); err == nil {
					offsets[path] = info.Size()
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !f.isIgnored(event.Name) {
						watcher.Add(event.Name)
					}
					continue
				}
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !strings.HasSuffix(event.Name, ".jsonl") || f.isIgnored(event.Name) {
				continue
			}
			batch, err := readAppended(event.Name, offsets)
			if err != nil {
				continue
			}
			if len(batch.Records) == 0 && batch.Skipped == 0 {
				continue
			}
			select {
			case batches <- batch:
			case <-ctx.Done():
				return nil
			}
		case <-watcher.Errors:
			// Watcher hiccups are not fatal; the next event retries.
		}
	}
}

// readAppended parses the complete lines added to path since the last
// visit and advances the stored offset past them.
func readAppended(path string, offsets map[string]int64) (Batch, error) {
	batch := Batch{Path: path}
	f, err := os.Open(path)
	if err != nil {
		return batch, err
	}
	defer f.Close()

	offset := offsets[path]
	if info, err := f.Stat(); err == nil && info.Size() < offset {
		// Truncated or replaced; start over.
		offset = 0
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return batch, err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return batch, err
	}
	end := bytes.LastIndexByte(data, '\n')
	if end < 0 {
		offsets[path] = offset
		return batch, nil
	}
	chunk := data[:end+1]
	offsets[path] = offset + int64(len(chunk))

	res, err := Parse(bytes.NewReader(chunk), sessionFromPath(path))
	if err != nil {
		return batch, err
	}
	batch.Records = res.Records
	batch.Skipped = res.Skipped
	return batch, nil
}
