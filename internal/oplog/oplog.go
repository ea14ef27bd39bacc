// Package oplog reads and writes the native operation log: one JSON
// record per line, append only. It is the durable form records are kept
// in once imported from transcripts.
package oplog

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/fakeyudi/retrace/internal/record"
)

const maxLineSize = 1024 * 1024

// LockedError means another process holds the log open for writing.
type LockedError struct {
	Path string
	PID  int
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("record log %s is locked by process %d", e.Path, e.PID)
}

// Writer appends records to a log file. Only one writer may hold a log
// at a time; the lock file next to the log carries the owner's pid so a
// crashed writer's lock can be reclaimed.
type Writer struct {
	f        *os.File
	lockPath string
}

// NewWriter opens path for appending, creating it and its directory as
// needed.
func NewWriter(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	lockPath := path + ".lock"
	if err := acquireLock(lockPath); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		os.Remove(lockPath)
		return nil, fmt.Errorf("opening record log: %w", err)
	}
	return &Writer{f: f, lockPath: lockPath}, nil
}

// Append validates and writes one record. Nothing is written for a
// record that would only be dropped at replay time.
func (w *Writer) Append(rec record.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	if _, err := w.f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("appending record: %w", err)
	}
	return nil
}

// Close flushes the log to disk and releases the lock.
func (w *Writer) Close() error {
	syncErr := w.f.Sync()
	closeErr := w.f.Close()
	os.Remove(w.lockPath)
	if syncErr != nil {
		return fmt.Errorf("syncing record log: %w", syncErr)
	}
	return closeErr
}

func acquireLock(lockPath string) error {
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			_, werr := f.WriteString(strconv.Itoa(os.Getpid()))
			cerr := f.Close()
			if werr != nil || cerr != nil {
				os.Remove(lockPath)
				return fmt.Errorf("writing lock file: %w", errors.Join(werr, cerr))
			}
			return nil
		}
		if !errors.Is(err, os.ErrExist) {
			return fmt.Errorf("creating lock file: %w", err)
		}
		pid := lockOwner(lockPath)
		if pid > 0 && processAlive(pid) {
			return &LockedError{Path: strings.TrimSuffix(lockPath, ".lock"), PID: pid}
		}
		// Stale lock from a dead writer; reclaim and retry once.
		os.Remove(lockPath)
	}
	return fmt.Errorf("lock file %s keeps reappearing", lockPath)
}

func lockOwner(lockPath string) int {
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// ReadLog loads every well-formed record from a log file. Lines that do
// not decode are counted and skipped, mirroring how transcript parsing
// treats damage: the rest of the log is still worth replaying.
func ReadLog(path string) ([]record.Record, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("opening record log: %w", err)
	}
	defer f.Close()

	var (
		records []record.Record
		skipped int
	)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec record.Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return records, skipped, fmt.Errorf("scanning record log: %w", err)
	}
	return records, skipped, nil
}
