package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/klauspost/compress/zstd"
)

const (
	blobPrefix     = "b/"
	manifestPrefix = "m/"
)

// Options configures a disk-backed store.
type Options struct {
	// Compression runs blob contents through zstd. A directory written
	// with compression on must be reopened the same way.
	Compression bool
	// Ephemeral removes the store directory on Close. Used for replays
	// that only need the snapshots for the lifetime of one command.
	Ephemeral bool
}

// diskStore is a badger-backed Store. Blobs live under b/<content hash>,
// manifests under m/<snapshot id>.
type diskStore struct {
	mu    sync.Mutex
	db    *badger.DB
	dir   string
	opts  Options
	enc   *zstd.Encoder
	dec   *zstd.Decoder
	cache hashCache
}

// Open opens (or creates) a disk-backed store in dir.
func Open(dir string, opts Options) (Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("opening snapshot store: %w", err)
	}
	s := &diskStore{db: db, dir: dir, opts: opts, cache: make(hashCache)}
	if opts.Compression {
		if s.enc, err = zstd.NewWriter(nil); err != nil {
			db.Close()
			return nil, fmt.Errorf("initializing compressor: %w", err)
		}
		if s.dec, err = zstd.NewReader(nil); err != nil {
			db.Close()
			return nil, fmt.Errorf("initializing decompressor: %w", err)
		}
	}
	return s, nil
}

func (s *diskStore) Put(files map[string]string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, raw, id, err := buildManifest(s.cache, files)
	if err != nil {
		return "", &WriteError{Err: err}
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		mkey := []byte(manifestPrefix + id)
		if _, err := txn.Get(mkey); err == nil {
			return nil
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		for _, e := range entries {
			bkey := []byte(blobPrefix + e.Blob)
			if _, err := txn.Get(bkey); err == nil {
				continue
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			if err := txn.Set(bkey, s.compress([]byte(files[e.Path]))); err != nil {
				return err
			}
		}
		return txn.Set(mkey, raw)
	})
	if err != nil {
		return "", &WriteError{Err: err}
	}
	return id, nil
}

func (s *diskStore) Get(id string) (map[string]string, error) {
	var files map[string]string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(manifestPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNoSnapshot
		} else if err != nil {
			return err
		}
		var entries []manifestEntry
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entries)
		}); err != nil {
			return fmt.Errorf("decoding manifest %s: %w", id, err)
		}
		files = make(map[string]string, len(entries))
		for _, e := range entries {
			item, err := txn.Get([]byte(blobPrefix + e.Blob))
			if err != nil {
				return fmt.Errorf("loading blob for %s: %w", e.Path, err)
			}
			if err := item.Value(func(val []byte) error {
				content, err := s.decompress(val)
				if err != nil {
					return err
				}
				files[e.Path] = string(content)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (s *diskStore) Close() error {
	if s.enc != nil {
		s.enc.Close()
	}
	if s.dec != nil {
		s.dec.Close()
	}
	err := s.db.Close()
	if s.opts.Ephemeral {
		if rmErr := os.RemoveAll(s.dir); err == nil {
			err = rmErr
		}
	}
	return err
}

func (s *diskStore) compress(data []byte) []byte {
	if s.enc == nil {
		return data
	}
	return s.enc.EncodeAll(data, nil)
}

func (s *diskStore) decompress(data []byte) ([]byte, error) {
	if s.dec == nil {
		return append([]byte(nil), data...), nil
	}
	out, err := s.dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompressing blob: %w", err)
	}
	return out, nil
}
