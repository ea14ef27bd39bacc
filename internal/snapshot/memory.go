package snapshot

import "sync"

// memStore keeps blobs and manifests in process memory. It is the default
// backend: a replay engine is usually rebuilt per invocation, so nothing
// has to outlive the process.
type memStore struct {
	mu        sync.RWMutex
	blobs     map[string]string
	manifests map[string][]manifestEntry
	cache     hashCache
}

// NewMemory returns an in-memory Store.
func NewMemory() Store {
	return &memStore{
		blobs:     make(map[string]string),
		manifests: make(map[string][]manifestEntry),
		cache:     make(hashCache),
	}
}

func (s *memStore) Put(files map[string]string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, _, id, err := buildManifest(s.cache, files)
	if err != nil {
		return "", &WriteError{Err: err}
	}
	if _, ok := s.manifests[id]; ok {
		return id, nil
	}
	for _, e := range entries {
		if _, ok := s.blobs[e.Blob]; !ok {
			s.blobs[e.Blob] = files[e.Path]
		}
	}
	s.manifests[id] = entries
	return id, nil
}

func (s *memStore) Get(id string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, ok := s.manifests[id]
	if !ok {
		return nil, ErrNoSnapshot
	}
	files := make(map[string]string, len(entries))
	for _, e := range entries {
		files[e.Path] = s.blobs[e.Blob]
	}
	return files, nil
}

func (s *memStore) Close() error {
	return nil
}
