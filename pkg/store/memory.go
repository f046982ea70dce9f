package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process VersionStore for development and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	versions map[string][]VersionRecord // project -> versions, ascending by number
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		versions: make(map[string][]VersionRecord),
		now:      time.Now,
	}
}

// SaveVersion appends a new version.
func (s *MemoryStore) SaveVersion(ctx context.Context, projectID, graph string) (VersionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := VersionRecord{
		ID:        uuid.NewString(),
		Project:   projectID,
		Number:    len(s.versions[projectID]) + 1,
		Graph:     graph,
		CreatedAt: s.now().UTC(),
	}
	s.versions[projectID] = append(s.versions[projectID], rec)
	return rec, nil
}

// LatestVersions returns up to limit versions, newest first.
func (s *MemoryStore) LatestVersions(ctx context.Context, projectID string, limit int) ([]VersionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.versions[projectID]
	out := make([]VersionRecord, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, all[i])
	}
	return out, nil
}

// Latest returns the newest version.
func (s *MemoryStore) Latest(ctx context.Context, projectID string) (VersionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.versions[projectID]
	if len(all) == 0 {
		return VersionRecord{}, ErrProjectNotFound
	}
	return all[len(all)-1], nil
}

var _ VersionStore = (*MemoryStore)(nil)
