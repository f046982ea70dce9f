package editor

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nuno18084/Ampflux-sub000/pkg/cache"
	"github.com/nuno18084/Ampflux-sub000/pkg/schematic"
)

// Mirror keeps the local snapshot of a diagram: the full GraphSnapshot,
// serialized and written after every committed mutation. It exists so the
// editor survives re-mounts and transient re-renders without a remote
// round-trip. The backing cache decides the scope (process memory, file,
// redis).
type Mirror struct {
	cache  cache.Cache
	ttl    time.Duration
	logger *log.Logger
}

// NewMirror wraps a cache as a snapshot mirror. A nil cache yields a
// mirror backed by process memory.
func NewMirror(c cache.Cache) *Mirror {
	if c == nil {
		c = cache.NewMemoryCache()
	}
	return &Mirror{cache: c, logger: log.Default()}
}

// Write serializes the snapshot and stores it under the project's key.
// Mirror failures are logged, never propagated: the in-memory graph is
// still authoritative and a broken mirror must not break editing.
func (m *Mirror) Write(ctx context.Context, projectID string, snap schematic.Snapshot) {
	data, err := schematic.MarshalSnapshot(snap)
	if err != nil {
		m.logger.Warn("snapshot serialize failed", "project", projectID, "err", err)
		return
	}
	if err := m.cache.Set(ctx, cache.SnapshotKey(projectID), data, m.ttl); err != nil {
		m.logger.Warn("snapshot mirror write failed", "project", projectID, "err", err)
	}
}

// Read loads the mirrored snapshot for a project. A missing, unreadable,
// or malformed entry reports absent: the caller falls through to the
// remote store or an empty graph.
func (m *Mirror) Read(ctx context.Context, projectID string) (schematic.Snapshot, bool) {
	data, hit, err := m.cache.Get(ctx, cache.SnapshotKey(projectID))
	if err != nil {
		m.logger.Warn("snapshot mirror read failed", "project", projectID, "err", err)
		return schematic.Snapshot{}, false
	}
	if !hit {
		return schematic.Snapshot{}, false
	}

	snap, err := schematic.UnmarshalSnapshot(data)
	if err != nil {
		// Malformed data is treated as absent, and dropped so the next
		// write starts clean.
		m.logger.Warn("snapshot mirror entry malformed", "project", projectID, "err", err)
		_ = m.cache.Delete(ctx, cache.SnapshotKey(projectID))
		return schematic.Snapshot{}, false
	}
	return snap, true
}

// Clear removes the mirrored snapshot for a project.
func (m *Mirror) Clear(ctx context.Context, projectID string) {
	if err := m.cache.Delete(ctx, cache.SnapshotKey(projectID)); err != nil {
		m.logger.Warn("snapshot mirror clear failed", "project", projectID, "err", err)
	}
}
