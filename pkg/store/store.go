// Package store persists diagram versions. Saves are append-only: every
// save creates a new immutable version with a monotonic per-project
// number, never overwriting a prior one. The store deliberately does not
// deduplicate identical payloads - pruning is the backing store's policy.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrProjectNotFound is returned by [VersionStore.Latest] when a project
// has no saved versions yet. Loaders treat it as "start from an empty
// graph", not as a failure.
var ErrProjectNotFound = errors.New("project not found")

// VersionRecord is one immutable saved version of a project's diagram.
// Graph holds the serialized snapshot; the store never parses it.
type VersionRecord struct {
	ID        string    `json:"id" bson:"_id"`
	Project   string    `json:"projectId" bson:"project"`
	Number    int       `json:"number" bson:"number"`
	Graph     string    `json:"graph" bson:"graph"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}

// VersionStore is the remote versioned store collaborator.
// Implementations must be safe for concurrent use.
type VersionStore interface {
	// SaveVersion appends a new version holding the serialized graph and
	// returns the created record. Numbers are monotonic per project,
	// starting at 1.
	SaveVersion(ctx context.Context, projectID, graph string) (VersionRecord, error)

	// LatestVersions returns up to limit versions, newest first.
	// A limit <= 0 returns all versions. An unknown project yields an
	// empty slice, not an error.
	LatestVersions(ctx context.Context, projectID string, limit int) ([]VersionRecord, error)

	// Latest returns the newest version, or ErrProjectNotFound if the
	// project has never been saved.
	Latest(ctx context.Context, projectID string) (VersionRecord, error)
}
