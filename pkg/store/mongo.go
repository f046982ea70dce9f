package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore persists versions in a MongoDB collection. Writes are
// insert-only: a version document is never updated or deleted by this
// store, which is how the append-only contract is kept.
type MongoStore struct {
	client   *mongo.Client
	versions *mongo.Collection
}

// NewMongoStore connects to MongoDB and prepares the versions collection.
// An index on (project, number) keeps latest-version lookups cheap.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	versions := client.Database(database).Collection("versions")
	_, err = versions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "project", Value: 1}, {Key: "number", Value: -1}},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("create version index: %w", err)
	}

	return &MongoStore{client: client, versions: versions}, nil
}

// SaveVersion inserts a new version numbered one above the current latest.
func (s *MongoStore) SaveVersion(ctx context.Context, projectID, graph string) (VersionRecord, error) {
	number := 1
	if latest, err := s.Latest(ctx, projectID); err == nil {
		number = latest.Number + 1
	} else if !errors.Is(err, ErrProjectNotFound) {
		return VersionRecord{}, err
	}

	rec := VersionRecord{
		ID:        uuid.NewString(),
		Project:   projectID,
		Number:    number,
		Graph:     graph,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.versions.InsertOne(ctx, rec); err != nil {
		return VersionRecord{}, fmt.Errorf("insert version: %w", err)
	}
	return rec, nil
}

// LatestVersions returns up to limit versions, newest first.
func (s *MongoStore) LatestVersions(ctx context.Context, projectID string, limit int) ([]VersionRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "number", Value: -1}})
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}

	cursor, err := s.versions.Find(ctx, bson.M{"project": projectID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find versions: %w", err)
	}
	defer cursor.Close(ctx)

	var records []VersionRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode versions: %w", err)
	}
	return records, nil
}

// Latest returns the newest version.
func (s *MongoStore) Latest(ctx context.Context, projectID string) (VersionRecord, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "number", Value: -1}})

	var rec VersionRecord
	err := s.versions.FindOne(ctx, bson.M{"project": projectID}, opts).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return VersionRecord{}, ErrProjectNotFound
	}
	if err != nil {
		return VersionRecord{}, fmt.Errorf("find latest version: %w", err)
	}
	return rec, nil
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

var _ VersionStore = (*MongoStore)(nil)
