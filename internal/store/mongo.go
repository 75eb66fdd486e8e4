package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/dbsmedya/wsstats/internal/logger"
)

// MongoSink writes one document per snapshot row.
type MongoSink struct {
	coll   *mongo.Collection
	logger *logger.Logger
}

// NewMongoSink creates a sink writing to the named collection of db.
func NewMongoSink(db *mongo.Database, collection string, log *logger.Logger) (*MongoSink, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &MongoSink{coll: db.Collection(collection), logger: log}, nil
}

// Save implements Sink.
func (s *MongoSink) Save(ctx context.Context, snap Snapshot) error {
	docs := snapshotDocuments(snap)
	if len(docs) == 0 {
		s.logger.WithRun(snap.RunID).Info("Snapshot has no rows, nothing stored")
		return nil
	}
	if _, err := s.coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to insert snapshot into %s: %w", s.coll.Name(), err)
	}
	s.logger.WithRun(snap.RunID).Infof("Stored %d snapshot rows in %s", len(docs), s.coll.Name())
	return nil
}

func snapshotDocuments(snap Snapshot) []interface{} {
	docs := make([]interface{}, 0, len(snap.Rows))
	for _, r := range snap.Rows {
		docs = append(docs, bson.D{
			{Key: "run_id", Value: snap.RunID},
			{Key: "taken_at", Value: snap.TakenAt},
			{Key: "owner", Value: r.Owner},
			{Key: "public", Value: r.Public},
			{Key: "deleted", Value: r.Deleted},
			{Key: "type_name", Value: r.Type},
			{Key: "type_version", Value: r.Version},
			{Key: "obj_count", Value: r.Count},
			{Key: "bytes", Value: r.Bytes},
		})
	}
	return docs
}
