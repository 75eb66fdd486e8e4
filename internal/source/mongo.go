package source

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dbsmedya/wsstats/internal/config"
	"github.com/dbsmedya/wsstats/internal/types"
)

// MongoSource reads the workspace collections from MongoDB.
type MongoSource struct {
	workspaces *mongo.Collection
	acls       *mongo.Collection
	objects    *mongo.Collection
	versions   *mongo.Collection
}

// NewMongoSource creates a source over db using the configured collection names.
func NewMongoSource(db *mongo.Database, cols config.CollectionsConfig) (*MongoSource, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle is nil")
	}
	return &MongoSource{
		workspaces: db.Collection(cols.Workspaces),
		acls:       db.Collection(cols.ACLs),
		objects:    db.Collection(cols.Objects),
		versions:   db.Collection(cols.Versions),
	}, nil
}

var (
	workspaceProjection = bson.M{"_id": 0, "ws": 1, "owner": 1, "numObj": 1, "del": 1}
	objectProjection    = bson.M{"_id": 0, "ws": 1, "id": 1, "numver": 1, "del": 1}
	versionProjection   = bson.M{"_id": 0, "ws": 1, "id": 1, "ver": 1, "type": 1, "savedby": 1, "size": 1}
)

// Workspaces implements Source.
func (s *MongoSource) Workspaces(ctx context.Context, includeDeleted bool) ([]Workspace, error) {
	filter := bson.M{}
	if !includeDeleted {
		filter["del"] = false
	}
	opts := options.Find().
		SetProjection(workspaceProjection).
		SetSort(bson.D{{Key: "ws", Value: 1}})

	docs, err := findAll(ctx, s.workspaces, filter, opts)
	if err != nil {
		return nil, err
	}

	workspaces := make([]Workspace, 0, len(docs))
	for _, doc := range docs {
		ws, err := decodeWorkspace(doc)
		if err != nil {
			return nil, fmt.Errorf("bad document in %s: %w", s.workspaces.Name(), err)
		}
		workspaces = append(workspaces, ws)
	}

	aclDocs, err := findAll(ctx, s.acls, bson.M{"user": PublicUser},
		options.Find().SetProjection(bson.M{"_id": 0, "id": 1}))
	if err != nil {
		return nil, err
	}
	public := make([]int64, 0, len(aclDocs))
	for _, doc := range aclDocs {
		id, err := types.Int64Field(doc, "id")
		if err != nil {
			return nil, fmt.Errorf("bad document in %s: %w", s.acls.Name(), err)
		}
		public = append(public, id)
	}

	return mergePublic(workspaces, public), nil
}

// Objects implements Source.
func (s *MongoSource) Objects(ctx context.Context, ws int64, w Window) ([]Object, error) {
	filter := bson.M{"ws": ws, "id": bson.M{"$gt": w.Low, "$lte": w.High}}
	opts := options.Find().
		SetProjection(objectProjection).
		SetSort(bson.D{{Key: "id", Value: 1}})

	docs, err := findAll(ctx, s.objects, filter, opts)
	if err != nil {
		return nil, err
	}

	objects := make([]Object, 0, len(docs))
	for _, doc := range docs {
		o, err := decodeObject(doc)
		if err != nil {
			return nil, fmt.Errorf("bad document in %s: %w", s.objects.Name(), err)
		}
		objects = append(objects, o)
	}
	return objects, nil
}

// VersionsInWindow implements Source.
func (s *MongoSource) VersionsInWindow(ctx context.Context, ws int64, w Window) ([]Version, error) {
	filter := bson.M{"ws": ws, "id": bson.M{"$gt": w.Low, "$lte": w.High}}
	opts := options.Find().
		SetProjection(versionProjection).
		SetSort(bson.D{{Key: "id", Value: 1}, {Key: "ver", Value: 1}})
	return s.findVersions(ctx, filter, opts)
}

// LatestVersions implements Source.
func (s *MongoSource) LatestVersions(ctx context.Context, ws int64, refs []VersionRef) ([]Version, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	return s.findVersions(ctx, latestVersionsFilter(ws, refs),
		options.Find().SetProjection(versionProjection).SetSort(bson.D{{Key: "id", Value: 1}}))
}

// latestVersionsFilter builds the $or of point lookups for one batch.
func latestVersionsFilter(ws int64, refs []VersionRef) bson.M {
	or := make(bson.A, 0, len(refs))
	for _, r := range refs {
		or = append(or, bson.M{"id": r.ObjectID, "ver": r.Version})
	}
	return bson.M{"ws": ws, "$or": or}
}

func (s *MongoSource) findVersions(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]Version, error) {
	docs, err := findAll(ctx, s.versions, filter, opts)
	if err != nil {
		return nil, err
	}

	versions := make([]Version, 0, len(docs))
	for _, doc := range docs {
		v, err := decodeVersion(doc)
		if err != nil {
			return nil, fmt.Errorf("bad document in %s: %w", s.versions.Name(), err)
		}
		versions = append(versions, v)
	}
	return versions, nil
}

func findAll(ctx context.Context, coll *mongo.Collection, filter bson.M, opts *options.FindOptions) ([]bson.M, error) {
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", coll.Name(), err)
	}
	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", coll.Name(), err)
	}
	return docs, nil
}

func decodeWorkspace(doc bson.M) (Workspace, error) {
	var ws Workspace
	var err error
	if ws.ID, err = types.Int64Field(doc, "ws"); err != nil {
		return ws, err
	}
	if ws.Owner, err = types.StringField(doc, "owner"); err != nil {
		return ws, err
	}
	if ws.MaxObjectID, err = types.Int64Field(doc, "numObj"); err != nil {
		return ws, err
	}
	if ws.Deleted, err = types.BoolField(doc, "del"); err != nil {
		return ws, err
	}
	return ws, nil
}

func decodeObject(doc bson.M) (Object, error) {
	var o Object
	var err error
	if o.Workspace, err = types.Int64Field(doc, "ws"); err != nil {
		return o, err
	}
	if o.ID, err = types.Int64Field(doc, "id"); err != nil {
		return o, err
	}
	if o.LatestVersion, err = types.Int64Field(doc, "numver"); err != nil {
		return o, err
	}
	if o.Deleted, err = types.BoolField(doc, "del"); err != nil {
		return o, err
	}
	return o, nil
}

func decodeVersion(doc bson.M) (Version, error) {
	var v Version
	var err error
	if v.Workspace, err = types.Int64Field(doc, "ws"); err != nil {
		return v, err
	}
	if v.ObjectID, err = types.Int64Field(doc, "id"); err != nil {
		return v, err
	}
	if v.Version, err = types.Int64Field(doc, "ver"); err != nil {
		return v, err
	}
	if v.Type, err = types.StringField(doc, "type"); err != nil {
		return v, err
	}
	if v.SavedBy, err = types.StringField(doc, "savedby"); err != nil {
		return v, err
	}
	if v.Size, err = types.Int64Field(doc, "size"); err != nil {
		return v, err
	}
	return v, nil
}
