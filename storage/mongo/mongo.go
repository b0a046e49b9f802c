// Package mongo implements the document-store boundary on MongoDB, using a
// "resources" collection for current state and a "versions" collection for
// the append-only history.
package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	driver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fhirstack/fhirstore/query"
	"github.com/fhirstack/fhirstore/storage"
)

// Store is a MongoDB-backed storage.DocumentStore.
type Store struct {
	client    *driver.Client
	resources *driver.Collection
	versions  *driver.Collection
}

var _ storage.DocumentStore = (*Store)(nil)

// New wraps a connected client. database names the database holding the
// "resources" and "versions" collections.
func New(client *driver.Client, database string) *Store {
	db := client.Database(database)
	return &Store{
		client:    client,
		resources: db.Collection("resources"),
		versions:  db.Collection("versions"),
	}
}

// hideID keeps the store-internal _id out of returned documents.
var hideID = bson.M{"_id": 0}

func keyFilter(key storage.Key) bson.D {
	return bson.D{
		{Key: "resourceType", Value: key.ResourceType},
		{Key: "id", Value: key.ID},
	}
}

func (s *Store) InsertCurrent(ctx context.Context, doc storage.Document) error {
	_, err := s.resources.InsertOne(ctx, bson.M(doc))
	if driver.IsDuplicateKeyError(err) {
		return storage.ErrDuplicateKey
	}
	return err
}

func (s *Store) ReplaceCurrent(ctx context.Context, key storage.Key, expectedVersion string, doc storage.Document, upsert bool) (storage.ReplaceResult, error) {
	filter := keyFilter(key)
	if expectedVersion != "" {
		filter = append(filter, bson.E{Key: "meta.versionId", Value: expectedVersion})
	}

	// ReturnDocument(Before) distinguishes a replace (previous document
	// returned) from an upsert insert (ErrNoDocuments with upsert on).
	opts := options.FindOneAndReplace().
		SetUpsert(upsert).
		SetReturnDocument(options.Before).
		SetProjection(hideID)

	err := s.resources.FindOneAndReplace(ctx, filter, bson.M(doc), opts).Err()
	switch {
	case err == nil:
		return storage.ReplaceResult{Replaced: true}, nil
	case errors.Is(err, driver.ErrNoDocuments):
		if upsert {
			return storage.ReplaceResult{Replaced: false}, nil
		}
		return storage.ReplaceResult{}, storage.ErrNoMatch
	case driver.IsDuplicateKeyError(err):
		// Concurrent upsert race on the uniqueness constraint.
		return storage.ReplaceResult{}, storage.ErrDuplicateKey
	default:
		return storage.ReplaceResult{}, err
	}
}

func (s *Store) BulkUpsertCurrent(ctx context.Context, docs []storage.Document) error {
	models := make([]driver.WriteModel, 0, len(docs))
	for _, doc := range docs {
		key := storage.Key{ResourceType: docKeyPart(doc, "resourceType"), ID: docKeyPart(doc, "id")}
		models = append(models, driver.NewReplaceOneModel().
			SetFilter(keyFilter(key)).
			SetReplacement(bson.M(doc)).
			SetUpsert(true))
	}
	_, err := s.resources.BulkWrite(ctx, models)
	return err
}

func docKeyPart(doc storage.Document, field string) string {
	s, _ := doc[field].(string)
	return s
}

func (s *Store) FindCurrent(ctx context.Context, key storage.Key) (storage.Document, error) {
	return decodeOne(s.resources.FindOne(ctx, keyFilter(key), options.FindOne().SetProjection(hideID)))
}

func (s *Store) Find(ctx context.Context, q query.Query, w storage.Window) ([]storage.Document, error) {
	filter, err := Filter(q)
	if err != nil {
		return nil, err
	}

	opts := options.Find().
		SetProjection(hideID).
		SetSort(bson.D{
			{Key: "meta.lastUpdated", Value: -1},
			{Key: "_id", Value: -1},
		}).
		SetSkip(w.Skip).
		SetLimit(w.Limit)

	cur, err := s.resources.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	return decodeAll(ctx, cur)
}

func (s *Store) Count(ctx context.Context, q query.Query) (int64, error) {
	filter, err := Filter(q)
	if err != nil {
		return 0, err
	}
	return s.resources.CountDocuments(ctx, filter)
}

func (s *Store) Aggregate(ctx context.Context, stages []query.Stage) ([]storage.Document, error) {
	cur, err := s.resources.Aggregate(ctx, pipeline(stages))
	if err != nil {
		return nil, err
	}
	return decodeAll(ctx, cur)
}

func (s *Store) InsertVersion(ctx context.Context, doc storage.Document) error {
	_, err := s.versions.InsertOne(ctx, bson.M(doc))
	return err
}

func (s *Store) InsertVersions(ctx context.Context, docs []storage.Document) error {
	rows := make([]any, 0, len(docs))
	for _, doc := range docs {
		rows = append(rows, bson.M(doc))
	}
	_, err := s.versions.InsertMany(ctx, rows)
	return err
}

func (s *Store) FindVersion(ctx context.Context, key storage.Key, versionID string) (storage.Document, error) {
	filter := append(keyFilter(key), bson.E{Key: "meta.versionId", Value: versionID})
	return decodeOne(s.versions.FindOne(ctx, filter, options.FindOne().SetProjection(hideID)))
}

func (s *Store) HasVersions(ctx context.Context, key storage.Key) (bool, error) {
	n, err := s.versions.CountDocuments(ctx, keyFilter(key), options.Count().SetLimit(1))
	return n > 0, err
}

func (s *Store) DeleteCurrent(ctx context.Context, key storage.Key) (bool, error) {
	res, err := s.resources.DeleteOne(ctx, keyFilter(key))
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func decodeOne(res *driver.SingleResult) (storage.Document, error) {
	var doc storage.Document
	if err := res.Decode(&doc); err != nil {
		if errors.Is(err, driver.ErrNoDocuments) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

func decodeAll(ctx context.Context, cur *driver.Cursor) ([]storage.Document, error) {
	var docs []storage.Document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}
