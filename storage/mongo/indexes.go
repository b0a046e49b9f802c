package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	driver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes provisions the indexes the repository relies on: the
// uniqueness constraint on (resourceType, id), the search sort index, and the
// version point-lookup index.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.resources.Indexes().CreateMany(ctx, []driver.IndexModel{
		{
			Keys: bson.D{
				{Key: "resourceType", Value: 1},
				{Key: "id", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "meta.lastUpdated", Value: -1},
				{Key: "_id", Value: -1},
			},
		},
	})
	if err != nil {
		return err
	}

	_, err = s.versions.Indexes().CreateMany(ctx, []driver.IndexModel{
		{
			Keys: bson.D{
				{Key: "resourceType", Value: 1},
				{Key: "id", Value: 1},
				{Key: "meta.versionId", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
	})
	return err
}
