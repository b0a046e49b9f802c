// Package fhirstore implements a versioned, searchable data-access layer for
// FHIR resources on top of a pluggable document store.
//
// Resources are opaque documents identified by (resourceType, id). Every
// write assigns a fresh meta.versionId and meta.lastUpdated and appends an
// immutable version-history record; deleting a resource removes only its
// current state, so deletion stays distinguishable from non-existence.
// Searches are compiled per resource type by the builders in the query
// package and executed with fixed newest-first ordering and bounded
// pagination.
package fhirstore

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	driver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fhirstack/fhirstore/storage/mongo"
)

// Config configures Connect.
type Config struct {
	// Base is the absolute base URL used in bundle links.
	Base string
	// URL is the MongoDB connection string.
	URL string
	// Database holds the resources and versions collections.
	Database string
	// Logger receives repository logs; the zero value is silent.
	Logger zerolog.Logger
	// Metrics is optional; nil disables instrumentation.
	Metrics *Metrics
}

// Connect opens the MongoDB deployment, provisions the indexes the
// repository relies on, and returns a ready Store.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	client, err := driver.Connect(ctx, options.Client().ApplyURI(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	ms := mongo.New(client, cfg.Database)
	if err := ms.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}

	repo := NewRepo(ms, WithLogger(cfg.Logger), WithMetrics(cfg.Metrics))
	store, err := NewStore(cfg.Base, repo)
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return store, nil
}
