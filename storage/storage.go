// Package storage defines the document-store boundary the repository is built
// on. Adapters translate the backend-neutral query tree into their native
// query language and map backend failures onto the typed errors below, so no
// error-code sniffing happens above this boundary.
package storage

import (
	"context"
	"errors"

	"github.com/fhirstack/fhirstore/query"
)

// Document is an opaque stored document.
type Document = map[string]any

// Key identifies a resource.
type Key struct {
	ResourceType string
	ID           string
}

// Window bounds a find to a skip/limit range.
type Window struct {
	Skip  int64
	Limit int64
}

// ReplaceResult reports the outcome of a ReplaceCurrent.
type ReplaceResult struct {
	// Replaced is true when an existing document was replaced, false when the
	// document was inserted by upsert.
	Replaced bool
}

var (
	// ErrDuplicateKey signals a uniqueness-constraint violation on insert.
	ErrDuplicateKey = errors.New("storage: duplicate key")
	// ErrNotFound signals a point read that matched nothing.
	ErrNotFound = errors.New("storage: document not found")
	// ErrNoMatch signals a non-upserting replace that matched nothing.
	ErrNoMatch = errors.New("storage: no document matched")
)

// DocumentStore provides the two logical namespaces the repository needs: a
// current-state namespace holding at most one live document per Key (enforced
// by a uniqueness constraint), and an append-only version-history namespace
// keyed by (Key, versionId).
//
// Find and Count operate on the current-state namespace. Find returns
// documents in a fixed order: meta.lastUpdated descending, ties broken by
// insertion order descending.
type DocumentStore interface {
	// InsertCurrent inserts a current-state document. Returns ErrDuplicateKey
	// if a document with the same key already exists.
	InsertCurrent(ctx context.Context, doc Document) error

	// ReplaceCurrent replaces the current-state document for key. When
	// expectedVersion is non-empty the replace only applies if the stored
	// document carries that meta.versionId. When upsert is set and nothing
	// matches, doc is inserted instead; otherwise a miss is ErrNoMatch.
	ReplaceCurrent(ctx context.Context, key Key, expectedVersion string, doc Document, upsert bool) (ReplaceResult, error)

	// BulkUpsertCurrent replaces-or-inserts each document independently.
	// There is no cross-document atomicity.
	BulkUpsertCurrent(ctx context.Context, docs []Document) error

	// FindCurrent reads the current-state document for key, or ErrNotFound.
	FindCurrent(ctx context.Context, key Key) (Document, error)

	// Find returns the current-state documents matching q within the window.
	Find(ctx context.Context, q query.Query, w Window) ([]Document, error)

	// Count counts the current-state documents matching q, unbounded.
	Count(ctx context.Context, q query.Query) (int64, error)

	// Aggregate executes an opaque pipeline against the current-state
	// namespace and returns its projected rows as-is.
	Aggregate(ctx context.Context, pipeline []query.Stage) ([]Document, error)

	// InsertVersion appends one version-history record.
	InsertVersion(ctx context.Context, doc Document) error

	// InsertVersions appends one version-history record per document.
	InsertVersions(ctx context.Context, docs []Document) error

	// FindVersion reads the exact version-history record, or ErrNotFound.
	FindVersion(ctx context.Context, key Key, versionID string) (Document, error)

	// HasVersions reports whether any version-history record exists for key.
	HasVersions(ctx context.Context, key Key) (bool, error)

	// DeleteCurrent removes the current-state document for key and reports
	// whether anything was removed. Version history is never touched.
	DeleteCurrent(ctx context.Context, key Key) (bool, error)

	// Close releases the underlying client.
	Close(ctx context.Context) error
}
