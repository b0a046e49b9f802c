package fhirstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/fhirstack/fhirstore/query"
	"github.com/fhirstack/fhirstore/storage"
)

// WriteInfo reports what a write did.
type WriteInfo struct {
	Created bool
	Updated bool
}

// UpdateOptions controls UpdateResource. An empty IfMatch upserts without a
// version check. The wildcard "*" asserts the resource must already exist, at
// any version. A specific version id is an optimistic-concurrency check:
// the update only applies if that version is still current.
type UpdateOptions struct {
	IfMatch string
}

// SearchResult is the outcome of a search. TotalUnknown is set when the
// query ran as an aggregation pipeline, which bypasses counting.
type SearchResult struct {
	Resources    []Resource
	Total        int64
	TotalUnknown bool
}

// Repo is the versioned repository. Every successful write appends exactly
// one version-history record and replaces (or creates) the current-state
// record. Deleting removes current state only; history is retained, which is
// how a deleted resource stays distinguishable from one that never existed.
//
// All operations are single calls against the document store with no internal
// locking or retries; the store's atomic single-document operations are the
// only concurrency control. Cancellation is the caller's, via ctx.
type Repo struct {
	store    storage.DocumentStore
	builders *query.Registry
	log      zerolog.Logger
	metrics  *Metrics
}

// RepoOption configures a Repo.
type RepoOption func(*Repo)

// WithLogger sets the repository logger.
func WithLogger(log zerolog.Logger) RepoOption {
	return func(r *Repo) { r.log = log }
}

// WithMetrics sets the repository metrics.
func WithMetrics(m *Metrics) RepoOption {
	return func(r *Repo) { r.metrics = m }
}

// NewRepo creates a repository on the given document store with the default
// query builders. The builder registry is owned by this instance.
func NewRepo(store storage.DocumentStore, opts ...RepoOption) *Repo {
	r := &Repo{
		store:    store,
		builders: query.NewRegistry(),
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// QueryBuilder returns the builder used for the resource type.
func (r *Repo) QueryBuilder(resourceType string) query.Builder {
	return r.builders.Get(resourceType)
}

// SetQueryBuilder registers or overwrites the builder for a resource type on
// this instance. Intended for startup; not synchronized with concurrent use.
func (r *Repo) SetQueryBuilder(resourceType string, b query.Builder) {
	r.builders.Set(resourceType, b)
}

// CreateResource inserts a new resource and appends its first version record.
// It fails with a ConflictError if the id is already taken.
func (r *Repo) CreateResource(ctx context.Context, resource Resource) (_ Resource, _ WriteInfo, err error) {
	defer r.observe("create", time.Now(), &err)

	stored := stampMeta(resource)
	if err = r.store.InsertCurrent(ctx, storage.Document(stored)); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			err = &ConflictError{fmt.Sprintf("%s with id %s already exists", resource.Type(), resource.ID())}
		}
		return nil, WriteInfo{}, err
	}

	// The version record is written only after the resource is in place. If
	// this write fails the current-state write stands and the error surfaces.
	if err = r.appendVersion(ctx, stored); err != nil {
		return nil, WriteInfo{}, err
	}

	return stored, WriteInfo{Created: true}, nil
}

// UpdateResource replaces the current state of a resource and appends a
// version record. Without options it upserts: last writer wins. See
// UpdateOptions for the conditional forms; a conditional miss is a
// ConflictError and appends nothing.
func (r *Repo) UpdateResource(ctx context.Context, resource Resource, opts *UpdateOptions) (_ Resource, _ WriteInfo, err error) {
	defer r.observe("update", time.Now(), &err)

	stored := stampMeta(resource)
	key := storage.Key{ResourceType: resource.Type(), ID: resource.ID()}

	expectedVersion := ""
	upsert := true
	if opts != nil && opts.IfMatch != "" {
		// Any If-Match disables upsert: the resource must already exist.
		upsert = false
		if opts.IfMatch != "*" {
			expectedVersion = opts.IfMatch
		}
	}

	res, err := r.store.ReplaceCurrent(ctx, key, expectedVersion, storage.Document(stored), upsert)
	if err != nil {
		if errors.Is(err, storage.ErrNoMatch) {
			err = &ConflictError{fmt.Sprintf("%s with id %s does not match", resource.Type(), resource.ID())}
		}
		return nil, WriteInfo{}, err
	}

	if err = r.appendVersion(ctx, stored); err != nil {
		return nil, WriteInfo{}, err
	}

	return stored, WriteInfo{Created: !res.Replaced, Updated: res.Replaced}, nil
}

// UpdateResources upserts each resource independently and then appends one
// version record per resource. There is no cross-document atomicity and no
// version checking; it exists for transaction-bundle semantics where partial
// application is acceptable but history must stay complete.
func (r *Repo) UpdateResources(ctx context.Context, resources []Resource) (_ []Resource, err error) {
	defer r.observe("update_batch", time.Now(), &err)

	stored := make([]Resource, 0, len(resources))
	docs := make([]storage.Document, 0, len(resources))
	for _, resource := range resources {
		s := stampMeta(resource)
		stored = append(stored, s)
		docs = append(docs, storage.Document(s))
	}

	if err = r.store.BulkUpsertCurrent(ctx, docs); err != nil {
		return nil, err
	}
	if err = r.store.InsertVersions(ctx, docs); err != nil {
		r.log.Warn().Err(err).Int("resources", len(docs)).
			Msg("version history append failed after batch write")
		return nil, err
	}

	return stored, nil
}

// FindResource reads the current state of a resource. A resource with
// history but no current state fails with a DeletedError; one that never
// existed fails with a NotFoundError.
func (r *Repo) FindResource(ctx context.Context, resourceType, id string) (_ Resource, err error) {
	defer r.observe("read", time.Now(), &err)

	key := storage.Key{ResourceType: resourceType, ID: id}
	doc, err := r.store.FindCurrent(ctx, key)
	if err == nil {
		return Resource(doc), nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	deleted, err := r.store.HasVersions(ctx, key)
	if err != nil {
		return nil, err
	}
	if deleted {
		return nil, &DeletedError{fmt.Sprintf("%s with id %s has been deleted", resourceType, id)}
	}
	return nil, &NotFoundError{fmt.Sprintf("%s with id %s not found", resourceType, id)}
}

// FindResourceVersion reads one exact version from history.
func (r *Repo) FindResourceVersion(ctx context.Context, resourceType, id, versionID string) (_ Resource, err error) {
	defer r.observe("vread", time.Now(), &err)

	doc, err := r.store.FindVersion(ctx, storage.Key{ResourceType: resourceType, ID: id}, versionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			err = &NotFoundError{fmt.Sprintf("%s with id %s and version %s not found", resourceType, id, versionID)}
		}
		return nil, err
	}
	return Resource(doc), nil
}

// SearchResources runs the registered builder for the type and executes the
// resulting query. A filter query is paginated, ordered newest-first, and
// counted without the page bound; the find and count run concurrently. A
// pipeline query runs as-is with no sorting, pagination or counting.
func (r *Repo) SearchResources(ctx context.Context, resourceType string, params query.Params) (_ SearchResult, err error) {
	defer r.observe("search", time.Now(), &err)

	q := r.builders.Get(resourceType).Build(params, resourceType)
	r.log.Debug().Str("resourceType", resourceType).Interface("params", params).
		Bool("pipeline", q.IsPipeline()).Msg("search")

	if q.IsPipeline() {
		docs, err := r.store.Aggregate(ctx, q.Pipeline)
		if err != nil {
			return SearchResult{}, err
		}
		return SearchResult{Resources: toResources(docs), TotalUnknown: true}, nil
	}

	type count struct {
		n   int64
		err error
	}
	counted := make(chan count, 1)
	go func() {
		n, err := r.store.Count(ctx, q)
		counted <- count{n: n, err: err}
	}()

	docs, err := r.store.Find(ctx, q, PageWindow(params))
	c := <-counted
	if err != nil {
		return SearchResult{}, err
	}
	if c.err != nil {
		return SearchResult{}, c.err
	}

	return SearchResult{Resources: toResources(docs), Total: c.n}, nil
}

// DeleteResource removes the current state of a resource, leaving its
// version history in place. It fails with a NotFoundError if nothing was
// removed.
func (r *Repo) DeleteResource(ctx context.Context, resourceType, id string) (err error) {
	defer r.observe("delete", time.Now(), &err)

	deleted, err := r.store.DeleteCurrent(ctx, storage.Key{ResourceType: resourceType, ID: id})
	if err != nil {
		return err
	}
	if !deleted {
		return &NotFoundError{fmt.Sprintf("%s with id %s does not exist", resourceType, id)}
	}
	return nil
}

// Close releases the underlying store.
func (r *Repo) Close(ctx context.Context) error {
	return r.store.Close(ctx)
}

func (r *Repo) appendVersion(ctx context.Context, stored Resource) error {
	if err := r.store.InsertVersion(ctx, storage.Document(stored)); err != nil {
		r.log.Warn().Err(err).Str("resourceType", stored.Type()).Str("id", stored.ID()).
			Msg("version history append failed after primary write")
		return err
	}
	return nil
}

func (r *Repo) observe(operation string, start time.Time, err *error) {
	r.metrics.record(operation, start, *err)
}

func toResources(docs []storage.Document) []Resource {
	resources := make([]Resource, 0, len(docs))
	for _, doc := range docs {
		resources = append(resources, Resource(doc))
	}
	return resources
}
