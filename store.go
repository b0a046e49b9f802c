package fhirstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/fhirstack/fhirstore/query"
)

// Store is the caller-facing facade over the repository: it validates
// resources, applies the conditional-header write semantics, and assembles
// result bundles. base is the absolute URL used for bundle links.
type Store struct {
	base string
	repo *Repo
}

// NewStore wraps a repository. base must be a non-empty absolute URL.
func NewStore(base string, repo *Repo) (*Store, error) {
	if base == "" {
		return nil, &ValidationError{"base must be a non-empty string"}
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, &ValidationError{fmt.Sprintf("base must be an absolute URL: %v", err)}
	}
	return &Store{base: base, repo: repo}, nil
}

// Repo exposes the underlying repository, e.g. to register query builders.
func (s *Store) Repo() *Repo {
	return s.repo
}

// WriteOptions carries the conditional-write headers. IfNoneMatch "*" turns
// the write into a create that fails if the resource exists; IfMatch follows
// UpdateOptions semantics.
type WriteOptions struct {
	IfMatch     string
	IfNoneMatch string
}

// Update writes a resource. The repository assigns fresh meta on the way in.
func (s *Store) Update(ctx context.Context, resource Resource, opts *WriteOptions) (Resource, WriteInfo, error) {
	if !resource.valid() {
		return nil, WriteInfo{}, &ValidationError{"invalid resource"}
	}

	if opts != nil && opts.IfNoneMatch == "*" {
		return s.repo.CreateResource(ctx, resource)
	}

	var uo *UpdateOptions
	if opts != nil && opts.IfMatch != "" {
		uo = &UpdateOptions{IfMatch: opts.IfMatch}
	}
	return s.repo.UpdateResource(ctx, resource, uo)
}

// TransactionEntry is one entry of a transaction bundle.
type TransactionEntry struct {
	ID       string
	Resource Resource
}

// Transaction applies a batch of upserts and returns the results as a
// bundle. Entries must carry stable, non-transient ids.
func (s *Store) Transaction(ctx context.Context, entries []TransactionEntry) (*Bundle, error) {
	if len(entries) == 0 {
		return NewBundle(s.base, "Transaction Results", nil, 0), nil
	}

	resources := make([]Resource, 0, len(entries))
	for _, entry := range entries {
		if entry.ID == "" || strings.HasPrefix(entry.ID, "cid:") {
			return nil, &ValidationError{"entries must have non-transient ids"}
		}
		if !entry.Resource.valid() {
			return nil, &ValidationError{fmt.Sprintf("invalid resource in entry %s", entry.ID)}
		}
		resources = append(resources, entry.Resource)
	}

	updated, err := s.repo.UpdateResources(ctx, resources)
	if err != nil {
		return nil, err
	}
	return NewBundle(s.base, "Transaction Results", updated, int64(len(updated))), nil
}

// Read returns the current state of a resource.
func (s *Store) Read(ctx context.Context, resourceType, id string) (Resource, error) {
	return s.repo.FindResource(ctx, resourceType, id)
}

// VRead returns one exact version of a resource.
func (s *Store) VRead(ctx context.Context, resourceType, id, versionID string) (Resource, error) {
	return s.repo.FindResourceVersion(ctx, resourceType, id, versionID)
}

// Search runs a search and assembles the result bundle, including the self
// link every search result carries.
func (s *Store) Search(ctx context.Context, resourceType string, params query.Params) (*Bundle, error) {
	result, err := s.repo.SearchResources(ctx, resourceType, params)
	if err != nil {
		return nil, err
	}

	total := result.Total
	if result.TotalUnknown {
		total = int64(len(result.Resources))
	}
	bundle := NewBundle(s.base, "Search Results", result.Resources, total)

	self := resolve(s.base, resourceType)
	if search := url.Values(params).Encode(); search != "" {
		self += "?" + search
	}
	bundle.Link = append(bundle.Link, BundleLink{Rel: "self", Href: self})

	return bundle, nil
}

// Delete removes the current state of a resource; its history remains
// readable through VRead.
func (s *Store) Delete(ctx context.Context, resourceType, id string) error {
	return s.repo.DeleteResource(ctx, resourceType, id)
}

// Close releases the underlying store.
func (s *Store) Close(ctx context.Context) error {
	return s.repo.Close(ctx)
}
