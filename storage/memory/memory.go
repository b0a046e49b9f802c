// Package memory implements the document-store boundary in process memory.
// It evaluates the backend-neutral query tree directly and preserves the
// fixed result ordering, which makes it a faithful stand-in for repository
// tests and for embedding.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/fhirstack/fhirstore/query"
	"github.com/fhirstack/fhirstore/storage"
)

// Store is an in-memory storage.DocumentStore. Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	seq      int64
	current  map[storage.Key]*record
	versions []*record
}

type record struct {
	doc storage.Document
	seq int64
}

var _ storage.DocumentStore = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{current: map[storage.Key]*record{}}
}

func docKey(doc storage.Document) storage.Key {
	rt, _ := doc["resourceType"].(string)
	id, _ := doc["id"].(string)
	return storage.Key{ResourceType: rt, ID: id}
}

func (s *Store) InsertCurrent(_ context.Context, doc storage.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := docKey(doc)
	if _, exists := s.current[key]; exists {
		return storage.ErrDuplicateKey
	}
	s.seq++
	s.current[key] = &record{doc: clone(doc), seq: s.seq}
	return nil
}

func (s *Store) ReplaceCurrent(_ context.Context, key storage.Key, expectedVersion string, doc storage.Document, upsert bool) (storage.ReplaceResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.current[key]
	if exists && (expectedVersion == "" || versionOf(rec.doc) == expectedVersion) {
		// Replacing keeps the original insertion order, as a real store would.
		rec.doc = clone(doc)
		return storage.ReplaceResult{Replaced: true}, nil
	}
	if !upsert {
		return storage.ReplaceResult{}, storage.ErrNoMatch
	}
	if exists {
		// Version mismatch with upsert requested: the insert would violate
		// the uniqueness constraint.
		return storage.ReplaceResult{}, storage.ErrDuplicateKey
	}
	s.seq++
	s.current[key] = &record{doc: clone(doc), seq: s.seq}
	return storage.ReplaceResult{Replaced: false}, nil
}

func (s *Store) BulkUpsertCurrent(_ context.Context, docs []storage.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, doc := range docs {
		key := docKey(doc)
		if rec, exists := s.current[key]; exists {
			rec.doc = clone(doc)
			continue
		}
		s.seq++
		s.current[key] = &record{doc: clone(doc), seq: s.seq}
	}
	return nil
}

func (s *Store) FindCurrent(_ context.Context, key storage.Key) (storage.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.current[key]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return clone(rec.doc), nil
}

func (s *Store) Find(_ context.Context, q query.Query, w storage.Window) ([]storage.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched, err := s.matching(q)
	if err != nil {
		return nil, err
	}
	sortRecords(matched)

	if w.Skip >= int64(len(matched)) {
		return nil, nil
	}
	matched = matched[w.Skip:]
	if w.Limit > 0 && w.Limit < int64(len(matched)) {
		matched = matched[:w.Limit]
	}

	docs := make([]storage.Document, 0, len(matched))
	for _, rec := range matched {
		docs = append(docs, clone(rec.doc))
	}
	return docs, nil
}

func (s *Store) Count(_ context.Context, q query.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched, err := s.matching(q)
	if err != nil {
		return 0, err
	}
	return int64(len(matched)), nil
}

func (s *Store) matching(q query.Query) ([]*record, error) {
	var matched []*record
	for _, rec := range s.current {
		ok, err := matchAll(rec.doc, q.Conds)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, rec)
		}
	}
	return matched, nil
}

func (s *Store) InsertVersion(_ context.Context, doc storage.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.versions = append(s.versions, &record{doc: clone(doc), seq: s.seq})
	return nil
}

func (s *Store) InsertVersions(_ context.Context, docs []storage.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, doc := range docs {
		s.seq++
		s.versions = append(s.versions, &record{doc: clone(doc), seq: s.seq})
	}
	return nil
}

func (s *Store) FindVersion(_ context.Context, key storage.Key, versionID string) (storage.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.versions {
		if docKey(rec.doc) == key && versionOf(rec.doc) == versionID {
			return clone(rec.doc), nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) HasVersions(_ context.Context, key storage.Key) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.versions {
		if docKey(rec.doc) == key {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) DeleteCurrent(_ context.Context, key storage.Key) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.current[key]; !exists {
		return false, nil
	}
	delete(s.current, key)
	return true, nil
}

func (s *Store) Close(context.Context) error {
	return nil
}

// VersionCount reports the number of history records for key. Test helper.
func (s *Store) VersionCount(key storage.Key) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, rec := range s.versions {
		if docKey(rec.doc) == key {
			n++
		}
	}
	return n
}

// sortRecords orders newest-first: meta.lastUpdated descending, insertion
// order descending as the tiebreak.
func sortRecords(recs []*record) {
	sort.SliceStable(recs, func(i, j int) bool {
		ti, tj := lastUpdated(recs[i].doc), lastUpdated(recs[j].doc)
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return recs[i].seq > recs[j].seq
	})
}

func clone(doc storage.Document) storage.Document {
	out := make(storage.Document, len(doc))
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return clone(v)
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// Aggregate supports the stage subset exercised in tests: $match with flat
// field equality, $project (ignored, no internal fields to strip), $limit.
func (s *Store) Aggregate(_ context.Context, stages []query.Stage) ([]storage.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var recs []*record
	for _, rec := range s.current {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq < recs[j].seq })

	docs := make([]storage.Document, 0, len(recs))
	for _, rec := range recs {
		docs = append(docs, clone(rec.doc))
	}

	for _, stage := range stages {
		for op, arg := range stage {
			switch op {
			case "$match":
				crit, ok := arg.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("memory: $match expects a document, got %T", arg)
				}
				var kept []storage.Document
				for _, doc := range docs {
					if matchFlat(doc, crit) {
						kept = append(kept, doc)
					}
				}
				docs = kept
			case "$project":
				// Nothing to strip: no internal fields are stored.
			case "$limit":
				if n, ok := toInt(arg); ok && n < int64(len(docs)) {
					docs = docs[:n]
				}
			default:
				return nil, fmt.Errorf("memory: unsupported pipeline stage %q", op)
			}
		}
	}
	return docs, nil
}

func matchFlat(doc storage.Document, crit map[string]any) bool {
	for field, want := range crit {
		got, ok := lookup(doc, field)
		if !ok || got != want {
			return false
		}
	}
	return true
}

func toInt(v any) (int64, bool) {
	switch v := v.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}
