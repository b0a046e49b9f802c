package fhirstore

import (
	"context"
	"fmt"
	"testing"

	"github.com/fhirstack/fhirstore/query"
	"github.com/fhirstack/fhirstore/storage"
	"github.com/fhirstack/fhirstore/storage/memory"
)

func patient(id string) Resource {
	return Resource{"resourceType": "Patient", "id": id, "active": true}
}

func TestRepoCreateAndFind(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	repo := NewRepo(store)

	created, info, err := repo.CreateResource(ctx, patient("p1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !info.Created || info.Updated {
		t.Errorf("unexpected write info: %+v", info)
	}
	if created.VersionID() == "" || created.LastUpdated().IsZero() {
		t.Errorf("create did not stamp meta: %+v", created)
	}

	found, err := repo.FindResource(ctx, "Patient", "p1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.VersionID() != created.VersionID() {
		t.Errorf("found version %q, want %q", found.VersionID(), created.VersionID())
	}

	if n := store.VersionCount(storage.Key{ResourceType: "Patient", ID: "p1"}); n != 1 {
		t.Errorf("history records = %d, want 1", n)
	}

	_, _, err = repo.CreateResource(ctx, patient("p1"))
	if !IsConflict(err) {
		t.Errorf("duplicate create: got %v, want ConflictError", err)
	}
}

func TestRepoFindMissingVersusDeleted(t *testing.T) {
	ctx := context.Background()
	repo := NewRepo(memory.New())

	if _, err := repo.FindResource(ctx, "Patient", "ghost"); !IsNotFound(err) {
		t.Errorf("never-existed read: got %v, want NotFoundError", err)
	}

	if _, _, err := repo.CreateResource(ctx, patient("p1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.DeleteResource(ctx, "Patient", "p1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := repo.FindResource(ctx, "Patient", "p1"); !IsDeleted(err) {
		t.Errorf("deleted read: got %v, want DeletedError", err)
	}

	if err := repo.DeleteResource(ctx, "Patient", "p1"); !IsNotFound(err) {
		t.Errorf("second delete: got %v, want NotFoundError", err)
	}
}

func TestRepoUpdateConditional(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	repo := NewRepo(store)
	key := storage.Key{ResourceType: "Patient", ID: "p1"}

	t.Run("wildcard on a missing resource conflicts", func(t *testing.T) {
		_, _, err := repo.UpdateResource(ctx, patient("p1"), &UpdateOptions{IfMatch: "*"})
		if !IsConflict(err) {
			t.Errorf("got %v, want ConflictError", err)
		}
		if n := store.VersionCount(key); n != 0 {
			t.Errorf("rejected write appended history: %d records", n)
		}
	})

	created, _, err := repo.CreateResource(ctx, patient("p1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	t.Run("stale version conflicts without history", func(t *testing.T) {
		_, _, err := repo.UpdateResource(ctx, patient("p1"), &UpdateOptions{IfMatch: "not-current"})
		if !IsConflict(err) {
			t.Errorf("got %v, want ConflictError", err)
		}
		if n := store.VersionCount(key); n != 1 {
			t.Errorf("rejected write appended history: %d records", n)
		}
	})

	t.Run("current version updates", func(t *testing.T) {
		updated, info, err := repo.UpdateResource(ctx, patient("p1"), &UpdateOptions{IfMatch: created.VersionID()})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if !info.Updated || info.Created {
			t.Errorf("unexpected write info: %+v", info)
		}
		if updated.VersionID() == created.VersionID() {
			t.Error("update must assign a fresh version id")
		}
		if n := store.VersionCount(key); n != 2 {
			t.Errorf("history records = %d, want 2", n)
		}
	})

	t.Run("wildcard on an existing resource updates", func(t *testing.T) {
		_, info, err := repo.UpdateResource(ctx, patient("p1"), &UpdateOptions{IfMatch: "*"})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if !info.Updated {
			t.Errorf("unexpected write info: %+v", info)
		}
	})

	t.Run("unconditional write upserts", func(t *testing.T) {
		_, info, err := repo.UpdateResource(ctx, patient("p2"), nil)
		if err != nil {
			t.Fatalf("upsert: %v", err)
		}
		if !info.Created || info.Updated {
			t.Errorf("unexpected write info: %+v", info)
		}
	})
}

func TestRepoVRead(t *testing.T) {
	ctx := context.Background()
	repo := NewRepo(memory.New())

	first, _, err := repo.CreateResource(ctx, Resource{"resourceType": "Patient", "id": "p1", "name": "before"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, _, err := repo.UpdateResource(ctx, Resource{"resourceType": "Patient", "id": "p1", "name": "after"}, nil)
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := repo.FindResourceVersion(ctx, "Patient", "p1", first.VersionID())
	if err != nil {
		t.Fatalf("vread: %v", err)
	}
	if got["name"] != "before" {
		t.Errorf("vread returned %v, want the first version", got["name"])
	}

	got, err = repo.FindResourceVersion(ctx, "Patient", "p1", second.VersionID())
	if err != nil {
		t.Fatalf("vread: %v", err)
	}
	if got["name"] != "after" {
		t.Errorf("vread returned %v, want the second version", got["name"])
	}

	if _, err := repo.FindResourceVersion(ctx, "Patient", "p1", "nope"); !IsNotFound(err) {
		t.Errorf("missing version: got %v, want NotFoundError", err)
	}

	// History survives deletion.
	if err := repo.DeleteResource(ctx, "Patient", "p1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.FindResourceVersion(ctx, "Patient", "p1", first.VersionID()); err != nil {
		t.Errorf("vread after delete: %v", err)
	}
}

func TestRepoUpdateResources(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	repo := NewRepo(store)

	if _, _, err := repo.CreateResource(ctx, patient("p1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := repo.UpdateResources(ctx, []Resource{patient("p1"), patient("p2")})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(updated) != 2 {
		t.Fatalf("expected 2 results, got %d", len(updated))
	}
	for _, u := range updated {
		if u.VersionID() == "" {
			t.Errorf("batch write did not stamp meta: %+v", u)
		}
	}

	if n := store.VersionCount(storage.Key{ResourceType: "Patient", ID: "p1"}); n != 2 {
		t.Errorf("p1 history = %d, want 2", n)
	}
	if n := store.VersionCount(storage.Key{ResourceType: "Patient", ID: "p2"}); n != 1 {
		t.Errorf("p2 history = %d, want 1", n)
	}
}

func TestRepoSearchPagination(t *testing.T) {
	ctx := context.Background()
	repo := NewRepo(memory.New())

	for i := 1; i <= 12; i++ {
		if _, _, err := repo.CreateResource(ctx, patient(fmt.Sprintf("p%02d", i))); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	t.Run("default page", func(t *testing.T) {
		res, err := repo.SearchResources(ctx, "Patient", query.Params{})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if res.Total != 12 {
			t.Errorf("total = %d, want 12", res.Total)
		}
		if len(res.Resources) != 10 {
			t.Fatalf("page size = %d, want 10", len(res.Resources))
		}
		if res.Resources[0].ID() != "p12" {
			t.Errorf("first result = %s, want the newest (p12)", res.Resources[0].ID())
		}
	})

	t.Run("last partial page", func(t *testing.T) {
		res, err := repo.SearchResources(ctx, "Patient", query.Params{"page": {"2"}})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if res.Total != 12 {
			t.Errorf("total = %d, want 12", res.Total)
		}
		ids := resourceIDs(res.Resources)
		if len(ids) != 2 || ids[0] != "p02" || ids[1] != "p01" {
			t.Errorf("page 2 = %v, want [p02 p01]", ids)
		}
	})

	t.Run("sized inner page", func(t *testing.T) {
		res, err := repo.SearchResources(ctx, "Patient", query.Params{"_count": {"3"}, "page": {"3"}})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		ids := resourceIDs(res.Resources)
		want := []string{"p06", "p05", "p04"}
		if len(ids) != 3 || ids[0] != want[0] || ids[1] != want[1] || ids[2] != want[2] {
			t.Errorf("page 3 of 3 = %v, want %v", ids, want)
		}
	})

	t.Run("past the end", func(t *testing.T) {
		res, err := repo.SearchResources(ctx, "Patient", query.Params{"page": {"9"}})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if len(res.Resources) != 0 || res.Total != 12 {
			t.Errorf("got %d resources, total %d", len(res.Resources), res.Total)
		}
	})
}

func TestRepoSearchFilters(t *testing.T) {
	ctx := context.Background()
	repo := NewRepo(memory.New())

	seed := []Resource{
		{"resourceType": "Patient", "id": "p1"},
		{"resourceType": "Condition", "id": "c1", "subject": map[string]any{"reference": "Patient/p1"}},
		{"resourceType": "Condition", "id": "c2", "subject": map[string]any{"reference": "http://other.example.com/fhir/Patient/p1"}},
		{"resourceType": "Condition", "id": "c3", "subject": map[string]any{"reference": "Patient/p2"}},
		{"resourceType": "Condition", "id": "c4", "subject": map[string]any{"reference": "Group/p1"}},
	}
	for _, r := range seed {
		if _, _, err := repo.CreateResource(ctx, r); err != nil {
			t.Fatalf("create %s: %v", r.ID(), err)
		}
	}

	t.Run("by subject id", func(t *testing.T) {
		res, err := repo.SearchResources(ctx, "Condition", query.Params{"subject": {"p1"}})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		ids := resourceIDs(res.Resources)
		if res.Total != 2 || len(ids) != 2 {
			t.Fatalf("got %v, total %d; want c2 and c1", ids, res.Total)
		}
		if ids[0] != "c2" || ids[1] != "c1" {
			t.Errorf("order = %v, want newest-first [c2 c1]", ids)
		}
	})

	t.Run("by _id", func(t *testing.T) {
		res, err := repo.SearchResources(ctx, "Condition", query.Params{"_id": {"c1,c3"}})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if res.Total != 2 {
			t.Errorf("total = %d, want 2", res.Total)
		}
	})

	t.Run("type scoping", func(t *testing.T) {
		res, err := repo.SearchResources(ctx, "Patient", query.Params{"_id": {"c1"}})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if res.Total != 0 {
			t.Errorf("a Condition id matched a Patient search: %v", resourceIDs(res.Resources))
		}
	})
}

func TestRepoSearchPipeline(t *testing.T) {
	ctx := context.Background()
	repo := NewRepo(memory.New())

	for _, id := range []string{"p1", "p2", "p3"} {
		if _, _, err := repo.CreateResource(ctx, patient(id)); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	repo.SetQueryBuilder("Patient", query.BuilderFunc(func(params query.Params, resourceType string) query.Query {
		return query.Query{Pipeline: []query.Stage{
			{"$match": map[string]any{"resourceType": resourceType}},
			{"$limit": 2},
		}}
	}))

	res, err := repo.SearchResources(ctx, "Patient", query.Params{"_count": {"1"}})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !res.TotalUnknown {
		t.Error("pipeline searches must report an unknown total")
	}
	// Pagination does not apply: the pipeline's own $limit governs.
	if len(res.Resources) != 2 {
		t.Errorf("got %d resources, want 2", len(res.Resources))
	}
}

func resourceIDs(resources []Resource) []string {
	ids := make([]string, 0, len(resources))
	for _, r := range resources {
		ids = append(ids, r.ID())
	}
	return ids
}
