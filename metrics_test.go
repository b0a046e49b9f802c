package fhirstore

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/fhirstack/fhirstore/storage/memory"
)

func TestMetricsRecord(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	repo := NewRepo(memory.New(), WithMetrics(NewMetrics(reg)))

	if _, _, err := repo.CreateResource(ctx, patient("p1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, _, err := repo.CreateResource(ctx, patient("p1")); !IsConflict(err) {
		t.Fatalf("duplicate create: %v", err)
	}
	if _, err := repo.FindResource(ctx, "Patient", "ghost"); !IsNotFound(err) {
		t.Fatalf("missing read: %v", err)
	}

	if got := testutil.ToFloat64(repoCounter(repo, "create", "ok")); got != 1 {
		t.Errorf("create ok count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(repoCounter(repo, "create", "conflict")); got != 1 {
		t.Errorf("create conflict count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(repoCounter(repo, "read", "not_found")); got != 1 {
		t.Errorf("read not_found count = %v, want 1", got)
	}
}

func repoCounter(r *Repo, operation, status string) prometheus.Counter {
	return r.metrics.OperationsTotal.WithLabelValues(operation, status)
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.record("create", time.Now(), nil)
}

func TestStatusLabel(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{&ConflictError{"x"}, "conflict"},
		{&NotFoundError{"x"}, "not_found"},
		{&DeletedError{"x"}, "deleted"},
		{&ValidationError{"x"}, "invalid"},
		{context.Canceled, "error"},
	}
	for _, tt := range tests {
		if got := statusLabel(tt.err); got != tt.want {
			t.Errorf("statusLabel(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
