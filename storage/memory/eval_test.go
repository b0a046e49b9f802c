package memory

import (
	"testing"

	"github.com/fhirstack/fhirstore/query"
	"github.com/fhirstack/fhirstore/storage"
)

func TestMatch(t *testing.T) {
	doc := storage.Document{
		"resourceType": "Patient",
		"id":           "p1",
		"identifier": []any{
			map[string]any{"system": "mrn", "value": "123"},
			map[string]any{"value": "999"},
		},
		"subject": map[string]any{"reference": "Patient/p9"},
	}

	tests := []struct {
		name string
		cond query.Cond
		want bool
	}{
		{"field equals", query.FieldEquals{Field: "resourceType", Value: "Patient"}, true},
		{"field differs", query.FieldEquals{Field: "resourceType", Value: "Device"}, false},
		{"field missing", query.FieldEquals{Field: "status", Value: "active"}, false},
		{"token by code", query.Token("identifier", "999"), true},
		{"token with system", query.Token("identifier", "mrn|123"), true},
		{"token wrong system", query.Token("identifier", "ssn|123"), false},
		{"token absent", query.Token("identifier", "000"), false},
		{"reference suffix", query.ReferenceMatch{Field: "subject.reference", Types: []string{"Patient"}, ID: "p9"}, true},
		{"reference wrong type", query.ReferenceMatch{Field: "subject.reference", Types: []string{"Group"}, ID: "p9"}, false},
		{"union hit", query.AnyOf{
			query.FieldEquals{Field: "id", Value: "zz"},
			query.FieldEquals{Field: "id", Value: "p1"},
		}, true},
		{"union miss", query.AnyOf{
			query.FieldEquals{Field: "id", Value: "zz"},
		}, false},
		{"conjunction hit", query.AllOf{
			query.Token("identifier", "mrn|123"),
			query.Token("identifier", "999"),
		}, true},
		{"conjunction partial miss", query.AllOf{
			query.Token("identifier", "mrn|123"),
			query.Token("identifier", "000"),
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := match(doc, tt.cond)
			if err != nil {
				t.Fatalf("match: %v", err)
			}
			if got != tt.want {
				t.Errorf("match(%+v) = %v, want %v", tt.cond, got, tt.want)
			}
		})
	}
}

func TestLookup(t *testing.T) {
	doc := storage.Document{
		"meta": map[string]any{"versionId": "v1"},
	}

	if v, ok := lookup(doc, "meta.versionId"); !ok || v != "v1" {
		t.Errorf("lookup(meta.versionId) = %v, %v", v, ok)
	}
	if _, ok := lookup(doc, "meta.missing"); ok {
		t.Error("lookup of a missing leaf reported ok")
	}
	if _, ok := lookup(doc, "meta.versionId.deeper"); ok {
		t.Error("lookup through a scalar reported ok")
	}
}
