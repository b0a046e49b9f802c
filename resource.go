package fhirstore

import (
	"time"

	"github.com/google/uuid"
)

// Resource is an opaque FHIR resource document. Only resourceType, id and
// meta are interpreted by this package; everything else is caller payload and
// passes through untouched.
type Resource map[string]any

// Type returns the resourceType discriminator.
func (r Resource) Type() string {
	s, _ := r["resourceType"].(string)
	return s
}

// ID returns the logical id.
func (r Resource) ID() string {
	s, _ := r["id"].(string)
	return s
}

func (r Resource) meta() map[string]any {
	m, _ := r["meta"].(map[string]any)
	return m
}

// VersionID returns meta.versionId, or "" if unset.
func (r Resource) VersionID() string {
	s, _ := r.meta()["versionId"].(string)
	return s
}

// LastUpdated returns meta.lastUpdated, tolerating the value types produced
// by store adapters (native time, driver date types, RFC 3339 strings).
func (r Resource) LastUpdated() time.Time {
	switch v := r.meta()["lastUpdated"].(type) {
	case time.Time:
		return v
	case interface{ Time() time.Time }:
		return v.Time()
	case string:
		t, _ := time.Parse(time.RFC3339Nano, v)
		return t
	default:
		return time.Time{}
	}
}

func (r Resource) valid() bool {
	return r != nil && r.Type() != "" && r.ID() != ""
}

// stampMeta returns a copy of the resource carrying a fresh version id and
// write timestamp. The input is never mutated.
func stampMeta(r Resource) Resource {
	meta := make(map[string]any)
	for k, v := range r.meta() {
		meta[k] = v
	}
	meta["versionId"] = uuid.NewString()
	meta["lastUpdated"] = time.Now().UTC()

	out := make(Resource, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	out["meta"] = meta
	return out
}
