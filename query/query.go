// Package query compiles FHIR search parameters into backend-neutral query
// expressions. Builders are pure functions: they never mutate their inputs,
// silently ignore parameters they do not recognize, and produce the same
// output for the same input on every call.
package query

// Cond is a single condition on a document. A Query's conditions are
// implicitly conjoined (all must hold).
type Cond interface {
	cond()
}

// FieldEquals matches a field (dotted path) against an exact value.
type FieldEquals struct {
	Field string
	Value string
}

// TokenMatch matches an array-valued field containing an element whose code
// sub-field equals Code and, when HasSystem is set, whose system sub-field
// equals System. Sub-field names default to "system" and "value" but are
// overridable because some elements (e.g. Coding) use different names.
type TokenMatch struct {
	Field       string
	SystemField string
	CodeField   string
	System      string
	Code        string
	HasSystem   bool
}

// ReferenceMatch matches a reference field ending in "<Type>/<ID>" for any of
// the accepted Types, optionally followed by a "/_history/<version>" suffix.
// It matches relative references and absolute URLs alike.
type ReferenceMatch struct {
	Field string
	Types []string
	ID    string
}

// AnyOf is a union: at least one member condition must hold.
type AnyOf []Cond

// AllOf is a nested conjunction: every member condition must hold. It exists
// so that several conditions on the same field compose without colliding.
type AllOf []Cond

func (FieldEquals) cond()    {}
func (TokenMatch) cond()     {}
func (ReferenceMatch) cond() {}
func (AnyOf) cond()          {}
func (AllOf) cond()          {}

// Stage is one opaque stage of an aggregation pipeline. Stages are passed to
// the document store as-is.
type Stage map[string]any

// Query is the output of a builder: either a conjunction of conditions, or an
// aggregation pipeline. A pipeline bypasses sorting, pagination and counting.
type Query struct {
	Conds    []Cond
	Pipeline []Stage
}

// IsPipeline reports whether the query is an aggregation pipeline.
func (q Query) IsPipeline() bool {
	return len(q.Pipeline) > 0
}

// Params holds raw search parameters. A key usually carries a single value,
// which may itself be a comma-separated list; multiple values mean the caller
// pre-split the list.
type Params map[string][]string

// Get returns the first value for name, or "" if the parameter is absent.
func (p Params) Get(name string) string {
	if vs := p[name]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// Has reports whether the parameter is present with at least one value.
func (p Params) Has(name string) bool {
	return len(p[name]) > 0
}

// Builder translates search parameters for one resource type into a Query.
// Implementations must be side-effect-free and deterministic.
type Builder interface {
	Build(params Params, resourceType string) Query
}

// BuilderFunc adapts a function to the Builder interface.
type BuilderFunc func(params Params, resourceType string) Query

func (f BuilderFunc) Build(params Params, resourceType string) Query {
	return f(params, resourceType)
}
