package query

// NewPatientBuilder returns the Patient query builder with the given
// identifier combination strategy.
func NewPatientBuilder(mode IdentifierMode) Builder {
	return BuilderFunc(func(params Params, resourceType string) Query {
		q := BuildResource(params, resourceType)
		applyIdentifier(&q, params, mode)
		return q
	})
}
