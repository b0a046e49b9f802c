package query

// BuildPractitioner handles Practitioner search: identifier tokens combine as
// a union.
func BuildPractitioner(params Params, resourceType string) Query {
	q := BuildResource(params, resourceType)
	applyIdentifier(&q, params, IdentifierMatchAny)
	return q
}
