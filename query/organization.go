package query

// BuildOrganization handles Organization search: identifier tokens combine as
// a union.
func BuildOrganization(params Params, resourceType string) Query {
	q := BuildResource(params, resourceType)
	applyIdentifier(&q, params, IdentifierMatchAny)
	return q
}
