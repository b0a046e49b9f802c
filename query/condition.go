package query

// BuildCondition handles Condition search: subject references default to
// Patient.
func BuildCondition(params Params, resourceType string) Query {
	q := BuildResource(params, resourceType)
	applySubject(&q, params, "Patient")
	return q
}
