package query

// BuildDevice handles Device search: a patient reference and a single
// identifier token.
func BuildDevice(params Params, resourceType string) Query {
	q := BuildResource(params, resourceType)

	if v := params.Get("patient"); v != "" {
		q.Conds = append(q.Conds, Reference("patient.reference", "Patient", v))
	}
	if v := params.Get("identifier"); v != "" {
		q.Conds = append(q.Conds, Token("identifier", v))
	}

	return q
}
