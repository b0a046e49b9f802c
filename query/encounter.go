package query

import "strings"

// BuildEncounter handles Encounter search: subject references default to
// Patient, and class accepts a comma-separated union of codes.
func BuildEncounter(params Params, resourceType string) Query {
	q := BuildResource(params, resourceType)
	applySubject(&q, params, "Patient")

	if v := params.Get("class"); v != "" {
		classes := strings.Split(v, ",")
		if len(classes) == 1 {
			q.Conds = append(q.Conds, FieldEquals{Field: "class", Value: classes[0]})
		} else {
			union := make(AnyOf, 0, len(classes))
			for _, c := range classes {
				union = append(union, FieldEquals{Field: "class", Value: c})
			}
			q.Conds = append(q.Conds, union)
		}
	}

	return q
}
