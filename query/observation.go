package query

import "strings"

// observationSubjectTypes are the reference types accepted for an untyped
// Observation subject parameter.
const observationSubjectTypes = "Patient|Group|Device|Location"

// BuildObservation handles Observation search: subject references accept
// several types, and name matches one or more tokens against the coded name.
func BuildObservation(params Params, resourceType string) Query {
	q := BuildResource(params, resourceType)
	applySubject(&q, params, observationSubjectTypes)

	if v := params.Get("name"); v != "" {
		tokens := strings.Split(v, ",")
		union := make(AnyOf, 0, len(tokens))
		for _, tok := range tokens {
			union = append(union, TokenIn("name.coding", "system", "code", tok))
		}
		q.Conds = append(q.Conds, union)
	}

	return q
}
