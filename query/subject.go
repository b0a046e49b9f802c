package query

import "strings"

// applySubject handles the subject parameter, including the typed form
// "subject:Type" which narrows the accepted reference types. defaultTypes is
// used when no type modifier is present.
func applySubject(q *Query, params Params, defaultTypes string) {
	for key := range params {
		if !strings.HasPrefix(key, "subject") {
			continue
		}
		value := params.Get(key)
		if value == "" {
			continue
		}
		types := defaultTypes
		if _, t, ok := strings.Cut(key, ":"); ok && t != "" {
			types = t
		}
		q.Conds = append(q.Conds, Reference("subject.reference", types, value))
	}
}
