package query

import "strings"

// BuildResource is the base builder used for any resource type without a
// registered builder. It seeds the query with the resource type and handles
// the _id parameter: a single id becomes an exact match, a comma-separated
// list becomes a union so that it composes with other union clauses.
func BuildResource(params Params, resourceType string) Query {
	q := Query{Conds: []Cond{FieldEquals{Field: "resourceType", Value: resourceType}}}

	if id := params.Get("_id"); id != "" {
		ids := strings.Split(id, ",")
		if len(ids) == 1 {
			q.Conds = append(q.Conds, FieldEquals{Field: "id", Value: ids[0]})
		} else {
			union := make(AnyOf, 0, len(ids))
			for _, v := range ids {
				union = append(union, FieldEquals{Field: "id", Value: v})
			}
			q.Conds = append(q.Conds, union)
		}
	}

	return q
}

// Base is the fallback builder.
var Base Builder = BuilderFunc(BuildResource)
