package query

import "strings"

// IdentifierMode selects how multiple identifier values combine.
//
// FHIR leaves room for both readings, and deployed systems disagree: Patient
// search historically required every identifier to be present on the resource,
// while Organization and Practitioner search accepted any of them. Both
// behaviors are kept as named strategies so adopters can choose per type.
type IdentifierMode int

const (
	// IdentifierMatchAll conjoins the identifier filters: the resource must
	// carry every identifier.
	IdentifierMatchAll IdentifierMode = iota
	// IdentifierMatchAny unions the identifier filters: any one suffices.
	IdentifierMatchAny
)

// identifierTokens normalizes the identifier parameter: multiple values are a
// pre-split list, a single value may be a comma-separated list.
func identifierTokens(params Params) []string {
	vs := params["identifier"]
	switch {
	case len(vs) == 0:
		return nil
	case len(vs) > 1:
		return vs
	default:
		return strings.Split(vs[0], ",")
	}
}

// applyIdentifier appends identifier filters to q according to the mode.
// A single token is always a direct filter.
func applyIdentifier(q *Query, params Params, mode IdentifierMode) {
	tokens := identifierTokens(params)
	if len(tokens) == 0 {
		return
	}
	if len(tokens) == 1 {
		q.Conds = append(q.Conds, Token("identifier", tokens[0]))
		return
	}

	filters := make([]Cond, 0, len(tokens))
	for _, tok := range tokens {
		filters = append(filters, Token("identifier", tok))
	}
	if mode == IdentifierMatchAny {
		q.Conds = append(q.Conds, AnyOf(filters))
	} else {
		q.Conds = append(q.Conds, AllOf(filters))
	}
}
