package query

import "strings"

// Token builds a match for a FHIR token parameter against an array-valued
// field using the default "system"/"value" sub-fields. A bare value matches on
// the code alone; "system|value" constrains both. Only the first "|" is
// significant: anything after it is literal code text.
func Token(field, token string) TokenMatch {
	return TokenIn(field, "system", "value", token)
}

// TokenIn is Token with explicit sub-field names.
func TokenIn(field, systemField, codeField, token string) TokenMatch {
	parts := strings.SplitN(token, "|", 2)
	if len(parts) == 1 {
		return TokenMatch{
			Field:     field,
			CodeField: codeField,
			Code:      parts[0],
		}
	}
	return TokenMatch{
		Field:       field,
		SystemField: systemField,
		CodeField:   codeField,
		System:      parts[0],
		Code:        parts[1],
		HasSystem:   true,
	}
}
