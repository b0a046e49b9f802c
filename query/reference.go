package query

import (
	"regexp"
	"strings"
)

// logicalID is the FHIR logical id grammar.
var logicalID = regexp.MustCompile(`^[A-Za-z0-9\-.]{1,64}$`)

// Reference builds a condition for a FHIR reference parameter. The accepted
// resource types are given joined by "|", e.g. "Patient|Group|Device".
//
// A bare logical id produces a suffix match so that it finds relative
// references and absolute URLs to any of the accepted types, with or without
// a version suffix. Anything else (an explicit "Type/id" or a full URL) is
// matched literally: an explicit reference is trusted as-is.
func Reference(field, types, reference string) Cond {
	if logicalID.MatchString(reference) {
		return ReferenceMatch{
			Field: field,
			Types: strings.Split(types, "|"),
			ID:    reference,
		}
	}
	return FieldEquals{Field: field, Value: reference}
}

// Pattern returns the anchored regular expression the match compiles to.
// Store adapters share it so that every backend applies identical semantics.
func (r ReferenceMatch) Pattern() string {
	return "(" + strings.Join(r.Types, "|") + ")/" + r.ID + `(/_history/[A-Za-z0-9\-.]{1,64})?$`
}
