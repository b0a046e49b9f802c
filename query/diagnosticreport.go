package query

// BuildDiagnosticReport handles DiagnosticReport search: subject references
// accept the same types as Observation.
func BuildDiagnosticReport(params Params, resourceType string) Query {
	q := BuildResource(params, resourceType)
	applySubject(&q, params, observationSubjectTypes)
	return q
}
