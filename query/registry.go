package query

// Registry maps resource-type names to builders. Each repository instance
// owns its own registry, so overrides never leak across instances.
//
// The registry is not synchronized: register builders at startup and only
// read afterwards, or serialize access externally.
type Registry struct {
	builders map[string]Builder
}

// NewRegistry returns a registry seeded with the default per-type builders.
// Patient uses IdentifierMatchAll, preserving the historical conjunction
// semantics; register NewPatientBuilder(IdentifierMatchAny) to change that.
func NewRegistry() *Registry {
	return &Registry{builders: map[string]Builder{
		"Patient":          NewPatientBuilder(IdentifierMatchAll),
		"Practitioner":     BuilderFunc(BuildPractitioner),
		"Organization":     BuilderFunc(BuildOrganization),
		"Device":           BuilderFunc(BuildDevice),
		"Condition":        BuilderFunc(BuildCondition),
		"Encounter":        BuilderFunc(BuildEncounter),
		"Observation":      BuilderFunc(BuildObservation),
		"DiagnosticReport": BuilderFunc(BuildDiagnosticReport),
	}}
}

// Get returns the builder for the resource type, falling back to the base
// builder for unregistered types.
func (r *Registry) Get(resourceType string) Builder {
	if b, ok := r.builders[resourceType]; ok {
		return b
	}
	return Base
}

// Set registers or overwrites the builder for a resource type.
func (r *Registry) Set(resourceType string, b Builder) {
	r.builders[resourceType] = b
}
