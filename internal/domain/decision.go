package domain

// PlaceholderResource is substituted for system-level authorization checks so
// the evaluator always receives a well-formed resource argument. It carries
// the dedicated System type so resource-typed constraints such as
// `resource is Session` never match a system-level request.
var PlaceholderResource = EntityID{Type: TypeSystem, ID: "::none::"}

// DecisionRequest is one authorization question posed to the evaluator.
type DecisionRequest struct {
	Principal EntityID
	Action    EntityID
	Resource  EntityID
}

// Decision is the outcome of a successful evaluation. "No matching permit
// rule" is an ordinary Decision with Allowed=false, not an error.
type Decision struct {
	Allowed bool
	// Reasons lists the synthetic names of the rules that determined the
	// outcome, for diagnostics only.
	Reasons []string
}

// EntitySnapshot is the read-only view of the entity graph handed to the
// evaluator. Implemented by the entity store; tests may substitute their own.
type EntitySnapshot interface {
	Get(id EntityID) (*Entity, bool)
	Contains(id EntityID) bool
	// ParentsOf returns the direct parent edges of the entity, or nil when
	// the entity is absent.
	ParentsOf(id EntityID) []EntityID
	// ShareList returns the named share list on the resource. ok is false
	// when the level is not a share-list attribute of the resource type.
	ShareList(resource EntityID, level string) (ids []EntityID, ok bool)
}
