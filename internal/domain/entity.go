// Package domain defines core types, ports, and errors for the
// authorization engine of the session-management console.
package domain

import "strings"

// EntityType identifies the kind of an entity in the authorization graph.
type EntityType int

const (
	TypeUser EntityType = iota
	TypeGroup
	TypeRole
	TypeSession
	TypeSessionTemplate
	TypeAction
	TypeSystem
)

var entityTypeNames = map[EntityType]string{
	TypeUser:            "User",
	TypeGroup:           "Group",
	TypeRole:            "Role",
	TypeSession:         "Session",
	TypeSessionTemplate: "SessionTemplate",
	TypeAction:          "Action",
	TypeSystem:          "System",
}

func (t EntityType) String() string {
	if name, ok := entityTypeNames[t]; ok {
		return name
	}
	return "Unknown"
}

// ParseEntityType resolves a type name to its EntityType.
// Returns false for names outside the closed set.
func ParseEntityType(name string) (EntityType, bool) {
	for t, n := range entityTypeNames {
		if n == name {
			return t, true
		}
	}
	return 0, false
}

// EntityID uniquely identifies an entity as a (type, local id) pair.
type EntityID struct {
	Type EntityType
	ID   string
}

func (id EntityID) String() string {
	return id.Type.String() + `::"` + id.ID + `"`
}

// NewEntityID builds an EntityID with the local id normalized for the type.
// User and Group identifiers are lowercased when caseInsensitive is set;
// all other types are never case-normalized. Every insert, lookup, and
// comparison site must construct ids through this function.
func NewEntityID(t EntityType, rawID string, caseInsensitive bool) EntityID {
	return EntityID{Type: t, ID: NormalizeID(t, rawID, caseInsensitive)}
}

// NormalizeID applies the case-normalization rule for the given entity type.
func NormalizeID(t EntityType, rawID string, caseInsensitive bool) string {
	if caseInsensitive && (t == TypeUser || t == TypeGroup) {
		return strings.ToLower(rawID)
	}
	return rawID
}

// Attribute names carried by entities.
const (
	AttrRole        = "role"        // User → Role edge
	AttrLoginName   = "loginName"   // User login name
	AttrDisplayName = "displayName" // User display name
	AttrDisabled    = "disabled"    // User disabled flag
	AttrPermissions = "permissions" // Role → ordered Action list
	AttrOwner       = "owner"       // Session/SessionTemplate → User edge
)

// Share levels recognized per resource type.
const (
	ShareLevelCollaborators = "collaborators" // Session
	ShareLevelPublishedTo   = "publishedTo"   // SessionTemplate
)

var shareLevels = map[EntityType][]string{
	TypeSession:         {ShareLevelCollaborators},
	TypeSessionTemplate: {ShareLevelPublishedTo},
}

// ShareLevelsFor returns the share-list attribute names valid for a resource
// type. Non-resource types have none.
func ShareLevelsFor(t EntityType) []string {
	return shareLevels[t]
}

// ValidShareLevel reports whether level names a share-list attribute on the
// given resource type.
func ValidShareLevel(t EntityType, level string) bool {
	for _, l := range shareLevels[t] {
		if l == level {
			return true
		}
	}
	return false
}

// AttrValue is an entity attribute value: a string or bool scalar, or a list
// of EntityIDs (share lists, permission lists, role/owner edges).
type AttrValue struct {
	Str  string
	Bool bool
	IDs  []EntityID

	// Kind discriminates which field is populated.
	Kind AttrKind
}

// AttrKind discriminates AttrValue contents.
type AttrKind int

const (
	AttrString AttrKind = iota
	AttrBool
	AttrIDList
)

// StringValue builds a string attribute.
func StringValue(s string) AttrValue { return AttrValue{Kind: AttrString, Str: s} }

// BoolValue builds a boolean attribute.
func BoolValue(b bool) AttrValue { return AttrValue{Kind: AttrBool, Bool: b} }

// IDListValue builds an EntityID-list attribute.
func IDListValue(ids ...EntityID) AttrValue {
	return AttrValue{Kind: AttrIDList, IDs: ids}
}

// Entity is a record in the authorization graph. All relationships are
// expressed as EntityIDs, never direct references, so the whole graph can be
// copied and swapped on reload without reference-cycle hazards.
type Entity struct {
	ID      EntityID
	Attrs   map[string]AttrValue
	Parents map[EntityID]struct{} // group-membership / "belongs to" edges
}

// NewEntity creates an entity with empty attribute and parent sets.
func NewEntity(id EntityID) *Entity {
	return &Entity{
		ID:      id,
		Attrs:   make(map[string]AttrValue),
		Parents: make(map[EntityID]struct{}),
	}
}

// Clone returns a deep copy of the entity.
func (e *Entity) Clone() *Entity {
	c := NewEntity(e.ID)
	for k, v := range e.Attrs {
		if v.Kind == AttrIDList {
			ids := make([]EntityID, len(v.IDs))
			copy(ids, v.IDs)
			v.IDs = ids
		}
		c.Attrs[k] = v
	}
	for p := range e.Parents {
		c.Parents[p] = struct{}{}
	}
	return c
}
