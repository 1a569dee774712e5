// Package store implements the in-memory entity arena backing the
// authorization graph. Entities are keyed by EntityID and all relationships
// are stored as id sets, never direct references, so a reload can build a
// replacement arena privately and swap it in atomically.
package store

import (
	"sync"

	"github.com/aws/dcv-access-console-sub000/internal/domain"
)

// Store is a thread-safe arena of entities keyed by EntityID. Every method
// normalizes incoming ids for the configured case mode, so callers cannot
// bypass normalization.
type Store struct {
	mu              sync.RWMutex
	caseInsensitive bool
	entities        map[domain.EntityID]*domain.Entity
}

// Compile-time check: the store is the evaluator's snapshot view.
var _ domain.EntitySnapshot = (*Store)(nil)

// New creates an empty store. caseInsensitive controls User/Group id
// normalization for the lifetime of the store.
func New(caseInsensitive bool) *Store {
	return &Store{
		caseInsensitive: caseInsensitive,
		entities:        make(map[domain.EntityID]*domain.Entity),
	}
}

// CaseInsensitive reports the store's id normalization mode.
func (s *Store) CaseInsensitive() bool { return s.caseInsensitive }

// NewID builds an EntityID normalized for this store's case mode.
func (s *Store) NewID(t domain.EntityType, rawID string) domain.EntityID {
	return domain.NewEntityID(t, rawID, s.caseInsensitive)
}

func (s *Store) normalize(id domain.EntityID) domain.EntityID {
	return domain.NewEntityID(id.Type, id.ID, s.caseInsensitive)
}

// Put inserts the entity if its id is not already present. Returns false
// without overwriting when a duplicate id exists. The entity's id, parent
// edges, and id-list attributes are normalized on the way in.
func (s *Store) Put(e *domain.Entity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.normalize(e.ID)
	if _, exists := s.entities[id]; exists {
		return false
	}

	stored := domain.NewEntity(id)
	for k, v := range e.Attrs {
		if v.Kind == domain.AttrIDList {
			ids := make([]domain.EntityID, len(v.IDs))
			for i, ref := range v.IDs {
				ids[i] = s.normalize(ref)
			}
			v.IDs = ids
		}
		stored.Attrs[k] = v
	}
	for p := range e.Parents {
		stored.Parents[s.normalize(p)] = struct{}{}
	}

	s.entities[id] = stored
	return true
}

// Get returns a copy of the entity, so callers never hold a reference into
// the arena that a concurrent mutation could modify.
func (s *Store) Get(id domain.EntityID) (*domain.Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entities[s.normalize(id)]
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}

// Contains reports whether an entity with the given id exists.
func (s *Store) Contains(id domain.EntityID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.entities[s.normalize(id)]
	return ok
}

// Remove deletes the entity. Edges held by other entities that reference the
// removed id are left untouched; lookups through them come back empty.
func (s *Store) Remove(id domain.EntityID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.normalize(id)
	if _, ok := s.entities[key]; !ok {
		return false
	}
	delete(s.entities, key)
	return true
}

// AddParentEdge records a child→parent "belongs to" edge. Returns false
// without mutating if either endpoint is absent or the edge already exists.
func (s *Store) AddParentEdge(child, parent domain.EntityID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.entities[s.normalize(child)]
	if !ok {
		return false
	}
	p := s.normalize(parent)
	if _, ok := s.entities[p]; !ok {
		return false
	}
	if _, exists := c.Parents[p]; exists {
		return false
	}
	c.Parents[p] = struct{}{}
	return true
}

// RemoveParentEdge removes a child→parent edge. Returns false if either
// endpoint is absent or the edge does not exist.
func (s *Store) RemoveParentEdge(child, parent domain.EntityID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.entities[s.normalize(child)]
	if !ok {
		return false
	}
	p := s.normalize(parent)
	if _, ok := s.entities[p]; !ok {
		return false
	}
	if _, exists := c.Parents[p]; !exists {
		return false
	}
	delete(c.Parents, p)
	return true
}

// ParentsOf returns the direct parent edges of the entity, or nil when the
// entity is absent.
func (s *Store) ParentsOf(id domain.EntityID) []domain.EntityID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entities[s.normalize(id)]
	if !ok {
		return nil
	}
	parents := make([]domain.EntityID, 0, len(e.Parents))
	for p := range e.Parents {
		parents = append(parents, p)
	}
	return parents
}

// ShareList returns a copy of the named share list on the resource. ok is
// false when the resource is absent or the level is not a share-list
// attribute of its type, which is distinct from an existing empty list.
func (s *Store) ShareList(resource domain.EntityID, level string) ([]domain.EntityID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entities[s.normalize(resource)]
	if !ok || !domain.ValidShareLevel(e.ID.Type, level) {
		return nil, false
	}
	v := e.Attrs[level]
	ids := make([]domain.EntityID, len(v.IDs))
	copy(ids, v.IDs)
	return ids, true
}

// SetShareList replaces the named share list in full. The previous content
// is discarded, not merged. Returns false when the resource is absent or the
// level is invalid for its type.
func (s *Store) SetShareList(resource domain.EntityID, level string, ids []domain.EntityID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entities[s.normalize(resource)]
	if !ok || !domain.ValidShareLevel(e.ID.Type, level) {
		return false
	}
	normalized := make([]domain.EntityID, len(ids))
	for i, id := range ids {
		normalized[i] = s.normalize(id)
	}
	e.Attrs[level] = domain.IDListValue(normalized...)
	return true
}

// AddToShareList appends a single principal to the named share list. Both
// the resource and the principal must currently exist. Returns false with a
// nil error when the principal is already present.
func (s *Store) AddToShareList(resource domain.EntityID, level string, principal domain.EntityID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entities[s.normalize(resource)]
	if !ok {
		return false, domain.ErrNotFound("resource %s not found", resource)
	}
	if !domain.ValidShareLevel(e.ID.Type, level) {
		return false, domain.ErrValidation("share level %q is not valid for %s resources", level, e.ID.Type)
	}
	p := s.normalize(principal)
	if _, ok := s.entities[p]; !ok {
		return false, domain.ErrNotFound("principal %s not found", principal)
	}

	v := e.Attrs[level]
	for _, existing := range v.IDs {
		if existing == p {
			return false, nil // already shared
		}
	}
	ids := make([]domain.EntityID, len(v.IDs), len(v.IDs)+1)
	copy(ids, v.IDs)
	ids = append(ids, p)
	e.Attrs[level] = domain.IDListValue(ids...)
	return true, nil
}

// RemoveFromShareList removes a single principal from the named share list.
// Returns false with a nil error when the principal is not present.
func (s *Store) RemoveFromShareList(resource domain.EntityID, level string, principal domain.EntityID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entities[s.normalize(resource)]
	if !ok {
		return false, domain.ErrNotFound("resource %s not found", resource)
	}
	if !domain.ValidShareLevel(e.ID.Type, level) {
		return false, domain.ErrValidation("share level %q is not valid for %s resources", level, e.ID.Type)
	}
	p := s.normalize(principal)

	v := e.Attrs[level]
	for i, existing := range v.IDs {
		if existing == p {
			ids := make([]domain.EntityID, 0, len(v.IDs)-1)
			ids = append(ids, v.IDs[:i]...)
			ids = append(ids, v.IDs[i+1:]...)
			e.Attrs[level] = domain.IDListValue(ids...)
			return true, nil
		}
	}
	return false, nil // not present
}

// Len returns the number of entities in the arena.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}

// IDsOfType returns the ids of all entities of the given type.
func (s *Store) IDsOfType(t domain.EntityType) []domain.EntityID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []domain.EntityID
	for id := range s.entities {
		if id.Type == t {
			ids = append(ids, id)
		}
	}
	return ids
}
