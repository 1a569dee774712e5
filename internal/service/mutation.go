package service

import (
	"context"

	"github.com/aws/dcv-access-console-sub000/internal/domain"
)

// Mutation API. Each call mirrors an external CRUD operation and is the
// authoritative side for decisions; callers sequence the persistence write
// themselves and treat a false return as a signal to compensate. Every call
// is atomically visible: no concurrent reader observes a half-applied state.

// AddUser inserts a user entity. Returns false without any state change when
// the id already exists.
func (e *Engine) AddUser(_ context.Context, u domain.UserRecord) bool {
	ent := domain.NewEntity(e.newID(domain.TypeUser, u.UserID))
	if u.Role != "" {
		ent.Attrs[domain.AttrRole] = domain.IDListValue(e.newID(domain.TypeRole, u.Role))
	}
	ent.Attrs[domain.AttrLoginName] = domain.StringValue(u.LoginName)
	ent.Attrs[domain.AttrDisplayName] = domain.StringValue(u.DisplayName)
	ent.Attrs[domain.AttrDisabled] = domain.BoolValue(u.Disabled)
	return e.currentGraph().store.Put(ent)
}

// AddGroup inserts a group entity.
func (e *Engine) AddGroup(_ context.Context, g domain.GroupRecord) bool {
	ent := domain.NewEntity(e.newID(domain.TypeGroup, g.GroupID))
	if g.DisplayName != "" {
		ent.Attrs[domain.AttrDisplayName] = domain.StringValue(g.DisplayName)
	}
	return e.currentGraph().store.Put(ent)
}

// AddRole inserts a role entity with its ordered permission list. Action
// entities referenced by the permissions are created when absent.
func (e *Engine) AddRole(_ context.Context, r domain.RoleRecord) bool {
	g := e.currentGraph()

	perms := make([]domain.EntityID, 0, len(r.Permissions))
	for _, action := range r.Permissions {
		id := e.newID(domain.TypeAction, action)
		perms = append(perms, id)
		g.store.Put(domain.NewEntity(id)) // insert-if-absent
	}

	ent := domain.NewEntity(e.newID(domain.TypeRole, r.Name))
	ent.Attrs[domain.AttrPermissions] = domain.IDListValue(perms...)
	return g.store.Put(ent)
}

// AddSession inserts a session entity with an optional owner edge and an
// empty collaborators share list.
func (e *Engine) AddSession(_ context.Context, s domain.SessionRecord) bool {
	ent := domain.NewEntity(e.newID(domain.TypeSession, s.SessionID))
	if s.OwnerID != "" {
		ent.Attrs[domain.AttrOwner] = domain.IDListValue(e.newID(domain.TypeUser, s.OwnerID))
	}
	ent.Attrs[domain.ShareLevelCollaborators] = domain.IDListValue()
	return e.currentGraph().store.Put(ent)
}

// AddSessionTemplate inserts a session-template entity with an optional
// owner edge and an empty publishedTo share list.
func (e *Engine) AddSessionTemplate(_ context.Context, t domain.TemplateRecord) bool {
	ent := domain.NewEntity(e.newID(domain.TypeSessionTemplate, t.TemplateID))
	if t.OwnerID != "" {
		ent.Attrs[domain.AttrOwner] = domain.IDListValue(e.newID(domain.TypeUser, t.OwnerID))
	}
	ent.Attrs[domain.ShareLevelPublishedTo] = domain.IDListValue()
	return e.currentGraph().store.Put(ent)
}

// AddUserToGroup records a membership edge. Returns false when either
// endpoint is absent or the edge already exists.
func (e *Engine) AddUserToGroup(_ context.Context, userID, groupID string) bool {
	return e.currentGraph().store.AddParentEdge(
		e.newID(domain.TypeUser, userID),
		e.newID(domain.TypeGroup, groupID),
	)
}

// RemoveUserFromGroup removes a membership edge. Returns false when either
// endpoint is absent or the edge does not exist.
func (e *Engine) RemoveUserFromGroup(_ context.Context, userID, groupID string) bool {
	return e.currentGraph().store.RemoveParentEdge(
		e.newID(domain.TypeUser, userID),
		e.newID(domain.TypeGroup, groupID),
	)
}

// SetShareList replaces the resource's named share list in full. The
// resource must exist and the level must be a recognized share level for its
// type; both are hard failures, not per-id ones. Candidate ids are filtered
// to those that resolve to existing entities, the list becomes exactly the
// resolved subset, and the result reports which requested ids were accepted
// versus dropped so the caller can reconcile persisted state.
func (e *Engine) SetShareList(_ context.Context, resourceType domain.EntityType, resourceID, level string, userIDs, groupIDs []string) (domain.PublishResult, error) {
	g := e.currentGraph()

	res := e.newID(resourceType, resourceID)
	if !g.store.Contains(res) {
		return domain.PublishResult{}, domain.ErrNotFound("resource %s not found", res)
	}
	if !domain.ValidShareLevel(resourceType, level) {
		return domain.PublishResult{}, domain.ErrValidation("share level %q is not valid for %s resources", level, resourceType)
	}

	var result domain.PublishResult
	var resolved []domain.EntityID

	for _, uid := range userIDs {
		id := e.newID(domain.TypeUser, uid)
		if g.store.Contains(id) {
			resolved = append(resolved, id)
			result.AcceptedUsers = append(result.AcceptedUsers, uid)
		} else {
			result.RejectedUsers = append(result.RejectedUsers, uid)
		}
	}
	for _, gid := range groupIDs {
		id := e.newID(domain.TypeGroup, gid)
		if g.store.Contains(id) {
			resolved = append(resolved, id)
			result.AcceptedGroups = append(result.AcceptedGroups, gid)
		} else {
			result.RejectedGroups = append(result.RejectedGroups, gid)
		}
	}

	if !g.store.SetShareList(res, level, resolved) {
		// The resource was deleted between the checks above and the write.
		return domain.PublishResult{}, domain.ErrNotFound("resource %s not found", res)
	}
	return result, nil
}

// AddPrincipalToShareList appends one principal to the resource's named
// share list. Returns false when the principal is already present.
func (e *Engine) AddPrincipalToShareList(_ context.Context, principalType domain.EntityType, principalID string, resourceType domain.EntityType, resourceID, level string) (bool, error) {
	if principalType != domain.TypeUser && principalType != domain.TypeGroup {
		return false, domain.ErrValidation("%s is not a principal type", principalType)
	}
	return e.currentGraph().store.AddToShareList(
		e.newID(resourceType, resourceID),
		level,
		e.newID(principalType, principalID),
	)
}

// RemovePrincipalFromShareList removes one principal from the resource's
// named share list. Returns false when the principal is not present.
func (e *Engine) RemovePrincipalFromShareList(_ context.Context, principalType domain.EntityType, principalID string, resourceType domain.EntityType, resourceID, level string) (bool, error) {
	if principalType != domain.TypeUser && principalType != domain.TypeGroup {
		return false, domain.ErrValidation("%s is not a principal type", principalType)
	}
	return e.currentGraph().store.RemoveFromShareList(
		e.newID(resourceType, resourceID),
		level,
		e.newID(principalType, principalID),
	)
}

// DeleteResource removes a session or session-template entity. Edges held
// by other entities that still reference the removed id are left untouched;
// they are harmless dangling references after removal.
func (e *Engine) DeleteResource(_ context.Context, resourceType domain.EntityType, resourceID string) bool {
	if resourceType != domain.TypeSession && resourceType != domain.TypeSessionTemplate {
		return false
	}
	return e.currentGraph().store.Remove(e.newID(resourceType, resourceID))
}

// RemoveGroup removes a group entity. Membership edges on former members
// are not cascaded; they dangle harmlessly.
func (e *Engine) RemoveGroup(_ context.Context, groupID string) bool {
	return e.currentGraph().store.Remove(e.newID(domain.TypeGroup, groupID))
}
