package service

import (
	"context"
	"sort"

	"github.com/aws/dcv-access-console-sub000/internal/domain"
)

// IsAuthorized answers a system-level decision: may the principal perform
// the named action at all. A placeholder resource identity is substituted so
// the evaluator always receives a well-formed resource argument.
func (e *Engine) IsAuthorized(ctx context.Context, principalType domain.EntityType, principalID, action string) (bool, error) {
	return e.decide(ctx, principalType, principalID, action, domain.PlaceholderResource)
}

// IsAuthorizedOnResource answers a resource-level decision.
func (e *Engine) IsAuthorizedOnResource(ctx context.Context, principalType domain.EntityType, principalID, action string, resourceType domain.EntityType, resourceID string) (bool, error) {
	return e.decide(ctx, principalType, principalID, action, e.newID(resourceType, resourceID))
}

func (e *Engine) decide(_ context.Context, principalType domain.EntityType, principalID, action string, resource domain.EntityID) (bool, error) {
	g := e.currentGraph()

	req := domain.DecisionRequest{
		Principal: e.newID(principalType, principalID),
		Action:    e.newID(domain.TypeAction, action),
		Resource:  resource,
	}

	d, err := e.eval.Evaluate(req, g.store, g.rules)
	if err != nil {
		// Evaluator failure is never collapsed into "denied".
		return false, domain.ErrEvaluation(err, "evaluate %s %s on %s", req.Principal, req.Action, req.Resource)
	}

	if !d.Allowed {
		e.logger.Debug("denied",
			"principal", req.Principal.String(),
			"action", action,
			"resource", req.Resource.String(),
			"reasons", d.Reasons)
	}
	return d.Allowed, nil
}

// SharedPrincipals returns the local ids of principals of the given type on
// the resource's named share list. NotFound when the resource is absent;
// ValidationError when the level is not a share level of the resource type.
func (e *Engine) SharedPrincipals(resourceType domain.EntityType, resourceID, level string, principalType domain.EntityType) ([]string, error) {
	g := e.currentGraph()

	res := e.newID(resourceType, resourceID)
	if !g.store.Contains(res) {
		return nil, domain.ErrNotFound("resource %s not found", res)
	}
	ids, ok := g.store.ShareList(res, level)
	if !ok {
		return nil, domain.ErrValidation("share level %q is not valid for %s resources", level, resourceType)
	}

	var out []string
	for _, id := range ids {
		if id.Type == principalType {
			out = append(out, id.ID)
		}
	}
	return out, nil
}

// UserRole returns the user's role name. Users without a role edge report
// the configured default role. ok is false when the user does not exist.
func (e *Engine) UserRole(userID string) (string, bool) {
	g := e.currentGraph()

	u, exists := g.store.Get(e.newID(domain.TypeUser, userID))
	if !exists {
		return "", false
	}
	roleAttr := u.Attrs[domain.AttrRole]
	if roleAttr.Kind != domain.AttrIDList || len(roleAttr.IDs) == 0 {
		return e.defaultRole, true
	}
	return roleAttr.IDs[0].ID, true
}

// UserDisplayName returns the user's display name. ok is false when the
// user does not exist.
func (e *Engine) UserDisplayName(userID string) (string, bool) {
	g := e.currentGraph()

	u, exists := g.store.Get(e.newID(domain.TypeUser, userID))
	if !exists {
		return "", false
	}
	return u.Attrs[domain.AttrDisplayName].Str, true
}

// Roles returns the names of all loaded roles, sorted.
func (e *Engine) Roles() []string {
	g := e.currentGraph()

	ids := g.store.IDsOfType(domain.TypeRole)
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, id.ID)
	}
	sort.Strings(names)
	return names
}

// DefaultUserRole returns the role reported for users with no role edge.
func (e *Engine) DefaultUserRole() string {
	return e.defaultRole
}
