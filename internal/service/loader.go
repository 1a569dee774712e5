package service

import (
	"context"
	"fmt"

	"github.com/aws/dcv-access-console-sub000/internal/domain"
	"github.com/aws/dcv-access-console-sub000/internal/policy"
	"github.com/aws/dcv-access-console-sub000/internal/store"
)

// LoadEntities rebuilds the whole graph from the external systems of record.
// The replacement graph is built in a private store and swapped in under one
// exclusive section, so concurrent decisions are served against either the
// previous graph or the complete new one, never a mixture.
//
// Phase order is load-bearing: principals (policy, roles, users, groups,
// memberships) must be complete before resources, because resource insertion
// resolves owner and share-list references against the store as it stands.
// Failures in phases 1-5 abort the reload and keep the previous graph;
// failures in the resource phases 6-7 are logged and the reload completes
// with a partial resource graph.
func (e *Engine) LoadEntities(ctx context.Context) error {
	logger := e.logger.With("component", "loader")
	fresh := store.New(e.caseInsensitive)

	// Phase 1: policy source.
	text, err := e.collab.Policies.Read(ctx)
	if err != nil {
		return domain.ErrLoad("policy", err, "read policy source")
	}
	rules, err := policy.Parse(text)
	if err != nil {
		return domain.ErrLoad("policy", err, "parse policy source")
	}
	logger.Info("policies parsed", "rules", len(rules.Statements))

	// Phase 2: role source.
	roles, err := e.collab.Roles.Roles(ctx)
	if err != nil {
		return domain.ErrLoad("roles", err, "read role source")
	}
	for _, r := range roles {
		perms := make([]domain.EntityID, 0, len(r.Permissions))
		for _, action := range r.Permissions {
			id := e.newID(domain.TypeAction, action)
			perms = append(perms, id)
			fresh.Put(domain.NewEntity(id))
		}
		ent := domain.NewEntity(e.newID(domain.TypeRole, r.Name))
		ent.Attrs[domain.AttrPermissions] = domain.IDListValue(perms...)
		if !fresh.Put(ent) {
			logger.Warn("duplicate role dropped", "role", r.Name)
		}
	}

	// Phase 3: user directory, paged.
	if err := forEachPage(ctx, e.collab.Users.Describe, func(u domain.UserRecord) {
		ent := domain.NewEntity(e.newID(domain.TypeUser, u.UserID))
		if u.Role != "" {
			ent.Attrs[domain.AttrRole] = domain.IDListValue(e.newID(domain.TypeRole, u.Role))
		}
		ent.Attrs[domain.AttrLoginName] = domain.StringValue(u.LoginName)
		ent.Attrs[domain.AttrDisplayName] = domain.StringValue(u.DisplayName)
		ent.Attrs[domain.AttrDisabled] = domain.BoolValue(u.Disabled)
		if !fresh.Put(ent) {
			logger.Warn("duplicate user dropped", "user", u.UserID)
		}
	}); err != nil {
		return domain.ErrLoad("users", err, "describe user directory")
	}

	// Phase 4: group directory, paged.
	if err := forEachPage(ctx, e.collab.Groups.Describe, func(g domain.GroupRecord) {
		ent := domain.NewEntity(e.newID(domain.TypeGroup, g.GroupID))
		if g.DisplayName != "" {
			ent.Attrs[domain.AttrDisplayName] = domain.StringValue(g.DisplayName)
		}
		if !fresh.Put(ent) {
			logger.Warn("duplicate group dropped", "group", g.GroupID)
		}
	}); err != nil {
		return domain.ErrLoad("groups", err, "describe group directory")
	}

	// Phase 5: bulk membership relation, applied only after users and
	// groups are complete.
	memberships, err := e.collab.Groups.ListMemberships(ctx)
	if err != nil {
		return domain.ErrLoad("memberships", err, "list group memberships")
	}
	for _, m := range memberships {
		if !fresh.AddParentEdge(e.newID(domain.TypeUser, m.UserID), e.newID(domain.TypeGroup, m.GroupID)) {
			logger.Warn("membership references unknown entity", "user", m.UserID, "group", m.GroupID)
		}
	}

	// Phase 6: session templates. Non-fatal from here on: a broker or
	// directory outage degrades the resource graph instead of blocking the
	// principal graph.
	if err := e.loadTemplates(ctx, fresh); err != nil {
		logger.Error("template load failed, continuing with partial resource graph", "error", err)
	}

	// Phase 7: sessions via the broker.
	if err := e.loadSessions(ctx, fresh); err != nil {
		logger.Error("session load failed, continuing with partial resource graph", "error", err)
	}

	e.swapGraph(&graph{store: fresh, rules: rules})
	logger.Info("entity graph reloaded", "entities", fresh.Len(), "rules", len(rules.Statements))
	return nil
}

func (e *Engine) loadTemplates(ctx context.Context, fresh *store.Store) error {
	logger := e.logger.With("component", "loader")

	return forEachPage(ctx, e.collab.Templates.Describe, func(t domain.TemplateRecord) {
		ent := domain.NewEntity(e.newID(domain.TypeSessionTemplate, t.TemplateID))
		if t.OwnerID != "" {
			owner := e.newID(domain.TypeUser, t.OwnerID)
			if fresh.Contains(owner) {
				ent.Attrs[domain.AttrOwner] = domain.IDListValue(owner)
			} else {
				logger.Warn("template owner not resolvable, dropped", "template", t.TemplateID, "owner", t.OwnerID)
			}
		}

		var shared []domain.EntityID
		userIDs, err := e.collab.Templates.UsersSharedWith(ctx, t.TemplateID)
		if err != nil {
			logger.Warn("shared-user lookup failed", "template", t.TemplateID, "error", err)
		}
		for _, uid := range userIDs {
			id := e.newID(domain.TypeUser, uid)
			if fresh.Contains(id) {
				shared = append(shared, id)
			} else {
				logger.Warn("shared user not resolvable, dropped", "template", t.TemplateID, "user", uid)
			}
		}
		groupIDs, err := e.collab.Templates.GroupsSharedWith(ctx, t.TemplateID)
		if err != nil {
			logger.Warn("shared-group lookup failed", "template", t.TemplateID, "error", err)
		}
		for _, gid := range groupIDs {
			id := e.newID(domain.TypeGroup, gid)
			if fresh.Contains(id) {
				shared = append(shared, id)
			} else {
				logger.Warn("shared group not resolvable, dropped", "template", t.TemplateID, "group", gid)
			}
		}
		ent.Attrs[domain.ShareLevelPublishedTo] = domain.IDListValue(shared...)

		if !fresh.Put(ent) {
			logger.Warn("duplicate template dropped", "template", t.TemplateID)
		}
	})
}

func (e *Engine) loadSessions(ctx context.Context, fresh *store.Store) error {
	logger := e.logger.With("component", "loader")

	return forEachPage(ctx, e.collab.Sessions.DescribeSessions, func(s domain.SessionRecord) {
		ent := domain.NewEntity(e.newID(domain.TypeSession, s.SessionID))
		if s.OwnerID != "" {
			owner := e.newID(domain.TypeUser, s.OwnerID)
			if fresh.Contains(owner) {
				ent.Attrs[domain.AttrOwner] = domain.IDListValue(owner)
			} else {
				logger.Warn("session owner not resolvable, dropped", "session", s.SessionID, "owner", s.OwnerID)
			}
		}
		ent.Attrs[domain.ShareLevelCollaborators] = domain.IDListValue()

		if !fresh.Put(ent) {
			logger.Warn("duplicate session dropped", "session", s.SessionID)
		}
	})
}

// forEachPage drives an opaque-continuation pager until the directory
// returns an empty token.
func forEachPage[T any](ctx context.Context, fetch func(context.Context, string) ([]T, string, error), apply func(T)) error {
	token := ""
	for page := 0; ; page++ {
		items, next, err := fetch(ctx, token)
		if err != nil {
			return fmt.Errorf("page %d: %w", page, err)
		}
		for _, item := range items {
			apply(item)
		}
		if next == "" {
			return nil
		}
		token = next
	}
}
