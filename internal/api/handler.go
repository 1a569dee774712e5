// Package api exposes the authorization engine and the directory stores over
// HTTP. Handlers mutate the engine graph first, then persist to the system of
// record, so decisions reflect every accepted write immediately.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aws/dcv-access-console-sub000/internal/domain"
	"github.com/aws/dcv-access-console-sub000/internal/service"
)

// UserWriter persists user creations to the user directory.
type UserWriter interface {
	Create(ctx context.Context, userID, loginName, role string) (bool, error)
}

// GroupWriter persists group and membership changes to the group directory.
type GroupWriter interface {
	CreateGroup(ctx context.Context, groupID, displayName string) (bool, error)
	DeleteGroup(ctx context.Context, groupID string) (bool, error)
	AddMember(ctx context.Context, userID, groupID string) (bool, error)
	RemoveMember(ctx context.Context, userID, groupID string) (bool, error)
}

// TemplateWriter persists template and share-list changes to the template
// directory.
type TemplateWriter interface {
	CreateTemplate(ctx context.Context, templateID, ownerID string) (bool, error)
	DeleteTemplate(ctx context.Context, templateID string) (bool, error)
	Publish(ctx context.Context, templateID string, userIDs, groupIDs []string) (domain.PublishResult, error)
}

// Handler serves the console authorization API.
type Handler struct {
	engine    *service.Engine
	users     UserWriter
	groups    GroupWriter
	templates TemplateWriter
	logger    *slog.Logger
}

// NewHandler creates a Handler. The writers are the systems of record behind
// the engine graph; reload rebuilds the graph from them.
func NewHandler(engine *service.Engine, users UserWriter, groups GroupWriter, templates TemplateWriter, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		engine:    engine,
		users:     users,
		groups:    groups,
		templates: templates,
		logger:    logger.With("component", "api"),
	}
}

// Routes registers all endpoints on a fresh router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/decisions", h.decide)
	r.Post("/reload", h.reload)

	r.Get("/roles", h.listRoles)

	r.Post("/users", h.createUser)
	r.Get("/users/{userID}", h.getUser)

	r.Post("/groups", h.createGroup)
	r.Delete("/groups/{groupID}", h.deleteGroup)
	r.Put("/groups/{groupID}/members/{userID}", h.addMember)
	r.Delete("/groups/{groupID}/members/{userID}", h.removeMember)

	r.Post("/sessions", h.createSession)
	r.Delete("/sessions/{sessionID}", h.deleteSession)
	r.Get("/sessions/{sessionID}/collaborators", h.getCollaborators)
	r.Put("/sessions/{sessionID}/collaborators", h.setCollaborators)
	r.Put("/sessions/{sessionID}/collaborators/{principalType}/{principalID}", h.addCollaborator)
	r.Delete("/sessions/{sessionID}/collaborators/{principalType}/{principalID}", h.removeCollaborator)

	r.Post("/session-templates", h.createTemplate)
	r.Delete("/session-templates/{templateID}", h.deleteTemplate)
	r.Get("/session-templates/{templateID}/share-list", h.getShareList)
	r.Put("/session-templates/{templateID}/share-list", h.setShareList)

	return r
}

// parsePrincipalType resolves a principal type name, defaulting to User.
func parsePrincipalType(name string) (domain.EntityType, error) {
	if name == "" {
		return domain.TypeUser, nil
	}
	t, ok := domain.ParseEntityType(name)
	if !ok || (t != domain.TypeUser && t != domain.TypeGroup) {
		return 0, domain.ErrValidation("%q is not a principal type", name)
	}
	return t, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := decodeJSON(r, dst); err != nil {
		writeError(w, domain.ErrValidation("bad request body: %v", err))
		return false
	}
	return true
}
