package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aws/dcv-access-console-sub000/internal/domain"
)

type createSessionRequest struct {
	SessionID string `json:"sessionId"`
	Owner     string `json:"owner,omitempty"`
}

// createSession records a broker-created session in the graph. The broker
// stays the system of record, so nothing is persisted here; reload re-reads
// the session list from the broker.
func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SessionID == "" {
		writeError(w, domain.ErrValidation("sessionId is required"))
		return
	}

	inserted := h.engine.AddSession(r.Context(), domain.SessionRecord{
		SessionID: req.SessionID,
		OwnerID:   req.Owner,
	})
	if !inserted {
		writeError(w, domain.ErrConflict("session %q already exists", req.SessionID))
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (h *Handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if !h.engine.DeleteResource(r.Context(), domain.TypeSession, sessionID) {
		writeError(w, domain.ErrNotFound("session %q not found", sessionID))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type shareListRequest struct {
	Users  []string `json:"users,omitempty"`
	Groups []string `json:"groups,omitempty"`
}

type shareListResponse struct {
	Users  []string `json:"users"`
	Groups []string `json:"groups"`
}

type publishResponse struct {
	AcceptedUsers  []string `json:"acceptedUsers,omitempty"`
	RejectedUsers  []string `json:"rejectedUsers,omitempty"`
	AcceptedGroups []string `json:"acceptedGroups,omitempty"`
	RejectedGroups []string `json:"rejectedGroups,omitempty"`
}

func toPublishResponse(r domain.PublishResult) publishResponse {
	return publishResponse{
		AcceptedUsers:  r.AcceptedUsers,
		RejectedUsers:  r.RejectedUsers,
		AcceptedGroups: r.AcceptedGroups,
		RejectedGroups: r.RejectedGroups,
	}
}

func (h *Handler) getCollaborators(w http.ResponseWriter, r *http.Request) {
	h.readShareList(w, domain.TypeSession, chi.URLParam(r, "sessionID"), domain.ShareLevelCollaborators)
}

// setCollaborators replaces the session's collaborator list in full.
func (h *Handler) setCollaborators(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req shareListRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := h.engine.SetShareList(r.Context(), domain.TypeSession, sessionID,
		domain.ShareLevelCollaborators, req.Users, req.Groups)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPublishResponse(result))
}

func (h *Handler) addCollaborator(w http.ResponseWriter, r *http.Request) {
	h.editCollaborator(w, r, true)
}

func (h *Handler) removeCollaborator(w http.ResponseWriter, r *http.Request) {
	h.editCollaborator(w, r, false)
}

func (h *Handler) editCollaborator(w http.ResponseWriter, r *http.Request, add bool) {
	sessionID := chi.URLParam(r, "sessionID")
	principalID := chi.URLParam(r, "principalID")

	principalType, err := parsePrincipalType(chi.URLParam(r, "principalType"))
	if err != nil {
		writeError(w, err)
		return
	}

	var applied bool
	if add {
		applied, err = h.engine.AddPrincipalToShareList(r.Context(), principalType, principalID,
			domain.TypeSession, sessionID, domain.ShareLevelCollaborators)
	} else {
		applied, err = h.engine.RemovePrincipalFromShareList(r.Context(), principalType, principalID,
			domain.TypeSession, sessionID, domain.ShareLevelCollaborators)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appliedResponse{Applied: applied})
}

type createTemplateRequest struct {
	TemplateID string `json:"templateId"`
	Owner      string `json:"owner,omitempty"`
}

func (h *Handler) createTemplate(w http.ResponseWriter, r *http.Request) {
	var req createTemplateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.TemplateID == "" {
		writeError(w, domain.ErrValidation("templateId is required"))
		return
	}

	inserted := h.engine.AddSessionTemplate(r.Context(), domain.TemplateRecord{
		TemplateID: req.TemplateID,
		OwnerID:    req.Owner,
	})
	if !inserted {
		writeError(w, domain.ErrConflict("session template %q already exists", req.TemplateID))
		return
	}
	if _, err := h.templates.CreateTemplate(r.Context(), req.TemplateID, req.Owner); err != nil {
		h.logger.Error("persist template failed", "template", req.TemplateID, "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (h *Handler) deleteTemplate(w http.ResponseWriter, r *http.Request) {
	templateID := chi.URLParam(r, "templateID")

	if !h.engine.DeleteResource(r.Context(), domain.TypeSessionTemplate, templateID) {
		writeError(w, domain.ErrNotFound("session template %q not found", templateID))
		return
	}
	if _, err := h.templates.DeleteTemplate(r.Context(), templateID); err != nil {
		h.logger.Error("delete template from directory failed", "template", templateID, "error", err)
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getShareList(w http.ResponseWriter, r *http.Request) {
	h.readShareList(w, domain.TypeSessionTemplate, chi.URLParam(r, "templateID"), domain.ShareLevelPublishedTo)
}

// setShareList replaces the template's publish list. The graph decides which
// requested principals resolve; only the accepted subset is persisted, so the
// directory never records a share the engine would not honor.
func (h *Handler) setShareList(w http.ResponseWriter, r *http.Request) {
	templateID := chi.URLParam(r, "templateID")

	var req shareListRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := h.engine.SetShareList(r.Context(), domain.TypeSessionTemplate, templateID,
		domain.ShareLevelPublishedTo, req.Users, req.Groups)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := h.templates.Publish(r.Context(), templateID, result.AcceptedUsers, result.AcceptedGroups); err != nil {
		h.logger.Error("persist share list failed", "template", templateID, "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPublishResponse(result))
}

func (h *Handler) readShareList(w http.ResponseWriter, resourceType domain.EntityType, resourceID, level string) {
	users, err := h.engine.SharedPrincipals(resourceType, resourceID, level, domain.TypeUser)
	if err != nil {
		writeError(w, err)
		return
	}
	groups, err := h.engine.SharedPrincipals(resourceType, resourceID, level, domain.TypeGroup)
	if err != nil {
		writeError(w, err)
		return
	}
	if users == nil {
		users = []string{}
	}
	if groups == nil {
		groups = []string{}
	}
	writeJSON(w, http.StatusOK, shareListResponse{Users: users, Groups: groups})
}
