package api

import (
	"net/http"

	"github.com/aws/dcv-access-console-sub000/internal/domain"
)

type decisionRequest struct {
	PrincipalType string `json:"principalType,omitempty"`
	PrincipalID   string `json:"principalId"`
	Action        string `json:"action"`
	ResourceType  string `json:"resourceType,omitempty"`
	ResourceID    string `json:"resourceId,omitempty"`
}

type decisionResponse struct {
	Allowed bool `json:"allowed"`
}

// decide answers one authorization question. Requests without a resource are
// system-level decisions.
func (h *Handler) decide(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.PrincipalID == "" || req.Action == "" {
		writeError(w, domain.ErrValidation("principalId and action are required"))
		return
	}
	principalType, err := parsePrincipalType(req.PrincipalType)
	if err != nil {
		writeError(w, err)
		return
	}

	var allowed bool
	if req.ResourceType == "" && req.ResourceID == "" {
		allowed, err = h.engine.IsAuthorized(r.Context(), principalType, req.PrincipalID, req.Action)
	} else {
		resourceType, ok := domain.ParseEntityType(req.ResourceType)
		if !ok {
			writeError(w, domain.ErrValidation("%q is not a resource type", req.ResourceType))
			return
		}
		allowed, err = h.engine.IsAuthorizedOnResource(r.Context(), principalType, req.PrincipalID, req.Action, resourceType, req.ResourceID)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, decisionResponse{Allowed: allowed})
}

// reload rebuilds the entity graph from the systems of record. The previous
// graph keeps serving until the swap, and survives a failed reload.
func (h *Handler) reload(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.LoadEntities(r.Context()); err != nil {
		h.logger.Error("reload failed", "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}

type rolesResponse struct {
	Roles       []string `json:"roles"`
	DefaultRole string   `json:"defaultRole"`
}

func (h *Handler) listRoles(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, rolesResponse{
		Roles:       h.engine.Roles(),
		DefaultRole: h.engine.DefaultUserRole(),
	})
}
