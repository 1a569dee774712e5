package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aws/dcv-access-console-sub000/internal/domain"
)

type createUserRequest struct {
	UserID      string `json:"userId"`
	LoginName   string `json:"loginName,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Role        string `json:"role,omitempty"`
	Disabled    bool   `json:"disabled,omitempty"`
}

// createUser inserts the user into the graph and persists it to the user
// directory. A user already present in the graph is a conflict; the directory
// write is skipped so the system of record is never ahead of the graph.
func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" {
		writeError(w, domain.ErrValidation("userId is required"))
		return
	}

	inserted := h.engine.AddUser(r.Context(), domain.UserRecord{
		UserID:      req.UserID,
		LoginName:   req.LoginName,
		DisplayName: req.DisplayName,
		Role:        req.Role,
		Disabled:    req.Disabled,
	})
	if !inserted {
		writeError(w, domain.ErrConflict("user %q already exists", req.UserID))
		return
	}
	if _, err := h.users.Create(r.Context(), req.UserID, req.LoginName, req.Role); err != nil {
		h.logger.Error("persist user failed", "user", req.UserID, "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

type userResponse struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	role, ok := h.engine.UserRole(userID)
	if !ok {
		writeError(w, domain.ErrNotFound("user %q not found", userID))
		return
	}
	displayName, _ := h.engine.UserDisplayName(userID)
	writeJSON(w, http.StatusOK, userResponse{
		UserID:      userID,
		DisplayName: displayName,
		Role:        role,
	})
}

type createGroupRequest struct {
	GroupID     string `json:"groupId"`
	DisplayName string `json:"displayName,omitempty"`
}

func (h *Handler) createGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.GroupID == "" {
		writeError(w, domain.ErrValidation("groupId is required"))
		return
	}

	inserted := h.engine.AddGroup(r.Context(), domain.GroupRecord{
		GroupID:     req.GroupID,
		DisplayName: req.DisplayName,
	})
	if !inserted {
		writeError(w, domain.ErrConflict("group %q already exists", req.GroupID))
		return
	}
	if _, err := h.groups.CreateGroup(r.Context(), req.GroupID, req.DisplayName); err != nil {
		h.logger.Error("persist group failed", "group", req.GroupID, "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// deleteGroup removes the group from the graph and the directory. Former
// members keep their dangling membership edges until the next reload.
func (h *Handler) deleteGroup(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")

	if !h.engine.RemoveGroup(r.Context(), groupID) {
		writeError(w, domain.ErrNotFound("group %q not found", groupID))
		return
	}
	if _, err := h.groups.DeleteGroup(r.Context(), groupID); err != nil {
		h.logger.Error("delete group from directory failed", "group", groupID, "error", err)
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type appliedResponse struct {
	Applied bool `json:"applied"`
}

func (h *Handler) addMember(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")
	userID := chi.URLParam(r, "userID")

	applied := h.engine.AddUserToGroup(r.Context(), userID, groupID)
	if applied {
		if _, err := h.groups.AddMember(r.Context(), userID, groupID); err != nil {
			h.logger.Error("persist membership failed", "user", userID, "group", groupID, "error", err)
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, appliedResponse{Applied: applied})
}

func (h *Handler) removeMember(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")
	userID := chi.URLParam(r, "userID")

	applied := h.engine.RemoveUserFromGroup(r.Context(), userID, groupID)
	if applied {
		if _, err := h.groups.RemoveMember(r.Context(), userID, groupID); err != nil {
			h.logger.Error("remove membership from directory failed", "user", userID, "group", groupID, "error", err)
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, appliedResponse{Applied: applied})
}
