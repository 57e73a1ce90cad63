package httpapi

import (
	"net/http"

	"github.com/louisbranch/taskhub/internal/services/taskhub/service"
)

type workspaceRequest struct {
	Name string `json:"name"`
}

type roleRequest struct {
	Role string `json:"role"`
}

func (h *Handler) createWorkspace(w http.ResponseWriter, r *http.Request, userID int64) error {
	var in workspaceRequest
	if err := decodeJSON(r, &in); err != nil {
		return err
	}
	view, err := h.svc.CreateWorkspace(r.Context(), userID, in.Name)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, view)
	return nil
}

func (h *Handler) listWorkspaces(w http.ResponseWriter, r *http.Request, userID int64) error {
	views, err := h.svc.ListWorkspaces(r.Context(), userID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, views)
	return nil
}

func (h *Handler) getWorkspace(w http.ResponseWriter, r *http.Request, userID int64) error {
	workspaceID, err := pathID(r, "w")
	if err != nil {
		return err
	}
	view, err := h.svc.GetWorkspace(r.Context(), workspaceID, userID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, view)
	return nil
}

func (h *Handler) deleteWorkspace(w http.ResponseWriter, r *http.Request, userID int64) error {
	workspaceID, err := pathID(r, "w")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteWorkspace(r.Context(), workspaceID, userID); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *Handler) listMembers(w http.ResponseWriter, r *http.Request, userID int64) error {
	workspaceID, err := pathID(r, "w")
	if err != nil {
		return err
	}
	views, err := h.svc.ListMembers(r.Context(), workspaceID, userID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, views)
	return nil
}

func (h *Handler) addMember(w http.ResponseWriter, r *http.Request, userID int64) error {
	workspaceID, err := pathID(r, "w")
	if err != nil {
		return err
	}
	var in service.AddMemberInput
	if err := decodeJSON(r, &in); err != nil {
		return err
	}
	view, err := h.svc.AddMember(r.Context(), workspaceID, userID, in)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, view)
	return nil
}

func (h *Handler) updateMemberRole(w http.ResponseWriter, r *http.Request, userID int64) error {
	workspaceID, err := pathID(r, "w")
	if err != nil {
		return err
	}
	targetID, err := pathID(r, "u")
	if err != nil {
		return err
	}
	var in roleRequest
	if err := decodeJSON(r, &in); err != nil {
		return err
	}
	view, err := h.svc.UpdateMemberRole(r.Context(), workspaceID, userID, targetID, in.Role)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, view)
	return nil
}

func (h *Handler) removeMember(w http.ResponseWriter, r *http.Request, userID int64) error {
	workspaceID, err := pathID(r, "w")
	if err != nil {
		return err
	}
	targetID, err := pathID(r, "u")
	if err != nil {
		return err
	}
	if err := h.svc.RemoveMember(r.Context(), workspaceID, userID, targetID); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
