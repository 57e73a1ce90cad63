package httpapi

import (
	"net/http"

	"github.com/louisbranch/taskhub/internal/services/taskhub/domain/project"
	"github.com/louisbranch/taskhub/internal/services/taskhub/service"
)

func (h *Handler) createProject(w http.ResponseWriter, r *http.Request, userID int64) error {
	workspaceID, err := pathID(r, "w")
	if err != nil {
		return err
	}
	var in service.CreateProjectInput
	if err := decodeJSON(r, &in); err != nil {
		return err
	}
	view, err := h.svc.CreateProject(r.Context(), workspaceID, userID, in)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, view)
	return nil
}

func (h *Handler) listProjects(w http.ResponseWriter, r *http.Request, userID int64) error {
	workspaceID, err := pathID(r, "w")
	if err != nil {
		return err
	}
	views, err := h.svc.ListProjects(r.Context(), workspaceID, userID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, views)
	return nil
}

// projectPath reads the workspace and project ids from the route.
func projectPath(r *http.Request) (workspaceID, projectID int64, err error) {
	if workspaceID, err = pathID(r, "w"); err != nil {
		return 0, 0, err
	}
	if projectID, err = pathID(r, "p"); err != nil {
		return 0, 0, err
	}
	return workspaceID, projectID, nil
}

func (h *Handler) getProject(w http.ResponseWriter, r *http.Request, userID int64) error {
	workspaceID, projectID, err := projectPath(r)
	if err != nil {
		return err
	}
	view, err := h.svc.GetProject(r.Context(), workspaceID, projectID, userID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, view)
	return nil
}

func (h *Handler) updateProject(w http.ResponseWriter, r *http.Request, userID int64) error {
	workspaceID, projectID, err := projectPath(r)
	if err != nil {
		return err
	}
	var patch project.Patch
	if err := decodeJSON(r, &patch); err != nil {
		return err
	}
	view, err := h.svc.UpdateProject(r.Context(), workspaceID, projectID, userID, patch)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, view)
	return nil
}

func (h *Handler) deleteProject(w http.ResponseWriter, r *http.Request, userID int64) error {
	workspaceID, projectID, err := projectPath(r)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteProject(r.Context(), workspaceID, projectID, userID); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
