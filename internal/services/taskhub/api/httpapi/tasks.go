package httpapi

import (
	"net/http"
	"strings"

	"github.com/louisbranch/taskhub/internal/platform/pagination"
	"github.com/louisbranch/taskhub/internal/services/taskhub/audit"
	"github.com/louisbranch/taskhub/internal/services/taskhub/domain/task"
	"github.com/louisbranch/taskhub/internal/services/taskhub/service"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	replayedHeader       = "Idempotent-Replayed"
)

type transitionRequest struct {
	ToStatus string `json:"to_status"`
}

// taskPath reads the workspace and task ids from the route.
func taskPath(r *http.Request, userID int64) (service.TaskRef, error) {
	workspaceID, err := pathID(r, "w")
	if err != nil {
		return service.TaskRef{}, err
	}
	taskID, err := pathID(r, "t")
	if err != nil {
		return service.TaskRef{}, err
	}
	return service.TaskRef{WorkspaceID: workspaceID, TaskID: taskID, ActorID: userID}, nil
}

// createTask writes the stored body verbatim so replays are byte-identical to
// the first response.
func (h *Handler) createTask(w http.ResponseWriter, r *http.Request, userID int64) error {
	workspaceID, projectID, err := projectPath(r)
	if err != nil {
		return err
	}
	var in task.CreateInput
	if err := decodeJSON(r, &in); err != nil {
		return err
	}
	result, err := h.svc.CreateTask(r.Context(), service.CreateTaskInput{
		WorkspaceID:    workspaceID,
		ProjectID:      projectID,
		ActorID:        userID,
		Task:           in,
		IdempotencyKey: r.Header.Get(idempotencyKeyHeader),
		Route:          r.URL.Path,
	})
	if err != nil {
		return err
	}
	if result.Replayed {
		w.Header().Set(replayedHeader, "true")
	}
	writeRaw(w, result.StatusCode, result.Body)
	return nil
}

func (h *Handler) listTasks(w http.ResponseWriter, r *http.Request, userID int64) error {
	workspaceID, err := pathID(r, "w")
	if err != nil {
		return err
	}
	q, err := parseTaskQuery(r)
	if err != nil {
		return err
	}
	page, err := h.svc.ListTasks(r.Context(), workspaceID, userID, q)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, page)
	return nil
}

func parseTaskQuery(r *http.Request) (task.ListQuery, error) {
	values := r.URL.Query()
	var (
		q   task.ListQuery
		err error
	)
	if raw := strings.TrimSpace(values.Get("status")); raw != "" {
		status, err := task.ParseStatus(raw)
		if err != nil {
			return task.ListQuery{}, err
		}
		q.Status = &status
	}
	if q.AssigneeID, err = queryID(values, "assignee_id"); err != nil {
		return task.ListQuery{}, err
	}
	if q.ProjectID, err = queryID(values, "project_id"); err != nil {
		return task.ListQuery{}, err
	}
	q.Tag = values.Get("tag")
	if q.DueFrom, err = queryTime(values, "due_at_from"); err != nil {
		return task.ListQuery{}, err
	}
	if q.DueTo, err = queryTime(values, "due_at_to"); err != nil {
		return task.ListQuery{}, err
	}
	q.SortBy = values.Get("sort_by")
	q.Order = pagination.Order(strings.ToLower(strings.TrimSpace(values.Get("sort_order"))))
	if q.Skip, err = queryInt(values, "skip"); err != nil {
		return task.ListQuery{}, err
	}
	if q.Limit, err = queryInt(values, "limit"); err != nil {
		return task.ListQuery{}, err
	}
	return q, nil
}

func (h *Handler) getTask(w http.ResponseWriter, r *http.Request, userID int64) error {
	ref, err := taskPath(r, userID)
	if err != nil {
		return err
	}
	view, err := h.svc.GetTask(r.Context(), ref.WorkspaceID, ref.TaskID, userID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, view)
	return nil
}

func (h *Handler) updateTask(w http.ResponseWriter, r *http.Request, userID int64) error {
	ref, err := taskPath(r, userID)
	if err != nil {
		return err
	}
	var in service.UpdateTaskInput
	if err := decodeJSON(r, &in); err != nil {
		return err
	}
	view, err := h.svc.UpdateTask(r.Context(), ref.WorkspaceID, ref.TaskID, userID, in)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, view)
	return nil
}

func (h *Handler) transitionTask(w http.ResponseWriter, r *http.Request, userID int64) error {
	ref, err := taskPath(r, userID)
	if err != nil {
		return err
	}
	var in transitionRequest
	if err := decodeJSON(r, &in); err != nil {
		return err
	}
	view, err := h.svc.TransitionTask(r.Context(), ref.WorkspaceID, ref.TaskID, userID, in.ToStatus)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, view)
	return nil
}

func (h *Handler) deleteTask(w http.ResponseWriter, r *http.Request, userID int64) error {
	ref, err := taskPath(r, userID)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteTask(r.Context(), ref.WorkspaceID, ref.TaskID, userID); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *Handler) listAuditLogs(w http.ResponseWriter, r *http.Request, userID int64) error {
	workspaceID, err := pathID(r, "w")
	if err != nil {
		return err
	}
	values := r.URL.Query()
	q := audit.Query{Filter: values.Get("filter")}
	if q.Skip, err = queryInt(values, "skip"); err != nil {
		return err
	}
	if q.Limit, err = queryInt(values, "limit"); err != nil {
		return err
	}
	page, err := h.svc.ListAuditLogs(r.Context(), workspaceID, userID, q)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, page)
	return nil
}
