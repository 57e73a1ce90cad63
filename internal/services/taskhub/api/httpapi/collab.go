package httpapi

import "net/http"

type commentRequest struct {
	Content string `json:"content"`
}

type tagRequest struct {
	Tag string `json:"tag"`
}

type watcherRequest struct {
	UserID int64 `json:"user_id"`
}

func (h *Handler) createComment(w http.ResponseWriter, r *http.Request, userID int64) error {
	ref, err := taskPath(r, userID)
	if err != nil {
		return err
	}
	var in commentRequest
	if err := decodeJSON(r, &in); err != nil {
		return err
	}
	view, err := h.svc.CreateComment(r.Context(), ref, in.Content)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, view)
	return nil
}

func (h *Handler) listComments(w http.ResponseWriter, r *http.Request, userID int64) error {
	ref, err := taskPath(r, userID)
	if err != nil {
		return err
	}
	views, err := h.svc.ListComments(r.Context(), ref)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, views)
	return nil
}

func (h *Handler) updateComment(w http.ResponseWriter, r *http.Request, userID int64) error {
	ref, err := taskPath(r, userID)
	if err != nil {
		return err
	}
	commentID, err := pathID(r, "c")
	if err != nil {
		return err
	}
	var in commentRequest
	if err := decodeJSON(r, &in); err != nil {
		return err
	}
	view, err := h.svc.UpdateComment(r.Context(), ref, commentID, in.Content)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, view)
	return nil
}

func (h *Handler) deleteComment(w http.ResponseWriter, r *http.Request, userID int64) error {
	ref, err := taskPath(r, userID)
	if err != nil {
		return err
	}
	commentID, err := pathID(r, "c")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteComment(r.Context(), ref, commentID); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *Handler) addTag(w http.ResponseWriter, r *http.Request, userID int64) error {
	ref, err := taskPath(r, userID)
	if err != nil {
		return err
	}
	var in tagRequest
	if err := decodeJSON(r, &in); err != nil {
		return err
	}
	view, err := h.svc.AddTag(r.Context(), ref, in.Tag)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, view)
	return nil
}

func (h *Handler) listTags(w http.ResponseWriter, r *http.Request, userID int64) error {
	ref, err := taskPath(r, userID)
	if err != nil {
		return err
	}
	views, err := h.svc.ListTags(r.Context(), ref)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, views)
	return nil
}

func (h *Handler) deleteTag(w http.ResponseWriter, r *http.Request, userID int64) error {
	ref, err := taskPath(r, userID)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteTag(r.Context(), ref, r.PathValue("tag")); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *Handler) addWatcher(w http.ResponseWriter, r *http.Request, userID int64) error {
	ref, err := taskPath(r, userID)
	if err != nil {
		return err
	}
	var in watcherRequest
	if err := decodeJSON(r, &in); err != nil {
		return err
	}
	view, err := h.svc.AddWatcher(r.Context(), ref, in.UserID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, view)
	return nil
}

func (h *Handler) listWatchers(w http.ResponseWriter, r *http.Request, userID int64) error {
	ref, err := taskPath(r, userID)
	if err != nil {
		return err
	}
	views, err := h.svc.ListWatchers(r.Context(), ref)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, views)
	return nil
}

func (h *Handler) deleteWatcher(w http.ResponseWriter, r *http.Request, userID int64) error {
	ref, err := taskPath(r, userID)
	if err != nil {
		return err
	}
	watcherID, err := pathID(r, "u")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteWatcher(r.Context(), ref, watcherID); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
