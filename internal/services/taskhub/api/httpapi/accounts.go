package httpapi

import (
	"net/http"

	"github.com/louisbranch/taskhub/internal/services/taskhub/service"
)

func (h *Handler) register(w http.ResponseWriter, r *http.Request) error {
	var in service.Credentials
	if err := decodeJSON(r, &in); err != nil {
		return err
	}
	created, err := h.svc.Register(r.Context(), in)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, created)
	return nil
}

// login accepts OAuth2 password-style form posts as well as JSON bodies.
func (h *Handler) login(w http.ResponseWriter, r *http.Request) error {
	var in service.Credentials
	if isFormRequest(r) {
		in.Username = r.PostFormValue("username")
		in.Password = r.PostFormValue("password")
	} else if err := decodeJSON(r, &in); err != nil {
		return err
	}
	token, err := h.svc.Login(r.Context(), in)
	if err != nil {
		return err
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, token)
	return nil
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request, userID int64) error {
	view, err := h.svc.Me(r.Context(), userID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, view)
	return nil
}
