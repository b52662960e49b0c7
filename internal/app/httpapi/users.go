package httpapi

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/R3E-Network/sira_platform/internal/app/domain/roles"
	"github.com/R3E-Network/sira_platform/internal/app/domain/user"
	"github.com/R3E-Network/sira_platform/internal/app/services/auth"
	"github.com/R3E-Network/sira_platform/internal/app/services/users"
	apperrors "github.com/R3E-Network/sira_platform/internal/errors"
)

func (h *handler) authRoutes(r *mux.Router) {
	h.handle(r, "/auth/token", h.login, nil, http.MethodPost)
	h.handle(r, "/auth/token/refresh", h.refresh, nil, http.MethodPost)
	h.handle(r, "/auth/register", h.register, nil, http.MethodPost)
	h.handle(r, "/auth/change-password", h.changePassword, nil, http.MethodPost)
	h.handle(r, "/auth/me", h.me, nil, http.MethodGet)
}

func (h *handler) userRoutes(r *mux.Router) {
	h.handle(r, "/users", h.listUsers, roles.Supervisors, http.MethodGet)
	h.handle(r, "/users", h.createUser, roles.Admins, http.MethodPost)
	h.handle(r, "/users/{id:[0-9]+}", h.getUser, nil, http.MethodGet)
	h.handle(r, "/users/{id:[0-9]+}", h.updateUser, nil, http.MethodPut)
	h.handle(r, "/users/{id:[0-9]+}", h.deleteUser, roles.Admins, http.MethodDelete)
}

// login accepts the OAuth2 password form or a JSON body.
func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := decodeJSON(r.Body, &creds); err != nil {
			h.writeError(w, r, err)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			h.writeError(w, r, apperrors.Validation("invalid form body"))
			return
		}
		creds.Username = r.PostForm.Get("username")
		creds.Password = r.PostForm.Get("password")
	}
	if creds.Username == "" || creds.Password == "" {
		h.writeError(w, r, apperrors.Validation("username and password are required"))
		return
	}

	pair, _, err := h.app.Auth.Login(r.Context(), creds.Username, creds.Password)
	if err != nil {
		h.log.LogSecurityEvent(r.Context(), "login_failed", map[string]interface{}{"username": creds.Username})
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (h *handler) refresh(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		h.writeError(w, r, err)
		return
	}
	pair, err := h.app.Auth.Refresh(r.Context(), payload.RefreshToken)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var req auth.Registration
	if err := decodeJSON(r.Body, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	u, err := h.app.Auth.Register(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.app.Auth.ChangePassword(r.Context(), actor(r).ID, payload.CurrentPassword, payload.NewPassword); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Password changed successfully")
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, actor(r))
}

func (h *handler) listUsers(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := paging(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	active, err := queryBool(r, "active_only")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	f := user.Filter{Role: r.URL.Query().Get("role"), Offset: offset, Limit: limit}
	if active != nil {
		f.ActiveOnly = *active
	}
	out, err := h.app.Users.List(r.Context(), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req auth.Registration
	if err := decodeJSON(r.Body, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	u, err := h.app.Users.Create(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	u, err := h.app.Users.Get(r.Context(), actor(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *handler) updateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var upd users.Update
	if err := decodeJSON(r.Body, &upd); err != nil {
		h.writeError(w, r, err)
		return
	}
	u, err := h.app.Users.Update(r.Context(), actor(r), id, upd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.app.Users.Delete(r.Context(), actor(r), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "User deleted successfully")
}
