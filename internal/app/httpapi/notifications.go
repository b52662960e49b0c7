package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/R3E-Network/sira_platform/internal/app/domain/notification"
	"github.com/R3E-Network/sira_platform/internal/app/domain/roles"
	"github.com/R3E-Network/sira_platform/internal/app/services/notifications"
	apperrors "github.com/R3E-Network/sira_platform/internal/errors"
)

func (h *handler) notificationRoutes(r *mux.Router) {
	h.handle(r, "/notifications", h.listNotifications, nil, http.MethodGet)
	h.handle(r, "/notifications/unread-count", h.unreadCount, nil, http.MethodGet)
	h.handle(r, "/notifications/{id:[0-9]+}/read", h.markRead, nil, http.MethodPost)
	h.handle(r, "/notifications/read-all", h.markAllRead, nil, http.MethodPost)
	h.handle(r, "/notifications/preferences", h.getPreferences, nil, http.MethodGet)
	h.handle(r, "/notifications/preferences", h.updatePreferences, nil, http.MethodPut)

	// The socket authenticates itself from ?token= so it bypasses the
	// bearer middleware.
	r.HandleFunc("/ws/notifications", func(w http.ResponseWriter, r *http.Request) {
		h.app.Hub.ServeWS(w, r, h.app.Auth.Authenticate)
	}).Methods(http.MethodGet)
	h.handle(r, "/ws/connections", h.connections, roles.Supervisors, http.MethodGet)
	h.handle(r, "/ws/broadcast", h.broadcast, roles.Admins, http.MethodPost)
}

func (h *handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	unread, err := queryBool(r, "unread_only")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if limit < 1 || limit > maxLimit {
		h.writeError(w, r, apperrors.Validation("limit must be between 1 and 1000"))
		return
	}
	f := notification.Filter{UserID: actor(r).ID, Limit: limit}
	if unread != nil {
		f.UnreadOnly = *unread
	}
	out, err := h.app.Notifications.List(r.Context(), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) unreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.app.Notifications.UnreadCount(r.Context(), actor(r).ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread_count": n})
}

func (h *handler) markRead(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.app.Notifications.MarkRead(r.Context(), actor(r).ID, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Notification marked as read")
}

func (h *handler) markAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.app.Notifications.MarkAllRead(r.Context(), actor(r).ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, fmt.Sprintf("Marked %d notifications as read", n))
}

func (h *handler) getPreferences(w http.ResponseWriter, r *http.Request) {
	p, err := h.app.Notifications.Preferences(r.Context(), actor(r).ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) updatePreferences(w http.ResponseWriter, r *http.Request) {
	var upd notifications.PreferenceUpdate
	if err := decodeJSON(r.Body, &upd); err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.app.Notifications.UpdatePreferences(r.Context(), actor(r).ID, upd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) connections(w http.ResponseWriter, r *http.Request) {
	ids := h.app.Hub.ConnectedUsers()
	writeJSON(w, http.StatusOK, map[string]any{
		"connected_users": ids,
		"total":           len(ids),
	})
}

func (h *handler) broadcast(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Title    string `json:"title"`
		Message  string `json:"message"`
		Priority string `json:"priority"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		h.writeError(w, r, err)
		return
	}
	if payload.Title == "" || payload.Message == "" {
		h.writeError(w, r, apperrors.Validation("title and message are required"))
		return
	}
	if payload.Priority == "" {
		payload.Priority = "normal"
	}
	h.app.Notifications.Broadcast(r.Context(), payload.Title, payload.Message, payload.Priority)
	writeMessage(w, http.StatusOK, "Broadcast sent", "recipients", len(h.app.Hub.ConnectedUsers()))
}
