package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/R3E-Network/sira_platform/internal/app/domain/alert"
	"github.com/R3E-Network/sira_platform/internal/app/domain/casefile"
	"github.com/R3E-Network/sira_platform/internal/app/domain/movement"
	"github.com/R3E-Network/sira_platform/internal/app/domain/playbook"
	"github.com/R3E-Network/sira_platform/internal/app/domain/roles"
	"github.com/R3E-Network/sira_platform/internal/app/services/alerts"
	"github.com/R3E-Network/sira_platform/internal/app/services/cases"
	"github.com/R3E-Network/sira_platform/internal/app/services/movements"
	"github.com/R3E-Network/sira_platform/internal/app/services/playbooks"
	apperrors "github.com/R3E-Network/sira_platform/internal/errors"
)

const (
	uploadMemory       = 8 << 20
	// Room for multipart boundaries and the other form fields.
	uploadFormOverhead = 1 << 20
)

func (h *handler) movementRoutes(r *mux.Router) {
	h.handle(r, "/movements", h.listMovements, nil, http.MethodGet)
	h.handle(r, "/movements", h.createMovement, roles.Operations, http.MethodPost)
	h.handle(r, "/movements/{id:[0-9]+}", h.getMovement, nil, http.MethodGet)
	h.handle(r, "/movements/{id:[0-9]+}", h.updateMovement, roles.Operations, http.MethodPut)
	h.handle(r, "/movements/{id:[0-9]+}", h.deleteMovement, roles.Supervisors, http.MethodDelete)
	h.handle(r, "/movements/{id:[0-9]+}/location", h.updateMovementLocation, roles.Operations, http.MethodPut)

	h.handle(r, "/events", h.listEvents, nil, http.MethodGet)
	h.handle(r, "/events", h.createEvent, roles.Operations, http.MethodPost)
	h.handle(r, "/events/{id:[0-9]+}", h.getEvent, nil, http.MethodGet)
	h.handle(r, "/events/{id:[0-9]+}", h.deleteEvent, roles.Supervisors, http.MethodDelete)
}

func (h *handler) alertRoutes(r *mux.Router) {
	h.handle(r, "/alerts", h.listAlerts, nil, http.MethodGet)
	h.handle(r, "/alerts", h.createAlert, roles.Security, http.MethodPost)
	h.handle(r, "/alerts/stats", h.alertStats, nil, http.MethodGet)
	h.handle(r, "/alerts/rules", h.alertRules, nil, http.MethodGet)
	h.handle(r, "/alerts/{id:[0-9]+}", h.getAlert, nil, http.MethodGet)
	h.handle(r, "/alerts/{id:[0-9]+}", h.updateAlert, roles.Security, http.MethodPut)
	h.handle(r, "/alerts/{id:[0-9]+}/acknowledge", h.acknowledgeAlert, nil, http.MethodPost)
	h.handle(r, "/alerts/{id:[0-9]+}/assign", h.assignAlert, roles.Security, http.MethodPost)
	h.handle(r, "/alerts/{id:[0-9]+}/resolve", h.resolveAlert, roles.Security, http.MethodPost)
	h.handle(r, "/alerts/{id:[0-9]+}/link-case", h.linkAlertCase, roles.Security, http.MethodPost)
}

func (h *handler) caseRoutes(r *mux.Router) {
	h.handle(r, "/cases", h.listCases, nil, http.MethodGet)
	h.handle(r, "/cases", h.createCase, roles.Security, http.MethodPost)
	h.handle(r, "/cases/stats", h.caseStats, nil, http.MethodGet)
	h.handle(r, "/cases/{id:[0-9]+}", h.getCase, nil, http.MethodGet)
	h.handle(r, "/cases/{id:[0-9]+}", h.updateCase, roles.Security, http.MethodPut)
	h.handle(r, "/cases/{id:[0-9]+}/close", h.closeCase, roles.Security, http.MethodPost)
	h.handle(r, "/cases/{id:[0-9]+}/export", h.exportCase, nil, http.MethodGet)

	h.handle(r, "/evidences", h.addEvidence, nil, http.MethodPost)
	h.handle(r, "/evidences/upload", h.uploadEvidence, nil, http.MethodPost)
	h.handle(r, "/evidences/case/{case_id:[0-9]+}", h.listEvidence, nil, http.MethodGet)
	h.handle(r, "/evidences/{id:[0-9]+}", h.getEvidence, nil, http.MethodGet)
	h.handle(r, "/evidences/{id:[0-9]+}", h.deleteEvidence, roles.Security, http.MethodDelete)
	h.handle(r, "/evidences/{id:[0-9]+}/verify", h.verifyEvidence, roles.Security, http.MethodPost)
}

func (h *handler) playbookRoutes(r *mux.Router) {
	h.handle(r, "/playbooks", h.listPlaybooks, nil, http.MethodGet)
	h.handle(r, "/playbooks", h.createPlaybook, roles.PlaybookEditors, http.MethodPost)
	h.handle(r, "/playbooks/search/{type}", h.searchPlaybooks, nil, http.MethodGet)
	h.handle(r, "/playbooks/{id:[0-9]+}", h.getPlaybook, nil, http.MethodGet)
	h.handle(r, "/playbooks/{id:[0-9]+}", h.updatePlaybook, roles.PlaybookEditors, http.MethodPut)
	h.handle(r, "/playbooks/{id:[0-9]+}", h.deletePlaybook, roles.Admins, http.MethodDelete)
}

// movements

func (h *handler) listMovements(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := paging(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := h.app.Movements.List(r.Context(), movement.Filter{Status: r.URL.Query().Get("status"), Offset: offset, Limit: limit})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) createMovement(w http.ResponseWriter, r *http.Request) {
	var req movements.CreateRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	m, err := h.app.Movements.Create(r.Context(), actor(r), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *handler) getMovement(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	m, err := h.app.Movements.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *handler) updateMovement(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var upd movements.Update
	if err := decodeJSON(r.Body, &upd); err != nil {
		h.writeError(w, r, err)
		return
	}
	m, err := h.app.Movements.Update(r.Context(), actor(r), id, upd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *handler) updateMovementLocation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	location := r.URL.Query().Get("location")
	if location == "" {
		h.writeError(w, r, apperrors.Validation("location is required"))
		return
	}
	lat, err := queryFloat(r, "lat")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	lng, err := queryFloat(r, "lng")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	m, err := h.app.Movements.UpdateLocation(r.Context(), actor(r), id, location, lat, lng)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *handler) deleteMovement(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.app.Movements.Delete(r.Context(), actor(r), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Movement deleted successfully")
}

// events

func (h *handler) listEvents(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := paging(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	movementID, err := queryInt64(r, "movement_id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	out, err := h.app.Movements.ListEvents(r.Context(), movement.EventFilter{
		MovementID: movementID,
		EventType:  q.Get("event_type"),
		Severity:   q.Get("severity"),
		Offset:     offset,
		Limit:      limit,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) createEvent(w http.ResponseWriter, r *http.Request) {
	var req movements.EventRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	ev, _, err := h.app.Movements.RecordEvent(r.Context(), actor(r), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

func (h *handler) getEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ev, err := h.app.Movements.GetEvent(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (h *handler) deleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.app.Movements.DeleteEvent(r.Context(), actor(r), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Event deleted successfully")
}

// alerts

func (h *handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := paging(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	breached, err := queryBool(r, "sla_breached")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	out, err := h.app.Alerts.List(r.Context(), alert.Filter{
		Domain:      q.Get("domain"),
		Status:      q.Get("status"),
		Severity:    q.Get("severity"),
		SLABreached: breached,
		Offset:      offset,
		Limit:       limit,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) createAlert(w http.ResponseWriter, r *http.Request) {
	var req alerts.CreateRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	a, err := h.app.Alerts.Create(r.Context(), actor(r), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *handler) alertStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.app.Alerts.Stats(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *handler) alertRules(w http.ResponseWriter, r *http.Request) {
	st, err := h.app.Alerts.RuleStats(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *handler) getAlert(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	a, err := h.app.Alerts.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *handler) updateAlert(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var upd alerts.Update
	if err := decodeJSON(r.Body, &upd); err != nil {
		h.writeError(w, r, err)
		return
	}
	a, err := h.app.Alerts.Update(r.Context(), actor(r), id, upd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *handler) acknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if _, err := h.app.Alerts.Acknowledge(r.Context(), actor(r), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Alert acknowledged", "alert_id", id)
}

func (h *handler) assignAlert(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	userID, err := queryInt64(r, "user_id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if userID <= 0 {
		h.writeError(w, r, apperrors.Validation("user_id is required"))
		return
	}
	if _, err := h.app.Alerts.Assign(r.Context(), actor(r), id, userID); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Alert assigned", "alert_id", id, "assigned_to", userID)
}

func (h *handler) resolveAlert(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var payload struct {
		ResolutionNotes string `json:"resolution_notes"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		h.writeError(w, r, err)
		return
	}
	if _, err := h.app.Alerts.Resolve(r.Context(), actor(r), id, payload.ResolutionNotes); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Alert resolved", "alert_id", id)
}

func (h *handler) linkAlertCase(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	caseID, err := queryInt64(r, "case_id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if caseID <= 0 {
		h.writeError(w, r, apperrors.Validation("case_id is required"))
		return
	}
	if _, err := h.app.Alerts.LinkCase(r.Context(), actor(r), id, caseID); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Alert linked to case", "alert_id", id, "case_id", caseID)
}

// cases

func (h *handler) listCases(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := paging(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	out, err := h.app.Cases.List(r.Context(), casefile.Filter{
		Status:   q.Get("status"),
		Priority: q.Get("priority"),
		Category: q.Get("category"),
		Offset:   offset,
		Limit:    limit,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) createCase(w http.ResponseWriter, r *http.Request) {
	var req cases.CreateRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.app.Cases.Create(r.Context(), actor(r), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *handler) caseStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.app.Cases.Stats(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *handler) getCase(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.app.Cases.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *handler) updateCase(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var upd cases.Update
	if err := decodeJSON(r.Body, &upd); err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.app.Cases.Update(r.Context(), actor(r), id, upd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *handler) closeCase(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req cases.CloseRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.app.Cases.Close(r.Context(), actor(r), id, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Case closed successfully", "case_number", c.CaseNumber)
}

func (h *handler) exportCase(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		pack, err := h.app.Cases.Export(r.Context(), actor(r), id)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, pack)
	case "pdf":
		doc, name, err := h.app.Cases.ExportPDF(r.Context(), actor(r), id)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writePDF(w, doc, name)
	default:
		h.writeError(w, r, apperrors.Validation("format must be json or pdf"))
	}
}

func writePDF(w http.ResponseWriter, doc []byte, name string) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(doc)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

// evidence

func (h *handler) listEvidence(w http.ResponseWriter, r *http.Request) {
	caseID, err := pathID(r, "case_id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := h.app.Cases.ListEvidence(r.Context(), caseID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) getEvidence(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	e, err := h.app.Cases.GetEvidence(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *handler) addEvidence(w http.ResponseWriter, r *http.Request) {
	var req cases.EvidenceRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	e, err := h.app.Cases.AddEvidence(r.Context(), actor(r), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (h *handler) uploadEvidence(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.app.Cases.MaxUploadBytes()+uploadFormOverhead)
	if err := r.ParseMultipartForm(uploadMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, r, apperrors.BadRequest(cases.ErrTooLarge{Limit: h.app.Cases.MaxUploadBytes()}.Error()))
			return
		}
		h.writeError(w, r, apperrors.BadRequest("invalid multipart form"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	caseID, err := strconv.ParseInt(r.FormValue("case_id"), 10, 64)
	if err != nil || caseID <= 0 {
		h.writeError(w, r, apperrors.Validation("case_id must be a positive integer"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, r, apperrors.Validation("file is required"))
		return
	}
	defer file.Close()

	e, err := h.app.Cases.UploadEvidence(r.Context(), actor(r), cases.Upload{
		CaseID:       caseID,
		EvidenceType: r.FormValue("evidence_type"),
		Description:  r.FormValue("description"),
		Filename:     header.Filename,
		MimeType:     header.Header.Get("Content-Type"),
		Body:         file,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (h *handler) verifyEvidence(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var payload struct {
		VerificationStatus string `json:"verification_status"`
		Notes              string `json:"notes"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		h.writeError(w, r, err)
		return
	}
	e, err := h.app.Cases.VerifyEvidence(r.Context(), actor(r), id, payload.VerificationStatus, payload.Notes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *handler) deleteEvidence(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.app.Cases.DeleteEvidence(r.Context(), actor(r), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Evidence deleted successfully")
}

// playbooks

func (h *handler) listPlaybooks(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := paging(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	active, err := queryBool(r, "is_active")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	out, err := h.app.Playbooks.List(r.Context(), playbook.Filter{
		Active:       active,
		IncidentType: q.Get("incident_type"),
		Domain:       q.Get("domain"),
		Offset:       offset,
		Limit:        limit,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) searchPlaybooks(w http.ResponseWriter, r *http.Request) {
	out, err := h.app.Playbooks.Search(r.Context(), mux.Vars(r)["type"], r.URL.Query().Get("domain"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) createPlaybook(w http.ResponseWriter, r *http.Request) {
	var req playbooks.CreateRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.app.Playbooks.Create(r.Context(), actor(r), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *handler) getPlaybook(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.app.Playbooks.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) updatePlaybook(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var upd playbooks.Update
	if err := decodeJSON(r.Body, &upd); err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.app.Playbooks.Update(r.Context(), actor(r), id, upd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) deletePlaybook(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.app.Playbooks.Deactivate(r.Context(), actor(r), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Playbook deactivated successfully")
}
