package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/R3E-Network/sira_platform/internal/app/domain/roles"
	"github.com/R3E-Network/sira_platform/internal/app/domain/shipment"
	"github.com/R3E-Network/sira_platform/internal/app/services/shipments"
	apperrors "github.com/R3E-Network/sira_platform/internal/errors"
)

const defaultRiskThreshold = 50

func (h *handler) shipmentRoutes(r *mux.Router) {
	h.handle(r, "/shipments", h.listShipments, nil, http.MethodGet)
	h.handle(r, "/shipments", h.createShipment, roles.Operations, http.MethodPost)
	h.handle(r, "/shipments/active", h.activeShipments, nil, http.MethodGet)
	h.handle(r, "/shipments/at-risk", h.atRiskShipments, nil, http.MethodGet)
	h.handle(r, "/shipments/{id:[0-9]+}", h.getShipment, nil, http.MethodGet)
	h.handle(r, "/shipments/{id:[0-9]+}", h.updateShipment, roles.Operations, http.MethodPut)

	h.handle(r, "/shipments/{id:[0-9]+}/milestones", h.listMilestones, nil, http.MethodGet)
	h.handle(r, "/shipments/{id:[0-9]+}/milestones", h.addMilestone, roles.Operations, http.MethodPost)
	h.handle(r, "/shipments/milestones/{id:[0-9]+}", h.updateMilestone, roles.Operations, http.MethodPut)

	h.handle(r, "/shipments/{id:[0-9]+}/custody", h.listCustody, nil, http.MethodGet)
	h.handle(r, "/shipments/{id:[0-9]+}/custody", h.recordCustody, roles.Operations, http.MethodPost)
	h.handle(r, "/shipments/{id:[0-9]+}/custody/chain", h.custodyChain, nil, http.MethodGet)
	h.handle(r, "/shipments/{id:[0-9]+}/custody/compliance", h.custodyCompliance, nil, http.MethodGet)
	h.handle(r, "/shipments/{id:[0-9]+}/custody/seal", h.sealShipment, roles.Operations, http.MethodPost)

	h.handle(r, "/shipments/{id:[0-9]+}/documents", h.listDocuments, nil, http.MethodGet)
	h.handle(r, "/shipments/{id:[0-9]+}/documents", h.addDocument, roles.Operations, http.MethodPost)
	h.handle(r, "/shipments/documents/{id:[0-9]+}", h.updateDocument, roles.Operations, http.MethodPut)

	h.handle(r, "/shipments/{id:[0-9]+}/exceptions", h.listExceptions, nil, http.MethodGet)
	h.handle(r, "/shipments/{id:[0-9]+}/exceptions", h.reportException, roles.Operations, http.MethodPost)
	h.handle(r, "/shipments/exceptions/{id:[0-9]+}", h.updateException, roles.Operations, http.MethodPut)

	h.handle(r, "/shipments/{id:[0-9]+}/risk", h.scoreShipmentRisk, roles.Operations, http.MethodPost)
	h.handle(r, "/shipments/{id:[0-9]+}/eta", h.predictShipmentETA, roles.Operations, http.MethodPost)
}

func (h *handler) listShipments(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := paging(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	corridorID, err := queryInt64(r, "corridor_id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	vesselID, err := queryInt64(r, "vessel_id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	out, err := h.app.Shipments.List(r.Context(), shipment.Filter{
		Status:     q.Get("status"),
		CorridorID: corridorID,
		VesselID:   vesselID,
		CargoType:  q.Get("cargo_type"),
		Offset:     offset,
		Limit:      limit,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) activeShipments(w http.ResponseWriter, r *http.Request) {
	out, err := h.app.Shipments.Active(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) atRiskShipments(w http.ResponseWriter, r *http.Request) {
	threshold := float64(defaultRiskThreshold)
	if v := r.URL.Query().Get("threshold"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 100 {
			h.writeError(w, r, apperrors.Validation("threshold must be between 0 and 100"))
			return
		}
		threshold = f
	}
	out, err := h.app.Shipments.AtRisk(r.Context(), threshold)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) createShipment(w http.ResponseWriter, r *http.Request) {
	var req shipments.CreateRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	s, err := h.app.Shipments.Create(r.Context(), actor(r), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

func (h *handler) getShipment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	d, err := h.app.Shipments.Detail(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *handler) updateShipment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var upd shipments.Update
	if err := decodeJSON(r.Body, &upd); err != nil {
		h.writeError(w, r, err)
		return
	}
	s, err := h.app.Shipments.Update(r.Context(), actor(r), id, upd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// milestones

func (h *handler) listMilestones(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := h.app.Shipments.ListMilestones(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) addMilestone(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req shipments.MilestoneRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	m, err := h.app.Shipments.AddMilestone(r.Context(), actor(r), id, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *handler) updateMilestone(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var upd shipments.MilestoneUpdate
	if err := decodeJSON(r.Body, &upd); err != nil {
		h.writeError(w, r, err)
		return
	}
	m, err := h.app.Shipments.UpdateMilestone(r.Context(), actor(r), id, upd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// custody

func (h *handler) listCustody(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := h.app.Shipments.ListCustody(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) recordCustody(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req shipments.CustodyRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	ev, err := h.app.Shipments.RecordCustody(r.Context(), actor(r), id, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

func (h *handler) custodyChain(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	chain, err := h.app.Shipments.Chain(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chain)
}

func (h *handler) custodyCompliance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	report, err := h.app.Shipments.Compliance(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *handler) sealShipment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req shipments.SealRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.app.Shipments.Seal(r.Context(), actor(r), id, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// documents

func (h *handler) listDocuments(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := h.app.Shipments.ListDocuments(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) addDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req shipments.DocumentRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	d, err := h.app.Shipments.AddDocument(r.Context(), actor(r), id, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (h *handler) updateDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var upd shipments.DocumentUpdate
	if err := decodeJSON(r.Body, &upd); err != nil {
		h.writeError(w, r, err)
		return
	}
	d, err := h.app.Shipments.UpdateDocument(r.Context(), actor(r), id, upd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// exceptions

func (h *handler) listExceptions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := h.app.Shipments.ListExceptions(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) reportException(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req shipments.ExceptionRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	ex, err := h.app.Shipments.ReportException(r.Context(), actor(r), id, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ex)
}

func (h *handler) updateException(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var upd shipments.ExceptionUpdate
	if err := decodeJSON(r.Body, &upd); err != nil {
		h.writeError(w, r, err)
		return
	}
	ex, err := h.app.Shipments.UpdateException(r.Context(), actor(r), id, upd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ex)
}

// estimates

func (h *handler) scoreShipmentRisk(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req shipments.RiskRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.app.Shipments.ScoreRisk(r.Context(), actor(r), id, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) predictShipmentETA(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req shipments.ETARequest
	if err := decodeJSON(r.Body, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.app.Shipments.PredictETA(r.Context(), actor(r), id, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
