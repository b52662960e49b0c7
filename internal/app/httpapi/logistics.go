package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/R3E-Network/sira_platform/internal/app/domain/corridor"
	"github.com/R3E-Network/sira_platform/internal/app/domain/fleet"
	"github.com/R3E-Network/sira_platform/internal/app/domain/port"
	"github.com/R3E-Network/sira_platform/internal/app/domain/roles"
	"github.com/R3E-Network/sira_platform/internal/app/domain/vessel"
	"github.com/R3E-Network/sira_platform/internal/app/services/corridors"
	fleetsvc "github.com/R3E-Network/sira_platform/internal/app/services/fleet"
	"github.com/R3E-Network/sira_platform/internal/app/services/ports"
	"github.com/R3E-Network/sira_platform/internal/app/services/vessels"
)

func (h *handler) vesselRoutes(r *mux.Router) {
	h.handle(r, "/vessels", h.listVessels, nil, http.MethodGet)
	h.handle(r, "/vessels", h.createVessel, roles.Operations, http.MethodPost)
	h.handle(r, "/vessels/positions", h.vesselPositions, nil, http.MethodGet)
	h.handle(r, "/vessels/{id:[0-9]+}", h.getVessel, nil, http.MethodGet)
	h.handle(r, "/vessels/{id:[0-9]+}", h.updateVessel, roles.Operations, http.MethodPut)
	h.handle(r, "/vessels/{id:[0-9]+}", h.deleteVessel, roles.Supervisors, http.MethodDelete)
	h.handle(r, "/vessels/{id:[0-9]+}/position", h.updateVesselPosition, roles.Operations, http.MethodPut)
}

func (h *handler) portRoutes(r *mux.Router) {
	h.handle(r, "/ports", h.listPorts, nil, http.MethodGet)
	h.handle(r, "/ports", h.createPort, roles.Operations, http.MethodPost)
	h.handle(r, "/ports/congestion/summary", h.congestionSummary, nil, http.MethodGet)
	h.handle(r, "/ports/{id:[0-9]+}", h.getPort, nil, http.MethodGet)
	h.handle(r, "/ports/{id:[0-9]+}", h.updatePort, roles.Operations, http.MethodPut)
	h.handle(r, "/ports/{id:[0-9]+}/berths", h.listBerths, nil, http.MethodGet)
	h.handle(r, "/ports/berths", h.createBerth, roles.Operations, http.MethodPost)
	h.handle(r, "/ports/berths/{id:[0-9]+}", h.updateBerth, roles.Operations, http.MethodPut)
	h.handle(r, "/ports/{id:[0-9]+}/bookings", h.listBookings, nil, http.MethodGet)
	h.handle(r, "/ports/bookings", h.createBooking, roles.Operations, http.MethodPost)
	h.handle(r, "/ports/bookings/{id:[0-9]+}", h.updateBooking, roles.Operations, http.MethodPut)
}

func (h *handler) fleetRoutes(r *mux.Router) {
	h.handle(r, "/fleet/assets", h.listAssets, nil, http.MethodGet)
	h.handle(r, "/fleet/assets", h.createAsset, roles.Operations, http.MethodPost)
	h.handle(r, "/fleet/assets/availability", h.assetAvailability, nil, http.MethodGet)
	h.handle(r, "/fleet/utilization", h.fleetUtilization, nil, http.MethodGet)
	h.handle(r, "/fleet/assets/{id:[0-9]+}", h.getAsset, nil, http.MethodGet)
	h.handle(r, "/fleet/assets/{id:[0-9]+}", h.updateAsset, roles.Operations, http.MethodPut)
	h.handle(r, "/fleet/dispatches", h.listDispatches, nil, http.MethodGet)
	h.handle(r, "/fleet/dispatches", h.createDispatch, roles.Operations, http.MethodPost)
	h.handle(r, "/fleet/dispatches/{id:[0-9]+}", h.updateDispatch, roles.Operations, http.MethodPut)
	h.handle(r, "/fleet/maintenance", h.listMaintenance, nil, http.MethodGet)
	h.handle(r, "/fleet/maintenance", h.scheduleMaintenance, roles.Operations, http.MethodPost)
	h.handle(r, "/fleet/maintenance/{id:[0-9]+}", h.updateMaintenance, roles.Operations, http.MethodPut)
}

func (h *handler) corridorRoutes(r *mux.Router) {
	h.handle(r, "/corridors", h.listCorridors, nil, http.MethodGet)
	h.handle(r, "/corridors", h.createCorridor, roles.Operations, http.MethodPost)
	h.handle(r, "/corridors/{id:[0-9]+}", h.getCorridor, nil, http.MethodGet)
	h.handle(r, "/corridors/{id:[0-9]+}", h.updateCorridor, roles.Operations, http.MethodPut)
	h.handle(r, "/corridors/{id:[0-9]+}/geofences", h.listGeofences, nil, http.MethodGet)
	h.handle(r, "/corridors/geofences", h.createGeofence, roles.Operations, http.MethodPost)
	h.handle(r, "/corridors/geofences/{id:[0-9]+}", h.updateGeofence, roles.Operations, http.MethodPut)
}

// vessels

func (h *handler) listVessels(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := paging(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	out, err := h.app.Vessels.List(r.Context(), vessel.Filter{
		Status:     q.Get("status"),
		VesselType: q.Get("vessel_type"),
		Offset:     offset,
		Limit:      limit,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) vesselPositions(w http.ResponseWriter, r *http.Request) {
	out, err := h.app.Vessels.Positions(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) createVessel(w http.ResponseWriter, r *http.Request) {
	var req vessels.CreateRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	v, err := h.app.Vessels.Create(r.Context(), actor(r), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *handler) getVessel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	v, err := h.app.Vessels.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *handler) updateVessel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var upd vessels.Update
	if err := decodeJSON(r.Body, &upd); err != nil {
		h.writeError(w, r, err)
		return
	}
	v, err := h.app.Vessels.Update(r.Context(), actor(r), id, upd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *handler) updateVesselPosition(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var pos vessel.Position
	if err := decodeJSON(r.Body, &pos); err != nil {
		h.writeError(w, r, err)
		return
	}
	v, err := h.app.Vessels.UpdatePosition(r.Context(), id, pos)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *handler) deleteVessel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.app.Vessels.Delete(r.Context(), actor(r), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Vessel deleted successfully")
}

// ports

func (h *handler) listPorts(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := paging(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	out, err := h.app.Ports.List(r.Context(), port.Filter{
		Country: q.Get("country"),
		Status:  q.Get("status"),
		Offset:  offset,
		Limit:   limit,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) congestionSummary(w http.ResponseWriter, r *http.Request) {
	out, err := h.app.Ports.CongestionSummary(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) createPort(w http.ResponseWriter, r *http.Request) {
	var req ports.CreateRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.app.Ports.Create(r.Context(), actor(r), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *handler) getPort(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.app.Ports.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) updatePort(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var upd ports.Update
	if err := decodeJSON(r.Body, &upd); err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.app.Ports.Update(r.Context(), actor(r), id, upd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) listBerths(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := h.app.Ports.Berths(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) createBerth(w http.ResponseWriter, r *http.Request) {
	var req ports.BerthRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	b, err := h.app.Ports.CreateBerth(r.Context(), actor(r), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *handler) updateBerth(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var upd ports.BerthUpdate
	if err := decodeJSON(r.Body, &upd); err != nil {
		h.writeError(w, r, err)
		return
	}
	b, err := h.app.Ports.UpdateBerth(r.Context(), id, upd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *handler) listBookings(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := h.app.Ports.Bookings(r.Context(), id, r.URL.Query().Get("status"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) createBooking(w http.ResponseWriter, r *http.Request) {
	var req ports.BookingRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	b, err := h.app.Ports.CreateBooking(r.Context(), actor(r), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *handler) updateBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var upd ports.BookingUpdate
	if err := decodeJSON(r.Body, &upd); err != nil {
		h.writeError(w, r, err)
		return
	}
	b, err := h.app.Ports.UpdateBooking(r.Context(), id, upd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// fleet

func (h *handler) listAssets(w http.ResponseWriter, r *http.Request) {
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
	q := r.URL.Query()
	out, err := h.app.Fleet.Assets(r.Context(), fleet.Filter{
		AssetType:  q.Get("asset_type"),
		Status:     q.Get("status"),
		CorridorID: corridorID,
		Offset:     offset,
		Limit:      limit,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) createAsset(w http.ResponseWriter, r *http.Request) {
	var req fleetsvc.AssetRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	a, err := h.app.Fleet.CreateAsset(r.Context(), actor(r), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *handler) assetAvailability(w http.ResponseWriter, r *http.Request) {
	out, err := h.app.Fleet.Availability(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) fleetUtilization(w http.ResponseWriter, r *http.Request) {
	out, err := h.app.Fleet.Utilization(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) getAsset(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	a, err := h.app.Fleet.Asset(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *handler) updateAsset(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var upd fleetsvc.AssetUpdate
	if err := decodeJSON(r.Body, &upd); err != nil {
		h.writeError(w, r, err)
		return
	}
	a, err := h.app.Fleet.UpdateAsset(r.Context(), actor(r), id, upd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *handler) listDispatches(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := paging(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	assetID, err := queryInt64(r, "asset_id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	shipmentID, err := queryInt64(r, "shipment_id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := h.app.Fleet.Dispatches(r.Context(), fleet.DispatchFilter{
		AssetID:    assetID,
		ShipmentID: shipmentID,
		Status:     r.URL.Query().Get("status"),
		Offset:     offset,
		Limit:      limit,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) createDispatch(w http.ResponseWriter, r *http.Request) {
	var req fleetsvc.DispatchRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	d, err := h.app.Fleet.Dispatch(r.Context(), actor(r), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (h *handler) updateDispatch(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var upd fleetsvc.DispatchUpdate
	if err := decodeJSON(r.Body, &upd); err != nil {
		h.writeError(w, r, err)
		return
	}
	d, err := h.app.Fleet.UpdateDispatch(r.Context(), actor(r), id, upd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *handler) listMaintenance(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := paging(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	assetID, err := queryInt64(r, "asset_id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	vesselID, err := queryInt64(r, "vessel_id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := h.app.Fleet.Maintenance(r.Context(), fleet.MaintenanceFilter{
		AssetID:  assetID,
		VesselID: vesselID,
		Status:   r.URL.Query().Get("status"),
		Offset:   offset,
		Limit:    limit,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) scheduleMaintenance(w http.ResponseWriter, r *http.Request) {
	var req fleetsvc.MaintenanceRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	m, err := h.app.Fleet.ScheduleMaintenance(r.Context(), actor(r), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *handler) updateMaintenance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var upd fleetsvc.MaintenanceUpdate
	if err := decodeJSON(r.Body, &upd); err != nil {
		h.writeError(w, r, err)
		return
	}
	m, err := h.app.Fleet.UpdateMaintenance(r.Context(), id, upd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// corridors

func (h *handler) listCorridors(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := paging(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := h.app.Corridors.List(r.Context(), corridor.Filter{Status: r.URL.Query().Get("status"), Offset: offset, Limit: limit})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) createCorridor(w http.ResponseWriter, r *http.Request) {
	var req corridors.CreateRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.app.Corridors.Create(r.Context(), actor(r), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *handler) getCorridor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.app.Corridors.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *handler) updateCorridor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var upd corridors.Update
	if err := decodeJSON(r.Body, &upd); err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.app.Corridors.Update(r.Context(), actor(r), id, upd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *handler) listGeofences(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := h.app.Corridors.Geofences(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) createGeofence(w http.ResponseWriter, r *http.Request) {
	var req corridors.GeofenceRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	g, err := h.app.Corridors.CreateGeofence(r.Context(), actor(r), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

func (h *handler) updateGeofence(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var upd corridors.GeofenceUpdate
	if err := decodeJSON(r.Body, &upd); err != nil {
		h.writeError(w, r, err)
		return
	}
	g, err := h.app.Corridors.UpdateGeofence(r.Context(), id, upd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}
