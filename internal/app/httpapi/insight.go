package httpapi

import (
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/R3E-Network/sira_platform/internal/app/domain/iot"
	"github.com/R3E-Network/sira_platform/internal/app/domain/market"
	"github.com/R3E-Network/sira_platform/internal/app/domain/roles"
	"github.com/R3E-Network/sira_platform/internal/app/services/analytics"
	iotsvc "github.com/R3E-Network/sira_platform/internal/app/services/iot"
	marketsvc "github.com/R3E-Network/sira_platform/internal/app/services/market"
	apperrors "github.com/R3E-Network/sira_platform/internal/errors"
)

const maxTelemetryBytes = 1 << 20

func (h *handler) marketRoutes(r *mux.Router) {
	h.handle(r, "/market/rates", h.listRates, nil, http.MethodGet)
	h.handle(r, "/market/rates", h.addRate, roles.Operations, http.MethodPost)
	h.handle(r, "/market/rates/benchmark", h.rateBenchmarks, nil, http.MethodGet)
	h.handle(r, "/market/indices", h.listIndices, nil, http.MethodGet)
	h.handle(r, "/market/indices", h.recordIndex, roles.Operations, http.MethodPost)
	h.handle(r, "/market/indices/latest", h.latestIndices, nil, http.MethodGet)
	h.handle(r, "/market/demurrage", h.listDemurrage, nil, http.MethodGet)
	h.handle(r, "/market/demurrage", h.openDemurrage, roles.Operations, http.MethodPost)
	h.handle(r, "/market/demurrage/exposure", h.demurrageExposure, nil, http.MethodGet)
	h.handle(r, "/market/demurrage/{id:[0-9]+}", h.updateDemurrage, roles.Operations, http.MethodPut)
}

func (h *handler) insightRoutes(r *mux.Router) {
	h.handle(r, "/control-tower/overview", h.towerOverview, nil, http.MethodGet)
	h.handle(r, "/control-tower/map-data", h.towerMap, nil, http.MethodGet)
	h.handle(r, "/control-tower/kpis", h.towerKPIs, nil, http.MethodGet)

	h.handle(r, "/reports/alerts/summary", h.alertSummary, roles.Supervisors, http.MethodGet)
	h.handle(r, "/reports/dashboard", h.dashboard, roles.Supervisors, http.MethodGet)
	h.handle(r, "/reports/activity", h.activity, roles.Supervisors, http.MethodGet)
}

func (h *handler) iotRoutes(r *mux.Router) {
	h.handle(r, "/iot/devices", h.listDevices, nil, http.MethodGet)
	h.handle(r, "/iot/devices", h.createDevice, roles.Operations, http.MethodPost)
	h.handle(r, "/iot/devices/{id:[0-9]+}", h.getDevice, nil, http.MethodGet)
	h.handle(r, "/iot/devices/{id:[0-9]+}", h.updateDevice, roles.Operations, http.MethodPut)
	h.handle(r, "/iot/devices/{id:[0-9]+}/telemetry", h.listReadings, nil, http.MethodGet)
	h.handle(r, "/iot/devices/{id:[0-9]+}/telemetry", h.ingestTelemetry, roles.Operations, http.MethodPost)
	h.handle(r, "/iot/devices/{id:[0-9]+}/integrity", h.deviceIntegrity, nil, http.MethodGet)
}

func (h *handler) analyticsRoutes(r *mux.Router) {
	h.handle(r, "/analytics/demurrage-risk", h.demurrageRisk, nil, http.MethodPost)
	h.handle(r, "/analytics/eta", h.etaPrediction, nil, http.MethodPost)
	h.handle(r, "/analytics/route-deviation", h.routeDeviation, nil, http.MethodPost)
	h.handle(r, "/analytics/volume-check", h.volumeCheck, nil, http.MethodPost)
	h.handle(r, "/analytics/speed-check", h.speedCheck, nil, http.MethodPost)
	h.handle(r, "/analytics/dwell-check", h.dwellCheck, nil, http.MethodPost)
}

// market

func (h *handler) listRates(w http.ResponseWriter, r *http.Request) {
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
	since, err := queryTime(r, "since")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	out, err := h.app.Market.Rates(r.Context(), market.RateFilter{
		LaneLike:   q.Get("lane"),
		Mode:       q.Get("mode"),
		CorridorID: corridorID,
		RateType:   q.Get("rate_type"),
		Since:      since,
		Offset:     offset,
		Limit:      limit,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) addRate(w http.ResponseWriter, r *http.Request) {
	var req marketsvc.RateRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	rate, err := h.app.Market.AddRate(r.Context(), actor(r), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rate)
}

func (h *handler) rateBenchmarks(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", 0)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	out, err := h.app.Market.Benchmarks(r.Context(), q.Get("lane"), q.Get("mode"), days)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) listIndices(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := paging(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	days, err := queryInt(r, "days", 0)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	out, err := h.app.Market.Indices(r.Context(), q.Get("index_name"), q.Get("index_type"), days, offset, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) recordIndex(w http.ResponseWriter, r *http.Request) {
	var req marketsvc.IndexRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	idx, err := h.app.Market.RecordIndex(r.Context(), actor(r), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, idx)
}

func (h *handler) latestIndices(w http.ResponseWriter, r *http.Request) {
	out, err := h.app.Market.LatestIndices(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) listDemurrage(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := paging(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	shipmentID, err := queryInt64(r, "shipment_id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	since, err := queryTime(r, "since")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := h.app.Market.Demurrage(r.Context(), market.DemurrageFilter{
		ShipmentID: shipmentID,
		Status:     r.URL.Query().Get("status"),
		Since:      since,
		Offset:     offset,
		Limit:      limit,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) openDemurrage(w http.ResponseWriter, r *http.Request) {
	var req marketsvc.DemurrageRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	rec, err := h.app.Market.OpenDemurrage(r.Context(), actor(r), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *handler) demurrageExposure(w http.ResponseWriter, r *http.Request) {
	out, err := h.app.Market.Exposure(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) updateDemurrage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var upd marketsvc.DemurrageUpdate
	if err := decodeJSON(r.Body, &upd); err != nil {
		h.writeError(w, r, err)
		return
	}
	rec, err := h.app.Market.UpdateDemurrage(r.Context(), actor(r), id, upd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// control tower and reports

func (h *handler) towerOverview(w http.ResponseWriter, r *http.Request) {
	out, err := h.app.ControlTower.Overview(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) towerMap(w http.ResponseWriter, r *http.Request) {
	out, err := h.app.ControlTower.MapData(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) towerKPIs(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", 0)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := h.app.ControlTower.KPIs(r.Context(), days)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) alertSummary(w http.ResponseWriter, r *http.Request) {
	start, err := queryTime(r, "start_date")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	end, err := queryTime(r, "end_date")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	switch r.URL.Query().Get("format") {
	case "", "json":
		out, err := h.app.Reports.AlertSummary(r.Context(), start, end)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	case "pdf":
		doc, name, err := h.app.Reports.AlertSummaryPDF(r.Context(), start, end)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writePDF(w, doc, name)
	default:
		h.writeError(w, r, apperrors.Validation("format must be json or pdf"))
	}
}

func (h *handler) dashboard(w http.ResponseWriter, r *http.Request) {
	out, err := h.app.Reports.Dashboard(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) activity(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", 0)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := h.app.Reports.Activity(r.Context(), days)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// iot

func (h *handler) listDevices(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := paging(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	shipmentID, err := queryInt64(r, "shipment_id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	out, err := h.app.IoT.Devices(r.Context(), iot.Filter{
		DeviceType: q.Get("device_type"),
		Status:     q.Get("status"),
		ShipmentID: shipmentID,
		Offset:     offset,
		Limit:      limit,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) createDevice(w http.ResponseWriter, r *http.Request) {
	var req iotsvc.DeviceRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	d, err := h.app.IoT.CreateDevice(r.Context(), actor(r), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (h *handler) getDevice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	d, err := h.app.IoT.Device(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *handler) updateDevice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var upd iotsvc.DeviceUpdate
	if err := decodeJSON(r.Body, &upd); err != nil {
		h.writeError(w, r, err)
		return
	}
	d, err := h.app.IoT.UpdateDevice(r.Context(), actor(r), id, upd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *handler) listReadings(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := h.app.IoT.Readings(r.Context(), id, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// ingestTelemetry hands the raw device payload to the field map of the device.
func (h *handler) ingestTelemetry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer r.Body.Close()
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxTelemetryBytes))
	if err != nil {
		h.writeError(w, r, apperrors.BadRequest("telemetry payload too large"))
		return
	}
	if len(payload) == 0 {
		h.writeError(w, r, apperrors.Validation("request body is required"))
		return
	}
	res, err := h.app.IoT.Ingest(r.Context(), actor(r), id, payload)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *handler) deviceIntegrity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := h.app.IoT.Integrity(r.Context(), id, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// analytics

func (h *handler) demurrageRisk(w http.ResponseWriter, r *http.Request) {
	var in analytics.DemurrageInput
	if err := decodeJSON(r.Body, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analytics.ScoreDemurrage(in))
}

func (h *handler) etaPrediction(w http.ResponseWriter, r *http.Request) {
	var in analytics.ETAInput
	if err := decodeJSON(r.Body, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analytics.PredictETA(in, time.Now().UTC()))
}

func (h *handler) routeDeviation(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		CurrentLat     float64           `json:"current_lat"`
		CurrentLng     float64           `json:"current_lng"`
		Route          []analytics.Point `json:"route"`
		MaxDeviationKm float64           `json:"max_deviation_km"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		h.writeError(w, r, err)
		return
	}
	pos := analytics.Point{Lat: payload.CurrentLat, Lng: payload.CurrentLng}
	writeJSON(w, http.StatusOK, analytics.CheckRouteDeviation(pos, payload.Route, payload.MaxDeviationKm))
}

func (h *handler) volumeCheck(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		MeasuredVolume float64 `json:"measured_volume"`
		ExpectedVolume float64 `json:"expected_volume"`
		TolerancePct   float64 `json:"tolerance_pct"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analytics.CheckVolume(payload.MeasuredVolume, payload.ExpectedVolume, payload.TolerancePct))
}

func (h *handler) speedCheck(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		CurrentSpeed float64 `json:"current_speed"`
		Mode         string  `json:"mode"`
		MaxSpeed     float64 `json:"max_speed"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		h.writeError(w, r, err)
		return
	}
	if payload.CurrentSpeed < 0 {
		h.writeError(w, r, apperrors.Validation("current_speed must not be negative"))
		return
	}
	writeJSON(w, http.StatusOK, analytics.CheckSpeed(payload.CurrentSpeed, payload.Mode, payload.MaxSpeed))
}

func (h *handler) dwellCheck(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		EntryTime       *time.Time `json:"entry_time"`
		Location        string     `json:"location"`
		MaxDwellMinutes int        `json:"max_dwell_minutes"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		h.writeError(w, r, err)
		return
	}
	if payload.EntryTime == nil {
		h.writeError(w, r, apperrors.Validation("entry_time is required"))
		return
	}
	writeJSON(w, http.StatusOK, analytics.CheckDwell(*payload.EntryTime, payload.Location, payload.MaxDwellMinutes, time.Now().UTC()))
}
