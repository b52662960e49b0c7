// Package iot registers trackers and sensors and ingests their telemetry.
package iot

import (
	"context"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/R3E-Network/sira_platform/internal/app/core/service"
	"github.com/R3E-Network/sira_platform/internal/app/domain/iot"
	"github.com/R3E-Network/sira_platform/internal/app/domain/shipment"
	"github.com/R3E-Network/sira_platform/internal/app/domain/user"
	"github.com/R3E-Network/sira_platform/internal/app/services/eventbus"
	"github.com/R3E-Network/sira_platform/internal/app/services/shipments"
	"github.com/R3E-Network/sira_platform/internal/app/storage"
	apperrors "github.com/R3E-Network/sira_platform/internal/errors"
	"github.com/R3E-Network/sira_platform/pkg/logger"
)

const (
	DefaultReportingInterval = 300
	DefaultReadingLimit      = 100
	maxReadingLimit          = 1000
)

// ExceptionReporter raises shipment exceptions for bound devices.
type ExceptionReporter interface {
	ReportException(ctx context.Context, actor user.User, shipmentID int64, req shipments.ExceptionRequest) (shipment.Exception, error)
}

type Service struct {
	store      storage.IoTStore
	exceptions ExceptionReporter
	bus        eventbus.Publisher
	log        *logger.Logger
	now        func() time.Time
}

func New(store storage.IoTStore, exceptions ExceptionReporter, bus eventbus.Publisher, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("iot")
	}
	if bus == nil {
		bus = eventbus.Nop{}
	}
	return &Service{store: store, exceptions: exceptions, bus: bus, log: log, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) Descriptor() service.Descriptor {
	return service.Descriptor{
		Name:         "iot",
		Domain:       "logistics",
		Layer:        service.LayerRealtime,
		Capabilities: []string{"devices", "telemetry", "integrity"},
	}
}

type DeviceRequest struct {
	DeviceID             string   `json:"device_id"`
	DeviceType           string   `json:"device_type"`
	Manufacturer         string   `json:"manufacturer"`
	Model                string   `json:"model"`
	FirmwareVersion      string   `json:"firmware_version"`
	SIMICCID             string   `json:"sim_iccid"`
	AssetID              *int64   `json:"asset_id"`
	VesselID             *int64   `json:"vessel_id"`
	ShipmentID           *int64   `json:"shipment_id"`
	InstallationLocation string   `json:"installation_location"`
	BatteryLevel         *float64 `json:"battery_level"`
	ReportingIntervalSec int      `json:"reporting_interval_sec"`
	AlertThresholds      string   `json:"alert_thresholds"`
	FieldMap             string   `json:"field_map"`
}

type DeviceUpdate struct {
	DeviceType           *string  `json:"device_type"`
	FirmwareVersion      *string  `json:"firmware_version"`
	AssetID              *int64   `json:"asset_id"`
	VesselID             *int64   `json:"vessel_id"`
	ShipmentID           *int64   `json:"shipment_id"`
	InstallationLocation *string  `json:"installation_location"`
	Status               *string  `json:"status"`
	BatteryLevel         *float64 `json:"battery_level"`
	SignalStrength       *float64 `json:"signal_strength"`
	ReportingIntervalSec *int     `json:"reporting_interval_sec"`
	AlertThresholds      *string  `json:"alert_thresholds"`
	FieldMap             *string  `json:"field_map"`
}

func (s *Service) Devices(ctx context.Context, f iot.Filter) ([]iot.Device, error) {
	return s.store.ListDevices(ctx, f)
}

func (s *Service) Device(ctx context.Context, id int64) (iot.Device, error) {
	d, err := s.store.GetDevice(ctx, id)
	if err != nil {
		return iot.Device{}, service.Translate(err, "Device")
	}
	return d, nil
}

func (s *Service) CreateDevice(ctx context.Context, actor user.User, req DeviceRequest) (iot.Device, error) {
	deviceID := strings.TrimSpace(req.DeviceID)
	switch {
	case deviceID == "" || len(deviceID) > 100:
		return iot.Device{}, apperrors.Validation("device_id must be 1-100 characters")
	case strings.TrimSpace(req.DeviceType) == "" || len(req.DeviceType) > 50:
		return iot.Device{}, apperrors.Validation("device_type must be 1-50 characters")
	case req.ReportingIntervalSec < 0:
		return iot.Device{}, apperrors.Validation("reporting_interval_sec must not be negative")
	}
	if err := checkObject("alert_thresholds", req.AlertThresholds); err != nil {
		return iot.Device{}, err
	}
	if err := checkObject("field_map", req.FieldMap); err != nil {
		return iot.Device{}, err
	}
	interval := req.ReportingIntervalSec
	if interval == 0 {
		interval = DefaultReportingInterval
	}
	now := s.now()
	created, err := s.store.CreateDevice(ctx, iot.Device{
		DeviceID:             deviceID,
		DeviceType:           req.DeviceType,
		Manufacturer:         req.Manufacturer,
		Model:                req.Model,
		FirmwareVersion:      req.FirmwareVersion,
		SIMICCID:             req.SIMICCID,
		AssetID:              req.AssetID,
		VesselID:             req.VesselID,
		ShipmentID:           req.ShipmentID,
		InstallationLocation: req.InstallationLocation,
		Status:               "active",
		BatteryLevel:         req.BatteryLevel,
		ReportingIntervalSec: interval,
		AlertThresholds:      req.AlertThresholds,
		FieldMap:             req.FieldMap,
		CreatedAt:            now,
		UpdatedAt:            now,
	})
	if err != nil {
		if err = service.Translate(err, "Device"); apperrors.Is(err, apperrors.CodeConflict) {
			return iot.Device{}, apperrors.Conflict("Device ID already registered")
		}
		return iot.Device{}, err
	}
	s.log.WithField("device_id", created.DeviceID).Infof("device registered by %s", actor.Username)
	return created, nil
}

func (s *Service) UpdateDevice(ctx context.Context, actor user.User, id int64, upd DeviceUpdate) (iot.Device, error) {
	d, err := s.Device(ctx, id)
	if err != nil {
		return iot.Device{}, err
	}
	if upd.Status != nil && !iot.ValidStatus(*upd.Status) {
		return iot.Device{}, apperrors.Validation("status must be one of active, offline, maintenance, decommissioned")
	}
	if upd.ReportingIntervalSec != nil && *upd.ReportingIntervalSec <= 0 {
		return iot.Device{}, apperrors.Validation("reporting_interval_sec must be positive")
	}
	if upd.AlertThresholds != nil {
		if err := checkObject("alert_thresholds", *upd.AlertThresholds); err != nil {
			return iot.Device{}, err
		}
	}
	if upd.FieldMap != nil {
		if err := checkObject("field_map", *upd.FieldMap); err != nil {
			return iot.Device{}, err
		}
	}
	service.Set(&d.DeviceType, upd.DeviceType)
	service.Set(&d.FirmwareVersion, upd.FirmwareVersion)
	service.SetPtr(&d.AssetID, upd.AssetID)
	service.SetPtr(&d.VesselID, upd.VesselID)
	service.SetPtr(&d.ShipmentID, upd.ShipmentID)
	service.Set(&d.InstallationLocation, upd.InstallationLocation)
	service.Set(&d.Status, upd.Status)
	service.SetPtr(&d.BatteryLevel, upd.BatteryLevel)
	service.SetPtr(&d.SignalStrength, upd.SignalStrength)
	service.Set(&d.ReportingIntervalSec, upd.ReportingIntervalSec)
	service.Set(&d.AlertThresholds, upd.AlertThresholds)
	service.Set(&d.FieldMap, upd.FieldMap)
	d.UpdatedAt = s.now()

	saved, err := s.store.UpdateDevice(ctx, d)
	if err != nil {
		return iot.Device{}, service.Translate(err, "Device")
	}
	s.log.WithField("device_id", saved.DeviceID).Infof("device updated by %s", actor.Username)
	return saved, nil
}

// Readings returns the most recent limit readings, oldest first.
func (s *Service) Readings(ctx context.Context, id int64, limit int) ([]iot.Reading, error) {
	if _, err := s.Device(ctx, id); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultReadingLimit
	}
	if limit > maxReadingLimit {
		limit = maxReadingLimit
	}
	return s.store.ListReadings(ctx, iot.ReadingFilter{DeviceID: id, Limit: limit})
}

// checkObject accepts an empty value or a JSON object.
func checkObject(field, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	if !gjson.Valid(raw) || !gjson.Parse(raw).IsObject() {
		return apperrors.Validation(field + " must be a JSON object")
	}
	return nil
}
