package iot

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/tidwall/gjson"

	"github.com/R3E-Network/sira_platform/internal/app/domain/iot"
	"github.com/R3E-Network/sira_platform/internal/app/domain/shipment"
	"github.com/R3E-Network/sira_platform/internal/app/domain/user"
	"github.com/R3E-Network/sira_platform/internal/app/services/analytics"
	"github.com/R3E-Network/sira_platform/internal/app/services/eventbus"
	"github.com/R3E-Network/sira_platform/internal/app/services/shipments"
	apperrors "github.com/R3E-Network/sira_platform/internal/errors"
)

const gapFactor = 3.0

// Payload keys tried when the device has no mapping for a field.
var defaultKeys = map[string][]string{
	"timestamp":     {"timestamp", "ts", "time"},
	"latitude":      {"latitude", "lat"},
	"longitude":     {"longitude", "lng", "lon"},
	"altitude":      {"altitude", "alt"},
	"speed":         {"speed"},
	"heading":       {"heading", "course"},
	"temperature":   {"temperature", "temp"},
	"humidity":      {"humidity"},
	"weight":        {"weight"},
	"fuel_level":    {"fuel_level", "fuel"},
	"battery_level": {"battery_level", "battery"},
	"vibration":     {"vibration"},
	"seal_intact":   {"seal_intact", "seal"},
}

// Breach is a reading value outside a configured threshold.
type Breach struct {
	Field    string  `json:"field"`
	Value    float64 `json:"value"`
	Limit    float64 `json:"limit"`
	Bound    string  `json:"bound"`
	Severity string  `json:"severity"`
}

type IngestResult struct {
	Reading    iot.Reading          `json:"reading"`
	Breaches   []Breach             `json:"breaches"`
	Anomalies  []analytics.Finding  `json:"anomalies"`
	Exceptions []shipment.Exception `json:"exceptions"`
}

// Ingest stores one raw telemetry payload. Fields are pulled with the
// device's field_map: a path starting with "$" is a JSONPath expression,
// anything else a gjson path. Threshold breaches, seal breaks and integrity
// findings against the previous reading raise shipment exceptions when the
// device is bound to a shipment.
func (s *Service) Ingest(ctx context.Context, actor user.User, id int64, payload []byte) (IngestResult, error) {
	d, err := s.Device(ctx, id)
	if err != nil {
		return IngestResult{}, err
	}
	if !gjson.ValidBytes(payload) || !gjson.ParseBytes(payload).IsObject() {
		return IngestResult{}, apperrors.BadRequest("telemetry payload must be a JSON object")
	}
	ex, err := newExtractor(payload, d.FieldMap)
	if err != nil {
		return IngestResult{}, err
	}

	now := s.now()
	r := iot.Reading{
		DeviceID:     d.ID,
		Timestamp:    ex.timestamp("timestamp", now),
		Latitude:     ex.number("latitude"),
		Longitude:    ex.number("longitude"),
		Altitude:     ex.number("altitude"),
		Speed:        ex.number("speed"),
		Heading:      ex.number("heading"),
		Temperature:  ex.number("temperature"),
		Humidity:     ex.number("humidity"),
		Weight:       ex.number("weight"),
		FuelLevel:    ex.number("fuel_level"),
		BatteryLevel: ex.number("battery_level"),
		Vibration:    ex.number("vibration"),
		SealIntact:   ex.boolean("seal_intact"),
		RawPayload:   string(payload),
		CreatedAt:    now,
	}
	if (r.Latitude == nil) != (r.Longitude == nil) {
		return IngestResult{}, apperrors.Validation("latitude and longitude must be sent together")
	}
	reading, err := s.store.CreateReading(ctx, r)
	if err != nil {
		return IngestResult{}, err
	}

	if d.LastSeen == nil || reading.Timestamp.After(*d.LastSeen) {
		ts := reading.Timestamp
		d.LastSeen = &ts
		if reading.Latitude != nil {
			d.LastLat, d.LastLng = reading.Latitude, reading.Longitude
		}
	}
	if reading.BatteryLevel != nil {
		d.BatteryLevel = reading.BatteryLevel
	}
	if d.Status == "offline" {
		d.Status = "active"
	}
	d.UpdatedAt = now
	if d, err = s.store.UpdateDevice(ctx, d); err != nil {
		return IngestResult{}, err
	}

	out := IngestResult{
		Reading:    reading,
		Breaches:   thresholdBreaches(reading, d.AlertThresholds),
		Anomalies:  []analytics.Finding{},
		Exceptions: []shipment.Exception{},
	}
	recent, err := s.store.ListReadings(ctx, iot.ReadingFilter{DeviceID: d.ID, Limit: 2})
	if err != nil {
		return IngestResult{}, err
	}
	if check := analytics.CheckSensorIntegrity(samples(recent), d.ReportingIntervalSec, gapFactor); check.Anomaly {
		out.Anomalies = check.Anomalies
	}
	if len(out.Breaches) == 0 && len(out.Anomalies) == 0 {
		return out, nil
	}

	log := s.log.WithField("device_id", d.DeviceID).WithField("reading_id", reading.ID)
	log.Warnf("telemetry anomaly: %d breaches, %d integrity findings", len(out.Breaches), len(out.Anomalies))
	if d.ShipmentID != nil && s.exceptions != nil {
		for _, req := range exceptionRequests(d, out) {
			e, err := s.exceptions.ReportException(ctx, actor, *d.ShipmentID, req)
			if err != nil {
				log.WithError(err).Warn("raise shipment exception failed")
				continue
			}
			out.Exceptions = append(out.Exceptions, e)
		}
	}
	if err := s.bus.Publish(ctx, eventbus.TelemetryAnomaly, map[string]any{
		"device_id":   d.DeviceID,
		"shipment_id": d.ShipmentID,
		"reading_id":  reading.ID,
		"breaches":    out.Breaches,
		"anomalies":   out.Anomalies,
	}); err != nil {
		log.WithError(err).Warn("publish telemetry anomaly failed")
	}
	return out, nil
}

type Integrity struct {
	DeviceID string `json:"device_id"`
	analytics.IntegrityCheck
}

// Integrity analyses the most recent readings for reporting gaps and
// implausible position jumps.
func (s *Service) Integrity(ctx context.Context, id int64, limit int) (Integrity, error) {
	d, err := s.Device(ctx, id)
	if err != nil {
		return Integrity{}, err
	}
	readings, err := s.Readings(ctx, id, limit)
	if err != nil {
		return Integrity{}, err
	}
	return Integrity{
		DeviceID:       d.DeviceID,
		IntegrityCheck: analytics.CheckSensorIntegrity(samples(readings), d.ReportingIntervalSec, gapFactor),
	}, nil
}

func samples(readings []iot.Reading) []analytics.Sample {
	out := make([]analytics.Sample, len(readings))
	for i, r := range readings {
		out[i] = analytics.Sample{Timestamp: r.Timestamp, Latitude: r.Latitude, Longitude: r.Longitude}
	}
	return out
}

// thresholdBreaches compares a reading with thresholds shaped like
// {"temperature": {"min": 2, "max": 8, "severity": "critical"}}.
// A false seal_intact is always a critical breach.
func thresholdBreaches(r iot.Reading, thresholds string) []Breach {
	out := []Breach{}
	if r.SealIntact != nil && !*r.SealIntact {
		out = append(out, Breach{Field: "seal_intact", Bound: "intact", Severity: "critical"})
	}
	if strings.TrimSpace(thresholds) == "" {
		return out
	}
	values := map[string]*float64{
		"altitude":      r.Altitude,
		"speed":         r.Speed,
		"heading":       r.Heading,
		"temperature":   r.Temperature,
		"humidity":      r.Humidity,
		"weight":        r.Weight,
		"fuel_level":    r.FuelLevel,
		"battery_level": r.BatteryLevel,
		"vibration":     r.Vibration,
	}
	gjson.Parse(thresholds).ForEach(func(key, limits gjson.Result) bool {
		v := values[key.String()]
		if v == nil || !limits.IsObject() {
			return true
		}
		severity := limits.Get("severity").String()
		if !shipment.ValidExceptionSeverity(severity) {
			severity = "high"
		}
		if lo := limits.Get("min"); lo.Exists() && *v < lo.Float() {
			out = append(out, Breach{Field: key.String(), Value: *v, Limit: lo.Float(), Bound: "min", Severity: severity})
		}
		if hi := limits.Get("max"); hi.Exists() && *v > hi.Float() {
			out = append(out, Breach{Field: key.String(), Value: *v, Limit: hi.Float(), Bound: "max", Severity: severity})
		}
		return true
	})
	return out
}

func exceptionRequests(d iot.Device, res IngestResult) []shipments.ExceptionRequest {
	var out []shipments.ExceptionRequest
	for _, b := range res.Breaches {
		req := shipments.ExceptionRequest{ExceptionType: "sensor_threshold", Severity: b.Severity}
		if b.Field == "seal_intact" {
			req.ExceptionType = "seal_breach"
			req.Description = fmt.Sprintf("Device %s reported a broken seal", d.DeviceID)
		} else {
			req.Description = fmt.Sprintf("Device %s: %s %.2f outside %s limit %.2f", d.DeviceID, b.Field, b.Value, b.Bound, b.Limit)
		}
		out = append(out, req)
	}
	for _, f := range res.Anomalies {
		out = append(out, shipments.ExceptionRequest{
			ExceptionType: "sensor_" + f.Type,
			Severity:      f.Severity,
			Description:   fmt.Sprintf("Device %s: %s", d.DeviceID, f.Message),
		})
	}
	return out
}

type extractor struct {
	raw     []byte
	paths   map[string]string
	decoded any
}

func newExtractor(raw []byte, fieldMap string) (*extractor, error) {
	ex := &extractor{raw: raw, paths: map[string]string{}}
	if strings.TrimSpace(fieldMap) == "" {
		return ex, nil
	}
	needsDecode := false
	gjson.Parse(fieldMap).ForEach(func(field, path gjson.Result) bool {
		p := strings.TrimSpace(path.String())
		if p != "" {
			ex.paths[field.String()] = p
			needsDecode = needsDecode || strings.HasPrefix(p, "$")
		}
		return true
	})
	if needsDecode {
		if err := json.Unmarshal(raw, &ex.decoded); err != nil {
			return nil, apperrors.BadRequest("telemetry payload must be a JSON object")
		}
	}
	return ex, nil
}

// value resolves a reading field to a raw JSON value, or nil when absent.
func (e *extractor) value(field string) any {
	if p, ok := e.paths[field]; ok {
		if strings.HasPrefix(p, "$") {
			v, err := jsonpath.Get(p, e.decoded)
			if err != nil {
				return nil
			}
			return v
		}
		if r := gjson.GetBytes(e.raw, p); r.Exists() {
			return r.Value()
		}
		return nil
	}
	for _, key := range defaultKeys[field] {
		if r := gjson.GetBytes(e.raw, key); r.Exists() {
			return r.Value()
		}
	}
	return nil
}

func (e *extractor) number(field string) *float64 {
	var f float64
	switch v := e.value(field).(type) {
	case float64:
		f = v
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	return &f
}

func (e *extractor) boolean(field string) *bool {
	var b bool
	switch v := e.value(field).(type) {
	case bool:
		b = v
	case float64:
		b = v != 0
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return nil
		}
		b = parsed
	default:
		return nil
	}
	return &b
}

// timestamp accepts RFC 3339 strings and unix seconds or milliseconds.
func (e *extractor) timestamp(field string, fallback time.Time) time.Time {
	switch v := e.value(field).(type) {
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t.UTC()
		}
	case float64:
		if v > 1e12 {
			return time.UnixMilli(int64(v)).UTC()
		}
		return time.Unix(int64(v), 0).UTC()
	}
	return fallback
}
