package postgres

import (
	"context"

	"github.com/R3E-Network/sira_platform/internal/app/domain/iot"
)

var (
	devicesTable  = newWriteSet("iot_devices", iot.Device{})
	readingsTable = newWriteSet("telemetry_readings", iot.Reading{})
)

func (s *Store) CreateDevice(ctx context.Context, d iot.Device) (iot.Device, error) {
	stamp(&d.CreatedAt, &d.UpdatedAt)
	id, err := s.insert(ctx, devicesTable, d)
	if err != nil {
		return iot.Device{}, err
	}
	d.ID = id
	return d, nil
}

func (s *Store) UpdateDevice(ctx context.Context, d iot.Device) (iot.Device, error) {
	refresh(&d.UpdatedAt)
	if err := s.update(ctx, devicesTable, d.ID, d); err != nil {
		return iot.Device{}, err
	}
	return s.GetDevice(ctx, d.ID)
}

func (s *Store) GetDevice(ctx context.Context, id int64) (iot.Device, error) {
	var d iot.Device
	err := s.getByID(ctx, &d, "iot_devices", id)
	return d, err
}

func (s *Store) GetDeviceByDeviceID(ctx context.Context, deviceID string) (iot.Device, error) {
	var d iot.Device
	err := s.getBy(ctx, &d, "iot_devices", "device_id", deviceID)
	return d, err
}

func (s *Store) ListDevices(ctx context.Context, f iot.Filter) ([]iot.Device, error) {
	w := &where{}
	w.eq("device_type", f.DeviceType)
	w.eq("status", f.Status)
	w.id("shipment_id", f.ShipmentID)
	out := []iot.Device{}
	err := s.list(ctx, &out, "iot_devices", w, "device_id, id", f.Offset, f.Limit)
	return out, err
}

func (s *Store) CreateReading(ctx context.Context, r iot.Reading) (iot.Reading, error) {
	stamp(&r.CreatedAt, nil)
	if r.Timestamp.IsZero() {
		r.Timestamp = r.CreatedAt
	}
	id, err := s.insert(ctx, readingsTable, r)
	if err != nil {
		return iot.Reading{}, err
	}
	r.ID = id
	return r, nil
}

// ListReadings selects the most recent Limit readings and returns them in
// chronological order.
func (s *Store) ListReadings(ctx context.Context, f iot.ReadingFilter) ([]iot.Reading, error) {
	w := &where{}
	w.add("device_id = ?", f.DeviceID)
	w.since(`"timestamp"`, f.Since)
	inner := "SELECT * FROM telemetry_readings" + w.String() + ` ORDER BY "timestamp" DESC, id DESC` + w.page(0, f.Limit)
	out := []iot.Reading{}
	err := s.db.SelectContext(ctx, &out, "SELECT * FROM ("+inner+`) r ORDER BY r."timestamp", r.id`, w.args...)
	return out, err
}
