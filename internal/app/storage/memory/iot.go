package memory

import (
	"context"

	"github.com/R3E-Network/sira_platform/internal/app/domain/iot"
)

func (s *Store) CreateDevice(_ context.Context, d iot.Device) (iot.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.devices.exists(func(x iot.Device) bool { return x.DeviceID == d.DeviceID }) {
		return iot.Device{}, conflict("device", "device_id", d.DeviceID)
	}
	stamp(&d.CreatedAt)
	touch(&d.UpdatedAt)
	s.devices.insert(&d, &d.ID)
	return d, nil
}

func (s *Store) UpdateDevice(_ context.Context, d iot.Device) (iot.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.devices.get(d.ID)
	if !ok {
		return iot.Device{}, notFound("device", d.ID)
	}
	if s.devices.exists(func(x iot.Device) bool { return x.ID != d.ID && x.DeviceID == d.DeviceID }) {
		return iot.Device{}, conflict("device", "device_id", d.DeviceID)
	}
	d.CreatedAt = original.CreatedAt
	refresh(&d.UpdatedAt)
	s.devices.put(d.ID, d)
	return d, nil
}

func (s *Store) GetDevice(_ context.Context, id int64) (iot.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.devices.get(id)
	if !ok {
		return iot.Device{}, notFound("device", id)
	}
	return d, nil
}

func (s *Store) GetDeviceByDeviceID(_ context.Context, deviceID string) (iot.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.devices.find(func(x iot.Device) bool { return x.DeviceID == deviceID })
	if !ok {
		return iot.Device{}, notFoundKey("device", deviceID)
	}
	return d, nil
}

func (s *Store) ListDevices(_ context.Context, f iot.Filter) ([]iot.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.devices.filter(func(d iot.Device) bool {
		if f.DeviceType != "" && d.DeviceType != f.DeviceType {
			return false
		}
		if f.Status != "" && d.Status != f.Status {
			return false
		}
		return idMatches(f.ShipmentID, d.ShipmentID)
	}, func(a, b iot.Device) bool { return byName(a.DeviceID, b.DeviceID, a.ID, b.ID) })
	return paginate(out, f.Offset, f.Limit), nil
}

func (s *Store) CreateReading(_ context.Context, r iot.Reading) (iot.Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.devices.get(r.DeviceID); !ok {
		return iot.Reading{}, notFound("device", r.DeviceID)
	}
	stamp(&r.CreatedAt)
	if r.Timestamp.IsZero() {
		r.Timestamp = r.CreatedAt
	}
	s.readings.insert(&r, &r.ID)
	return r, nil
}

// ListReadings keeps the most recent Limit readings and returns them oldest
// first.
func (s *Store) ListReadings(_ context.Context, f iot.ReadingFilter) ([]iot.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.readings.filter(func(r iot.Reading) bool {
		return r.DeviceID == f.DeviceID && timeInRange(r.Timestamp, f.Since, nil)
	}, func(a, b iot.Reading) bool { return olderFirst(a.Timestamp, b.Timestamp, a.ID, b.ID) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[len(out)-f.Limit:]
	}
	return out, nil
}
