package memory

import (
	"context"

	"github.com/R3E-Network/sira_platform/internal/app/domain/shipment"
)

func (s *Store) CreateShipment(_ context.Context, sh shipment.Shipment) (shipment.Shipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shipments.exists(func(x shipment.Shipment) bool { return x.ShipmentRef == sh.ShipmentRef }) {
		return shipment.Shipment{}, conflict("shipment", "shipment_ref", sh.ShipmentRef)
	}
	stamp(&sh.CreatedAt)
	touch(&sh.UpdatedAt)
	s.shipments.insert(&sh, &sh.ID)
	return sh, nil
}

func (s *Store) UpdateShipment(_ context.Context, sh shipment.Shipment) (shipment.Shipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.shipments.get(sh.ID)
	if !ok {
		return shipment.Shipment{}, notFound("shipment", sh.ID)
	}
	if s.shipments.exists(func(x shipment.Shipment) bool { return x.ID != sh.ID && x.ShipmentRef == sh.ShipmentRef }) {
		return shipment.Shipment{}, conflict("shipment", "shipment_ref", sh.ShipmentRef)
	}
	sh.CreatedAt = original.CreatedAt
	refresh(&sh.UpdatedAt)
	s.shipments.put(sh.ID, sh)
	return sh, nil
}

func (s *Store) GetShipment(_ context.Context, id int64) (shipment.Shipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sh, ok := s.shipments.get(id)
	if !ok {
		return shipment.Shipment{}, notFound("shipment", id)
	}
	return sh, nil
}

func (s *Store) GetShipmentByRef(_ context.Context, ref string) (shipment.Shipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sh, ok := s.shipments.find(func(x shipment.Shipment) bool { return x.ShipmentRef == ref })
	if !ok {
		return shipment.Shipment{}, notFoundKey("shipment", ref)
	}
	return sh, nil
}

// ListShipments orders by demurrage risk when MinRiskScore or ActiveOnly is
// set, newest first otherwise.
func (s *Store) ListShipments(_ context.Context, f shipment.Filter) ([]shipment.Shipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byRisk := f.ActiveOnly || f.MinRiskScore != nil
	out := s.shipments.filter(func(sh shipment.Shipment) bool {
		if f.Status != "" && sh.Status != f.Status {
			return false
		}
		if !idMatches(f.CorridorID, sh.CorridorID) || !idMatches(f.VesselID, sh.VesselID) {
			return false
		}
		if f.CargoType != "" && sh.CargoType != f.CargoType {
			return false
		}
		if f.ActiveOnly && !sh.Active() {
			return false
		}
		return f.MinRiskScore == nil || sh.DemurrageRiskScore >= *f.MinRiskScore
	}, func(a, b shipment.Shipment) bool {
		if byRisk && a.DemurrageRiskScore != b.DemurrageRiskScore {
			return a.DemurrageRiskScore > b.DemurrageRiskScore
		}
		return newerFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
	})
	return paginate(out, f.Offset, f.Limit), nil
}

func (s *Store) CreateMilestone(_ context.Context, m shipment.Milestone) (shipment.Milestone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.shipments.get(m.ShipmentID); !ok {
		return shipment.Milestone{}, notFound("shipment", m.ShipmentID)
	}
	stamp(&m.CreatedAt)
	s.milestones.insert(&m, &m.ID)
	return m, nil
}

func (s *Store) UpdateMilestone(_ context.Context, m shipment.Milestone) (shipment.Milestone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.milestones.get(m.ID)
	if !ok {
		return shipment.Milestone{}, notFound("milestone", m.ID)
	}
	m.CreatedAt = original.CreatedAt
	m.ShipmentID = original.ShipmentID
	s.milestones.put(m.ID, m)
	return m, nil
}

func (s *Store) GetMilestone(_ context.Context, id int64) (shipment.Milestone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.milestones.get(id)
	if !ok {
		return shipment.Milestone{}, notFound("milestone", id)
	}
	return m, nil
}

// ListMilestones orders by planned time, unplanned milestones last.
func (s *Store) ListMilestones(_ context.Context, shipmentID int64) ([]shipment.Milestone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.milestones.filter(func(m shipment.Milestone) bool { return m.ShipmentID == shipmentID },
		func(a, b shipment.Milestone) bool { return nilLast(a.PlannedTime, b.PlannedTime, a.ID, b.ID) }), nil
}

func (s *Store) CreateCustodyEvent(_ context.Context, e shipment.CustodyEvent) (shipment.CustodyEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.shipments.get(e.ShipmentID); !ok {
		return shipment.CustodyEvent{}, notFound("shipment", e.ShipmentID)
	}
	stamp(&e.CreatedAt)
	if e.Timestamp.IsZero() {
		e.Timestamp = e.CreatedAt
	}
	s.custody.insert(&e, &e.ID)
	return e, nil
}

// ListCustodyEvents orders events chronologically.
func (s *Store) ListCustodyEvents(_ context.Context, shipmentID int64) ([]shipment.CustodyEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.custody.filter(func(e shipment.CustodyEvent) bool { return e.ShipmentID == shipmentID },
		func(a, b shipment.CustodyEvent) bool { return olderFirst(a.Timestamp, b.Timestamp, a.ID, b.ID) }), nil
}

func (s *Store) CreateDocument(_ context.Context, d shipment.Document) (shipment.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.shipments.get(d.ShipmentID); !ok {
		return shipment.Document{}, notFound("shipment", d.ShipmentID)
	}
	stamp(&d.CreatedAt)
	touch(&d.UpdatedAt)
	s.documents.insert(&d, &d.ID)
	return d, nil
}

func (s *Store) UpdateDocument(_ context.Context, d shipment.Document) (shipment.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.documents.get(d.ID)
	if !ok {
		return shipment.Document{}, notFound("document", d.ID)
	}
	d.CreatedAt = original.CreatedAt
	d.ShipmentID = original.ShipmentID
	refresh(&d.UpdatedAt)
	s.documents.put(d.ID, d)
	return d, nil
}

func (s *Store) GetDocument(_ context.Context, id int64) (shipment.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.documents.get(id)
	if !ok {
		return shipment.Document{}, notFound("document", id)
	}
	return d, nil
}

func (s *Store) ListDocuments(_ context.Context, shipmentID int64) ([]shipment.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.documents.filter(func(d shipment.Document) bool { return d.ShipmentID == shipmentID },
		func(a, b shipment.Document) bool { return olderFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID) }), nil
}

func (s *Store) CreateException(_ context.Context, e shipment.Exception) (shipment.Exception, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.shipments.get(e.ShipmentID); !ok {
		return shipment.Exception{}, notFound("shipment", e.ShipmentID)
	}
	stamp(&e.CreatedAt)
	touch(&e.UpdatedAt)
	s.exceptions.insert(&e, &e.ID)
	return e, nil
}

func (s *Store) UpdateException(_ context.Context, e shipment.Exception) (shipment.Exception, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.exceptions.get(e.ID)
	if !ok {
		return shipment.Exception{}, notFound("exception", e.ID)
	}
	e.CreatedAt = original.CreatedAt
	e.ShipmentID = original.ShipmentID
	refresh(&e.UpdatedAt)
	s.exceptions.put(e.ID, e)
	return e, nil
}

func (s *Store) GetException(_ context.Context, id int64) (shipment.Exception, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.exceptions.get(id)
	if !ok {
		return shipment.Exception{}, notFound("exception", id)
	}
	return e, nil
}

func (s *Store) ListExceptions(_ context.Context, f shipment.ExceptionFilter) ([]shipment.Exception, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.exceptions.filter(func(e shipment.Exception) bool {
		if f.ShipmentID != 0 && e.ShipmentID != f.ShipmentID {
			return false
		}
		if !inSet(e.Status, f.Statuses) {
			return false
		}
		if f.Severity != "" && e.Severity != f.Severity {
			return false
		}
		return timeInRange(e.CreatedAt, f.Since, nil)
	}, func(a, b shipment.Exception) bool { return newerFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID) })
	return paginate(out, 0, f.Limit), nil
}
