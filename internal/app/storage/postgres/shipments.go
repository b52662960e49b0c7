package postgres

import (
	"context"

	"github.com/R3E-Network/sira_platform/internal/app/domain/shipment"
)

var (
	shipmentsTable  = newWriteSet("shipments", shipment.Shipment{})
	milestonesTable = newWriteSet("shipment_milestones", shipment.Milestone{}, "shipment_id")
	custodyTable    = newWriteSet("custody_events", shipment.CustodyEvent{})
	documentsTable  = newWriteSet("shipment_documents", shipment.Document{}, "shipment_id")
	exceptionsTable = newWriteSet("shipment_exceptions", shipment.Exception{}, "shipment_id")
)

func (s *Store) CreateShipment(ctx context.Context, sh shipment.Shipment) (shipment.Shipment, error) {
	stamp(&sh.CreatedAt, &sh.UpdatedAt)
	id, err := s.insert(ctx, shipmentsTable, sh)
	if err != nil {
		return shipment.Shipment{}, err
	}
	sh.ID = id
	return sh, nil
}

func (s *Store) UpdateShipment(ctx context.Context, sh shipment.Shipment) (shipment.Shipment, error) {
	refresh(&sh.UpdatedAt)
	if err := s.update(ctx, shipmentsTable, sh.ID, sh); err != nil {
		return shipment.Shipment{}, err
	}
	return s.GetShipment(ctx, sh.ID)
}

func (s *Store) GetShipment(ctx context.Context, id int64) (shipment.Shipment, error) {
	var sh shipment.Shipment
	err := s.getByID(ctx, &sh, "shipments", id)
	return sh, err
}

func (s *Store) GetShipmentByRef(ctx context.Context, ref string) (shipment.Shipment, error) {
	var sh shipment.Shipment
	err := s.getBy(ctx, &sh, "shipments", "shipment_ref", ref)
	return sh, err
}

func (s *Store) ListShipments(ctx context.Context, f shipment.Filter) ([]shipment.Shipment, error) {
	w := &where{}
	w.eq("status", f.Status)
	w.id("corridor_id", f.CorridorID)
	w.id("vessel_id", f.VesselID)
	w.eq("cargo_type", f.CargoType)
	if f.ActiveOnly {
		w.raw("status NOT IN ('completed', 'cancelled')")
	}
	if f.MinRiskScore != nil {
		w.add("demurrage_risk_score >= ?", *f.MinRiskScore)
	}
	order := "created_at DESC, id DESC"
	if f.ActiveOnly || f.MinRiskScore != nil {
		order = "demurrage_risk_score DESC, " + order
	}
	out := []shipment.Shipment{}
	err := s.list(ctx, &out, "shipments", w, order, f.Offset, f.Limit)
	return out, err
}

func (s *Store) CreateMilestone(ctx context.Context, m shipment.Milestone) (shipment.Milestone, error) {
	stamp(&m.CreatedAt, nil)
	id, err := s.insert(ctx, milestonesTable, m)
	if err != nil {
		return shipment.Milestone{}, err
	}
	m.ID = id
	return m, nil
}

func (s *Store) UpdateMilestone(ctx context.Context, m shipment.Milestone) (shipment.Milestone, error) {
	if err := s.update(ctx, milestonesTable, m.ID, m); err != nil {
		return shipment.Milestone{}, err
	}
	return s.GetMilestone(ctx, m.ID)
}

func (s *Store) GetMilestone(ctx context.Context, id int64) (shipment.Milestone, error) {
	var m shipment.Milestone
	err := s.getByID(ctx, &m, "shipment_milestones", id)
	return m, err
}

func (s *Store) ListMilestones(ctx context.Context, shipmentID int64) ([]shipment.Milestone, error) {
	w := &where{}
	w.add("shipment_id = ?", shipmentID)
	out := []shipment.Milestone{}
	err := s.list(ctx, &out, "shipment_milestones", w, "planned_time ASC NULLS LAST, id", 0, 0)
	return out, err
}

func (s *Store) CreateCustodyEvent(ctx context.Context, e shipment.CustodyEvent) (shipment.CustodyEvent, error) {
	stamp(&e.CreatedAt, nil)
	if e.Timestamp.IsZero() {
		e.Timestamp = e.CreatedAt
	}
	id, err := s.insert(ctx, custodyTable, e)
	if err != nil {
		return shipment.CustodyEvent{}, err
	}
	e.ID = id
	return e, nil
}

func (s *Store) ListCustodyEvents(ctx context.Context, shipmentID int64) ([]shipment.CustodyEvent, error) {
	w := &where{}
	w.add("shipment_id = ?", shipmentID)
	out := []shipment.CustodyEvent{}
	err := s.list(ctx, &out, "custody_events", w, `"timestamp", id`, 0, 0)
	return out, err
}

func (s *Store) CreateDocument(ctx context.Context, d shipment.Document) (shipment.Document, error) {
	stamp(&d.CreatedAt, &d.UpdatedAt)
	id, err := s.insert(ctx, documentsTable, d)
	if err != nil {
		return shipment.Document{}, err
	}
	d.ID = id
	return d, nil
}

func (s *Store) UpdateDocument(ctx context.Context, d shipment.Document) (shipment.Document, error) {
	refresh(&d.UpdatedAt)
	if err := s.update(ctx, documentsTable, d.ID, d); err != nil {
		return shipment.Document{}, err
	}
	return s.GetDocument(ctx, d.ID)
}

func (s *Store) GetDocument(ctx context.Context, id int64) (shipment.Document, error) {
	var d shipment.Document
	err := s.getByID(ctx, &d, "shipment_documents", id)
	return d, err
}

func (s *Store) ListDocuments(ctx context.Context, shipmentID int64) ([]shipment.Document, error) {
	w := &where{}
	w.add("shipment_id = ?", shipmentID)
	out := []shipment.Document{}
	err := s.list(ctx, &out, "shipment_documents", w, "created_at, id", 0, 0)
	return out, err
}

func (s *Store) CreateException(ctx context.Context, e shipment.Exception) (shipment.Exception, error) {
	stamp(&e.CreatedAt, &e.UpdatedAt)
	id, err := s.insert(ctx, exceptionsTable, e)
	if err != nil {
		return shipment.Exception{}, err
	}
	e.ID = id
	return e, nil
}

func (s *Store) UpdateException(ctx context.Context, e shipment.Exception) (shipment.Exception, error) {
	refresh(&e.UpdatedAt)
	if err := s.update(ctx, exceptionsTable, e.ID, e); err != nil {
		return shipment.Exception{}, err
	}
	return s.GetException(ctx, e.ID)
}

func (s *Store) GetException(ctx context.Context, id int64) (shipment.Exception, error) {
	var e shipment.Exception
	err := s.getByID(ctx, &e, "shipment_exceptions", id)
	return e, err
}

func (s *Store) ListExceptions(ctx context.Context, f shipment.ExceptionFilter) ([]shipment.Exception, error) {
	w := &where{}
	w.id("shipment_id", f.ShipmentID)
	w.in("status", f.Statuses)
	w.eq("severity", f.Severity)
	w.since("created_at", f.Since)
	out := []shipment.Exception{}
	err := s.list(ctx, &out, "shipment_exceptions", w, "created_at DESC, id DESC", 0, f.Limit)
	return out, err
}
