package storage

import (
	"context"
	"time"

	"github.com/R3E-Network/sira_platform/internal/app/domain/alert"
	"github.com/R3E-Network/sira_platform/internal/app/domain/casefile"
	"github.com/R3E-Network/sira_platform/internal/app/domain/corridor"
	"github.com/R3E-Network/sira_platform/internal/app/domain/fleet"
	"github.com/R3E-Network/sira_platform/internal/app/domain/iot"
	"github.com/R3E-Network/sira_platform/internal/app/domain/market"
	"github.com/R3E-Network/sira_platform/internal/app/domain/movement"
	"github.com/R3E-Network/sira_platform/internal/app/domain/notification"
	"github.com/R3E-Network/sira_platform/internal/app/domain/playbook"
	"github.com/R3E-Network/sira_platform/internal/app/domain/port"
	"github.com/R3E-Network/sira_platform/internal/app/domain/shipment"
	"github.com/R3E-Network/sira_platform/internal/app/domain/user"
	"github.com/R3E-Network/sira_platform/internal/app/domain/vessel"
)

// A Limit of zero in any filter means no limit.

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	UpdateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id int64) (user.User, error)
	GetUserByUsername(ctx context.Context, username string) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
	ListUsers(ctx context.Context, f user.Filter) ([]user.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

// MovementStore persists movements and their events.
type MovementStore interface {
	CreateMovement(ctx context.Context, m movement.Movement) (movement.Movement, error)
	UpdateMovement(ctx context.Context, m movement.Movement) (movement.Movement, error)
	GetMovement(ctx context.Context, id int64) (movement.Movement, error)
	ListMovements(ctx context.Context, f movement.Filter) ([]movement.Movement, error)
	DeleteMovement(ctx context.Context, id int64) error

	CreateEvent(ctx context.Context, e movement.Event) (movement.Event, error)
	GetEvent(ctx context.Context, id int64) (movement.Event, error)
	ListEvents(ctx context.Context, f movement.EventFilter) ([]movement.Event, error)
	DeleteEvent(ctx context.Context, id int64) error
}

// AlertStore persists alerts.
type AlertStore interface {
	CreateAlert(ctx context.Context, a alert.Alert) (alert.Alert, error)
	UpdateAlert(ctx context.Context, a alert.Alert) (alert.Alert, error)
	GetAlert(ctx context.Context, id int64) (alert.Alert, error)
	ListAlerts(ctx context.Context, f alert.Filter) ([]alert.Alert, error)
	AlertStats(ctx context.Context, f alert.Filter) (alert.Stats, error)
	CountAlertsByRule(ctx context.Context) (map[string]int, error)
}

// CaseStore persists cases and their evidence.
type CaseStore interface {
	CreateCase(ctx context.Context, c casefile.Case) (casefile.Case, error)
	UpdateCase(ctx context.Context, c casefile.Case) (casefile.Case, error)
	GetCase(ctx context.Context, id int64) (casefile.Case, error)
	ListCases(ctx context.Context, f casefile.Filter) ([]casefile.Case, error)
	CaseStats(ctx context.Context) (casefile.Stats, error)
	CountCasesWithPrefix(ctx context.Context, prefix string) (int, error)

	CreateEvidence(ctx context.Context, e casefile.Evidence) (casefile.Evidence, error)
	UpdateEvidence(ctx context.Context, e casefile.Evidence) (casefile.Evidence, error)
	GetEvidence(ctx context.Context, id int64) (casefile.Evidence, error)
	ListEvidence(ctx context.Context, caseID int64) ([]casefile.Evidence, error)
	DeleteEvidence(ctx context.Context, id int64) error
}

// PlaybookStore persists response playbooks.
type PlaybookStore interface {
	CreatePlaybook(ctx context.Context, p playbook.Playbook) (playbook.Playbook, error)
	UpdatePlaybook(ctx context.Context, p playbook.Playbook) (playbook.Playbook, error)
	GetPlaybook(ctx context.Context, id int64) (playbook.Playbook, error)
	ListPlaybooks(ctx context.Context, f playbook.Filter) ([]playbook.Playbook, error)
}

// NotificationStore persists inbox notifications and delivery preferences.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error)
	ListNotifications(ctx context.Context, f notification.Filter) ([]notification.Notification, error)
	CountUnread(ctx context.Context, userID int64) (int, error)
	MarkNotificationRead(ctx context.Context, userID, id int64, at time.Time) error
	MarkAllNotificationsRead(ctx context.Context, userID int64, at time.Time) (int, error)

	GetPreference(ctx context.Context, userID int64) (notification.Preference, error)
	SavePreference(ctx context.Context, p notification.Preference) (notification.Preference, error)
}

// ShipmentStore persists shipments and their milestones, custody events,
// documents and exceptions.
type ShipmentStore interface {
	CreateShipment(ctx context.Context, s shipment.Shipment) (shipment.Shipment, error)
	UpdateShipment(ctx context.Context, s shipment.Shipment) (shipment.Shipment, error)
	GetShipment(ctx context.Context, id int64) (shipment.Shipment, error)
	GetShipmentByRef(ctx context.Context, ref string) (shipment.Shipment, error)
	ListShipments(ctx context.Context, f shipment.Filter) ([]shipment.Shipment, error)

	CreateMilestone(ctx context.Context, m shipment.Milestone) (shipment.Milestone, error)
	UpdateMilestone(ctx context.Context, m shipment.Milestone) (shipment.Milestone, error)
	GetMilestone(ctx context.Context, id int64) (shipment.Milestone, error)
	ListMilestones(ctx context.Context, shipmentID int64) ([]shipment.Milestone, error)

	CreateCustodyEvent(ctx context.Context, e shipment.CustodyEvent) (shipment.CustodyEvent, error)
	ListCustodyEvents(ctx context.Context, shipmentID int64) ([]shipment.CustodyEvent, error)

	CreateDocument(ctx context.Context, d shipment.Document) (shipment.Document, error)
	UpdateDocument(ctx context.Context, d shipment.Document) (shipment.Document, error)
	GetDocument(ctx context.Context, id int64) (shipment.Document, error)
	ListDocuments(ctx context.Context, shipmentID int64) ([]shipment.Document, error)

	CreateException(ctx context.Context, e shipment.Exception) (shipment.Exception, error)
	UpdateException(ctx context.Context, e shipment.Exception) (shipment.Exception, error)
	GetException(ctx context.Context, id int64) (shipment.Exception, error)
	ListExceptions(ctx context.Context, f shipment.ExceptionFilter) ([]shipment.Exception, error)
}

// VesselStore persists vessels.
type VesselStore interface {
	CreateVessel(ctx context.Context, v vessel.Vessel) (vessel.Vessel, error)
	UpdateVessel(ctx context.Context, v vessel.Vessel) (vessel.Vessel, error)
	GetVessel(ctx context.Context, id int64) (vessel.Vessel, error)
	GetVesselByIMO(ctx context.Context, imo string) (vessel.Vessel, error)
	ListVessels(ctx context.Context, f vessel.Filter) ([]vessel.Vessel, error)
	DeleteVessel(ctx context.Context, id int64) error
}

// PortStore persists ports, berths and berth bookings.
type PortStore interface {
	CreatePort(ctx context.Context, p port.Port) (port.Port, error)
	UpdatePort(ctx context.Context, p port.Port) (port.Port, error)
	GetPort(ctx context.Context, id int64) (port.Port, error)
	GetPortByCode(ctx context.Context, code string) (port.Port, error)
	ListPorts(ctx context.Context, f port.Filter) ([]port.Port, error)

	CreateBerth(ctx context.Context, b port.Berth) (port.Berth, error)
	UpdateBerth(ctx context.Context, b port.Berth) (port.Berth, error)
	GetBerth(ctx context.Context, id int64) (port.Berth, error)
	ListBerths(ctx context.Context, portID int64) ([]port.Berth, error)

	CreateBooking(ctx context.Context, b port.Booking) (port.Booking, error)
	UpdateBooking(ctx context.Context, b port.Booking) (port.Booking, error)
	GetBooking(ctx context.Context, id int64) (port.Booking, error)
	ListBookings(ctx context.Context, f port.BookingFilter) ([]port.Booking, error)
}

// FleetStore persists assets, dispatches and maintenance records.
type FleetStore interface {
	CreateAsset(ctx context.Context, a fleet.Asset) (fleet.Asset, error)
	UpdateAsset(ctx context.Context, a fleet.Asset) (fleet.Asset, error)
	GetAsset(ctx context.Context, id int64) (fleet.Asset, error)
	GetAssetByCode(ctx context.Context, code string) (fleet.Asset, error)
	ListAssets(ctx context.Context, f fleet.Filter) ([]fleet.Asset, error)

	CreateDispatch(ctx context.Context, d fleet.Dispatch) (fleet.Dispatch, error)
	UpdateDispatch(ctx context.Context, d fleet.Dispatch) (fleet.Dispatch, error)
	GetDispatch(ctx context.Context, id int64) (fleet.Dispatch, error)
	ListDispatches(ctx context.Context, f fleet.DispatchFilter) ([]fleet.Dispatch, error)

	CreateMaintenance(ctx context.Context, m fleet.Maintenance) (fleet.Maintenance, error)
	UpdateMaintenance(ctx context.Context, m fleet.Maintenance) (fleet.Maintenance, error)
	GetMaintenance(ctx context.Context, id int64) (fleet.Maintenance, error)
	ListMaintenance(ctx context.Context, f fleet.MaintenanceFilter) ([]fleet.Maintenance, error)
}

// CorridorStore persists corridors and geofences.
type CorridorStore interface {
	CreateCorridor(ctx context.Context, c corridor.Corridor) (corridor.Corridor, error)
	UpdateCorridor(ctx context.Context, c corridor.Corridor) (corridor.Corridor, error)
	GetCorridor(ctx context.Context, id int64) (corridor.Corridor, error)
	GetCorridorByCode(ctx context.Context, code string) (corridor.Corridor, error)
	ListCorridors(ctx context.Context, f corridor.Filter) ([]corridor.Corridor, error)

	CreateGeofence(ctx context.Context, g corridor.Geofence) (corridor.Geofence, error)
	UpdateGeofence(ctx context.Context, g corridor.Geofence) (corridor.Geofence, error)
	GetGeofence(ctx context.Context, id int64) (corridor.Geofence, error)
	ListGeofences(ctx context.Context, corridorID int64) ([]corridor.Geofence, error)
}

// MarketStore persists freight rates, market indices and demurrage records.
type MarketStore interface {
	CreateFreightRate(ctx context.Context, r market.FreightRate) (market.FreightRate, error)
	ListFreightRates(ctx context.Context, f market.RateFilter) ([]market.FreightRate, error)

	CreateMarketIndex(ctx context.Context, i market.Index) (market.Index, error)
	ListMarketIndices(ctx context.Context, f market.IndexFilter) ([]market.Index, error)

	CreateDemurrage(ctx context.Context, d market.DemurrageRecord) (market.DemurrageRecord, error)
	UpdateDemurrage(ctx context.Context, d market.DemurrageRecord) (market.DemurrageRecord, error)
	GetDemurrage(ctx context.Context, id int64) (market.DemurrageRecord, error)
	ListDemurrage(ctx context.Context, f market.DemurrageFilter) ([]market.DemurrageRecord, error)
}

// IoTStore persists devices and telemetry readings.
type IoTStore interface {
	CreateDevice(ctx context.Context, d iot.Device) (iot.Device, error)
	UpdateDevice(ctx context.Context, d iot.Device) (iot.Device, error)
	GetDevice(ctx context.Context, id int64) (iot.Device, error)
	GetDeviceByDeviceID(ctx context.Context, deviceID string) (iot.Device, error)
	ListDevices(ctx context.Context, f iot.Filter) ([]iot.Device, error)

	CreateReading(ctx context.Context, r iot.Reading) (iot.Reading, error)
	ListReadings(ctx context.Context, f iot.ReadingFilter) ([]iot.Reading, error)
}
