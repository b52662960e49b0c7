package app

import (
	"context"
	"fmt"
	"time"

	"github.com/R3E-Network/sira_platform/internal/app/core/service"
	"github.com/R3E-Network/sira_platform/internal/app/services/alerts"
	"github.com/R3E-Network/sira_platform/internal/app/services/auth"
	"github.com/R3E-Network/sira_platform/internal/app/services/cases"
	"github.com/R3E-Network/sira_platform/internal/app/services/controltower"
	"github.com/R3E-Network/sira_platform/internal/app/services/corridors"
	"github.com/R3E-Network/sira_platform/internal/app/services/eventbus"
	fleetsvc "github.com/R3E-Network/sira_platform/internal/app/services/fleet"
	iotsvc "github.com/R3E-Network/sira_platform/internal/app/services/iot"
	marketsvc "github.com/R3E-Network/sira_platform/internal/app/services/market"
	"github.com/R3E-Network/sira_platform/internal/app/services/movements"
	"github.com/R3E-Network/sira_platform/internal/app/services/notifications"
	"github.com/R3E-Network/sira_platform/internal/app/services/playbooks"
	"github.com/R3E-Network/sira_platform/internal/app/services/ports"
	"github.com/R3E-Network/sira_platform/internal/app/services/realtime"
	"github.com/R3E-Network/sira_platform/internal/app/services/reports"
	"github.com/R3E-Network/sira_platform/internal/app/services/scheduler"
	"github.com/R3E-Network/sira_platform/internal/app/services/shipments"
	"github.com/R3E-Network/sira_platform/internal/app/services/users"
	"github.com/R3E-Network/sira_platform/internal/app/services/vessels"
	"github.com/R3E-Network/sira_platform/internal/app/storage"
	"github.com/R3E-Network/sira_platform/internal/app/storage/memory"
	"github.com/R3E-Network/sira_platform/internal/app/system"
	"github.com/R3E-Network/sira_platform/pkg/logger"
)

// Scheduled job names.
const (
	JobSLAMonitor  = "sla-monitor"
	JobDailyDigest = "daily-digest"
)

// Backend is a persistence layer implementing every store.
type Backend interface {
	storage.UserStore
	storage.MovementStore
	storage.AlertStore
	storage.CaseStore
	storage.PlaybookStore
	storage.NotificationStore
	storage.ShipmentStore
	storage.VesselStore
	storage.PortStore
	storage.FleetStore
	storage.CorridorStore
	storage.MarketStore
	storage.IoTStore
}

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Users         storage.UserStore
	Movements     storage.MovementStore
	Alerts        storage.AlertStore
	Cases         storage.CaseStore
	Playbooks     storage.PlaybookStore
	Notifications storage.NotificationStore
	Shipments     storage.ShipmentStore
	Vessels       storage.VesselStore
	Ports         storage.PortStore
	Fleet         storage.FleetStore
	Corridors     storage.CorridorStore
	Market        storage.MarketStore
	IoT           storage.IoTStore
}

// StoresFrom uses b for every store.
func StoresFrom(b Backend) Stores {
	return Stores{
		Users: b, Movements: b, Alerts: b, Cases: b, Playbooks: b, Notifications: b,
		Shipments: b, Vessels: b, Ports: b, Fleet: b, Corridors: b, Market: b, IoT: b,
	}
}

func (s *Stores) fill(mem *memory.Store) {
	if s.Users == nil {
		s.Users = mem
	}
	if s.Movements == nil {
		s.Movements = mem
	}
	if s.Alerts == nil {
		s.Alerts = mem
	}
	if s.Cases == nil {
		s.Cases = mem
	}
	if s.Playbooks == nil {
		s.Playbooks = mem
	}
	if s.Notifications == nil {
		s.Notifications = mem
	}
	if s.Shipments == nil {
		s.Shipments = mem
	}
	if s.Vessels == nil {
		s.Vessels = mem
	}
	if s.Ports == nil {
		s.Ports = mem
	}
	if s.Fleet == nil {
		s.Fleet = mem
	}
	if s.Corridors == nil {
		s.Corridors = mem
	}
	if s.Market == nil {
		s.Market = mem
	}
	if s.IoT == nil {
		s.IoT = mem
	}
}

// Options carry the wiring that does not come from the stores. Zero values
// disable the optional integrations.
type Options struct {
	Auth           auth.Settings
	AllowedOrigins []string
	Rules          alerts.RulesConfig
	UploadDir      string
	MaxUploadBytes int64
	Mailer         notifications.Mailer
	AppURL         string
	Bus            eventbus.Publisher
	Bridge         realtime.Bridge
	SLASchedule    string
	DigestSchedule string
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger
	stores  Stores

	Auth          *auth.Service
	Users         *users.Service
	Movements     *movements.Service
	Alerts        *alerts.Service
	Cases         *cases.Service
	Playbooks     *playbooks.Service
	Notifications *notifications.Service
	Hub           *realtime.Hub
	Shipments     *shipments.Service
	Vessels       *vessels.Service
	Ports         *ports.Service
	Fleet         *fleetsvc.Service
	Corridors     *corridors.Service
	Market        *marketsvc.Service
	ControlTower  *controltower.Service
	Reports       *reports.Service
	IoT           *iotsvc.Service
	Scheduler     *scheduler.Scheduler
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}
	stores.fill(memory.New())

	rules, err := alerts.BuildRules(opts.Rules)
	if err != nil {
		return nil, fmt.Errorf("build alert rules: %w", err)
	}

	var bus eventbus.Publisher = eventbus.Nop{}
	if opts.Bus != nil {
		bus = opts.Bus
	}
	bus = instrumentedBus{next: bus}

	hub := realtime.NewHub(opts.AllowedOrigins, log)
	if opts.Bridge != nil {
		hub.AttachBridge(opts.Bridge)
	}

	authService := auth.New(stores.Users, opts.Auth, log)
	notifyService := notifications.New(stores.Notifications, stores.Users, hub, opts.Mailer, opts.AppURL, log)
	engine := alerts.NewEngine(stores.Alerts, stores.Movements, rules, log)
	alertService := alerts.New(alerts.Stores{
		Alerts:    stores.Alerts,
		Movements: stores.Movements,
		Users:     stores.Users,
		Cases:     stores.Cases,
	}, engine, notifyService, bus, log)
	shipmentService := shipments.New(stores.Shipments, stores.Ports, bus, log)

	a := &Application{
		manager:       system.NewManager(),
		log:           log,
		stores:        stores,
		Auth:          authService,
		Users:         users.New(stores.Users, authService, log),
		Movements:     movements.New(stores.Movements, alertService, notifyService, bus, log),
		Alerts:        alertService,
		Cases:         cases.New(stores.Cases, stores.Alerts, cases.NewFileStore(opts.UploadDir, opts.MaxUploadBytes), notifyService, bus, log),
		Playbooks:     playbooks.New(stores.Playbooks, log),
		Notifications: notifyService,
		Hub:           hub,
		Shipments:     shipmentService,
		Vessels:       vessels.New(stores.Vessels, bus, log),
		Ports:         ports.New(stores.Ports, log),
		Fleet:         fleetsvc.New(stores.Fleet, log),
		Corridors:     corridors.New(stores.Corridors, log),
		Market:        marketsvc.New(stores.Market, stores.Shipments, log),
		ControlTower: controltower.New(controltower.Sources{
			Shipments: stores.Shipments,
			Vessels:   stores.Vessels,
			Fleet:     stores.Fleet,
			Ports:     stores.Ports,
			Corridors: stores.Corridors,
			Market:    stores.Market,
		}, log),
		Reports:   reports.New(stores.Alerts, stores.Cases, log),
		IoT:       iotsvc.New(stores.IoT, shipmentService, bus, log),
		Scheduler: scheduler.New(log),
	}

	if err := a.scheduleJobs(opts); err != nil {
		return nil, err
	}

	services := []system.Service{hub, a.Scheduler}
	if svc, ok := opts.Bus.(system.Service); ok {
		services = append([]system.Service{svc}, services...)
	}
	for _, svc := range services {
		if err := a.manager.Register(svc); err != nil {
			return nil, fmt.Errorf("register %s: %w", svc.Name(), err)
		}
	}
	return a, nil
}

func (a *Application) scheduleJobs(opts Options) error {
	if opts.SLASchedule != "" {
		if err := a.Scheduler.Add(JobSLAMonitor, opts.SLASchedule, a.checkSLA); err != nil {
			return err
		}
	}
	if opts.DigestSchedule != "" {
		if err := a.Scheduler.Add(JobDailyDigest, opts.DigestSchedule, a.sendDigest); err != nil {
			return err
		}
	}
	return nil
}

func (a *Application) checkSLA(ctx context.Context) error {
	breached, err := a.Alerts.CheckSLABreaches(ctx)
	if err != nil {
		return err
	}
	if len(breached) > 0 {
		a.log.WithField("alerts", len(breached)).Warn("SLA breaches flagged")
	}
	return nil
}

func (a *Application) sendDigest(ctx context.Context) error {
	d, err := notifications.BuildDigest(ctx, a.stores.Alerts, a.stores.Cases, time.Now().UTC())
	if err != nil {
		return err
	}
	sent, err := a.Notifications.SendDigest(ctx, d)
	if err != nil {
		return err
	}
	a.log.WithField("recipients", sent).Info("daily digest sent")
	return nil
}

// Descriptors lists the services exposed by the application.
func (a *Application) Descriptors() []service.Descriptor {
	return []service.Descriptor{
		a.Auth.Descriptor(),
		a.Movements.Descriptor(),
		a.Alerts.Descriptor(),
		a.Cases.Descriptor(),
		a.Playbooks.Descriptor(),
		a.Notifications.Descriptor(),
		a.Hub.Descriptor(),
		a.Shipments.Descriptor(),
		a.Vessels.Descriptor(),
		a.Ports.Descriptor(),
		a.Fleet.Descriptor(),
		a.Corridors.Descriptor(),
		a.Market.Descriptor(),
		a.ControlTower.Descriptor(),
		a.Reports.Descriptor(),
		a.IoT.Descriptor(),
		a.Scheduler.Descriptor(),
	}
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
