// Package app composes the SIRA services into a running application.
//
// # Architecture Role
//
// The app package owns wiring only. Business rules live in the packages under
// internal/app/services; HTTP concerns live in internal/app/httpapi; process
// assembly (database, integrations, http.Server) lives in internal/app/runtime.
//
// # Package Structure
//
//	internal/app/
//	├── application.go      # Stores, Options, service wiring and lifecycle
//	├── bus.go              # Event bus decorator that records alert metrics
//	├── core/service/       # Descriptor, error translation, patch helpers
//	├── domain/             # Entities, enums and filters (no behaviour)
//	│   ├── alert/          # Alerts and alert stats
//	│   ├── casefile/       # Cases and evidence
//	│   ├── shipment/       # Shipments, milestones, custody, documents
//	│   └── ...             # Vessels, ports, fleet, corridors, market, iot
//	├── storage/            # Store interfaces and sentinels
//	│   ├── memory/         # In-memory backend (tests, no DATABASE_URL)
//	│   └── postgres/       # sqlx backend
//	├── services/           # One package per domain service
//	├── httpapi/            # gorilla/mux routes, role gates, audit trail
//	├── pdfreport/          # Case and alert summary PDFs
//	├── metrics/            # Prometheus collectors
//	├── system/             # Service lifecycle manager
//	└── runtime/            # Process assembly used by cmd/sira
//
// # Dependency Direction
//
//	cmd/sira
//	      │
//	      ▼
//	internal/app/runtime
//	      │
//	      ├──► internal/app/httpapi ──► internal/middleware
//	      │
//	      └──► internal/app (composition)
//	                  │
//	                  ├──► internal/app/services/*
//	                  │           │
//	                  │           └──► internal/app/storage (interfaces)
//	                  │
//	                  └──► internal/app/system
//
// # Adding a Domain
//
//  1. Add the entity and filters in internal/app/domain/<name>/
//  2. Add the store interface to internal/app/storage/interfaces.go
//  3. Implement it in storage/memory and storage/postgres, plus a migration
//  4. Write the service in internal/app/services/<name>/
//  5. Wire it in New and expose it on Application
//  6. Register routes in internal/app/httpapi
package app
