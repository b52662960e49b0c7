package memory

import (
	"fmt"
	"sort"
	"strings"
	"sync"
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
	"github.com/R3E-Network/sira_platform/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
type Store struct {
	mu sync.RWMutex

	users         *table[user.User]
	movements     *table[movement.Movement]
	events        *table[movement.Event]
	alerts        *table[alert.Alert]
	cases         *table[casefile.Case]
	evidence      *table[casefile.Evidence]
	playbooks     *table[playbook.Playbook]
	notifications *table[notification.Notification]
	preferences   *table[notification.Preference]
	shipments     *table[shipment.Shipment]
	milestones    *table[shipment.Milestone]
	custody       *table[shipment.CustodyEvent]
	documents     *table[shipment.Document]
	exceptions    *table[shipment.Exception]
	vessels       *table[vessel.Vessel]
	ports         *table[port.Port]
	berths        *table[port.Berth]
	bookings      *table[port.Booking]
	assets        *table[fleet.Asset]
	dispatches    *table[fleet.Dispatch]
	maintenance   *table[fleet.Maintenance]
	corridors     *table[corridor.Corridor]
	geofences     *table[corridor.Geofence]
	rates         *table[market.FreightRate]
	indices       *table[market.Index]
	demurrage     *table[market.DemurrageRecord]
	devices       *table[iot.Device]
	readings      *table[iot.Reading]
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.MovementStore = (*Store)(nil)
var _ storage.AlertStore = (*Store)(nil)
var _ storage.CaseStore = (*Store)(nil)
var _ storage.PlaybookStore = (*Store)(nil)
var _ storage.NotificationStore = (*Store)(nil)
var _ storage.ShipmentStore = (*Store)(nil)
var _ storage.VesselStore = (*Store)(nil)
var _ storage.PortStore = (*Store)(nil)
var _ storage.FleetStore = (*Store)(nil)
var _ storage.CorridorStore = (*Store)(nil)
var _ storage.MarketStore = (*Store)(nil)
var _ storage.IoTStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		users:         newTable[user.User](),
		movements:     newTable[movement.Movement](),
		events:        newTable[movement.Event](),
		alerts:        newTable[alert.Alert](),
		cases:         newTable[casefile.Case](),
		evidence:      newTable[casefile.Evidence](),
		playbooks:     newTable[playbook.Playbook](),
		notifications: newTable[notification.Notification](),
		preferences:   newTable[notification.Preference](),
		shipments:     newTable[shipment.Shipment](),
		milestones:    newTable[shipment.Milestone](),
		custody:       newTable[shipment.CustodyEvent](),
		documents:     newTable[shipment.Document](),
		exceptions:    newTable[shipment.Exception](),
		vessels:       newTable[vessel.Vessel](),
		ports:         newTable[port.Port](),
		berths:        newTable[port.Berth](),
		bookings:      newTable[port.Booking](),
		assets:        newTable[fleet.Asset](),
		dispatches:    newTable[fleet.Dispatch](),
		maintenance:   newTable[fleet.Maintenance](),
		corridors:     newTable[corridor.Corridor](),
		geofences:     newTable[corridor.Geofence](),
		rates:         newTable[market.FreightRate](),
		indices:       newTable[market.Index](),
		demurrage:     newTable[market.DemurrageRecord](),
		devices:       newTable[iot.Device](),
		readings:      newTable[iot.Reading](),
	}
}

// table is a map of rows keyed by a store-assigned sequence.
type table[T any] struct {
	next int64
	rows map[int64]T
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[int64]T)}
}

// insert assigns the next id through id, which must point into *v.
func (t *table[T]) insert(v *T, id *int64) {
	t.next++
	*id = t.next
	t.rows[t.next] = *v
}

func (t *table[T]) get(id int64) (T, bool) {
	v, ok := t.rows[id]
	return v, ok
}

func (t *table[T]) put(id int64, v T) bool {
	if _, ok := t.rows[id]; !ok {
		return false
	}
	t.rows[id] = v
	return true
}

func (t *table[T]) remove(id int64) bool {
	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	return true
}

func (t *table[T]) find(match func(T) bool) (T, bool) {
	for _, v := range t.rows {
		if match(v) {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func (t *table[T]) exists(match func(T) bool) bool {
	_, ok := t.find(match)
	return ok
}

// filter returns the matching rows ordered by less.
func (t *table[T]) filter(match func(T) bool, less func(a, b T) bool) []T {
	out := make([]T, 0)
	for _, v := range t.rows {
		if match == nil || match(v) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return items[:0]
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func notFound(kind string, id int64) error {
	return fmt.Errorf("%s %d: %w", kind, id, storage.ErrNotFound)
}

func notFoundKey(kind, key string) error {
	return fmt.Errorf("%s %q: %w", kind, key, storage.ErrNotFound)
}

func conflict(kind, field, value string) error {
	return fmt.Errorf("%s with %s %q: %w", kind, field, value, storage.ErrConflict)
}

func stamp(created *time.Time) time.Time {
	if created.IsZero() {
		*created = time.Now().UTC()
	}
	return *created
}

func touch(updated *time.Time) {
	if updated.IsZero() {
		*updated = time.Now().UTC()
	}
}

func newerFirst(a, b time.Time, ida, idb int64) bool {
	if a.Equal(b) {
		return ida > idb
	}
	return a.After(b)
}

func olderFirst(a, b time.Time, ida, idb int64) bool {
	if a.Equal(b) {
		return ida < idb
	}
	return a.Before(b)
}

// nilLast orders known times ascending and unknown times after them.
func nilLast(a, b *time.Time, ida, idb int64) bool {
	switch {
	case a == nil && b == nil:
		return ida < idb
	case a == nil:
		return false
	case b == nil:
		return true
	}
	return olderFirst(*a, *b, ida, idb)
}

func byName(a, b string, ida, idb int64) bool {
	if a == b {
		return ida < idb
	}
	return a < b
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func inSet(v string, set []string) bool {
	if len(set) == 0 {
		return true
	}
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func idMatches(want int64, got *int64) bool {
	return want == 0 || (got != nil && *got == want)
}

func timeInRange(t time.Time, since, until *time.Time) bool {
	if since != nil && t.Before(*since) {
		return false
	}
	if until != nil && t.After(*until) {
		return false
	}
	return true
}

func refresh(updated *time.Time) {
	*updated = time.Now().UTC()
}
