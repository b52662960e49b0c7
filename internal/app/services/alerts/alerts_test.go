package alerts

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/sira_platform/internal/app/domain/alert"
	"github.com/R3E-Network/sira_platform/internal/app/domain/casefile"
	"github.com/R3E-Network/sira_platform/internal/app/domain/movement"
	"github.com/R3E-Network/sira_platform/internal/app/domain/roles"
	"github.com/R3E-Network/sira_platform/internal/app/domain/user"
	"github.com/R3E-Network/sira_platform/internal/app/services/realtime"
	"github.com/R3E-Network/sira_platform/internal/app/storage/memory"
	apperrors "github.com/R3E-Network/sira_platform/internal/errors"
	"github.com/R3E-Network/sira_platform/pkg/logger"
)

type fakeNotifier struct {
	mu       sync.Mutex
	alerts   []alert.Alert
	targets  [][]int64
	breaches []alert.Alert
	rooms    []string
}

func (f *fakeNotifier) NotifyAlert(_ context.Context, a alert.Alert, targets []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, a)
	f.targets = append(f.targets, targets)
	return nil
}

func (f *fakeNotifier) NotifySLABreach(_ context.Context, a alert.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.breaches = append(f.breaches, a)
	return nil
}

func (f *fakeNotifier) PushRoom(_ context.Context, room string, _ realtime.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rooms = append(f.rooms, room)
}

type fakeBus struct {
	mu   sync.Mutex
	keys []string
}

func (b *fakeBus) Publish(_ context.Context, key string, _ any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.keys = append(b.keys, key)
	return nil
}

type fixture struct {
	store  *memory.Store
	svc    *Service
	notify *fakeNotifier
	bus    *fakeBus
	lead   user.User
}

func newFixture(t *testing.T, cfg RulesConfig) fixture {
	t.Helper()
	store := memory.New()
	rules, err := BuildRules(cfg)
	require.NoError(t, err)
	engine := NewEngine(store, store, rules, logger.Discard())
	notify := &fakeNotifier{}
	bus := &fakeBus{}
	svc := New(Stores{Alerts: store, Movements: store, Users: store, Cases: store}, engine, notify, bus, logger.Discard())

	lead, err := store.CreateUser(context.Background(), user.User{Username: "lead", Email: "lead@example.com", Role: roles.SecurityLead, IsActive: true})
	require.NoError(t, err)
	return fixture{store: store, svc: svc, notify: notify, bus: bus, lead: lead}
}

func (f fixture) movement(t *testing.T, status string, laycanEnd time.Time) movement.Movement {
	t.Helper()
	m, err := f.store.CreateMovement(context.Background(), movement.Movement{
		Cargo:       "Crude oil",
		Route:       "Ras Tanura - Rotterdam",
		LaycanStart: laycanEnd.Add(-72 * time.Hour),
		LaycanEnd:   laycanEnd,
		Status:      status,
	})
	require.NoError(t, err)
	return m
}

func (f fixture) event(t *testing.T, ev movement.Event) movement.Event {
	t.Helper()
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	created, err := f.store.CreateEvent(context.Background(), ev)
	require.NoError(t, err)
	return created
}

func ruleIDs(as []alert.Alert) []string {
	out := make([]string, len(as))
	for i, a := range as {
		out[i] = a.RuleID
	}
	return out
}

func TestEngineBuiltInRules(t *testing.T) {
	f := newFixture(t, RulesConfig{})
	m := f.movement(t, movement.StatusActive, time.Now().Add(-time.Hour))

	ev := f.event(t, movement.Event{
		MovementID:  m.ID,
		EventType:   movement.EventSecurity,
		Severity:    movement.SeverityCritical,
		Location:    "Southern Red Sea",
		Description: "Suspicious skiff approaching",
	})
	created := f.svc.HandleEvent(context.Background(), ev)

	assert.ElementsMatch(t, []string{"RULE_SEC_001", "RULE_SEV_001", "RULE_ZONE_001", "RULE_ANOM_001"}, ruleIDs(created))
	for _, a := range created {
		assert.Equal(t, alert.StatusOpen, a.Status)
		require.NotNil(t, a.EventID)
		assert.Equal(t, ev.ID, *a.EventID)
		assert.Equal(t, "Southern Red Sea", a.SiteZone)
		switch a.RuleID {
		case "RULE_SEC_001":
			assert.Equal(t, "Security event detected: Suspicious skiff approaching at Southern Red Sea", a.Description)
			assert.Equal(t, 30, a.SLATimer)
			assert.InDelta(t, 0.85, a.Confidence, 1e-9)
		case "RULE_SEV_001":
			assert.Equal(t, alert.SeverityCritical, a.Severity)
			assert.Equal(t, 15, a.SLATimer)
		case "RULE_ZONE_001":
			assert.Equal(t, "Event in high-risk zone: Southern Red Sea", a.Description)
			assert.Equal(t, "Maritime Security", a.Domain)
		case "RULE_ANOM_001":
			assert.Equal(t, "Potential anomaly detected: Suspicious skiff approaching", a.Description)
		}
	}
	assert.Len(t, f.notify.alerts, 4)
	assert.Equal(t, []string{"alert.created", "alert.created", "alert.created", "alert.created"}, f.bus.keys)
}

func TestEngineDelayRule(t *testing.T) {
	f := newFixture(t, RulesConfig{})
	late := f.movement(t, movement.StatusActive, time.Now().Add(-2*time.Hour))
	onTime := f.movement(t, movement.StatusActive, time.Now().Add(48*time.Hour))

	created := f.svc.HandleEvent(context.Background(), f.event(t, movement.Event{MovementID: late.ID, EventType: movement.EventOperational, Severity: movement.SeverityInfo}))
	require.Len(t, created, 1)
	assert.Equal(t, "RULE_DELAY_001", created[0].RuleID)
	assert.Contains(t, created[0].Description, "Past laycan end date")

	created = f.svc.HandleEvent(context.Background(), f.event(t, movement.Event{MovementID: onTime.ID, EventType: movement.EventOperational, Severity: movement.SeverityInfo}))
	assert.Empty(t, created)
}

func TestEngineSuppressesDuplicates(t *testing.T) {
	f := newFixture(t, RulesConfig{})
	m := f.movement(t, movement.StatusActive, time.Now().Add(24*time.Hour))
	ev := f.event(t, movement.Event{MovementID: m.ID, EventType: movement.EventSecurity, Severity: movement.SeverityWarning})

	first, err := f.svc.Engine().Process(context.Background(), ev)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := f.svc.Engine().Process(context.Background(), ev)
	require.NoError(t, err)
	assert.Empty(t, second)
}

func TestRulesConfigTunesEngine(t *testing.T) {
	cfg, err := ParseRulesConfig([]byte(`
high_risk_zones: ["Bab-el-Mandeb"]
anomaly_keywords: ["tamper"]
disabled: ["RULE_SEV_001"]
rules:
  - id: RULE_RISK_001
    name: High Risk Movement
    severity: High
    domain: Risk
    confidence: 0.6
    sla_minutes: 90
    condition: 'event.event_type === "operational" && movement !== null && movement.risk_score > 50'
    description: '"Operational event on risky movement " + movement.id'
`))
	require.NoError(t, err)
	f := newFixture(t, cfg)

	ids := make([]string, 0)
	for _, r := range f.svc.Engine().Rules() {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"RULE_SEC_001", "RULE_ZONE_001", "RULE_DELAY_001", "RULE_ANOM_001", "RULE_RISK_001"}, ids)

	m := f.movement(t, movement.StatusActive, time.Now().Add(24*time.Hour))
	m.RiskScore = 75
	_, err = f.store.UpdateMovement(context.Background(), m)
	require.NoError(t, err)

	created := f.svc.HandleEvent(context.Background(), f.event(t, movement.Event{
		MovementID:  m.ID,
		EventType:   movement.EventOperational,
		Severity:    movement.SeverityCritical,
		Location:    "Near Bab-el-Mandeb",
		Description: "Seal tamper suspected",
	}))
	assert.ElementsMatch(t, []string{"RULE_ZONE_001", "RULE_ANOM_001", "RULE_RISK_001"}, ruleIDs(created))
	for _, a := range created {
		if a.RuleID == "RULE_RISK_001" {
			assert.Equal(t, "Operational event on risky movement 1", a.Description)
			assert.Equal(t, 90, a.SLATimer)
		}
	}
}

func TestLoadRulesConfig(t *testing.T) {
	empty, err := LoadRulesConfig("")
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(RulesConfig{}, empty))

	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
high_risk_zones: ["Strait of Hormuz"]
rules:
  - id: RULE_NIGHT_001
    name: Night Movement
    severity: Medium
    domain: Operations
    confidence: 0.7
    sla_minutes: 240
    condition: 'event.event_type === "operational"'
`), 0o600))

	got, err := LoadRulesConfig(path)
	require.NoError(t, err)
	want := RulesConfig{
		HighRiskZones: []string{"Strait of Hormuz"},
		Rules: []ScriptRuleConfig{{
			RuleMeta: RuleMeta{
				ID:         "RULE_NIGHT_001",
				Name:       "Night Movement",
				Severity:   "Medium",
				Domain:     "Operations",
				Confidence: 0.7,
				SLAMinutes: 240,
			},
			Condition: `event.event_type === "operational"`,
		}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("rules config mismatch (-want +got):\n%s", diff)
	}

	_, err = LoadRulesConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestScriptRuleErrorsAreSkipped(t *testing.T) {
	r, err := NewScriptRule(RuleMeta{ID: "RULE_BAD", Name: "Bad", Severity: alert.SeverityLow, Confidence: 0.5}, "undefinedThing.field > 1", "")
	require.NoError(t, err)

	f := newFixture(t, RulesConfig{Disabled: []string{"RULE_SEC_001", "RULE_SEV_001", "RULE_ZONE_001", "RULE_DELAY_001", "RULE_ANOM_001"}})
	f.svc.Engine().AddRule(r)
	m := f.movement(t, movement.StatusActive, time.Now().Add(time.Hour))

	created, err := f.svc.Engine().Process(context.Background(), f.event(t, movement.Event{MovementID: m.ID, EventType: movement.EventPlanned}))
	require.NoError(t, err)
	assert.Empty(t, created)
}

func TestNewScriptRuleValidation(t *testing.T) {
	_, err := NewScriptRule(RuleMeta{ID: "X", Name: "x", Severity: "Severe"}, "true", "")
	assert.Error(t, err)
	_, err = NewScriptRule(RuleMeta{ID: "X", Name: "x", Severity: alert.SeverityLow}, "(", "")
	assert.Error(t, err)
	_, err = BuildRules(RulesConfig{Rules: []ScriptRuleConfig{{RuleMeta: RuleMeta{ID: "RULE_SEC_001", Name: "dup", Severity: alert.SeverityLow}, Condition: "true"}}})
	assert.Error(t, err)
}

func TestRuleStats(t *testing.T) {
	f := newFixture(t, RulesConfig{})
	m := f.movement(t, movement.StatusActive, time.Now().Add(time.Hour))
	f.svc.HandleEvent(context.Background(), f.event(t, movement.Event{MovementID: m.ID, EventType: movement.EventSecurity}))

	stats, err := f.svc.RuleStats(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 5)
	assert.Equal(t, RuleStat{Name: "Security Event Detection", Severity: "High", Domain: "Security", TotalAlerts: 1}, stats["RULE_SEC_001"])
	assert.Equal(t, 0, stats["RULE_ANOM_001"].TotalAlerts)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t, RulesConfig{})
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.lead, CreateRequest{Severity: alert.SeverityHigh})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	_, err = f.svc.Create(ctx, f.lead, CreateRequest{Severity: "Severe", Confidence: confidence(0.5)})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	_, err = f.svc.Create(ctx, f.lead, CreateRequest{Severity: alert.SeverityHigh, Confidence: confidence(1.5)})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	missing := int64(404)
	_, err = f.svc.Create(ctx, f.lead, CreateRequest{Severity: alert.SeverityHigh, Confidence: confidence(0.5), MovementID: &missing})
	require.True(t, apperrors.Is(err, apperrors.CodeNotFound))
	assert.Equal(t, "Movement not found", apperrors.GetServiceError(err).Message)

	sla := 20
	a, err := f.svc.Create(ctx, f.lead, CreateRequest{Severity: alert.SeverityHigh, Confidence: confidence(0.5), SLATimer: &sla, Description: "manual"})
	require.NoError(t, err)
	assert.Equal(t, alert.StatusOpen, a.Status)
	assert.Equal(t, 20, a.SLATimer)
	assert.Len(t, f.notify.alerts, 1)
	assert.Nil(t, f.notify.targets[0])
}

func TestTriageLifecycle(t *testing.T) {
	f := newFixture(t, RulesConfig{})
	ctx := context.Background()
	operator, err := f.store.CreateUser(ctx, user.User{Username: "op", Email: "op@example.com", Role: roles.Operator, IsActive: true})
	require.NoError(t, err)

	a, err := f.svc.Create(ctx, f.lead, CreateRequest{Severity: alert.SeverityMedium, Confidence: confidence(0.7), Description: "Gate left open"})
	require.NoError(t, err)

	acked, err := f.svc.Acknowledge(ctx, operator, a.ID)
	require.NoError(t, err)
	assert.Equal(t, alert.StatusAcknowledged, acked.Status)
	require.NotNil(t, acked.AcknowledgedBy)
	assert.Equal(t, operator.ID, *acked.AcknowledgedBy)

	_, err = f.svc.Acknowledge(ctx, operator, a.ID)
	require.True(t, apperrors.Is(err, apperrors.CodeBadRequest))
	assert.Equal(t, "Alert is not in open status", apperrors.GetServiceError(err).Message)

	_, err = f.svc.Assign(ctx, f.lead, a.ID, 999)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))

	assigned, err := f.svc.Assign(ctx, f.lead, a.ID, operator.ID)
	require.NoError(t, err)
	assert.Equal(t, alert.StatusAssigned, assigned.Status)
	last := f.notify.alerts[len(f.notify.alerts)-1]
	assert.Equal(t, "Alert assigned to you: Gate left open", last.Description)
	assert.Equal(t, []int64{operator.ID}, f.notify.targets[len(f.notify.targets)-1])

	_, err = f.svc.LinkCase(ctx, f.lead, a.ID, 77)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
	c, err := f.store.CreateCase(ctx, casefile.Case{CaseNumber: "CASE-2026-0001", Title: "Gate", Status: casefile.StatusOpen, Priority: casefile.PriorityMedium})
	require.NoError(t, err)
	linked, err := f.svc.LinkCase(ctx, f.lead, a.ID, c.ID)
	require.NoError(t, err)
	require.NotNil(t, linked.CaseID)
	assert.Equal(t, c.ID, *linked.CaseID)

	_, err = f.svc.Resolve(ctx, operator, a.ID, " ")
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
	resolved, err := f.svc.Resolve(ctx, operator, a.ID, "Gate secured")
	require.NoError(t, err)
	assert.Equal(t, alert.StatusClosed, resolved.Status)
	assert.Equal(t, "Gate secured", resolved.ResolutionNotes)
	assert.NotNil(t, resolved.ResolvedAt)

	bad := "archived"
	_, err = f.svc.Update(ctx, f.lead, a.ID, Update{Status: &bad})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	assert.Contains(t, f.notify.rooms, realtime.RoomSecurityAlerts)
	assert.Contains(t, f.bus.keys, "alert.updated")
}

func TestCheckSLABreaches(t *testing.T) {
	f := newFixture(t, RulesConfig{})
	ctx := context.Background()
	old := time.Now().UTC().Add(-2 * time.Hour)

	overdue, err := f.store.CreateAlert(ctx, alert.Alert{Severity: alert.SeverityHigh, SLATimer: 30, Status: alert.StatusOpen, CreatedAt: old})
	require.NoError(t, err)
	_, err = f.store.CreateAlert(ctx, alert.Alert{Severity: alert.SeverityHigh, SLATimer: 300, Status: alert.StatusOpen, CreatedAt: old})
	require.NoError(t, err)
	_, err = f.store.CreateAlert(ctx, alert.Alert{Severity: alert.SeverityHigh, SLATimer: 30, Status: alert.StatusClosed, CreatedAt: old})
	require.NoError(t, err)

	breached, err := f.svc.CheckSLABreaches(ctx)
	require.NoError(t, err)
	require.Len(t, breached, 1)
	assert.Equal(t, overdue.ID, breached[0].ID)
	assert.True(t, breached[0].SLABreached)
	assert.Len(t, f.notify.breaches, 1)
	assert.Equal(t, []string{"alert.sla_breached"}, f.bus.keys)

	again, err := f.svc.CheckSLABreaches(ctx)
	require.NoError(t, err)
	assert.Empty(t, again)
	assert.Len(t, f.notify.breaches, 1)
}

func confidence(v float64) *float64 { return &v }
