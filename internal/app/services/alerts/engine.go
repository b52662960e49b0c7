package alerts

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/R3E-Network/sira_platform/internal/app/domain/alert"
	"github.com/R3E-Network/sira_platform/internal/app/domain/movement"
	"github.com/R3E-Network/sira_platform/internal/app/storage"
	"github.com/R3E-Network/sira_platform/pkg/logger"
)

const (
	duplicateWindow = time.Hour
	recentWindow    = 24 * time.Hour
	recentLimit     = 10
)

// RuleStat reports how many alerts a rule has raised.
type RuleStat struct {
	Name        string `json:"name"`
	Severity    string `json:"severity"`
	Domain      string `json:"domain"`
	TotalAlerts int    `json:"total_alerts"`
}

// Engine derives alerts from movement events.
type Engine struct {
	alerts    storage.AlertStore
	movements storage.MovementStore
	log       *logger.Logger
	now       func() time.Time

	mu    sync.RWMutex
	rules []Rule
}

// NewEngine constructs an engine with the given rules.
func NewEngine(alerts storage.AlertStore, movements storage.MovementStore, rules []Rule, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.NewDefault("alert-engine")
	}
	e := &Engine{
		alerts:    alerts,
		movements: movements,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
		rules:     append([]Rule(nil), rules...),
	}
	log.Infof("alert engine initialised with %d rules", len(rules))
	return e
}

// AddRule appends a rule.
func (e *Engine) AddRule(r Rule) {
	e.mu.Lock()
	e.rules = append(e.rules, r)
	e.mu.Unlock()
	e.log.Infof("added rule %s (%s)", r.Meta().Name, r.Meta().ID)
}

// RemoveRule drops the rule with id.
func (e *Engine) RemoveRule(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	kept := e.rules[:0]
	for _, r := range e.rules {
		if r.Meta().ID != id {
			kept = append(kept, r)
		}
	}
	e.rules = kept
}

// Rules returns the active rule metadata in evaluation order.
func (e *Engine) Rules() []RuleMeta {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]RuleMeta, len(e.rules))
	for i, r := range e.rules {
		out[i] = r.Meta()
	}
	return out
}

func (e *Engine) snapshot() []Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]Rule(nil), e.rules...)
}

// Process evaluates every rule against ev and persists one alert per matching
// rule. A rule that already raised an alert for the same event within the
// last hour is skipped. Rule failures are logged and do not stop evaluation.
func (e *Engine) Process(ctx context.Context, ev movement.Event) ([]alert.Alert, error) {
	ec, err := e.buildContext(ctx, ev)
	if err != nil {
		return nil, err
	}

	var created []alert.Alert
	for _, rule := range e.snapshot() {
		meta := rule.Meta()
		ok, err := rule.Evaluate(ev, ec)
		if err != nil {
			e.log.WithError(err).WithField("rule_id", meta.ID).Warn("rule evaluation failed")
			continue
		}
		if !ok {
			continue
		}
		dup, err := e.isDuplicate(ctx, ev.ID, meta.ID, ec.Now)
		if err != nil {
			return created, err
		}
		if dup {
			e.log.WithField("rule_id", meta.ID).Debug("duplicate alert suppressed")
			continue
		}
		a, err := e.alerts.CreateAlert(ctx, e.newAlert(ev, rule, ec))
		if err != nil {
			e.log.WithError(err).WithField("rule_id", meta.ID).Error("create alert failed")
			continue
		}
		e.log.WithField("alert_id", a.ID).WithField("rule_id", meta.ID).Info("alert created")
		created = append(created, a)
	}
	return created, nil
}

func (e *Engine) buildContext(ctx context.Context, ev movement.Event) (EvalContext, error) {
	ec := EvalContext{Now: e.now()}
	if ev.MovementID == 0 {
		return ec, nil
	}
	m, err := e.movements.GetMovement(ctx, ev.MovementID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return ec, nil
	case err != nil:
		return ec, err
	}
	ec.Movement = &m

	since := ec.Now.Add(-recentWindow)
	recent, err := e.movements.ListEvents(ctx, movement.EventFilter{MovementID: ev.MovementID, Since: &since, Limit: recentLimit})
	if err != nil {
		return ec, err
	}
	ec.Recent = recent
	return ec, nil
}

func (e *Engine) isDuplicate(ctx context.Context, eventID int64, ruleID string, now time.Time) (bool, error) {
	if eventID == 0 {
		return false, nil
	}
	since := now.Add(-duplicateWindow)
	existing, err := e.alerts.ListAlerts(ctx, alert.Filter{EventID: eventID, RuleID: ruleID, Since: &since, Limit: 1})
	if err != nil {
		return false, err
	}
	return len(existing) > 0, nil
}

func (e *Engine) newAlert(ev movement.Event, rule Rule, ec EvalContext) alert.Alert {
	meta := rule.Meta()
	a := alert.Alert{
		Severity:    meta.Severity,
		Confidence:  meta.Confidence,
		SLATimer:    meta.SLAMinutes,
		Domain:      meta.Domain,
		SiteZone:    ev.Location,
		Status:      alert.StatusOpen,
		Description: rule.Describe(ev, ec),
		RuleID:      meta.ID,
		RuleName:    meta.Name,
		CreatedAt:   ec.Now,
		UpdatedAt:   ec.Now,
	}
	if ev.MovementID != 0 {
		id := ev.MovementID
		a.MovementID = &id
	}
	if ev.ID != 0 {
		id := ev.ID
		a.EventID = &id
	}
	return a
}

// RuleStats returns per-rule alert totals keyed by rule id.
func (e *Engine) RuleStats(ctx context.Context) (map[string]RuleStat, error) {
	counts, err := e.alerts.CountAlertsByRule(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]RuleStat)
	for _, r := range e.snapshot() {
		m := r.Meta()
		out[m.ID] = RuleStat{Name: m.Name, Severity: m.Severity, Domain: m.Domain, TotalAlerts: counts[m.ID]}
	}
	return out, nil
}

// BreachedAlerts flags every open or acknowledged alert whose SLA deadline
// has passed and returns the newly flagged alerts.
func (e *Engine) BreachedAlerts(ctx context.Context) ([]alert.Alert, error) {
	notBreached := false
	candidates, err := e.alerts.ListAlerts(ctx, alert.Filter{
		Statuses:    []string{alert.StatusOpen, alert.StatusAcknowledged},
		SLABreached: &notBreached,
	})
	if err != nil {
		return nil, err
	}
	now := e.now()
	var out []alert.Alert
	for _, a := range candidates {
		if a.SLATimer <= 0 || !now.After(a.SLADeadline()) {
			continue
		}
		a.SLABreached = true
		updated, err := e.alerts.UpdateAlert(ctx, a)
		if err != nil {
			return out, err
		}
		e.log.WithField("alert_id", a.ID).Warn("SLA breached")
		out = append(out, updated)
	}
	return out, nil
}
