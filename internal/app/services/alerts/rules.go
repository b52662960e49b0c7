package alerts

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dop251/goja"
	"gopkg.in/yaml.v3"

	"github.com/R3E-Network/sira_platform/internal/app/domain/alert"
	"github.com/R3E-Network/sira_platform/internal/app/domain/movement"
)

// DefaultHighRiskZones are matched case-insensitively against event locations.
var DefaultHighRiskZones = []string{
	"Red Sea", "Gulf of Aden", "Strait of Hormuz",
	"Gulf of Guinea", "Singapore Strait", "Malacca Strait",
}

// DefaultAnomalyKeywords are matched against event descriptions.
var DefaultAnomalyKeywords = []string{
	"suspicious", "unusual", "unexpected", "unauthorized",
	"unscheduled", "deviation", "anomaly", "threat",
}

// scriptTimeout bounds a single script evaluation.
const scriptTimeout = 250 * time.Millisecond

// RuleMeta identifies a rule and the shape of the alerts it raises.
type RuleMeta struct {
	ID         string  `json:"rule_id" yaml:"id"`
	Name       string  `json:"name" yaml:"name"`
	Severity   string  `json:"severity" yaml:"severity"`
	Domain     string  `json:"domain" yaml:"domain"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
	SLAMinutes int     `json:"sla_minutes" yaml:"sla_minutes"`
}

// EvalContext is what a rule sees besides the event itself.
type EvalContext struct {
	Now      time.Time
	Movement *movement.Movement
	// Recent holds up to ten events of the same movement from the last 24
	// hours, newest first.
	Recent []movement.Event
}

// Rule derives alerts from events.
type Rule interface {
	Meta() RuleMeta
	Evaluate(ev movement.Event, ec EvalContext) (bool, error)
	Describe(ev movement.Event, ec EvalContext) string
}

type funcRule struct {
	meta     RuleMeta
	match    func(movement.Event, EvalContext) bool
	describe func(movement.Event, EvalContext) string
}

func (r funcRule) Meta() RuleMeta { return r.meta }

func (r funcRule) Evaluate(ev movement.Event, ec EvalContext) (bool, error) {
	return r.match(ev, ec), nil
}

func (r funcRule) Describe(ev movement.Event, ec EvalContext) string {
	return r.describe(ev, ec)
}

func orText(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func containsAny(s string, needles []string) bool {
	if s == "" {
		return false
	}
	lower := strings.ToLower(s)
	for _, n := range needles {
		if n != "" && strings.Contains(lower, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

// SecurityEventRule fires on events of type security.
func SecurityEventRule() Rule {
	return funcRule{
		meta: RuleMeta{ID: "RULE_SEC_001", Name: "Security Event Detection", Severity: alert.SeverityHigh, Domain: "Security", Confidence: 0.85, SLAMinutes: 30},
		match: func(ev movement.Event, _ EvalContext) bool {
			return ev.EventType == movement.EventSecurity
		},
		describe: func(ev movement.Event, _ EvalContext) string {
			return fmt.Sprintf("Security event detected: %s at %s", orText(ev.Description, "No description"), orText(ev.Location, "Unknown location"))
		},
	}
}

// CriticalSeverityRule fires on critical events.
func CriticalSeverityRule() Rule {
	return funcRule{
		meta: RuleMeta{ID: "RULE_SEV_001", Name: "Critical Severity Event", Severity: alert.SeverityCritical, Domain: "Operations", Confidence: 0.95, SLAMinutes: 15},
		match: func(ev movement.Event, _ EvalContext) bool {
			return ev.Severity == movement.SeverityCritical
		},
		describe: func(ev movement.Event, _ EvalContext) string {
			return "Critical event: " + orText(ev.Description, "Critical severity event detected")
		},
	}
}

// HighRiskZoneRule fires when the event location names one of zones.
func HighRiskZoneRule(zones []string) Rule {
	return funcRule{
		meta: RuleMeta{ID: "RULE_ZONE_001", Name: "High Risk Zone Alert", Severity: alert.SeverityHigh, Domain: "Maritime Security", Confidence: 0.8, SLAMinutes: 45},
		match: func(ev movement.Event, _ EvalContext) bool {
			return containsAny(ev.Location, zones)
		},
		describe: func(ev movement.Event, _ EvalContext) string {
			return "Event in high-risk zone: " + ev.Location
		},
	}
}

// DelayDetectionRule fires on operational events for active movements past
// their laycan end.
func DelayDetectionRule() Rule {
	return funcRule{
		meta: RuleMeta{ID: "RULE_DELAY_001", Name: "Movement Delay Detection", Severity: alert.SeverityMedium, Domain: "Operations", Confidence: 0.75, SLAMinutes: 120},
		match: func(ev movement.Event, ec EvalContext) bool {
			m := ec.Movement
			return m != nil &&
				ev.EventType == movement.EventOperational &&
				m.Status == movement.StatusActive &&
				m.LaycanEnd.Before(ec.Now)
		},
		describe: func(_ movement.Event, ec EvalContext) string {
			id := "Unknown"
			if ec.Movement != nil {
				id = fmt.Sprint(ec.Movement.ID)
			}
			return fmt.Sprintf("Delay detected for movement %s: Past laycan end date", id)
		},
	}
}

// AnomalyDetectionRule fires when the description contains one of keywords.
func AnomalyDetectionRule(keywords []string) Rule {
	return funcRule{
		meta: RuleMeta{ID: "RULE_ANOM_001", Name: "Anomaly Detection", Severity: alert.SeverityMedium, Domain: "Intelligence", Confidence: 0.7, SLAMinutes: 60},
		match: func(ev movement.Event, _ EvalContext) bool {
			return containsAny(ev.Description, keywords)
		},
		describe: func(ev movement.Event, _ EvalContext) string {
			return "Potential anomaly detected: " + ev.Description
		},
	}
}

// ScriptRule evaluates a JavaScript condition. The script sees the globals
// event, movement (or null) and recent, and must evaluate to a boolean.
// An optional description script produces the alert text.
type ScriptRule struct {
	meta        RuleMeta
	condition   *goja.Program
	description *goja.Program
}

// NewScriptRule compiles the condition and description scripts.
func NewScriptRule(meta RuleMeta, condition, description string) (*ScriptRule, error) {
	if meta.ID == "" || meta.Name == "" {
		return nil, fmt.Errorf("script rule needs id and name")
	}
	if !alert.ValidSeverity(meta.Severity) {
		return nil, fmt.Errorf("rule %s: invalid severity %q", meta.ID, meta.Severity)
	}
	if meta.Confidence < 0 || meta.Confidence > 1 {
		return nil, fmt.Errorf("rule %s: confidence must be between 0 and 1", meta.ID)
	}
	if meta.SLAMinutes <= 0 {
		meta.SLAMinutes = 60
	}
	if strings.TrimSpace(condition) == "" {
		return nil, fmt.Errorf("rule %s: empty condition", meta.ID)
	}
	cond, err := goja.Compile(meta.ID+".condition", condition, true)
	if err != nil {
		return nil, fmt.Errorf("rule %s: compile condition: %w", meta.ID, err)
	}
	r := &ScriptRule{meta: meta, condition: cond}
	if strings.TrimSpace(description) != "" {
		desc, err := goja.Compile(meta.ID+".description", description, true)
		if err != nil {
			return nil, fmt.Errorf("rule %s: compile description: %w", meta.ID, err)
		}
		r.description = desc
	}
	return r, nil
}

func (r *ScriptRule) Meta() RuleMeta { return r.meta }

func (r *ScriptRule) Evaluate(ev movement.Event, ec EvalContext) (bool, error) {
	v, err := r.run(r.condition, ev, ec)
	if err != nil {
		return false, err
	}
	return v.ToBoolean(), nil
}

func (r *ScriptRule) Describe(ev movement.Event, ec EvalContext) string {
	if r.description != nil {
		v, err := r.run(r.description, ev, ec)
		if err == nil && !goja.IsUndefined(v) && !goja.IsNull(v) {
			return v.String()
		}
	}
	return fmt.Sprintf("%s: %s", r.meta.Name, orText(ev.Description, "rule matched"))
}

func (r *ScriptRule) run(prog *goja.Program, ev movement.Event, ec EvalContext) (goja.Value, error) {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))

	timer := time.AfterFunc(scriptTimeout, func() { vm.Interrupt("execution timeout") })
	defer timer.Stop()

	if err := vm.Set("event", ev); err != nil {
		return nil, err
	}
	if ec.Movement != nil {
		if err := vm.Set("movement", *ec.Movement); err != nil {
			return nil, err
		}
	} else {
		vm.Set("movement", goja.Null())
	}
	recent := ec.Recent
	if recent == nil {
		recent = []movement.Event{}
	}
	if err := vm.Set("recent", recent); err != nil {
		return nil, err
	}
	v, err := vm.RunProgram(prog)
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", r.meta.ID, err)
	}
	return v, nil
}

// RulesConfig is the YAML document that tunes the engine.
type RulesConfig struct {
	HighRiskZones   []string           `yaml:"high_risk_zones"`
	AnomalyKeywords []string           `yaml:"anomaly_keywords"`
	Disabled        []string           `yaml:"disabled"`
	Rules           []ScriptRuleConfig `yaml:"rules"`
}

// ScriptRuleConfig declares a custom script rule.
type ScriptRuleConfig struct {
	RuleMeta    `yaml:",inline"`
	Condition   string `yaml:"condition"`
	Description string `yaml:"description"`
}

// ParseRulesConfig decodes a rules document.
func ParseRulesConfig(data []byte) (RulesConfig, error) {
	var cfg RulesConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return RulesConfig{}, fmt.Errorf("parse alert rules: %w", err)
	}
	return cfg, nil
}

// LoadRulesConfig reads a rules document from path. An empty path yields the
// zero config.
func LoadRulesConfig(path string) (RulesConfig, error) {
	if path == "" {
		return RulesConfig{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return RulesConfig{}, fmt.Errorf("read alert rules: %w", err)
	}
	return ParseRulesConfig(data)
}

// BuildRules returns the built-in rules tuned by cfg followed by its script
// rules, minus anything listed as disabled.
func BuildRules(cfg RulesConfig) ([]Rule, error) {
	zones := cfg.HighRiskZones
	if len(zones) == 0 {
		zones = DefaultHighRiskZones
	}
	keywords := cfg.AnomalyKeywords
	if len(keywords) == 0 {
		keywords = DefaultAnomalyKeywords
	}
	all := []Rule{
		SecurityEventRule(),
		CriticalSeverityRule(),
		HighRiskZoneRule(zones),
		DelayDetectionRule(),
		AnomalyDetectionRule(keywords),
	}
	for _, rc := range cfg.Rules {
		r, err := NewScriptRule(rc.RuleMeta, rc.Condition, rc.Description)
		if err != nil {
			return nil, err
		}
		all = append(all, r)
	}

	disabled := make(map[string]struct{}, len(cfg.Disabled))
	for _, id := range cfg.Disabled {
		disabled[id] = struct{}{}
	}
	out := all[:0]
	seen := make(map[string]struct{}, len(all))
	for _, r := range all {
		id := r.Meta().ID
		if _, skip := disabled[id]; skip {
			continue
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("duplicate rule id %s", id)
		}
		seen[id] = struct{}{}
		out = append(out, r)
	}
	return out, nil
}
