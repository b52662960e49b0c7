package memory

import (
	"context"

	"github.com/R3E-Network/sira_platform/internal/app/domain/alert"
)

func (s *Store) CreateAlert(_ context.Context, a alert.Alert) (alert.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stamp(&a.CreatedAt)
	touch(&a.UpdatedAt)
	s.alerts.insert(&a, &a.ID)
	return a, nil
}

func (s *Store) UpdateAlert(_ context.Context, a alert.Alert) (alert.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.alerts.get(a.ID)
	if !ok {
		return alert.Alert{}, notFound("alert", a.ID)
	}
	a.CreatedAt = original.CreatedAt
	refresh(&a.UpdatedAt)
	s.alerts.put(a.ID, a)
	return a, nil
}

func (s *Store) GetAlert(_ context.Context, id int64) (alert.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.alerts.get(id)
	if !ok {
		return alert.Alert{}, notFound("alert", id)
	}
	return a, nil
}

func (s *Store) ListAlerts(_ context.Context, f alert.Filter) ([]alert.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.alerts.filter(alertMatcher(f), func(a, b alert.Alert) bool {
		return newerFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
	})
	return paginate(out, f.Offset, f.Limit), nil
}

func (s *Store) AlertStats(_ context.Context, f alert.Filter) (alert.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st alert.Stats
	match := alertMatcher(f)
	for _, a := range s.alerts.rows {
		if !match(a) {
			continue
		}
		st.Total++
		if a.Status == alert.StatusOpen {
			st.Open++
		}
		if a.SLABreached {
			st.SLABreached++
		}
		switch a.Severity {
		case alert.SeverityCritical:
			st.Critical++
		case alert.SeverityHigh:
			st.High++
		case alert.SeverityMedium:
			st.Medium++
		case alert.SeverityLow:
			st.Low++
		}
	}
	return st, nil
}

func (s *Store) CountAlertsByRule(_ context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]int)
	for _, a := range s.alerts.rows {
		if a.RuleID != "" {
			out[a.RuleID]++
		}
	}
	return out, nil
}

func alertMatcher(f alert.Filter) func(alert.Alert) bool {
	return func(a alert.Alert) bool {
		if f.Domain != "" && a.Domain != f.Domain {
			return false
		}
		if f.Status != "" && a.Status != f.Status {
			return false
		}
		if !inSet(a.Status, f.Statuses) {
			return false
		}
		if f.Severity != "" && a.Severity != f.Severity {
			return false
		}
		if f.SLABreached != nil && a.SLABreached != *f.SLABreached {
			return false
		}
		if !idMatches(f.CaseID, a.CaseID) || !idMatches(f.EventID, a.EventID) {
			return false
		}
		if f.RuleID != "" && a.RuleID != f.RuleID {
			return false
		}
		return timeInRange(a.CreatedAt, f.Since, f.Until)
	}
}
