package postgres

import (
	"context"

	"github.com/R3E-Network/sira_platform/internal/app/domain/alert"
)

var alertsTable = newWriteSet("alerts", alert.Alert{})

func (s *Store) CreateAlert(ctx context.Context, a alert.Alert) (alert.Alert, error) {
	stamp(&a.CreatedAt, &a.UpdatedAt)
	id, err := s.insert(ctx, alertsTable, a)
	if err != nil {
		return alert.Alert{}, err
	}
	a.ID = id
	return a, nil
}

func (s *Store) UpdateAlert(ctx context.Context, a alert.Alert) (alert.Alert, error) {
	refresh(&a.UpdatedAt)
	if err := s.update(ctx, alertsTable, a.ID, a); err != nil {
		return alert.Alert{}, err
	}
	return s.GetAlert(ctx, a.ID)
}

func (s *Store) GetAlert(ctx context.Context, id int64) (alert.Alert, error) {
	var a alert.Alert
	err := s.getByID(ctx, &a, "alerts", id)
	return a, err
}

func alertWhere(f alert.Filter) *where {
	w := &where{}
	w.eq("domain", f.Domain)
	w.eq("status", f.Status)
	w.in("status", f.Statuses)
	w.eq("severity", f.Severity)
	if f.SLABreached != nil {
		w.add("sla_breached = ?", *f.SLABreached)
	}
	w.id("case_id", f.CaseID)
	w.id("event_id", f.EventID)
	w.eq("rule_id", f.RuleID)
	w.since("created_at", f.Since)
	w.until("created_at", f.Until)
	return w
}

func (s *Store) ListAlerts(ctx context.Context, f alert.Filter) ([]alert.Alert, error) {
	out := []alert.Alert{}
	err := s.list(ctx, &out, "alerts", alertWhere(f), "created_at DESC, id DESC", f.Offset, f.Limit)
	return out, err
}

func (s *Store) AlertStats(ctx context.Context, f alert.Filter) (alert.Stats, error) {
	w := alertWhere(f)
	q := `SELECT COUNT(*),
		COUNT(*) FILTER (WHERE status = 'open'),
		COUNT(*) FILTER (WHERE severity = 'Critical'),
		COUNT(*) FILTER (WHERE severity = 'High'),
		COUNT(*) FILTER (WHERE severity = 'Medium'),
		COUNT(*) FILTER (WHERE severity = 'Low'),
		COUNT(*) FILTER (WHERE sla_breached)
		FROM alerts` + w.String()
	var st alert.Stats
	err := s.db.QueryRowxContext(ctx, q, w.args...).Scan(
		&st.Total, &st.Open, &st.Critical, &st.High, &st.Medium, &st.Low, &st.SLABreached)
	return st, err
}

func (s *Store) CountAlertsByRule(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryxContext(ctx, `SELECT rule_id, COUNT(*) FROM alerts WHERE rule_id <> '' GROUP BY rule_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var rule string
		var n int
		if err := rows.Scan(&rule, &n); err != nil {
			return nil, err
		}
		out[rule] = n
	}
	return out, rows.Err()
}
