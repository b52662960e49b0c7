package postgres

import (
	"context"

	"github.com/R3E-Network/sira_platform/internal/app/domain/casefile"
)

var (
	casesTable    = newWriteSet("cases", casefile.Case{}, "case_number")
	evidenceTable = newWriteSet("evidences", casefile.Evidence{}, "case_id")
)

func (s *Store) CreateCase(ctx context.Context, c casefile.Case) (casefile.Case, error) {
	stamp(&c.CreatedAt, &c.UpdatedAt)
	id, err := s.insert(ctx, casesTable, c)
	if err != nil {
		return casefile.Case{}, err
	}
	c.ID = id
	return c, nil
}

func (s *Store) UpdateCase(ctx context.Context, c casefile.Case) (casefile.Case, error) {
	refresh(&c.UpdatedAt)
	if err := s.update(ctx, casesTable, c.ID, c); err != nil {
		return casefile.Case{}, err
	}
	return s.GetCase(ctx, c.ID)
}

func (s *Store) GetCase(ctx context.Context, id int64) (casefile.Case, error) {
	var c casefile.Case
	err := s.getByID(ctx, &c, "cases", id)
	return c, err
}

func (s *Store) ListCases(ctx context.Context, f casefile.Filter) ([]casefile.Case, error) {
	w := &where{}
	w.eq("status", f.Status)
	w.eq("priority", f.Priority)
	w.eq("category", f.Category)
	w.since("created_at", f.Since)
	w.until("created_at", f.Until)
	out := []casefile.Case{}
	err := s.list(ctx, &out, "cases", w, "created_at DESC, id DESC", f.Offset, f.Limit)
	return out, err
}

func (s *Store) CaseStats(ctx context.Context) (casefile.Stats, error) {
	var st casefile.Stats
	var critical, high, medium, low int
	err := s.db.QueryRowxContext(ctx, `SELECT COUNT(*),
		COUNT(*) FILTER (WHERE status = 'open'),
		COUNT(*) FILTER (WHERE status = 'investigating'),
		COUNT(*) FILTER (WHERE status = 'closed'),
		COUNT(*) FILTER (WHERE priority = 'critical'),
		COUNT(*) FILTER (WHERE priority = 'high'),
		COUNT(*) FILTER (WHERE priority = 'medium'),
		COUNT(*) FILTER (WHERE priority = 'low')
		FROM cases`).Scan(&st.Total, &st.Open, &st.Investigating, &st.Closed, &critical, &high, &medium, &low)
	if err != nil {
		return casefile.Stats{}, err
	}
	st.ByPriority = map[string]int{
		casefile.PriorityCritical: critical,
		casefile.PriorityHigh:     high,
		casefile.PriorityMedium:   medium,
		casefile.PriorityLow:      low,
	}
	return st, nil
}

func (s *Store) CountCasesWithPrefix(ctx context.Context, prefix string) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM cases WHERE case_number LIKE $1", prefix+"%")
	return n, err
}

func (s *Store) CreateEvidence(ctx context.Context, e casefile.Evidence) (casefile.Evidence, error) {
	stamp(&e.CreatedAt, nil)
	id, err := s.insert(ctx, evidenceTable, e)
	if err != nil {
		return casefile.Evidence{}, err
	}
	e.ID = id
	return e, nil
}

func (s *Store) UpdateEvidence(ctx context.Context, e casefile.Evidence) (casefile.Evidence, error) {
	if err := s.update(ctx, evidenceTable, e.ID, e); err != nil {
		return casefile.Evidence{}, err
	}
	return s.GetEvidence(ctx, e.ID)
}

func (s *Store) GetEvidence(ctx context.Context, id int64) (casefile.Evidence, error) {
	var e casefile.Evidence
	err := s.getByID(ctx, &e, "evidences", id)
	return e, err
}

func (s *Store) ListEvidence(ctx context.Context, caseID int64) ([]casefile.Evidence, error) {
	w := &where{}
	w.add("case_id = ?", caseID)
	out := []casefile.Evidence{}
	err := s.list(ctx, &out, "evidences", w, "created_at DESC, id DESC", 0, 0)
	return out, err
}

func (s *Store) DeleteEvidence(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "evidences", id)
}
