package memory

import (
	"context"
	"strings"

	"github.com/R3E-Network/sira_platform/internal/app/domain/casefile"
)

func (s *Store) CreateCase(_ context.Context, c casefile.Case) (casefile.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cases.exists(func(x casefile.Case) bool { return x.CaseNumber == c.CaseNumber }) {
		return casefile.Case{}, conflict("case", "case_number", c.CaseNumber)
	}
	stamp(&c.CreatedAt)
	touch(&c.UpdatedAt)
	s.cases.insert(&c, &c.ID)
	return c, nil
}

func (s *Store) UpdateCase(_ context.Context, c casefile.Case) (casefile.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.cases.get(c.ID)
	if !ok {
		return casefile.Case{}, notFound("case", c.ID)
	}
	c.CreatedAt = original.CreatedAt
	c.CaseNumber = original.CaseNumber
	refresh(&c.UpdatedAt)
	s.cases.put(c.ID, c)
	return c, nil
}

func (s *Store) GetCase(_ context.Context, id int64) (casefile.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.cases.get(id)
	if !ok {
		return casefile.Case{}, notFound("case", id)
	}
	return c, nil
}

func (s *Store) ListCases(_ context.Context, f casefile.Filter) ([]casefile.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.cases.filter(func(c casefile.Case) bool {
		if f.Status != "" && c.Status != f.Status {
			return false
		}
		if f.Priority != "" && c.Priority != f.Priority {
			return false
		}
		if f.Category != "" && c.Category != f.Category {
			return false
		}
		return timeInRange(c.CreatedAt, f.Since, f.Until)
	}, func(a, b casefile.Case) bool { return newerFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID) })
	return paginate(out, f.Offset, f.Limit), nil
}

func (s *Store) CaseStats(_ context.Context) (casefile.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := casefile.Stats{ByPriority: map[string]int{
		casefile.PriorityCritical: 0,
		casefile.PriorityHigh:     0,
		casefile.PriorityMedium:   0,
		casefile.PriorityLow:      0,
	}}
	for _, c := range s.cases.rows {
		st.Total++
		switch c.Status {
		case casefile.StatusOpen:
			st.Open++
		case casefile.StatusInvestigating:
			st.Investigating++
		case casefile.StatusClosed:
			st.Closed++
		}
		if _, ok := st.ByPriority[c.Priority]; ok {
			st.ByPriority[c.Priority]++
		}
	}
	return st, nil
}

func (s *Store) CountCasesWithPrefix(_ context.Context, prefix string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, c := range s.cases.rows {
		if strings.HasPrefix(c.CaseNumber, prefix) {
			n++
		}
	}
	return n, nil
}

func (s *Store) CreateEvidence(_ context.Context, e casefile.Evidence) (casefile.Evidence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cases.get(e.CaseID); !ok {
		return casefile.Evidence{}, notFound("case", e.CaseID)
	}
	stamp(&e.CreatedAt)
	s.evidence.insert(&e, &e.ID)
	return e, nil
}

func (s *Store) UpdateEvidence(_ context.Context, e casefile.Evidence) (casefile.Evidence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.evidence.get(e.ID)
	if !ok {
		return casefile.Evidence{}, notFound("evidence", e.ID)
	}
	e.CreatedAt = original.CreatedAt
	e.CaseID = original.CaseID
	s.evidence.put(e.ID, e)
	return e, nil
}

func (s *Store) GetEvidence(_ context.Context, id int64) (casefile.Evidence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.evidence.get(id)
	if !ok {
		return casefile.Evidence{}, notFound("evidence", id)
	}
	return e, nil
}

func (s *Store) ListEvidence(_ context.Context, caseID int64) ([]casefile.Evidence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.evidence.filter(func(e casefile.Evidence) bool { return e.CaseID == caseID },
		func(a, b casefile.Evidence) bool { return newerFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID) }), nil
}

func (s *Store) DeleteEvidence(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.evidence.remove(id) {
		return notFound("evidence", id)
	}
	return nil
}
