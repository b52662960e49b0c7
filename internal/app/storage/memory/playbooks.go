package memory

import (
	"context"

	"github.com/R3E-Network/sira_platform/internal/app/domain/playbook"
)

func (s *Store) CreatePlaybook(_ context.Context, p playbook.Playbook) (playbook.Playbook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stamp(&p.CreatedAt)
	touch(&p.UpdatedAt)
	s.playbooks.insert(&p, &p.ID)
	return p, nil
}

func (s *Store) UpdatePlaybook(_ context.Context, p playbook.Playbook) (playbook.Playbook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.playbooks.get(p.ID)
	if !ok {
		return playbook.Playbook{}, notFound("playbook", p.ID)
	}
	p.CreatedAt = original.CreatedAt
	refresh(&p.UpdatedAt)
	s.playbooks.put(p.ID, p)
	return p, nil
}

func (s *Store) GetPlaybook(_ context.Context, id int64) (playbook.Playbook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.playbooks.get(id)
	if !ok {
		return playbook.Playbook{}, notFound("playbook", id)
	}
	return p, nil
}

// ListPlaybooks orders playbooks by title.
func (s *Store) ListPlaybooks(_ context.Context, f playbook.Filter) ([]playbook.Playbook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.playbooks.filter(func(p playbook.Playbook) bool {
		if f.Active != nil && p.IsActive != *f.Active {
			return false
		}
		if f.IncidentType != "" && p.IncidentType != f.IncidentType {
			return false
		}
		if f.IncidentTypeLike != "" && !containsFold(p.IncidentType, f.IncidentTypeLike) {
			return false
		}
		return f.Domain == "" || p.Domain == f.Domain
	}, func(a, b playbook.Playbook) bool { return byName(a.Title, b.Title, a.ID, b.ID) })
	return paginate(out, f.Offset, f.Limit), nil
}
