package postgres

import (
	"context"

	"github.com/R3E-Network/sira_platform/internal/app/domain/playbook"
)

var playbooksTable = newWriteSet("playbooks", playbook.Playbook{})

func (s *Store) CreatePlaybook(ctx context.Context, p playbook.Playbook) (playbook.Playbook, error) {
	stamp(&p.CreatedAt, &p.UpdatedAt)
	id, err := s.insert(ctx, playbooksTable, p)
	if err != nil {
		return playbook.Playbook{}, err
	}
	p.ID = id
	return p, nil
}

func (s *Store) UpdatePlaybook(ctx context.Context, p playbook.Playbook) (playbook.Playbook, error) {
	refresh(&p.UpdatedAt)
	if err := s.update(ctx, playbooksTable, p.ID, p); err != nil {
		return playbook.Playbook{}, err
	}
	return s.GetPlaybook(ctx, p.ID)
}

func (s *Store) GetPlaybook(ctx context.Context, id int64) (playbook.Playbook, error) {
	var p playbook.Playbook
	err := s.getByID(ctx, &p, "playbooks", id)
	return p, err
}

func (s *Store) ListPlaybooks(ctx context.Context, f playbook.Filter) ([]playbook.Playbook, error) {
	w := &where{}
	if f.Active != nil {
		w.add("is_active = ?", *f.Active)
	}
	w.eq("incident_type", f.IncidentType)
	w.like("incident_type", f.IncidentTypeLike)
	w.eq("domain", f.Domain)
	out := []playbook.Playbook{}
	err := s.list(ctx, &out, "playbooks", w, "title, id", f.Offset, f.Limit)
	return out, err
}
