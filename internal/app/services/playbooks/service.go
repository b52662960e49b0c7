// Package playbooks manages incident response playbooks.
package playbooks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/R3E-Network/sira_platform/internal/app/core/service"
	"github.com/R3E-Network/sira_platform/internal/app/domain/playbook"
	"github.com/R3E-Network/sira_platform/internal/app/domain/user"
	"github.com/R3E-Network/sira_platform/internal/app/storage"
	apperrors "github.com/R3E-Network/sira_platform/internal/errors"
	"github.com/R3E-Network/sira_platform/pkg/logger"
)

// Service manages playbooks.
type Service struct {
	store storage.PlaybookStore
	log   *logger.Logger
	now   func() time.Time
}

func New(store storage.PlaybookStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("playbooks")
	}
	return &Service{store: store, log: log, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) Descriptor() service.Descriptor {
	return service.Descriptor{Name: "playbooks", Domain: "response", Layer: service.LayerCore, Capabilities: []string{"playbooks", "search"}}
}

// CreateRequest defines a playbook. Steps, RequiredRoles and
// EscalationRules hold JSON documents.
type CreateRequest struct {
	IncidentType      string `json:"incident_type"`
	Domain            string `json:"domain"`
	Title             string `json:"title"`
	Description       string `json:"description"`
	Steps             string `json:"steps"`
	EstimatedDuration *int   `json:"estimated_duration"`
	RequiredRoles     string `json:"required_roles"`
	EscalationRules   string `json:"escalation_rules"`
}

// Update is a partial playbook update.
type Update struct {
	IncidentType      *string `json:"incident_type"`
	Domain            *string `json:"domain"`
	Title             *string `json:"title"`
	Description       *string `json:"description"`
	Steps             *string `json:"steps"`
	EstimatedDuration *int    `json:"estimated_duration"`
	RequiredRoles     *string `json:"required_roles"`
	EscalationRules   *string `json:"escalation_rules"`
	IsActive          *bool   `json:"is_active"`
}

// List returns playbooks ordered by title. A nil active filter means active
// playbooks only.
func (s *Service) List(ctx context.Context, f playbook.Filter) ([]playbook.Playbook, error) {
	if f.Active == nil {
		active := true
		f.Active = &active
	}
	return s.store.ListPlaybooks(ctx, f)
}

func (s *Service) Get(ctx context.Context, id int64) (playbook.Playbook, error) {
	p, err := s.store.GetPlaybook(ctx, id)
	return p, service.Translate(err, "Playbook")
}

// Search matches active playbooks whose incident type contains term.
func (s *Service) Search(ctx context.Context, term, domain string) ([]playbook.Playbook, error) {
	active := true
	return s.store.ListPlaybooks(ctx, playbook.Filter{Active: &active, IncidentTypeLike: term, Domain: domain})
}

func (s *Service) Create(ctx context.Context, actor user.User, req CreateRequest) (playbook.Playbook, error) {
	if err := checkText("incident_type", req.IncidentType, 1, 100); err != nil {
		return playbook.Playbook{}, err
	}
	if err := checkText("title", req.Title, 1, 255); err != nil {
		return playbook.Playbook{}, err
	}
	if len(req.Domain) > 100 {
		return playbook.Playbook{}, apperrors.Validation("domain is limited to 100 characters")
	}
	if err := checkJSON("steps", req.Steps, true); err != nil {
		return playbook.Playbook{}, err
	}
	if err := checkJSON("required_roles", req.RequiredRoles, false); err != nil {
		return playbook.Playbook{}, err
	}
	if err := checkJSON("escalation_rules", req.EscalationRules, false); err != nil {
		return playbook.Playbook{}, err
	}
	if req.EstimatedDuration != nil && *req.EstimatedDuration <= 0 {
		return playbook.Playbook{}, apperrors.Validation("estimated_duration must be positive")
	}

	now := s.now()
	p, err := s.store.CreatePlaybook(ctx, playbook.Playbook{
		IncidentType:      req.IncidentType,
		Domain:            req.Domain,
		Title:             req.Title,
		Description:       req.Description,
		Steps:             req.Steps,
		EstimatedDuration: req.EstimatedDuration,
		RequiredRoles:     req.RequiredRoles,
		EscalationRules:   req.EscalationRules,
		IsActive:          true,
		Version:           1,
		CreatedBy:         &actor.ID,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	if err != nil {
		return playbook.Playbook{}, service.Translate(err, "Playbook")
	}
	s.log.WithField("playbook_id", p.ID).Infof("playbook created: %s by %s", p.Title, actor.Username)
	return p, nil
}

// Update applies a partial update. Changing the steps bumps the version.
func (s *Service) Update(ctx context.Context, actor user.User, id int64, upd Update) (playbook.Playbook, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return playbook.Playbook{}, err
	}
	if upd.IncidentType != nil {
		if err := checkText("incident_type", *upd.IncidentType, 1, 100); err != nil {
			return playbook.Playbook{}, err
		}
		p.IncidentType = *upd.IncidentType
	}
	if upd.Title != nil {
		if err := checkText("title", *upd.Title, 1, 255); err != nil {
			return playbook.Playbook{}, err
		}
		p.Title = *upd.Title
	}
	if upd.Domain != nil {
		p.Domain = *upd.Domain
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	if upd.Steps != nil {
		if err := checkJSON("steps", *upd.Steps, true); err != nil {
			return playbook.Playbook{}, err
		}
		p.Steps = *upd.Steps
		p.Version++
	}
	if upd.EstimatedDuration != nil {
		if *upd.EstimatedDuration <= 0 {
			return playbook.Playbook{}, apperrors.Validation("estimated_duration must be positive")
		}
		p.EstimatedDuration = upd.EstimatedDuration
	}
	if upd.RequiredRoles != nil {
		if err := checkJSON("required_roles", *upd.RequiredRoles, false); err != nil {
			return playbook.Playbook{}, err
		}
		p.RequiredRoles = *upd.RequiredRoles
	}
	if upd.EscalationRules != nil {
		if err := checkJSON("escalation_rules", *upd.EscalationRules, false); err != nil {
			return playbook.Playbook{}, err
		}
		p.EscalationRules = *upd.EscalationRules
	}
	if upd.IsActive != nil {
		p.IsActive = *upd.IsActive
	}
	p.UpdatedAt = s.now()
	saved, err := s.store.UpdatePlaybook(ctx, p)
	if err != nil {
		return playbook.Playbook{}, service.Translate(err, "Playbook")
	}
	s.log.WithField("playbook_id", id).Infof("playbook updated: %s by %s", saved.Title, actor.Username)
	return saved, nil
}

// Deactivate hides a playbook from default listings and search.
func (s *Service) Deactivate(ctx context.Context, actor user.User, id int64) error {
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	p.IsActive = false
	p.UpdatedAt = s.now()
	if _, err := s.store.UpdatePlaybook(ctx, p); err != nil {
		return service.Translate(err, "Playbook")
	}
	s.log.WithField("playbook_id", id).Infof("playbook deactivated: %s by %s", p.Title, actor.Username)
	return nil
}

func checkText(field, v string, min, max int) error {
	n := len(strings.TrimSpace(v))
	if n < min || len(v) > max {
		return apperrors.Validation(fmt.Sprintf("%s must be %d-%d characters", field, min, max))
	}
	return nil
}

func checkJSON(field, v string, required bool) error {
	if strings.TrimSpace(v) == "" {
		if required {
			return apperrors.Validation(field + " is required")
		}
		return nil
	}
	if !gjson.Valid(v) {
		return apperrors.Validation(field + " must be a JSON document")
	}
	return nil
}
