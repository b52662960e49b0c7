// Package reports aggregates alerts and cases into period summaries.
package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/R3E-Network/sira_platform/internal/app/core/service"
	"github.com/R3E-Network/sira_platform/internal/app/domain/alert"
	"github.com/R3E-Network/sira_platform/internal/app/domain/casefile"
	"github.com/R3E-Network/sira_platform/internal/app/pdfreport"
	apperrors "github.com/R3E-Network/sira_platform/internal/errors"
	"github.com/R3E-Network/sira_platform/pkg/logger"
)

const (
	DefaultSummaryDays  = 7
	DefaultActivityDays = 7

	recentAlerts     = 5
	descriptionChars = 100
)

type AlertLister interface {
	ListAlerts(ctx context.Context, f alert.Filter) ([]alert.Alert, error)
}

type CaseLister interface {
	ListCases(ctx context.Context, f casefile.Filter) ([]casefile.Case, error)
}

type Service struct {
	alerts AlertLister
	cases  CaseLister
	log    *logger.Logger
	now    func() time.Time
}

func New(alerts AlertLister, cases CaseLister, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("reports")
	}
	return &Service{alerts: alerts, cases: cases, log: log, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) Descriptor() service.Descriptor {
	return service.Descriptor{
		Name:         "reports",
		Domain:       "security",
		Layer:        service.LayerAnalytics,
		Capabilities: []string{"alert-summary", "dashboard", "activity"},
	}
}

type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Days  int       `json:"days,omitempty"`
}

type SummaryStats struct {
	Total       int `json:"total"`
	Critical    int `json:"critical"`
	High        int `json:"high"`
	Medium      int `json:"medium"`
	Low         int `json:"low"`
	Resolved    int `json:"resolved"`
	SLABreached int `json:"sla_breached"`
}

type SummaryAlert struct {
	ID          int64     `json:"id"`
	Severity    string    `json:"severity"`
	Domain      string    `json:"domain"`
	Status      string    `json:"status"`
	SLABreached bool      `json:"sla_breached"`
	CreatedAt   time.Time `json:"created_at"`
}

type AlertSummary struct {
	Period Period         `json:"period"`
	Stats  SummaryStats   `json:"stats"`
	Alerts []SummaryAlert `json:"alerts"`

	raw []alert.Alert
}

// AlertSummary covers alerts created between start and end. A missing end
// is now and a missing start is seven days before the end.
func (s *Service) AlertSummary(ctx context.Context, start, end *time.Time) (AlertSummary, error) {
	to := s.now()
	if end != nil {
		to = end.UTC()
	}
	from := to.AddDate(0, 0, -DefaultSummaryDays)
	if start != nil {
		from = start.UTC()
	}
	if from.After(to) {
		return AlertSummary{}, apperrors.BadRequest("start_date must be before end_date")
	}

	alerts, err := s.alerts.ListAlerts(ctx, alert.Filter{Since: &from, Until: &to})
	if err != nil {
		return AlertSummary{}, err
	}
	out := AlertSummary{Period: Period{Start: from, End: to}, Alerts: make([]SummaryAlert, 0, len(alerts)), raw: alerts}
	out.Stats.Total = len(alerts)
	for _, a := range alerts {
		switch a.Severity {
		case alert.SeverityCritical:
			out.Stats.Critical++
		case alert.SeverityHigh:
			out.Stats.High++
		case alert.SeverityMedium:
			out.Stats.Medium++
		case alert.SeverityLow:
			out.Stats.Low++
		}
		if a.Status == alert.StatusClosed {
			out.Stats.Resolved++
		}
		if a.SLABreached {
			out.Stats.SLABreached++
		}
		out.Alerts = append(out.Alerts, SummaryAlert{
			ID: a.ID, Severity: a.Severity, Domain: a.Domain, Status: a.Status,
			SLABreached: a.SLABreached, CreatedAt: a.CreatedAt,
		})
	}
	return out, nil
}

// AlertSummaryPDF renders the summary and returns the document with its
// download file name.
func (s *Service) AlertSummaryPDF(ctx context.Context, start, end *time.Time) ([]byte, string, error) {
	sum, err := s.AlertSummary(ctx, start, end)
	if err != nil {
		return nil, "", err
	}
	doc, err := pdfreport.RenderAlertSummary(pdfreport.AlertSummary{
		Start:       sum.Period.Start,
		End:         sum.Period.End,
		Total:       sum.Stats.Total,
		Critical:    sum.Stats.Critical,
		High:        sum.Stats.High,
		Resolved:    sum.Stats.Resolved,
		Alerts:      sum.raw,
		GeneratedAt: s.now(),
	})
	if err != nil {
		return nil, "", apperrors.Internal("failed to render report", err)
	}
	name := fmt.Sprintf("alert_summary_%s_%s.pdf", sum.Period.Start.Format("20060102"), sum.Period.End.Format("20060102"))
	s.log.WithField("alerts", sum.Stats.Total).Debug("alert summary rendered")
	return doc, name, nil
}

type DashboardAlerts struct {
	Total    int `json:"total"`
	Open     int `json:"open"`
	Critical int `json:"critical"`
	Today    int `json:"today"`
	ThisWeek int `json:"this_week"`
}

type DashboardCases struct {
	Total int `json:"total"`
	Open  int `json:"open"`
	Today int `json:"today"`
}

type DashboardSLA struct {
	Breached int `json:"breached"`
	AtRisk   int `json:"at_risk"`
}

type RecentAlert struct {
	ID          int64     `json:"id"`
	Severity    string    `json:"severity"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type Dashboard struct {
	Alerts       DashboardAlerts `json:"alerts"`
	Cases        DashboardCases  `json:"cases"`
	SLA          DashboardSLA    `json:"sla"`
	RecentAlerts []RecentAlert   `json:"recent_alerts"`
	GeneratedAt  time.Time       `json:"generated_at"`
}

// Dashboard counts "today" from UTC midnight and the week from seven days
// before that.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	week := today.AddDate(0, 0, -7)

	alerts, err := s.alerts.ListAlerts(ctx, alert.Filter{})
	if err != nil {
		return Dashboard{}, err
	}
	out := Dashboard{GeneratedAt: now, RecentAlerts: []RecentAlert{}}
	out.Alerts.Total = len(alerts)
	for i, a := range alerts {
		if a.Status == alert.StatusOpen {
			out.Alerts.Open++
		}
		if a.Severity == alert.SeverityCritical && a.Status != alert.StatusClosed {
			out.Alerts.Critical++
		}
		if !a.CreatedAt.Before(today) {
			out.Alerts.Today++
		}
		if !a.CreatedAt.Before(week) {
			out.Alerts.ThisWeek++
		}
		if a.SLABreached {
			out.SLA.Breached++
		} else if a.Status == alert.StatusOpen || a.Status == alert.StatusAcknowledged {
			out.SLA.AtRisk++
		}
		// Listing is newest first.
		if i < recentAlerts {
			out.RecentAlerts = append(out.RecentAlerts, RecentAlert{
				ID: a.ID, Severity: a.Severity, Description: truncate(a.Description, descriptionChars),
				Status: a.Status, CreatedAt: a.CreatedAt,
			})
		}
	}

	cases, err := s.cases.ListCases(ctx, casefile.Filter{})
	if err != nil {
		return Dashboard{}, err
	}
	out.Cases.Total = len(cases)
	for _, c := range cases {
		if c.Status != casefile.StatusClosed {
			out.Cases.Open++
		}
		if !c.CreatedAt.Before(today) {
			out.Cases.Today++
		}
	}
	return out, nil
}

type DayActivity struct {
	Total    int `json:"total"`
	Critical int `json:"critical"`
	High     int `json:"high"`
	Resolved int `json:"resolved"`
}

type ActivitySummary struct {
	TotalAlerts     int     `json:"total_alerts"`
	TotalCases      int     `json:"total_cases"`
	AvgAlertsPerDay float64 `json:"avg_alerts_per_day"`
}

type Activity struct {
	Period      Period                 `json:"period"`
	AlertsByDay map[string]DayActivity `json:"alerts_by_day"`
	CasesByDay  map[string]int         `json:"cases_by_day"`
	Summary     ActivitySummary        `json:"summary"`
}

// Activity buckets alerts and cases created in the last days by UTC date.
func (s *Service) Activity(ctx context.Context, days int) (Activity, error) {
	if days <= 0 {
		days = DefaultActivityDays
	}
	now := s.now()
	start := now.AddDate(0, 0, -days)
	out := Activity{
		Period:      Period{Start: start, End: now, Days: days},
		AlertsByDay: map[string]DayActivity{},
		CasesByDay:  map[string]int{},
	}

	alerts, err := s.alerts.ListAlerts(ctx, alert.Filter{Since: &start})
	if err != nil {
		return Activity{}, err
	}
	for _, a := range alerts {
		key := a.CreatedAt.UTC().Format("2006-01-02")
		d := out.AlertsByDay[key]
		d.Total++
		switch a.Severity {
		case alert.SeverityCritical:
			d.Critical++
		case alert.SeverityHigh:
			d.High++
		}
		if a.Status == alert.StatusClosed {
			d.Resolved++
		}
		out.AlertsByDay[key] = d
	}

	cases, err := s.cases.ListCases(ctx, casefile.Filter{Since: &start})
	if err != nil {
		return Activity{}, err
	}
	for _, c := range cases {
		out.CasesByDay[c.CreatedAt.UTC().Format("2006-01-02")]++
	}

	out.Summary = ActivitySummary{
		TotalAlerts:     len(alerts),
		TotalCases:      len(cases),
		AvgAlertsPerDay: float64(len(alerts)) / float64(days),
	}
	return out, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
