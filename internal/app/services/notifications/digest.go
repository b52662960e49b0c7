package notifications

import (
	"context"
	"time"

	"github.com/R3E-Network/sira_platform/internal/app/domain/alert"
	"github.com/R3E-Network/sira_platform/internal/app/domain/notification"
	"github.com/R3E-Network/sira_platform/internal/app/domain/user"
	"github.com/R3E-Network/sira_platform/internal/app/storage"
)

// Digest summarises one day of activity.
type Digest struct {
	Date           string `json:"date"`
	TotalAlerts    int    `json:"total_alerts"`
	CriticalAlerts int    `json:"critical_alerts"`
	OpenCases      int    `json:"open_cases"`
	SLABreaches    int    `json:"sla_breaches"`
}

// BuildDigest counts the alerts raised in the 24 hours before now and the
// cases currently open.
func BuildDigest(ctx context.Context, alerts storage.AlertStore, cases storage.CaseStore, now time.Time) (Digest, error) {
	since := now.Add(-24 * time.Hour)
	st, err := alerts.AlertStats(ctx, alert.Filter{Since: &since, Until: &now})
	if err != nil {
		return Digest{}, err
	}
	cs, err := cases.CaseStats(ctx)
	if err != nil {
		return Digest{}, err
	}
	return Digest{
		Date:           now.UTC().Format("2006-01-02"),
		TotalAlerts:    st.Total,
		CriticalAlerts: st.Critical,
		OpenCases:      cs.Open,
		SLABreaches:    st.SLABreached,
	}, nil
}

// SendDigest emails d to every active user whose settings ask for it and
// returns how many were sent.
func (s *Service) SendDigest(ctx context.Context, d Digest) (int, error) {
	if s.mailer == nil || !s.mailer.Configured() {
		s.log.Debug("daily digest skipped: email not configured")
		return 0, nil
	}
	users, err := s.users.ListUsers(ctx, user.Filter{ActiveOnly: true})
	if err != nil {
		return 0, err
	}
	email, err := digestEmail(d, s.appURL)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, u := range users {
		pref := notification.DefaultPreference(u.ID)
		if p := s.preference(ctx, u.ID); p != nil {
			pref = *p
		}
		if !pref.EmailEnabled || !pref.EmailDailyDigest {
			continue
		}
		e := email
		e.To = []string{u.Email}
		if err := s.mailer.Send(ctx, e); err != nil {
			s.log.WithError(err).WithField("user_id", u.ID).Warn("digest not delivered")
			continue
		}
		sent++
	}
	s.log.Infof("daily digest %s sent to %d users", d.Date, sent)
	return sent, nil
}
