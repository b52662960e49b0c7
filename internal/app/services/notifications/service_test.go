package notifications

import (
	"context"
	"net/smtp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/sira_platform/internal/app/domain/alert"
	"github.com/R3E-Network/sira_platform/internal/app/domain/casefile"
	"github.com/R3E-Network/sira_platform/internal/app/domain/notification"
	"github.com/R3E-Network/sira_platform/internal/app/domain/roles"
	"github.com/R3E-Network/sira_platform/internal/app/domain/user"
	"github.com/R3E-Network/sira_platform/internal/app/services/realtime"
	"github.com/R3E-Network/sira_platform/internal/app/storage/memory"
	apperrors "github.com/R3E-Network/sira_platform/internal/errors"
	"github.com/R3E-Network/sira_platform/pkg/logger"
)

type pushed struct {
	userID int64
	room   string
	all    bool
	msg    realtime.Message
}

type fakePusher struct {
	mu   sync.Mutex
	sent []pushed
}

func (p *fakePusher) SendToUser(_ context.Context, id int64, m realtime.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, pushed{userID: id, msg: m})
}

func (p *fakePusher) SendToRoom(_ context.Context, room string, m realtime.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, pushed{room: room, msg: m})
}

func (p *fakePusher) Broadcast(_ context.Context, m realtime.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, pushed{all: true, msg: m})
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []Email
}

func (m *fakeMailer) Configured() bool { return true }

func (m *fakeMailer) Send(_ context.Context, e Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, e)
	return nil
}

type fixture struct {
	svc    *Service
	store  *memory.Store
	push   *fakePusher
	mailer *fakeMailer
	lead   user.User
	admin  user.User
	op     user.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	f := &fixture{store: store, push: &fakePusher{}, mailer: &fakeMailer{}}
	f.svc = New(store, store, f.push, f.mailer, "http://localhost:3000", logger.Discard())
	f.svc.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }

	var err error
	f.lead, err = store.CreateUser(ctx, user.User{Username: "lead", Email: "lead@x.io", Role: roles.SecurityLead, IsActive: true})
	require.NoError(t, err)
	f.admin, err = store.CreateUser(ctx, user.User{Username: "admin", Email: "admin@x.io", Role: roles.Admin, IsActive: true})
	require.NoError(t, err)
	f.op, err = store.CreateUser(ctx, user.User{Username: "op", Email: "op@x.io", Role: roles.Operator, IsActive: true})
	require.NoError(t, err)
	return f
}

func TestShouldEmail(t *testing.T) {
	noon := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.True(t, ShouldEmail(nil, notification.TypeAlert, alert.SeverityHigh, noon))
	assert.False(t, ShouldEmail(nil, notification.TypeAlert, alert.SeverityMedium, noon))

	p := notification.DefaultPreference(1)
	assert.True(t, ShouldEmail(&p, notification.TypeAlert, alert.SeverityCritical, noon))
	assert.False(t, ShouldEmail(&p, notification.TypeAlert, alert.SeverityLow, noon))
	assert.True(t, ShouldEmail(&p, notification.TypeCaseUpdate, "", noon))

	p.QuietHoursEnabled = true
	p.QuietHoursStart = "11:00"
	p.QuietHoursEnd = "13:00"
	assert.False(t, ShouldEmail(&p, notification.TypeAlert, alert.SeverityHigh, noon))
	assert.True(t, ShouldEmail(&p, notification.TypeAlert, alert.SeverityCritical, noon))

	p.EmailEnabled = false
	assert.False(t, ShouldEmail(&p, notification.TypeAlert, alert.SeverityCritical, noon))
}

func TestInQuietHoursWrapsMidnight(t *testing.T) {
	p := notification.Preference{QuietHoursEnabled: true, QuietHoursStart: "22:00", QuietHoursEnd: "06:00"}
	at := func(h, m int) time.Time { return time.Date(2024, 1, 1, h, m, 0, 0, time.UTC) }

	assert.True(t, InQuietHours(p, at(23, 30)))
	assert.True(t, InQuietHours(p, at(5, 59)))
	assert.False(t, InQuietHours(p, at(12, 0)))

	p.QuietHoursEnd = "bogus"
	assert.False(t, InQuietHours(p, at(23, 30)))
}

func TestNotifyAlertRespectsPreferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pref := notification.DefaultPreference(f.admin.ID)
	pref.WebSocketEnabled = false
	_, err := f.store.SavePreference(ctx, pref)
	require.NoError(t, err)

	a := alert.Alert{ID: 7, Severity: alert.SeverityCritical, Description: "Armed boarding reported", CreatedAt: f.svc.now()}
	require.NoError(t, f.svc.NotifyAlert(ctx, a, nil))

	require.Len(t, f.push.sent, 1)
	assert.Equal(t, f.lead.ID, f.push.sent[0].userID)
	assert.Equal(t, realtime.TypeAlert, f.push.sent[0].msg.Type)
	assert.Equal(t, notification.PriorityUrgent, f.push.sent[0].msg.Priority)
	data := f.push.sent[0].msg.Data.(map[string]any)
	assert.EqualValues(t, 7, data["alert_id"])

	require.Len(t, f.mailer.sent, 2)
	assert.Equal(t, "[SIRA Alert - Critical] Armed boarding reported...", f.mailer.sent[0].Subject)

	leadInbox, err := f.svc.List(ctx, notification.Filter{UserID: f.lead.ID})
	require.NoError(t, err)
	assert.Len(t, leadInbox, 2)
	assert.Equal(t, "Alert: Critical", leadInbox[0].Title)

	adminInbox, err := f.svc.List(ctx, notification.Filter{UserID: f.admin.ID})
	require.NoError(t, err)
	require.Len(t, adminInbox, 1)
	assert.Equal(t, notification.ChannelEmail, adminInbox[0].Channel)

	opInbox, err := f.svc.List(ctx, notification.Filter{UserID: f.op.ID})
	require.NoError(t, err)
	assert.Empty(t, opInbox)
}

func TestNotifyAlertTargetsAssignee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := alert.Alert{ID: 3, Severity: alert.SeverityLow, Description: "Alert assigned to you: gate left open"}
	require.NoError(t, f.svc.NotifyAlert(ctx, a, []int64{f.op.ID, 999}))

	require.Len(t, f.push.sent, 1)
	assert.Equal(t, f.op.ID, f.push.sent[0].userID)
	assert.Empty(t, f.mailer.sent)
}

func TestNotifyCase(t *testing.T) {
	f := newFixture(t)
	c := casefile.Case{ID: 4, CaseNumber: "CASE-2024-0004", Title: "Seal tampering", Status: casefile.StatusOpen}
	require.NoError(t, f.svc.NotifyCase(context.Background(), c, "created", nil))

	require.Len(t, f.push.sent, 2)
	assert.Equal(t, realtime.TypeCase, f.push.sent[0].msg.Type)
	assert.Equal(t, "created", f.push.sent[0].msg.Action)
	// Users without saved preferences only get alert emails.
	assert.Empty(t, f.mailer.sent)

	inbox, err := f.svc.List(context.Background(), notification.Filter{UserID: f.lead.ID})
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, "Case created: CASE-2024-0004", inbox[0].Title)
}

func TestNotifySLABreach(t *testing.T) {
	f := newFixture(t)
	a := alert.Alert{ID: 11, Severity: alert.SeverityHigh, SLATimer: 30}
	require.NoError(t, f.svc.NotifySLABreach(context.Background(), a))

	require.Len(t, f.push.sent, 1)
	assert.Equal(t, realtime.RoomSupervisors, f.push.sent[0].room)
	assert.Equal(t, realtime.TypeSLABreach, f.push.sent[0].msg.Type)

	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, "[URGENT] SLA BREACH - Alert 11", f.mailer.sent[0].Subject)
	assert.Equal(t, []string{"admin@x.io"}, f.mailer.sent[0].To)

	inbox, err := f.svc.List(context.Background(), notification.Filter{UserID: f.admin.ID})
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, "SLA BREACH: Alert 11", inbox[0].Title)
	assert.Equal(t, notification.PriorityUrgent, inbox[0].Priority)
}

func TestInboxOperations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.NotifyAlert(ctx, alert.Alert{ID: 1, Severity: alert.SeverityLow}, []int64{f.lead.ID}))
	require.NoError(t, f.svc.NotifyAlert(ctx, alert.Alert{ID: 2, Severity: alert.SeverityLow}, []int64{f.lead.ID}))

	n, err := f.svc.UnreadCount(ctx, f.lead.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	inbox, err := f.svc.List(ctx, notification.Filter{UserID: f.lead.ID})
	require.NoError(t, err)
	err = f.svc.MarkRead(ctx, f.admin.ID, inbox[0].ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
	require.NoError(t, f.svc.MarkRead(ctx, f.lead.ID, inbox[0].ID))

	count, err := f.svc.MarkAllRead(ctx, f.lead.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPreferencesLazyDefaultsAndValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.svc.Preferences(ctx, f.op.ID)
	require.NoError(t, err)
	assert.True(t, p.EmailEnabled)
	assert.NotZero(t, p.ID)

	bad := "25:00"
	_, err = f.svc.UpdatePreferences(ctx, f.op.ID, PreferenceUpdate{QuietHoursStart: &bad})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	on, start, end, off := true, "22:00", "06:00", false
	p, err = f.svc.UpdatePreferences(ctx, f.op.ID, PreferenceUpdate{QuietHoursEnabled: &on, QuietHoursStart: &start, QuietHoursEnd: &end, EmailHighAlerts: &off})
	require.NoError(t, err)
	assert.True(t, p.QuietHoursEnabled)
	assert.Equal(t, "22:00", p.QuietHoursStart)
	assert.False(t, p.EmailHighAlerts)
	assert.True(t, p.EmailCriticalAlerts)
}

func TestSendDigestHonoursOptOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	off := false
	_, err := f.svc.UpdatePreferences(ctx, f.op.ID, PreferenceUpdate{EmailDailyDigest: &off})
	require.NoError(t, err)

	sent, err := f.svc.SendDigest(ctx, Digest{Date: "2024-06-01", TotalAlerts: 4})
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	require.Len(t, f.mailer.sent, 2)
	assert.Equal(t, "[SIRA] Daily Digest - 2024-06-01", f.mailer.sent[0].Subject)
	assert.Contains(t, f.mailer.sent[0].Text, "Total Alerts: 4")
}

func TestBuildDigest(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	now := time.Now().UTC()
	_, err := store.CreateAlert(ctx, alert.Alert{Severity: alert.SeverityCritical, Status: alert.StatusOpen, CreatedAt: now.Add(-time.Hour)})
	require.NoError(t, err)
	_, err = store.CreateAlert(ctx, alert.Alert{Severity: alert.SeverityLow, Status: alert.StatusOpen, CreatedAt: now.Add(-48 * time.Hour)})
	require.NoError(t, err)
	_, err = store.CreateCase(ctx, casefile.Case{CaseNumber: "CASE-1", Status: casefile.StatusOpen, Priority: casefile.PriorityHigh})
	require.NoError(t, err)

	d, err := BuildDigest(ctx, store, store, now)
	require.NoError(t, err)
	assert.Equal(t, 1, d.TotalAlerts)
	assert.Equal(t, 1, d.CriticalAlerts)
	assert.Equal(t, 1, d.OpenCases)
}

func TestSMTPMailerComposesMultipart(t *testing.T) {
	m := NewSMTPMailer(SMTPSettings{Host: "smtp.example", Username: "u", Password: "p", From: "noreply@sira.io", FromName: "SIRA Platform"}, logger.Discard())
	var gotAddr string
	var gotMsg []byte
	m.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr = addr
		gotMsg = msg
		assert.Equal(t, "noreply@sira.io", from)
		assert.Equal(t, []string{"a@x.io"}, to)
		return nil
	}

	require.NoError(t, m.Send(context.Background(), Email{To: []string{"a@x.io"}, Subject: "Hello", HTML: "<p>hi</p>", Text: "hi"}))
	assert.Equal(t, "smtp.example:587", gotAddr)
	body := string(gotMsg)
	assert.Contains(t, body, "Subject: Hello\r\n")
	assert.Contains(t, body, "multipart/alternative")
	assert.True(t, strings.Contains(body, "text/plain") && strings.Contains(body, "text/html"))

	unconfigured := NewSMTPMailer(SMTPSettings{Host: "smtp.example"}, logger.Discard())
	assert.False(t, unconfigured.Configured())
	assert.Error(t, unconfigured.Send(context.Background(), Email{To: []string{"a@x.io"}}))
}
