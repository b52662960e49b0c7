package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/R3E-Network/sira_platform/internal/app/domain/alert"
	"github.com/R3E-Network/sira_platform/internal/app/domain/casefile"
)

const layout = `<!DOCTYPE html>
<html><head><style>
body { font-family: Arial, sans-serif; line-height: 1.6; }
.container { max-width: 600px; margin: 0 auto; padding: 20px; }
.header { background-color: {{.Color}}; color: white; padding: 20px; text-align: center; }
.content { padding: 20px; background-color: #f8f9fa; }
.label { font-weight: bold; color: #495057; }
.button { display: inline-block; padding: 10px 20px; background-color: #007bff; color: white; text-decoration: none; border-radius: 5px; }
.footer { text-align: center; padding: 20px; color: #6c757d; font-size: 12px; }
</style></head>
<body><div class="container">
<div class="header"><h1>{{.Heading}}</h1>{{if .Subheading}}<h2>{{.Subheading}}</h2>{{end}}</div>
<div class="content">
{{if .Lead}}<p><strong>{{.Lead}}</strong></p>{{end}}
{{range .Rows}}<div><span class="label">{{.Label}}:</span> {{.Value}}</div>
{{end}}
{{if .Link}}<br><a href="{{.Link}}" class="button">{{.LinkText}}</a>{{end}}
</div>
<div class="footer"><p>This is an automated notification from SIRA Platform.</p><p>Do not reply to this email.</p></div>
</div></body></html>`

const plain = `{{.Heading}}
{{if .Subheading}}{{.Subheading}}
{{end}}{{if .Lead}}{{.Lead}}
{{end}}
{{range .Rows}}{{.Label}}: {{.Value}}
{{end}}
Please log in to the SIRA dashboard for more details.
`

var (
	htmlTmpl = template.Must(template.New("email").Parse(layout))
	textTmpl = texttemplate.Must(texttemplate.New("email").Parse(plain))
)

type row struct {
	Label string
	Value string
}

type view struct {
	Color      string
	Heading    string
	Subheading string
	Lead       string
	Rows       []row
	Link       string
	LinkText   string
}

func render(v view) (string, string, error) {
	var h, t bytes.Buffer
	if err := htmlTmpl.Execute(&h, v); err != nil {
		return "", "", fmt.Errorf("render html: %w", err)
	}
	if err := textTmpl.Execute(&t, v); err != nil {
		return "", "", fmt.Errorf("render text: %w", err)
	}
	return h.String(), t.String(), nil
}

func severityColor(sev string) string {
	switch sev {
	case alert.SeverityCritical:
		return "#dc3545"
	case alert.SeverityHigh:
		return "#fd7e14"
	case alert.SeverityMedium:
		return "#ffc107"
	default:
		return "#28a745"
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

func alertEmail(a alert.Alert, appURL string) (Email, error) {
	desc := orDefault(a.Description, "No description")
	v := view{
		Color:      severityColor(a.Severity),
		Heading:    "Security Alert",
		Subheading: a.Severity + " Severity",
		Rows: []row{
			{"Alert ID", fmt.Sprint(a.ID)},
			{"Domain", orDefault(a.Domain, "N/A")},
			{"Description", desc},
			{"Time", a.CreatedAt.UTC().Format(time.RFC3339)},
		},
		Link:     appURL,
		LinkText: "View in SIRA Dashboard",
	}
	html, text, err := render(v)
	if err != nil {
		return Email{}, err
	}
	return Email{
		Subject: fmt.Sprintf("[SIRA Alert - %s] %s...", a.Severity, truncate(desc, 50)),
		HTML:    html,
		Text:    text,
	}, nil
}

func caseEmail(c casefile.Case, updateType, appURL string) (Email, error) {
	title := orDefault(c.Title, "Untitled Case")
	v := view{
		Color:      "#007bff",
		Heading:    "Case " + titleCase(updateType),
		Subheading: c.CaseNumber,
		Rows: []row{
			{"Title", title},
			{"Status", c.Status},
			{"Priority", titleCase(orDefault(c.Priority, casefile.PriorityMedium))},
		},
		Link:     appURL,
		LinkText: "View Case Details",
	}
	html, text, err := render(v)
	if err != nil {
		return Email{}, err
	}
	return Email{
		Subject: fmt.Sprintf("[SIRA Case %s] %s: %s...", titleCase(updateType), c.CaseNumber, truncate(title, 40)),
		HTML:    html,
		Text:    text,
	}, nil
}

func slaEmail(a alert.Alert, appURL string) (Email, error) {
	v := view{
		Color:      "#dc3545",
		Heading:    "SLA BREACH",
		Subheading: "IMMEDIATE ACTION REQUIRED",
		Lead:       fmt.Sprintf("Alert %d has breached its SLA of %d minutes!", a.ID, a.SLATimer),
		Rows: []row{
			{"Severity", a.Severity},
			{"Description", orDefault(a.Description, "No description")},
			{"Created", a.CreatedAt.UTC().Format(time.RFC3339)},
		},
		Link:     appURL,
		LinkText: "Take Action Now",
	}
	html, text, err := render(v)
	if err != nil {
		return Email{}, err
	}
	return Email{Subject: fmt.Sprintf("[URGENT] SLA BREACH - Alert %d", a.ID), HTML: html, Text: text}, nil
}

func digestEmail(d Digest, appURL string) (Email, error) {
	v := view{
		Color:      "#343a40",
		Heading:    "Daily Digest",
		Subheading: d.Date,
		Rows: []row{
			{"Total Alerts", fmt.Sprint(d.TotalAlerts)},
			{"Critical Alerts", fmt.Sprint(d.CriticalAlerts)},
			{"Open Cases", fmt.Sprint(d.OpenCases)},
			{"SLA Breaches", fmt.Sprint(d.SLABreaches)},
		},
		Link:     appURL,
		LinkText: "Open Dashboard",
	}
	html, text, err := render(v)
	if err != nil {
		return Email{}, err
	}
	return Email{Subject: "[SIRA] Daily Digest - " + d.Date, HTML: html, Text: text}, nil
}
