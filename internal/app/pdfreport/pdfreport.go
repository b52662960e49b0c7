// Package pdfreport renders compliance and summary reports as PDF.
package pdfreport

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/R3E-Network/sira_platform/internal/app/domain/alert"
	"github.com/R3E-Network/sira_platform/internal/app/domain/casefile"
)

// Row limits keep reports printable.
const (
	maxCaseRows    = 20
	maxSummaryRows = 100
)

type rgb struct{ r, g, b int }

var (
	headerFill = rgb{0x34, 0x98, 0xdb}
	rowFill    = rgb{0xf8, 0xf9, 0xfa}
	gridColor  = rgb{0xdd, 0xdd, 0xdd}
	mutedText  = rgb{0x80, 0x80, 0x80}
)

type document struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func newDocument(footer string) *document {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AliasNbPages("")
	d := &document{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(mutedText.r, mutedText.g, mutedText.b)
		pdf.CellFormat(0, 10, d.tr(fmt.Sprintf("%s - Page %d of {nb}", footer, pdf.PageNo())), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()
	return d
}

func (d *document) title(text string) {
	d.pdf.SetFont("Helvetica", "B", 20)
	d.pdf.SetTextColor(0x2c, 0x3e, 0x50)
	d.pdf.CellFormat(0, 12, d.tr(text), "", 1, "C", false, 0, "")
	d.pdf.Ln(4)
}

func (d *document) subtitle(text string) {
	d.pdf.SetFont("Helvetica", "", 11)
	d.pdf.SetTextColor(0x55, 0x55, 0x55)
	d.pdf.CellFormat(0, 7, d.tr(text), "", 1, "C", false, 0, "")
	d.pdf.Ln(4)
}

func (d *document) heading(text string) {
	d.pdf.Ln(4)
	d.pdf.SetFont("Helvetica", "B", 13)
	d.pdf.SetTextColor(0x34, 0x49, 0x5e)
	d.pdf.CellFormat(0, 8, d.tr(text), "B", 1, "L", false, 0, "")
	d.pdf.Ln(2)
}

func (d *document) field(label, value string) {
	d.pdf.SetFont("Helvetica", "B", 10)
	d.pdf.SetTextColor(0, 0, 0)
	d.pdf.CellFormat(40, 6, d.tr(label+":"), "", 0, "L", false, 0, "")
	d.pdf.SetFont("Helvetica", "", 10)
	d.pdf.MultiCell(0, 6, d.tr(value), "", "L", false)
}

func (d *document) paragraph(text string) {
	d.pdf.SetFont("Helvetica", "", 10)
	d.pdf.SetTextColor(0, 0, 0)
	d.pdf.MultiCell(0, 5, d.tr(text), "", "L", false)
}

func (d *document) note(text string) {
	d.pdf.SetFont("Helvetica", "I", 8)
	d.pdf.SetTextColor(mutedText.r, mutedText.g, mutedText.b)
	d.pdf.MultiCell(0, 4, d.tr(text), "", "L", false)
}

func (d *document) table(widths []float64, header []string, rows [][]string) {
	d.pdf.SetDrawColor(gridColor.r, gridColor.g, gridColor.b)
	d.pdf.SetFillColor(headerFill.r, headerFill.g, headerFill.b)
	d.pdf.SetTextColor(255, 255, 255)
	d.pdf.SetFont("Helvetica", "B", 9)
	for i, h := range header {
		d.pdf.CellFormat(widths[i], 7, d.tr(h), "1", 0, "C", true, 0, "")
	}
	d.pdf.Ln(-1)

	d.pdf.SetFillColor(rowFill.r, rowFill.g, rowFill.b)
	d.pdf.SetTextColor(0, 0, 0)
	d.pdf.SetFont("Helvetica", "", 8)
	for _, row := range rows {
		for i, cell := range row {
			d.pdf.CellFormat(widths[i], 6, d.tr(cell), "1", 0, "L", true, 0, "")
		}
		d.pdf.Ln(-1)
	}
}

func (d *document) bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func clip(s string, n int) string {
	s = strings.TrimSpace(s)
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.UTC().Format("2006-01-02 15:04")
}

// CaseReport is the content of a case compliance pack.
type CaseReport struct {
	Case        casefile.Case
	Alerts      []alert.Alert
	Evidence    []casefile.Evidence
	GeneratedAt time.Time
}

// RenderCase renders a case compliance report.
func RenderCase(r CaseReport) ([]byte, error) {
	c := r.Case
	d := newDocument("SIRA Platform - Compliance Report")
	d.title("SIRA Compliance Report")
	d.subtitle("Shipping Intelligence & Risk Analytics Platform - CONFIDENTIAL")

	d.field("Case Number", orNA(c.CaseNumber))
	d.field("Title", orNA(c.Title))
	d.field("Status", strings.ToUpper(orNA(c.Status)))
	d.field("Priority", strings.ToUpper(orNA(c.Priority)))
	d.field("Category", orNA(c.Category))
	d.field("Created", stamp(c.CreatedAt))
	if c.ClosedAt != nil {
		d.field("Closed", stamp(*c.ClosedAt))
		d.field("Closure Code", orNA(c.ClosureCode))
	}
	d.field("Total Costs", fmt.Sprintf("$%.2f", c.Costs))

	d.heading("Overview")
	if strings.TrimSpace(c.Overview) == "" {
		d.paragraph("No overview provided")
	} else {
		d.paragraph(c.Overview)
	}

	d.heading(fmt.Sprintf("Associated Alerts (%d)", len(r.Alerts)))
	if len(r.Alerts) == 0 {
		d.paragraph("No alerts associated with this case.")
	} else {
		rows := make([][]string, 0, maxCaseRows)
		for i, a := range r.Alerts {
			if i == maxCaseRows {
				break
			}
			rows = append(rows, []string{fmt.Sprint(a.ID), a.Severity, clip(orNA(a.Description), 50), a.Status})
		}
		d.table([]float64{15, 25, 100, 30}, []string{"ID", "Severity", "Description", "Status"}, rows)
	}

	d.heading(fmt.Sprintf("Evidence Records (%d)", len(r.Evidence)))
	if len(r.Evidence) == 0 {
		d.paragraph("No evidence recorded for this case.")
	} else {
		rows := make([][]string, 0, maxCaseRows)
		for i, e := range r.Evidence {
			if i == maxCaseRows {
				break
			}
			hash := "N/A"
			if e.FileHash != "" {
				hash = clip(e.FileHash, 16)
			}
			rows = append(rows, []string{fmt.Sprint(e.ID), e.EvidenceType, e.VerificationStatus, hash})
		}
		d.table([]float64{15, 40, 35, 80}, []string{"ID", "Type", "Status", "Hash"}, rows)
	}

	d.pdf.Ln(10)
	d.note("Report generated: " + r.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	d.note("This report is confidential and for authorized use only.")
	return d.bytes()
}

// AlertSummary is the content of a period alert report.
type AlertSummary struct {
	Start       time.Time
	End         time.Time
	Total       int
	Critical    int
	High        int
	Resolved    int
	Alerts      []alert.Alert
	GeneratedAt time.Time
}

// RenderAlertSummary renders an alert summary report for a period.
func RenderAlertSummary(s AlertSummary) ([]byte, error) {
	d := newDocument("Generated by SIRA Platform")
	d.title("Alert Summary Report")
	d.subtitle(fmt.Sprintf("%s to %s", s.Start.UTC().Format("2006-01-02"), s.End.UTC().Format("2006-01-02")))

	d.table([]float64{42.5, 42.5, 42.5, 42.5},
		[]string{"Total Alerts", "Critical", "High", "Resolved"},
		[][]string{{fmt.Sprint(s.Total), fmt.Sprint(s.Critical), fmt.Sprint(s.High), fmt.Sprint(s.Resolved)}})

	d.heading("Alert Details")
	if len(s.Alerts) == 0 {
		d.paragraph("No alerts in this period.")
	} else {
		rows := make([][]string, 0, maxSummaryRows)
		for i, a := range s.Alerts {
			if i == maxSummaryRows {
				break
			}
			rows = append(rows, []string{fmt.Sprint(a.ID), a.Severity, clip(orNA(a.Domain), 30), a.Status, stamp(a.CreatedAt)})
		}
		d.table([]float64{15, 25, 55, 35, 40}, []string{"ID", "Severity", "Domain", "Status", "Created"}, rows)
	}

	d.pdf.Ln(10)
	d.note("Report generated: " + s.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	return d.bytes()
}
