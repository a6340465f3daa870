package render

import (
	"fmt"
	"strings"

	"codeberg.org/go-pdf/fpdf"

	"trainingportal-backend/internal/config"
	"trainingportal-backend/internal/domain"
	"trainingportal-backend/internal/utils"
)

const (
	lineHeight = 6.0
	pageWidth  = 210.0 - 36.0
)

// document wraps fpdf with the few drawing primitives the templates share.
type document struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
	cfg config.RenderConfig
}

func (d *document) letterhead() {
	d.pdf.SetFont("Helvetica", "B", 16)
	d.pdf.CellFormat(pageWidth, 9, d.tr(d.cfg.IssuerName), "", 1, "L", false, 0, "")
	d.pdf.SetFont("Helvetica", "", 9)
	for _, line := range []string{d.cfg.IssuerAddress, d.cfg.IssuerEmail} {
		if line != "" {
			d.pdf.CellFormat(pageWidth, 4.5, d.tr(line), "", 1, "L", false, 0, "")
		}
	}
	d.pdf.Ln(4)
	d.pdf.SetDrawColor(180, 180, 180)
	x, y := d.pdf.GetXY()
	d.pdf.Line(x, y, x+pageWidth, y)
	d.pdf.Ln(6)
}

func (d *document) footer() {
	d.pdf.SetY(-15)
	d.pdf.SetFont("Helvetica", "I", 8)
	d.pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", d.pdf.PageNo()), "", 0, "C", false, 0, "")
}

func (d *document) title(text string) {
	d.pdf.SetFont("Helvetica", "B", 14)
	d.pdf.CellFormat(pageWidth, 10, d.tr(strings.ToUpper(text)), "", 1, "C", false, 0, "")
	d.pdf.Ln(2)
}

func (d *document) field(label, value string) {
	d.pdf.SetFont("Helvetica", "B", 10)
	d.pdf.CellFormat(45, lineHeight, d.tr(label), "", 0, "L", false, 0, "")
	d.pdf.SetFont("Helvetica", "", 10)
	d.pdf.MultiCell(pageWidth-45, lineHeight, d.tr(value), "", "L", false)
}

func (d *document) paragraph(text string) {
	d.pdf.SetFont("Helvetica", "", 10.5)
	d.pdf.MultiCell(pageWidth, lineHeight, d.tr(text), "", "J", false)
	d.pdf.Ln(2)
}

// table prints a header row on a grey fill followed by the rows. widths are
// fractions of the printable width.
func (d *document) table(widths []float64, header []string, rows [][]string, align []string) {
	d.pdf.SetFont("Helvetica", "B", 10)
	d.pdf.SetFillColor(230, 230, 230)
	for i, h := range header {
		d.pdf.CellFormat(widths[i]*pageWidth, 8, d.tr(h), "1", 0, align[i], true, 0, "")
	}
	d.pdf.Ln(-1)

	d.pdf.SetFont("Helvetica", "", 10)
	for _, row := range rows {
		for i, cell := range row {
			d.pdf.CellFormat(widths[i]*pageWidth, 7, d.tr(cell), "1", 0, align[i], false, 0, "")
		}
		d.pdf.Ln(-1)
	}
	d.pdf.Ln(4)
}

func (d *document) signature() {
	d.pdf.Ln(10)
	d.pdf.SetFont("Helvetica", "", 10)
	d.pdf.CellFormat(pageWidth, lineHeight, "______________________________", "", 1, "L", false, 0, "")
	if d.cfg.SignatoryName != "" {
		d.pdf.SetFont("Helvetica", "B", 10)
		d.pdf.CellFormat(pageWidth, lineHeight, d.tr(d.cfg.SignatoryName), "", 1, "L", false, 0, "")
	}
	if d.cfg.SignatoryTitle != "" {
		d.pdf.SetFont("Helvetica", "", 10)
		d.pdf.CellFormat(pageWidth, lineHeight, d.tr(d.cfg.SignatoryTitle), "", 1, "L", false, 0, "")
	}
}

// billTo prints the organization when the application has one, else the owner.
func (d *document) billTo(details *domain.ApplicationDetails) {
	switch {
	case details.Organization != nil:
		d.field("Bill to:", details.Organization.Name)
		if details.Organization.Address != "" {
			d.field("Address:", details.Organization.Address)
		}
		if details.Organization.Email != "" {
			d.field("Email:", details.Organization.Email)
		}
	case details.Owner != nil:
		d.field("Bill to:", details.Owner.Name)
		if details.Owner.Email != "" {
			d.field("Email:", details.Owner.Email)
		}
	}
}

func sessionTitle(details *domain.ApplicationDetails) string {
	switch {
	case details.Session != nil && details.Session.Title != "":
		return details.Session.Title
	case details.Program != nil:
		return details.Program.Title
	}
	return "Training session"
}

func sessionDates(details *domain.ApplicationDetails) string {
	if details.Session == nil {
		return ""
	}
	return utils.FormatDateRange(details.Session.StartDate, details.Session.EndDate)
}

func participantCount(details *domain.ApplicationDetails) int {
	if n := len(details.Participants); n > 0 {
		return n
	}
	return 1
}
