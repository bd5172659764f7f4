package receipt

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"

	"tutordesk/internal/format"
)

// Renderer draws receipts on an A5 page. Without a font file the PDF core
// fonts are used and text outside cp1252 is replaced.
type Renderer struct {
	fontPath string
	title    string
	subtitle string
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithFont embeds a TrueType font, needed for Arabic names.
func WithFont(path string) RendererOption {
	return func(r *Renderer) { r.fontPath = strings.TrimSpace(path) }
}

// WithHeading replaces the title and subtitle lines.
func WithHeading(title, subtitle string) RendererOption {
	return func(r *Renderer) {
		r.title = title
		r.subtitle = subtitle
	}
}

func NewRenderer(opts ...RendererOption) *Renderer {
	r := &Renderer{
		title:    "REÇU DE PAIEMENT",
		subtitle: "Scolarité / Cours",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

const (
	family    = "receipt"
	pageWidth = 148.0
	margin    = 14.0
	lineH     = 8.0
)

// Render writes rec as a PDF document to w.
func (r *Renderer) Render(w io.Writer, rec Receipt) error {
	pdf := fpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, margin)
	pdf.SetTitle(rec.Number, true)
	pdf.SetCreator("tutordesk", true)

	font := "Helvetica"
	tr := func(s string) string { return s }
	if r.fontPath != "" {
		pdf.AddUTF8Font(family, "", r.fontPath)
		pdf.AddUTF8Font(family, "B", r.fontPath)
		font = family
	} else {
		cp := pdf.UnicodeTranslatorFromDescriptor("")
		// x/text groups thousands with a narrow no-break space, absent from cp1252.
		tr = func(s string) string { return cp(strings.ReplaceAll(s, "\u202f", "\u00a0")) }
	}

	pdf.AddPage()
	inner := pageWidth - 2*margin

	pdf.SetFont(font, "B", 16)
	pdf.CellFormat(inner, 10, tr(r.title), "", 1, "C", false, 0, "")
	pdf.SetFont(font, "", 9)
	pdf.SetTextColor(110, 110, 110)
	pdf.CellFormat(inner, 5, tr(r.subtitle), "", 1, "C", false, 0, "")
	pdf.CellFormat(inner, 5, tr("N° "+rec.Number), "", 1, "C", false, 0, "")
	pdf.Ln(3)
	pdf.SetDrawColor(220, 220, 220)
	pdf.Line(margin, pdf.GetY(), pageWidth-margin, pdf.GetY())
	pdf.Ln(5)

	rows := [][2]string{
		{"Élève :", rec.StudentName},
		{"Classe :", rec.Level},
		{"Mois payé :", monthLine(rec)},
		{"Date versement :", rec.PaymentDate},
	}
	valueAlign := "R"
	if rec.Direction == format.RTL {
		valueAlign = "L"
	}
	for _, row := range rows {
		pdf.SetFont(font, "", 10)
		pdf.SetTextColor(90, 90, 90)
		pdf.CellFormat(inner/2, lineH, tr(row[0]), "", 0, "L", false, 0, "")
		pdf.SetFont(font, "B", 10)
		pdf.SetTextColor(20, 20, 20)
		pdf.CellFormat(inner/2, lineH, tr(row[1]), "", 1, valueAlign, false, 0, "")
	}

	pdf.Ln(4)
	pdf.SetFillColor(245, 245, 247)
	pdf.SetFont(font, "B", 11)
	pdf.CellFormat(inner/2, 12, tr("Montant Total"), "TBL", 0, "L", true, 0, "")
	pdf.SetTextColor(67, 56, 202)
	pdf.SetFont(font, "B", 13)
	pdf.CellFormat(inner/2, 12, tr(rec.Amount), "TBR", 1, "R", true, 0, "")

	pdf.Ln(10)
	pdf.Line(margin, pdf.GetY(), pageWidth-margin, pdf.GetY())
	pdf.Ln(2)
	pdf.SetFont(font, "", 8)
	pdf.SetTextColor(150, 150, 150)
	pdf.CellFormat(inner, 5, "Signature", "", 1, "C", false, 0, "")

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("build receipt pdf: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write receipt pdf: %w", err)
	}
	return nil
}

func monthLine(rec Receipt) string {
	if rec.Year == 0 {
		return rec.Month
	}
	return fmt.Sprintf("%s %d", rec.Month, rec.Year)
}
