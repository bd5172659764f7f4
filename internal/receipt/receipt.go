// Package receipt builds payment receipts and renders them as PDF.
package receipt

import (
	"strings"

	"tutordesk/internal/core"
	"tutordesk/internal/format"
)

// Receipt holds the display values printed on a payment receipt.
type Receipt struct {
	Number      string
	PaymentID   string
	StudentName string
	Level       string
	Month       string
	Year        int
	PaymentDate string
	Amount      string
	Direction   format.Direction
}

// Build formats a payment and its student for printing. The receipt number
// carries the formatter's current date.
func Build(p core.Payment, s core.Student, f *format.Formatter) Receipt {
	month := p.Month
	if strings.TrimSpace(month) == "" {
		month = core.UnspecifiedMonth
	}
	return Receipt{
		Number:      f.ReceiptNumber(p.ID),
		PaymentID:   p.ID,
		StudentName: s.Name,
		Level:       s.Level,
		Month:       month,
		Year:        p.Year,
		PaymentDate: format.FormatDate(p.PaymentDate),
		Amount:      f.CurrencyText(p.Amount),
		Direction:   format.DetectDirection(s.Name),
	}
}

var unsafeFileChars = strings.NewReplacer("/", "-", "\\", "-", ":", "-", "\"", "", "\n", " ", "\r", " ")

// FileName is the download name, Recu-{student}-{month}.pdf.
func (r Receipt) FileName() string {
	name := strings.TrimSpace(r.StudentName)
	if name == "" {
		name = "eleve"
	}
	return unsafeFileChars.Replace("Recu-" + name + "-" + r.Month + ".pdf")
}
